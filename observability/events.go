package observability

import (
	"strings"

	"crednet/core/events"
)

// MetricsEmitter decorates an events.Emitter with prometheus counters. Wrap
// the downstream emitter once at wiring time; every protocol event then feeds
// both the event stream and the metrics registry.
type MetricsEmitter struct {
	next events.Emitter
}

func NewMetricsEmitter(next events.Emitter) *MetricsEmitter {
	if next == nil {
		next = events.NoopEmitter{}
	}
	return &MetricsEmitter{next: next}
}

func (m *MetricsEmitter) Emit(evt events.Event) {
	if evt != nil {
		switch t := evt.EventType(); {
		case t == events.TypeTermsAccepted:
			Consensus().Rounds.WithLabelValues("accepted").Inc()
		case t == events.TypeTermsSubmitted:
			Consensus().Responses.Inc()
		case strings.HasPrefix(t, "loans."):
			Loans().Operations.WithLabelValues(strings.TrimPrefix(t, "loans.")).Inc()
		}
	}
	m.next.Emit(evt)
}
