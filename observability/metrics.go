package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// ConsensusMetrics counts consensus round outcomes and accepted responses.
type ConsensusMetrics struct {
	Rounds    *prometheus.CounterVec
	Responses prometheus.Counter
}

// LoansMetrics counts lifecycle operations by outcome.
type LoansMetrics struct {
	Operations *prometheus.CounterVec
}

var (
	consensusOnce     sync.Once
	consensusRegistry *ConsensusMetrics

	loansOnce     sync.Once
	loansRegistry *LoansMetrics
)

// Consensus returns the lazily-initialised consensus metrics registry.
func Consensus() *ConsensusMetrics {
	consensusOnce.Do(func() {
		consensusRegistry = &ConsensusMetrics{
			Rounds: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "crednet",
				Subsystem: "consensus",
				Name:      "rounds_total",
				Help:      "Total consensus rounds segmented by outcome.",
			}, []string{"outcome"}),
			Responses: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "crednet",
				Subsystem: "consensus",
				Name:      "responses_total",
				Help:      "Total signer responses accepted into consensus rounds.",
			}),
		}
		prometheus.MustRegister(consensusRegistry.Rounds, consensusRegistry.Responses)
	})
	return consensusRegistry
}

// Loans returns the lazily-initialised loan lifecycle metrics registry.
func Loans() *LoansMetrics {
	loansOnce.Do(func() {
		loansRegistry = &LoansMetrics{
			Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "crednet",
				Subsystem: "loans",
				Name:      "operations_total",
				Help:      "Total loan lifecycle operations segmented by event type.",
			}, []string{"operation"}),
		}
		prometheus.MustRegister(loansRegistry.Operations)
	})
	return loansRegistry
}
