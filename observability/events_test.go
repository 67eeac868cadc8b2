package observability

import (
	"math/big"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"crednet/core/events"
)

type captureEmitter struct {
	seen []events.Event
}

func (c *captureEmitter) Emit(evt events.Event) { c.seen = append(c.seen, evt) }

func TestMetricsEmitterForwardsAndCounts(t *testing.T) {
	next := &captureEmitter{}
	emitter := NewMetricsEmitter(next)

	roundsBefore := testutil.ToFloat64(Consensus().Rounds.WithLabelValues("accepted"))
	responsesBefore := testutil.ToFloat64(Consensus().Responses)
	repaidBefore := testutil.ToFloat64(Loans().Operations.WithLabelValues("repaid"))

	emitter.Emit(events.TermsSubmitted{MaxLoanAmount: big.NewInt(1)})
	emitter.Emit(events.TermsAccepted{MaxLoanAmount: big.NewInt(1)})
	emitter.Emit(events.LoanRepaid{
		Applied:            big.NewInt(1),
		PrincipalRemaining: big.NewInt(0),
		InterestRemaining:  big.NewInt(0),
	})

	if len(next.seen) != 3 {
		t.Fatalf("expected 3 forwarded events, got %d", len(next.seen))
	}
	if got := testutil.ToFloat64(Consensus().Rounds.WithLabelValues("accepted")) - roundsBefore; got != 1 {
		t.Fatalf("expected one accepted round, got %v", got)
	}
	if got := testutil.ToFloat64(Consensus().Responses) - responsesBefore; got != 1 {
		t.Fatalf("expected one counted response, got %v", got)
	}
	if got := testutil.ToFloat64(Loans().Operations.WithLabelValues("repaid")) - repaidBefore; got != 1 {
		t.Fatalf("expected one repaid operation, got %v", got)
	}
}

func TestMetricsEmitterNilDownstream(t *testing.T) {
	emitter := NewMetricsEmitter(nil)
	emitter.Emit(events.LoanTermsSet{LoanID: 1})
}
