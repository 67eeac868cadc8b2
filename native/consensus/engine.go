package consensus

import (
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"crednet/core/events"
	"crednet/crypto"
	nativecommon "crednet/native/common"
	"crednet/native/params"
)

const moduleName = "consensus"

var basisPoints = big.NewInt(10_000)

type engineState interface {
	SignerNonceUsed(signer crypto.Address, nonce uint64) (bool, error)
	RequestNonceUsed(borrower crypto.Address, nonce uint64) (bool, error)
	LastRequestTime(borrower crypto.Address) (int64, error)
	CommitRound(round ConsumedRound) error
}

type settingsSource interface {
	Settings() (params.Settings, error)
}

// Engine verifies batches of signed loan terms responses against a request
// and aggregates the accepted values. One engine instance corresponds to one
// consensus address on one chain; the hasher binds every signature to that
// pair.
type Engine struct {
	state        engineState
	registry     *Registry
	hasher       Hasher
	settings     settingsSource
	loansAddress crypto.Address
	emitter      events.Emitter
	pauses       nativecommon.PauseView
	log          *slog.Logger
	nowFn        func() int64
}

// NewEngine constructs a consensus engine for the given chain and instance
// address. Only the loans module at loansAddress may submit rounds.
func NewEngine(chainID uint64, instance, loansAddress crypto.Address, registry *Registry, settings settingsSource) *Engine {
	return &Engine{
		registry:     registry,
		hasher:       NewHasher(chainID, instance),
		settings:     settings,
		loansAddress: loansAddress,
		emitter:      events.NoopEmitter{},
		nowFn:        func() int64 { return time.Now().Unix() },
	}
}

// SetState wires the engine to the nonce persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event emitter. Nil resets to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// SetLogger wires a structured logger for round observations.
func (e *Engine) SetLogger(log *slog.Logger) {
	if e == nil {
		return
	}
	e.log = log
}

// SetClock overrides the time source. Tests freeze it; production uses the
// wall clock.
func (e *Engine) SetClock(now func() int64) {
	if e == nil || now == nil {
		return
	}
	e.nowFn = now
}

// Hasher exposes the bound domain hasher so signer tooling and tests derive
// identical digests.
func (e *Engine) Hasher() Hasher { return e.hasher }

// Registry returns the signer registry backing the engine.
func (e *Engine) Registry() *Registry { return e.registry }

// LastRequestTime reports when the borrower last completed a consensus
// round. The loans module uses it for request rate limiting.
func (e *Engine) LastRequestTime(borrower crypto.Address) (int64, error) {
	if e == nil || e.state == nil {
		return 0, ErrNilState
	}
	return e.state.LastRequestTime(borrower)
}

// ProcessRequest validates the signed responses against the request and, on
// success, commits the consumed nonces and returns the aggregated terms.
// Validation happens strictly before the single state commit, so a failed
// call leaves no trace.
func (e *Engine) ProcessRequest(caller crypto.Address, request *LoanTermsRequest, responses []*LoanTermsResponse) (ConsensusResult, error) {
	if e == nil || e.state == nil {
		return ConsensusResult{}, ErrNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return ConsensusResult{}, err
	}
	if !caller.Equal(e.loansAddress) {
		return ConsensusResult{}, ErrUnauthorizedCaller
	}
	if request == nil {
		return ConsensusResult{}, fmt.Errorf("%w: nil request", ErrValueOutOfRange)
	}

	settings, err := e.settings.Settings()
	if err != nil {
		return ConsensusResult{}, err
	}

	signerCount := e.registry.SignerCount()
	if signerCount == 0 || !meetsQuorum(len(responses), signerCount, settings.RequiredSubmissionsBps) {
		return ConsensusResult{}, ErrInsufficientResponses
	}

	requestHash, err := e.hasher.HashRequest(request)
	if err != nil {
		return ConsensusResult{}, err
	}

	now := e.nowFn()
	seen := make(map[string]struct{}, len(responses))
	consumed := make([]SignerNonce, 0, len(responses))
	for _, resp := range responses {
		if resp == nil {
			return ConsensusResult{}, fmt.Errorf("%w: nil response", ErrValueOutOfRange)
		}
		if now-resp.ResponseTime > settings.ResponseExpirySeconds {
			return ConsensusResult{}, ErrResponseExpired
		}
		digest, err := e.hasher.HashResponse(resp, requestHash)
		if err != nil {
			return ConsensusResult{}, err
		}
		recovered, err := crypto.RecoverAddress(digest[:], resp.Signature)
		if err != nil || !recovered.Equal(resp.Signer) || !e.registry.IsSigner(resp.Signer) {
			return ConsensusResult{}, ErrSignatureInvalid
		}
		key := string(resp.Signer.Bytes())
		if _, dup := seen[key]; dup {
			return ConsensusResult{}, ErrSignerAlreadySubmitted
		}
		seen[key] = struct{}{}
		used, err := e.state.SignerNonceUsed(resp.Signer, resp.SignerNonce)
		if err != nil {
			return ConsensusResult{}, err
		}
		if used {
			return ConsensusResult{}, ErrSignerNonceTaken
		}
		consumed = append(consumed, SignerNonce{Signer: resp.Signer, Nonce: resp.SignerNonce})
	}

	used, err := e.state.RequestNonceUsed(request.Borrower, request.RequestNonce)
	if err != nil {
		return ConsensusResult{}, err
	}
	if used {
		return ConsensusResult{}, ErrRequestNonceTaken
	}

	if err := checkTolerance(responses, settings.MaximumToleranceBps); err != nil {
		return ConsensusResult{}, err
	}

	result := aggregate(responses)

	if err := e.state.CommitRound(ConsumedRound{
		SignerNonces: consumed,
		Borrower:     request.Borrower,
		RequestNonce: request.RequestNonce,
		RequestedAt:  now,
	}); err != nil {
		return ConsensusResult{}, err
	}

	for _, resp := range responses {
		e.emitter.Emit(events.TermsSubmitted{
			Signer:          resp.Signer,
			Borrower:        request.Borrower,
			RequestNonce:    request.RequestNonce,
			SignerNonce:     resp.SignerNonce,
			InterestRate:    resp.InterestRate,
			CollateralRatio: resp.CollateralRatio,
			MaxLoanAmount:   resp.MaxLoanAmount,
		})
	}
	e.emitter.Emit(events.TermsAccepted{
		Borrower:        request.Borrower,
		RequestNonce:    request.RequestNonce,
		InterestRate:    result.InterestRate,
		CollateralRatio: result.CollateralRatio,
		MaxLoanAmount:   result.MaxLoanAmount,
	})
	if e.log != nil {
		e.log.Info("loan terms accepted",
			"borrower", request.Borrower.String(),
			"requestNonce", request.RequestNonce,
			"responses", len(responses),
			"interestRate", result.InterestRate,
			"collateralRatio", result.CollateralRatio,
			"maxLoanAmount", result.MaxLoanAmount.String(),
		)
	}

	return result, nil
}

// meetsQuorum applies the basis point quorum rule:
// responses * 10000 / signers >= required.
func meetsQuorum(responses, signers int, requiredBps uint64) bool {
	if responses <= 0 {
		return false
	}
	got := new(big.Int).Mul(big.NewInt(int64(responses)), basisPoints)
	got.Quo(got, big.NewInt(int64(signers)))
	return got.Cmp(new(big.Int).SetUint64(requiredBps)) >= 0
}

// checkTolerance bounds the spread of each numeric field independently:
// (max - min) * 10000 must not exceed tolerance * min. A zero minimum with a
// non-zero maximum is an unbounded spread and fails closed; a single response
// trivially passes.
func checkTolerance(responses []*LoanTermsResponse, toleranceBps uint64) error {
	if len(responses) < 2 {
		return nil
	}
	var (
		minRate, maxRate   = responses[0].InterestRate, responses[0].InterestRate
		minRatio, maxRatio = responses[0].CollateralRatio, responses[0].CollateralRatio
		minAmount          = new(big.Int).Set(responses[0].MaxLoanAmount)
		maxAmount          = new(big.Int).Set(responses[0].MaxLoanAmount)
	)
	for _, resp := range responses[1:] {
		if resp.InterestRate < minRate {
			minRate = resp.InterestRate
		}
		if resp.InterestRate > maxRate {
			maxRate = resp.InterestRate
		}
		if resp.CollateralRatio < minRatio {
			minRatio = resp.CollateralRatio
		}
		if resp.CollateralRatio > maxRatio {
			maxRatio = resp.CollateralRatio
		}
		if resp.MaxLoanAmount.Cmp(minAmount) < 0 {
			minAmount.Set(resp.MaxLoanAmount)
		}
		if resp.MaxLoanAmount.Cmp(maxAmount) > 0 {
			maxAmount.Set(resp.MaxLoanAmount)
		}
	}
	tolerance := new(big.Int).SetUint64(toleranceBps)
	checks := []struct {
		min, max *big.Int
	}{
		{new(big.Int).SetUint64(minRate), new(big.Int).SetUint64(maxRate)},
		{new(big.Int).SetUint64(minRatio), new(big.Int).SetUint64(maxRatio)},
		{minAmount, maxAmount},
	}
	for _, c := range checks {
		if withinTolerance(c.min, c.max, tolerance) {
			continue
		}
		return ErrResponsesTooVaried
	}
	return nil
}

func withinTolerance(min, max, tolerance *big.Int) bool {
	spread := new(big.Int).Sub(max, min)
	if spread.Sign() == 0 {
		return true
	}
	if min.Sign() == 0 {
		return false
	}
	// Cross-multiplied so sub-basis-point spreads on large values are not
	// floored away and a zero tolerance demands exact equality.
	spread.Mul(spread, basisPoints)
	return spread.Cmp(new(big.Int).Mul(tolerance, min)) <= 0
}

// aggregate computes the floor mean of every field across the responses.
func aggregate(responses []*LoanTermsResponse) ConsensusResult {
	n := big.NewInt(int64(len(responses)))
	var (
		rateSum   = new(big.Int)
		ratioSum  = new(big.Int)
		amountSum = new(big.Int)
	)
	for _, resp := range responses {
		rateSum.Add(rateSum, new(big.Int).SetUint64(resp.InterestRate))
		ratioSum.Add(ratioSum, new(big.Int).SetUint64(resp.CollateralRatio))
		amountSum.Add(amountSum, resp.MaxLoanAmount)
	}
	return ConsensusResult{
		InterestRate:    rateSum.Quo(rateSum, n).Uint64(),
		CollateralRatio: ratioSum.Quo(ratioSum, n).Uint64(),
		MaxLoanAmount:   amountSum.Quo(amountSum, n),
	}
}
