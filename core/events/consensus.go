package events

import (
	"math/big"
	"strconv"

	"crednet/core/types"
	"crednet/crypto"
)

const (
	TypeTermsSubmitted = "consensus.termsSubmitted"
	TypeTermsAccepted  = "consensus.termsAccepted"
)

// TermsSubmitted records a single signer response accepted into a consensus
// round.
type TermsSubmitted struct {
	Signer          crypto.Address
	Borrower        crypto.Address
	RequestNonce    uint64
	SignerNonce     uint64
	InterestRate    uint64
	CollateralRatio uint64
	MaxLoanAmount   *big.Int
}

func (TermsSubmitted) EventType() string { return TypeTermsSubmitted }

func (e TermsSubmitted) Event() *types.Event {
	return &types.Event{
		Type: TypeTermsSubmitted,
		Attributes: map[string]string{
			"signer":          e.Signer.String(),
			"borrower":        e.Borrower.String(),
			"requestNonce":    strconv.FormatUint(e.RequestNonce, 10),
			"signerNonce":     strconv.FormatUint(e.SignerNonce, 10),
			"interestRate":    strconv.FormatUint(e.InterestRate, 10),
			"collateralRatio": strconv.FormatUint(e.CollateralRatio, 10),
			"maxLoanAmount":   formatAmount(e.MaxLoanAmount),
		},
	}
}

// TermsAccepted carries the aggregated result of a successful consensus round.
type TermsAccepted struct {
	Borrower        crypto.Address
	RequestNonce    uint64
	InterestRate    uint64
	CollateralRatio uint64
	MaxLoanAmount   *big.Int
}

func (TermsAccepted) EventType() string { return TypeTermsAccepted }

func (e TermsAccepted) Event() *types.Event {
	return &types.Event{
		Type: TypeTermsAccepted,
		Attributes: map[string]string{
			"borrower":        e.Borrower.String(),
			"requestNonce":    strconv.FormatUint(e.RequestNonce, 10),
			"interestRate":    strconv.FormatUint(e.InterestRate, 10),
			"collateralRatio": strconv.FormatUint(e.CollateralRatio, 10),
			"maxLoanAmount":   formatAmount(e.MaxLoanAmount),
		},
	}
}

func formatAmount(amount *big.Int) string {
	if amount == nil {
		return "0"
	}
	return amount.String()
}

func intToString(v int64) string {
	return strconv.FormatInt(v, 10)
}
