package loans

import (
	"math/big"

	"crednet/crypto"
)

// Status is the forward-only lifecycle position of a loan.
type Status uint8

const (
	StatusNonExistent Status = iota
	StatusTermsSet
	StatusActive
	StatusClosed
)

func (s Status) String() string {
	switch s {
	case StatusNonExistent:
		return "NON_EXISTENT"
	case StatusTermsSet:
		return "TERMS_SET"
	case StatusActive:
		return "ACTIVE"
	case StatusClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// LoanTerms is the immutable outcome of a consensus round combined with the
// request it answered. Copied onto the loan at creation and never changed.
type LoanTerms struct {
	Borrower        crypto.Address `json:"borrower"`
	Recipient       crypto.Address `json:"recipient"`
	InterestRate    uint64         `json:"interestRate"`
	CollateralRatio uint64         `json:"collateralRatio"`
	MaxLoanAmount   *big.Int       `json:"maxLoanAmount"`
	Duration        int64          `json:"duration"`
}

// Loan is one ledger record. Collateral and the owed amounts are live state;
// everything else is fixed at creation or at activation.
type Loan struct {
	ID               uint64    `json:"id"`
	Terms            LoanTerms `json:"terms"`
	TermsExpiry      int64     `json:"termsExpiry"`
	LoanStartTime    int64     `json:"loanStartTime"`
	Collateral       *big.Int  `json:"collateral"`
	LastCollateralIn int64     `json:"lastCollateralIn"`
	PrincipalOwed    *big.Int  `json:"principalOwed"`
	InterestOwed     *big.Int  `json:"interestOwed"`
	Status           Status    `json:"status"`
	Liquidated       bool      `json:"liquidated"`
}

// TotalOwed returns principal plus interest outstanding.
func (l *Loan) TotalOwed() *big.Int {
	return new(big.Int).Add(l.PrincipalOwed, l.InterestOwed)
}

// Clone deep-copies the loan so callers cannot mutate ledger state through
// shared big.Int pointers.
func (l *Loan) Clone() *Loan {
	if l == nil {
		return nil
	}
	dup := *l
	dup.Collateral = new(big.Int).Set(l.Collateral)
	dup.PrincipalOwed = new(big.Int).Set(l.PrincipalOwed)
	dup.InterestOwed = new(big.Int).Set(l.InterestOwed)
	if l.Terms.MaxLoanAmount != nil {
		dup.Terms.MaxLoanAmount = new(big.Int).Set(l.Terms.MaxLoanAmount)
	}
	return &dup
}
