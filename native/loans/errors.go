package loans

import "errors"

var (
	// ErrUnauthorized rejects lifecycle calls from anyone but the borrower.
	ErrUnauthorized = errors.New("loans: caller is not the borrower")
	// ErrInvalidAmount rejects nil, zero or negative amounts.
	ErrInvalidAmount = errors.New("loans: invalid amount")
	// ErrLoanNotFound rejects operations on unknown loan ids.
	ErrLoanNotFound = errors.New("loans: loan not found")
	// ErrInvalidTransition rejects any out-of-order status mutation.
	ErrInvalidTransition = errors.New("loans: invalid status transition")
	// ErrLoanTermsExpired rejects a draw-down after the terms expiry.
	ErrLoanTermsExpired = errors.New("loans: loan terms expired")
	// ErrMaxLoanExceeded rejects a draw-down above the agreed maximum.
	ErrMaxLoanExceeded = errors.New("loans: amount exceeds max loan amount")
	// ErrMoreCollateralRequired rejects draw-downs and withdrawals that would
	// leave the loan under its required collateral.
	ErrMoreCollateralRequired = errors.New("loans: more collateral required")
	// ErrCollateralDepositedRecently enforces the safety interval between the
	// last deposit and a draw-down.
	ErrCollateralDepositedRecently = errors.New("loans: collateral deposited too recently")
	// ErrRequestRateLimited throttles borrowers requesting terms too often.
	ErrRequestRateLimited = errors.New("loans: loan terms request rate limited")
	// ErrLoanNotActive rejects operations requiring an active loan.
	ErrLoanNotActive = errors.New("loans: loan not active")
	// ErrLoanLiquidated rejects every mutating operation on a liquidated loan.
	ErrLoanLiquidated = errors.New("loans: loan liquidated")
	// ErrNotLiquidatable rejects liquidation of a healthy, unexpired loan.
	ErrNotLiquidatable = errors.New("loans: loan not liquidatable")
	// ErrNilState signals a mis-wired engine or ledger.
	ErrNilState = errors.New("loans: state not configured")
)
