package events

import (
	"math/big"
	"strconv"

	"crednet/core/types"
	"crednet/crypto"
)

const (
	TypeLoanTermsSet        = "loans.termsSet"
	TypeCollateralDeposited = "loans.collateralDeposited"
	TypeCollateralWithdrawn = "loans.collateralWithdrawn"
	TypeLoanTakenOut        = "loans.takenOut"
	TypeLoanRepaid          = "loans.repaid"
	TypeLoanLiquidated      = "loans.liquidated"
)

// LoanTermsSet is emitted when a consensus round creates a loan record.
type LoanTermsSet struct {
	LoanID      uint64
	Borrower    crypto.Address
	TermsExpiry int64
}

func (LoanTermsSet) EventType() string { return TypeLoanTermsSet }

func (e LoanTermsSet) Event() *types.Event {
	return &types.Event{
		Type: TypeLoanTermsSet,
		Attributes: map[string]string{
			"loanId":      strconv.FormatUint(e.LoanID, 10),
			"borrower":    e.Borrower.String(),
			"termsExpiry": intToString(e.TermsExpiry),
		},
	}
}

// CollateralDeposited is emitted for every collateral top-up.
type CollateralDeposited struct {
	LoanID    uint64
	Depositor crypto.Address
	Amount    *big.Int
}

func (CollateralDeposited) EventType() string { return TypeCollateralDeposited }

func (e CollateralDeposited) Event() *types.Event {
	return &types.Event{
		Type: TypeCollateralDeposited,
		Attributes: map[string]string{
			"loanId":    strconv.FormatUint(e.LoanID, 10),
			"depositor": e.Depositor.String(),
			"amount":    formatAmount(e.Amount),
		},
	}
}

// CollateralWithdrawn is emitted when excess collateral leaves the escrow.
type CollateralWithdrawn struct {
	LoanID   uint64
	Receiver crypto.Address
	Amount   *big.Int
}

func (CollateralWithdrawn) EventType() string { return TypeCollateralWithdrawn }

func (e CollateralWithdrawn) Event() *types.Event {
	return &types.Event{
		Type: TypeCollateralWithdrawn,
		Attributes: map[string]string{
			"loanId":   strconv.FormatUint(e.LoanID, 10),
			"receiver": e.Receiver.String(),
			"amount":   formatAmount(e.Amount),
		},
	}
}

// LoanTakenOut records the principal draw-down that activates a loan.
type LoanTakenOut struct {
	LoanID       uint64
	Borrower     crypto.Address
	Amount       *big.Int
	InterestOwed *big.Int
}

func (LoanTakenOut) EventType() string { return TypeLoanTakenOut }

func (e LoanTakenOut) Event() *types.Event {
	return &types.Event{
		Type: TypeLoanTakenOut,
		Attributes: map[string]string{
			"loanId":       strconv.FormatUint(e.LoanID, 10),
			"borrower":     e.Borrower.String(),
			"amount":       formatAmount(e.Amount),
			"interestOwed": formatAmount(e.InterestOwed),
		},
	}
}

// LoanRepaid records a repayment and the remaining obligations.
type LoanRepaid struct {
	LoanID             uint64
	Payer              crypto.Address
	Applied            *big.Int
	PrincipalRemaining *big.Int
	InterestRemaining  *big.Int
	Closed             bool
}

func (LoanRepaid) EventType() string { return TypeLoanRepaid }

func (e LoanRepaid) Event() *types.Event {
	return &types.Event{
		Type: TypeLoanRepaid,
		Attributes: map[string]string{
			"loanId":             strconv.FormatUint(e.LoanID, 10),
			"payer":              e.Payer.String(),
			"applied":            formatAmount(e.Applied),
			"principalRemaining": formatAmount(e.PrincipalRemaining),
			"interestRemaining":  formatAmount(e.InterestRemaining),
			"closed":             strconv.FormatBool(e.Closed),
		},
	}
}

// LoanLiquidated records a liquidation settlement.
type LoanLiquidated struct {
	LoanID           uint64
	Liquidator       crypto.Address
	Repaid           *big.Int
	RewardCollateral *big.Int
	RewardLending    *big.Int
}

func (LoanLiquidated) EventType() string { return TypeLoanLiquidated }

func (e LoanLiquidated) Event() *types.Event {
	return &types.Event{
		Type: TypeLoanLiquidated,
		Attributes: map[string]string{
			"loanId":           strconv.FormatUint(e.LoanID, 10),
			"liquidator":       e.Liquidator.String(),
			"repaid":           formatAmount(e.Repaid),
			"rewardCollateral": formatAmount(e.RewardCollateral),
			"rewardLending":    formatAmount(e.RewardLending),
		},
	}
}
