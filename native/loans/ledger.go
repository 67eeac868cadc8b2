package loans

import (
	"fmt"
	"math/big"
)

// ledgerState is the persistence surface the ledger requires. Loan ids come
// from a monotonic allocator; records are keyed by id and never deleted.
type ledgerState interface {
	GetLoan(id uint64) (*Loan, bool, error)
	PutLoan(loan *Loan) error
	NextLoanID() (uint64, error)
}

// Ledger owns the loan record set and enforces the status invariants:
// forward-only TERMS_SET -> ACTIVE -> CLOSED transitions and a liquidated
// flag settable only while ACTIVE, never reset.
type Ledger struct {
	state ledgerState
}

func NewLedger(state ledgerState) *Ledger {
	return &Ledger{state: state}
}

func (l *Ledger) withState() (ledgerState, error) {
	if l == nil || l.state == nil {
		return nil, ErrNilState
	}
	return l.state, nil
}

// Create appends a new loan in TERMS_SET with zeroed collateral and debt.
func (l *Ledger) Create(terms LoanTerms, termsExpiry int64) (*Loan, error) {
	state, err := l.withState()
	if err != nil {
		return nil, err
	}
	id, err := state.NextLoanID()
	if err != nil {
		return nil, fmt.Errorf("loans: allocate id: %w", err)
	}
	loan := &Loan{
		ID:            id,
		Terms:         terms,
		TermsExpiry:   termsExpiry,
		Collateral:    new(big.Int),
		PrincipalOwed: new(big.Int),
		InterestOwed:  new(big.Int),
		Status:        StatusTermsSet,
	}
	if err := state.PutLoan(loan); err != nil {
		return nil, fmt.Errorf("loans: persist loan %d: %w", id, err)
	}
	return loan.Clone(), nil
}

// Get returns a copy of the loan record.
func (l *Ledger) Get(id uint64) (*Loan, error) {
	state, err := l.withState()
	if err != nil {
		return nil, err
	}
	loan, ok, err := state.GetLoan(id)
	if err != nil {
		return nil, fmt.Errorf("loans: load loan %d: %w", id, err)
	}
	if !ok {
		return nil, ErrLoanNotFound
	}
	return loan.Clone(), nil
}

func (l *Ledger) mutate(id uint64, fn func(*Loan) error) (*Loan, error) {
	state, err := l.withState()
	if err != nil {
		return nil, err
	}
	loan, ok, err := state.GetLoan(id)
	if err != nil {
		return nil, fmt.Errorf("loans: load loan %d: %w", id, err)
	}
	if !ok {
		return nil, ErrLoanNotFound
	}
	loan = loan.Clone()
	if err := fn(loan); err != nil {
		return nil, err
	}
	if err := state.PutLoan(loan); err != nil {
		return nil, fmt.Errorf("loans: persist loan %d: %w", id, err)
	}
	return loan.Clone(), nil
}

func validTransition(from, to Status) bool {
	switch {
	case from == StatusTermsSet && to == StatusActive:
		return true
	case from == StatusActive && to == StatusClosed:
		return true
	default:
		return false
	}
}

// SetStatus advances the loan status. Only forward transitions are legal.
func (l *Ledger) SetStatus(id uint64, to Status) error {
	_, err := l.mutate(id, func(loan *Loan) error {
		if !validTransition(loan.Status, to) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, loan.Status, to)
		}
		loan.Status = to
		return nil
	})
	return err
}

// MarkLiquidated flags the loan as liquidated. Legal only while ACTIVE and
// never reversible.
func (l *Ledger) MarkLiquidated(id uint64) error {
	_, err := l.mutate(id, func(loan *Loan) error {
		if loan.Status != StatusActive {
			return fmt.Errorf("%w: liquidate from %s", ErrInvalidTransition, loan.Status)
		}
		loan.Liquidated = true
		return nil
	})
	return err
}

// AddCollateral credits a deposit and stamps the cooldown timestamp.
func (l *Ledger) AddCollateral(id uint64, amount *big.Int, now int64) (*Loan, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	return l.mutate(id, func(loan *Loan) error {
		loan.Collateral = new(big.Int).Add(loan.Collateral, amount)
		loan.LastCollateralIn = now
		return nil
	})
}

// SubCollateral debits a withdrawal. The caller checks the collateral
// requirement; the ledger only refuses to go negative.
func (l *Ledger) SubCollateral(id uint64, amount *big.Int) (*Loan, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	return l.mutate(id, func(loan *Loan) error {
		if loan.Collateral.Cmp(amount) < 0 {
			return ErrInvalidAmount
		}
		loan.Collateral = new(big.Int).Sub(loan.Collateral, amount)
		return nil
	})
}

// StartLoan activates the loan: records the drawn principal and the up-front
// interest, stamps the start time and moves TERMS_SET -> ACTIVE.
func (l *Ledger) StartLoan(id uint64, principal, interest *big.Int, now int64) (*Loan, error) {
	if principal == nil || principal.Sign() <= 0 || interest == nil || interest.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	return l.mutate(id, func(loan *Loan) error {
		if !validTransition(loan.Status, StatusActive) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, loan.Status, StatusActive)
		}
		loan.PrincipalOwed = new(big.Int).Set(principal)
		loan.InterestOwed = new(big.Int).Set(interest)
		loan.LoanStartTime = now
		loan.Status = StatusActive
		return nil
	})
}

// ReduceDebt applies a repayment split. When both owed amounts reach zero
// the loan closes. Returns the updated record and whether it closed.
func (l *Ledger) ReduceDebt(id uint64, interest, principal *big.Int) (*Loan, bool, error) {
	closed := false
	loan, err := l.mutate(id, func(loan *Loan) error {
		if interest != nil && interest.Sign() > 0 {
			if loan.InterestOwed.Cmp(interest) < 0 {
				return ErrInvalidAmount
			}
			loan.InterestOwed = new(big.Int).Sub(loan.InterestOwed, interest)
		}
		if principal != nil && principal.Sign() > 0 {
			if loan.PrincipalOwed.Cmp(principal) < 0 {
				return ErrInvalidAmount
			}
			loan.PrincipalOwed = new(big.Int).Sub(loan.PrincipalOwed, principal)
		}
		if loan.PrincipalOwed.Sign() == 0 && loan.InterestOwed.Sign() == 0 {
			loan.Status = StatusClosed
			closed = true
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return loan, closed, nil
}

// SettleLiquidation zeroes the debt and removes the seized collateral as one
// record update.
func (l *Ledger) SettleLiquidation(id uint64, collateralSeized *big.Int) (*Loan, error) {
	return l.mutate(id, func(loan *Loan) error {
		if loan.Status != StatusActive {
			return fmt.Errorf("%w: liquidate from %s", ErrInvalidTransition, loan.Status)
		}
		if collateralSeized != nil && collateralSeized.Sign() > 0 {
			if loan.Collateral.Cmp(collateralSeized) < 0 {
				return ErrInvalidAmount
			}
			loan.Collateral = new(big.Int).Sub(loan.Collateral, collateralSeized)
		}
		loan.PrincipalOwed = new(big.Int)
		loan.InterestOwed = new(big.Int)
		loan.Liquidated = true
		return nil
	})
}
