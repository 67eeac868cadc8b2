package loans

import (
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"crednet/core/events"
	"crednet/crypto"
	nativecommon "crednet/native/common"
	"crednet/native/consensus"
	"crednet/native/oracle"
	"crednet/native/params"
)

const moduleName = "loans"

// Token is the ledger-level token surface the engine moves funds through.
// The engine is a privileged actor: TransferFrom debits any account it names,
// authorization having happened at the call boundary.
type Token interface {
	TransferFrom(from, to crypto.Address, amount *big.Int) error
	BalanceOf(addr crypto.Address) (*big.Int, error)
}

type consensusEngine interface {
	ProcessRequest(caller crypto.Address, request *consensus.LoanTermsRequest, responses []*consensus.LoanTermsResponse) (consensus.ConsensusResult, error)
	LastRequestTime(borrower crypto.Address) (int64, error)
}

type settingsSource interface {
	Settings() (params.Settings, error)
}

// Engine orchestrates the loan lifecycle: terms via consensus, collateral
// moves through the collateral escrow, principal through the lending escrow.
// Validation strictly precedes state writes and token moves; a failed call
// leaves nothing behind.
type Engine struct {
	ledger          *Ledger
	consensus       consensusEngine
	settings        settingsSource
	oracle          oracle.PriceOracle
	lendingToken    Token
	collateralToken Token

	// address identifies the engine when calling the consensus module.
	address crypto.Address
	// moduleAddress escrows lending token liquidity.
	moduleAddress crypto.Address
	// collateralAddress escrows deposited collateral.
	collateralAddress crypto.Address

	lendingSymbol    string
	collateralSymbol string

	emitter events.Emitter
	pauses  nativecommon.PauseView
	log     *slog.Logger
	nowFn   func() int64
}

func NewEngine(ledger *Ledger, cons consensusEngine, settings settingsSource) *Engine {
	return &Engine{
		ledger:    ledger,
		consensus: cons,
		settings:  settings,
		emitter:   events.NoopEmitter{},
		nowFn:     func() int64 { return time.Now().Unix() },
	}
}

// SetAddresses wires the engine's own address and the two escrow accounts.
func (e *Engine) SetAddresses(self, module, collateral crypto.Address) {
	e.address = self
	e.moduleAddress = module
	e.collateralAddress = collateral
}

// SetTokens wires the lending and collateral token handles with the symbols
// used for oracle lookups.
func (e *Engine) SetTokens(lending Token, lendingSymbol string, collateral Token, collateralSymbol string) {
	e.lendingToken = lending
	e.lendingSymbol = lendingSymbol
	e.collateralToken = collateral
	e.collateralSymbol = collateralSymbol
}

func (e *Engine) SetOracle(o oracle.PriceOracle) { e.oracle = o }

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

func (e *Engine) SetLogger(log *slog.Logger) {
	if e == nil {
		return
	}
	e.log = log
}

// SetClock overrides the time source. Tests freeze it.
func (e *Engine) SetClock(now func() int64) {
	if e == nil || now == nil {
		return
	}
	e.nowFn = now
}

// GetLoan returns a copy of the loan record.
func (e *Engine) GetLoan(id uint64) (*Loan, error) {
	if e == nil || e.ledger == nil {
		return nil, ErrNilState
	}
	return e.ledger.Get(id)
}

func (e *Engine) ready() error {
	if e == nil || e.ledger == nil || e.consensus == nil || e.settings == nil {
		return ErrNilState
	}
	return nil
}

// RequestLoanTerms runs a consensus round over the signed responses and, on
// acceptance, creates the loan in TERMS_SET. Borrowers are rate limited on
// the timestamp of their last accepted round.
func (e *Engine) RequestLoanTerms(caller crypto.Address, request *consensus.LoanTermsRequest, responses []*consensus.LoanTermsResponse) (*Loan, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if request == nil {
		return nil, ErrInvalidAmount
	}
	if !caller.Equal(request.Borrower) {
		return nil, ErrUnauthorized
	}
	settings, err := e.settings.Settings()
	if err != nil {
		return nil, err
	}
	now := e.nowFn()
	last, err := e.consensus.LastRequestTime(request.Borrower)
	if err != nil {
		return nil, err
	}
	if last > 0 && now-last < settings.RequestRateLimitSeconds {
		return nil, ErrRequestRateLimited
	}

	result, err := e.consensus.ProcessRequest(e.address, request, responses)
	if err != nil {
		return nil, err
	}

	loan, err := e.ledger.Create(LoanTerms{
		Borrower:        request.Borrower,
		Recipient:       request.Recipient,
		InterestRate:    result.InterestRate,
		CollateralRatio: result.CollateralRatio,
		MaxLoanAmount:   result.MaxLoanAmount,
		Duration:        request.Duration,
	}, now+settings.TermsExpirySeconds)
	if err != nil {
		return nil, err
	}

	e.emitter.Emit(events.LoanTermsSet{
		LoanID:      loan.ID,
		Borrower:    loan.Terms.Borrower,
		TermsExpiry: loan.TermsExpiry,
	})
	if e.log != nil {
		e.log.Info("loan terms set",
			"loanId", loan.ID,
			"borrower", loan.Terms.Borrower.String(),
			"interestRate", loan.Terms.InterestRate,
			"collateralRatio", loan.Terms.CollateralRatio,
		)
	}
	return loan, nil
}

// DepositCollateral pulls collateral from the depositor into escrow. Anyone
// may top up a loan while it is in TERMS_SET or ACTIVE.
func (e *Engine) DepositCollateral(caller crypto.Address, loanID uint64, amount *big.Int) (*Loan, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	loan, err := e.ledger.Get(loanID)
	if err != nil {
		return nil, err
	}
	if loan.Liquidated {
		return nil, ErrLoanLiquidated
	}
	if loan.Status != StatusTermsSet && loan.Status != StatusActive {
		return nil, fmt.Errorf("%w: deposit while %s", ErrInvalidTransition, loan.Status)
	}
	if err := e.collateralToken.TransferFrom(caller, e.collateralAddress, amount); err != nil {
		return nil, err
	}
	updated, err := e.ledger.AddCollateral(loanID, amount, e.nowFn())
	if err != nil {
		return nil, err
	}
	e.emitter.Emit(events.CollateralDeposited{LoanID: loanID, Depositor: caller, Amount: amount})
	return updated, nil
}

// WithdrawCollateral releases escrowed collateral to the borrower. While the
// loan is active the remainder must still cover the collateral requirement;
// after close everything is withdrawable.
func (e *Engine) WithdrawCollateral(caller crypto.Address, loanID uint64, amount *big.Int) (*Loan, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	loan, err := e.ledger.Get(loanID)
	if err != nil {
		return nil, err
	}
	if loan.Liquidated {
		return nil, ErrLoanLiquidated
	}
	if !caller.Equal(loan.Terms.Borrower) {
		return nil, ErrUnauthorized
	}
	switch loan.Status {
	case StatusActive:
		if loan.Collateral.Cmp(amount) < 0 {
			return nil, ErrMoreCollateralRequired
		}
		quote, err := e.oracle.GetRate(e.lendingSymbol, e.collateralSymbol)
		if err != nil {
			return nil, err
		}
		remaining := new(big.Int).Sub(loan.Collateral, amount)
		needed := LendingToCollateral(CollateralNeededLending(loan.TotalOwed(), loan.Terms.CollateralRatio), quote.Rate)
		if remaining.Cmp(needed) < 0 {
			return nil, ErrMoreCollateralRequired
		}
	case StatusClosed:
		if loan.Collateral.Cmp(amount) < 0 {
			return nil, ErrMoreCollateralRequired
		}
	default:
		return nil, ErrLoanNotActive
	}
	if err := e.collateralToken.TransferFrom(e.collateralAddress, caller, amount); err != nil {
		return nil, err
	}
	updated, err := e.ledger.SubCollateral(loanID, amount)
	if err != nil {
		return nil, err
	}
	e.emitter.Emit(events.CollateralWithdrawn{LoanID: loanID, Receiver: caller, Amount: amount})
	return updated, nil
}

// TakeOutLoan draws down principal against the set terms, activating the
// loan. Interest for the full duration is fixed up front.
func (e *Engine) TakeOutLoan(caller crypto.Address, loanID uint64, amount *big.Int) (*Loan, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	loan, err := e.ledger.Get(loanID)
	if err != nil {
		return nil, err
	}
	if loan.Liquidated {
		return nil, ErrLoanLiquidated
	}
	if !caller.Equal(loan.Terms.Borrower) {
		return nil, ErrUnauthorized
	}
	if loan.Status != StatusTermsSet {
		return nil, fmt.Errorf("%w: draw down while %s", ErrInvalidTransition, loan.Status)
	}
	settings, err := e.settings.Settings()
	if err != nil {
		return nil, err
	}
	now := e.nowFn()
	if now >= loan.TermsExpiry {
		return nil, ErrLoanTermsExpired
	}
	if loan.Terms.MaxLoanAmount != nil && amount.Cmp(loan.Terms.MaxLoanAmount) > 0 {
		return nil, ErrMaxLoanExceeded
	}
	if now-loan.LastCollateralIn < settings.SafetyIntervalSeconds {
		return nil, ErrCollateralDepositedRecently
	}

	interest := InterestOwed(amount, loan.Terms.InterestRate, loan.Terms.Duration)
	totalOwed := new(big.Int).Add(amount, interest)
	quote, err := e.oracle.GetRate(e.lendingSymbol, e.collateralSymbol)
	if err != nil {
		return nil, err
	}
	needed := LendingToCollateral(CollateralNeededLending(totalOwed, loan.Terms.CollateralRatio), quote.Rate)
	if loan.Collateral.Cmp(needed) < 0 {
		return nil, ErrMoreCollateralRequired
	}

	recipient := loan.Terms.Recipient
	if recipient.IsZero() {
		recipient = loan.Terms.Borrower
	}
	if err := e.lendingToken.TransferFrom(e.moduleAddress, recipient, amount); err != nil {
		return nil, err
	}
	updated, err := e.ledger.StartLoan(loanID, amount, interest, now)
	if err != nil {
		return nil, err
	}
	e.emitter.Emit(events.LoanTakenOut{
		LoanID:       loanID,
		Borrower:     loan.Terms.Borrower,
		Amount:       amount,
		InterestOwed: interest,
	})
	if e.log != nil {
		e.log.Info("loan taken out",
			"loanId", loanID,
			"borrower", loan.Terms.Borrower.String(),
			"amount", amount.String(),
			"interestOwed", interest.String(),
		)
	}
	return updated, nil
}

// Repay applies a payment to the loan, interest first, then principal.
// Payments above the outstanding debt only pull what is owed. When the debt
// reaches zero the loan closes.
func (e *Engine) Repay(caller crypto.Address, loanID uint64, amount *big.Int) (*Loan, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	loan, err := e.ledger.Get(loanID)
	if err != nil {
		return nil, err
	}
	if loan.Liquidated {
		return nil, ErrLoanLiquidated
	}
	if loan.Status != StatusActive {
		return nil, ErrLoanNotActive
	}

	applied := new(big.Int).Set(amount)
	if total := loan.TotalOwed(); applied.Cmp(total) > 0 {
		applied.Set(total)
	}
	interestPart := new(big.Int).Set(loan.InterestOwed)
	if interestPart.Cmp(applied) > 0 {
		interestPart.Set(applied)
	}
	principalPart := new(big.Int).Sub(applied, interestPart)

	if err := e.lendingToken.TransferFrom(caller, e.moduleAddress, applied); err != nil {
		return nil, err
	}
	updated, closed, err := e.ledger.ReduceDebt(loanID, interestPart, principalPart)
	if err != nil {
		return nil, err
	}
	e.emitter.Emit(events.LoanRepaid{
		LoanID:             loanID,
		Payer:              caller,
		Applied:            applied,
		PrincipalRemaining: updated.PrincipalOwed,
		InterestRemaining:  updated.InterestOwed,
		Closed:             closed,
	})
	return updated, nil
}

// Liquidate lets anyone settle an expired or undercollateralized loan: the
// liquidator repays the full debt and receives the debt plus the premium,
// paid from the loan's collateral first and any shortfall in lending token.
func (e *Engine) Liquidate(caller crypto.Address, loanID uint64) (*Loan, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	loan, err := e.ledger.Get(loanID)
	if err != nil {
		return nil, err
	}
	if loan.Liquidated {
		return nil, ErrLoanLiquidated
	}
	if loan.Status != StatusActive {
		return nil, ErrLoanNotActive
	}
	settings, err := e.settings.Settings()
	if err != nil {
		return nil, err
	}
	quote, err := e.oracle.GetRate(e.lendingSymbol, e.collateralSymbol)
	if err != nil {
		return nil, err
	}
	now := e.nowFn()
	totalOwed := loan.TotalOwed()
	if !IsExpired(loan, now) && !IsUndercollateralized(loan.Collateral, quote.Rate, totalOwed, loan.Terms.CollateralRatio) {
		return nil, ErrNotLiquidatable
	}

	reward := LiquidationReward(totalOwed, loan.Collateral, settings.LiquidateRewardBps)
	rewardCollateral := LendingToCollateral(reward, quote.Rate)
	if rewardCollateral.Cmp(loan.Collateral) > 0 {
		rewardCollateral = new(big.Int).Set(loan.Collateral)
	}
	rewardLending := new(big.Int).Sub(reward, CollateralToLending(rewardCollateral, quote.Rate))
	if rewardLending.Sign() < 0 {
		rewardLending = new(big.Int)
	}

	if err := e.lendingToken.TransferFrom(caller, e.moduleAddress, totalOwed); err != nil {
		return nil, err
	}
	if rewardCollateral.Sign() > 0 {
		if err := e.collateralToken.TransferFrom(e.collateralAddress, caller, rewardCollateral); err != nil {
			return nil, err
		}
	}
	if rewardLending.Sign() > 0 {
		if err := e.lendingToken.TransferFrom(e.moduleAddress, caller, rewardLending); err != nil {
			return nil, err
		}
	}
	updated, err := e.ledger.SettleLiquidation(loanID, rewardCollateral)
	if err != nil {
		return nil, err
	}
	e.emitter.Emit(events.LoanLiquidated{
		LoanID:           loanID,
		Liquidator:       caller,
		Repaid:           totalOwed,
		RewardCollateral: rewardCollateral,
		RewardLending:    rewardLending,
	})
	if e.log != nil {
		e.log.Info("loan liquidated",
			"loanId", loanID,
			"liquidator", caller.String(),
			"repaid", totalOwed.String(),
			"rewardCollateral", rewardCollateral.String(),
			"rewardLending", rewardLending.String(),
		)
	}
	return updated, nil
}
