package loans

import "math/big"

// secondsPerYear is the simple-interest year length.
const secondsPerYear = 31_536_000

var basisPoints = big.NewInt(10_000)

// InterestOwed computes the simple interest for the full duration up front:
// floor(principal * rateBps * durationSecs / 10000 / secondsPerYear).
// Floor division throughout so rounding never favors the borrower.
func InterestOwed(principal *big.Int, rateBps uint64, durationSecs int64) *big.Int {
	if principal == nil || principal.Sign() <= 0 || durationSecs <= 0 {
		return new(big.Int)
	}
	owed := new(big.Int).Mul(principal, new(big.Int).SetUint64(rateBps))
	owed.Mul(owed, big.NewInt(durationSecs))
	owed.Quo(owed, basisPoints)
	owed.Quo(owed, big.NewInt(secondsPerYear))
	return owed
}

// CollateralNeededLending returns the required collateral value in lending
// token units: floor(totalOwed * ratioBps / 10000).
func CollateralNeededLending(totalOwed *big.Int, ratioBps uint64) *big.Int {
	if totalOwed == nil || totalOwed.Sign() <= 0 {
		return new(big.Int)
	}
	needed := new(big.Int).Mul(totalOwed, new(big.Int).SetUint64(ratioBps))
	needed.Quo(needed, basisPoints)
	return needed
}

// LendingToCollateral converts a lending token amount into collateral token
// units at the given rate (lending units per collateral unit), flooring.
func LendingToCollateral(amount *big.Int, rate *big.Rat) *big.Int {
	if amount == nil || amount.Sign() <= 0 || rate == nil || rate.Sign() <= 0 {
		return new(big.Int)
	}
	out := new(big.Int).Mul(amount, rate.Denom())
	out.Quo(out, rate.Num())
	return out
}

// CollateralToLending converts a collateral token amount into lending token
// units at the given rate, flooring.
func CollateralToLending(amount *big.Int, rate *big.Rat) *big.Int {
	if amount == nil || amount.Sign() <= 0 || rate == nil || rate.Sign() <= 0 {
		return new(big.Int)
	}
	out := new(big.Int).Mul(amount, rate.Num())
	out.Quo(out, rate.Denom())
	return out
}

// IsUndercollateralized reports whether the deposited collateral, valued at
// the given rate, no longer covers the required collateral for the
// outstanding debt.
func IsUndercollateralized(collateral *big.Int, rate *big.Rat, totalOwed *big.Int, ratioBps uint64) bool {
	value := CollateralToLending(collateral, rate)
	return value.Cmp(CollateralNeededLending(totalOwed, ratioBps)) < 0
}

// IsExpired reports whether the loan's duration has fully elapsed. Loans
// that never activated cannot expire.
func IsExpired(loan *Loan, now int64) bool {
	if loan == nil || loan.LoanStartTime == 0 {
		return false
	}
	return now >= loan.LoanStartTime+loan.Terms.Duration
}

// LiquidationReward computes the liquidator's payout in lending token units.
// A zero-collateral loan pays exactly the debt being repaid; otherwise the
// debt plus the configured premium.
func LiquidationReward(totalOwed, collateral *big.Int, rewardBps uint64) *big.Int {
	if totalOwed == nil || totalOwed.Sign() <= 0 {
		return new(big.Int)
	}
	if collateral == nil || collateral.Sign() == 0 {
		return new(big.Int).Set(totalOwed)
	}
	premium := new(big.Int).Mul(totalOwed, new(big.Int).SetUint64(rewardBps))
	premium.Quo(premium, basisPoints)
	return premium.Add(premium, totalOwed)
}
