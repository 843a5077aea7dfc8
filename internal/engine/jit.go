/*

This file contains the just-in-time liquidity path. Before a trade the
engine sizes the largest position its vault backing can fund over the
configured range, pulls exactly the amounts that position needs out of the
vaults, and adds it to the pool. After the trade the whole position is
removed and everything received goes straight back into the vaults.

*/

package engine

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/yanisepfl/alphix-public-sub008/internal/liquidity"
	"github.com/yanisepfl/alphix-public-sub008/internal/types"
)

// BeforeTrade accrues, sizes the JIT position from the user-available vault
// backing at the pool's current price, funds it from the vaults and adds it
// to the pool. A backing too small to fund any liquidity yields a skip plan,
// not an error.
func (e *Engine) BeforeTrade() (types.JitPlan, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireReady(); err != nil {
		return types.JitPlan{}, err
	}
	if err := e.accrueBoth(); err != nil {
		return types.JitPlan{}, err
	}

	// JIT needs both sides fundable. With either currency unbound the trade
	// simply proceeds without engine liquidity.
	if e.bindings[0].adapter == nil || e.bindings[1].adapter == nil {
		plan := types.SkipPlan()
		e.recorder.RecordJit("before", plan, types.ZeroBalanceDelta())
		return plan, nil
	}

	price, err := e.pool.CurrentPrice()
	if err != nil {
		return types.JitPlan{}, errors.Join(ErrPoolUnavailable, err)
	}
	sqrtA, sqrtB, err := e.rangeBounds()
	if err != nil {
		return types.JitPlan{}, err
	}

	avail0, err := e.userAvailable(0)
	if err != nil {
		return types.JitPlan{}, err
	}
	avail1, err := e.userAvailable(1)
	if err != nil {
		return types.JitPlan{}, err
	}

	l, err := liquidity.ForAmounts(price, sqrtA, sqrtB, avail0, avail1)
	if err != nil {
		return types.JitPlan{}, err
	}
	// One unit of headroom absorbs the round-up on the funding amounts, so
	// the vault withdrawal can never exceed the backing.
	l = l.SubRaw(1)
	if !l.IsPositive() {
		plan := types.SkipPlan()
		e.recorder.RecordJit("before", plan, types.ZeroBalanceDelta())
		return plan, nil
	}

	need0, need1, err := liquidity.AmountsFor(price, sqrtA, sqrtB, l, liquidity.RoundUp)
	if err != nil {
		return types.JitPlan{}, err
	}
	if err := e.withdrawForPosition(0, need0); err != nil {
		return types.JitPlan{}, err
	}
	if err := e.withdrawForPosition(1, need1); err != nil {
		return types.JitPlan{}, err
	}

	delta, err := e.pool.ModifyLiquidity(e.account, e.cfg.TickLower, e.cfg.TickUpper, l)
	if err != nil {
		return types.JitPlan{}, errors.Join(ErrPoolUnavailable, err)
	}

	// Anything withdrawn but not consumed by the pool goes straight back to
	// earning yield.
	if err := e.redepositSurplus(0, need0.Add(delta.Amount0)); err != nil {
		return types.JitPlan{}, err
	}
	if err := e.redepositSurplus(1, need1.Add(delta.Amount1)); err != nil {
		return types.JitPlan{}, err
	}

	plan := types.JitPlan{
		TickLower:      e.cfg.TickLower,
		TickUpper:      e.cfg.TickUpper,
		LiquidityDelta: l,
		ShouldExecute:  true,
	}
	e.recorder.RecordJit("before", plan, delta)
	e.logger.Info().
		Str("liquidity", l.String()).
		Str("amount0", delta.Amount0.String()).
		Str("amount1", delta.Amount1.String()).
		Msg("JIT position added")
	return plan, nil
}

// AfterTrade removes the engine's entire position over the configured range
// and routes everything received (principal plus captured fees) back into
// the vaults. Works while deactivated: an open position must always be
// unwindable.
func (e *Engine) AfterTrade() (types.JitPlan, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.configured {
		return types.JitPlan{}, ErrNotConfigured
	}

	// Fresh read rather than trusting the plan: the trade itself changed
	// what the position holds.
	held, err := e.pool.PositionLiquidity(e.account, e.cfg.TickLower, e.cfg.TickUpper)
	if err != nil {
		return types.JitPlan{}, errors.Join(ErrPoolUnavailable, err)
	}
	if !held.IsPositive() {
		plan := types.SkipPlan()
		e.recorder.RecordJit("after", plan, types.ZeroBalanceDelta())
		return plan, nil
	}

	delta, err := e.pool.ModifyLiquidity(e.account, e.cfg.TickLower, e.cfg.TickUpper, held.Neg())
	if err != nil {
		return types.JitPlan{}, errors.Join(ErrPoolUnavailable, err)
	}

	if err := e.redepositSurplus(0, delta.Amount0); err != nil {
		return types.JitPlan{}, err
	}
	if err := e.redepositSurplus(1, delta.Amount1); err != nil {
		return types.JitPlan{}, err
	}

	plan := types.JitPlan{
		TickLower:      e.cfg.TickLower,
		TickUpper:      e.cfg.TickUpper,
		LiquidityDelta: held.Neg(),
		ShouldExecute:  true,
	}
	e.recorder.RecordJit("after", plan, delta)
	e.logger.Info().
		Str("liquidity", held.String()).
		Str("amount0", delta.Amount0.String()).
		Str("amount1", delta.Amount1.String()).
		Msg("JIT position removed")
	return plan, nil
}

// DepositToYieldSource moves idle engine-account funds of one currency into
// its bound vault.
func (e *Engine) DepositToYieldSource(denom string, amount sdkmath.Int) (sdkmath.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireReady(); err != nil {
		return sdkmath.Int{}, err
	}
	idx, err := e.currencyIndex(denom)
	if err != nil {
		return sdkmath.Int{}, err
	}
	b := e.bindings[idx]
	if b.adapter == nil {
		return sdkmath.Int{}, fmt.Errorf("%w: %s", ErrNoBinding, denom)
	}
	if amount.IsNil() || !amount.IsPositive() {
		return sdkmath.Int{}, liquidity.ErrAmountNegative
	}
	vaultShares, err := b.adapter.DepositFrom(e.account, amount)
	if err != nil {
		return sdkmath.Int{}, err
	}
	b.sharesOwned = b.sharesOwned.Add(vaultShares)
	return vaultShares, nil
}

// WithdrawAndApprove pulls an exact amount of one currency out of its vault
// to the engine account, where the pool controller can settle against it.
func (e *Engine) WithdrawAndApprove(denom string, amount sdkmath.Int) (sdkmath.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireReady(); err != nil {
		return sdkmath.Int{}, err
	}
	idx, err := e.currencyIndex(denom)
	if err != nil {
		return sdkmath.Int{}, err
	}
	if amount.IsNil() || !amount.IsPositive() {
		return sdkmath.Int{}, liquidity.ErrAmountNegative
	}
	b := e.bindings[idx]
	if b.adapter == nil {
		return sdkmath.Int{}, fmt.Errorf("%w: %s", ErrNoBinding, denom)
	}
	sharesRedeemed, err := b.adapter.WithdrawTo(amount, e.account)
	if err != nil {
		return sdkmath.Int{}, err
	}
	b.sharesOwned = b.sharesOwned.Sub(sharesRedeemed)
	return sharesRedeemed, nil
}

// --- internal, callers hold e.mu ---

// withdrawForPosition pulls amount of currency idx from its vault to the
// engine account ahead of a position add.
func (e *Engine) withdrawForPosition(idx int, amount sdkmath.Int) error {
	if amount.IsZero() {
		return nil
	}
	b := e.bindings[idx]
	if b.adapter == nil {
		return fmt.Errorf("%w: %s", ErrNoBinding, e.currencyAt(idx).Denom)
	}
	sharesRedeemed, err := b.adapter.WithdrawTo(amount, e.account)
	if err != nil {
		return err
	}
	b.sharesOwned = b.sharesOwned.Sub(sharesRedeemed)
	return nil
}

// redepositSurplus pushes leftover engine-account funds of currency idx back
// into its vault. Zero or negative leftovers are a no-op.
func (e *Engine) redepositSurplus(idx int, amount sdkmath.Int) error {
	if amount.IsNil() || !amount.IsPositive() {
		return nil
	}
	b := e.bindings[idx]
	if b.adapter == nil {
		return fmt.Errorf("%w: %s", ErrNoBinding, e.currencyAt(idx).Denom)
	}
	vaultShares, err := b.adapter.DepositFrom(e.account, amount)
	if err != nil {
		return err
	}
	b.sharesOwned = b.sharesOwned.Add(vaultShares)
	return nil
}
