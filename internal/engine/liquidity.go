/*

This file contains the deposit and redemption paths. Deposits are specified
in shares: the engine computes the currency amounts the depositor must fund
(rounding up), routes them into the bound vaults, and mints only after both
vault deposits succeeded. Redemptions burn first and pay out second, with the
burn receipt pinning that order. Error branches unwind whatever the operation
already applied, so a failed vault call never leaves a half-done deposit or
redemption behind.

*/

package engine

import (
	"errors"
	"fmt"
	"math/big"

	sdkmath "cosmossdk.io/math"

	"github.com/yanisepfl/alphix-public-sub008/internal/liquidity"
)

// PriceBounds caps the pool price a deposit or redemption will execute at.
// A nil bound is unchecked.
type PriceBounds struct {
	MinSqrtPriceX96 *big.Int
	MaxSqrtPriceX96 *big.Int
}

func (p PriceBounds) check(price *big.Int) error {
	if p.MinSqrtPriceX96 != nil && price.Cmp(p.MinSqrtPriceX96) < 0 {
		return fmt.Errorf("%w: price %v below minimum %v", ErrSlippageBounds, price, p.MinSqrtPriceX96)
	}
	if p.MaxSqrtPriceX96 != nil && price.Cmp(p.MaxSqrtPriceX96) > 0 {
		return fmt.Errorf("%w: price %v above maximum %v", ErrSlippageBounds, price, p.MaxSqrtPriceX96)
	}
	return nil
}

// PreviewAddLiquidity computes the currency amounts a share mint would cost
// right now, without mutating anything.
func (e *Engine) PreviewAddLiquidity(shares sdkmath.Int) (sdkmath.Int, sdkmath.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireReady(); err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}
	return e.amountsForMint(shares)
}

// PreviewRemoveLiquidity computes the currency amounts a redemption would pay
// out right now, without mutating anything. Like RemoveLiquidity it only
// requires configuration, not an active engine.
func (e *Engine) PreviewRemoveLiquidity(shares sdkmath.Int) (sdkmath.Int, sdkmath.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.configured {
		return sdkmath.Int{}, sdkmath.Int{}, ErrNotConfigured
	}
	if shares.IsNil() || !shares.IsPositive() {
		return sdkmath.Int{}, sdkmath.Int{}, ErrZeroShares
	}
	amount0, err := e.convertToAssets(0, shares, liquidity.RoundDown)
	if err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}
	amount1, err := e.convertToAssets(1, shares, liquidity.RoundDown)
	if err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}
	return amount0, amount1, nil
}

// AddLiquidity mints shares to the depositor against currency amounts pulled
// into the bound vaults. Amounts round up, so the depositor funds at least
// the pro-rata value of the minted shares. Shares are minted last: a failed
// vault deposit leaves the supply untouched.
func (e *Engine) AddLiquidity(depositor string, shares sdkmath.Int, bounds PriceBounds) (sdkmath.Int, sdkmath.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireReady(); err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}
	if depositor == "" {
		return sdkmath.Int{}, sdkmath.Int{}, ErrEmptyHolder
	}
	if shares.IsNil() || !shares.IsPositive() {
		return sdkmath.Int{}, sdkmath.Int{}, ErrZeroShares
	}

	// Tax is carved out of the pre-deposit backing before the new capital
	// dilutes the share price.
	if err := e.accrueBoth(); err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}

	price, err := e.pool.CurrentPrice()
	if err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, errors.Join(ErrPoolUnavailable, err)
	}
	if err := bounds.check(price); err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}

	amount0, amount1, err := e.amountsForMint(shares)
	if err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}
	if amount0.IsZero() && amount1.IsZero() {
		return sdkmath.Int{}, sdkmath.Int{}, fmt.Errorf("%w: %s shares price to nothing", ErrZeroAmounts, shares)
	}

	if err := e.fundVault(0, depositor, amount0); err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}
	if err := e.fundVault(1, depositor, amount1); err != nil {
		// The first side is already in its vault. Pull it back out so the
		// failed deposit leaves no value behind.
		if rerr := e.refund(0, depositor, amount0); rerr != nil {
			return sdkmath.Int{}, sdkmath.Int{}, errors.Join(err, rerr)
		}
		return sdkmath.Int{}, sdkmath.Int{}, err
	}

	if err := e.ledger.Mint(depositor, shares); err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}
	supply := e.ledger.TotalSupply()
	e.recorder.RecordSupply("mint", depositor, shares, supply)
	e.logger.Info().
		Str("depositor", depositor).
		Str("shares", shares.String()).
		Str("amount0", amount0.String()).
		Str("amount1", amount1.String()).
		Str("totalSupply", supply.String()).
		Msg("Liquidity added")
	return amount0, amount1, nil
}

// RemoveLiquidity burns the holder's shares and pays the pro-rata backing
// (rounding down) to the recipient straight from the vaults. Redemption
// stays open while the engine is deactivated; only configuration is
// required.
func (e *Engine) RemoveLiquidity(holder, recipient string, shares sdkmath.Int) (sdkmath.Int, sdkmath.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.configured {
		return sdkmath.Int{}, sdkmath.Int{}, ErrNotConfigured
	}
	if recipient == "" {
		return sdkmath.Int{}, sdkmath.Int{}, ErrRecipientEmpty
	}
	if shares.IsNil() || !shares.IsPositive() {
		return sdkmath.Int{}, sdkmath.Int{}, ErrZeroShares
	}

	if err := e.accrueBoth(); err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}

	amount0, err := e.convertToAssets(0, shares, liquidity.RoundDown)
	if err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}
	amount1, err := e.convertToAssets(1, shares, liquidity.RoundDown)
	if err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}
	if amount0.IsZero() && amount1.IsZero() {
		return sdkmath.Int{}, sdkmath.Int{}, fmt.Errorf("%w: %s shares redeem to nothing", ErrZeroAmounts, shares)
	}

	receipt, err := e.ledger.Burn(holder, shares)
	if err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}

	if err := e.payOut(0, recipient, amount0, receipt); err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, e.reverseBurn(receipt, err)
	}
	if err := e.payOut(1, recipient, amount1, receipt); err != nil {
		// Claw the first side back from the recipient before restoring the
		// shares, so a half-paid redemption leaves nothing applied.
		if rerr := e.fundVault(0, recipient, amount0); rerr != nil {
			err = errors.Join(err, rerr)
		}
		return sdkmath.Int{}, sdkmath.Int{}, e.reverseBurn(receipt, err)
	}

	supply := e.ledger.TotalSupply()
	e.recorder.RecordSupply("burn", holder, shares, supply)
	e.logger.Info().
		Str("holder", holder).
		Str("recipient", recipient).
		Str("shares", shares.String()).
		Str("amount0", amount0.String()).
		Str("amount1", amount1.String()).
		Str("totalSupply", supply.String()).
		Msg("Liquidity removed")
	return amount0, amount1, nil
}

// --- internal, callers hold e.mu ---

// amountsForMint prices a share mint in currency amounts, rounding up. With
// an empty supply the mint is priced as concentrated liquidity over the
// configured range at the pool's current price.
func (e *Engine) amountsForMint(shares sdkmath.Int) (sdkmath.Int, sdkmath.Int, error) {
	if shares.IsNil() || !shares.IsPositive() {
		return sdkmath.Int{}, sdkmath.Int{}, ErrZeroShares
	}

	if e.ledger.TotalSupply().IsZero() {
		price, err := e.pool.CurrentPrice()
		if err != nil {
			return sdkmath.Int{}, sdkmath.Int{}, errors.Join(ErrPoolUnavailable, err)
		}
		sqrtA, sqrtB, err := e.rangeBounds()
		if err != nil {
			return sdkmath.Int{}, sdkmath.Int{}, err
		}
		return liquidity.AmountsFor(price, sqrtA, sqrtB, shares, liquidity.RoundUp)
	}

	amount0, err := e.convertToAssets(0, shares, liquidity.RoundUp)
	if err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}
	amount1, err := e.convertToAssets(1, shares, liquidity.RoundUp)
	if err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}
	return amount0, amount1, nil
}

// fundVault pulls amount of currency idx from the depositor into the bound
// vault. Zero amounts are skipped; a nonzero amount with no binding is an
// error.
func (e *Engine) fundVault(idx int, depositor string, amount sdkmath.Int) error {
	if amount.IsZero() {
		return nil
	}
	b := e.bindings[idx]
	if b.adapter == nil {
		return fmt.Errorf("%w: %s", ErrNoBinding, e.currencyAt(idx).Denom)
	}
	vaultShares, err := b.adapter.DepositFrom(depositor, amount)
	if err != nil {
		return err
	}
	b.sharesOwned = b.sharesOwned.Add(vaultShares)
	return nil
}

// refund reverses a partial funding: the amount already pulled into the
// vault at idx goes back to the depositor.
func (e *Engine) refund(idx int, depositor string, amount sdkmath.Int) error {
	if amount.IsZero() {
		return nil
	}
	b := e.bindings[idx]
	sharesRedeemed, err := b.adapter.WithdrawTo(amount, depositor)
	if err != nil {
		e.logger.Error().
			Err(err).
			Str("denom", e.currencyAt(idx).Denom).
			Str("amount", amount.String()).
			Str("depositor", depositor).
			Msg("Refund of partially funded deposit failed; amount remains in the vault")
		return err
	}
	b.sharesOwned = b.sharesOwned.Sub(sharesRedeemed)
	return nil
}

// reverseBurn restores the shares from a burn whose payout failed, so the
// whole redemption unwinds. Returns cause, joined with the re-mint error in
// the (precondition-excluded) case the restore itself fails.
func (e *Engine) reverseBurn(receipt burnReceipt, cause error) error {
	if err := e.ledger.Mint(receipt.holder, receipt.shares); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

// payOut withdraws amount of currency idx from the bound vault straight to
// the recipient. Requires a burn receipt: callers cannot reach the external
// vault call without having destroyed the shares first.
func (e *Engine) payOut(idx int, recipient string, amount sdkmath.Int, receipt burnReceipt) error {
	if amount.IsZero() {
		return nil
	}
	b := e.bindings[idx]
	if b.adapter == nil {
		return fmt.Errorf("%w: %s backing %s shares burned by %s",
			ErrNoBinding, e.currencyAt(idx).Denom, receipt.shares, receipt.holder)
	}
	sharesRedeemed, err := b.adapter.WithdrawTo(amount, recipient)
	if err != nil {
		return err
	}
	b.sharesOwned = b.sharesOwned.Sub(sharesRedeemed)
	return nil
}
