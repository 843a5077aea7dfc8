/*

This file contains the shares <-> assets conversion engine. All conversions
are proportional to the user-available backing over the total share supply,
with direction-dependent rounding: deposits round up and withdrawals round
down, so rounding can never leak value out of the pool.

*/

package engine

import (
	sdkmath "cosmossdk.io/math"

	"github.com/yanisepfl/alphix-public-sub008/internal/liquidity"
)

// mulDiv computes a * b / c with the requested rounding. c must be positive.
func mulDiv(a, b, c sdkmath.Int, rounding liquidity.Rounding) sdkmath.Int {
	num := a.Mul(b)
	if rounding == liquidity.RoundUp {
		return num.Add(c.SubRaw(1)).Quo(c)
	}
	return num.Quo(c)
}

// ConvertToAssets values shares in one currency's user-available backing.
func (e *Engine) ConvertToAssets(denom string, shares sdkmath.Int, rounding liquidity.Rounding) (sdkmath.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	idx, err := e.currencyIndex(denom)
	if err != nil {
		return sdkmath.Int{}, err
	}
	return e.convertToAssets(idx, shares, rounding)
}

// ConvertToShares values an asset amount of one currency in shares. With an
// empty supply the price comes from the pool's observed price and the
// configured range instead of (nonexistent) reserves.
func (e *Engine) ConvertToShares(denom string, assets sdkmath.Int, rounding liquidity.Rounding) (sdkmath.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	idx, err := e.currencyIndex(denom)
	if err != nil {
		return sdkmath.Int{}, err
	}
	return e.convertToShares(idx, assets, rounding)
}

// SharesForAmounts previews the shares minted for a two-sided deposit. On
// the bootstrap path this is the concentrated-liquidity amount the current
// price and configured range produce for the amounts, plus one unit of
// deposit-side rounding margin.
func (e *Engine) SharesForAmounts(amount0, amount1 sdkmath.Int) (sdkmath.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireReady(); err != nil {
		return sdkmath.Int{}, err
	}

	if e.ledger.TotalSupply().IsZero() {
		l, err := e.bootstrapLiquidity(amount0, amount1)
		if err != nil {
			return sdkmath.Int{}, err
		}
		return l.AddRaw(1), nil
	}

	s0, err := e.convertToShares(0, amount0, liquidity.RoundDown)
	if err != nil {
		return sdkmath.Int{}, err
	}
	s1, err := e.convertToShares(1, amount1, liquidity.RoundDown)
	if err != nil {
		return sdkmath.Int{}, err
	}
	if s0.LT(s1) {
		return s0, nil
	}
	return s1, nil
}

// --- internal, callers hold e.mu ---

func (e *Engine) convertToAssets(idx int, shares sdkmath.Int, rounding liquidity.Rounding) (sdkmath.Int, error) {
	if shares.IsNil() || shares.IsNegative() {
		return sdkmath.Int{}, ErrZeroShares
	}
	supply := e.ledger.TotalSupply()
	if supply.IsZero() || shares.IsZero() {
		return sdkmath.ZeroInt(), nil
	}
	avail, err := e.userAvailable(idx)
	if err != nil {
		return sdkmath.Int{}, err
	}
	return mulDiv(shares, avail, supply, rounding), nil
}

func (e *Engine) convertToShares(idx int, assets sdkmath.Int, rounding liquidity.Rounding) (sdkmath.Int, error) {
	if assets.IsNil() || assets.IsNegative() {
		return sdkmath.Int{}, liquidity.ErrAmountNegative
	}
	supply := e.ledger.TotalSupply()
	if supply.IsZero() {
		var amount0, amount1 sdkmath.Int
		if idx == 0 {
			amount0, amount1 = assets, sdkmath.ZeroInt()
		} else {
			amount0, amount1 = sdkmath.ZeroInt(), assets
		}
		l, err := e.bootstrapLiquidity(amount0, amount1)
		if err != nil {
			return sdkmath.Int{}, err
		}
		if l.IsZero() {
			return sdkmath.ZeroInt(), nil
		}
		return l.AddRaw(1), nil
	}
	avail, err := e.userAvailable(idx)
	if err != nil {
		return sdkmath.Int{}, err
	}
	if avail.IsZero() {
		return sdkmath.ZeroInt(), nil
	}
	return mulDiv(assets, supply, avail, rounding), nil
}

// bootstrapLiquidity prices a first deposit off the pool's market price and
// the configured range.
func (e *Engine) bootstrapLiquidity(amount0, amount1 sdkmath.Int) (sdkmath.Int, error) {
	price, err := e.pool.CurrentPrice()
	if err != nil {
		return sdkmath.Int{}, err
	}
	sqrtA, sqrtB, err := e.rangeBounds()
	if err != nil {
		return sdkmath.Int{}, err
	}
	return liquidity.ForAmounts(price, sqrtA, sqrtB, amount0, amount1)
}
