/*

This file converts between concentrated-liquidity units and token amounts for
a [tickLower, tickUpper) range at a given sqrt price. Rounding direction is
explicit on every path: the engine rounds against the depositor on deposits
and against the recipient on withdrawals.

*/

package liquidity

import (
	"errors"
	"fmt"
	"math/big"

	sdkmath "cosmossdk.io/math"
)

var (
	ErrRangeDegenerate = errors.New("sqrt price range is degenerate")
	ErrAmountNegative  = errors.New("amount cannot be negative")
)

// Rounding selects which party rounding favors in a conversion.
type Rounding int

const (
	RoundDown Rounding = iota
	RoundUp
)

// ForAmounts computes the maximum liquidity that amount0 and amount1 can
// provide over [sqrtA, sqrtB) at the current sqrt price. Always floors, so
// the position can never claim more than was provided.
func ForAmounts(sqrtPriceX96, sqrtA, sqrtB *big.Int, amount0, amount1 sdkmath.Int) (sdkmath.Int, error) {
	if amount0.IsNil() || amount1.IsNil() || amount0.IsNegative() || amount1.IsNegative() {
		return sdkmath.Int{}, ErrAmountNegative
	}
	a, b, err := orderedRange(sqrtA, sqrtB)
	if err != nil {
		return sdkmath.Int{}, err
	}

	a0 := amount0.BigInt()
	a1 := amount1.BigInt()

	var l *big.Int
	switch {
	case sqrtPriceX96.Cmp(a) <= 0:
		l = liquidityForAmount0(a, b, a0)
	case sqrtPriceX96.Cmp(b) < 0:
		l0 := liquidityForAmount0(sqrtPriceX96, b, a0)
		l1 := liquidityForAmount1(a, sqrtPriceX96, a1)
		l = l0
		if l1.Cmp(l0) < 0 {
			l = l1
		}
	default:
		l = liquidityForAmount1(a, b, a1)
	}
	return sdkmath.NewIntFromBigInt(l), nil
}

// AmountsFor computes the token amounts a liquidity value spans over
// [sqrtA, sqrtB) at the current sqrt price. RoundUp is the deposit side
// (the depositor must supply at least this much); RoundDown is the
// withdrawal side (the recipient receives at most this much).
func AmountsFor(sqrtPriceX96, sqrtA, sqrtB *big.Int, liq sdkmath.Int, rounding Rounding) (sdkmath.Int, sdkmath.Int, error) {
	if liq.IsNil() || liq.IsNegative() {
		return sdkmath.Int{}, sdkmath.Int{}, ErrAmountNegative
	}
	a, b, err := orderedRange(sqrtA, sqrtB)
	if err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}

	l := liq.BigInt()
	amount0 := big.NewInt(0)
	amount1 := big.NewInt(0)

	switch {
	case sqrtPriceX96.Cmp(a) <= 0:
		amount0 = amount0Delta(a, b, l, rounding)
	case sqrtPriceX96.Cmp(b) < 0:
		amount0 = amount0Delta(sqrtPriceX96, b, l, rounding)
		amount1 = amount1Delta(a, sqrtPriceX96, l, rounding)
	default:
		amount1 = amount1Delta(a, b, l, rounding)
	}
	return sdkmath.NewIntFromBigInt(amount0), sdkmath.NewIntFromBigInt(amount1), nil
}

// liquidityForAmount0 = amount0 * (a*b/Q96) / (b-a), floored.
func liquidityForAmount0(a, b, amount0 *big.Int) *big.Int {
	inter := new(big.Int).Mul(a, b)
	inter.Div(inter, Q96)
	num := new(big.Int).Mul(amount0, inter)
	den := new(big.Int).Sub(b, a)
	return num.Div(num, den)
}

// liquidityForAmount1 = amount1 * Q96 / (b-a), floored.
func liquidityForAmount1(a, b, amount1 *big.Int) *big.Int {
	num := new(big.Int).Mul(amount1, Q96)
	den := new(big.Int).Sub(b, a)
	return num.Div(num, den)
}

// amount0Delta = liq * Q96 * (b-a) / b / a, with directed rounding.
func amount0Delta(a, b, l *big.Int, rounding Rounding) *big.Int {
	num := new(big.Int).Lsh(l, 96)
	num.Mul(num, new(big.Int).Sub(b, a))
	if rounding == RoundUp {
		return ceilDiv(ceilDiv(num, b), a)
	}
	num.Div(num, b)
	return num.Div(num, a)
}

// amount1Delta = liq * (b-a) / Q96, with directed rounding.
func amount1Delta(a, b, l *big.Int, rounding Rounding) *big.Int {
	num := new(big.Int).Mul(l, new(big.Int).Sub(b, a))
	if rounding == RoundUp {
		return ceilDiv(num, Q96)
	}
	return num.Div(num, Q96)
}

func ceilDiv(num, den *big.Int) *big.Int {
	q, r := new(big.Int).QuoRem(num, den, new(big.Int))
	if r.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}

func orderedRange(sqrtA, sqrtB *big.Int) (*big.Int, *big.Int, error) {
	if sqrtA == nil || sqrtB == nil || sqrtA.Sign() <= 0 || sqrtB.Sign() <= 0 {
		return nil, nil, fmt.Errorf("%w: nil or non-positive bound", ErrRangeDegenerate)
	}
	a, b := sqrtA, sqrtB
	if a.Cmp(b) > 0 {
		a, b = b, a
	}
	if a.Cmp(b) == 0 {
		return nil, nil, fmt.Errorf("%w: equal bounds %v", ErrRangeDegenerate, a)
	}
	return a, b, nil
}
