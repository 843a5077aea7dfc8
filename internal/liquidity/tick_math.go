/*

This file contains tick <-> sqrt price conversions in Q64.96 fixed point.
The magic factors are sqrt(1.0001^(2^i)) in Q128, applied bitwise over the
absolute tick, which is the usual concentrated-liquidity formulation.

*/

package liquidity

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/yanisepfl/alphix-public-sub008/internal/types"
)

var (
	ErrTickOutOfBounds  = errors.New("tick outside global bounds")
	ErrSqrtPriceInvalid = errors.New("sqrt price outside valid range")
)

// Q96 is the Q64.96 fixed-point unit.
var Q96 = new(big.Int).Lsh(big.NewInt(1), 96)

// MinSqrtRatio and MaxSqrtRatio are the sqrt prices at MinTick and MaxTick.
var (
	MinSqrtRatio    = big.NewInt(4295128739)
	MaxSqrtRatio, _ = new(big.Int).SetString("1461446703485210103287273052203988822378723970342", 10)
)

var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// sqrtFactors[i] = sqrt(1.0001^-(2^i)) in Q128.
var sqrtFactors = mustFactors([]string{
	"fffcb933bd6fad37aa2d162d1a594001",
	"fff97272373d413259a46990580e213a",
	"fff2e50f5f656932ef12357cf3c7fdcc",
	"ffe5caca7e10e4e61c3624eaa0941cd0",
	"ffcb9843d60f6159c9db58835c926644",
	"ff973b41fa98c081472e6896dfb254c0",
	"ff2ea16466c96a3843ec78b326b52861",
	"fe5dee046a99a2a811c461f1969c3053",
	"fcbe86c7900a88aedcffc83b479aa3a4",
	"f987a7253ac413176f2b074cf7815e54",
	"f3392b0822b70005940c7a398e4b70f3",
	"e7159475a2c29b7443b29c7fa6e889d9",
	"d097f3bdfd2022b8845ad8f792aa5825",
	"a9f746462d870fdf8a65dc1f90e061e5",
	"70d869a156d2a1b890bb3df62baf32f7",
	"31be135f97d08fd981231505542fcfa6",
	"9aa508b5b7a84e1c677de54f3e99bc9",
	"5d6af8dedb81196699c329225ee604",
	"2216e584f5fa1ea926041bedfe98",
	"48a170391f7dc42444e8fa2",
})

func mustFactors(hexes []string) []*big.Int {
	out := make([]*big.Int, len(hexes))
	for i, h := range hexes {
		v, ok := new(big.Int).SetString(h, 16)
		if !ok {
			panic("liquidity: bad sqrt factor " + h)
		}
		out[i] = v
	}
	return out
}

// SqrtRatioAtTick returns sqrt(1.0001^tick) * 2^96.
func SqrtRatioAtTick(tick int32) (*big.Int, error) {
	if tick < types.MinTick || tick > types.MaxTick {
		return nil, fmt.Errorf("%w: %d", ErrTickOutOfBounds, tick)
	}

	absTick := int64(tick)
	if absTick < 0 {
		absTick = -absTick
	}

	ratio := new(big.Int).Lsh(big.NewInt(1), 128)
	if absTick&1 != 0 {
		ratio = new(big.Int).Set(sqrtFactors[0])
	}
	for i := 1; i < len(sqrtFactors); i++ {
		if absTick&(1<<uint(i)) != 0 {
			ratio.Mul(ratio, sqrtFactors[i])
			ratio.Rsh(ratio, 128)
		}
	}

	if tick > 0 {
		ratio = new(big.Int).Div(maxUint256, ratio)
	}

	// Q128 -> Q96, rounding up so the result round-trips with TickAtSqrtRatio.
	result := new(big.Int).Rsh(ratio, 32)
	rem := new(big.Int).And(ratio, big.NewInt((1<<32)-1))
	if rem.Sign() != 0 {
		result.Add(result, big.NewInt(1))
	}
	return result, nil
}

// TickAtSqrtRatio returns the largest tick whose sqrt ratio is <= the input,
// by binary search over SqrtRatioAtTick.
func TickAtSqrtRatio(sqrtPriceX96 *big.Int) (int32, error) {
	if sqrtPriceX96 == nil || sqrtPriceX96.Cmp(MinSqrtRatio) < 0 || sqrtPriceX96.Cmp(MaxSqrtRatio) >= 0 {
		return 0, fmt.Errorf("%w: %v", ErrSqrtPriceInvalid, sqrtPriceX96)
	}

	low, high := types.MinTick, types.MaxTick
	for low < high {
		mid := low + (high-low+1)/2
		sqrtMid, err := SqrtRatioAtTick(mid)
		if err != nil {
			return 0, err
		}
		if sqrtMid.Cmp(sqrtPriceX96) <= 0 {
			low = mid
		} else {
			high = mid - 1
		}
	}
	return low, nil
}
