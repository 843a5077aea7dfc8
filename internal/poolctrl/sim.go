/*

This file contains an in-memory pool controller used by the simulation mode
and the test suite. It prices liquidity modifications with the same
concentrated-liquidity math the engine plans with and settles token amounts
against an asset backend immediately.

*/

package poolctrl

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	sdkmath "cosmossdk.io/math"

	"github.com/yanisepfl/alphix-public-sub008/internal/liquidity"
	"github.com/yanisepfl/alphix-public-sub008/internal/types"
	"github.com/yanisepfl/alphix-public-sub008/internal/yieldsource"
)

var (
	ErrInvalidTickRange  = errors.New("tick range is invalid")
	ErrPositionUnderflow = errors.New("position liquidity underflow")
	ErrPriceInvalid      = errors.New("sqrt price is invalid")
)

type positionKey struct {
	owner     string
	tickLower int32
	tickUpper int32
}

// SimPool is an in-memory Controller over two denoms and an asset backend.
type SimPool struct {
	mu sync.Mutex

	denom0      string
	denom1      string
	account     string
	backend     yieldsource.AssetBackend
	tickSpacing int32

	sqrtPriceX96 *big.Int
	positions    map[positionKey]sdkmath.Int
}

func NewSimPool(denom0, denom1 string, tickSpacing int32, sqrtPriceX96 *big.Int, backend yieldsource.AssetBackend) (*SimPool, error) {
	if sqrtPriceX96 == nil || sqrtPriceX96.Cmp(liquidity.MinSqrtRatio) < 0 || sqrtPriceX96.Cmp(liquidity.MaxSqrtRatio) >= 0 {
		return nil, fmt.Errorf("%w: %v", ErrPriceInvalid, sqrtPriceX96)
	}
	if tickSpacing <= 0 {
		return nil, fmt.Errorf("%w: tick spacing %d", ErrInvalidTickRange, tickSpacing)
	}
	if backend == nil {
		return nil, errors.New("asset backend cannot be nil")
	}
	return &SimPool{
		denom0:       denom0,
		denom1:       denom1,
		account:      "pool:" + denom0 + "/" + denom1,
		backend:      backend,
		tickSpacing:  tickSpacing,
		sqrtPriceX96: new(big.Int).Set(sqrtPriceX96),
		positions:    make(map[positionKey]sdkmath.Int),
	}, nil
}

func (p *SimPool) CurrentPrice() (*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return new(big.Int).Set(p.sqrtPriceX96), nil
}

func (p *SimPool) TickSpacing() (int32, error) {
	return p.tickSpacing, nil
}

func (p *SimPool) PositionLiquidity(owner string, tickLower, tickUpper int32) (sdkmath.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if liq, ok := p.positions[positionKey{owner, tickLower, tickUpper}]; ok {
		return liq, nil
	}
	return sdkmath.ZeroInt(), nil
}

func (p *SimPool) ModifyLiquidity(owner string, tickLower, tickUpper int32, delta sdkmath.Int) (types.BalanceDelta, error) {
	if tickLower >= tickUpper {
		return types.ZeroBalanceDelta(), fmt.Errorf("%w: [%d, %d)", ErrInvalidTickRange, tickLower, tickUpper)
	}
	if delta.IsNil() || delta.IsZero() {
		return types.ZeroBalanceDelta(), nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	sqrtA, err := liquidity.SqrtRatioAtTick(tickLower)
	if err != nil {
		return types.ZeroBalanceDelta(), err
	}
	sqrtB, err := liquidity.SqrtRatioAtTick(tickUpper)
	if err != nil {
		return types.ZeroBalanceDelta(), err
	}

	key := positionKey{owner, tickLower, tickUpper}
	held := sdkmath.ZeroInt()
	if liq, ok := p.positions[key]; ok {
		held = liq
	}

	if delta.IsPositive() {
		// Adding: the pool charges rounded-up amounts and pulls them in.
		amount0, amount1, err := liquidity.AmountsFor(p.sqrtPriceX96, sqrtA, sqrtB, delta, liquidity.RoundUp)
		if err != nil {
			return types.ZeroBalanceDelta(), err
		}
		if err := p.backend.Transfer(p.denom0, owner, p.account, amount0); err != nil {
			return types.ZeroBalanceDelta(), err
		}
		if err := p.backend.Transfer(p.denom1, owner, p.account, amount1); err != nil {
			return types.ZeroBalanceDelta(), err
		}
		p.positions[key] = held.Add(delta)
		return types.BalanceDelta{Amount0: amount0.Neg(), Amount1: amount1.Neg()}, nil
	}

	removed := delta.Neg()
	if held.LT(removed) {
		return types.ZeroBalanceDelta(), fmt.Errorf("%w: holds %s, removing %s", ErrPositionUnderflow, held, removed)
	}
	// Removing: the pool pays rounded-down amounts out.
	amount0, amount1, err := liquidity.AmountsFor(p.sqrtPriceX96, sqrtA, sqrtB, removed, liquidity.RoundDown)
	if err != nil {
		return types.ZeroBalanceDelta(), err
	}
	if err := p.backend.Transfer(p.denom0, p.account, owner, amount0); err != nil {
		return types.ZeroBalanceDelta(), err
	}
	if err := p.backend.Transfer(p.denom1, p.account, owner, amount1); err != nil {
		return types.ZeroBalanceDelta(), err
	}
	p.positions[key] = held.Sub(removed)
	return types.BalanceDelta{Amount0: amount0, Amount1: amount1}, nil
}

// Account returns the pool's settlement account, so simulations can pre-fund
// it with trade inventory.
func (p *SimPool) Account() string {
	return p.account
}

// SetPrice moves the pool price, standing in for the price impact of a trade.
func (p *SimPool) SetPrice(sqrtPriceX96 *big.Int) error {
	if sqrtPriceX96 == nil || sqrtPriceX96.Cmp(liquidity.MinSqrtRatio) < 0 || sqrtPriceX96.Cmp(liquidity.MaxSqrtRatio) >= 0 {
		return fmt.Errorf("%w: %v", ErrPriceInvalid, sqrtPriceX96)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sqrtPriceX96 = new(big.Int).Set(sqrtPriceX96)
	return nil
}
