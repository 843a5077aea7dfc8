/*

This file contains the shared engine configuration: one concentrated-liquidity
range and one yield tax rate per engine instance, plus the treasury that
collected tax is swept to.

*/

package types

import (
	"errors"
	"fmt"
)

const (
	// PipsDenominator expresses rates in parts-per-million (1,000,000 = 100%).
	PipsDenominator = 1_000_000

	// MinTick and MaxTick are the global tick bounds of the pool coordinate
	// space, matching the usual concentrated-liquidity convention.
	MinTick int32 = -887272
	MaxTick int32 = 887272
)

var (
	ErrTickOrder      = errors.New("tick lower must be strictly below tick upper")
	ErrTickBounds     = errors.New("tick outside global bounds")
	ErrTickAlignment  = errors.New("tick not aligned to pool tick spacing")
	ErrTaxRateTooHigh = errors.New("yield tax rate exceeds 100%")
	ErrEmptyTreasury  = errors.New("treasury address cannot be empty")
)

// RehypothecationConfig holds the engine-wide tick range and tax rate.
// Set before first use; mutable afterwards by the privileged surface.
type RehypothecationConfig struct {
	TickLower    int32  `json:"tick_lower"`
	TickUpper    int32  `json:"tick_upper"`
	YieldTaxPips uint32 `json:"yield_tax_pips"` // 0..1_000_000
	Treasury     string `json:"treasury"`       // Recipient of collected tax
}

// Validate checks the range against global bounds and the pool's tick
// spacing, and the tax rate against the pips denominator.
func (c RehypothecationConfig) Validate(tickSpacing int32) error {
	if c.TickLower >= c.TickUpper {
		return fmt.Errorf("%w: [%d, %d)", ErrTickOrder, c.TickLower, c.TickUpper)
	}
	if c.TickLower < MinTick || c.TickUpper > MaxTick {
		return fmt.Errorf("%w: [%d, %d)", ErrTickBounds, c.TickLower, c.TickUpper)
	}
	if tickSpacing <= 0 {
		return fmt.Errorf("%w: tick spacing %d", ErrTickAlignment, tickSpacing)
	}
	if c.TickLower%tickSpacing != 0 || c.TickUpper%tickSpacing != 0 {
		return fmt.Errorf("%w: [%d, %d) with spacing %d", ErrTickAlignment, c.TickLower, c.TickUpper, tickSpacing)
	}
	if c.YieldTaxPips > PipsDenominator {
		return fmt.Errorf("%w: %d pips", ErrTaxRateTooHigh, c.YieldTaxPips)
	}
	return nil
}
