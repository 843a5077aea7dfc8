/*

This file contains the default engine parameters used by simulation mode.

Live deployments always configure the range and tax rate explicitly through
the environment; these defaults exist so a sim run is usable out of the box.

*/

package config

import (
	"github.com/yanisepfl/alphix-public-sub008/internal/types"
)

// DefaultSimConfig is the rehypothecation configuration simulation mode
// starts with when no environment overrides are present.
var DefaultSimConfig = types.RehypothecationConfig{
	// A wide symmetric range around tick 0. Simulation pools start at a 1:1
	// price, so the range brackets the starting price comfortably while
	// still leaving both amounts nonzero for every deposit.
	TickLower: -60_000,
	TickUpper: 60_000,

	// 10% of yield. High enough that tax-path rounding shows up in sim
	// output instead of vanishing into zero-amount sweeps.
	YieldTaxPips: 100_000,

	Treasury: "sim-treasury",
}

// DefaultSimTickSpacing is the tick spacing of the simulated pool.
const DefaultSimTickSpacing int32 = 60
