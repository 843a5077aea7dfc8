/*

This file contains the ephemeral plan type produced by the JIT liquidity
planner. A plan is recomputed from observable state on every trade and is
never persisted or carried between trades.

*/

package types

import (
	sdkmath "cosmossdk.io/math"
)

// JitPlan describes one just-in-time liquidity action around a single trade.
type JitPlan struct {
	TickLower      int32       `json:"tick_lower"`
	TickUpper      int32       `json:"tick_upper"`
	LiquidityDelta sdkmath.Int `json:"liquidity_delta"` // Positive to add, negative to remove
	ShouldExecute  bool        `json:"should_execute"`
}

// SkipPlan is the no-op plan returned when there is nothing worth doing.
func SkipPlan() JitPlan {
	return JitPlan{LiquidityDelta: sdkmath.ZeroInt(), ShouldExecute: false}
}

// BalanceDelta is the settlement owed after a liquidity modification, from
// the engine's point of view: positive amounts are owed to the engine,
// negative amounts are owed by the engine.
type BalanceDelta struct {
	Amount0 sdkmath.Int `json:"amount0"`
	Amount1 sdkmath.Int `json:"amount1"`
}

// ZeroBalanceDelta returns an empty settlement.
func ZeroBalanceDelta() BalanceDelta {
	return BalanceDelta{Amount0: sdkmath.ZeroInt(), Amount1: sdkmath.ZeroInt()}
}
