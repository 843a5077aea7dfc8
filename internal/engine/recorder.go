/*

This file defines the event recorder the engine reports to. The live binary
plugs in the Postgres-backed store; tests and sim runs use the no-op.

*/

package engine

import (
	sdkmath "cosmossdk.io/math"

	"github.com/yanisepfl/alphix-public-sub008/internal/types"
)

// Recorder receives engine lifecycle events. Implementations must not call
// back into the engine: every method runs under the engine lock.
type Recorder interface {
	RecordAccrual(denom string, yield, tax sdkmath.Int, rate types.Rate)
	RecordTaxCollection(denom string, amount sdkmath.Int, treasury string)
	RecordSupply(op, holder string, shares, totalSupply sdkmath.Int)
	RecordJit(phase string, plan types.JitPlan, delta types.BalanceDelta)
}

// NopRecorder drops every event.
type NopRecorder struct{}

func (NopRecorder) RecordAccrual(string, sdkmath.Int, sdkmath.Int, types.Rate) {}

func (NopRecorder) RecordTaxCollection(string, sdkmath.Int, string) {}

func (NopRecorder) RecordSupply(string, string, sdkmath.Int, sdkmath.Int) {}

func (NopRecorder) RecordJit(string, types.JitPlan, types.BalanceDelta) {}
