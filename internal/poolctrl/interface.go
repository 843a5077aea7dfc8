package poolctrl

import (
	"math/big"

	sdkmath "cosmossdk.io/math"

	"github.com/yanisepfl/alphix-public-sub008/internal/types"
)

// Controller defines the pool controller capability consumed by the engine.
// This interface abstracts away the specific implementation (live, simulation,
// etc.); one engine instance serves exactly one pool behind one Controller.
type Controller interface {
	// CurrentPrice returns the pool's current sqrt price in Q64.96.
	CurrentPrice() (*big.Int, error)

	// TickSpacing returns the pool's tick spacing; configured ranges must
	// align to it.
	TickSpacing() (int32, error)

	// PositionLiquidity returns the liquidity the owner currently holds in
	// the given range. Queried fresh before every unwind; the engine never
	// trusts a remembered value.
	PositionLiquidity(owner string, tickLower, tickUpper int32) (sdkmath.Int, error)

	// ModifyLiquidity adds (positive delta) or removes (negative delta)
	// liquidity in the range and settles token amounts against the owner's
	// account. The returned delta is from the owner's point of view:
	// positive amounts were paid out to the owner, negative were pulled in.
	ModifyLiquidity(owner string, tickLower, tickUpper int32, delta sdkmath.Int) (types.BalanceDelta, error)
}
