package yieldsource

import (
	sdkmath "cosmossdk.io/math"
)

// Vault defines the external yield source capability consumed by the engine.
// This interface abstracts away the specific vault implementation (live,
// simulation, etc.); the engine only ever talks to it through an Adapter.
type Vault interface {
	// Deposit supplies assets from the adapter's account and returns the
	// vault shares minted for them.
	Deposit(assets sdkmath.Int) (sdkmath.Int, error)

	// Withdraw sends exactly assets to recipient, burning shares from owner.
	// Returns the number of shares redeemed.
	Withdraw(assets sdkmath.Int, recipient, owner string) (sdkmath.Int, error)

	// Redeem burns exactly shares from owner and sends the resulting assets
	// to recipient. Returns the asset amount paid out.
	Redeem(shares sdkmath.Int, recipient, owner string) (sdkmath.Int, error)

	// ConvertToAssets values vault shares in underlying assets without
	// touching state.
	ConvertToAssets(shares sdkmath.Int) (sdkmath.Int, error)

	// Asset returns the denom of the vault's declared underlying.
	Asset() (string, error)

	// Decimals returns the vault's share precision.
	Decimals() (int, error)
}

// AssetBackend moves underlying currency between host-ledger accounts.
// The engine uses it to pull depositor funds and to settle JIT deltas.
type AssetBackend interface {
	Transfer(denom, from, to string, amount sdkmath.Int) error
	BalanceOf(denom, addr string) (sdkmath.Int, error)
}

// WrappedNative is the canonical wrap/unwrap capability used by the native
// asset adapter. Wrap converts native units held by addr into wrapped units;
// Unwrap converts back. Amounts are always 1:1.
type WrappedNative interface {
	Wrap(addr string, amount sdkmath.Int) error
	Unwrap(addr string, amount sdkmath.Int) error
	WrappedDenom() string
}
