/*

This file contains the adapter layer between the engine and a bound vault.
Two implementations of one interface exist: a token adapter that talks to the
vault directly, and a native-asset adapter (native.go) that wraps/unwraps the
chain-native asset around every vault call. The engine selects one per
currency at configuration time and never special-cases native currencies
anywhere else.

*/

package yieldsource

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/yanisepfl/alphix-public-sub008/internal/logger"
	"github.com/yanisepfl/alphix-public-sub008/internal/types"
)

// Error definitions for zero-tolerance error handling
var (
	ErrNoVault          = errors.New("no vault bound")
	ErrVaultUnreachable = errors.New("vault capability is not callable")
	ErrAssetMismatch    = errors.New("vault declared asset does not match currency")
	ErrZeroShareMint    = errors.New("vault minted zero shares for non-zero deposit")
	ErrBackendNil       = errors.New("asset backend cannot be nil")
)

var adapterLogger = logger.GetForComponent("yield_adapter")

// Adapter is what the engine binds per currency. All amounts are in the
// units the engine accounts in (wrapped units for the native variant).
type Adapter interface {
	// DepositFrom pulls assets from the given account into the vault and
	// returns the vault shares minted. A zero-share result for a non-zero
	// amount is returned as ErrZeroShareMint and must abort the caller.
	DepositFrom(from string, assets sdkmath.Int) (sdkmath.Int, error)

	// WithdrawTo withdraws exactly assets from the vault to the recipient.
	// Returns the vault shares redeemed.
	WithdrawTo(assets sdkmath.Int, recipient string) (sdkmath.Int, error)

	// RedeemTo burns exactly shares and pays the resulting assets to the
	// recipient. Returns the asset amount paid out.
	RedeemTo(shares sdkmath.Int, recipient string) (sdkmath.Int, error)

	// ConvertToAssets values vault shares in underlying assets.
	ConvertToAssets(shares sdkmath.Int) (sdkmath.Int, error)

	// Decimals returns the vault's share precision.
	Decimals() (int, error)

	// Currency returns the pool-facing currency this adapter serves.
	Currency() types.Currency
}

// TokenAdapter binds a plain token currency directly to its vault.
type TokenAdapter struct {
	currency types.Currency
	vault    Vault
	backend  AssetBackend
	account  string // The engine's own account, owner of all vault shares
}

// NewTokenAdapter validates the vault against the currency and returns the
// adapter. The vault is probed at binding time; a capability that cannot
// answer Asset/Decimals is rejected.
func NewTokenAdapter(currency types.Currency, vault Vault, backend AssetBackend, engineAccount string) (*TokenAdapter, error) {
	if err := currency.Validate(); err != nil {
		return nil, err
	}
	if vault == nil {
		return nil, ErrNoVault
	}
	if backend == nil {
		return nil, ErrBackendNil
	}
	if engineAccount == "" {
		return nil, errors.New("engine account cannot be empty")
	}

	declared, err := vault.Asset()
	if err != nil {
		return nil, errors.Join(ErrVaultUnreachable, err)
	}
	if declared != currency.Denom {
		return nil, fmt.Errorf("%w: vault declares %s, binding is for %s", ErrAssetMismatch, declared, currency.Denom)
	}
	if _, err := vault.Decimals(); err != nil {
		return nil, errors.Join(ErrVaultUnreachable, err)
	}

	return &TokenAdapter{currency: currency, vault: vault, backend: backend, account: engineAccount}, nil
}

func (a *TokenAdapter) DepositFrom(from string, assets sdkmath.Int) (sdkmath.Int, error) {
	if assets.IsNil() || !assets.IsPositive() {
		return sdkmath.ZeroInt(), nil
	}
	if from != a.account {
		if err := a.backend.Transfer(a.currency.Denom, from, a.account, assets); err != nil {
			return sdkmath.Int{}, err
		}
	}
	shares, err := a.vault.Deposit(assets)
	if err != nil {
		return sdkmath.Int{}, err
	}
	if shares.IsZero() {
		// Signals a broken or malicious vault. Never downgraded to a no-op:
		// continuing would desynchronize the binding's share count from reality.
		return sdkmath.Int{}, fmt.Errorf("%w: deposited %s %s", ErrZeroShareMint, assets, a.currency.Denom)
	}
	adapterLogger.Debug().
		Str("denom", a.currency.Denom).
		Str("assets", assets.String()).
		Str("shares", shares.String()).
		Msg("Deposited into yield source")
	return shares, nil
}

func (a *TokenAdapter) WithdrawTo(assets sdkmath.Int, recipient string) (sdkmath.Int, error) {
	if assets.IsNil() || !assets.IsPositive() {
		return sdkmath.ZeroInt(), nil
	}
	return a.vault.Withdraw(assets, recipient, a.account)
}

func (a *TokenAdapter) RedeemTo(shares sdkmath.Int, recipient string) (sdkmath.Int, error) {
	if shares.IsNil() || !shares.IsPositive() {
		return sdkmath.ZeroInt(), nil
	}
	return a.vault.Redeem(shares, recipient, a.account)
}

func (a *TokenAdapter) ConvertToAssets(shares sdkmath.Int) (sdkmath.Int, error) {
	return a.vault.ConvertToAssets(shares)
}

func (a *TokenAdapter) Decimals() (int, error) {
	return a.vault.Decimals()
}

func (a *TokenAdapter) Currency() types.Currency {
	return a.currency
}
