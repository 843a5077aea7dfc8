/*

This file contains the native-asset variant of the adapter. Every vault
interaction is preceded/followed by a wrap/unwrap step through the canonical
wrapped-asset capability; all ledger state the engine keeps (shares, rate,
tax) is expressed in wrapped units. No math differs from the token adapter.

*/

package yieldsource

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/yanisepfl/alphix-public-sub008/internal/types"
)

var ErrNotNative = errors.New("currency is not flagged native")

// NativeAdapter wraps the chain-native asset into its canonical wrapped form
// before every vault deposit and unwraps after every withdrawal, so callers
// move native units while the vault only ever sees wrapped units.
type NativeAdapter struct {
	currency types.Currency // The native currency as the pool sees it
	wrapped  WrappedNative
	vault    Vault
	backend  AssetBackend
	account  string
}

// NewNativeAdapter validates that the vault's declared underlying is the
// wrapped form of the native currency.
func NewNativeAdapter(currency types.Currency, wrapped WrappedNative, vault Vault, backend AssetBackend, engineAccount string) (*NativeAdapter, error) {
	if err := currency.Validate(); err != nil {
		return nil, err
	}
	if !currency.Native {
		return nil, fmt.Errorf("%w: %s", ErrNotNative, currency.Denom)
	}
	if wrapped == nil {
		return nil, errors.New("wrapped native capability cannot be nil")
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
	if declared != wrapped.WrappedDenom() {
		return nil, fmt.Errorf("%w: vault declares %s, wrapped form is %s", ErrAssetMismatch, declared, wrapped.WrappedDenom())
	}
	if _, err := vault.Decimals(); err != nil {
		return nil, errors.Join(ErrVaultUnreachable, err)
	}

	return &NativeAdapter{
		currency: currency,
		wrapped:  wrapped,
		vault:    vault,
		backend:  backend,
		account:  engineAccount,
	}, nil
}

func (a *NativeAdapter) DepositFrom(from string, assets sdkmath.Int) (sdkmath.Int, error) {
	if assets.IsNil() || !assets.IsPositive() {
		return sdkmath.ZeroInt(), nil
	}
	if from != a.account {
		if err := a.backend.Transfer(a.currency.Denom, from, a.account, assets); err != nil {
			return sdkmath.Int{}, err
		}
	}
	if err := a.wrapped.Wrap(a.account, assets); err != nil {
		return sdkmath.Int{}, err
	}
	shares, err := a.vault.Deposit(assets)
	if err != nil {
		return sdkmath.Int{}, err
	}
	if shares.IsZero() {
		return sdkmath.Int{}, fmt.Errorf("%w: deposited %s %s", ErrZeroShareMint, assets, a.wrapped.WrappedDenom())
	}
	return shares, nil
}

func (a *NativeAdapter) WithdrawTo(assets sdkmath.Int, recipient string) (sdkmath.Int, error) {
	if assets.IsNil() || !assets.IsPositive() {
		return sdkmath.ZeroInt(), nil
	}
	// Withdraw wrapped units to the engine account first, then unwrap and
	// forward native units to the recipient.
	shares, err := a.vault.Withdraw(assets, a.account, a.account)
	if err != nil {
		return sdkmath.Int{}, err
	}
	if err := a.wrapped.Unwrap(a.account, assets); err != nil {
		return sdkmath.Int{}, err
	}
	if recipient != a.account {
		if err := a.backend.Transfer(a.currency.Denom, a.account, recipient, assets); err != nil {
			return sdkmath.Int{}, err
		}
	}
	return shares, nil
}

func (a *NativeAdapter) RedeemTo(shares sdkmath.Int, recipient string) (sdkmath.Int, error) {
	if shares.IsNil() || !shares.IsPositive() {
		return sdkmath.ZeroInt(), nil
	}
	assets, err := a.vault.Redeem(shares, a.account, a.account)
	if err != nil {
		return sdkmath.Int{}, err
	}
	if assets.IsPositive() {
		if err := a.wrapped.Unwrap(a.account, assets); err != nil {
			return sdkmath.Int{}, err
		}
		if recipient != a.account {
			if err := a.backend.Transfer(a.currency.Denom, a.account, recipient, assets); err != nil {
				return sdkmath.Int{}, err
			}
		}
	}
	return assets, nil
}

func (a *NativeAdapter) ConvertToAssets(shares sdkmath.Int) (sdkmath.Int, error) {
	return a.vault.ConvertToAssets(shares)
}

func (a *NativeAdapter) Decimals() (int, error) {
	return a.vault.Decimals()
}

func (a *NativeAdapter) Currency() types.Currency {
	return a.currency
}
