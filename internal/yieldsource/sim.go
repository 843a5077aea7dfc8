/*

This file contains in-memory implementations of the vault, asset-backend and
wrapped-native capabilities. They are used by the simulation mode of the
service binary and by the test suite; the live implementations talk to a real
host ledger instead.

*/

package yieldsource

import (
	"errors"
	"fmt"
	"sync"

	sdkmath "cosmossdk.io/math"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrUnknownOwner      = errors.New("owner holds no vault shares")
)

// Bank is an in-memory AssetBackend.
type Bank struct {
	mu       sync.Mutex
	balances map[string]map[string]sdkmath.Int // denom -> addr -> amount
}

func NewBank() *Bank {
	return &Bank{balances: make(map[string]map[string]sdkmath.Int)}
}

// Mint credits an account out of thin air. Test/simulation setup only.
func (b *Bank) Mint(denom, addr string, amount sdkmath.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.credit(denom, addr, amount)
}

func (b *Bank) Transfer(denom, from, to string, amount sdkmath.Int) error {
	if amount.IsNil() || amount.IsNegative() {
		return fmt.Errorf("invalid transfer amount %v", amount)
	}
	if amount.IsZero() {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	bal := b.balance(denom, from)
	if bal.LT(amount) {
		return fmt.Errorf("%w: %s has %s %s, needs %s", ErrInsufficientFunds, from, bal, denom, amount)
	}
	b.balances[denom][from] = bal.Sub(amount)
	b.credit(denom, to, amount)
	return nil
}

func (b *Bank) BalanceOf(denom, addr string) (sdkmath.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balance(denom, addr), nil
}

func (b *Bank) balance(denom, addr string) sdkmath.Int {
	if accts, ok := b.balances[denom]; ok {
		if bal, ok := accts[addr]; ok {
			return bal
		}
	}
	return sdkmath.ZeroInt()
}

func (b *Bank) credit(denom, addr string, amount sdkmath.Int) {
	if _, ok := b.balances[denom]; !ok {
		b.balances[denom] = make(map[string]sdkmath.Int)
	}
	b.balances[denom][addr] = b.balance(denom, addr).Add(amount)
}

// SimVault is an in-memory yield vault with a controllable rate. Shares are
// minted pro rata against total assets; yield is injected with DonateYield.
type SimVault struct {
	mu sync.Mutex

	denom    string
	decimals int
	account  string // The vault's own bank account holding the assets
	backend  *Bank

	totalShares sdkmath.Int
	totalAssets sdkmath.Int
	holders     map[string]sdkmath.Int

	depositor string // The single account deposits are pulled from

	// ZeroShareMode makes Deposit return zero shares regardless of amount,
	// emulating a broken or malicious vault.
	ZeroShareMode bool
}

func NewSimVault(denom string, decimals int, backend *Bank, depositor string) *SimVault {
	return &SimVault{
		denom:       denom,
		decimals:    decimals,
		account:     "vault:" + denom,
		backend:     backend,
		totalShares: sdkmath.ZeroInt(),
		totalAssets: sdkmath.ZeroInt(),
		holders:     make(map[string]sdkmath.Int),
		depositor:   depositor,
	}
}

func (v *SimVault) Deposit(assets sdkmath.Int) (sdkmath.Int, error) {
	if assets.IsNil() || assets.IsNegative() {
		return sdkmath.Int{}, fmt.Errorf("invalid deposit amount %v", assets)
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.ZeroShareMode {
		if err := v.backend.Transfer(v.denom, v.depositor, v.account, assets); err != nil {
			return sdkmath.Int{}, err
		}
		return sdkmath.ZeroInt(), nil
	}

	var shares sdkmath.Int
	if v.totalShares.IsZero() || v.totalAssets.IsZero() {
		shares = assets
	} else {
		shares = assets.Mul(v.totalShares).Quo(v.totalAssets)
	}

	if err := v.backend.Transfer(v.denom, v.depositor, v.account, assets); err != nil {
		return sdkmath.Int{}, err
	}
	v.totalAssets = v.totalAssets.Add(assets)
	v.totalShares = v.totalShares.Add(shares)
	v.holders[v.depositor] = v.holderShares(v.depositor).Add(shares)
	return shares, nil
}

func (v *SimVault) Withdraw(assets sdkmath.Int, recipient, owner string) (sdkmath.Int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if assets.IsNil() || assets.IsNegative() {
		return sdkmath.Int{}, fmt.Errorf("invalid withdraw amount %v", assets)
	}
	if assets.IsZero() {
		return sdkmath.ZeroInt(), nil
	}
	if v.totalAssets.IsZero() {
		return sdkmath.Int{}, ErrInsufficientFunds
	}

	// Shares burned round up so the vault never pays out more than backing.
	shares := assets.Mul(v.totalShares).Add(v.totalAssets.SubRaw(1)).Quo(v.totalAssets)
	held := v.holderShares(owner)
	if held.LT(shares) {
		return sdkmath.Int{}, fmt.Errorf("%w: %s", ErrUnknownOwner, owner)
	}
	if err := v.backend.Transfer(v.denom, v.account, recipient, assets); err != nil {
		return sdkmath.Int{}, err
	}
	v.holders[owner] = held.Sub(shares)
	v.totalShares = v.totalShares.Sub(shares)
	v.totalAssets = v.totalAssets.Sub(assets)
	return shares, nil
}

func (v *SimVault) Redeem(shares sdkmath.Int, recipient, owner string) (sdkmath.Int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if shares.IsNil() || shares.IsNegative() {
		return sdkmath.Int{}, fmt.Errorf("invalid redeem amount %v", shares)
	}
	if shares.IsZero() || v.totalShares.IsZero() {
		return sdkmath.ZeroInt(), nil
	}
	held := v.holderShares(owner)
	if held.LT(shares) {
		return sdkmath.Int{}, fmt.Errorf("%w: %s", ErrUnknownOwner, owner)
	}

	assets := shares.Mul(v.totalAssets).Quo(v.totalShares)
	if err := v.backend.Transfer(v.denom, v.account, recipient, assets); err != nil {
		return sdkmath.Int{}, err
	}
	v.holders[owner] = held.Sub(shares)
	v.totalShares = v.totalShares.Sub(shares)
	v.totalAssets = v.totalAssets.Sub(assets)
	return assets, nil
}

func (v *SimVault) ConvertToAssets(shares sdkmath.Int) (sdkmath.Int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if shares.IsNil() || shares.IsNegative() {
		return sdkmath.Int{}, fmt.Errorf("invalid share amount %v", shares)
	}
	if v.totalShares.IsZero() {
		// Empty vault prices one share unit at one asset unit.
		return shares, nil
	}
	return shares.Mul(v.totalAssets).Quo(v.totalShares), nil
}

func (v *SimVault) Asset() (string, error) {
	return v.denom, nil
}

func (v *SimVault) Decimals() (int, error) {
	return v.decimals, nil
}

// DonateYield increases the vault's backing without minting shares, raising
// the rate for all holders. The bank is credited so solvency stays real.
func (v *SimVault) DonateYield(amount sdkmath.Int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.backend.Mint(v.denom, v.account, amount)
	v.totalAssets = v.totalAssets.Add(amount)
}

// SlashAssets decreases the vault's backing, lowering the rate. Used to
// simulate negative yield.
func (v *SimVault) SlashAssets(amount sdkmath.Int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if amount.GT(v.totalAssets) {
		amount = v.totalAssets
	}
	v.totalAssets = v.totalAssets.Sub(amount)
}

func (v *SimVault) holderShares(owner string) sdkmath.Int {
	if s, ok := v.holders[owner]; ok {
		return s
	}
	return sdkmath.ZeroInt()
}

// SimWrappedNative wraps the native denom 1:1 into a wrapped denom on the
// same bank.
type SimWrappedNative struct {
	backend     *Bank
	nativeDenom string
	wrapDenom   string
}

func NewSimWrappedNative(backend *Bank, nativeDenom, wrapDenom string) *SimWrappedNative {
	return &SimWrappedNative{backend: backend, nativeDenom: nativeDenom, wrapDenom: wrapDenom}
}

func (w *SimWrappedNative) Wrap(addr string, amount sdkmath.Int) error {
	if err := w.backend.Transfer(w.nativeDenom, addr, "wrapped:"+w.wrapDenom, amount); err != nil {
		return err
	}
	w.backend.Mint(w.wrapDenom, addr, amount)
	return nil
}

func (w *SimWrappedNative) Unwrap(addr string, amount sdkmath.Int) error {
	if err := w.backend.Transfer(w.wrapDenom, addr, "wrapped:"+w.wrapDenom+":burn", amount); err != nil {
		return err
	}
	return w.backend.Transfer(w.nativeDenom, "wrapped:"+w.wrapDenom, addr, amount)
}

func (w *SimWrappedNative) WrappedDenom() string {
	return w.wrapDenom
}
