package yieldsource

import (
	"errors"
	"testing"

	sdkmath "cosmossdk.io/math"

	"github.com/yanisepfl/alphix-public-sub008/internal/types"
)

const testAccount = "engine-test"

func usdc() types.Currency {
	return types.Currency{Denom: "uusdc", Symbol: "usdc", Decimals: 6}
}

func newFundedAdapter(t *testing.T) (*TokenAdapter, *SimVault, *Bank) {
	t.Helper()
	bank := NewBank()
	bank.Mint("uusdc", testAccount, sdkmath.NewInt(1_000_000_000))
	vault := NewSimVault("uusdc", 6, bank, testAccount)
	adapter, err := NewTokenAdapter(usdc(), vault, bank, testAccount)
	if err != nil {
		t.Fatalf("NewTokenAdapter: %v", err)
	}
	return adapter, vault, bank
}

func TestTokenAdapterDepositWithdraw(t *testing.T) {
	adapter, _, bank := newFundedAdapter(t)

	shares, err := adapter.DepositFrom(testAccount, sdkmath.NewInt(500_000))
	if err != nil {
		t.Fatalf("DepositFrom: %v", err)
	}
	if !shares.IsPositive() {
		t.Fatalf("expected positive shares, got %s", shares)
	}

	assets, err := adapter.ConvertToAssets(shares)
	if err != nil {
		t.Fatalf("ConvertToAssets: %v", err)
	}
	if !assets.Equal(sdkmath.NewInt(500_000)) {
		t.Errorf("ConvertToAssets(%s) = %s, want 500000", shares, assets)
	}

	if _, err := adapter.WithdrawTo(sdkmath.NewInt(200_000), "recipient"); err != nil {
		t.Fatalf("WithdrawTo: %v", err)
	}
	bal, err := bank.BalanceOf("uusdc", "recipient")
	if err != nil {
		t.Fatalf("BalanceOf: %v", err)
	}
	if !bal.Equal(sdkmath.NewInt(200_000)) {
		t.Errorf("recipient balance = %s, want 200000", bal)
	}
}

func TestTokenAdapterYieldAccrual(t *testing.T) {
	adapter, vault, _ := newFundedAdapter(t)

	shares, err := adapter.DepositFrom(testAccount, sdkmath.NewInt(1_000_000))
	if err != nil {
		t.Fatalf("DepositFrom: %v", err)
	}

	vault.DonateYield(sdkmath.NewInt(100_000))

	assets, err := adapter.ConvertToAssets(shares)
	if err != nil {
		t.Fatalf("ConvertToAssets: %v", err)
	}
	if !assets.Equal(sdkmath.NewInt(1_100_000)) {
		t.Errorf("assets after donation = %s, want 1100000", assets)
	}
}

func TestTokenAdapterZeroShareMint(t *testing.T) {
	adapter, vault, _ := newFundedAdapter(t)
	vault.ZeroShareMode = true

	if _, err := adapter.DepositFrom(testAccount, sdkmath.NewInt(1_000)); !errors.Is(err, ErrZeroShareMint) {
		t.Errorf("expected ErrZeroShareMint, got %v", err)
	}
}

func TestTokenAdapterAssetMismatch(t *testing.T) {
	bank := NewBank()
	vault := NewSimVault("uatom", 6, bank, testAccount)
	if _, err := NewTokenAdapter(usdc(), vault, bank, testAccount); !errors.Is(err, ErrAssetMismatch) {
		t.Errorf("expected ErrAssetMismatch, got %v", err)
	}
}

func TestTokenAdapterNilInputs(t *testing.T) {
	bank := NewBank()
	vault := NewSimVault("uusdc", 6, bank, testAccount)
	if _, err := NewTokenAdapter(usdc(), nil, bank, testAccount); !errors.Is(err, ErrNoVault) {
		t.Errorf("expected ErrNoVault, got %v", err)
	}
	if _, err := NewTokenAdapter(usdc(), vault, nil, testAccount); !errors.Is(err, ErrBackendNil) {
		t.Errorf("expected ErrBackendNil, got %v", err)
	}
}

func TestTokenAdapterInsufficientFunds(t *testing.T) {
	adapter, _, _ := newFundedAdapter(t)
	if _, err := adapter.DepositFrom(testAccount, sdkmath.NewInt(2_000_000_000)); !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("expected ErrInsufficientFunds, got %v", err)
	}
}

func TestNativeAdapterRoundTrip(t *testing.T) {
	bank := NewBank()
	bank.Mint("untv", testAccount, sdkmath.NewInt(5_000_000))
	wrapped := NewSimWrappedNative(bank, "untv", "wuntv")
	vault := NewSimVault("wuntv", 6, bank, testAccount)

	currency := types.Currency{Denom: "untv", Symbol: "ntv", Decimals: 6, Native: true}
	adapter, err := NewNativeAdapter(currency, wrapped, vault, bank, testAccount)
	if err != nil {
		t.Fatalf("NewNativeAdapter: %v", err)
	}

	shares, err := adapter.DepositFrom(testAccount, sdkmath.NewInt(3_000_000))
	if err != nil {
		t.Fatalf("DepositFrom: %v", err)
	}
	if !shares.IsPositive() {
		t.Fatalf("expected positive shares, got %s", shares)
	}

	nativeBal, _ := bank.BalanceOf("untv", testAccount)
	if !nativeBal.Equal(sdkmath.NewInt(2_000_000)) {
		t.Errorf("native balance after deposit = %s, want 2000000", nativeBal)
	}

	if _, err := adapter.WithdrawTo(sdkmath.NewInt(3_000_000), "someone"); err != nil {
		t.Fatalf("WithdrawTo: %v", err)
	}
	got, _ := bank.BalanceOf("untv", "someone")
	if !got.Equal(sdkmath.NewInt(3_000_000)) {
		t.Errorf("recipient received %s native units, want 3000000", got)
	}

	wrappedBal, _ := bank.BalanceOf("wuntv", testAccount)
	if !wrappedBal.IsZero() {
		t.Errorf("wrapped units left on engine account: %s", wrappedBal)
	}
}

func TestNativeAdapterRejectsNonNative(t *testing.T) {
	bank := NewBank()
	wrapped := NewSimWrappedNative(bank, "untv", "wuntv")
	vault := NewSimVault("wuntv", 6, bank, testAccount)

	if _, err := NewNativeAdapter(usdc(), wrapped, vault, bank, testAccount); !errors.Is(err, ErrNotNative) {
		t.Errorf("expected ErrNotNative, got %v", err)
	}
}

func TestBankTransferErrors(t *testing.T) {
	bank := NewBank()
	bank.Mint("uusdc", "alice", sdkmath.NewInt(100))

	if err := bank.Transfer("uusdc", "alice", "bob", sdkmath.NewInt(200)); !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("expected ErrInsufficientFunds, got %v", err)
	}
	if err := bank.Transfer("uusdc", "alice", "bob", sdkmath.NewInt(-5)); err == nil {
		t.Error("expected error for negative transfer amount")
	}
	if err := bank.Transfer("uusdc", "alice", "bob", sdkmath.NewInt(40)); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	bal, err := bank.BalanceOf("uusdc", "bob")
	if err != nil {
		t.Fatalf("BalanceOf: %v", err)
	}
	if !bal.Equal(sdkmath.NewInt(40)) {
		t.Errorf("bob balance = %s, want 40", bal)
	}
}
