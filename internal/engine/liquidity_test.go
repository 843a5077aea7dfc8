package engine

import (
	"errors"
	"math/big"
	"testing"

	sdkmath "cosmossdk.io/math"

	"github.com/yanisepfl/alphix-public-sub008/internal/liquidity"
	"github.com/yanisepfl/alphix-public-sub008/internal/yieldsource"
)

func TestAddLiquidityMintsShares(t *testing.T) {
	r := newRig(t)
	r.bindBoth(t)

	before0, _ := r.bank.BalanceOf(testDenom0, testDepositor)
	before1, _ := r.bank.BalanceOf(testDenom1, testDepositor)

	shares := sdkmath.NewInt(1_000_000)
	a0, a1 := r.deposit(t, 1_000_000)
	if !a0.IsPositive() || !a1.IsPositive() {
		t.Fatalf("bootstrap amounts %s/%s, want both positive", a0, a1)
	}

	if got := r.eng.BalanceOf(testDepositor); !got.Equal(shares) {
		t.Errorf("holder balance = %s, want %s", got, shares)
	}
	if got := r.eng.TotalSupply(); !got.Equal(shares) {
		t.Errorf("total supply = %s, want %s", got, shares)
	}

	after0, _ := r.bank.BalanceOf(testDenom0, testDepositor)
	after1, _ := r.bank.BalanceOf(testDenom1, testDepositor)
	if !before0.Sub(after0).Equal(a0) {
		t.Errorf("denom0 debit %s, reported %s", before0.Sub(after0), a0)
	}
	if !before1.Sub(after1).Equal(a1) {
		t.Errorf("denom1 debit %s, reported %s", before1.Sub(after1), a1)
	}
}

func TestPreviewMatchesAdd(t *testing.T) {
	r := newRig(t)
	r.bindBoth(t)

	shares := sdkmath.NewInt(777_777)
	p0, p1, err := r.eng.PreviewAddLiquidity(shares)
	if err != nil {
		t.Fatalf("PreviewAddLiquidity: %v", err)
	}
	a0, a1, err := r.eng.AddLiquidity(testDepositor, shares, PriceBounds{})
	if err != nil {
		t.Fatalf("AddLiquidity: %v", err)
	}
	if !p0.Equal(a0) || !p1.Equal(a1) {
		t.Errorf("preview %s/%s, add charged %s/%s", p0, p1, a0, a1)
	}
}

func TestRoundTripNonProfit(t *testing.T) {
	r := newRig(t)
	r.bindBoth(t)

	shares := sdkmath.NewInt(1_000_000)
	a0, a1 := r.deposit(t, 1_000_000)

	got0, got1, err := r.eng.RemoveLiquidity(testDepositor, "payout", shares)
	if err != nil {
		t.Fatalf("RemoveLiquidity: %v", err)
	}
	if got0.GT(a0) || got1.GT(a1) {
		t.Errorf("redeemed %s/%s exceeds deposited %s/%s", got0, got1, a0, a1)
	}

	if !r.eng.TotalSupply().IsZero() {
		t.Errorf("supply %s after full redemption", r.eng.TotalSupply())
	}

	b0, _ := r.bank.BalanceOf(testDenom0, "payout")
	b1, _ := r.bank.BalanceOf(testDenom1, "payout")
	if !b0.Equal(got0) || !b1.Equal(got1) {
		t.Errorf("recipient holds %s/%s, reported %s/%s", b0, b1, got0, got1)
	}
}

func TestPartialRedemptionProRata(t *testing.T) {
	r := newRig(t)
	r.bindBoth(t)
	a0, _ := r.deposit(t, 1_000_000)

	half0, _, err := r.eng.RemoveLiquidity(testDepositor, testDepositor, sdkmath.NewInt(500_000))
	if err != nil {
		t.Fatalf("RemoveLiquidity: %v", err)
	}
	// Half the shares claim at most half the backing.
	if half0.GT(a0.QuoRaw(2)) {
		t.Errorf("half redemption %s exceeds half of deposit %s", half0, a0.QuoRaw(2))
	}
	if !r.eng.TotalSupply().Equal(sdkmath.NewInt(500_000)) {
		t.Errorf("supply = %s, want 500000", r.eng.TotalSupply())
	}
}

func TestMintLastOnFailedFunding(t *testing.T) {
	r := newRig(t)
	r.bindBoth(t)

	// Enough of currency0, nothing of currency1: funding fails halfway and
	// no shares may exist afterwards.
	r.bank.Mint(testDenom0, "poor", sdkmath.NewInt(10_000_000))

	_, _, err := r.eng.AddLiquidity("poor", sdkmath.NewInt(1_000_000), PriceBounds{})
	if !errors.Is(err, yieldsource.ErrInsufficientFunds) {
		t.Fatalf("got %v, want ErrInsufficientFunds", err)
	}
	if !r.eng.TotalSupply().IsZero() {
		t.Errorf("supply %s minted despite failed funding", r.eng.TotalSupply())
	}
	if !r.eng.BalanceOf("poor").IsZero() {
		t.Errorf("holder credited %s despite failed funding", r.eng.BalanceOf("poor"))
	}

	// The currency0 leg that went in before the failure must come back out.
	if bal, _ := r.bank.BalanceOf(testDenom0, "poor"); !bal.Equal(sdkmath.NewInt(10_000_000)) {
		t.Errorf("depositor holds %s %s after refund, want 10000000", bal, testDenom0)
	}
	snap := r.eng.Status()
	if !snap.Bindings[0].SharesOwned.IsZero() {
		t.Errorf("binding 0 holds %s vault shares after refund, want 0", snap.Bindings[0].SharesOwned)
	}
}

func TestRemoveLiquidityRollsBackOnFailedPayout(t *testing.T) {
	r := newRig(t)
	r.bindBoth(t)
	r.deposit(t, 1_000_000)

	before := r.eng.Status()

	// Drain the second vault's bank account: currency0 pays out, then the
	// currency1 withdrawal fails, and the whole redemption must unwind.
	drained, _ := r.bank.BalanceOf(testDenom1, "vault:"+testDenom1)
	if err := r.bank.Transfer(testDenom1, "vault:"+testDenom1, "drain", drained); err != nil {
		t.Fatalf("draining vault bank account: %v", err)
	}

	_, _, err := r.eng.RemoveLiquidity(testDepositor, "bob", sdkmath.NewInt(500_000))
	if !errors.Is(err, yieldsource.ErrInsufficientFunds) {
		t.Fatalf("got %v, want ErrInsufficientFunds", err)
	}

	if got := r.eng.BalanceOf(testDepositor); !got.Equal(sdkmath.NewInt(1_000_000)) {
		t.Errorf("holder balance %s after failed redemption, want 1000000", got)
	}
	if got := r.eng.TotalSupply(); !got.Equal(sdkmath.NewInt(1_000_000)) {
		t.Errorf("total supply %s after failed redemption, want 1000000", got)
	}
	if bal, _ := r.bank.BalanceOf(testDenom0, "bob"); !bal.IsZero() {
		t.Errorf("recipient kept %s %s from the unwound payout", bal, testDenom0)
	}
	if bal, _ := r.bank.BalanceOf(testDenom0, testEngineAccount); !bal.IsZero() {
		t.Errorf("engine account holds %s %s after unwind", bal, testDenom0)
	}

	// The clawed-back leg re-enters the vault at the current rate, so the
	// depositor claim may move by a rounding unit but no more.
	after := r.eng.Status()
	diff := before.Bindings[0].UserAvailable.Sub(after.Bindings[0].UserAvailable).Abs()
	if diff.GT(sdkmath.NewInt(2)) {
		t.Errorf("user claim moved %s -> %s across the unwind",
			before.Bindings[0].UserAvailable, after.Bindings[0].UserAvailable)
	}
}

func TestPreviewMatchesRemove(t *testing.T) {
	r := newRig(t)
	r.bindBoth(t)
	r.deposit(t, 1_000_000)

	r.vault0.DonateYield(sdkmath.NewInt(30_000))
	if err := r.eng.Accrue(); err != nil {
		t.Fatalf("Accrue: %v", err)
	}

	shares := sdkmath.NewInt(400_000)
	p0, p1, err := r.eng.PreviewRemoveLiquidity(shares)
	if err != nil {
		t.Fatalf("PreviewRemoveLiquidity: %v", err)
	}
	a0, a1, err := r.eng.RemoveLiquidity(testDepositor, "bob", shares)
	if err != nil {
		t.Fatalf("RemoveLiquidity: %v", err)
	}
	if !p0.Equal(a0) || !p1.Equal(a1) {
		t.Errorf("preview %s/%s, redemption paid %s/%s", p0, p1, a0, a1)
	}
}

func TestRemoveLiquidityRejectsZeroShares(t *testing.T) {
	r := newRig(t)
	r.bindBoth(t)
	r.deposit(t, 1_000_000)

	if _, _, err := r.eng.RemoveLiquidity(testDepositor, "bob", sdkmath.ZeroInt()); !errors.Is(err, ErrZeroShares) {
		t.Errorf("zero shares: got %v, want ErrZeroShares", err)
	}
	if _, _, err := r.eng.RemoveLiquidity(testDepositor, "bob", sdkmath.Int{}); !errors.Is(err, ErrZeroShares) {
		t.Errorf("nil shares: got %v, want ErrZeroShares", err)
	}
	if _, _, err := r.eng.PreviewRemoveLiquidity(sdkmath.ZeroInt()); !errors.Is(err, ErrZeroShares) {
		t.Errorf("zero-share preview: got %v, want ErrZeroShares", err)
	}
}

func TestAddLiquidityInputValidation(t *testing.T) {
	r := newRig(t)
	r.bindBoth(t)

	if _, _, err := r.eng.AddLiquidity("", sdkmath.OneInt(), PriceBounds{}); !errors.Is(err, ErrEmptyHolder) {
		t.Errorf("empty depositor: got %v", err)
	}
	if _, _, err := r.eng.AddLiquidity(testDepositor, sdkmath.ZeroInt(), PriceBounds{}); !errors.Is(err, ErrZeroShares) {
		t.Errorf("zero shares: got %v", err)
	}
	if _, _, err := r.eng.RemoveLiquidity(testDepositor, "", sdkmath.OneInt()); !errors.Is(err, ErrRecipientEmpty) {
		t.Errorf("empty recipient: got %v", err)
	}
}

func TestRemoveMoreThanHeld(t *testing.T) {
	r := newRig(t)
	r.bindBoth(t)
	r.deposit(t, 1_000_000)

	if _, _, err := r.eng.RemoveLiquidity(testDepositor, testDepositor, sdkmath.NewInt(2_000_000)); !errors.Is(err, ErrInsufficientShare) {
		t.Errorf("got %v, want ErrInsufficientShare", err)
	}
}

func TestSlippageBounds(t *testing.T) {
	r := newRig(t)
	r.bindBoth(t)

	price, err := r.pool.CurrentPrice()
	if err != nil {
		t.Fatalf("CurrentPrice: %v", err)
	}

	above := new(big.Int).Add(price, big.NewInt(1))
	if _, _, err := r.eng.AddLiquidity(testDepositor, sdkmath.OneInt(), PriceBounds{MinSqrtPriceX96: above}); !errors.Is(err, ErrSlippageBounds) {
		t.Errorf("min bound above price: got %v, want ErrSlippageBounds", err)
	}

	below := new(big.Int).Sub(price, big.NewInt(1))
	if _, _, err := r.eng.AddLiquidity(testDepositor, sdkmath.OneInt(), PriceBounds{MaxSqrtPriceX96: below}); !errors.Is(err, ErrSlippageBounds) {
		t.Errorf("max bound below price: got %v, want ErrSlippageBounds", err)
	}

	// Bounds straddling the price pass.
	if _, _, err := r.eng.AddLiquidity(testDepositor, sdkmath.NewInt(1_000_000), PriceBounds{MinSqrtPriceX96: below, MaxSqrtPriceX96: above}); err != nil {
		t.Errorf("straddling bounds rejected: %v", err)
	}
}

func TestConversionMonotonicity(t *testing.T) {
	r := newRig(t)
	r.bindBoth(t)
	r.deposit(t, 1_000_000)
	r.vault0.DonateYield(sdkmath.NewInt(33_333))
	if err := r.eng.Accrue(); err != nil {
		t.Fatalf("Accrue: %v", err)
	}

	small, err := r.eng.ConvertToAssets(testDenom0, sdkmath.NewInt(100_000), liquidity.RoundDown)
	if err != nil {
		t.Fatalf("ConvertToAssets: %v", err)
	}
	large, err := r.eng.ConvertToAssets(testDenom0, sdkmath.NewInt(200_000), liquidity.RoundDown)
	if err != nil {
		t.Fatalf("ConvertToAssets: %v", err)
	}
	if !large.GTE(small.MulRaw(2)) {
		t.Errorf("conversion not monotone: 2x shares -> %s, 1x -> %s", large, small)
	}

	up, err := r.eng.ConvertToAssets(testDenom0, sdkmath.NewInt(100_000), liquidity.RoundUp)
	if err != nil {
		t.Fatalf("ConvertToAssets RoundUp: %v", err)
	}
	if up.LT(small) {
		t.Errorf("RoundUp %s below RoundDown %s", up, small)
	}
}

func TestSharesForAmountsMonotone(t *testing.T) {
	r := newRig(t)
	r.bindBoth(t)

	s, err := r.eng.SharesForAmounts(sdkmath.NewInt(1_000_000), sdkmath.NewInt(1_000_000))
	if err != nil {
		t.Fatalf("SharesForAmounts: %v", err)
	}
	if !s.IsPositive() {
		t.Fatalf("bootstrap preview = %s, want positive", s)
	}

	double, err := r.eng.SharesForAmounts(sdkmath.NewInt(2_000_000), sdkmath.NewInt(2_000_000))
	if err != nil {
		t.Fatalf("SharesForAmounts: %v", err)
	}
	if !double.GTE(s) {
		t.Errorf("doubled amounts preview %s below %s", double, s)
	}

	// After a real deposit the preview follows the reserves instead of the
	// bootstrap pricing.
	r.deposit(t, 1_000_000)
	post, err := r.eng.SharesForAmounts(sdkmath.NewInt(1_000_000), sdkmath.NewInt(1_000_000))
	if err != nil {
		t.Fatalf("SharesForAmounts after deposit: %v", err)
	}
	if !post.IsPositive() {
		t.Errorf("post-deposit preview = %s, want positive", post)
	}
}
