package types

import (
	"errors"
	"testing"

	sdkmath "cosmossdk.io/math"
)

func TestNewRateScale(t *testing.T) {
	r, err := NewRate(sdkmath.NewInt(1_500_000), 6)
	if err != nil {
		t.Fatalf("NewRate: %v", err)
	}
	if !r.Scale.Equal(sdkmath.NewInt(1_000_000)) {
		t.Errorf("scale = %s, want 1000000", r.Scale)
	}

	if _, err := NewRate(sdkmath.Int{}, 6); !errors.Is(err, ErrRateNil) {
		t.Errorf("nil value: got %v", err)
	}
	if _, err := NewRate(sdkmath.OneInt(), 19); !errors.Is(err, ErrRateScaleInvalid) {
		t.Errorf("decimals 19: got %v", err)
	}
	if _, err := NewRate(sdkmath.OneInt(), -1); !errors.Is(err, ErrRateScaleInvalid) {
		t.Errorf("negative decimals: got %v", err)
	}
}

func TestRateDeltaClampsNegative(t *testing.T) {
	high, _ := NewRate(sdkmath.NewInt(1_100_000), 6)
	low, _ := NewRate(sdkmath.NewInt(1_000_000), 6)

	up, err := high.Delta(low)
	if err != nil {
		t.Fatalf("Delta: %v", err)
	}
	if !up.Equal(sdkmath.NewInt(100_000)) {
		t.Errorf("delta = %s, want 100000", up)
	}

	down, err := low.Delta(high)
	if err != nil {
		t.Fatalf("Delta: %v", err)
	}
	if !down.IsZero() {
		t.Errorf("negative delta = %s, want 0", down)
	}
}

func TestRateDeltaScaleMismatch(t *testing.T) {
	a, _ := NewRate(sdkmath.OneInt(), 6)
	b, _ := NewRate(sdkmath.OneInt(), 8)
	if _, err := a.Delta(b); !errors.Is(err, ErrRateScaleMismatch) {
		t.Errorf("got %v, want ErrRateScaleMismatch", err)
	}
}

func TestZeroRateIsUnset(t *testing.T) {
	if ZeroRate().IsSet() {
		t.Error("zero rate reports set")
	}
	r, _ := NewRate(sdkmath.OneInt(), 0)
	if !r.IsSet() {
		t.Error("observed rate reports unset")
	}
}

func TestConfigValidate(t *testing.T) {
	base := RehypothecationConfig{TickLower: -60_000, TickUpper: 60_000, YieldTaxPips: 100_000, Treasury: "t"}
	if err := base.Validate(60); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cases := []struct {
		name    string
		mutate  func(c RehypothecationConfig) RehypothecationConfig
		spacing int32
		want    error
	}{
		{"reversed", func(c RehypothecationConfig) RehypothecationConfig { c.TickLower, c.TickUpper = c.TickUpper, c.TickLower; return c }, 60, ErrTickOrder},
		{"out of bounds", func(c RehypothecationConfig) RehypothecationConfig { c.TickUpper = MaxTick + 60; return c }, 60, ErrTickBounds},
		{"misaligned", func(c RehypothecationConfig) RehypothecationConfig { c.TickLower = -59_999; return c }, 60, ErrTickAlignment},
		{"bad spacing", func(c RehypothecationConfig) RehypothecationConfig { return c }, 0, ErrTickAlignment},
		{"tax over 100%", func(c RehypothecationConfig) RehypothecationConfig { c.YieldTaxPips = PipsDenominator + 1; return c }, 60, ErrTaxRateTooHigh},
	}
	for _, tc := range cases {
		if err := tc.mutate(base).Validate(tc.spacing); !errors.Is(err, tc.want) {
			t.Errorf("%s: got %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestCurrencyValidate(t *testing.T) {
	if err := (Currency{Denom: "uusdc", Decimals: 6}).Validate(); err != nil {
		t.Fatalf("valid currency rejected: %v", err)
	}
	if err := (Currency{Decimals: 6}).Validate(); !errors.Is(err, ErrEmptyDenom) {
		t.Errorf("empty denom: got %v", err)
	}
	if err := (Currency{Denom: "x", Decimals: 19}).Validate(); !errors.Is(err, ErrInvalidDecimals) {
		t.Errorf("decimals 19: got %v", err)
	}
}

func TestSkipPlan(t *testing.T) {
	p := SkipPlan()
	if p.ShouldExecute {
		t.Error("skip plan marked executable")
	}
	if !p.LiquidityDelta.IsZero() {
		t.Errorf("skip plan delta = %s", p.LiquidityDelta)
	}
}
