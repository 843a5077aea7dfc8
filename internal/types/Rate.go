/*

This file contains the fixed-point rate type used for yield measurement.
A rate is the value of one normalized vault share unit in underlying assets,
carried together with its own scale so that vaults with differing precision
never get mixed up against a global scale.

*/

package types

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"
)

var (
	ErrRateNil           = errors.New("rate is nil")
	ErrRateScaleMismatch = errors.New("rate scales do not match")
	ErrRateScaleInvalid  = errors.New("rate scale must be positive")
)

// Rate is an explicit fixed-point pair: Value underlying base units per
// Scale vault share base units. Scale is 10^decimals of the vault.
type Rate struct {
	Value sdkmath.Int `json:"value"`
	Scale sdkmath.Int `json:"scale"`
}

// NewRate builds a rate from a raw value and the vault's decimal precision.
func NewRate(value sdkmath.Int, decimals int) (Rate, error) {
	if value.IsNil() {
		return Rate{}, ErrRateNil
	}
	if decimals < 0 || decimals > 18 {
		return Rate{}, fmt.Errorf("%w: decimals %d", ErrRateScaleInvalid, decimals)
	}
	scale := sdkmath.OneInt()
	ten := sdkmath.NewInt(10)
	for i := 0; i < decimals; i++ {
		scale = scale.Mul(ten)
	}
	return Rate{Value: value, Scale: scale}, nil
}

// ZeroRate returns an unset rate observation.
func ZeroRate() Rate {
	return Rate{Value: sdkmath.ZeroInt(), Scale: sdkmath.OneInt()}
}

// IsSet reports whether the rate has ever been observed.
func (r Rate) IsSet() bool {
	return !r.Value.IsNil() && r.Value.IsPositive()
}

// Delta returns max(0, r - prev). Scales must match; a binding migration
// resets the observation instead of comparing across scales.
func (r Rate) Delta(prev Rate) (sdkmath.Int, error) {
	if r.Value.IsNil() || prev.Value.IsNil() {
		return sdkmath.Int{}, ErrRateNil
	}
	if !r.Scale.Equal(prev.Scale) {
		return sdkmath.Int{}, fmt.Errorf("%w: %s vs %s", ErrRateScaleMismatch, r.Scale, prev.Scale)
	}
	d := r.Value.Sub(prev.Value)
	if d.IsNegative() {
		return sdkmath.ZeroInt(), nil
	}
	return d, nil
}

func (r Rate) String() string {
	if r.Value.IsNil() || r.Scale.IsNil() {
		return "<nil>"
	}
	return r.Value.String() + "/" + r.Scale.String()
}
