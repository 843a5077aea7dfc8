/*

This file contains the rate-based yield-tax accrual. Yield is measured as the
positive rate delta since the last observation, scaled by the vault shares the
engine owns; a configurable slice of it is set aside as protocol tax before
depositors can claim it.

*/

package engine

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/yanisepfl/alphix-public-sub008/internal/types"
)

// observeRate reads the value of one normalized share unit from the bound
// vault, scaled by the vault's own precision.
func (e *Engine) observeRate(b *binding) (types.Rate, error) {
	if b.adapter == nil {
		return types.Rate{}, ErrNoBinding
	}
	decimals, err := b.adapter.Decimals()
	if err != nil {
		return types.Rate{}, err
	}
	unit, err := types.NewRate(sdkmath.OneInt(), decimals)
	if err != nil {
		return types.Rate{}, err
	}
	value, err := b.adapter.ConvertToAssets(unit.Scale)
	if err != nil {
		return types.Rate{}, err
	}
	return types.Rate{Value: value, Scale: unit.Scale}, nil
}

// taxableYield measures yield since the last observation. This is
// deliberately NOT a high-water mark: the observation point always advances,
// so a rate drop followed by a recovery to the old high is measured (and
// taxed) again. Isolated here so changing that policy is a one-function edit.
func taxableYield(current, last types.Rate, sharesOwned sdkmath.Int) (sdkmath.Int, error) {
	delta, err := current.Delta(last)
	if err != nil {
		return sdkmath.Int{}, err
	}
	if delta.IsZero() || sharesOwned.IsZero() {
		return sdkmath.ZeroInt(), nil
	}
	return delta.Mul(sharesOwned).Quo(current.Scale), nil
}

// accrue brings one currency's tax counter up to the freshest rate. Caller
// holds e.mu. Unbound currencies are a no-op.
func (e *Engine) accrue(idx int) error {
	b := e.bindings[idx]
	if b.adapter == nil {
		return nil
	}

	current, err := e.observeRate(b)
	if err != nil {
		return err
	}

	// First observation for this binding just records the baseline.
	if !b.lastRecordedRate.IsSet() {
		b.lastRecordedRate = current
		return nil
	}

	yield, err := taxableYield(current, b.lastRecordedRate, b.sharesOwned)
	if err != nil {
		return err
	}

	if yield.IsPositive() {
		tax := yield.MulRaw(int64(e.cfg.YieldTaxPips)).QuoRaw(types.PipsDenominator)
		b.accumulatedTax = b.accumulatedTax.Add(tax)
		denom := e.currencyAt(idx).Denom
		e.recorder.RecordAccrual(denom, yield, tax, current)
		e.logger.Debug().
			Str("denom", denom).
			Str("yield", yield.String()).
			Str("tax", tax.String()).
			Str("rate", current.String()).
			Msg("Yield accrued")
	}

	// The observation point advances unconditionally, including on a drop.
	b.lastRecordedRate = current
	return nil
}

// Accrue brings both currencies' tax counters up to the freshest rates.
// Every mutating operation already accrues on entry; this exists for the
// service loop, which accrues on a timer so tax does not sit unmeasured
// between operations.
func (e *Engine) Accrue() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireReady(); err != nil {
		return err
	}
	return e.accrueBoth()
}

// accrueBoth runs accrual for both pool currencies, bound ones only.
func (e *Engine) accrueBoth() error {
	if err := e.accrue(0); err != nil {
		return err
	}
	return e.accrue(1)
}

// CollectTax re-accrues, then sweeps exactly the accumulated tax for one
// currency from its vault to the configured treasury and re-observes the
// rate.
func (e *Engine) CollectTax(denom string) (sdkmath.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireReady(); err != nil {
		return sdkmath.Int{}, err
	}
	idx, err := e.currencyIndex(denom)
	if err != nil {
		return sdkmath.Int{}, err
	}
	b := e.bindings[idx]
	if b.adapter == nil {
		return sdkmath.Int{}, fmt.Errorf("%w: %s", ErrNoBinding, denom)
	}

	if err := e.accrue(idx); err != nil {
		return sdkmath.Int{}, err
	}
	if !b.accumulatedTax.IsPositive() {
		return sdkmath.Int{}, errors.Join(ErrNothingToSweep, fmt.Errorf("currency %s", denom))
	}

	// Zero the counter before the external withdrawal.
	amount := b.accumulatedTax
	b.accumulatedTax = sdkmath.ZeroInt()

	sharesRedeemed, err := b.adapter.WithdrawTo(amount, e.cfg.Treasury)
	if err != nil {
		// Nothing left the vault, so the tax stays owed.
		b.accumulatedTax = amount
		return sdkmath.Int{}, err
	}
	b.sharesOwned = b.sharesOwned.Sub(sharesRedeemed)

	// The sweep itself is done at this point. A failed re-observation just
	// leaves the baseline where it was; the next accrual advances it.
	if rate, err := e.observeRate(b); err != nil {
		e.logger.Warn().Err(err).Str("denom", denom).Msg("Rate re-observation after sweep failed")
	} else {
		b.lastRecordedRate = rate
	}

	e.recorder.RecordTaxCollection(denom, amount, e.cfg.Treasury)
	e.logger.Info().
		Str("denom", denom).
		Str("amount", amount.String()).
		Str("treasury", e.cfg.Treasury).
		Msg("Tax collected")
	return amount, nil
}
