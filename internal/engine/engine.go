/*

This file contains the rehypothecation engine: share issuance and redemption
against per-currency yield vaults, rate-based yield-tax accrual, and the
just-in-time liquidity planner for the single pool this instance serves.

One engine instance serves exactly one pool. The pool binding is fixed at
construction and there is no pool-id keying anywhere below this point.

*/

package engine

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/yanisepfl/alphix-public-sub008/internal/liquidity"
	"github.com/yanisepfl/alphix-public-sub008/internal/logger"
	"github.com/yanisepfl/alphix-public-sub008/internal/poolctrl"
	"github.com/yanisepfl/alphix-public-sub008/internal/types"
	"github.com/yanisepfl/alphix-public-sub008/internal/yieldsource"
)

// binding is the per-currency yield source state. Mutated only by accrual,
// deposit, withdrawal, migration and tax collection, always under the engine
// lock.
type binding struct {
	adapter          yieldsource.Adapter
	sharesOwned      sdkmath.Int
	lastRecordedRate types.Rate
	accumulatedTax   sdkmath.Int
}

func newBinding() *binding {
	return &binding{
		sharesOwned:      sdkmath.ZeroInt(),
		lastRecordedRate: types.ZeroRate(),
		accumulatedTax:   sdkmath.ZeroInt(),
	}
}

// Engine is the rehypothecation accounting and JIT-liquidity-sizing engine
// for a single pool.
type Engine struct {
	mu     sync.Mutex
	logger zerolog.Logger

	pool      poolctrl.Controller
	currency0 types.Currency
	currency1 types.Currency
	account   string // The engine's own settlement account on the host ledger

	cfg        types.RehypothecationConfig
	configured bool
	active     bool

	bindings [2]*binding
	ledger   *shareLedger
	recorder Recorder
}

// Config holds everything needed to create an engine instance.
type Config struct {
	Pool      poolctrl.Controller
	Currency0 types.Currency
	Currency1 types.Currency
	Account   string
	Recorder  Recorder
}

// New creates an engine bound to a single pool. The binding is immutable for
// the lifetime of the instance.
func New(cfg Config) (*Engine, error) {
	if cfg.Pool == nil {
		return nil, errors.New("pool controller cannot be nil")
	}
	if err := cfg.Currency0.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Currency1.Validate(); err != nil {
		return nil, err
	}
	if cfg.Currency0.Denom == cfg.Currency1.Denom {
		return nil, fmt.Errorf("pool currencies must differ, both are %s", cfg.Currency0.Denom)
	}
	if cfg.Account == "" {
		return nil, errors.New("engine account cannot be empty")
	}
	rec := cfg.Recorder
	if rec == nil {
		rec = NopRecorder{}
	}

	return &Engine{
		logger:    logger.GetForComponent("rehyp_engine"),
		pool:      cfg.Pool,
		currency0: cfg.Currency0,
		currency1: cfg.Currency1,
		account:   cfg.Account,
		bindings:  [2]*binding{newBinding(), newBinding()},
		ledger:    newShareLedger(),
		active:    true,
		recorder:  rec,
	}, nil
}

// Configure sets (or updates) the shared tick range, tax rate and treasury.
// Must be called before any deposit or planning operation. Domain validity is
// checked here; who gets to call this is the caller's access-control problem.
func (e *Engine) Configure(cfg types.RehypothecationConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	spacing, err := e.pool.TickSpacing()
	if err != nil {
		return errors.Join(ErrPoolUnavailable, err)
	}
	if err := cfg.Validate(spacing); err != nil {
		return err
	}
	if cfg.Treasury == "" {
		return types.ErrEmptyTreasury
	}

	e.cfg = cfg
	e.configured = true
	e.logger.Info().
		Int32("tickLower", cfg.TickLower).
		Int32("tickUpper", cfg.TickUpper).
		Uint32("yieldTaxPips", cfg.YieldTaxPips).
		Str("treasury", cfg.Treasury).
		Msg("Engine configured")
	return nil
}

// Deactivate stops all state-mutating operations until Activate is called.
func (e *Engine) Deactivate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.active = false
}

func (e *Engine) Activate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.active = true
}

// SetYieldSource binds or migrates the yield source for one currency. When
// the existing binding holds a non-zero share balance, accrual runs first and
// then the full balance moves old vault -> engine account -> new vault in the
// same operation. A nil adapter is accepted only when there is nothing to
// migrate.
func (e *Engine) SetYieldSource(denom string, adapter yieldsource.Adapter) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.active {
		return ErrDeactivated
	}
	idx, err := e.currencyIndex(denom)
	if err != nil {
		return err
	}
	b := e.bindings[idx]

	if adapter == nil {
		if b.adapter != nil && b.sharesOwned.IsPositive() {
			return fmt.Errorf("%w: %s holds %s vault shares", ErrUnbindWithFunds, denom, b.sharesOwned)
		}
		b.adapter = nil
		b.lastRecordedRate = types.ZeroRate()
		return nil
	}

	if adapter.Currency().Denom != denom {
		return fmt.Errorf("%w: adapter serves %s, binding is for %s", ErrAdapterMismatch, adapter.Currency().Denom, denom)
	}

	if b.adapter != nil && b.sharesOwned.IsPositive() {
		if err := e.accrue(idx); err != nil {
			return err
		}
		assets, err := b.adapter.RedeemTo(b.sharesOwned, e.account)
		if err != nil {
			return err
		}
		b.sharesOwned = sdkmath.ZeroInt()
		newShares, err := adapter.DepositFrom(e.account, assets)
		if err != nil {
			// Park the funds back in the old vault so the binding stays
			// whole and the migration applies nothing.
			restored, rerr := b.adapter.DepositFrom(e.account, assets)
			if rerr != nil {
				e.logger.Error().
					Err(rerr).
					Str("denom", denom).
					Str("assets", assets.String()).
					Msg("Migration rollback failed; assets held on the engine account")
				return errors.Join(err, rerr)
			}
			b.sharesOwned = restored
			return err
		}
		b.sharesOwned = newShares
		e.logger.Info().
			Str("denom", denom).
			Str("migratedAssets", assets.String()).
			Str("newVaultShares", newShares.String()).
			Msg("Yield source migrated")
	}

	b.adapter = adapter

	// Rate tracking resets across a migration boundary so no yield is
	// mis-attributed between vaults.
	rate, err := e.observeRate(b)
	if err != nil {
		return err
	}
	b.lastRecordedRate = rate
	return nil
}

// Snapshot is a read-only view of the engine state for the status surface.
type Snapshot struct {
	Configured  bool                        `json:"configured"`
	Active      bool                        `json:"active"`
	Config      types.RehypothecationConfig `json:"config"`
	TotalSupply sdkmath.Int                 `json:"total_supply"`
	Bindings    [2]BindingSnapshot          `json:"bindings"`
}

type BindingSnapshot struct {
	Denom          string      `json:"denom"`
	Bound          bool        `json:"bound"`
	SharesOwned    sdkmath.Int `json:"shares_owned"`
	LastRate       types.Rate  `json:"last_recorded_rate"`
	AccumulatedTax sdkmath.Int `json:"accumulated_tax"`
	UserAvailable  sdkmath.Int `json:"user_available"`
}

// Status returns a snapshot of the engine's observable state.
func (e *Engine) Status() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := Snapshot{
		Configured:  e.configured,
		Active:      e.active,
		Config:      e.cfg,
		TotalSupply: e.ledger.TotalSupply(),
	}
	for i, b := range e.bindings {
		bs := BindingSnapshot{
			Denom:          e.currencyAt(i).Denom,
			Bound:          b.adapter != nil,
			SharesOwned:    b.sharesOwned,
			LastRate:       b.lastRecordedRate,
			AccumulatedTax: b.accumulatedTax,
			UserAvailable:  sdkmath.ZeroInt(),
		}
		if b.adapter != nil {
			if avail, err := e.userAvailable(i); err == nil {
				bs.UserAvailable = avail
			}
		}
		snap.Bindings[i] = bs
	}
	return snap
}

// BalanceOf returns a holder's share balance.
func (e *Engine) BalanceOf(holder string) sdkmath.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.BalanceOf(holder)
}

// TotalSupply returns the outstanding share supply.
func (e *Engine) TotalSupply() sdkmath.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.TotalSupply()
}

// --- internal helpers, callers hold e.mu ---

func (e *Engine) requireReady() error {
	if !e.configured {
		return ErrNotConfigured
	}
	if !e.active {
		return ErrDeactivated
	}
	return nil
}

func (e *Engine) currencyIndex(denom string) (int, error) {
	switch denom {
	case e.currency0.Denom:
		return 0, nil
	case e.currency1.Denom:
		return 1, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnknownCurrency, denom)
	}
}

func (e *Engine) currencyAt(idx int) types.Currency {
	if idx == 0 {
		return e.currency0
	}
	return e.currency1
}

// userAvailable is the depositor-claimable backing for one currency:
// vault value of owned shares minus unswept tax, clamped at zero.
func (e *Engine) userAvailable(idx int) (sdkmath.Int, error) {
	b := e.bindings[idx]
	if b.adapter == nil {
		return sdkmath.ZeroInt(), nil
	}
	assets, err := b.adapter.ConvertToAssets(b.sharesOwned)
	if err != nil {
		return sdkmath.Int{}, err
	}
	avail := assets.Sub(b.accumulatedTax)
	if avail.IsNegative() {
		return sdkmath.ZeroInt(), nil
	}
	return avail, nil
}

// rangeBounds returns the configured range as sqrt ratios.
func (e *Engine) rangeBounds() (*big.Int, *big.Int, error) {
	sqrtA, err := liquidity.SqrtRatioAtTick(e.cfg.TickLower)
	if err != nil {
		return nil, nil, err
	}
	sqrtB, err := liquidity.SqrtRatioAtTick(e.cfg.TickUpper)
	if err != nil {
		return nil, nil, err
	}
	return sqrtA, sqrtB, nil
}
