// ./internal/state/event_store.go
package state

import (
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/rs/zerolog/log"

	"github.com/yanisepfl/alphix-public-sub008/internal/types"
)

// Store persists engine events to Postgres. It satisfies the engine's
// Recorder interface; failures are logged and swallowed because a dead
// database must never abort an accounting operation.
type Store struct{}

// NewStore returns a Store. InitDB and EnsureSchema must have run first.
func NewStore() (*Store, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	return &Store{}, nil
}

func (s *Store) RecordAccrual(denom string, yield, tax sdkmath.Int, rate types.Rate) {
	query := `
		INSERT INTO accrual_events (denom, yield_amount, tax_amount, rate_value, rate_scale)
		VALUES ($1, $2, $3, $4, $5);
	`
	_, err := DB.Exec(query, denom, yield.String(), tax.String(), rate.Value.String(), rate.Scale.String())
	if err != nil {
		log.Error().Err(err).Str("denom", denom).Msg("Failed to record accrual event")
	}
}

func (s *Store) RecordTaxCollection(denom string, amount sdkmath.Int, treasury string) {
	coin := sdk.NewCoin(denom, amount)
	query := `
		INSERT INTO tax_collections (collected_coin, treasury)
		VALUES ($1, $2);
	`
	_, err := DB.Exec(query, coin.String(), treasury)
	if err != nil {
		log.Error().Err(err).Str("coin", coin.String()).Msg("Failed to record tax collection")
	}
}

func (s *Store) RecordSupply(op, holder string, shares, totalSupply sdkmath.Int) {
	query := `
		INSERT INTO supply_events (op, holder, shares, total_supply)
		VALUES ($1, $2, $3, $4);
	`
	_, err := DB.Exec(query, op, holder, shares.String(), totalSupply.String())
	if err != nil {
		log.Error().Err(err).Str("op", op).Str("holder", holder).Msg("Failed to record supply event")
	}
}

func (s *Store) RecordJit(phase string, plan types.JitPlan, delta types.BalanceDelta) {
	liq := "0"
	if !plan.LiquidityDelta.IsNil() {
		liq = plan.LiquidityDelta.String()
	}
	query := `
		INSERT INTO jit_events (phase, executed, tick_lower, tick_upper, liquidity_delta, amount0, amount1)
		VALUES ($1, $2, $3, $4, $5, $6, $7);
	`
	_, err := DB.Exec(query, phase, plan.ShouldExecute, plan.TickLower, plan.TickUpper,
		liq, delta.Amount0.String(), delta.Amount1.String())
	if err != nil {
		log.Error().Err(err).Str("phase", phase).Msg("Failed to record JIT event")
	}
}

// AccrualEvent is a persisted accrual row, re-read for the status surface.
type AccrualEvent struct {
	EventID     int64     `json:"event_id"`
	Timestamp   time.Time `json:"timestamp"`
	Denom       string    `json:"denom"`
	YieldAmount string    `json:"yield_amount"`
	TaxAmount   string    `json:"tax_amount"`
	RateValue   string    `json:"rate_value"`
	RateScale   string    `json:"rate_scale"`
}

// RecentAccruals returns the newest accrual events, newest first.
func RecentAccruals(limit int) ([]AccrualEvent, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	query := `
		SELECT event_id, event_timestamp, denom, yield_amount, tax_amount, rate_value, rate_scale
		FROM accrual_events
		ORDER BY event_timestamp DESC
		LIMIT $1;
	`
	rows, err := DB.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query accrual events: %w", err)
	}
	defer rows.Close()

	var events []AccrualEvent
	for rows.Next() {
		var ev AccrualEvent
		if err := rows.Scan(&ev.EventID, &ev.Timestamp, &ev.Denom,
			&ev.YieldAmount, &ev.TaxAmount, &ev.RateValue, &ev.RateScale); err != nil {
			return nil, fmt.Errorf("failed to scan accrual event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// TaxCollection is a persisted treasury sweep row.
type TaxCollection struct {
	CollectionID int64     `json:"collection_id"`
	Timestamp    time.Time `json:"timestamp"`
	Coin         string    `json:"coin"`
	Treasury     string    `json:"treasury"`
}

// RecentTaxCollections returns the newest treasury sweeps, newest first.
func RecentTaxCollections(limit int) ([]TaxCollection, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	query := `
		SELECT collection_id, collection_timestamp, collected_coin, treasury
		FROM tax_collections
		ORDER BY collection_timestamp DESC
		LIMIT $1;
	`
	rows, err := DB.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query tax collections: %w", err)
	}
	defer rows.Close()

	var collections []TaxCollection
	for rows.Next() {
		var tc TaxCollection
		if err := rows.Scan(&tc.CollectionID, &tc.Timestamp, &tc.Coin, &tc.Treasury); err != nil {
			return nil, fmt.Errorf("failed to scan tax collection: %w", err)
		}
		collections = append(collections, tc)
	}
	return collections, rows.Err()
}

// JitEvent is a persisted JIT add/remove row.
type JitEvent struct {
	EventID        int64     `json:"event_id"`
	Timestamp      time.Time `json:"timestamp"`
	Phase          string    `json:"phase"`
	Executed       bool      `json:"executed"`
	TickLower      int32     `json:"tick_lower"`
	TickUpper      int32     `json:"tick_upper"`
	LiquidityDelta string    `json:"liquidity_delta"`
	Amount0        string    `json:"amount0"`
	Amount1        string    `json:"amount1"`
}

// RecentJitEvents returns the newest JIT events, newest first.
func RecentJitEvents(limit int) ([]JitEvent, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	query := `
		SELECT event_id, event_timestamp, phase, executed, tick_lower, tick_upper, liquidity_delta, amount0, amount1
		FROM jit_events
		ORDER BY event_timestamp DESC
		LIMIT $1;
	`
	rows, err := DB.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query jit events: %w", err)
	}
	defer rows.Close()

	var events []JitEvent
	for rows.Next() {
		var ev JitEvent
		if err := rows.Scan(&ev.EventID, &ev.Timestamp, &ev.Phase, &ev.Executed,
			&ev.TickLower, &ev.TickUpper, &ev.LiquidityDelta, &ev.Amount0, &ev.Amount1); err != nil {
			return nil, fmt.Errorf("failed to scan jit event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
