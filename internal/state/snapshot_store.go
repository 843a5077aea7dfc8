// ./internal/state/snapshot_store.go
package state

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/yanisepfl/alphix-public-sub008/internal/engine"
)

// SaveEngineSnapshot persists a full engine status snapshot as JSONB.
func SaveEngineSnapshot(snapshot engine.Snapshot) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	snapshotJSON, err := json.Marshal(snapshot)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal engine snapshot: %w", err)
	}

	query := `
		INSERT INTO engine_snapshots (snapshot)
		VALUES ($1)
		RETURNING snapshot_id;
	`

	var snapshotID int64
	err = DB.QueryRow(query, snapshotJSON).Scan(&snapshotID)
	if err != nil {
		return 0, fmt.Errorf("failed to save engine snapshot: %w", err)
	}

	log.Info().
		Int64("snapshot_id", snapshotID).
		Str("total_supply", snapshot.TotalSupply.String()).
		Msg("Engine snapshot saved to database")

	return snapshotID, nil
}

// StoredSnapshot pairs a persisted snapshot with its row metadata.
type StoredSnapshot struct {
	SnapshotID int64           `json:"snapshot_id"`
	Timestamp  time.Time       `json:"timestamp"`
	Snapshot   engine.Snapshot `json:"snapshot"`
}

// LatestEngineSnapshot returns the most recently persisted snapshot.
func LatestEngineSnapshot() (*StoredSnapshot, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
		SELECT snapshot_id, snapshot_timestamp, snapshot
		FROM engine_snapshots
		ORDER BY snapshot_timestamp DESC
		LIMIT 1;
	`

	var stored StoredSnapshot
	var raw []byte
	err := DB.QueryRow(query).Scan(&stored.SnapshotID, &stored.Timestamp, &raw)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest engine snapshot: %w", err)
	}
	if err := json.Unmarshal(raw, &stored.Snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal engine snapshot: %w", err)
	}
	return &stored, nil
}
