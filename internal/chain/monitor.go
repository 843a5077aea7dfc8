/*

This file contains the host-chain health monitor. Live mode refuses to run
accrual and tax-collection cycles against a node that is still catching up
or serving stale blocks, since a stale node means stale vault rates.

*/

package chain

import (
	"context"
	"errors"
	"fmt"
	"time"

	rpchttp "github.com/cometbft/cometbft/rpc/client/http"
	"github.com/rs/zerolog"

	"github.com/yanisepfl/alphix-public-sub008/internal/logger"
)

var (
	ErrNodeCatchingUp  = errors.New("node is catching up")
	ErrNodeStale       = errors.New("node latest block is stale")
	ErrNodeUnreachable = errors.New("node status query failed")
)

// maxBlockAge is how old the latest block may be before the node is
// considered stale.
const maxBlockAge = 2 * time.Minute

// Monitor checks a CometBFT node's sync status.
type Monitor struct {
	client *rpchttp.HTTP
	logger zerolog.Logger
}

// NewMonitor connects to the node's RPC endpoint.
func NewMonitor(nodeRPC string) (*Monitor, error) {
	if nodeRPC == "" {
		return nil, errors.New("node RPC endpoint cannot be empty")
	}
	client, err := rpchttp.New(nodeRPC, "/websocket")
	if err != nil {
		return nil, fmt.Errorf("failed to create RPC client: %w", err)
	}
	return &Monitor{
		client: client,
		logger: logger.GetForComponent("chain_monitor"),
	}, nil
}

// CheckSynced returns nil only when the node is reachable, fully synced and
// serving a recent block.
func (m *Monitor) CheckSynced(ctx context.Context) error {
	status, err := m.client.Status(ctx)
	if err != nil {
		return errors.Join(ErrNodeUnreachable, err)
	}
	if status.SyncInfo.CatchingUp {
		return fmt.Errorf("%w: at height %d", ErrNodeCatchingUp, status.SyncInfo.LatestBlockHeight)
	}
	age := time.Since(status.SyncInfo.LatestBlockTime)
	if age > maxBlockAge {
		return fmt.Errorf("%w: latest block %s old", ErrNodeStale, age.Round(time.Second))
	}
	m.logger.Debug().
		Int64("height", status.SyncInfo.LatestBlockHeight).
		Dur("blockAge", age).
		Msg("Node healthy")
	return nil
}
