/*

This file implements the pool controller interface against a live
controller service over gRPC. All calls go through a persistent connection
validated at construction time; a controller that cannot report its pool
state is rejected up front rather than discovered mid-operation.

*/

package poolctrl

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/gogo/protobuf/proto"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"

	"github.com/yanisepfl/alphix-public-sub008/internal/logger"
	"github.com/yanisepfl/alphix-public-sub008/internal/types"
)

// Error definitions for zero-tolerance error handling
var (
	ErrInvalidConnection = errors.New("connection is invalid")
	ErrInvalidResponse   = errors.New("response data is invalid")
	ErrRequestFailed     = errors.New("pool controller request failed")
)

const (
	poolStateMethod       = "/alphix.poolctrl.v1.Query/PoolState"
	positionMethod        = "/alphix.poolctrl.v1.Query/Position"
	modifyLiquidityMethod = "/alphix.poolctrl.v1.Msg/ModifyLiquidity"

	requestTimeout = 10 * time.Second
)

// gogoCodec marshals gogoproto messages over grpc, the way the controller's
// generated client stubs would.
type gogoCodec struct{}

func (gogoCodec) Marshal(v interface{}) ([]byte, error) {
	msg, ok := v.(proto.Message)
	if !ok {
		return nil, fmt.Errorf("cannot marshal %T: not a proto message", v)
	}
	return proto.Marshal(msg)
}

func (gogoCodec) Unmarshal(data []byte, v interface{}) error {
	msg, ok := v.(proto.Message)
	if !ok {
		return fmt.Errorf("cannot unmarshal into %T: not a proto message", v)
	}
	return proto.Unmarshal(data, msg)
}

func (gogoCodec) Name() string { return encoding.GetCodec("proto").Name() }

// Dial opens a gRPC connection to a pool controller endpoint, with TLS for
// :443 endpoints and plaintext otherwise.
func Dial(endpoint string) (*grpc.ClientConn, error) {
	if endpoint == "" {
		return nil, errors.Join(ErrInvalidConnection, errors.New("endpoint cannot be empty"))
	}
	var creds grpc.DialOption
	if strings.Contains(endpoint, ":443") {
		creds = grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{}))
	} else {
		creds = grpc.WithTransportCredentials(insecure.NewCredentials())
	}
	return grpc.Dial(endpoint, creds)
}

// LiveController talks to a running pool controller service.
type LiveController struct {
	conn   *grpc.ClientConn
	logger zerolog.Logger
}

// NewLiveController wraps an established connection. The controller must
// answer a pool-state query before the constructor returns.
func NewLiveController(conn *grpc.ClientConn) (*LiveController, error) {
	if err := validateConnection(conn); err != nil {
		return nil, errors.Join(ErrInvalidConnection, err)
	}

	c := &LiveController{
		conn:   conn,
		logger: logger.GetForComponent("pool_controller"),
	}

	// Probe the controller once up front.
	if _, err := c.poolState(); err != nil {
		return nil, errors.Join(ErrInvalidConnection, fmt.Errorf("pool state probe failed: %w", err))
	}

	c.logger.Info().Str("target", conn.Target()).Msg("Pool controller connected")
	return c, nil
}

func validateConnection(conn *grpc.ClientConn) error {
	if conn == nil {
		return errors.New("gRPC connection is nil")
	}
	state := conn.GetState()
	if state == connectivity.Shutdown {
		return errors.New("gRPC connection is shutdown")
	}
	if state == connectivity.TransientFailure {
		return errors.New("gRPC connection is in transient failure state")
	}
	return nil
}

func (c *LiveController) invoke(method string, req, resp proto.Message) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	err := c.conn.Invoke(ctx, method, req, resp, grpc.ForceCodec(gogoCodec{}))
	if err != nil {
		return errors.Join(ErrRequestFailed, fmt.Errorf("%s: %w", method, err))
	}
	return nil
}

func (c *LiveController) poolState() (*QueryPoolStateResponse, error) {
	var resp QueryPoolStateResponse
	if err := c.invoke(poolStateMethod, &QueryPoolStateRequest{}, &resp); err != nil {
		return nil, err
	}
	if resp.SqrtPriceX96.IsNil() || !resp.SqrtPriceX96.IsPositive() {
		return nil, errors.Join(ErrInvalidResponse, errors.New("controller reported non-positive sqrt price"))
	}
	if resp.TickSpacing <= 0 {
		return nil, errors.Join(ErrInvalidResponse, fmt.Errorf("controller reported tick spacing %d", resp.TickSpacing))
	}
	return &resp, nil
}

// CurrentPrice returns the pool's sqrt price in Q64.96.
func (c *LiveController) CurrentPrice() (*big.Int, error) {
	resp, err := c.poolState()
	if err != nil {
		return nil, err
	}
	return resp.SqrtPriceX96.BigInt(), nil
}

// TickSpacing returns the pool's tick spacing.
func (c *LiveController) TickSpacing() (int32, error) {
	resp, err := c.poolState()
	if err != nil {
		return 0, err
	}
	return resp.TickSpacing, nil
}

// PositionLiquidity returns the owner's liquidity over one tick range.
func (c *LiveController) PositionLiquidity(owner string, tickLower, tickUpper int32) (sdkmath.Int, error) {
	req := &QueryPositionRequest{Owner: owner, TickLower: tickLower, TickUpper: tickUpper}
	var resp QueryPositionResponse
	if err := c.invoke(positionMethod, req, &resp); err != nil {
		return sdkmath.Int{}, err
	}
	if resp.Liquidity.IsNil() || resp.Liquidity.IsNegative() {
		return sdkmath.Int{}, errors.Join(ErrInvalidResponse, errors.New("controller reported invalid position liquidity"))
	}
	return resp.Liquidity, nil
}

// ModifyLiquidity submits a liquidity change and returns the settled
// balance delta from the owner's perspective.
func (c *LiveController) ModifyLiquidity(owner string, tickLower, tickUpper int32, delta sdkmath.Int) (types.BalanceDelta, error) {
	req := &MsgModifyLiquidity{Owner: owner, TickLower: tickLower, TickUpper: tickUpper, LiquidityDelta: delta}
	var resp MsgModifyLiquidityResponse
	if err := c.invoke(modifyLiquidityMethod, req, &resp); err != nil {
		return types.BalanceDelta{}, err
	}
	if resp.Amount0.IsNil() || resp.Amount1.IsNil() {
		return types.BalanceDelta{}, errors.Join(ErrInvalidResponse, errors.New("controller returned nil settlement amounts"))
	}
	c.logger.Debug().
		Str("owner", owner).
		Str("liquidityDelta", delta.String()).
		Str("amount0", resp.Amount0.String()).
		Str("amount1", resp.Amount1.String()).
		Msg("Liquidity modified")
	return types.BalanceDelta{Amount0: resp.Amount0, Amount1: resp.Amount1}, nil
}
