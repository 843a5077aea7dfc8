/*

This file defines the wire messages for the pool-controller query and
execution service. The messages mirror the controller's protobuf schema and
marshal through gogoproto's tag-based reflection, the same encoding the
controller's own generated types use.

*/

package poolctrl

import (
	sdkmath "cosmossdk.io/math"
)

// QueryPoolStateRequest asks for the pool's current price and tick spacing.
type QueryPoolStateRequest struct{}

func (m *QueryPoolStateRequest) Reset()         { *m = QueryPoolStateRequest{} }
func (m *QueryPoolStateRequest) String() string { return "QueryPoolStateRequest{}" }
func (*QueryPoolStateRequest) ProtoMessage()    {}

type QueryPoolStateResponse struct {
	SqrtPriceX96 sdkmath.Int `protobuf:"bytes,1,opt,name=sqrt_price_x96,json=sqrtPriceX96,proto3,customtype=cosmossdk.io/math.Int" json:"sqrt_price_x96"`
	TickSpacing  int32       `protobuf:"varint,2,opt,name=tick_spacing,json=tickSpacing,proto3" json:"tick_spacing,omitempty"`
}

func (m *QueryPoolStateResponse) Reset()         { *m = QueryPoolStateResponse{} }
func (m *QueryPoolStateResponse) String() string { return m.SqrtPriceX96.String() }
func (*QueryPoolStateResponse) ProtoMessage()    {}

// QueryPositionRequest asks for one owner's liquidity in one tick range.
type QueryPositionRequest struct {
	Owner     string `protobuf:"bytes,1,opt,name=owner,proto3" json:"owner,omitempty"`
	TickLower int32  `protobuf:"varint,2,opt,name=tick_lower,json=tickLower,proto3" json:"tick_lower,omitempty"`
	TickUpper int32  `protobuf:"varint,3,opt,name=tick_upper,json=tickUpper,proto3" json:"tick_upper,omitempty"`
}

func (m *QueryPositionRequest) Reset()         { *m = QueryPositionRequest{} }
func (m *QueryPositionRequest) String() string { return m.Owner }
func (*QueryPositionRequest) ProtoMessage()    {}

type QueryPositionResponse struct {
	Liquidity sdkmath.Int `protobuf:"bytes,1,opt,name=liquidity,proto3,customtype=cosmossdk.io/math.Int" json:"liquidity"`
}

func (m *QueryPositionResponse) Reset()         { *m = QueryPositionResponse{} }
func (m *QueryPositionResponse) String() string { return m.Liquidity.String() }
func (*QueryPositionResponse) ProtoMessage()    {}

// MsgModifyLiquidity requests a liquidity change in one tick range,
// settled against the owner's account.
type MsgModifyLiquidity struct {
	Owner          string      `protobuf:"bytes,1,opt,name=owner,proto3" json:"owner,omitempty"`
	TickLower      int32       `protobuf:"varint,2,opt,name=tick_lower,json=tickLower,proto3" json:"tick_lower,omitempty"`
	TickUpper      int32       `protobuf:"varint,3,opt,name=tick_upper,json=tickUpper,proto3" json:"tick_upper,omitempty"`
	LiquidityDelta sdkmath.Int `protobuf:"bytes,4,opt,name=liquidity_delta,json=liquidityDelta,proto3,customtype=cosmossdk.io/math.Int" json:"liquidity_delta"`
}

func (m *MsgModifyLiquidity) Reset()         { *m = MsgModifyLiquidity{} }
func (m *MsgModifyLiquidity) String() string { return m.Owner }
func (*MsgModifyLiquidity) ProtoMessage()    {}

type MsgModifyLiquidityResponse struct {
	Amount0 sdkmath.Int `protobuf:"bytes,1,opt,name=amount0,proto3,customtype=cosmossdk.io/math.Int" json:"amount0"`
	Amount1 sdkmath.Int `protobuf:"bytes,2,opt,name=amount1,proto3,customtype=cosmossdk.io/math.Int" json:"amount1"`
}

func (m *MsgModifyLiquidityResponse) Reset()         { *m = MsgModifyLiquidityResponse{} }
func (m *MsgModifyLiquidityResponse) String() string { return m.Amount0.String() }
func (*MsgModifyLiquidityResponse) ProtoMessage()    {}
