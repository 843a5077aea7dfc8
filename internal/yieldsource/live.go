/*

This file implements the Vault capability against a live vault service.
Reads go through the node's abci_query JSON-RPC endpoint, the cheapest
query surface the host exposes; state-changing calls go through gRPC on a
persistent connection. Asset denom and decimals are probed once at
construction and never change for a deployed vault.

*/

package yieldsource

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/gogo/protobuf/proto"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/encoding"

	"github.com/yanisepfl/alphix-public-sub008/internal/logger"
)

// Error definitions for zero-tolerance error handling
var (
	ErrInvalidConnection = errors.New("connection is invalid")
	ErrRPCRequestFailed  = errors.New("RPC request failed")
	ErrInvalidResponse   = errors.New("response data is invalid")
)

const (
	rpcTimeout = 20 * time.Second

	convertToAssetsPath = "/alphix.vault.v1.Query/ConvertToAssets"
	vaultInfoPath       = "/alphix.vault.v1.Query/VaultInfo"

	depositMethod  = "/alphix.vault.v1.Msg/Deposit"
	withdrawMethod = "/alphix.vault.v1.Msg/Withdraw"
	redeemMethod   = "/alphix.vault.v1.Msg/Redeem"
)

// --- JSON-RPC Structures ---

// JSONRPCRequest defines the structure of a JSON-RPC request.
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Method  string          `json:"method"`
	Params  ABCIQueryParams `json:"params"`
}

// ABCIQueryParams defines the parameters for the "abci_query" method.
type ABCIQueryParams struct {
	Path   string `json:"path"`
	Data   string `json:"data"` // Hex-encoded string
	Height string `json:"height,omitempty"`
	Prove  bool   `json:"prove,omitempty"`
}

// JSONRPCResponse defines the structure of a JSON-RPC response.
type JSONRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  ABCIQueryResult `json:"result,omitempty"`
	Error   *JSONRPCError   `json:"error,omitempty"`
}

// ABCIQueryResult defines the structure of the "result" field for "abci_query".
type ABCIQueryResult struct {
	Response struct {
		Log    string `json:"log"`
		Key    string `json:"key"`   // Base64 encoded
		Value  string `json:"value"` // Base64 encoded
		Height string `json:"height"`
		Code   uint32 `json:"code"`
	} `json:"response"`
}

// JSONRPCError defines the structure of a JSON-RPC error.
type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

// --- Wire messages ---

type QueryVaultInfoRequest struct{}

func (m *QueryVaultInfoRequest) Reset()         { *m = QueryVaultInfoRequest{} }
func (m *QueryVaultInfoRequest) String() string { return "QueryVaultInfoRequest{}" }
func (*QueryVaultInfoRequest) ProtoMessage()    {}

type QueryVaultInfoResponse struct {
	AssetDenom string `protobuf:"bytes,1,opt,name=asset_denom,json=assetDenom,proto3" json:"asset_denom,omitempty"`
	Decimals   uint32 `protobuf:"varint,2,opt,name=decimals,proto3" json:"decimals,omitempty"`
}

func (m *QueryVaultInfoResponse) Reset()         { *m = QueryVaultInfoResponse{} }
func (m *QueryVaultInfoResponse) String() string { return m.AssetDenom }
func (*QueryVaultInfoResponse) ProtoMessage()    {}

type QueryConvertToAssetsRequest struct {
	Shares sdkmath.Int `protobuf:"bytes,1,opt,name=shares,proto3,customtype=cosmossdk.io/math.Int" json:"shares"`
}

func (m *QueryConvertToAssetsRequest) Reset()         { *m = QueryConvertToAssetsRequest{} }
func (m *QueryConvertToAssetsRequest) String() string { return m.Shares.String() }
func (*QueryConvertToAssetsRequest) ProtoMessage()    {}

type QueryConvertToAssetsResponse struct {
	Assets sdkmath.Int `protobuf:"bytes,1,opt,name=assets,proto3,customtype=cosmossdk.io/math.Int" json:"assets"`
}

func (m *QueryConvertToAssetsResponse) Reset()         { *m = QueryConvertToAssetsResponse{} }
func (m *QueryConvertToAssetsResponse) String() string { return m.Assets.String() }
func (*QueryConvertToAssetsResponse) ProtoMessage()    {}

type MsgDeposit struct {
	Assets sdkmath.Int `protobuf:"bytes,1,opt,name=assets,proto3,customtype=cosmossdk.io/math.Int" json:"assets"`
}

func (m *MsgDeposit) Reset()         { *m = MsgDeposit{} }
func (m *MsgDeposit) String() string { return m.Assets.String() }
func (*MsgDeposit) ProtoMessage()    {}

type MsgDepositResponse struct {
	Shares sdkmath.Int `protobuf:"bytes,1,opt,name=shares,proto3,customtype=cosmossdk.io/math.Int" json:"shares"`
}

func (m *MsgDepositResponse) Reset()         { *m = MsgDepositResponse{} }
func (m *MsgDepositResponse) String() string { return m.Shares.String() }
func (*MsgDepositResponse) ProtoMessage()    {}

type MsgWithdraw struct {
	Assets    sdkmath.Int `protobuf:"bytes,1,opt,name=assets,proto3,customtype=cosmossdk.io/math.Int" json:"assets"`
	Recipient string      `protobuf:"bytes,2,opt,name=recipient,proto3" json:"recipient,omitempty"`
	Owner     string      `protobuf:"bytes,3,opt,name=owner,proto3" json:"owner,omitempty"`
}

func (m *MsgWithdraw) Reset()         { *m = MsgWithdraw{} }
func (m *MsgWithdraw) String() string { return m.Assets.String() }
func (*MsgWithdraw) ProtoMessage()    {}

type MsgWithdrawResponse struct {
	SharesRedeemed sdkmath.Int `protobuf:"bytes,1,opt,name=shares_redeemed,json=sharesRedeemed,proto3,customtype=cosmossdk.io/math.Int" json:"shares_redeemed"`
}

func (m *MsgWithdrawResponse) Reset()         { *m = MsgWithdrawResponse{} }
func (m *MsgWithdrawResponse) String() string { return m.SharesRedeemed.String() }
func (*MsgWithdrawResponse) ProtoMessage()    {}

type MsgRedeem struct {
	Shares    sdkmath.Int `protobuf:"bytes,1,opt,name=shares,proto3,customtype=cosmossdk.io/math.Int" json:"shares"`
	Recipient string      `protobuf:"bytes,2,opt,name=recipient,proto3" json:"recipient,omitempty"`
	Owner     string      `protobuf:"bytes,3,opt,name=owner,proto3" json:"owner,omitempty"`
}

func (m *MsgRedeem) Reset()         { *m = MsgRedeem{} }
func (m *MsgRedeem) String() string { return m.Shares.String() }
func (*MsgRedeem) ProtoMessage()    {}

type MsgRedeemResponse struct {
	Assets sdkmath.Int `protobuf:"bytes,1,opt,name=assets,proto3,customtype=cosmossdk.io/math.Int" json:"assets"`
}

func (m *MsgRedeemResponse) Reset()         { *m = MsgRedeemResponse{} }
func (m *MsgRedeemResponse) String() string { return m.Assets.String() }
func (*MsgRedeemResponse) ProtoMessage()    {}

// vaultCodec marshals gogoproto messages over grpc.
type vaultCodec struct{}

func (vaultCodec) Marshal(v interface{}) ([]byte, error) {
	msg, ok := v.(proto.Message)
	if !ok {
		return nil, fmt.Errorf("cannot marshal %T: not a proto message", v)
	}
	return proto.Marshal(msg)
}

func (vaultCodec) Unmarshal(data []byte, v interface{}) error {
	msg, ok := v.(proto.Message)
	if !ok {
		return fmt.Errorf("cannot unmarshal into %T: not a proto message", v)
	}
	return proto.Unmarshal(data, msg)
}

func (vaultCodec) Name() string { return encoding.GetCodec("proto").Name() }

// LiveVault talks to a deployed vault service.
type LiveVault struct {
	nodeRPC string
	conn    *grpc.ClientConn
	logger  zerolog.Logger

	assetDenom string
	decimals   int
}

// NewLiveVault wraps an established gRPC connection plus the node's RPC
// endpoint for queries. The vault must answer an info probe before the
// constructor returns; a dead capability is rejected at binding time.
func NewLiveVault(nodeRPC string, conn *grpc.ClientConn) (*LiveVault, error) {
	if nodeRPC == "" {
		return nil, errors.Join(ErrInvalidConnection, errors.New("node RPC endpoint cannot be empty"))
	}
	if conn == nil {
		return nil, errors.Join(ErrInvalidConnection, errors.New("gRPC connection is nil"))
	}
	state := conn.GetState()
	if state == connectivity.Shutdown {
		return nil, errors.Join(ErrInvalidConnection, errors.New("gRPC connection is shutdown"))
	}

	v := &LiveVault{
		nodeRPC: nodeRPC,
		conn:    conn,
		logger:  logger.GetForComponent("vault_client"),
	}

	var info QueryVaultInfoResponse
	if err := v.abciQuery(vaultInfoPath, &QueryVaultInfoRequest{}, &info); err != nil {
		return nil, errors.Join(ErrInvalidConnection, fmt.Errorf("vault info probe failed: %w", err))
	}
	if info.AssetDenom == "" {
		return nil, errors.Join(ErrInvalidResponse, errors.New("vault reported empty asset denom"))
	}
	if info.Decimals > 18 {
		return nil, errors.Join(ErrInvalidResponse, fmt.Errorf("vault reported decimals %d", info.Decimals))
	}
	v.assetDenom = info.AssetDenom
	v.decimals = int(info.Decimals)

	v.logger.Info().
		Str("asset", v.assetDenom).
		Int("decimals", v.decimals).
		Msg("LiveVault initialized")
	return v, nil
}

// abciQuery executes a read through the node's abci_query JSON-RPC method.
func (v *LiveVault) abciQuery(path string, req, resp proto.Message) error {
	protoBytes, err := proto.Marshal(req)
	if err != nil {
		return errors.Join(ErrRPCRequestFailed, fmt.Errorf("failed to marshal request: %w", err))
	}

	jsonRPCReq := JSONRPCRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "abci_query",
		Params: ABCIQueryParams{
			Path: path,
			Data: hex.EncodeToString(protoBytes),
		},
	}
	jsonData, err := json.Marshal(jsonRPCReq)
	if err != nil {
		return errors.Join(ErrRPCRequestFailed, fmt.Errorf("failed to marshal JSON-RPC request: %w", err))
	}

	httpClient := http.Client{Timeout: rpcTimeout}
	httpReq, err := http.NewRequest("POST", v.nodeRPC, bytes.NewBuffer(jsonData))
	if err != nil {
		return errors.Join(ErrRPCRequestFailed, fmt.Errorf("failed to create HTTP request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	httpResp, err := httpClient.Do(httpReq)
	if err != nil {
		return errors.Join(ErrRPCRequestFailed, fmt.Errorf("failed to execute HTTP request: %w", err))
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return errors.Join(ErrRPCRequestFailed, fmt.Errorf("HTTP request failed with status: %d %s", httpResp.StatusCode, httpResp.Status))
	}

	respBodyBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return errors.Join(ErrRPCRequestFailed, fmt.Errorf("failed to read response body: %w", err))
	}

	var jsonRPCResp JSONRPCResponse
	if err := json.Unmarshal(respBodyBytes, &jsonRPCResp); err != nil {
		return errors.Join(ErrInvalidResponse, fmt.Errorf("failed to unmarshal JSON-RPC response: %w", err))
	}
	if jsonRPCResp.Error != nil {
		return errors.Join(ErrRPCRequestFailed, fmt.Errorf("JSON-RPC error %d: %s", jsonRPCResp.Error.Code, jsonRPCResp.Error.Message))
	}
	if jsonRPCResp.Result.Response.Code != 0 {
		return errors.Join(ErrRPCRequestFailed, fmt.Errorf("abci_query failed with code %d: %s", jsonRPCResp.Result.Response.Code, jsonRPCResp.Result.Response.Log))
	}

	decodedValueBytes, err := base64.StdEncoding.DecodeString(jsonRPCResp.Result.Response.Value)
	if err != nil {
		return errors.Join(ErrInvalidResponse, fmt.Errorf("failed to decode response value: %w", err))
	}
	if err := proto.Unmarshal(decodedValueBytes, resp); err != nil {
		return errors.Join(ErrInvalidResponse, fmt.Errorf("failed to unmarshal protobuf response: %w", err))
	}
	return nil
}

func (v *LiveVault) invoke(method string, req, resp proto.Message) error {
	ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
	defer cancel()
	if err := v.conn.Invoke(ctx, method, req, resp, grpc.ForceCodec(vaultCodec{})); err != nil {
		return errors.Join(ErrRPCRequestFailed, fmt.Errorf("%s: %w", method, err))
	}
	return nil
}

func (v *LiveVault) Deposit(assets sdkmath.Int) (sdkmath.Int, error) {
	var resp MsgDepositResponse
	if err := v.invoke(depositMethod, &MsgDeposit{Assets: assets}, &resp); err != nil {
		return sdkmath.Int{}, err
	}
	if resp.Shares.IsNil() || resp.Shares.IsNegative() {
		return sdkmath.Int{}, errors.Join(ErrInvalidResponse, errors.New("vault returned invalid share amount"))
	}
	return resp.Shares, nil
}

func (v *LiveVault) Withdraw(assets sdkmath.Int, recipient, owner string) (sdkmath.Int, error) {
	req := &MsgWithdraw{Assets: assets, Recipient: recipient, Owner: owner}
	var resp MsgWithdrawResponse
	if err := v.invoke(withdrawMethod, req, &resp); err != nil {
		return sdkmath.Int{}, err
	}
	if resp.SharesRedeemed.IsNil() || resp.SharesRedeemed.IsNegative() {
		return sdkmath.Int{}, errors.Join(ErrInvalidResponse, errors.New("vault returned invalid redeemed share amount"))
	}
	return resp.SharesRedeemed, nil
}

func (v *LiveVault) Redeem(shares sdkmath.Int, recipient, owner string) (sdkmath.Int, error) {
	req := &MsgRedeem{Shares: shares, Recipient: recipient, Owner: owner}
	var resp MsgRedeemResponse
	if err := v.invoke(redeemMethod, req, &resp); err != nil {
		return sdkmath.Int{}, err
	}
	if resp.Assets.IsNil() || resp.Assets.IsNegative() {
		return sdkmath.Int{}, errors.Join(ErrInvalidResponse, errors.New("vault returned invalid asset amount"))
	}
	return resp.Assets, nil
}

func (v *LiveVault) ConvertToAssets(shares sdkmath.Int) (sdkmath.Int, error) {
	var resp QueryConvertToAssetsResponse
	if err := v.abciQuery(convertToAssetsPath, &QueryConvertToAssetsRequest{Shares: shares}, &resp); err != nil {
		return sdkmath.Int{}, err
	}
	if resp.Assets.IsNil() || resp.Assets.IsNegative() {
		return sdkmath.Int{}, errors.Join(ErrInvalidResponse, errors.New("vault returned invalid asset valuation"))
	}
	return resp.Assets, nil
}

func (v *LiveVault) Asset() (string, error) {
	return v.assetDenom, nil
}

func (v *LiveVault) Decimals() (int, error) {
	return v.decimals, nil
}
