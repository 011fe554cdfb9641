package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"addresshub/pkg/platform/sentinel"
)

// RPCClient talks JSON-RPC 2.0 to the ledger node fronting the address
// registry contract.
//
// Construction never fails: when the endpoint or contract is not configured
// the client degrades to a permanently-disconnected state and every
// operation reports ErrUnavailable. Callers are expected to check
// IsConnected before scheduling work.
type RPCClient struct {
	endpoint string
	contract string
	http     *http.Client
	logger   *slog.Logger
	observe  DurationObserver
	reqID    atomic.Int64
	disabled bool
}

// DurationObserver receives the latency of each node round trip in seconds.
// A prometheus histogram satisfies it.
type DurationObserver interface {
	Observe(float64)
}

// RPCOption configures an RPCClient.
type RPCOption func(*RPCClient)

// WithHTTPClient overrides the underlying HTTP client, mainly for tests.
func WithHTTPClient(h *http.Client) RPCOption {
	return func(c *RPCClient) {
		if h != nil {
			c.http = h
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) RPCOption {
	return func(c *RPCClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithDurationObserver records node request latency.
func WithDurationObserver(observe DurationObserver) RPCOption {
	return func(c *RPCClient) {
		c.observe = observe
	}
}

// NewRPCClient builds a client for the given node endpoint and registry
// contract identifier.
func NewRPCClient(endpoint, contract string, opts ...RPCOption) *RPCClient {
	c := &RPCClient{
		endpoint: endpoint,
		contract: contract,
		http:     &http.Client{Timeout: 15 * time.Second},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if endpoint == "" || contract == "" {
		c.disabled = true
		c.logger.Warn("ledger client disabled: endpoint or contract not configured")
	}
	return c
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

// call performs one JSON-RPC round trip. Transport problems map to
// ErrUnavailable, node-reported errors to ErrRejected (or ErrNotFound for
// the registry's missing-record code).
func (c *RPCClient) call(ctx context.Context, method string, params []any, result any) error {
	if c.disabled {
		return fmt.Errorf("ledger client disabled: %w", sentinel.ErrUnavailable)
	}
	if c.observe != nil {
		start := time.Now()
		defer func() { c.observe.Observe(time.Since(start).Seconds()) }()
	}

	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.reqID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("marshal rpc request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build rpc request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %v: %w", method, err, sentinel.ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: node returned %d: %w", method, resp.StatusCode, sentinel.ErrUnavailable)
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("%s: decode response: %v: %w", method, err, sentinel.ErrUnavailable)
	}
	if rpcResp.Error != nil {
		if rpcResp.Error.Code == codeRecordNotFound {
			return fmt.Errorf("%s: %s: %w", method, rpcResp.Error.Message, sentinel.ErrNotFound)
		}
		return fmt.Errorf("%s: node rejected call (%d %s): %w",
			method, rpcResp.Error.Code, rpcResp.Error.Message, sentinel.ErrRejected)
	}
	if result != nil {
		if len(rpcResp.Result) == 0 || string(rpcResp.Result) == "null" {
			return fmt.Errorf("%s: empty result: %w", method, sentinel.ErrNotFound)
		}
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("%s: decode result: %v: %w", method, err, sentinel.ErrRejected)
		}
	}
	return nil
}

// codeRecordNotFound is the registry node's JSON-RPC error code for a
// missing record.
const codeRecordNotFound = -32004

// IsConnected probes the node with eth_blockNumber. It never returns an
// error: any failure, including a disabled client, reads as "not connected".
func (c *RPCClient) IsConnected(ctx context.Context) bool {
	var blockHex string
	if err := c.call(ctx, "eth_blockNumber", nil, &blockHex); err != nil {
		return false
	}
	return blockHex != ""
}

// wireRecord is the registry contract's view of a record. Timestamps travel
// as unix seconds; zero createdAt means the record does not exist.
type wireRecord struct {
	Key        string `json:"key"`
	Name       string `json:"name"`
	Line       string `json:"line"`
	Street     string `json:"street"`
	Suburb     string `json:"suburb"`
	Region     string `json:"region"`
	PostalCode string `json:"postalCode"`
	IsDefault  bool   `json:"isDefault"`
	IsActive   bool   `json:"isActive"`
	CreatedAt  int64  `json:"createdAt"`
	UpdatedAt  int64  `json:"updatedAt"`
}

type wireReceipt struct {
	TxHash      string `json:"txHash"`
	BlockNumber string `json:"blockNumber"`
}

func (r wireReceipt) toResult() (StoreResult, error) {
	block, err := parseHexUint(r.BlockNumber)
	if err != nil {
		return StoreResult{}, fmt.Errorf("parse block number %q: %v: %w", r.BlockNumber, err, sentinel.ErrRejected)
	}
	return StoreResult{TxRef: r.TxHash, BlockRef: block}, nil
}

func parseHexUint(s string) (int64, error) {
	return strconv.ParseInt(strings.TrimPrefix(s, "0x"), 16, 64)
}

// Store writes one record through the registry contract.
func (c *RPCClient) Store(ctx context.Context, record Record, signer Signer) (StoreResult, error) {
	payload := wireRecord{
		Key:        record.Key.Hex(),
		Name:       record.Name,
		Line:       record.Line,
		Street:     record.Street,
		Suburb:     record.Suburb,
		Region:     record.Region,
		PostalCode: record.PostalCode,
		IsDefault:  record.IsDefault,
		IsActive:   record.IsActive,
		CreatedAt:  record.CreatedAt.Unix(),
		UpdatedAt:  record.UpdatedAt.Unix(),
	}

	var receipt wireReceipt
	if err := c.call(ctx, "registry_storeRecord", []any{c.contract, string(signer), payload}, &receipt); err != nil {
		return StoreResult{}, err
	}
	return receipt.toResult()
}

// Fetch reads one record by key. Missing records surface as ErrNotFound.
func (c *RPCClient) Fetch(ctx context.Context, key RecordKey, signer Signer) (Record, error) {
	var wire wireRecord
	if err := c.call(ctx, "registry_getRecord", []any{c.contract, string(signer), key.Hex()}, &wire); err != nil {
		return Record{}, err
	}
	if wire.CreatedAt == 0 {
		return Record{}, fmt.Errorf("registry_getRecord: zero record: %w", sentinel.ErrNotFound)
	}

	parsedKey, err := ParseRecordKey(wire.Key)
	if err != nil {
		return Record{}, fmt.Errorf("registry_getRecord: %v: %w", err, sentinel.ErrRejected)
	}
	return Record{
		Key:        parsedKey,
		Name:       wire.Name,
		Line:       wire.Line,
		Street:     wire.Street,
		Suburb:     wire.Suburb,
		Region:     wire.Region,
		PostalCode: wire.PostalCode,
		IsDefault:  wire.IsDefault,
		IsActive:   wire.IsActive,
		CreatedAt:  time.Unix(wire.CreatedAt, 0).UTC(),
		UpdatedAt:  time.Unix(wire.UpdatedAt, 0).UTC(),
	}, nil
}

// Delete tombstones one record by key.
func (c *RPCClient) Delete(ctx context.Context, key RecordKey, signer Signer) (StoreResult, error) {
	var receipt wireReceipt
	if err := c.call(ctx, "registry_deleteRecord", []any{c.contract, string(signer), key.Hex()}, &receipt); err != nil {
		return StoreResult{}, err
	}
	return receipt.toResult()
}

var _ Client = (*RPCClient)(nil)
