// Package jsonrpc implements the ledger read contract and the
// fire-and-forget write commands over an HTTP JSON-RPC 2.0 endpoint
// (the contract indexer node).
package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/bitbuzz-project/web3social-sub000/internal/errs"
	"github.com/bitbuzz-project/web3social-sub000/internal/model"
)

// rpc error codes returned by the node.
const (
	codeNotFound = -32001
)

const defaultTimeout = 10 * time.Second

// Client talks JSON-RPC 2.0 to one node. Method names are namespaced per
// collection, e.g. "posts_count" or "messages_getById".
type Client struct {
	endpoint   string
	collection string
	hc         *http.Client
	log        *zap.Logger
}

// New builds a client for one collection ("posts", "messages", "comments",
// "notifications") against endpoint. log may be nil.
func New(endpoint, collection string, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		endpoint:   endpoint,
		collection: collection,
		hc:         &http.Client{Timeout: defaultTimeout},
		log:        log,
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

// wireRecord is the node's record shape.
type wireRecord struct {
	ID         int64  `json:"id"`
	Author     string `json:"author"`
	Receiver   string `json:"receiver,omitempty"`
	ContentRef string `json:"contentRef,omitempty"`
	CreatedAt  int64  `json:"createdAt"`
	Likes      int64  `json:"likes"`
	Shares     int64  `json:"shares"`
	ParentID   int64  `json:"parentId,omitempty"`
	Deleted    bool   `json:"deleted"`
	Read       bool   `json:"read"`
}

func (w wireRecord) toModel() model.Record {
	return model.Record{
		ID:         w.ID,
		Author:     w.Author,
		Receiver:   w.Receiver,
		ContentRef: w.ContentRef,
		CreatedAt:  w.CreatedAt,
		Likes:      w.Likes,
		Shares:     w.Shares,
		ParentID:   w.ParentID,
		Deleted:    w.Deleted,
		Read:       w.Read,
	}
}

// call performs one JSON-RPC round trip. Transport and protocol faults map
// to ErrSourceUnavailable; the node's not-found code maps to ErrNotFound.
func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	reqID := uuid.Must(uuid.NewV4()).String()
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: reqID, Method: method, Params: params})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", errs.ErrSourceUnavailable, method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s: http %d", errs.ErrSourceUnavailable, method, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: %s: %w", errs.ErrSourceUnavailable, method, err)
	}

	var rr rpcResponse
	if err := json.Unmarshal(raw, &rr); err != nil {
		return fmt.Errorf("%w: %s: bad response: %w", errs.ErrSourceUnavailable, method, err)
	}
	if rr.Error != nil {
		if rr.Error.Code == codeNotFound {
			return fmt.Errorf("%s: %w", method, errs.ErrNotFound)
		}
		return fmt.Errorf("%w: %s: rpc %d %s", errs.ErrSourceUnavailable, method, rr.Error.Code, rr.Error.Message)
	}

	c.log.Debug("rpc",
		zap.String("method", method),
		zap.Duration("dur", time.Since(start)),
	)

	if out == nil {
		return nil
	}
	return json.Unmarshal(rr.Result, out)
}

func (c *Client) method(op string) string { return c.collection + "_" + op }

// Count returns the highest assigned record ID of the collection.
func (c *Client) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := c.call(ctx, c.method("count"), nil, &n); err != nil {
		return 0, err
	}
	return n, nil
}

// GetByID returns one record by its ledger ID.
func (c *Client) GetByID(ctx context.Context, id int64) (model.Record, error) {
	var w wireRecord
	if err := c.call(ctx, c.method("getById"), []int64{id}, &w); err != nil {
		return model.Record{}, err
	}
	return w.toModel(), nil
}

// GetByParent returns the children of one parent record in creation order.
func (c *Client) GetByParent(ctx context.Context, parentID int64) ([]model.Record, error) {
	var ws []wireRecord
	if err := c.call(ctx, c.method("getByParent"), []int64{parentID}, &ws); err != nil {
		return nil, err
	}
	out := make([]model.Record, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.toModel())
	}
	return out, nil
}
