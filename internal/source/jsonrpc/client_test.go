package jsonrpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bitbuzz-project/web3social-sub000/internal/errs"
	"github.com/bitbuzz-project/web3social-sub000/internal/source"
)

var (
	_ source.ItemSource    = (*Client)(nil)
	_ source.CommandSender = (*Client)(nil)
)

type rpcHandler func(method string, params json.RawMessage) (any, *rpcError)

func newServer(t *testing.T, h rpcHandler) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     string          `json:"id"`
			Method string          `json:"method"`
			Params json.RawMessage `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		result, rpcErr := h(req.Method, req.Params)
		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestClient_CountAndGetByID(t *testing.T) {
	t.Parallel()
	srv := newServer(t, func(method string, params json.RawMessage) (any, *rpcError) {
		switch method {
		case "posts_count":
			return 42, nil
		case "posts_getById":
			var ids []int64
			_ = json.Unmarshal(params, &ids)
			return wireRecord{
				ID: ids[0], Author: "0xabc", ContentRef: "QmFoo",
				CreatedAt: 1700000100, Likes: 3,
			}, nil
		}
		return nil, &rpcError{Code: -32601, Message: "unknown method"}
	})
	defer srv.Close()

	c := New(srv.URL, "posts", nil)
	ctx := context.Background()

	n, err := c.Count(ctx)
	if err != nil || n != 42 {
		t.Fatalf("Count = %d, %v", n, err)
	}

	rec, err := c.GetByID(ctx, 7)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if rec.ID != 7 || rec.Author != "0xabc" || rec.ContentRef != "QmFoo" || rec.Likes != 3 {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestClient_NotFoundMapsToSentinel(t *testing.T) {
	t.Parallel()
	srv := newServer(t, func(string, json.RawMessage) (any, *rpcError) {
		return nil, &rpcError{Code: codeNotFound, Message: "no such record"}
	})
	defer srv.Close()

	c := New(srv.URL, "posts", nil)
	_, err := c.GetByID(context.Background(), 999)
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestClient_TransportFaultsMapToSourceUnavailable(t *testing.T) {
	t.Parallel()

	// HTTP-level failure.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	c := New(srv.URL, "posts", nil)
	if _, err := c.Count(context.Background()); !errors.Is(err, errs.ErrSourceUnavailable) {
		t.Fatalf("http 502: want ErrSourceUnavailable, got %v", err)
	}
	srv.Close()

	// Connection-level failure (server already closed).
	if _, err := c.Count(context.Background()); !errors.Is(err, errs.ErrSourceUnavailable) {
		t.Fatalf("dead endpoint: want ErrSourceUnavailable, got %v", err)
	}

	// Generic RPC error.
	srv2 := newServer(t, func(string, json.RawMessage) (any, *rpcError) {
		return nil, &rpcError{Code: -32000, Message: "execution reverted"}
	})
	defer srv2.Close()
	c2 := New(srv2.URL, "posts", nil)
	if _, err := c2.Count(context.Background()); !errors.Is(err, errs.ErrSourceUnavailable) {
		t.Fatalf("rpc error: want ErrSourceUnavailable, got %v", err)
	}
}

func TestClient_GetByParent(t *testing.T) {
	t.Parallel()
	srv := newServer(t, func(method string, params json.RawMessage) (any, *rpcError) {
		if method != "comments_getByParent" {
			return nil, &rpcError{Code: -32601, Message: "unknown method"}
		}
		return []wireRecord{
			{ID: 4, Author: "0xdef", ParentID: 2, CreatedAt: 10},
			{ID: 9, Author: "0xabc", ParentID: 2, CreatedAt: 20},
		}, nil
	})
	defer srv.Close()

	c := New(srv.URL, "comments", nil)
	recs, err := c.GetByParent(context.Background(), 2)
	if err != nil {
		t.Fatalf("GetByParent: %v", err)
	}
	if len(recs) != 2 || recs[0].ID != 4 || recs[1].ParentID != 2 {
		t.Fatalf("unexpected records: %+v", recs)
	}
}

func TestClient_CommandsAreFireAndForget(t *testing.T) {
	t.Parallel()
	var got []string
	srv := newServer(t, func(method string, _ json.RawMessage) (any, *rpcError) {
		got = append(got, method)
		return "0xtxhash", nil
	})
	defer srv.Close()

	c := New(srv.URL, "posts", nil)
	ctx := context.Background()
	if err := c.CreatePost(ctx, "QmBody"); err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if err := c.Like(ctx, 5); err != nil {
		t.Fatalf("Like: %v", err)
	}
	if err := c.Edit(ctx, 5, "QmBody2"); err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if err := c.MarkRead(ctx, 5); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if err := c.Delete(ctx, 5); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	want := []string{"posts_create", "posts_like", "posts_edit", "posts_markRead", "posts_delete"}
	for i, m := range want {
		if got[i] != m {
			t.Fatalf("command %d: want %s, got %v", i, m, got)
		}
	}
}
