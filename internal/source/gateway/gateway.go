// Package gateway implements the blob store contract against an IPFS-style
// HTTP gateway: content is fetched by key and added through the gateway's
// add endpoint.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bitbuzz-project/web3social-sub000/internal/errs"
)

const (
	defaultTimeout = 15 * time.Second
	maxBlobSize    = 1 << 20 // post bodies are short; anything bigger is abuse
)

// Store reads and writes text blobs through one gateway.
type Store struct {
	base string // e.g. https://gateway.example
	hc   *http.Client
	log  *zap.Logger
}

// New builds a store against base. log may be nil.
func New(base string, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: defaultTimeout},
		log:  log,
	}
}

// Get returns the text stored under key. Every failure maps to
// ErrContentUnavailable: per the read-path contract a single missing blob
// only fails content predicates for its record, nothing else.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.base+"/ipfs/"+key, nil)
	if err != nil {
		return "", err
	}
	resp, err := s.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", errs.ErrContentUnavailable, key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %s: http %d", errs.ErrContentUnavailable, key, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBlobSize))
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", errs.ErrContentUnavailable, key, err)
	}
	return string(body), nil
}

// Put stores text and returns the content key minted by the gateway.
func (s *Store) Put(ctx context.Context, text string) (string, error) {
	var buf strings.Builder
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "blob")
	if err != nil {
		return "", err
	}
	if _, err := fw.Write([]byte(text)); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.base+"/api/v0/add", strings.NewReader(buf.String()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := s.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("gateway add: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gateway add: http %d", resp.StatusCode)
	}

	var out struct {
		Hash string `json:"Hash"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBlobSize)).Decode(&out); err != nil {
		return "", fmt.Errorf("gateway add: %w", err)
	}
	if out.Hash == "" {
		return "", fmt.Errorf("gateway add: empty hash")
	}
	s.log.Debug("blob stored", zap.String("key", out.Hash), zap.Int("bytes", len(text)))
	return out.Hash, nil
}
