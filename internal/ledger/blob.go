package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"

	"addresshub/pkg/platform/sentinel"
)

// IPFSClient speaks the IPFS HTTP API (/api/v0). Blob references are CIDs.
// Every failure maps to ErrUnavailable: the blob store carries auxiliary
// metadata only and sync proceeds without it.
type IPFSClient struct {
	apiURL   string
	http     *http.Client
	disabled bool
}

// NewIPFSClient builds a blob client. An empty API URL degrades the client
// to a permanently-unavailable state rather than failing construction.
func NewIPFSClient(apiURL string) *IPFSClient {
	return &IPFSClient{
		apiURL:   apiURL,
		http:     &http.Client{Timeout: 15 * time.Second},
		disabled: apiURL == "",
	}
}

// PutBlob adds data and returns its CID.
func (c *IPFSClient) PutBlob(ctx context.Context, data []byte) (string, error) {
	if c.disabled {
		return "", fmt.Errorf("blob store disabled: %w", sentinel.ErrUnavailable)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "blob")
	if err != nil {
		return "", fmt.Errorf("build multipart body: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("write multipart body: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/api/v0/add", &body)
	if err != nil {
		return "", fmt.Errorf("build add request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("ipfs add: %v: %w", err, sentinel.ErrUnavailable)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ipfs add: status %d: %w", resp.StatusCode, sentinel.ErrUnavailable)
	}

	var out struct {
		Hash string `json:"Hash"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("ipfs add: decode response: %v: %w", err, sentinel.ErrUnavailable)
	}
	if out.Hash == "" {
		return "", fmt.Errorf("ipfs add: empty hash: %w", sentinel.ErrUnavailable)
	}
	return out.Hash, nil
}

// GetBlob retrieves data by CID.
func (c *IPFSClient) GetBlob(ctx context.Context, ref string) ([]byte, error) {
	if c.disabled {
		return nil, fmt.Errorf("blob store disabled: %w", sentinel.ErrUnavailable)
	}

	endpoint := c.apiURL + "/api/v0/cat?arg=" + url.QueryEscape(ref)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build cat request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ipfs cat: %v: %w", err, sentinel.ErrUnavailable)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ipfs cat: status %d: %w", resp.StatusCode, sentinel.ErrUnavailable)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ipfs cat: read body: %v: %w", err, sentinel.ErrUnavailable)
	}
	return data, nil
}

var _ BlobStore = (*IPFSClient)(nil)

// CachedBlobStore fronts a BlobStore with redis. Blobs are immutable by
// construction (content-addressed), so cache entries never need
// invalidation, only expiry to bound memory.
type CachedBlobStore struct {
	inner  BlobStore
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedBlobStore(inner BlobStore, rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedBlobStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedBlobStore{inner: inner, rdb: rdb, ttl: ttl, logger: logger}
}

func (s *CachedBlobStore) cacheKey(ref string) string {
	return "blob:" + ref
}

// PutBlob writes through to the blob store and caches the stored bytes.
func (s *CachedBlobStore) PutBlob(ctx context.Context, data []byte) (string, error) {
	ref, err := s.inner.PutBlob(ctx, data)
	if err != nil {
		return "", err
	}
	if err := s.rdb.Set(ctx, s.cacheKey(ref), data, s.ttl).Err(); err != nil {
		s.logger.Warn("blob cache write failed", "ref", ref, "error", err)
	}
	return ref, nil
}

// GetBlob serves from cache when possible, falling back to the blob store.
func (s *CachedBlobStore) GetBlob(ctx context.Context, ref string) ([]byte, error) {
	data, err := s.rdb.Get(ctx, s.cacheKey(ref)).Bytes()
	if err == nil {
		return data, nil
	}
	if err != redis.Nil {
		s.logger.Warn("blob cache read failed", "ref", ref, "error", err)
	}

	data, err = s.inner.GetBlob(ctx, ref)
	if err != nil {
		return nil, err
	}
	if err := s.rdb.Set(ctx, s.cacheKey(ref), data, s.ttl).Err(); err != nil {
		s.logger.Warn("blob cache backfill failed", "ref", ref, "error", err)
	}
	return data, nil
}

var _ BlobStore = (*CachedBlobStore)(nil)
