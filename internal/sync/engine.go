// Package sync keeps the ledger copy of every active address consistent with
// the database copy. It runs off the request path: owner writes only flip the
// needs_sync flag, and the engine repairs the ledger side in batches.
package sync

//go:generate mockgen -source=engine.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"addresshub/internal/address/models"
	"addresshub/internal/audit"
	"addresshub/internal/crypto"
	"addresshub/internal/ledger"
	"addresshub/internal/platform/metrics"
	id "addresshub/pkg/domain"
	"addresshub/pkg/platform/sentinel"
	"addresshub/pkg/requestcontext"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Store is the slice of the address store the engine depends on. The
// write-back methods touch sync columns only, so a concurrent owner edit and
// an in-flight write-back never clobber each other.
type Store interface {
	SelectPending(ctx context.Context, limit int) ([]*models.Address, error)
	SelectStale(ctx context.Context, limit int) ([]*models.Address, error)
	SelectPendingDeletion(ctx context.Context, limit int) ([]*models.Address, error)
	CountPending(ctx context.Context) (int, error)
	CountStale(ctx context.Context) (int, error)
	CountPendingDeletion(ctx context.Context) (int, error)
	MarkSynced(ctx context.Context, addressID id.AddressID, result models.SyncResult) error
	MarkDeletedFromLedger(ctx context.Context, addressID id.AddressID, result models.SyncResult) error
}

// LedgerClient is the ledger surface the engine calls. IsConnected is a cheap
// reachability probe consulted once per batch.
type LedgerClient interface {
	IsConnected(ctx context.Context) bool
	Store(ctx context.Context, record ledger.Record, signer ledger.Signer) (ledger.StoreResult, error)
	Delete(ctx context.Context, key ledger.RecordKey, signer ledger.Signer) (ledger.StoreResult, error)
}

// BlobStore uploads non-secret metadata alongside a ledger write. Failures
// are non-fatal; the record syncs without a blob reference.
type BlobStore interface {
	PutBlob(ctx context.Context, data []byte) (string, error)
}

// AuditPublisher receives sync outcome events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Batch kinds, used as the metrics label and in log lines.
const (
	KindSync   = "sync"
	KindUpdate = "update"
	KindDelete = "delete"
)

const (
	defaultBatchSize      = 10
	defaultRetryLimit     = 3
	defaultRetryBaseDelay = 2 * time.Second
)

// Payload is one prepared ledger write: decrypted record, resolved signer.
// UpdatedAt is the row's version at selection time; the write-back uses it
// so a concurrent owner edit keeps its dirty bit.
type Payload struct {
	AddressID id.AddressID
	UserID    id.UserID
	Record    ledger.Record
	Signer    ledger.Signer
	Tombstone bool
	UpdatedAt time.Time
}

// ItemError attributes a failure to one address in a batch.
type ItemError struct {
	AddressID id.AddressID
	Err       error
}

func (e ItemError) Error() string {
	return e.AddressID.String() + ": " + e.Err.Error()
}

func (e ItemError) Unwrap() error { return e.Err }

// BatchResult aggregates one batch run. Processed counts records whose ledger
// write and database write-back both succeeded; everything else is Failed.
type BatchResult struct {
	Processed int
	Failed    int
	Errors    []ItemError
}

// Config carries the externally supplied batch tuning knobs.
type Config struct {
	BatchSize      int
	RetryLimit     int
	RetryBaseDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.RetryLimit <= 0 {
		c.RetryLimit = defaultRetryLimit
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = defaultRetryBaseDelay
	}
	return c
}

// Engine prepares and executes sync batches.
type Engine struct {
	store   Store
	ledger  LedgerClient
	signers ledger.SignerResolver
	cipher  *crypto.FieldCipher
	cfg     Config

	blobs          BlobStore
	logger         *slog.Logger
	metrics        *metrics.Metrics
	auditPublisher AuditPublisher
	tracer         trace.Tracer
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(e *Engine) { e.auditPublisher = publisher }
}

func WithBlobStore(blobs BlobStore) Option {
	return func(e *Engine) { e.blobs = blobs }
}

func New(store Store, ledgerClient LedgerClient, signers ledger.SignerResolver, cipher *crypto.FieldCipher, cfg Config, opts ...Option) *Engine {
	e := &Engine{
		store:   store,
		ledger:  ledgerClient,
		signers: signers,
		cipher:  cipher,
		cfg:     cfg.withDefaults(),
		logger:  slog.Default(),
		tracer:  otel.Tracer("sync"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SyncPending pushes never-synced active addresses to the ledger.
func (e *Engine) SyncPending(ctx context.Context) (BatchResult, error) {
	addrs, err := e.store.SelectPending(ctx, e.cfg.BatchSize)
	if err != nil {
		return BatchResult{}, err
	}
	return e.run(ctx, KindSync, addrs, false), nil
}

// SyncStale re-pushes addresses whose content changed since the last sync.
func (e *Engine) SyncStale(ctx context.Context) (BatchResult, error) {
	addrs, err := e.store.SelectStale(ctx, e.cfg.BatchSize)
	if err != nil {
		return BatchResult{}, err
	}
	return e.run(ctx, KindUpdate, addrs, false), nil
}

// SyncDeletions removes soft-deleted addresses from the ledger.
func (e *Engine) SyncDeletions(ctx context.Context) (BatchResult, error) {
	addrs, err := e.store.SelectPendingDeletion(ctx, e.cfg.BatchSize)
	if err != nil {
		return BatchResult{}, err
	}
	return e.run(ctx, KindDelete, addrs, true), nil
}

func (e *Engine) run(ctx context.Context, kind string, addrs []*models.Address, tombstone bool) BatchResult {
	if len(addrs) == 0 {
		return BatchResult{}
	}

	ctx, span := e.tracer.Start(ctx, "sync.batch",
		trace.WithAttributes(
			attribute.String("batch.kind", kind),
			attribute.Int("batch.size", len(addrs)),
		))
	defer span.End()

	payloads, prepErrs := e.PrepareBatch(ctx, addrs, tombstone)
	result := e.executeWithRetry(ctx, payloads)
	result.Failed += len(prepErrs)
	result.Errors = append(prepErrs, result.Errors...)

	span.SetAttributes(
		attribute.Int("batch.processed", result.Processed),
		attribute.Int("batch.failed", result.Failed),
	)
	outcome := "ok"
	if result.Failed > 0 {
		outcome = "partial"
		if result.Processed == 0 {
			outcome = "failed"
			span.SetStatus(codes.Error, "batch failed")
		}
	}
	if e.metrics != nil {
		e.metrics.SyncBatches.WithLabelValues(kind, outcome).Inc()
	}
	e.logger.Info("sync batch finished",
		"kind", kind,
		"selected", len(addrs),
		"processed", result.Processed,
		"failed", result.Failed,
	)
	return result
}

// PrepareBatch decrypts each address, merges in non-secret metadata and
// resolves the signing identity. A failing item is dropped and reported; it
// never aborts the batch. Decryption runs under the plaintext fallback policy
// so records written before encryption was introduced still sync.
func (e *Engine) PrepareBatch(ctx context.Context, addrs []*models.Address, tombstone bool) ([]Payload, []ItemError) {
	payloads := make([]Payload, 0, len(addrs))
	var itemErrs []ItemError
	for _, addr := range addrs {
		payload, err := e.prepare(ctx, addr, tombstone)
		if err != nil {
			itemErrs = append(itemErrs, ItemError{AddressID: addr.ID, Err: err})
			e.logger.Warn("sync item dropped in preparation",
				"address_id", addr.ID.String(),
				"error", err,
			)
			if e.metrics != nil {
				e.metrics.SyncItems.WithLabelValues("dropped").Inc()
			}
			continue
		}
		payloads = append(payloads, payload)
	}
	return payloads, itemErrs
}

func (e *Engine) prepare(ctx context.Context, addr *models.Address, tombstone bool) (Payload, error) {
	signer, err := e.signers.Resolve(ctx, addr.UserID)
	if err != nil {
		return Payload{}, err
	}
	payload := Payload{
		AddressID: addr.ID,
		UserID:    addr.UserID,
		Signer:    signer,
		Tombstone: tombstone,
		UpdatedAt: addr.UpdatedAt,
	}
	payload.Record.Key = ledger.KeyFromAddressID(addr.ID)
	if tombstone {
		return payload, nil
	}

	fields, err := e.cipher.DecryptFields(addr.FieldMap(), models.EncryptedFields, crypto.DecryptFallbackToPlaintext)
	if err != nil {
		return Payload{}, err
	}
	payload.Record = ledger.Record{
		Key:        payload.Record.Key,
		Name:       addr.Name,
		Line:       fields["line"],
		Street:     fields["street"],
		Suburb:     fields["suburb"],
		Region:     fields["region"],
		PostalCode: fields["postal_code"],
		IsDefault:  addr.IsDefault,
		IsActive:   addr.IsActive,
		CreatedAt:  addr.CreatedAt,
		UpdatedAt:  addr.UpdatedAt,
	}
	return payload, nil
}

// executeWithRetry retries the batch as a whole while the ledger is
// unreachable, up to the retry ceiling with exponential backoff. Per-item
// rejections are terminal and never retried; the next scheduling cycle
// re-selects whatever is still pending.
func (e *Engine) executeWithRetry(ctx context.Context, payloads []Payload) BatchResult {
	var result BatchResult
	for attempt := 0; ; attempt++ {
		var retryable bool
		result, retryable = e.ExecuteBatch(ctx, payloads)
		if !retryable || attempt >= e.cfg.RetryLimit {
			return result
		}
		if e.metrics != nil {
			e.metrics.SyncRetries.Inc()
		}
		delay := e.cfg.RetryBaseDelay * (1 << attempt)
		e.logger.Warn("ledger unreachable, retrying batch",
			"attempt", attempt+1,
			"delay", delay.String(),
		)
		select {
		case <-ctx.Done():
			return result
		case <-time.After(delay):
		}
	}
}

// ExecuteBatch writes each payload to the ledger and persists the sync
// metadata back to the database one record at a time, so a crash mid-batch
// leaves processed records marked and unprocessed ones still pending. The
// second return value reports whether the failure was a connectivity loss
// affecting the whole batch.
func (e *Engine) ExecuteBatch(ctx context.Context, payloads []Payload) (BatchResult, bool) {
	if len(payloads) == 0 {
		return BatchResult{}, false
	}
	if !e.ledger.IsConnected(ctx) {
		return e.failAll(payloads, sentinel.ErrUnavailable), true
	}

	var result BatchResult
	for i, payload := range payloads {
		err := e.executeItem(ctx, payload)
		if err == nil {
			result.Processed++
			if e.metrics != nil {
				e.metrics.SyncItems.WithLabelValues("synced").Inc()
			}
			continue
		}
		if errors.Is(err, sentinel.ErrUnavailable) {
			// The node went away mid-batch. Everything from here on
			// would hit the same wall.
			rest := e.failAll(payloads[i:], sentinel.ErrUnavailable)
			result.Failed += rest.Failed
			result.Errors = append(result.Errors, rest.Errors...)
			return result, result.Processed == 0
		}
		result.Failed++
		result.Errors = append(result.Errors, ItemError{AddressID: payload.AddressID, Err: err})
		if e.metrics != nil {
			e.metrics.SyncItems.WithLabelValues("failed").Inc()
		}
		e.logger.Warn("sync item failed",
			"address_id", payload.AddressID.String(),
			"error", err,
		)
		e.emit(ctx, audit.EventAddressSyncFailed, payload)
	}
	return result, false
}

func (e *Engine) executeItem(ctx context.Context, payload Payload) error {
	if payload.Tombstone {
		res, err := e.ledger.Delete(ctx, payload.Record.Key, payload.Signer)
		if err != nil {
			return err
		}
		err = e.store.MarkDeletedFromLedger(ctx, payload.AddressID, models.SyncResult{
			TxRef:    res.TxRef,
			BlockRef: res.BlockRef,
			SyncedAt: requestcontext.Now(ctx),
		})
		if err != nil {
			return err
		}
		e.emit(ctx, audit.EventAddressTombstoned, payload)
		return nil
	}

	blobRef := e.putBlob(ctx, payload)
	res, err := e.ledger.Store(ctx, payload.Record, payload.Signer)
	if err != nil {
		return err
	}
	err = e.store.MarkSynced(ctx, payload.AddressID, models.SyncResult{
		TxRef:           res.TxRef,
		BlockRef:        res.BlockRef,
		BlobRef:         blobRef,
		SyncedAt:        requestcontext.Now(ctx),
		SourceUpdatedAt: payload.UpdatedAt,
	})
	if err != nil {
		return err
	}
	e.emit(ctx, audit.EventAddressSynced, payload)
	return nil
}

// putBlob uploads the non-secret slice of the record. Best-effort: on failure
// the record syncs without a blob reference and keeps any previous one.
func (e *Engine) putBlob(ctx context.Context, payload Payload) string {
	if e.blobs == nil {
		return ""
	}
	data, err := json.Marshal(map[string]any{
		"name":       payload.Record.Name,
		"is_default": payload.Record.IsDefault,
		"is_active":  payload.Record.IsActive,
		"updated_at": payload.Record.UpdatedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return ""
	}
	ref, err := e.blobs.PutBlob(ctx, data)
	if err != nil {
		e.logger.Warn("blob upload failed, syncing without blob reference",
			"address_id", payload.AddressID.String(),
			"error", err,
		)
		return ""
	}
	return ref
}

func (e *Engine) failAll(payloads []Payload, err error) BatchResult {
	result := BatchResult{Failed: len(payloads)}
	for _, payload := range payloads {
		result.Errors = append(result.Errors, ItemError{AddressID: payload.AddressID, Err: err})
	}
	return result
}

func (e *Engine) emit(ctx context.Context, event audit.AuditEvent, payload Payload) {
	if e.auditPublisher == nil {
		return
	}
	_ = e.auditPublisher.Emit(ctx, audit.Event{
		UserID:    payload.UserID,
		AddressID: payload.AddressID,
		Action:    string(event),
	})
}
