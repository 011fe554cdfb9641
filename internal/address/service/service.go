// Package service orchestrates address management: validation, field
// encryption at the write boundary, the single-default invariant and
// soft deletion. Plaintext exists only inside this package's encrypt/decrypt
// calls; stores and the sync engine only ever see ciphertext.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"addresshub/internal/address/models"
	"addresshub/internal/audit"
	"addresshub/internal/crypto"
	"addresshub/internal/ledger"
	"addresshub/internal/platform/metrics"
	id "addresshub/pkg/domain"
	dErrors "addresshub/pkg/domain-errors"
	"addresshub/pkg/platform/sentinel"
	"addresshub/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, address *models.Address) error
	FindByID(ctx context.Context, addressID id.AddressID) (*models.Address, error)
	FindByIDForUser(ctx context.Context, addressID id.AddressID, userID id.UserID) (*models.Address, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]*models.Address, error)
	FindDefault(ctx context.Context, userID id.UserID) (*models.Address, error)
	Update(ctx context.Context, address *models.Address) error
	SetDefault(ctx context.Context, userID id.UserID, addressID id.AddressID) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service orchestrates address CRUD for owners.
type Service struct {
	store          Store
	cipher         *crypto.FieldCipher
	ledger         ledger.Client
	signers        ledger.SignerResolver
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLedger enables FetchFromLedger. Reads are signed like writes, so the
// resolver travels with the client.
func WithLedger(client ledger.Client, signers ledger.SignerResolver) Option {
	return func(s *Service) {
		s.ledger = client
		s.signers = signers
	}
}

// New constructs a Service.
func New(store Store, cipher *crypto.FieldCipher, opts ...Option) *Service {
	s := &Service{store: store, cipher: cipher}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRequest carries the plaintext fields for a new address.
type CreateRequest struct {
	Name       string `json:"name"`
	Line       string `json:"line"`
	Street     string `json:"street"`
	Suburb     string `json:"suburb"`
	Region     string `json:"region"`
	PostalCode string `json:"postal_code"`
	IsDefault  bool   `json:"is_default"`
}

func (r *CreateRequest) fieldMap() map[string]string {
	return map[string]string{
		"line":        r.Line,
		"street":      r.Street,
		"suburb":      r.Suburb,
		"region":      r.Region,
		"postal_code": r.PostalCode,
	}
}

// Create validates, encrypts and persists a new address for the user.
func (s *Service) Create(ctx context.Context, userID id.UserID, req CreateRequest) (*models.Breakdown, error) {
	now := requestcontext.Now(ctx)

	addr, err := models.NewAddress(id.AddressID(uuid.New()), userID, req.Name, req.fieldMap(), req.IsDefault, now)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
		}
		return nil, err
	}
	breakdown := toBreakdown(addr)

	encrypted, err := s.cipher.EncryptFields(addr.FieldMap(), models.EncryptedFields)
	if err != nil {
		return nil, err
	}
	addr.ApplyFieldMap(encrypted)

	if err := s.store.Create(ctx, addr); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "address already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create address")
	}

	s.logAudit(ctx, audit.EventAddressCreated, userID, addr.ID)
	if s.metrics != nil {
		s.metrics.AddressesCreated.Inc()
	}
	return breakdown, nil
}

// List returns the user's active addresses decrypted for display.
func (s *Service) List(ctx context.Context, userID id.UserID) ([]*models.Breakdown, error) {
	rows, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list addresses")
	}

	out := make([]*models.Breakdown, 0, len(rows))
	for _, addr := range rows {
		b, err := s.decrypt(addr)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// Get returns one of the user's addresses decrypted for display.
func (s *Service) Get(ctx context.Context, userID id.UserID, addressID id.AddressID) (*models.Breakdown, error) {
	addr, err := s.findOwned(ctx, userID, addressID)
	if err != nil {
		return nil, err
	}
	return s.decrypt(addr)
}

// GetDefault returns the user's default address decrypted for display.
func (s *Service) GetDefault(ctx context.Context, userID id.UserID) (*models.Breakdown, error) {
	addr, err := s.store.FindDefault(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no default address")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load default address")
	}
	return s.decrypt(addr)
}

// UpdateRequest carries optional plaintext field updates. Nil fields are
// left unchanged.
type UpdateRequest struct {
	Name       *string `json:"name,omitempty"`
	Line       *string `json:"line,omitempty"`
	Street     *string `json:"street,omitempty"`
	Suburb     *string `json:"suburb,omitempty"`
	Region     *string `json:"region,omitempty"`
	PostalCode *string `json:"postal_code,omitempty"`
	IsDefault  *bool   `json:"is_default,omitempty"`
}

func (r *UpdateRequest) touchesContent() bool {
	return r.Line != nil || r.Street != nil || r.Suburb != nil || r.Region != nil || r.PostalCode != nil
}

// Update applies a partial edit. Any content change re-encrypts the affected
// fields and flags the row for a ledger update.
func (s *Service) Update(ctx context.Context, userID id.UserID, addressID id.AddressID, req UpdateRequest) (*models.Breakdown, error) {
	addr, err := s.findOwned(ctx, userID, addressID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if *req.Name == "" {
			return nil, dErrors.New(dErrors.CodeValidation, "address name cannot be empty")
		}
		if len(*req.Name) > 255 {
			return nil, dErrors.New(dErrors.CodeValidation, "address name must be 255 characters or less")
		}
		addr.Name = *req.Name
	}
	if req.PostalCode != nil {
		if err := models.ValidatePostalCode(*req.PostalCode); err != nil {
			return nil, dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
		}
	}
	if req.IsDefault != nil {
		addr.IsDefault = *req.IsDefault
	}

	now := requestcontext.Now(ctx)
	var breakdown *models.Breakdown
	if req.touchesContent() {
		plain, err := s.cipher.DecryptFields(addr.FieldMap(), models.EncryptedFields, crypto.DecryptStrict)
		if err != nil {
			return nil, err
		}
		applyUpdates(plain, req)

		addr.ApplyFieldMap(plain)
		breakdown = toBreakdown(addr)

		encrypted, err := s.cipher.EncryptFields(plain, models.EncryptedFields)
		if err != nil {
			return nil, err
		}
		addr.ApplyFieldMap(encrypted)
		addr.MarkDirty(now)
	} else {
		addr.UpdatedAt = now
		breakdown, err = s.decrypt(addr)
		if err != nil {
			return nil, err
		}
		breakdown.Name = addr.Name
		breakdown.IsDefault = addr.IsDefault
	}

	if err := s.store.Update(ctx, addr); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "address not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update address")
	}

	s.logAudit(ctx, audit.EventAddressUpdated, userID, addr.ID)
	if s.metrics != nil {
		s.metrics.AddressesUpdated.Inc()
	}
	return breakdown, nil
}

func applyUpdates(plain map[string]string, req UpdateRequest) {
	if req.Line != nil {
		plain["line"] = *req.Line
	}
	if req.Street != nil {
		plain["street"] = *req.Street
	}
	if req.Suburb != nil {
		plain["suburb"] = *req.Suburb
	}
	if req.Region != nil {
		plain["region"] = *req.Region
	}
	if req.PostalCode != nil {
		plain["postal_code"] = *req.PostalCode
	}
}

// SetDefault makes the address the user's default.
func (s *Service) SetDefault(ctx context.Context, userID id.UserID, addressID id.AddressID) error {
	if err := s.store.SetDefault(ctx, userID, addressID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "address not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to set default address")
	}
	s.logAudit(ctx, audit.EventAddressSetDefault, userID, addressID)
	return nil
}

// Delete soft-deletes the address. The row stays behind for lookup history;
// a synced copy is picked up by the engine for ledger-side deletion.
func (s *Service) Delete(ctx context.Context, userID id.UserID, addressID id.AddressID) error {
	addr, err := s.findOwned(ctx, userID, addressID)
	if err != nil {
		return err
	}
	if err := addr.CanDeactivate(); err != nil {
		return dErrors.New(dErrors.CodeConflict, dErrors.MessageOf(err))
	}
	addr.ApplyDeactivation(requestcontext.Now(ctx))

	if err := s.store.Update(ctx, addr); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "address not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete address")
	}

	s.logAudit(ctx, audit.EventAddressDeleted, userID, addressID)
	if s.metrics != nil {
		s.metrics.AddressesDeleted.Inc()
	}
	return nil
}

// SyncStatus is the owner-visible view of a record's ledger state.
type SyncStatus struct {
	IsSynced     bool    `json:"is_synced"`
	NeedsSync    bool    `json:"needs_sync"`
	TxRef        *string `json:"tx_ref,omitempty"`
	BlockRef     *int64  `json:"block_ref,omitempty"`
	BlobRef      *string `json:"blob_ref,omitempty"`
	LastSyncedAt *string `json:"last_synced_at,omitempty"`
}

// GetSyncStatus reports the ledger sync state of one owned address.
func (s *Service) GetSyncStatus(ctx context.Context, userID id.UserID, addressID id.AddressID) (*SyncStatus, error) {
	addr, err := s.findOwned(ctx, userID, addressID)
	if err != nil {
		return nil, err
	}
	status := &SyncStatus{
		IsSynced:  addr.IsSynced,
		NeedsSync: addr.NeedsSync,
		TxRef:     addr.TxRef,
		BlockRef:  addr.BlockRef,
		BlobRef:   addr.BlobRef,
	}
	if addr.LastSyncedAt != nil {
		v := addr.LastSyncedAt.UTC().Format(time.RFC3339)
		status.LastSyncedAt = &v
	}
	return status, nil
}

// FetchFromLedger reads the ledger's copy of an owned address and returns it
// decrypted. The local row is authoritative; this exists for owners to verify
// what the ledger holds.
func (s *Service) FetchFromLedger(ctx context.Context, userID id.UserID, addressID id.AddressID) (*models.Breakdown, error) {
	if s.ledger == nil || s.signers == nil {
		return nil, dErrors.New(dErrors.CodeLedgerUnavailable, "ledger is not configured")
	}
	addr, err := s.findOwned(ctx, userID, addressID)
	if err != nil {
		return nil, err
	}
	if !addr.IsSynced {
		return nil, dErrors.New(dErrors.CodeNotFound, "address has not been synchronized")
	}

	signer, err := s.signers.Resolve(ctx, addr.UserID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "no signing identity for user")
	}

	record, err := s.ledger.Fetch(ctx, ledger.KeyFromAddressID(addr.ID), signer)
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "record not found on ledger")
		case errors.Is(err, sentinel.ErrUnavailable):
			return nil, dErrors.Wrap(err, dErrors.CodeLedgerUnavailable, "ledger is unreachable")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeLedgerRejected, "ledger read failed")
		}
	}

	// The engine decrypts before storing, so the ledger copy is plaintext.
	return &models.Breakdown{
		ID:         addr.ID,
		Name:       record.Name,
		Line:       record.Line,
		Street:     record.Street,
		Suburb:     record.Suburb,
		Region:     record.Region,
		PostalCode: record.PostalCode,
		IsDefault:  record.IsDefault,
		IsActive:   record.IsActive,
	}, nil
}

func (s *Service) findOwned(ctx context.Context, userID id.UserID, addressID id.AddressID) (*models.Address, error) {
	addr, err := s.store.FindByIDForUser(ctx, addressID, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "address not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load address")
	}
	return addr, nil
}

// decrypt is strict: a row that no longer decrypts is an error, never raw
// ciphertext served as if it were the address.
func (s *Service) decrypt(addr *models.Address) (*models.Breakdown, error) {
	plain, err := s.cipher.DecryptFields(addr.FieldMap(), models.EncryptedFields, crypto.DecryptStrict)
	if err != nil {
		return nil, err
	}
	copied := *addr
	copied.ApplyFieldMap(plain)
	return toBreakdown(&copied), nil
}

func toBreakdown(addr *models.Address) *models.Breakdown {
	return &models.Breakdown{
		ID:         addr.ID,
		Name:       addr.Name,
		Line:       addr.Line,
		Street:     addr.Street,
		Suburb:     addr.Suburb,
		Region:     addr.Region,
		PostalCode: addr.PostalCode,
		IsDefault:  addr.IsDefault,
		IsActive:   addr.IsActive,
	}
}

func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, userID id.UserID, addressID id.AddressID) {
	if s.logger != nil {
		attributes := []any{
			"event", string(event),
			"user_id", userID.String(),
			"address_id", addressID.String(),
			"log_type", "audit",
		}
		if requestID := requestcontext.RequestID(ctx); requestID != "" {
			attributes = append(attributes, "request_id", requestID)
		}
		s.logger.InfoContext(ctx, string(event), attributes...)
	}
	if s.auditPublisher == nil {
		return
	}
	_ = s.auditPublisher.Emit(ctx, audit.Event{
		UserID:    userID,
		AddressID: addressID,
		Action:    string(event),
		ClientIP:  requestcontext.ClientIP(ctx),
		UserAgent: requestcontext.UserAgent(ctx),
	})
}
