// Package service gates organization-initiated address lookups and writes
// the audit trail.
//
// Audit semantics: a lookup against an address that does not exist produces
// no record (there is nothing to attribute access to); a denied lookup
// against an existing address produces a denied record; a successful lookup
// always produces a granted record. Callers that are not members of the
// organization are rejected before the address is even resolved and leave no
// record, since the attempt cannot be attributed to the organization.
//
// A caller is never told whether a denied address exists: both the
// missing-address and missing-grant paths return the same access-denied
// error.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	addressmodels "addresshub/internal/address/models"
	"addresshub/internal/audit"
	"addresshub/internal/crypto"
	"addresshub/internal/lookup/models"
	orgmodels "addresshub/internal/org/models"
	"addresshub/internal/platform/metrics"
	id "addresshub/pkg/domain"
	dErrors "addresshub/pkg/domain-errors"
	"addresshub/pkg/platform/sentinel"
	"addresshub/pkg/requestcontext"
)

type Store interface {
	Append(ctx context.Context, record *models.Record) error
	ListByOrganization(ctx context.Context, orgID id.OrgID, limit int) ([]*models.Record, error)
}

// AddressStore resolves lookup targets. Unscoped on purpose: the grant, not
// ownership, authorizes the read.
type AddressStore interface {
	FindByID(ctx context.Context, addressID id.AddressID) (*addressmodels.Address, error)
}

// Registry answers the two access-control questions.
type Registry interface {
	RequireMembership(ctx context.Context, orgID id.OrgID, userID id.UserID) (*orgmodels.Membership, error)
	HasActiveGrant(ctx context.Context, addressID id.AddressID, orgID id.OrgID) (bool, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service performs audited organization lookups.
type Service struct {
	store          Store
	addresses      AddressStore
	registry       Registry
	cipher         *crypto.FieldCipher
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

// New constructs a Service.
func New(store Store, addresses AddressStore, registry Registry, cipher *crypto.FieldCipher, opts ...Option) *Service {
	s := &Service{store: store, addresses: addresses, registry: registry, cipher: cipher}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var errAccessDenied = dErrors.New(dErrors.CodeNoActiveGrant, "access denied")

// Lookup resolves an address on behalf of an organization. On success the
// caller receives the decrypted breakdown; every resolvable attempt is
// audited.
func (s *Service) Lookup(ctx context.Context, caller id.UserID, orgID id.OrgID, addressID id.AddressID, note string) (*addressmodels.Breakdown, error) {
	if _, err := s.registry.RequireMembership(ctx, orgID, caller); err != nil {
		s.countDenied(dErrors.CodeOf(err))
		return nil, err
	}

	addr, err := s.addresses.FindByID(ctx, addressID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// No audit row: nothing exists to attribute access to, and the
			// uniform denial hides existence from the caller.
			s.countDenied(dErrors.CodeNoActiveGrant)
			return nil, errAccessDenied
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve address")
	}

	granted, err := s.registry.HasActiveGrant(ctx, addressID, orgID)
	if err != nil {
		return nil, err
	}
	if !granted || !addr.IsActive {
		if err := s.record(ctx, caller, orgID, addressID, false, note); err != nil {
			return nil, err
		}
		s.emitLookup(ctx, audit.EventLookupDenied, caller, orgID, addressID, "no_active_grant")
		s.countDenied(dErrors.CodeNoActiveGrant)
		return nil, errAccessDenied
	}

	// Strict: a wrongly keyed row errors rather than leaking ciphertext to
	// the organization. Only the batch-prepare path tolerates plaintext.
	plain, err := s.cipher.DecryptFields(addr.FieldMap(), addressmodels.EncryptedFields, crypto.DecryptStrict)
	if err != nil {
		return nil, err
	}

	if err := s.record(ctx, caller, orgID, addressID, true, note); err != nil {
		return nil, err
	}
	s.emitLookup(ctx, audit.EventLookupGranted, caller, orgID, addressID, "")
	if s.metrics != nil {
		s.metrics.LookupsGranted.Inc()
	}

	return &addressmodels.Breakdown{
		ID:         addr.ID,
		Name:       addr.Name,
		Line:       plain["line"],
		Street:     plain["street"],
		Suburb:     plain["suburb"],
		Region:     plain["region"],
		PostalCode: plain["postal_code"],
		IsDefault:  addr.IsDefault,
		IsActive:   addr.IsActive,
	}, nil
}

// History returns the organization's lookup records, newest first. Any
// active member may review their organization's own trail.
func (s *Service) History(ctx context.Context, caller id.UserID, orgID id.OrgID, limit int) ([]*models.Record, error) {
	if _, err := s.registry.RequireMembership(ctx, orgID, caller); err != nil {
		return nil, err
	}
	records, err := s.store.ListByOrganization(ctx, orgID, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list lookup records")
	}
	return records, nil
}

func (s *Service) record(ctx context.Context, caller id.UserID, orgID id.OrgID, addressID id.AddressID, granted bool, note string) error {
	rec := &models.Record{
		ID:        id.RecordID(uuid.New()),
		OrgID:     orgID,
		UserID:    caller,
		AddressID: addressID,
		Granted:   granted,
		ClientIP:  requestcontext.ClientIP(ctx),
		UserAgent: requestcontext.UserAgent(ctx),
		Note:      note,
		CreatedAt: requestcontext.Now(ctx),
	}
	if err := s.store.Append(ctx, rec); err != nil {
		// The audit row is part of the contract; a lookup that cannot be
		// recorded must not return data.
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record lookup")
	}
	return nil
}

func (s *Service) emitLookup(ctx context.Context, event audit.AuditEvent, caller id.UserID, orgID id.OrgID, addressID id.AddressID, reason string) {
	if s.logger != nil {
		attributes := []any{
			"event", string(event),
			"user_id", caller.String(),
			"org_id", orgID.String(),
			"address_id", addressID.String(),
			"log_type", "audit",
		}
		if reason != "" {
			attributes = append(attributes, "reason", reason)
		}
		if requestID := requestcontext.RequestID(ctx); requestID != "" {
			attributes = append(attributes, "request_id", requestID)
		}
		s.logger.InfoContext(ctx, string(event), attributes...)
	}
	if s.auditPublisher == nil {
		return
	}
	decision := models.OutcomeGranted
	if event == audit.EventLookupDenied {
		decision = models.OutcomeDenied
	}
	_ = s.auditPublisher.Emit(ctx, audit.Event{
		UserID:    caller,
		OrgID:     orgID,
		AddressID: addressID,
		Action:    string(event),
		Decision:  decision,
		Reason:    reason,
		ClientIP:  requestcontext.ClientIP(ctx),
		UserAgent: requestcontext.UserAgent(ctx),
	})
}

func (s *Service) countDenied(code dErrors.Code) {
	if s.metrics != nil {
		s.metrics.LookupsDenied.WithLabelValues(string(code)).Inc()
	}
}
