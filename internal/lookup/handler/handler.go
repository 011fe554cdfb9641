// Package handler exposes organization lookups and the audit trail over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	addressmodels "addresshub/internal/address/models"
	"addresshub/internal/lookup/models"
	"addresshub/internal/platform/middleware"
	id "addresshub/pkg/domain"
	dErrors "addresshub/pkg/domain-errors"
	"addresshub/pkg/platform/httputil"
	"addresshub/pkg/requestcontext"
)

const defaultHistoryLimit = 100

// Service defines the interface for lookup operations.
type Service interface {
	Lookup(ctx context.Context, caller id.UserID, orgID id.OrgID, addressID id.AddressID, note string) (*addressmodels.Breakdown, error)
	History(ctx context.Context, caller id.UserID, orgID id.OrgID, limit int) ([]*models.Record, error)
}

// Handler handles lookup endpoints.
type Handler struct {
	logger       *slog.Logger
	lookups      Service
	jwtValidator middleware.JWTValidator
}

// New creates a new lookup Handler.
func New(lookups Service, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		lookups:      lookups,
		jwtValidator: jwtValidator,
	}
}

// Register registers the lookup routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(router chi.Router) {
		router.Use(middleware.Recovery(h.logger))
		router.Use(middleware.RequestID)
		router.Use(middleware.ClientMetadata)
		router.Use(middleware.Logger(h.logger))
		router.Use(middleware.Timeout(30 * time.Second))
		router.Use(middleware.RequireAuth(h.jwtValidator, h.logger))

		router.Post("/orgs/{orgID}/lookup", h.handleLookup)
		router.Get("/orgs/{orgID}/lookups", h.handleHistory)
	})
}

func (h *Handler) handleLookup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID, err := id.ParseOrgID(chi.URLParam(r, "orgID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req struct {
		AddressID string `json:"address_id"`
		Note      string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	addressID, err := id.ParseAddressID(req.AddressID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	breakdown, err := h.lookups.Lookup(ctx, requestcontext.UserID(ctx), orgID, addressID, req.Note)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, breakdown)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID, err := id.ParseOrgID(chi.URLParam(r, "orgID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be a positive integer"))
			return
		}
		limit = n
	}

	records, err := h.lookups.History(ctx, requestcontext.UserID(ctx), orgID, limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"records": records})
}
