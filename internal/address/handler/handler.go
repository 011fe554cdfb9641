// Package handler exposes the address API over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"addresshub/internal/address/models"
	"addresshub/internal/address/service"
	"addresshub/internal/platform/middleware"
	id "addresshub/pkg/domain"
	dErrors "addresshub/pkg/domain-errors"
	"addresshub/pkg/platform/httputil"
	"addresshub/pkg/requestcontext"
)

// Service defines the interface for address operations.
type Service interface {
	Create(ctx context.Context, userID id.UserID, req service.CreateRequest) (*models.Breakdown, error)
	List(ctx context.Context, userID id.UserID) ([]*models.Breakdown, error)
	Get(ctx context.Context, userID id.UserID, addressID id.AddressID) (*models.Breakdown, error)
	GetDefault(ctx context.Context, userID id.UserID) (*models.Breakdown, error)
	Update(ctx context.Context, userID id.UserID, addressID id.AddressID, req service.UpdateRequest) (*models.Breakdown, error)
	SetDefault(ctx context.Context, userID id.UserID, addressID id.AddressID) error
	Delete(ctx context.Context, userID id.UserID, addressID id.AddressID) error
	GetSyncStatus(ctx context.Context, userID id.UserID, addressID id.AddressID) (*service.SyncStatus, error)
	FetchFromLedger(ctx context.Context, userID id.UserID, addressID id.AddressID) (*models.Breakdown, error)
}

// Handler handles address endpoints.
type Handler struct {
	logger       *slog.Logger
	addresses    Service
	jwtValidator middleware.JWTValidator
}

// New creates a new address Handler.
func New(addresses Service, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		addresses:    addresses,
		jwtValidator: jwtValidator,
	}
}

// Register registers the address routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(router chi.Router) {
		router.Use(middleware.Recovery(h.logger))
		router.Use(middleware.RequestID)
		router.Use(middleware.ClientMetadata)
		router.Use(middleware.Logger(h.logger))
		router.Use(middleware.Timeout(30 * time.Second))
		router.Use(middleware.RequireAuth(h.jwtValidator, h.logger))

		router.Post("/addresses", h.handleCreate)
		router.Get("/addresses", h.handleList)
		router.Get("/addresses/default", h.handleGetDefault)
		router.Get("/addresses/{addressID}", h.handleGet)
		router.Patch("/addresses/{addressID}", h.handleUpdate)
		router.Delete("/addresses/{addressID}", h.handleDelete)
		router.Post("/addresses/{addressID}/default", h.handleSetDefault)
		router.Get("/addresses/{addressID}/sync", h.handleSyncStatus)
		router.Get("/addresses/{addressID}/ledger", h.handleFetchFromLedger)
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)

	var req service.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	breakdown, err := h.addresses.Create(ctx, userID, req)
	if err != nil {
		h.writeServiceError(ctx, w, "create address", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, breakdown)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	out, err := h.addresses.List(ctx, requestcontext.UserID(ctx))
	if err != nil {
		h.writeServiceError(ctx, w, "list addresses", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"addresses": out})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	addressID, err := id.ParseAddressID(chi.URLParam(r, "addressID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	breakdown, err := h.addresses.Get(ctx, requestcontext.UserID(ctx), addressID)
	if err != nil {
		h.writeServiceError(ctx, w, "get address", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, breakdown)
}

func (h *Handler) handleGetDefault(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	breakdown, err := h.addresses.GetDefault(ctx, requestcontext.UserID(ctx))
	if err != nil {
		h.writeServiceError(ctx, w, "get default address", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, breakdown)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	addressID, err := id.ParseAddressID(chi.URLParam(r, "addressID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req service.UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	breakdown, err := h.addresses.Update(ctx, requestcontext.UserID(ctx), addressID, req)
	if err != nil {
		h.writeServiceError(ctx, w, "update address", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, breakdown)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	addressID, err := id.ParseAddressID(chi.URLParam(r, "addressID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.addresses.Delete(ctx, requestcontext.UserID(ctx), addressID); err != nil {
		h.writeServiceError(ctx, w, "delete address", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSetDefault(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	addressID, err := id.ParseAddressID(chi.URLParam(r, "addressID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.addresses.SetDefault(ctx, requestcontext.UserID(ctx), addressID); err != nil {
		h.writeServiceError(ctx, w, "set default address", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	addressID, err := id.ParseAddressID(chi.URLParam(r, "addressID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	status, err := h.addresses.GetSyncStatus(ctx, requestcontext.UserID(ctx), addressID)
	if err != nil {
		h.writeServiceError(ctx, w, "get sync status", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, status)
}

func (h *Handler) handleFetchFromLedger(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	addressID, err := id.ParseAddressID(chi.URLParam(r, "addressID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	breakdown, err := h.addresses.FetchFromLedger(ctx, requestcontext.UserID(ctx), addressID)
	if err != nil {
		h.writeServiceError(ctx, w, "fetch from ledger", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, breakdown)
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, "address operation failed",
			"operation", op,
			"error", err.Error(),
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	httputil.WriteError(w, err)
}
