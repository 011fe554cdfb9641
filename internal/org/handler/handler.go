// Package handler exposes organization management over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"addresshub/internal/org/models"
	"addresshub/internal/platform/middleware"
	id "addresshub/pkg/domain"
	dErrors "addresshub/pkg/domain-errors"
	"addresshub/pkg/platform/httputil"
	"addresshub/pkg/requestcontext"
)

// Service defines the interface for organization operations.
type Service interface {
	CreateOrganization(ctx context.Context, creator id.UserID, name, description string) (*models.Organization, error)
	GetOrganization(ctx context.Context, caller id.UserID, orgID id.OrgID) (*models.Organization, error)
	ListOrganizations(ctx context.Context, caller id.UserID) ([]*models.Organization, error)
	ListMembers(ctx context.Context, caller id.UserID, orgID id.OrgID) ([]*models.Membership, error)
	AddMember(ctx context.Context, actor id.UserID, orgID id.OrgID, userID id.UserID, role models.Role) (*models.Membership, error)
	ChangeRole(ctx context.Context, actor id.UserID, orgID id.OrgID, target id.UserID, role models.Role) (*models.Membership, error)
	DeactivateMember(ctx context.Context, actor id.UserID, orgID id.OrgID, target id.UserID) error
	GrantAccess(ctx context.Context, owner id.UserID, addressID id.AddressID, orgID id.OrgID) (*models.Grant, error)
	RevokeAccess(ctx context.Context, owner id.UserID, addressID id.AddressID, orgID id.OrgID) error
	ListGrants(ctx context.Context, owner id.UserID, addressID id.AddressID) ([]*models.Grant, error)
}

// Handler handles organization endpoints.
type Handler struct {
	logger       *slog.Logger
	orgs         Service
	jwtValidator middleware.JWTValidator
}

// New creates a new organization Handler.
func New(orgs Service, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		orgs:         orgs,
		jwtValidator: jwtValidator,
	}
}

// Register registers the organization routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(router chi.Router) {
		router.Use(middleware.Recovery(h.logger))
		router.Use(middleware.RequestID)
		router.Use(middleware.ClientMetadata)
		router.Use(middleware.Logger(h.logger))
		router.Use(middleware.Timeout(30 * time.Second))
		router.Use(middleware.RequireAuth(h.jwtValidator, h.logger))

		router.Post("/orgs", h.handleCreateOrg)
		router.Get("/orgs", h.handleListOrgs)
		router.Get("/orgs/{orgID}", h.handleGetOrg)
		router.Get("/orgs/{orgID}/members", h.handleListMembers)
		router.Post("/orgs/{orgID}/members", h.handleAddMember)
		router.Patch("/orgs/{orgID}/members/{userID}", h.handleChangeRole)
		router.Delete("/orgs/{orgID}/members/{userID}", h.handleDeactivateMember)
		router.Post("/addresses/{addressID}/grants", h.handleGrant)
		router.Get("/addresses/{addressID}/grants", h.handleListGrants)
		router.Delete("/addresses/{addressID}/grants/{orgID}", h.handleRevoke)
	})
}

func (h *Handler) handleCreateOrg(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	org, err := h.orgs.CreateOrganization(ctx, requestcontext.UserID(ctx), req.Name, req.Description)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, org)
}

func (h *Handler) handleGetOrg(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID, err := id.ParseOrgID(chi.URLParam(r, "orgID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	org, err := h.orgs.GetOrganization(ctx, requestcontext.UserID(ctx), orgID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, org)
}

func (h *Handler) handleListOrgs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgs, err := h.orgs.ListOrganizations(ctx, requestcontext.UserID(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"organizations": orgs})
}

func (h *Handler) handleListMembers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID, err := id.ParseOrgID(chi.URLParam(r, "orgID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	members, err := h.orgs.ListMembers(ctx, requestcontext.UserID(ctx), orgID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"members": members})
}

func (h *Handler) handleAddMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID, err := id.ParseOrgID(chi.URLParam(r, "orgID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req struct {
		UserID string `json:"user_id"`
		Role   string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	userID, err := id.ParseUserID(req.UserID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	role, err := models.ParseRole(req.Role)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	m, err := h.orgs.AddMember(ctx, requestcontext.UserID(ctx), orgID, userID, role)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, m)
}

func (h *Handler) handleChangeRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID, err := id.ParseOrgID(chi.URLParam(r, "orgID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	target, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req struct {
		Role string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	role, err := models.ParseRole(req.Role)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	m, err := h.orgs.ChangeRole(ctx, requestcontext.UserID(ctx), orgID, target, role)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, m)
}

func (h *Handler) handleDeactivateMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID, err := id.ParseOrgID(chi.URLParam(r, "orgID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	target, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.orgs.DeactivateMember(ctx, requestcontext.UserID(ctx), orgID, target); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGrant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	addressID, err := id.ParseAddressID(chi.URLParam(r, "addressID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req struct {
		OrgID string `json:"org_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	orgID, err := id.ParseOrgID(req.OrgID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	grant, err := h.orgs.GrantAccess(ctx, requestcontext.UserID(ctx), addressID, orgID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, grant)
}

func (h *Handler) handleListGrants(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	addressID, err := id.ParseAddressID(chi.URLParam(r, "addressID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	grants, err := h.orgs.ListGrants(ctx, requestcontext.UserID(ctx), addressID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"grants": grants})
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	addressID, err := id.ParseAddressID(chi.URLParam(r, "addressID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	orgID, err := id.ParseOrgID(chi.URLParam(r, "orgID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.orgs.RevokeAccess(ctx, requestcontext.UserID(ctx), addressID, orgID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
