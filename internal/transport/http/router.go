// Package httptransport composes the public HTTP surface. Business logic
// lives in the feature services; each feature handler registers its own
// routes and middleware stack.
package httptransport

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	addresshandler "addresshub/internal/address/handler"
	lookuphandler "addresshub/internal/lookup/handler"
	orghandler "addresshub/internal/org/handler"
	"addresshub/pkg/platform/httputil"
)

// LedgerProbe reports remote ledger reachability for the status endpoint.
type LedgerProbe interface {
	IsConnected(ctx context.Context) bool
}

// Deps carries everything the router needs. DB and Redis are optional and
// only feed the health endpoint.
type Deps struct {
	Logger    *slog.Logger
	Addresses *addresshandler.Handler
	Orgs      *orghandler.Handler
	Lookups   *lookuphandler.Handler
	Ledger    LedgerProbe
	DB        *sql.DB
	Redis     interface {
		Health(ctx context.Context) error
	}
}

// NewRouter wires all public endpoints.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", deps.handleHealth)
	r.Get("/ledger/status", deps.handleLedgerStatus)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	deps.Addresses.Register(r)
	deps.Orgs.Register(r)
	deps.Lookups.Register(r)

	return r
}

func (d Deps) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	checks := map[string]string{}
	healthy := true

	if d.DB != nil {
		checks["database"] = "ok"
		if err := d.DB.PingContext(ctx); err != nil {
			checks["database"] = err.Error()
			healthy = false
		}
	}
	if d.Redis != nil {
		checks["redis"] = "ok"
		if err := d.Redis.Health(ctx); err != nil {
			checks["redis"] = err.Error()
			healthy = false
		}
	}

	status := http.StatusOK
	state := "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		state = "degraded"
	}
	httputil.WriteJSON(w, status, map[string]any{
		"status": state,
		"checks": checks,
	})
}

func (d Deps) handleLedgerStatus(w http.ResponseWriter, r *http.Request) {
	connected := false
	if d.Ledger != nil {
		connected = d.Ledger.IsConnected(r.Context())
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"connected": connected,
	})
}
