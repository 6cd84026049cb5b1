package apihttp

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	ingestion "energy-square/internal/ingestion/domain"
)

const pingTimeout = 2 * time.Second

// Registrar mounts the routes of one bounded context.
type Registrar interface {
	Register(r *mux.Router)
}

// Pinger checks a backing store. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// DatasetSource returns the published dataset.
type DatasetSource interface {
	Current() *ingestion.Dataset
}

// HealthHandler reports liveness together with the store and snapshot state.
type HealthHandler struct {
	db      Pinger
	dataset DatasetSource
}

// NewHealthHandler constructs a HealthHandler. db may be nil when the
// service runs on in-memory stores.
func NewHealthHandler(db Pinger, dataset DatasetSource) *HealthHandler {
	return &HealthHandler{db: db, dataset: dataset}
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	RunID    string `json:"dataset_run_id"`
}

// ServeHTTP handles GET /healthz.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	resp := healthResponse{Status: "ok", Database: "disabled"}
	status := http.StatusOK
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			resp.Status = "server not ready"
			resp.Database = "unavailable"
			status = http.StatusServiceUnavailable
		} else {
			resp.Database = "ok"
		}
	}
	if h.dataset != nil {
		if ds := h.dataset.Current(); ds != nil {
			resp.RunID = ds.Metadata.RunID
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// NewRouter mounts /healthz, /metrics and the context routes.
func NewRouter(health http.Handler, registrars ...Registrar) *mux.Router {
	router := mux.NewRouter()
	if health != nil {
		router.Handle("/healthz", health).Methods(http.MethodGet)
	}
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	for _, reg := range registrars {
		if reg != nil {
			reg.Register(router)
		}
	}
	return router
}

// Wrap adds panic recovery and access logging.
func Wrap(next http.Handler, logger *log.Logger) http.Handler {
	if logger == nil {
		logger = log.Default()
	}
	recovered := handlers.RecoveryHandler(
		handlers.RecoveryLogger(logger),
		handlers.PrintRecoveryStack(true),
	)(next)
	return handlers.LoggingHandler(logger.Writer(), recovered)
}
