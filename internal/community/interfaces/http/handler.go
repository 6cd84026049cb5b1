package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	communityapp "energy-square/internal/community/application"
	community "energy-square/internal/community/domain"
)

const maxBodyBytes = 1 << 20

// Handler provides community config endpoints.
type Handler struct {
	provider *communityapp.Provider
	logger   *log.Logger
}

// NewHandler constructs a handler.
func NewHandler(provider *communityapp.Provider, logger *log.Logger) (*Handler, error) {
	if provider == nil {
		return nil, errors.New("config handler: nil provider")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{provider: provider, logger: logger}, nil
}

// Register mounts the config routes.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/api/v1/config", h.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/config", h.handleUpdate).Methods(http.MethodPut)
	r.HandleFunc("/api/v1/config/reset", h.handleReset).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/config/validation", h.handleValidation).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/config/bounds", h.handleBounds).Methods(http.MethodGet)
}

type configResponse struct {
	community.Config
	Derived community.Derived `json:"derived"`
}

type errorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.provider.Get(r.Context())
	if err != nil {
		h.logger.Printf("config handler: get error: %v", err)
		http.Error(w, "config unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, configResponse{Config: cfg, Derived: cfg.Derived()})
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var updates map[string]json.RawMessage
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&updates); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json body"})
		return
	}
	cfg, err := h.provider.Update(r.Context(), updates)
	if err != nil {
		h.respondWriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, configResponse{Config: cfg, Derived: cfg.Derived()})
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.provider.Reset(r.Context())
	if err != nil {
		h.respondWriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, configResponse{Config: cfg, Derived: cfg.Derived()})
}

func (h *Handler) handleValidation(w http.ResponseWriter, r *http.Request) {
	report, err := h.provider.Report(r.Context())
	if err != nil {
		h.logger.Printf("config handler: validation error: %v", err)
		http.Error(w, "config unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) handleBounds(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, community.Bounds())
}

func (h *Handler) respondWriteError(w http.ResponseWriter, err error) {
	var verrs community.ValidationErrors
	var ferr *community.FieldError
	switch {
	case errors.As(err, &verrs):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Fields: verrs.Fields()})
	case errors.As(err, &ferr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Fields: []string{ferr.Field}})
	case errors.Is(err, community.ErrNoUpdates):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, community.ErrVersionConflict):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	default:
		h.logger.Printf("config handler: write error: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "config write failed"})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
