package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	deviceapp "energy-square/internal/devices/application"
	devices "energy-square/internal/devices/domain"
)

// Handler provides user device endpoints.
type Handler struct {
	service *deviceapp.Service
}

// NewHandler constructs a handler.
func NewHandler(service *deviceapp.Service) (*Handler, error) {
	if service == nil {
		return nil, errors.New("devices handler: nil service")
	}
	return &Handler{service: service}, nil
}

// Register mounts the device routes.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/api/v1/devices", h.handleList).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/devices/summary", h.handleSummary).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/devices/seed", h.handleSeed).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/users/{user_id}/device", h.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/users/{user_id}/device", h.handlePut).Methods(http.MethodPut)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.ListAll(r.Context()))
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.AggregateCommunity(r.Context()))
}

func (h *Handler) handleSeed(w http.ResponseWriter, r *http.Request) {
	seeded, err := h.service.SeedSampleUsers(r.Context())
	if err != nil {
		http.Error(w, "failed to seed users", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, seeded)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.GetUserDevice(r.Context(), mux.Vars(r)["user_id"]))
}

func (h *Handler) handlePut(w http.ResponseWriter, r *http.Request) {
	var device devices.UserDevice
	if err := json.NewDecoder(r.Body).Decode(&device); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	device.UserID = mux.Vars(r)["user_id"]
	stored, err := h.service.Register(r.Context(), device)
	if err != nil {
		if errors.Is(err, devices.ErrInvalidDevice) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "failed to store device", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
