package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	noticeapp "energy-square/internal/notices/application"
	notices "energy-square/internal/notices/domain"
)

// Handler provides notice endpoints.
type Handler struct {
	service *noticeapp.Service
	logger  *log.Logger
}

// NewHandler constructs a handler.
func NewHandler(service *noticeapp.Service, logger *log.Logger) (*Handler, error) {
	if service == nil {
		return nil, errors.New("notices handler: nil service")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{service: service, logger: logger}, nil
}

// Register mounts the notice routes.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/api/v1/notices", h.handleList).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/notices", h.handleCreate).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/notices/community", h.handleCommunity).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/users/{user_id}/notices", h.handleUser).Methods(http.MethodGet)
}

type createRequest struct {
	Type          string `json:"type"`
	Severity      string `json:"severity"`
	Message       string `json:"message"`
	AffectedUsers int    `json:"affected_users"`
	UserID        string `json:"user_id"`
}

// handleList serves every notice, or one user's view when user_id is set.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var list []notices.Notice
	if userID := r.URL.Query().Get("user_id"); userID != "" {
		list, err = h.service.ListUserAlerts(r.Context(), userID, limit)
	} else {
		list, err = h.service.ListAllAlerts(r.Context(), limit)
	}
	h.respondList(w, list, err)
}

func (h *Handler) handleCommunity(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	list, err := h.service.ListCommunityAlerts(r.Context(), limit)
	h.respondList(w, list, err)
}

func (h *Handler) handleUser(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	list, err := h.service.ListUserAlerts(r.Context(), mux.Vars(r)["user_id"], limit)
	h.respondList(w, list, err)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	var (
		notice notices.Notice
		err    error
	)
	if req.UserID != "" {
		notice, err = h.service.CreateUserAlert(r.Context(), req.UserID, req.Type, req.Severity, req.Message)
	} else {
		notice, err = h.service.CreateCommunityAlert(r.Context(), req.Type, req.Severity, req.Message, req.AffectedUsers)
	}
	if err != nil {
		if errors.Is(err, notices.ErrInvalidNotice) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "failed to create notice", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(notice)
}

func (h *Handler) respondList(w http.ResponseWriter, list []notices.Notice, err error) {
	if err != nil {
		h.logger.Printf("notices handler: list error: %v", err)
		http.Error(w, "failed to list notices", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(list)
}

func parseLimit(r *http.Request) (int, error) {
	value := r.URL.Query().Get("limit")
	if value == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(value)
	if err != nil || limit < 0 {
		return 0, errors.New("limit must be a non-negative integer")
	}
	return limit, nil
}
