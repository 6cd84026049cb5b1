package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	dashboardapp "energy-square/internal/dashboard/application"
	dashboard "energy-square/internal/dashboard/domain"
	"energy-square/internal/dashboard/interfaces"
	energy "energy-square/internal/energy/domain"
	"energy-square/internal/observability/metrics"
)

const (
	maxDays       = 365
	maxBodyBytes  = 1 << 20
	trendsDefault = 30
)

// MetricEngine serves the individual engine metrics.
type MetricEngine interface {
	Live(ctx context.Context) energy.Live
	EnergyFlow(ctx context.Context, days int) []energy.FlowPoint
	EnergyTrends(ctx context.Context, days int) []energy.FlowPoint
	GridTelemetry(ctx context.Context) energy.Telemetry
	CarbonMetrics(ctx context.Context) energy.Carbon
}

// Handler provides analytics and dashboard endpoints.
type Handler struct {
	service *dashboardapp.Service
	engine  MetricEngine
	logger  *log.Logger
}

// NewHandler constructs a handler.
func NewHandler(service *dashboardapp.Service, engine MetricEngine, logger *log.Logger) (*Handler, error) {
	if service == nil {
		return nil, errors.New("dashboard handler: nil service")
	}
	if engine == nil {
		return nil, errors.New("dashboard handler: nil engine")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{service: service, engine: engine, logger: logger}, nil
}

// Register mounts the analytics routes.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/api/v1/analytics/community", h.handleCommunity).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/analytics/live", h.handleLive).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/analytics/energy-flow", h.handleEnergyFlow).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/analytics/energy-trends", h.handleEnergyTrends).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/analytics/grid-telemetry", h.handleGridTelemetry).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/analytics/carbon", h.handleCarbon).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/analytics/demand-response", h.handleDemandResponse).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/analytics/demand-response/programs", h.handleListPrograms).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/analytics/demand-response/programs", h.handleCreateProgram).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/analytics/debug", h.handleDebug).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/analytics/reports/energy-flow.{format:pdf|xlsx}", h.handleReport).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/users/{user_id}/dashboard", h.handleUser).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/users/{user_id}/marketplace", h.handleMarketplace).Methods(http.MethodGet)
}

func (h *Handler) handleCommunity(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Community(r.Context()))
}

func (h *Handler) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Live(r.Context()))
}

func (h *Handler) handleEnergyFlow(w http.ResponseWriter, r *http.Request) {
	days, err := parseDays(r, 1)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, h.engine.EnergyFlow(r.Context(), days))
}

func (h *Handler) handleEnergyTrends(w http.ResponseWriter, r *http.Request) {
	days, err := parseDays(r, trendsDefault)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, h.engine.EnergyTrends(r.Context(), days))
}

func (h *Handler) handleGridTelemetry(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.GridTelemetry(r.Context()))
}

func (h *Handler) handleCarbon(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.CarbonMetrics(r.Context()))
}

func (h *Handler) handleDemandResponse(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.DemandResponse(r.Context()))
}

func (h *Handler) handleListPrograms(w http.ResponseWriter, r *http.Request) {
	programs, err := h.service.ListPrograms(r.Context())
	if err != nil {
		h.logger.Printf("dashboard handler: list programs error: %v", err)
		http.Error(w, "failed to list programs", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, programs)
}

func (h *Handler) handleCreateProgram(w http.ResponseWriter, r *http.Request) {
	var in dashboard.ProgramInput
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&in); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	program, err := h.service.CreateProgram(r.Context(), in)
	if err != nil {
		if errors.Is(err, dashboard.ErrInvalidProgram) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "failed to create program", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, program)
}

func (h *Handler) handleDebug(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Debug(r.Context()))
}

func (h *Handler) handleUser(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.User(r.Context(), mux.Vars(r)["user_id"]))
}

func (h *Handler) handleMarketplace(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Marketplace(r.Context(), mux.Vars(r)["user_id"]))
}

// handleReport exports the energy-flow report as PDF or XLSX.
func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	format := mux.Vars(r)["format"]
	days, err := parseDays(r, 1)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	report := h.service.EnergyFlowReport(r.Context(), days)

	var (
		payload     []byte
		contentType string
	)
	switch format {
	case "pdf":
		payload, err = interfaces.BuildEnergyFlowPDF(report)
		contentType = "application/pdf"
	default:
		payload, err = interfaces.BuildEnergyFlowXLSX(report)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	if err != nil {
		h.logger.Printf("dashboard handler: report export error: format=%s err=%v", format, err)
		metrics.ObserveReportExport(format, metrics.ResultError, time.Since(started))
		http.Error(w, "failed to build report", http.StatusInternalServerError)
		return
	}
	metrics.ObserveReportExport(format, metrics.ResultSuccess, time.Since(started))

	filename := fmt.Sprintf("energy-flow-%s.%s", report.GeneratedAt.Format("20060102"), format)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

func parseDays(r *http.Request, fallback int) (int, error) {
	value := r.URL.Query().Get("days")
	if value == "" {
		return fallback, nil
	}
	days, err := strconv.Atoi(value)
	if err != nil || days < 1 || days > maxDays {
		return 0, fmt.Errorf("days must be an integer between 1 and %d", maxDays)
	}
	return days, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
