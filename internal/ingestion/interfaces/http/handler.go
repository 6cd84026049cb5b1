package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	ingestionapp "energy-square/internal/ingestion/application"
	ingestion "energy-square/internal/ingestion/domain"
)

// RunTrigger starts an ingestion run.
type RunTrigger interface {
	Run(ctx context.Context) (*ingestionapp.RunReport, error)
}

// DatasetSource returns the published dataset.
type DatasetSource interface {
	Current() *ingestion.Dataset
}

// Handler exposes manual ingestion runs and the published snapshot status.
type Handler struct {
	runner  RunTrigger
	dataset DatasetSource
	logger  *log.Logger
}

// NewHandler constructs a handler.
func NewHandler(runner RunTrigger, dataset DatasetSource, logger *log.Logger) (*Handler, error) {
	if runner == nil {
		return nil, errors.New("ingestion handler: nil runner")
	}
	if dataset == nil {
		return nil, errors.New("ingestion handler: nil dataset source")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{runner: runner, dataset: dataset, logger: logger}, nil
}

// Register mounts the ingestion routes.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/api/v1/ingestion/run", h.handleRun).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/ingestion/status", h.handleStatus).Methods(http.MethodGet)
}

func (h *Handler) handleRun(w http.ResponseWriter, r *http.Request) {
	report, err := h.runner.Run(r.Context())
	if err != nil {
		if errors.Is(err, ingestion.ErrRunInProgress) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		h.logger.Printf("ingestion handler: run error: %v", err)
		http.Error(w, "ingestion run failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(report)
}

type statusResponse struct {
	RunID              string               `json:"run_id"`
	TransformationDate time.Time            `json:"transformation_date"`
	DataPeriod         ingestion.DataPeriod `json:"data_period"`
	TotalRecords       map[string]int       `json:"total_records"`
	Unavailable        []string             `json:"unavailable_sources"`
	Plants             []string             `json:"plants"`
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	ds := h.dataset.Current()
	if ds == nil {
		ds = ingestion.Empty()
	}
	resp := statusResponse{
		RunID:              ds.Metadata.RunID,
		TransformationDate: ds.Metadata.TransformationDate,
		DataPeriod:         ds.Metadata.DataPeriod,
		TotalRecords:       ds.Metadata.TotalRecords,
		Unavailable:        ds.Metadata.Unavailable,
		Plants:             ds.PlantKeys(),
	}
	if resp.Unavailable == nil {
		resp.Unavailable = []string{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
