package http

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	deviceapp "energy-square/internal/devices/application"
	devices "energy-square/internal/devices/domain"
	"energy-square/internal/devices/infrastructure/memory"
)

func newTestRouter(t *testing.T) *mux.Router {
	t.Helper()
	service, err := deviceapp.NewService(memory.NewDeviceRepository(), log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	handler, err := NewHandler(service)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	router := mux.NewRouter()
	handler.Register(router)
	return router
}

func TestPutThenGetDevice(t *testing.T) {
	router := newTestRouter(t)
	body := `{"name":"Rooftop","solar_capacity_kw":6,"battery_capacity_kwh":12,"battery_soc_pct":40,"avg_daily_consumption_kwh":11,"location":"South Zone"}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/v1/users/user_010/device", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/users/user_010/device", nil))
	var device devices.UserDevice
	if err := json.Unmarshal(rec.Body.Bytes(), &device); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if device.UserID != "user_010" || device.SolarCapacityKW != 6 || device.IsDefault {
		t.Fatalf("unexpected device %+v", device)
	}
}

func TestPutRejectsInvalidSOC(t *testing.T) {
	router := newTestRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/v1/users/user_010/device", strings.NewReader(`{"battery_soc_pct":150}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSeedAndSummary(t *testing.T) {
	router := newTestRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/devices/seed", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/devices/summary", nil))
	var agg devices.CommunityAggregate
	if err := json.Unmarshal(rec.Body.Bytes(), &agg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if agg.UserCount != 5 {
		t.Fatalf("expected 5 users, got %d", agg.UserCount)
	}
}
