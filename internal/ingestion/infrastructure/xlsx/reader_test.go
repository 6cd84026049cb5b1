package xlsx

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	ingestion "energy-square/internal/ingestion/domain"
)

func writeWorkbook(t *testing.T, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	path := filepath.Join(t.TempDir(), "book.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	return path
}

func TestReadPUNNormalizesSlots(t *testing.T) {
	path := writeWorkbook(t, [][]any{
		{"Data", "Ora", "Periodo", "PUN"},
		{"27/10/2025", 1, 1, 101.5},
		{"27/10/2025", 14, 2, "n/a"},
		{"not a date", 3, 1, 90},
	})

	reader := NewReader(time.UTC)
	result := reader.ReadPUN(context.Background(), path)
	if !result.Available() {
		t.Fatalf("expected available source, got %v", result.Err)
	}
	if len(result.Records) != 2 || result.Skipped != 1 {
		t.Fatalf("expected 2 records and 1 skipped, got %d/%d", len(result.Records), result.Skipped)
	}

	first := result.Records[0]
	if first.Hour != 0 || first.Timestamp.Day() != 27 {
		t.Fatalf("unexpected first stamp %+v", first.Stamp)
	}
	if first.Field(ingestion.FieldPriceMWh) != 101.5 {
		t.Fatalf("expected 101.5, got %v", float64(first.Field(ingestion.FieldPriceMWh)))
	}
	if first.DayOfWeek != "Monday" {
		t.Fatalf("expected Monday, got %s", first.DayOfWeek)
	}

	second := result.Records[1]
	want := time.Date(2025, 10, 27, 13, 15, 0, 0, time.UTC)
	if !second.Timestamp.Equal(want) {
		t.Fatalf("expected %s, got %s", want, second.Timestamp)
	}
	if second.Field(ingestion.FieldPriceMWh).Valid() {
		t.Fatalf("expected missing price for garbage cell")
	}
}

func TestReadDemandKeepsRegionColumns(t *testing.T) {
	path := writeWorkbook(t, [][]any{
		{"Date", "Hour", "Period", "North", "Sicilia", "Total Italy"},
		{"27/10/2025", 9, 1, 12000, "", 25000},
	})

	result := NewReader(time.UTC).ReadDemand(context.Background(), path)
	if !result.Available() || len(result.Records) != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	rec := result.Records[0]
	if rec.Field("North") != 12000 || rec.Field("Total Italy") != 25000 {
		t.Fatalf("unexpected fields %+v", rec.Fields)
	}
	if rec.Field("Sicilia").Valid() {
		t.Fatalf("expected blank region to be missing")
	}
	if rec.Hour != 8 {
		t.Fatalf("expected hour 8, got %d", rec.Hour)
	}
}

func TestReadMissingFileIsUnavailable(t *testing.T) {
	result := NewReader(time.UTC).ReadZonal(context.Background(), filepath.Join(t.TempDir(), "missing.xlsx"))
	if result.Available() {
		t.Fatalf("expected unavailable source")
	}
	if !errors.Is(result.Err, ingestion.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", result.Err)
	}
	if result.Source != SourceZonal {
		t.Fatalf("expected source %s, got %s", SourceZonal, result.Source)
	}
}
