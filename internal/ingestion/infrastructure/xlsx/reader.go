package xlsx

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	ingestion "energy-square/internal/ingestion/domain"
)

// DateLayout is the date encoding of the market workbooks.
const DateLayout = "02/01/2006"

// Source names reported in results and metadata.
const (
	SourcePUN    = "pun_prices"
	SourceZonal  = "zonal_prices"
	SourceDemand = "demand_data"
)

// Reader reads market workbooks laid out as date, hour, period and one
// column per value.
type Reader struct {
	loc *time.Location
}

// NewReader constructs a workbook reader. Dates are read in loc.
func NewReader(loc *time.Location) *Reader {
	if loc == nil {
		loc = time.UTC
	}
	return &Reader{loc: loc}
}

// ReadPUN reads the national price workbook. The first value column is
// normalized to ingestion.FieldPriceMWh.
func (r *Reader) ReadPUN(ctx context.Context, path string) ingestion.SourceResult {
	records, names, skipped, err := r.readTable(ctx, path)
	if err != nil {
		return ingestion.Unavailable(SourcePUN, err)
	}
	for i := range records {
		records[i].Fields = map[string]ingestion.Float{
			ingestion.FieldPriceMWh: records[i].Field(names[0]),
		}
	}
	return ingestion.SourceResult{Source: SourcePUN, Records: records, Skipped: skipped}
}

// ReadZonal reads the zonal price workbook; fields are keyed by zone name.
func (r *Reader) ReadZonal(ctx context.Context, path string) ingestion.SourceResult {
	return r.readNamed(ctx, SourceZonal, path)
}

// ReadDemand reads the regional demand workbook; fields are keyed by
// region name.
func (r *Reader) ReadDemand(ctx context.Context, path string) ingestion.SourceResult {
	return r.readNamed(ctx, SourceDemand, path)
}

func (r *Reader) readNamed(ctx context.Context, source, path string) ingestion.SourceResult {
	records, _, skipped, err := r.readTable(ctx, path)
	if err != nil {
		return ingestion.Unavailable(source, err)
	}
	return ingestion.SourceResult{Source: source, Records: records, Skipped: skipped}
}

func (r *Reader) readTable(ctx context.Context, path string) ([]ingestion.TimestampedRecord, []string, int, error) {
	if r == nil {
		return nil, nil, 0, errors.New("xlsx reader: nil reader")
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, 0, err
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, 0, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, 0, fmt.Errorf("xlsx reader: %s has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, nil, 0, err
	}
	if len(rows) == 0 || len(rows[0]) < 4 {
		return nil, nil, 0, fmt.Errorf("xlsx reader: %s: expected date, hour, period and value columns", path)
	}

	names := make([]string, 0, len(rows[0])-3)
	for i, name := range rows[0][3:] {
		name = strings.TrimSpace(name)
		if name == "" {
			name = "col_" + strconv.Itoa(i+3)
		}
		names = append(names, name)
	}

	records := make([]ingestion.TimestampedRecord, 0, len(rows)-1)
	skipped := 0
	for _, row := range rows[1:] {
		cell := func(i int) string {
			if i < len(row) {
				return row[i]
			}
			return ""
		}
		date, err := r.parseDate(cell(0))
		if err != nil {
			skipped++
			continue
		}
		hour, okHour := parseInt(cell(1))
		period, okPeriod := parseInt(cell(2))
		if !okHour || !okPeriod {
			skipped++
			continue
		}
		ts, err := ingestion.SlotTime(date, hour, period)
		if err != nil {
			skipped++
			continue
		}
		fields := make(map[string]ingestion.Float, len(names))
		for i, name := range names {
			fields[name] = ingestion.ParseNumber(cell(i + 3))
		}
		records = append(records, ingestion.TimestampedRecord{
			Stamp:  ingestion.NewStamp(ts),
			Period: period,
			Fields: fields,
		})
	}
	return records, names, skipped, nil
}

// parseDate accepts an Excel serial date or a text date.
func (r *Reader) parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if serial, err := strconv.ParseFloat(raw, 64); err == nil && serial > 0 && serial < 2958466 {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, err
		}
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, r.loc), nil
	}
	return ingestion.ParseTime(raw, DateLayout, r.loc)
}

func parseInt(raw string) (int, bool) {
	v := ingestion.ParseNumber(raw)
	if !v.Valid() {
		return 0, false
	}
	return int(math.Round(float64(v))), true
}
