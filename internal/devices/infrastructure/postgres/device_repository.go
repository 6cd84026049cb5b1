package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	devices "energy-square/internal/devices/domain"
)

const defaultUserDevicesTable = "user_devices"

// DeviceRepository is a Postgres implementation for user devices.
type DeviceRepository struct {
	db    DBTX
	table string
}

// NewDeviceRepository constructs a repository.
func NewDeviceRepository(db DBTX, opts ...DeviceOption) *DeviceRepository {
	repo := &DeviceRepository{db: db, table: defaultUserDevicesTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// DeviceOption configures the repository.
type DeviceOption func(*DeviceRepository)

// WithDeviceTable overrides the default table name.
func WithDeviceTable(table string) DeviceOption {
	return func(repo *DeviceRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// EnsureSchema creates the table when missing.
func (r *DeviceRepository) EnsureSchema(ctx context.Context) error {
	if r == nil || r.db == nil {
		return errors.New("device repo: nil db")
	}
	_, err := r.db.ExecContext(ctx, fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	user_id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	solar_capacity_kw DOUBLE PRECISION NOT NULL,
	battery_capacity_kwh DOUBLE PRECISION NOT NULL,
	battery_soc_pct DOUBLE PRECISION NOT NULL,
	avg_daily_consumption_kwh DOUBLE PRECISION NOT NULL,
	location TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`, r.table))
	return err
}

// Get loads a user's device.
func (r *DeviceRepository) Get(ctx context.Context, userID string) (*devices.UserDevice, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("device repo: nil db")
	}
	if userID == "" {
		return nil, errors.New("device repo: empty user id")
	}

	query := fmt.Sprintf(`
SELECT user_id, name, solar_capacity_kw, battery_capacity_kwh, battery_soc_pct,
	avg_daily_consumption_kwh, location, updated_at
FROM %s
WHERE user_id = $1
LIMIT 1`, r.table)

	device, err := scanDevice(r.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &device, nil
}

// List loads every user's device.
func (r *DeviceRepository) List(ctx context.Context) ([]devices.UserDevice, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("device repo: nil db")
	}

	query := fmt.Sprintf(`
SELECT user_id, name, solar_capacity_kw, battery_capacity_kwh, battery_soc_pct,
	avg_daily_consumption_kwh, location, updated_at
FROM %s
ORDER BY user_id ASC`, r.table)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []devices.UserDevice
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, device)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Upsert inserts or replaces a user's device.
func (r *DeviceRepository) Upsert(ctx context.Context, device devices.UserDevice) error {
	if r == nil || r.db == nil {
		return errors.New("device repo: nil db")
	}
	if device.UserID == "" {
		return errors.New("device repo: empty user id")
	}
	if device.UpdatedAt.IsZero() {
		device.UpdatedAt = time.Now().UTC()
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	user_id, name, solar_capacity_kw, battery_capacity_kwh, battery_soc_pct,
	avg_daily_consumption_kwh, location, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (user_id) DO UPDATE SET
	name = EXCLUDED.name,
	solar_capacity_kw = EXCLUDED.solar_capacity_kw,
	battery_capacity_kwh = EXCLUDED.battery_capacity_kwh,
	battery_soc_pct = EXCLUDED.battery_soc_pct,
	avg_daily_consumption_kwh = EXCLUDED.avg_daily_consumption_kwh,
	location = EXCLUDED.location,
	updated_at = EXCLUDED.updated_at`, r.table)
	_, err := r.db.ExecContext(ctx, query,
		device.UserID,
		device.Name,
		device.SolarCapacityKW,
		device.BatteryCapacityKWh,
		device.BatterySOCPct,
		device.AvgDailyConsumptionKWh,
		device.Location,
		device.UpdatedAt.UTC(),
	)
	return err
}

type deviceScanner interface {
	Scan(dest ...any) error
}

func scanDevice(row deviceScanner) (devices.UserDevice, error) {
	var device devices.UserDevice
	if err := row.Scan(
		&device.UserID,
		&device.Name,
		&device.SolarCapacityKW,
		&device.BatteryCapacityKWh,
		&device.BatterySOCPct,
		&device.AvgDailyConsumptionKWh,
		&device.Location,
		&device.UpdatedAt,
	); err != nil {
		return devices.UserDevice{}, err
	}
	device.UpdatedAt = device.UpdatedAt.UTC()
	return device, nil
}
