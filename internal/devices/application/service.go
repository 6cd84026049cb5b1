package application

import (
	"context"
	"errors"
	"log"
	"time"

	devices "energy-square/internal/devices/domain"
	energy "energy-square/internal/energy/domain"
)

// Repository persists user devices.
type Repository interface {
	// Get returns nil, nil for an unknown user.
	Get(ctx context.Context, userID string) (*devices.UserDevice, error)
	List(ctx context.Context) ([]devices.UserDevice, error)
	Upsert(ctx context.Context, device devices.UserDevice) error
}

// Service is the per-user device registry.
type Service struct {
	repo   Repository
	logger *log.Logger
	now    func() time.Time
}

// NewService constructs a device service.
func NewService(repo Repository, logger *log.Logger) (*Service, error) {
	if repo == nil {
		return nil, errors.New("devices: nil repository")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Service{repo: repo, logger: logger, now: func() time.Time { return time.Now().UTC() }}, nil
}

// GetUserDevice returns the stored record or the default profile.
func (s *Service) GetUserDevice(ctx context.Context, userID string) devices.UserDevice {
	device, err := s.repo.Get(ctx, userID)
	if err != nil {
		s.logger.Printf("devices: get user=%s error: %v", userID, err)
		return devices.DefaultUserDevice(userID)
	}
	if device == nil {
		s.logger.Printf("devices: user=%s not registered, using defaults", userID)
		return devices.DefaultUserDevice(userID)
	}
	return *device
}

// ListAll returns every registered device. Failures yield an empty list.
func (s *Service) ListAll(ctx context.Context) []devices.UserDevice {
	list, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Printf("devices: list error: %v", err)
		return []devices.UserDevice{}
	}
	if list == nil {
		return []devices.UserDevice{}
	}
	return list
}

// Register validates and stores a device.
func (s *Service) Register(ctx context.Context, device devices.UserDevice) (devices.UserDevice, error) {
	if err := device.Validate(); err != nil {
		return devices.UserDevice{}, err
	}
	device.IsDefault = false
	device.UpdatedAt = s.now()
	if err := s.repo.Upsert(ctx, device); err != nil {
		return devices.UserDevice{}, err
	}
	return device, nil
}

// SeedSampleUsers upserts the sample profiles.
func (s *Service) SeedSampleUsers(ctx context.Context) ([]devices.UserDevice, error) {
	seeded := make([]devices.UserDevice, 0, 5)
	for _, device := range devices.SampleUsers() {
		stored, err := s.Register(ctx, device)
		if err != nil {
			return nil, err
		}
		seeded = append(seeded, stored)
	}
	s.logger.Printf("devices: seeded %d sample users", len(seeded))
	return seeded, nil
}

// AggregateCommunity sums every registered device.
func (s *Service) AggregateCommunity(ctx context.Context) devices.CommunityAggregate {
	return devices.Aggregate(s.ListAll(ctx))
}

// UserProductionToday allocates communityProducedKWh to the user by solar
// capacity share. fallbackCapacityKW is used as the community total when no
// device is registered.
func (s *Service) UserProductionToday(ctx context.Context, userID string, communityProducedKWh, fallbackCapacityKW float64) float64 {
	device := s.GetUserDevice(ctx, userID)
	total := fallbackCapacityKW
	if all := s.ListAll(ctx); len(all) > 0 {
		total = devices.Aggregate(all).TotalSolarCapacityKW
	}
	return devices.ProductionShare(device.SolarCapacityKW, total, communityProducedKWh)
}

// UserConsumptionToday is the user's average daily consumption.
func (s *Service) UserConsumptionToday(ctx context.Context, userID string) float64 {
	return energy.Round(s.GetUserDevice(ctx, userID).AvgDailyConsumptionKWh, 2)
}
