package memory

import (
	"context"
	"sort"
	"sync"

	devices "energy-square/internal/devices/domain"
)

// DeviceRepository keeps user devices in memory.
type DeviceRepository struct {
	mu    sync.RWMutex
	items map[string]devices.UserDevice
}

// NewDeviceRepository constructs an empty repository.
func NewDeviceRepository() *DeviceRepository {
	return &DeviceRepository{items: make(map[string]devices.UserDevice)}
}

// Get returns the device of a user, or nil when unknown.
func (r *DeviceRepository) Get(ctx context.Context, userID string) (*devices.UserDevice, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	device, ok := r.items[userID]
	if !ok {
		return nil, nil
	}
	return &device, nil
}

// List returns every device ordered by user id.
func (r *DeviceRepository) List(ctx context.Context) ([]devices.UserDevice, error) {
	_ = ctx
	r.mu.RLock()
	out := make([]devices.UserDevice, 0, len(r.items))
	for _, device := range r.items {
		out = append(out, device)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// Upsert stores a device.
func (r *DeviceRepository) Upsert(ctx context.Context, device devices.UserDevice) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[device.UserID] = device
	return nil
}
