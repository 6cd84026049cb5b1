package application

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	notices "energy-square/internal/notices/domain"
)

const (
	// DefaultLimit caps community and user listings.
	DefaultLimit = 50
	// DefaultAllLimit caps the unfiltered listing.
	DefaultAllLimit = 100
	// MaxLimit is the largest accepted limit.
	MaxLimit = 500
)

// Repository persists notices.
type Repository interface {
	Create(ctx context.Context, notice *notices.Notice) error
	// List returns matching notices newest first.
	List(ctx context.Context, query notices.Query) ([]notices.Notice, error)
}

// Clock provides time.
type Clock interface {
	Now() time.Time
}

// Notifier pushes stored notices to an external channel.
type Notifier interface {
	Notify(ctx context.Context, notice notices.Notice) error
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Service manages community and user alerts.
type Service struct {
	repo     Repository
	clock    Clock
	notifier Notifier
	logger   *log.Logger
}

// ServiceOption customizes the service.
type ServiceOption func(*Service)

// WithClock assigns a clock.
func WithClock(clock Clock) ServiceOption {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithNotifier pushes every stored notice to notifier. Delivery failures
// are logged and never fail the write.
func WithNotifier(notifier Notifier) ServiceOption {
	return func(s *Service) {
		s.notifier = notifier
	}
}

// NewService constructs a notice service.
func NewService(repo Repository, logger *log.Logger, opts ...ServiceOption) (*Service, error) {
	if repo == nil {
		return nil, errors.New("notices: nil repository")
	}
	if logger == nil {
		logger = log.Default()
	}
	s := &Service{repo: repo, clock: systemClock{}, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CreateCommunityAlert stores a notice visible to every user.
func (s *Service) CreateCommunityAlert(ctx context.Context, noticeType, severity, message string, affectedUsers int) (notices.Notice, error) {
	return s.create(ctx, notices.Notice{
		Type:          noticeType,
		Severity:      severity,
		Message:       message,
		AffectedUsers: affectedUsers,
	})
}

// CreateUserAlert stores a notice visible to one user.
func (s *Service) CreateUserAlert(ctx context.Context, userID, noticeType, severity, message string) (notices.Notice, error) {
	if userID == "" {
		return notices.Notice{}, errors.Join(notices.ErrInvalidNotice, errors.New("user_id is required"))
	}
	return s.create(ctx, notices.Notice{
		Type:          noticeType,
		Severity:      severity,
		Message:       message,
		AffectedUsers: 1,
		UserID:        userID,
	})
}

// ListCommunityAlerts lists community notices.
func (s *Service) ListCommunityAlerts(ctx context.Context, limit int) ([]notices.Notice, error) {
	return s.list(ctx, notices.Query{Scope: notices.ScopeCommunity, Limit: normalizeLimit(limit, DefaultLimit)})
}

// ListUserAlerts lists community notices plus those addressed to userID.
func (s *Service) ListUserAlerts(ctx context.Context, userID string, limit int) ([]notices.Notice, error) {
	if userID == "" {
		return s.ListCommunityAlerts(ctx, limit)
	}
	return s.list(ctx, notices.Query{Scope: notices.ScopeUser, UserID: userID, Limit: normalizeLimit(limit, DefaultLimit)})
}

// ListAllAlerts lists every notice.
func (s *Service) ListAllAlerts(ctx context.Context, limit int) ([]notices.Notice, error) {
	return s.list(ctx, notices.Query{Scope: notices.ScopeAll, Limit: normalizeLimit(limit, DefaultAllLimit)})
}

func (s *Service) create(ctx context.Context, notice notices.Notice) (notices.Notice, error) {
	if s == nil {
		return notices.Notice{}, errors.New("notices: nil service")
	}
	if err := notice.Normalize(); err != nil {
		return notices.Notice{}, err
	}
	notice.ID = uuid.NewString()
	notice.CreatedAt = s.clock.Now().UTC()
	if err := s.repo.Create(ctx, &notice); err != nil {
		s.logger.Printf("notices: create error: %v", err)
		return notices.Notice{}, err
	}
	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, notice); err != nil {
			s.logger.Printf("notices: notify error: id=%s err=%v", notice.ID, err)
		}
	}
	return notice, nil
}

func (s *Service) list(ctx context.Context, query notices.Query) ([]notices.Notice, error) {
	if s == nil {
		return nil, errors.New("notices: nil service")
	}
	list, err := s.repo.List(ctx, query)
	if err != nil {
		s.logger.Printf("notices: list scope=%s error: %v", query.Scope, err)
		return nil, err
	}
	if list == nil {
		list = []notices.Notice{}
	}
	return list, nil
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}
