package notices

import (
	"errors"
	"strings"
	"time"
)

const (
	TypeInfo    = "info"
	TypeWarning = "warning"
	TypeSuccess = "success"
)

const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// Scope selects which notices a listing returns.
type Scope string

const (
	// ScopeCommunity lists notices without a user.
	ScopeCommunity Scope = "community"
	// ScopeUser lists community notices plus those addressed to one user.
	ScopeUser Scope = "user"
	// ScopeAll lists every notice.
	ScopeAll Scope = "all"
)

var (
	// ErrInvalidNotice indicates a notice that fails validation.
	ErrInvalidNotice = errors.New("notice: invalid")
	// ErrInvalidScope indicates an unknown listing scope.
	ErrInvalidScope = errors.New("notice: invalid scope")
)

// Notice is a community-wide or user-addressed alert. An empty UserID
// marks a community notice.
type Notice struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	Severity      string    `json:"severity"`
	Message       string    `json:"message"`
	AffectedUsers int       `json:"affected_users"`
	UserID        string    `json:"user_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// IsCommunity reports whether the notice is visible to every user.
func (n Notice) IsCommunity() bool {
	return n.UserID == ""
}

// VisibleTo reports whether the notice belongs to a listing.
func (n Notice) VisibleTo(scope Scope, userID string) bool {
	switch scope {
	case ScopeAll:
		return true
	case ScopeCommunity:
		return n.IsCommunity()
	case ScopeUser:
		return n.IsCommunity() || n.UserID == userID
	default:
		return false
	}
}

// Normalize fills defaults and validates the notice.
func (n *Notice) Normalize() error {
	if n == nil {
		return ErrInvalidNotice
	}
	n.Type = strings.ToLower(strings.TrimSpace(n.Type))
	n.Severity = strings.ToLower(strings.TrimSpace(n.Severity))
	n.Message = strings.TrimSpace(n.Message)
	if n.Type == "" {
		n.Type = TypeInfo
	}
	if n.Severity == "" {
		n.Severity = SeverityMedium
	}
	switch n.Type {
	case TypeInfo, TypeWarning, TypeSuccess:
	default:
		return errors.Join(ErrInvalidNotice, errors.New("type must be info, warning or success"))
	}
	switch n.Severity {
	case SeverityLow, SeverityMedium, SeverityHigh:
	default:
		return errors.Join(ErrInvalidNotice, errors.New("severity must be low, medium or high"))
	}
	if n.Message == "" {
		return errors.Join(ErrInvalidNotice, errors.New("message is required"))
	}
	if n.AffectedUsers < 0 {
		n.AffectedUsers = 0
	}
	return nil
}

// Query selects notices for a listing.
type Query struct {
	Scope  Scope
	UserID string
	Limit  int
}

// ParseScope parses a listing scope.
func ParseScope(value string) (Scope, error) {
	switch Scope(strings.ToLower(strings.TrimSpace(value))) {
	case ScopeCommunity:
		return ScopeCommunity, nil
	case ScopeUser:
		return ScopeUser, nil
	case ScopeAll:
		return ScopeAll, nil
	default:
		return "", ErrInvalidScope
	}
}
