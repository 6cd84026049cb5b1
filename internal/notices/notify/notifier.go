package notify

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"time"

	notices "energy-square/internal/notices/domain"
)

// Clock provides time for dedupe windows.
type Clock interface {
	Now() time.Time
}

// Notifier pushes notices at or above a minimum severity to a channel.
// Identical content is suppressed within the dedupe window.
type Notifier struct {
	channel      Channel
	template     *Template
	minSeverity  string
	dedupeWindow time.Duration
	clock        Clock

	mu   sync.Mutex
	sent map[string]time.Time
}

// Option configures the notifier.
type Option func(*Notifier)

// WithMinSeverity sets the lowest severity that is pushed.
func WithMinSeverity(severity string) Option {
	return func(n *Notifier) {
		if severityRank(severity) > 0 {
			n.minSeverity = strings.ToLower(strings.TrimSpace(severity))
		}
	}
}

// WithDedupeWindow suppresses identical notifications within the window.
func WithDedupeWindow(window time.Duration) Option {
	return func(n *Notifier) {
		if window > 0 {
			n.dedupeWindow = window
		}
	}
}

// WithClock overrides the default clock.
func WithClock(clock Clock) Option {
	return func(n *Notifier) {
		if clock != nil {
			n.clock = clock
		}
	}
}

// NewNotifier constructs a notifier. A nil template uses DefaultTemplate.
func NewNotifier(channel Channel, template *Template, opts ...Option) (*Notifier, error) {
	if channel == nil {
		return nil, errors.New("notice notifier: nil channel")
	}
	if template == nil {
		defaultTemplate, err := NewTemplate("")
		if err != nil {
			return nil, err
		}
		template = defaultTemplate
	}
	n := &Notifier{
		channel:     channel,
		template:    template,
		minSeverity: notices.SeverityHigh,
		clock:       systemClock{},
		sent:        make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// Notify renders and sends the notice when it is severe enough.
func (n *Notifier) Notify(ctx context.Context, notice notices.Notice) error {
	if n == nil || n.channel == nil {
		return nil
	}
	if severityRank(notice.Severity) < severityRank(n.minSeverity) {
		return nil
	}
	content, err := n.template.Render(buildTemplateData(notice))
	if err != nil {
		return err
	}
	hash := hashContent(content)
	if !n.shouldSend(hash) {
		return nil
	}
	if err := n.channel.Send(ctx, content); err != nil {
		return err
	}
	n.markSent(hash)
	return nil
}

func buildTemplateData(notice notices.Notice) TemplateData {
	scope := "Community"
	if !notice.IsCommunity() {
		scope = "User"
	}
	return TemplateData{
		ID:            notice.ID,
		ScopeLabel:    scope,
		UserID:        notice.UserID,
		Type:          notice.Type,
		Severity:      notice.Severity,
		Message:       notice.Message,
		AffectedUsers: notice.AffectedUsers,
		CreatedAt:     notice.CreatedAt.UTC().Format(time.RFC3339),
		Suggestion:    suggestionFor(notice),
	}
}

func suggestionFor(notice notices.Notice) string {
	switch {
	case notice.Type == notices.TypeWarning && notice.Severity == notices.SeverityHigh:
		return "Shift flexible loads and check battery reserves."
	case notice.Type == notices.TypeWarning:
		return "Review the community dashboard for changes."
	default:
		return "No action required."
	}
}

func severityRank(value string) int {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case notices.SeverityHigh:
		return 3
	case notices.SeverityMedium:
		return 2
	case notices.SeverityLow:
		return 1
	default:
		return 0
	}
}

func (n *Notifier) shouldSend(hash string) bool {
	if n.dedupeWindow <= 0 {
		return true
	}
	now := n.clock.Now().UTC()
	n.mu.Lock()
	defer n.mu.Unlock()
	at, ok := n.sent[hash]
	return !ok || now.Sub(at) >= n.dedupeWindow
}

func (n *Notifier) markSent(hash string) {
	if n.dedupeWindow <= 0 {
		return
	}
	now := n.clock.Now().UTC()
	n.mu.Lock()
	defer n.mu.Unlock()
	for key, at := range n.sent {
		if now.Sub(at) >= n.dedupeWindow {
			delete(n.sent, key)
		}
	}
	n.sent[hash] = now
}

func hashContent(content string) string {
	sum := sha1.Sum([]byte(content))
	return hex.EncodeToString(sum[:8])
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
