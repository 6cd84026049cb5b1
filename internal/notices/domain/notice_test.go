package notices

import (
	"errors"
	"testing"
)

func TestNormalizeDefaults(t *testing.T) {
	n := Notice{Message: "  grid maintenance tonight "}
	if err := n.Normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if n.Type != TypeInfo || n.Severity != SeverityMedium || n.Message != "grid maintenance tonight" {
		t.Fatalf("unexpected notice %+v", n)
	}
}

func TestNormalizeRejects(t *testing.T) {
	cases := []Notice{
		{Type: "alarm", Message: "x"},
		{Severity: "critical", Message: "x"},
		{Type: TypeInfo},
	}
	for _, n := range cases {
		if err := n.Normalize(); !errors.Is(err, ErrInvalidNotice) {
			t.Fatalf("expected invalid notice for %+v, got %v", n, err)
		}
	}
}

func TestVisibleTo(t *testing.T) {
	community := Notice{Message: "a"}
	own := Notice{Message: "b", UserID: "user_001"}
	other := Notice{Message: "c", UserID: "user_002"}

	if !community.VisibleTo(ScopeUser, "user_001") || !own.VisibleTo(ScopeUser, "user_001") {
		t.Fatalf("expected community and own notices visible to user")
	}
	if other.VisibleTo(ScopeUser, "user_001") {
		t.Fatalf("expected other user's notice hidden")
	}
	if own.VisibleTo(ScopeCommunity, "") {
		t.Fatalf("expected user notice hidden from community scope")
	}
	if !other.VisibleTo(ScopeAll, "") {
		t.Fatalf("expected all scope to include user notices")
	}
}
