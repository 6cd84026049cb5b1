package integration_test

import (
	"context"
	"database/sql"
	"io"
	"log"
	"os"
	"testing"
	"time"

	noticeapp "energy-square/internal/notices/application"
	notices "energy-square/internal/notices/domain"
	noticerepo "energy-square/internal/notices/infrastructure/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type tickClock struct {
	now time.Time
}

func (c *tickClock) Now() time.Time {
	c.now = c.now.Add(time.Second)
	return c.now
}

func TestNoticeLog_Postgres(t *testing.T) {
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN not set")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	table := "notices_it"
	repo := noticerepo.NewNoticeRepository(db, noticerepo.WithNoticesTable(table))
	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	_, _ = db.ExecContext(ctx, "DELETE FROM "+table)

	clock := &tickClock{now: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
	service, err := noticeapp.NewService(repo, log.New(io.Discard, "", 0), noticeapp.WithClock(clock))
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	if _, err := service.CreateCommunityAlert(ctx, notices.TypeInfo, notices.SeverityLow, "first", 10); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := service.CreateUserAlert(ctx, "user_001", notices.TypeWarning, notices.SeverityHigh, "second"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := service.CreateUserAlert(ctx, "user_002", notices.TypeInfo, notices.SeverityLow, "third"); err != nil {
		t.Fatalf("create: %v", err)
	}

	user, err := service.ListUserAlerts(ctx, "user_001", 10)
	if err != nil {
		t.Fatalf("list user: %v", err)
	}
	if len(user) != 2 || user[0].Message != "second" || user[1].Message != "first" {
		t.Fatalf("unexpected user notices %+v", user)
	}
	community, err := service.ListCommunityAlerts(ctx, 10)
	if err != nil {
		t.Fatalf("list community: %v", err)
	}
	if len(community) != 1 || community[0].UserID != "" {
		t.Fatalf("unexpected community notices %+v", community)
	}
	all, err := service.ListAllAlerts(ctx, 1)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 1 || all[0].Message != "third" {
		t.Fatalf("unexpected all notices %+v", all)
	}
}
