package integration_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log"
	"os"
	"testing"

	communityapp "energy-square/internal/community/application"
	community "energy-square/internal/community/domain"
	communityrepo "energy-square/internal/community/infrastructure/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func TestConfigProvider_Postgres(t *testing.T) {
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
	table := "community_config_it"
	repo := communityrepo.NewConfigRepository(db, communityrepo.WithConfigTable(table))
	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	_, _ = db.ExecContext(ctx, "DELETE FROM "+table)

	if _, err := repo.Get(ctx); !errors.Is(err, community.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	provider, err := communityapp.NewProvider(repo, log.New(io.Discard, "", 0), communityapp.WithCacheTTL(0))
	if err != nil {
		t.Fatalf("provider: %v", err)
	}
	cfg, err := provider.Get(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if cfg.Version != 1 {
		t.Fatalf("expected version 1, got %d", cfg.Version)
	}

	updated, err := provider.Update(ctx, map[string]json.RawMessage{"demand_scaling_factor": json.RawMessage(`0.5`)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	stored, err := repo.Get(ctx)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.Version != updated.Version || stored.DemandScalingFactor != 0.5 {
		t.Fatalf("expected stored update, got %+v", stored)
	}

	if err := repo.Save(ctx, stored, stored.Version-1); !errors.Is(err, community.ErrVersionConflict) {
		t.Fatalf("expected version conflict, got %v", err)
	}
}
