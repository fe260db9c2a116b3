package helpers

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS owners (
		owner_id            BIGINT PRIMARY KEY,
		api_key             TEXT NOT NULL UNIQUE,
		real_balance        BIGINT NOT NULL DEFAULT 0 CHECK (real_balance >= 0),
		promotional_balance BIGINT NOT NULL DEFAULT 0 CHECK (promotional_balance >= 0),
		created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS campaigns (
		place_id             BIGINT PRIMARY KEY,
		owner_id             BIGINT NOT NULL REFERENCES owners(owner_id),
		name                 TEXT NOT NULL DEFAULT '',
		description          TEXT NOT NULL DEFAULT '',
		tier                 INT NOT NULL DEFAULT 1,
		quest_kind           TEXT NOT NULL DEFAULT 'time',
		reward_time_required INT NOT NULL DEFAULT 60,
		remaining_visits     BIGINT NOT NULL DEFAULT 0 CHECK (remaining_visits >= 0),
		status               TEXT NOT NULL DEFAULT 'pending',
		last_refill_at       TIMESTAMPTZ,
		created_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at           TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS quests (
		id               UUID PRIMARY KEY,
		token            TEXT NOT NULL UNIQUE,
		player_id        BIGINT NOT NULL,
		source_place_id  BIGINT NOT NULL,
		target_place_id  BIGINT NOT NULL,
		status           TEXT NOT NULL DEFAULT 'started',
		traffic_valid    BOOLEAN NOT NULL DEFAULT false,
		payout_processed BOOLEAN NOT NULL DEFAULT false,
		completed_tier   INT,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
		arrived_at       TIMESTAMPTZ,
		completed_at     TIMESTAMPTZ,
		claimed_at       TIMESTAMPTZ
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS quests_open_journey
		ON quests (player_id, target_place_id)
		WHERE status IN ('started', 'arrived')`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id         UUID PRIMARY KEY,
		owner_id   BIGINT NOT NULL,
		kind       TEXT NOT NULL,
		title      TEXT NOT NULL,
		body       TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		read_at    TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS owner_devices (
		token    TEXT PRIMARY KEY,
		owner_id BIGINT NOT NULL,
		platform TEXT NOT NULL DEFAULT ''
	)`,
}

// SetupTestDB connects to the test database and makes sure the schema
// exists. Tests are skipped when no database is configured.
func SetupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	_ = godotenv.Load("../../.env")
	_ = godotenv.Load("../.env")

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL or DATABASE_URL not set, skipping database test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("Failed to ping test database: %v", err)
	}

	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			t.Fatalf("Failed to create test schema: %v", err)
		}
	}

	return pool
}

// ResetTables wipes all quest-network data so each test starts clean.
func ResetTables(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	_, err := pool.Exec(context.Background(),
		`TRUNCATE owner_devices, notifications, quests, campaigns, owners CASCADE`)
	if err != nil {
		t.Fatalf("Failed to reset test tables: %v", err)
	}
}
