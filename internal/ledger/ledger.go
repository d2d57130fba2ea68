// Package ledger is the durable event log and payment snapshot store
// backing cmd/enginectl's read-only inspection surface (SPEC_FULL §12.1).
// It is not the engine's authoritative state — every component in
// internal/roles, internal/provenance, internal/splitter, internal/escrow
// keeps that in memory under the engine's single coarse lock (spec §5) —
// it is a queryable history of what the engine did, the same role
// Postgres plays for the teacher's services
// (services/cel/internal/store/store.go,
// services/onboarding/internal/store/store.go): explicit SQL,
// ON CONFLICT upserts, pgxpool.Pool.
package ledger

import (
	"context"
	"encoding/json"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/LeaderMalang/decentralized-marketplace-for-AI/internal/coretypes"
)

// Schema is the DDL cmd/enginectl's operator runs once against a fresh
// database. Kept as a Go string (not a migration tool) to match the
// teacher's habit of inlining ad-hoc DDL/DML directly in Go
// (services/cel/internal/store/store.go UpsertSeedTemplate).
const Schema = `
CREATE TABLE IF NOT EXISTS engine_events (
	seq        BIGSERIAL PRIMARY KEY,
	name       TEXT NOT NULL,
	event_hash TEXT NOT NULL,
	payload    JSONB NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS engine_payments (
	payment_id  BIGINT PRIMARY KEY,
	asset_id    BIGINT NOT NULL,
	user_addr   TEXT NOT NULL,
	amount      NUMERIC NOT NULL,
	status      TEXT NOT NULL,
	release_time TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// MustConnect opens a pgxpool.Pool from DATABASE_URL, panicking on
// misconfiguration — the same fail-fast construction as the teacher's
// pkg/db.MustConnect.
func MustConnect() *pgxpool.Pool {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		panic("DATABASE_URL is required")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		panic(err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		panic(err)
	}
	return pool
}

// Store is the ledger collaborator.
type Store struct{ DB *pgxpool.Pool }

// New returns a Store backed by db.
func New(db *pgxpool.Pool) *Store { return &Store{DB: db} }

// Migrate applies Schema. Idempotent (every statement is CREATE TABLE IF
// NOT EXISTS).
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.DB.Exec(ctx, Schema)
	return err
}

// AppendEvent records one emitted domain event (spec §6 Events).
func (s *Store) AppendEvent(ctx context.Context, name, eventHash string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = s.DB.Exec(ctx,
		`INSERT INTO engine_events(name, event_hash, payload) VALUES ($1, $2, $3)`,
		name, eventHash, b)
	return err
}

// EventRow is one persisted event, as returned to cmd/enginectl.
type EventRow struct {
	Seq        int64          `json:"seq"`
	Name       string         `json:"name"`
	EventHash  string         `json:"event_hash"`
	Payload    map[string]any `json:"payload"`
	RecordedAt time.Time      `json:"recorded_at"`
}

// ListEvents returns the most recent limit events, newest first.
func (s *Store) ListEvents(ctx context.Context, limit int) ([]EventRow, error) {
	rows, err := s.DB.Query(ctx,
		`SELECT seq, name, event_hash, payload, recorded_at FROM engine_events ORDER BY seq DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EventRow
	for rows.Next() {
		var r EventRow
		var payload []byte
		if err := rows.Scan(&r.Seq, &r.Name, &r.EventHash, &payload, &r.RecordedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal(payload, &r.Payload)
		out = append(out, r)
	}
	return out, rows.Err()
}

// EventsForAsset returns every recorded event whose payload carries the
// given asset_id, oldest first — cmd/enginectl replays these to answer
// "what does asset N's graph/splitter look like" without the caller
// needing access to the engine's in-memory state.
func (s *Store) EventsForAsset(ctx context.Context, asset coretypes.AssetID) ([]EventRow, error) {
	rows, err := s.DB.Query(ctx,
		`SELECT seq, name, event_hash, payload, recorded_at FROM engine_events
		 WHERE payload->>'asset_id' = $1 ORDER BY seq ASC`,
		strconv.FormatUint(uint64(asset), 10))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EventRow
	for rows.Next() {
		var r EventRow
		var payload []byte
		if err := rows.Scan(&r.Seq, &r.Name, &r.EventHash, &payload, &r.RecordedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal(payload, &r.Payload)
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpsertPayment snapshots a payment's current state for read-only
// inspection independent of the engine's in-memory state.
func (s *Store) UpsertPayment(ctx context.Context, id coretypes.PaymentID, asset coretypes.AssetID, user string, amount string, status string, releaseTime time.Time) error {
	_, err := s.DB.Exec(ctx, `
INSERT INTO engine_payments(payment_id, asset_id, user_addr, amount, status, release_time)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (payment_id) DO UPDATE SET
	status = $5, updated_at = now()
`, int64(id), int64(asset), user, amount, status, releaseTime)
	return err
}

// PaymentRow mirrors engine_payments for cmd/enginectl.
type PaymentRow struct {
	PaymentID   int64     `json:"payment_id"`
	AssetID     int64     `json:"asset_id"`
	User        string    `json:"user"`
	Amount      string    `json:"amount"`
	Status      string    `json:"status"`
	ReleaseTime time.Time `json:"release_time"`
}

// GetPayment returns the persisted snapshot of payment id, if any.
func (s *Store) GetPayment(ctx context.Context, id coretypes.PaymentID) (PaymentRow, bool, error) {
	var r PaymentRow
	err := s.DB.QueryRow(ctx,
		`SELECT payment_id, asset_id, user_addr, amount, status, release_time FROM engine_payments WHERE payment_id = $1`,
		int64(id),
	).Scan(&r.PaymentID, &r.AssetID, &r.User, &r.Amount, &r.Status, &r.ReleaseTime)
	if err != nil {
		return PaymentRow{}, false, nil
	}
	return r, true, nil
}
