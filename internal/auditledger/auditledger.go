// Package auditledger appends one row per completed epoch to an external
// Postgres table, for operators who want a durable, queryable history of
// consensus outcomes beyond what the in-memory shared.State retains.
//
// A nil *Ledger is a valid, inert no-op: when config.audit_dsn is empty
// the daemon passes a nil ledger around rather than special-casing every
// call site that records an epoch result.
package auditledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/google/uuid"
)

// Ledger appends epoch-completion rows to Postgres.
type Ledger struct {
	db *sql.DB
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS chitin_epoch_audit (
	epoch            BIGINT PRIMARY KEY,
	block            BIGINT NOT NULL,
	hardened_count   INTEGER NOT NULL,
	incentives_json  JSONB NOT NULL,
	dividends_json   JSONB NOT NULL,
	finalized_at     TIMESTAMPTZ NOT NULL
)`

// Open connects to dsn and ensures the audit table exists. Returns
// (nil, nil) when dsn is empty, so callers can treat "no audit ledger
// configured" and "error opening one" distinctly while both flow through
// the same construction call.
func Open(dsn string) (*Ledger, error) {
	if dsn == "" {
		return nil, nil
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit ledger database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping audit ledger database: %w", err)
	}

	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure audit ledger schema: %w", err)
	}

	return &Ledger{db: db}, nil
}

// Close releases the underlying connection pool. Safe to call on a nil
// *Ledger.
func (l *Ledger) Close() error {
	if l == nil {
		return nil
	}
	return l.db.Close()
}

// RecordEpoch appends one row for a completed epoch. A nil *Ledger
// silently does nothing, matching the package doc's nil-is-disabled
// contract.
func (l *Ledger) RecordEpoch(ctx context.Context, epoch, block uint64, hardenedIDs []uuid.UUID, incentives, dividends []float64) error {
	if l == nil {
		return nil
	}

	incentivesJSON, err := json.Marshal(incentives)
	if err != nil {
		return fmt.Errorf("failed to marshal incentives: %w", err)
	}
	dividendsJSON, err := json.Marshal(dividends)
	if err != nil {
		return fmt.Errorf("failed to marshal dividends: %w", err)
	}

	_, err = l.db.ExecContext(ctx, `
		INSERT INTO chitin_epoch_audit (epoch, block, hardened_count, incentives_json, dividends_json, finalized_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (epoch) DO NOTHING`,
		epoch, block, len(hardenedIDs), incentivesJSON, dividendsJSON, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to record epoch %d in audit ledger: %w", epoch, err)
	}
	return nil
}
