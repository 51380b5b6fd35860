package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/ussdflow/pkg/domain"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

//go:embed migrations.sql
var migrations string

// Ledger implements ports.Ledger on SQLite.
type Ledger struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at dsn and applies migrations.
// ":memory:" is accepted for tests.
func Open(dsn string) (*Ledger, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database DSN not set")
	}
	if dsn != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite: %w", err)
	}
	if _, err := db.Exec(migrations); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return &Ledger{db: db}, nil
}

// Record inserts the outcome; an existing ID is left untouched.
func (l *Ledger) Record(ctx context.Context, o domain.Outcome) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO outcomes (id, type, amount, phone, status, reference, message, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, string(o.Type), normalizeAmount(o.Amount), o.Phone, string(o.Status), o.Reference, o.Message, o.Timestamp.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert outcome %s: %w", o.ID, err)
	}
	return nil
}

// List returns outcomes newest first.
func (l *Ledger) List(ctx context.Context, limit int) ([]domain.Outcome, error) {
	query := `SELECT id, type, amount, phone, status, reference, message, created_at FROM outcomes ORDER BY created_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes: %w", err)
	}
	defer rows.Close()

	var out []domain.Outcome
	for rows.Next() {
		var (
			o         domain.Outcome
			typ, st   string
			createdAt int64
		)
		if err := rows.Scan(&o.ID, &typ, &o.Amount, &o.Phone, &st, &o.Reference, &o.Message, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		o.Type = domain.TransactionType(typ)
		o.Status = domain.OutcomeStatus(st)
		o.Timestamp = time.Unix(0, createdAt).UTC()
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate outcomes: %w", err)
	}
	return out, nil
}

// Totals sums successful amounts per transaction type.
func (l *Ledger) Totals(ctx context.Context) (map[domain.TransactionType]decimal.Decimal, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT type, amount FROM outcomes WHERE status = ? AND amount != ''`, string(domain.OutcomeSuccess))
	if err != nil {
		return nil, fmt.Errorf("failed to query totals: %w", err)
	}
	defer rows.Close()

	totals := make(map[domain.TransactionType]decimal.Decimal)
	for rows.Next() {
		var typ, amount string
		if err := rows.Scan(&typ, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan total: %w", err)
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			continue
		}
		t := domain.TransactionType(typ)
		totals[t] = totals[t].Add(d)
	}
	return totals, rows.Err()
}

// Close closes the database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// normalizeAmount stores amounts with two decimals; unparsable input is kept verbatim.
func normalizeAmount(amount string) string {
	if amount == "" {
		return ""
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return amount
	}
	return d.StringFixed(2)
}
