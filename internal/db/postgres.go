package db

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rawblock/smurfing-engine/pkg/models"
)

// schemaSQL is compiled into the binary so schema init works in images
// that do not ship internal/db/schema.sql.
//
//go:embed schema.sql
var schemaSQL string

// transferColumns is the COPY column order; transferRow must match it.
var transferColumns = []string{
	"seq", "tx_hash", "block_number", "from_address", "to_address",
	"value", "fee", "age_seconds", "from_entity", "to_entity",
	"raw_value", "from_tx_count", "to_tx_count",
}

// PostgresStore is the optional ledger source. The analysis itself never
// touches the database; the store only imports and reloads transfers.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// Connect initializes the connection pool to PostgreSQL using pgx
func Connect(ctx context.Context, connStr string, logger *zap.Logger) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping failed: %w", err)
	}

	logger = logger.Named("db")
	logger.Info("connected to PostgreSQL")
	return &PostgresStore{pool: pool, logger: logger}, nil
}

// Close gracefully closes the connection pool
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping reports whether the database is reachable.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// InitSchema executes the embedded schema.sql DDL statements.
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema migrations: %w", err)
	}
	s.logger.Info("ledger schema initialized")
	return nil
}

// ImportTransfers replaces the stored ledger with txs in one transaction
// and returns the number of rows written. Ledger order is kept in seq.
func (s *PostgresStore) ImportTransfers(ctx context.Context, txs []models.Transaction) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, "TRUNCATE ledger_transfers"); err != nil {
		return 0, fmt.Errorf("clear ledger_transfers: %w", err)
	}

	rows := make([][]any, len(txs))
	for i, t := range txs {
		rows[i] = transferRow(i, t)
	}
	n, err := tx.CopyFrom(ctx, pgx.Identifier{"ledger_transfers"}, transferColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("copy ledger_transfers: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	s.logger.Info("imported ledger", zap.Int64("transfers", n))
	return n, nil
}

// LoadTransfers reads the stored ledger back in import order.
func (s *PostgresStore) LoadTransfers(ctx context.Context) ([]models.Transaction, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT tx_hash, block_number, from_address, to_address, value, fee,
		       age_seconds, from_entity, to_entity, raw_value, from_tx_count, to_tx_count
		FROM ledger_transfers
		ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query ledger_transfers: %w", err)
	}
	defer rows.Close()

	out := []models.Transaction{}
	for rows.Next() {
		var (
			t          models.Transaction
			fromEntity string
			toEntity   string
			raw        string
		)
		if err := rows.Scan(&t.Hash, &t.Block, &t.From, &t.To, &t.Value, &t.Fee,
			&t.Age, &fromEntity, &toEntity, &raw, &t.FromTxCount, &t.ToTxCount); err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		t.FromEntity = models.EntityType(fromEntity)
		t.ToEntity = models.EntityType(toEntity)
		if t.RawValue, err = decimal.NewFromString(raw); err != nil {
			return nil, fmt.Errorf("transfer %s raw value %q: %w", t.Hash, raw, err)
		}
		t.FeeRatio = feeRatio(t.Fee, t.Value)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger_transfers: %w", err)
	}

	s.logger.Debug("loaded ledger", zap.Int("transfers", len(out)))
	return out, nil
}

// transferRow encodes one transfer in transferColumns order. Raw values
// are stored as text to keep every digit.
func transferRow(seq int, t models.Transaction) []any {
	return []any{
		int64(seq), t.Hash, t.Block, t.From, t.To,
		t.Value, t.Fee, t.Age, string(t.FromEntity), string(t.ToEntity),
		t.RawValue.String(), t.FromTxCount, t.ToTxCount,
	}
}

func feeRatio(fee, value float64) float64 {
	if value <= 0 {
		return 0
	}
	return fee / value
}
