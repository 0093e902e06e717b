// internal/audit/postgres.go
// PostgreSQL implementation of the operation log. This implementation is
// intended for production use with persistent audit history.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// postgresLog implements Log on top of a pgx connection pool.
type postgresLog struct {
	db *pgxpool.Pool // Connection pool to PostgreSQL database
}

// NewPostgres creates a PostgreSQL-backed operation log.
// It establishes a connection pool to the database and initializes the schema.
// Parameters:
//   - dsn: database connection string in PostgreSQL format
// Returns:
//   - Log: implementation of the operation-log interface
//   - error: any error that occurred during initialization
func NewPostgres(dsn string) (Log, error) {
	// Parse the database connection string
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid database DSN: %w", err)
	}

	// Configure connection pool settings. The op-log sees one write per
	// mutation, so the pool stays small.
	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = time.Minute * 30
	config.HealthCheckPeriod = time.Minute

	// Establish connection with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Create connection pool
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test the connection
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Initialize database schema
	if err := initSchema(ctx, pool); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &postgresLog{db: pool}, nil
}

// initSchema initializes the database schema.
// It creates the operation-log table and index if they don't already exist.
func initSchema(ctx context.Context, db *pgxpool.Pool) error {
	schema := `
		-- Operation log of catalog mutations
		CREATE TABLE IF NOT EXISTS catalog_oplog (
		    seq BIGSERIAL PRIMARY KEY,               -- Sequential log position
		    mutation_id TEXT NOT NULL,               -- ULID of the mutation
		    operation TEXT NOT NULL,                 -- Mutation kind
		    idx INTEGER NOT NULL,                    -- Catalog position touched, -1 when not positional
		    title TEXT NOT NULL DEFAULT '',          -- Title of the record involved
		    reference TEXT NOT NULL DEFAULT '',      -- Delivery reference involved
		    correlation_id TEXT NOT NULL DEFAULT '', -- Request correlation ID
		    occurred_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()  -- Commit time
		);

		-- Index for newest-first reads
		CREATE INDEX IF NOT EXISTS catalog_oplog_occurred_at_idx
		    ON catalog_oplog (occurred_at DESC);
	`
	_, err := db.Exec(ctx, schema)
	return err
}

// Append implements Log.
func (p *postgresLog) Append(ctx context.Context, entry Entry) error {
	_, err := p.db.Exec(ctx, `
		INSERT INTO catalog_oplog (mutation_id, operation, idx, title, reference, correlation_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.MutationID, entry.Operation, entry.Index, entry.Title, entry.Reference, entry.CorrelationID, entry.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("append oplog entry: %w", err)
	}
	return nil
}

// Recent implements Log.
func (p *postgresLog) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := p.db.Query(ctx, `
		SELECT seq, mutation_id, operation, idx, title, reference, correlation_id, occurred_at
		FROM catalog_oplog
		ORDER BY seq DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query oplog: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Sequence, &e.MutationID, &e.Operation, &e.Index, &e.Title, &e.Reference, &e.CorrelationID, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan oplog entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close implements Log.
func (p *postgresLog) Close() {
	p.db.Close()
}
