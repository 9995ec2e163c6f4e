package blobstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/folkvang/folkvang/internal/validation"
)

// Compile-time check to verify that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

// catalogID keys the single catalog row. The schema allows multiple catalogs
// but the engine only ever uses one.
const catalogID = "default"

// PostgresStore persists the catalog blob in the 'segment_catalogs' table,
// one row per catalog, upserted as a whole on every write.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a new store backed by the given connection pool.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	validation.AssertNotNil(db, "database pool")
	return &PostgresStore{db: db}
}

// Read fetches the catalog blob.
func (s *PostgresStore) Read(ctx context.Context) ([]byte, error) {
	query := `SELECT data FROM segment_catalogs WHERE id = $1`

	var data []byte
	err := s.db.QueryRow(ctx, query, catalogID).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("failed to read catalog blob: %w", err)
	}

	return data, nil
}

// Write upserts the catalog blob. The single-statement upsert keeps the
// operation atomic from the catalog's point of view.
func (s *PostgresStore) Write(ctx context.Context, data []byte) error {
	query := `
		INSERT INTO segment_catalogs (id, data, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (id) DO UPDATE
		SET data = EXCLUDED.data, updated_at = now()
	`

	if _, err := s.db.Exec(ctx, query, catalogID, data); err != nil {
		return fmt.Errorf("failed to write catalog blob: %w", err)
	}

	return nil
}
