package records

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/folkvang/folkvang/internal/segment"
	"github.com/folkvang/folkvang/internal/validation"
)

// Compile-time check to verify that PostgresSource implements Source.
var _ Source = (*PostgresSource)(nil)

// PostgresSource reads the customer collection from the 'customers' table.
// The table is owned by the surrounding CRM application; this source only
// ever issues SELECTs against it.
type PostgresSource struct {
	db *pgxpool.Pool
}

// NewPostgresSource creates a new source backed by the given connection pool.
func NewPostgresSource(db *pgxpool.Pool) *PostgresSource {
	validation.AssertNotNil(db, "database pool")
	return &PostgresSource{db: db}
}

// Snapshot loads all customers, oldest first. Ordering by created_at keeps
// filtered subsets stable between calls when the data has not changed.
func (s *PostgresSource) Snapshot(ctx context.Context) ([]segment.Customer, error) {
	query := `
		SELECT id, email, first_name, last_name, status, source, tags,
		       total_orders, total_spent, lifetime_value, lead_score,
		       created_at, last_contact_at
		FROM customers
		ORDER BY created_at, id
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query customers: %w", err)
	}
	defer rows.Close()

	var customers []segment.Customer

	for rows.Next() {
		var c segment.Customer
		if err := rows.Scan(
			&c.ID,
			&c.Email,
			&c.FirstName,
			&c.LastName,
			&c.Status,
			&c.Source,
			&c.Tags,
			&c.TotalOrders,
			&c.TotalSpent,
			&c.LifetimeValue,
			&c.LeadScore,
			&c.CreatedAt,
			&c.LastContactAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan customer row: %w", err)
		}
		customers = append(customers, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return customers, nil
}
