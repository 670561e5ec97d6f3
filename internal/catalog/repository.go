package catalog

import (
	"context"
	"database/sql"
	"fmt"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) List(ctx context.Context) ([]MedicalTest, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, description, price, created_at
		FROM medical_tests
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query medical tests: %w", err)
	}
	defer rows.Close()

	tests := make([]MedicalTest, 0)
	for rows.Next() {
		var t MedicalTest
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.Price, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan medical test: %w", err)
		}
		tests = append(tests, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate medical tests: %w", err)
	}

	return tests, nil
}
