package patient

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new patient and fills in its id and creation time. Email uniqueness
// is enforced by the patients_email_key index; a violation returns ErrEmailTaken.
func (r *Repository) Create(ctx context.Context, p *Patient) error {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generate uuid v7: %w", err)
	}

	now := time.Now().UTC()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO patients (id, name, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, id.String(), p.Name, NormalizeEmail(p.Email), p.PasswordHash, now)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrEmailTaken
		}
		return fmt.Errorf("insert patient: %w", err)
	}

	p.ID = id.String()
	p.Email = NormalizeEmail(p.Email)
	p.CreatedAt = now
	return nil
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (Patient, error) {
	return r.getOne(ctx, `
		SELECT id, name, email, password_hash, created_at
		FROM patients
		WHERE email = $1
	`, NormalizeEmail(email))
}

func (r *Repository) GetByID(ctx context.Context, id string) (Patient, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Patient{}, ErrNotFound
	}

	return r.getOne(ctx, `
		SELECT id, name, email, password_hash, created_at
		FROM patients
		WHERE id = $1
	`, id)
}

func (r *Repository) getOne(ctx context.Context, query string, arg string) (Patient, error) {
	var p Patient
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&p.ID, &p.Name, &p.Email, &p.PasswordHash, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Patient{}, ErrNotFound
		}
		return Patient{}, fmt.Errorf("query patient: %w", err)
	}

	return p, nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
