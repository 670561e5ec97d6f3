package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"medicare-pro/internal/catalog"
)

const (
	dateLayout = "2006-01-02"

	testForeignKey    = "bookings_test_id_fkey"
	patientForeignKey = "bookings_patient_id_fkey"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts b and fills in its id, status, creation time and test. A test id with
// no catalog row fails the bookings_test_id_fkey constraint and returns ErrTestNotFound.
func (r *Repository) Create(ctx context.Context, b *Booking) error {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generate uuid v7: %w", err)
	}

	var date sql.NullTime
	if b.AppointmentDate != nil {
		parsed, err := time.Parse(dateLayout, *b.AppointmentDate)
		if err != nil {
			return fmt.Errorf("parse appointment date: %w", err)
		}
		date = sql.NullTime{Time: parsed, Valid: true}
	}

	var clock sql.NullString
	if b.AppointmentTime != nil {
		clock = sql.NullString{String: *b.AppointmentTime, Valid: true}
	}

	now := time.Now().UTC()
	row := r.db.QueryRowContext(ctx, `
		WITH inserted AS (
			INSERT INTO bookings (id, patient_id, test_id, appointment_date, appointment_time, status, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id, patient_id, test_id, appointment_date, appointment_time, status, created_at
		)
		SELECT i.id, i.patient_id, i.test_id, i.appointment_date, i.appointment_time, i.status, i.created_at,
			t.id, t.name, t.description, t.price, t.created_at
		FROM inserted i
		JOIN medical_tests t ON t.id = i.test_id
	`, id.String(), b.PatientID, b.TestID, date, clock, StatusPending, now)

	created, err := scanBooking(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			switch pgErr.ConstraintName {
			case testForeignKey:
				return ErrTestNotFound
			case patientForeignKey:
				return ErrPatientNotFound
			}
		}
		return fmt.Errorf("insert booking: %w", err)
	}

	*b = created
	return nil
}

// ListByPatient returns the patient's bookings newest first, each with its test.
func (r *Repository) ListByPatient(ctx context.Context, patientID string) ([]Booking, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT b.id, b.patient_id, b.test_id, b.appointment_date, b.appointment_time, b.status, b.created_at,
			t.id, t.name, t.description, t.price, t.created_at
		FROM bookings b
		JOIN medical_tests t ON t.id = b.test_id
		WHERE b.patient_id = $1
		ORDER BY b.created_at DESC
	`, patientID)
	if err != nil {
		return nil, fmt.Errorf("query bookings: %w", err)
	}
	defer rows.Close()

	bookings := make([]Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bookings: %w", err)
	}

	return bookings, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBooking(s scanner) (Booking, error) {
	var (
		b     Booking
		test  catalog.MedicalTest
		date  sql.NullTime
		clock sql.NullString
	)
	err := s.Scan(&b.ID, &b.PatientID, &b.TestID, &date, &clock, &b.Status, &b.CreatedAt,
		&test.ID, &test.Name, &test.Description, &test.Price, &test.CreatedAt)
	if err != nil {
		return Booking{}, err
	}

	if date.Valid {
		formatted := date.Time.Format(dateLayout)
		b.AppointmentDate = &formatted
	}
	if clock.Valid {
		b.AppointmentTime = &clock.String
	}
	b.Test = &test
	return b, nil
}
