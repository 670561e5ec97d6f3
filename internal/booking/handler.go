package booking

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"

	"medicare-pro/internal/auth"
	"medicare-pro/internal/httpx"
)

type Store interface {
	Create(ctx context.Context, b *Booking) error
	ListByPatient(ctx context.Context, patientID string) ([]Booking, error)
}

// Handler serves the booking routes. Both routes sit behind auth.Verifier.Middleware.
type Handler struct {
	store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

type createRequest struct {
	TestID          string `json:"testId"`
	AppointmentDate string `json:"appointmentDate"`
	AppointmentTime string `json:"appointmentTime"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PatientFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "No token provided")
		return
	}

	var body createRequest
	if err := httpx.DecodeJSON(w, r, &body); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	b, message := parseCreate(body)
	if message != "" {
		httpx.WriteError(w, http.StatusBadRequest, message)
		return
	}
	b.PatientID = p.ID

	if err := h.store.Create(r.Context(), &b); err != nil {
		if errors.Is(err, ErrTestNotFound) {
			httpx.WriteError(w, http.StatusBadRequest, "Test not found")
			return
		}
		if errors.Is(err, ErrPatientNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "Patient not found")
			return
		}
		sentry.CaptureException(err)
		httpx.WriteError(w, http.StatusInternalServerError, "Failed to create booking")
		return
	}

	httpx.WriteSuccess(w, http.StatusCreated, map[string]any{
		"message":    "The booking is created",
		"newBooking": b,
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PatientFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "No token provided")
		return
	}

	bookings, err := h.store.ListByPatient(r.Context(), p.ID)
	if err != nil {
		sentry.CaptureException(err)
		httpx.WriteError(w, http.StatusInternalServerError, "Failed to fetch bookings")
		return
	}

	message := "Successfully fetched booking data"
	if len(bookings) == 0 {
		message = "No bookings found"
	}
	httpx.WriteSuccess(w, http.StatusOK, map[string]any{
		"message":  message,
		"bookings": bookings,
	})
}

// parseCreate returns a non-empty message when the request must be rejected.
func parseCreate(body createRequest) (Booking, string) {
	testID := strings.TrimSpace(body.TestID)
	if testID == "" {
		return Booking{}, "Test ID is required"
	}
	if _, err := uuid.Parse(testID); err != nil {
		return Booking{}, "Test ID is invalid"
	}
	b := Booking{TestID: testID}

	if raw := strings.TrimSpace(body.AppointmentDate); raw != "" {
		date, ok := parseDate(raw)
		if !ok {
			return Booking{}, "Appointment date must be YYYY-MM-DD"
		}
		b.AppointmentDate = &date
	}

	if raw := strings.TrimSpace(body.AppointmentTime); raw != "" {
		clock, err := time.Parse("15:04", raw)
		if err != nil {
			return Booking{}, "Appointment time must be HH:MM"
		}
		formatted := clock.Format("15:04")
		b.AppointmentTime = &formatted
	}

	return b, ""
}

func parseDate(raw string) (string, bool) {
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return t.Format(dateLayout), true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.Format(dateLayout), true
	}
	return "", false
}
