package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/getsentry/sentry-go"

	"medicare-pro/internal/httpx"
	"medicare-pro/internal/observability"
	"medicare-pro/internal/patient"
)

// PatientLookup resolves a token subject to a stored identity.
type PatientLookup interface {
	GetByID(ctx context.Context, id string) (patient.Patient, error)
}

// Verifier checks access tokens on protected requests.
type Verifier struct {
	issuer   *Issuer
	patients PatientLookup
}

func NewVerifier(issuer *Issuer, patients PatientLookup) *Verifier {
	return &Verifier{issuer: issuer, patients: patients}
}

// Verify resolves an Authorization header value to a patient. A missing header, a
// non-Bearer scheme and an empty token all yield ErrUnauthenticated.
func (v *Verifier) Verify(ctx context.Context, authorization string) (patient.Patient, error) {
	token, ok := bearerToken(authorization)
	if !ok {
		return patient.Patient{}, ErrUnauthenticated
	}
	return v.VerifyToken(ctx, token)
}

func (v *Verifier) VerifyToken(ctx context.Context, token string) (patient.Patient, error) {
	if strings.TrimSpace(token) == "" {
		return patient.Patient{}, ErrUnauthenticated
	}

	claims, err := v.issuer.ParseAccess(token)
	if err != nil {
		return patient.Patient{}, ErrForbidden
	}

	p, err := v.patients.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, patient.ErrNotFound) {
			return patient.Patient{}, ErrNotFound
		}
		return patient.Patient{}, fmt.Errorf("resolve token subject: %w", err)
	}

	return p, nil
}

// Middleware rejects requests without a valid access token and attaches the resolved
// patient to the request context for the next handler.
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := v.Verify(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			writeAuthError(w, err, accessMessages)
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithPatient(r.Context(), p)))
	})
}

func bearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", false
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

type authMessages struct {
	missing string
	invalid string
}

var (
	accessMessages  = authMessages{missing: "No token provided", invalid: "Invalid token"}
	refreshMessages = authMessages{missing: "Refresh token is required", invalid: "Invalid refresh token"}
)

func writeAuthError(w http.ResponseWriter, err error, messages authMessages) {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		observability.RecordAuthRejection("missing_token")
		httpx.WriteError(w, http.StatusUnauthorized, messages.missing)
	case errors.Is(err, ErrForbidden):
		observability.RecordAuthRejection("invalid_token")
		httpx.WriteError(w, http.StatusForbidden, messages.invalid)
	case errors.Is(err, ErrNotFound):
		observability.RecordAuthRejection("patient_missing")
		httpx.WriteError(w, http.StatusNotFound, "Patient not found")
	default:
		sentry.CaptureException(err)
		httpx.WriteError(w, http.StatusInternalServerError, "Internal server error")
	}
}
