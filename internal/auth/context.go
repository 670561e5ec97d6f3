package auth

import (
	"context"

	"medicare-pro/internal/patient"
)

type patientContextKey struct{}

// ContextWithPatient attaches the identity resolved by the verifier.
func ContextWithPatient(ctx context.Context, p patient.Patient) context.Context {
	return context.WithValue(ctx, patientContextKey{}, &p)
}

// PatientFromContext returns the identity attached by Verifier.Middleware.
func PatientFromContext(ctx context.Context) (patient.Patient, bool) {
	if ctx == nil {
		return patient.Patient{}, false
	}
	v, ok := ctx.Value(patientContextKey{}).(*patient.Patient)
	if !ok || v == nil {
		return patient.Patient{}, false
	}
	return *v, true
}
