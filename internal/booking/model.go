package booking

import (
	"errors"
	"time"

	"medicare-pro/internal/catalog"
)

const StatusPending = "pending"

// Booking is a patient's reservation of a catalog test. AppointmentDate is formatted as
// YYYY-MM-DD and AppointmentTime as HH:MM; both are optional.
type Booking struct {
	ID              string               `json:"id"`
	PatientID       string               `json:"patientId"`
	TestID          string               `json:"testId"`
	AppointmentDate *string              `json:"appointmentDate,omitempty"`
	AppointmentTime *string              `json:"appointmentTime,omitempty"`
	Status          string               `json:"status"`
	CreatedAt       time.Time            `json:"createdAt"`
	Test            *catalog.MedicalTest `json:"test,omitempty"`
}

var (
	ErrTestNotFound    = errors.New("medical test not found")
	ErrPatientNotFound = errors.New("patient not found")
)
