package catalog

import "time"

// MedicalTest is a bookable diagnostic test. The catalog is seeded by migration.
type MedicalTest struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	CreatedAt   time.Time `json:"createdAt"`
}
