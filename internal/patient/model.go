package patient

import (
	"errors"
	"time"
)

// Patient is the stored identity that access and refresh tokens resolve to.
type Patient struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Public is the subset of a patient that is safe to return to clients.
type Public struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (p Patient) Public() Public {
	return Public{ID: p.ID, Name: p.Name, Email: p.Email}
}

var (
	ErrNotFound   = errors.New("patient not found")
	ErrEmailTaken = errors.New("email already exists")
)
