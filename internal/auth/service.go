package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"medicare-pro/internal/observability"
	"medicare-pro/internal/patient"
)

// CredentialStore is the patient record store the auth core reads and registers into.
type CredentialStore interface {
	PatientLookup
	Create(ctx context.Context, p *patient.Patient) error
	GetByEmail(ctx context.Context, email string) (patient.Patient, error)
}

type Service struct {
	patients    CredentialStore
	issuer      *Issuer
	verifier    *Verifier
	revocations RevocationStore
	hashCost    int
}

func NewService(patients CredentialStore, issuer *Issuer) *Service {
	return &Service{
		patients: patients,
		issuer:   issuer,
		verifier: NewVerifier(issuer, patients),
		hashCost: bcrypt.DefaultCost,
	}
}

// WithRevocation turns on single-use refresh tokens. Without it a refresh token stays
// valid until it expires, even after it has been exchanged.
func (s *Service) WithRevocation(store RevocationStore) {
	s.revocations = store
}

func (s *Service) Verifier() *Verifier {
	return s.verifier
}

func (s *Service) Register(ctx context.Context, name, email, password string) (patient.Patient, error) {
	name = strings.TrimSpace(name)
	email = patient.NormalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return patient.Patient{}, ValidationError{Message: "All fields are required"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return patient.Patient{}, ValidationError{Message: "Password must be at most 72 bytes"}
		}
		return patient.Patient{}, fmt.Errorf("hash password: %w", err)
	}

	p := patient.Patient{Name: name, Email: email, PasswordHash: string(hash)}
	if err := s.patients.Create(ctx, &p); err != nil {
		if errors.Is(err, patient.ErrEmailTaken) {
			return patient.Patient{}, ErrEmailTaken
		}
		return patient.Patient{}, err
	}

	return p, nil
}

// Login returns ErrNotFound for an unknown email and ErrInvalidCredentials for a wrong
// password; the two are reported with different status codes.
func (s *Service) Login(ctx context.Context, email, password string) (TokenPair, error) {
	email = patient.NormalizeEmail(email)
	if email == "" || password == "" {
		return TokenPair{}, ValidationError{Message: "Email and password are required"}
	}

	p, err := s.patients.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, patient.ErrNotFound) {
			return TokenPair{}, ErrNotFound
		}
		return TokenPair{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)); err != nil {
		return TokenPair{}, ErrInvalidCredentials
	}

	pair, err := s.issuer.Issue(p)
	if err != nil {
		return TokenPair{}, err
	}
	observability.RecordTokenPairIssued("login")
	return pair, nil
}

func (s *Service) Verify(ctx context.Context, accessToken string) (patient.Patient, error) {
	return s.verifier.VerifyToken(ctx, accessToken)
}

// Refresh exchanges a refresh token for a new pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	p, claims, err := s.resolveRefresh(ctx, refreshToken)
	if err != nil {
		return TokenPair{}, err
	}

	if s.revocations != nil {
		revoked, err := s.revocations.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
		if err != nil {
			return TokenPair{}, err
		}
		if !revoked {
			return TokenPair{}, ErrForbidden
		}
	}

	pair, err := s.issuer.Issue(p)
	if err != nil {
		return TokenPair{}, err
	}
	observability.RecordTokenPairIssued("refresh")
	return pair, nil
}

// Logout revokes the refresh token when revocation is enabled and is otherwise a
// validity check only; clients discard their tokens either way.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.parseRefresh(refreshToken)
	if err != nil {
		return err
	}
	if s.revocations == nil {
		return nil
	}

	if _, err := s.revocations.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return err
	}
	return nil
}

func (s *Service) resolveRefresh(ctx context.Context, refreshToken string) (patient.Patient, *RefreshClaims, error) {
	claims, err := s.parseRefresh(refreshToken)
	if err != nil {
		return patient.Patient{}, nil, err
	}

	p, err := s.patients.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, patient.ErrNotFound) {
			return patient.Patient{}, nil, ErrNotFound
		}
		return patient.Patient{}, nil, fmt.Errorf("resolve refresh subject: %w", err)
	}

	return p, claims, nil
}

func (s *Service) parseRefresh(refreshToken string) (*RefreshClaims, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, ErrUnauthenticated
	}

	claims, err := s.issuer.ParseRefresh(refreshToken)
	if err != nil {
		return nil, ErrForbidden
	}
	if s.revocations != nil && claims.ID == "" {
		return nil, ErrForbidden
	}
	return claims, nil
}
