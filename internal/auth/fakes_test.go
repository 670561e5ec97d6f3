package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"medicare-pro/internal/patient"
)

const (
	testAccessSecret  = "test-access-secret"
	testRefreshSecret = "test-refresh-secret"
)

type memoryPatients struct {
	mu      sync.Mutex
	byID    map[string]patient.Patient
	nextID  int
	failGet error
}

func newMemoryPatients() *memoryPatients {
	return &memoryPatients{byID: make(map[string]patient.Patient)}
}

func (m *memoryPatients) Create(_ context.Context, p *patient.Patient) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.byID {
		if existing.Email == patient.NormalizeEmail(p.Email) {
			return patient.ErrEmailTaken
		}
	}

	m.nextID++
	p.ID = fmt.Sprintf("00000000-0000-7000-8000-%012d", m.nextID)
	p.Email = patient.NormalizeEmail(p.Email)
	p.CreatedAt = time.Now().UTC()
	m.byID[p.ID] = *p
	return nil
}

func (m *memoryPatients) GetByEmail(_ context.Context, email string) (patient.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.byID {
		if p.Email == patient.NormalizeEmail(email) {
			return p, nil
		}
	}
	return patient.Patient{}, patient.ErrNotFound
}

func (m *memoryPatients) GetByID(_ context.Context, id string) (patient.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failGet != nil {
		return patient.Patient{}, m.failGet
	}
	p, ok := m.byID[id]
	if !ok {
		return patient.Patient{}, patient.ErrNotFound
	}
	return p, nil
}

func (m *memoryPatients) delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, id)
}

func (m *memoryPatients) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

type memoryRevocations struct {
	mu  sync.Mutex
	ids map[string]time.Time
}

func newMemoryRevocations() *memoryRevocations {
	return &memoryRevocations{ids: make(map[string]time.Time)}
}

func (m *memoryRevocations) Revoke(_ context.Context, tokenID string, expiresAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.ids[tokenID]; ok {
		return false, nil
	}
	m.ids[tokenID] = expiresAt
	return true, nil
}

func newTestIssuer() *Issuer {
	return NewIssuer(testAccessSecret, testRefreshSecret, 15*time.Minute, 7*24*time.Hour)
}

func newTestService(patients *memoryPatients) *Service {
	svc := NewService(patients, newTestIssuer())
	svc.hashCost = bcrypt.MinCost
	return svc
}
