package session

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// clinicServer is a scripted stand-in for the API. A missing bearer is a 401. A stale one
// is a 401 when staleIs401 is set, which lets tests drive the refresh path directly; the
// real verifier answers 403 there (covered against the real router in package app).
type clinicServer struct {
	mu            sync.Mutex
	access        string
	refresh       string
	generation    int
	staleIs401    bool
	refreshStatus int
	dropRefresh   bool
	refreshCalls  int
	bookingCalls  int
	logoutCalls   int
	lastBody      string
}

func newClinicServer(t *testing.T) (*clinicServer, *httptest.Server) {
	t.Helper()
	s := &clinicServer{staleIs401: true}
	srv := httptest.NewServer(s.routes())
	t.Cleanup(srv.Close)
	return s, srv
}

func (s *clinicServer) issue() (string, string) {
	s.generation++
	s.access = fmt.Sprintf("access-%d", s.generation)
	s.refresh = fmt.Sprintf("refresh-%d", s.generation)
	return s.access, s.refresh
}

// expireAccess makes the current access token stale without touching the refresh token.
func (s *clinicServer) expireAccess() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = "rotated-away"
}

func (s *clinicServer) refreshCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshCalls
}

func (s *clinicServer) bookingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bookingCalls
}

func (s *clinicServer) logoutCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logoutCalls
}

func (s *clinicServer) lastTestID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastBody
}

func (s *clinicServer) setRefreshStatus(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshStatus = status
}

// setDropRefresh makes the refresh endpoint close the connection without answering.
func (s *clinicServer) setDropRefresh(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropRefresh = v
}

func (s *clinicServer) setStaleIs401(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staleIs401 = v
}

func writeJSON(w http.ResponseWriter, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func fail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"success": false, "error": message})
}

func (s *clinicServer) authorize(w http.ResponseWriter, r *http.Request) bool {
	header := r.Header.Get("Authorization")
	if header == "" {
		fail(w, http.StatusUnauthorized, "No token provided")
		return false
	}
	if header != "Bearer "+s.access {
		if s.staleIs401 {
			fail(w, http.StatusUnauthorized, "No token provided")
		} else {
			fail(w, http.StatusForbidden, "Invalid token")
		}
		return false
	}
	return true
}

func (s *clinicServer) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /clinic/patient/register", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["email"] == "taken@example.com" {
			fail(w, http.StatusBadRequest, "Email already exists")
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"success": true, "message": "Patient registered successfully"})
	})

	mux.HandleFunc("POST /clinic/patient/login", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "secret123" {
			fail(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		access, refresh := s.issue()
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "accessToken": access, "refreshToken": refresh})
	})

	mux.HandleFunc("POST /clinic/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.refreshCalls++
		if s.dropRefresh {
			conn, _, err := http.NewResponseController(w).Hijack()
			if err == nil {
				_ = conn.Close()
			}
			return
		}
		if s.refreshStatus != 0 {
			fail(w, s.refreshStatus, "refresh rejected")
			return
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["refreshToken"] != s.refresh {
			fail(w, http.StatusForbidden, "Invalid refresh token")
			return
		}
		access, refresh := s.issue()
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "accessToken": access, "refreshToken": refresh})
	})

	mux.HandleFunc("POST /clinic/auth/verify", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		switch body["accessToken"] {
		case "":
			fail(w, http.StatusUnauthorized, "No token provided")
		case s.access:
			writeJSON(w, http.StatusOK, map[string]any{
				"success": true,
				"patient": map[string]any{"id": "p1", "name": "Jane", "email": "jane@x.com"},
			})
		default:
			fail(w, http.StatusForbidden, "Invalid token")
		}
	})

	mux.HandleFunc("POST /clinic/auth/logout", func(w http.ResponseWriter, _ *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.logoutCalls++
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	})

	mux.HandleFunc("GET /clinic/test", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"data":    []map[string]any{{"id": "t1", "name": "Blood Test", "price": 25}},
		})
	})

	mux.HandleFunc("GET /clinic/booking/get", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.bookingCalls++
		if !s.authorize(w, r) {
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":  true,
			"message":  "Successfully fetched booking data",
			"bookings": []map[string]any{{"id": "b1", "testId": "t1", "status": "pending"}},
		})
	})

	mux.HandleFunc("POST /clinic/booking/create", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.bookingCalls++
		if !s.authorize(w, r) {
			return
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		s.lastBody = body["testId"]
		writeJSON(w, http.StatusCreated, map[string]any{
			"success":    true,
			"message":    "The booking is created",
			"newBooking": map[string]any{"id": "b2", "testId": body["testId"], "status": "pending"},
		})
	})

	return mux
}
