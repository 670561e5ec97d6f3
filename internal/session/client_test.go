package session

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func newLoggedInClient(t *testing.T) (*Client, *clinicServer, *MemoryStore) {
	t.Helper()
	server, srv := newClinicServer(t)
	store := NewMemoryStore()
	client, err := New(srv.URL, store)
	require.NoError(t, err)

	_, err = client.Login(t.Context(), "jane@x.com", "secret123")
	require.NoError(t, err)
	return client, server, store
}

func TestNew_RejectsBadInput(t *testing.T) {
	_, err := New("not a url", NewMemoryStore())
	require.Error(t, err)

	_, err = New("http://localhost:5000", nil)
	require.Error(t, err)
}

func TestClient_LoginStoresTokens(t *testing.T) {
	client, _, store := newLoggedInClient(t)

	tokens, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, "access-1", tokens.AccessToken)
	require.Equal(t, "refresh-1", tokens.RefreshToken)

	p, err := client.Preflight(t.Context())
	require.NoError(t, err)
	require.Equal(t, "jane@x.com", p.Email)
}

func TestClient_LoginFailure(t *testing.T) {
	_, srv := newClinicServer(t)
	store := NewMemoryStore()
	client, err := New(srv.URL, store)
	require.NoError(t, err)

	_, err = client.Login(t.Context(), "jane@x.com", "wrong")
	require.Equal(t, KindUnauthenticated, KindOf(err))

	tokens, _ := store.Load()
	require.True(t, tokens.Empty())
}

func TestClient_RegisterValidation(t *testing.T) {
	_, srv := newClinicServer(t)
	client, err := New(srv.URL, NewMemoryStore())
	require.NoError(t, err)

	require.NoError(t, client.Register(t.Context(), "Jane", "jane@x.com", "secret123"))

	err = client.Register(t.Context(), "Jane", "taken@example.com", "secret123")
	require.Equal(t, KindValidation, KindOf(err))

	var se *Error
	require.ErrorAs(t, err, &se)
	require.Equal(t, http.StatusBadRequest, se.Status)
	require.Equal(t, "Email already exists", se.Message)
}

func TestClient_RefreshesOnceOn401(t *testing.T) {
	client, server, store := newLoggedInClient(t)
	server.expireAccess()

	list, err := client.Bookings(t.Context())
	require.NoError(t, err)
	require.Len(t, list.Bookings, 1)

	require.Equal(t, 1, server.refreshCount())
	require.Equal(t, 2, server.bookingCount())

	tokens, _ := store.Load()
	require.Equal(t, "access-2", tokens.AccessToken)
	require.Equal(t, "refresh-2", tokens.RefreshToken)
}

func TestClient_ReplaysBodyAfterRefresh(t *testing.T) {
	client, server, _ := newLoggedInClient(t)
	server.expireAccess()

	created, err := client.CreateBooking(t.Context(), BookingRequest{TestID: "t1"})
	require.NoError(t, err)
	require.Equal(t, "b2", created.ID)
	require.Equal(t, "t1", server.lastTestID())
	require.Equal(t, 1, server.refreshCount())
}

func TestClient_RetriesAtMostOnce(t *testing.T) {
	server, srv := newClinicServer(t)
	store := NewMemoryStore()
	client, err := New(srv.URL, store, WithTransport(&expiringTransport{server: server}))
	require.NoError(t, err)
	_, err = client.Login(t.Context(), "jane@x.com", "secret123")
	require.NoError(t, err)
	server.expireAccess()

	_, err = client.Bookings(t.Context())
	require.Equal(t, KindUnauthenticated, KindOf(err))
	require.Equal(t, 1, server.refreshCount())
	require.Equal(t, 2, server.bookingCount())

	tokens, _ := store.Load()
	require.True(t, tokens.Empty())
}

// expiringTransport invalidates the server's access token after every refresh.
type expiringTransport struct {
	server *clinicServer
}

func (t *expiringTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := http.DefaultTransport.RoundTrip(req)
	if err == nil && req.URL.Path == "/clinic/auth/refresh" {
		t.server.expireAccess()
	}
	return resp, err
}

func TestClient_RefreshRejectedClearsStore(t *testing.T) {
	client, server, store := newLoggedInClient(t)
	server.expireAccess()
	server.setRefreshStatus(http.StatusForbidden)

	_, err := client.Bookings(t.Context())
	require.Equal(t, KindUnauthenticated, KindOf(err))
	require.Equal(t, 1, server.bookingCount())

	tokens, _ := store.Load()
	require.True(t, tokens.Empty())
}

func TestClient_RefreshFailureEndsSession(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*clinicServer)
		cause Kind
	}{
		{
			name:  "server error",
			setup: func(s *clinicServer) { s.setRefreshStatus(http.StatusInternalServerError) },
			cause: KindServer,
		},
		{
			name:  "connection dropped",
			setup: func(s *clinicServer) { s.setDropRefresh(true) },
			cause: KindTransport,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, server, store := newLoggedInClient(t)
			server.expireAccess()
			tt.setup(server)

			_, err := client.Bookings(t.Context())
			require.Equal(t, KindUnauthenticated, KindOf(err))
			require.Equal(t, 1, server.bookingCount())

			var se *Error
			require.ErrorAs(t, err, &se)
			require.Equal(t, tt.cause, KindOf(se.Err))

			tokens, _ := store.Load()
			require.True(t, tokens.Empty())
		})
	}
}

func TestClient_ExplicitRefreshFailureClearsStore(t *testing.T) {
	client, server, store := newLoggedInClient(t)
	server.setRefreshStatus(http.StatusBadGateway)

	_, err := client.Refresh(t.Context())
	require.Equal(t, KindUnauthenticated, KindOf(err))

	tokens, _ := store.Load()
	require.True(t, tokens.Empty())
}

func TestClient_ForbiddenIsNotRefreshed(t *testing.T) {
	client, server, _ := newLoggedInClient(t)
	server.setStaleIs401(false)
	server.expireAccess()

	_, err := client.Bookings(t.Context())
	require.Equal(t, KindForbidden, KindOf(err))
	require.Zero(t, server.refreshCount())
}

func TestClient_UnauthenticatedWithoutSession(t *testing.T) {
	server, srv := newClinicServer(t)
	client, err := New(srv.URL, NewMemoryStore())
	require.NoError(t, err)

	_, err = client.Bookings(t.Context())
	require.Equal(t, KindUnauthenticated, KindOf(err))
	require.Zero(t, server.refreshCount())

	_, err = client.Preflight(t.Context())
	require.Equal(t, KindUnauthenticated, KindOf(err))
}

func TestClient_PreflightClearsInvalidSession(t *testing.T) {
	client, server, store := newLoggedInClient(t)
	server.expireAccess()

	_, err := client.Preflight(t.Context())
	require.Equal(t, KindForbidden, KindOf(err))

	tokens, _ := store.Load()
	require.True(t, tokens.Empty())
}

func TestClient_ExplicitRefresh(t *testing.T) {
	client, _, store := newLoggedInClient(t)

	fresh, err := client.Refresh(t.Context())
	require.NoError(t, err)
	require.Equal(t, "access-2", fresh.AccessToken)

	tokens, _ := store.Load()
	require.Equal(t, fresh, tokens)
}

func TestClient_TestsIsPublic(t *testing.T) {
	_, srv := newClinicServer(t)
	client, err := New(srv.URL, NewMemoryStore())
	require.NoError(t, err)

	tests, err := client.Tests(t.Context())
	require.NoError(t, err)
	require.Len(t, tests, 1)
	require.Equal(t, "Blood Test", tests[0].Name)
}

func TestClient_Logout(t *testing.T) {
	client, server, store := newLoggedInClient(t)

	require.NoError(t, client.Logout(t.Context()))
	require.Equal(t, 1, server.logoutCount())

	tokens, _ := store.Load()
	require.True(t, tokens.Empty())
}

func TestClient_TransportError(t *testing.T) {
	client, err := New("http://127.0.0.1:1", NewMemoryStore())
	require.NoError(t, err)

	_, err = client.Tests(t.Context())
	require.Equal(t, KindTransport, KindOf(err))
}

func TestClient_PreflightReportsClearFailure(t *testing.T) {
	server, srv := newClinicServer(t)
	diskFull := errors.New("disk full")
	store := &brokenStore{MemoryStore: NewMemoryStore(), clearErr: diskFull}
	client, err := New(srv.URL, store)
	require.NoError(t, err)

	_, err = client.Login(t.Context(), "jane@x.com", "secret123")
	require.NoError(t, err)
	server.expireAccess()

	_, err = client.Preflight(t.Context())
	require.ErrorIs(t, err, diskFull)
	require.Equal(t, KindTransport, KindOf(err))
}
