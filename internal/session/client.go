// Package session is the patient-side API client. It keeps the token pair in a Store,
// attaches the access token to every call and refreshes it once when the server
// answers 401.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"medicare-pro/internal/booking"
	"medicare-pro/internal/catalog"
	"medicare-pro/internal/patient"
)

const (
	DefaultTimeout  = 15 * time.Second
	maxResponseSize = 1 << 20
)

type Option func(*Client)

// WithTransport replaces the base transport under the middleware chain.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.transport = rt }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

type Client struct {
	baseURL   *url.URL
	store     Store
	transport http.RoundTripper
	timeout   time.Duration

	api *http.Client
	raw *http.Client
}

func New(baseURL string, store Store, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid api url %q", baseURL)
	}
	if store == nil {
		return nil, errors.New("session store is required")
	}

	c := &Client{
		baseURL:   u,
		store:     store,
		transport: http.DefaultTransport,
		timeout:   DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.raw = &http.Client{Transport: c.transport, Timeout: c.timeout}
	c.api = &http.Client{
		Transport: Chain(c.transport,
			RefreshOnUnauthorized(c.store, c.exchange),
			BearerAuth(c.store),
		),
		Timeout: c.timeout,
	}
	return c, nil
}

type BookingRequest struct {
	TestID          string `json:"testId"`
	AppointmentDate string `json:"appointmentDate,omitempty"`
	AppointmentTime string `json:"appointmentTime,omitempty"`
}

type BookingList struct {
	Message  string            `json:"message"`
	Bookings []booking.Booking `json:"bookings"`
}

func (c *Client) Register(ctx context.Context, name, email, password string) error {
	body := map[string]string{"name": name, "email": email, "password": password}
	return c.call(ctx, c.raw, http.MethodPost, "/clinic/patient/register", body, nil)
}

// Login stores the returned pair.
func (c *Client) Login(ctx context.Context, email, password string) (Tokens, error) {
	var out Tokens
	body := map[string]string{"email": email, "password": password}
	if err := c.call(ctx, c.raw, http.MethodPost, "/clinic/patient/login", body, &out); err != nil {
		return Tokens{}, err
	}
	if err := c.store.Save(out); err != nil {
		return Tokens{}, &Error{Kind: KindTransport, Message: "save session", Err: err}
	}
	return out, nil
}

// Verify asks the server who accessToken belongs to. It never refreshes.
func (c *Client) Verify(ctx context.Context, accessToken string) (patient.Public, error) {
	var out struct {
		Patient patient.Public `json:"patient"`
	}
	body := map[string]string{"accessToken": accessToken}
	if err := c.call(ctx, c.raw, http.MethodPost, "/clinic/auth/verify", body, &out); err != nil {
		return patient.Public{}, err
	}
	return out.Patient, nil
}

// Refresh exchanges the stored refresh token and stores the new pair. A failed exchange
// clears the store.
func (c *Client) Refresh(ctx context.Context) (Tokens, error) {
	tokens, err := c.store.Load()
	if err != nil {
		return Tokens{}, &Error{Kind: KindTransport, Message: "load session", Err: err}
	}
	if tokens.RefreshToken == "" {
		return Tokens{}, &Error{Kind: KindUnauthenticated, Message: "not logged in"}
	}

	fresh, err := c.exchange(ctx, tokens.RefreshToken)
	if err != nil {
		return Tokens{}, endSession(c.store, err)
	}
	if err := c.store.Save(fresh); err != nil {
		return Tokens{}, &Error{Kind: KindTransport, Message: "save session", Err: err}
	}
	return fresh, nil
}

// Preflight checks the stored access token before any work is done. An invalid token
// clears the store.
func (c *Client) Preflight(ctx context.Context) (patient.Public, error) {
	tokens, err := c.store.Load()
	if err != nil {
		return patient.Public{}, &Error{Kind: KindTransport, Message: "load session", Err: err}
	}
	if tokens.AccessToken == "" {
		return patient.Public{}, &Error{Kind: KindUnauthenticated, Message: "not logged in"}
	}

	p, err := c.Verify(ctx, tokens.AccessToken)
	if err != nil {
		if IsAuthFailure(err) {
			if clearErr := c.store.Clear(); clearErr != nil {
				return patient.Public{}, clearError(clearErr)
			}
		}
		return patient.Public{}, err
	}
	return p, nil
}

func (c *Client) Tests(ctx context.Context) ([]catalog.MedicalTest, error) {
	var out struct {
		Data []catalog.MedicalTest `json:"data"`
	}
	if err := c.call(ctx, c.api, http.MethodGet, "/clinic/test", nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *Client) Bookings(ctx context.Context) (BookingList, error) {
	var out BookingList
	if err := c.call(ctx, c.api, http.MethodGet, "/clinic/booking/get", nil, &out); err != nil {
		return BookingList{}, err
	}
	return out, nil
}

func (c *Client) CreateBooking(ctx context.Context, req BookingRequest) (booking.Booking, error) {
	var out struct {
		NewBooking booking.Booking `json:"newBooking"`
	}
	if err := c.call(ctx, c.api, http.MethodPost, "/clinic/booking/create", req, &out); err != nil {
		return booking.Booking{}, err
	}
	return out.NewBooking, nil
}

// Logout tells the server to drop the refresh token and clears the store. The server
// call is best effort; only a failure to clear the store is returned.
func (c *Client) Logout(ctx context.Context) error {
	tokens, err := c.store.Load()
	if err == nil && tokens.RefreshToken != "" {
		body := map[string]string{"refreshToken": tokens.RefreshToken}
		_ = c.call(ctx, c.raw, http.MethodPost, "/clinic/auth/logout", body, nil)
	}

	if err := c.store.Clear(); err != nil {
		return &Error{Kind: KindTransport, Message: "clear session", Err: err}
	}
	return nil
}

func (c *Client) exchange(ctx context.Context, refreshToken string) (Tokens, error) {
	var out Tokens
	body := map[string]string{"refreshToken": refreshToken}
	if err := c.call(ctx, c.raw, http.MethodPost, "/clinic/auth/refresh", body, &out); err != nil {
		return Tokens{}, err
	}
	if out.AccessToken == "" || out.RefreshToken == "" {
		return Tokens{}, &Error{Kind: KindServer, Status: http.StatusOK, Message: "refresh response is missing tokens"}
	}
	return out, nil
}

func (c *Client) call(ctx context.Context, hc *http.Client, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return &Error{Kind: KindValidation, Message: "encode request", Err: err}
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.JoinPath(path).String(), body)
	if err != nil {
		return &Error{Kind: KindTransport, Message: "build request", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := hc.Do(req)
	if err != nil {
		var se *Error
		if errors.As(err, &se) {
			return se
		}
		return &Error{Kind: KindTransport, Message: fmt.Sprintf("%s %s", method, path), Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return &Error{Kind: KindTransport, Message: "read response", Err: err}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var envelope struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		_ = json.Unmarshal(data, &envelope)
		message := envelope.Error
		if message == "" {
			message = envelope.Message
		}
		return statusError(resp.StatusCode, message)
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Kind: KindServer, Status: resp.StatusCode, Message: "decode response", Err: err}
	}
	return nil
}
