package session

import (
	"context"
	"errors"
	"io"
	"net/http"
)

// Middleware wraps a RoundTripper. Client builds its chain once; nothing is global.
type Middleware func(http.RoundTripper) http.RoundTripper

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// Chain wraps base so that the first middleware sees the request first.
func Chain(base http.RoundTripper, middlewares ...Middleware) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	rt := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		rt = middlewares[i](rt)
	}
	return rt
}

// BearerAuth attaches the stored access token. Requests go out unauthenticated when no
// token is stored.
func BearerAuth(store Store) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			tokens, err := store.Load()
			if err != nil {
				return nil, &Error{Kind: KindTransport, Message: "load session", Err: err}
			}
			if tokens.AccessToken == "" {
				return next.RoundTrip(req)
			}

			authed := req.Clone(req.Context())
			authed.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
			return next.RoundTrip(authed)
		})
	}
}

// RefreshFunc exchanges a refresh token for a new pair without going through the chain.
type RefreshFunc func(ctx context.Context, refreshToken string) (Tokens, error)

// RefreshOnUnauthorized reacts to a 401 by refreshing the stored pair and replaying the
// request once. It must wrap BearerAuth so the replay carries the new access token.
// A 403 is passed through untouched.
//
// When no refresh token is stored the store is cleared and the original 401 is returned.
// Any failure of the refresh call clears the store and fails with KindUnauthenticated,
// so the caller always ends up either with a fresh session or back at login.
func RefreshOnUnauthorized(store Store, refresh RefreshFunc) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			resp, err := next.RoundTrip(req)
			if err != nil || resp.StatusCode != http.StatusUnauthorized {
				return resp, err
			}
			if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
				return resp, nil
			}

			tokens, err := store.Load()
			if err != nil {
				discard(resp)
				return nil, &Error{Kind: KindTransport, Message: "load session", Err: err}
			}
			if tokens.RefreshToken == "" {
				if err := store.Clear(); err != nil {
					discard(resp)
					return nil, clearError(err)
				}
				return resp, nil
			}

			fresh, err := refresh(req.Context(), tokens.RefreshToken)
			if err != nil {
				discard(resp)
				return nil, endSession(store, err)
			}
			if err := store.Save(fresh); err != nil {
				discard(resp)
				return nil, &Error{Kind: KindTransport, Message: "save session", Err: err}
			}
			discard(resp)

			retry := req.Clone(req.Context())
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, &Error{Kind: KindTransport, Message: "replay request body", Err: err}
				}
				retry.Body = body
			}

			retried, err := next.RoundTrip(retry)
			if err == nil && retried.StatusCode == http.StatusUnauthorized {
				if err := store.Clear(); err != nil {
					discard(retried)
					return nil, clearError(err)
				}
			}
			return retried, err
		})
	}
}

// endSession drops the stored pair after a failed refresh and wraps cause in a
// KindUnauthenticated error.
func endSession(store Store, cause error) error {
	if err := store.Clear(); err != nil {
		return clearError(errors.Join(err, cause))
	}
	return &Error{Kind: KindUnauthenticated, Message: "session expired, log in again", Err: cause}
}

func clearError(err error) *Error {
	return &Error{Kind: KindTransport, Message: "clear session", Err: err}
}

func discard(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
