package observability

import (
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/require"
)

func TestScrubEvent_RedactsCredentials(t *testing.T) {
	event := &sentry.Event{Request: &sentry.Request{
		URL:     "https://clinic.test/clinic/auth/refresh",
		Method:  "POST",
		Headers: map[string]string{"authorization": "Bearer abc", "Content-Type": "application/json"},
		Cookies: "session=abc",
		Data:    `{"refreshToken":"eyJhbGciOi"}`,
	}}

	got := scrubEvent(event)

	require.Equal(t, redacted, got.Request.Headers["authorization"])
	require.Equal(t, "application/json", got.Request.Headers["Content-Type"])
	require.Equal(t, redacted, got.Request.Cookies)
	require.Equal(t, redacted, got.Request.Data)
}

func TestScrubEvent_KeepsHarmlessBody(t *testing.T) {
	event := &sentry.Event{Request: &sentry.Request{Data: `{"testId":"t1"}`}}
	require.Equal(t, `{"testId":"t1"}`, scrubEvent(event).Request.Data)

	require.Nil(t, scrubEvent(nil))
	bare := &sentry.Event{Message: "boom"}
	require.Same(t, bare, scrubEvent(bare))
}

func TestInitSentry_NoDSN(t *testing.T) {
	require.NoError(t, InitSentry("", "test", "medicare-pro@dev"))
}
