package observability

import (
	"net/http"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
)

// Headers and body fields that carry bearer or refresh tokens, or the login password.
var (
	scrubbedHeaders = []string{"Authorization", "Cookie"}
	secretFields    = []string{"accesstoken", "refreshtoken", "password"}
)

const redacted = "[redacted]"

func InitSentry(dsn, environment, release string) error {
	if dsn == "" {
		return nil
	}

	return sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		Release:          release,
		AttachStacktrace: true,
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			return scrubEvent(event)
		},
	})
}

// scrubEvent strips credentials from the captured request before it leaves the process.
func scrubEvent(event *sentry.Event) *sentry.Event {
	if event == nil || event.Request == nil {
		return event
	}
	req := event.Request

	for name := range req.Headers {
		for _, h := range scrubbedHeaders {
			if http.CanonicalHeaderKey(name) == h {
				req.Headers[name] = redacted
			}
		}
	}
	if req.Cookies != "" {
		req.Cookies = redacted
	}

	body := strings.ToLower(req.Data)
	for _, field := range secretFields {
		if strings.Contains(body, field) {
			req.Data = redacted
			break
		}
	}
	return event
}

func FlushSentry() {
	sentry.Flush(2 * time.Second)
}
