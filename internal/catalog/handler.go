package catalog

import (
	"context"
	"database/sql/driver"
	"errors"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/jackc/pgx/v5/pgconn"

	"medicare-pro/internal/httpx"
)

type Lister interface {
	List(ctx context.Context) ([]MedicalTest, error)
}

type Handler struct {
	tests Lister
}

func NewHandler(tests Lister) *Handler {
	return &Handler{tests: tests}
}

func (h *Handler) ListTests(w http.ResponseWriter, r *http.Request) {
	tests, err := h.tests.List(r.Context())
	if err != nil {
		if storeUnavailable(err) {
			httpx.WriteError(w, http.StatusServiceUnavailable, "Catalog is temporarily unavailable")
			return
		}
		sentry.CaptureException(err)
		httpx.WriteError(w, http.StatusInternalServerError, "Failed to fetch tests")
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, map[string]any{"data": tests})
}

func storeUnavailable(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) || pgconn.Timeout(err)
}
