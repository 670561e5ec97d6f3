// Package httpx holds the JSON envelope shared by every clinic endpoint:
// successes carry "success": true plus payload keys, failures carry
// "success": false and an "error" message.
package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

const MaxJSONBodyBytes = 1 << 20

var ErrInvalidBody = errors.New("invalid json body")

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteSuccess merges payload into a {"success": true} envelope.
func WriteSuccess(w http.ResponseWriter, status int, payload map[string]any) {
	body := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		body[k] = v
	}
	body["success"] = true
	WriteJSON(w, status, body)
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]any{"success": false, "error": message})
}

// DecodeJSON reads a bounded JSON body into dst. An empty body leaves dst untouched so
// the caller's own required-field checks decide the response.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxJSONBodyBytes)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return ErrInvalidBody
	}
	return nil
}
