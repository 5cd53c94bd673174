package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// MaxJSONBytes caps JSON request bodies. Document content travels inline, so
// this stays generous.
const MaxJSONBytes = 10 << 20

// ParseJSON decodes a single JSON value from the request body into dest.
// Unknown fields are accepted; callers validate what they read.
func ParseJSON(w http.ResponseWriter, r *http.Request, dest interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxJSONBytes)

	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("invalid JSON: empty body")
		}
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if decoder.More() {
		return errors.New("invalid JSON: body must contain a single value")
	}
	return nil
}

// RespondBadBody answers a ParseJSON failure: 413 when the body hit the size
// cap, 400 otherwise
func RespondBadBody(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		RespondError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
		return
	}
	RespondError(w, http.StatusBadRequest, "Invalid request body")
}
