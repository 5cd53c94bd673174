package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"smartdoc/internal/config"
	"smartdoc/internal/domain"
	"smartdoc/internal/httputil"
)

// handleError converts domain errors to HTTP responses
func handleError(w http.ResponseWriter, err error) {
	var conflictErr *domain.ConflictError

	switch {
	case errors.Is(err, domain.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		httputil.RespondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		httputil.RespondError(w, http.StatusForbidden, err.Error())
	case errors.As(err, &conflictErr):
		httputil.RespondErrorWithExtras(w, http.StatusConflict, conflictErr.Error(), map[string]interface{}{
			"resource_type": conflictErr.ResourceType,
			"resource_id":   conflictErr.ResourceID,
		})
	case errors.Is(err, domain.ErrMalformedContent):
		httputil.RespondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrTransient):
		httputil.RespondError(w, http.StatusServiceUnavailable, "temporarily unavailable, try again")
	default:
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// PathParam reads a required path value. It writes a 400 and returns false
// when the value is missing.
func PathParam(w http.ResponseWriter, r *http.Request, name, label string) (string, bool) {
	value := r.PathValue(name)
	if value == "" {
		httputil.RespondError(w, http.StatusBadRequest, label+" is required")
		return "", false
	}
	return value, true
}

// readUpload reads the "file" field of a multipart upload
func readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, config.MaxImportBytes+(1<<20))

	file, header, err := r.FormFile("file")
	if err != nil {
		return "", nil, &domain.ValidationError{Message: fmt.Sprintf("file upload required: %v", err)}
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, config.MaxImportBytes+1))
	if err != nil {
		return "", nil, &domain.ValidationError{Message: fmt.Sprintf("read upload: %v", err)}
	}
	if len(data) > config.MaxImportBytes {
		return "", nil, &domain.ValidationError{Message: "file too large"}
	}
	return header.Filename, data, nil
}
