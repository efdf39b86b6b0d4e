// Package errors writes API error responses.
// Every error body has the shape {"error": "<message>", "code": "<CODE>"}.
package errors

import (
	"encoding/json"
	"net/http"

	"github.com/koustreak/entfiles/internal/errs"
	"github.com/koustreak/entfiles/internal/logger"
)

// Error codes.
const (
	CodeValidationError     = "VALIDATION_ERROR"
	CodeFileTooLarge        = "FILE_TOO_LARGE"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeNotFound            = "NOT_FOUND"
	CodeConflict            = "CONFLICT"
	CodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	CodeStorageWrite        = "STORAGE_WRITE_ERROR"
	CodeStorageRead         = "STORAGE_READ_ERROR"
	CodeMetadataWrite       = "METADATA_WRITE_ERROR"
	CodeInternalError       = "INTERNAL_ERROR"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// WriteError writes an error response with the given status, code and message.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: message, Code: code})
}

type mapping struct {
	status  int
	code    string
	message string // used for 5xx instead of the error's own message
}

var kinds = map[errs.ErrKind]mapping{
	errs.ErrKindInvalidInput:     {http.StatusBadRequest, CodeValidationError, ""},
	errs.ErrKindTooLarge:         {http.StatusRequestEntityTooLarge, CodeFileTooLarge, ""},
	errs.ErrKindUnauthenticated:  {http.StatusUnauthorized, CodeUnauthorized, ""},
	errs.ErrKindPermissionDenied: {http.StatusForbidden, CodeForbidden, ""},
	errs.ErrKindNotFound:         {http.StatusNotFound, CodeNotFound, ""},
	errs.ErrKindConflict:         {http.StatusConflict, CodeConflict, ""},
	errs.ErrKindConnectionFailed: {http.StatusServiceUnavailable, CodeUpstreamUnavailable, "Service temporarily unavailable"},
	errs.ErrKindTimeout:          {http.StatusServiceUnavailable, CodeUpstreamUnavailable, "Service temporarily unavailable"},
	errs.ErrKindStorageWrite:     {http.StatusInternalServerError, CodeStorageWrite, "Failed to store file"},
	errs.ErrKindStorageRead:      {http.StatusInternalServerError, CodeStorageRead, "Failed to read file"},
	errs.ErrKindMetadataWrite:    {http.StatusInternalServerError, CodeMetadataWrite, "Failed to record file"},
}

var internal = mapping{http.StatusInternalServerError, CodeInternalError, "Internal server error"}

// StatusOf returns the HTTP status err maps to.
func StatusOf(err error) int {
	return lookup(err).status
}

func lookup(err error) mapping {
	if m, ok := kinds[errs.KindOf(err)]; ok {
		return m
	}
	return internal
}

// Respond writes err as an API error. Client errors carry the error's own
// message; server errors carry a generic one and the cause is logged.
func Respond(w http.ResponseWriter, log *logger.Logger, err error) {
	m := lookup(err)

	msg := m.message
	if m.status < http.StatusInternalServerError {
		msg = errs.MessageOf(err)
		if msg == "" {
			msg = http.StatusText(m.status)
		}
	} else {
		log.ErrorWith("request failed", err, map[string]any{
			"status": m.status,
			"code":   m.code,
		})
	}

	WriteError(w, m.status, m.code, msg)
}
