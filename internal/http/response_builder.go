package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"finboard/internal/core"
	"finboard/internal/log"
	"finboard/internal/store"
)

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON encodes v before sending the status, so a value that cannot be
// encoded becomes a 500 instead of a truncated 200.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	ctx := r.Context()
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		log.NewStructuredLogger(log.FromContext(ctx)).LogError(ctx, "Encode JSON response failed", err, log.ComponentHTTP, log.OpRead,
			log.NewFields().WithErrorType(log.ErrorTypeInternal))
		status = http.StatusInternalServerError
		buf.Reset()
		buf.WriteString(`{"error":"internal server error"}` + "\n")
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.FromContext(ctx).DebugContext(ctx, "Write JSON response failed", log.FieldError, err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, errorResponse{Error: msg})
}

// writeServiceError maps an error from parsing or the ledger service to a status.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	ctx := r.Context()

	var reqErr *requestError
	switch {
	case errors.As(err, &reqErr):
		writeError(w, r, reqErr.status, reqErr.msg)
	case errors.Is(err, store.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "transaction not found")
	case core.IsValidationError(err):
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, context.Canceled):
		// client went away; nothing useful to send
		log.FromContext(ctx).DebugContext(ctx, "Request canceled", log.FieldOperation, operation)
	default:
		log.NewStructuredLogger(log.FromContext(ctx)).LogError(ctx, "Request failed", err, log.ComponentHTTP, operation,
			log.NewFields().WithErrorType(errorType(err)))
		writeError(w, r, http.StatusInternalServerError, "internal server error")
	}
}

// errorType classifies an unmapped service error for logging.
func errorType(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return log.ErrorTypeNetwork
	}
	return log.ErrorTypeInternal
}

// nonNil keeps empty lists encoding as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
