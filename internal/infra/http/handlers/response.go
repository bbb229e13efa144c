package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/greenlineai/webhook-reconciler/internal/usecase"
)

// MaxBodyBytes caps every webhook body.
const MaxBodyBytes = 1 << 20

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Success bool   `json:"success"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeErrorResponse(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// writeError maps a usecase error onto its HTTP status. Technical errors are
// logged with their cause and answered with a generic message.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := statusFor(err)

	var de *usecase.DomainError
	if errors.As(err, &de) {
		writeErrorResponse(w, status, de.Code, de.Message)
		return
	}

	code := usecase.CodeStoreError
	var te *usecase.TechnicalError
	if errors.As(err, &te) {
		code = te.Code
	}
	logger.Error("webhook processing failed", "code", code, "error", err)
	writeErrorResponse(w, status, code, "Internal server error")
}

func statusFor(err error) int {
	var de *usecase.DomainError
	if errors.As(err, &de) {
		if de.Code == usecase.CodeNotFound {
			return http.StatusNotFound
		}
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// readBody returns the raw body, failing once it grows past MaxBodyBytes.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeErrorResponse(w, http.StatusRequestEntityTooLarge, usecase.CodeInvalidPayload, "Request body too large")
			return nil, false
		}
		writeErrorResponse(w, http.StatusBadRequest, usecase.CodeInvalidPayload, "Could not read request body")
		return nil, false
	}
	return body, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) ([]byte, bool) {
	body, ok := readBody(w, r)
	if !ok {
		return nil, false
	}
	if err := json.Unmarshal(body, v); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, usecase.CodeInvalidPayload, "Invalid JSON")
		return nil, false
	}
	return body, true
}

// Descriptor answers GET on a webhook path so providers and operators can
// check the endpoint is live.
func Descriptor(name string, events ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":   "ok",
			"endpoint": name,
			"events":   events,
		})
	}
}

func outcome(err error, ignored bool) string {
	switch {
	case err == nil && ignored:
		return "ignored"
	case err == nil:
		return "processed"
	case statusFor(err) == http.StatusInternalServerError:
		return "failed"
	}
	return "rejected"
}
