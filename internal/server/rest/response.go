package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dmitrijs2005/gophidentity/internal/common"
	"github.com/dmitrijs2005/gophidentity/internal/logging"
)

var errEmptyBody = errors.New("request body is empty")

type apiError struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	writeJSON(w, statusCode, apiError{
		Status:  "error",
		Code:    code,
		Message: message,
	})
}

// mapDomainError turns a service error into a status, a stable code and a
// client-facing message. Credential failures stay vague.
func mapDomainError(err error) (int, string, string) {
	switch {
	case errors.Is(err, common.ErrInvalidInput):
		return http.StatusBadRequest, "VALIDATION_ERROR", "invalid request"
	case errors.Is(err, common.ErrWeakCredential):
		return http.StatusBadRequest, "WEAK_PASSWORD", err.Error()
	case errors.Is(err, common.ErrInvalidCredentials):
		return http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid username or password"
	case errors.Is(err, common.ErrAccountLocked):
		return http.StatusLocked, "ACCOUNT_LOCKED", "account temporarily locked"
	case errors.Is(err, common.ErrWrongCurrentPassword):
		return http.StatusBadRequest, "WRONG_CURRENT_PASSWORD", "current password is incorrect"
	case errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized, "TOKEN_EXPIRED", "token expired"
	case errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrorUnauthorized):
		return http.StatusUnauthorized, "UNAUTHORIZED", "invalid or missing credentials"
	case errors.Is(err, common.ErrForbidden):
		return http.StatusForbidden, "FORBIDDEN", "access denied"
	case errors.Is(err, common.ErrUsernameTaken):
		return http.StatusConflict, "USERNAME_TAKEN", "user name already taken"
	case errors.Is(err, common.ErrDuplicateRole):
		return http.StatusConflict, "DUPLICATE_ROLE", "role already exists"
	case errors.Is(err, common.ErrUnknownIdentity):
		return http.StatusNotFound, "UNKNOWN_USER", "user not found"
	case errors.Is(err, common.ErrUnknownRole):
		return http.StatusNotFound, "UNKNOWN_ROLE", "role not found"
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, "NOT_FOUND", "user not found"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "TIMEOUT", "request timed out"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error"
	}
}

func writeMappedError(ctx context.Context, log logging.Logger, w http.ResponseWriter, operation string, err error) {
	status, code, msg := mapDomainError(err)

	fields := []any{
		"operation", operation,
		"status_code", status,
		"error_code", code,
		"request_id", requestIDFromContext(ctx),
		"error", err.Error(),
	}
	if status >= 500 {
		log.Error(ctx, "http operation failed", fields...)
	} else {
		log.Warn(ctx, "http operation failed", fields...)
	}

	writeError(w, status, code, msg)
}

// decodeBody reads exactly one JSON object into dst.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: %v", common.ErrInvalidInput, errEmptyBody)
		}
		return fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: request body must contain a single JSON value", common.ErrInvalidInput)
	}
	return nil
}
