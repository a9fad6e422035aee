package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/mockly/apiserver/internal/services"
	"github.com/mockly/apiserver/types"
)

const maxJSONBody = 1 << 20

type contextKey string

const (
	contextSubjectKey contextKey = "sub"
	contextAccountKey contextKey = "account"
)

func withAccount(ctx context.Context, account types.Account) context.Context {
	ctx = context.WithValue(ctx, contextSubjectKey, account.ID)
	return context.WithValue(ctx, contextAccountKey, account)
}

// AccountFromContext returns the authenticated account attached by the auth middleware.
func AccountFromContext(ctx context.Context) (types.Account, bool) {
	account, ok := ctx.Value(contextAccountKey).(types.Account)
	return account, ok
}

func userIDFromContext(ctx context.Context) (string, error) {
	subject, ok := ctx.Value(contextSubjectKey).(string)
	if !ok || strings.TrimSpace(subject) == "" {
		return "", errors.New("missing subject")
	}
	return subject, nil
}

// ErrorResponse is the error payload of every endpoint.
type ErrorResponse struct {
	Message string                `json:"message"`
	Error   string                `json:"error,omitempty"`
	Errors  []services.FieldError `json:"errors,omitempty"`
}

// MessageResponse acknowledges a mutation without a body.
type MessageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Message: message})
}

// writeServiceError maps a service error to its status and message. subject
// names the entity in not-found messages.
func writeServiceError(w http.ResponseWriter, err error, subject string) {
	var validationErr *services.ValidationError
	if errors.As(err, &validationErr) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: "Validation failed", Errors: validationErr.Fields})
		return
	}

	status, message := errorStatus(err, subject)
	if status == http.StatusInternalServerError {
		writeJSON(w, status, ErrorResponse{Message: message, Error: err.Error()})
		return
	}
	writeError(w, status, message)
}

func errorStatus(err error, subject string) (int, string) {
	var stateErr *services.StateError
	switch {
	case errors.Is(err, services.ErrUnauthenticated):
		return http.StatusUnauthorized, "No token, authorization denied"
	case errors.Is(err, services.ErrTokenExpired):
		return http.StatusUnauthorized, "Token expired"
	case errors.Is(err, services.ErrInvalidToken):
		return http.StatusUnauthorized, "Invalid token"
	case errors.Is(err, services.ErrAccountNotFound):
		return http.StatusUnauthorized, "User not found"
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, services.ErrAccountDeactivated):
		return http.StatusForbidden, "Account is deactivated"
	case errors.Is(err, services.ErrPremiumContent):
		return http.StatusForbidden, "Premium content requires authentication"
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden, "Access denied"
	case errors.Is(err, services.ErrNoRecording):
		return http.StatusNotFound, "Recording not found"
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound, subject + " not found"
	case errors.Is(err, services.ErrSchedulingConflict):
		return http.StatusBadRequest, "You already have an interview scheduled at this time"
	case errors.As(err, &stateErr):
		return http.StatusBadRequest, stateErr.Message
	case errors.Is(err, services.ErrEmailTaken):
		return http.StatusBadRequest, "User already exists"
	case errors.Is(err, services.ErrStorageDisabled):
		return http.StatusInternalServerError, "Recording storage is not configured"
	default:
		return http.StatusInternalServerError, "Server error"
	}
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		return errors.New("invalid request body")
	}
	return nil
}

// parsePagination reads page and limit (or per_page). Zero means unset.
func parsePagination(r *http.Request) (page, limit int, err error) {
	if raw := strings.TrimSpace(r.URL.Query().Get("page")); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil || page < 1 {
			return 0, 0, errors.New("invalid page")
		}
	}

	rawLimit := strings.TrimSpace(r.URL.Query().Get("limit"))
	if rawLimit == "" {
		rawLimit = strings.TrimSpace(r.URL.Query().Get("per_page"))
	}
	if rawLimit != "" {
		limit, err = strconv.Atoi(rawLimit)
		if err != nil || limit < 1 {
			return 0, 0, errors.New("invalid limit")
		}
	}
	return page, limit, nil
}

func parseOptionalBool(raw string) (*bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, err
	}
	return &value, nil
}

// Healthz reports liveness.
func Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
