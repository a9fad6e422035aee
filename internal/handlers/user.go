package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mockly/apiserver/internal/services"
	"github.com/mockly/apiserver/types"
)

const userSubject = "User"

// UserHandler provides HTTP handlers for account management.
type UserHandler struct {
	accountService *services.AccountService
}

func NewUserHandler(accountService *services.AccountService) *UserHandler {
	return &UserHandler{accountService: accountService}
}

// UserRouter registers account routes. Every route requires authentication.
func UserRouter(r chi.Router, accountService *services.AccountService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewUserHandler(accountService)

	r.Use(authMiddleware)
	r.Get("/profile", handler.GetProfile)
	r.Put("/profile", handler.UpdateProfile)
	r.Put("/change-password", handler.ChangePassword)
	r.Delete("/account", handler.DeactivateAccount)
	r.Get("/interviewers", handler.ListInterviewers)
	r.With(RequireAdmin).Get("/", handler.ListUsers)
	r.With(RequireAdmin).Put("/{userID}/role", handler.UpdateRole)
}

// UserResponse acknowledges a mutation and carries the account.
type UserResponse struct {
	Message string        `json:"message"`
	User    types.Account `json:"user"`
}

type UpdateRoleRequest struct {
	Role string `json:"role"`
}

func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	account, ok := AccountFromContext(r.Context())
	if !ok {
		writeServiceError(w, services.ErrUnauthenticated, userSubject)
		return
	}

	profile, err := h.accountService.Profile(r.Context(), account)
	if err != nil {
		writeServiceError(w, err, userSubject)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	account, ok := AccountFromContext(r.Context())
	if !ok {
		writeServiceError(w, services.ErrUnauthenticated, userSubject)
		return
	}

	var req services.UpdateProfileInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.accountService.UpdateProfile(r.Context(), account, req)
	if err != nil {
		writeServiceError(w, err, userSubject)
		return
	}
	writeJSON(w, http.StatusOK, UserResponse{Message: "Profile updated successfully", User: updated})
}

func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeServiceError(w, services.ErrUnauthenticated, userSubject)
		return
	}

	var req services.ChangePasswordInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.accountService.ChangePassword(r.Context(), userID, req); err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "Current password is incorrect")
			return
		}
		writeServiceError(w, err, userSubject)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Password changed successfully"})
}

func (h *UserHandler) DeactivateAccount(w http.ResponseWriter, r *http.Request) {
	account, ok := AccountFromContext(r.Context())
	if !ok {
		writeServiceError(w, services.ErrUnauthenticated, userSubject)
		return
	}

	if err := h.accountService.Deactivate(r.Context(), account); err != nil {
		writeServiceError(w, err, userSubject)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Account deactivated successfully"})
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, limit, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	isActive, err := parseOptionalBool(r.URL.Query().Get("isActive"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid isActive")
		return
	}

	list, err := h.accountService.List(r.Context(), services.AccountListQuery{
		Role:     r.URL.Query().Get("role"),
		IsActive: isActive,
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		writeServiceError(w, err, userSubject)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *UserHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	var req UpdateRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.accountService.UpdateRole(r.Context(), chi.URLParam(r, "userID"), req.Role)
	if err != nil {
		if errors.Is(err, services.ErrAccountNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		writeServiceError(w, err, userSubject)
		return
	}
	writeJSON(w, http.StatusOK, UserResponse{Message: "User role updated successfully", User: updated})
}

func (h *UserHandler) ListInterviewers(w http.ResponseWriter, r *http.Request) {
	interviewers, err := h.accountService.ListInterviewers(r.Context())
	if err != nil {
		writeServiceError(w, err, userSubject)
		return
	}
	writeJSON(w, http.StatusOK, interviewers)
}
