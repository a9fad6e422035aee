package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/mockly/apiserver/internal/services"
	"github.com/mockly/apiserver/types"
)

const defaultFallbackHeader = "x-auth-token"

// AuthHandler provides JWT authentication endpoints and middleware.
type AuthHandler struct {
	authService    *services.AuthService
	fallbackHeader string
}

// NewAuthHandler constructs an AuthHandler. fallbackHeader names the header
// read when Authorization is absent.
func NewAuthHandler(authService *services.AuthService, fallbackHeader string) *AuthHandler {
	if strings.TrimSpace(fallbackHeader) == "" {
		fallbackHeader = defaultFallbackHeader
	}
	return &AuthHandler{authService: authService, fallbackHeader: fallbackHeader}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, handler *AuthHandler) {
	r.Post("/register", handler.Register)
	r.Post("/login", handler.Login)
	r.With(handler.RequireAuth).Get("/me", handler.Me)
}

// RequireAuth rejects requests without a valid token and attaches the
// resolved account to the request context.
func (h *AuthHandler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		account, err := h.authService.Authenticate(r.Context(), h.token(r))
		if err != nil {
			writeServiceError(w, err, "User")
			return
		}
		next.ServeHTTP(w, r.WithContext(withAccount(r.Context(), account)))
	})
}

// OptionalAuth attaches the account when the token resolves and otherwise
// continues unauthenticated.
func (h *AuthHandler) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.token(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		account, err := h.authService.Authenticate(r.Context(), token)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(withAccount(r.Context(), account)))
	})
}

// token reads "Authorization: Bearer <token>" and falls back to the raw
// value of the fallback header.
func (h *AuthHandler) token(r *http.Request) string {
	if auth := strings.TrimSpace(r.Header.Get("Authorization")); auth != "" {
		scheme, token, found := strings.Cut(auth, " ")
		if found && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return auth
	}
	return strings.TrimSpace(r.Header.Get(h.fallbackHeader))
}

// RequireRole admits authenticated accounts whose role is in roles.
func RequireRole(denied string, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			account, ok := AccountFromContext(r.Context())
			if !ok {
				writeServiceError(w, services.ErrUnauthenticated, "User")
				return
			}
			if !account.HasRole(roles...) {
				writeError(w, http.StatusForbidden, denied)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

var (
	RequireAdmin       = RequireRole("Access denied. Admin only.", types.RoleAdmin)
	RequireInterviewer = RequireRole("Access denied. Interviewer only.", types.RoleInterviewer, types.RoleAdmin)
)

// Register creates a student account and returns a token.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	account, token, err := h.authService.Register(r.Context(), req)
	if err != nil {
		writeServiceError(w, err, "User")
		return
	}
	writeJSON(w, http.StatusCreated, AuthResponse{Message: "User registered successfully", Token: token, User: account})
}

// Login verifies credentials and returns a token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	account, token, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err, "User")
		return
	}
	writeJSON(w, http.StatusOK, AuthResponse{Message: "Login successful", Token: token, User: account})
}

// Me returns the current authenticated account.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	account, ok := AccountFromContext(r.Context())
	if !ok {
		writeServiceError(w, services.ErrUnauthenticated, "User")
		return
	}
	writeJSON(w, http.StatusOK, map[string]types.Account{"user": account})
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Message string        `json:"message"`
	Token   string        `json:"token"`
	User    types.Account `json:"user"`
}
