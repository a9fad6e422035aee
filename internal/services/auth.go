package services

import (
	"context"
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/mockly/apiserver/internal/store"
	"github.com/mockly/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

const defaultTokenTTL = 7 * 24 * time.Hour

// AccountRepository defines persistence operations for accounts.
type AccountRepository interface {
	GetByID(ctx context.Context, id string) (types.Account, error)
	GetCredentialsByID(ctx context.Context, id string) (types.Account, error)
	GetCredentialsByEmail(ctx context.Context, email string) (types.Account, error)
	Create(ctx context.Context, account types.Account) (types.Account, error)
	Update(ctx context.Context, account types.Account) (types.Account, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	List(ctx context.Context, filter types.AccountFilter, offset, limit int) ([]types.Account, int, error)
	ListInterviewers(ctx context.Context) ([]types.Account, error)
}

// AuthConfig carries the token signing settings.
type AuthConfig struct {
	Secret   string
	TokenTTL time.Duration
}

// AuthService issues and verifies bearer tokens and resolves them to accounts.
type AuthService struct {
	accounts AccountRepository
	secret   []byte
	tokenTTL time.Duration
	now      func() time.Time
}

func NewAuthService(accounts AccountRepository, cfg AuthConfig) *AuthService {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &AuthService{
		accounts: accounts,
		secret:   []byte(cfg.Secret),
		tokenTTL: ttl,
		now:      time.Now,
	}
}

// IssueToken signs a token whose subject is the account id.
func (s *AuthService) IssueToken(accountID string) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   accountID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ParseToken verifies the signature and expiry and returns the subject.
func (s *AuthService) ParseToken(tokenString string) (string, error) {
	claims := jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// Authenticate resolves a raw token to an active account.
// The returned account never carries its password hash.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (types.Account, error) {
	if strings.TrimSpace(tokenString) == "" {
		return types.Account{}, ErrUnauthenticated
	}

	subject, err := s.ParseToken(tokenString)
	if err != nil {
		return types.Account{}, err
	}

	account, err := s.accounts.GetByID(ctx, subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Account{}, ErrAccountNotFound
		}
		return types.Account{}, err
	}
	if !account.IsActive {
		return types.Account{}, ErrAccountDeactivated
	}
	account.PasswordHash = ""
	return account, nil
}

// RegisterInput is the payload for creating an account.
type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (in *RegisterInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	return validationFailure(validation.ValidateStruct(in,
		validation.Field(&in.Name, validation.Required.Error("Name is required"), validation.RuneLength(2, 0).Error("Name must be at least 2 characters")),
		validation.Field(&in.Email, validation.Required.Error("Email is required"), is.EmailFormat.Error("Please provide a valid email")),
		validation.Field(&in.Password, validation.Required.Error("Password is required"), validation.RuneLength(6, 0).Error("Password must be at least 6 characters")),
	))
}

// Register creates a student account and returns it with a fresh token.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (types.Account, string, error) {
	if err := in.Validate(); err != nil {
		return types.Account{}, "", err
	}

	if _, err := s.accounts.GetCredentialsByEmail(ctx, in.Email); err == nil {
		return types.Account{}, "", ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.Account{}, "", err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return types.Account{}, "", err
	}

	account, err := s.accounts.Create(ctx, types.Account{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(hashed),
		Role:         types.RoleStudent,
		IsActive:     true,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return types.Account{}, "", ErrEmailTaken
		}
		return types.Account{}, "", err
	}

	token, err := s.IssueToken(account.ID)
	if err != nil {
		return types.Account{}, "", err
	}
	return account, token, nil
}

// Login verifies an email/password pair and returns the account with a fresh token.
func (s *AuthService) Login(ctx context.Context, email, password string) (types.Account, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return types.Account{}, "", ErrInvalidCredentials
	}

	account, err := s.accounts.GetCredentialsByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Account{}, "", ErrInvalidCredentials
		}
		return types.Account{}, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return types.Account{}, "", ErrInvalidCredentials
	}
	if !account.IsActive {
		return types.Account{}, "", ErrAccountDeactivated
	}

	token, err := s.IssueToken(account.ID)
	if err != nil {
		return types.Account{}, "", err
	}
	account.PasswordHash = ""
	return account, token, nil
}
