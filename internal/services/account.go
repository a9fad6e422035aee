package services

import (
	"context"
	"errors"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/mockly/apiserver/internal/store"
	"github.com/mockly/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

var contactPattern = regexp.MustCompile(`^[0-9]{10}$`)

// InterviewStatsSource summarizes an account's interviews.
type InterviewStatsSource interface {
	AccountStats(ctx context.Context, userID string) (types.AccountStats, error)
}

// AccountService manages profiles, passwords and roles.
type AccountService struct {
	accounts AccountRepository
	stats    InterviewStatsSource
}

func NewAccountService(accounts AccountRepository, stats InterviewStatsSource) *AccountService {
	return &AccountService{accounts: accounts, stats: stats}
}

// Profile is an account together with its interview summary.
type Profile struct {
	User  types.Account      `json:"user"`
	Stats types.AccountStats `json:"stats"`
}

func (s *AccountService) Profile(ctx context.Context, account types.Account) (Profile, error) {
	stats, err := s.stats.AccountStats(ctx, account.ID)
	if err != nil {
		return Profile{}, err
	}
	return Profile{User: account, Stats: stats}, nil
}

// UpdateProfileInput replaces the provided profile fields.
type UpdateProfileInput struct {
	Name           *string `json:"name"`
	Contact        *string `json:"contact"`
	DOB            *string `json:"dob"`
	ProfilePicture *string `json:"profilePicture"`
}

func (in *UpdateProfileInput) Validate() error {
	return validationFailure(validation.ValidateStruct(in,
		validation.Field(&in.Name, validation.NilOrNotEmpty.Error("Name must be at least 2 characters"), validation.RuneLength(2, 0).Error("Name must be at least 2 characters")),
		validation.Field(&in.Contact, validation.Match(contactPattern).Error("Please provide a valid 10-digit contact number")),
		validation.Field(&in.DOB, validation.By(func(value any) error {
			raw, _ := value.(*string)
			if raw == nil || strings.TrimSpace(*raw) == "" {
				return nil
			}
			if _, err := parseDate(*raw); err != nil {
				return errors.New("Please provide a valid date")
			}
			return nil
		})),
	))
}

func (s *AccountService) UpdateProfile(ctx context.Context, account types.Account, in UpdateProfileInput) (types.Account, error) {
	if err := in.Validate(); err != nil {
		return types.Account{}, err
	}

	if in.Name != nil {
		account.Name = strings.TrimSpace(*in.Name)
	}
	if in.Contact != nil {
		account.Contact = strings.TrimSpace(*in.Contact)
	}
	if in.DOB != nil {
		if raw := strings.TrimSpace(*in.DOB); raw == "" {
			account.DOB = nil
		} else {
			dob, _ := parseDate(raw)
			account.DOB = &dob
		}
	}
	if in.ProfilePicture != nil {
		account.ProfilePicture = strings.TrimSpace(*in.ProfilePicture)
	}

	updated, err := s.accounts.Update(ctx, account)
	if err != nil {
		return types.Account{}, translateAccountError(err)
	}
	return updated, nil
}

// ChangePasswordInput carries the current and the new password.
type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (in *ChangePasswordInput) Validate() error {
	return validationFailure(validation.ValidateStruct(in,
		validation.Field(&in.CurrentPassword, validation.Required.Error("Current password is required")),
		validation.Field(&in.NewPassword,
			validation.Required.Error("New password must be at least 6 characters"),
			validation.RuneLength(6, 0).Error("New password must be at least 6 characters"),
		),
	))
}

func (s *AccountService) ChangePassword(ctx context.Context, accountID string, in ChangePasswordInput) error {
	if err := in.Validate(); err != nil {
		return err
	}

	account, err := s.accounts.GetCredentialsByID(ctx, accountID)
	if err != nil {
		return translateAccountError(err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(in.CurrentPassword)); err != nil {
		return ErrInvalidCredentials
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return translateAccountError(s.accounts.UpdatePassword(ctx, accountID, string(hashed)))
}

// Deactivate soft-deletes an account. The record is kept.
func (s *AccountService) Deactivate(ctx context.Context, account types.Account) error {
	account.IsActive = false
	_, err := s.accounts.Update(ctx, account)
	return translateAccountError(err)
}

// AccountListQuery narrows the admin account listing.
type AccountListQuery struct {
	Role     string
	IsActive *bool
	Page     int
	Limit    int
}

// AccountList is one page of accounts.
type AccountList struct {
	Users       []types.Account `json:"users"`
	TotalPages  int             `json:"totalPages"`
	CurrentPage int             `json:"currentPage"`
	Total       int             `json:"total"`
}

func (s *AccountService) List(ctx context.Context, query AccountListQuery) (AccountList, error) {
	page := NewPage(query.Page, query.Limit, defaultLimit)
	filter := types.AccountFilter{Role: strings.TrimSpace(query.Role), IsActive: query.IsActive}

	accounts, total, err := s.accounts.List(ctx, filter, page.Offset(), page.Limit)
	if err != nil {
		return AccountList{}, err
	}
	return AccountList{
		Users:       accounts,
		TotalPages:  page.TotalPages(total),
		CurrentPage: page.Page,
		Total:       total,
	}, nil
}

// UpdateRole changes the role of any account.
func (s *AccountService) UpdateRole(ctx context.Context, id, role string) (types.Account, error) {
	role = strings.TrimSpace(role)
	if err := validation.Validate(role, validation.Required, validation.In(stringValues(types.Roles)...)); err != nil {
		return types.Account{}, fieldError("role", "Invalid role")
	}
	if _, err := uuid.Parse(id); err != nil {
		return types.Account{}, ErrAccountNotFound
	}

	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return types.Account{}, translateAccountError(err)
	}
	account.Role = role
	updated, err := s.accounts.Update(ctx, account)
	if err != nil {
		return types.Account{}, translateAccountError(err)
	}
	return updated, nil
}

// Interviewer is the public view of an account that may grade interviews.
type Interviewer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (s *AccountService) ListInterviewers(ctx context.Context) ([]Interviewer, error) {
	accounts, err := s.accounts.ListInterviewers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Interviewer, 0, len(accounts))
	for _, account := range accounts {
		out = append(out, Interviewer{ID: account.ID, Name: account.Name, Email: account.Email})
	}
	return out, nil
}

func translateAccountError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return ErrAccountNotFound
	case errors.Is(err, store.ErrConflict):
		return ErrEmailTaken
	default:
		return err
	}
}
