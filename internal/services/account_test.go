package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/mockly/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func strPtr(v string) *string { return &v }

func TestProfile(t *testing.T) {
	account := newTestAccount(t, types.RoleStudent, "secret1")
	score := 90
	graded := seedInterview(account.ID, types.StatusCompleted, testNow.AddDate(0, 0, -1), "10:00")
	graded.Score = &score
	pending := seedInterview(account.ID, types.StatusUpcoming, testNow.AddDate(0, 0, 1), "10:00")
	svc := NewAccountService(newFakeAccounts(account), newFakeInterviews(graded, pending))

	profile, err := svc.Profile(context.Background(), account)
	require.NoError(t, err)
	assert.Equal(t, account.ID, profile.User.ID)
	assert.Equal(t, 2, profile.Stats.TotalInterviews)
	assert.Equal(t, 1, profile.Stats.CompletedInterviews)
	require.NotNil(t, profile.Stats.AverageScore)
	assert.InDelta(t, 90, *profile.Stats.AverageScore, 0.001)
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	account := newTestAccount(t, types.RoleStudent, "secret1")
	svc := NewAccountService(newFakeAccounts(account), newFakeInterviews())

	updated, err := svc.UpdateProfile(ctx, account, UpdateProfileInput{
		Name:    strPtr("  Grace Hopper "),
		Contact: strPtr("0123456789"),
		DOB:     strPtr("1990-05-01"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Grace Hopper", updated.Name)
	assert.Equal(t, "0123456789", updated.Contact)
	require.NotNil(t, updated.DOB)
	assert.Equal(t, 1990, updated.DOB.Year())
	assert.Equal(t, account.Email, updated.Email)

	_, err = svc.UpdateProfile(ctx, account, UpdateProfileInput{Contact: strPtr("12345")})
	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "Please provide a valid 10-digit contact number", validationFields(t, err)["contact"])

	_, err = svc.UpdateProfile(ctx, account, UpdateProfileInput{DOB: strPtr("yesterday")})
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, validationFields(t, err), "dob")
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	account := newTestAccount(t, types.RoleStudent, "secret1")
	accounts := newFakeAccounts(account)
	svc := NewAccountService(accounts, newFakeInterviews())

	err := svc.ChangePassword(ctx, account.ID, ChangePasswordInput{CurrentPassword: "wrong", NewPassword: "secret2"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	err = svc.ChangePassword(ctx, account.ID, ChangePasswordInput{CurrentPassword: "secret1", NewPassword: "123"})
	assert.ErrorIs(t, err, ErrValidation)

	require.NoError(t, svc.ChangePassword(ctx, account.ID, ChangePasswordInput{CurrentPassword: "secret1", NewPassword: "secret2"}))
	stored, err := accounts.GetCredentialsByID(ctx, account.ID)
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("secret2")))
}

func TestDeactivateKeepsAccount(t *testing.T) {
	ctx := context.Background()
	account := newTestAccount(t, types.RoleStudent, "secret1")
	accounts := newFakeAccounts(account)
	svc := NewAccountService(accounts, newFakeInterviews())

	require.NoError(t, svc.Deactivate(ctx, account))
	stored, err := accounts.GetByID(ctx, account.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)

	auth := NewAuthService(accounts, AuthConfig{Secret: testSecret})
	token, err := auth.IssueToken(account.ID)
	require.NoError(t, err)
	_, err = auth.Authenticate(ctx, token)
	assert.ErrorIs(t, err, ErrAccountDeactivated)
}

func TestUpdateRole(t *testing.T) {
	ctx := context.Background()
	account := newTestAccount(t, types.RoleStudent, "secret1")
	svc := NewAccountService(newFakeAccounts(account), newFakeInterviews())

	updated, err := svc.UpdateRole(ctx, account.ID, "interviewer")
	require.NoError(t, err)
	assert.Equal(t, types.RoleInterviewer, updated.Role)

	_, err = svc.UpdateRole(ctx, account.ID, "superuser")
	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "Invalid role", validationFields(t, err)["role"])

	_, err = svc.UpdateRole(ctx, uuid.NewString(), "admin")
	assert.ErrorIs(t, err, ErrAccountNotFound)

	_, err = svc.UpdateRole(ctx, "42", "admin")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestListAccountsAndInterviewers(t *testing.T) {
	student := newTestAccount(t, types.RoleStudent, "secret1")
	interviewer := newTestAccount(t, types.RoleInterviewer, "secret1")
	admin := newTestAccount(t, types.RoleAdmin, "secret1")
	retired := newTestAccount(t, types.RoleInterviewer, "secret1")
	retired.IsActive = false
	svc := NewAccountService(newFakeAccounts(student, interviewer, admin, retired), newFakeInterviews())

	list, err := svc.List(context.Background(), AccountListQuery{Role: types.RoleInterviewer})
	require.NoError(t, err)
	assert.Equal(t, 2, list.Total)
	for _, account := range list.Users {
		assert.Empty(t, account.PasswordHash)
	}

	active := true
	list, err = svc.List(context.Background(), AccountListQuery{IsActive: &active, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, list.Total)
	assert.Equal(t, 2, list.TotalPages)
	assert.Len(t, list.Users, 2)

	interviewers, err := svc.ListInterviewers(context.Background())
	require.NoError(t, err)
	ids := []string{}
	for _, i := range interviewers {
		ids = append(ids, i.ID)
	}
	assert.ElementsMatch(t, []string{interviewer.ID, admin.ID}, ids)
}

func TestPagination(t *testing.T) {
	assert.Equal(t, Page{Page: 1, Limit: 10}, NewPage(0, 0, 0))
	assert.Equal(t, Page{Page: 3, Limit: 5}, NewPage(3, 0, 5))
	assert.Equal(t, Page{Page: 1, Limit: 100}, NewPage(-2, 1000, 10))
	assert.Equal(t, 10, NewPage(2, 10, 10).Offset())
	assert.Equal(t, 0, NewPage(1, 10, 10).TotalPages(0))
	assert.Equal(t, 3, NewPage(1, 10, 10).TotalPages(21))
}
