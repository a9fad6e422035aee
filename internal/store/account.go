package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mockly/apiserver/types"
)

const accountColumns = `id, name, email, role, is_active, contact, dob, profile_picture, created_at, updated_at`

// AccountRepository handles persistence for accounts.
type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner, extra ...any) (types.Account, error) {
	var account types.Account
	dest := []any{
		&account.ID,
		&account.Name,
		&account.Email,
		&account.Role,
		&account.IsActive,
		&account.Contact,
		&account.DOB,
		&account.ProfilePicture,
		&account.CreatedAt,
		&account.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return types.Account{}, err
	}
	return account, nil
}

// GetByID loads an account without its password hash.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (types.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	account, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Account{}, ErrNotFound
		}
		return types.Account{}, err
	}
	return account, nil
}

// GetCredentialsByID loads an account including its password hash.
func (r *AccountRepository) GetCredentialsByID(ctx context.Context, id string) (types.Account, error) {
	query := `SELECT ` + accountColumns + `, password_hash FROM accounts WHERE id = $1`
	return r.getWithHash(ctx, query, id)
}

// GetCredentialsByEmail loads an account by email including its password hash.
func (r *AccountRepository) GetCredentialsByEmail(ctx context.Context, email string) (types.Account, error) {
	query := `SELECT ` + accountColumns + `, password_hash FROM accounts WHERE LOWER(email) = LOWER($1)`
	return r.getWithHash(ctx, query, email)
}

func (r *AccountRepository) getWithHash(ctx context.Context, query string, arg any) (types.Account, error) {
	var hash string
	account, err := scanAccount(r.db.QueryRowContext(ctx, query, arg), &hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Account{}, ErrNotFound
		}
		return types.Account{}, err
	}
	account.PasswordHash = hash
	return account, nil
}

func (r *AccountRepository) Create(ctx context.Context, account types.Account) (types.Account, error) {
	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now

	const query = `
		INSERT INTO accounts (id, name, email, password_hash, role, is_active, contact, dob, profile_picture, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		account.ID,
		account.Name,
		account.Email,
		account.PasswordHash,
		account.Role,
		account.IsActive,
		account.Contact,
		account.DOB,
		account.ProfilePicture,
		account.CreatedAt,
		account.UpdatedAt,
	); err != nil {
		return types.Account{}, translateError(err)
	}
	account.PasswordHash = ""
	return account, nil
}

// Update writes profile, role and activation fields. The password hash is untouched.
func (r *AccountRepository) Update(ctx context.Context, account types.Account) (types.Account, error) {
	account.UpdatedAt = time.Now()

	const query = `
		UPDATE accounts
		SET name = $1,
			email = $2,
			role = $3,
			is_active = $4,
			contact = $5,
			dob = $6,
			profile_picture = $7,
			updated_at = $8
		WHERE id = $9`
	result, err := r.db.ExecContext(
		ctx,
		query,
		account.Name,
		account.Email,
		account.Role,
		account.IsActive,
		account.Contact,
		account.DOB,
		account.ProfilePicture,
		account.UpdatedAt,
		account.ID,
	)
	if err != nil {
		return types.Account{}, translateError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Account{}, err
	}
	if affected == 0 {
		return types.Account{}, ErrNotFound
	}
	account.PasswordHash = ""
	return account, nil
}

func (r *AccountRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	const query = `UPDATE accounts SET password_hash = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, passwordHash, time.Now(), id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *AccountRepository) List(ctx context.Context, filter types.AccountFilter, offset, limit int) ([]types.Account, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 10
	}

	var conds []string
	var args []any
	if filter.Role != "" {
		args = append(args, filter.Role)
		conds = append(conds, fmt.Sprintf("role = $%d", len(args)))
	}
	if filter.IsActive != nil {
		args = append(args, *filter.IsActive)
		conds = append(conds, fmt.Sprintf("is_active = $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM accounts`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listQuery := fmt.Sprintf(`SELECT %s FROM accounts%s ORDER BY created_at DESC OFFSET $%d LIMIT $%d`,
		accountColumns, where, len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, listQuery, append(args, offset, limit)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	accounts := make([]types.Account, 0, limit)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, 0, err
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return accounts, total, nil
}

// ListInterviewers returns active accounts that may grade interviews.
func (r *AccountRepository) ListInterviewers(ctx context.Context) ([]types.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts
		WHERE role IN ('interviewer', 'admin') AND is_active
		ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []types.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}
