package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"account-svc/internal/domain"
)

// AccountRepository define el contrato de persistencia para cuentas.
type AccountRepository interface {
	FindByEmail(ctx context.Context, email string) (domain.Account, error)
	FindByID(ctx context.Context, id string) (domain.Account, error)
	Insert(ctx context.Context, account domain.Account) error
	UpdateVerified(ctx context.Context, id string, verifiedAt time.Time) error
	DeleteByID(ctx context.Context, id string) error
}

// PgAccountRepository implementa AccountRepository usando pgx.
type PgAccountRepository struct {
	db DBTX
}

func NewPgAccountRepository(db DBTX) *PgAccountRepository {
	return &PgAccountRepository{db: db}
}

const accountColumns = `id, name, email, password_hash, date_of_birth, verified, verified_at, created_at`

func (r *PgAccountRepository) FindByEmail(ctx context.Context, email string) (domain.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	return scanAccount(r.db.QueryRow(ctx, query, email))
}

func (r *PgAccountRepository) FindByID(ctx context.Context, id string) (domain.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccount(r.db.QueryRow(ctx, query, id))
}

// Insert devuelve ErrDuplicateEmail si otro registro gano la carrera por el email.
func (r *PgAccountRepository) Insert(ctx context.Context, account domain.Account) error {
	const query = `
		INSERT INTO accounts (id, name, email, password_hash, date_of_birth, verified, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query,
		account.ID,
		account.Name,
		account.Email,
		account.PasswordHash,
		account.DateOfBirth,
		account.Verified,
		account.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateEmail
	}
	return err
}

func (r *PgAccountRepository) UpdateVerified(ctx context.Context, id string, verifiedAt time.Time) error {
	const query = `
		UPDATE accounts
		SET verified = TRUE, verified_at = $2
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, id, verifiedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgAccountRepository) DeleteByID(ctx context.Context, id string) error {
	const query = `DELETE FROM accounts WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (domain.Account, error) {
	var a domain.Account
	err := row.Scan(
		&a.ID,
		&a.Name,
		&a.Email,
		&a.PasswordHash,
		&a.DateOfBirth,
		&a.Verified,
		&a.VerifiedAt,
		&a.CreatedAt,
	)
	if err != nil {
		return domain.Account{}, err
	}
	return a, nil
}
