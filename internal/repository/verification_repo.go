package repository

import (
	"context"
	"time"

	"account-svc/internal/domain"
)

// VerificationRepository persiste los secretos de verificacion pendientes.
type VerificationRepository interface {
	FindByUserID(ctx context.Context, userID string) ([]domain.Verification, error)
	Insert(ctx context.Context, v domain.Verification) error
	DeleteByUserID(ctx context.Context, userID string) error
	// DeleteOne borra un registro puntual y reporta si existia; es el punto
	// de commit de un consumo exitoso.
	DeleteOne(ctx context.Context, userID, id string) (bool, error)
	DeleteExpired(ctx context.Context, before time.Time) ([]domain.Verification, error)
}

// PgVerificationRepository implementa VerificationRepository usando pgx.
type PgVerificationRepository struct {
	db DBTX
}

func NewPgVerificationRepository(db DBTX) *PgVerificationRepository {
	return &PgVerificationRepository{db: db}
}

func (r *PgVerificationRepository) FindByUserID(ctx context.Context, userID string) ([]domain.Verification, error) {
	const query = `
		SELECT id, user_id, kind, secret_hash, created_at, expires_at
		FROM verifications
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Verification
	for rows.Next() {
		var (
			v    domain.Verification
			kind string
		)
		if err := rows.Scan(&v.ID, &v.UserID, &kind, &v.SecretHash, &v.CreatedAt, &v.ExpiresAt); err != nil {
			return nil, err
		}
		v.Kind = domain.VerificationKind(kind)
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *PgVerificationRepository) Insert(ctx context.Context, v domain.Verification) error {
	const query = `
		INSERT INTO verifications (id, user_id, kind, secret_hash, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Exec(ctx, query,
		v.ID,
		v.UserID,
		string(v.Kind),
		v.SecretHash,
		v.CreatedAt,
		v.ExpiresAt,
	)
	return err
}

func (r *PgVerificationRepository) DeleteByUserID(ctx context.Context, userID string) error {
	const query = `DELETE FROM verifications WHERE user_id = $1`
	_, err := r.db.Exec(ctx, query, userID)
	return err
}

func (r *PgVerificationRepository) DeleteOne(ctx context.Context, userID, id string) (bool, error) {
	const query = `DELETE FROM verifications WHERE id = $1 AND user_id = $2`
	tag, err := r.db.Exec(ctx, query, id, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// DeleteExpired borra los registros vencidos antes de before y devuelve
// user_id y kind de cada uno para que el llamador decida sobre las cuentas.
func (r *PgVerificationRepository) DeleteExpired(ctx context.Context, before time.Time) ([]domain.Verification, error) {
	const query = `
		DELETE FROM verifications
		WHERE expires_at < $1
		RETURNING id, user_id, kind, expires_at
	`
	rows, err := r.db.Query(ctx, query, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Verification
	for rows.Next() {
		var (
			v    domain.Verification
			kind string
		)
		if err := rows.Scan(&v.ID, &v.UserID, &kind, &v.ExpiresAt); err != nil {
			return nil, err
		}
		v.Kind = domain.VerificationKind(kind)
		out = append(out, v)
	}
	return out, rows.Err()
}
