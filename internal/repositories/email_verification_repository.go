package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"github.com/joblane/verification-service/internal/models"
)

type EmailVerificationRepository interface {
	CreateCode(ctx context.Context, employerID uuid.UUID, email, code string, expiresAt time.Time) error
	GetCode(ctx context.Context, employerID uuid.UUID) (*models.EmailVerificationCode, error)
	DeleteCode(ctx context.Context, id uuid.UUID) error
	IncrementAttempts(ctx context.Context, id uuid.UUID) error
	CleanupExpired(ctx context.Context) error
}

type emailVerificationRepo struct {
	db DB
}

func NewEmailVerificationRepository(db DB) EmailVerificationRepository {
	return &emailVerificationRepo{db: db}
}

func (r *emailVerificationRepo) CreateCode(
	ctx context.Context,
	employerID uuid.UUID,
	email, code string,
	expiresAt time.Time,
) error {
	q := `
		INSERT INTO employer_email_verification_codes
			(id, employer_id, employer_email, verification_code, expires_at, created_at, attempts)
		VALUES ($1, $2, $3, $4, $5, NOW(), 0)
	`
	_, err := r.db.Exec(ctx, q, uuid.New(), employerID, email, code, expiresAt)
	return err
}

func (r *emailVerificationRepo) GetCode(ctx context.Context, employerID uuid.UUID) (*models.EmailVerificationCode, error) {
	q := `
		SELECT id, employer_id, employer_email, verification_code, expires_at, attempts, created_at
		FROM employer_email_verification_codes
		WHERE employer_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	row := r.db.QueryRow(ctx, q, employerID)
	var rec models.EmailVerificationCode
	err := row.Scan(
		&rec.ID,
		&rec.EmployerID,
		&rec.EmployerEmail,
		&rec.VerificationCode,
		&rec.ExpiresAt,
		&rec.Attempts,
		&rec.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (r *emailVerificationRepo) DeleteCode(ctx context.Context, id uuid.UUID) error {
	q := `DELETE FROM employer_email_verification_codes WHERE id = $1`
	_, err := r.db.Exec(ctx, q, id)
	return err
}

func (r *emailVerificationRepo) IncrementAttempts(ctx context.Context, id uuid.UUID) error {
	q := `UPDATE employer_email_verification_codes SET attempts = attempts + 1 WHERE id = $1`
	_, err := r.db.Exec(ctx, q, id)
	return err
}

func (r *emailVerificationRepo) CleanupExpired(ctx context.Context) error {
	q := `DELETE FROM employer_email_verification_codes WHERE expires_at < NOW()`
	_, err := r.db.Exec(ctx, q)
	return err
}
