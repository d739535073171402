package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"

	"github.com/joblane/verification-service/internal/models"
)

/* ------------------------------------------------------------------
   Public interface
------------------------------------------------------------------ */

type VerificationRecordRepository interface {
	Create(ctx context.Context, rec *models.VerificationRecord) error

	GetByEmployerID(ctx context.Context, employerID uuid.UUID) (*models.VerificationRecord, error)

	// Optimistic-lock helpers. Records are keyed by employer account.
	UpdateIfVersion(ctx context.Context, rec *models.VerificationRecord, expected int64) (pgconn.CommandTag, error)
	UpdateWithRetry(ctx context.Context, employerID uuid.UUID, mutate func(*models.VerificationRecord) error) error

	// ListPendingReview returns records that have anything awaiting an
	// admin decision: a pending ID card or at least one pending document.
	ListPendingReview(ctx context.Context, limit, offset int) ([]*models.VerificationRecord, int, error)

	// ListByCompanyKey returns sibling records under the same company,
	// excluding the given employer.
	ListByCompanyKey(ctx context.Context, companyKey string, exceptEmployerID uuid.UUID) ([]*models.VerificationRecord, error)
}

/* ------------------------------------------------------------------
   Implementation
------------------------------------------------------------------ */

type verificationRecordRepo struct {
	*BaseVersionedRepo[*models.VerificationRecord]

	db DB
}

/* ---------- constructor ---------- */

func NewVerificationRecordRepository(db DB) VerificationRecordRepository {
	r := &verificationRecordRepo{db: db}
	selectStmt := baseSelectRecord() + " WHERE employer_id=$1"
	r.BaseVersionedRepo = NewBaseRepo(db, selectStmt, r.scanRecord)
	return r
}

/* ---------- Create ---------- */

func (r *verificationRecordRepo) Create(ctx context.Context, rec *models.VerificationRecord) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO verification_records (
			id,employer_id,employer_email,company_key,
			email_verified,domain_verified,
			id_card_status,id_card_file_ref,id_card_rejection_reason,id_card_uploaded_at,
			inherited_from_company,level,
			created_at,updated_at,row_version
		) VALUES (
			$1,$2,$3,$4,
			$5,$6,
			$7,$8,$9,$10,
			$11,$12,
			NOW(),NOW(),1
		)`,
		rec.ID, rec.EmployerID, rec.EmployerEmail, rec.CompanyKey,
		rec.EmailVerified, rec.DomainVerified,
		string(rec.IDCardStatus), rec.IDCardFileRef, rec.IDCardRejectionReason, rec.IDCardUploadedAt,
		rec.InheritedFromCompany, rec.Level,
	)
	return err
}

/* ---------- Reads ---------- */

func (r *verificationRecordRepo) GetByEmployerID(ctx context.Context, employerID uuid.UUID) (*models.VerificationRecord, error) {
	row := r.db.QueryRow(ctx, baseSelectRecord()+" WHERE employer_id=$1", employerID)
	return r.scanRecord(row)
}

func (r *verificationRecordRepo) ListPendingReview(ctx context.Context, limit, offset int) ([]*models.VerificationRecord, int, error) {
	where := `
		WHERE vr.id_card_status='PENDING'
		   OR EXISTS (
			SELECT 1 FROM employer_documents d
			WHERE d.employer_id = vr.employer_id AND d.status='PENDING'
		   )`

	var total int
	if err := r.db.QueryRow(ctx,
		`SELECT count(*) FROM verification_records vr`+where,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(ctx,
		baseSelectRecordAliased()+where+` ORDER BY vr.updated_at ASC LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var recs []*models.VerificationRecord
	for rows.Next() {
		rec, err := r.scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		recs = append(recs, rec)
	}
	return recs, total, rows.Err()
}

func (r *verificationRecordRepo) ListByCompanyKey(ctx context.Context, companyKey string, exceptEmployerID uuid.UUID) ([]*models.VerificationRecord, error) {
	rows, err := r.db.Query(ctx,
		baseSelectRecord()+" WHERE company_key=$1 AND employer_id<>$2",
		companyKey, exceptEmployerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*models.VerificationRecord
	for rows.Next() {
		rec, err := r.scanRecord(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

/* ---------- Updates ---------- */

// Optimistic
func (r *verificationRecordRepo) UpdateIfVersion(ctx context.Context, rec *models.VerificationRecord, expected int64) (pgconn.CommandTag, error) {
	return r.db.Exec(ctx, `
		UPDATE verification_records SET
			employer_email=$1,company_key=$2,
			email_verified=$3,domain_verified=$4,
			id_card_status=$5,id_card_file_ref=$6,id_card_rejection_reason=$7,id_card_uploaded_at=$8,
			inherited_from_company=$9,level=$10,
			updated_at=NOW(),row_version=row_version+1
		WHERE employer_id=$11 AND row_version=$12`,
		rec.EmployerEmail, rec.CompanyKey,
		rec.EmailVerified, rec.DomainVerified,
		string(rec.IDCardStatus), rec.IDCardFileRef, rec.IDCardRejectionReason, rec.IDCardUploadedAt,
		rec.InheritedFromCompany, rec.Level,
		rec.EmployerID, expected,
	)
}

func (r *verificationRecordRepo) UpdateWithRetry(ctx context.Context, employerID uuid.UUID, mutate func(*models.VerificationRecord) error) error {
	return r.BaseVersionedRepo.UpdateWithRetry(ctx, employerID.String(), mutate, r.UpdateIfVersion)
}

/* ---------- internals ---------- */

func baseSelectRecord() string {
	return `
		SELECT id,employer_id,employer_email,company_key,
		       email_verified,domain_verified,
		       id_card_status,id_card_file_ref,id_card_rejection_reason,id_card_uploaded_at,
		       inherited_from_company,level,
		       row_version,created_at,updated_at
		FROM verification_records`
}

func baseSelectRecordAliased() string {
	return `
		SELECT vr.id,vr.employer_id,vr.employer_email,vr.company_key,
		       vr.email_verified,vr.domain_verified,
		       vr.id_card_status,vr.id_card_file_ref,vr.id_card_rejection_reason,vr.id_card_uploaded_at,
		       vr.inherited_from_company,vr.level,
		       vr.row_version,vr.created_at,vr.updated_at
		FROM verification_records vr`
}

func (r *verificationRecordRepo) scanRecord(row pgx.Row) (*models.VerificationRecord, error) {
	var rec models.VerificationRecord
	var status string
	err := row.Scan(
		&rec.ID,
		&rec.EmployerID,
		&rec.EmployerEmail,
		&rec.CompanyKey,
		&rec.EmailVerified,
		&rec.DomainVerified,
		&status,
		&rec.IDCardFileRef,
		&rec.IDCardRejectionReason,
		&rec.IDCardUploadedAt,
		&rec.InheritedFromCompany,
		&rec.Level,
		&rec.RowVersion,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	rec.IDCardStatus = models.IDCardStatusType(status)
	return &rec, nil
}
