package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"github.com/joblane/verification-service/internal/models"
)

type EmployerDocumentRepository interface {
	Create(ctx context.Context, doc *models.EmployerDocument) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.EmployerDocument, error)
	ListByEmployer(ctx context.Context, employerID uuid.UUID) ([]*models.EmployerDocument, error)

	// SetStatusIfPending transitions a single document out of PENDING.
	// Returns the number of rows updated: 0 means the document was not
	// pending (or does not exist) and the caller must treat the
	// transition as invalid.
	SetStatusIfPending(ctx context.Context, id uuid.UUID, status models.DocumentStatusType, rejectionReason *string) (int64, error)

	// SupersedePending marks every pending document of the given type as
	// SUPERSEDED. Called before inserting a replacement upload.
	SupersedePending(ctx context.Context, employerID uuid.UUID, docType models.DocumentType) error
}

type employerDocumentRepo struct {
	db DB
}

func NewEmployerDocumentRepository(db DB) EmployerDocumentRepository {
	return &employerDocumentRepo{db: db}
}

func (r *employerDocumentRepo) Create(ctx context.Context, doc *models.EmployerDocument) error {
	q := `
		INSERT INTO employer_documents
			(id, employer_id, doc_type, file_ref, status, rejection_reason, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`
	_, err := r.db.Exec(ctx, q,
		doc.ID, doc.EmployerID, string(doc.Type), doc.FileRef, string(doc.Status), doc.RejectionReason,
	)
	return err
}

func (r *employerDocumentRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.EmployerDocument, error) {
	row := r.db.QueryRow(ctx, baseSelectDocument()+" WHERE id=$1", id)
	return scanDocument(row)
}

func (r *employerDocumentRepo) ListByEmployer(ctx context.Context, employerID uuid.UUID) ([]*models.EmployerDocument, error) {
	// Insertion order preserved for the status snapshot.
	rows, err := r.db.Query(ctx,
		baseSelectDocument()+" WHERE employer_id=$1 ORDER BY uploaded_at ASC, id ASC",
		employerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*models.EmployerDocument
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (r *employerDocumentRepo) SetStatusIfPending(
	ctx context.Context,
	id uuid.UUID,
	status models.DocumentStatusType,
	rejectionReason *string,
) (int64, error) {
	q := `
		UPDATE employer_documents
		SET status=$2, rejection_reason=$3
		WHERE id=$1 AND status='PENDING'
	`
	tag, err := r.db.Exec(ctx, q, id, string(status), rejectionReason)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *employerDocumentRepo) SupersedePending(ctx context.Context, employerID uuid.UUID, docType models.DocumentType) error {
	q := `
		UPDATE employer_documents
		SET status='SUPERSEDED'
		WHERE employer_id=$1 AND doc_type=$2 AND status='PENDING'
	`
	_, err := r.db.Exec(ctx, q, employerID, string(docType))
	return err
}

func baseSelectDocument() string {
	return `
		SELECT id, employer_id, doc_type, file_ref, status, rejection_reason, uploaded_at
		FROM employer_documents`
}

func scanDocument(row pgx.Row) (*models.EmployerDocument, error) {
	var doc models.EmployerDocument
	var docType, status string
	err := row.Scan(
		&doc.ID,
		&doc.EmployerID,
		&docType,
		&doc.FileRef,
		&status,
		&doc.RejectionReason,
		&doc.UploadedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	doc.Type = models.DocumentType(docType)
	doc.Status = models.DocumentStatusType(status)
	return &doc, nil
}
