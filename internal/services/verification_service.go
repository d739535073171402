package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/joblane/verification-service/internal/config"
	"github.com/joblane/verification-service/internal/dtos"
	"github.com/joblane/verification-service/internal/models"
	"github.com/joblane/verification-service/internal/repositories"
	"github.com/joblane/verification-service/internal/storage"
	"github.com/joblane/verification-service/internal/utils"
)

// VerificationService is the employer-facing workflow: uploads and the
// status snapshot. Every mutation recomputes the cached level inside the
// record's optimistic-lock loop, so the stored level is never stale.
type VerificationService interface {
	CreateRecord(ctx context.Context, employerID uuid.UUID, email string, companyKey *string) error
	UploadIDCard(ctx context.Context, employerID uuid.UUID, upload storage.Upload) error
	UploadDocument(ctx context.Context, employerID uuid.UUID, docType string, upload storage.Upload) (*models.EmployerDocument, error)
	GetStatus(ctx context.Context, employerID uuid.UUID) (*dtos.VerificationStatusResponse, error)
}

type verificationService struct {
	recordRepo repositories.VerificationRecordRepository
	docRepo    repositories.EmployerDocumentRepository
	docStore   storage.DocumentStore
	cfg        *config.Config
}

func NewVerificationService(
	recordRepo repositories.VerificationRecordRepository,
	docRepo repositories.EmployerDocumentRepository,
	docStore storage.DocumentStore,
	cfg *config.Config,
) VerificationService {
	return &verificationService{
		recordRepo: recordRepo,
		docRepo:    docRepo,
		docStore:   docStore,
		cfg:        cfg,
	}
}

// ---------------------------------------------------------------------
// CreateRecord
// ---------------------------------------------------------------------

// CreateRecord provisions the all-default record when an employer
// account is registered. Idempotent: a second call for the same
// employer is a no-op.
func (s *verificationService) CreateRecord(ctx context.Context, employerID uuid.UUID, email string, companyKey *string) error {
	existing, err := s.recordRepo.GetByEmployerID(ctx, employerID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	rec := &models.VerificationRecord{
		ID:            uuid.New(),
		EmployerID:    employerID,
		EmployerEmail: email,
		CompanyKey:    companyKey,
		IDCardStatus:  models.IDCardStatusAbsent,
		Level:         models.LevelUnverified,
	}
	return s.recordRepo.Create(ctx, rec)
}

// ---------------------------------------------------------------------
// Uploads
// ---------------------------------------------------------------------

var allowedUploadContentTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"application/pdf": true,
}

// validateUpload re-enforces the client-side constraints server-side:
// image or PDF, bounded size.
func (s *verificationService) validateUpload(upload storage.Upload) error {
	if len(upload.Data) == 0 {
		return fmt.Errorf("%w: empty file", utils.ErrValidation)
	}
	if int64(len(upload.Data)) > s.cfg.MaxUploadBytes {
		return fmt.Errorf("%w: file exceeds %d bytes", utils.ErrValidation, s.cfg.MaxUploadBytes)
	}
	if !allowedUploadContentTypes[upload.ContentType] {
		return fmt.Errorf("%w: unsupported content type %q", utils.ErrValidation, upload.ContentType)
	}
	return nil
}

func (s *verificationService) UploadIDCard(ctx context.Context, employerID uuid.UUID, upload storage.Upload) error {
	if err := s.validateUpload(upload); err != nil {
		return err
	}

	rec, err := s.recordRepo.GetByEmployerID(ctx, employerID)
	if err != nil {
		return err
	}
	if rec == nil {
		return utils.ErrNotFound
	}
	// An approved ID card cannot be silently replaced; that would bypass
	// admin review.
	if rec.IDCardStatus == models.IDCardStatusApproved {
		return utils.ErrInvalidTransition
	}

	ref := fmt.Sprintf("id-cards/%s/%s", employerID, uuid.New())
	fileRef, err := s.docStore.Store(ctx, upload, ref)
	if err != nil {
		return err
	}

	now := time.Now()
	return s.recordRepo.UpdateWithRetry(ctx, employerID, func(vr *models.VerificationRecord) error {
		// Re-check under the lock; an admin may have approved between the
		// read above and this write.
		if vr.IDCardStatus == models.IDCardStatusApproved {
			return utils.ErrInvalidTransition
		}
		vr.IDCardStatus = models.IDCardStatusPending
		vr.IDCardFileRef = &fileRef
		vr.IDCardRejectionReason = nil
		vr.IDCardUploadedAt = &now

		docs, derr := s.docRepo.ListByEmployer(ctx, employerID)
		if derr != nil {
			return derr
		}
		vr.Level = models.ComputeLevel(vr, docs)
		return nil
	})
}

func (s *verificationService) UploadDocument(
	ctx context.Context,
	employerID uuid.UUID,
	docType string,
	upload storage.Upload,
) (*models.EmployerDocument, error) {
	parsedType, ok := models.ParseDocumentType(docType)
	if !ok {
		return nil, fmt.Errorf("%w: unknown document type %q", utils.ErrValidation, docType)
	}
	if err := s.validateUpload(upload); err != nil {
		return nil, err
	}

	rec, err := s.recordRepo.GetByEmployerID(ctx, employerID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, utils.ErrNotFound
	}

	ref := fmt.Sprintf("documents/%s/%s", employerID, uuid.New())
	fileRef, err := s.docStore.Store(ctx, upload, ref)
	if err != nil {
		return nil, err
	}

	// A fresh upload of the same type supersedes older pending ones so
	// the admin queue only ever shows the latest version.
	if err := s.docRepo.SupersedePending(ctx, employerID, parsedType); err != nil {
		return nil, err
	}

	doc := &models.EmployerDocument{
		ID:         uuid.New(),
		EmployerID: employerID,
		Type:       parsedType,
		FileRef:    fileRef,
		Status:     models.DocumentStatusPending,
		UploadedAt: time.Now(),
	}
	if err := s.docRepo.Create(ctx, doc); err != nil {
		return nil, err
	}

	// Document set changed; keep the cached level in sync.
	if err := s.recomputeLevel(ctx, employerID); err != nil {
		return nil, err
	}
	return doc, nil
}

// recomputeLevel re-derives the cached level inside the optimistic-lock
// loop.
func (s *verificationService) recomputeLevel(ctx context.Context, employerID uuid.UUID) error {
	return s.recordRepo.UpdateWithRetry(ctx, employerID, func(vr *models.VerificationRecord) error {
		docs, err := s.docRepo.ListByEmployer(ctx, employerID)
		if err != nil {
			return err
		}
		vr.Level = models.ComputeLevel(vr, docs)
		return nil
	})
}

// ---------------------------------------------------------------------
// Status snapshot
// ---------------------------------------------------------------------

func (s *verificationService) GetStatus(ctx context.Context, employerID uuid.UUID) (*dtos.VerificationStatusResponse, error) {
	rec, err := s.recordRepo.GetByEmployerID(ctx, employerID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, utils.ErrNotFound
	}
	docs, err := s.docRepo.ListByEmployer(ctx, employerID)
	if err != nil {
		return nil, err
	}
	return s.buildSnapshot(rec, docs), nil
}

func (s *verificationService) buildSnapshot(rec *models.VerificationRecord, docs []*models.EmployerDocument) *dtos.VerificationStatusResponse {
	resp := &dtos.VerificationStatusResponse{
		EmployerID:           rec.EmployerID,
		EmailVerified:        rec.EmailVerified,
		DomainVerified:       rec.DomainVerified,
		InheritedFromCompany: rec.InheritedFromCompany,
		Level:                rec.Level,
		IDCard: dtos.IDCardView{
			Status:          string(rec.IDCardStatus),
			RejectionReason: rec.IDCardRejectionReason,
			UploadedAt:      rec.IDCardUploadedAt,
		},
		Documents: []dtos.DocumentView{},
	}
	if rec.IDCardFileRef != nil {
		url := s.docStore.Resolve(*rec.IDCardFileRef)
		resp.IDCard.FileURL = &url
	}
	for _, d := range docs {
		resp.Documents = append(resp.Documents, dtos.DocumentView{
			ID:              d.ID,
			Type:            string(d.Type),
			Status:          string(d.Status),
			FileURL:         s.docStore.Resolve(d.FileRef),
			RejectionReason: d.RejectionReason,
			UploadedAt:      d.UploadedAt,
		})
	}
	return resp
}
