package services

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/joblane/verification-service/internal/dtos"
	"github.com/joblane/verification-service/internal/models"
	"github.com/joblane/verification-service/internal/repositories"
	"github.com/joblane/verification-service/internal/storage"
	"github.com/joblane/verification-service/internal/utils"
)

// AdminReviewService is the admin surface: the cross-account pending
// queue and the approve/reject transitions. Items only ever leave
// PENDING through here, and every decision is audited and notified.
type AdminReviewService interface {
	ListPending(ctx context.Context, limit, offset int) (*dtos.PendingVerificationsResponse, error)
	DecideIDCard(ctx context.Context, adminID, employerID uuid.UUID, approve bool, reason *string) (*dtos.VerificationStatusResponse, error)
	DecideDocument(ctx context.Context, adminID, employerID, documentID uuid.UUID, approve bool, reason *string) (*dtos.VerificationStatusResponse, error)
}

type adminReviewService struct {
	recordRepo repositories.VerificationRecordRepository
	docRepo    repositories.EmployerDocumentRepository
	auditRepo  repositories.AdminAuditLogRepository
	docStore   storage.DocumentStore
	notifier   Notifier
	statusSvc  VerificationService
}

func NewAdminReviewService(
	recordRepo repositories.VerificationRecordRepository,
	docRepo repositories.EmployerDocumentRepository,
	auditRepo repositories.AdminAuditLogRepository,
	docStore storage.DocumentStore,
	notifier Notifier,
	statusSvc VerificationService,
) AdminReviewService {
	return &adminReviewService{
		recordRepo: recordRepo,
		docRepo:    docRepo,
		auditRepo:  auditRepo,
		docStore:   docStore,
		notifier:   notifier,
		statusSvc:  statusSvc,
	}
}

// ---------------------------------------------------------------------
// Pending queue
// ---------------------------------------------------------------------

func (s *adminReviewService) ListPending(ctx context.Context, limit, offset int) (*dtos.PendingVerificationsResponse, error) {
	recs, total, err := s.recordRepo.ListPendingReview(ctx, limit, offset)
	if err != nil {
		return nil, err
	}

	resp := &dtos.PendingVerificationsResponse{Items: []dtos.PendingVerificationItem{}, Total: total}
	for _, rec := range recs {
		docs, err := s.docRepo.ListByEmployer(ctx, rec.EmployerID)
		if err != nil {
			return nil, err
		}

		item := dtos.PendingVerificationItem{
			EmployerID:    rec.EmployerID,
			EmployerEmail: rec.EmployerEmail,
			Level:         rec.Level,
			IDCard: dtos.IDCardView{
				Status:          string(rec.IDCardStatus),
				RejectionReason: rec.IDCardRejectionReason,
				UploadedAt:      rec.IDCardUploadedAt,
			},
			Documents: []dtos.DocumentView{},
		}
		if rec.IDCardFileRef != nil {
			url := s.docStore.Resolve(*rec.IDCardFileRef)
			item.IDCard.FileURL = &url
		}
		for _, d := range docs {
			if d.Status != models.DocumentStatusPending {
				continue
			}
			item.Documents = append(item.Documents, dtos.DocumentView{
				ID:         d.ID,
				Type:       string(d.Type),
				Status:     string(d.Status),
				FileURL:    s.docStore.Resolve(d.FileRef),
				UploadedAt: d.UploadedAt,
			})
		}
		resp.Items = append(resp.Items, item)
	}
	return resp, nil
}

// ---------------------------------------------------------------------
// Decisions
// ---------------------------------------------------------------------

func validateRejection(approve bool, reason *string) error {
	if approve {
		return nil
	}
	if reason == nil || strings.TrimSpace(*reason) == "" {
		return utils.ErrValidation
	}
	return nil
}

func (s *adminReviewService) DecideIDCard(
	ctx context.Context,
	adminID, employerID uuid.UUID,
	approve bool,
	reason *string,
) (*dtos.VerificationStatusResponse, error) {
	if err := validateRejection(approve, reason); err != nil {
		return nil, err
	}

	rec, err := s.recordRepo.GetByEmployerID(ctx, employerID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, utils.ErrNotFound
	}

	err = s.recordRepo.UpdateWithRetry(ctx, employerID, func(vr *models.VerificationRecord) error {
		if vr.IDCardStatus != models.IDCardStatusPending {
			return utils.ErrInvalidTransition
		}
		if approve {
			vr.IDCardStatus = models.IDCardStatusApproved
			vr.IDCardRejectionReason = nil
		} else {
			vr.IDCardStatus = models.IDCardStatusRejected
			vr.IDCardRejectionReason = reason
		}
		docs, derr := s.docRepo.ListByEmployer(ctx, employerID)
		if derr != nil {
			return derr
		}
		vr.Level = models.ComputeLevel(vr, docs)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logDecision(ctx, adminID, employerID, models.TargetIDCard, approve, reason, nil)
	s.emitDecision(ctx, rec.EmployerEmail, employerID, approve, reason, nil)

	return s.statusSvc.GetStatus(ctx, employerID)
}

func (s *adminReviewService) DecideDocument(
	ctx context.Context,
	adminID, employerID, documentID uuid.UUID,
	approve bool,
	reason *string,
) (*dtos.VerificationStatusResponse, error) {
	if err := validateRejection(approve, reason); err != nil {
		return nil, err
	}

	rec, err := s.recordRepo.GetByEmployerID(ctx, employerID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, utils.ErrNotFound
	}

	doc, err := s.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil || doc.EmployerID != employerID {
		return nil, utils.ErrNotFound
	}

	status := models.DocumentStatusApproved
	var storedReason *string
	if !approve {
		status = models.DocumentStatusRejected
		storedReason = reason
	}

	rows, err := s.docRepo.SetStatusIfPending(ctx, documentID, status, storedReason)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, utils.ErrInvalidTransition
	}

	// Document statuses changed; bring the cached level back in sync.
	if err := s.recordRepo.UpdateWithRetry(ctx, employerID, func(vr *models.VerificationRecord) error {
		docs, derr := s.docRepo.ListByEmployer(ctx, employerID)
		if derr != nil {
			return derr
		}
		vr.Level = models.ComputeLevel(vr, docs)
		return nil
	}); err != nil {
		return nil, err
	}

	// An approved business document verifies the whole company: sibling
	// accounts under the same company key inherit it.
	if approve && rec.CompanyKey != nil {
		s.propagateCompanyVerification(ctx, *rec.CompanyKey, employerID)
	}

	docType := string(doc.Type)
	s.logDecision(ctx, adminID, documentID, models.TargetDocument, approve, reason, &docType)
	s.emitDecision(ctx, rec.EmployerEmail, employerID, approve, reason, &docType)

	return s.statusSvc.GetStatus(ctx, employerID)
}

func (s *adminReviewService) propagateCompanyVerification(ctx context.Context, companyKey string, exceptEmployerID uuid.UUID) {
	siblings, err := s.recordRepo.ListByCompanyKey(ctx, companyKey, exceptEmployerID)
	if err != nil {
		utils.Logger.WithError(err).Errorf("Failed to list sibling records for company %s", companyKey)
		return
	}
	for _, sib := range siblings {
		sibID := sib.EmployerID
		err := s.recordRepo.UpdateWithRetry(ctx, sibID, func(vr *models.VerificationRecord) error {
			vr.InheritedFromCompany = true
			docs, derr := s.docRepo.ListByEmployer(ctx, sibID)
			if derr != nil {
				return derr
			}
			vr.Level = models.ComputeLevel(vr, docs)
			return nil
		})
		if err != nil {
			utils.Logger.WithError(err).Errorf("Failed to propagate company verification to employer %s", sibID)
		}
	}
}

func (s *adminReviewService) logDecision(
	ctx context.Context,
	adminID, targetID uuid.UUID,
	targetType models.AuditTargetType,
	approve bool,
	reason *string,
	docType *string,
) {
	action := models.AuditApprove
	if !approve {
		action = models.AuditReject
	}
	details := map[string]any{}
	if reason != nil {
		details["rejection_reason"] = *reason
	}
	if docType != nil {
		details["doc_type"] = *docType
	}
	var detailsJSON json.RawMessage
	if len(details) > 0 {
		detailsJSON, _ = json.Marshal(details)
	}
	if err := s.auditRepo.Create(ctx, &models.AdminAuditLog{
		ID:         uuid.New(),
		AdminID:    adminID,
		Action:     action,
		TargetID:   targetID,
		TargetType: targetType,
		Details:    detailsJSON,
	}); err != nil {
		utils.Logger.WithError(err).Error("Failed to write admin audit log entry")
	}
}

func (s *adminReviewService) emitDecision(
	ctx context.Context,
	employerEmail string,
	employerID uuid.UUID,
	approve bool,
	reason *string,
	docType *string,
) {
	event := VerificationEvent{EmployerID: employerID, Payload: map[string]string{}}
	switch {
	case docType == nil && approve:
		event.Type = EventIDCardApproved
	case docType == nil && !approve:
		event.Type = EventIDCardRejected
	case docType != nil && approve:
		event.Type = EventDocumentApproved
	default:
		event.Type = EventDocumentRejected
	}
	if reason != nil {
		event.Payload["rejection_reason"] = *reason
	}
	if docType != nil {
		event.Payload["doc_type"] = *docType
	}

	// Notification delivery is best effort; the decision already stuck.
	if err := s.notifier.Notify(ctx, employerEmail, event); err != nil {
		utils.Logger.WithError(err).Warnf("Failed to notify employer %s about %s", employerID, event.Type)
	}
}
