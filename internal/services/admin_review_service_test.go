package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/joblane/verification-service/internal/models"
	"github.com/joblane/verification-service/internal/utils"
)

type reviewFixture struct {
	svc        AdminReviewService
	statusSvc  VerificationService
	recordRepo *fakeRecordRepo
	docRepo    *fakeDocRepo
	auditRepo  *fakeAuditRepo
	notifier   *fakeNotifier
	docStore   *fakeDocStore

	adminID uuid.UUID
}

func newReviewFixture(t *testing.T) *reviewFixture {
	t.Helper()
	f := &reviewFixture{
		recordRepo: newFakeRecordRepo(),
		docRepo:    newFakeDocRepo(),
		auditRepo:  newFakeAuditRepo(),
		notifier:   newFakeNotifier(),
		docStore:   newFakeDocStore(),
		adminID:    uuid.New(),
	}
	f.recordRepo.docs = f.docRepo
	f.statusSvc = NewVerificationService(f.recordRepo, f.docRepo, f.docStore, testConfig())
	f.svc = NewAdminReviewService(f.recordRepo, f.docRepo, f.auditRepo, f.docStore, f.notifier, f.statusSvc)
	return f
}

// seedPendingIDCard creates an email-verified record whose ID card is
// awaiting review.
func (f *reviewFixture) seedPendingIDCard(t *testing.T, employerID uuid.UUID, companyKey *string) {
	t.Helper()
	fileRef := "id-cards/" + employerID.String() + "/front"
	now := time.Now()
	require.NoError(t, f.recordRepo.Create(context.Background(), &models.VerificationRecord{
		ID:               uuid.New(),
		EmployerID:       employerID,
		EmployerEmail:    "owner@acme.example",
		CompanyKey:       companyKey,
		EmailVerified:    true,
		DomainVerified:   true,
		IDCardStatus:     models.IDCardStatusPending,
		IDCardFileRef:    &fileRef,
		IDCardUploadedAt: &now,
	}))
}

func (f *reviewFixture) seedPendingDocument(t *testing.T, employerID uuid.UUID, docType models.DocumentType) uuid.UUID {
	t.Helper()
	doc := &models.EmployerDocument{
		ID:         uuid.New(),
		EmployerID: employerID,
		Type:       docType,
		FileRef:    "documents/" + employerID.String() + "/" + string(docType),
		Status:     models.DocumentStatusPending,
		UploadedAt: time.Now(),
	}
	require.NoError(t, f.docRepo.Create(context.Background(), doc))
	return doc.ID
}

// approveIDCard fast-forwards a record to level 1.
func (f *reviewFixture) approveIDCard(t *testing.T, employerID uuid.UUID) {
	t.Helper()
	require.NoError(t, f.recordRepo.UpdateWithRetry(context.Background(), employerID, func(vr *models.VerificationRecord) error {
		vr.IDCardStatus = models.IDCardStatusApproved
		vr.Level = models.LevelIdentityVerified
		return nil
	}))
}

func TestDecideIDCardApprove(t *testing.T) {
	f := newReviewFixture(t)
	employerID := uuid.New()
	f.seedPendingIDCard(t, employerID, nil)
	ctx := context.Background()

	snap, err := f.svc.DecideIDCard(ctx, f.adminID, employerID, true, nil)
	require.NoError(t, err)
	require.Equal(t, string(models.IDCardStatusApproved), snap.IDCard.Status)
	require.Equal(t, models.LevelIdentityVerified, snap.Level)

	rec, err := f.recordRepo.GetByEmployerID(ctx, employerID)
	require.NoError(t, err)
	require.Equal(t, models.LevelIdentityVerified, rec.Level)

	entries, err := f.auditRepo.ListByTarget(ctx, employerID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, models.AuditApprove, entries[0].Action)
	require.Equal(t, models.TargetIDCard, entries[0].TargetType)
	require.Equal(t, f.adminID, entries[0].AdminID)

	require.Len(t, f.notifier.events, 1)
	require.Equal(t, EventIDCardApproved, f.notifier.events[0].Type)
}

func TestDecideIDCardRejectRequiresReason(t *testing.T) {
	f := newReviewFixture(t)
	employerID := uuid.New()
	f.seedPendingIDCard(t, employerID, nil)
	ctx := context.Background()

	_, err := f.svc.DecideIDCard(ctx, f.adminID, employerID, false, nil)
	require.ErrorIs(t, err, utils.ErrValidation)

	blank := "   "
	_, err = f.svc.DecideIDCard(ctx, f.adminID, employerID, false, &blank)
	require.ErrorIs(t, err, utils.ErrValidation)

	// Record unchanged, nothing audited or notified.
	rec, err := f.recordRepo.GetByEmployerID(ctx, employerID)
	require.NoError(t, err)
	require.Equal(t, models.IDCardStatusPending, rec.IDCardStatus)
	require.Empty(t, f.auditRepo.entries)
	require.Empty(t, f.notifier.events)
}

func TestDecideIDCardReject(t *testing.T) {
	f := newReviewFixture(t)
	employerID := uuid.New()
	f.seedPendingIDCard(t, employerID, nil)
	reason := "document unreadable"
	ctx := context.Background()

	snap, err := f.svc.DecideIDCard(ctx, f.adminID, employerID, false, &reason)
	require.NoError(t, err)
	require.Equal(t, string(models.IDCardStatusRejected), snap.IDCard.Status)
	require.NotNil(t, snap.IDCard.RejectionReason)
	require.Equal(t, reason, *snap.IDCard.RejectionReason)
	require.Equal(t, models.LevelUnverified, snap.Level)

	require.Len(t, f.notifier.events, 1)
	require.Equal(t, EventIDCardRejected, f.notifier.events[0].Type)
	require.Equal(t, reason, f.notifier.events[0].Payload["rejection_reason"])
}

func TestDecideIDCardNotPending(t *testing.T) {
	f := newReviewFixture(t)
	employerID := uuid.New()
	f.seedPendingIDCard(t, employerID, nil)
	ctx := context.Background()

	_, err := f.svc.DecideIDCard(ctx, f.adminID, employerID, true, nil)
	require.NoError(t, err)

	// A second decision on the same card must not go through.
	_, err = f.svc.DecideIDCard(ctx, f.adminID, employerID, true, nil)
	require.ErrorIs(t, err, utils.ErrInvalidTransition)

	rec, gerr := f.recordRepo.GetByEmployerID(ctx, employerID)
	require.NoError(t, gerr)
	require.Equal(t, models.IDCardStatusApproved, rec.IDCardStatus)
	require.Len(t, f.auditRepo.entries, 1)
}

func TestDecideIDCardUnknownEmployer(t *testing.T) {
	f := newReviewFixture(t)

	_, err := f.svc.DecideIDCard(context.Background(), f.adminID, uuid.New(), true, nil)
	require.ErrorIs(t, err, utils.ErrNotFound)
}

func TestDecideDocumentApproveRaisesLevel(t *testing.T) {
	f := newReviewFixture(t)
	employerID := uuid.New()
	f.seedPendingIDCard(t, employerID, nil)
	f.approveIDCard(t, employerID)
	docID := f.seedPendingDocument(t, employerID, models.DocumentTypeGST)
	ctx := context.Background()

	snap, err := f.svc.DecideDocument(ctx, f.adminID, employerID, docID, true, nil)
	require.NoError(t, err)
	require.Equal(t, models.LevelBusinessVerified, snap.Level)

	doc, err := f.docRepo.GetByID(ctx, docID)
	require.NoError(t, err)
	require.Equal(t, models.DocumentStatusApproved, doc.Status)

	entries, err := f.auditRepo.ListByTarget(ctx, docID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, models.TargetDocument, entries[0].TargetType)

	require.Len(t, f.notifier.events, 1)
	require.Equal(t, EventDocumentApproved, f.notifier.events[0].Type)
	require.Equal(t, "GST", f.notifier.events[0].Payload["doc_type"])
}

func TestDecideDocumentRejectKeepsLevel(t *testing.T) {
	f := newReviewFixture(t)
	employerID := uuid.New()
	f.seedPendingIDCard(t, employerID, nil)
	f.approveIDCard(t, employerID)
	docID := f.seedPendingDocument(t, employerID, models.DocumentTypeCIN)
	reason := "registration number mismatch"
	ctx := context.Background()

	snap, err := f.svc.DecideDocument(ctx, f.adminID, employerID, docID, false, &reason)
	require.NoError(t, err)
	require.Equal(t, models.LevelIdentityVerified, snap.Level)

	doc, err := f.docRepo.GetByID(ctx, docID)
	require.NoError(t, err)
	require.Equal(t, models.DocumentStatusRejected, doc.Status)
	require.NotNil(t, doc.RejectionReason)
	require.Equal(t, reason, *doc.RejectionReason)
}

func TestDecideDocumentWrongEmployer(t *testing.T) {
	f := newReviewFixture(t)
	ownerID := uuid.New()
	otherID := uuid.New()
	f.seedPendingIDCard(t, ownerID, nil)
	f.seedPendingIDCard(t, otherID, nil)
	docID := f.seedPendingDocument(t, ownerID, models.DocumentTypeGST)

	// The document belongs to a different employer than the path says.
	_, err := f.svc.DecideDocument(context.Background(), f.adminID, otherID, docID, true, nil)
	require.ErrorIs(t, err, utils.ErrNotFound)

	doc, gerr := f.docRepo.GetByID(context.Background(), docID)
	require.NoError(t, gerr)
	require.Equal(t, models.DocumentStatusPending, doc.Status)
}

func TestDecideDocumentAlreadyDecided(t *testing.T) {
	f := newReviewFixture(t)
	employerID := uuid.New()
	f.seedPendingIDCard(t, employerID, nil)
	docID := f.seedPendingDocument(t, employerID, models.DocumentTypeGST)
	ctx := context.Background()

	_, err := f.svc.DecideDocument(ctx, f.adminID, employerID, docID, true, nil)
	require.NoError(t, err)

	reason := "second thoughts"
	_, err = f.svc.DecideDocument(ctx, f.adminID, employerID, docID, false, &reason)
	require.ErrorIs(t, err, utils.ErrInvalidTransition)

	doc, gerr := f.docRepo.GetByID(ctx, docID)
	require.NoError(t, gerr)
	require.Equal(t, models.DocumentStatusApproved, doc.Status)
}

func TestDecideDocumentPropagatesCompanyVerification(t *testing.T) {
	f := newReviewFixture(t)
	companyKey := "acme-pvt-ltd"
	ownerID := uuid.New()
	siblingID := uuid.New()
	f.seedPendingIDCard(t, ownerID, &companyKey)
	f.seedPendingIDCard(t, siblingID, &companyKey)
	f.approveIDCard(t, ownerID)
	f.approveIDCard(t, siblingID)
	docID := f.seedPendingDocument(t, ownerID, models.DocumentTypeGST)
	ctx := context.Background()

	snap, err := f.svc.DecideDocument(ctx, f.adminID, ownerID, docID, true, nil)
	require.NoError(t, err)
	require.Equal(t, models.LevelBusinessVerified, snap.Level)

	sibling, err := f.recordRepo.GetByEmployerID(ctx, siblingID)
	require.NoError(t, err)
	require.True(t, sibling.InheritedFromCompany)
	require.Equal(t, models.LevelBusinessVerified, sibling.Level)
}

func TestCompanyPropagationRespectsLevelOneGate(t *testing.T) {
	f := newReviewFixture(t)
	companyKey := "acme-pvt-ltd"
	ownerID := uuid.New()
	siblingID := uuid.New()
	f.seedPendingIDCard(t, ownerID, &companyKey)
	f.seedPendingIDCard(t, siblingID, &companyKey) // sibling's ID card still pending
	f.approveIDCard(t, ownerID)
	docID := f.seedPendingDocument(t, ownerID, models.DocumentTypeGST)
	ctx := context.Background()

	_, err := f.svc.DecideDocument(ctx, f.adminID, ownerID, docID, true, nil)
	require.NoError(t, err)

	// The sibling inherits the flag but stays below level 1 until its own
	// identity is verified.
	sibling, err := f.recordRepo.GetByEmployerID(ctx, siblingID)
	require.NoError(t, err)
	require.True(t, sibling.InheritedFromCompany)
	require.Equal(t, models.LevelUnverified, sibling.Level)
}

func TestListPendingShowsOnlyPendingDocuments(t *testing.T) {
	f := newReviewFixture(t)
	employerID := uuid.New()
	f.seedPendingIDCard(t, employerID, nil)
	pendingID := f.seedPendingDocument(t, employerID, models.DocumentTypeGST)
	decidedID := f.seedPendingDocument(t, employerID, models.DocumentTypeCIN)
	ctx := context.Background()

	_, err := f.docRepo.SetStatusIfPending(ctx, decidedID, models.DocumentStatusApproved, nil)
	require.NoError(t, err)

	resp, err := f.svc.ListPending(ctx, 10, 0)
	require.NoError(t, err)
	require.Equal(t, 1, resp.Total)
	require.Len(t, resp.Items, 1)

	item := resp.Items[0]
	require.Equal(t, employerID, item.EmployerID)
	require.Equal(t, string(models.IDCardStatusPending), item.IDCard.Status)
	require.Len(t, item.Documents, 1)
	require.Equal(t, pendingID, item.Documents[0].ID)
}

func TestListPendingIncludesDocumentOnlyAccounts(t *testing.T) {
	f := newReviewFixture(t)
	employerID := uuid.New()
	f.seedPendingIDCard(t, employerID, nil)
	f.approveIDCard(t, employerID) // ID card fully decided
	docID := f.seedPendingDocument(t, employerID, models.DocumentTypeGST)
	ctx := context.Background()

	// A pending legal document alone must surface the account.
	resp, err := f.svc.ListPending(ctx, 10, 0)
	require.NoError(t, err)
	require.Equal(t, 1, resp.Total)
	require.Len(t, resp.Items, 1)

	item := resp.Items[0]
	require.Equal(t, employerID, item.EmployerID)
	require.Equal(t, string(models.IDCardStatusApproved), item.IDCard.Status)
	require.Len(t, item.Documents, 1)
	require.Equal(t, docID, item.Documents[0].ID)

	// Once the document is decided, the account leaves the queue.
	_, err = f.svc.DecideDocument(ctx, f.adminID, employerID, docID, true, nil)
	require.NoError(t, err)

	resp, err = f.svc.ListPending(ctx, 10, 0)
	require.NoError(t, err)
	require.Equal(t, 0, resp.Total)
	require.Empty(t, resp.Items)
}
