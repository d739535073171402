package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"

	"github.com/joblane/verification-service/internal/models"
	"github.com/joblane/verification-service/internal/storage"
	"github.com/joblane/verification-service/internal/utils"
)

var errStoreUnavailable = errors.New("store unavailable")

// In-memory doubles for the repository and storage interfaces. They
// mimic the Postgres-backed behavior closely enough for service-level
// tests: copies in, copies out, version bumps on update.

// ----- verification records -----

type fakeRecordRepo struct {
	mu   sync.Mutex
	recs map[uuid.UUID]*models.VerificationRecord

	// docs mirrors the EXISTS(pending document) half of the pending-review
	// query; wired by fixtures that exercise ListPendingReview.
	docs *fakeDocRepo
}

func newFakeRecordRepo() *fakeRecordRepo {
	return &fakeRecordRepo{recs: make(map[uuid.UUID]*models.VerificationRecord)}
}

func cloneRecord(r *models.VerificationRecord) *models.VerificationRecord {
	c := *r
	return &c
}

func (f *fakeRecordRepo) Create(_ context.Context, rec *models.VerificationRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := cloneRecord(rec)
	c.RowVersion = 1
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	f.recs[rec.EmployerID] = c
	return nil
}

func (f *fakeRecordRepo) GetByEmployerID(_ context.Context, employerID uuid.UUID) (*models.VerificationRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.recs[employerID]
	if !ok {
		return nil, nil
	}
	return cloneRecord(rec), nil
}

func (f *fakeRecordRepo) UpdateIfVersion(_ context.Context, rec *models.VerificationRecord, expected int64) (pgconn.CommandTag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.recs[rec.EmployerID]
	if !ok || cur.RowVersion != expected {
		return pgconn.CommandTag("UPDATE 0"), nil
	}
	c := cloneRecord(rec)
	c.RowVersion = expected + 1
	c.UpdatedAt = time.Now()
	f.recs[rec.EmployerID] = c
	return pgconn.CommandTag("UPDATE 1"), nil
}

func (f *fakeRecordRepo) UpdateWithRetry(ctx context.Context, employerID uuid.UUID, mutate func(*models.VerificationRecord) error) error {
	for attempt := 0; attempt < 3; attempt++ {
		rec, err := f.GetByEmployerID(ctx, employerID)
		if err != nil {
			return err
		}
		if rec == nil {
			return utils.ErrNotFound
		}
		oldVersion := rec.RowVersion
		if err := mutate(rec); err != nil {
			return err
		}
		tag, err := f.UpdateIfVersion(ctx, rec, oldVersion)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 1 {
			return nil
		}
		// lost the race, reload and retry
	}
	return utils.ErrRowVersionConflict
}

func (f *fakeRecordRepo) hasPendingDocLocked(employerID uuid.UUID) bool {
	if f.docs == nil {
		return false
	}
	f.docs.mu.Lock()
	defer f.docs.mu.Unlock()
	for _, d := range f.docs.docs {
		if d.EmployerID == employerID && d.Status == models.DocumentStatusPending {
			return true
		}
	}
	return false
}

func (f *fakeRecordRepo) ListPendingReview(_ context.Context, limit, offset int) ([]*models.VerificationRecord, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []*models.VerificationRecord
	for _, rec := range f.recs {
		if rec.IDCardStatus == models.IDCardStatusPending || f.hasPendingDocLocked(rec.EmployerID) {
			all = append(all, cloneRecord(rec))
		}
	}
	total := len(all)
	if offset >= len(all) {
		return nil, total, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, total, nil
}

func (f *fakeRecordRepo) ListByCompanyKey(_ context.Context, companyKey string, exceptEmployerID uuid.UUID) ([]*models.VerificationRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.VerificationRecord
	for _, rec := range f.recs {
		if rec.CompanyKey != nil && *rec.CompanyKey == companyKey && rec.EmployerID != exceptEmployerID {
			out = append(out, cloneRecord(rec))
		}
	}
	return out, nil
}

// ----- employer documents -----

type fakeDocRepo struct {
	mu   sync.Mutex
	docs []*models.EmployerDocument
}

func newFakeDocRepo() *fakeDocRepo { return &fakeDocRepo{} }

func cloneDoc(d *models.EmployerDocument) *models.EmployerDocument {
	c := *d
	return &c
}

func (f *fakeDocRepo) Create(_ context.Context, doc *models.EmployerDocument) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs = append(f.docs, cloneDoc(doc))
	return nil
}

func (f *fakeDocRepo) GetByID(_ context.Context, id uuid.UUID) (*models.EmployerDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.docs {
		if d.ID == id {
			return cloneDoc(d), nil
		}
	}
	return nil, nil
}

func (f *fakeDocRepo) ListByEmployer(_ context.Context, employerID uuid.UUID) ([]*models.EmployerDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.EmployerDocument
	for _, d := range f.docs {
		if d.EmployerID == employerID {
			out = append(out, cloneDoc(d))
		}
	}
	return out, nil
}

func (f *fakeDocRepo) SetStatusIfPending(_ context.Context, id uuid.UUID, status models.DocumentStatusType, rejectionReason *string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.docs {
		if d.ID == id && d.Status == models.DocumentStatusPending {
			d.Status = status
			d.RejectionReason = rejectionReason
			return 1, nil
		}
	}
	return 0, nil
}

func (f *fakeDocRepo) SupersedePending(_ context.Context, employerID uuid.UUID, docType models.DocumentType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.docs {
		if d.EmployerID == employerID && d.Type == docType && d.Status == models.DocumentStatusPending {
			d.Status = models.DocumentStatusSuperseded
		}
	}
	return nil
}

// ----- email verification codes -----

type fakeOtpRepo struct {
	mu    sync.Mutex
	codes []*models.EmailVerificationCode
}

func newFakeOtpRepo() *fakeOtpRepo { return &fakeOtpRepo{} }

func (f *fakeOtpRepo) CreateCode(_ context.Context, employerID uuid.UUID, email, code string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes = append(f.codes, &models.EmailVerificationCode{
		ID:               uuid.New(),
		EmployerID:       employerID,
		EmployerEmail:    email,
		VerificationCode: code,
		ExpiresAt:        expiresAt,
		CreatedAt:        time.Now(),
	})
	return nil
}

func (f *fakeOtpRepo) GetCode(_ context.Context, employerID uuid.UUID) (*models.EmailVerificationCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *models.EmailVerificationCode
	for _, c := range f.codes {
		if c.EmployerID != employerID {
			continue
		}
		if latest == nil || c.CreatedAt.After(latest.CreatedAt) {
			latest = c
		}
	}
	if latest == nil {
		return nil, nil
	}
	c := *latest
	return &c, nil
}

func (f *fakeOtpRepo) DeleteCode(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.codes {
		if c.ID == id {
			f.codes = append(f.codes[:i], f.codes[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeOtpRepo) IncrementAttempts(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.codes {
		if c.ID == id {
			c.Attempts++
		}
	}
	return nil
}

func (f *fakeOtpRepo) CleanupExpired(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	kept := f.codes[:0]
	for _, c := range f.codes {
		if c.ExpiresAt.After(now) {
			kept = append(kept, c)
		}
	}
	f.codes = kept
	return nil
}

// ----- rate limit counters -----

type fakeRateLimitRepo struct {
	mu     sync.Mutex
	counts map[string]int
}

func newFakeRateLimitRepo() *fakeRateLimitRepo {
	return &fakeRateLimitRepo{counts: make(map[string]int)}
}

func (f *fakeRateLimitRepo) IncrementAndCheck(_ context.Context, key string, limit int, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[key]++
	return f.counts[key] <= limit, nil
}

func (f *fakeRateLimitRepo) CleanupExpired(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts = make(map[string]int)
	return nil
}

// ----- admin audit log -----

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []*models.AdminAuditLog
}

func newFakeAuditRepo() *fakeAuditRepo { return &fakeAuditRepo{} }

func (f *fakeAuditRepo) Create(_ context.Context, entry *models.AdminAuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e := *entry
	e.CreatedAt = time.Now()
	f.entries = append(f.entries, &e)
	return nil
}

func (f *fakeAuditRepo) ListByTarget(_ context.Context, targetID uuid.UUID) ([]*models.AdminAuditLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.AdminAuditLog
	for _, e := range f.entries {
		if e.TargetID == targetID {
			c := *e
			out = append(out, &c)
		}
	}
	return out, nil
}

// ----- document store -----

type fakeDocStore struct {
	mu      sync.Mutex
	uploads map[string]storage.Upload
	fail    bool
}

func newFakeDocStore() *fakeDocStore {
	return &fakeDocStore{uploads: make(map[string]storage.Upload)}
}

func (f *fakeDocStore) Store(_ context.Context, upload storage.Upload, ref string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return "", errStoreUnavailable
	}
	f.uploads[ref] = upload
	return ref, nil
}

func (f *fakeDocStore) Resolve(fileRef string) string {
	return "https://files.test/" + fileRef
}

// ----- notifier -----

type fakeNotifier struct {
	mu     sync.Mutex
	events []VerificationEvent
}

func newFakeNotifier() *fakeNotifier { return &fakeNotifier{} }

func (f *fakeNotifier) Notify(_ context.Context, _ string, event VerificationEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}
