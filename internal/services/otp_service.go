package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/joblane/verification-service/internal/config"
	"github.com/joblane/verification-service/internal/models"
	"github.com/joblane/verification-service/internal/repositories"
	"github.com/joblane/verification-service/internal/utils"
)

// OtpService issues and verifies the one-time codes that back the
// email/domain verification step. At most one code is honored per
// employer: issuing a new code deletes the previous row.
type OtpService interface {
	// RequestOtp generates a code for the employer's registered email and
	// dispatches it. clientIP feeds the rate limiter.
	RequestOtp(ctx context.Context, employerID uuid.UUID, clientIP string) error

	// VerifyOtp consumes a valid code, marks the record email/domain
	// verified, and returns the recomputed level.
	VerifyOtp(ctx context.Context, employerID uuid.UUID, submittedCode string) (int, error)
}

type otpService struct {
	recordRepo  repositories.VerificationRecordRepository
	docRepo     repositories.EmployerDocumentRepository
	otpRepo     repositories.EmailVerificationRepository
	rateLimiter RateLimiterService

	cfg            *config.Config
	sendgridClient *sendgrid.Client

	// sendEmail defaults to the SendGrid sender; swappable in tests.
	sendEmail func(email, code string) error
}

func NewOtpService(
	recordRepo repositories.VerificationRecordRepository,
	docRepo repositories.EmployerDocumentRepository,
	otpRepo repositories.EmailVerificationRepository,
	rateLimiter RateLimiterService,
	cfg *config.Config,
) OtpService {
	s := &otpService{
		recordRepo:     recordRepo,
		docRepo:        docRepo,
		otpRepo:        otpRepo,
		rateLimiter:    rateLimiter,
		cfg:            cfg,
		sendgridClient: sendgrid.NewSendClient(cfg.SendGridAPIKey),
	}
	s.sendEmail = s.sendCodeEmail
	return s
}

// ---------------------------------------------------------------------
// RequestOtp
// ---------------------------------------------------------------------
func (s *otpService) RequestOtp(ctx context.Context, employerID uuid.UUID, clientIP string) error {
	rec, err := s.recordRepo.GetByEmployerID(ctx, employerID)
	if err != nil {
		return err
	}
	if rec == nil {
		return utils.ErrNotFound
	}

	if err := s.rateLimiter.CheckEmailRateLimits(ctx, clientIP, rec.EmployerEmail); err != nil {
		return err
	}

	existing, err := s.otpRepo.GetCode(ctx, employerID)
	if err != nil {
		return err
	}
	if existing != nil {
		// Resend cooldown: a fresh code cannot be requested immediately
		// after the previous one.
		if time.Since(existing.CreatedAt) < s.cfg.OtpResendCooldown {
			return utils.ErrRateLimitExceeded
		}
		// Issuing a new code invalidates the old one.
		if err := s.otpRepo.DeleteCode(ctx, existing.ID); err != nil {
			return err
		}
	}

	code, err := utils.RandomNumericString(s.cfg.VerificationCodeLength)
	if err != nil {
		return err
	}

	expiresAt := time.Now().Add(s.cfg.VerificationCodeExpiry)
	if err := s.otpRepo.CreateCode(ctx, employerID, rec.EmployerEmail, code, expiresAt); err != nil {
		return err
	}

	if err := s.sendEmail(rec.EmployerEmail, code); err != nil {
		// A code nobody received must not hold the resend cooldown.
		if created, gerr := s.otpRepo.GetCode(ctx, employerID); gerr == nil && created != nil {
			_ = s.otpRepo.DeleteCode(ctx, created.ID)
		}
		return err
	}
	return nil
}

func (s *otpService) sendCodeEmail(email, code string) error {
	from := mail.NewEmail(s.cfg.OrganizationName, s.cfg.SendgridFromEmail)
	to := mail.NewEmail("", email)
	subject := s.cfg.OrganizationName + " - Verification Code"
	plainTextContent := fmt.Sprintf("Your verification code is %s", code)
	htmlContent := fmt.Sprintf(
		verificationEmailHTML,
		"Verification Code",
		"Please use the following code to verify your business email. It expires shortly.",
		code,
		time.Now().Year(),
		s.cfg.OrganizationName,
	)
	message := mail.NewSingleEmail(from, subject, to, plainTextContent, htmlContent)

	if s.cfg.SendgridSandboxMode {
		ms := mail.NewMailSettings()
		ms.SetSandboxMode(mail.NewSetting(true))
		message.MailSettings = ms
	}

	_, sendErr := s.sendgridClient.Send(message)
	if sendErr != nil {
		utils.Logger.WithError(sendErr).Errorf("Failed to send verification email to %s via SendGrid", email)
		return fmt.Errorf("%w: failed to send email via sendgrid: %v", utils.ErrExternalServiceFailure, sendErr)
	}
	return nil
}

// ---------------------------------------------------------------------
// VerifyOtp
// ---------------------------------------------------------------------
func (s *otpService) VerifyOtp(ctx context.Context, employerID uuid.UUID, submittedCode string) (int, error) {
	rec, err := s.otpRepo.GetCode(ctx, employerID)
	if err != nil {
		return 0, err
	}
	if rec == nil || time.Now().After(rec.ExpiresAt) {
		return 0, utils.ErrOtpExpired
	}

	// Codes with too many failed attempts are burned outright.
	if rec.Attempts >= s.cfg.MaxOtpAttempts {
		_ = s.otpRepo.DeleteCode(ctx, rec.ID)
		return 0, utils.ErrOtpExpired
	}

	if rec.VerificationCode != submittedCode {
		_ = s.otpRepo.IncrementAttempts(ctx, rec.ID)
		return 0, utils.ErrInvalidOtp
	}

	// Single use.
	if err := s.otpRepo.DeleteCode(ctx, rec.ID); err != nil {
		return 0, err
	}

	var level int
	err = s.recordRepo.UpdateWithRetry(ctx, employerID, func(vr *models.VerificationRecord) error {
		vr.EmailVerified = true
		vr.DomainVerified = true
		docs, derr := s.docRepo.ListByEmployer(ctx, employerID)
		if derr != nil {
			return derr
		}
		vr.Level = models.ComputeLevel(vr, docs)
		level = vr.Level
		return nil
	})
	if err != nil {
		return 0, err
	}
	return level, nil
}
