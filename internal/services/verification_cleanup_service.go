package services

import (
	"context"

	"github.com/joblane/verification-service/internal/repositories"
	"github.com/joblane/verification-service/internal/utils"
)

// VerificationCleanupService handles purging expired OTP codes.
type VerificationCleanupService interface {
	// CleanupDaily deletes expired verification codes.
	CleanupDaily(ctx context.Context) error
}

type verificationCleanupService struct {
	otpRepo repositories.EmailVerificationRepository
}

func NewVerificationCleanupService(otpRepo repositories.EmailVerificationRepository) VerificationCleanupService {
	return &verificationCleanupService{otpRepo: otpRepo}
}

// CleanupDaily deletes expired verification codes and logs any errors encountered.
func (s *verificationCleanupService) CleanupDaily(ctx context.Context) error {
	logger := utils.Logger

	if err := s.otpRepo.CleanupExpired(ctx); err != nil {
		logger.WithError(err).Error("Failed to cleanup employer_email_verification_codes")
		return err
	}

	logger.Info("Daily verification-codes cleanup completed successfully.")
	return nil
}
