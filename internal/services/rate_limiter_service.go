package services

import (
	"context"
	"fmt"

	"github.com/joblane/verification-service/internal/config"
	"github.com/joblane/verification-service/internal/repositories"
	"github.com/joblane/verification-service/internal/utils"
)

// RateLimiterService provides a high-level interface for checking OTP
// delivery rate limits.
type RateLimiterService interface {
	CheckEmailRateLimits(ctx context.Context, ip, emailAddress string) error
}

type rateLimiterService struct {
	repo repositories.RateLimitRepository
	cfg  *config.Config
}

func NewRateLimiterService(repo repositories.RateLimitRepository, cfg *config.Config) RateLimiterService {
	return &rateLimiterService{repo: repo, cfg: cfg}
}

// CheckEmailRateLimits checks global, per-IP, and per-email limits for email requests.
func (s *rateLimiterService) CheckEmailRateLimits(ctx context.Context, ip, emailAddress string) error {
	// 1. Global limit
	globalKey := "email:global"
	allowed, err := s.repo.IncrementAndCheck(ctx, globalKey, s.cfg.GlobalEmailLimitPerHour, s.cfg.RateLimitWindow)
	if err != nil {
		return err
	}
	if !allowed {
		utils.Logger.Warnf("Global email rate limit exceeded (key: %s)", globalKey)
		return utils.ErrRateLimitExceeded
	}

	// 2. Per-IP limit
	ipKey := fmt.Sprintf("email:ip:%s", ip)
	allowed, err = s.repo.IncrementAndCheck(ctx, ipKey, s.cfg.EmailLimitPerIPPerHour, s.cfg.RateLimitWindow)
	if err != nil {
		return err
	}
	if !allowed {
		utils.Logger.Warnf("Per-IP email rate limit exceeded (key: %s)", ipKey)
		return utils.ErrRateLimitExceeded
	}

	// 3. Per-destination limit
	emailKey := fmt.Sprintf("email:address:%s", emailAddress)
	allowed, err = s.repo.IncrementAndCheck(ctx, emailKey, s.cfg.EmailLimitPerEmailPerHour, s.cfg.RateLimitWindow)
	if err != nil {
		return err
	}
	if !allowed {
		utils.Logger.Warnf("Per-email rate limit exceeded (key: %s)", emailKey)
		return utils.ErrRateLimitExceeded
	}

	return nil
}
