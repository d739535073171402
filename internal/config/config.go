package config

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joblane/verification-service/internal/utils"
)

const AppName = "verification-service"

// Config holds all application configuration.
type Config struct {
	OrganizationName string
	AppPort          string
	AppUrl           string
	DBUrl            string

	RSAPublicKey *rsa.PublicKey

	SendGridAPIKey      string
	SendgridFromEmail   string
	SendgridSandboxMode bool

	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	CloudinaryFolder    string

	VerificationCodeLength int
	VerificationCodeExpiry time.Duration
	OtpResendCooldown      time.Duration
	MaxOtpAttempts         int

	EmailLimitPerIPPerHour    int
	EmailLimitPerEmailPerHour int
	GlobalEmailLimitPerHour   int
	RateLimitWindow           time.Duration

	MaxUploadBytes int64
}

// Policy defaults. Override via environment where a matching variable exists.
const (
	DefaultVerificationCodeLength    = 6
	DefaultVerificationCodeExpiry    = 5 * time.Minute
	DefaultOtpResendCooldown         = 60 * time.Second
	DefaultMaxOtpAttempts            = 5
	DefaultEmailLimitPerIPPerHour    = 50
	DefaultEmailLimitPerEmailPerHour = 5
	DefaultGlobalEmailLimitPerHour   = 2000
	DefaultRateLimitWindow           = 1 * time.Hour
	DefaultMaxUploadBytes            = 5 << 20 // 5 MB
)

// LoadConfig reads configuration from the environment and returns a *Config.
// Missing required variables are fatal.
func LoadConfig() *Config {
	cfg := &Config{
		OrganizationName: envOr("ORGANIZATION_NAME", "JobLane"),
		AppPort:          envOr("APP_PORT", "8084"),
		AppUrl:           envOr("APP_URL", "http://localhost:3000"),
		DBUrl:            mustEnv("DB_URL"),

		SendGridAPIKey:      mustEnv("SENDGRID_API_KEY"),
		SendgridFromEmail:   mustEnv("SENDGRID_FROM_EMAIL"),
		SendgridSandboxMode: envBool("SENDGRID_SANDBOX_MODE"),

		CloudinaryCloudName: mustEnv("CLOUDINARY_CLOUD_NAME"),
		CloudinaryAPIKey:    mustEnv("CLOUDINARY_API_KEY"),
		CloudinaryAPISecret: mustEnv("CLOUDINARY_API_SECRET"),
		CloudinaryFolder:    os.Getenv("CLOUDINARY_FOLDER"),

		VerificationCodeLength: envInt("VERIFICATION_CODE_LENGTH", DefaultVerificationCodeLength),
		VerificationCodeExpiry: envDuration("VERIFICATION_CODE_EXPIRY", DefaultVerificationCodeExpiry),
		OtpResendCooldown:      envDuration("OTP_RESEND_COOLDOWN", DefaultOtpResendCooldown),
		MaxOtpAttempts:         envInt("MAX_OTP_ATTEMPTS", DefaultMaxOtpAttempts),

		EmailLimitPerIPPerHour:    envInt("EMAIL_LIMIT_PER_IP_PER_HOUR", DefaultEmailLimitPerIPPerHour),
		EmailLimitPerEmailPerHour: envInt("EMAIL_LIMIT_PER_EMAIL_PER_HOUR", DefaultEmailLimitPerEmailPerHour),
		GlobalEmailLimitPerHour:   envInt("GLOBAL_EMAIL_LIMIT_PER_HOUR", DefaultGlobalEmailLimitPerHour),
		RateLimitWindow:           envDuration("RATE_LIMIT_WINDOW", DefaultRateLimitWindow),

		MaxUploadBytes: int64(envInt("MAX_UPLOAD_BYTES", DefaultMaxUploadBytes)),
	}

	pub, err := parseRSAPublicKeyBase64(mustEnv("RSA_PUBLIC_KEY_BASE64"))
	if err != nil {
		utils.Logger.WithError(err).Fatal("Failed to parse RSA_PUBLIC_KEY_BASE64")
	}
	cfg.RSAPublicKey = pub

	return cfg
}

func parseRSAPublicKeyBase64(b64 string) (*rsa.PublicKey, error) {
	pemBytes, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New("no PEM block found in RSA public key")
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	pub, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("PEM block is not an RSA public key")
	}
	return pub, nil
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		utils.Logger.Fatalf("Required environment variable %s is not set", key)
	}
	return v
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string) bool {
	v, _ := strconv.ParseBool(os.Getenv(key))
	return v
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		utils.Logger.Warnf("Invalid integer for %s, using default %d", key, fallback)
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		utils.Logger.Warnf("Invalid duration for %s, using default %s", key, fallback)
	}
	return fallback
}
