package controllers

import (
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/joblane/verification-service/internal/middleware"
	"github.com/joblane/verification-service/internal/storage"
	"github.com/joblane/verification-service/internal/utils"
)

// subjectFromContext parses the authenticated account ID placed on the
// context by the auth middleware.
func subjectFromContext(r *http.Request) (uuid.UUID, bool) {
	userID, ok := r.Context().Value(middleware.ContextKeyUserID).(string)
	if !ok || userID == "" {
		return uuid.Nil, false
	}
	parsed, err := uuid.Parse(userID)
	if err != nil {
		return uuid.Nil, false
	}
	return parsed, true
}

// decodeUpload turns a base64 payload into a storage.Upload.
func decodeUpload(fileBase64, contentType string) (storage.Upload, error) {
	data, err := base64.StdEncoding.DecodeString(fileBase64)
	if err != nil {
		return storage.Upload{}, err
	}
	return storage.Upload{Data: data, ContentType: contentType}, nil
}

// respondDomainError maps service-layer sentinel errors onto the wire
// taxonomy. Anything unmapped is an internal error.
func respondDomainError(w http.ResponseWriter, err error, fallbackMessage string) {
	switch {
	case errors.Is(err, utils.ErrValidation):
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeValidation, "Invalid input", nil, err,
		)
	case errors.Is(err, utils.ErrInvalidOtp):
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidOtp, "The code you entered is incorrect", nil,
		)
	case errors.Is(err, utils.ErrOtpExpired):
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeOtpExpired, "No valid code found. Please request a new one.", nil,
		)
	case errors.Is(err, utils.ErrInvalidTransition):
		utils.RespondErrorWithCode(
			w, http.StatusConflict, utils.ErrCodeInvalidTransition, "The item is not awaiting review", nil,
		)
	case errors.Is(err, utils.ErrRowVersionConflict):
		utils.RespondErrorWithCode(
			w, http.StatusConflict, utils.ErrCodeRowVersionConflict, "The record was updated concurrently. Please retry.", nil, err,
		)
	case errors.Is(err, utils.ErrRateLimitExceeded):
		utils.RespondErrorWithCode(
			w, http.StatusTooManyRequests, utils.ErrCodeRateLimitExceeded, "Too many requests. Please try again later.", nil,
		)
	case errors.Is(err, utils.ErrNotFound):
		utils.RespondErrorWithCode(
			w, http.StatusNotFound, utils.ErrCodeNotFound, "Record not found", nil,
		)
	case errors.Is(err, utils.ErrForbidden):
		utils.RespondErrorWithCode(
			w, http.StatusForbidden, utils.ErrCodeForbidden, "You do not have access to this record", nil,
		)
	case errors.Is(err, utils.ErrExternalServiceFailure):
		utils.RespondErrorWithCode(
			w, http.StatusFailedDependency, utils.ErrCodeExternalServiceFailure, "An external service failed. Please try again.", nil, err,
		)
	default:
		utils.RespondErrorWithCode(
			w, http.StatusInternalServerError, utils.ErrCodeInternal, fallbackMessage, nil, err,
		)
	}
}
