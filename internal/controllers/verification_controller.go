package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/joblane/verification-service/internal/dtos"
	"github.com/joblane/verification-service/internal/services"
	"github.com/joblane/verification-service/internal/utils"
)

type VerificationController struct {
	otpService          services.OtpService
	verificationService services.VerificationService
}

func NewVerificationController(
	otpService services.OtpService,
	verificationService services.VerificationService,
) *VerificationController {
	return &VerificationController{
		otpService:          otpService,
		verificationService: verificationService,
	}
}

var verifyValidate = validator.New()

// -------------------
// Record provisioning
// -------------------

func (c *VerificationController) RegisterRecord(w http.ResponseWriter, r *http.Request) {
	employerID, ok := subjectFromContext(r)
	if !ok {
		utils.RespondErrorWithCode(
			w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Missing account identity", nil,
		)
		return
	}

	var req dtos.RegisterRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid payload", nil, err,
		)
		return
	}
	if err := verifyValidate.Struct(req); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeValidation, "A valid email is required", nil, err,
		)
		return
	}

	if err := c.verificationService.CreateRecord(r.Context(), employerID, req.Email, req.CompanyKey); err != nil {
		respondDomainError(w, err, "Failed to provision verification record")
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, dtos.RegisterRecordResponse{Message: "Verification record ready"})
}

// -------------------
// OTP Endpoints
// -------------------

func (c *VerificationController) SendOtp(w http.ResponseWriter, r *http.Request) {
	employerID, ok := subjectFromContext(r)
	if !ok {
		utils.RespondErrorWithCode(
			w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Missing account identity", nil,
		)
		return
	}

	clientIP := utils.ClientIP(r)
	if err := c.otpService.RequestOtp(r.Context(), employerID, clientIP); err != nil {
		respondDomainError(w, err, "Failed to send verification code")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, dtos.SendOtpResponse{Message: "Verification code sent"})
}

func (c *VerificationController) VerifyOtp(w http.ResponseWriter, r *http.Request) {
	employerID, ok := subjectFromContext(r)
	if !ok {
		utils.RespondErrorWithCode(
			w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Missing account identity", nil,
		)
		return
	}

	var req dtos.VerifyOtpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid payload", nil, err,
		)
		return
	}
	if err := verifyValidate.Struct(req); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeValidation, "Invalid code format", nil, err,
		)
		return
	}

	level, err := c.otpService.VerifyOtp(r.Context(), employerID, req.Otp)
	if err != nil {
		respondDomainError(w, err, "Verification failed")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, dtos.VerifyOtpResponse{Message: "Email verified", Level: level})
}

// -------------------
// Upload Endpoints
// -------------------

func (c *VerificationController) UploadIDCard(w http.ResponseWriter, r *http.Request) {
	employerID, ok := subjectFromContext(r)
	if !ok {
		utils.RespondErrorWithCode(
			w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Missing account identity", nil,
		)
		return
	}

	var req dtos.UploadIDCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid payload", nil, err,
		)
		return
	}
	if err := verifyValidate.Struct(req); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeValidation, "Missing file or content type", nil, err,
		)
		return
	}

	upload, err := decodeUpload(req.FileBase64, req.ContentType)
	if err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeValidation, "File is not valid base64", nil, err,
		)
		return
	}

	if err := c.verificationService.UploadIDCard(r.Context(), employerID, upload); err != nil {
		respondDomainError(w, err, "Failed to upload ID card")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, dtos.UploadIDCardResponse{Status: "PENDING"})
}

func (c *VerificationController) UploadDocument(w http.ResponseWriter, r *http.Request) {
	employerID, ok := subjectFromContext(r)
	if !ok {
		utils.RespondErrorWithCode(
			w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Missing account identity", nil,
		)
		return
	}

	var req dtos.UploadDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid payload", nil, err,
		)
		return
	}
	if err := verifyValidate.Struct(req); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeValidation, "Missing document type, file, or content type", nil, err,
		)
		return
	}

	upload, err := decodeUpload(req.FileBase64, req.ContentType)
	if err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeValidation, "File is not valid base64", nil, err,
		)
		return
	}

	doc, err := c.verificationService.UploadDocument(r.Context(), employerID, req.DocType, upload)
	if err != nil {
		respondDomainError(w, err, "Failed to upload document")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, dtos.UploadDocumentResponse{
		DocumentID: doc.ID,
		Status:     string(doc.Status),
	})
}

// -------------------
// Status
// -------------------

func (c *VerificationController) GetStatus(w http.ResponseWriter, r *http.Request) {
	employerID, ok := subjectFromContext(r)
	if !ok {
		utils.RespondErrorWithCode(
			w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Missing account identity", nil,
		)
		return
	}

	snapshot, err := c.verificationService.GetStatus(r.Context(), employerID)
	if err != nil {
		respondDomainError(w, err, "Failed to load verification status")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, snapshot)
}
