package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/joblane/verification-service/internal/dtos"
	"github.com/joblane/verification-service/internal/services"
	"github.com/joblane/verification-service/internal/utils"
)

const (
	defaultPendingPageSize = 25
	maxPendingPageSize     = 100
)

type AdminVerificationController struct {
	reviewService services.AdminReviewService
}

func NewAdminVerificationController(reviewService services.AdminReviewService) *AdminVerificationController {
	return &AdminVerificationController{
		reviewService: reviewService,
	}
}

// -------------------
// Pending queue
// -------------------

func (c *AdminVerificationController) ListPending(w http.ResponseWriter, r *http.Request) {
	limit := defaultPendingPageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			utils.RespondErrorWithCode(
				w, http.StatusBadRequest, utils.ErrCodeValidation, "Invalid limit", nil,
			)
			return
		}
		limit = parsed
	}
	if limit > maxPendingPageSize {
		limit = maxPendingPageSize
	}

	offset := 0
	if raw := r.URL.Query().Get("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			utils.RespondErrorWithCode(
				w, http.StatusBadRequest, utils.ErrCodeValidation, "Invalid offset", nil,
			)
			return
		}
		offset = parsed
	}

	resp, err := c.reviewService.ListPending(r.Context(), limit, offset)
	if err != nil {
		respondDomainError(w, err, "Failed to list pending verifications")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// -------------------
// Decisions
// -------------------

func (c *AdminVerificationController) DecideIDCard(w http.ResponseWriter, r *http.Request) {
	adminID, ok := subjectFromContext(r)
	if !ok {
		utils.RespondErrorWithCode(
			w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Missing account identity", nil,
		)
		return
	}

	employerID, err := uuid.Parse(mux.Vars(r)["accountId"])
	if err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeValidation, "Invalid account ID", nil,
		)
		return
	}

	req, ok := c.decodeDecision(w, r)
	if !ok {
		return
	}

	record, err := c.reviewService.DecideIDCard(
		r.Context(), adminID, employerID, req.Status == "APPROVED", req.RejectionReason,
	)
	if err != nil {
		respondDomainError(w, err, "Failed to record ID card decision")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, dtos.DecisionResponse{
		Message: "Decision recorded",
		Record:  *record,
	})
}

func (c *AdminVerificationController) DecideDocument(w http.ResponseWriter, r *http.Request) {
	adminID, ok := subjectFromContext(r)
	if !ok {
		utils.RespondErrorWithCode(
			w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Missing account identity", nil,
		)
		return
	}

	vars := mux.Vars(r)
	employerID, err := uuid.Parse(vars["accountId"])
	if err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeValidation, "Invalid account ID", nil,
		)
		return
	}
	documentID, err := uuid.Parse(vars["documentId"])
	if err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeValidation, "Invalid document ID", nil,
		)
		return
	}

	req, ok := c.decodeDecision(w, r)
	if !ok {
		return
	}

	record, err := c.reviewService.DecideDocument(
		r.Context(), adminID, employerID, documentID, req.Status == "APPROVED", req.RejectionReason,
	)
	if err != nil {
		respondDomainError(w, err, "Failed to record document decision")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, dtos.DecisionResponse{
		Message: "Decision recorded",
		Record:  *record,
	})
}

func (c *AdminVerificationController) decodeDecision(w http.ResponseWriter, r *http.Request) (dtos.DecisionRequest, bool) {
	var req dtos.DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid payload", nil, err,
		)
		return req, false
	}
	if err := verifyValidate.Struct(req); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeValidation, "Status must be APPROVED or REJECTED", nil, err,
		)
		return req, false
	}
	return req, true
}
