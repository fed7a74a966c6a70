package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assess/internal/middleware"
	"github.com/stemsi/exstem-assess/internal/model"
	"github.com/stemsi/exstem-assess/internal/response"
	"github.com/stemsi/exstem-assess/internal/service"
	"github.com/stemsi/exstem-assess/internal/validator"
)

// AttemptHandler handles the student attempt endpoints.
type AttemptHandler struct {
	attemptService *service.AttemptService
	log            zerolog.Logger
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(attemptService *service.AttemptService, log zerolog.Logger) *AttemptHandler {
	return &AttemptHandler{
		attemptService: attemptService,
		log:            log.With().Str("component", "attempt_handler").Logger(),
	}
}

// StartAttempt godoc
// POST /api/v1/student/exams/:exam_id/attempts
// Resumes the in-progress attempt or starts the next one.
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	examID, ok := uuidParam(c, "exam_id")
	if !ok {
		return
	}

	sub, created, err := h.attemptService.Start(c.Request.Context(), examID, claims.UserID)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	response.Success(c, status, gin.H{"attempt": h.view(sub), "progress": sub.ProgressData, "resumed": !created})
}

// ListAttempts godoc
// GET /api/v1/student/exams/:exam_id/attempts
func (h *AttemptHandler) ListAttempts(c *gin.Context) {
	claims := middleware.GetClaims(c)
	examID, ok := uuidParam(c, "exam_id")
	if !ok {
		return
	}

	views, err := h.attemptService.ListMine(c.Request.Context(), examID, claims.UserID)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"attempts": views})
}

// GetAttempt godoc
// GET /api/v1/student/attempts/:id
// Returns the attempt with its latest autosave, for resuming after reconnect.
func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	sub, err := h.attemptService.State(c.Request.Context(), id, claims.UserID)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"attempt": h.view(sub), "progress": sub.ProgressData})
}

// GetPaper godoc
// GET /api/v1/student/attempts/:id/paper
func (h *AttemptHandler) GetPaper(c *gin.Context) {
	claims := middleware.GetClaims(c)
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	paper, err := h.attemptService.Paper(c.Request.Context(), id, claims.UserID)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"paper": paper})
}

// SaveProgress godoc
// PUT /api/v1/student/attempts/:id/progress
func (h *AttemptHandler) SaveProgress(c *gin.Context) {
	claims := middleware.GetClaims(c)
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req model.SaveProgressRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	snap, err := h.attemptService.SaveProgress(c.Request.Context(), id, claims.UserID, &req)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"saved_at": snap.SavedAt})
}

// SubmitAttempt godoc
// POST /api/v1/student/attempts/:id/submit
func (h *AttemptHandler) SubmitAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req model.SubmitAttemptRequest
	// An empty body submits the autosaved answers.
	if c.Request.ContentLength != 0 {
		if fields := validator.Bind(c, &req); fields != nil {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
			return
		}
	}

	sub, err := h.attemptService.Submit(c.Request.Context(), id, claims.UserID, &req)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"attempt": h.view(sub)})
}

// RecordViolation godoc
// POST /api/v1/student/attempts/:id/violations
func (h *AttemptHandler) RecordViolation(c *gin.Context) {
	claims := middleware.GetClaims(c)
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req model.RecordViolationRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	outcome, err := h.attemptService.RecordViolation(c.Request.Context(), id, claims.UserID, &req)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"outcome": outcome})
}

func (h *AttemptHandler) view(sub *model.Submission) model.AttemptView {
	var v model.AttemptView
	if err := copier.Copy(&v, sub); err != nil {
		h.log.Warn().Err(err).Msg("Failed to project attempt")
	}
	return v
}

// uuidParam parses a UUID path parameter, writing a 400 when it is malformed.
func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}
