package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assess/internal/middleware"
	"github.com/stemsi/exstem-assess/internal/model"
	"github.com/stemsi/exstem-assess/internal/response"
	"github.com/stemsi/exstem-assess/internal/service"
	"github.com/stemsi/exstem-assess/internal/validator"
)

// GradingHandler handles instructor review and manual grading.
type GradingHandler struct {
	gradingService *service.GradingService
	log            zerolog.Logger
}

// NewGradingHandler creates a new GradingHandler.
func NewGradingHandler(gradingService *service.GradingService, log zerolog.Logger) *GradingHandler {
	return &GradingHandler{
		gradingService: gradingService,
		log:            log.With().Str("component", "grading_handler").Logger(),
	}
}

// PendingQueue godoc
// GET /api/v1/admin/grading/pending?limit=50
func (h *GradingHandler) PendingQueue(c *gin.Context) {
	claims := middleware.GetClaims(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	subs, err := h.gradingService.PendingQueue(c.Request.Context(), claims.UserID, limit)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"submissions": subs})
}

// ReviewSubmission godoc
// GET /api/v1/admin/submissions/:id
// Returns the attempt with every answer rendered for review.
func (h *GradingHandler) ReviewSubmission(c *gin.Context) {
	claims := middleware.GetClaims(c)
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	review, err := h.gradingService.Review(c.Request.Context(), id, claims.UserID)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"review": review})
}

// GradeAnswer godoc
// PUT /api/v1/admin/submissions/:id/answers/:question_id
func (h *GradingHandler) GradeAnswer(c *gin.Context) {
	claims := middleware.GetClaims(c)
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	questionID, ok := uuidParam(c, "question_id")
	if !ok {
		return
	}

	var req model.GradeAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	answer, err := h.gradingService.GradeAnswer(c.Request.Context(), id, questionID, claims.UserID, &req)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"answer": answer})
}

// RecomputeHighest godoc
// POST /api/v1/admin/exams/:id/recompute-highest
func (h *GradingHandler) RecomputeHighest(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	changed, err := h.gradingService.RecomputeHighest(c.Request.Context(), id)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"changed": changed})
}
