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

// ExamHandler handles exam management endpoints.
type ExamHandler struct {
	examService *service.ExamService
	log         zerolog.Logger
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(examService *service.ExamService, log zerolog.Logger) *ExamHandler {
	return &ExamHandler{
		examService: examService,
		log:         log.With().Str("component", "exam_handler").Logger(),
	}
}

// CreateExam godoc
// POST /api/v1/admin/exams
// Creates a new draft exam or homework.
func (h *ExamHandler) CreateExam(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req model.CreateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.examService.Create(c.Request.Context(), claims.UserID, &req)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"exam": exam})
}

// GetExam godoc
// GET /api/v1/admin/exams/:id
func (h *ExamHandler) GetExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	exam, err := h.examService.GetByID(c.Request.Context(), id)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}
	if exam.AuthorID != claims.UserID {
		failWithError(c, h.log, service.ErrNotExamAuthor)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"exam": exam})
}

// AttachQuestions godoc
// PUT /api/v1/admin/exams/:id/questions
// Replaces the question list of a draft exam.
func (h *ExamHandler) AttachQuestions(c *gin.Context) {
	claims := middleware.GetClaims(c)
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req model.AttachQuestionsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.examService.AttachQuestions(c.Request.Context(), id, claims.UserID, &req); err != nil {
		failWithError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "questions attached"})
}

// PublishExam godoc
// POST /api/v1/admin/exams/:id/publish
func (h *ExamHandler) PublishExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	if err := h.examService.Publish(c.Request.Context(), id, claims.UserID); err != nil {
		failWithError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "exam published successfully"})
}

// ArchiveExam godoc
// POST /api/v1/admin/exams/:id/archive
func (h *ExamHandler) ArchiveExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	if err := h.examService.Archive(c.Request.Context(), id, claims.UserID); err != nil {
		failWithError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "exam archived"})
}

// ListSubmissions godoc
// GET /api/v1/admin/exams/:id/submissions?status=pending&page=1&per_page=10
func (h *ExamHandler) ListSubmissions(c *gin.Context) {
	claims := middleware.GetClaims(c)
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))

	var status *model.SubmissionStatus
	if raw := c.Query("status"); raw != "" {
		s := model.SubmissionStatus(raw)
		status = &s
	}

	subs, pagination, err := h.examService.ListSubmissions(c.Request.Context(), id, claims.UserID, status, page, perPage)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"submissions": subs}, pagination)
}
