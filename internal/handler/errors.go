package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assess/internal/codec"
	"github.com/stemsi/exstem-assess/internal/lifecycle"
	"github.com/stemsi/exstem-assess/internal/repository"
	"github.com/stemsi/exstem-assess/internal/response"
	"github.com/stemsi/exstem-assess/internal/service"
)

// errorMapping ties a domain error to its HTTP status and API code.
type errorMapping struct {
	err    error
	status int
	code   response.ErrCode
}

var errorMappings = []errorMapping{
	{repository.ErrNotFound, http.StatusNotFound, response.ErrNotFound},
	{service.ErrQuestionNotFound, http.StatusNotFound, response.ErrNotFound},
	{service.ErrNotAttemptOwner, http.StatusForbidden, response.ErrNotAttemptOwner},
	{service.ErrNotExamAuthor, http.StatusForbidden, response.ErrNotAuthor},
	{service.ErrNotQuestionAuthor, http.StatusForbidden, response.ErrNotAuthor},
	{service.ErrNoQuestions, http.StatusBadRequest, response.ErrNoQuestions},
	{service.ErrExamNotDraft, http.StatusConflict, response.ErrExamNotDraft},
	{service.ErrExamNotPublished, http.StatusConflict, response.ErrExamNotPublished},
	{service.ErrInvalidDefinition, http.StatusBadRequest, response.ErrInvalidDefinition},
	{lifecycle.ErrExamNotAvailable, http.StatusForbidden, response.ErrExamNotAvailable},
	{lifecycle.ErrAttemptLimitExceeded, http.StatusConflict, response.ErrAttemptLimitExceeded},
	{lifecycle.ErrInvalidAttemptState, http.StatusConflict, response.ErrInvalidAttemptState},
	{lifecycle.ErrQuestionNotInExam, http.StatusBadRequest, response.ErrQuestionNotInExam},
	{lifecycle.ErrScoreOutOfRange, http.StatusBadRequest, response.ErrScoreOutOfRange},
	{codec.ErrMalformedAnswer, http.StatusBadRequest, response.ErrMalformedAnswer},
}

// classifyError returns the status and code for err, or 500 when err is not
// a known domain error.
func classifyError(err error) (int, response.ErrCode) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, response.ErrInternal
}

// failWithError writes the API error for err. Client errors carry the wrapped
// message as detail; server errors are logged and hidden.
func failWithError(c *gin.Context, log zerolog.Logger, err error) {
	status, code := classifyError(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
		response.Fail(c, status, code)
		return
	}
	response.FailWithDetail(c, status, code, err.Error())
}
