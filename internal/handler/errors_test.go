package handler

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stemsi/exstem-assess/internal/lifecycle"
	"github.com/stemsi/exstem-assess/internal/repository"
	"github.com/stemsi/exstem-assess/internal/response"
	"github.com/stemsi/exstem-assess/internal/service"
	"github.com/stretchr/testify/assert"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   response.ErrCode
	}{
		{"not found", fmt.Errorf("get: %w", repository.ErrNotFound), http.StatusNotFound, response.ErrNotFound},
		{"wrapped twice", fmt.Errorf("transaction: %w", fmt.Errorf("submit attempt x: %w", lifecycle.ErrInvalidAttemptState)), http.StatusConflict, response.ErrInvalidAttemptState},
		{"limit", lifecycle.ErrAttemptLimitExceeded, http.StatusConflict, response.ErrAttemptLimitExceeded},
		{"owner", service.ErrNotAttemptOwner, http.StatusForbidden, response.ErrNotAttemptOwner},
		{"definition", fmt.Errorf("%w: bad options", service.ErrInvalidDefinition), http.StatusBadRequest, response.ErrInvalidDefinition},
		{"score", lifecycle.ErrScoreOutOfRange, http.StatusBadRequest, response.ErrScoreOutOfRange},
		{"unknown", fmt.Errorf("connection reset"), http.StatusInternalServerError, response.ErrInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := classifyError(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}
