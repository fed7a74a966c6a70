package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-assess/internal/config"
	"github.com/stemsi/exstem-assess/internal/model"
	"github.com/stemsi/exstem-assess/internal/response"
	"github.com/stemsi/exstem-assess/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(auth *service.AuthService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	ok := func(c *gin.Context) { c.Status(http.StatusNoContent) }

	r.GET("/student", RequireStudentJWT(auth), ok)
	r.GET("/ws", RequireStudentWSAuth(auth), ok)
	admin := r.Group("/admin", RequireAdminJWT(auth))
	admin.GET("/grade", RequirePermission(model.PermissionSubmissionsGrade), ok)
	admin.GET("/review", RequireAnyPermission(model.PermissionSubmissionsRead, model.PermissionSubmissionsGrade), ok)
	return r
}

func TestAuthMiddleware(t *testing.T) {
	auth := service.NewAuthService(&config.Config{JWTSecret: "test-secret", JWTExpiry: time.Hour})
	other := service.NewAuthService(&config.Config{JWTSecret: "other-secret", JWTExpiry: time.Hour})

	student, err := auth.GenerateStudentToken(7, 1)
	require.NoError(t, err)
	reader, err := auth.GenerateAdminToken(1, []string{string(model.PermissionSubmissionsRead)})
	require.NoError(t, err)
	forged, err := other.GenerateStudentToken(7, 1)
	require.NoError(t, err)

	r := newTestRouter(auth)

	tests := []struct {
		name   string
		path   string
		header string
		status int
	}{
		{"student bearer", "/student", "Bearer " + student, http.StatusNoContent},
		{"student query", "/student?token=" + student, "", http.StatusNoContent},
		{"missing token", "/student", "", http.StatusUnauthorized},
		{"wrong secret", "/student", "Bearer " + forged, http.StatusUnauthorized},
		{"instructor on student route", "/student", "Bearer " + reader, http.StatusForbidden},
		{"ws query token", "/ws?token=" + student, "", http.StatusNoContent},
		{"ws ignores header", "/ws", "Bearer " + student, http.StatusUnauthorized},
		{"student on admin route", "/admin/review", "Bearer " + student, http.StatusForbidden},
		{"missing permission", "/admin/grade", "Bearer " + reader, http.StatusForbidden},
		{"any permission", "/admin/review", "bearer " + reader, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestAuthMiddlewareErrorCodes(t *testing.T) {
	auth := service.NewAuthService(&config.Config{JWTSecret: "test-secret", JWTExpiry: time.Hour})
	lapsed := service.NewAuthService(&config.Config{JWTSecret: "test-secret", JWTExpiry: -time.Minute})

	expired, err := lapsed.GenerateStudentToken(7, 1)
	require.NoError(t, err)

	r := newTestRouter(auth)

	tests := []struct {
		name   string
		header string
		code   response.ErrCode
	}{
		{"expired token", "Bearer " + expired, response.ErrTokenExpired},
		{"garbage token", "Bearer not-a-jwt", response.ErrTokenInvalid},
		{"no token", "", response.ErrTokenRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/student", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			var body struct {
				Error struct {
					Code response.ErrCode `json:"code"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Error.Code)
		})
	}
}
