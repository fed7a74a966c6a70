package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stemsi/exstem-assess/internal/response"
	"github.com/stemsi/exstem-assess/internal/service"
)

// ContextKeyClaims is the Gin context key for JWT claims.
const ContextKeyClaims = "claims"

var errNoToken = errors.New("no bearer token")

// tokenSource extracts the raw JWT from a request.
type tokenSource func(c *gin.Context) string

// bearerOrQuery reads the Authorization header and falls back to ?token=,
// which EventSource (SSE) clients need because they cannot set headers.
func bearerOrQuery(c *gin.Context) string {
	if scheme, token, ok := strings.Cut(c.GetHeader("Authorization"), " "); ok && strings.EqualFold(scheme, "bearer") {
		return strings.TrimSpace(token)
	}
	return c.Query("token")
}

// queryOnly reads ?token=, as browsers cannot set headers on a WebSocket upgrade.
func queryOnly(c *gin.Context) string {
	return c.Query("token")
}

// RequireStudentJWT admits student tokens sent as a bearer header or a
// token query parameter.
func RequireStudentJWT(authService *service.AuthService) gin.HandlerFunc {
	return requireToken(authService, bearerOrQuery, service.TokenTypeStudent, response.ErrStudentAccessOnly)
}

// RequireAdminJWT admits instructor tokens sent as a bearer header or a
// token query parameter.
func RequireAdminJWT(authService *service.AuthService) gin.HandlerFunc {
	return requireToken(authService, bearerOrQuery, service.TokenTypeAdmin, response.ErrAdminAccessOnly)
}

// RequireStudentWSAuth admits student tokens passed as ?token= on a
// WebSocket upgrade request.
func RequireStudentWSAuth(authService *service.AuthService) gin.HandlerFunc {
	return requireToken(authService, queryOnly, service.TokenTypeStudent, response.ErrStudentAccessOnly)
}

func requireToken(authService *service.AuthService, source tokenSource, want service.TokenType, wrongType response.ErrCode) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := validate(authService, source(c))
		switch {
		case errors.Is(err, errNoToken):
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		case errors.Is(err, jwt.ErrTokenExpired):
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenExpired)
			return
		case err != nil:
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
			return
		case claims.TokenType != want:
			response.AbortFail(c, http.StatusForbidden, wrongType)
			return
		}
		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

func validate(authService *service.AuthService, token string) (*service.Claims, error) {
	if token == "" {
		return nil, errNoToken
	}
	return authService.ValidateToken(token)
}

// GetClaims retrieves the JWT claims from the Gin context.
func GetClaims(c *gin.Context) *service.Claims {
	claims, _ := c.Value(ContextKeyClaims).(*service.Claims)
	return claims
}
