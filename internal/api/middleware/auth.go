package middleware

import (
	"net/http"
	"strings"

	"ctchen222/Tic-Tac-Toe-Solo/internal/api/response"

	"github.com/gin-gonic/gin"
)

// TokenVerifier resolves a token to the session ID it was issued for.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// RequireSessionToken rejects requests whose bearer token was not issued for the :id session.
func RequireSessionToken(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := BearerToken(c.GetHeader("Authorization"))
		if !ok {
			response.ErrorResponse(c, http.StatusUnauthorized, "missing bearer token")
			c.Abort()
			return
		}

		sessionID, err := verifier.Verify(token)
		if err != nil {
			response.ErrorResponse(c, http.StatusUnauthorized, err.Error())
			c.Abort()
			return
		}
		if sessionID != c.Param("id") {
			response.ErrorResponse(c, http.StatusForbidden, "token does not grant access to this session")
			c.Abort()
			return
		}

		c.Next()
	}
}
