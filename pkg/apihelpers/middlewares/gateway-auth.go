package middlewares

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	jwthandling "github.com/Rupe88/japan-project/pkg/jwt-handling"
)

const (
	HeaderAuthorization = "Authorization"
	HeaderUserID        = "x-user-id"
	HeaderUserEmail     = "x-user-email"
)

const (
	ErrorCodeAuthRequired = "AUTH_REQUIRED"
	ErrorCodeTokenInvalid = "TOKEN_INVALID"
	ErrorCodeConfigError  = "CONFIG_ERROR"
)

// GatewayAuth enforces bearer auth for every route the classifier does not
// mark public. On success the caller identity is attached to the gin context
// and injected as forwarded headers, so the next hop can trust them without
// re-verifying the token.
func GatewayAuth(classifier *RouteClassifier, tokenSignKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if classifier.Classify(c.Request.Method, c.Request.URL.Path) != RouteProtected {
			c.Next()
			return
		}

		token, err := extractBearerToken(c)
		if err != nil {
			slog.Warn("no Authorization token found", slog.String("path", c.Request.URL.Path))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required", "code": ErrorCodeAuthRequired})
			c.Abort()
			return
		}

		if tokenSignKey == "" {
			slog.Error("token sign key is not configured")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "server configuration error", "code": ErrorCodeConfigError})
			c.Abort()
			return
		}

		parsedToken, ok, err := jwthandling.ValidateUserToken(token, tokenSignKey)
		if err != nil || !ok {
			slog.Warn("token validation failed", slog.String("path", c.Request.URL.Path))
			c.JSON(http.StatusForbidden, gin.H{"error": "invalid or expired token", "code": ErrorCodeTokenInvalid})
			c.Abort()
			return
		}

		attachIdentity(c, parsedToken)
		c.Next()
	}
}

// OptionalGatewayAuth attaches the caller identity when a valid token is
// present but never rejects the request.
func OptionalGatewayAuth(tokenSignKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := extractBearerToken(c)
		if err != nil || tokenSignKey == "" {
			c.Next()
			return
		}

		parsedToken, ok, err := jwthandling.ValidateUserToken(token, tokenSignKey)
		if err != nil || !ok {
			c.Next()
			return
		}

		attachIdentity(c, parsedToken)
		c.Next()
	}
}

// RequireAuth validates the bearer token on routes served directly, without
// the classifier in front.
func RequireAuth(tokenSignKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := extractBearerToken(c)
		if err != nil {
			slog.Warn("no Authorization token found", slog.String("path", c.Request.URL.Path))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required", "code": ErrorCodeAuthRequired})
			c.Abort()
			return
		}

		if tokenSignKey == "" {
			slog.Error("token sign key is not configured")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "server configuration error", "code": ErrorCodeConfigError})
			c.Abort()
			return
		}

		parsedToken, ok, err := jwthandling.ValidateUserToken(token, tokenSignKey)
		if err != nil || !ok {
			slog.Warn("token validation failed", slog.String("path", c.Request.URL.Path))
			c.JSON(http.StatusForbidden, gin.H{"error": "invalid or expired token", "code": ErrorCodeTokenInvalid})
			c.Abort()
			return
		}

		attachIdentity(c, parsedToken)
		c.Next()
	}
}

func attachIdentity(c *gin.Context, parsedToken *jwthandling.UserClaims) {
	c.Set("token", c.GetHeader(HeaderAuthorization))
	c.Set("validatedToken", parsedToken)
	c.Request.Header.Set(HeaderUserID, parsedToken.Subject)
	c.Request.Header.Set(HeaderUserEmail, parsedToken.Email)
}

func extractBearerToken(c *gin.Context) (string, error) {
	req := c.Request

	var token string
	tokens, ok := req.Header[HeaderAuthorization]
	if ok && len(tokens) > 0 {
		token = tokens[0]
		token = strings.TrimPrefix(token, "Bearer ")
		if len(token) == 0 {
			return token, errors.New("no token found in Authorization header")
		}
	} else {
		return token, errors.New("no Authorization header found")
	}
	return token, nil
}
