package middleware

import (
	"net/http"
	"strings"

	"github.com/estagio-app/ms-go-auth/app/dto"
	"github.com/estagio-app/ms-go-auth/app/service"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// Keys under which the middleware stores request-scoped values.
const (
	ClaimsKey         = "claims"
	PrincipalIDKey    = "principal_id"
	PrincipalEmailKey = "principal_email"
	PrincipalRoleKey  = "principal_role"
	RefreshTokenKey   = "refresh_token"
)

type accessTokenValidator interface {
	ValidateAccessToken(tokenString string) (*service.Claims, error)
}

type AuthMiddleware struct {
	authService accessTokenValidator
}

func NewAuthMiddleware(authService accessTokenValidator) *AuthMiddleware {
	return &AuthMiddleware{authService: authService}
}

func (m *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		tokenString, ok := bearerToken(c)
		if !ok {
			return unauthorized(c)
		}

		claims, err := m.authService.ValidateAccessToken(tokenString)
		if err != nil {
			logrus.WithError(err).Debug("Invalid or expired access token")
			return c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "invalid or expired token"})
		}

		principalID, _ := claims.PrincipalID()
		c.Set(ClaimsKey, claims)
		c.Set(PrincipalIDKey, principalID)
		c.Set(PrincipalEmailKey, claims.Email)
		c.Set(PrincipalRoleKey, claims.Role)

		return next(c)
	}
}

// RequireRefreshToken only extracts the bearer value. Verification happens
// in the refresh operation, which owns the refresh secret.
func (m *AuthMiddleware) RequireRefreshToken(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		tokenString, ok := bearerToken(c)
		if !ok {
			return unauthorized(c)
		}

		c.Set(RefreshTokenKey, tokenString)
		return next(c)
	}
}

func bearerToken(c echo.Context) (string, bool) {
	authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
	if authHeader == "" {
		logrus.Debug("Missing authorization header")
		return "", false
	}

	parts := strings.Fields(authHeader)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		logrus.Debug("Invalid authorization header format")
		return "", false
	}

	return parts[1], true
}

func unauthorized(c echo.Context) error {
	if c.Request().Header.Get(echo.HeaderAuthorization) == "" {
		return c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "missing authorization header"})
	}
	return c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "invalid authorization header format"})
}
