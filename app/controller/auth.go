package controller

import (
	"errors"
	"net/http"

	"github.com/estagio-app/ms-go-auth/app/dto"
	"github.com/estagio-app/ms-go-auth/app/middleware"
	"github.com/estagio-app/ms-go-auth/app/service"
	"github.com/estagio-app/ms-go-auth/app/types"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const internalServerError = "internal server error"

type AuthController struct {
	authService service.AuthService
}

func NewAuthController(authService service.AuthService) *AuthController {
	return &AuthController{authService: authService}
}

func (c *AuthController) SignUpStudent(ctx echo.Context) error {
	req, err := types.NewSignUpStudentRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to bind student sign up request")
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}

	if err = req.Validate(); err != nil {
		logrus.WithField("email", req.Email).Debug("Student sign up validation failed")
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	}

	logrus.WithField("email", req.Email).Info("Student sign up request received")
	result, err := c.authService.SignUpStudent(ctx.Request().Context(), req)
	if err != nil {
		if service.IsValidationError(err) {
			logrus.WithField("email", req.Email).Warn("Student sign up rejected")
			return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		}
		if errors.Is(err, service.ErrDuplicateCredential) {
			logrus.WithField("email", req.Email).Warn("Student sign up failed: credentials taken")
			return ctx.JSON(http.StatusForbidden, dto.ErrorResponse{Error: "credentials taken"})
		}
		logrus.WithError(err).WithField("email", req.Email).Error("Student sign up failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: internalServerError})
	}

	logrus.WithFields(logrus.Fields{
		"email": req.Email,
		"role":  "STUDENT",
	}).Info("Student registered")
	return ctx.JSON(http.StatusCreated, result)
}

func (c *AuthController) SignUpCompany(ctx echo.Context) error {
	req, err := types.NewSignUpCompanyRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to bind company sign up request")
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}

	if err = req.Validate(); err != nil {
		logrus.WithField("email", req.Email).Debug("Company sign up validation failed")
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	}

	logrus.WithField("email", req.Email).Info("Company sign up request received")
	result, err := c.authService.SignUpCompany(ctx.Request().Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCNPJ) {
			logrus.WithField("email", req.Email).Warn("Company sign up failed: invalid cnpj")
			return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid cnpj"})
		}
		if service.IsValidationError(err) {
			logrus.WithField("email", req.Email).Warn("Company sign up rejected")
			return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		}
		if errors.Is(err, service.ErrDuplicateCredential) {
			logrus.WithField("email", req.Email).Warn("Company sign up failed: credentials taken")
			return ctx.JSON(http.StatusForbidden, dto.ErrorResponse{Error: "credentials taken"})
		}
		logrus.WithError(err).WithField("email", req.Email).Error("Company sign up failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: internalServerError})
	}

	logrus.WithFields(logrus.Fields{
		"email": req.Email,
		"role":  "COMPANY",
	}).Info("Company registered")
	return ctx.JSON(http.StatusCreated, result)
}

func (c *AuthController) SignIn(ctx echo.Context) error {
	req, err := types.NewSignInRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to bind sign in request")
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}

	if err = req.Validate(); err != nil {
		logrus.WithField("email", req.Email).Debug("Sign in validation failed")
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	}

	logrus.WithField("email", req.Email).Info("Sign in request received")
	result, err := c.authService.SignIn(ctx.Request().Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			logrus.WithField("email", req.Email).Warn("Sign in failed: invalid credentials")
			return ctx.JSON(http.StatusForbidden, dto.ErrorResponse{Error: "invalid credentials"})
		}
		logrus.WithError(err).WithField("email", req.Email).Error("Sign in failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: internalServerError})
	}

	logrus.WithField("email", req.Email).Info("Sign in successful")
	return ctx.JSON(http.StatusOK, result)
}

func (c *AuthController) Refresh(ctx echo.Context) error {
	refreshToken, ok := ctx.Get(middleware.RefreshTokenKey).(string)
	if !ok || refreshToken == "" {
		logrus.Warn("Refresh failed: missing refresh token in context")
		return ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "unauthorized"})
	}

	logrus.Info("Refresh request received")
	result, err := c.authService.RefreshAccessToken(ctx.Request().Context(), refreshToken)
	if err != nil {
		if service.IsTokenError(err) {
			logrus.WithError(err).Warn("Refresh failed: invalid or expired token")
			return ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "invalid or expired refresh token"})
		}
		if errors.Is(err, service.ErrInvalidCredentials) {
			logrus.Warn("Refresh failed: principal no longer exists")
			return ctx.JSON(http.StatusForbidden, dto.ErrorResponse{Error: "invalid credentials"})
		}
		logrus.WithError(err).Error("Refresh failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: internalServerError})
	}

	logrus.Info("Refresh successful")
	return ctx.JSON(http.StatusOK, result)
}

func (c *AuthController) RequestPasswordReset(ctx echo.Context) error {
	req, err := types.NewRequestPasswordResetRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to bind password reset request")
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}

	if err = req.Validate(); err != nil {
		logrus.Debug("Password reset request validation failed")
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	}

	logrus.WithField("email", req.Email).Info("Password reset requested")
	if err = c.authService.RequestPasswordReset(ctx.Request().Context(), req); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			logrus.WithField("email", req.Email).Warn("Password reset requested for unknown email")
			return ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "user not found"})
		}
		logrus.WithError(err).WithField("email", req.Email).Error("Password reset request failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: internalServerError})
	}

	logrus.WithField("email", req.Email).Info("Password reset token issued")
	return ctx.NoContent(http.StatusNoContent)
}

func (c *AuthController) ConfirmPasswordReset(ctx echo.Context) error {
	req, err := types.NewConfirmPasswordResetRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to bind password reset confirmation")
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}

	if err = req.Validate(); err != nil {
		logrus.Debug("Password reset confirmation validation failed")
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	}

	logrus.WithField("email", req.Email).Info("Password reset confirmation received")
	if err = c.authService.ConfirmPasswordReset(ctx.Request().Context(), req); err != nil {
		if service.IsTokenError(err) {
			logrus.WithError(err).WithField("email", req.Email).Warn("Password reset failed: invalid token")
			return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid or expired reset token"})
		}
		if service.IsValidationError(err) {
			logrus.WithField("email", req.Email).Warn("Password reset failed: weak password")
			return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		}
		logrus.WithError(err).WithField("email", req.Email).Error("Password reset failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: internalServerError})
	}

	logrus.WithField("email", req.Email).Info("Password reset successful")
	return ctx.NoContent(http.StatusNoContent)
}

func (c *AuthController) Me(ctx echo.Context) error {
	claims, ok := ctx.Get(middleware.ClaimsKey).(*service.Claims)
	if !ok {
		logrus.Warn("Me failed: missing claims in context")
		return ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "unauthorized"})
	}

	profile, err := c.authService.Me(ctx.Request().Context(), claims)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) || service.IsTokenError(err) {
			logrus.WithFields(logrus.Fields{
				"principal_id": claims.Subject,
				"role":         claims.Role,
			}).Warn("Me failed: principal no longer exists")
			return ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "unauthorized"})
		}
		logrus.WithError(err).WithField("principal_id", claims.Subject).Error("Me failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: internalServerError})
	}

	logrus.WithField("principal_id", profile.ID).Debug("Profile loaded")
	return ctx.JSON(http.StatusOK, profile)
}
