package service

import "errors"

var (
	ErrValidation          = errors.New("validation failed")
	ErrWeakPassword        = errors.New("password does not meet policy requirements")
	ErrInvalidCNPJ         = errors.New("invalid cnpj")
	ErrDuplicateCredential = errors.New("credentials taken")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrNotFound            = errors.New("principal not found")
	ErrInvalidToken        = errors.New("invalid token")
	ErrTokenExpired        = errors.New("token has expired")
)

// IsValidationError reports whether err should be answered as a bad request.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrWeakPassword) ||
		errors.Is(err, ErrInvalidCNPJ)
}

// IsTokenError reports whether err came from a rejected or expired token.
func IsTokenError(err error) bool {
	return errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrTokenExpired)
}
