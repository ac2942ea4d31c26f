package types

import (
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// BirthdayLayout is the only accepted birthday format.
const BirthdayLayout = "2006-01-02"

type SignUpStudentRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Birthday string `json:"birthday"`
}

type SignUpCompanyRequest struct {
	CNPJ             string `json:"cnpj"`
	Email            string `json:"email"`
	Password         string `json:"password"`
	Name             string `json:"name"`
	Phone            string `json:"phone"`
	BusinessCategory string `json:"businessCategory"`
}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RequestPasswordResetRequest struct {
	Email string `json:"email"`
}

type ConfirmPasswordResetRequest struct {
	Token       string `json:"token"`
	Email       string `json:"email"`
	NewPassword string `json:"newPassword"`
}

type AccessTokenResponse struct {
	AccessToken string `json:"accessToken"`
}

type SignInResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type ProfileResponse struct {
	ID               uint64   `json:"id"`
	Role             string   `json:"role"`
	Email            string   `json:"email"`
	Name             string   `json:"name"`
	Birthday         string   `json:"birthday,omitempty"`
	Phone            string   `json:"phone,omitempty"`
	CNPJ             string   `json:"cnpj,omitempty"`
	Rating           *float64 `json:"rating,omitempty"`
	BusinessCategory string   `json:"businessCategory,omitempty"`
}

func NewSignUpStudentRequestFromContext(ctx echo.Context) (*SignUpStudentRequest, error) {
	var body SignUpStudentRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	return &body, nil
}

func (r *SignUpStudentRequest) Validate() error {
	if err := requireFields(map[string]string{
		"email":    r.Email,
		"password": r.Password,
		"name":     r.Name,
		"birthday": r.Birthday,
	}, "email", "password", "name", "birthday"); err != nil {
		return err
	}
	if err := validateEmail(r.Email); err != nil {
		return err
	}
	if _, err := time.Parse(BirthdayLayout, strings.TrimSpace(r.Birthday)); err != nil {
		return errors.New("birthday must be a date formatted as YYYY-MM-DD")
	}

	return nil
}

func NewSignUpCompanyRequestFromContext(ctx echo.Context) (*SignUpCompanyRequest, error) {
	var body SignUpCompanyRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	return &body, nil
}

func (r *SignUpCompanyRequest) Validate() error {
	if err := requireFields(map[string]string{
		"cnpj":     r.CNPJ,
		"email":    r.Email,
		"password": r.Password,
		"name":     r.Name,
		"phone":    r.Phone,
	}, "cnpj", "email", "password", "name", "phone"); err != nil {
		return err
	}
	if err := validateEmail(r.Email); err != nil {
		return err
	}
	if !IsMobilePhoneBR(r.Phone) {
		return errors.New("phone must be a brazilian mobile number")
	}

	return nil
}

func NewSignInRequestFromContext(ctx echo.Context) (*SignInRequest, error) {
	var body SignInRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	return &body, nil
}

func (r *SignInRequest) Validate() error {
	if strings.TrimSpace(r.Email) == "" || strings.TrimSpace(r.Password) == "" {
		return errors.New("email and password are required")
	}

	return validateEmail(r.Email)
}

func NewRequestPasswordResetRequestFromContext(ctx echo.Context) (*RequestPasswordResetRequest, error) {
	var body RequestPasswordResetRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	return &body, nil
}

func (r *RequestPasswordResetRequest) Validate() error {
	if strings.TrimSpace(r.Email) == "" {
		return errors.New("email is required")
	}

	return validateEmail(r.Email)
}

func NewConfirmPasswordResetRequestFromContext(ctx echo.Context) (*ConfirmPasswordResetRequest, error) {
	var body ConfirmPasswordResetRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	return &body, nil
}

func (r *ConfirmPasswordResetRequest) Validate() error {
	if strings.TrimSpace(r.Token) == "" || strings.TrimSpace(r.Email) == "" || r.NewPassword == "" {
		return errors.New("token, email and newPassword are required")
	}

	return nil
}

// IsMobilePhoneBR accepts an optional +55 country code, a two digit area
// code and a nine digit number starting with 9. Spaces, dashes and
// parentheses are ignored.
func IsMobilePhoneBR(phone string) bool {
	digits := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')':
			return -1
		}
		return r
	}, strings.TrimSpace(phone))

	digits = strings.TrimPrefix(digits, "+55")
	if len(digits) == 13 && strings.HasPrefix(digits, "55") {
		digits = digits[2:]
	}
	if len(digits) != 11 {
		return false
	}
	for _, ch := range digits {
		if ch < '0' || ch > '9' {
			return false
		}
	}

	return digits[0] != '0' && digits[1] != '0' && digits[2] == '9'
}

func requireFields(values map[string]string, order ...string) error {
	var missing []string
	for _, field := range order {
		if strings.TrimSpace(values[field]) == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return errors.New(strings.Join(missing, ", ") + " required")
	}
	return nil
}

func validateEmail(email string) error {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil || addr.Address != strings.TrimSpace(email) {
		return errors.New("email must be a valid address")
	}
	return nil
}
