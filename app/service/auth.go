package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/estagio-app/ms-go-auth/app/entity"
	"github.com/estagio-app/ms-go-auth/app/mailer"
	"github.com/estagio-app/ms-go-auth/app/metrics"
	"github.com/estagio-app/ms-go-auth/app/repository"
	"github.com/estagio-app/ms-go-auth/app/types"
	"github.com/estagio-app/ms-go-auth/config"

	"github.com/sirupsen/logrus"
)

const (
	opSignUpStudent        = "sign_up_student"
	opSignUpCompany        = "sign_up_company"
	opSignIn               = "sign_in"
	opRefreshAccessToken   = "refresh_access_token"
	opRequestPasswordReset = "request_password_reset"
	opConfirmPasswordReset = "confirm_password_reset"

	mailTimeout = 15 * time.Second

	// dummyPassword is hashed once and verified on unknown emails so that
	// sign-in takes comparable time whether or not the principal exists.
	dummyPassword = "estagio-timing-equalizer"
)

// ResetMailer delivers a freshly issued reset token to its owner.
type ResetMailer interface {
	SendPasswordReset(ctx context.Context, to, token string) error
}

type AuthService interface {
	SignUpStudent(ctx context.Context, req *types.SignUpStudentRequest) (*types.AccessTokenResponse, error)
	SignUpCompany(ctx context.Context, req *types.SignUpCompanyRequest) (*types.AccessTokenResponse, error)
	SignIn(ctx context.Context, req *types.SignInRequest) (*types.SignInResponse, error)
	RefreshAccessToken(ctx context.Context, refreshToken string) (*types.AccessTokenResponse, error)
	RequestPasswordReset(ctx context.Context, req *types.RequestPasswordResetRequest) error
	ConfirmPasswordReset(ctx context.Context, req *types.ConfirmPasswordResetRequest) error
	ValidateAccessToken(tokenString string) (*Claims, error)
	Me(ctx context.Context, claims *Claims) (*types.ProfileResponse, error)
}

type AsyncRunner func(task func())

type AuthServiceOption func(*authService)

type authService struct {
	students    studentStore
	companies   companyStore
	identities  *IdentityResolver
	cfg         *config.Config
	hasher      PasswordHasher
	codec       *TokenCodec
	mailer      ResetMailer
	asyncRunner AsyncRunner

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(
	students studentStore,
	companies companyStore,
	cfg *config.Config,
	opts ...AuthServiceOption,
) AuthService {
	svc := &authService{
		students:   students,
		companies:  companies,
		identities: NewIdentityResolver(students, companies),
		cfg:        cfg,
		hasher:     NewArgon2idHasher(DefaultArgon2idParams()),
		codec:      NewTokenCodec(),
		mailer:     mailer.NewLogMailer(cfg.Mail.ResetURL),
		asyncRunner: func(task func()) {
			go task()
		},
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func WithAsyncRunner(runner AsyncRunner) AuthServiceOption {
	return func(s *authService) {
		if runner != nil {
			s.asyncRunner = runner
		}
	}
}

func WithHasher(hasher PasswordHasher) AuthServiceOption {
	return func(s *authService) {
		if hasher != nil {
			s.hasher = hasher
		}
	}
}

func WithTokenCodec(codec *TokenCodec) AuthServiceOption {
	return func(s *authService) {
		if codec != nil {
			s.codec = codec
		}
	}
}

func WithResetMailer(m ResetMailer) AuthServiceOption {
	return func(s *authService) {
		if m != nil {
			s.mailer = m
		}
	}
}

func (s *authService) SignUpStudent(ctx context.Context, req *types.SignUpStudentRequest) (res *types.AccessTokenResponse, err error) {
	defer s.observe(opSignUpStudent, time.Now(), &err)

	email := NormalizeEmail(req.Email)
	name := strings.TrimSpace(req.Name)
	if email == "" || name == "" {
		return nil, fmt.Errorf("%w: email and name are required", ErrValidation)
	}
	if err = s.validatePassword(req.Password); err != nil {
		return nil, err
	}

	birthday, err := time.Parse(types.BirthdayLayout, strings.TrimSpace(req.Birthday))
	if err != nil {
		return nil, fmt.Errorf("%w: birthday must be formatted as YYYY-MM-DD", ErrValidation)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.codec.Now()
	student := &entity.Student{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Birthday:     birthday,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err = s.students.Create(ctx, student); err != nil {
		return nil, translateStoreError(err)
	}

	accessToken, err := s.signAccessToken(entity.NewStudentPrincipal(student))
	if err != nil {
		return nil, err
	}

	return &types.AccessTokenResponse{AccessToken: accessToken}, nil
}

func (s *authService) SignUpCompany(ctx context.Context, req *types.SignUpCompanyRequest) (res *types.AccessTokenResponse, err error) {
	defer s.observe(opSignUpCompany, time.Now(), &err)

	email := NormalizeEmail(req.Email)
	name := strings.TrimSpace(req.Name)
	phone := strings.TrimSpace(req.Phone)
	if email == "" || name == "" || phone == "" {
		return nil, fmt.Errorf("%w: email, name and phone are required", ErrValidation)
	}
	if err = s.validatePassword(req.Password); err != nil {
		return nil, err
	}
	if !IsCNPJValid(req.CNPJ) {
		return nil, ErrInvalidCNPJ
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.codec.Now()
	company := &entity.Company{
		Email:            email,
		PasswordHash:     hash,
		Name:             name,
		Phone:            phone,
		CNPJ:             NormalizeCNPJ(req.CNPJ),
		Rating:           s.cfg.Company.DefaultRating,
		BusinessCategory: strings.TrimSpace(req.BusinessCategory),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err = s.companies.Create(ctx, company); err != nil {
		return nil, translateStoreError(err)
	}

	accessToken, err := s.signAccessToken(entity.NewCompanyPrincipal(company))
	if err != nil {
		return nil, err
	}

	return &types.AccessTokenResponse{AccessToken: accessToken}, nil
}

func (s *authService) SignIn(ctx context.Context, req *types.SignInRequest) (res *types.SignInResponse, err error) {
	defer s.observe(opSignIn, time.Now(), &err)

	principal, err := s.identities.FindByEmail(ctx, NormalizeEmail(req.Email))
	if err != nil {
		return nil, err
	}
	if principal == nil {
		s.hasher.Verify(s.timingHash(), req.Password)
		return nil, ErrInvalidCredentials
	}
	if !s.hasher.Verify(principal.PasswordHash(), req.Password) {
		return nil, ErrInvalidCredentials
	}

	accessToken, err := s.signAccessToken(principal)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.codec.Sign(principalClaims(principal), s.cfg.JWT.RefreshSecret, s.cfg.JWT.RefreshTokenTTL)
	if err != nil {
		return nil, err
	}

	return &types.SignInResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func (s *authService) RefreshAccessToken(ctx context.Context, refreshToken string) (res *types.AccessTokenResponse, err error) {
	defer s.observe(opRefreshAccessToken, time.Now(), &err)

	claims, err := s.codec.Verify(refreshToken, s.cfg.JWT.RefreshSecret)
	if err != nil {
		return nil, err
	}
	if !claims.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, claims.Role)
	}

	principal, err := s.identities.FindByRole(ctx, claims.Role, claims.Email)
	if err != nil {
		return nil, err
	}
	if principal == nil {
		return nil, ErrInvalidCredentials
	}

	accessToken, err := s.signAccessToken(principal)
	if err != nil {
		return nil, err
	}

	return &types.AccessTokenResponse{AccessToken: accessToken}, nil
}

func (s *authService) RequestPasswordReset(ctx context.Context, req *types.RequestPasswordResetRequest) (err error) {
	defer s.observe(opRequestPasswordReset, time.Now(), &err)

	principal, err := s.identities.FindByEmail(ctx, NormalizeEmail(req.Email))
	if err != nil {
		return err
	}
	if principal == nil {
		return ErrNotFound
	}

	token, err := s.codec.Sign(Claims{
		Email: principal.Email(),
		Role:  principal.Role,
	}, s.cfg.Tokens.ResetSecret, s.cfg.Tokens.ResetTTL)
	if err != nil {
		return err
	}

	if err = s.identities.UpdateResetToken(ctx, principal, token); err != nil {
		return err
	}

	to := principal.Email()
	s.asyncRunner(func() {
		mailCtx, cancel := context.WithTimeout(context.Background(), mailTimeout)
		defer cancel()

		if mailErr := s.mailer.SendPasswordReset(mailCtx, to, token); mailErr != nil {
			logrus.WithError(mailErr).WithField("email", to).Error("failed to deliver password reset")
		}
	})

	return nil
}

func (s *authService) ConfirmPasswordReset(ctx context.Context, req *types.ConfirmPasswordResetRequest) (err error) {
	defer s.observe(opConfirmPasswordReset, time.Now(), &err)

	decoded, err := s.codec.DecodeUnverified(req.Token)
	if err != nil {
		return err
	}
	if s.codec.Expired(decoded) {
		return fmt.Errorf("%w: reset token has expired", ErrInvalidToken)
	}

	claims, err := s.codec.Verify(req.Token, s.cfg.Tokens.ResetSecret)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidToken, err.Error())
	}
	if NormalizeEmail(req.Email) != claims.Email {
		return fmt.Errorf("%w: email does not match token", ErrInvalidToken)
	}
	if !claims.Role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidToken, claims.Role)
	}
	if err = s.validatePassword(req.NewPassword); err != nil {
		return err
	}

	principal, err := s.identities.FindByRole(ctx, claims.Role, claims.Email)
	if err != nil {
		return err
	}
	if principal == nil {
		return fmt.Errorf("%w: principal no longer exists", ErrInvalidToken)
	}
	if stored := principal.ResetToken(); !stored.Valid || stored.String != req.Token {
		return fmt.Errorf("%w: reset token was superseded or used", ErrInvalidToken)
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return err
	}

	rows, err := s.identities.UpdatePasswordIfResetToken(ctx, principal, hash, req.Token)
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: reset token was consumed concurrently", ErrInvalidToken)
	}

	return nil
}

func (s *authService) ValidateAccessToken(tokenString string) (*Claims, error) {
	claims, err := s.codec.Verify(tokenString, s.cfg.JWT.AccessSecret)
	if err != nil {
		return nil, err
	}
	if !claims.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, claims.Role)
	}
	if _, err = claims.PrincipalID(); err != nil {
		return nil, err
	}

	return claims, nil
}

func (s *authService) Me(ctx context.Context, claims *Claims) (*types.ProfileResponse, error) {
	id, err := claims.PrincipalID()
	if err != nil {
		return nil, err
	}

	principal, err := s.identities.FindByID(ctx, claims.Role, id)
	if err != nil {
		if errors.Is(err, ErrUnknownRole) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidToken, err.Error())
		}
		return nil, err
	}
	if principal == nil {
		return nil, ErrInvalidCredentials
	}

	return newProfileResponse(principal), nil
}

func (s *authService) validatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("%w: password is required", ErrWeakPassword)
	}
	if err := s.cfg.Password.Policy.Validate(password); err != nil {
		return fmt.Errorf("%w: %s", ErrWeakPassword, err.Error())
	}
	return nil
}

func (s *authService) signAccessToken(principal *entity.Principal) (string, error) {
	return s.codec.Sign(principalClaims(principal), s.cfg.JWT.AccessSecret, s.cfg.JWT.AccessTokenTTL)
}

func (s *authService) timingHash() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash(dummyPassword)
		if err != nil {
			logrus.WithError(err).Warn("failed to prepare timing hash")
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

func (s *authService) observe(operation string, started time.Time, err *error) {
	metrics.ObserveOperation(operation, outcome(*err), time.Since(started))
}

func principalClaims(principal *entity.Principal) Claims {
	claims := Claims{
		Email: principal.Email(),
		Role:  principal.Role,
	}
	claims.Subject = strconv.FormatUint(principal.ID(), 10)
	return claims
}

func translateStoreError(err error) error {
	if errors.Is(err, repository.ErrDuplicateKey) {
		return fmt.Errorf("%w: %s", ErrDuplicateCredential, err.Error())
	}
	return err
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case IsValidationError(err):
		return "invalid_input"
	case errors.Is(err, ErrDuplicateCredential):
		return "duplicate"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case IsTokenError(err):
		return "invalid_token"
	default:
		return metrics.OutcomeFailure
	}
}

func newProfileResponse(principal *entity.Principal) *types.ProfileResponse {
	res := &types.ProfileResponse{
		ID:    principal.ID(),
		Role:  string(principal.Role),
		Email: principal.Email(),
		Name:  principal.Name(),
	}

	if principal.IsCompany() {
		rating := principal.Company.Rating
		res.Phone = principal.Company.Phone
		res.CNPJ = principal.Company.CNPJ
		res.Rating = &rating
		res.BusinessCategory = principal.Company.BusinessCategory
		return res
	}

	res.Birthday = principal.Student.Birthday.Format(types.BirthdayLayout)
	return res
}
