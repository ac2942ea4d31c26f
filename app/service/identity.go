package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/estagio-app/ms-go-auth/app/entity"
)

var ErrUnknownRole = errors.New("unknown role")

type studentStore interface {
	Create(ctx context.Context, student *entity.Student) error
	FindByEmail(ctx context.Context, email string) (*entity.Student, error)
	FindByID(ctx context.Context, id uint64) (*entity.Student, error)
	UpdateResetToken(ctx context.Context, id uint64, token sql.NullString) error
	UpdatePasswordIfResetToken(ctx context.Context, id uint64, passwordHash, expectedToken string) (int64, error)
}

type companyStore interface {
	Create(ctx context.Context, company *entity.Company) error
	FindByEmail(ctx context.Context, email string) (*entity.Company, error)
	FindByID(ctx context.Context, id uint64) (*entity.Company, error)
	UpdateResetToken(ctx context.Context, id uint64, token sql.NullString) error
	UpdatePasswordIfResetToken(ctx context.Context, id uint64, passwordHash, expectedToken string) (int64, error)
}

// identityStrategy binds one role to the store holding its principals.
type identityStrategy struct {
	role          entity.Role
	findByEmail   func(ctx context.Context, email string) (*entity.Principal, error)
	findByID      func(ctx context.Context, id uint64) (*entity.Principal, error)
	setResetToken func(ctx context.Context, id uint64, token sql.NullString) error
	swapPassword  func(ctx context.Context, id uint64, passwordHash, expectedToken string) (int64, error)
}

// IdentityResolver probes the role stores in a fixed order. Students are
// tried before companies, so a student wins when both hold the same email.
type IdentityResolver struct {
	strategies []identityStrategy
}

func NewIdentityResolver(students studentStore, companies companyStore) *IdentityResolver {
	return &IdentityResolver{
		strategies: []identityStrategy{
			studentStrategy(students),
			companyStrategy(companies),
		},
	}
}

func studentStrategy(store studentStore) identityStrategy {
	wrap := func(student *entity.Student, err error) (*entity.Principal, error) {
		if err != nil || student == nil {
			return nil, err
		}
		return entity.NewStudentPrincipal(student), nil
	}

	return identityStrategy{
		role: entity.RoleStudent,
		findByEmail: func(ctx context.Context, email string) (*entity.Principal, error) {
			return wrap(store.FindByEmail(ctx, email))
		},
		findByID: func(ctx context.Context, id uint64) (*entity.Principal, error) {
			return wrap(store.FindByID(ctx, id))
		},
		setResetToken: store.UpdateResetToken,
		swapPassword:  store.UpdatePasswordIfResetToken,
	}
}

func companyStrategy(store companyStore) identityStrategy {
	wrap := func(company *entity.Company, err error) (*entity.Principal, error) {
		if err != nil || company == nil {
			return nil, err
		}
		return entity.NewCompanyPrincipal(company), nil
	}

	return identityStrategy{
		role: entity.RoleCompany,
		findByEmail: func(ctx context.Context, email string) (*entity.Principal, error) {
			return wrap(store.FindByEmail(ctx, email))
		},
		findByID: func(ctx context.Context, id uint64) (*entity.Principal, error) {
			return wrap(store.FindByID(ctx, id))
		},
		setResetToken: store.UpdateResetToken,
		swapPassword:  store.UpdatePasswordIfResetToken,
	}
}

// FindByEmail returns the first principal matching email, or nil, nil.
func (r *IdentityResolver) FindByEmail(ctx context.Context, email string) (*entity.Principal, error) {
	for _, strategy := range r.strategies {
		principal, err := strategy.findByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		if principal != nil {
			return principal, nil
		}
	}
	return nil, nil
}

func (r *IdentityResolver) FindByRole(ctx context.Context, role entity.Role, email string) (*entity.Principal, error) {
	strategy, err := r.strategyFor(role)
	if err != nil {
		return nil, err
	}
	return strategy.findByEmail(ctx, email)
}

func (r *IdentityResolver) FindByID(ctx context.Context, role entity.Role, id uint64) (*entity.Principal, error) {
	strategy, err := r.strategyFor(role)
	if err != nil {
		return nil, err
	}
	return strategy.findByID(ctx, id)
}

func (r *IdentityResolver) UpdateResetToken(ctx context.Context, principal *entity.Principal, token string) error {
	strategy, err := r.strategyFor(principal.Role)
	if err != nil {
		return err
	}
	return strategy.setResetToken(ctx, principal.ID(), sql.NullString{String: token, Valid: true})
}

// UpdatePasswordIfResetToken stores passwordHash only while the principal
// still holds expectedToken. It reports the number of rows changed.
func (r *IdentityResolver) UpdatePasswordIfResetToken(ctx context.Context, principal *entity.Principal, passwordHash, expectedToken string) (int64, error) {
	strategy, err := r.strategyFor(principal.Role)
	if err != nil {
		return 0, err
	}
	return strategy.swapPassword(ctx, principal.ID(), passwordHash, expectedToken)
}

func (r *IdentityResolver) strategyFor(role entity.Role) (identityStrategy, error) {
	for _, strategy := range r.strategies {
		if strategy.role == role {
			return strategy, nil
		}
	}
	return identityStrategy{}, fmt.Errorf("%w: %q", ErrUnknownRole, role)
}
