package service_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/estagio-app/ms-go-auth/app/entity"
	"github.com/estagio-app/ms-go-auth/app/service"
)

type fakeStudentStore struct {
	byEmail map[string]*entity.Student
	calls   []string
	err     error
}

func (f *fakeStudentStore) Create(context.Context, *entity.Student) error { return nil }

func (f *fakeStudentStore) FindByEmail(_ context.Context, email string) (*entity.Student, error) {
	f.calls = append(f.calls, "student:"+email)
	if f.err != nil {
		return nil, f.err
	}
	return f.byEmail[email], nil
}

func (f *fakeStudentStore) FindByID(_ context.Context, id uint64) (*entity.Student, error) {
	for _, student := range f.byEmail {
		if student.ID == id {
			return student, nil
		}
	}
	return nil, nil
}

func (f *fakeStudentStore) UpdateResetToken(_ context.Context, id uint64, token sql.NullString) error {
	f.calls = append(f.calls, "student:reset")
	return nil
}

func (f *fakeStudentStore) UpdatePasswordIfResetToken(context.Context, uint64, string, string) (int64, error) {
	f.calls = append(f.calls, "student:swap")
	return 1, nil
}

type fakeCompanyStore struct {
	byEmail map[string]*entity.Company
	calls   []string
}

func (f *fakeCompanyStore) Create(context.Context, *entity.Company) error { return nil }

func (f *fakeCompanyStore) FindByEmail(_ context.Context, email string) (*entity.Company, error) {
	f.calls = append(f.calls, "company:"+email)
	return f.byEmail[email], nil
}

func (f *fakeCompanyStore) FindByID(_ context.Context, id uint64) (*entity.Company, error) {
	for _, company := range f.byEmail {
		if company.ID == id {
			return company, nil
		}
	}
	return nil, nil
}

func (f *fakeCompanyStore) UpdateResetToken(_ context.Context, id uint64, token sql.NullString) error {
	f.calls = append(f.calls, "company:reset")
	return nil
}

func (f *fakeCompanyStore) UpdatePasswordIfResetToken(context.Context, uint64, string, string) (int64, error) {
	f.calls = append(f.calls, "company:swap")
	return 0, nil
}

func TestIdentityResolver_FindByEmail_ProbesStudentFirst(t *testing.T) {
	students := &fakeStudentStore{byEmail: map[string]*entity.Student{
		"shared@example.com": {ID: 1, Email: "shared@example.com"},
	}}
	companies := &fakeCompanyStore{byEmail: map[string]*entity.Company{
		"shared@example.com": {ID: 2, Email: "shared@example.com"},
		"rh@acme.com":        {ID: 3, Email: "rh@acme.com"},
	}}
	resolver := service.NewIdentityResolver(students, companies)

	principal, err := resolver.FindByEmail(context.Background(), "shared@example.com")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if principal.Role != entity.RoleStudent || principal.ID() != 1 {
		t.Fatalf("expected student to win, got %+v", principal)
	}
	if len(companies.calls) != 0 {
		t.Fatalf("expected company store not to be probed, got %v", companies.calls)
	}

	principal, err = resolver.FindByEmail(context.Background(), "rh@acme.com")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if !principal.IsCompany() || principal.ID() != 3 {
		t.Fatalf("expected company principal, got %+v", principal)
	}
}

func TestIdentityResolver_FindByEmail_NotFound(t *testing.T) {
	resolver := service.NewIdentityResolver(&fakeStudentStore{}, &fakeCompanyStore{})

	principal, err := resolver.FindByEmail(context.Background(), "ghost@example.com")
	if err != nil || principal != nil {
		t.Fatalf("expected nil, nil; got %+v %v", principal, err)
	}
}

func TestIdentityResolver_FindByEmail_StopsOnError(t *testing.T) {
	storeErr := errors.New("connection refused")
	companies := &fakeCompanyStore{}
	resolver := service.NewIdentityResolver(&fakeStudentStore{err: storeErr}, companies)

	if _, err := resolver.FindByEmail(context.Background(), "ana@example.com"); !errors.Is(err, storeErr) {
		t.Fatalf("expected store error, got %v", err)
	}
	if len(companies.calls) != 0 {
		t.Fatalf("expected probe to stop at the failing store")
	}
}

func TestIdentityResolver_FindByRole(t *testing.T) {
	students := &fakeStudentStore{byEmail: map[string]*entity.Student{
		"shared@example.com": {ID: 1, Email: "shared@example.com"},
	}}
	companies := &fakeCompanyStore{byEmail: map[string]*entity.Company{
		"shared@example.com": {ID: 2, Email: "shared@example.com"},
	}}
	resolver := service.NewIdentityResolver(students, companies)

	principal, err := resolver.FindByRole(context.Background(), entity.RoleCompany, "shared@example.com")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if !principal.IsCompany() || principal.ID() != 2 {
		t.Fatalf("expected company principal, got %+v", principal)
	}
	if len(students.calls) != 0 {
		t.Fatalf("expected student store not to be consulted, got %v", students.calls)
	}

	if _, err = resolver.FindByRole(context.Background(), entity.Role("ADMIN"), "x@example.com"); !errors.Is(err, service.ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}
}

func TestIdentityResolver_FindByID(t *testing.T) {
	students := &fakeStudentStore{byEmail: map[string]*entity.Student{
		"ana@example.com": {ID: 5, Email: "ana@example.com"},
	}}
	resolver := service.NewIdentityResolver(students, &fakeCompanyStore{})

	principal, err := resolver.FindByID(context.Background(), entity.RoleStudent, 5)
	if err != nil || principal == nil || principal.Email() != "ana@example.com" {
		t.Fatalf("unexpected result: %+v %v", principal, err)
	}

	principal, err = resolver.FindByID(context.Background(), entity.RoleCompany, 5)
	if err != nil || principal != nil {
		t.Fatalf("expected no company with id 5, got %+v %v", principal, err)
	}
}

func TestIdentityResolver_WritesGoToTheRoleStore(t *testing.T) {
	students := &fakeStudentStore{}
	companies := &fakeCompanyStore{}
	resolver := service.NewIdentityResolver(students, companies)

	company := entity.NewCompanyPrincipal(&entity.Company{ID: 9, Email: "rh@acme.com"})
	if err := resolver.UpdateResetToken(context.Background(), company, "token"); err != nil {
		t.Fatalf("update reset token failed: %v", err)
	}
	rows, err := resolver.UpdatePasswordIfResetToken(context.Background(), company, "hash", "token")
	if err != nil || rows != 0 {
		t.Fatalf("unexpected swap result: %d %v", rows, err)
	}

	if len(students.calls) != 0 {
		t.Fatalf("expected student store untouched, got %v", students.calls)
	}
	if len(companies.calls) != 2 || companies.calls[0] != "company:reset" || companies.calls[1] != "company:swap" {
		t.Fatalf("unexpected company calls: %v", companies.calls)
	}
}
