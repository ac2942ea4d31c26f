package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/estagio-app/ms-go-auth/app/entity"
	"github.com/estagio-app/ms-go-auth/app/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
)

const (
	insertStudentQuery        = `(?s)INSERT INTO students \(email, password_hash, name, birthday, created_at, updated_at\)\s+VALUES \(\?, \?, \?, \?, \?, \?\)`
	findStudentByEmailQuery   = `SELECT id, email, password_hash, name, birthday, reset_token, created_at, updated_at FROM students WHERE email = \?`
	findStudentByIDQuery      = `SELECT id, email, password_hash, name, birthday, reset_token, created_at, updated_at FROM students WHERE id = \?`
	updateStudentResetQuery   = `UPDATE students SET reset_token = \?, updated_at = \? WHERE id = \?`
	swapStudentPasswordQuery  = `(?s)UPDATE students SET\s+password_hash = \?,\s+reset_token = NULL,\s+updated_at = \?\s+WHERE id = \? AND reset_token = \?`
	insertCompanyQuery        = `(?s)INSERT INTO companies \(email, password_hash, name, phone, cnpj, rating, business_category, created_at, updated_at\)\s+VALUES \(\?, \?, \?, \?, \?, \?, \?, \?, \?\)`
	findCompanyByEmailQuery   = `SELECT id, email, password_hash, name, phone, cnpj, rating, business_category, reset_token, created_at, updated_at FROM companies WHERE email = \?`
	findCompanyByIDQuery      = `SELECT id, email, password_hash, name, phone, cnpj, rating, business_category, reset_token, created_at, updated_at FROM companies WHERE id = \?`
	updateCompanyResetQuery   = `UPDATE companies SET reset_token = \?, updated_at = \? WHERE id = \?`
	swapCompanyPasswordQuery  = `(?s)UPDATE companies SET\s+password_hash = \?,\s+reset_token = NULL,\s+updated_at = \?\s+WHERE id = \? AND reset_token = \?`
	duplicateEntryErrorNumber = 1062
)

var studentColumns = []string{
	"id",
	"email",
	"password_hash",
	"name",
	"birthday",
	"reset_token",
	"created_at",
	"updated_at",
}

var companyColumns = []string{
	"id",
	"email",
	"password_hash",
	"name",
	"phone",
	"cnpj",
	"rating",
	"business_category",
	"reset_token",
	"created_at",
	"updated_at",
}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, func()) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	return db, mock, func() { _ = db.Close() }
}

func TestStudentRepository_Create(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := repository.NewStudentRepository(db)
	now := time.Now()
	student := &entity.Student{
		Email:        "ana@example.com",
		PasswordHash: "hash",
		Name:         "Ana",
		Birthday:     time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	mock.ExpectExec(insertStudentQuery).
		WithArgs(student.Email, student.PasswordHash, student.Name, student.Birthday, student.CreatedAt, student.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(3, 1))

	if err := repo.Create(context.Background(), student); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if student.ID != 3 {
		t.Fatalf("expected ID 3, got %d", student.ID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestStudentRepository_Create_DuplicateEmail(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := repository.NewStudentRepository(db)
	mock.ExpectExec(insertStudentQuery).
		WillReturnError(&mysql.MySQLError{Number: duplicateEntryErrorNumber, Message: "Duplicate entry 'ana@example.com' for key 'uq_students_email'"})

	err := repo.Create(context.Background(), &entity.Student{Email: "ana@example.com"})
	if !errors.Is(err, repository.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestStudentRepository_Create_OtherErrorPassesThrough(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := repository.NewStudentRepository(db)
	dbErr := &mysql.MySQLError{Number: 1452, Message: "foreign key"}
	mock.ExpectExec(insertStudentQuery).WillReturnError(dbErr)

	err := repo.Create(context.Background(), &entity.Student{Email: "ana@example.com"})
	if errors.Is(err, repository.ErrDuplicateKey) || !errors.Is(err, dbErr) {
		t.Fatalf("expected raw mysql error, got %v", err)
	}
}

func TestStudentRepository_FindByEmail(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := repository.NewStudentRepository(db)
	now := time.Now()
	birthday := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(findStudentByEmailQuery).
		WithArgs("ana@example.com").
		WillReturnRows(sqlmock.NewRows(studentColumns).AddRow(
			uint64(1),
			"ana@example.com",
			"hash",
			"Ana",
			birthday,
			"reset-token",
			now,
			now,
		))

	student, err := repo.FindByEmail(context.Background(), "ana@example.com")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if student == nil || student.ID != 1 || student.Name != "Ana" {
		t.Fatalf("unexpected student: %+v", student)
	}
	if !student.Birthday.Equal(birthday) {
		t.Fatalf("expected birthday %v, got %v", birthday, student.Birthday)
	}
	if !student.ResetToken.Valid || student.ResetToken.String != "reset-token" {
		t.Fatalf("unexpected reset token: %+v", student.ResetToken)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestStudentRepository_FindByEmail_NotFound(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := repository.NewStudentRepository(db)
	mock.ExpectQuery(findStudentByEmailQuery).
		WithArgs("ghost@example.com").
		WillReturnRows(sqlmock.NewRows(studentColumns))

	student, err := repo.FindByEmail(context.Background(), "ghost@example.com")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if student != nil {
		t.Fatalf("expected nil student, got %+v", student)
	}
}

func TestStudentRepository_FindByID(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := repository.NewStudentRepository(db)
	now := time.Now()
	mock.ExpectQuery(findStudentByIDQuery).
		WithArgs(uint64(4)).
		WillReturnRows(sqlmock.NewRows(studentColumns).AddRow(
			uint64(4), "ana@example.com", "hash", "Ana", now, nil, now, now,
		))

	student, err := repo.FindByID(context.Background(), 4)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if student == nil || student.ID != 4 || student.ResetToken.Valid {
		t.Fatalf("unexpected student: %+v", student)
	}
}

func TestStudentRepository_UpdateResetToken(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := repository.NewStudentRepository(db)
	token := sql.NullString{String: "token", Valid: true}
	mock.ExpectExec(updateStudentResetQuery).
		WithArgs(token, sqlmock.AnyArg(), uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.UpdateResetToken(context.Background(), 1, token); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestStudentRepository_UpdatePasswordIfResetToken(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := repository.NewStudentRepository(db)
	mock.ExpectExec(swapStudentPasswordQuery).
		WithArgs("new-hash", sqlmock.AnyArg(), uint64(1), "token").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(swapStudentPasswordQuery).
		WithArgs("new-hash", sqlmock.AnyArg(), uint64(1), "token").
		WillReturnResult(sqlmock.NewResult(0, 0))

	rows, err := repo.UpdatePasswordIfResetToken(context.Background(), 1, "new-hash", "token")
	if err != nil || rows != 1 {
		t.Fatalf("expected 1 row affected, got %d (%v)", rows, err)
	}
	rows, err = repo.UpdatePasswordIfResetToken(context.Background(), 1, "new-hash", "token")
	if err != nil || rows != 0 {
		t.Fatalf("expected 0 rows affected on stale token, got %d (%v)", rows, err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCompanyRepository_Create(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := repository.NewCompanyRepository(db)
	now := time.Now()
	company := &entity.Company{
		Email:            "rh@acme.com",
		PasswordHash:     "hash",
		Name:             "Acme",
		Phone:            "+5511999999999",
		CNPJ:             "11222333000181",
		Rating:           5,
		BusinessCategory: "Technology",
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	mock.ExpectExec(insertCompanyQuery).
		WithArgs(
			company.Email,
			company.PasswordHash,
			company.Name,
			company.Phone,
			company.CNPJ,
			company.Rating,
			company.BusinessCategory,
			company.CreatedAt,
			company.UpdatedAt,
		).
		WillReturnResult(sqlmock.NewResult(2, 1))

	if err := repo.Create(context.Background(), company); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if company.ID != 2 {
		t.Fatalf("expected ID 2, got %d", company.ID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCompanyRepository_Create_DuplicateCNPJ(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := repository.NewCompanyRepository(db)
	mock.ExpectExec(insertCompanyQuery).
		WillReturnError(&mysql.MySQLError{Number: duplicateEntryErrorNumber, Message: "Duplicate entry for key 'uq_companies_cnpj'"})

	err := repo.Create(context.Background(), &entity.Company{Email: "rh@acme.com", CNPJ: "11222333000181"})
	if !errors.Is(err, repository.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestCompanyRepository_FindByEmail(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := repository.NewCompanyRepository(db)
	now := time.Now()
	mock.ExpectQuery(findCompanyByEmailQuery).
		WithArgs("rh@acme.com").
		WillReturnRows(sqlmock.NewRows(companyColumns).AddRow(
			uint64(2),
			"rh@acme.com",
			"hash",
			"Acme",
			"+5511999999999",
			"11222333000181",
			4.5,
			"Technology",
			nil,
			now,
			now,
		))

	company, err := repo.FindByEmail(context.Background(), "rh@acme.com")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if company == nil || company.ID != 2 || company.CNPJ != "11222333000181" || company.Rating != 4.5 {
		t.Fatalf("unexpected company: %+v", company)
	}
	if company.ResetToken.Valid {
		t.Fatalf("expected null reset token")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCompanyRepository_FindByID_NotFound(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := repository.NewCompanyRepository(db)
	mock.ExpectQuery(findCompanyByIDQuery).
		WithArgs(uint64(99)).
		WillReturnRows(sqlmock.NewRows(companyColumns))

	company, err := repo.FindByID(context.Background(), 99)
	if err != nil || company != nil {
		t.Fatalf("expected nil company and nil error, got %+v %v", company, err)
	}
}

func TestCompanyRepository_ResetTokenWrites(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := repository.NewCompanyRepository(db)
	mock.ExpectExec(updateCompanyResetQuery).
		WithArgs(sql.NullString{String: "token", Valid: true}, sqlmock.AnyArg(), uint64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(swapCompanyPasswordQuery).
		WithArgs("new-hash", sqlmock.AnyArg(), uint64(2), "token").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.UpdateResetToken(context.Background(), 2, sql.NullString{String: "token", Valid: true}); err != nil {
		t.Fatalf("update reset token failed: %v", err)
	}
	rows, err := repo.UpdatePasswordIfResetToken(context.Background(), 2, "new-hash", "token")
	if err != nil || rows != 1 {
		t.Fatalf("expected 1 row affected, got %d (%v)", rows, err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
