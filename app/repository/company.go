package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/estagio-app/ms-go-auth/app/entity"
)

const companyColumns = `id, email, password_hash, name, phone, cnpj, rating, business_category, reset_token, created_at, updated_at`

type CompanyRepository struct {
	db DBTX
}

func NewCompanyRepository(db DBTX) *CompanyRepository {
	return &CompanyRepository{db: db}
}

func (r *CompanyRepository) Create(ctx context.Context, company *entity.Company) error {
	query := `
		INSERT INTO companies (email, password_hash, name, phone, cnpj, rating, business_category, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		company.Email,
		company.PasswordHash,
		company.Name,
		company.Phone,
		company.CNPJ,
		company.Rating,
		company.BusinessCategory,
		company.CreatedAt,
		company.UpdatedAt,
	)
	if err != nil {
		return translateError(err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	company.ID = uint64(id)
	return nil
}

func (r *CompanyRepository) FindByEmail(ctx context.Context, email string) (*entity.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE email = ?`
	return r.findOne(ctx, query, email)
}

func (r *CompanyRepository) FindByID(ctx context.Context, id uint64) (*entity.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE id = ?`
	return r.findOne(ctx, query, id)
}

func (r *CompanyRepository) UpdateResetToken(ctx context.Context, id uint64, token sql.NullString) error {
	query := `UPDATE companies SET reset_token = ?, updated_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, token, time.Now(), id)
	return err
}

func (r *CompanyRepository) UpdatePasswordIfResetToken(ctx context.Context, id uint64, passwordHash, expectedToken string) (int64, error) {
	query := `
		UPDATE companies SET
			password_hash = ?,
			reset_token = NULL,
			updated_at = ?
		WHERE id = ? AND reset_token = ?
	`
	result, err := r.db.ExecContext(ctx, query, passwordHash, time.Now(), id, expectedToken)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *CompanyRepository) findOne(ctx context.Context, query string, arg any) (*entity.Company, error) {
	company, err := scanCompany(r.db.QueryRowContext(ctx, query, arg).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return company, nil
}

func scanCompany(scan func(dest ...any) error) (*entity.Company, error) {
	company := &entity.Company{}
	err := scan(
		&company.ID,
		&company.Email,
		&company.PasswordHash,
		&company.Name,
		&company.Phone,
		&company.CNPJ,
		&company.Rating,
		&company.BusinessCategory,
		&company.ResetToken,
		&company.CreatedAt,
		&company.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return company, nil
}
