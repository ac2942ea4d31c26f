package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/estagio-app/ms-go-auth/app/entity"
)

const studentColumns = `id, email, password_hash, name, birthday, reset_token, created_at, updated_at`

type StudentRepository struct {
	db DBTX
}

func NewStudentRepository(db DBTX) *StudentRepository {
	return &StudentRepository{db: db}
}

func (r *StudentRepository) Create(ctx context.Context, student *entity.Student) error {
	query := `
		INSERT INTO students (email, password_hash, name, birthday, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		student.Email,
		student.PasswordHash,
		student.Name,
		student.Birthday,
		student.CreatedAt,
		student.UpdatedAt,
	)
	if err != nil {
		return translateError(err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	student.ID = uint64(id)
	return nil
}

func (r *StudentRepository) FindByEmail(ctx context.Context, email string) (*entity.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE email = ?`
	return r.findOne(ctx, query, email)
}

func (r *StudentRepository) FindByID(ctx context.Context, id uint64) (*entity.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE id = ?`
	return r.findOne(ctx, query, id)
}

func (r *StudentRepository) UpdateResetToken(ctx context.Context, id uint64, token sql.NullString) error {
	query := `UPDATE students SET reset_token = ?, updated_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, token, time.Now(), id)
	return err
}

// UpdatePasswordIfResetToken swaps the password hash and clears the reset
// token only while the stored token still equals expectedToken. It returns
// the number of rows changed.
func (r *StudentRepository) UpdatePasswordIfResetToken(ctx context.Context, id uint64, passwordHash, expectedToken string) (int64, error) {
	query := `
		UPDATE students SET
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

func (r *StudentRepository) findOne(ctx context.Context, query string, arg any) (*entity.Student, error) {
	student, err := scanStudent(r.db.QueryRowContext(ctx, query, arg).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return student, nil
}

func scanStudent(scan func(dest ...any) error) (*entity.Student, error) {
	student := &entity.Student{}
	err := scan(
		&student.ID,
		&student.Email,
		&student.PasswordHash,
		&student.Name,
		&student.Birthday,
		&student.ResetToken,
		&student.CreatedAt,
		&student.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return student, nil
}
