package entity

import (
	"database/sql"
	"time"
)

type Role string

const (
	RoleStudent Role = "STUDENT"
	RoleCompany Role = "COMPANY"
)

func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleCompany
}

type Student struct {
	ID           uint64
	Email        string
	PasswordHash string
	Name         string
	Birthday     time.Time
	ResetToken   sql.NullString
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Company struct {
	ID               uint64
	Email            string
	PasswordHash     string
	Name             string
	Phone            string
	CNPJ             string
	Rating           float64
	BusinessCategory string
	ResetToken       sql.NullString
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Principal is an authenticated identity. Exactly one of Student or Company
// is set, matching Role.
type Principal struct {
	Role    Role
	Student *Student
	Company *Company
}

func NewStudentPrincipal(student *Student) *Principal {
	return &Principal{Role: RoleStudent, Student: student}
}

func NewCompanyPrincipal(company *Company) *Principal {
	return &Principal{Role: RoleCompany, Company: company}
}

func (p *Principal) IsCompany() bool {
	return p.Role == RoleCompany
}

func (p *Principal) ID() uint64 {
	if p.IsCompany() {
		return p.Company.ID
	}
	return p.Student.ID
}

func (p *Principal) Email() string {
	if p.IsCompany() {
		return p.Company.Email
	}
	return p.Student.Email
}

func (p *Principal) Name() string {
	if p.IsCompany() {
		return p.Company.Name
	}
	return p.Student.Name
}

func (p *Principal) PasswordHash() string {
	if p.IsCompany() {
		return p.Company.PasswordHash
	}
	return p.Student.PasswordHash
}

func (p *Principal) ResetToken() sql.NullString {
	if p.IsCompany() {
		return p.Company.ResetToken
	}
	return p.Student.ResetToken
}
