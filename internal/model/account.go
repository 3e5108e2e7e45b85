package model

import (
	"strings"
	"time"
)

// Kind distinguishes the three account populations. All kinds share the
// `accounts` table and the same token issuance; the kind travels in the
// JWT "role" claim and is checked by role guards.
type Kind string

const (
	KindStudent Kind = "student"
	KindAdmin   Kind = "admin"
	KindTeacher Kind = "teacher"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindStudent, KindAdmin, KindTeacher:
		return true
	}
	return false
}

// ParseKind normalizes a role string into a Kind.
func ParseKind(s string) (Kind, bool) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	return k, k.Valid()
}

// Grade is the school year of a student.
type Grade string

const (
	GradeFirstSecondary  Grade = "first_secondary"
	GradeSecondSecondary Grade = "second_secondary"
	GradeThirdSecondary  Grade = "third_secondary"
)

// ParseGrade maps the values clients send ("1", "10", "first_secondary",
// ...) onto a Grade. The second return value is false for unknown input.
func ParseGrade(s string) (Grade, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "10", "first", "first_secondary":
		return GradeFirstSecondary, true
	case "2", "11", "second", "second_secondary":
		return GradeSecondSecondary, true
	case "3", "12", "third", "third_secondary":
		return GradeThirdSecondary, true
	}
	return "", false
}

// Account represents a row of the `accounts` table.
//
// Fields:
//
//	ID           – primary key shared by every kind.
//	Kind         – student, admin or teacher.
//	Phone        – unique among students; optional for staff.
//	Email        – unique within a kind.
//	PasswordHash – bcrypt hash, never serialized.
//	UniqueCode   – 8 character A-Z0-9 login handle.
//	ParentPhone, City, Lang, Grade – student profile fields.
type Account struct {
	ID           uint64    // accounts.id
	Kind         Kind      // accounts.kind
	Name         string    // accounts.name
	Phone        string    // accounts.phone (NULL when empty)
	Email        string    // accounts.email
	PasswordHash string    // accounts.password_hash
	UniqueCode   string    // accounts.unique_code
	ParentPhone  string    // accounts.parent_phone
	City         string    // accounts.city
	Lang         string    // accounts.lang
	Grade        Grade     // accounts.grade
	CreatedAt    time.Time // accounts.created_at
	UpdatedAt    time.Time // accounts.updated_at
}

// Profile is the password-redacted view of an Account returned to clients.
type Profile struct {
	ID          uint64 `json:"id"`
	Kind        Kind   `json:"role"`
	UniqueCode  string `json:"unique_code"`
	Name        string `json:"name"`
	Phone       string `json:"phone,omitempty"`
	Email       string `json:"email"`
	ParentPhone string `json:"parent_phone,omitempty"`
	City        string `json:"city,omitempty"`
	Lang        string `json:"lang,omitempty"`
	Grade       Grade  `json:"grade,omitempty"`
	Password    string `json:"password"`
}

// RedactedPassword is what clients see in place of the password.
const RedactedPassword = "****"

// Profile returns the client view of a.
func (a *Account) Profile() Profile {
	return Profile{
		ID:          a.ID,
		Kind:        a.Kind,
		UniqueCode:  a.UniqueCode,
		Name:        a.Name,
		Phone:       a.Phone,
		Email:       a.Email,
		ParentPhone: a.ParentPhone,
		City:        a.City,
		Lang:        a.Lang,
		Grade:       a.Grade,
		Password:    RedactedPassword,
	}
}
