package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/edu-platform/internal/database"
	"github.com/iliyamo/edu-platform/internal/model"
)

// AccountRepo persists accounts of every kind in the `accounts` table.
type AccountRepo struct{ DB *sql.DB }

func NewAccountRepo(db *sql.DB) *AccountRepo { return &AccountRepo{DB: db} }

const accountColumns = `id, kind, name, COALESCE(phone, ''), email, password_hash, unique_code,
	parent_phone, city, lang, grade, created_at, updated_at`

// Create inserts a and sets its ID. Unique-key violations map to ErrDuplicate.
func (r *AccountRepo) Create(ctx context.Context, a *model.Account) error {
	a.Email = NormalizeEmail(a.Email)
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO accounts (kind, name, phone, email, password_hash, unique_code, parent_phone, city, lang, grade)
		 VALUES (?,?,?,?,?,?,?,?,?,?)`,
		a.Kind, a.Name, nullable(a.Phone), a.Email, a.PasswordHash, a.UniqueCode,
		a.ParentPhone, a.City, a.Lang, a.Grade)
	if err != nil {
		if database.IsDuplicateKey(err) {
			return ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	return nil
}

// GetByID fetches an account by id.
func (r *AccountRepo) GetByID(ctx context.Context, id uint64) (*model.Account, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE id=? LIMIT 1", id))
}

// FindByIdentifier matches identifier against phone, then email, then
// unique code within kind. The first field that matches wins.
func (r *AccountRepo) FindByIdentifier(ctx context.Context, kind model.Kind, identifier string) (*model.Account, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, ErrNotFound
	}
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+accountColumns+` FROM accounts
		 WHERE kind=? AND (phone=? OR email=? OR unique_code=?)
		 ORDER BY CASE WHEN phone=? THEN 0 WHEN email=? THEN 1 ELSE 2 END
		 LIMIT 1`,
		kind, identifier, NormalizeEmail(identifier), strings.ToUpper(identifier),
		identifier, NormalizeEmail(identifier)))
}

// FindByEmail fetches an account of kind by normalized email.
func (r *AccountRepo) FindByEmail(ctx context.Context, kind model.Kind, email string) (*model.Account, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE kind=? AND email=? LIMIT 1",
		kind, NormalizeEmail(email)))
}

// PhoneOrEmailTaken reports whether another account of kind already uses
// phone or email. excludeID skips the caller's own row on profile edits.
func (r *AccountRepo) PhoneOrEmailTaken(ctx context.Context, kind model.Kind, phone, email string, excludeID uint64) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM accounts
		 WHERE kind=? AND id<>? AND ((phone IS NOT NULL AND phone=?) OR email=?)`,
		kind, excludeID, phone, NormalizeEmail(email)).Scan(&n)
	return n > 0, err
}

// CodeExists reports whether a unique code is already assigned.
func (r *AccountRepo) CodeExists(ctx context.Context, code string) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM accounts WHERE unique_code=?", code).Scan(&n)
	return n > 0, err
}

// UpdateProfile writes the mutable profile columns of a.
func (r *AccountRepo) UpdateProfile(ctx context.Context, a *model.Account) error {
	a.Email = NormalizeEmail(a.Email)
	res, err := r.DB.ExecContext(ctx,
		`UPDATE accounts SET name=?, phone=?, email=?, parent_phone=?, city=?, lang=?, grade=?
		 WHERE id=?`,
		a.Name, nullable(a.Phone), a.Email, a.ParentPhone, a.City, a.Lang, a.Grade, a.ID)
	if err != nil {
		if database.IsDuplicateKey(err) {
			return ErrDuplicate
		}
		return err
	}
	return requireAffected(res)
}

// UpdatePassword replaces the password hash of an account.
func (r *AccountRepo) UpdatePassword(ctx context.Context, id uint64, hash string) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE accounts SET password_hash=? WHERE id=?", hash, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *AccountRepo) scanOne(row *sql.Row) (*model.Account, error) {
	var a model.Account
	err := row.Scan(&a.ID, &a.Kind, &a.Name, &a.Phone, &a.Email, &a.PasswordHash, &a.UniqueCode,
		&a.ParentPhone, &a.City, &a.Lang, &a.Grade, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func nullable(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}

// requireAffected maps an UPDATE that touched no row to ErrNotFound. MySQL
// reports matched-but-unchanged rows as zero affected unless the driver is
// told otherwise, so callers open the pool with clientFoundRows.
func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
