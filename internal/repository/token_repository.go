package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// TokenRepo persists the active refresh tokens of each account. A row is
// one session; rows are ordered by id. Only token hashes are stored.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Push appends a token to the account's active list. Expired rows of the
// account are pruned first so they do not count against limit. When limit
// is positive and the account already holds limit tokens, ErrSessionLimit
// is returned. The account row is locked for the duration so concurrent
// logins cannot overshoot the limit.
func (r *TokenRepo) Push(ctx context.Context, accountID uint64, tokenHash string, exp time.Time, limit int) (err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	var locked uint64
	if err = tx.QueryRowContext(ctx, "SELECT id FROM accounts WHERE id=? FOR UPDATE", accountID).Scan(&locked); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if _, err = tx.ExecContext(ctx,
		"DELETE FROM refresh_tokens WHERE account_id=? AND expires_at<=?",
		accountID, time.Now().UTC()); err != nil {
		return err
	}
	if limit > 0 {
		var n int
		if err = tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM refresh_tokens WHERE account_id=?", accountID).Scan(&n); err != nil {
			return err
		}
		if n >= limit {
			return ErrSessionLimit
		}
	}
	_, err = tx.ExecContext(ctx,
		"INSERT INTO refresh_tokens (account_id, token_hash, expires_at) VALUES (?,?,?)",
		accountID, tokenHash, exp.UTC())
	return err
}

// Rotate removes oldHash from the account's active list and appends
// newHash in one transaction. The DELETE doubles as the presence check:
// when it affects no row the old token was already rotated away or logged
// out, ErrTokenNotActive is returned and nothing is inserted. Under InnoDB
// two concurrent rotations of the same hash serialize on the row lock and
// only one of them deletes it.
func (r *TokenRepo) Rotate(ctx context.Context, accountID uint64, oldHash, newHash string, exp time.Time) (err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	res, err := tx.ExecContext(ctx,
		"DELETE FROM refresh_tokens WHERE account_id=? AND token_hash=?", accountID, oldHash)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return ErrTokenNotActive
	}
	_, err = tx.ExecContext(ctx,
		"INSERT INTO refresh_tokens (account_id, token_hash, expires_at) VALUES (?,?,?)",
		accountID, newHash, exp.UTC())
	return err
}

// Pull removes one token from the account's active list and reports
// whether it was present.
func (r *TokenRepo) Pull(ctx context.Context, accountID uint64, tokenHash string) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM refresh_tokens WHERE account_id=? AND token_hash=?", accountID, tokenHash)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Clear removes every active token of the account.
func (r *TokenRepo) Clear(ctx context.Context, accountID uint64) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE account_id=?", accountID)
	return err
}

// Count returns the number of active tokens of the account.
func (r *TokenRepo) Count(ctx context.Context, accountID uint64) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM refresh_tokens WHERE account_id=? AND expires_at>?",
		accountID, time.Now().UTC()).Scan(&n)
	return n, err
}
