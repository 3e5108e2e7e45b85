package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/edu-platform/internal/database"
	"github.com/iliyamo/edu-platform/internal/model"
)

// PaymentRepo persists payments created by the checkout flow.
type PaymentRepo struct{ DB *sql.DB }

func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{DB: db} }

// Create inserts a pending payment and sets its ID.
func (r *PaymentRepo) Create(ctx context.Context, p *model.Payment) error {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO payments (merchant_order_id, student_id, item_type, item_id, item_path, amount, status, payment_method)
		 VALUES (?,?,?,?,?,?,?,?)`,
		p.MerchantOrderID, p.StudentID, p.ItemType, p.ItemID, p.ItemPath, p.Amount, p.Status, p.PaymentMethod)
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
	p.ID = uint64(id)
	return nil
}

// GetByOrderID fetches a payment by merchant order id.
func (r *PaymentRepo) GetByOrderID(ctx context.Context, orderID string) (*model.Payment, error) {
	var p model.Payment
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, merchant_order_id, student_id, item_type, item_id, item_path, amount, status,
		        payment_method, gateway_reference, created_at, updated_at
		 FROM payments WHERE merchant_order_id=? LIMIT 1`, orderID).Scan(
		&p.ID, &p.MerchantOrderID, &p.StudentID, &p.ItemType, &p.ItemID, &p.ItemPath, &p.Amount, &p.Status,
		&p.PaymentMethod, &p.GatewayReference, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Settle moves a pending payment to status and, when receipt is non-nil,
// inserts it in the same transaction. The UPDATE only matches pending rows,
// so a repeated callback returns ErrAlreadySettled and writes nothing.
func (r *PaymentRepo) Settle(ctx context.Context, orderID string, status model.PaymentStatus, gatewayRef string, receipt *model.Receipt) (err error) {
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
		`UPDATE payments SET status=?, gateway_reference=?, updated_at=?
		 WHERE merchant_order_id=? AND status=?`,
		status, gatewayRef, time.Now().UTC(), orderID, model.PaymentPending)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAlreadySettled
	}
	if receipt != nil {
		err = insertReceiptWith(ctx, tx, receipt)
	}
	return err
}
