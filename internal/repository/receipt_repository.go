package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/edu-platform/internal/model"
)

// ReceiptRepo appends and lists receipts. Receipts are never updated or
// deleted.
type ReceiptRepo struct{ DB *sql.DB }

func NewReceiptRepo(db *sql.DB) *ReceiptRepo { return &ReceiptRepo{DB: db} }

const insertReceipt = `INSERT INTO receipts
	(student_id, student_code, receipt_type, item_id, item_path, amount, description, created_at)
	VALUES (?,?,?,?,?,?,?,?)`

// Create inserts rc and sets its ID.
func (r *ReceiptRepo) Create(ctx context.Context, rc *model.Receipt) error {
	return insertReceiptWith(ctx, r.DB, rc)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertReceiptWith(ctx context.Context, db execer, rc *model.Receipt) error {
	res, err := db.ExecContext(ctx, insertReceipt,
		rc.StudentID, rc.StudentCode, rc.ReceiptType, rc.ItemID, rc.ItemPath, rc.Amount, rc.Description, rc.CreatedAt.UTC())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rc.ID = uint64(id)
	return nil
}

// ListByStudent returns a student's receipts, newest first.
func (r *ReceiptRepo) ListByStudent(ctx context.Context, studentID uint64) ([]*model.Receipt, error) {
	return r.query(ctx,
		`SELECT id, student_id, student_code, receipt_type, item_id, item_path, amount, description, created_at
		 FROM receipts WHERE student_id=? ORDER BY id DESC`, studentID)
}

// ListByStudentAndType returns a student's receipts of one type, oldest first.
func (r *ReceiptRepo) ListByStudentAndType(ctx context.Context, studentID uint64, receiptType string) ([]*model.Receipt, error) {
	return r.query(ctx,
		`SELECT id, student_id, student_code, receipt_type, item_id, item_path, amount, description, created_at
		 FROM receipts WHERE student_id=? AND receipt_type=? ORDER BY id`, studentID, receiptType)
}

func (r *ReceiptRepo) query(ctx context.Context, q string, args ...any) ([]*model.Receipt, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.Receipt{}
	for rows.Next() {
		rc := new(model.Receipt)
		if err := rows.Scan(&rc.ID, &rc.StudentID, &rc.StudentCode, &rc.ReceiptType, &rc.ItemID,
			&rc.ItemPath, &rc.Amount, &rc.Description, &rc.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
