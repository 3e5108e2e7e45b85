package model

import "time"

// Receipt types. A package_purchase grants ownership of a chapter.
const (
	ReceiptPackagePurchase = "package_purchase"
	ReceiptLessonPurchase  = "lesson_purchase"
	ReceiptManual          = "manual"
)

// Receipt is an immutable purchase record stored in `receipts`.
type Receipt struct {
	ID          uint64    `json:"id"`
	StudentID   uint64    `json:"student_id"`
	StudentCode string    `json:"student_code"`
	ReceiptType string    `json:"receipt_type"`
	ItemID      int       `json:"item_id"`
	ItemPath    string    `json:"item_path,omitempty"`
	Amount      float64   `json:"amount"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Payment item types.
const (
	ItemChapter = "chapter"
	ItemLesson  = "lesson"
)

// PaymentStatus is the lifecycle state of a Payment. A payment leaves
// pending exactly once.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

// Payment mirrors the `payments` table.
type Payment struct {
	ID               uint64        `json:"id"`
	MerchantOrderID  string        `json:"merchant_order_id"`
	StudentID        uint64        `json:"student_id"`
	ItemType         string        `json:"item_type"`
	ItemID           int           `json:"item_id"`
	ItemPath         string        `json:"item_path"`
	Amount           float64       `json:"amount"`
	Status           PaymentStatus `json:"status"`
	PaymentMethod    string        `json:"payment_method"`
	GatewayReference string        `json:"gateway_reference,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// ReceiptType returns the receipt type issued when this payment succeeds.
func (p *Payment) ReceiptType() string {
	if p.ItemType == ItemChapter {
		return ReceiptPackagePurchase
	}
	return ReceiptLessonPurchase
}
