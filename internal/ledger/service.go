// Package ledger issues receipts, answers content ownership questions and
// drives the pending → paid|failed payment lifecycle.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/gommon/log"

	"github.com/iliyamo/edu-platform/internal/apperr"
	"github.com/iliyamo/edu-platform/internal/catalog"
	"github.com/iliyamo/edu-platform/internal/metrics"
	"github.com/iliyamo/edu-platform/internal/model"
	"github.com/iliyamo/edu-platform/internal/payment"
	"github.com/iliyamo/edu-platform/internal/repository"
)

// Accounts resolves the student a receipt or payment belongs to.
type Accounts interface {
	GetByID(ctx context.Context, id uint64) (*model.Account, error)
}

type ReceiptStore interface {
	Create(ctx context.Context, rc *model.Receipt) error
	ListByStudent(ctx context.Context, studentID uint64) ([]*model.Receipt, error)
	ListByStudentAndType(ctx context.Context, studentID uint64, receiptType string) ([]*model.Receipt, error)
}

type PaymentStore interface {
	Create(ctx context.Context, p *model.Payment) error
	GetByOrderID(ctx context.Context, orderID string) (*model.Payment, error)
	Settle(ctx context.Context, orderID string, status model.PaymentStatus, gatewayRef string, receipt *model.Receipt) error
}

// Catalog is the read side of the content catalog.
type Catalog interface {
	Subject(ctx context.Context, p catalog.Path) (*catalog.Subject, error)
}

// Webhook outcomes.
const (
	OutcomePaid             = "paid"
	OutcomeFailed           = "failed"
	OutcomeAlreadyProcessed = "already_processed"
)

type Service struct {
	accounts      Accounts
	receipts      ReceiptStore
	payments      PaymentStore
	catalog       Catalog
	gateway       payment.Gateway
	defaultMethod string
	now           func() time.Time
}

func NewService(accounts Accounts, receipts ReceiptStore, payments PaymentStore, cat Catalog, gw payment.Gateway, defaultMethod string) *Service {
	return &Service{
		accounts:      accounts,
		receipts:      receipts,
		payments:      payments,
		catalog:       cat,
		gateway:       gw,
		defaultMethod: defaultMethod,
		now:           time.Now,
	}
}

// ReceiptInput is the admin form for a manual receipt.
type ReceiptInput struct {
	StudentID   uint64  `json:"student_id"`
	ReceiptType string  `json:"receipt_type"`
	ItemID      int     `json:"item_id"`
	ItemPath    string  `json:"item_path"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
}

func validReceiptType(t string) bool {
	switch t {
	case model.ReceiptPackagePurchase, model.ReceiptLessonPurchase, model.ReceiptManual:
		return true
	}
	return false
}

// IssueReceipt appends a receipt for an existing student.
func (s *Service) IssueReceipt(ctx context.Context, in ReceiptInput) (*model.Receipt, error) {
	in.ReceiptType = strings.TrimSpace(in.ReceiptType)
	if in.ReceiptType == "" {
		return nil, apperr.Validation("receipt_type is required")
	}
	if !validReceiptType(in.ReceiptType) {
		return nil, apperr.Validation("unknown receipt_type %q", in.ReceiptType)
	}
	if in.Amount < 0 {
		return nil, apperr.Validation("amount must not be negative")
	}
	if in.ItemPath != "" {
		if _, err := catalog.ParsePath(in.ItemPath); err != nil {
			return nil, err
		}
	}
	student, err := s.student(ctx, in.StudentID)
	if err != nil {
		return nil, err
	}
	rc := &model.Receipt{
		StudentID:   student.ID,
		StudentCode: student.UniqueCode,
		ReceiptType: in.ReceiptType,
		ItemID:      in.ItemID,
		ItemPath:    in.ItemPath,
		Amount:      in.Amount,
		Description: strings.TrimSpace(in.Description),
		CreatedAt:   s.now().UTC(),
	}
	if err := s.receipts.Create(ctx, rc); err != nil {
		return nil, fmt.Errorf("create receipt: %w", err)
	}
	return rc, nil
}

// ListReceipts returns the receipts of a student, newest first.
func (s *Service) ListReceipts(ctx context.Context, studentID uint64) ([]*model.Receipt, error) {
	if _, err := s.student(ctx, studentID); err != nil {
		return nil, err
	}
	return s.receipts.ListByStudent(ctx, studentID)
}

func (s *Service) student(ctx context.Context, id uint64) (*model.Account, error) {
	a, err := s.accounts.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && a.Kind != model.KindStudent) {
		return nil, apperr.NotFound("student %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load student: %w", err)
	}
	return a, nil
}

// OwnedChapter is a purchased chapter with its lessons.
type OwnedChapter struct {
	*catalog.Chapter
	Lessons []*catalog.Lesson `json:"lessons"`
}

// OwnedChapters returns the chapters of the subject at p that the student
// bought as a package. Receipts without a path count for every subject.
// Chapters that were removed from the catalog are skipped.
func (s *Service) OwnedChapters(ctx context.Context, studentID uint64, p catalog.Path) ([]OwnedChapter, error) {
	sub, err := s.catalog.Subject(ctx, p)
	if err != nil {
		return nil, err
	}
	receipts, err := s.receipts.ListByStudentAndType(ctx, studentID, model.ReceiptPackagePurchase)
	if err != nil {
		return nil, fmt.Errorf("list receipts: %w", err)
	}
	path := p.String()
	seen := map[int]bool{}
	out := []OwnedChapter{}
	for _, rc := range receipts {
		if rc.ItemPath != "" && rc.ItemPath != path {
			continue
		}
		if seen[rc.ItemID] {
			continue
		}
		seen[rc.ItemID] = true
		ch, err := sub.Chapter(rc.ItemID)
		if err != nil {
			continue
		}
		out = append(out, OwnedChapter{Chapter: ch, Lessons: sub.LessonsOf(ch.ID)})
	}
	return out, nil
}

// PaymentRequest is the student's checkout form.
type PaymentRequest struct {
	ItemType string       `json:"item_type"`
	ItemID   int          `json:"item_id"`
	Path     catalog.Path `json:"path"`
	Method   string       `json:"payment_method"`
}

// InitiatePayment prices the item from the catalog, stores a pending
// payment and asks the gateway for a checkout URL.
func (s *Service) InitiatePayment(ctx context.Context, studentID uint64, req PaymentRequest) (*model.Payment, *payment.Checkout, error) {
	student, err := s.student(ctx, studentID)
	if err != nil {
		return nil, nil, err
	}
	sub, err := s.catalog.Subject(ctx, req.Path)
	if err != nil {
		return nil, nil, err
	}

	var amount float64
	var title string
	switch req.ItemType {
	case model.ItemChapter:
		ch, err := sub.Chapter(req.ItemID)
		if err != nil {
			return nil, nil, err
		}
		amount, title = ch.Price, ch.Title
	case model.ItemLesson:
		l, err := sub.Lesson(req.ItemID)
		if err != nil {
			return nil, nil, err
		}
		if l.IsFree {
			return nil, nil, apperr.Validation("lesson %d is free", l.ID)
		}
		amount, title = l.Price, l.Title
	default:
		return nil, nil, apperr.Validation("item_type must be chapter or lesson")
	}

	method := strings.TrimSpace(req.Method)
	if method == "" {
		method = s.defaultMethod
	}
	p := &model.Payment{
		MerchantOrderID: uuid.NewString(),
		StudentID:       student.ID,
		ItemType:        req.ItemType,
		ItemID:          req.ItemID,
		ItemPath:        req.Path.String(),
		Amount:          amount,
		Status:          model.PaymentPending,
		PaymentMethod:   method,
	}
	if err := s.payments.Create(ctx, p); err != nil {
		return nil, nil, fmt.Errorf("create payment: %w", err)
	}
	checkout, err := s.gateway.StartCheckout(ctx, payment.CheckoutRequest{
		MerchantOrderID: p.MerchantOrderID,
		Amount:          amount,
		Method:          method,
		Description:     title,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("start checkout: %w", err)
	}
	return p, checkout, nil
}

// Callback is the payload the gateway posts to the webhook. Gateways report
// the result in success, is_paid or both; absent flags stay nil.
type Callback struct {
	MerchantOrderID string      `json:"merchant_order_id"`
	Success         *bool       `json:"success"`
	IsPaid          *bool       `json:"is_paid"`
	ID              json.Number `json:"id"`
}

// Paid reports the payment result. is_paid is the more specific flag and
// wins when present; otherwise success decides. A callback with neither
// flag counts as failed.
func (cb Callback) Paid() bool {
	if cb.IsPaid != nil {
		return *cb.IsPaid
	}
	return cb.Success != nil && *cb.Success
}

// HandleWebhook settles a pending payment. A successful payment writes its
// receipt in the same transaction; a repeated delivery changes nothing and
// reports OutcomeAlreadyProcessed.
func (s *Service) HandleWebhook(ctx context.Context, cb Callback) (string, error) {
	cb.MerchantOrderID = strings.TrimSpace(cb.MerchantOrderID)
	if cb.MerchantOrderID == "" {
		return "", apperr.Validation("merchant_order_id is required")
	}
	p, err := s.payments.GetByOrderID(ctx, cb.MerchantOrderID)
	if errors.Is(err, repository.ErrNotFound) {
		metrics.WebhookEvent("unknown_order")
		return "", apperr.NotFound("payment %s not found", cb.MerchantOrderID)
	}
	if err != nil {
		return "", fmt.Errorf("load payment: %w", err)
	}
	if p.Status != model.PaymentPending {
		metrics.WebhookEvent(OutcomeAlreadyProcessed)
		return OutcomeAlreadyProcessed, nil
	}

	status, outcome := model.PaymentFailed, OutcomeFailed
	var receipt *model.Receipt
	if cb.Paid() {
		status, outcome = model.PaymentPaid, OutcomePaid
		receipt, err = s.paymentReceipt(ctx, p)
		if err != nil {
			return "", err
		}
	}

	err = s.payments.Settle(ctx, p.MerchantOrderID, status, cb.ID.String(), receipt)
	if errors.Is(err, repository.ErrAlreadySettled) {
		metrics.WebhookEvent(OutcomeAlreadyProcessed)
		return OutcomeAlreadyProcessed, nil
	}
	if err != nil {
		return "", fmt.Errorf("settle payment: %w", err)
	}
	log.Infof("ledger: payment %s settled as %s", p.MerchantOrderID, status)
	metrics.WebhookEvent(outcome)
	return outcome, nil
}

func (s *Service) paymentReceipt(ctx context.Context, p *model.Payment) (*model.Receipt, error) {
	code := ""
	a, err := s.accounts.GetByID(ctx, p.StudentID)
	switch {
	case err == nil:
		code = a.UniqueCode
	case errors.Is(err, repository.ErrNotFound):
		log.Warnf("ledger: student %d of payment %s no longer exists", p.StudentID, p.MerchantOrderID)
	default:
		return nil, fmt.Errorf("load student: %w", err)
	}
	return &model.Receipt{
		StudentID:   p.StudentID,
		StudentCode: code,
		ReceiptType: p.ReceiptType(),
		ItemID:      p.ItemID,
		ItemPath:    p.ItemPath,
		Amount:      p.Amount,
		Description: fmt.Sprintf("online payment %s", p.MerchantOrderID),
		CreatedAt:   s.now().UTC(),
	}, nil
}
