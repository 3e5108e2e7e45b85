package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/edu-platform/internal/ledger"
)

// LedgerHandler serves receipts, owned content and payments.
type LedgerHandler struct {
	Ledger *ledger.Service
}

func NewLedgerHandler(svc *ledger.Service) *LedgerHandler {
	if svc == nil {
		panic("nil ledger service passed to NewLedgerHandler")
	}
	return &LedgerHandler{Ledger: svc}
}

// MyReceipts lists the caller's receipts.
func (h *LedgerHandler) MyReceipts(c echo.Context) error {
	id, err := accountID(c)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	rs, err := h.Ledger.ListReceipts(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, rs)
}

// MyContent returns the purchased chapters of one subject with their
// lessons.
func (h *LedgerHandler) MyContent(c echo.Context) error {
	id, err := accountID(c)
	if err != nil {
		return fail(c, err)
	}
	p, err := catalogPath(c)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	owned, err := h.Ledger.OwnedChapters(ctx, id, p)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"path": p, "chapters": owned})
}

// InitiatePayment creates a pending payment and returns the checkout URL.
func (h *LedgerHandler) InitiatePayment(c echo.Context) error {
	id, err := accountID(c)
	if err != nil {
		return fail(c, err)
	}
	var req ledger.PaymentRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, checkout, err := h.Ledger.InitiatePayment(ctx, id, req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"payment": p, "checkout_url": checkout.URL})
}

// Webhook receives gateway callbacks. It is unauthenticated; the order id
// must name a pending payment for anything to change.
func (h *LedgerHandler) Webhook(c echo.Context) error {
	var cb ledger.Callback
	if err := c.Bind(&cb); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	outcome, err := h.Ledger.HandleWebhook(ctx, cb)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": outcome})
}

// IssueReceipt lets an admin record a manual purchase.
func (h *LedgerHandler) IssueReceipt(c echo.Context) error {
	var req ledger.ReceiptInput
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	rc, err := h.Ledger.IssueReceipt(ctx, req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, rc)
}

// StudentReceipts lists the receipts of any student for an admin.
func (h *LedgerHandler) StudentReceipts(c echo.Context) error {
	id, err := uintParam(c, "id")
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	rs, err := h.Ledger.ListReceipts(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, rs)
}
