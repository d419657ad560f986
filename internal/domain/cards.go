package domain

import (
	"time"

	"github.com/grana-finance/grana-go/internal/fincalc"
)

// ============================================================
// Credit Cards
// ============================================================

// CreditCard is a card configuration: the closing/due days drive the
// billing cycle windows and the limit drives utilization.
type CreditCard struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	EnvironmentID string    `json:"environment_id,omitempty"`
	Name          string    `json:"name"`
	LastFour      string    `json:"last_four,omitempty"`
	ClosingDay    int       `json:"closing_day"`
	DueDay        int       `json:"due_day"`
	CreditLimit   float64   `json:"credit_limit"`
	CreatedAt     time.Time `json:"created_at"`
}

// CreateCardRequest is the payload to register a card.
type CreateCardRequest struct {
	Name        string  `json:"name"`
	LastFour    string  `json:"last_four,omitempty"`
	ClosingDay  int     `json:"closing_day"`
	DueDay      int     `json:"due_day"`
	CreditLimit float64 `json:"credit_limit"`
}

// AggregatePayment is the single synthetic ledger record per billing cycle
// reflecting what has actually been paid toward a card's closed invoice.
type AggregatePayment struct {
	ID        string    `json:"id"`
	CardID    string    `json:"card_id"`
	CycleKey  string    `json:"cycle_key"` // closed-cycle month, "2024-03"
	Amount    float64   `json:"amount"`
	AccountID string    `json:"account_id,omitempty"`
	PaidAt    time.Time `json:"paid_at"`
}

// CycleWindowResponse is the JSON shape of a billing cycle window.
type CycleWindowResponse struct {
	ClosedStart string `json:"closed_start"`
	ClosedEnd   string `json:"closed_end"`
	OpenStart   string `json:"open_start"`
	OpenEnd     string `json:"open_end"`
}

// CardInvoiceResponse is returned by GET /v1/cards/{cardId}/invoice.
type CardInvoiceResponse struct {
	CardID string                 `json:"card_id"`
	AsOf   string                 `json:"as_of"`
	Window CycleWindowResponse    `json:"window"`
	Totals fincalc.CycleTotals    `json:"totals"`
	Status string                 `json:"status"`
	Items  []fincalc.CardLineItem `json:"items"`
}

// PayInvoiceRequest selects line items to reconcile as paid.
type PayInvoiceRequest struct {
	ItemIDs     []string `json:"item_ids"`
	PaymentDate string   `json:"payment_date"`
	AccountID   string   `json:"account_id"`
}

// PayInvoiceResponse reports the reconciliation outcome.
type PayInvoiceResponse struct {
	PaidItemIDs     []string `json:"paid_item_ids"`
	CycleKey        string   `json:"cycle_key"`
	AggregateAmount float64  `json:"aggregate_amount"`
}

// UpdateInstallmentsRequest edits a purchase group's installment plan.
type UpdateInstallmentsRequest struct {
	Installments      int     `json:"parcelas"`
	StartingNum       int     `json:"parcela_inicial"`
	InstallmentAmount float64 `json:"valor_parcela"`
}
