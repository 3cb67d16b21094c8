/*
Package schedule derives installment plans and payment reports from sale
records.

PURPOSE:
  A credit sale stores only its total, installment count, paid count and
  the payments already registered. The full installment plan (due dates,
  amounts, paid/pending status) is never persisted; it is recomputed
  from those flat fields on every read. This package owns that
  derivation plus the aggregated paid/pending payment views.

KEY CONCEPTS IN THIS FILE (types.go):
  - SaleRecord: flat financial fields of a sale
  - PaymentRecord: an immutable, append-only payment entry
  - Installment: one derived scheduled payment (never persisted)
  - PaymentView / PendingPayment: report-ready aggregates

DESIGN PRINCIPLES:
  1. Precision: amounts are decimal.Decimal, never float64
  2. Immutability: payment records are appended, never mutated
  3. Purity: derivations read input slices and return new structures

SEE ALSO:
  - derive.go: The derivation operations
  - errors.go: Validation failures
*/
package schedule

import (
	"github.com/shopspring/decimal"

	"github.com/ferrex/backoffice-engine/calendar"
)

// =============================================================================
// PAYMENT CONDITION
// =============================================================================

type PaymentCondition string

const (
	ConditionCash   PaymentCondition = "CASH"
	ConditionCredit PaymentCondition = "CREDIT"
)

func (c PaymentCondition) Valid() bool {
	return c == ConditionCash || c == ConditionCredit
}

// =============================================================================
// SALE RECORD - Flat financial fields, as stored
// =============================================================================

type SaleRecord struct {
	ID                string
	Client            string
	Seller            string
	SoldAt            calendar.TimePoint
	Condition         PaymentCondition
	Total             decimal.Decimal
	TotalInstallments int
	PaidInstallments  int
	Payments          []PaymentRecord
}

// PaymentRecord is one registered payment. Append-only: corrections are
// new records, existing ones are never edited.
type PaymentRecord struct {
	InstallmentNumber int
	Amount            decimal.Decimal
	PaidAt            calendar.TimePoint
	Method            string
	PayerName         string // empty = the sale's client paid
}

// Payer returns the effective payer, defaulting to the sale's client.
func (p PaymentRecord) Payer(sale SaleRecord) string {
	if p.PayerName != "" {
		return p.PayerName
	}
	return sale.Client
}

// =============================================================================
// DERIVED STRUCTURES - Recomputed on every read
// =============================================================================

// Installment is one scheduled partial payment of a sale's total.
type Installment struct {
	SaleID            string
	Number            int // 1-based
	TotalInstallments int
	DueDate           calendar.TimePoint
	Amount            decimal.Decimal
	Paid              bool
	PaidAt            calendar.TimePoint // zero unless Paid
	Method            string             // empty unless Paid
	PayerName         string             // empty unless Paid
}

// PaymentView is one row of the chronological paid-payments report.
// Sequence numbers are assigned oldest-first and stay stable even
// though the collection is presented newest-first.
type PaymentView struct {
	Sequence    int    // 1-based chronological position
	ID          string // e.g. PG-001, derived from Sequence
	SaleID      string
	Installment Installment
}

// PendingPayment is one unpaid installment of a credit sale.
type PendingPayment struct {
	SaleID      string
	ClientName  string
	Installment Installment
}

// NextPayable reports whether this pending installment is the one
// immediately following the sale's last paid installment. Only that
// installment may be registered next.
func (p PendingPayment) NextPayable(sale SaleRecord) bool {
	return p.Installment.Number == sale.PaidInstallments+1
}
