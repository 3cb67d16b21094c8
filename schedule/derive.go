/*
derive.go - Installment plan and payment report derivation

PURPOSE:
  Pure functions that turn flat sale records into installment plans and
  report-ready payment collections. No I/O, no mutation of inputs, no
  hidden caching; callers may invoke these on every read.

AMOUNT RULE:
  standard = round(total / n, 2)
  installments 1..n-1 carry the standard amount; the last installment
  carries total - standard*(n-1). The amounts therefore always sum to
  the total exactly, with the rounding remainder absorbed by the final
  installment.

DUE DATE RULE:
  Installment i is due on the sale date advanced by (i-1) months, with
  the day-of-month clamped to the end of the target month. See
  calendar.AddMonthsClamped.

SEQUENCE RULE:
  Paid payments are numbered in chronological order (payment date
  ascending, sale id as tie-break) and then reversed for newest-first
  presentation. Sequence numbers are never assigned in display order.

SEE ALSO:
  - types.go: Input and output structures
  - errors.go: Validation failures
*/
package schedule

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/ferrex/backoffice-engine/calendar"
)

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks the financial fields of a sale. Every derivation
// validates its inputs before computing anything.
func Validate(sale SaleRecord) error {
	if !sale.Condition.Valid() {
		return &InvalidScheduleError{SaleID: sale.ID, Field: "condition", Reason: fmt.Sprintf("unknown payment condition %q", sale.Condition)}
	}
	if sale.Total.IsNegative() {
		return &InvalidScheduleError{SaleID: sale.ID, Field: "total", Reason: "negative amount"}
	}
	if sale.TotalInstallments < 1 {
		return &InvalidScheduleError{SaleID: sale.ID, Field: "total_installments", Reason: "must be at least 1"}
	}
	if sale.PaidInstallments < 0 {
		return &InvalidScheduleError{SaleID: sale.ID, Field: "paid_installments", Reason: "negative count"}
	}
	if sale.PaidInstallments > sale.TotalInstallments {
		return &InvalidScheduleError{SaleID: sale.ID, Field: "paid_installments", Reason: "exceeds total installments"}
	}
	if sale.Condition == ConditionCash && (sale.TotalInstallments != 1 || sale.PaidInstallments != 1) {
		return &InvalidScheduleError{SaleID: sale.ID, Field: "condition", Reason: "cash sales settle in a single paid installment"}
	}
	for _, p := range sale.Payments {
		if p.InstallmentNumber < 1 || p.InstallmentNumber > sale.TotalInstallments {
			return &InvalidScheduleError{SaleID: sale.ID, Field: "payments", Reason: fmt.Sprintf("installment number %d outside 1..%d", p.InstallmentNumber, sale.TotalInstallments)}
		}
		if p.Amount.IsNegative() {
			return &InvalidScheduleError{SaleID: sale.ID, Field: "payments", Reason: fmt.Sprintf("installment %d has a negative amount", p.InstallmentNumber)}
		}
	}
	return nil
}

// =============================================================================
// AMOUNT AND DUE DATE RULES
// =============================================================================

// StandardInstallment returns round(total / n, 2).
func StandardInstallment(total decimal.Decimal, n int) decimal.Decimal {
	return total.Div(decimal.NewFromInt(int64(n))).Round(2)
}

// InstallmentAmount returns the amount of installment i of n. The last
// installment absorbs the rounding remainder.
func InstallmentAmount(total decimal.Decimal, n, i int) decimal.Decimal {
	standard := StandardInstallment(total, n)
	if i == n {
		return total.Sub(standard.Mul(decimal.NewFromInt(int64(n - 1))))
	}
	return standard
}

// DueDate returns the due date of installment i: the sale date advanced
// (i-1) months, day-of-month clamped.
func DueDate(sale SaleRecord, i int) calendar.TimePoint {
	return calendar.DayOf(sale.SoldAt.Time).AddMonthsClamped(i - 1)
}

// =============================================================================
// OPERATION: DeriveInstallmentPlan
// =============================================================================

// DeriveInstallmentPlan produces the ordered installment plan of a
// single sale. Exactly TotalInstallments entries are returned, numbered
// 1..n, and their amounts sum to the sale total exactly.
func DeriveInstallmentPlan(sale SaleRecord) ([]Installment, error) {
	if err := Validate(sale); err != nil {
		return nil, err
	}

	plan := make([]Installment, sale.TotalInstallments)
	for i := 1; i <= sale.TotalInstallments; i++ {
		inst := Installment{
			SaleID:            sale.ID,
			Number:            i,
			TotalInstallments: sale.TotalInstallments,
			DueDate:           DueDate(sale, i),
			Amount:            InstallmentAmount(sale.Total, sale.TotalInstallments, i),
			Paid:              i <= sale.PaidInstallments,
		}
		if inst.Paid {
			// Display date defaults to the due date when no payment
			// record matches the installment number.
			inst.PaidAt = inst.DueDate
			inst.PayerName = sale.Client
			if p, ok := paymentFor(sale, i); ok {
				inst.PaidAt = p.PaidAt
				inst.Method = p.Method
				inst.PayerName = p.Payer(sale)
			}
		}
		plan[i-1] = inst
	}
	return plan, nil
}

func paymentFor(sale SaleRecord, installment int) (PaymentRecord, bool) {
	for _, p := range sale.Payments {
		if p.InstallmentNumber == installment {
			return p, true
		}
	}
	return PaymentRecord{}, false
}

// =============================================================================
// OPERATION: DeriveAllPaidPayments
// =============================================================================

// DeriveAllPaidPayments flattens the registered payments of all sales
// into a single report, newest first. Sequence numbers and PG ids are
// assigned in chronological order before the reversal, so they remain
// stable as new payments arrive.
func DeriveAllPaidPayments(sales []SaleRecord) ([]PaymentView, error) {
	var views []PaymentView
	for _, sale := range sales {
		if err := Validate(sale); err != nil {
			return nil, err
		}
		for _, p := range sale.Payments {
			views = append(views, PaymentView{
				SaleID: sale.ID,
				Installment: Installment{
					SaleID:            sale.ID,
					Number:            p.InstallmentNumber,
					TotalInstallments: sale.TotalInstallments,
					DueDate:           DueDate(sale, p.InstallmentNumber),
					Amount:            p.Amount,
					Paid:              true,
					PaidAt:            p.PaidAt,
					Method:            p.Method,
					PayerName:         p.Payer(sale),
				},
			})
		}
	}

	// Chronological order first: payment date ascending, sale id as the
	// tie-break so same-day payments number deterministically.
	sort.SliceStable(views, func(i, j int) bool {
		a, b := views[i].Installment.PaidAt, views[j].Installment.PaidAt
		if a.Equal(b) {
			return views[i].SaleID < views[j].SaleID
		}
		return a.Before(b)
	})
	for i := range views {
		views[i].Sequence = i + 1
		views[i].ID = fmt.Sprintf("PG-%03d", i+1)
	}

	// Newest first for display.
	for i, j := 0, len(views)-1; i < j; i, j = i+1, j-1 {
		views[i], views[j] = views[j], views[i]
	}
	return views, nil
}

// =============================================================================
// OPERATION: DerivePendingPayments
// =============================================================================

// DerivePendingPayments lists every unpaid installment of every credit
// sale that is not fully paid. Cash sales and settled credit sales
// contribute nothing.
func DerivePendingPayments(sales []SaleRecord) ([]PendingPayment, error) {
	var pending []PendingPayment
	for _, sale := range sales {
		if err := Validate(sale); err != nil {
			return nil, err
		}
		if sale.Condition != ConditionCredit || sale.PaidInstallments >= sale.TotalInstallments {
			continue
		}
		for i := sale.PaidInstallments + 1; i <= sale.TotalInstallments; i++ {
			pending = append(pending, PendingPayment{
				SaleID:     sale.ID,
				ClientName: sale.Client,
				Installment: Installment{
					SaleID:            sale.ID,
					Number:            i,
					TotalInstallments: sale.TotalInstallments,
					DueDate:           DueDate(sale, i),
					Amount:            InstallmentAmount(sale.Total, sale.TotalInstallments, i),
				},
			})
		}
	}
	return pending, nil
}

// =============================================================================
// PLAN SUMMARY
// =============================================================================

// SummarizePlan totals the paid and outstanding portions of a plan.
func SummarizePlan(plan []Installment) (paid, outstanding decimal.Decimal) {
	paid, outstanding = decimal.Zero, decimal.Zero
	for _, inst := range plan {
		if inst.Paid {
			paid = paid.Add(inst.Amount)
		} else {
			outstanding = outstanding.Add(inst.Amount)
		}
	}
	return paid, outstanding
}
