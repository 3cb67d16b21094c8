/*
Package report renders derived payment collections as XLSX workbooks.

PURPOSE:
  The payments and pending-payments tables are exported for offline
  review. The report takes the already-derived collections and writes
  them out; it performs no derivation of its own.
*/
package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/ferrex/backoffice-engine/schedule"
)

const paymentsSheet = "Payments"
const pendingSheet = "Pending"

// WritePayments writes the paid-payments report to w, one row per
// payment in the given (newest-first) order. Amounts are written as
// plain decimal strings so no spreadsheet float rounding applies.
func WritePayments(w io.Writer, payments []schedule.PaymentView) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", paymentsSheet); err != nil {
		return err
	}

	headers := []string{"ID", "Sale", "Installment", "Due Date", "Amount", "Payment Date", "Method", "Payer"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(paymentsSheet, cell, h); err != nil {
			return err
		}
	}

	for row, p := range payments {
		values := []any{
			p.ID,
			p.SaleID,
			fmt.Sprintf("%d/%d", p.Installment.Number, p.Installment.TotalInstallments),
			p.Installment.DueDate.String(),
			p.Installment.Amount.StringFixed(2),
			p.Installment.PaidAt.String(),
			p.Installment.Method,
			p.Installment.PayerName,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(paymentsSheet, cell, v); err != nil {
				return err
			}
		}
	}

	_, err := f.WriteTo(w)
	return err
}

// WritePendingPayments writes the pending-payments report to w.
func WritePendingPayments(w io.Writer, pending []schedule.PendingPayment) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", pendingSheet); err != nil {
		return err
	}

	headers := []string{"Sale", "Client", "Installment", "Due Date", "Amount"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(pendingSheet, cell, h); err != nil {
			return err
		}
	}

	for row, p := range pending {
		values := []any{
			p.SaleID,
			p.ClientName,
			fmt.Sprintf("%d/%d", p.Installment.Number, p.Installment.TotalInstallments),
			p.Installment.DueDate.String(),
			p.Installment.Amount.StringFixed(2),
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(pendingSheet, cell, v); err != nil {
				return err
			}
		}
	}

	_, err := f.WriteTo(w)
	return err
}
