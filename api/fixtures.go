/*
fixtures.go - Demo data loader

PURPOSE:
  Seeds the database with a realistic demo dataset: a warehouse
  catalog, a mix of cash and credit sales at different payment
  stages, and occupied slots in the current work week.

  The loader resets the database first, so loading is idempotent.
  Dev only; there is no guard against wiping production data.

SEE ALSO:
  - handlers.go: LoadFixtures endpoint wiring
  - store/sqlite: persistence
*/
package api

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ferrex/backoffice-engine/availability"
	"github.com/ferrex/backoffice-engine/calendar"
	"github.com/ferrex/backoffice-engine/schedule"
)

// LoadFixtures resets the database and loads the demo dataset.
// POST /api/fixtures/load
func (h *Handler) LoadFixtures(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to reset database", err)
		return
	}
	if err := h.loadDemoData(r.Context()); err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to load fixtures", err)
		return
	}
	h.Logger.Info("demo fixtures loaded")
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded"})
}

// SeedDemoData loads the demo dataset without resetting first.
// Used by the -demo startup flag.
func (h *Handler) SeedDemoData(ctx context.Context) error {
	return h.loadDemoData(ctx)
}

func (h *Handler) loadDemoData(ctx context.Context) error {
	for _, name := range []string{"Almacen 1", "Almacen 2", "Almacen 3"} {
		if err := h.Store.SaveWarehouse(ctx, name); err != nil {
			return err
		}
	}

	today := h.Now()
	money := func(s string) decimal.Decimal { return decimal.RequireFromString(s) }

	sales := []schedule.SaleRecord{
		{
			ID:                "V-001",
			Client:            "Carlos Mendoza",
			Seller:            "Lucia Fernandez",
			SoldAt:            today.AddMonthsClamped(-3),
			Condition:         schedule.ConditionCredit,
			Total:             money("1500.00"),
			TotalInstallments: 6,
		},
		{
			ID:                "V-002",
			Client:            "Maria Gonzalez",
			Seller:            "Lucia Fernandez",
			SoldAt:            today.AddMonthsClamped(-2),
			Condition:         schedule.ConditionCash,
			Total:             money("320.50"),
			TotalInstallments: 1,
			PaidInstallments:  1,
		},
		{
			ID:                "V-003",
			Client:            "Roberto Silva",
			Seller:            "Diego Ramirez",
			SoldAt:            today.AddMonthsClamped(-1),
			Condition:         schedule.ConditionCredit,
			Total:             money("2400.00"),
			TotalInstallments: 12,
		},
		{
			ID:                "V-004",
			Client:            "Ana Torres",
			Seller:            "Diego Ramirez",
			SoldAt:            today.AddDays(-10),
			Condition:         schedule.ConditionCredit,
			Total:             money("100.00"),
			TotalInstallments: 3,
		},
	}
	for _, sale := range sales {
		if err := h.Store.SaveSale(ctx, sale); err != nil {
			return err
		}
	}

	// Payments for the older credit sales. Amounts must match the
	// derived plan, so they come from InstallmentAmount.
	payments := []struct {
		saleID      string
		installment int
		paidAt      calendar.TimePoint
		method      string
	}{
		{"V-001", 1, today.AddMonthsClamped(-3), "cash"},
		{"V-001", 2, today.AddMonthsClamped(-2), "transfer"},
		{"V-001", 3, today.AddMonthsClamped(-1), "cash"},
		{"V-003", 1, today.AddMonthsClamped(-1), "transfer"},
	}
	for _, p := range payments {
		sale, err := h.Store.GetSale(ctx, p.saleID)
		if err != nil {
			return err
		}
		record := schedule.PaymentRecord{
			InstallmentNumber: p.installment,
			Amount:            schedule.InstallmentAmount(sale.Total, sale.TotalInstallments, p.installment),
			PaidAt:            p.paidAt,
			Method:            p.method,
			PayerName:         sale.Client,
		}
		if err := h.Store.AppendPayment(ctx, p.saleID, record); err != nil {
			return err
		}
	}

	// Occupied slots in the current work week.
	week := calendar.WorkWeekOf(today)
	slots := []availability.OccupiedSlot{
		{Type: availability.ResourceWarehouse, Date: week.Start, Hour: "08:00", ResourceID: "Almacen 1"},
		{Type: availability.ResourceWarehouse, Date: week.Start, Hour: "08:00", ResourceID: "Almacen 2"},
		{Type: availability.ResourceWarehouse, Date: week.Start.AddDays(1), Hour: "10:00", ResourceID: "Almacen 1"},
		{Type: availability.ResourceWarehouse, Date: week.Start.AddDays(2), Hour: "14:00", ResourceID: "Almacen 3"},
		{Type: availability.ResourceTransport, Date: week.Start, Hour: "09:00"},
		{Type: availability.ResourceTransport, Date: week.Start.AddDays(3), Hour: "16:00"},
	}
	for _, slot := range slots {
		if err := h.Store.AddOccupiedSlot(ctx, slot); err != nil {
			return err
		}
	}

	h.Logger.Debug("fixtures seeded",
		zap.Int("sales", len(sales)),
		zap.Int("payments", len(payments)),
		zap.Int("slots", len(slots)),
	)
	return nil
}
