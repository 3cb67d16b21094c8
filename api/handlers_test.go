/*
handlers_test.go - Unit tests for API handlers

Tests for:
- Sale registration and listing metadata
- Schedule derivation endpoint
- Payment registration (next-payable rule, amount check)
- Availability grid and slot reservation
- Fixture loading and reset
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ferrex/backoffice-engine/availability"
	"github.com/ferrex/backoffice-engine/calendar"
	"github.com/ferrex/backoffice-engine/schedule"
	"github.com/ferrex/backoffice-engine/store/sqlite"
)

// Wednesday 2025-06-11; keeps week math deterministic.
var testToday = calendar.NewDay(2025, time.June, 11)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	h := NewHandler(store, zap.NewNop())
	h.Now = func() calendar.TimePoint { return testToday }
	return h
}

func doRequest(t *testing.T, h *Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	NewRouter(h).ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func seedCreditSale(t *testing.T, h *Handler, id string, total string, installments int) {
	t.Helper()
	sale := schedule.SaleRecord{
		ID:                id,
		Client:            "Carlos Mendoza",
		Seller:            "Lucia Fernandez",
		SoldAt:            calendar.NewDay(2025, time.January, 15),
		Condition:         schedule.ConditionCredit,
		Total:             decimal.RequireFromString(total),
		TotalInstallments: installments,
	}
	require.NoError(t, h.Store.SaveSale(context.Background(), sale))
}

// =============================================================================
// SALES
// =============================================================================

func TestCreateSale_Success(t *testing.T) {
	// GIVEN: An empty store
	h := newTestHandler(t)

	// WHEN: Registering a valid credit sale
	rec := doRequest(t, h, http.MethodPost, "/api/sales", CreateSaleRequest{
		ID:                "V-100",
		Client:            "Maria Gonzalez",
		Seller:            "Diego Ramirez",
		SoldAt:            "2025-03-10",
		Condition:         "CREDIT",
		Total:             "900.00",
		TotalInstallments: 6,
	})

	// THEN: 201 and the sale is retrievable
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sale, err := h.Store.GetSale(context.Background(), "V-100")
	require.NoError(t, err)
	assert.Equal(t, "Maria Gonzalez", sale.Client)
	assert.Equal(t, 6, sale.TotalInstallments)
}

func TestCreateSale_ValidationErrors(t *testing.T) {
	h := newTestHandler(t)

	tests := []struct {
		name string
		req  CreateSaleRequest
	}{
		{"missing client", CreateSaleRequest{ID: "V-1", Seller: "S", SoldAt: "2025-01-01", Condition: "CASH", Total: "10.00", TotalInstallments: 1, PaidInstallments: 1}},
		{"bad condition", CreateSaleRequest{ID: "V-2", Client: "C", Seller: "S", SoldAt: "2025-01-01", Condition: "LAYAWAY", Total: "10.00", TotalInstallments: 1}},
		{"bad date", CreateSaleRequest{ID: "V-3", Client: "C", Seller: "S", SoldAt: "01/01/2025", Condition: "CASH", Total: "10.00", TotalInstallments: 1, PaidInstallments: 1}},
		{"zero installments", CreateSaleRequest{ID: "V-4", Client: "C", Seller: "S", SoldAt: "2025-01-01", Condition: "CREDIT", Total: "10.00", TotalInstallments: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, h, http.MethodPost, "/api/sales", tt.req)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestCreateSale_CashMustBeSettled(t *testing.T) {
	// GIVEN: A cash sale declared with pending installments
	h := newTestHandler(t)

	// WHEN: Registering it
	rec := doRequest(t, h, http.MethodPost, "/api/sales", CreateSaleRequest{
		ID: "V-5", Client: "C", Seller: "S", SoldAt: "2025-01-01",
		Condition: "CASH", Total: "10.00", TotalInstallments: 3,
	})

	// THEN: Rejected as invalid
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateSale_Duplicate(t *testing.T) {
	h := newTestHandler(t)
	seedCreditSale(t, h, "V-dup", "100.00", 3)

	rec := doRequest(t, h, http.MethodPost, "/api/sales", CreateSaleRequest{
		ID: "V-dup", Client: "C", Seller: "S", SoldAt: "2025-01-01",
		Condition: "CREDIT", Total: "50.00", TotalInstallments: 2,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestListSales_Metadata(t *testing.T) {
	// GIVEN: One open credit sale and one settled cash sale
	h := newTestHandler(t)
	seedCreditSale(t, h, "V-1", "300.00", 3)
	cash := schedule.SaleRecord{
		ID: "V-2", Client: "Ana Torres", Seller: "S",
		SoldAt:    calendar.NewDay(2025, time.February, 1),
		Condition: schedule.ConditionCash,
		Total:     decimal.RequireFromString("120.50"),
		TotalInstallments: 1, PaidInstallments: 1,
	}
	require.NoError(t, h.Store.SaveSale(context.Background(), cash))

	// WHEN: Listing sales
	rec := doRequest(t, h, http.MethodGet, "/api/sales", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[SalesListResponse](t, rec)

	// THEN: Metadata reflects both sales
	assert.Len(t, resp.Sales, 2)
	assert.Equal(t, 2, resp.Metadata.Quantity)
	assert.Equal(t, 1, resp.Metadata.Cash)
	assert.Equal(t, 1, resp.Metadata.Credit)
	assert.Equal(t, 1, resp.Metadata.Settled)
	assert.Equal(t, 1, resp.Metadata.Outstanding)
	assert.True(t, resp.Metadata.TotalAmount.Equal(decimal.RequireFromString("420.50")))
}

func TestGetSale_NotFound(t *testing.T) {
	h := newTestHandler(t)
	rec := doRequest(t, h, http.MethodGet, "/api/sales/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// SCHEDULE
// =============================================================================

func TestGetSchedule_RoundingAndDueDates(t *testing.T) {
	// GIVEN: A 100.00 sale in 3 installments sold on 2025-01-15
	h := newTestHandler(t)
	seedCreditSale(t, h, "V-1", "100.00", 3)

	// WHEN: Requesting the schedule
	rec := doRequest(t, h, http.MethodGet, "/api/sales/V-1/schedule", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[ScheduleResponse](t, rec)

	// THEN: Standard installments plus remainder on the last one,
	// due dates one month apart
	require.Len(t, resp.Installments, 3)
	assert.Equal(t, "33.33", resp.Installments[0].Amount.StringFixed(2))
	assert.Equal(t, "33.33", resp.Installments[1].Amount.StringFixed(2))
	assert.Equal(t, "33.34", resp.Installments[2].Amount.StringFixed(2))
	assert.Equal(t, "2025-01-15", resp.Installments[0].DueDate)
	assert.Equal(t, "2025-02-15", resp.Installments[1].DueDate)
	assert.Equal(t, "2025-03-15", resp.Installments[2].DueDate)
	assert.True(t, resp.Outstanding.Equal(decimal.RequireFromString("100.00")))
}

// =============================================================================
// PAYMENTS
// =============================================================================

func paymentBody(installment int, amount string) RegisterPaymentRequest {
	return RegisterPaymentRequest{
		InstallmentNumber: installment,
		Amount:            amount,
		PaidAt:            "2025-06-11",
		Method:            "cash",
	}
}

func TestRegisterPayment_Success(t *testing.T) {
	// GIVEN: A fresh 3-installment credit sale
	h := newTestHandler(t)
	seedCreditSale(t, h, "V-1", "100.00", 3)

	// WHEN: Paying installment 1 with the exact derived amount
	rec := doRequest(t, h, http.MethodPost, "/api/sales/V-1/payments", paymentBody(1, "33.33"))

	// THEN: 201 and the paid counter advanced
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sale, err := h.Store.GetSale(context.Background(), "V-1")
	require.NoError(t, err)
	assert.Equal(t, 1, sale.PaidInstallments)
	require.Len(t, sale.Payments, 1)
	assert.Equal(t, "cash", sale.Payments[0].Method)
}

func TestRegisterPayment_OutOfOrder(t *testing.T) {
	// GIVEN: A sale with no payments yet
	h := newTestHandler(t)
	seedCreditSale(t, h, "V-1", "100.00", 3)

	// WHEN: Paying installment 2 before installment 1
	rec := doRequest(t, h, http.MethodPost, "/api/sales/V-1/payments", paymentBody(2, "33.33"))

	// THEN: Conflict
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegisterPayment_AmountMismatch(t *testing.T) {
	h := newTestHandler(t)
	seedCreditSale(t, h, "V-1", "100.00", 3)

	rec := doRequest(t, h, http.MethodPost, "/api/sales/V-1/payments", paymentBody(1, "33.00"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterPayment_FullSequence(t *testing.T) {
	// GIVEN: A 3-installment sale
	h := newTestHandler(t)
	seedCreditSale(t, h, "V-1", "100.00", 3)

	// WHEN: Paying all three installments in order
	for i, amount := range []string{"33.33", "33.33", "33.34"} {
		rec := doRequest(t, h, http.MethodPost, "/api/sales/V-1/payments", paymentBody(i+1, amount))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	// THEN: The sale is settled and a fourth payment is rejected
	sale, err := h.Store.GetSale(context.Background(), "V-1")
	require.NoError(t, err)
	assert.Equal(t, 3, sale.PaidInstallments)

	rec := doRequest(t, h, http.MethodPost, "/api/sales/V-1/payments", paymentBody(4, "0.00"))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestListPaidPayments_NewestFirst(t *testing.T) {
	// GIVEN: Two sales paid on different days
	h := newTestHandler(t)
	ctx := context.Background()
	seedCreditSale(t, h, "V-1", "100.00", 2)
	seedCreditSale(t, h, "V-2", "200.00", 2)

	require.NoError(t, h.Store.AppendPayment(ctx, "V-1", schedule.PaymentRecord{
		InstallmentNumber: 1, Amount: decimal.RequireFromString("50.00"),
		PaidAt: calendar.NewDay(2025, time.February, 1), Method: "cash",
	}))
	require.NoError(t, h.Store.AppendPayment(ctx, "V-2", schedule.PaymentRecord{
		InstallmentNumber: 1, Amount: decimal.RequireFromString("100.00"),
		PaidAt: calendar.NewDay(2025, time.March, 1), Method: "transfer",
	}))

	// WHEN: Listing paid payments
	rec := doRequest(t, h, http.MethodGet, "/api/payments", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	views := decodeBody[[]PaymentViewDTO](t, rec)

	// THEN: Newest first, sequence IDs assigned chronologically
	require.Len(t, views, 2)
	assert.Equal(t, "V-2", views[0].SaleID)
	assert.Equal(t, "PG-002", views[0].ID)
	assert.Equal(t, "V-1", views[1].SaleID)
	assert.Equal(t, "PG-001", views[1].ID)
}

func TestListPendingPayments_NextPayableFlag(t *testing.T) {
	// GIVEN: A 3-installment sale with one payment
	h := newTestHandler(t)
	seedCreditSale(t, h, "V-1", "100.00", 3)
	require.NoError(t, h.Store.AppendPayment(context.Background(), "V-1", schedule.PaymentRecord{
		InstallmentNumber: 1, Amount: decimal.RequireFromString("33.33"),
		PaidAt: calendar.NewDay(2025, time.February, 1), Method: "cash",
	}))

	// WHEN: Listing pending payments
	rec := doRequest(t, h, http.MethodGet, "/api/payments/pending", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	pending := decodeBody[[]PendingPaymentDTO](t, rec)

	// THEN: Installments 2 and 3 pending, only 2 is payable next
	require.Len(t, pending, 2)
	assert.Equal(t, 2, pending[0].Installment.Number)
	assert.True(t, pending[0].NextPayable)
	assert.Equal(t, 3, pending[1].Installment.Number)
	assert.False(t, pending[1].NextPayable)
}

func TestExportPayments_XLSXContentType(t *testing.T) {
	h := newTestHandler(t)
	seedCreditSale(t, h, "V-1", "100.00", 2)
	require.NoError(t, h.Store.AppendPayment(context.Background(), "V-1", schedule.PaymentRecord{
		InstallmentNumber: 1, Amount: decimal.RequireFromString("50.00"),
		PaidAt: calendar.NewDay(2025, time.February, 1), Method: "cash",
	}))

	for _, path := range []string{"/api/payments/export", "/api/payments/pending/export"} {
		rec := doRequest(t, h, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t,
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			rec.Header().Get("Content-Type"), path)
		assert.NotZero(t, rec.Body.Len(), path)
	}
}

// =============================================================================
// AVAILABILITY
// =============================================================================

func seedWarehouses(t *testing.T, h *Handler) {
	t.Helper()
	for _, name := range []string{"Almacen 1", "Almacen 2"} {
		require.NoError(t, h.Store.SaveWarehouse(context.Background(), name))
	}
}

func TestGetAvailability_GridShape(t *testing.T) {
	// GIVEN: A catalog and one occupied warehouse slot on Monday
	h := newTestHandler(t)
	seedWarehouses(t, h)
	monday := calendar.WorkWeekOf(testToday).Start
	require.NoError(t, h.Store.AddOccupiedSlot(context.Background(), availability.OccupiedSlot{
		Type: availability.ResourceWarehouse, Date: monday, Hour: "08:00", ResourceID: "Almacen 1",
	}))

	// WHEN: Requesting the current week grid
	rec := doRequest(t, h, http.MethodGet, "/api/availability?type=warehouse", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	grid := decodeBody[WeekGridResponse](t, rec)

	// THEN: 5 days of 10 slots, Monday 08:00 has one warehouse left
	require.Len(t, grid.Days, 5)
	require.Len(t, grid.Days[0].Slots, 10)
	assert.Equal(t, monday.ISODay(), grid.Days[0].Date)
	assert.False(t, grid.HasPrevious)

	slot := grid.Days[0].Slots[0]
	assert.Equal(t, "08:00", slot.Hour)
	assert.True(t, slot.Available)
	assert.Equal(t, []string{"Almacen 2"}, slot.Resources)
}

func TestGetAvailability_FutureWeekNavigatesBack(t *testing.T) {
	h := newTestHandler(t)
	seedWarehouses(t, h)
	next := calendar.WorkWeekOf(testToday).Next().Start

	rec := doRequest(t, h, http.MethodGet,
		fmt.Sprintf("/api/availability?type=warehouse&date=%s", next.ISODay()), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	grid := decodeBody[WeekGridResponse](t, rec)
	assert.True(t, grid.HasPrevious)
}

func TestGetAvailability_UnknownType(t *testing.T) {
	h := newTestHandler(t)
	rec := doRequest(t, h, http.MethodGet, "/api/availability?type=garage", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReserveSlot_Warehouse(t *testing.T) {
	// GIVEN: An empty catalog week
	h := newTestHandler(t)
	seedWarehouses(t, h)
	day := calendar.WorkWeekOf(testToday).Start.AddDays(7) // next Monday

	reserve := func() *httptest.ResponseRecorder {
		return doRequest(t, h, http.MethodPost, "/api/availability/reservations", ReserveSlotRequest{
			ResourceType: "warehouse",
			Date:         day.ISODay(),
			Hour:         "10:00",
			ResourceID:   "Almacen 1",
		})
	}

	// WHEN: Reserving a slot twice
	first := reserve()
	second := reserve()

	// THEN: First succeeds, second conflicts
	assert.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	assert.Equal(t, http.StatusConflict, second.Code)
}

func TestReserveSlot_Rejections(t *testing.T) {
	h := newTestHandler(t)
	seedWarehouses(t, h)
	monday := calendar.WorkWeekOf(testToday).Start

	tests := []struct {
		name   string
		req    ReserveSlotRequest
		status int
	}{
		{"past date", ReserveSlotRequest{ResourceType: "transport", Date: monday.ISODay(), Hour: "08:00"}, http.StatusBadRequest},
		{"weekend", ReserveSlotRequest{ResourceType: "transport", Date: monday.AddDays(12).ISODay(), Hour: "08:00"}, http.StatusBadRequest},
		{"bad hour", ReserveSlotRequest{ResourceType: "transport", Date: monday.AddDays(7).ISODay(), Hour: "07:00"}, http.StatusBadRequest},
		{"unknown type", ReserveSlotRequest{ResourceType: "garage", Date: monday.AddDays(7).ISODay(), Hour: "08:00"}, http.StatusBadRequest},
		{"warehouse without id", ReserveSlotRequest{ResourceType: "warehouse", Date: monday.AddDays(7).ISODay(), Hour: "08:00"}, http.StatusBadRequest},
		{"warehouse not in catalog", ReserveSlotRequest{ResourceType: "warehouse", Date: monday.AddDays(7).ISODay(), Hour: "08:00", ResourceID: "Almacen 9"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, h, http.MethodPost, "/api/availability/reservations", tt.req)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestReserveSlot_Transport(t *testing.T) {
	// GIVEN: Transport occupancy is per slot, not per resource
	h := newTestHandler(t)
	day := calendar.WorkWeekOf(testToday).Start.AddDays(7)

	req := ReserveSlotRequest{ResourceType: "transport", Date: day.ISODay(), Hour: "08:00"}
	first := doRequest(t, h, http.MethodPost, "/api/availability/reservations", req)
	second := doRequest(t, h, http.MethodPost, "/api/availability/reservations", req)

	assert.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	assert.Equal(t, http.StatusConflict, second.Code)
}

// =============================================================================
// ADMIN
// =============================================================================

func TestLoadFixtures_ThenReset(t *testing.T) {
	// GIVEN: A fresh handler
	h := newTestHandler(t)

	// WHEN: Loading demo fixtures
	rec := doRequest(t, h, http.MethodPost, "/api/fixtures/load", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// THEN: Sales, warehouses and slots are present
	sales, err := h.Store.ListSales(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, sales)

	catalog, err := h.Store.Catalog(context.Background())
	require.NoError(t, err)
	assert.Len(t, catalog.Warehouses, 3)

	// WHEN: Resetting
	rec = doRequest(t, h, http.MethodPost, "/api/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// THEN: Everything is gone
	sales, err = h.Store.ListSales(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sales)
}
