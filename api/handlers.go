/*
handlers.go - HTTP API handlers for the backoffice engine

PURPOSE:
  Exposes sales, payment schedules, and resource availability via REST.
  Handles HTTP request/response, JSON serialization, and delegates to
  the derivation packages.

ENDPOINTS:
  Sales:
    GET    /api/sales                     List sales with metadata
    POST   /api/sales                     Register a sale
    GET    /api/sales/{id}                Sale detail with payments
    GET    /api/sales/{id}/schedule       Derived installment plan
    POST   /api/sales/{id}/payments       Register a payment

  Payments:
    GET    /api/payments                  Paid payments, newest first
    GET    /api/payments/export           Paid payments as XLSX
    GET    /api/payments/pending          Pending installments
    GET    /api/payments/pending/export   Pending installments as XLSX

  Availability:
    GET    /api/availability              Week grid (type, date params)
    POST   /api/availability/reservations Reserve a slot
    GET    /api/warehouses                Warehouse catalog

  Admin:
    POST   /api/fixtures/load             Reset and load demo data
    POST   /api/reset                     Clear the database

REQUEST FLOW:
  1. Parse and validate input (go-playground/validator)
  2. Load flat records from the store
  3. Derive (schedule / availability packages)
  4. Serialize response

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, unknown resource type
  - 404: Sale not found
  - 409: Conflict (occupied slot, duplicate, installment not payable)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - fixtures.go: Demo data loader
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ferrex/backoffice-engine/availability"
	"github.com/ferrex/backoffice-engine/calendar"
	"github.com/ferrex/backoffice-engine/report"
	"github.com/ferrex/backoffice-engine/schedule"
	"github.com/ferrex/backoffice-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    *sqlite.Store
	Logger   *zap.Logger
	Validate *validator.Validate

	// Now anchors "today" for week navigation and the no-past
	// reservation rule. Overridable in tests.
	Now func() calendar.TimePoint
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Store:    store,
		Logger:   logger,
		Validate: validator.New(),
		Now:      calendar.Today,
	}
}

// =============================================================================
// SALES ENDPOINTS
// =============================================================================

// ListSales returns all sales with listing metadata.
// GET /api/sales
func (h *Handler) ListSales(w http.ResponseWriter, r *http.Request) {
	sales, err := h.Store.ListSales(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to list sales", err)
		return
	}

	resp := SalesListResponse{Sales: make([]SaleDTO, 0, len(sales))}
	resp.Metadata.TotalAmount = decimal.Zero
	for _, sale := range sales {
		resp.Sales = append(resp.Sales, toSaleDTO(sale, false))
		resp.Metadata.Quantity++
		resp.Metadata.TotalAmount = resp.Metadata.TotalAmount.Add(sale.Total)
		switch sale.Condition {
		case schedule.ConditionCash:
			resp.Metadata.Cash++
		case schedule.ConditionCredit:
			resp.Metadata.Credit++
		}
		if sale.PaidInstallments >= sale.TotalInstallments {
			resp.Metadata.Settled++
		} else {
			resp.Metadata.Outstanding++
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetSale returns a single sale with its payments.
// GET /api/sales/{id}
func (h *Handler) GetSale(w http.ResponseWriter, r *http.Request) {
	sale, err := h.Store.GetSale(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, statusFor(err), "failed to load sale", err)
		return
	}
	writeJSON(w, http.StatusOK, toSaleDTO(*sale, true))
}

// CreateSale registers a new sale.
// POST /api/sales
func (h *Handler) CreateSale(w http.ResponseWriter, r *http.Request) {
	var req CreateSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON", err)
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request", err)
		return
	}

	soldAt, err := calendar.ParseDay(req.SoldAt)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid sold_at", err)
		return
	}
	total, err := decimal.NewFromString(req.Total)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid total", err)
		return
	}

	sale := schedule.SaleRecord{
		ID:                req.ID,
		Client:            req.Client,
		Seller:            req.Seller,
		SoldAt:            soldAt,
		Condition:         schedule.PaymentCondition(req.Condition),
		Total:             total,
		TotalInstallments: req.TotalInstallments,
		PaidInstallments:  req.PaidInstallments,
	}
	// Fail fast before persisting anything malformed.
	if err := schedule.Validate(sale); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid sale", err)
		return
	}
	if err := h.Store.SaveSale(r.Context(), sale); err != nil {
		h.writeError(w, statusFor(err), "failed to save sale", err)
		return
	}

	h.Logger.Info("sale registered",
		zap.String("sale_id", sale.ID),
		zap.String("condition", string(sale.Condition)),
		zap.String("total", sale.Total.String()),
	)
	writeJSON(w, http.StatusCreated, toSaleDTO(sale, false))
}

// GetSchedule returns the derived installment plan of a sale.
// GET /api/sales/{id}/schedule
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	sale, err := h.Store.GetSale(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, statusFor(err), "failed to load sale", err)
		return
	}

	plan, err := schedule.DeriveInstallmentPlan(*sale)
	if err != nil {
		h.writeError(w, statusFor(err), "failed to derive schedule", err)
		return
	}
	paid, outstanding := schedule.SummarizePlan(plan)

	resp := ScheduleResponse{
		SaleID:      sale.ID,
		Client:      sale.Client,
		Total:       sale.Total,
		Paid:        paid,
		Outstanding: outstanding,
	}
	for _, inst := range plan {
		resp.Installments = append(resp.Installments, toInstallmentDTO(inst))
	}
	writeJSON(w, http.StatusOK, resp)
}

// RegisterPayment records a payment against the next payable
// installment of a sale.
// POST /api/sales/{id}/payments
func (h *Handler) RegisterPayment(w http.ResponseWriter, r *http.Request) {
	var req RegisterPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON", err)
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request", err)
		return
	}

	sale, err := h.Store.GetSale(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, statusFor(err), "failed to load sale", err)
		return
	}

	// Only the installment right after the last paid one is payable.
	if req.InstallmentNumber != sale.PaidInstallments+1 {
		h.writeError(w, http.StatusConflict, "installment out of order",
			fmt.Errorf("installment %d of sale %s: %w (next is %d)",
				req.InstallmentNumber, sale.ID, schedule.ErrInstallmentNotPayable, sale.PaidInstallments+1))
		return
	}
	if sale.PaidInstallments >= sale.TotalInstallments {
		h.writeError(w, http.StatusConflict, "sale already settled",
			fmt.Errorf("sale %s: %w", sale.ID, schedule.ErrInstallmentNotPayable))
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid amount", err)
		return
	}
	due := schedule.InstallmentAmount(sale.Total, sale.TotalInstallments, req.InstallmentNumber)
	if !amount.Equal(due) {
		h.writeError(w, http.StatusBadRequest, "amount mismatch",
			fmt.Errorf("installment %d of sale %s expects %s, got %s",
				req.InstallmentNumber, sale.ID, due, amount))
		return
	}
	paidAt, err := calendar.ParseDay(req.PaidAt)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid paid_at", err)
		return
	}

	payment := schedule.PaymentRecord{
		InstallmentNumber: req.InstallmentNumber,
		Amount:            amount,
		PaidAt:            paidAt,
		Method:            req.Method,
		PayerName:         req.PayerName,
	}
	if err := h.Store.AppendPayment(r.Context(), sale.ID, payment); err != nil {
		h.writeError(w, statusFor(err), "failed to register payment", err)
		return
	}

	h.Logger.Info("payment registered",
		zap.String("sale_id", sale.ID),
		zap.Int("installment", req.InstallmentNumber),
		zap.String("amount", amount.String()),
	)

	updated, err := h.Store.GetSale(r.Context(), sale.ID)
	if err != nil {
		h.writeError(w, statusFor(err), "failed to reload sale", err)
		return
	}
	writeJSON(w, http.StatusCreated, toSaleDTO(*updated, true))
}

// =============================================================================
// PAYMENT REPORT ENDPOINTS
// =============================================================================

func (h *Handler) paidPayments(r *http.Request) ([]schedule.PaymentView, error) {
	sales, err := h.Store.ListSales(r.Context())
	if err != nil {
		return nil, err
	}
	return schedule.DeriveAllPaidPayments(sales)
}

// ListPaidPayments returns every registered payment, newest first.
// GET /api/payments
func (h *Handler) ListPaidPayments(w http.ResponseWriter, r *http.Request) {
	views, err := h.paidPayments(r)
	if err != nil {
		h.writeError(w, statusFor(err), "failed to derive payments", err)
		return
	}

	dtos := make([]PaymentViewDTO, 0, len(views))
	for _, v := range views {
		dtos = append(dtos, PaymentViewDTO{
			ID:          v.ID,
			Sequence:    v.Sequence,
			SaleID:      v.SaleID,
			Installment: toInstallmentDTO(v.Installment),
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ExportPaidPayments streams the paid-payments report as XLSX.
// GET /api/payments/export
func (h *Handler) ExportPaidPayments(w http.ResponseWriter, r *http.Request) {
	views, err := h.paidPayments(r)
	if err != nil {
		h.writeError(w, statusFor(err), "failed to derive payments", err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="payments.xlsx"`)
	if err := report.WritePayments(w, views); err != nil {
		h.Logger.Error("payments export failed", zap.Error(err))
	}
}

func (h *Handler) pendingPayments(r *http.Request) ([]schedule.PendingPayment, []schedule.SaleRecord, error) {
	sales, err := h.Store.ListSales(r.Context())
	if err != nil {
		return nil, nil, err
	}
	pending, err := schedule.DerivePendingPayments(sales)
	return pending, sales, err
}

// ListPendingPayments returns every unpaid installment of unsettled
// credit sales.
// GET /api/payments/pending
func (h *Handler) ListPendingPayments(w http.ResponseWriter, r *http.Request) {
	pending, sales, err := h.pendingPayments(r)
	if err != nil {
		h.writeError(w, statusFor(err), "failed to derive pending payments", err)
		return
	}

	bySale := make(map[string]schedule.SaleRecord, len(sales))
	for _, s := range sales {
		bySale[s.ID] = s
	}

	dtos := make([]PendingPaymentDTO, 0, len(pending))
	for _, p := range pending {
		dtos = append(dtos, PendingPaymentDTO{
			SaleID:      p.SaleID,
			ClientName:  p.ClientName,
			NextPayable: p.NextPayable(bySale[p.SaleID]),
			Installment: toInstallmentDTO(p.Installment),
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ExportPendingPayments streams the pending report as XLSX.
// GET /api/payments/pending/export
func (h *Handler) ExportPendingPayments(w http.ResponseWriter, r *http.Request) {
	pending, _, err := h.pendingPayments(r)
	if err != nil {
		h.writeError(w, statusFor(err), "failed to derive pending payments", err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="pending.xlsx"`)
	if err := report.WritePendingPayments(w, pending); err != nil {
		h.Logger.Error("pending export failed", zap.Error(err))
	}
}

// =============================================================================
// AVAILABILITY ENDPOINTS
// =============================================================================

// GetAvailability returns the week availability grid.
// GET /api/availability?type=warehouse&date=2025-01-08
func (h *Handler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	resourceType, err := availability.ParseResourceType(r.URL.Query().Get("type"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid resource type", err)
		return
	}

	today := h.Now()
	ref := today
	if d := r.URL.Query().Get("date"); d != "" {
		if ref, err = calendar.ParseDay(d); err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid date", err)
			return
		}
	}

	slots, err := h.Store.ListOccupiedSlots(r.Context(), resourceType)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to load occupied slots", err)
		return
	}
	idx, err := availability.BuildBusyIndex(slots, resourceType)
	if err != nil {
		h.writeError(w, statusFor(err), "failed to index slots", err)
		return
	}
	catalog, err := h.Store.Catalog(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to load catalog", err)
		return
	}

	grid := availability.ComputeWeekGrid(idx, calendar.WorkWeekOf(ref), catalog, today)
	writeJSON(w, http.StatusOK, toWeekGridResponse(grid))
}

// ReserveSlot books a free slot.
// POST /api/availability/reservations
func (h *Handler) ReserveSlot(w http.ResponseWriter, r *http.Request) {
	var req ReserveSlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON", err)
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request", err)
		return
	}

	resourceType, err := availability.ParseResourceType(req.ResourceType)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid resource type", err)
		return
	}
	date, err := calendar.ParseDay(req.Date)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid date", err)
		return
	}
	if _, err := calendar.ParseHourSlot(req.Hour); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid hour", err)
		return
	}
	if date.IsWeekend() {
		h.writeError(w, http.StatusBadRequest, "invalid date",
			fmt.Errorf("%s falls on a weekend", date))
		return
	}
	if date.Before(h.Now()) {
		h.writeError(w, http.StatusBadRequest, "invalid date",
			fmt.Errorf("%s is in the past", date))
		return
	}
	if resourceType == availability.ResourceWarehouse && req.ResourceID == "" {
		h.writeError(w, http.StatusBadRequest, "invalid request",
			errors.New("resource_id is required for warehouse reservations"))
		return
	}

	// Derive availability before booking so the caller gets a clean
	// conflict instead of a constraint error.
	slots, err := h.Store.ListOccupiedSlots(r.Context(), resourceType)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to load occupied slots", err)
		return
	}
	idx, err := availability.BuildBusyIndex(slots, resourceType)
	if err != nil {
		h.writeError(w, statusFor(err), "failed to index slots", err)
		return
	}
	if idx.IsBusy(date, req.Hour, req.ResourceID) {
		h.writeError(w, http.StatusConflict, "slot occupied",
			fmt.Errorf("%s %s %s: %w", date, req.Hour, req.ResourceID, availability.ErrSlotOccupied))
		return
	}
	if resourceType == availability.ResourceWarehouse {
		catalog, err := h.Store.Catalog(r.Context())
		if err != nil {
			h.writeError(w, http.StatusInternalServerError, "failed to load catalog", err)
			return
		}
		if !contains(catalog.Warehouses, req.ResourceID) {
			h.writeError(w, http.StatusBadRequest, "unknown warehouse",
				fmt.Errorf("warehouse %q is not in the catalog", req.ResourceID))
			return
		}
	}

	slot := availability.OccupiedSlot{
		Type:       resourceType,
		Date:       date,
		Hour:       req.Hour,
		ResourceID: req.ResourceID,
	}
	if err := h.Store.AddOccupiedSlot(r.Context(), slot); err != nil {
		h.writeError(w, statusFor(err), "failed to reserve slot", err)
		return
	}

	h.Logger.Info("slot reserved",
		zap.String("resource_type", string(resourceType)),
		zap.String("date", date.ISODay()),
		zap.String("hour", req.Hour),
		zap.String("resource_id", req.ResourceID),
	)
	writeJSON(w, http.StatusCreated, map[string]string{
		"resource_type": string(resourceType),
		"date":          date.ISODay(),
		"hour":          req.Hour,
		"resource_id":   req.ResourceID,
	})
}

// ListWarehouses returns the warehouse catalog.
// GET /api/warehouses
func (h *Handler) ListWarehouses(w http.ResponseWriter, r *http.Request) {
	catalog, err := h.Store.Catalog(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to load catalog", err)
		return
	}
	if catalog.Warehouses == nil {
		catalog.Warehouses = []string{}
	}
	writeJSON(w, http.StatusOK, catalog.Warehouses)
}

// =============================================================================
// ADMIN ENDPOINTS
// =============================================================================

// ResetDatabase clears all tables.
// POST /api/reset
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to reset database", err)
		return
	}
	h.Logger.Warn("database reset")
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// HELPERS
// =============================================================================

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string, err error) {
	if status >= http.StatusInternalServerError {
		h.Logger.Error(message, zap.Error(err))
	} else {
		h.Logger.Warn(message, zap.Error(err))
	}
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, sqlite.ErrSaleNotFound):
		return http.StatusNotFound
	case errors.Is(err, sqlite.ErrDuplicateSale),
		errors.Is(err, sqlite.ErrDuplicatePayment),
		errors.Is(err, availability.ErrSlotOccupied),
		errors.Is(err, schedule.ErrInstallmentNotPayable):
		return http.StatusConflict
	case schedule.IsClientError(err),
		errors.Is(err, availability.ErrUnknownResourceType):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
