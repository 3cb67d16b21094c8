/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types
  decouple the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

AMOUNTS AND DATES:
  Amounts travel as decimal strings ("123.45") and dates as ISO days
  ("2006-01-02"). Currency symbols and locale formatting belong to the
  frontend, not this API.

VALIDATION:
  Request types carry go-playground/validator tags; handlers run the
  validator before touching domain logic.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/ferrex/backoffice-engine/availability"
	"github.com/ferrex/backoffice-engine/schedule"
)

// =============================================================================
// SALES
// =============================================================================

// SaleDTO represents a sale in API responses.
type SaleDTO struct {
	ID                string          `json:"id"`
	Client            string          `json:"client"`
	Seller            string          `json:"seller"`
	SoldAt            string          `json:"sold_at"`
	Condition         string          `json:"condition"`
	Total             decimal.Decimal `json:"total"`
	TotalInstallments int             `json:"total_installments"`
	PaidInstallments  int             `json:"paid_installments"`
	Payments          []PaymentRecordDTO `json:"payments,omitempty"`
}

// PaymentRecordDTO is one registered payment of a sale.
type PaymentRecordDTO struct {
	InstallmentNumber int             `json:"installment_number"`
	Amount            decimal.Decimal `json:"amount"`
	PaidAt            string          `json:"paid_at"`
	Method            string          `json:"method"`
	PayerName         string          `json:"payer_name,omitempty"`
}

// SalesMetadataDTO summarizes a sales listing.
type SalesMetadataDTO struct {
	Quantity    int             `json:"quantity"`
	Cash        int             `json:"cash"`
	Credit      int             `json:"credit"`
	Settled     int             `json:"settled"`
	Outstanding int             `json:"outstanding"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// SalesListResponse wraps the listing with its metadata.
type SalesListResponse struct {
	Sales    []SaleDTO        `json:"sales"`
	Metadata SalesMetadataDTO `json:"metadata"`
}

// CreateSaleRequest is the request to register a sale.
type CreateSaleRequest struct {
	ID                string `json:"id" validate:"required"`
	Client            string `json:"client" validate:"required"`
	Seller            string `json:"seller" validate:"required"`
	SoldAt            string `json:"sold_at" validate:"required,datetime=2006-01-02"`
	Condition         string `json:"condition" validate:"required,oneof=CASH CREDIT"`
	Total             string `json:"total" validate:"required"`
	TotalInstallments int    `json:"total_installments" validate:"required,min=1"`
	PaidInstallments  int    `json:"paid_installments" validate:"min=0"`
}

// =============================================================================
// SCHEDULE
// =============================================================================

// InstallmentDTO is one derived installment of a sale's plan.
type InstallmentDTO struct {
	SaleID            string          `json:"sale_id"`
	Number            int             `json:"number"`
	TotalInstallments int             `json:"total_installments"`
	DueDate           string          `json:"due_date"`
	Amount            decimal.Decimal `json:"amount"`
	Paid              bool            `json:"paid"`
	PaymentDate       string          `json:"payment_date,omitempty"`
	Method            string          `json:"method,omitempty"`
	PayerName         string          `json:"payer_name,omitempty"`
}

// ScheduleResponse is a sale's full installment plan with totals.
type ScheduleResponse struct {
	SaleID       string           `json:"sale_id"`
	Client       string           `json:"client"`
	Total        decimal.Decimal  `json:"total"`
	Paid         decimal.Decimal  `json:"paid"`
	Outstanding  decimal.Decimal  `json:"outstanding"`
	Installments []InstallmentDTO `json:"installments"`
}

// PaymentViewDTO is one row of the paid-payments report.
type PaymentViewDTO struct {
	ID          string         `json:"id"`
	Sequence    int            `json:"sequence"`
	SaleID      string         `json:"sale_id"`
	Installment InstallmentDTO `json:"installment"`
}

// PendingPaymentDTO is one unpaid installment of a credit sale.
type PendingPaymentDTO struct {
	SaleID      string         `json:"sale_id"`
	ClientName  string         `json:"client_name"`
	NextPayable bool           `json:"next_payable"`
	Installment InstallmentDTO `json:"installment"`
}

// RegisterPaymentRequest registers a payment against an installment.
type RegisterPaymentRequest struct {
	InstallmentNumber int    `json:"installment_number" validate:"required,min=1"`
	Amount            string `json:"amount" validate:"required"`
	PaidAt            string `json:"paid_at" validate:"required,datetime=2006-01-02"`
	Method            string `json:"method" validate:"required"`
	PayerName         string `json:"payer_name"`
}

// =============================================================================
// AVAILABILITY
// =============================================================================

// SlotDTO is one grid cell.
type SlotDTO struct {
	Hour      string   `json:"hour"`
	Available bool     `json:"available"`
	Resources []string `json:"resources,omitempty"`
}

// DayDTO is one weekday column.
type DayDTO struct {
	Date  string    `json:"date"`
	Slots []SlotDTO `json:"slots"`
}

// WeekGridResponse is the full availability grid for one work week.
type WeekGridResponse struct {
	ResourceType string   `json:"resource_type"`
	WeekStart    string   `json:"week_start"`
	WeekEnd      string   `json:"week_end"`
	Hours        []string `json:"hours"`
	Days         []DayDTO `json:"days"`
	HasPrevious  bool     `json:"has_previous"`
}

// ReserveSlotRequest books a (day, hour, resource).
type ReserveSlotRequest struct {
	ResourceType string `json:"resource_type" validate:"required"`
	Date         string `json:"date" validate:"required,datetime=2006-01-02"`
	Hour         string `json:"hour" validate:"required"`
	ResourceID   string `json:"resource_id"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toSaleDTO(sale schedule.SaleRecord, withPayments bool) SaleDTO {
	dto := SaleDTO{
		ID:                sale.ID,
		Client:            sale.Client,
		Seller:            sale.Seller,
		SoldAt:            sale.SoldAt.ISODay(),
		Condition:         string(sale.Condition),
		Total:             sale.Total,
		TotalInstallments: sale.TotalInstallments,
		PaidInstallments:  sale.PaidInstallments,
	}
	if withPayments {
		for _, p := range sale.Payments {
			dto.Payments = append(dto.Payments, PaymentRecordDTO{
				InstallmentNumber: p.InstallmentNumber,
				Amount:            p.Amount,
				PaidAt:            p.PaidAt.ISODay(),
				Method:            p.Method,
				PayerName:         p.PayerName,
			})
		}
	}
	return dto
}

func toInstallmentDTO(inst schedule.Installment) InstallmentDTO {
	dto := InstallmentDTO{
		SaleID:            inst.SaleID,
		Number:            inst.Number,
		TotalInstallments: inst.TotalInstallments,
		DueDate:           inst.DueDate.ISODay(),
		Amount:            inst.Amount,
		Paid:              inst.Paid,
		Method:            inst.Method,
		PayerName:         inst.PayerName,
	}
	if inst.Paid && !inst.PaidAt.IsZero() {
		dto.PaymentDate = inst.PaidAt.ISODay()
	}
	return dto
}

func toWeekGridResponse(grid availability.WeekGrid) WeekGridResponse {
	resp := WeekGridResponse{
		ResourceType: string(grid.ResourceType),
		WeekStart:    grid.Week.Start.ISODay(),
		WeekEnd:      grid.Week.End().ISODay(),
		Hours:        grid.Hours,
		HasPrevious:  grid.HasPrevious,
	}
	for _, day := range grid.Days {
		col := DayDTO{Date: day.Date.ISODay()}
		for _, slot := range day.Slots {
			col.Slots = append(col.Slots, SlotDTO{
				Hour:      slot.Hour,
				Available: slot.Available,
				Resources: slot.Resources,
			})
		}
		resp.Days = append(resp.Days, col)
	}
	return resp
}
