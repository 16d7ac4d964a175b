package billing

import (
	"time"

	"github.com/gestionet/backend/internal/domain/billing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceLineRequest represents one line of an invoice creation request
type InvoiceLineRequest struct {
	Description string          `json:"description" binding:"required,min=1,max=500"`
	Quantity    decimal.Decimal `json:"quantity" binding:"required"`
	UnitPrice   decimal.Decimal `json:"unit_price" binding:"required"`
	VATRate     decimal.Decimal `json:"vat_rate"`
}

// CreateInvoiceRequest represents a request to create a new invoice
type CreateInvoiceRequest struct {
	Series     string               `json:"series" binding:"required,min=1,max=20"`
	Number     string               `json:"number" binding:"required,min=1,max=30"`
	CustomerID uuid.UUID            `json:"customer_id" binding:"required"`
	IssueDate  time.Time            `json:"issue_date" binding:"required"`
	Lines      []InvoiceLineRequest `json:"lines" binding:"required,min=1,dive"`
	Notes      string               `json:"notes"`
}

// CancelInvoiceRequest represents a request to cancel an invoice
type CancelInvoiceRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// InvoiceLineResponse represents an invoice line in API responses
type InvoiceLineResponse struct {
	ID          uuid.UUID       `json:"id"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	VATRate     decimal.Decimal `json:"vat_rate"`
	Amount      decimal.Decimal `json:"amount"`
	VATAmount   decimal.Decimal `json:"vat_amount"`
}

// InvoiceResponse represents an invoice in API responses
type InvoiceResponse struct {
	ID            uuid.UUID             `json:"id"`
	Series        string                `json:"series"`
	Number        string                `json:"number"`
	FullNumber    string                `json:"full_number"`
	CustomerID    uuid.UUID             `json:"customer_id"`
	CustomerName  string                `json:"customer_name"`
	CustomerTaxID string                `json:"customer_tax_id"`
	IssueDate     time.Time             `json:"issue_date"`
	Lines         []InvoiceLineResponse `json:"lines"`
	TaxableAmount decimal.Decimal       `json:"taxable_amount"`
	VATAmount     decimal.Decimal       `json:"vat_amount"`
	TotalAmount   decimal.Decimal       `json:"total_amount"`
	Notes         string                `json:"notes"`
	SyncStatus    string                `json:"sync_status"`
	ExternalID    string                `json:"external_id,omitempty"`
	SyncMessage   string                `json:"sync_message,omitempty"`
	SyncedAt      *time.Time            `json:"synced_at,omitempty"`
	CancelReason  string                `json:"cancel_reason,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
	Version       int                   `json:"version"`
}

// InvoiceListResponse represents a list item for invoices
type InvoiceListResponse struct {
	ID           uuid.UUID       `json:"id"`
	FullNumber   string          `json:"full_number"`
	CustomerName string          `json:"customer_name"`
	IssueDate    time.Time       `json:"issue_date"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	SyncStatus   string          `json:"sync_status"`
	CreatedAt    time.Time       `json:"created_at"`
}

// InvoiceListFilter represents filter options for invoice list
type InvoiceListFilter struct {
	Search     string `form:"search"`
	CustomerID string `form:"customer_id" binding:"omitempty,uuid"`
	SyncStatus string `form:"sync_status" binding:"omitempty,oneof=draft pending submitted accepted rejected cancelled error"`
	Series     string `form:"series"`
	Page       int    `form:"page" binding:"omitempty,min=1"`
	PageSize   int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy    string `form:"order_by"`
	OrderDir   string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ToInvoiceResponse converts a domain Invoice to InvoiceResponse
func ToInvoiceResponse(inv *billing.Invoice) InvoiceResponse {
	lines := make([]InvoiceLineResponse, 0, len(inv.Lines))
	for i := range inv.Lines {
		line := &inv.Lines[i]
		lines = append(lines, InvoiceLineResponse{
			ID:          line.ID,
			Description: line.Description,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			VATRate:     line.VATRate,
			Amount:      line.Amount,
			VATAmount:   line.VATAmount(),
		})
	}

	return InvoiceResponse{
		ID:            inv.ID,
		Series:        inv.Series,
		Number:        inv.Number,
		FullNumber:    inv.FullNumber(),
		CustomerID:    inv.CustomerID,
		CustomerName:  inv.CustomerName,
		CustomerTaxID: inv.CustomerTaxID,
		IssueDate:     inv.IssueDate,
		Lines:         lines,
		TaxableAmount: inv.TaxableAmount,
		VATAmount:     inv.VATAmount,
		TotalAmount:   inv.TotalAmount,
		Notes:         inv.Notes,
		SyncStatus:    inv.SyncStatus.String(),
		ExternalID:    inv.ExternalID,
		SyncMessage:   inv.SyncMessage,
		SyncedAt:      inv.SyncedAt,
		CancelReason:  inv.CancelReason,
		CreatedAt:     inv.CreatedAt,
		UpdatedAt:     inv.UpdatedAt,
		Version:       inv.Version,
	}
}

// ToInvoiceListResponse converts a domain Invoice to InvoiceListResponse
func ToInvoiceListResponse(inv *billing.Invoice) InvoiceListResponse {
	return InvoiceListResponse{
		ID:           inv.ID,
		FullNumber:   inv.FullNumber(),
		CustomerName: inv.CustomerName,
		IssueDate:    inv.IssueDate,
		TotalAmount:  inv.TotalAmount,
		SyncStatus:   inv.SyncStatus.String(),
		CreatedAt:    inv.CreatedAt,
	}
}
