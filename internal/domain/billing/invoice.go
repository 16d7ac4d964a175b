package billing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gestionet/backend/internal/domain/shared"
	"github.com/gestionet/backend/internal/domain/taxsync"
)

// InvoiceLine represents a line item in an invoice
type InvoiceLine struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	InvoiceID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Description string          `gorm:"type:varchar(500);not null"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	VATRate     decimal.Decimal `gorm:"type:decimal(5,2);not null"`  // percentage, e.g. 21 for the general rate
	Amount      decimal.Decimal `gorm:"type:decimal(18,2);not null"` // Quantity * UnitPrice, before VAT
	CreatedAt   time.Time       `gorm:"not null"`
	UpdatedAt   time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (InvoiceLine) TableName() string {
	return "invoice_lines"
}

// NewInvoiceLine creates a new invoice line
func NewInvoiceLine(invoiceID uuid.UUID, description string, quantity, unitPrice, vatRate decimal.Decimal) (*InvoiceLine, error) {
	if description == "" {
		return nil, shared.NewDomainError("INVALID_DESCRIPTION", "Line description cannot be empty")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}
	if vatRate.IsNegative() {
		return nil, shared.NewDomainError("INVALID_VAT_RATE", "VAT rate cannot be negative")
	}

	now := time.Now()
	return &InvoiceLine{
		ID:          uuid.New(),
		InvoiceID:   invoiceID,
		Description: description,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		VATRate:     vatRate,
		Amount:      quantity.Mul(unitPrice).Round(2),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// VATAmount returns the VAT portion of the line
func (l *InvoiceLine) VATAmount() decimal.Decimal {
	return l.Amount.Mul(l.VATRate).Div(decimal.NewFromInt(100)).Round(2)
}

// Invoice represents an issued invoice. It is the aggregate root for
// billing operations and a synchronization target for the tax authority.
// Cancellation is a status transition, never a removal.
type Invoice struct {
	shared.BaseAggregateRoot
	Series        string          `gorm:"type:varchar(10);not null;uniqueIndex:idx_invoice_series_number"`
	Number        string          `gorm:"type:varchar(50);not null;uniqueIndex:idx_invoice_series_number"`
	CustomerID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	CustomerName  string          `gorm:"type:varchar(200);not null"`
	CustomerTaxID string          `gorm:"type:varchar(20);not null"`
	IssueDate     time.Time       `gorm:"not null"`
	Lines         []InvoiceLine   `gorm:"-"`
	TaxableAmount decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	VATAmount     decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Notes         string          `gorm:"type:text"`
	SyncStatus    taxsync.Status  `gorm:"type:varchar(20);not null;default:'draft'"`
	ExternalID    string          `gorm:"type:varchar(100);index"`
	SyncMessage   string          `gorm:"type:text"`
	SyncedAt      *time.Time
	CancelReason  string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (Invoice) TableName() string {
	return "invoices"
}

// NewInvoice creates a new invoice for a customer. The customer tax ID is
// denormalized onto the invoice so the record stays valid even if the
// customer is later edited.
func NewInvoice(series, number string, customerID uuid.UUID, customerName, customerTaxID string, issueDate time.Time) (*Invoice, error) {
	if series == "" {
		return nil, shared.NewDomainError("INVALID_SERIES", "Invoice series cannot be empty")
	}
	if number == "" {
		return nil, shared.NewDomainError("INVALID_NUMBER", "Invoice number cannot be empty")
	}
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	if customerName == "" {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer name cannot be empty")
	}
	if customerTaxID == "" {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer tax ID cannot be empty")
	}
	if issueDate.IsZero() {
		issueDate = time.Now()
	}

	invoice := &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Series:            series,
		Number:            number,
		CustomerID:        customerID,
		CustomerName:      customerName,
		CustomerTaxID:     customerTaxID,
		IssueDate:         issueDate,
		Lines:             make([]InvoiceLine, 0),
		TaxableAmount:     decimal.Zero,
		VATAmount:         decimal.Zero,
		TotalAmount:       decimal.Zero,
		SyncStatus:        taxsync.StatusDraft,
	}

	invoice.AddDomainEvent(NewInvoiceCreatedEvent(invoice))

	return invoice, nil
}

// FullNumber returns the display number, series and number combined
func (i *Invoice) FullNumber() string {
	return fmt.Sprintf("%s-%s", i.Series, i.Number)
}

// AddLine appends a line item and recomputes the totals. Lines can only be
// added while the invoice is still local-only.
func (i *Invoice) AddLine(description string, quantity, unitPrice, vatRate decimal.Decimal) error {
	if i.SyncStatus != taxsync.StatusDraft {
		return shared.ErrInvalidState
	}

	line, err := NewInvoiceLine(i.ID, description, quantity, unitPrice, vatRate)
	if err != nil {
		return err
	}

	i.Lines = append(i.Lines, *line)
	i.recalculateTotals()
	i.UpdatedAt = time.Now()
	i.IncrementVersion()

	return nil
}

// RemoveLine removes a line item by ID and recomputes the totals
func (i *Invoice) RemoveLine(lineID uuid.UUID) error {
	if i.SyncStatus != taxsync.StatusDraft {
		return shared.ErrInvalidState
	}

	for idx, line := range i.Lines {
		if line.ID == lineID {
			i.Lines = append(i.Lines[:idx], i.Lines[idx+1:]...)
			i.recalculateTotals()
			i.UpdatedAt = time.Now()
			i.IncrementVersion()
			return nil
		}
	}
	return shared.ErrNotFound
}

// recalculateTotals recomputes the taxable, VAT and total amounts from the lines
func (i *Invoice) recalculateTotals() {
	taxable := decimal.Zero
	vat := decimal.Zero
	for _, line := range i.Lines {
		taxable = taxable.Add(line.Amount)
		vat = vat.Add(line.VATAmount())
	}
	i.TaxableAmount = taxable
	i.VATAmount = vat
	i.TotalAmount = taxable.Add(vat)
}

// SetNotes sets the invoice notes
func (i *Invoice) SetNotes(notes string) {
	i.Notes = notes
	i.UpdatedAt = time.Now()
	i.IncrementVersion()
}

// ApplySyncTransition moves the invoice to the target sync status,
// enforcing the state machine. A transition to the current status is a
// refresh: it re-records the external ID and message without a state
// change.
func (i *Invoice) ApplySyncTransition(target taxsync.Status, externalID, message string) error {
	if target != i.SyncStatus && !i.SyncStatus.CanTransitionTo(target) {
		return taxsync.ErrInvalidTransition
	}

	now := time.Now()
	i.SyncStatus = target
	if externalID != "" {
		i.ExternalID = externalID
	}
	i.SyncMessage = message
	i.SyncedAt = &now
	i.UpdatedAt = now
	i.IncrementVersion()

	i.AddDomainEvent(NewInvoiceSyncStatusChangedEvent(i, target))

	return nil
}

// MarkSyncError records a failed remote call without touching business data
func (i *Invoice) MarkSyncError(message string) {
	now := time.Now()
	i.SyncStatus = taxsync.StatusError
	i.SyncMessage = message
	i.SyncedAt = &now
	i.UpdatedAt = now
	i.IncrementVersion()

	i.AddDomainEvent(NewInvoiceSyncStatusChangedEvent(i, taxsync.StatusError))
}

// Cancel marks the invoice as cancelled with the mandatory reason. Only
// valid from Pending or Submitted (or Error, to abandon a failed cycle).
func (i *Invoice) Cancel(reason string) error {
	if reason == "" {
		return taxsync.ErrMissingReason
	}
	if !i.SyncStatus.CanTransitionTo(taxsync.StatusCancelled) {
		return taxsync.ErrInvalidTransition
	}

	now := time.Now()
	i.SyncStatus = taxsync.StatusCancelled
	i.CancelReason = reason
	i.SyncedAt = &now
	i.UpdatedAt = now
	i.IncrementVersion()

	i.AddDomainEvent(NewInvoiceCancelledEvent(i, reason))

	return nil
}

// IsCancelled returns true if the invoice has been cancelled
func (i *Invoice) IsCancelled() bool {
	return i.SyncStatus == taxsync.StatusCancelled
}

// SyncPayload builds the wire-ready payload for the tax authority
func (i *Invoice) SyncPayload() *taxsync.InvoicePayload {
	lines := make([]taxsync.InvoiceLinePayload, 0, len(i.Lines))
	for _, line := range i.Lines {
		lines = append(lines, taxsync.InvoiceLinePayload{
			Description: line.Description,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			VATRate:     line.VATRate,
		})
	}

	return &taxsync.InvoicePayload{
		Series:        i.Series,
		Number:        i.Number,
		IssueDate:     i.IssueDate,
		CustomerName:  i.CustomerName,
		CustomerTaxID: i.CustomerTaxID,
		Lines:         lines,
		TaxableAmount: i.TaxableAmount,
		VATAmount:     i.VATAmount,
		TotalAmount:   i.TotalAmount,
	}
}
