package billing

import (
	"github.com/gestionet/backend/internal/domain/shared"
	"github.com/gestionet/backend/internal/domain/taxsync"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeInvoice = "Invoice"

// Event type constants
const (
	EventTypeInvoiceCreated           = "InvoiceCreated"
	EventTypeInvoiceCancelled         = "InvoiceCancelled"
	EventTypeInvoiceSyncStatusChanged = "InvoiceSyncStatusChanged"
)

// InvoiceCreatedEvent is published when a new invoice is created
type InvoiceCreatedEvent struct {
	shared.BaseDomainEvent
	InvoiceID  uuid.UUID `json:"invoice_id"`
	Series     string    `json:"series"`
	Number     string    `json:"number"`
	CustomerID uuid.UUID `json:"customer_id"`
}

// NewInvoiceCreatedEvent creates a new InvoiceCreatedEvent
func NewInvoiceCreatedEvent(invoice *Invoice) *InvoiceCreatedEvent {
	return &InvoiceCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceCreated, AggregateTypeInvoice, invoice.ID),
		InvoiceID:       invoice.ID,
		Series:          invoice.Series,
		Number:          invoice.Number,
		CustomerID:      invoice.CustomerID,
	}
}

// InvoiceCancelledEvent is published when an invoice is cancelled
type InvoiceCancelledEvent struct {
	shared.BaseDomainEvent
	InvoiceID   uuid.UUID       `json:"invoice_id"`
	Number      string          `json:"number"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Reason      string          `json:"reason"`
}

// NewInvoiceCancelledEvent creates a new InvoiceCancelledEvent
func NewInvoiceCancelledEvent(invoice *Invoice, reason string) *InvoiceCancelledEvent {
	return &InvoiceCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceCancelled, AggregateTypeInvoice, invoice.ID),
		InvoiceID:       invoice.ID,
		Number:          invoice.FullNumber(),
		TotalAmount:     invoice.TotalAmount,
		Reason:          reason,
	}
}

// InvoiceSyncStatusChangedEvent is published on every sync status change
type InvoiceSyncStatusChangedEvent struct {
	shared.BaseDomainEvent
	InvoiceID  uuid.UUID      `json:"invoice_id"`
	SyncStatus taxsync.Status `json:"sync_status"`
	ExternalID string         `json:"external_id,omitempty"`
}

// NewInvoiceSyncStatusChangedEvent creates a new InvoiceSyncStatusChangedEvent
func NewInvoiceSyncStatusChangedEvent(invoice *Invoice, status taxsync.Status) *InvoiceSyncStatusChangedEvent {
	return &InvoiceSyncStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceSyncStatusChanged, AggregateTypeInvoice, invoice.ID),
		InvoiceID:       invoice.ID,
		SyncStatus:      status,
		ExternalID:      invoice.ExternalID,
	}
}
