package partner

import (
	"github.com/gestionet/backend/internal/domain/shared"
	"github.com/gestionet/backend/internal/domain/taxsync"
	"github.com/google/uuid"
)

// Aggregate type constant
const AggregateTypeCustomer = "Customer"

// Event type constants
const (
	EventTypeCustomerCreated           = "CustomerCreated"
	EventTypeCustomerUpdated           = "CustomerUpdated"
	EventTypeCustomerDeactivated       = "CustomerDeactivated"
	EventTypeCustomerSyncStatusChanged = "CustomerSyncStatusChanged"
)

// CustomerCreatedEvent is published when a new customer is created
type CustomerCreatedEvent struct {
	shared.BaseDomainEvent
	CustomerID uuid.UUID `json:"customer_id"`
	Code       string    `json:"code"`
	Name       string    `json:"name"`
	FiscalID   string    `json:"fiscal_id"`
}

// NewCustomerCreatedEvent creates a new CustomerCreatedEvent
func NewCustomerCreatedEvent(customer *Customer) *CustomerCreatedEvent {
	return &CustomerCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCustomerCreated, AggregateTypeCustomer, customer.ID),
		CustomerID:      customer.ID,
		Code:            customer.Code,
		Name:            customer.Name,
		FiscalID:        customer.FiscalID,
	}
}

// CustomerUpdatedEvent is published when a customer is updated
type CustomerUpdatedEvent struct {
	shared.BaseDomainEvent
	CustomerID uuid.UUID `json:"customer_id"`
	Code       string    `json:"code"`
	Name       string    `json:"name"`
}

// NewCustomerUpdatedEvent creates a new CustomerUpdatedEvent
func NewCustomerUpdatedEvent(customer *Customer) *CustomerUpdatedEvent {
	return &CustomerUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCustomerUpdated, AggregateTypeCustomer, customer.ID),
		CustomerID:      customer.ID,
		Code:            customer.Code,
		Name:            customer.Name,
	}
}

// CustomerDeactivatedEvent is published when a customer is deactivated
type CustomerDeactivatedEvent struct {
	shared.BaseDomainEvent
	CustomerID uuid.UUID `json:"customer_id"`
	Code       string    `json:"code"`
}

// NewCustomerDeactivatedEvent creates a new CustomerDeactivatedEvent
func NewCustomerDeactivatedEvent(customer *Customer) *CustomerDeactivatedEvent {
	return &CustomerDeactivatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCustomerDeactivated, AggregateTypeCustomer, customer.ID),
		CustomerID:      customer.ID,
		Code:            customer.Code,
	}
}

// CustomerSyncStatusChangedEvent is published on every sync status change
type CustomerSyncStatusChangedEvent struct {
	shared.BaseDomainEvent
	CustomerID uuid.UUID      `json:"customer_id"`
	SyncStatus taxsync.Status `json:"sync_status"`
	ExternalID string         `json:"external_id,omitempty"`
}

// NewCustomerSyncStatusChangedEvent creates a new CustomerSyncStatusChangedEvent
func NewCustomerSyncStatusChangedEvent(customer *Customer, status taxsync.Status) *CustomerSyncStatusChangedEvent {
	return &CustomerSyncStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCustomerSyncStatusChanged, AggregateTypeCustomer, customer.ID),
		CustomerID:      customer.ID,
		SyncStatus:      status,
		ExternalID:      customer.ExternalID,
	}
}
