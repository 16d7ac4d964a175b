package billing

import (
	"context"

	"github.com/gestionet/backend/internal/domain/shared"
	"github.com/gestionet/backend/internal/domain/taxsync"
	"github.com/google/uuid"
)

// InvoiceRepository defines the interface for invoice persistence
type InvoiceRepository interface {
	// FindByID finds an invoice (with its lines) by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// FindByNumber finds an invoice by series and number
	FindByNumber(ctx context.Context, series, number string) (*Invoice, error)

	// FindByCustomer finds all invoices for a customer
	FindByCustomer(ctx context.Context, customerID uuid.UUID, filter shared.Filter) ([]Invoice, error)

	// FindBySyncStatus finds invoices in a given sync status
	FindBySyncStatus(ctx context.Context, status taxsync.Status, filter shared.Filter) ([]Invoice, error)

	// FindAll finds all invoices matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]Invoice, error)

	// Count counts invoices matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// ExistsByNumber checks if an invoice with the given series and number exists
	ExistsByNumber(ctx context.Context, series, number string) (bool, error)

	// Save persists an invoice and its lines (insert or update)
	Save(ctx context.Context, invoice *Invoice) error
}
