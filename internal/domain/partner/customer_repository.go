package partner

import (
	"context"

	"github.com/gestionet/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// CustomerRepository defines the interface for customer persistence
type CustomerRepository interface {
	// FindByID finds a customer by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Customer, error)

	// FindByCode finds a customer by its code
	FindByCode(ctx context.Context, code string) (*Customer, error)

	// FindByFiscalID finds a customer by its normalized fiscal identifier
	FindByFiscalID(ctx context.Context, fiscalID string) (*Customer, error)

	// FindAll finds all customers matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]Customer, error)

	// Count counts customers matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// ExistsByCode checks if a customer with the given code exists
	ExistsByCode(ctx context.Context, code string) (bool, error)

	// ExistsByFiscalID checks if a customer with the given fiscal ID exists
	ExistsByFiscalID(ctx context.Context, fiscalID string) (bool, error)

	// Save persists a customer (insert or update)
	Save(ctx context.Context, customer *Customer) error
}
