package partner

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gestionet/backend/internal/application/verisync"
	"github.com/gestionet/backend/internal/domain/fiscal"
	"github.com/gestionet/backend/internal/domain/partner"
	"github.com/gestionet/backend/internal/domain/shared"
)

// CustomerService handles customer-related business operations. Writes are
// local-first: the customer is persisted before any tax-authority call,
// and synchronization failures are recorded on the record instead of
// failing the request.
type CustomerService struct {
	customerRepo partner.CustomerRepository
	sync         *verisync.Orchestrator
	logger       *zap.Logger
}

// NewCustomerService creates a new CustomerService
func NewCustomerService(customerRepo partner.CustomerRepository, sync *verisync.Orchestrator, logger *zap.Logger) *CustomerService {
	return &CustomerService{
		customerRepo: customerRepo,
		sync:         sync,
		logger:       logger.Named("customer_service"),
	}
}

// Create creates a new customer and registers it with the tax authority
func (s *CustomerService) Create(ctx context.Context, req CreateCustomerRequest) (*CustomerResponse, error) {
	// Check if code already exists
	exists, err := s.customerRepo.ExistsByCode(ctx, req.Code)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "Customer with this code already exists")
	}

	// Check if fiscal ID already exists
	exists, err = s.customerRepo.ExistsByFiscalID(ctx, fiscal.Normalize(req.FiscalID))
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "Customer with this fiscal ID already exists")
	}

	customer, err := partner.NewCustomer(req.Code, req.Name, req.FiscalID)
	if err != nil {
		return nil, err
	}

	if req.ContactName != "" || req.Phone != "" || req.Email != "" {
		if err := customer.SetContact(req.ContactName, req.Phone, req.Email); err != nil {
			return nil, err
		}
	}

	if req.Address != "" || req.City != "" || req.Province != "" || req.PostalCode != "" {
		if err := customer.SetAddress(req.Address, req.City, req.Province, req.PostalCode); err != nil {
			return nil, err
		}
	}

	if req.Notes != "" {
		customer.SetNotes(req.Notes)
	}

	if err := s.customerRepo.Save(ctx, customer); err != nil {
		return nil, err
	}

	return s.afterWrite(ctx, customer.ID)
}

// Update updates a customer and pushes the change to the tax authority
// when the customer is already registered there
func (s *CustomerService) Update(ctx context.Context, customerID uuid.UUID, req UpdateCustomerRequest) (*CustomerResponse, error) {
	customer, err := s.customerRepo.FindByID(ctx, customerID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if err := customer.Update(*req.Name); err != nil {
			return nil, err
		}
	}

	if req.FiscalID != nil {
		normalized := fiscal.Normalize(*req.FiscalID)
		if normalized != customer.FiscalID {
			exists, err := s.customerRepo.ExistsByFiscalID(ctx, normalized)
			if err != nil {
				return nil, err
			}
			if exists {
				return nil, shared.NewDomainError("ALREADY_EXISTS", "Customer with this fiscal ID already exists")
			}
			if err := customer.ChangeFiscalID(*req.FiscalID); err != nil {
				return nil, err
			}
		}
	}

	if req.ContactName != nil || req.Phone != nil || req.Email != nil {
		contactName := customer.ContactName
		phone := customer.Phone
		email := customer.Email
		if req.ContactName != nil {
			contactName = *req.ContactName
		}
		if req.Phone != nil {
			phone = *req.Phone
		}
		if req.Email != nil {
			email = *req.Email
		}
		if err := customer.SetContact(contactName, phone, email); err != nil {
			return nil, err
		}
	}

	if req.Address != nil || req.City != nil || req.Province != nil || req.PostalCode != nil {
		address := customer.Address
		city := customer.City
		province := customer.Province
		postalCode := customer.PostalCode
		if req.Address != nil {
			address = *req.Address
		}
		if req.City != nil {
			city = *req.City
		}
		if req.Province != nil {
			province = *req.Province
		}
		if req.PostalCode != nil {
			postalCode = *req.PostalCode
		}
		if err := customer.SetAddress(address, city, province, postalCode); err != nil {
			return nil, err
		}
	}

	if req.Notes != nil {
		customer.SetNotes(*req.Notes)
	}

	if err := s.customerRepo.Save(ctx, customer); err != nil {
		return nil, err
	}

	// Only re-push customers the authority already knows about
	if customer.ExternalID == "" {
		response := ToCustomerResponse(customer)
		return &response, nil
	}
	return s.afterWrite(ctx, customer.ID)
}

// afterWrite runs a best-effort synchronization and returns the record's
// post-sync state
func (s *CustomerService) afterWrite(ctx context.Context, customerID uuid.UUID) (*CustomerResponse, error) {
	if _, err := s.sync.SyncCustomer(ctx, customerID); err != nil {
		// The remote relationship is recorded on the record itself; the
		// local write already succeeded
		s.logger.Warn("customer sync after write failed",
			zap.String("customer_id", customerID.String()),
			zap.Error(err))
	}

	customer, err := s.customerRepo.FindByID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	response := ToCustomerResponse(customer)
	return &response, nil
}

// GetByID retrieves a customer by ID
func (s *CustomerService) GetByID(ctx context.Context, customerID uuid.UUID) (*CustomerResponse, error) {
	customer, err := s.customerRepo.FindByID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	response := ToCustomerResponse(customer)
	return &response, nil
}

// GetByCode retrieves a customer by code
func (s *CustomerService) GetByCode(ctx context.Context, code string) (*CustomerResponse, error) {
	customer, err := s.customerRepo.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	response := ToCustomerResponse(customer)
	return &response, nil
}

// List retrieves customers with filtering and pagination
func (s *CustomerService) List(ctx context.Context, filter CustomerListFilter) ([]CustomerListResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Search:   filter.Search,
		Filters:  map[string]interface{}{},
	}
	if filter.Status != "" {
		domainFilter.Filters["status"] = filter.Status
	}
	if filter.SyncStatus != "" {
		domainFilter.Filters["sync_status"] = filter.SyncStatus
	}
	if filter.City != "" {
		domainFilter.Filters["city"] = filter.City
	}

	customers, err := s.customerRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.customerRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]CustomerListResponse, 0, len(customers))
	for i := range customers {
		responses = append(responses, ToCustomerListResponse(&customers[i]))
	}
	return responses, total, nil
}

// Sync pushes the customer to the tax authority on demand
func (s *CustomerService) Sync(ctx context.Context, customerID uuid.UUID) (*CustomerResponse, error) {
	if _, err := s.sync.SyncCustomer(ctx, customerID); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, customerID)
}

// Deactivate deactivates a customer and removes it from the tax authority
// registry when it was registered
func (s *CustomerService) Deactivate(ctx context.Context, customerID uuid.UUID) (*CustomerResponse, error) {
	customer, err := s.customerRepo.FindByID(ctx, customerID)
	if err != nil {
		return nil, err
	}

	if err := customer.Deactivate(); err != nil {
		return nil, err
	}
	if err := s.customerRepo.Save(ctx, customer); err != nil {
		return nil, err
	}

	if customer.ExternalID != "" {
		if _, err := s.sync.UnregisterCustomer(ctx, customerID); err != nil {
			s.logger.Warn("customer unregistration failed",
				zap.String("customer_id", customerID.String()),
				zap.Error(err))
		}
	}
	return s.GetByID(ctx, customerID)
}

// Activate reactivates a customer
func (s *CustomerService) Activate(ctx context.Context, customerID uuid.UUID) (*CustomerResponse, error) {
	customer, err := s.customerRepo.FindByID(ctx, customerID)
	if err != nil {
		return nil, err
	}

	if err := customer.Activate(); err != nil {
		return nil, err
	}
	if err := s.customerRepo.Save(ctx, customer); err != nil {
		return nil, err
	}
	response := ToCustomerResponse(customer)
	return &response, nil
}
