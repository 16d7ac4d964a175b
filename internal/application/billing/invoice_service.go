package billing

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gestionet/backend/internal/application/verisync"
	"github.com/gestionet/backend/internal/domain/billing"
	"github.com/gestionet/backend/internal/domain/partner"
	"github.com/gestionet/backend/internal/domain/shared"
)

// InvoiceService handles invoice-related business operations. As with
// customers, the local record always wins: submission and cancellation
// persist locally first and record remote failures on the invoice's sync
// status.
type InvoiceService struct {
	invoiceRepo  billing.InvoiceRepository
	customerRepo partner.CustomerRepository
	sync         *verisync.Orchestrator
	logger       *zap.Logger
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(
	invoiceRepo billing.InvoiceRepository,
	customerRepo partner.CustomerRepository,
	sync *verisync.Orchestrator,
	logger *zap.Logger,
) *InvoiceService {
	return &InvoiceService{
		invoiceRepo:  invoiceRepo,
		customerRepo: customerRepo,
		sync:         sync,
		logger:       logger.Named("invoice_service"),
	}
}

// Create creates a new draft invoice. Submission to the tax authority is a
// separate, explicit step.
func (s *InvoiceService) Create(ctx context.Context, req CreateInvoiceRequest) (*InvoiceResponse, error) {
	exists, err := s.invoiceRepo.ExistsByNumber(ctx, req.Series, req.Number)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "Invoice with this series and number already exists")
	}

	customer, err := s.customerRepo.FindByID(ctx, req.CustomerID)
	if err != nil {
		return nil, err
	}
	if !customer.IsActive() {
		return nil, shared.NewDomainError("INVALID_STATE", "Cannot invoice an inactive customer")
	}

	invoice, err := billing.NewInvoice(req.Series, req.Number, customer.ID,
		customer.Name, customer.FiscalID, req.IssueDate)
	if err != nil {
		return nil, err
	}

	for _, line := range req.Lines {
		if err := invoice.AddLine(line.Description, line.Quantity, line.UnitPrice, line.VATRate); err != nil {
			return nil, err
		}
	}

	if req.Notes != "" {
		invoice.SetNotes(req.Notes)
	}

	if err := s.invoiceRepo.Save(ctx, invoice); err != nil {
		return nil, err
	}

	response := ToInvoiceResponse(invoice)
	return &response, nil
}

// GetByID retrieves an invoice by ID
func (s *InvoiceService) GetByID(ctx context.Context, invoiceID uuid.UUID) (*InvoiceResponse, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	response := ToInvoiceResponse(invoice)
	return &response, nil
}

// GetByNumber retrieves an invoice by series and number
func (s *InvoiceService) GetByNumber(ctx context.Context, series, number string) (*InvoiceResponse, error) {
	invoice, err := s.invoiceRepo.FindByNumber(ctx, series, number)
	if err != nil {
		return nil, err
	}
	response := ToInvoiceResponse(invoice)
	return &response, nil
}

// List retrieves invoices with filtering and pagination
func (s *InvoiceService) List(ctx context.Context, filter InvoiceListFilter) ([]InvoiceListResponse, int64, error) {
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
	if filter.SyncStatus != "" {
		domainFilter.Filters["sync_status"] = filter.SyncStatus
	}
	if filter.Series != "" {
		domainFilter.Filters["series"] = filter.Series
	}

	var (
		invoices []billing.Invoice
		err      error
	)
	if filter.CustomerID != "" {
		customerID, parseErr := uuid.Parse(filter.CustomerID)
		if parseErr != nil {
			return nil, 0, shared.ErrInvalidInput
		}
		invoices, err = s.invoiceRepo.FindByCustomer(ctx, customerID, domainFilter)
	} else {
		invoices, err = s.invoiceRepo.FindAll(ctx, domainFilter)
	}
	if err != nil {
		return nil, 0, err
	}

	total, err := s.invoiceRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]InvoiceListResponse, 0, len(invoices))
	for i := range invoices {
		responses = append(responses, ToInvoiceListResponse(&invoices[i]))
	}
	return responses, total, nil
}

// Submit hands the invoice to the tax authority's processing pipeline
func (s *InvoiceService) Submit(ctx context.Context, invoiceID uuid.UUID) (*InvoiceResponse, error) {
	if _, err := s.sync.SubmitInvoice(ctx, invoiceID); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, invoiceID)
}

// Cancel cancels an invoice locally and notifies the tax authority
func (s *InvoiceService) Cancel(ctx context.Context, invoiceID uuid.UUID, req CancelInvoiceRequest) (*InvoiceResponse, error) {
	if _, err := s.sync.CancelInvoice(ctx, invoiceID, req.Reason); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, invoiceID)
}

// RefreshStatus polls the tax authority for the invoice's processing
// outcome
func (s *InvoiceService) RefreshStatus(ctx context.Context, invoiceID uuid.UUID) (*InvoiceResponse, error) {
	if _, err := s.sync.RefreshInvoiceStatus(ctx, invoiceID); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, invoiceID)
}
