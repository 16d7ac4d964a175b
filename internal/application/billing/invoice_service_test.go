package billing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gestionet/backend/internal/application/verisync"
	"github.com/gestionet/backend/internal/domain/billing"
	"github.com/gestionet/backend/internal/domain/partner"
	"github.com/gestionet/backend/internal/domain/shared"
	"github.com/gestionet/backend/internal/domain/taxsync"
)

// cannedGateway replies to every remote call with a fixed outcome
type cannedGateway struct {
	mu          sync.Mutex
	fail        bool
	checkStatus string
}

func (g *cannedGateway) Simulated() bool { return true }

func (g *cannedGateway) respond(status string) (*taxsync.Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fail {
		return taxsync.Failure("HTTP 502: bad gateway", true), nil
	}
	return &taxsync.Result{
		Success:    true,
		ExternalID: uuid.NewString(),
		Status:     status,
		Simulated:  true,
		CheckedAt:  time.Now(),
	}, nil
}

func (g *cannedGateway) CreateCustomer(context.Context, *taxsync.CustomerPayload) (*taxsync.Result, error) {
	return g.respond(taxsync.RemoteStatusPending)
}
func (g *cannedGateway) UpdateCustomer(context.Context, string, *taxsync.CustomerPayload) (*taxsync.Result, error) {
	return g.respond(taxsync.RemoteStatusPending)
}
func (g *cannedGateway) DeleteCustomer(context.Context, string) (*taxsync.Result, error) {
	return g.respond("")
}
func (g *cannedGateway) CreateInvoice(context.Context, *taxsync.InvoicePayload) (*taxsync.Result, error) {
	return g.respond(taxsync.RemoteStatusPending)
}
func (g *cannedGateway) UpdateInvoice(context.Context, string, *taxsync.InvoicePayload) (*taxsync.Result, error) {
	return g.respond(taxsync.RemoteStatusPending)
}
func (g *cannedGateway) CancelInvoice(context.Context, string, string) (*taxsync.Result, error) {
	return g.respond("")
}
func (g *cannedGateway) CheckInvoiceStatus(context.Context, string) (*taxsync.Result, error) {
	g.mu.Lock()
	status := g.checkStatus
	g.mu.Unlock()
	if status == "" {
		status = taxsync.RemoteStatusPending
	}
	return g.respond(status)
}

var _ taxsync.Gateway = (*cannedGateway)(nil)

// mapInvoiceRepo is a map-backed billing.InvoiceRepository
type mapInvoiceRepo struct {
	mu    sync.RWMutex
	items map[uuid.UUID]*billing.Invoice
}

func newMapInvoiceRepo() *mapInvoiceRepo {
	return &mapInvoiceRepo{items: make(map[uuid.UUID]*billing.Invoice)}
}

func (r *mapInvoiceRepo) FindByID(_ context.Context, id uuid.UUID) (*billing.Invoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inv, ok := r.items[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *inv
	return &copied, nil
}

func (r *mapInvoiceRepo) FindByNumber(_ context.Context, series, number string) (*billing.Invoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, inv := range r.items {
		if inv.Series == series && inv.Number == number {
			copied := *inv
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *mapInvoiceRepo) FindByCustomer(_ context.Context, customerID uuid.UUID, _ shared.Filter) ([]billing.Invoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []billing.Invoice
	for _, inv := range r.items {
		if inv.CustomerID == customerID {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (r *mapInvoiceRepo) FindBySyncStatus(_ context.Context, status taxsync.Status, _ shared.Filter) ([]billing.Invoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []billing.Invoice
	for _, inv := range r.items {
		if inv.SyncStatus == status {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (r *mapInvoiceRepo) FindAll(_ context.Context, _ shared.Filter) ([]billing.Invoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]billing.Invoice, 0, len(r.items))
	for _, inv := range r.items {
		out = append(out, *inv)
	}
	return out, nil
}

func (r *mapInvoiceRepo) Count(_ context.Context, _ shared.Filter) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.items)), nil
}

func (r *mapInvoiceRepo) ExistsByNumber(ctx context.Context, series, number string) (bool, error) {
	_, err := r.FindByNumber(ctx, series, number)
	return err == nil, nil
}

func (r *mapInvoiceRepo) Save(_ context.Context, invoice *billing.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *invoice
	r.items[invoice.ID] = &copied
	return nil
}

var _ billing.InvoiceRepository = (*mapInvoiceRepo)(nil)

// mapCustomerRepo is the minimal customer lookup the invoice service needs
type mapCustomerRepo struct {
	mu    sync.RWMutex
	items map[uuid.UUID]*partner.Customer
}

func newMapCustomerRepo() *mapCustomerRepo {
	return &mapCustomerRepo{items: make(map[uuid.UUID]*partner.Customer)}
}

func (r *mapCustomerRepo) FindByID(_ context.Context, id uuid.UUID) (*partner.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.items[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *c
	return &copied, nil
}

func (r *mapCustomerRepo) FindByCode(context.Context, string) (*partner.Customer, error) {
	return nil, shared.ErrNotFound
}
func (r *mapCustomerRepo) FindByFiscalID(context.Context, string) (*partner.Customer, error) {
	return nil, shared.ErrNotFound
}
func (r *mapCustomerRepo) FindAll(context.Context, shared.Filter) ([]partner.Customer, error) {
	return nil, nil
}
func (r *mapCustomerRepo) Count(context.Context, shared.Filter) (int64, error) { return 0, nil }
func (r *mapCustomerRepo) ExistsByCode(context.Context, string) (bool, error)  { return false, nil }
func (r *mapCustomerRepo) ExistsByFiscalID(context.Context, string) (bool, error) {
	return false, nil
}

func (r *mapCustomerRepo) Save(_ context.Context, customer *partner.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *customer
	r.items[customer.ID] = &copied
	return nil
}

var _ partner.CustomerRepository = (*mapCustomerRepo)(nil)

func newTestInvoiceService(t *testing.T) (*InvoiceService, *partner.Customer, *cannedGateway) {
	t.Helper()
	invoices := newMapInvoiceRepo()
	customers := newMapCustomerRepo()
	gateway := &cannedGateway{}
	orch := verisync.NewOrchestrator(customers, invoices, gateway, zap.NewNop())
	service := NewInvoiceService(invoices, customers, orch, zap.NewNop())

	customer, err := partner.NewCustomer("CUST-001", "Electrodomésticos García SL", "B12345674")
	require.NoError(t, err)
	require.NoError(t, customers.Save(context.Background(), customer))

	return service, customer, gateway
}

func validInvoiceRequest(customerID uuid.UUID) CreateInvoiceRequest {
	return CreateInvoiceRequest{
		Series:     "F2026",
		Number:     "000042",
		CustomerID: customerID,
		IssueDate:  time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		Lines: []InvoiceLineRequest{
			{
				Description: "Reparación de lavadora",
				Quantity:    decimal.NewFromInt(1),
				UnitPrice:   decimal.RequireFromString("150.00"),
				VATRate:     decimal.NewFromInt(21),
			},
			{
				Description: "Desplazamiento",
				Quantity:    decimal.NewFromInt(1),
				UnitPrice:   decimal.RequireFromString("25.00"),
				VATRate:     decimal.NewFromInt(21),
			},
		},
	}
}

func TestInvoiceServiceCreate(t *testing.T) {
	service, customer, _ := newTestInvoiceService(t)

	resp, err := service.Create(context.Background(), validInvoiceRequest(customer.ID))
	require.NoError(t, err)
	assert.Equal(t, "F2026-000042", resp.FullNumber)
	assert.Equal(t, customer.FiscalID, resp.CustomerTaxID)
	assert.Equal(t, taxsync.StatusDraft.String(), resp.SyncStatus)
	assert.True(t, resp.TaxableAmount.Equal(decimal.RequireFromString("175.00")))
	assert.True(t, resp.VATAmount.Equal(decimal.RequireFromString("36.75")))
	assert.True(t, resp.TotalAmount.Equal(decimal.RequireFromString("211.75")))
	assert.Len(t, resp.Lines, 2)
}

func TestInvoiceServiceCreateDuplicateNumber(t *testing.T) {
	service, customer, _ := newTestInvoiceService(t)
	ctx := context.Background()

	_, err := service.Create(ctx, validInvoiceRequest(customer.ID))
	require.NoError(t, err)

	_, err = service.Create(ctx, validInvoiceRequest(customer.ID))
	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "ALREADY_EXISTS", domainErr.Code)
}

func TestInvoiceServiceCreateInactiveCustomer(t *testing.T) {
	service, customer, _ := newTestInvoiceService(t)
	ctx := context.Background()

	require.NoError(t, customer.Deactivate())
	require.NoError(t, service.customerRepo.Save(ctx, customer))

	_, err := service.Create(ctx, validInvoiceRequest(customer.ID))
	require.Error(t, err)
}

func TestInvoiceServiceSubmitAndRefresh(t *testing.T) {
	service, customer, gateway := newTestInvoiceService(t)
	ctx := context.Background()

	created, err := service.Create(ctx, validInvoiceRequest(customer.ID))
	require.NoError(t, err)

	submitted, err := service.Submit(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, taxsync.StatusSubmitted.String(), submitted.SyncStatus)
	assert.NotEmpty(t, submitted.ExternalID)

	gateway.checkStatus = taxsync.RemoteStatusAccepted
	refreshed, err := service.RefreshStatus(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, taxsync.StatusAccepted.String(), refreshed.SyncStatus)
}

func TestInvoiceServiceSubmitFailureKeepsInvoice(t *testing.T) {
	service, customer, gateway := newTestInvoiceService(t)
	ctx := context.Background()

	created, err := service.Create(ctx, validInvoiceRequest(customer.ID))
	require.NoError(t, err)

	gateway.fail = true
	resp, err := service.Submit(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, taxsync.StatusError.String(), resp.SyncStatus)
	assert.True(t, resp.TotalAmount.Equal(decimal.RequireFromString("211.75")))

	// Retry succeeds once the remote recovers
	gateway.fail = false
	resp, err = service.Submit(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, taxsync.StatusSubmitted.String(), resp.SyncStatus)
}

func TestInvoiceServiceCancel(t *testing.T) {
	service, customer, _ := newTestInvoiceService(t)
	ctx := context.Background()

	created, err := service.Create(ctx, validInvoiceRequest(customer.ID))
	require.NoError(t, err)
	_, err = service.Submit(ctx, created.ID)
	require.NoError(t, err)

	resp, err := service.Cancel(ctx, created.ID, CancelInvoiceRequest{Reason: "duplicate issue"})
	require.NoError(t, err)
	assert.Equal(t, taxsync.StatusCancelled.String(), resp.SyncStatus)
	assert.Equal(t, "duplicate issue", resp.CancelReason)

	// Cancelled invoices cannot be resubmitted
	_, err = service.Submit(ctx, created.ID)
	assert.ErrorIs(t, err, taxsync.ErrInvalidTransition)
}

func TestInvoiceServiceList(t *testing.T) {
	service, customer, _ := newTestInvoiceService(t)
	ctx := context.Background()

	first := validInvoiceRequest(customer.ID)
	_, err := service.Create(ctx, first)
	require.NoError(t, err)

	second := validInvoiceRequest(customer.ID)
	second.Number = "000043"
	_, err = service.Create(ctx, second)
	require.NoError(t, err)

	items, total, err := service.List(ctx, InvoiceListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, items, 2)

	byCustomer, _, err := service.List(ctx, InvoiceListFilter{CustomerID: customer.ID.String()})
	require.NoError(t, err)
	assert.Len(t, byCustomer, 2)
}
