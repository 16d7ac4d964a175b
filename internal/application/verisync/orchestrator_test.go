package verisync

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

	"github.com/gestionet/backend/internal/domain/billing"
	"github.com/gestionet/backend/internal/domain/partner"
	"github.com/gestionet/backend/internal/domain/shared"
	"github.com/gestionet/backend/internal/domain/taxsync"
)

// fakeGateway is a scriptable taxsync.Gateway for orchestrator tests
type fakeGateway struct {
	mu    sync.Mutex
	calls []string

	failNext    bool
	checkStatus string
	nextID      int
}

func (g *fakeGateway) record(call string) { g.calls = append(g.calls, call) }

func (g *fakeGateway) result(call, prefix string) *taxsync.Result {
	g.record(call)
	if g.failNext {
		g.failNext = false
		return taxsync.Failure("HTTP 500: registry unavailable", true)
	}
	g.nextID++
	return &taxsync.Result{
		Success:    true,
		ExternalID: prefix + "-" + uuid.NewString()[:8],
		Status:     taxsync.RemoteStatusPending,
		Simulated:  true,
		CheckedAt:  time.Now(),
	}
}

func (g *fakeGateway) Simulated() bool { return true }

func (g *fakeGateway) CreateCustomer(_ context.Context, _ *taxsync.CustomerPayload) (*taxsync.Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.result("create_customer", "FAKE-CUS"), nil
}

func (g *fakeGateway) UpdateCustomer(_ context.Context, externalID string, _ *taxsync.CustomerPayload) (*taxsync.Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r := g.result("update_customer", "FAKE-CUS")
	if r.Success {
		r.ExternalID = externalID
	}
	return r, nil
}

func (g *fakeGateway) DeleteCustomer(_ context.Context, externalID string) (*taxsync.Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r := g.result("delete_customer", "FAKE-CUS")
	if r.Success {
		r.ExternalID = externalID
	}
	return r, nil
}

func (g *fakeGateway) CreateInvoice(_ context.Context, _ *taxsync.InvoicePayload) (*taxsync.Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.result("create_invoice", "FAKE-INV"), nil
}

func (g *fakeGateway) UpdateInvoice(_ context.Context, externalID string, _ *taxsync.InvoicePayload) (*taxsync.Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r := g.result("update_invoice", "FAKE-INV")
	if r.Success {
		r.ExternalID = externalID
	}
	return r, nil
}

func (g *fakeGateway) CancelInvoice(_ context.Context, externalID, _ string) (*taxsync.Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r := g.result("cancel_invoice", "FAKE-INV")
	if r.Success {
		r.ExternalID = externalID
	}
	return r, nil
}

func (g *fakeGateway) CheckInvoiceStatus(_ context.Context, externalID string) (*taxsync.Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("check_status")
	if g.failNext {
		g.failNext = false
		return taxsync.Failure("HTTP 500: registry unavailable", true), nil
	}
	status := g.checkStatus
	if status == "" {
		status = taxsync.RemoteStatusPending
	}
	return &taxsync.Result{
		Success:    true,
		ExternalID: externalID,
		Status:     status,
		Simulated:  true,
		CheckedAt:  time.Now(),
	}, nil
}

var _ taxsync.Gateway = (*fakeGateway)(nil)

// memCustomerRepo is a map-backed partner.CustomerRepository
type memCustomerRepo struct {
	mu    sync.RWMutex
	items map[uuid.UUID]*partner.Customer
}

func newMemCustomerRepo() *memCustomerRepo {
	return &memCustomerRepo{items: make(map[uuid.UUID]*partner.Customer)}
}

func (r *memCustomerRepo) FindByID(_ context.Context, id uuid.UUID) (*partner.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.items[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *c
	return &copied, nil
}

func (r *memCustomerRepo) FindByCode(_ context.Context, code string) (*partner.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.items {
		if c.Code == code {
			copied := *c
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memCustomerRepo) FindByFiscalID(_ context.Context, fiscalID string) (*partner.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.items {
		if c.FiscalID == fiscalID {
			copied := *c
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memCustomerRepo) FindAll(_ context.Context, _ shared.Filter) ([]partner.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]partner.Customer, 0, len(r.items))
	for _, c := range r.items {
		out = append(out, *c)
	}
	return out, nil
}

func (r *memCustomerRepo) Count(_ context.Context, _ shared.Filter) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.items)), nil
}

func (r *memCustomerRepo) ExistsByCode(_ context.Context, code string) (bool, error) {
	_, err := r.FindByCode(context.Background(), code)
	return err == nil, nil
}

func (r *memCustomerRepo) ExistsByFiscalID(_ context.Context, fiscalID string) (bool, error) {
	_, err := r.FindByFiscalID(context.Background(), fiscalID)
	return err == nil, nil
}

func (r *memCustomerRepo) Save(_ context.Context, customer *partner.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *customer
	r.items[customer.ID] = &copied
	return nil
}

var _ partner.CustomerRepository = (*memCustomerRepo)(nil)

// memInvoiceRepo is a map-backed billing.InvoiceRepository
type memInvoiceRepo struct {
	mu    sync.RWMutex
	items map[uuid.UUID]*billing.Invoice
}

func newMemInvoiceRepo() *memInvoiceRepo {
	return &memInvoiceRepo{items: make(map[uuid.UUID]*billing.Invoice)}
}

func (r *memInvoiceRepo) FindByID(_ context.Context, id uuid.UUID) (*billing.Invoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inv, ok := r.items[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *inv
	return &copied, nil
}

func (r *memInvoiceRepo) FindByNumber(_ context.Context, series, number string) (*billing.Invoice, error) {
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

func (r *memInvoiceRepo) FindByCustomer(_ context.Context, customerID uuid.UUID, _ shared.Filter) ([]billing.Invoice, error) {
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

func (r *memInvoiceRepo) FindBySyncStatus(_ context.Context, status taxsync.Status, _ shared.Filter) ([]billing.Invoice, error) {
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

func (r *memInvoiceRepo) FindAll(_ context.Context, _ shared.Filter) ([]billing.Invoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]billing.Invoice, 0, len(r.items))
	for _, inv := range r.items {
		out = append(out, *inv)
	}
	return out, nil
}

func (r *memInvoiceRepo) Count(_ context.Context, _ shared.Filter) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.items)), nil
}

func (r *memInvoiceRepo) ExistsByNumber(_ context.Context, series, number string) (bool, error) {
	_, err := r.FindByNumber(context.Background(), series, number)
	return err == nil, nil
}

func (r *memInvoiceRepo) Save(_ context.Context, invoice *billing.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *invoice
	r.items[invoice.ID] = &copied
	return nil
}

var _ billing.InvoiceRepository = (*memInvoiceRepo)(nil)

func newTestOrchestrator() (*Orchestrator, *memCustomerRepo, *memInvoiceRepo, *fakeGateway) {
	customers := newMemCustomerRepo()
	invoices := newMemInvoiceRepo()
	gateway := &fakeGateway{}
	orch := NewOrchestrator(customers, invoices, gateway, zap.NewNop())
	return orch, customers, invoices, gateway
}

func seedCustomer(t *testing.T, repo *memCustomerRepo) *partner.Customer {
	t.Helper()
	customer, err := partner.NewCustomer("CUST-001", "Electrodomésticos García SL", "B12345674")
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), customer))
	return customer
}

func seedInvoice(t *testing.T, repo *memInvoiceRepo) *billing.Invoice {
	t.Helper()
	invoice, err := billing.NewInvoice("F2026", "000042", uuid.New(),
		"Electrodomésticos García SL", "B12345674",
		time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NoError(t, invoice.AddLine("Reparación", decimal.NewFromInt(1),
		decimal.RequireFromString("150.00"), decimal.NewFromInt(21)))
	require.NoError(t, repo.Save(context.Background(), invoice))
	return invoice
}

func TestSyncCustomerRegisters(t *testing.T) {
	orch, customers, _, gateway := newTestOrchestrator()
	customer := seedCustomer(t, customers)

	result, err := orch.SyncCustomer(context.Background(), customer.ID)
	require.NoError(t, err)
	assert.True(t, result.Success)

	saved, err := customers.FindByID(context.Background(), customer.ID)
	require.NoError(t, err)
	assert.Equal(t, taxsync.StatusPending, saved.SyncStatus)
	assert.NotEmpty(t, saved.ExternalID)
	assert.Equal(t, []string{"create_customer"}, gateway.calls)
}

func TestSyncCustomerUpdateUsesExternalID(t *testing.T) {
	orch, customers, _, gateway := newTestOrchestrator()
	customer := seedCustomer(t, customers)
	ctx := context.Background()

	_, err := orch.SyncCustomer(ctx, customer.ID)
	require.NoError(t, err)
	_, err = orch.SyncCustomer(ctx, customer.ID)
	require.NoError(t, err)

	assert.Equal(t, []string{"create_customer", "update_customer"}, gateway.calls)
}

func TestSyncCustomerRemoteFailure(t *testing.T) {
	orch, customers, _, gateway := newTestOrchestrator()
	customer := seedCustomer(t, customers)
	gateway.failNext = true
	ctx := context.Background()

	result, err := orch.SyncCustomer(ctx, customer.ID)
	require.NoError(t, err)
	assert.False(t, result.Success)

	saved, err := customers.FindByID(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, taxsync.StatusError, saved.SyncStatus)
	assert.Contains(t, saved.SyncMessage, "registry unavailable")
	// Business data survives the failed call
	assert.Equal(t, "Electrodomésticos García SL", saved.Name)

	// A retry recovers
	_, err = orch.SyncCustomer(ctx, customer.ID)
	require.NoError(t, err)
	saved, err = customers.FindByID(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, taxsync.StatusPending, saved.SyncStatus)
}

func TestUnregisterCustomer(t *testing.T) {
	orch, customers, _, _ := newTestOrchestrator()
	customer := seedCustomer(t, customers)
	ctx := context.Background()

	_, err := orch.UnregisterCustomer(ctx, customer.ID)
	assert.ErrorIs(t, err, taxsync.ErrMissingExternalID)

	_, err = orch.SyncCustomer(ctx, customer.ID)
	require.NoError(t, err)
	_, err = orch.UnregisterCustomer(ctx, customer.ID)
	require.NoError(t, err)

	saved, err := customers.FindByID(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, taxsync.StatusCancelled, saved.SyncStatus)
}

func TestSyncCustomerTerminalStateMakesNoRemoteCall(t *testing.T) {
	orch, customers, _, gateway := newTestOrchestrator()
	customer := seedCustomer(t, customers)
	ctx := context.Background()

	_, err := orch.SyncCustomer(ctx, customer.ID)
	require.NoError(t, err)
	_, err = orch.UnregisterCustomer(ctx, customer.ID)
	require.NoError(t, err)
	callsBefore := len(gateway.calls)

	_, err = orch.SyncCustomer(ctx, customer.ID)
	assert.ErrorIs(t, err, taxsync.ErrInvalidTransition)
	assert.Len(t, gateway.calls, callsBefore)

	saved, err := customers.FindByID(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, taxsync.StatusCancelled, saved.SyncStatus)
}

func TestSubmitInvoice(t *testing.T) {
	orch, _, invoices, gateway := newTestOrchestrator()
	invoice := seedInvoice(t, invoices)
	ctx := context.Background()

	result, err := orch.SubmitInvoice(ctx, invoice.ID)
	require.NoError(t, err)
	assert.True(t, result.Success)

	saved, err := invoices.FindByID(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, taxsync.StatusSubmitted, saved.SyncStatus)
	assert.NotEmpty(t, saved.ExternalID)
	assert.Equal(t, []string{"create_invoice"}, gateway.calls)
}

func TestSubmitInvoiceRejectedThenResubmitted(t *testing.T) {
	orch, _, invoices, gateway := newTestOrchestrator()
	invoice := seedInvoice(t, invoices)
	ctx := context.Background()

	_, err := orch.SubmitInvoice(ctx, invoice.ID)
	require.NoError(t, err)

	gateway.checkStatus = taxsync.RemoteStatusRejected
	_, err = orch.RefreshInvoiceStatus(ctx, invoice.ID)
	require.NoError(t, err)

	saved, err := invoices.FindByID(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, taxsync.StatusRejected, saved.SyncStatus)

	// A corrected resubmission starts a new cycle via the update endpoint
	_, err = orch.SubmitInvoice(ctx, invoice.ID)
	require.NoError(t, err)

	saved, err = invoices.FindByID(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, taxsync.StatusSubmitted, saved.SyncStatus)
	assert.Contains(t, gateway.calls, "update_invoice")
}

func TestSubmitInvoiceTerminalStates(t *testing.T) {
	orch, _, invoices, gateway := newTestOrchestrator()
	invoice := seedInvoice(t, invoices)
	ctx := context.Background()

	_, err := orch.SubmitInvoice(ctx, invoice.ID)
	require.NoError(t, err)

	gateway.checkStatus = taxsync.RemoteStatusAccepted
	_, err = orch.RefreshInvoiceStatus(ctx, invoice.ID)
	require.NoError(t, err)

	_, err = orch.SubmitInvoice(ctx, invoice.ID)
	assert.ErrorIs(t, err, taxsync.ErrInvalidTransition)
}

func TestCancelInvoiceLocalFirst(t *testing.T) {
	orch, _, invoices, gateway := newTestOrchestrator()
	invoice := seedInvoice(t, invoices)
	ctx := context.Background()

	_, err := orch.SubmitInvoice(ctx, invoice.ID)
	require.NoError(t, err)

	// Remote cancellation fails; the local record stays cancelled
	gateway.failNext = true
	result, err := orch.CancelInvoice(ctx, invoice.ID, "duplicate issue")
	require.NoError(t, err)
	assert.False(t, result.Success)

	saved, err := invoices.FindByID(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, taxsync.StatusCancelled, saved.SyncStatus)
	assert.Equal(t, "duplicate issue", saved.CancelReason)
}

func TestCancelInvoiceNeverSubmitted(t *testing.T) {
	orch, _, invoices, gateway := newTestOrchestrator()
	invoice := seedInvoice(t, invoices)
	ctx := context.Background()

	// Draft invoices cannot be cancelled; the state machine requires a
	// registration first
	_, err := orch.CancelInvoice(ctx, invoice.ID, "typo in amounts")
	assert.ErrorIs(t, err, taxsync.ErrInvalidTransition)
	assert.Empty(t, gateway.calls)
}

func TestRefreshInvoiceStatusPendingKeepsSubmitted(t *testing.T) {
	orch, _, invoices, gateway := newTestOrchestrator()
	invoice := seedInvoice(t, invoices)
	ctx := context.Background()

	_, err := orch.SubmitInvoice(ctx, invoice.ID)
	require.NoError(t, err)

	gateway.checkStatus = taxsync.RemoteStatusPending
	_, err = orch.RefreshInvoiceStatus(ctx, invoice.ID)
	require.NoError(t, err)

	saved, err := invoices.FindByID(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, taxsync.StatusSubmitted, saved.SyncStatus)
}

func TestRefreshInvoiceStatusRecoversFromError(t *testing.T) {
	orch, _, invoices, gateway := newTestOrchestrator()
	invoice := seedInvoice(t, invoices)
	ctx := context.Background()

	_, err := orch.SubmitInvoice(ctx, invoice.ID)
	require.NoError(t, err)

	gateway.failNext = true
	_, err = orch.RefreshInvoiceStatus(ctx, invoice.ID)
	require.NoError(t, err)

	saved, err := invoices.FindByID(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, taxsync.StatusError, saved.SyncStatus)

	gateway.checkStatus = taxsync.RemoteStatusAccepted
	_, err = orch.RefreshInvoiceStatus(ctx, invoice.ID)
	require.NoError(t, err)

	saved, err = invoices.FindByID(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, taxsync.StatusAccepted, saved.SyncStatus)
}

func TestConcurrentSyncsOnDistinctCustomers(t *testing.T) {
	orch, customers, _, _ := newTestOrchestrator()
	ctx := context.Background()

	ids := make([]uuid.UUID, 0, 8)
	for i := 0; i < 8; i++ {
		customer, err := partner.NewCustomer(
			"CUST-"+uuid.NewString()[:8], "Cliente de prueba", "12345678Z")
		require.NoError(t, err)
		require.NoError(t, customers.Save(ctx, customer))
		ids = append(ids, customer.ID)
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			_, err := orch.SyncCustomer(ctx, id)
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()

	for _, id := range ids {
		saved, err := customers.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, taxsync.StatusPending, saved.SyncStatus)
	}
}

func TestPollerResolvesSubmittedInvoices(t *testing.T) {
	orch, _, invoices, gateway := newTestOrchestrator()
	invoice := seedInvoice(t, invoices)
	ctx := context.Background()

	_, err := orch.SubmitInvoice(ctx, invoice.ID)
	require.NoError(t, err)
	gateway.checkStatus = taxsync.RemoteStatusAccepted

	poller := NewPoller(invoices, orch, 10*time.Millisecond, zap.NewNop())
	poller.Start(ctx)
	defer poller.Stop()

	require.Eventually(t, func() bool {
		saved, err := invoices.FindByID(ctx, invoice.ID)
		if err != nil {
			return false
		}
		return saved.SyncStatus == taxsync.StatusAccepted
	}, 2*time.Second, 10*time.Millisecond)
}

func TestPollerStopIsIdempotent(t *testing.T) {
	orch, _, invoices, _ := newTestOrchestrator()
	poller := NewPoller(invoices, orch, 10*time.Millisecond, zap.NewNop())

	poller.Start(context.Background())
	poller.Stop()
	poller.Stop()
	poller.Start(context.Background())
	poller.Stop()
}
