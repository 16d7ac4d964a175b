package verifactu

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gestionet/backend/internal/domain/taxsync"
)

// Simulator is the offline gateway used when no real API credential is
// configured. It validates payloads through the same local checks as the
// live client and fabricates successful responses, so development and
// demo environments exercise the full synchronization flow without
// touching the tax authority.
type Simulator struct {
	logger *zap.Logger

	mu       sync.Mutex
	seq      int
	invoices map[string]string // external ID -> remote status
}

// NewSimulator creates a simulated gateway
func NewSimulator(logger *zap.Logger) *Simulator {
	return &Simulator{
		logger:   logger.Named("verifactu.simulator"),
		invoices: make(map[string]string),
	}
}

// Simulated reports whether this gateway fabricates responses
func (s *Simulator) Simulated() bool {
	return true
}

// CreateCustomer fabricates a successful customer registration
func (s *Simulator) CreateCustomer(ctx context.Context, payload *taxsync.CustomerPayload) (*taxsync.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateCustomerPayload(payload); err != nil {
		return nil, err
	}
	id := s.nextID("CUS")
	s.logger.Debug("simulated customer registration",
		zap.String("external_id", id),
		zap.String("fiscal_id", payload.FiscalID))
	return s.ok(id, "", "customer registered (simulated)"), nil
}

// UpdateCustomer fabricates a successful customer update
func (s *Simulator) UpdateCustomer(ctx context.Context, externalID string, payload *taxsync.CustomerPayload) (*taxsync.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if externalID == "" {
		return nil, taxsync.ErrMissingExternalID
	}
	if err := validateCustomerPayload(payload); err != nil {
		return nil, err
	}
	return s.ok(externalID, "", "customer updated (simulated)"), nil
}

// DeleteCustomer fabricates a successful customer removal
func (s *Simulator) DeleteCustomer(ctx context.Context, externalID string) (*taxsync.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if externalID == "" {
		return nil, taxsync.ErrMissingExternalID
	}
	return s.ok(externalID, "", "customer removed (simulated)"), nil
}

// CreateInvoice fabricates a successful invoice submission. The invoice
// starts in the pending remote state and is accepted on the next status
// check, mimicking the authority's asynchronous pipeline.
func (s *Simulator) CreateInvoice(ctx context.Context, payload *taxsync.InvoicePayload) (*taxsync.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateInvoicePayload(payload); err != nil {
		return nil, err
	}
	id := s.nextID("INV")
	s.mu.Lock()
	s.invoices[id] = taxsync.RemoteStatusPending
	s.mu.Unlock()
	s.logger.Debug("simulated invoice submission",
		zap.String("external_id", id),
		zap.String("number", payload.Series+"-"+payload.Number))
	return s.ok(id, taxsync.RemoteStatusPending, "invoice submitted (simulated)"), nil
}

// UpdateInvoice fabricates a successful invoice replacement
func (s *Simulator) UpdateInvoice(ctx context.Context, externalID string, payload *taxsync.InvoicePayload) (*taxsync.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if externalID == "" {
		return nil, taxsync.ErrMissingExternalID
	}
	if err := validateInvoicePayload(payload); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.invoices[externalID] = taxsync.RemoteStatusPending
	s.mu.Unlock()
	return s.ok(externalID, taxsync.RemoteStatusPending, "invoice updated (simulated)"), nil
}

// CancelInvoice fabricates a successful cancellation
func (s *Simulator) CancelInvoice(ctx context.Context, externalID, reason string) (*taxsync.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if externalID == "" {
		return nil, taxsync.ErrMissingExternalID
	}
	if reason == "" {
		return nil, taxsync.ErrMissingReason
	}
	s.mu.Lock()
	delete(s.invoices, externalID)
	s.mu.Unlock()
	return s.ok(externalID, "", "invoice cancelled (simulated)"), nil
}

// CheckInvoiceStatus reports the fabricated processing status. Pending
// invoices flip to accepted on first check.
func (s *Simulator) CheckInvoiceStatus(ctx context.Context, externalID string) (*taxsync.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if externalID == "" {
		return nil, taxsync.ErrMissingExternalID
	}

	s.mu.Lock()
	status, known := s.invoices[externalID]
	if known && status == taxsync.RemoteStatusPending {
		s.invoices[externalID] = taxsync.RemoteStatusAccepted
		status = taxsync.RemoteStatusAccepted
	}
	s.mu.Unlock()

	if !known {
		return taxsync.Failure(fmt.Sprintf("unknown invoice %q", externalID), true), nil
	}
	return s.ok(externalID, status, "status checked (simulated)"), nil
}

func (s *Simulator) nextID(prefix string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return fmt.Sprintf("SIM-%s-%06d", prefix, s.seq)
}

func (s *Simulator) ok(externalID, status, message string) *taxsync.Result {
	return &taxsync.Result{
		Success:    true,
		ExternalID: externalID,
		Status:     status,
		Message:    message,
		Simulated:  true,
		CheckedAt:  time.Now(),
	}
}

var _ taxsync.Gateway = (*Simulator)(nil)
