// Package verisync orchestrates synchronization between local business
// records and the Verifactu tax authority. Local persistence always wins:
// a record is saved (or cancelled) locally first and the remote call is
// best-effort, with failures recorded on the record's sync status instead
// of rolled back.
package verisync

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gestionet/backend/internal/domain/billing"
	"github.com/gestionet/backend/internal/domain/partner"
	"github.com/gestionet/backend/internal/domain/taxsync"
)

// Orchestrator drives the sync state machine for customers and invoices.
// Operations on the same record are serialized through a per-record lock;
// operations on different records run concurrently.
type Orchestrator struct {
	customers partner.CustomerRepository
	invoices  billing.InvoiceRepository
	gateway   taxsync.Gateway
	logger    *zap.Logger

	locks sync.Map // uuid.UUID -> *sync.Mutex
}

// NewOrchestrator creates a sync orchestrator
func NewOrchestrator(
	customers partner.CustomerRepository,
	invoices billing.InvoiceRepository,
	gateway taxsync.Gateway,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		customers: customers,
		invoices:  invoices,
		gateway:   gateway,
		logger:    logger.Named("verisync"),
	}
}

// Simulated reports whether the underlying gateway fabricates responses
func (o *Orchestrator) Simulated() bool {
	return o.gateway.Simulated()
}

// lock serializes operations on one record and returns the unlock func
func (o *Orchestrator) lock(id uuid.UUID) func() {
	mu, _ := o.locks.LoadOrStore(id, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

// SyncCustomer registers the customer with the tax authority, or pushes an
// update when it is already registered. A remote failure moves the record
// to the error status; the customer data itself is untouched.
func (o *Orchestrator) SyncCustomer(ctx context.Context, customerID uuid.UUID) (*taxsync.Result, error) {
	unlock := o.lock(customerID)
	defer unlock()

	customer, err := o.customers.FindByID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if customer.SyncStatus == taxsync.StatusAccepted || customer.SyncStatus == taxsync.StatusCancelled {
		return nil, fmt.Errorf("%w: customer %s is %s", taxsync.ErrInvalidTransition,
			customer.Code, customer.SyncStatus)
	}

	var result *taxsync.Result
	if customer.ExternalID == "" {
		result, err = o.gateway.CreateCustomer(ctx, customer.SyncPayload())
	} else {
		result, err = o.gateway.UpdateCustomer(ctx, customer.ExternalID, customer.SyncPayload())
	}
	if err != nil {
		customer.MarkSyncError(err.Error())
		if saveErr := o.customers.Save(ctx, customer); saveErr != nil {
			return nil, saveErr
		}
		return nil, err
	}

	if !result.Success {
		o.logger.Warn("customer sync failed",
			zap.String("customer_id", customerID.String()),
			zap.String("error", result.Error))
		customer.MarkSyncError(result.Error)
		return result, o.customers.Save(ctx, customer)
	}

	if err := customer.ApplySyncTransition(taxsync.StatusPending, result.ExternalID, result.Message); err != nil {
		return nil, err
	}
	o.logger.Info("customer synced",
		zap.String("customer_id", customerID.String()),
		zap.String("external_id", customer.ExternalID),
		zap.Bool("simulated", result.Simulated))
	return result, o.customers.Save(ctx, customer)
}

// UnregisterCustomer removes the customer from the tax authority registry.
// The local record is kept; its sync status becomes cancelled.
func (o *Orchestrator) UnregisterCustomer(ctx context.Context, customerID uuid.UUID) (*taxsync.Result, error) {
	unlock := o.lock(customerID)
	defer unlock()

	customer, err := o.customers.FindByID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if customer.ExternalID == "" {
		return nil, taxsync.ErrMissingExternalID
	}

	result, err := o.gateway.DeleteCustomer(ctx, customer.ExternalID)
	if err != nil {
		return nil, err
	}
	if !result.Success {
		customer.MarkSyncError(result.Error)
		return result, o.customers.Save(ctx, customer)
	}

	if err := customer.ApplySyncTransition(taxsync.StatusCancelled, "", result.Message); err != nil {
		return nil, err
	}
	return result, o.customers.Save(ctx, customer)
}

// SubmitInvoice hands the invoice to the tax authority's processing
// pipeline. A rejected invoice may be resubmitted after correction, which
// starts a new submission cycle.
func (o *Orchestrator) SubmitInvoice(ctx context.Context, invoiceID uuid.UUID) (*taxsync.Result, error) {
	unlock := o.lock(invoiceID)
	defer unlock()

	invoice, err := o.invoices.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.SyncStatus == taxsync.StatusAccepted || invoice.SyncStatus == taxsync.StatusCancelled {
		return nil, fmt.Errorf("%w: invoice %s is %s", taxsync.ErrInvalidTransition,
			invoice.FullNumber(), invoice.SyncStatus)
	}

	var result *taxsync.Result
	if invoice.ExternalID == "" {
		result, err = o.gateway.CreateInvoice(ctx, invoice.SyncPayload())
	} else {
		result, err = o.gateway.UpdateInvoice(ctx, invoice.ExternalID, invoice.SyncPayload())
	}
	if err != nil {
		invoice.MarkSyncError(err.Error())
		if saveErr := o.invoices.Save(ctx, invoice); saveErr != nil {
			return nil, saveErr
		}
		return nil, err
	}

	if !result.Success {
		o.logger.Warn("invoice submission failed",
			zap.String("invoice", invoice.FullNumber()),
			zap.String("error", result.Error))
		invoice.MarkSyncError(result.Error)
		return result, o.invoices.Save(ctx, invoice)
	}

	// Registration and submission happen in one remote call, so the local
	// record crosses both states
	if err := invoice.ApplySyncTransition(taxsync.StatusPending, result.ExternalID, result.Message); err != nil {
		return nil, err
	}
	if err := invoice.ApplySyncTransition(taxsync.StatusSubmitted, result.ExternalID, result.Message); err != nil {
		return nil, err
	}
	o.logger.Info("invoice submitted",
		zap.String("invoice", invoice.FullNumber()),
		zap.String("external_id", invoice.ExternalID),
		zap.Bool("simulated", result.Simulated))
	return result, o.invoices.Save(ctx, invoice)
}

// CancelInvoice cancels the invoice locally and then notifies the tax
// authority. Local cancellation is authoritative: a remote failure is
// logged and recorded in the sync message but never rolls the record back.
func (o *Orchestrator) CancelInvoice(ctx context.Context, invoiceID uuid.UUID, reason string) (*taxsync.Result, error) {
	unlock := o.lock(invoiceID)
	defer unlock()

	invoice, err := o.invoices.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	externalID := invoice.ExternalID
	if err := invoice.Cancel(reason); err != nil {
		return nil, err
	}
	if err := o.invoices.Save(ctx, invoice); err != nil {
		return nil, err
	}

	if externalID == "" {
		// Never reached the authority; nothing to void remotely
		return &taxsync.Result{Success: true, Simulated: o.gateway.Simulated(),
			Message: "cancelled locally; invoice was never submitted"}, nil
	}

	result, err := o.gateway.CancelInvoice(ctx, externalID, reason)
	if err != nil {
		return nil, err
	}
	if !result.Success {
		o.logger.Warn("remote cancellation failed; invoice stays cancelled locally",
			zap.String("invoice", invoice.FullNumber()),
			zap.String("error", result.Error))
	}
	return result, nil
}

// RefreshInvoiceStatus polls the authority for the processing outcome of a
// submitted invoice and applies the reported status locally
func (o *Orchestrator) RefreshInvoiceStatus(ctx context.Context, invoiceID uuid.UUID) (*taxsync.Result, error) {
	unlock := o.lock(invoiceID)
	defer unlock()

	invoice, err := o.invoices.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.ExternalID == "" {
		return nil, taxsync.ErrMissingExternalID
	}
	if invoice.SyncStatus.IsTerminal() {
		return &taxsync.Result{Success: true, Status: invoice.SyncStatus.String(),
			Simulated: o.gateway.Simulated(), Message: "already terminal"}, nil
	}

	result, err := o.gateway.CheckInvoiceStatus(ctx, invoice.ExternalID)
	if err != nil {
		return nil, err
	}
	if !result.Success {
		invoice.MarkSyncError(result.Error)
		return result, o.invoices.Save(ctx, invoice)
	}

	// A record parked in error by a failed check resumes in submitted
	// before the reported outcome is applied
	if invoice.SyncStatus == taxsync.StatusError {
		if err := invoice.ApplySyncTransition(taxsync.StatusSubmitted, "", result.Message); err != nil {
			return nil, err
		}
	}

	var target taxsync.Status
	switch result.Status {
	case taxsync.RemoteStatusAccepted:
		target = taxsync.StatusAccepted
	case taxsync.RemoteStatusRejected:
		target = taxsync.StatusRejected
	case taxsync.RemoteStatusPending, "":
		// Still in the pipeline; re-record the check without a state change
		target = invoice.SyncStatus
	default:
		o.logger.Warn("unrecognized remote status",
			zap.String("invoice", invoice.FullNumber()),
			zap.String("status", result.Status))
		target = invoice.SyncStatus
	}

	if err := invoice.ApplySyncTransition(target, "", result.Message); err != nil {
		return nil, err
	}
	if target == taxsync.StatusAccepted || target == taxsync.StatusRejected {
		o.logger.Info("invoice processing finished",
			zap.String("invoice", invoice.FullNumber()),
			zap.String("outcome", target.String()))
	}
	return result, o.invoices.Save(ctx, invoice)
}
