package verifactu

import (
	"fmt"

	"github.com/gestionet/backend/internal/domain/fiscal"
	"github.com/gestionet/backend/internal/domain/taxsync"
)

// validateCustomerPayload checks a customer payload locally before any
// network traffic. Both operating modes share this path so a record the
// simulator accepts is a record the live API would at least receive.
func validateCustomerPayload(payload *taxsync.CustomerPayload) error {
	if payload == nil {
		return fmt.Errorf("%w: nil customer payload", taxsync.ErrInvalidPayload)
	}
	if payload.Name == "" {
		return fmt.Errorf("%w: customer name is required", taxsync.ErrInvalidPayload)
	}
	if !fiscal.Validate(payload.FiscalID) {
		return fmt.Errorf("%w: fiscal ID %q failed validation", taxsync.ErrInvalidPayload, payload.FiscalID)
	}
	return nil
}

// validateInvoicePayload checks an invoice payload locally before any
// network traffic
func validateInvoicePayload(payload *taxsync.InvoicePayload) error {
	if payload == nil {
		return fmt.Errorf("%w: nil invoice payload", taxsync.ErrInvalidPayload)
	}
	if payload.Series == "" || payload.Number == "" {
		return fmt.Errorf("%w: invoice series and number are required", taxsync.ErrInvalidPayload)
	}
	if len(payload.Lines) == 0 {
		return fmt.Errorf("%w: invoice has no lines", taxsync.ErrInvalidPayload)
	}
	if !fiscal.Validate(payload.CustomerTaxID) {
		return fmt.Errorf("%w: customer tax ID %q failed validation", taxsync.ErrInvalidPayload, payload.CustomerTaxID)
	}
	return nil
}
