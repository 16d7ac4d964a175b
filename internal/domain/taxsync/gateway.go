package taxsync

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// CustomerPayload is the already-shaped customer record sent to the tax
// authority. Field mapping from forms or imports happens upstream; the
// gateway only validates and transmits.
type CustomerPayload struct {
	Name       string `json:"name"`
	FiscalID   string `json:"fiscal_id"`
	Address    string `json:"address,omitempty"`
	City       string `json:"city,omitempty"`
	Province   string `json:"province,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

// InvoiceLinePayload is one line item of an invoice payload
type InvoiceLinePayload struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	VATRate     decimal.Decimal `json:"vat_rate"`
}

// InvoicePayload is the already-shaped invoice record sent to the tax
// authority
type InvoicePayload struct {
	Series        string               `json:"series"`
	Number        string               `json:"number"`
	IssueDate     time.Time            `json:"issue_date"`
	CustomerName  string               `json:"customer_name"`
	CustomerTaxID string               `json:"customer_tax_id"`
	Lines         []InvoiceLinePayload `json:"lines"`
	TaxableAmount decimal.Decimal      `json:"taxable_amount"`
	VATAmount     decimal.Decimal      `json:"vat_amount"`
	TotalAmount   decimal.Decimal      `json:"total_amount"`
}

// Gateway performs the remote operations against the tax-compliance
// backend. Implementations never retry; retry policy belongs to the
// orchestrator. Every method returns a normalized Result and reserves the
// error return for programming mistakes (nil payloads, cancelled
// contexts), never for remote outcomes.
type Gateway interface {
	// Simulated reports whether this gateway fabricates responses instead
	// of calling the real remote API
	Simulated() bool

	CreateCustomer(ctx context.Context, payload *CustomerPayload) (*Result, error)
	UpdateCustomer(ctx context.Context, externalID string, payload *CustomerPayload) (*Result, error)
	DeleteCustomer(ctx context.Context, externalID string) (*Result, error)

	CreateInvoice(ctx context.Context, payload *InvoicePayload) (*Result, error)
	UpdateInvoice(ctx context.Context, externalID string, payload *InvoicePayload) (*Result, error)
	// CancelInvoice requires a human-readable reason
	CancelInvoice(ctx context.Context, externalID, reason string) (*Result, error)
	// CheckInvoiceStatus is read-only; it polls the authority's processing
	// pipeline, which transitions asynchronously on the remote side
	CheckInvoiceStatus(ctx context.Context, externalID string) (*Result, error)
}
