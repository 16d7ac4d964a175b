package partner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gestionet/backend/internal/domain/shared"
	"github.com/gestionet/backend/internal/domain/taxsync"
)

func TestNewCustomer(t *testing.T) {
	customer, err := NewCustomer("CUST-001", "Acme SL", "B12345674")
	require.NoError(t, err)

	assert.Equal(t, "CUST-001", customer.Code)
	assert.Equal(t, "Acme SL", customer.Name)
	assert.Equal(t, "B12345674", customer.FiscalID)
	assert.Equal(t, CustomerStatusActive, customer.Status)
	assert.Equal(t, taxsync.StatusDraft, customer.SyncStatus)
	assert.Empty(t, customer.ExternalID)
	assert.NotEqual(t, customer.ID.String(), "00000000-0000-0000-0000-000000000000")

	events := customer.GetDomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventTypeCustomerCreated, events[0].EventType())
}

func TestNewCustomer_NormalizesFiscalID(t *testing.T) {
	customer, err := NewCustomer("CUST-002", "Jane Roe", "12.345.678-z")
	require.NoError(t, err)
	assert.Equal(t, "12345678Z", customer.FiscalID)
}

func TestNewCustomer_Validation(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		custName string
		fiscalID string
	}{
		{"empty code", "", "Acme SL", "B12345674"},
		{"code with spaces", "CUST 001", "Acme SL", "B12345674"},
		{"empty name", "CUST-001", "", "B12345674"},
		{"invalid fiscal id", "CUST-001", "Acme SL", "12345678A"},
		{"empty fiscal id", "CUST-001", "Acme SL", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCustomer(tt.code, tt.custName, tt.fiscalID)
			assert.Error(t, err)
		})
	}
}

func TestCustomer_ChangeFiscalID(t *testing.T) {
	customer, err := NewCustomer("CUST-001", "Acme SL", "B12345674")
	require.NoError(t, err)

	require.NoError(t, customer.ChangeFiscalID("12345678Z"))
	assert.Equal(t, "12345678Z", customer.FiscalID)

	err = customer.ChangeFiscalID("12345678A")
	assert.ErrorIs(t, err, shared.ErrInvalidFiscalID)
	assert.Equal(t, "12345678Z", customer.FiscalID)
}

func TestCustomer_SetContact(t *testing.T) {
	customer, err := NewCustomer("CUST-001", "Acme SL", "B12345674")
	require.NoError(t, err)

	require.NoError(t, customer.SetContact("Ana", "+34 600 000 000", "ana@acme.es"))
	assert.Equal(t, "Ana", customer.ContactName)

	assert.Error(t, customer.SetContact("Ana", "not-a-phone!", ""))
	assert.Error(t, customer.SetContact("Ana", "", "not-an-email"))
}

func TestCustomer_Deactivate(t *testing.T) {
	customer, err := NewCustomer("CUST-001", "Acme SL", "B12345674")
	require.NoError(t, err)

	require.NoError(t, customer.Deactivate())
	assert.False(t, customer.IsActive())

	assert.Error(t, customer.Deactivate())

	require.NoError(t, customer.Activate())
	assert.True(t, customer.IsActive())
}

func TestCustomer_ApplySyncTransition(t *testing.T) {
	customer, err := NewCustomer("CUST-001", "Acme SL", "B12345674")
	require.NoError(t, err)

	require.NoError(t, customer.ApplySyncTransition(taxsync.StatusPending, "VF-123", "registered"))
	assert.Equal(t, taxsync.StatusPending, customer.SyncStatus)
	assert.Equal(t, "VF-123", customer.ExternalID)
	assert.NotNil(t, customer.SyncedAt)

	// Draft is no longer reachable
	err = customer.ApplySyncTransition(taxsync.StatusDraft, "", "")
	assert.ErrorIs(t, err, taxsync.ErrInvalidTransition)

	// Empty external ID must not wipe the stored back-reference
	require.NoError(t, customer.ApplySyncTransition(taxsync.StatusCancelled, "", "deactivated"))
	assert.Equal(t, "VF-123", customer.ExternalID)
}

func TestCustomer_MarkSyncError(t *testing.T) {
	customer, err := NewCustomer("CUST-001", "Acme SL", "B12345674")
	require.NoError(t, err)

	customer.MarkSyncError("connection refused")

	assert.Equal(t, taxsync.StatusError, customer.SyncStatus)
	assert.Equal(t, "connection refused", customer.SyncMessage)
	// Business data untouched
	assert.Equal(t, "Acme SL", customer.Name)
	assert.Equal(t, "B12345674", customer.FiscalID)
}

func TestCustomer_SyncPayload(t *testing.T) {
	customer, err := NewCustomer("CUST-001", "Acme SL", "B12345674")
	require.NoError(t, err)
	require.NoError(t, customer.SetAddress("Calle Mayor 1", "Madrid", "Madrid", "28001"))

	payload := customer.SyncPayload()
	assert.Equal(t, "Acme SL", payload.Name)
	assert.Equal(t, "B12345674", payload.FiscalID)
	assert.Equal(t, "Calle Mayor 1", payload.Address)
	assert.Equal(t, "28001", payload.PostalCode)
}
