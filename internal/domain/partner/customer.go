package partner

import (
	"regexp"
	"strings"
	"time"

	"github.com/gestionet/backend/internal/domain/fiscal"
	"github.com/gestionet/backend/internal/domain/shared"
	"github.com/gestionet/backend/internal/domain/taxsync"
)

// CustomerStatus represents the status of a customer
type CustomerStatus string

const (
	CustomerStatusActive   CustomerStatus = "active"
	CustomerStatusInactive CustomerStatus = "inactive"
)

// Customer represents a customer of the business. It is the aggregate root
// for customer-related operations and a synchronization target for the tax
// authority: SyncStatus and ExternalID track the remote relationship, the
// ExternalID being a back-reference owned by the remote system once
// assigned.
type Customer struct {
	shared.BaseAggregateRoot
	Code        string         `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name        string         `gorm:"type:varchar(200);not null"`
	FiscalID    string         `gorm:"type:varchar(20);not null;index"`
	ContactName string         `gorm:"type:varchar(100)"`
	Phone       string         `gorm:"type:varchar(50)"`
	Email       string         `gorm:"type:varchar(200);index"`
	Address     string         `gorm:"type:text"`
	City        string         `gorm:"type:varchar(100)"`
	Province    string         `gorm:"type:varchar(100)"`
	PostalCode  string         `gorm:"type:varchar(20)"`
	Status      CustomerStatus `gorm:"type:varchar(20);not null;default:'active'"`
	Notes       string         `gorm:"type:text"`
	SyncStatus  taxsync.Status `gorm:"type:varchar(20);not null;default:'draft'"`
	ExternalID  string         `gorm:"type:varchar(100);index"`
	SyncMessage string         `gorm:"type:text"`
	SyncedAt    *time.Time
}

// TableName returns the table name for GORM
func (Customer) TableName() string {
	return "customers"
}

// NewCustomer creates a new customer with required fields. The fiscal
// identifier must pass checksum validation.
func NewCustomer(code, name, fiscalID string) (*Customer, error) {
	if err := validateCustomerCode(code); err != nil {
		return nil, err
	}
	if err := validateCustomerName(name); err != nil {
		return nil, err
	}
	if !fiscal.Validate(fiscalID) {
		return nil, shared.ErrInvalidFiscalID
	}

	customer := &Customer{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              strings.ToUpper(code),
		Name:              name,
		FiscalID:          fiscal.Normalize(fiscalID),
		Status:            CustomerStatusActive,
		SyncStatus:        taxsync.StatusDraft,
	}

	customer.AddDomainEvent(NewCustomerCreatedEvent(customer))

	return customer, nil
}

// Update updates the customer's basic information
func (c *Customer) Update(name string) error {
	if err := validateCustomerName(name); err != nil {
		return err
	}

	c.Name = name
	c.UpdatedAt = time.Now()
	c.IncrementVersion()

	c.AddDomainEvent(NewCustomerUpdatedEvent(c))

	return nil
}

// ChangeFiscalID replaces the fiscal identifier after validating it
func (c *Customer) ChangeFiscalID(fiscalID string) error {
	if !fiscal.Validate(fiscalID) {
		return shared.ErrInvalidFiscalID
	}

	c.FiscalID = fiscal.Normalize(fiscalID)
	c.UpdatedAt = time.Now()
	c.IncrementVersion()

	c.AddDomainEvent(NewCustomerUpdatedEvent(c))

	return nil
}

// SetContact sets the customer's contact information
func (c *Customer) SetContact(contactName, phone, email string) error {
	if contactName != "" && len(contactName) > 100 {
		return shared.NewDomainError("INVALID_CONTACT_NAME", "Contact name cannot exceed 100 characters")
	}
	if phone != "" {
		if err := validatePhone(phone); err != nil {
			return err
		}
	}
	if email != "" {
		if err := validateEmail(email); err != nil {
			return err
		}
	}

	c.ContactName = contactName
	c.Phone = phone
	c.Email = email
	c.UpdatedAt = time.Now()
	c.IncrementVersion()

	return nil
}

// SetAddress sets the customer's address information
func (c *Customer) SetAddress(address, city, province, postalCode string) error {
	if address != "" && len(address) > 500 {
		return shared.NewDomainError("INVALID_ADDRESS", "Address cannot exceed 500 characters")
	}
	if city != "" && len(city) > 100 {
		return shared.NewDomainError("INVALID_CITY", "City cannot exceed 100 characters")
	}
	if province != "" && len(province) > 100 {
		return shared.NewDomainError("INVALID_PROVINCE", "Province cannot exceed 100 characters")
	}
	if postalCode != "" && len(postalCode) > 20 {
		return shared.NewDomainError("INVALID_POSTAL_CODE", "Postal code cannot exceed 20 characters")
	}

	c.Address = address
	c.City = city
	c.Province = province
	c.PostalCode = postalCode
	c.UpdatedAt = time.Now()
	c.IncrementVersion()

	return nil
}

// SetNotes sets the customer's notes
func (c *Customer) SetNotes(notes string) {
	c.Notes = notes
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
}

// Deactivate deactivates the customer. This is a soft operation; records
// are never removed.
func (c *Customer) Deactivate() error {
	if c.Status == CustomerStatusInactive {
		return shared.NewDomainError("ALREADY_INACTIVE", "Customer is already inactive")
	}

	c.Status = CustomerStatusInactive
	c.UpdatedAt = time.Now()
	c.IncrementVersion()

	c.AddDomainEvent(NewCustomerDeactivatedEvent(c))

	return nil
}

// Activate reactivates the customer
func (c *Customer) Activate() error {
	if c.Status == CustomerStatusActive {
		return shared.NewDomainError("ALREADY_ACTIVE", "Customer is already active")
	}

	c.Status = CustomerStatusActive
	c.UpdatedAt = time.Now()
	c.IncrementVersion()

	return nil
}

// IsActive returns true if the customer is active
func (c *Customer) IsActive() bool {
	return c.Status == CustomerStatusActive
}

// ApplySyncTransition moves the customer to the target sync status,
// enforcing the state machine. A transition to the current status is a
// refresh: it re-records the external ID and message without a state
// change. The external ID and message are recorded as reported by the
// remote call.
func (c *Customer) ApplySyncTransition(target taxsync.Status, externalID, message string) error {
	if target != c.SyncStatus && !c.SyncStatus.CanTransitionTo(target) {
		return taxsync.ErrInvalidTransition
	}

	now := time.Now()
	c.SyncStatus = target
	if externalID != "" {
		c.ExternalID = externalID
	}
	c.SyncMessage = message
	c.SyncedAt = &now
	c.UpdatedAt = now
	c.IncrementVersion()

	c.AddDomainEvent(NewCustomerSyncStatusChangedEvent(c, target))

	return nil
}

// MarkSyncError records a failed remote call without touching business data
func (c *Customer) MarkSyncError(message string) {
	now := time.Now()
	c.SyncStatus = taxsync.StatusError
	c.SyncMessage = message
	c.SyncedAt = &now
	c.UpdatedAt = now
	c.IncrementVersion()

	c.AddDomainEvent(NewCustomerSyncStatusChangedEvent(c, taxsync.StatusError))
}

// FiscalKind classifies the stored fiscal identifier
func (c *Customer) FiscalKind() fiscal.Kind {
	return fiscal.Classify(c.FiscalID)
}

// SyncPayload builds the wire-ready payload for the tax authority
func (c *Customer) SyncPayload() *taxsync.CustomerPayload {
	return &taxsync.CustomerPayload{
		Name:       c.Name,
		FiscalID:   c.FiscalID,
		Address:    c.Address,
		City:       c.City,
		Province:   c.Province,
		PostalCode: c.PostalCode,
		Email:      c.Email,
		Phone:      c.Phone,
	}
}

// Validation functions

func validateCustomerCode(code string) error {
	if code == "" {
		return shared.NewDomainError("INVALID_CODE", "Customer code cannot be empty")
	}
	if len(code) > 50 {
		return shared.NewDomainError("INVALID_CODE", "Customer code cannot exceed 50 characters")
	}
	for _, r := range code {
		if !((r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-') {
			return shared.NewDomainError("INVALID_CODE", "Customer code can only contain letters, numbers, underscores, and hyphens")
		}
	}
	return nil
}

func validateCustomerName(name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Customer name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Customer name cannot exceed 200 characters")
	}
	return nil
}

func validatePhone(phone string) error {
	if len(phone) > 50 {
		return shared.NewDomainError("INVALID_PHONE", "Phone number cannot exceed 50 characters")
	}
	validPhone := regexp.MustCompile(`^[\d\s\-\(\)\+]+$`)
	if !validPhone.MatchString(phone) {
		return shared.NewDomainError("INVALID_PHONE", "Invalid phone number format")
	}
	return nil
}

func validateEmail(email string) error {
	if len(email) > 200 {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot exceed 200 characters")
	}
	emailRegex := regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	if !emailRegex.MatchString(email) {
		return shared.NewDomainError("INVALID_EMAIL", "Invalid email format")
	}
	return nil
}
