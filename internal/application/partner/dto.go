package partner

import (
	"time"

	"github.com/gestionet/backend/internal/domain/partner"
	"github.com/google/uuid"
)

// CreateCustomerRequest represents a request to create a new customer
type CreateCustomerRequest struct {
	Code        string `json:"code" binding:"required,min=1,max=50"`
	Name        string `json:"name" binding:"required,min=1,max=200"`
	FiscalID    string `json:"fiscal_id" binding:"required,fiscalid"`
	ContactName string `json:"contact_name" binding:"max=100"`
	Phone       string `json:"phone" binding:"max=50"`
	Email       string `json:"email" binding:"omitempty,email,max=200"`
	Address     string `json:"address" binding:"max=500"`
	City        string `json:"city" binding:"max=100"`
	Province    string `json:"province" binding:"max=100"`
	PostalCode  string `json:"postal_code" binding:"max=20"`
	Notes       string `json:"notes"`
}

// UpdateCustomerRequest represents a request to update a customer
type UpdateCustomerRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=200"`
	FiscalID    *string `json:"fiscal_id" binding:"omitempty,fiscalid"`
	ContactName *string `json:"contact_name" binding:"omitempty,max=100"`
	Phone       *string `json:"phone" binding:"omitempty,max=50"`
	Email       *string `json:"email" binding:"omitempty,email,max=200"`
	Address     *string `json:"address" binding:"omitempty,max=500"`
	City        *string `json:"city" binding:"omitempty,max=100"`
	Province    *string `json:"province" binding:"omitempty,max=100"`
	PostalCode  *string `json:"postal_code" binding:"omitempty,max=20"`
	Notes       *string `json:"notes"`
}

// CustomerResponse represents a customer in API responses
type CustomerResponse struct {
	ID          uuid.UUID  `json:"id"`
	Code        string     `json:"code"`
	Name        string     `json:"name"`
	FiscalID    string     `json:"fiscal_id"`
	FiscalKind  string     `json:"fiscal_kind"`
	ContactName string     `json:"contact_name"`
	Phone       string     `json:"phone"`
	Email       string     `json:"email"`
	Address     string     `json:"address"`
	City        string     `json:"city"`
	Province    string     `json:"province"`
	PostalCode  string     `json:"postal_code"`
	Status      string     `json:"status"`
	Notes       string     `json:"notes"`
	SyncStatus  string     `json:"sync_status"`
	ExternalID  string     `json:"external_id,omitempty"`
	SyncMessage string     `json:"sync_message,omitempty"`
	SyncedAt    *time.Time `json:"synced_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Version     int        `json:"version"`
}

// CustomerListResponse represents a list item for customers
type CustomerListResponse struct {
	ID         uuid.UUID `json:"id"`
	Code       string    `json:"code"`
	Name       string    `json:"name"`
	FiscalID   string    `json:"fiscal_id"`
	Email      string    `json:"email"`
	City       string    `json:"city"`
	Status     string    `json:"status"`
	SyncStatus string    `json:"sync_status"`
	CreatedAt  time.Time `json:"created_at"`
}

// CustomerListFilter represents filter options for customer list
type CustomerListFilter struct {
	Search     string `form:"search"`
	Status     string `form:"status" binding:"omitempty,oneof=active inactive"`
	SyncStatus string `form:"sync_status" binding:"omitempty,oneof=draft pending submitted accepted rejected cancelled error"`
	City       string `form:"city"`
	Page       int    `form:"page" binding:"omitempty,min=1"`
	PageSize   int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy    string `form:"order_by"`
	OrderDir   string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ToCustomerResponse converts a domain Customer to CustomerResponse
func ToCustomerResponse(c *partner.Customer) CustomerResponse {
	return CustomerResponse{
		ID:          c.ID,
		Code:        c.Code,
		Name:        c.Name,
		FiscalID:    c.FiscalID,
		FiscalKind:  c.FiscalKind().String(),
		ContactName: c.ContactName,
		Phone:       c.Phone,
		Email:       c.Email,
		Address:     c.Address,
		City:        c.City,
		Province:    c.Province,
		PostalCode:  c.PostalCode,
		Status:      string(c.Status),
		Notes:       c.Notes,
		SyncStatus:  c.SyncStatus.String(),
		ExternalID:  c.ExternalID,
		SyncMessage: c.SyncMessage,
		SyncedAt:    c.SyncedAt,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
		Version:     c.Version,
	}
}

// ToCustomerListResponse converts a domain Customer to CustomerListResponse
func ToCustomerListResponse(c *partner.Customer) CustomerListResponse {
	return CustomerListResponse{
		ID:         c.ID,
		Code:       c.Code,
		Name:       c.Name,
		FiscalID:   c.FiscalID,
		Email:      c.Email,
		City:       c.City,
		Status:     string(c.Status),
		SyncStatus: c.SyncStatus.String(),
		CreatedAt:  c.CreatedAt,
	}
}
