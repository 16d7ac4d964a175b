package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gestionet/backend/internal/domain/billing"
	"github.com/gestionet/backend/internal/domain/shared"
	"github.com/gestionet/backend/internal/domain/taxsync"
)

// GormInvoiceRepository implements InvoiceRepository using GORM. Invoice
// lines are persisted with the invoice: Save replaces the full line set in
// one transaction, reads load them alongside the header.
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByID finds an invoice (with its lines) by ID
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	var invoice billing.Invoice
	if err := r.db.WithContext(ctx).First(&invoice, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	if err := r.loadLines(ctx, &invoice); err != nil {
		return nil, err
	}
	return &invoice, nil
}

// FindByNumber finds an invoice by series and number
func (r *GormInvoiceRepository) FindByNumber(ctx context.Context, series, number string) (*billing.Invoice, error) {
	var invoice billing.Invoice
	if err := r.db.WithContext(ctx).
		Where("series = ? AND number = ?", series, number).
		First(&invoice).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	if err := r.loadLines(ctx, &invoice); err != nil {
		return nil, err
	}
	return &invoice, nil
}

// FindByCustomer finds all invoices for a customer
func (r *GormInvoiceRepository) FindByCustomer(ctx context.Context, customerID uuid.UUID, filter shared.Filter) ([]billing.Invoice, error) {
	var invoices []billing.Invoice
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&billing.Invoice{}).Where("customer_id = ?", customerID),
		filter,
	)
	if err := query.Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

// FindBySyncStatus finds invoices in a given sync status
func (r *GormInvoiceRepository) FindBySyncStatus(ctx context.Context, status taxsync.Status, filter shared.Filter) ([]billing.Invoice, error) {
	var invoices []billing.Invoice
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&billing.Invoice{}).Where("sync_status = ?", status),
		filter,
	)
	if err := query.Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

// FindAll finds all invoices matching the filter
func (r *GormInvoiceRepository) FindAll(ctx context.Context, filter shared.Filter) ([]billing.Invoice, error) {
	var invoices []billing.Invoice
	query := r.applyFilter(r.db.WithContext(ctx).Model(&billing.Invoice{}), filter)
	if err := query.Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

// Count counts invoices matching the filter
func (r *GormInvoiceRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(r.db.WithContext(ctx).Model(&billing.Invoice{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsByNumber checks if an invoice with the given series and number
// exists
func (r *GormInvoiceRepository) ExistsByNumber(ctx context.Context, series, number string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&billing.Invoice{}).
		Where("series = ? AND number = ?", series, number).
		Count(&count).Error
	return count > 0, err
}

// Save persists an invoice and its lines (insert or update)
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *billing.Invoice) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(invoice).Error; err != nil {
			return err
		}
		if err := tx.Where("invoice_id = ?", invoice.ID).
			Delete(&billing.InvoiceLine{}).Error; err != nil {
			return err
		}
		if len(invoice.Lines) == 0 {
			return nil
		}
		return tx.Create(&invoice.Lines).Error
	})
}

func (r *GormInvoiceRepository) loadLines(ctx context.Context, invoice *billing.Invoice) error {
	return r.db.WithContext(ctx).
		Where("invoice_id = ?", invoice.ID).
		Order("created_at ASC").
		Find(&invoice.Lines).Error
}

func (r *GormInvoiceRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	if filter.OrderBy != "" {
		orderDir := "ASC"
		if strings.ToLower(filter.OrderDir) == "desc" {
			orderDir = "DESC"
		}
		query = query.Order(filter.OrderBy + " " + orderDir)
	} else {
		query = query.Order("issue_date DESC, number DESC")
	}

	return query
}

func (r *GormInvoiceRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where(
			"LOWER(number) LIKE ? OR LOWER(customer_name) LIKE ? OR LOWER(customer_tax_id) LIKE ?",
			searchPattern, searchPattern, searchPattern)
	}

	for key, value := range filter.Filters {
		switch key {
		case "sync_status":
			query = query.Where("sync_status = ?", value)
		case "series":
			query = query.Where("series = ?", value)
		}
	}

	return query
}

var _ billing.InvoiceRepository = (*GormInvoiceRepository)(nil)
