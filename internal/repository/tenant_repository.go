package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/churchhub/platform-gateway/internal/models"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a lookup matches no active record
var ErrNotFound = errors.New("record not found")

// TenantRepository handles tenant lookups against the central database
type TenantRepository struct {
	db *gorm.DB
}

// NewTenantRepository creates a new tenant repository
func NewTenantRepository(db *gorm.DB) *TenantRepository {
	return &TenantRepository{db: db}
}

// GetBySlug retrieves an active tenant by its subdomain slug.
// Inactive tenants are treated as not found.
func (r *TenantRepository) GetBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	var tenant models.Tenant
	err := r.db.WithContext(ctx).
		Where("slug = ? AND active = ?", slug, true).
		First(&tenant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get tenant by slug: %w", err)
	}
	return &tenant, nil
}

// GetByDomain retrieves an active tenant by its custom domain.
// Inactive tenants are treated as not found.
func (r *TenantRepository) GetByDomain(ctx context.Context, domain string) (*models.Tenant, error) {
	var tenant models.Tenant
	err := r.db.WithContext(ctx).
		Where("custom_domain = ? AND active = ?", domain, true).
		First(&tenant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get tenant by domain: %w", err)
	}
	return &tenant, nil
}
