package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Tenant maps a subdomain (or custom domain) to one church's
// configuration: its MinistryPlatform credentials and branding.
type Tenant struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Slug           string    `gorm:"type:varchar(63);not null;uniqueIndex" json:"slug"`
	Name           string    `gorm:"type:varchar(255);not null" json:"name"`
	MPDomain       string    `gorm:"column:mp_domain;type:varchar(255)" json:"mp_domain"`
	MPClientID     string    `gorm:"column:mp_client_id;type:varchar(255)" json:"mp_client_id"`
	MPClientSecret string    `gorm:"column:mp_client_secret;type:varchar(255)" json:"-"`
	CustomDomain   string    `gorm:"type:varchar(255);index" json:"custom_domain,omitempty"`
	LogoURL        string    `gorm:"type:varchar(500)" json:"logo_url,omitempty"`
	PrimaryColor   string    `gorm:"type:varchar(7)" json:"primary_color,omitempty"`
	Active         bool      `gorm:"default:true;not null" json:"active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName overrides the table name
func (Tenant) TableName() string {
	return "tenants"
}

// BeforeCreate hook
func (t *Tenant) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
