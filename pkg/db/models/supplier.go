package models

import (
	"time"

	"github.com/google/uuid"
)

// Supplier represents a vendor the business purchases stock from.
type Supplier struct {
	ID               uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name             string    `gorm:"column:name;not null"`
	ContactName      *string   `gorm:"column:contact_name"`
	Email            *string   `gorm:"column:email;uniqueIndex"`
	Phone            *string   `gorm:"column:phone"`
	AddressLine      *string   `gorm:"column:address_line"`
	City             *string   `gorm:"column:city"`
	Country          *string   `gorm:"column:country"`
	TaxID            *string   `gorm:"column:tax_id"`
	PaymentTermsDays int       `gorm:"column:payment_terms_days;not null;default:0"`
	Notes            *string   `gorm:"column:notes"`
	IsActive         bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
