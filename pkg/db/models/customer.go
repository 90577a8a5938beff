package models

import (
	"time"

	"github.com/google/uuid"
)

// Customer represents a party that rents or buys from the business.
type Customer struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string    `gorm:"column:name;not null"`
	Email       *string   `gorm:"column:email;uniqueIndex"`
	Phone       *string   `gorm:"column:phone"`
	AddressLine *string   `gorm:"column:address_line"`
	City        *string   `gorm:"column:city"`
	Country     *string   `gorm:"column:country"`
	IDNumber    *string   `gorm:"column:id_number"`
	Notes       *string   `gorm:"column:notes"`
	IsActive    bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
