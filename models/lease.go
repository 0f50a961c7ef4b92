package models

import (
	"time"

	"gorm.io/gorm"
)

// Lease links a tenant to a property for a term. Read-only from the billing
// engine's perspective; recurring templates are usually created from one.
type Lease struct {
	gorm.Model
	OwnerID    uint `json:"ownerId" gorm:"not null;index"`
	PropertyID uint `json:"propertyId" gorm:"not null"`
	TenantID   uint `json:"tenantId" gorm:"not null"`

	StartDate   time.Time  `json:"startDate" gorm:"not null"`
	EndDate     *time.Time `json:"endDate"`
	MonthlyRent float64    `json:"monthlyRent" gorm:"type:numeric(12,2)"`
	Deposit     float64    `json:"deposit" gorm:"type:numeric(12,2)"`
	Status      string     `json:"status" gorm:"default:'active'"`

	Property Property `json:"property"`
	Tenant   Tenant   `json:"tenant"`
}
