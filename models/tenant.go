package models

import (
	"time"

	"gorm.io/gorm"
)

// Tenant represents a renter. The billing engine only reads tenant ids for
// late-fee policy resolution; contact details are plain CRUD glue.
type Tenant struct {
	gorm.Model
	OwnerID    uint  `json:"ownerId" gorm:"not null;index"`
	PropertyID *uint `json:"propertyId"`

	FirstName string     `json:"firstName" gorm:"not null"`
	LastName  string     `json:"lastName" gorm:"not null"`
	Email     string     `json:"email"`
	Phone     string     `json:"phone"`
	MoveInAt  *time.Time `json:"moveInAt"`
	MoveOutAt *time.Time `json:"moveOutAt"`

	Property *Property `gorm:"foreignKey:PropertyID" json:"property,omitempty"`
}
