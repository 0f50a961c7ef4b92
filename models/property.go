package models

import "gorm.io/gorm"

// Property represents a managed real-estate unit.
type Property struct {
	gorm.Model
	OwnerID uint `json:"ownerId" gorm:"not null;index"`
	Owner   User `json:"-"`

	Name       string `json:"name" gorm:"not null"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	UnitCount  int    `json:"unitCount" gorm:"default:1"`
}
