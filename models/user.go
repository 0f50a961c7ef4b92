package models

import "gorm.io/gorm"

// User is an owner account. Authentication lives in an external identity
// service; this record only carries what the API needs for scoping and display.
type User struct {
	gorm.Model
	Login    string `json:"login" gorm:"unique;not null"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Active   *bool  `json:"active" gorm:"default:true"`
}
