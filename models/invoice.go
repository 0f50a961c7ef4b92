package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PaymentStatus is the payment lifecycle state of an invoice.
type PaymentStatus string

const (
	PaymentStatusUnpaid        PaymentStatus = "unpaid"
	PaymentStatusPartiallyPaid PaymentStatus = "partially_paid"
	PaymentStatusPaid          PaymentStatus = "paid"
	PaymentStatusVoid          PaymentStatus = "void"
)

// Settled reports whether the invoice can no longer accrue charges.
func (s PaymentStatus) Settled() bool {
	return s == PaymentStatusPaid || s == PaymentStatusVoid
}

// Invoice represents a bill issued to a tenant, either created manually or
// materialized from a recurring template.
//
// LateFeeAppliedAt is date-grained on purpose: the late-fee evaluator uses it
// as an idempotency guard ("was a fee already applied today"), so storing a
// timestamp would break the duplicate check across processing runs.
type Invoice struct {
	gorm.Model
	OwnerID  uint  `json:"ownerId" gorm:"not null;uniqueIndex:ux_invoices_owner_number,priority:1"`
	TenantID *uint `json:"tenantId" gorm:"index"`

	PropertyID *uint `json:"propertyId"`

	InvoiceNumber string         `json:"invoiceNumber" gorm:"not null;uniqueIndex:ux_invoices_owner_number,priority:2"`
	InvoiceDate   datatypes.Date `json:"invoiceDate" gorm:"not null"`
	DueDate       datatypes.Date `json:"dueDate" gorm:"not null"`

	TotalAmount   float64       `json:"totalAmount" gorm:"type:numeric(12,2);not null"`
	AmountInWords string        `json:"amountInWords"`
	Currency      string        `json:"currency" gorm:"size:3;default:'USD'"`
	PaymentStatus PaymentStatus `json:"paymentStatus" gorm:"default:'unpaid';index"`

	LateFeeAppliedAt *datatypes.Date `json:"lateFeeAppliedAt"`
	SourceTemplateID *uint           `json:"sourceTemplateId" gorm:"index"`

	Notes string `json:"notes"`

	Tenant   *Tenant   `gorm:"foreignKey:TenantID" json:"tenant,omitempty"`
	Property *Property `gorm:"foreignKey:PropertyID" json:"property,omitempty"`
}

// The owner id shares the unique index with InvoiceNumber so numbers only
// need to be unique per account.
func (Invoice) TableName() string { return "invoices" }
