package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Frequency is the billing cadence of a recurring template.
type Frequency string

const (
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyAnnual    Frequency = "annual"
)

// Valid reports whether f is one of the known cadences.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly, FrequencyAnnual:
		return true
	}
	return false
}

// RecurringInvoiceTemplate spawns concrete invoices on a cadence.
// Each record in this model is one recurring billing definition, typically
// one per lease.
type RecurringInvoiceTemplate struct {
	gorm.Model
	OwnerID    uint  `json:"ownerId" gorm:"not null;index"`
	TenantID   uint  `json:"tenantId" gorm:"not null"`
	PropertyID *uint `json:"propertyId"`
	LeaseID    *uint `json:"leaseId"`

	Frequency Frequency `json:"frequency" gorm:"not null"`

	// Amount is the base charge per period. AmountFormula, when set, is an
	// expression evaluated per period with BaseAmount and PeriodNumber as
	// parameters; its result replaces Amount for that invoice.
	Amount        float64 `json:"amount" gorm:"type:numeric(12,2);not null"`
	AmountFormula string  `json:"amountFormula"`
	Currency      string  `json:"currency" gorm:"size:3;default:'USD'"`

	// StartDate anchors the period sequence: monthly, quarterly and annual
	// periods fall on its day-of-month (clamped to shorter months), weekly
	// periods on its weekday.
	StartDate time.Time  `json:"startDate" gorm:"not null"`
	EndDate   *time.Time `json:"endDate"`

	// DueDateOffsetDays is added to each period start to get the invoice due
	// date. Zero means due on the period start itself.
	DueDateOffsetDays int `json:"dueDateOffsetDays" gorm:"default:0"`

	// LastGeneratedPeriodStart is the generation cursor: the start of the most
	// recent period an invoice was created for. Nil means never generated.
	// Advanced only by the generator, under an optimistic-concurrency check.
	LastGeneratedPeriodStart *datatypes.Date `json:"lastGeneratedPeriodStart"`

	Description string `json:"description"`
	Active      *bool  `json:"active" gorm:"default:true;index"`

	Tenant   Tenant    `json:"-"`
	Property *Property `gorm:"foreignKey:PropertyID" json:"-"`
}

func (RecurringInvoiceTemplate) TableName() string { return "recurring_invoice_templates" }
