package models

import "gorm.io/gorm"

// LateFeeType distinguishes how a policy computes its fee amount.
// Handled exhaustively in the evaluator; adding a new type is a
// compile-surfaced extension, not a stringly branch.
type LateFeeType string

const (
	LateFeeTypeFlat       LateFeeType = "flat"
	LateFeeTypePercentage LateFeeType = "percentage"
)

// LateFeePolicy configures how late fees accrue on overdue invoices.
// A policy with a TenantID applies to that tenant only and overrides the
// owner's account-default policy (TenantID nil). No policy at all means no
// fee is ever computed.
type LateFeePolicy struct {
	gorm.Model
	OwnerID  uint  `json:"ownerId" gorm:"not null;index"`
	TenantID *uint `json:"tenantId" gorm:"index"`

	Type LateFeeType `json:"type" gorm:"not null"`

	// AmountOrRate is an absolute currency amount for flat policies, or a
	// fraction of the invoice total (0.05 = 5%) for percentage policies.
	AmountOrRate    float64  `json:"amountOrRate" gorm:"type:numeric(12,4);not null"`
	GracePeriodDays int      `json:"gracePeriodDays" gorm:"default:0"`
	MaxFeeCap       *float64 `json:"maxFeeCap" gorm:"type:numeric(12,2)"`

	Tenant *Tenant `gorm:"foreignKey:TenantID" json:"-"`
}

func (LateFeePolicy) TableName() string { return "late_fee_policies" }
