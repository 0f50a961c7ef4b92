package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mbzzzzz/axis-crm-v1-sub003/config"
	"github.com/mbzzzzz/axis-crm-v1-sub003/internal/middleware"
	"github.com/mbzzzzz/axis-crm-v1-sub003/models"
)

// PolicyPayload is the body for creating or updating a late fee policy.
// A nil tenantId makes it the account default.
type PolicyPayload struct {
	TenantID        *uint    `json:"tenantId"`
	Type            string   `json:"type" binding:"required"`
	AmountOrRate    float64  `json:"amountOrRate" binding:"required,gt=0"`
	GracePeriodDays int      `json:"gracePeriodDays"`
	MaxFeeCap       *float64 `json:"maxFeeCap"`
}

func (p *PolicyPayload) problem() string {
	switch models.LateFeeType(p.Type) {
	case models.LateFeeTypeFlat, models.LateFeeTypePercentage:
	default:
		return "Unknown policy type, expected flat or percentage"
	}
	if p.GracePeriodDays < 0 {
		return "gracePeriodDays cannot be negative"
	}
	if p.MaxFeeCap != nil && *p.MaxFeeCap <= 0 {
		return "maxFeeCap must be positive when set"
	}
	return ""
}

// CreatePolicyHandler registers a late fee policy for the owner.
func CreatePolicyHandler(c *gin.Context) {
	ownerID, ok := middleware.OwnerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var payload PolicyPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid policy data: " + err.Error()})
		return
	}
	if problem := payload.problem(); problem != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": problem})
		return
	}

	if payload.TenantID != nil {
		var tenant models.Tenant
		if err := config.DB.Where("owner_id = ?", ownerID).First(&tenant, *payload.TenantID).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Tenant not found"})
			return
		}
	}

	policy := models.LateFeePolicy{
		OwnerID:         ownerID,
		TenantID:        payload.TenantID,
		Type:            models.LateFeeType(payload.Type),
		AmountOrRate:    payload.AmountOrRate,
		GracePeriodDays: payload.GracePeriodDays,
		MaxFeeCap:       payload.MaxFeeCap,
	}

	if err := config.DB.Create(&policy).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create policy"})
		return
	}

	c.JSON(http.StatusCreated, policy)
}

// ListPoliciesHandler returns the owner's late fee policies.
func ListPoliciesHandler(c *gin.Context) {
	ownerID, ok := middleware.OwnerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var policies []models.LateFeePolicy
	if err := config.DB.Where("owner_id = ?", ownerID).Order("tenant_id nulls first, id asc").Find(&policies).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch policies"})
		return
	}

	c.JSON(http.StatusOK, policies)
}

// DeletePolicyHandler removes a policy. Invoices already carrying an applied
// fee are unaffected; future evaluations simply resolve to the next policy in
// precedence (or none).
func DeletePolicyHandler(c *gin.Context) {
	ownerID, ok := middleware.OwnerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid policy ID"})
		return
	}

	var policy models.LateFeePolicy
	err = config.DB.Where("owner_id = ?", ownerID).First(&policy, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Policy not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch policy"})
		return
	}

	if err := config.DB.Delete(&policy).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete policy"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Policy deleted"})
}
