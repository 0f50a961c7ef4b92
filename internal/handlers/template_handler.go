package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Knetic/govaluate"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mbzzzzz/axis-crm-v1-sub003/config"
	"github.com/mbzzzzz/axis-crm-v1-sub003/internal/middleware"
	"github.com/mbzzzzz/axis-crm-v1-sub003/models"
)

// TemplatePayload is the body for creating or updating a recurring template.
type TemplatePayload struct {
	TenantID          uint    `json:"tenantId" binding:"required"`
	PropertyID        *uint   `json:"propertyId"`
	LeaseID           *uint   `json:"leaseId"`
	Frequency         string  `json:"frequency" binding:"required"`
	Amount            float64 `json:"amount" binding:"required,gt=0"`
	AmountFormula     string  `json:"amountFormula"`
	Currency          string  `json:"currency"`
	StartDate         string  `json:"startDate" binding:"required"`
	EndDate           *string `json:"endDate"`
	DueDateOffsetDays int     `json:"dueDateOffsetDays"`
	Description       string  `json:"description"`
}

func (p *TemplatePayload) validate() (models.RecurringInvoiceTemplate, string) {
	freq := models.Frequency(p.Frequency)
	if !freq.Valid() {
		return models.RecurringInvoiceTemplate{}, "Unknown frequency, expected weekly, monthly, quarterly or annual"
	}

	startDate, err := time.Parse("2006-01-02", p.StartDate)
	if err != nil {
		return models.RecurringInvoiceTemplate{}, "Invalid startDate, expected YYYY-MM-DD"
	}

	var endDate *time.Time
	if p.EndDate != nil && *p.EndDate != "" {
		parsed, err := time.Parse("2006-01-02", *p.EndDate)
		if err != nil {
			return models.RecurringInvoiceTemplate{}, "Invalid endDate, expected YYYY-MM-DD"
		}
		if parsed.Before(startDate) {
			return models.RecurringInvoiceTemplate{}, "endDate cannot precede startDate"
		}
		endDate = &parsed
	}

	if p.DueDateOffsetDays < 0 {
		return models.RecurringInvoiceTemplate{}, "dueDateOffsetDays cannot be negative"
	}

	// Reject broken formulas at creation time rather than on the first
	// generation run.
	if p.AmountFormula != "" {
		if _, err := govaluate.NewEvaluableExpression(p.AmountFormula); err != nil {
			return models.RecurringInvoiceTemplate{}, "Invalid amount formula: " + err.Error()
		}
	}

	currency := p.Currency
	if currency == "" {
		currency = "USD"
	}

	return models.RecurringInvoiceTemplate{
		TenantID:          p.TenantID,
		PropertyID:        p.PropertyID,
		LeaseID:           p.LeaseID,
		Frequency:         freq,
		Amount:            p.Amount,
		AmountFormula:     p.AmountFormula,
		Currency:          currency,
		StartDate:         startDate,
		EndDate:           endDate,
		DueDateOffsetDays: p.DueDateOffsetDays,
		Description:       p.Description,
	}, ""
}

// CreateTemplateHandler registers a new recurring billing definition.
func CreateTemplateHandler(c *gin.Context) {
	ownerID, ok := middleware.OwnerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var payload TemplatePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid template data: " + err.Error()})
		return
	}

	tmpl, problem := payload.validate()
	if problem != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": problem})
		return
	}
	tmpl.OwnerID = ownerID

	var tenant models.Tenant
	if err := config.DB.Where("owner_id = ?", ownerID).First(&tenant, tmpl.TenantID).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Tenant not found"})
		return
	}

	if err := config.DB.Create(&tmpl).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create template"})
		return
	}

	c.JSON(http.StatusCreated, tmpl)
}

// ListTemplatesHandler returns the owner's recurring templates, paginated.
func ListTemplatesHandler(c *gin.Context) {
	ownerID, ok := middleware.OwnerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	query := config.DB.Model(&models.RecurringInvoiceTemplate{}).Where("owner_id = ?", ownerID)
	if active := c.Query("active"); active != "" {
		query = query.Where("active = ?", active == "true")
	}

	var totalRows int64
	if err := query.Count(&totalRows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count templates"})
		return
	}

	var templates []models.RecurringInvoiceTemplate
	if err := query.Scopes(Paginate(c)).Order("id asc").Find(&templates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch templates"})
		return
	}

	c.JSON(http.StatusOK, CreatePaginatedResponse(c, templates, totalRows))
}

// UpdateTemplatePayload is the set of fields a user may edit after creation.
// The generation cursor is engine-owned and deliberately not among them.
type UpdateTemplatePayload struct {
	Amount            *float64 `json:"amount"`
	AmountFormula     *string  `json:"amountFormula"`
	EndDate           *string  `json:"endDate"`
	DueDateOffsetDays *int     `json:"dueDateOffsetDays"`
	Description       *string  `json:"description"`
	Active            *bool    `json:"active"`
}

// UpdateTemplateHandler edits the user-mutable fields of a template.
// Templates are never deleted: deactivation is the supported way to stop
// generation, so the invoice history keeps its source reference.
func UpdateTemplateHandler(c *gin.Context) {
	ownerID, ok := middleware.OwnerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid template ID"})
		return
	}

	var payload UpdateTemplatePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid template data: " + err.Error()})
		return
	}

	var tmpl models.RecurringInvoiceTemplate
	err = config.DB.Where("owner_id = ?", ownerID).First(&tmpl, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch template"})
		return
	}

	updates := map[string]interface{}{}
	if payload.Amount != nil {
		if *payload.Amount <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be positive"})
			return
		}
		updates["amount"] = *payload.Amount
	}
	if payload.AmountFormula != nil {
		if *payload.AmountFormula != "" {
			if _, err := govaluate.NewEvaluableExpression(*payload.AmountFormula); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid amount formula: " + err.Error()})
				return
			}
		}
		updates["amount_formula"] = *payload.AmountFormula
	}
	if payload.EndDate != nil {
		if *payload.EndDate == "" {
			updates["end_date"] = nil
		} else {
			parsed, err := time.Parse("2006-01-02", *payload.EndDate)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid endDate, expected YYYY-MM-DD"})
				return
			}
			updates["end_date"] = parsed
		}
	}
	if payload.DueDateOffsetDays != nil {
		if *payload.DueDateOffsetDays < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "dueDateOffsetDays cannot be negative"})
			return
		}
		updates["due_date_offset_days"] = *payload.DueDateOffsetDays
	}
	if payload.Description != nil {
		updates["description"] = *payload.Description
	}
	if payload.Active != nil {
		updates["active"] = *payload.Active
	}

	if len(updates) == 0 {
		c.JSON(http.StatusOK, tmpl)
		return
	}

	if err := config.DB.Model(&tmpl).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update template"})
		return
	}

	c.JSON(http.StatusOK, tmpl)
}
