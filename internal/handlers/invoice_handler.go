package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/xuri/excelize/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/mbzzzzz/axis-crm-v1-sub003/config"
	"github.com/mbzzzzz/axis-crm-v1-sub003/internal/billing"
	"github.com/mbzzzzz/axis-crm-v1-sub003/internal/middleware"
	"github.com/mbzzzzz/axis-crm-v1-sub003/models"
)

// SubmitInvoicePayload is the body for manually created (non-recurring)
// invoices.
type SubmitInvoicePayload struct {
	TenantID    *uint   `json:"tenantId"`
	PropertyID  *uint   `json:"propertyId"`
	InvoiceDate string  `json:"invoiceDate" binding:"required"`
	DueDate     string  `json:"dueDate" binding:"required"`
	TotalAmount float64 `json:"totalAmount" binding:"required,gt=0"`
	Currency    string  `json:"currency"`
	Notes       string  `json:"notes"`
}

// SubmitInvoiceHandler creates a one-off invoice for the authenticated owner.
func SubmitInvoiceHandler(c *gin.Context) {
	ownerID, ok := middleware.OwnerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var payload SubmitInvoicePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid invoice data: " + err.Error()})
		return
	}

	invoiceDate, err := time.Parse("2006-01-02", payload.InvoiceDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid invoiceDate, expected YYYY-MM-DD"})
		return
	}
	dueDate, err := time.Parse("2006-01-02", payload.DueDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid dueDate, expected YYYY-MM-DD"})
		return
	}
	if dueDate.Before(invoiceDate) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "dueDate cannot precede invoiceDate"})
		return
	}

	currency := payload.Currency
	if currency == "" {
		currency = "USD"
	}

	invoice := models.Invoice{
		OwnerID:       ownerID,
		TenantID:      payload.TenantID,
		PropertyID:    payload.PropertyID,
		InvoiceNumber: manualInvoiceNumber(invoiceDate),
		InvoiceDate:   datatypes.Date(invoiceDate),
		DueDate:       datatypes.Date(dueDate),
		TotalAmount:   payload.TotalAmount,
		AmountInWords: billing.AmountInWords(payload.TotalAmount, currency),
		Currency:      currency,
		PaymentStatus: models.PaymentStatusUnpaid,
		Notes:         payload.Notes,
	}

	if err := config.DB.Create(&invoice).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create invoice"})
		return
	}

	c.JSON(http.StatusCreated, invoice)
}

// manualInvoiceNumber builds a number for hand-entered invoices. Unlike
// recurring numbers it has no natural period key, so a random suffix keeps
// it unique per owner.
func manualInvoiceNumber(invoiceDate time.Time) string {
	suffix := strings.ToUpper(uuid.NewString()[:8])
	return fmt.Sprintf("INV-%s-%s", invoiceDate.Format("200601"), suffix)
}

// ListInvoicesHandler returns the owner's invoices, optionally filtered by
// payment status, tenant, source template and due-date range, paginated.
func ListInvoicesHandler(c *gin.Context) {
	ownerID, ok := middleware.OwnerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	query := config.DB.Model(&models.Invoice{}).Where("owner_id = ?", ownerID)

	if status := c.Query("status"); status != "" {
		query = query.Where("payment_status = ?", status)
	}
	if tenantID := c.Query("tenant_id"); tenantID != "" {
		query = query.Where("tenant_id = ?", tenantID)
	}
	if templateID := c.Query("template_id"); templateID != "" {
		query = query.Where("source_template_id = ?", templateID)
	}
	if from := c.Query("due_from"); from != "" {
		query = query.Where("due_date >= ?", from)
	}
	if to := c.Query("due_to"); to != "" {
		query = query.Where("due_date <= ?", to)
	}

	var totalRows int64
	if err := query.Count(&totalRows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count invoices"})
		return
	}

	var invoices []models.Invoice
	if err := query.Scopes(Paginate(c)).Order("due_date desc, id desc").Find(&invoices).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch invoices"})
		return
	}

	c.JSON(http.StatusOK, CreatePaginatedResponse(c, invoices, totalRows))
}

// GetInvoiceHandler returns one invoice with its tenant and property.
func GetInvoiceHandler(c *gin.Context) {
	ownerID, ok := middleware.OwnerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid invoice ID"})
		return
	}

	var invoice models.Invoice
	err = config.DB.Preload("Tenant").Preload("Property").
		Where("owner_id = ?", ownerID).
		First(&invoice, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Invoice not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch invoice"})
		return
	}

	c.JSON(http.StatusOK, invoice)
}

// ExportInvoiceRegisterHandler streams the owner's invoice register as an
// XLSX workbook.
func ExportInvoiceRegisterHandler(c *gin.Context) {
	ownerID, ok := middleware.OwnerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var invoices []models.Invoice
	if err := config.DB.Where("owner_id = ?", ownerID).Order("invoice_date asc, id asc").Find(&invoices).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch invoices for export"})
		return
	}
	if len(invoices) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No invoices found to export"})
		return
	}

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	headers := []string{"Number", "Invoice Date", "Due Date", "Tenant ID", "Amount", "Currency", "Status", "Late Fee Applied", "Source Template"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	for row, inv := range invoices {
		values := []interface{}{
			inv.InvoiceNumber,
			time.Time(inv.InvoiceDate).Format("2006-01-02"),
			time.Time(inv.DueDate).Format("2006-01-02"),
			derefUint(inv.TenantID),
			inv.TotalAmount,
			inv.Currency,
			string(inv.PaymentStatus),
			formatAppliedAt(inv.LateFeeAppliedAt),
			derefUint(inv.SourceTemplateID),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	// Totals row: overall billed amount and the open (not yet settled) share.
	totalBilled := lo.SumBy(invoices, func(inv models.Invoice) float64 { return inv.TotalAmount })
	open := lo.Filter(invoices, func(inv models.Invoice, _ int) bool { return !inv.PaymentStatus.Settled() })
	totalOpen := lo.SumBy(open, func(inv models.Invoice) float64 { return inv.TotalAmount })

	totalRow := len(invoices) + 3
	f.SetCellValue(sheet, fmt.Sprintf("A%d", totalRow), "Total billed")
	f.SetCellValue(sheet, fmt.Sprintf("E%d", totalRow), totalBilled)
	f.SetCellValue(sheet, fmt.Sprintf("A%d", totalRow+1), "Total open")
	f.SetCellValue(sheet, fmt.Sprintf("E%d", totalRow+1), totalOpen)

	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename=invoice_register.xlsx")
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := f.Write(c.Writer); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to write XLSX data"})
		return
	}
}

func derefUint(v *uint) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

func formatAppliedAt(d *datatypes.Date) string {
	if d == nil {
		return ""
	}
	return time.Time(*d).Format("2006-01-02")
}
