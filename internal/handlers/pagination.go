package handlers

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PaginatedResponse is the envelope every list endpoint returns: the page of
// rows plus enough totals for a client to render pager controls.
type PaginatedResponse struct {
	Data        interface{} `json:"data"`
	TotalRows   int64       `json:"totalRows"`
	TotalPages  int         `json:"totalPages"`
	CurrentPage int         `json:"currentPage"`
	PageSize    int         `json:"pageSize"`
}

// pageParams reads "page" and "pageSize" from the query string. Missing or
// nonsense values fall back to page 1 and the default size; the size is
// clamped so a caller cannot pull the whole invoice register in one request.
func pageParams(c *gin.Context) (page, size int) {
	page, _ = strconv.Atoi(c.Query("page"))
	if page <= 0 {
		page = 1
	}

	size, _ = strconv.Atoi(c.Query("pageSize"))
	switch {
	case size > MaxPageSize:
		size = MaxPageSize
	case size <= 0:
		size = DefaultPageSize
	}
	return page, size
}

// Paginate is a GORM scope applying the request's page window to a query.
func Paginate(c *gin.Context) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		page, size := pageParams(c)
		return db.Offset((page - 1) * size).Limit(size)
	}
}

// CreatePaginatedResponse wraps one page of rows in the list envelope,
// re-deriving the window from the same request the scope saw.
func CreatePaginatedResponse(c *gin.Context, data interface{}, totalRows int64) PaginatedResponse {
	page, size := pageParams(c)

	totalPages := 0
	if totalRows > 0 {
		totalPages = int(math.Ceil(float64(totalRows) / float64(size)))
	}

	return PaginatedResponse{
		Data:        data,
		TotalRows:   totalRows,
		TotalPages:  totalPages,
		CurrentPage: page,
		PageSize:    size,
	}
}
