package handlers

import (
	"net/http"
	"strconv"

	"covid-data-portal/internal/models"

	"github.com/gin-gonic/gin"
)

const defaultSearchLimit = 20

// CaseSearcher is the slice of the search layer the handler queries.
type CaseSearcher interface {
	Search(query string, limit int64) ([]models.CaseRecord, error)
}

// SearchHandler serves full-text case lookups against the search index.
type SearchHandler struct {
	searcher CaseSearcher
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(searcher CaseSearcher) *SearchHandler {
	return &SearchHandler{searcher: searcher}
}

// SearchCases handles GET /api/cases/search?q=<query>&limit=<n>
func (h *SearchHandler) SearchCases(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing query parameter 'q'"})
		return
	}

	limit := int64(defaultSearchLimit)
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	cases, err := h.searcher.Search(query, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"query":   query,
		"count":   len(cases),
		"results": cases,
	})
}
