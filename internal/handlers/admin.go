package handlers

import (
	"net/http"

	"covid-data-portal/internal/models"
	"covid-data-portal/internal/scheduler"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// AdminHandler serves the operational endpoints: collection statistics,
// ingest state and the manual run trigger.
type AdminHandler struct {
	db        *gorm.DB
	scheduler *scheduler.Scheduler
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(db *gorm.DB, sched *scheduler.Scheduler) *AdminHandler {
	return &AdminHandler{
		db:        db,
		scheduler: sched,
	}
}

// GetStats returns collection counts and the latest ingest outcome
func (h *AdminHandler) GetStats(c *gin.Context) {
	stats := make(map[string]interface{})

	var caseCount, underInvestigation int64
	h.db.Model(&models.CaseRecord{}).Count(&caseCount)
	h.db.Model(&models.CaseRecord{}).
		Where("LOWER(travel_status) = LOWER(?)", models.TravelStatusUnderInvestigation).
		Count(&underInvestigation)
	stats["cases"] = map[string]interface{}{
		"total":               caseCount,
		"under_investigation": underInvestigation,
	}

	var statCount, growthCount, rankingCount int64
	h.db.Model(&models.DailyStat{}).Count(&statCount)
	h.db.Model(&models.GrowthPoint{}).Count(&growthCount)
	h.db.Model(&models.CountyRanking{}).Count(&rankingCount)
	stats["daily_stats"] = statCount
	stats["growth_points"] = growthCount
	stats["county_rankings"] = rankingCount

	var state models.IngestState
	if err := h.db.First(&state, 1).Error; err == nil {
		stats["ingest_state"] = state
	}

	c.JSON(http.StatusOK, stats)
}

// TriggerRun starts an ingestion run and returns its result. The scheduler
// serializes runs, so a trigger during the daily run waits for it.
func (h *AdminHandler) TriggerRun(c *gin.Context) {
	result := h.scheduler.RunNow(c.Request.Context())
	status := http.StatusOK
	if !result.Success {
		status = http.StatusInternalServerError
	}
	c.JSON(status, result)
}

// Health is a liveness probe that also verifies store connectivity
func (h *AdminHandler) Health(c *gin.Context) {
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.Ping()
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
