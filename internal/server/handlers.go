package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jbkim/weather-batch/internal/database"
)

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	jobs               *Jobs
	db                 *database.DB
	providerConfigured bool
}

func NewHandlers(jobs *Jobs, db *database.DB, providerConfigured bool) *Handlers {
	return &Handlers{
		jobs:               jobs,
		db:                 db,
		providerConfigured: providerConfigured,
	}
}

// HealthCheck reports liveness
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

func executionSummary(exec *database.JobExecution) gin.H {
	summary := gin.H{
		"execution_id": exec.ID,
		"job_name":     exec.JobName,
		"status":       exec.Status,
		"started_at":   exec.StartedAt,
	}
	if exec.EndedAt != nil {
		summary["ended_at"] = exec.EndedAt
	}
	if exec.ExitError != "" {
		summary["error"] = exec.ExitError
	}
	return summary
}

// TriggerCollection launches the collection job. Refused while the
// provider API key is not configured.
func (h *Handlers) TriggerCollection(c *gin.Context) {
	if !h.providerConfigured {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "provider API key is not configured",
		})
		return
	}

	exec, err := h.jobs.RunCollection(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, executionSummary(exec))
}

// TriggerStatistics launches the statistics job. The optional date query
// parameter (YYYY-MM-DD) defaults to today.
func (h *Handlers) TriggerStatistics(c *gin.Context) {
	targetDate := time.Now()
	if dateParam := c.Query("date"); dateParam != "" {
		parsed, err := time.ParseInLocation("2006-01-02", dateParam, time.Local)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "invalid date, expected YYYY-MM-DD: " + dateParam,
			})
			return
		}
		targetDate = parsed
	}

	exec, err := h.jobs.RunStatistics(c.Request.Context(), targetDate)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, executionSummary(exec))
}

// TriggerAlerts launches the alert job.
func (h *Handlers) TriggerAlerts(c *gin.Context) {
	exec, err := h.jobs.RunAlerts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, executionSummary(exec))
}

// GetCurrentWeather returns the newest observation per city.
func (h *Handlers) GetCurrentWeather(c *gin.Context) {
	observations, err := h.db.FindLatestPerCity(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": observations})
}

// GetAbnormalWeather returns all observations flagged abnormal.
func (h *Handlers) GetAbnormalWeather(c *gin.Context) {
	observations, err := h.db.FindAbnormal(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": observations})
}

// GetRecentStatistics returns statistics from the last N days
// (default 7).
func (h *Handlers) GetRecentStatistics(c *gin.Context) {
	days := 7
	if daysParam := c.Query("days"); daysParam != "" {
		parsed, err := strconv.Atoi(daysParam)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "invalid days, expected a positive integer: " + daysParam,
			})
			return
		}
		days = parsed
	}

	fromDate := time.Now().AddDate(0, 0, -days)
	stats, err := h.db.FindStatisticsSince(c.Request.Context(), fromDate)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": stats})
}

// GetNationalAverage returns the national average temperature over a
// date range given by from and to query parameters (YYYY-MM-DD).
func (h *Handlers) GetNationalAverage(c *gin.Context) {
	from, err := time.ParseInLocation("2006-01-02", c.Query("from"), time.Local)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from date, expected YYYY-MM-DD"})
		return
	}
	to, err := time.ParseInLocation("2006-01-02", c.Query("to"), time.Local)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to date, expected YYYY-MM-DD"})
		return
	}

	avg, err := h.db.NationalAverageTemperature(c.Request.Context(), from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"from":            from.Format("2006-01-02"),
		"to":              to.Format("2006-01-02"),
		"avg_temperature": avg,
	})
}

// GetActiveAlerts returns all unresolved alerts, newest first.
func (h *Handlers) GetActiveAlerts(c *gin.Context) {
	alerts, err := h.db.FindUnresolved(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": alerts})
}

// GetUnsentAlerts returns alerts whose notification has not gone out.
func (h *Handlers) GetUnsentAlerts(c *gin.Context) {
	alerts, err := h.db.FindUnsent(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": alerts})
}
