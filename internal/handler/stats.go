package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dispatch/internal/service"
)

const defaultStatsWindow = 24 * time.Hour

// StatsHandler serves aggregate dispatch statistics.
type StatsHandler struct {
	statsService *service.StatsService
	now          func() time.Time
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(statsService *service.StatsService) *StatsHandler {
	return &StatsHandler{
		statsService: statsService,
		now:          time.Now,
	}
}

// GetStats handles GET /v1/stats?since=
//
// since is an RFC 3339 timestamp and defaults to 24 hours ago.
func (h *StatsHandler) GetStats(c *gin.Context) {
	since := h.now().Add(-defaultStatsWindow)
	if raw := c.Query("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "since must be an RFC 3339 timestamp"})
			return
		}
		since = parsed
	}

	stats, err := h.statsService.GetStats(c.Request.Context(), since)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, stats)
}
