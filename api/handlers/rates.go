package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/brannt/skypilot/pkg/database/queries"
)

type RateHandler struct {
	rateRepo *queries.RateSampleRepository
	maxLimit int
}

func NewRateHandler(rateRepo *queries.RateSampleRepository, maxLimit int) *RateHandler {
	if maxLimit <= 0 {
		maxLimit = 500
	}
	return &RateHandler{rateRepo: rateRepo, maxLimit: maxLimit}
}

// GetByService returns recent rate samples. The window defaults to the last
// hour and can be widened with ?since=24h.
func (h *RateHandler) GetByService(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	window := time.Hour
	if raw := c.Query("since"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid since duration"})
			return
		}
		window = parsed
	}

	limit := h.maxLimit
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed < limit {
			limit = parsed
		}
	}

	name := c.Param("name")
	samples, err := h.rateRepo.GetByService(ctx, name, time.Now().Add(-window), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch rate samples"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"service_name": name,
		"samples":      samples,
		"count":        len(samples),
	})
}
