package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/brannt/skypilot/pkg/database/queries"
)

type DecisionHandler struct {
	decisionRepo *queries.DecisionRepository
	defaultLimit int
	maxLimit     int
}

func NewDecisionHandler(decisionRepo *queries.DecisionRepository, defaultLimit, maxLimit int) *DecisionHandler {
	if defaultLimit <= 0 {
		defaultLimit = 50
	}
	if maxLimit <= 0 {
		maxLimit = 500
	}
	return &DecisionHandler{
		decisionRepo: decisionRepo,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}
}

func (h *DecisionHandler) limit(c *gin.Context) int {
	limit := h.defaultLimit
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > h.maxLimit {
		limit = h.maxLimit
	}
	return limit
}

func (h *DecisionHandler) GetByService(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	name := c.Param("name")
	records, err := h.decisionRepo.GetByService(ctx, name, h.limit(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch decisions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"service_name": name,
		"decisions":    records,
		"count":        len(records),
	})
}

func (h *DecisionHandler) GetRecent(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	records, err := h.decisionRepo.GetRecent(ctx, h.limit(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch decisions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"decisions": records,
		"count":     len(records),
	})
}
