package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestHandler ingests request timestamps reported by service load
// balancers. Reports feed the next autoscaling evaluation for the service.
type RequestHandler struct {
	serviceManager ServiceManager
}

func NewRequestHandler(serviceManager ServiceManager) *RequestHandler {
	return &RequestHandler{serviceManager: serviceManager}
}

type ReportRequestsBody struct {
	// Timestamps are seconds since epoch. Empty means "count requests at
	// receive time", covered by Count below.
	Timestamps []float64 `json:"timestamps"`

	// Count expands to that many timestamps at the current time, for
	// reporters that only track totals.
	Count int `json:"count" binding:"omitempty,min=0"`
}

func (h *RequestHandler) Report(c *gin.Context) {
	var body ReportRequestsBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	timestamps := body.Timestamps
	if body.Count > 0 {
		now := float64(time.Now().UnixNano()) / float64(time.Second)
		for i := 0; i < body.Count; i++ {
			timestamps = append(timestamps, now)
		}
	}

	if len(timestamps) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "timestamps or count required"})
		return
	}

	name := c.Param("name")
	if err := h.serviceManager.RecordRequests(name, timestamps); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"service_name": name,
		"recorded":     len(timestamps),
	})
}
