package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/brannt/skypilot/internal/logger"
	"github.com/brannt/skypilot/internal/replicas"
	"github.com/brannt/skypilot/pkg/database/queries"
	"github.com/brannt/skypilot/pkg/models"
	"github.com/brannt/skypilot/pkg/validation"
)

// ServiceManager is the orchestrator surface the API needs.
type ServiceManager interface {
	StartService(service *models.Service) error
	StopService(serviceName string) error
	GetServiceStatus(serviceName string) (bool, error)
	RecordRequests(serviceName string, timestamps []float64) error
	ReplicaRoster(serviceName string) []models.ReplicaInfo
	FleetCounts(serviceName string) replicas.FleetCounts
	SubscribeAllEvents() <-chan *models.Event
}

type ServiceHandler struct {
	serviceRepo    *queries.ServiceRepository
	replicaRepo    *queries.ReplicaRepository
	serviceManager ServiceManager
}

func NewServiceHandler(serviceRepo *queries.ServiceRepository, replicaRepo *queries.ReplicaRepository, serviceManager ServiceManager) *ServiceHandler {
	return &ServiceHandler{
		serviceRepo:    serviceRepo,
		replicaRepo:    replicaRepo,
		serviceManager: serviceManager,
	}
}

type CreateServiceRequest struct {
	Name                string   `json:"name" binding:"required,min=1,max=100"`
	MinReplicas         int      `json:"min_replicas" binding:"required,min=1"`
	MaxReplicas         int      `json:"max_replicas" binding:"omitempty,min=1"`
	TargetQPSPerReplica *float64 `json:"target_qps_per_replica" binding:"omitempty,gt=0"`
	UseSpot             bool     `json:"use_spot"`
}

type UpdateServiceRequest struct {
	MinReplicas         *int     `json:"min_replicas" binding:"omitempty,min=1"`
	MaxReplicas         *int     `json:"max_replicas" binding:"omitempty,min=1"`
	TargetQPSPerReplica *float64 `json:"target_qps_per_replica" binding:"omitempty,gt=0"`
	UseSpot             *bool    `json:"use_spot"`
	Status              string   `json:"status" binding:"omitempty,oneof=active paused"`
}

type ServiceResponse struct {
	ID        string               `json:"id"`
	Name      string               `json:"name"`
	Policy    models.ServicePolicy `json:"policy"`
	Status    string               `json:"status"`
	Running   bool                 `json:"running"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

func (h *ServiceHandler) toResponse(s *models.Service) ServiceResponse {
	running := false
	if h.serviceManager != nil {
		running, _ = h.serviceManager.GetServiceStatus(s.Name)
	}
	return ServiceResponse{
		ID:        s.ID,
		Name:      s.Name,
		Policy:    s.Policy,
		Status:    string(s.Status),
		Running:   running,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func (h *ServiceHandler) List(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	services, err := h.serviceRepo.GetAll(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch services"})
		return
	}

	response := make([]ServiceResponse, len(services))
	for i, service := range services {
		response[i] = h.toResponse(service)
	}

	c.JSON(http.StatusOK, gin.H{
		"services": response,
		"count":    len(response),
	})
}

func (h *ServiceHandler) Get(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	service, err := h.serviceRepo.GetByName(ctx, c.Param("name"))
	if err != nil {
		if err == queries.ErrServiceNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "service not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch service"})
		return
	}

	c.JSON(http.StatusOK, h.toResponse(service))
}

func (h *ServiceHandler) Create(c *gin.Context) {
	var req CreateServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := validation.ValidateServiceName(req.Name); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.MaxReplicas != 0 && req.MaxReplicas < req.MinReplicas {
		c.JSON(http.StatusBadRequest, gin.H{"error": "max_replicas must be >= min_replicas"})
		return
	}

	service := models.NewService(validation.SanitizeString(req.Name), models.ServicePolicy{
		MinReplicas:         req.MinReplicas,
		MaxReplicas:         req.MaxReplicas,
		TargetQPSPerReplica: req.TargetQPSPerReplica,
		UseSpot:             req.UseSpot,
	})

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.serviceRepo.Create(ctx, service); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create service"})
		return
	}

	if h.serviceManager != nil {
		if err := h.serviceManager.StartService(service); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "service created but pipeline failed to start"})
			return
		}
	}

	c.JSON(http.StatusCreated, h.toResponse(service))
}

func (h *ServiceHandler) Update(c *gin.Context) {
	var req UpdateServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	name := c.Param("name")
	service, err := h.serviceRepo.GetByName(ctx, name)
	if err != nil {
		if err == queries.ErrServiceNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "service not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch service"})
		return
	}

	if req.MinReplicas != nil {
		service.Policy.MinReplicas = *req.MinReplicas
	}
	if req.MaxReplicas != nil {
		service.Policy.MaxReplicas = *req.MaxReplicas
	}
	if req.TargetQPSPerReplica != nil {
		service.Policy.TargetQPSPerReplica = req.TargetQPSPerReplica
	}
	if req.UseSpot != nil {
		service.Policy.UseSpot = *req.UseSpot
	}
	if req.Status != "" {
		service.Status = models.ServiceStatus(req.Status)
	}

	if service.Policy.MaxReplicas != 0 && service.Policy.MaxReplicas < service.Policy.MinReplicas {
		c.JSON(http.StatusBadRequest, gin.H{"error": "max_replicas must be >= min_replicas"})
		return
	}

	if err := h.serviceRepo.Update(ctx, service); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update service"})
		return
	}

	// Restart the pipeline so the new policy takes effect.
	if h.serviceManager != nil {
		h.serviceManager.StopService(name)
		if service.IsActive() {
			if err := h.serviceManager.StartService(service); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "service updated but pipeline failed to restart"})
				return
			}
		}
	}

	c.JSON(http.StatusOK, h.toResponse(service))
}

func (h *ServiceHandler) Delete(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	name := c.Param("name")

	if h.serviceManager != nil {
		h.serviceManager.StopService(name)
	}

	if err := h.serviceRepo.Delete(ctx, name); err != nil {
		if err == queries.ErrServiceNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "service not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete service"})
		return
	}

	if h.replicaRepo != nil {
		if err := h.replicaRepo.DeleteByService(ctx, name); err != nil {
			logger.WithService(name).Warnf("Failed to clear replica history: %v", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"deleted": name})
}

func (h *ServiceHandler) GetStatus(c *gin.Context) {
	name := c.Param("name")

	if h.serviceManager == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "orchestrator not available"})
		return
	}

	running, err := h.serviceManager.GetServiceStatus(name)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	counts := h.serviceManager.FleetCounts(name)
	c.JSON(http.StatusOK, gin.H{
		"service_name": name,
		"running":      running,
		"replicas":     counts,
	})
}

// GetReplicas returns the live roster, or the persisted fleet history
// (including pruned replicas) when ?history=true.
func (h *ServiceHandler) GetReplicas(c *gin.Context) {
	name := c.Param("name")

	if c.Query("history") == "true" {
		h.getReplicaHistory(c, name)
		return
	}

	if h.serviceManager == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "orchestrator not available"})
		return
	}

	roster := h.serviceManager.ReplicaRoster(name)
	c.JSON(http.StatusOK, gin.H{
		"service_name": name,
		"replicas":     roster,
		"count":        len(roster),
	})
}

func (h *ServiceHandler) getReplicaHistory(c *gin.Context, name string) {
	if h.replicaRepo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database not available"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	infos, err := h.replicaRepo.GetByService(ctx, name)
	if err != nil {
		logger.WithService(name).Errorf("Failed to fetch replica history: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch replica history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"service_name": name,
		"replicas":     infos,
		"count":        len(infos),
	})
}
