package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brannt/skypilot/internal/replicas"
	"github.com/brannt/skypilot/pkg/models"
)

type fakeManager struct {
	recorded map[string][]float64
	started  map[string]bool
}

func newFakeManager() *fakeManager {
	return &fakeManager{
		recorded: make(map[string][]float64),
		started:  make(map[string]bool),
	}
}

func (m *fakeManager) StartService(service *models.Service) error {
	if m.started[service.Name] {
		return fmt.Errorf("pipeline already exists for service %s", service.Name)
	}
	m.started[service.Name] = true
	return nil
}

func (m *fakeManager) StopService(serviceName string) error {
	if !m.started[serviceName] {
		return fmt.Errorf("no pipeline found for service %s", serviceName)
	}
	delete(m.started, serviceName)
	return nil
}

func (m *fakeManager) GetServiceStatus(serviceName string) (bool, error) {
	if !m.started[serviceName] {
		return false, fmt.Errorf("no pipeline found for service %s", serviceName)
	}
	return true, nil
}

func (m *fakeManager) RecordRequests(serviceName string, timestamps []float64) error {
	if !m.started[serviceName] {
		return fmt.Errorf("no pipeline found for service %s", serviceName)
	}
	m.recorded[serviceName] = append(m.recorded[serviceName], timestamps...)
	return nil
}

func (m *fakeManager) ReplicaRoster(serviceName string) []models.ReplicaInfo {
	return nil
}

func (m *fakeManager) FleetCounts(serviceName string) replicas.FleetCounts {
	return replicas.FleetCounts{}
}

func (m *fakeManager) SubscribeAllEvents() <-chan *models.Event {
	return make(chan *models.Event)
}

func setupRequestRouter(manager ServiceManager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler := NewRequestHandler(manager)
	router.POST("/services/:name/requests", handler.Report)
	return router
}

func postJSON(t *testing.T, router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestReportTimestamps(t *testing.T) {
	manager := newFakeManager()
	manager.started["web"] = true
	router := setupRequestRouter(manager)

	now := float64(time.Now().UnixNano()) / float64(time.Second)
	w := postJSON(t, router, "/services/web/requests", gin.H{
		"timestamps": []float64{now - 2, now - 1, now},
	})

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Len(t, manager.recorded["web"], 3)
}

func TestReportCount(t *testing.T) {
	manager := newFakeManager()
	manager.started["web"] = true
	router := setupRequestRouter(manager)

	w := postJSON(t, router, "/services/web/requests", gin.H{"count": 5})

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Len(t, manager.recorded["web"], 5)
}

func TestReportEmptyBody(t *testing.T) {
	manager := newFakeManager()
	manager.started["web"] = true
	router := setupRequestRouter(manager)

	w := postJSON(t, router, "/services/web/requests", gin.H{})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, manager.recorded["web"])
}

func TestReportUnknownService(t *testing.T) {
	manager := newFakeManager()
	router := setupRequestRouter(manager)

	w := postJSON(t, router, "/services/ghost/requests", gin.H{"count": 1})

	assert.Equal(t, http.StatusNotFound, w.Code)
}
