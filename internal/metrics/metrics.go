package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/brannt/skypilot/internal/logger"
)

// Metrics is a process-local registry exposed in the Prometheus text format.
type Metrics struct {
	mu sync.RWMutex

	// Counters
	requestsRecorded map[string]int64
	evaluationsTotal map[string]int64
	evaluationErrors map[string]int64
	decisionsTotal   map[string]map[string]int64 // service -> operator -> count
	launchFailures   map[string]int64

	// Gauges
	targetReplicas map[string]int
	aliveReplicas  map[string]int
	observedQPS    map[string]float64

	// Last evaluation latency per service
	evaluationLatency map[string]time.Duration
}

var (
	instance *Metrics
	once     sync.Once
)

func Get() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			requestsRecorded:  make(map[string]int64),
			evaluationsTotal:  make(map[string]int64),
			evaluationErrors:  make(map[string]int64),
			decisionsTotal:    make(map[string]map[string]int64),
			launchFailures:    make(map[string]int64),
			targetReplicas:    make(map[string]int),
			aliveReplicas:     make(map[string]int),
			observedQPS:       make(map[string]float64),
			evaluationLatency: make(map[string]time.Duration),
		}
	})
	return instance
}

func (m *Metrics) AddRequests(serviceName string, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestsRecorded[serviceName] += int64(count)
}

func (m *Metrics) IncEvaluations(serviceName string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evaluationsTotal[serviceName]++
}

func (m *Metrics) IncEvaluationErrors(serviceName string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evaluationErrors[serviceName]++
}

func (m *Metrics) IncDecision(serviceName, operator string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.decisionsTotal[serviceName] == nil {
		m.decisionsTotal[serviceName] = make(map[string]int64)
	}
	m.decisionsTotal[serviceName][operator]++
}

func (m *Metrics) IncLaunchFailures(serviceName string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.launchFailures[serviceName]++
}

func (m *Metrics) SetTargetReplicas(serviceName string, target int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.targetReplicas[serviceName] = target
}

func (m *Metrics) SetAliveReplicas(serviceName string, alive int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.aliveReplicas[serviceName] = alive
}

func (m *Metrics) SetObservedQPS(serviceName string, qps float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observedQPS[serviceName] = qps
}

func (m *Metrics) SetEvaluationLatency(serviceName string, latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evaluationLatency[serviceName] = latency
}

func (m *Metrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.RLock()
		defer m.mu.RUnlock()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		for service, count := range m.requestsRecorded {
			writeMetric(w, "autoscaler_requests_recorded_total", map[string]string{"service_name": service}, float64(count))
		}

		for service, count := range m.evaluationsTotal {
			writeMetric(w, "autoscaler_evaluations_total", map[string]string{"service_name": service}, float64(count))
		}

		for service, count := range m.evaluationErrors {
			writeMetric(w, "autoscaler_evaluation_errors_total", map[string]string{"service_name": service}, float64(count))
		}

		for service, operators := range m.decisionsTotal {
			for operator, count := range operators {
				writeMetric(w, "autoscaler_decisions_total", map[string]string{"service_name": service, "operator": operator}, float64(count))
			}
		}

		for service, count := range m.launchFailures {
			writeMetric(w, "autoscaler_launch_failures_total", map[string]string{"service_name": service}, float64(count))
		}

		for service, target := range m.targetReplicas {
			writeMetric(w, "autoscaler_target_replicas", map[string]string{"service_name": service}, float64(target))
		}

		for service, alive := range m.aliveReplicas {
			writeMetric(w, "autoscaler_alive_replicas", map[string]string{"service_name": service}, float64(alive))
		}

		for service, qps := range m.observedQPS {
			writeMetric(w, "autoscaler_observed_qps", map[string]string{"service_name": service}, qps)
		}

		for service, latency := range m.evaluationLatency {
			writeMetric(w, "autoscaler_evaluation_latency_ms", map[string]string{"service_name": service}, float64(latency.Milliseconds()))
		}
	})
}

func writeMetric(w http.ResponseWriter, name string, labels map[string]string, value float64) {
	labelStr := ""
	if len(labels) > 0 {
		labelStr = "{"
		first := true
		for k, v := range labels {
			if !first {
				labelStr += ","
			}
			labelStr += k + `="` + v + `"`
			first = false
		}
		labelStr += "}"
	}
	w.Write([]byte(name + labelStr + " " + strconv.FormatFloat(value, 'f', -1, 64) + "\n"))
}

func StartServer(port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Get().Handler())

	addr := ":" + strconv.Itoa(port)
	logger.Infof("Metrics server listening on %s", addr)

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Errorf("Metrics server error: %v", err)
		}
	}()
}
