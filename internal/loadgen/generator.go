package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/brannt/skypilot/internal/logger"
)

type Config struct {
	// TargetURL is the autoscaler API base, e.g. http://localhost:8080.
	TargetURL   string
	ServiceName string
	BaseQPS     float64
	Pattern     Pattern
	Interval    time.Duration
}

// Generator synthesizes request timestamps at a patterned rate and reports
// them to the autoscaler's ingestion endpoint, standing in for a real load
// balancer.
type Generator struct {
	config Config
	client *http.Client
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfg Config) *Generator {
	if cfg.Interval == 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.Pattern == nil {
		cfg.Pattern = &SteadyPattern{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Generator{
		config: cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		ctx:    ctx,
		cancel: cancel,
	}
}

func (g *Generator) Start() {
	g.wg.Add(1)
	go g.run()
	logger.WithService(g.config.ServiceName).Infof(
		"Load generator started (pattern=%s, base_qps=%.1f)",
		g.config.Pattern.Name(), g.config.BaseQPS)
}

func (g *Generator) Stop() {
	g.cancel()
	g.wg.Wait()
	logger.WithService(g.config.ServiceName).Info("Load generator stopped")
}

func (g *Generator) run() {
	defer g.wg.Done()

	ticker := time.NewTicker(g.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-g.ctx.Done():
			return
		case tick := <-ticker.C:
			g.report(tick)
		}
	}
}

func (g *Generator) report(now time.Time) {
	qps := g.config.Pattern.Apply(g.config.BaseQPS)
	count := int(qps * g.config.Interval.Seconds())
	if count <= 0 {
		return
	}

	timestamps := spreadTimestamps(now, g.config.Interval, count)

	body, err := json.Marshal(map[string]interface{}{
		"timestamps": timestamps,
	})
	if err != nil {
		logger.Errorf("Failed to marshal report: %v", err)
		return
	}

	url := fmt.Sprintf("%s/services/%s/requests", g.config.TargetURL, g.config.ServiceName)
	req, err := http.NewRequestWithContext(g.ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		logger.Errorf("Failed to build report request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		logger.Errorf("Failed to report requests: %v", err)
		return
	}
	resp.Body.Close()

	if resp.StatusCode >= 300 {
		logger.Warnf("Report rejected with status %d", resp.StatusCode)
		return
	}

	logger.WithService(g.config.ServiceName).Debugf("Reported %d requests (%.1f qps)", count, qps)
}

// spreadTimestamps distributes count request timestamps uniformly at random
// across the interval ending at now, sorted so the receiver can fold them
// straight into its window.
func spreadTimestamps(now time.Time, interval time.Duration, count int) []float64 {
	end := float64(now.UnixNano()) / float64(time.Second)
	start := end - interval.Seconds()

	timestamps := make([]float64, count)
	for i := range timestamps {
		timestamps[i] = start + rand.Float64()*(end-start)
	}
	sort.Float64s(timestamps)
	return timestamps
}
