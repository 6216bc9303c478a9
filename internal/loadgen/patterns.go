package loadgen

import (
	"math"
	"math/rand"
	"time"
)

// Pattern shapes the generated request rate over time.
type Pattern interface {
	Apply(baseQPS float64) float64
	Name() string
}

func ParsePattern(name string) Pattern {
	switch name {
	case "daily":
		return &DailyPattern{}
	case "spike":
		return &SpikePattern{startTime: time.Now()}
	case "random":
		return &RandomPattern{}
	case "gradual_rise":
		return &GradualRisePattern{startTime: time.Now()}
	default:
		return &SteadyPattern{}
	}
}

// SteadyPattern - constant rate
type SteadyPattern struct{}

func (p *SteadyPattern) Apply(baseQPS float64) float64 {
	return baseQPS
}

func (p *SteadyPattern) Name() string {
	return "steady"
}

// DailyPattern - simulates a daily traffic cycle (high during business hours)
type DailyPattern struct{}

func (p *DailyPattern) Apply(baseQPS float64) float64 {
	hour := time.Now().Hour()

	var modifier float64
	switch {
	case hour >= 9 && hour <= 11:
		modifier = 1.4
	case hour >= 14 && hour <= 16:
		modifier = 1.3
	case hour >= 17 && hour <= 20:
		modifier = 1.1
	case hour >= 0 && hour <= 6:
		modifier = 0.6
	default:
		modifier = 1.0
	}

	return baseQPS * modifier
}

func (p *DailyPattern) Name() string {
	return "daily"
}

// SpikePattern - bursts to 4x base rate for one minute out of every five
type SpikePattern struct {
	startTime time.Time
}

func (p *SpikePattern) Apply(baseQPS float64) float64 {
	elapsed := time.Since(p.startTime)
	if int(elapsed.Minutes())%5 == 0 {
		return baseQPS * 4
	}
	return baseQPS
}

func (p *SpikePattern) Name() string {
	return "spike"
}

// RandomPattern - jitters the rate by up to 50% in either direction
type RandomPattern struct{}

func (p *RandomPattern) Apply(baseQPS float64) float64 {
	jitter := 1.0 + (rand.Float64()-0.5)
	result := baseQPS * jitter
	if result < 0 {
		result = 0
	}
	return result
}

func (p *RandomPattern) Name() string {
	return "random"
}

// GradualRisePattern - doubles the rate over the first 30 minutes then holds
type GradualRisePattern struct {
	startTime time.Time
}

func (p *GradualRisePattern) Apply(baseQPS float64) float64 {
	elapsed := time.Since(p.startTime).Minutes()
	factor := 1.0 + math.Min(elapsed/30.0, 1.0)
	return baseQPS * factor
}

func (p *GradualRisePattern) Name() string {
	return "gradual_rise"
}
