package health

import (
	"context"
	"sync"
	"time"

	"ollamaui/logger"
)

// Pinger reports whether the inference server answers
type Pinger interface {
	Ping(ctx context.Context) error
}

// Status is the last known state of the inference server
type Status struct {
	Healthy          bool      `json:"healthy"`
	LastCheck        time.Time `json:"last_check"`
	ConsecutiveFails int       `json:"consecutive_fails"`
	Error            string    `json:"error,omitempty"`
	ResponseTimeMS   int64     `json:"response_time_ms"`
	AverageLatencyMS float64   `json:"average_latency_ms"`
}

// Checker monitors the inference server. With a positive interval Run refreshes the status
// in the background and Current serves it from cache; otherwise every Current call checks.
type Checker struct {
	pinger   Pinger
	interval time.Duration
	timeout  time.Duration

	mu      sync.RWMutex
	status  Status
	checked bool
}

// NewChecker creates a checker
func NewChecker(pinger Pinger, interval, timeout time.Duration) *Checker {
	return &Checker{
		pinger:   pinger,
		interval: interval,
		timeout:  timeout,
	}
}

// Run checks once, then on every tick until ctx is done
func (c *Checker) Run(ctx context.Context) error {
	if c.interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.Check(ctx)

	for {
		select {
		case <-ticker.C:
			c.Check(ctx)
		case <-ctx.Done():
			return nil
		}
	}
}

// Current returns the cached status while it is fresh, checking otherwise
func (c *Checker) Current(ctx context.Context) Status {
	if c.interval > 0 {
		c.mu.RLock()
		status, checked := c.status, c.checked
		c.mu.RUnlock()
		if checked && time.Since(status.LastCheck) < 2*c.interval {
			return status
		}
	}
	return c.Check(ctx)
}

// Check pings the inference server and records the outcome
func (c *Checker) Check(ctx context.Context) Status {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	err := c.pinger.Ping(ctx)
	elapsed := time.Since(start)

	c.mu.Lock()
	defer c.mu.Unlock()

	wasHealthy := c.status.Healthy || !c.checked
	c.checked = true
	c.status.LastCheck = time.Now()
	c.status.Healthy = err == nil

	if err != nil {
		c.status.ConsecutiveFails++
		c.status.Error = err.Error()
		if wasHealthy {
			logger.Component("HEALTH").Warn("inference server unreachable", "err", err)
		}
		return c.status
	}

	if !wasHealthy {
		logger.Component("HEALTH").Info("inference server reachable again", "after_fails", c.status.ConsecutiveFails)
	}
	c.status.ConsecutiveFails = 0
	c.status.Error = ""
	c.status.ResponseTimeMS = elapsed.Milliseconds()

	// Exponential moving average
	if c.status.AverageLatencyMS == 0 {
		c.status.AverageLatencyMS = float64(elapsed.Milliseconds())
	} else {
		c.status.AverageLatencyMS = c.status.AverageLatencyMS*0.9 + float64(elapsed.Milliseconds())*0.1
	}
	return c.status
}
