// Package health provides readiness checks and their aggregation.
package health

import (
	"context"
	"time"
)

// Check represents a health check.
type Check interface {
	// Name returns the name of the health check.
	Name() string
	// Check performs the health check and returns an error if unhealthy.
	Check(ctx context.Context) error
}

// Status represents the status of a health check.
type Status string

const (
	// StatusHealthy indicates the component is healthy.
	StatusHealthy Status = "healthy"
	// StatusUnhealthy indicates the component is unhealthy.
	StatusUnhealthy Status = "unhealthy"
	// StatusDegraded indicates the component is working but degraded.
	StatusDegraded Status = "degraded"
)

// Result represents the result of a health check.
type Result struct {
	Name    string            `json:"name"`
	Status  Status            `json:"status"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// DetailedCheck is implemented by checks that report more than pass/fail.
type DetailedCheck interface {
	Check
	CheckDetailed(ctx context.Context) Result
}

// Checker runs a fixed set of checks, each bounded by a timeout.
type Checker struct {
	checks  []Check
	timeout time.Duration
}

// NewChecker creates a Checker. A non-positive timeout defaults to 2s.
func NewChecker(timeout time.Duration, checks ...Check) *Checker {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Checker{checks: checks, timeout: timeout}
}

// Run executes every check in order. ok is false when any check reports
// StatusUnhealthy; degraded checks do not fail readiness.
func (c *Checker) Run(ctx context.Context) (results []Result, ok bool) {
	results = make([]Result, 0, len(c.checks))
	ok = true
	for _, check := range c.checks {
		r := c.run(ctx, check)
		if r.Status == StatusUnhealthy {
			ok = false
		}
		results = append(results, r)
	}
	return results, ok
}

func (c *Checker) run(ctx context.Context, check Check) Result {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if d, ok := check.(DetailedCheck); ok {
		return d.CheckDetailed(ctx)
	}
	if err := check.Check(ctx); err != nil {
		return Result{Name: check.Name(), Status: StatusUnhealthy, Message: err.Error()}
	}
	return Result{Name: check.Name(), Status: StatusHealthy}
}
