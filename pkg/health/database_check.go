package health

import (
	"context"
	"fmt"
)

// Database is the subset of the connection pool the check needs.
type Database interface {
	Health(ctx context.Context) error
}

// PoolStats reports pool usage for check details.
type PoolStats interface {
	PoolCounts() (total, idle, max int32)
}

// DatabaseCheck pings the database.
type DatabaseCheck struct {
	db Database
}

// NewDatabaseCheck creates a new database health check.
func NewDatabaseCheck(db Database) *DatabaseCheck {
	return &DatabaseCheck{db: db}
}

// Name returns the name of the health check.
func (c *DatabaseCheck) Name() string {
	return "database"
}

// Check pings the database.
func (c *DatabaseCheck) Check(ctx context.Context) error {
	if c.db == nil {
		return fmt.Errorf("database not configured")
	}
	return c.db.Health(ctx)
}

// CheckDetailed performs the ping and attaches pool counts when available.
func (c *DatabaseCheck) CheckDetailed(ctx context.Context) Result {
	if err := c.Check(ctx); err != nil {
		return Result{
			Name:    c.Name(),
			Status:  StatusUnhealthy,
			Message: "database ping failed",
		}
	}

	result := Result{
		Name:    c.Name(),
		Status:  StatusHealthy,
		Message: "database reachable",
	}
	if stats, ok := c.db.(PoolStats); ok {
		total, idle, max := stats.PoolCounts()
		result.Details = map[string]string{
			"total_conns": fmt.Sprintf("%d", total),
			"idle_conns":  fmt.Sprintf("%d", idle),
			"max_conns":   fmt.Sprintf("%d", max),
		}
		if max > 0 && total >= max && idle == 0 {
			result.Status = StatusDegraded
			result.Message = "connection pool exhausted"
		}
	}
	return result
}
