package health

import (
	"context"
	"fmt"

	"github.com/adpulse-labs/orchestrator/internal/circuitbreaker"
)

// Pinger is anything with a Ping, which covers the warehouse and run
// store clients.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RedisChecker probes the session store through its breaker wrapper.
// Sessions degrade gracefully without Redis, so the check is not
// critical.
type RedisChecker struct {
	wrapper *circuitbreaker.RedisWrapper
}

func NewRedisChecker(wrapper *circuitbreaker.RedisWrapper) *RedisChecker {
	return &RedisChecker{wrapper: wrapper}
}

func (c *RedisChecker) Name() string   { return "redis" }
func (c *RedisChecker) Critical() bool { return false }

func (c *RedisChecker) Check(ctx context.Context) error {
	if c.wrapper.IsOpen() {
		return fmt.Errorf("redis circuit breaker open")
	}
	if err := c.wrapper.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// PingChecker probes any Pinger-shaped dependency.
type PingChecker struct {
	name     string
	critical bool
	target   Pinger
}

// NewPingChecker wraps a Pinger as a named checker.
func NewPingChecker(name string, critical bool, target Pinger) *PingChecker {
	return &PingChecker{name: name, critical: critical, target: target}
}

func (c *PingChecker) Name() string   { return c.name }
func (c *PingChecker) Critical() bool { return c.critical }

func (c *PingChecker) Check(ctx context.Context) error {
	if err := c.target.Ping(ctx); err != nil {
		return fmt.Errorf("%s ping: %w", c.name, err)
	}
	return nil
}

// CheckerFunc adapts a plain function into a Checker.
type CheckerFunc struct {
	ComponentName string
	IsCritical    bool
	Fn            func(ctx context.Context) error
}

func (c CheckerFunc) Name() string                    { return c.ComponentName }
func (c CheckerFunc) Critical() bool                  { return c.IsCritical }
func (c CheckerFunc) Check(ctx context.Context) error { return c.Fn(ctx) }
