// Package db persists completed workflow runs to Postgres. Writes go
// through a small async queue so persistence latency never sits on the
// workflow's critical path; the queue falls back to a synchronous write
// instead of dropping records when full.
package db

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// Config holds the Postgres connection settings.
type Config struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxConnections  int
	IdleConnections int
	MaxLifetime     time.Duration
}

const (
	writeQueueCapacity = 256
	writeWorkers       = 4
	drainTimeout       = 10 * time.Second
)

// Client manages the connection pool and the async write queue.
type Client struct {
	db     *sqlx.DB
	logger *zap.Logger

	writeQueue chan *WorkflowRun
	stopCh     chan struct{}
	workerWg   sync.WaitGroup
}

// NewClient opens the pool, verifies connectivity, and starts the write
// workers.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.MaxConnections == 0 {
		cfg.MaxConnections = 25
	}
	if cfg.IdleConnections == 0 {
		cfg.IdleConnections = 5
	}
	if cfg.MaxLifetime == 0 {
		cfg.MaxLifetime = 5 * time.Minute
	}
	if cfg.SSLMode == "" {
		cfg.SSLMode = "require"
	}

	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)
	pool, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	pool.SetMaxOpenConns(cfg.MaxConnections)
	pool.SetMaxIdleConns(cfg.IdleConnections)
	pool.SetConnMaxLifetime(cfg.MaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	c := newClient(pool, logger)
	logger.Info("Database client initialized",
		zap.String("host", cfg.Host),
		zap.Int("max_connections", cfg.MaxConnections),
		zap.Int("workers", writeWorkers),
	)
	return c, nil
}

// NewClientWithDB wraps an existing pool. Used by tests.
func NewClientWithDB(pool *sqlx.DB, logger *zap.Logger) *Client {
	return newClient(pool, logger)
}

func newClient(pool *sqlx.DB, logger *zap.Logger) *Client {
	c := &Client{
		db:         pool,
		logger:     logger,
		writeQueue: make(chan *WorkflowRun, writeQueueCapacity),
		stopCh:     make(chan struct{}),
	}
	for i := 0; i < writeWorkers; i++ {
		c.workerWg.Add(1)
		go c.writeWorker(i)
	}
	return c
}

func (c *Client) writeWorker(id int) {
	defer c.workerWg.Done()
	for {
		select {
		case <-c.stopCh:
			c.drain()
			c.logger.Debug("Write worker stopped", zap.Int("worker_id", id))
			return
		case run := <-c.writeQueue:
			c.write(run)
		}
	}
}

func (c *Client) write(run *WorkflowRun) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.InsertWorkflowRun(ctx, run); err != nil {
		c.logger.Error("Failed to persist workflow run",
			zap.String("workflow_id", run.WorkflowID),
			zap.Error(err),
		)
	}
}

func (c *Client) drain() {
	timeout := time.After(drainTimeout)
	for {
		select {
		case run := <-c.writeQueue:
			c.write(run)
		case <-timeout:
			c.logger.Warn("Timeout draining write queue")
			return
		default:
			return
		}
	}
}

// enqueue hands a run to the workers; when the queue is full the write
// happens synchronously rather than being dropped.
func (c *Client) enqueue(run *WorkflowRun) {
	select {
	case c.writeQueue <- run:
	default:
		c.logger.Warn("Write queue full, writing synchronously",
			zap.String("workflow_id", run.WorkflowID))
		c.write(run)
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// Close stops the workers, drains pending writes, and closes the pool.
func (c *Client) Close() error {
	close(c.stopCh)
	c.workerWg.Wait()
	if err := c.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
