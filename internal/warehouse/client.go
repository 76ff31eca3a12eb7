// Package warehouse reads campaign delivery data from the analytics
// warehouse. Queries are read-only; results are cached in Redis keyed
// by a digest of the SQL text so repeated specialist runs within the
// cache window skip the warehouse entirely.
package warehouse

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/adpulse-labs/orchestrator/internal/circuitbreaker"
	"github.com/adpulse-labs/orchestrator/internal/metrics"
)

// Config holds warehouse connection settings.
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
	QueryTimeout    time.Duration
	CacheTTL        time.Duration
}

// Row is one result row keyed by column name.
type Row = map[string]interface{}

// Client runs warehouse queries behind a circuit breaker with an
// optional Redis result cache.
type Client struct {
	db           *sqlx.DB
	cb           *circuitbreaker.CircuitBreaker
	cache        *circuitbreaker.RedisWrapper
	cacheTTL     time.Duration
	queryTimeout time.Duration
	logger       *zap.Logger
}

// NewClient opens the warehouse connection pool. cache may be nil to
// disable result caching.
func NewClient(cfg Config, cache *circuitbreaker.RedisWrapper, logger *zap.Logger) (*Client, error) {
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
	if cfg.QueryTimeout == 0 {
		cfg.QueryTimeout = 30 * time.Second
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 5 * time.Minute
	}

	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open warehouse connection: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.IdleConnections)
	db.SetConnMaxLifetime(cfg.MaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping warehouse: %w", err)
	}

	return &Client{
		db:           db,
		cb:           circuitbreaker.New("warehouse", circuitbreaker.DefaultConfig(), logger),
		cache:        cache,
		cacheTTL:     cfg.CacheTTL,
		queryTimeout: cfg.QueryTimeout,
		logger:       logger,
	}, nil
}

// NewClientWithDB wraps an existing connection. Used by tests.
func NewClientWithDB(db *sqlx.DB, cache *circuitbreaker.RedisWrapper, cacheTTL time.Duration, logger *zap.Logger) *Client {
	if cacheTTL == 0 {
		cacheTTL = 5 * time.Minute
	}
	return &Client{
		db:           db,
		cb:           circuitbreaker.New("warehouse", circuitbreaker.DefaultConfig(), logger),
		cache:        cache,
		cacheTTL:     cacheTTL,
		queryTimeout: 30 * time.Second,
		logger:       logger,
	}
}

// Query runs a read-only query and returns rows as column-keyed maps.
// Cache hits bypass the warehouse and the circuit breaker.
func (c *Client) Query(ctx context.Context, query string, args ...interface{}) ([]Row, error) {
	key := c.cacheKey(query, args)

	if rows, ok := c.cacheGet(ctx, key); ok {
		metrics.QueryCacheHits.Inc()
		return rows, nil
	}
	metrics.QueryCacheMisses.Inc()

	ctx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()

	var rows []Row
	start := time.Now()
	err := c.cb.Execute(ctx, func() error {
		var qerr error
		rows, qerr = c.queryRows(ctx, query, args...)
		return qerr
	})
	metrics.WarehouseQueryDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("warehouse query: %w", err)
	}

	c.cacheSet(ctx, key, rows)
	return rows, nil
}

// Ping checks warehouse connectivity for health endpoints.
func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// Close closes the connection pool.
func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) queryRows(ctx context.Context, query string, args ...interface{}) ([]Row, error) {
	result, err := c.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer result.Close()

	var rows []Row
	for result.Next() {
		row := make(Row)
		if err := result.MapScan(row); err != nil {
			return nil, err
		}
		// MapScan yields []byte for text columns; normalize to string
		// so cached and uncached results look the same.
		for k, v := range row {
			if b, ok := v.([]byte); ok {
				row[k] = string(b)
			}
		}
		rows = append(rows, row)
	}
	return rows, result.Err()
}

func (c *Client) cacheKey(query string, args []interface{}) string {
	h := sha256.New()
	h.Write([]byte(query))
	for _, a := range args {
		fmt.Fprintf(h, "|%v", a)
	}
	return "whcache:" + hex.EncodeToString(h.Sum(nil))
}

func (c *Client) cacheGet(ctx context.Context, key string) ([]Row, bool) {
	if c.cache == nil || c.cache.IsOpen() {
		return nil, false
	}
	data, err := c.cache.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var rows []Row
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, false
	}
	return rows, true
}

func (c *Client) cacheSet(ctx context.Context, key string, rows []Row) {
	if c.cache == nil || c.cache.IsOpen() {
		return
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, data, c.cacheTTL).Err(); err != nil {
		c.logger.Debug("Query cache write failed", zap.Error(err))
	}
}
