package redisclient

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/decrement_stock.lua
var decrementStockScript string

//go:embed scripts/restore_stock.lua
var restoreStockScript string

// Client mirrors per-item stock levels in Redis for fast stock reads and an
// advisory check ahead of the transactional decrement. The database stays
// authoritative.
type Client struct {
	rdb             *redis.Client
	decrementScript *redis.Script
	restoreScript   *redis.Script
}

// NewClient creates a new Redis client with Lua scripts loaded
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{
		rdb:             rdb,
		decrementScript: redis.NewScript(decrementStockScript),
		restoreScript:   redis.NewScript(restoreStockScript),
	}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func stockKey(itemID int64) string {
	return fmt.Sprintf("stock:%d", itemID)
}

// DecrementStock atomically decrements the mirrored stock level using a Lua
// script. ok is false when the mirror holds less than quantity, in which case
// remaining carries the current mirrored level; missing mirrors are reported
// as an error so callers fall through to the database.
func (c *Client) DecrementStock(ctx context.Context, itemID int64, quantity int) (remaining int, ok bool, err error) {
	result, err := c.decrementScript.Run(ctx, c.rdb, []string{stockKey(itemID)}, quantity).Result()
	if err != nil {
		return 0, false, fmt.Errorf("decrement stock script failed: %w", err)
	}

	values, isSlice := result.([]interface{})
	if !isSlice || len(values) != 2 {
		return 0, false, fmt.Errorf("unexpected script result type")
	}

	code, _ := values[0].(int64)
	value, _ := values[1].(int64)

	switch code {
	case -1:
		return 0, false, fmt.Errorf("stock not mirrored for item %d", itemID)
	case 0:
		return int(value), false, nil
	default:
		return int(value), true, nil
	}
}

// RestoreStock atomically reverses a mirrored decrement (compensation)
func (c *Client) RestoreStock(ctx context.Context, itemID int64, quantity int) error {
	_, err := c.restoreScript.Run(ctx, c.rdb, []string{stockKey(itemID)}, quantity).Result()
	if err != nil {
		return fmt.Errorf("restore stock script failed: %w", err)
	}
	return nil
}

// SetStock overwrites the mirrored stock level for an item
func (c *Client) SetStock(ctx context.Context, itemID int64, level int) error {
	return c.rdb.Set(ctx, stockKey(itemID), level, 0).Err()
}

// GetStock retrieves the mirrored stock level for an item
func (c *Client) GetStock(ctx context.Context, itemID int64) (int, error) {
	val, err := c.rdb.Get(ctx, stockKey(itemID)).Result()
	if err == redis.Nil {
		return 0, fmt.Errorf("stock not mirrored for item %d", itemID)
	}
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(val)
}

// DeleteStock drops the mirror entry for a removed item
func (c *Client) DeleteStock(ctx context.Context, itemID int64) error {
	return c.rdb.Del(ctx, stockKey(itemID)).Err()
}
