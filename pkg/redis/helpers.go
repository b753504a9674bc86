package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// IsNil reports whether err signals a missing key or field
func IsNil(err error) bool {
	return errors.Is(err, Nil)
}

// GetJSON gets a key and decodes JSON value
func (c *Client) GetJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := c.Get(ctx, key)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(data), dest)
}

// HSetJSON sets a hash field with JSON-encoded value
func (c *Client) HSetJSON(ctx context.Context, key, field string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.HSet(ctx, key, field, data)
}

// HGetJSON gets a hash field and decodes JSON value
func (c *Client) HGetJSON(ctx context.Context, key, field string, dest interface{}) error {
	data, err := c.HGet(ctx, key, field)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(data), dest)
}

// SetNX sets a key only if it does not exist
func (c *Client) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	return c.client.SetNX(ctx, key, value, expiration).Result()
}

// GetOrSetJSON returns the cached JSON at key, computing and caching it when
// absent. Concurrent misses race on SETNX so every caller sees the first
// stored value.
func (c *Client) GetOrSetJSON(ctx context.Context, key string, expiration time.Duration, dest interface{}, compute func() (interface{}, error)) error {
	err := c.GetJSON(ctx, key, dest)
	if err == nil {
		return nil
	}
	if !IsNil(err) {
		return err
	}

	value, err := compute()
	if err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	stored, err := c.SetNX(ctx, key, data, expiration)
	if err != nil {
		return err
	}
	if !stored {
		return c.GetJSON(ctx, key, dest)
	}
	return json.Unmarshal(data, dest)
}
