// Package locks provides short-lived per-table advisory locks backed by
// Redis. The lock narrows the race window between planning and commit; the
// store transaction remains the source of truth.
package locks

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

type TableLocks struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewTableLocks(client *redis.Client, ttl time.Duration) *TableLocks {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &TableLocks{Client: client, TTL: ttl}
}

func key(tableID string) string {
	return "table_lock:" + tableID
}

// LockTable takes the advisory lock for a single table. The token identifies
// the owning operation so only the owner can release it.
func (l *TableLocks) LockTable(ctx context.Context, tableID, token string) (bool, error) {
	return l.Client.SetNX(ctx, key(tableID), token, l.TTL).Result()
}

// UnlockTable releases a table lock if the token still owns it.
func (l *TableLocks) UnlockTable(ctx context.Context, tableID, token string) error {
	k := key(tableID)
	val, err := l.Client.Get(ctx, k).Result()
	if err == redis.Nil {
		return nil // expired or already released
	}
	if err != nil {
		return err
	}
	if val == token {
		_, err := l.Client.Del(ctx, k).Result()
		return err
	}
	return nil
}

// LockTables locks every table or none: a failed acquisition rolls back the
// locks taken so far.
func (l *TableLocks) LockTables(ctx context.Context, tableIDs []string, token string) (bool, error) {
	locked := []string{}
	for _, tableID := range tableIDs {
		ok, err := l.LockTable(ctx, tableID, token)
		if err != nil {
			for _, t := range locked {
				_ = l.UnlockTable(ctx, t, token)
			}
			return false, err
		}
		if !ok {
			for _, t := range locked {
				_ = l.UnlockTable(ctx, t, token)
			}
			return false, nil
		}
		locked = append(locked, tableID)
	}
	return true, nil
}

// UnlockTables releases all locks, returning the first error seen.
func (l *TableLocks) UnlockTables(ctx context.Context, tableIDs []string, token string) error {
	var firstErr error
	for _, tableID := range tableIDs {
		if err := l.UnlockTable(ctx, tableID, token); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
