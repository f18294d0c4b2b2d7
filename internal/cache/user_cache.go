package cache

import (
	"fmt"
	"time"
)

const (
	OnlineUsersTTL = 90 * time.Second // Match pong timeout
)

// OnlineTracker counts open websocket connections per user so a user stays
// online until the last connection closes.
type OnlineTracker struct {
	redis *RedisCache
}

func NewOnlineTracker(redis *RedisCache) *OnlineTracker {
	return &OnlineTracker{redis: redis}
}

func onlineKey(userID uint) string {
	return fmt.Sprintf("online:%d", userID)
}

func (t *OnlineTracker) Connected(userID uint) error {
	if t == nil || t.redis == nil {
		return nil
	}
	_, err := t.redis.IncrWithTTL(onlineKey(userID), OnlineUsersTTL)
	return err
}

func (t *OnlineTracker) Disconnected(userID uint) error {
	if t == nil || t.redis == nil {
		return nil
	}
	n, err := t.redis.Decr(onlineKey(userID))
	if err != nil {
		return err
	}
	if n <= 0 {
		return t.redis.Delete(onlineKey(userID))
	}
	return nil
}

// Touch extends the TTL for an online user
func (t *OnlineTracker) Touch(userID uint) error {
	if t == nil || t.redis == nil {
		return nil
	}
	return t.redis.Expire(onlineKey(userID), OnlineUsersTTL)
}

func (t *OnlineTracker) IsOnline(userID uint) bool {
	if t == nil || t.redis == nil {
		return false
	}
	return t.redis.Exists(onlineKey(userID))
}
