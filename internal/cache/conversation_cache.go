package cache

import (
	"fmt"
	"time"

	"github.com/noteduco342/OMChat-backend/internal/models"
	"github.com/vmihailenco/msgpack/v5"
)

const ConversationListTTL = 2 * time.Minute

// ConversationCache stores each user's conversation list. A nil cache or a cache
// without Redis behaves as always-miss.
type ConversationCache struct {
	redis *RedisCache
}

func NewConversationCache(redis *RedisCache) *ConversationCache {
	return &ConversationCache{redis: redis}
}

func conversationListKey(userID uint) string {
	return fmt.Sprintf("convlist:%d", userID)
}

func encodeList(list []models.ConversationSummary) ([]byte, error) {
	return msgpack.Marshal(list)
}

func decodeList(data []byte) ([]models.ConversationSummary, error) {
	var list []models.ConversationSummary
	if err := msgpack.Unmarshal(data, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (cc *ConversationCache) GetList(userID uint) ([]models.ConversationSummary, bool) {
	if cc == nil || cc.redis == nil {
		return nil, false
	}
	data, err := cc.redis.Get(conversationListKey(userID))
	if err != nil || data == nil {
		return nil, false
	}
	list, err := decodeList(data)
	if err != nil {
		return nil, false
	}
	return list, true
}

func (cc *ConversationCache) SetList(userID uint, list []models.ConversationSummary) error {
	if cc == nil || cc.redis == nil {
		return nil
	}
	data, err := encodeList(list)
	if err != nil {
		return err
	}
	return cc.redis.Set(conversationListKey(userID), data, ConversationListTTL)
}

// Invalidate drops the cached lists of every given user.
func (cc *ConversationCache) Invalidate(userIDs ...uint) error {
	if cc == nil || cc.redis == nil || len(userIDs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, conversationListKey(id))
	}
	return cc.redis.Delete(keys...)
}
