package cache

import (
	"context"
	"encoding/json"
	"time"

	"ChatNest/internal/modules/chatbot/domain/entity"
	"ChatNest/internal/modules/chatbot/domain/repository"
	"ChatNest/pkg/redis"
	"ChatNest/pkg/zlog"

	"go.uber.org/zap"
)

const keyPrefix = "chatnest:chatbot:uuid:"

// cachedChatbotRepository 在 GetByUuid 前加一层 Redis 缓存；Redis 未连接时直接透传
type cachedChatbotRepository struct {
	repository.ChatbotRepository
	ttl       time.Duration
	connected func() bool
	evict     func(ctx context.Context, uuid string)
}

// NewCachedChatbotRepository 包装底层仓储，写操作会失效对应缓存
func NewCachedChatbotRepository(inner repository.ChatbotRepository, ttl time.Duration) repository.ChatbotRepository {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &cachedChatbotRepository{
		ChatbotRepository: inner,
		ttl:               ttl,
		connected:         redis.IsConnected,
		evict:             evictRedis,
	}
}

func cacheKey(uuid string) string {
	return keyPrefix + uuid
}

func (r *cachedChatbotRepository) GetByUuid(ctx context.Context, uuid string) (*entity.Chatbot, error) {
	if !r.connected() {
		return r.ChatbotRepository.GetByUuid(ctx, uuid)
	}

	if raw, err := redis.Get(ctx, cacheKey(uuid)); err == nil {
		var bot entity.Chatbot
		if jsonErr := json.Unmarshal([]byte(raw), &bot); jsonErr == nil {
			return &bot, nil
		}
	} else if !redis.IsNil(err) {
		zlog.Warn("chatbot cache get failed", zap.String("uuid", uuid), zap.Error(err))
	}

	bot, err := r.ChatbotRepository.GetByUuid(ctx, uuid)
	if err != nil || bot == nil {
		return bot, err
	}
	if raw, err := json.Marshal(bot); err == nil {
		if err := redis.Set(ctx, cacheKey(uuid), raw, r.ttl); err != nil {
			zlog.Warn("chatbot cache set failed", zap.String("uuid", uuid), zap.Error(err))
		}
	}
	return bot, nil
}

func (r *cachedChatbotRepository) UpdateProfile(ctx context.Context, id int64, name, systemPrompt string) error {
	if err := r.ChatbotRepository.UpdateProfile(ctx, id, name, systemPrompt); err != nil {
		return err
	}
	if uuid := r.uuidOf(ctx, id); uuid != "" {
		r.evict(ctx, uuid)
	}
	return nil
}

// DeleteCascade 先删行再删缓存，避免并发的 GetByUuid 把已删除的机器人写回缓存
func (r *cachedChatbotRepository) DeleteCascade(ctx context.Context, id int64) error {
	uuid := r.uuidOf(ctx, id)
	if err := r.ChatbotRepository.DeleteCascade(ctx, id); err != nil {
		return err
	}
	if uuid != "" {
		r.evict(ctx, uuid)
	}
	return nil
}

func (r *cachedChatbotRepository) uuidOf(ctx context.Context, id int64) string {
	if !r.connected() {
		return ""
	}
	bot, err := r.ChatbotRepository.GetByID(ctx, id)
	if err != nil || bot == nil {
		return ""
	}
	return bot.Uuid
}

func evictRedis(ctx context.Context, uuid string) {
	if _, err := redis.Del(ctx, cacheKey(uuid)); err != nil {
		zlog.Warn("chatbot cache invalidate failed", zap.String("uuid", uuid), zap.Error(err))
	}
}
