package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"ChatNest/internal/modules/chatbot/domain/entity"
	"ChatNest/internal/modules/chatbot/domain/repository"
	"ChatNest/internal/modules/widget/domain/conversation"

	"gorm.io/gorm"
)

type chatbotRepositoryImpl struct {
	db *gorm.DB
}

func NewChatbotRepository(db *gorm.DB) repository.ChatbotRepository {
	return &chatbotRepositoryImpl{db: db}
}

func (r *chatbotRepositoryImpl) CreateChatbot(ctx context.Context, bot *entity.Chatbot) error {
	now := time.Now()
	if bot.CreatedAt.IsZero() {
		bot.CreatedAt = now
	}
	if bot.UpdatedAt.IsZero() {
		bot.UpdatedAt = now
	}
	return r.db.WithContext(ctx).Create(bot).Error
}

func (r *chatbotRepositoryImpl) GetByUuid(ctx context.Context, uuid string) (*entity.Chatbot, error) {
	uuid = strings.TrimSpace(uuid)
	if uuid == "" {
		return nil, nil
	}
	return r.take(ctx, "uuid = ?", uuid)
}

func (r *chatbotRepositoryImpl) GetByID(ctx context.Context, id int64) (*entity.Chatbot, error) {
	if id <= 0 {
		return nil, nil
	}
	return r.take(ctx, "id = ?", id)
}

func (r *chatbotRepositoryImpl) take(ctx context.Context, query string, arg interface{}) (*entity.Chatbot, error) {
	var bot entity.Chatbot
	err := r.db.WithContext(ctx).Where(query, arg).Take(&bot).Error
	if err == nil {
		return &bot, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, err
}

func (r *chatbotRepositoryImpl) ListByAccount(ctx context.Context, accountUuid string) ([]*entity.Chatbot, error) {
	accountUuid = strings.TrimSpace(accountUuid)
	if accountUuid == "" {
		return []*entity.Chatbot{}, nil
	}
	var bots []*entity.Chatbot
	err := r.db.WithContext(ctx).
		Where("account_uuid = ?", accountUuid).
		Order("created_at DESC").
		Order("id DESC").
		Find(&bots).Error
	return bots, err
}

func (r *chatbotRepositoryImpl) UpdateProfile(ctx context.Context, id int64, name, systemPrompt string) error {
	return r.db.WithContext(ctx).Model(&entity.Chatbot{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"name":          strings.TrimSpace(name),
			"system_prompt": systemPrompt,
			"updated_at":    time.Now(),
		}).Error
}

func (r *chatbotRepositoryImpl) DeleteCascade(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("chatbot_id = ?", id).Delete(&conversation.ChatMessage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("chatbot_id = ?", id).Delete(&conversation.ChatSession{}).Error; err != nil {
			return err
		}
		if err := tx.Where("chatbot_id = ?", id).Delete(&entity.KnowledgeDocument{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&entity.Chatbot{}).Error
	})
}
