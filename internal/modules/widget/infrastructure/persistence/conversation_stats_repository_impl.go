package persistence

import (
	"context"
	"errors"
	"time"

	"ChatNest/internal/modules/widget/domain/conversation"
	"ChatNest/internal/modules/widget/domain/repository"

	"gorm.io/gorm"
)

type conversationStatsRepositoryImpl struct {
	db *gorm.DB
}

func NewConversationStatsRepository(db *gorm.DB) repository.ConversationStatsRepository {
	return &conversationStatsRepositoryImpl{db: db}
}

func (r *conversationStatsRepositoryImpl) CountSessions(ctx context.Context, chatbotIds []int64) (int64, error) {
	if len(chatbotIds) == 0 {
		return 0, nil
	}
	var total int64
	err := r.db.WithContext(ctx).Model(&conversation.ChatSession{}).
		Where("chatbot_id IN ?", chatbotIds).
		Count(&total).Error
	return total, err
}

func (r *conversationStatsRepositoryImpl) CountMessagesByRole(ctx context.Context, chatbotIds []int64) (map[string]int64, error) {
	out := map[string]int64{}
	if len(chatbotIds) == 0 {
		return out, nil
	}

	var rows []struct {
		Role  string
		Total int64
	}
	err := r.db.WithContext(ctx).Model(&conversation.ChatMessage{}).
		Select("role, COUNT(*) AS total").
		Where("chatbot_id IN ?", chatbotIds).
		Group("role").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.Role] = row.Total
	}
	return out, nil
}

func (r *conversationStatsRepositoryImpl) MessageTimesSince(ctx context.Context, chatbotIds []int64, since time.Time) ([]time.Time, error) {
	if len(chatbotIds) == 0 {
		return []time.Time{}, nil
	}
	var times []time.Time
	err := r.db.WithContext(ctx).Model(&conversation.ChatMessage{}).
		Where("chatbot_id IN ? AND created_at >= ?", chatbotIds, since).
		Pluck("created_at", &times).Error
	return times, err
}

func (r *conversationStatsRepositoryImpl) TopUserQuestions(ctx context.Context, chatbotId int64, limit int) ([]conversation.QuestionCount, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []conversation.QuestionCount
	err := r.db.WithContext(ctx).Model(&conversation.ChatMessage{}).
		Select("content, COUNT(*) AS total").
		Where("chatbot_id = ? AND role = ?", chatbotId, conversation.RoleUser).
		Group("content").
		Order("total DESC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

func (r *conversationStatsRepositoryImpl) RecentSessions(ctx context.Context, chatbotIds []int64, limit int) ([]*conversation.ChatSession, error) {
	if len(chatbotIds) == 0 {
		return []*conversation.ChatSession{}, nil
	}
	if limit <= 0 {
		limit = 20
	}
	var sessions []*conversation.ChatSession
	err := r.db.WithContext(ctx).
		Where("chatbot_id IN ?", chatbotIds).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&sessions).Error
	return sessions, err
}

func (r *conversationStatsRepositoryImpl) ActivityByChatbot(ctx context.Context, chatbotIds []int64) ([]conversation.ChatbotActivity, error) {
	if len(chatbotIds) == 0 {
		return []conversation.ChatbotActivity{}, nil
	}

	type countRow struct {
		ChatbotId int64
		Total     int64
	}
	var sessionRows, messageRows []countRow
	db := r.db.WithContext(ctx)
	if err := db.Model(&conversation.ChatSession{}).
		Select("chatbot_id, COUNT(*) AS total").
		Where("chatbot_id IN ?", chatbotIds).
		Group("chatbot_id").
		Scan(&sessionRows).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&conversation.ChatMessage{}).
		Select("chatbot_id, COUNT(*) AS total").
		Where("chatbot_id IN ?", chatbotIds).
		Group("chatbot_id").
		Scan(&messageRows).Error; err != nil {
		return nil, err
	}

	sessions := make(map[int64]int64, len(sessionRows))
	for _, row := range sessionRows {
		sessions[row.ChatbotId] = row.Total
	}
	messages := make(map[int64]int64, len(messageRows))
	for _, row := range messageRows {
		messages[row.ChatbotId] = row.Total
	}

	out := make([]conversation.ChatbotActivity, 0, len(chatbotIds))
	for _, id := range chatbotIds {
		act := conversation.ChatbotActivity{
			ChatbotId: id,
			Sessions:  sessions[id],
			Messages:  messages[id],
		}
		if act.Messages > 0 {
			var last conversation.ChatMessage
			err := db.Where("chatbot_id = ?", id).
				Order("created_at DESC").
				Order("id DESC").
				Take(&last).Error
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
			if err == nil {
				t := last.CreatedAt
				act.LastActivity = &t
			}
		}
		out = append(out, act)
	}
	return out, nil
}
