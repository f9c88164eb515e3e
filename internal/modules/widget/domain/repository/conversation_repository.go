package repository

import (
	"context"
	"time"

	"ChatNest/internal/modules/widget/domain/conversation"
)

// ChatSessionRepository 访客会话存储
type ChatSessionRepository interface {
	// GetOrCreate 按 SessionId 原子地获取或创建，并发同 token 只会落一行
	GetOrCreate(ctx context.Context, session *conversation.ChatSession) (*conversation.ChatSession, error)
	GetBySessionID(ctx context.Context, sessionId string) (*conversation.ChatSession, error)
}

// ChatMessageRepository 会话消息存储（只追加）
type ChatMessageRepository interface {
	SaveMessage(ctx context.Context, message *conversation.ChatMessage) error
	// ListBySessions 按创建时间升序
	ListBySessions(ctx context.Context, chatSessionIds []int64) ([]*conversation.ChatMessage, error)
}

// ConversationStatsRepository 统计查询
type ConversationStatsRepository interface {
	CountSessions(ctx context.Context, chatbotIds []int64) (int64, error)
	CountMessagesByRole(ctx context.Context, chatbotIds []int64) (map[string]int64, error)
	MessageTimesSince(ctx context.Context, chatbotIds []int64, since time.Time) ([]time.Time, error)
	TopUserQuestions(ctx context.Context, chatbotId int64, limit int) ([]conversation.QuestionCount, error)
	RecentSessions(ctx context.Context, chatbotIds []int64, limit int) ([]*conversation.ChatSession, error)
	ActivityByChatbot(ctx context.Context, chatbotIds []int64) ([]conversation.ChatbotActivity, error)
}
