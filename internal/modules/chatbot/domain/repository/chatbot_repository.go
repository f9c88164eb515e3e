package repository

import (
	"context"

	"ChatNest/internal/modules/chatbot/domain/entity"
)

// ChatbotRepository 聊天机器人存储；查询不存在时返回 nil, nil
type ChatbotRepository interface {
	CreateChatbot(ctx context.Context, bot *entity.Chatbot) error
	GetByUuid(ctx context.Context, uuid string) (*entity.Chatbot, error)
	GetByID(ctx context.Context, id int64) (*entity.Chatbot, error)
	ListByAccount(ctx context.Context, accountUuid string) ([]*entity.Chatbot, error)
	// UpdateProfile 只更新名称与提示词，公开ID不可变
	UpdateProfile(ctx context.Context, id int64, name, systemPrompt string) error
	// DeleteCascade 连同知识文档、会话、消息一起删除
	DeleteCascade(ctx context.Context, id int64) error
}
