package repository

import (
	"context"

	"ChatNest/internal/modules/chatbot/domain/entity"
)

type KnowledgeRepository interface {
	CreateDocument(ctx context.Context, doc *entity.KnowledgeDocument) error
	GetByID(ctx context.Context, id int64) (*entity.KnowledgeDocument, error)
	// ListByChatbot 最新创建的在前
	ListByChatbot(ctx context.Context, chatbotId int64) ([]*entity.KnowledgeDocument, error)
	ListByChatbots(ctx context.Context, chatbotIds []int64) ([]*entity.KnowledgeDocument, error)
	DeleteDocument(ctx context.Context, id int64) error
}
