package persistence

import (
	"context"

	"ChatNest/internal/modules/chatbot/domain/repository"

	"gorm.io/gorm"
)

type chatbotUnitOfWorkImpl struct {
	db *gorm.DB
}

func NewChatbotUnitOfWork(db *gorm.DB) repository.ChatbotUnitOfWork {
	return &chatbotUnitOfWorkImpl{db: db}
}

func (u *chatbotUnitOfWorkImpl) Transaction(ctx context.Context, fn func(chatbotRepo repository.ChatbotRepository, knowledgeRepo repository.KnowledgeRepository) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewChatbotRepository(tx), NewKnowledgeRepository(tx))
	})
}
