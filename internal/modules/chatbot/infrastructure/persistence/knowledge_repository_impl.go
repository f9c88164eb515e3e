package persistence

import (
	"context"
	"errors"
	"time"

	"ChatNest/internal/modules/chatbot/domain/entity"
	"ChatNest/internal/modules/chatbot/domain/repository"

	"gorm.io/gorm"
)

type knowledgeRepositoryImpl struct {
	db *gorm.DB
}

func NewKnowledgeRepository(db *gorm.DB) repository.KnowledgeRepository {
	return &knowledgeRepositoryImpl{db: db}
}

func (r *knowledgeRepositoryImpl) CreateDocument(ctx context.Context, doc *entity.KnowledgeDocument) error {
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}
	return r.db.WithContext(ctx).Create(doc).Error
}

func (r *knowledgeRepositoryImpl) GetByID(ctx context.Context, id int64) (*entity.KnowledgeDocument, error) {
	var doc entity.KnowledgeDocument
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&doc).Error
	if err == nil {
		return &doc, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, err
}

func (r *knowledgeRepositoryImpl) ListByChatbot(ctx context.Context, chatbotId int64) ([]*entity.KnowledgeDocument, error) {
	return r.ListByChatbots(ctx, []int64{chatbotId})
}

func (r *knowledgeRepositoryImpl) ListByChatbots(ctx context.Context, chatbotIds []int64) ([]*entity.KnowledgeDocument, error) {
	if len(chatbotIds) == 0 {
		return []*entity.KnowledgeDocument{}, nil
	}
	var docs []*entity.KnowledgeDocument
	err := r.db.WithContext(ctx).
		Where("chatbot_id IN ?", chatbotIds).
		Order("created_at DESC").
		Order("id DESC").
		Find(&docs).Error
	return docs, err
}

func (r *knowledgeRepositoryImpl) DeleteDocument(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.KnowledgeDocument{}).Error
}
