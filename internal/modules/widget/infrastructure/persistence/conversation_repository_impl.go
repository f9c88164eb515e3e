package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"ChatNest/internal/modules/widget/domain/conversation"
	"ChatNest/internal/modules/widget/domain/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var errEmptySessionID = errors.New("session id is required")

type chatSessionRepositoryImpl struct {
	db *gorm.DB
}

func NewChatSessionRepository(db *gorm.DB) repository.ChatSessionRepository {
	return &chatSessionRepositoryImpl{db: db}
}

func (r *chatSessionRepositoryImpl) GetOrCreate(ctx context.Context, session *conversation.ChatSession) (*conversation.ChatSession, error) {
	session.SessionId = strings.TrimSpace(session.SessionId)
	if session.SessionId == "" {
		return nil, errEmptySessionID
	}
	now := time.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	if session.UpdatedAt.IsZero() {
		session.UpdatedAt = now
	}

	// 唯一索引兜底：已存在则不插入
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}},
			DoNothing: true,
		}).
		Create(session).Error
	if err != nil {
		return nil, err
	}

	// 无论是否插入成功都回读，保证拿到的是落库的那一行
	var stored conversation.ChatSession
	if err := r.db.WithContext(ctx).Where("session_id = ?", session.SessionId).Take(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *chatSessionRepositoryImpl) GetBySessionID(ctx context.Context, sessionId string) (*conversation.ChatSession, error) {
	sessionId = strings.TrimSpace(sessionId)
	if sessionId == "" {
		return nil, nil
	}

	var session conversation.ChatSession
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionId).Take(&session).Error
	if err == nil {
		return &session, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, err
}

type chatMessageRepositoryImpl struct {
	db *gorm.DB
}

func NewChatMessageRepository(db *gorm.DB) repository.ChatMessageRepository {
	return &chatMessageRepositoryImpl{db: db}
}

func (r *chatMessageRepositoryImpl) SaveMessage(ctx context.Context, message *conversation.ChatMessage) error {
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *chatMessageRepositoryImpl) ListBySessions(ctx context.Context, chatSessionIds []int64) ([]*conversation.ChatMessage, error) {
	if len(chatSessionIds) == 0 {
		return []*conversation.ChatMessage{}, nil
	}

	var messages []*conversation.ChatMessage
	err := r.db.WithContext(ctx).
		Where("chat_session_id IN ?", chatSessionIds).
		Order("created_at ASC").
		Order("id ASC").
		Find(&messages).Error
	return messages, err
}
