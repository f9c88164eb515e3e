package conversation

import (
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatSession 访客会话，按 session token 全局唯一
type ChatSession struct {
	Id        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	SessionId string    `gorm:"column:session_id;type:varchar(128);uniqueIndex;not null"` // 会话 token（对外使用）
	ChatbotId int64     `gorm:"column:chatbot_id;index;not null"`
	VisitorIp string    `gorm:"column:visitor_ip;type:varchar(64)"`  // 创建时的访客 IP
	UserAgent string    `gorm:"column:user_agent;type:varchar(512)"` // 创建时的 UA
	CreatedAt time.Time `gorm:"column:created_at;type:datetime;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:datetime;not null"`
}

func (ChatSession) TableName() string {
	return "chat_sessions"
}

// ChatMessage 会话消息，写入后不可修改
type ChatMessage struct {
	Id            int64     `gorm:"column:id;primaryKey;autoIncrement"`
	ChatSessionId int64     `gorm:"column:chat_session_id;index:idx_session_time;not null"`
	ChatbotId     int64     `gorm:"column:chatbot_id;index;not null"` // 冗余，便于统计
	Role          string    `gorm:"column:role;type:varchar(16);not null"`
	Content       string    `gorm:"column:content;type:text;not null"`
	CreatedAt     time.Time `gorm:"column:created_at;type:datetime;not null;index:idx_session_time"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}

// QuestionCount 高频用户问题
type QuestionCount struct {
	Content string
	Total   int64
}

// ChatbotActivity 单个机器人的会话/消息规模
type ChatbotActivity struct {
	ChatbotId    int64
	Sessions     int64
	Messages     int64
	LastActivity *time.Time
}
