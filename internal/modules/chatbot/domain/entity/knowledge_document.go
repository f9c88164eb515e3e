package entity

import "time"

const (
	KnowledgeTypeText = "text"
	KnowledgeTypePDF  = "pdf"
)

// KnowledgeDocument 知识文档；Content 始终为规范化后的纯文本
type KnowledgeDocument struct {
	Id        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	ChatbotId int64     `gorm:"column:chatbot_id;index;not null"`
	Type      string    `gorm:"column:type;type:varchar(16);not null"`
	FilePath  string    `gorm:"column:file_path;type:varchar(255)"` // 仅 pdf
	Content   string    `gorm:"column:content;type:longtext;not null"`
	CreatedAt time.Time `gorm:"column:created_at;type:datetime;not null;index"`
}

func (KnowledgeDocument) TableName() string {
	return "knowledge_documents"
}
