package entity

import (
	"fmt"
	"strings"
	"time"

	"ChatNest/pkg/util"

	"gorm.io/gorm"
)

// DefaultSystemPrompt 未设置系统提示词时使用的默认人设
const DefaultSystemPrompt = "You are a professional chatbot built to help answer user questions based on the information that has been provided."

// Chatbot 账户名下的聊天机器人
type Chatbot struct {
	Id           int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Uuid         string    `gorm:"column:uuid;type:char(36);uniqueIndex;not null"` // 对外公开ID，创建后不可变
	AccountUuid  string    `gorm:"column:account_uuid;type:char(36);index;not null"`
	Name         string    `gorm:"column:name;type:varchar(255);not null"`
	SystemPrompt string    `gorm:"column:system_prompt;type:text"`
	CreatedAt    time.Time `gorm:"column:created_at;type:datetime;not null"`
	UpdatedAt    time.Time `gorm:"column:updated_at;type:datetime;not null"`
}

func (Chatbot) TableName() string {
	return "chatbots"
}

// BeforeCreate 生成公开ID并补全默认提示词
func (c *Chatbot) BeforeCreate(tx *gorm.DB) error {
	if strings.TrimSpace(c.Uuid) == "" {
		c.Uuid = util.GenerateUUID()
	}
	if strings.TrimSpace(c.SystemPrompt) == "" {
		c.SystemPrompt = DefaultSystemPrompt
	}
	return nil
}

// EffectiveSystemPrompt 提示词为空时回退到默认人设
func (c *Chatbot) EffectiveSystemPrompt() string {
	if strings.TrimSpace(c.SystemPrompt) == "" {
		return DefaultSystemPrompt
	}
	return c.SystemPrompt
}

// WidgetURL 访客聊天页地址
func (c *Chatbot) WidgetURL(baseURL string) string {
	return fmt.Sprintf("%s/widget/%s", strings.TrimRight(baseURL, "/"), c.Uuid)
}

// EmbedCode 站点嵌入用 iframe
func (c *Chatbot) EmbedCode(baseURL string) string {
	return fmt.Sprintf(`<iframe src="%s" width="400" height="600" frameborder="0"></iframe>`, c.WidgetURL(baseURL))
}
