package prompt

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	chatbotEntity "ChatNest/internal/modules/chatbot/domain/entity"
	"ChatNest/pkg/xerr"

	"github.com/cloudwego/eino/schema"
)

// DefaultMaxMessageLength 单条访客消息的最大字符数
const DefaultMaxMessageLength = 1000

// DefaultInstructions 收尾行为指令
const DefaultInstructions = "You are part of this company and should encourage the user to buy the company's products or services. " +
	"Never say that you were given knowledge or context. " +
	"Reply in plain text without any markdown formatting. " +
	"Keep a formal but not stiff tone."

// RequestMeta 本次请求的情境信息，由调用方显式传入
type RequestMeta struct {
	IP        string
	UserAgent string
	Timezone  string
	Now       time.Time
}

// Prompt 发给模型的一对消息
type Prompt struct {
	System string
	User   string
}

// Messages 转为 eino 消息
func (p *Prompt) Messages() []*schema.Message {
	return []*schema.Message{
		schema.SystemMessage(p.System),
		schema.UserMessage(p.User),
	}
}

// Builder 按固定模板拼装提示词
type Builder struct {
	instructions string
	maxLength    int
}

// NewBuilder instructions/maxLength 为零值时使用默认值
func NewBuilder(instructions string, maxLength int) *Builder {
	if strings.TrimSpace(instructions) == "" {
		instructions = DefaultInstructions
	}
	if maxLength <= 0 {
		maxLength = DefaultMaxMessageLength
	}
	return &Builder{instructions: instructions, maxLength: maxLength}
}

// ValidateUtterance 去空白后非空且不超过上限，原样返回消息
func (b *Builder) ValidateUtterance(message string) (string, error) {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return "", xerr.NewValidation("message is required")
	}
	if utf8.RuneCountInString(trimmed) > b.maxLength {
		return "", xerr.NewValidation(fmt.Sprintf("message must not exceed %d characters", b.maxLength))
	}
	return message, nil
}

// Build 顺序：系统提示词、知识上下文、日期、时区、IP、UA、收尾指令
func (b *Builder) Build(systemPrompt, context, message string, meta RequestMeta) (*Prompt, error) {
	user, err := b.ValidateUtterance(message)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(systemPrompt) == "" {
		systemPrompt = chatbotEntity.DefaultSystemPrompt
	}
	now := meta.Now
	if now.IsZero() {
		now = time.Now()
	}
	tz := strings.TrimSpace(meta.Timezone)
	if tz == "" {
		tz = now.Location().String()
	}

	var sb strings.Builder
	sb.WriteString(systemPrompt)
	sb.WriteString("\n\nKnowledge/Context:\n")
	sb.WriteString(context)
	sb.WriteString("\n\nToday is ")
	sb.WriteString(now.Format("2006-01-02"))
	sb.WriteString("\n\nUser's timezone is ")
	sb.WriteString(tz)
	sb.WriteString("\n\nUser's IP address is ")
	sb.WriteString(meta.IP)
	sb.WriteString("\n\nUser's browser is ")
	sb.WriteString(meta.UserAgent)
	sb.WriteString("\n\nInstructions: ")
	sb.WriteString(b.instructions)

	return &Prompt{System: sb.String(), User: user}, nil
}
