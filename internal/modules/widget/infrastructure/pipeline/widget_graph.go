package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	chatbotEntity "ChatNest/internal/modules/chatbot/domain/entity"
	"ChatNest/internal/modules/widget/domain/conversation"
	"ChatNest/internal/modules/widget/infrastructure/llm"
	"ChatNest/internal/modules/widget/infrastructure/prompt"
	"ChatNest/pkg/util"
	"ChatNest/pkg/xerr"
	"ChatNest/pkg/zlog"

	"go.uber.org/zap"
)

// MaxSessionTokenLength 与 chat_sessions.session_id 列宽一致
const MaxSessionTokenLength = 128

// widgetState Graph内部状态（在节点间传递）
type widgetState struct {
	Req        *WidgetRequest
	Message    string
	Token      string
	Bot        *chatbotEntity.Chatbot
	Session    *conversation.ChatSession
	Prompt     *prompt.Prompt
	Completion *llm.Completion
	Start      time.Time
	Err        error
}

// Node 1: Resolve - 校验输入并查找机器人，失败时无任何副作用
func (p *WidgetPipeline) resolveNode(ctx context.Context, req *WidgetRequest, _ ...any) (*widgetState, error) {
	st := &widgetState{Req: req, Start: time.Now()}

	msg, err := p.builder.ValidateUtterance(req.Message)
	if err != nil {
		st.Err = err
		return st, nil
	}
	st.Message = msg

	st.Token = strings.TrimSpace(req.SessionToken)
	if utf8.RuneCountInString(st.Token) > MaxSessionTokenLength {
		st.Err = xerr.NewValidation(fmt.Sprintf("session_id must not exceed %d characters", MaxSessionTokenLength))
		return st, nil
	}
	if st.Token == "" {
		st.Token = util.GenerateUUID()
	}

	bot, err := p.chatbotRepo.GetByUuid(ctx, req.ChatbotUuid)
	if err != nil {
		st.Err = err
		return st, nil
	}
	if bot == nil {
		st.Err = xerr.NewNotFound("chatbot not found")
		return st, nil
	}
	st.Bot = bot
	return st, nil
}

// Node 2: Session - 按 token 原子获取或创建会话
func (p *WidgetPipeline) sessionNode(ctx context.Context, st *widgetState, _ ...any) (*widgetState, error) {
	if st == nil || st.Err != nil {
		return st, nil
	}

	sess, err := p.sessionRepo.GetOrCreate(ctx, p.newSession(st, st.Token))
	if err != nil {
		st.Err = err
		return st, nil
	}

	// token 已被其他机器人占用时换一个新 token，保证消息与会话属于同一机器人
	if sess.ChatbotId != st.Bot.Id {
		fresh := util.GenerateUUID()
		zlog.Warn("session token bound to another chatbot, minting a new one",
			zap.String("chatbot", st.Bot.Uuid),
			zap.String("new_session_id", fresh))
		sess, err = p.sessionRepo.GetOrCreate(ctx, p.newSession(st, fresh))
		if err != nil {
			st.Err = err
			return st, nil
		}
	}
	st.Session = sess
	return st, nil
}

func (p *WidgetPipeline) newSession(st *widgetState, token string) *conversation.ChatSession {
	return &conversation.ChatSession{
		SessionId: token,
		ChatbotId: st.Bot.Id,
		VisitorIp: util.Truncate(st.Req.Meta.IP, 64),
		UserAgent: util.Truncate(st.Req.Meta.UserAgent, 512),
	}
}

// Node 3: RecordUser - 调用模型前先落库用户消息
func (p *WidgetPipeline) recordUserNode(ctx context.Context, st *widgetState, _ ...any) (*widgetState, error) {
	if st == nil || st.Err != nil {
		return st, nil
	}

	msg := &conversation.ChatMessage{
		ChatSessionId: st.Session.Id,
		ChatbotId:     st.Session.ChatbotId,
		Role:          conversation.RoleUser,
		Content:       st.Message,
	}
	if err := p.messageRepo.SaveMessage(ctx, msg); err != nil {
		st.Err = err
	}
	return st, nil
}

// Node 4: BuildPrompt - 拼接知识上下文并按模板构建提示词
func (p *WidgetPipeline) buildPromptNode(ctx context.Context, st *widgetState, _ ...any) (*widgetState, error) {
	if st == nil || st.Err != nil {
		return st, nil
	}

	knowledge, err := p.contextSrc.Assemble(ctx, st.Bot)
	if err != nil {
		st.Err = err
		return st, nil
	}
	pr, err := p.builder.Build(st.Bot.EffectiveSystemPrompt(), knowledge, st.Message, st.Req.Meta)
	if err != nil {
		st.Err = err
		return st, nil
	}
	st.Prompt = pr

	zlog.Info("widget prompt built",
		zap.String("chatbot", st.Bot.Uuid),
		zap.String("session_id", st.Session.SessionId),
		zap.Int("context_chars", utf8.RuneCountInString(knowledge)))
	return st, nil
}

// Node 5: Complete - 调用模型，失败由网关转换为兜底文案
func (p *WidgetPipeline) completeNode(ctx context.Context, st *widgetState, _ ...any) (*widgetState, error) {
	if st == nil || st.Err != nil {
		return st, nil
	}
	st.Completion = p.gateway.Complete(ctx, st.Prompt.Messages())
	return st, nil
}

// Node 6: PersistReply - 记录访客实际看到的回复（包括兜底文案）
func (p *WidgetPipeline) persistReplyNode(ctx context.Context, st *widgetState, _ ...any) (*WidgetResult, error) {
	if st == nil {
		return &WidgetResult{Err: fmt.Errorf("nil state")}, nil
	}
	if st.Err != nil {
		return &WidgetResult{Err: st.Err}, nil
	}

	// 访客断开连接后仍然要把回复写入记录
	ctx = context.WithoutCancel(ctx)
	msg := &conversation.ChatMessage{
		ChatSessionId: st.Session.Id,
		ChatbotId:     st.Session.ChatbotId,
		Role:          conversation.RoleAssistant,
		Content:       st.Completion.Reply,
	}
	if err := p.messageRepo.SaveMessage(ctx, msg); err != nil {
		zlog.Error("failed to save assistant message",
			zap.Error(err),
			zap.String("session_id", st.Session.SessionId))
		// 不阻断流程
	}

	zlog.Info("widget reply done",
		zap.String("chatbot", st.Bot.Uuid),
		zap.String("session_id", st.Session.SessionId),
		zap.String("outcome", st.Completion.Outcome.String()),
		zap.Int64("total_ms", time.Since(st.Start).Milliseconds()))

	return &WidgetResult{
		Reply:        st.Completion.Reply,
		SessionToken: st.Session.SessionId,
		Timestamp:    time.Now(),
		Outcome:      st.Completion.Outcome,
	}, nil
}
