package pipeline

import (
	"context"
	"fmt"
	"time"

	chatbotEntity "ChatNest/internal/modules/chatbot/domain/entity"
	chatbotRepository "ChatNest/internal/modules/chatbot/domain/repository"
	"ChatNest/internal/modules/widget/domain/repository"
	"ChatNest/internal/modules/widget/infrastructure/llm"
	"ChatNest/internal/modules/widget/infrastructure/prompt"

	"github.com/cloudwego/eino/compose"
)

// WidgetRequest 访客发来的一条消息
type WidgetRequest struct {
	ChatbotUuid  string             // 机器人公开ID
	SessionToken string             // 会话 token（可空，为空时生成）
	Message      string             // 访客消息
	Meta         prompt.RequestMeta // IP/UA/时区/时间
}

// WidgetResult Pipeline 输出
type WidgetResult struct {
	Reply        string
	SessionToken string
	Timestamp    time.Time
	Outcome      llm.Outcome
	Err          error // 校验/查找/存储失败，需要上抛
}

// ContextSource 知识上下文来源
type ContextSource interface {
	Assemble(ctx context.Context, bot *chatbotEntity.Chatbot) (string, error)
}

// WidgetPipeline 访客消息处理（基于Eino Graph）：
// Resolve -> Session -> RecordUser -> BuildPrompt -> Complete -> PersistReply
type WidgetPipeline struct {
	chatbotRepo chatbotRepository.ChatbotRepository
	sessionRepo repository.ChatSessionRepository
	messageRepo repository.ChatMessageRepository
	contextSrc  ContextSource
	builder     *prompt.Builder
	gateway     llm.Gateway
	r           compose.Runnable[*WidgetRequest, *WidgetResult]
}

// NewWidgetPipeline 创建 Widget Pipeline
func NewWidgetPipeline(
	chatbotRepo chatbotRepository.ChatbotRepository,
	sessionRepo repository.ChatSessionRepository,
	messageRepo repository.ChatMessageRepository,
	contextSrc ContextSource,
	builder *prompt.Builder,
	gateway llm.Gateway,
) (*WidgetPipeline, error) {
	if chatbotRepo == nil || sessionRepo == nil || messageRepo == nil || contextSrc == nil || builder == nil || gateway == nil {
		return nil, fmt.Errorf("required dependencies are nil")
	}

	p := &WidgetPipeline{
		chatbotRepo: chatbotRepo,
		sessionRepo: sessionRepo,
		messageRepo: messageRepo,
		contextSrc:  contextSrc,
		builder:     builder,
		gateway:     gateway,
	}

	r, err := p.buildGraph(context.Background())
	if err != nil {
		return nil, err
	}
	p.r = r
	return p, nil
}

// Execute 执行一次访客消息处理
func (p *WidgetPipeline) Execute(ctx context.Context, req *WidgetRequest) (*WidgetResult, error) {
	if req == nil {
		return nil, fmt.Errorf("request is nil")
	}
	if p.r == nil {
		return nil, fmt.Errorf("pipeline runnable is nil")
	}
	return p.r.Invoke(ctx, req)
}

// buildGraph 构建Eino Graph（6个节点，线性）
func (p *WidgetPipeline) buildGraph(ctx context.Context) (compose.Runnable[*WidgetRequest, *WidgetResult], error) {
	const (
		Resolve      = "Resolve"
		Session      = "Session"
		RecordUser   = "RecordUser"
		BuildPrompt  = "BuildPrompt"
		Complete     = "Complete"
		PersistReply = "PersistReply"
	)

	g := compose.NewGraph[*WidgetRequest, *WidgetResult]()

	_ = g.AddLambdaNode(Resolve, compose.InvokableLambdaWithOption(p.resolveNode), compose.WithNodeName(Resolve))
	_ = g.AddLambdaNode(Session, compose.InvokableLambdaWithOption(p.sessionNode), compose.WithNodeName(Session))
	_ = g.AddLambdaNode(RecordUser, compose.InvokableLambdaWithOption(p.recordUserNode), compose.WithNodeName(RecordUser))
	_ = g.AddLambdaNode(BuildPrompt, compose.InvokableLambdaWithOption(p.buildPromptNode), compose.WithNodeName(BuildPrompt))
	_ = g.AddLambdaNode(Complete, compose.InvokableLambdaWithOption(p.completeNode), compose.WithNodeName(Complete))
	_ = g.AddLambdaNode(PersistReply, compose.InvokableLambdaWithOption(p.persistReplyNode), compose.WithNodeName(PersistReply))

	_ = g.AddEdge(compose.START, Resolve)
	_ = g.AddEdge(Resolve, Session)
	_ = g.AddEdge(Session, RecordUser)
	_ = g.AddEdge(RecordUser, BuildPrompt)
	_ = g.AddEdge(BuildPrompt, Complete)
	_ = g.AddEdge(Complete, PersistReply)
	_ = g.AddEdge(PersistReply, compose.END)

	return g.Compile(ctx, compose.WithGraphName("WidgetPipeline"), compose.WithNodeTriggerMode(compose.AllPredecessor))
}
