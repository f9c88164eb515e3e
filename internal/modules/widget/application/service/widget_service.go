package service

import (
	"context"
	"strings"
	"time"

	chatbotRepository "ChatNest/internal/modules/chatbot/domain/repository"
	"ChatNest/internal/modules/widget/application/dto/request"
	"ChatNest/internal/modules/widget/application/dto/respond"
	"ChatNest/internal/modules/widget/infrastructure/llm"
	"ChatNest/internal/modules/widget/infrastructure/pipeline"
	"ChatNest/internal/modules/widget/infrastructure/prompt"
	"ChatNest/pkg/util"
	"ChatNest/pkg/xerr"
	"ChatNest/pkg/zlog"

	"go.uber.org/zap"
)

const maxTimezoneLength = 64

// Visitor 访客的传输层信息
type Visitor struct {
	IP        string
	UserAgent string
	Timezone  string // 请求头中的时区提示，body 中的优先
}

// Pinger 数据库连通性
type Pinger interface {
	PingContext(ctx context.Context) error
}

// WidgetService 访客侧接口
type WidgetService interface {
	Send(ctx context.Context, chatbotUuid string, req request.SendMessageRequest, visitor Visitor) (*respond.SendMessageRespond, error)
	Info(ctx context.Context, chatbotUuid string) (*respond.ChatbotInfoRespond, error)
	Health(ctx context.Context) *respond.HealthRespond
}

type widgetServiceImpl struct {
	pipe        *pipeline.WidgetPipeline
	chatbotRepo chatbotRepository.ChatbotRepository
	gateway     llm.Gateway
	db          Pinger
	defaultLoc  *time.Location
	now         func() time.Time
}

// NewWidgetService defaultTimezone 用于访客未提供或提供了无效时区时
func NewWidgetService(
	pipe *pipeline.WidgetPipeline,
	chatbotRepo chatbotRepository.ChatbotRepository,
	gateway llm.Gateway,
	db Pinger,
	defaultTimezone string,
) WidgetService {
	loc, err := time.LoadLocation(strings.TrimSpace(defaultTimezone))
	if err != nil {
		zlog.Warn("invalid default timezone, using UTC", zap.String("timezone", defaultTimezone), zap.Error(err))
		loc = time.UTC
	}
	return &widgetServiceImpl{
		pipe:        pipe,
		chatbotRepo: chatbotRepo,
		gateway:     gateway,
		db:          db,
		defaultLoc:  loc,
		now:         time.Now,
	}
}

func (s *widgetServiceImpl) Send(ctx context.Context, chatbotUuid string, req request.SendMessageRequest, visitor Visitor) (*respond.SendMessageRespond, error) {
	tz := strings.TrimSpace(req.Timezone)
	if tz == "" {
		tz = strings.TrimSpace(visitor.Timezone)
	}

	res, err := s.pipe.Execute(ctx, &pipeline.WidgetRequest{
		ChatbotUuid:  chatbotUuid,
		SessionToken: req.SessionId,
		Message:      req.Message,
		Meta:         s.requestMeta(tz, visitor),
	})
	if err == nil && res != nil {
		err = res.Err
	}
	if err != nil {
		if _, ok := xerr.As(err); ok {
			return nil, err
		}
		zlog.Error("widget send failed", zap.Error(err), zap.String("chatbot", chatbotUuid))
		return nil, xerr.ErrServerError
	}

	return &respond.SendMessageRespond{
		Reply:     res.Reply,
		Timestamp: util.ISOTimestamp(res.Timestamp),
		SessionId: res.SessionToken,
	}, nil
}

// requestMeta 时区可解析时用访客本地日期
func (s *widgetServiceImpl) requestMeta(tz string, visitor Visitor) prompt.RequestMeta {
	tz = util.Truncate(tz, maxTimezoneLength)
	loc := s.defaultLoc
	if tz != "" {
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		} else {
			tz = ""
		}
	}
	if tz == "" {
		tz = loc.String()
	}
	return prompt.RequestMeta{
		IP:        visitor.IP,
		UserAgent: visitor.UserAgent,
		Timezone:  tz,
		Now:       s.now().In(loc),
	}
}

func (s *widgetServiceImpl) Info(ctx context.Context, chatbotUuid string) (*respond.ChatbotInfoRespond, error) {
	bot, err := s.chatbotRepo.GetByUuid(ctx, chatbotUuid)
	if err != nil {
		zlog.Error("widget info failed", zap.Error(err), zap.String("chatbot", chatbotUuid))
		return nil, xerr.ErrServerError
	}
	if bot == nil {
		return nil, xerr.NewNotFound("chatbot not found")
	}
	return &respond.ChatbotInfoRespond{Name: bot.Name, Uuid: bot.Uuid}, nil
}

func (s *widgetServiceImpl) Health(ctx context.Context) *respond.HealthRespond {
	out := &respond.HealthRespond{LLM: s.gateway.HealthCheck(ctx)}
	if s.db != nil {
		if err := s.db.PingContext(ctx); err != nil {
			zlog.Warn("database ping failed", zap.Error(err))
		} else {
			out.Database = true
		}
	}
	return out
}
