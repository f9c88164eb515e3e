package service

import (
	"context"
	"math"
	"sort"
	"time"

	"ChatNest/internal/modules/chatbot/application/dto/respond"
	"ChatNest/internal/modules/chatbot/domain/entity"
	"ChatNest/internal/modules/chatbot/domain/repository"
	"ChatNest/internal/modules/widget/domain/conversation"
	widgetRepository "ChatNest/internal/modules/widget/domain/repository"
	"ChatNest/pkg/xerr"
	"ChatNest/pkg/zlog"

	"go.uber.org/zap"
)

const (
	analyticsDays         = 30
	chatbotRecentSessions = 20
	overviewRecentSession = 10
	overviewMessagePeek   = 3
	topQuestionLimit      = 10
)

// AnalyticsService 会话统计
type AnalyticsService interface {
	ChatbotAnalytics(ctx context.Context, accountUuid string, id int64) (*respond.ChatbotAnalyticsRespond, error)
	Overview(ctx context.Context, accountUuid string) (*respond.OverviewRespond, error)
}

type analyticsServiceImpl struct {
	chatbotRepo repository.ChatbotRepository
	statsRepo   widgetRepository.ConversationStatsRepository
	messageRepo widgetRepository.ChatMessageRepository
	now         func() time.Time
}

// NewAnalyticsService 构造函数
func NewAnalyticsService(
	chatbotRepo repository.ChatbotRepository,
	statsRepo widgetRepository.ConversationStatsRepository,
	messageRepo widgetRepository.ChatMessageRepository,
) AnalyticsService {
	return &analyticsServiceImpl{
		chatbotRepo: chatbotRepo,
		statsRepo:   statsRepo,
		messageRepo: messageRepo,
		now:         time.Now,
	}
}

func (s *analyticsServiceImpl) ChatbotAnalytics(ctx context.Context, accountUuid string, id int64) (*respond.ChatbotAnalyticsRespond, error) {
	bot, err := s.chatbotRepo.GetByID(ctx, id)
	if err != nil {
		zlog.Error("get chatbot failed", zap.Error(err), zap.Int64("chatbot_id", id))
		return nil, xerr.ErrServerError
	}
	if bot == nil {
		return nil, xerr.NewNotFound("chatbot not found")
	}
	if bot.AccountUuid != accountUuid {
		return nil, xerr.ErrForbidden
	}

	ids := []int64{bot.Id}
	totals, err := s.totals(ctx, ids)
	if err != nil {
		return nil, s.fail("chatbot totals", err)
	}
	perDay, err := s.messagesPerDay(ctx, ids)
	if err != nil {
		return nil, s.fail("chatbot messages per day", err)
	}
	questions, err := s.statsRepo.TopUserQuestions(ctx, bot.Id, topQuestionLimit)
	if err != nil {
		return nil, s.fail("chatbot top questions", err)
	}
	sessions, err := s.recentSessions(ctx, ids, chatbotRecentSessions, 0, nil)
	if err != nil {
		return nil, s.fail("chatbot recent sessions", err)
	}

	out := &respond.ChatbotAnalyticsRespond{
		Uuid:           bot.Uuid,
		Name:           bot.Name,
		MessageTotals:  *totals,
		MessagesPerDay: perDay,
		TopQuestions:   make([]respond.QuestionItem, 0, len(questions)),
		RecentSessions: sessions,
	}
	for _, q := range questions {
		out.TopQuestions = append(out.TopQuestions, respond.QuestionItem{Content: q.Content, Count: q.Total})
	}
	return out, nil
}

func (s *analyticsServiceImpl) Overview(ctx context.Context, accountUuid string) (*respond.OverviewRespond, error) {
	bots, err := s.chatbotRepo.ListByAccount(ctx, accountUuid)
	if err != nil {
		return nil, s.fail("list chatbots", err)
	}
	ids := make([]int64, 0, len(bots))
	byID := make(map[int64]*entity.Chatbot, len(bots))
	for _, b := range bots {
		ids = append(ids, b.Id)
		byID[b.Id] = b
	}

	totals, err := s.totals(ctx, ids)
	if err != nil {
		return nil, s.fail("overview totals", err)
	}
	perDay, err := s.messagesPerDay(ctx, ids)
	if err != nil {
		return nil, s.fail("overview messages per day", err)
	}
	activity, err := s.statsRepo.ActivityByChatbot(ctx, ids)
	if err != nil {
		return nil, s.fail("overview activity", err)
	}
	sessions, err := s.recentSessions(ctx, ids, overviewRecentSession, overviewMessagePeek, byID)
	if err != nil {
		return nil, s.fail("overview recent sessions", err)
	}

	stats := make([]respond.ChatbotStat, 0, len(activity))
	for _, a := range activity {
		bot := byID[a.ChatbotId]
		if bot == nil {
			continue
		}
		stat := respond.ChatbotStat{
			Id:       bot.Id,
			Uuid:     bot.Uuid,
			Name:     bot.Name,
			Sessions: a.Sessions,
			Messages: a.Messages,
		}
		if a.LastActivity != nil {
			ts := formatTime(*a.LastActivity)
			stat.LastActivity = &ts
		}
		stats = append(stats, stat)
	}
	sort.SliceStable(stats, func(i, j int) bool { return stats[i].Messages > stats[j].Messages })

	return &respond.OverviewRespond{
		TotalChatbots:  len(bots),
		MessageTotals:  *totals,
		MessagesPerDay: perDay,
		ChatbotStats:   stats,
		RecentSessions: sessions,
	}, nil
}

func (s *analyticsServiceImpl) totals(ctx context.Context, ids []int64) (*respond.MessageTotals, error) {
	sessions, err := s.statsRepo.CountSessions(ctx, ids)
	if err != nil {
		return nil, err
	}
	byRole, err := s.statsRepo.CountMessagesByRole(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := &respond.MessageTotals{
		TotalSessions:     sessions,
		UserMessages:      byRole[conversation.RoleUser],
		AssistantMessages: byRole[conversation.RoleAssistant],
	}
	for _, n := range byRole {
		out.TotalMessages += n
	}
	if sessions > 0 {
		out.AvgMessagesPerSession = math.Round(float64(out.TotalMessages)/float64(sessions)*10) / 10
	}
	return out, nil
}

// messagesPerDay 最近 30 天（含今天）按天计数，缺失的日期补 0
func (s *analyticsServiceImpl) messagesPerDay(ctx context.Context, ids []int64) ([]respond.DailyCount, error) {
	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	start := today.AddDate(0, 0, -(analyticsDays - 1))

	times, err := s.statsRepo.MessageTimesSince(ctx, ids, start)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, analyticsDays)
	for _, t := range times {
		counts[t.In(now.Location()).Format("2006-01-02")]++
	}

	out := make([]respond.DailyCount, 0, analyticsDays)
	for d := 0; d < analyticsDays; d++ {
		day := start.AddDate(0, 0, d).Format("2006-01-02")
		out = append(out, respond.DailyCount{Date: day, Count: counts[day]})
	}
	return out, nil
}

// recentSessions peek>0 时每个会话只带前 peek 条消息
func (s *analyticsServiceImpl) recentSessions(ctx context.Context, ids []int64, limit, peek int, names map[int64]*entity.Chatbot) ([]respond.SessionItem, error) {
	sessions, err := s.statsRepo.RecentSessions(ctx, ids, limit)
	if err != nil {
		return nil, err
	}
	sessionIds := make([]int64, 0, len(sessions))
	for _, sess := range sessions {
		sessionIds = append(sessionIds, sess.Id)
	}
	messages, err := s.messageRepo.ListBySessions(ctx, sessionIds)
	if err != nil {
		return nil, err
	}
	bySession := make(map[int64][]respond.SessionMessage, len(sessions))
	for _, m := range messages {
		if peek > 0 && len(bySession[m.ChatSessionId]) >= peek {
			continue
		}
		bySession[m.ChatSessionId] = append(bySession[m.ChatSessionId], respond.SessionMessage{
			Role:      m.Role,
			Content:   m.Content,
			CreatedAt: formatTime(m.CreatedAt),
		})
	}

	out := make([]respond.SessionItem, 0, len(sessions))
	for _, sess := range sessions {
		item := respond.SessionItem{
			SessionId: sess.SessionId,
			VisitorIp: sess.VisitorIp,
			UserAgent: sess.UserAgent,
			CreatedAt: formatTime(sess.CreatedAt),
			Messages:  bySession[sess.Id],
		}
		if item.Messages == nil {
			item.Messages = []respond.SessionMessage{}
		}
		if bot := names[sess.ChatbotId]; bot != nil {
			item.ChatbotName = bot.Name
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *analyticsServiceImpl) fail(op string, err error) error {
	zlog.Error("analytics query failed", zap.String("op", op), zap.Error(err))
	return xerr.ErrServerError
}
