package service

import (
	"context"
	"testing"
	"time"

	"ChatNest/internal/modules/chatbot/infrastructure/persistence"
	"ChatNest/internal/modules/widget/domain/conversation"
	widgetPersistence "ChatNest/internal/modules/widget/infrastructure/persistence"
	"ChatNest/pkg/xerr"
)

func TestAnalytics(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	busy, err := env.svc.Create(ctx, "acc-1", textRequest("Busy", "content"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	quiet, err := env.svc.Create(ctx, "acc-1", textRequest("Quiet", "content"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	sessions := widgetPersistence.NewChatSessionRepository(env.db)
	messages := widgetPersistence.NewChatMessageRepository(env.db)
	now := time.Now().Add(-5 * time.Minute)
	for i, token := range []string{"s1", "s2"} {
		sess, err := sessions.GetOrCreate(ctx, &conversation.ChatSession{SessionId: token, ChatbotId: busy.Id, CreatedAt: now.Add(time.Duration(i) * time.Minute)})
		if err != nil {
			t.Fatalf("session: %v", err)
		}
		for j, role := range []string{conversation.RoleUser, conversation.RoleAssistant, conversation.RoleUser, conversation.RoleAssistant} {
			content := "hours?"
			if role == conversation.RoleAssistant {
				content = "9-5"
			}
			if err := messages.SaveMessage(ctx, &conversation.ChatMessage{
				ChatSessionId: sess.Id, ChatbotId: busy.Id, Role: role, Content: content,
				CreatedAt: now.Add(time.Duration(i)*time.Minute + time.Duration(j)*time.Second),
			}); err != nil {
				t.Fatalf("message: %v", err)
			}
		}
	}
	if _, err := sessions.GetOrCreate(ctx, &conversation.ChatSession{SessionId: "s3", ChatbotId: quiet.Id}); err != nil {
		t.Fatalf("session: %v", err)
	}

	svc := NewAnalyticsService(
		persistence.NewChatbotRepository(env.db),
		widgetPersistence.NewConversationStatsRepository(env.db),
		messages,
	)

	one, err := svc.ChatbotAnalytics(ctx, "acc-1", busy.Id)
	if err != nil {
		t.Fatalf("chatbot analytics: %v", err)
	}
	if one.TotalSessions != 2 || one.TotalMessages != 8 || one.UserMessages != 4 || one.AvgMessagesPerSession != 4 {
		t.Fatalf("totals=%+v", one.MessageTotals)
	}
	var perDay int64
	for _, d := range one.MessagesPerDay {
		perDay += d.Count
	}
	if len(one.MessagesPerDay) != 30 || perDay != 8 {
		t.Fatalf("per day=%+v", one.MessagesPerDay)
	}
	if len(one.TopQuestions) != 1 || one.TopQuestions[0].Count != 4 {
		t.Fatalf("top=%+v", one.TopQuestions)
	}
	if len(one.RecentSessions) != 2 || one.RecentSessions[0].SessionId != "s2" || len(one.RecentSessions[0].Messages) != 4 {
		t.Fatalf("recent=%+v", one.RecentSessions)
	}
	if _, err := svc.ChatbotAnalytics(ctx, "acc-2", busy.Id); !xerr.Is(err, xerr.Forbidden) {
		t.Fatalf("other account: %v", err)
	}

	all, err := svc.Overview(ctx, "acc-1")
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if all.TotalChatbots != 2 || all.TotalSessions != 3 || all.AvgMessagesPerSession != 2.7 {
		t.Fatalf("overview totals=%d %+v", all.TotalChatbots, all.MessageTotals)
	}
	if len(all.ChatbotStats) != 2 || all.ChatbotStats[0].Name != "Busy" || all.ChatbotStats[1].LastActivity != nil {
		t.Fatalf("stats=%+v", all.ChatbotStats)
	}
	for _, s := range all.RecentSessions {
		if len(s.Messages) > 3 {
			t.Fatalf("overview should peek at most 3 messages, got %d", len(s.Messages))
		}
	}

	empty, err := svc.Overview(ctx, "nobody")
	if err != nil || empty.TotalChatbots != 0 || len(empty.MessagesPerDay) != 30 {
		t.Fatalf("empty overview=%+v err=%v", empty, err)
	}
}
