package knowledge

import (
	"context"
	"fmt"
	"testing"
	"time"

	"ChatNest/internal/config"
	"ChatNest/internal/initial"
	chatbotEntity "ChatNest/internal/modules/chatbot/domain/entity"
	chatbotPersistence "ChatNest/internal/modules/chatbot/infrastructure/persistence"

	"gorm.io/gorm"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := initial.NewGormDB(config.DatabaseConfig{
		Driver:     "sqlite",
		SqlitePath: fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := initial.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestAssembleNoDocuments(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	bots := chatbotPersistence.NewChatbotRepository(db)
	bot := &chatbotEntity.Chatbot{AccountUuid: "acc", Name: "Empty"}
	if err := bots.CreateChatbot(ctx, bot); err != nil {
		t.Fatalf("create chatbot: %v", err)
	}

	got, err := NewContextAssembler(chatbotPersistence.NewKnowledgeRepository(db)).Assemble(ctx, bot)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty context, got %q", got)
	}
}

func TestAssembleMostRecentFirst(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	bots := chatbotPersistence.NewChatbotRepository(db)
	docs := chatbotPersistence.NewKnowledgeRepository(db)

	bot := &chatbotEntity.Chatbot{AccountUuid: "acc", Name: "Store"}
	other := &chatbotEntity.Chatbot{AccountUuid: "acc", Name: "Other"}
	for _, b := range []*chatbotEntity.Chatbot{bot, other} {
		if err := bots.CreateChatbot(ctx, b); err != nil {
			t.Fatalf("create chatbot: %v", err)
		}
	}

	base := time.Now().Add(-time.Hour)
	contents := []string{"oldest", "middle", "newest"}
	for i, c := range contents {
		doc := &chatbotEntity.KnowledgeDocument{
			ChatbotId: bot.Id,
			Type:      chatbotEntity.KnowledgeTypeText,
			Content:   c,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := docs.CreateDocument(ctx, doc); err != nil {
			t.Fatalf("create doc: %v", err)
		}
	}
	if err := docs.CreateDocument(ctx, &chatbotEntity.KnowledgeDocument{
		ChatbotId: other.Id, Type: chatbotEntity.KnowledgeTypeText, Content: "not mine",
	}); err != nil {
		t.Fatalf("create doc: %v", err)
	}

	got, err := NewContextAssembler(docs).Assemble(ctx, bot)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if want := "newest\n\nmiddle\n\noldest"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
