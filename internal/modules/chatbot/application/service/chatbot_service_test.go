package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ChatNest/internal/config"
	"ChatNest/internal/initial"
	"ChatNest/internal/modules/chatbot/application/dto/request"
	"ChatNest/internal/modules/chatbot/domain/entity"
	"ChatNest/internal/modules/chatbot/infrastructure/extraction"
	"ChatNest/internal/modules/chatbot/infrastructure/persistence"
	"ChatNest/internal/modules/chatbot/infrastructure/storage"
	"ChatNest/internal/modules/widget/domain/conversation"
	"ChatNest/pkg/xerr"

	"gorm.io/gorm"
)

type testEnv struct {
	db   *gorm.DB
	root string
	svc  ChatbotService
}

func newTestEnv(t *testing.T, parse extraction.ParseFunc) *testEnv {
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
	if parse == nil {
		parse = func([]byte) (string, error) { return "  Opening   hours:\n9-5  ", nil }
	}
	root := t.TempDir()
	svc := NewChatbotService(
		persistence.NewChatbotRepository(db),
		persistence.NewKnowledgeRepository(db),
		persistence.NewChatbotUnitOfWork(db),
		extraction.NewExtractorWithParser(parse),
		storage.NewLocalStorage(root),
		Options{PublicBaseURL: "https://chat.example.com", MaxPdfBytes: 1024},
	)
	return &testEnv{db: db, root: root, svc: svc}
}

func (e *testEnv) count(t *testing.T, model interface{}) int64 {
	t.Helper()
	var n int64
	if err := e.db.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func textRequest(name, content string) request.CreateChatbotRequest {
	return request.CreateChatbotRequest{
		Name: name,
		KnowledgeInput: request.KnowledgeInput{
			KnowledgeType: entity.KnowledgeTypeText,
			Content:       content,
		},
	}
}

func TestCreateTextChatbot(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	item, err := env.svc.Create(ctx, "acc-1", textRequest("  Store  ", "Our store\n\n is open   9-5"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if item.Name != "Store" || item.Uuid == "" || item.SystemPrompt != entity.DefaultSystemPrompt {
		t.Fatalf("unexpected item: %+v", item)
	}
	if item.WidgetURL != "https://chat.example.com/widget/"+item.Uuid {
		t.Fatalf("widget url=%q", item.WidgetURL)
	}
	if !strings.Contains(item.EmbedCode, item.WidgetURL) {
		t.Fatalf("embed code=%q", item.EmbedCode)
	}
	if len(item.Knowledge) != 1 || item.Knowledge[0].Content != "Our store is open 9-5" {
		t.Fatalf("knowledge=%+v", item.Knowledge)
	}

	list, err := env.svc.List(ctx, "acc-1")
	if err != nil || len(list) != 1 || len(list[0].Knowledge) != 1 {
		t.Fatalf("list=%+v err=%v", list, err)
	}
	if other, _ := env.svc.List(ctx, "acc-2"); len(other) != 0 {
		t.Fatalf("other account sees %d chatbots", len(other))
	}
}

func TestCreateValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	cases := map[string]request.CreateChatbotRequest{
		"blank name":    textRequest(" ", "content"),
		"long name":     textRequest(strings.Repeat("n", 256), "content"),
		"blank content": textRequest("Store", " \n "),
		"bad type":      {Name: "Store", KnowledgeInput: request.KnowledgeInput{KnowledgeType: "html"}},
		"missing pdf":   {Name: "Store", KnowledgeInput: request.KnowledgeInput{KnowledgeType: entity.KnowledgeTypePDF}},
		"not a pdf": {Name: "Store", KnowledgeInput: request.KnowledgeInput{
			KnowledgeType: entity.KnowledgeTypePDF, FileName: "notes.txt", FileData: []byte("x"),
		}},
		"too large": {Name: "Store", KnowledgeInput: request.KnowledgeInput{
			KnowledgeType: entity.KnowledgeTypePDF, FileName: "big.pdf", FileData: make([]byte, 2048),
		}},
	}
	for name, req := range cases {
		if _, err := env.svc.Create(ctx, "acc-1", req); !xerr.Is(err, xerr.BadRequest) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
	if n := env.count(t, &entity.Chatbot{}); n != 0 {
		t.Fatalf("chatbots=%d", n)
	}
}

func TestCreatePDFChatbot(t *testing.T) {
	env := newTestEnv(t, nil)

	item, err := env.svc.Create(context.Background(), "acc-1", request.CreateChatbotRequest{
		Name: "Docs",
		KnowledgeInput: request.KnowledgeInput{
			KnowledgeType: entity.KnowledgeTypePDF,
			FileName:      "Hours.PDF",
			FileData:      []byte("%PDF-1.4 stub"),
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	doc := item.Knowledge[0]
	if doc.Type != entity.KnowledgeTypePDF || doc.Content != "Opening hours: 9-5" {
		t.Fatalf("doc=%+v", doc)
	}
	if _, err := os.Stat(filepath.Join(env.root, doc.FilePath)); err != nil {
		t.Fatalf("stored file missing: %v", err)
	}
}

func TestCreatePDFExtractionFailure(t *testing.T) {
	env := newTestEnv(t, func([]byte) (string, error) { return "", errors.New("corrupt xref") })

	_, err := env.svc.Create(context.Background(), "acc-1", request.CreateChatbotRequest{
		Name: "Docs",
		KnowledgeInput: request.KnowledgeInput{
			KnowledgeType: entity.KnowledgeTypePDF,
			FileName:      "broken.pdf",
			FileData:      []byte("garbage"),
		},
	})
	if !xerr.Is(err, xerr.UnprocessableEntity) {
		t.Fatalf("expected extraction error, got %v", err)
	}
	if n := env.count(t, &entity.Chatbot{}); n != 0 {
		t.Fatalf("chatbots=%d", n)
	}
	entries, _ := os.ReadDir(env.root)
	if len(entries) != 0 {
		t.Fatalf("no file should be stored, found %d entries", len(entries))
	}
}

func TestUpdateKeepsUuid(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	created, err := env.svc.Create(ctx, "acc-1", textRequest("Store", "content"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	updated, err := env.svc.Update(ctx, "acc-1", created.Id, request.UpdateChatbotRequest{
		Name: "Shop", SystemPrompt: "You are a helpful store assistant",
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Uuid != created.Uuid || updated.Name != "Shop" || updated.SystemPrompt != "You are a helpful store assistant" {
		t.Fatalf("updated=%+v", updated)
	}

	cleared, err := env.svc.Update(ctx, "acc-1", created.Id, request.UpdateChatbotRequest{Name: "Shop"})
	if err != nil || cleared.SystemPrompt != entity.DefaultSystemPrompt {
		t.Fatalf("cleared=%+v err=%v", cleared, err)
	}
}

func TestOwnership(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	created, err := env.svc.Create(ctx, "acc-1", textRequest("Store", "content"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := env.svc.Get(ctx, "acc-2", created.Id); !xerr.Is(err, xerr.Forbidden) {
		t.Fatalf("get by other account: %v", err)
	}
	if err := env.svc.Delete(ctx, "acc-2", created.Id); !xerr.Is(err, xerr.Forbidden) {
		t.Fatalf("delete by other account: %v", err)
	}
	if _, err := env.svc.Get(ctx, "acc-1", created.Id+100); !xerr.Is(err, xerr.NotFound) {
		t.Fatalf("get missing: %v", err)
	}
}

func TestKnowledgeLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	created, err := env.svc.Create(ctx, "acc-1", textRequest("Store", "first"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	added, err := env.svc.AddKnowledge(ctx, "acc-1", created.Id, request.KnowledgeInput{
		KnowledgeType: entity.KnowledgeTypeText, Content: "second",
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	got, _ := env.svc.Get(ctx, "acc-1", created.Id)
	if len(got.Knowledge) != 2 {
		t.Fatalf("knowledge=%d", len(got.Knowledge))
	}

	if err := env.svc.DeleteKnowledge(ctx, "acc-1", created.Id, added.Id); err != nil {
		t.Fatalf("delete knowledge: %v", err)
	}
	if err := env.svc.DeleteKnowledge(ctx, "acc-1", created.Id, added.Id); !xerr.Is(err, xerr.NotFound) {
		t.Fatalf("second delete: %v", err)
	}
}

func TestDeleteCascades(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	created, err := env.svc.Create(ctx, "acc-1", request.CreateChatbotRequest{
		Name: "Docs",
		KnowledgeInput: request.KnowledgeInput{
			KnowledgeType: entity.KnowledgeTypePDF, FileName: "a.pdf", FileData: []byte("%PDF"),
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	sess := &conversation.ChatSession{SessionId: "tok", ChatbotId: created.Id}
	env.db.Create(sess)
	env.db.Create(&conversation.ChatMessage{ChatSessionId: sess.Id, ChatbotId: created.Id, Role: conversation.RoleUser, Content: "hi"})

	if err := env.svc.Delete(ctx, "acc-1", created.Id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	for _, model := range []interface{}{&entity.Chatbot{}, &entity.KnowledgeDocument{}, &conversation.ChatSession{}, &conversation.ChatMessage{}} {
		if n := env.count(t, model); n != 0 {
			t.Fatalf("%T rows left: %d", model, n)
		}
	}
	if _, err := os.Stat(filepath.Join(env.root, created.Knowledge[0].FilePath)); !os.IsNotExist(err) {
		t.Fatalf("stored file should be removed, stat err=%v", err)
	}
}
