package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"ChatNest/internal/config"
	"ChatNest/internal/initial"
	chatbotEntity "ChatNest/internal/modules/chatbot/domain/entity"
	chatbotPersistence "ChatNest/internal/modules/chatbot/infrastructure/persistence"
	"ChatNest/internal/modules/widget/application/dto/respond"
	"ChatNest/internal/modules/widget/application/service"
	"ChatNest/internal/modules/widget/infrastructure/knowledge"
	"ChatNest/internal/modules/widget/infrastructure/llm"
	"ChatNest/internal/modules/widget/infrastructure/persistence"
	"ChatNest/internal/modules/widget/infrastructure/pipeline"
	"ChatNest/internal/modules/widget/infrastructure/prompt"

	"github.com/gin-gonic/gin"
)

func newTestRouter(t *testing.T) (*gin.Engine, *chatbotEntity.Chatbot) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"Hi there!"}}]}`))
	}))
	t.Cleanup(upstream.Close)

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
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}

	bots := chatbotPersistence.NewChatbotRepository(db)
	bot := &chatbotEntity.Chatbot{AccountUuid: "acc", Name: "Store"}
	if err := bots.CreateChatbot(context.Background(), bot); err != nil {
		t.Fatalf("create chatbot: %v", err)
	}

	gw, err := llm.NewGateway(context.Background(), llm.Options{BaseURL: upstream.URL})
	if err != nil {
		t.Fatalf("gateway: %v", err)
	}
	pipe, err := pipeline.NewWidgetPipeline(
		bots,
		persistence.NewChatSessionRepository(db),
		persistence.NewChatMessageRepository(db),
		knowledge.NewContextAssembler(chatbotPersistence.NewKnowledgeRepository(db)),
		prompt.NewBuilder("", 0),
		gw,
	)
	if err != nil {
		t.Fatalf("pipeline: %v", err)
	}

	h := NewWidgetHandler(service.NewWidgetService(pipe, bots, gw, sqlDB, "UTC"), "")
	r := gin.New()
	r.POST("/widget/:chatbotId/send", h.Send)
	r.GET("/widget/:chatbotId/info", h.Info)
	r.GET("/health", h.Health)
	return r, bot
}

func postJSON(r *gin.Engine, path string, body interface{}, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSend(t *testing.T) {
	r, bot := newTestRouter(t)

	w := postJSON(r, "/widget/"+bot.Uuid+"/send", map[string]string{"message": "Hello"})
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var got respond.SendMessageRespond
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Reply != "Hi there!" || got.SessionId == "" || got.Timestamp == "" {
		t.Fatalf("unexpected body: %+v", got)
	}

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == DefaultSessionCookie {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value != got.SessionId {
		t.Fatalf("session cookie not set: %+v", w.Result().Cookies())
	}

	// 不带 session_id 时沿用 cookie 中的会话
	w = postJSON(r, "/widget/"+bot.Uuid+"/send", map[string]string{"message": "Again"}, cookie)
	var again respond.SendMessageRespond
	_ = json.Unmarshal(w.Body.Bytes(), &again)
	if again.SessionId != got.SessionId {
		t.Fatalf("cookie session not reused: %q vs %q", again.SessionId, got.SessionId)
	}
}

func TestSendErrors(t *testing.T) {
	r, bot := newTestRouter(t)

	if w := postJSON(r, "/widget/"+bot.Uuid+"/send", map[string]string{"message": "   "}); w.Code != http.StatusBadRequest {
		t.Fatalf("blank message status=%d", w.Code)
	}
	if w := postJSON(r, "/widget/unknown-bot/send", map[string]string{"message": "Hello"}); w.Code != http.StatusNotFound {
		t.Fatalf("unknown chatbot status=%d", w.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/widget/"+bot.Uuid+"/send", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad json status=%d", w.Code)
	}
}

func TestInfo(t *testing.T) {
	r, bot := newTestRouter(t)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/widget/"+bot.Uuid+"/info", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("status=%d", w.Code)
		}
		var got respond.ChatbotInfoRespond
		_ = json.Unmarshal(w.Body.Bytes(), &got)
		if got.Name != "Store" || got.Uuid != bot.Uuid {
			t.Fatalf("unexpected info: %+v", got)
		}
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/widget/missing/info", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing chatbot status=%d", w.Code)
	}
}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	var got respond.HealthRespond
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if w.Code != http.StatusOK || !got.Database || !got.LLM {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}
