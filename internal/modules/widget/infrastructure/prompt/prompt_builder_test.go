package prompt

import (
	"strings"
	"testing"
	"time"

	chatbotEntity "ChatNest/internal/modules/chatbot/domain/entity"
	"ChatNest/pkg/xerr"

	"github.com/cloudwego/eino/schema"
)

func testMeta() RequestMeta {
	return RequestMeta{
		IP:        "203.0.113.7",
		UserAgent: "Mozilla/5.0 (X11; Linux x86_64)",
		Timezone:  "Asia/Jakarta",
		Now:       time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
	}
}

func TestBuildSectionOrder(t *testing.T) {
	b := NewBuilder("", 0)
	p, err := b.Build("You are a helpful store assistant", "Our store is open 9-5", "Hello", testMeta())
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if !strings.HasPrefix(p.System, "You are a helpful store assistant") {
		t.Fatalf("system prompt not at the start: %q", p.System)
	}
	order := []string{
		"You are a helpful store assistant",
		"Knowledge/Context:\nOur store is open 9-5",
		"Today is 2026-03-14",
		"User's timezone is Asia/Jakarta",
		"User's IP address is 203.0.113.7",
		"User's browser is Mozilla/5.0 (X11; Linux x86_64)",
		"Instructions: " + DefaultInstructions,
	}
	last := -1
	for _, part := range order {
		idx := strings.Index(p.System, part)
		if idx < 0 {
			t.Fatalf("missing %q in %q", part, p.System)
		}
		if idx <= last {
			t.Fatalf("%q out of order", part)
		}
		last = idx
	}
	if p.User != "Hello" {
		t.Fatalf("user message=%q", p.User)
	}
}

func TestBuildEmptyContextKeepsLabel(t *testing.T) {
	p, err := NewBuilder("", 0).Build("Persona", "", "Hi", testMeta())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !strings.Contains(p.System, "Knowledge/Context:") {
		t.Fatalf("label missing: %q", p.System)
	}
}

func TestBuildDefaultsPersona(t *testing.T) {
	p, err := NewBuilder("", 0).Build("   ", "ctx", "Hi", testMeta())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !strings.HasPrefix(p.System, chatbotEntity.DefaultSystemPrompt) {
		t.Fatalf("default persona not used: %q", p.System)
	}
}

func TestBuildCustomInstructions(t *testing.T) {
	p, err := NewBuilder("Answer briefly.", 0).Build("Persona", "ctx", "Hi", testMeta())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !strings.HasSuffix(p.System, "Instructions: Answer briefly.") {
		t.Fatalf("instructions not applied: %q", p.System)
	}
}

func TestValidateUtterance(t *testing.T) {
	b := NewBuilder("", 1000)

	if _, err := b.ValidateUtterance(" \n "); !xerr.Is(err, xerr.BadRequest) {
		t.Fatalf("blank message should be rejected, got %v", err)
	}
	if _, err := b.ValidateUtterance(strings.Repeat("a", 1001)); !xerr.Is(err, xerr.BadRequest) {
		t.Fatalf("over-length message should be rejected, got %v", err)
	}
	// 按字符而非字节计数
	msg, err := b.ValidateUtterance(strings.Repeat("é", 1000))
	if err != nil {
		t.Fatalf("1000 runes should pass: %v", err)
	}
	if len([]rune(msg)) != 1000 {
		t.Fatalf("message altered")
	}

	// 首尾空白不计入长度，且保留在返回值里
	padded := "  " + strings.Repeat("a", 1000) + "\n"
	msg, err = b.ValidateUtterance(padded)
	if err != nil {
		t.Fatalf("padded message should pass: %v", err)
	}
	if msg != padded {
		t.Fatalf("message should be kept verbatim, got %q", msg)
	}
}

func TestMessages(t *testing.T) {
	p := &Prompt{System: "sys", User: "hi"}
	msgs := p.Messages()
	if len(msgs) != 2 {
		t.Fatalf("len=%d", len(msgs))
	}
	if msgs[0].Role != schema.System || msgs[0].Content != "sys" {
		t.Fatalf("system message: %+v", msgs[0])
	}
	if msgs[1].Role != schema.User || msgs[1].Content != "hi" {
		t.Fatalf("user message: %+v", msgs[1])
	}
}
