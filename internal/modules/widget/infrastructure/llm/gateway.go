package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ChatNest/pkg/util"
	"ChatNest/pkg/zlog"

	openaiModel "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	goopenai "github.com/meguminnnnnnnnn/go-openai"
	"go.uber.org/zap"
)

const (
	// FallbackBusy 上游不可用或返回非 2xx
	FallbackBusy = "Sorry, the server is busy. Please try again later."
	// FallbackNoAnswer 响应体缺少补全内容
	FallbackNoAnswer = "Sorry, I cannot provide an answer at this time."

	DefaultModel         = "openai/gpt-oss-120b"
	DefaultTemperature   = 0.7
	DefaultMaxTokens     = 1000
	DefaultTimeout       = 360 * time.Second
	DefaultHealthTimeout = 5 * time.Second

	maxLoggedBody = 512
)

// Outcome 一次补全调用的结果分类
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeTransportError
	OutcomeBadStatus
	OutcomeMalformedBody
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeTransportError:
		return "transport_error"
	case OutcomeBadStatus:
		return "bad_status"
	case OutcomeMalformedBody:
		return "malformed_body"
	default:
		return "unknown"
	}
}

// Completion 补全结果。Reply 始终是可以直接展示给访客的文本
type Completion struct {
	Reply      string
	Outcome    Outcome
	StatusCode int
	Latency    time.Duration
	Err        error
}

// OK 是否拿到了模型的真实回答
func (c *Completion) OK() bool {
	return c.Outcome == OutcomeOK
}

// Gateway 外部补全服务
type Gateway interface {
	Complete(ctx context.Context, messages []*schema.Message) *Completion
	HealthCheck(ctx context.Context) bool
}

// Options 网关参数，零值字段使用默认值
type Options struct {
	BaseURL       string
	APIKey        string
	Model         string
	Temperature   float64
	MaxTokens     int
	Timeout       time.Duration
	HealthTimeout time.Duration
}

type chatGateway struct {
	opts   Options
	model  model.BaseChatModel
	client *http.Client
}

// NewGateway 基于 eino-ext openai ChatModel 的 OpenAI 兼容补全客户端
func NewGateway(ctx context.Context, opts Options) (Gateway, error) {
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.Temperature == 0 {
		opts.Temperature = DefaultTemperature
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.HealthTimeout <= 0 {
		opts.HealthTimeout = DefaultHealthTimeout
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")

	temperature := float32(opts.Temperature)
	maxTokens := opts.MaxTokens
	cm, err := openaiModel.NewChatModel(ctx, &openaiModel.ChatModelConfig{
		APIKey:      opts.APIKey,
		BaseURL:     opts.BaseURL,
		Model:       opts.Model,
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
		Timeout:     opts.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("create openai chat model: %w", err)
	}

	return &chatGateway{
		opts:   opts,
		model:  cm,
		client: &http.Client{},
	}, nil
}

// Complete 单次调用，不重试；任何失败都映射为固定兜底文案
func (g *chatGateway) Complete(ctx context.Context, messages []*schema.Message) *Completion {
	start := time.Now()
	res := g.complete(ctx, messages)
	res.Latency = time.Since(start)

	fields := []zap.Field{
		zap.String("outcome", res.Outcome.String()),
		zap.Int("status", res.StatusCode),
		zap.Int64("latency_ms", res.Latency.Milliseconds()),
		zap.String("model", g.opts.Model),
	}
	switch res.Outcome {
	case OutcomeOK:
		zlog.Info("llm completion done", fields...)
	case OutcomeMalformedBody:
		zlog.Warn("llm completion malformed", append(fields, zap.Error(res.Err))...)
	default:
		zlog.Error("llm completion failed", append(fields, zap.Error(res.Err))...)
	}
	return res
}

func (g *chatGateway) complete(ctx context.Context, messages []*schema.Message) *Completion {
	ctx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
	defer cancel()

	out, err := g.model.Generate(ctx, messages)
	if err != nil {
		return classify(err)
	}
	if out == nil || strings.TrimSpace(out.Content) == "" {
		return &Completion{
			Reply:      FallbackNoAnswer,
			Outcome:    OutcomeMalformedBody,
			StatusCode: http.StatusOK,
			Err:        errors.New("response missing choices[0].message.content"),
		}
	}
	return &Completion{Reply: out.Content, Outcome: OutcomeOK, StatusCode: http.StatusOK}
}

// classify 把 ChatModel 的错误归到三类失败之一
func classify(err error) *Completion {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return badStatus(apiErr.HTTPStatusCode, err)
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return badStatus(reqErr.HTTPStatusCode, err)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &Completion{Reply: FallbackBusy, Outcome: OutcomeTransportError, Err: err}
	}

	// 2xx 但响应体无法解析，或 choices 为空
	return &Completion{Reply: FallbackNoAnswer, Outcome: OutcomeMalformedBody, StatusCode: http.StatusOK, Err: err}
}

func badStatus(status int, err error) *Completion {
	return &Completion{
		Reply:      FallbackBusy,
		Outcome:    OutcomeBadStatus,
		StatusCode: status,
		Err:        fmt.Errorf("upstream status %d: %s", status, util.Truncate(err.Error(), maxLoggedBody)),
	}
}

// HealthCheck GET {baseURL}/health，仅 2xx 视为可用，从不返回错误
func (g *chatGateway) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, g.opts.HealthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.opts.BaseURL+"/health", nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+g.opts.APIKey)

	resp, err := g.client.Do(req)
	if err != nil {
		zlog.Warn("llm health check failed", zap.Error(err))
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
