package http

import (
	"net/http"
	"strings"

	"ChatNest/internal/modules/widget/application/dto/request"
	"ChatNest/internal/modules/widget/application/service"
	"ChatNest/pkg/back"
	"ChatNest/pkg/xerr"
	"ChatNest/pkg/zlog"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// DefaultSessionCookie 会话 token 的 cookie 名
	DefaultSessionCookie = "chatnest_session"
	sessionCookieMaxAge  = 30 * 24 * 3600
	timezoneHeader       = "X-Timezone"
)

// WidgetHandler 访客侧接口，无需登录
type WidgetHandler struct {
	svc        service.WidgetService
	cookieName string
}

func NewWidgetHandler(svc service.WidgetService, cookieName string) *WidgetHandler {
	if strings.TrimSpace(cookieName) == "" {
		cookieName = DefaultSessionCookie
	}
	return &WidgetHandler{svc: svc, cookieName: cookieName}
}

// Send 访客发送消息
//
// 路由: POST /widget/:chatbotId/send
// 请求体: {"message": "...", "session_id": "...", "timezone": "..."}
// 会话 token 优先取 body，其次 cookie，都没有时新建
func (h *WidgetHandler) Send(c *gin.Context) {
	var req request.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		zlog.Warn("widget send bind error", zap.Error(err))
		back.Abort(c, xerr.NewValidation("invalid request body"))
		return
	}
	if strings.TrimSpace(req.SessionId) == "" {
		if cookie, err := c.Cookie(h.cookieName); err == nil {
			req.SessionId = cookie
		}
	}

	data, err := h.svc.Send(c.Request.Context(), c.Param("chatbotId"), req, service.Visitor{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Timezone:  c.GetHeader(timezoneHeader),
	})
	if err != nil {
		back.Abort(c, err)
		return
	}

	// iframe 内跨站携带 cookie 需要 SameSite=None，而它要求 Secure
	secure := c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https"
	if secure {
		c.SetSameSite(http.SameSiteNoneMode)
	} else {
		c.SetSameSite(http.SameSiteLaxMode)
	}
	c.SetCookie(h.cookieName, data.SessionId, sessionCookieMaxAge, "/", "", secure, true)
	c.JSON(http.StatusOK, data)
}

// Info 机器人公开信息
//
// 路由: GET /widget/:chatbotId/info
func (h *WidgetHandler) Info(c *gin.Context) {
	data, err := h.svc.Info(c.Request.Context(), c.Param("chatbotId"))
	if err != nil {
		back.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, data)
}

// Health 数据库与补全服务的连通性
//
// 路由: GET /health
func (h *WidgetHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Health(c.Request.Context()))
}
