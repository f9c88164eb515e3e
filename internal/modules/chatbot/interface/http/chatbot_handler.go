package http

import (
	"io"
	"strconv"
	"strings"

	"ChatNest/internal/modules/chatbot/application/dto/request"
	"ChatNest/internal/modules/chatbot/application/service"
	"ChatNest/pkg/back"
	"ChatNest/pkg/xerr"
	"ChatNest/pkg/zlog"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ChatbotHandler 控制台机器人管理
type ChatbotHandler struct {
	svc          service.ChatbotService
	analytics    service.AnalyticsService
	maxFileBytes int64
}

// NewChatbotHandler 创建ChatbotHandler
func NewChatbotHandler(svc service.ChatbotService, analytics service.AnalyticsService, maxFileBytes int64) *ChatbotHandler {
	return &ChatbotHandler{svc: svc, analytics: analytics, maxFileBytes: maxFileBytes}
}

// List 获取当前账户的机器人列表
//
// 路由: GET /chatbots
// 鉴权: 需要JWT
func (h *ChatbotHandler) List(c *gin.Context) {
	uuid, ok := accountUuid(c)
	if !ok {
		return
	}
	data, err := h.svc.List(c.Request.Context(), uuid)
	back.Result(c, data, err)
}

// Create 创建机器人并写入首个知识文档
//
// 路由: POST /chatbots
// 鉴权: 需要JWT
// 请求体: multipart/form-data（name, system_prompt, knowledge_type, content, pdf_file）
func (h *ChatbotHandler) Create(c *gin.Context) {
	uuid, ok := accountUuid(c)
	if !ok {
		return
	}
	var req request.CreateChatbotRequest
	if err := c.ShouldBind(&req); err != nil {
		zlog.Error("create chatbot bind error", zap.Error(err))
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}
	if err := h.readUpload(c, &req.KnowledgeInput); err != nil {
		back.Result(c, nil, err)
		return
	}
	data, err := h.svc.Create(c.Request.Context(), uuid, req)
	back.Result(c, data, err)
}

// Get 机器人详情（含嵌入代码）
//
// 路由: GET /chatbots/:id
func (h *ChatbotHandler) Get(c *gin.Context) {
	uuid, ok := accountUuid(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	data, err := h.svc.Get(c.Request.Context(), uuid, id)
	back.Result(c, data, err)
}

// Update 修改名称与系统提示词
//
// 路由: PUT /chatbots/:id
// 请求体: UpdateChatbotRequest
func (h *ChatbotHandler) Update(c *gin.Context) {
	uuid, ok := accountUuid(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req request.UpdateChatbotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		zlog.Error("update chatbot bind error", zap.Error(err))
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}
	data, err := h.svc.Update(c.Request.Context(), uuid, id, req)
	back.Result(c, data, err)
}

// Delete 删除机器人及其全部数据
//
// 路由: DELETE /chatbots/:id
func (h *ChatbotHandler) Delete(c *gin.Context) {
	uuid, ok := accountUuid(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	err := h.svc.Delete(c.Request.Context(), uuid, id)
	back.Result(c, nil, err)
}

// AddKnowledge 追加知识文档
//
// 路由: POST /chatbots/:id/knowledge
// 请求体: multipart/form-data（knowledge_type, content, pdf_file）
func (h *ChatbotHandler) AddKnowledge(c *gin.Context) {
	uuid, ok := accountUuid(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in request.KnowledgeInput
	if err := c.ShouldBind(&in); err != nil {
		zlog.Error("add knowledge bind error", zap.Error(err))
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}
	if err := h.readUpload(c, &in); err != nil {
		back.Result(c, nil, err)
		return
	}
	data, err := h.svc.AddKnowledge(c.Request.Context(), uuid, id, in)
	back.Result(c, data, err)
}

// DeleteKnowledge 删除单个知识文档
//
// 路由: DELETE /chatbots/:id/knowledge/:docId
func (h *ChatbotHandler) DeleteKnowledge(c *gin.Context) {
	uuid, ok := accountUuid(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	docId, ok := pathID(c, "docId")
	if !ok {
		return
	}
	err := h.svc.DeleteKnowledge(c.Request.Context(), uuid, id, docId)
	back.Result(c, nil, err)
}

// Analytics 单个机器人的统计
//
// 路由: GET /chatbots/:id/analytics
func (h *ChatbotHandler) Analytics(c *gin.Context) {
	uuid, ok := accountUuid(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	data, err := h.analytics.ChatbotAnalytics(c.Request.Context(), uuid, id)
	back.Result(c, data, err)
}

// Overview 账户级统计
//
// 路由: GET /analytics
func (h *ChatbotHandler) Overview(c *gin.Context) {
	uuid, ok := accountUuid(c)
	if !ok {
		return
	}
	data, err := h.analytics.Overview(c.Request.Context(), uuid)
	back.Result(c, data, err)
}

// readUpload 读取可选的 pdf_file；超过上限时直接拒绝
func (h *ChatbotHandler) readUpload(c *gin.Context, in *request.KnowledgeInput) error {
	fh, err := c.FormFile("pdf_file")
	if err != nil {
		// 未上传文件，交给 service 按 knowledge_type 校验
		return nil
	}
	if h.maxFileBytes > 0 && fh.Size > h.maxFileBytes {
		return xerr.NewValidation("pdf_file exceeds the maximum upload size")
	}
	f, err := fh.Open()
	if err != nil {
		zlog.Error("open upload failed", zap.Error(err))
		return xerr.ErrServerError
	}
	defer f.Close()

	limit := h.maxFileBytes
	if limit <= 0 {
		limit = fh.Size
	}
	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		zlog.Error("read upload failed", zap.Error(err))
		return xerr.ErrServerError
	}
	in.FileName = fh.Filename
	in.FileData = data
	in.FileSize = int64(len(data))
	return nil
}

func accountUuid(c *gin.Context) (string, bool) {
	uuid := strings.TrimSpace(c.GetString("uuid"))
	if uuid == "" {
		back.Error(c, xerr.Unauthorized, xerr.ErrUnauthorized.Message)
		return "", false
	}
	return uuid, true
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return 0, false
	}
	return id, true
}
