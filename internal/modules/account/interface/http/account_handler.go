package http

import (
	"ChatNest/internal/modules/account/application/dto/request"
	"ChatNest/internal/modules/account/application/service"
	"ChatNest/pkg/back"
	"ChatNest/pkg/xerr"
	"ChatNest/pkg/zlog"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AccountHandler struct {
	svc service.AccountService
}

func NewAccountHandler(svc service.AccountService) *AccountHandler {
	return &AccountHandler{svc: svc}
}

// Register 路由: POST /register
func (h *AccountHandler) Register(c *gin.Context) {
	var req request.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		zlog.Error("register bind error", zap.Error(err))
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}
	data, err := h.svc.Register(c.Request.Context(), req)
	back.Result(c, data, err)
}

// Login 路由: POST /login
func (h *AccountHandler) Login(c *gin.Context) {
	var req request.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		zlog.Error("login bind error", zap.Error(err))
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}
	data, err := h.svc.Login(c.Request.Context(), req)
	back.Result(c, data, err)
}
