package xerr

import (
	"errors"
	"fmt"
)

// CodeError 自定义错误结构
type CodeError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error 实现 error 接口
func (e *CodeError) Error() string {
	return fmt.Sprintf("Code: %d, Message: %s", e.Code, e.Message)
}

// New 创建新的 CodeError
func New(code int, msg string) *CodeError {
	return &CodeError{Code: code, Message: msg}
}

// NewValidation 输入不合法（可由调用方修正）
func NewValidation(msg string) *CodeError {
	return New(BadRequest, msg)
}

// NewNotFound 资源不存在
func NewNotFound(msg string) *CodeError {
	return New(NotFound, msg)
}

// NewExtraction 知识文档无法解析为文本
func NewExtraction(msg string) *CodeError {
	return New(UnprocessableEntity, msg)
}

// As 从错误链中取出 CodeError
func As(err error) (*CodeError, bool) {
	var ce *CodeError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// Is 判断错误链中是否为指定错误码
func Is(err error, code int) bool {
	ce, ok := As(err)
	return ok && ce.Code == code
}

// 常用通用错误码
const (
	OK                  = 200
	BadRequest          = 400
	Unauthorized        = 401
	Forbidden           = 403
	NotFound            = 404
	Conflict            = 409
	UnprocessableEntity = 422
	InternalServerError = 500
)

// 常用预定义错误
var (
	ErrSuccess      = New(OK, "Success")
	ErrServerError  = New(InternalServerError, "Internal server error, please contact support")
	ErrParam        = New(BadRequest, "Invalid parameters")
	ErrUnauthorized = New(Unauthorized, "Unauthorized")
	ErrForbidden    = New(Forbidden, "Forbidden")
)
