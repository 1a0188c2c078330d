// Package errors 提供统一的错误定义
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode 错误码类型
type ErrorCode string

// 预定义错误码
const (
	// 通用错误 (1xxx)
	CodeSuccess         ErrorCode = "0"
	CodeUnknown         ErrorCode = "1000"
	CodeInvalidParam    ErrorCode = "1001"
	CodeTooManyRequests ErrorCode = "1006"
	CodeInternalError   ErrorCode = "1007"

	// 对话视图错误 (41xx)
	CodeMissingParameters  ErrorCode = "4101"
	CodeSubmissionInFlight ErrorCode = "4102"
	CodeMissingMessageID   ErrorCode = "4103"
	CodeNoScreenshot       ErrorCode = "4104"

	// 上游 Agent 错误 (51xx)
	CodeUpstreamUnavailable     ErrorCode = "5101"
	CodeUpstreamInvalidResponse ErrorCode = "5102"
)

// AppError 应用错误
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	Err        error     `json:"-"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 按错误码比较，使 errors.Is 对包装后的错误同样生效
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetail 返回附带详细信息的副本
func (e *AppError) WithDetail(detail string) *AppError {
	cp := *e
	cp.Detail = detail
	return &cp
}

// WithError 返回附带底层错误的副本
func (e *AppError) WithError(err error) *AppError {
	cp := *e
	cp.Err = err
	return &cp
}

// New 创建新的应用错误
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

// Wrap 包装错误
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Err:        err,
	}
}

// codeToHTTPStatus 错误码转 HTTP 状态码
func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case CodeSuccess:
		return http.StatusOK
	case CodeInvalidParam, CodeMissingParameters, CodeMissingMessageID:
		return http.StatusBadRequest
	case CodeNoScreenshot:
		return http.StatusNotFound
	case CodeSubmissionInFlight:
		return http.StatusConflict
	case CodeTooManyRequests:
		return http.StatusTooManyRequests
	case CodeUpstreamUnavailable, CodeUpstreamInvalidResponse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// 预定义错误
var (
	ErrInvalidParam    = New(CodeInvalidParam, "invalid parameter")
	ErrTooManyRequests = New(CodeTooManyRequests, "too many requests")
	ErrInternalError   = New(CodeInternalError, "internal server error")

	ErrMissingParameters  = New(CodeMissingParameters, "Missing parameters")
	ErrSubmissionInFlight = New(CodeSubmissionInFlight, "a request is already in progress")
	ErrMissingMessageID   = New(CodeMissingMessageID, "Missing message_id or agent_id in API response.")
	ErrNoScreenshot       = New(CodeNoScreenshot, "No screenshot or page image found in content metadata.")

	ErrUpstreamUnavailable     = New(CodeUpstreamUnavailable, "agent API unavailable")
	ErrUpstreamInvalidResponse = New(CodeUpstreamInvalidResponse, "agent API returned an invalid response")
)

// AsAppError 将错误转换为 AppError，支持 %w 包装的错误
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, CodeUnknown, "unknown error")
}
