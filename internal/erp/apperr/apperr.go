// Package apperr 定义引擎对外的稳定错误负载 {code, message, statusCode}
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// 错误码
const (
	CodeNotFound             = "NOT_FOUND"
	CodeInvalidStatus        = "INVALID_STATUS"
	CodeForbidden            = "FORBIDDEN"
	CodeValidation           = "VALIDATION"
	CodeNoAvailableInventory = "NO_AVAILABLE_INVENTORY"
)

// Error 业务错误，携带稳定错误码和HTTP状态码
type Error struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
	err        error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.err
}

// NotFound 资源不存在（跨组织查询同样返回404，不泄露存在性）
func NotFound(resource string) *Error {
	return &Error{Code: CodeNotFound, Message: resource + " not found", StatusCode: http.StatusNotFound}
}

// InvalidStatus 当前状态不允许该操作
func InvalidStatus(msg string) *Error {
	return &Error{Code: CodeInvalidStatus, Message: msg, StatusCode: http.StatusBadRequest}
}

// Forbidden 权限不足，硬失败
func Forbidden(msg string) *Error {
	return &Error{Code: CodeForbidden, Message: msg, StatusCode: http.StatusForbidden}
}

// Validation 调用方可修复的校验错误
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg, StatusCode: http.StatusBadRequest}
}

// NoAvailableInventory 指定批次无可用库存
func NoAvailableInventory(msg string) *Error {
	return &Error{Code: CodeNoAvailableInventory, Message: msg, StatusCode: http.StatusConflict}
}

// Wrap 在业务错误上附加底层原因
func Wrap(e *Error, err error) *Error {
	return &Error{Code: e.Code, Message: e.Message, StatusCode: e.StatusCode, err: err}
}

// As 提取业务错误
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
