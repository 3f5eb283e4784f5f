// Package resp 提供统一的JSON响应封装与业务码定义。
package resp

import (
	"encoding/json"
	"net/http"
)

// Code 业务响应码
type Code int

// 约定的业务码集合。0表示成功，非0表示各类失败。
const (
	CodeOK              Code = 0
	CodeInvalidParam    Code = 1001
	CodeUnauthorized    Code = 1002
	CodeNotFound        Code = 1003
	CodeConflict        Code = 1004
	CodeTimeout         Code = 1005
	CodeTooManyRequests Code = 1006
	CodeInternalError   Code = 2001
)

// Body 统一响应体
type Body struct {
	Code      Code        `json:"code"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Warning   string      `json:"warning,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// HTTPStatusFromCode 将业务码映射为HTTP状态码
func HTTPStatusFromCode(code Code) int {
	switch code {
	case CodeOK:
		return http.StatusOK
	case CodeInvalidParam:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeTimeout:
		return http.StatusServiceUnavailable
	case CodeTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// OK 写入成功响应
func OK(w http.ResponseWriter, data interface{}, requestID, traceID string) {
	write(w, http.StatusOK, &Body{
		Code:      CodeOK,
		Message:   "ok",
		Data:      data,
		RequestID: requestID,
		TraceID:   traceID,
	})
}

// OKWithWarning 写入带警告的成功响应。
// 用于部分成功场景：主操作已生效，但附带的衍生操作失败。
func OKWithWarning(w http.ResponseWriter, data interface{}, warning, requestID, traceID string) {
	write(w, http.StatusOK, &Body{
		Code:      CodeOK,
		Message:   "ok",
		Data:      data,
		Warning:   warning,
		RequestID: requestID,
		TraceID:   traceID,
	})
}

// Error 写入失败响应
func Error(w http.ResponseWriter, status int, code Code, message, requestID, traceID string) {
	write(w, status, &Body{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		TraceID:   traceID,
	})
}

func write(w http.ResponseWriter, status int, body *Body) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
