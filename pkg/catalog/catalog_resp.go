package catalog

import (
	"errors"
	"fmt"
)

var ErrUnavailable = errors.New("catalog 服务不可用")

// PublishResponse 发布成功响应
type PublishResponse struct {
	ListingID string `json:"listing_id"`
	Status    string `json:"status"`
}

// FieldError 远端校验错误
type FieldError struct {
	Field    string `json:"field"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// errorBody 错误响应体
type errorBody struct {
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors"`
}

// ValidationError 远端拒绝了商品内容（4xx 且携带字段错误）
type ValidationError struct {
	StatusCode int
	Message    string
	Errors     []FieldError
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("catalog 校验失败 [%d]: %s (%d 项)", e.StatusCode, e.Message, len(e.Errors))
}

// APIError 其它非 2xx 响应
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("catalog 请求失败 [%d]: %s", e.StatusCode, e.Message)
}

// Unwrap 5xx 视为服务不可用
func (e *APIError) Unwrap() error {
	if e.StatusCode >= 500 {
		return ErrUnavailable
	}
	return nil
}
