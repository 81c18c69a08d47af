// Package catalog Catalog API 客户端，商品的权威存储
package catalog

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// Config 客户端配置
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Debug   bool
}

// Client Catalog API 客户端
// 发布失败不自动重试
type Client struct {
	http *resty.Client
}

// NewClient 创建客户端
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetDebug(cfg.Debug).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "Listing-Studio/1.0")
	if cfg.APIKey != "" {
		client.SetHeader("X-API-Key", cfg.APIKey)
	}
	return &Client{http: client}
}

// PublishListing 发布商品
func (c *Client) PublishListing(ctx context.Context, payload *ListingPayload) (*PublishResponse, error) {
	var result PublishResponse
	var errBody errorBody

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&result).
		SetError(&errBody).
		Post("/v1/listings")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if resp.IsError() {
		status := resp.StatusCode()
		message := errBody.Message
		if message == "" {
			message = http.StatusText(status)
		}
		if status < 500 && len(errBody.Errors) > 0 {
			return nil, &ValidationError{StatusCode: status, Message: message, Errors: errBody.Errors}
		}
		return nil, &APIError{StatusCode: status, Message: message}
	}

	if result.ListingID == "" {
		return nil, fmt.Errorf("%w: 响应缺少 listing_id", ErrUnavailable)
	}
	return &result, nil
}
