package ai

import (
	"context"
	"errors"
	"fmt"
)

// ChatRequest 一次补全请求
type ChatRequest struct {
	APIKey      string
	Model       string
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// Stream 流式结果，结束时 Recv 返回 io.EOF
type Stream interface {
	Recv() (string, error)
	Close() error
}

// Client 模型服务客户端
type Client interface {
	CreateChatStream(ctx context.Context, req ChatRequest) (Stream, error)
}

var ErrMissingAPIKey = errors.New("ai: api key not configured")

// APIError 服务端返回的错误
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Type       string `json:"type"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ai: status %d, code %q: %s", e.StatusCode, e.Code, e.Message)
}

// StreamError 读取流过程中出错
type StreamError struct {
	Err error
}

func (e *StreamError) Error() string {
	return "ai: stream: " + e.Err.Error()
}

func (e *StreamError) Unwrap() error {
	return e.Err
}
