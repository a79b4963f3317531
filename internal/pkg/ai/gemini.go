package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GeminiClient 使用 Gemini 的实现，每次请求按密钥新建客户端
type GeminiClient struct {
	defaultModel string
}

func NewGeminiClient(defaultModel string) *GeminiClient {
	if defaultModel == "" {
		defaultModel = "gemini-1.5-flash"
	}
	return &GeminiClient{defaultModel: defaultModel}
}

func (c *GeminiClient) CreateChatStream(ctx context.Context, req ChatRequest) (Stream, error) {
	if req.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(req.APIKey))
	if err != nil {
		return nil, fmt.Errorf("ai: gemini client: %w", err)
	}

	modelName := req.Model
	if modelName == "" || strings.HasPrefix(modelName, "gpt-") {
		modelName = c.defaultModel
	}
	model := client.GenerativeModel(modelName)
	model.SetTemperature(float32(req.Temperature))
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	if req.System != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.System)},
		}
	}

	return &geminiStream{
		client: client,
		iter:   model.GenerateContentStream(ctx, genai.Text(req.Prompt)),
	}, nil
}

type geminiStream struct {
	client *genai.Client
	iter   *genai.GenerateContentResponseIterator
}

func (s *geminiStream) Recv() (string, error) {
	for {
		resp, err := s.iter.Next()
		if errors.Is(err, iterator.Done) {
			return "", io.EOF
		}
		if err != nil {
			var gerr *googleapi.Error
			if errors.As(err, &gerr) {
				return "", &APIError{StatusCode: gerr.Code, Message: gerr.Message, Code: geminiCode(gerr.Code)}
			}
			return "", &StreamError{Err: err}
		}

		var sb strings.Builder
		for _, cand := range resp.Candidates {
			if cand.Content == nil {
				continue
			}
			for _, part := range cand.Content.Parts {
				if text, ok := part.(genai.Text); ok {
					sb.WriteString(string(text))
				}
			}
		}
		if sb.Len() > 0 {
			return sb.String(), nil
		}
	}
}

func (s *geminiStream) Close() error {
	return s.client.Close()
}

// geminiCode 把 HTTP 状态映射到通用错误码
func geminiCode(status int) string {
	switch status {
	case 429:
		return "rate_limit_exceeded"
	case 401, 403:
		return "invalid_api_key"
	default:
		return ""
	}
}
