package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/qs3c/research_go_server/config"
	"github.com/qs3c/research_go_server/internal/pkg/ai"
	"github.com/qs3c/research_go_server/internal/pkg/pubsub"
	"github.com/qs3c/research_go_server/internal/repository"
)

const (
	UsageGenerate = "generate"
	UsageContinue = "continue"
	UsageEnhance  = "enhance"

	enhanceTemperature = 0.3
)

// ProgressPublisher 推送生成进度
type ProgressPublisher interface {
	PublishProgress(ctx context.Context, msg *pubsub.ProgressMessage) error
}

// GenerateOptions 调用方可选参数
type GenerateOptions struct {
	OnProgress   func(content string)
	ProjectID    int64
	ProjectTitle string
	JobID        int64
}

type GenerationService struct {
	credits     *CreditService
	client      ai.Client
	keys        *KeyResolver
	projectRepo *repository.ProjectRepository
	publisher   ProgressPublisher
	cfg         *config.Config
	logger      *zap.Logger
}

func NewGenerationService(
	credits *CreditService,
	client ai.Client,
	keys *KeyResolver,
	projectRepo *repository.ProjectRepository,
	publisher ProgressPublisher,
	cfg *config.Config,
	logger *zap.Logger,
) *GenerationService {
	return &GenerationService{
		credits:     credits,
		client:      client,
		keys:        keys,
		projectRepo: projectRepo,
		publisher:   publisher,
		cfg:         cfg,
		logger:      logger,
	}
}

type generation struct {
	userID       int64
	section      string
	promptKey    string
	title        string
	requireTitle bool
	vars         map[string]string
	system       string
	temperature  float64
	usageType    string
	opts         GenerateOptions
}

// Generate 生成某个章节
func (s *GenerationService) Generate(ctx context.Context, section, title string, userID int64, previousSections map[string]string, opts GenerateOptions) (string, error) {
	return s.run(ctx, &generation{
		userID:       userID,
		section:      section,
		promptKey:    section,
		title:        title,
		requireTitle: true,
		vars:         previousSections,
		system:       systemPrompt,
		usageType:    UsageGenerate,
		opts:         opts,
	})
}

// ContinueWriting 续写当前内容，返回新增部分
func (s *GenerationService) ContinueWriting(ctx context.Context, title, content string, userID int64, opts GenerateOptions) (string, error) {
	return s.run(ctx, &generation{
		userID:       userID,
		section:      "continue",
		promptKey:    "continue",
		title:        title,
		requireTitle: true,
		vars:         map[string]string{"content": content},
		system:       systemPrompt,
		usageType:    UsageContinue,
		opts:         opts,
	})
}

// Enhance 润色文本，不要求标题
func (s *GenerationService) Enhance(ctx context.Context, content string, userID int64) (string, error) {
	return s.run(ctx, &generation{
		userID:      userID,
		section:     "enhance",
		promptKey:   "enhance",
		vars:        map[string]string{"content": content},
		system:      enhanceSystemPrompt,
		temperature: enhanceTemperature,
		usageType:   UsageEnhance,
	})
}

func (s *GenerationService) run(ctx context.Context, g *generation) (string, error) {
	if g.userID == 0 {
		return "", newGenerationError(CodeAuthRequired, nil)
	}

	res, err := s.credits.Reserve(g.userID, 1, g.usageType+" - "+g.section, CreditMeta{
		ProjectID:    g.opts.ProjectID,
		ProjectTitle: g.opts.ProjectTitle,
		Section:      g.section,
		UsageType:    g.usageType,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInsufficientCredits):
			return "", newGenerationError(CodeInsufficientCredits, err)
		case errors.Is(err, ErrUserNotFound):
			return "", newGenerationError(CodeAuthRequired, err)
		}
		return "", err
	}

	content, genErr := s.generateWithRetry(ctx, g)
	if genErr != nil {
		if _, err := s.credits.Release(res.ID, RefundDescription); err != nil {
			s.logger.Error("refund failed, left for expiry sweep",
				zap.String("reservation_id", res.ID),
				zap.Int64("user_id", g.userID),
				zap.Error(err),
			)
		}
		s.publish(g, &pubsub.ProgressMessage{
			Type:      pubsub.TypeFailed,
			ErrorCode: genErr.Code,
			Error:     genErr.Message,
		})
		return "", genErr
	}

	if err := s.credits.Commit(res.ID); err != nil {
		s.logger.Error("commit reservation failed",
			zap.String("reservation_id", res.ID),
			zap.Int64("user_id", g.userID),
			zap.Error(err),
		)
	}

	if g.opts.ProjectID > 0 && s.projectRepo != nil {
		if err := s.projectRepo.IncrementAIUsage(g.opts.ProjectID, g.section); err != nil {
			s.logger.Warn("increment ai usage failed", zap.Int64("project_id", g.opts.ProjectID), zap.Error(err))
		}
	}

	msg := &pubsub.ProgressMessage{Type: pubsub.TypeCompleted, Content: content}
	if balance, err := s.credits.GetBalance(g.userID); err == nil {
		msg.Credits = &balance
	}
	s.publish(g, msg)

	return content, nil
}

func (s *GenerationService) generateWithRetry(ctx context.Context, g *generation) (string, *GenerationError) {
	attempts := s.cfg.AI.MaxRetries
	if attempts < 1 {
		attempts = 3
	}
	delay := time.Duration(s.cfg.AI.RetryDelayMs) * time.Millisecond
	if delay <= 0 {
		delay = time.Second
	}
	backoff := retry.WithMaxRetries(uint64(attempts-1), retry.NewConstant(delay))

	var content string
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		out, err := s.attempt(ctx, g)
		if err == nil {
			content = out
			return nil
		}
		if ctx.Err() != nil {
			return newGenerationError(CodeCancelled, ctx.Err())
		}

		genErr := translateError(err)
		s.logger.Warn("generation attempt failed",
			zap.Int64("user_id", g.userID),
			zap.String("section", g.section),
			zap.Int("attempt", attempt),
			zap.String("code", genErr.Code),
			zap.Error(err),
		)
		if !retryable(genErr) {
			return genErr
		}
		return retry.RetryableError(genErr)
	})
	if err != nil {
		if ctx.Err() != nil && !errors.Is(err, &GenerationError{Code: CodeCancelled}) {
			return "", newGenerationError(CodeCancelled, ctx.Err())
		}
		return "", translateError(err)
	}
	return content, nil
}

func (s *GenerationService) attempt(ctx context.Context, g *generation) (string, error) {
	if g.requireTitle && strings.TrimSpace(g.title) == "" {
		return "", newGenerationError(CodeTitleRequired, nil)
	}

	prompt, ok := renderPrompt(g.promptKey, g.title, g.vars)
	if !ok {
		return "", newGenerationError(CodeInvalidSection, nil)
	}

	apiKey, err := s.keys.Resolve(ctx)
	if err != nil {
		return "", newGenerationError(CodeConnectionError, err)
	}

	modelName, temperature, maxTokens := s.keys.ModelSettings()
	if g.temperature > 0 {
		temperature = g.temperature
	}

	stream, err := s.client.CreateChatStream(ctx, ai.ChatRequest{
		APIKey:      apiKey,
		Model:       modelName,
		System:      g.system,
		Prompt:      prompt,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", err
	}
	defer stream.Close()

	var sb strings.Builder
	for {
		fragment, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		sb.WriteString(fragment)
		s.progress(g, sb.String())
	}

	content := strings.TrimSpace(sb.String())
	if content == "" {
		return "", newGenerationError(CodeEmptyResponse, nil)
	}
	return content, nil
}

func (s *GenerationService) progress(g *generation, content string) {
	if g.opts.OnProgress != nil {
		g.opts.OnProgress(content)
	}
	s.publish(g, &pubsub.ProgressMessage{Type: pubsub.TypeProgress, Content: content})
}

func (s *GenerationService) publish(g *generation, msg *pubsub.ProgressMessage) {
	if s.publisher == nil {
		return
	}
	msg.UserID = g.userID
	msg.JobID = g.opts.JobID
	msg.ProjectID = g.opts.ProjectID
	msg.Section = g.section

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.publisher.PublishProgress(ctx, msg); err != nil {
		s.logger.Debug("publish progress failed", zap.Int64("user_id", g.userID), zap.Error(err))
	}
}
