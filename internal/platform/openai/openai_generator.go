package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"github.com/phrazzld/worksheetgen/internal/config"
	"github.com/phrazzld/worksheetgen/internal/generation"
	"github.com/phrazzld/worksheetgen/internal/platform/logger"
)

const finishReasonContentFilter = "content_filter"

// Generator implements generation.Client using OpenAI chat completions.
type Generator struct {
	logger      *slog.Logger
	client      openai.Client
	model       string
	temperature float64
	maxTokens   int64
	prompts     *generation.PromptBuilder
}

var _ generation.Client = (*Generator)(nil)

// NewGenerator creates a Generator from the LLM configuration.
func NewGenerator(logger *slog.Logger, cfg config.LLMConfig) (*Generator, error) {
	if logger == nil {
		return nil, fmt.Errorf("%w: logger cannot be nil", generation.ErrInvalidConfig)
	}
	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("%w: openai API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.OpenAIModel == "" {
		return nil, fmt.Errorf("%w: openai model cannot be empty", generation.ErrInvalidConfig)
	}

	prompts, err := generation.NewPromptBuilder(cfg.PromptTemplatePath)
	if err != nil {
		return nil, err
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.OpenAIAPIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 2000
	}

	return &Generator{
		logger:      logger.With(slog.String("component", "openai_generator")),
		client:      openai.NewClient(opts...),
		model:       cfg.OpenAIModel,
		temperature: float64(cfg.Temperature),
		maxTokens:   maxTokens,
		prompts:     prompts,
	}, nil
}

// Generate implements generation.Client.
func (g *Generator) Generate(ctx context.Context, text string, count int) (generation.RawResponse, error) {
	log := logger.FromContextOrDefault(ctx, g.logger)

	prompt, err := g.prompts.Build(text, count)
	if err != nil {
		return nil, err
	}

	log.DebugContext(ctx, "calling OpenAI chat completions",
		slog.String("model", g.model),
		slog.Int("prompt_length", len(prompt)))

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: g.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(generation.SystemInstruction),
			openai.UserMessage(prompt),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
		Temperature: openai.Float(g.temperature),
		MaxTokens:   openai.Int(g.maxTokens),
	})
	if err != nil {
		err = classifyError(err)
		log.ErrorContext(ctx, "OpenAI call failed", slog.String("error", err.Error()))
		return nil, err
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in response", generation.ErrMalformedResponse)
	}
	choice := resp.Choices[0]
	if string(choice.FinishReason) == finishReasonContentFilter {
		return nil, generation.ErrContentBlocked
	}

	log.DebugContext(ctx, "OpenAI call succeeded",
		slog.Int64("prompt_tokens", resp.Usage.PromptTokens),
		slog.Int64("completion_tokens", resp.Usage.CompletionTokens))

	return generation.DecodeRawResponse(choice.Message.Content)
}

// classifyError maps SDK errors onto the generation taxonomy.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", generation.ErrTransient, err)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", generation.ErrGenerationClient, err)
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		code := apiErr.StatusCode
		if code == http.StatusTooManyRequests || code == http.StatusRequestTimeout || code >= 500 {
			return fmt.Errorf("%w: openai status %d: %w", generation.ErrTransient, code, err)
		}
		return fmt.Errorf("%w: openai status %d: %w", generation.ErrGenerationClient, code, err)
	}

	return fmt.Errorf("%w: %w", generation.ErrTransient, err)
}
