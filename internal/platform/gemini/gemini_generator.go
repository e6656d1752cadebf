package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/phrazzld/worksheetgen/internal/config"
	"github.com/phrazzld/worksheetgen/internal/generation"
	"github.com/phrazzld/worksheetgen/internal/platform/logger"
	"google.golang.org/genai"
)

// Generator implements generation.Client using the Gemini API.
type Generator struct {
	logger      *slog.Logger
	client      *genai.Client
	model       string
	temperature float32
	prompts     *generation.PromptBuilder
}

var _ generation.Client = (*Generator)(nil)

// NewGenerator creates a Generator from the LLM configuration.
//
// Parameters:
//   - ctx: Context for client initialization
//   - logger: A structured logger; must not be nil
//   - cfg: LLM configuration with the Gemini API key and model name
//
// Returns:
//   - A ready Generator, or an error matching generation.ErrInvalidConfig
func NewGenerator(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Generator, error) {
	if logger == nil {
		return nil, fmt.Errorf("%w: logger cannot be nil", generation.ErrInvalidConfig)
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.GeminiModel == "" {
		return nil, fmt.Errorf("%w: gemini model cannot be empty", generation.ErrInvalidConfig)
	}

	prompts, err := generation.NewPromptBuilder(cfg.PromptTemplatePath)
	if err != nil {
		return nil, err
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: strings.TrimSuffix(cfg.BaseURL, "/") + "/"}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", generation.ErrInvalidConfig, err)
	}

	logger.InfoContext(ctx, "initialized Gemini generator", slog.String("model", cfg.GeminiModel))

	return &Generator{
		logger:      logger.With(slog.String("component", "gemini_generator")),
		client:      client,
		model:       cfg.GeminiModel,
		temperature: cfg.Temperature,
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

	temperature := g.temperature
	genConfig := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: generation.SystemInstruction}}},
		Temperature:       &temperature,
		ResponseMIMEType:  "application/json",
	}
	contents := []*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: prompt}}}}

	log.DebugContext(ctx, "calling Gemini API",
		slog.String("model", g.model),
		slog.Int("prompt_length", len(prompt)))

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, genConfig)
	if err != nil {
		err = classifyError(err)
		log.ErrorContext(ctx, "Gemini API call failed", slog.String("error", err.Error()))
		return nil, err
	}

	content, err := responseText(resp)
	if err != nil {
		log.WarnContext(ctx, "unusable Gemini response", slog.String("error", err.Error()))
		return nil, err
	}

	return generation.DecodeRawResponse(content)
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("%w: nil response", generation.ErrMalformedResponse)
	}
	if resp.PromptFeedback != nil && string(resp.PromptFeedback.BlockReason) != "" {
		return "", fmt.Errorf("%w: prompt blocked: %s", generation.ErrContentBlocked, resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return "", fmt.Errorf("%w: no candidates in response", generation.ErrMalformedResponse)
	}
	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", generation.ErrContentBlocked
	}
	if candidate.Content == nil {
		return "", fmt.Errorf("%w: empty content in response", generation.ErrMalformedResponse)
	}

	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	return b.String(), nil
}

// classifyError maps SDK errors onto the generation taxonomy.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", generation.ErrTransient, err)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", generation.ErrGenerationClient, err)
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: gemini API status %d: %s", statusClass(apiErr.Code), apiErr.Code, apiErr.Message)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return fmt.Errorf("%w: gemini API status %d: %s", statusClass(apiErrPtr.Code), apiErrPtr.Code, apiErrPtr.Message)
	}

	// Anything else is a transport failure.
	return fmt.Errorf("%w: %w", generation.ErrTransient, err)
}

func statusClass(code int) error {
	if code == http.StatusTooManyRequests || code == http.StatusRequestTimeout || code >= 500 {
		return generation.ErrTransient
	}
	return generation.ErrGenerationClient
}
