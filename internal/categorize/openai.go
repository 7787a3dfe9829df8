package categorize

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/shopspring/decimal"
)

const (
	openAIDefaultModel = "gpt-3.5-turbo"
	systemPrompt       = "You are an expert financial assistant specializing in categorizing expenses accurately. Respond ONLY with valid JSON."
)

// Model asks an external language model to categorize an expense and returns
// its raw reply.
type Model interface {
	Categorize(ctx context.Context, description string, amount *decimal.Decimal) (string, error)
}

// OpenAIConfig holds configuration for the OpenAI chat model.
type OpenAIConfig struct {
	APIKey     string
	Model      string        // "gpt-3.5-turbo" (default)
	BaseURL    string        // Optional (tests, compatible servers)
	MaxRetries int           // Retry attempts for SDK transport
	Timeout    time.Duration // HTTP timeout
	HTTPClient *http.Client  // Optional (tests)
}

// OpenAIModel implements Model with the OpenAI chat completions API.
type OpenAIModel struct {
	model  string
	client openai.Client
}

// NewOpenAIModel creates a new OpenAI-backed Model.
func NewOpenAIModel(cfg OpenAIConfig) (*OpenAIModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = openAIDefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIModel{
		model:  cfg.Model,
		client: openai.NewClient(opts...),
	}, nil
}

// Categorize sends the categorization prompt and returns the reply text.
func (m *OpenAIModel) Categorize(ctx context.Context, description string, amount *decimal.Decimal) (string, error) {
	resp, err := m.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(m.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(categorizationPrompt(description, amount)),
		},
		Temperature: openai.Float(0.3),
		MaxTokens:   openai.Int(150),
	})
	if err != nil {
		return "", fmt.Errorf("creating chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in openai response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func categorizationPrompt(description string, amount *decimal.Decimal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Categorize this expense into ONE of these categories: [%s]\n\n", strings.Join(ExpenseCategories, ", "))
	fmt.Fprintf(&b, "Expense Description: %q", description)
	if amount != nil && !amount.IsZero() {
		fmt.Fprintf(&b, "\nAmount: $%s", amount.StringFixed(2))
	}
	b.WriteString(`

Respond ONLY with valid JSON in this exact format:
{
  "category": "exact category name from the list",
  "confidence": 0.95,
  "reasoning": "brief explanation"
}

Rules:
- Choose the MOST appropriate category
- confidence should be 0.0 to 1.0
- Use "Other" only if truly unclear
- Be consistent with similar expenses`)
	return b.String()
}
