package categorize

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"

	"github.com/shopspring/decimal"
)

// Suggestion sources
const (
	SourceExternal = "external-model"
	SourceKeyword  = "keyword-matching"
	SourceDefault  = "default"
)

const (
	keywordConfidence = 0.6
	defaultConfidence = 0.3
	// replyConfidence stands in when the model's own confidence is unusable
	replyConfidence = 0.7
)

// Suggestion is the response returned to callers.
type Suggestion struct {
	Success    bool    `json:"success"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
	Source     string  `json:"source"`
}

// Outcome is either an ExternalResult or a FallbackResult.
type Outcome interface {
	Suggestion() Suggestion
}

// ExternalResult is a category chosen by the external model.
type ExternalResult struct {
	Category   string
	Confidence float64
	Reasoning  string
}

func (r ExternalResult) Suggestion() Suggestion {
	return Suggestion{
		Success:    true,
		Category:   r.Category,
		Confidence: r.Confidence,
		Reasoning:  r.Reasoning,
		Source:     SourceExternal,
	}
}

// FallbackResult is a keyword or default category. Cause is why the external
// model was not used, nil when no model is configured.
type FallbackResult struct {
	Category   string
	Confidence float64
	Reasoning  string
	Keyword    string
	Cause      error
}

func (r FallbackResult) Suggestion() Suggestion {
	source := SourceKeyword
	if r.Keyword == "" {
		source = SourceDefault
	}
	return Suggestion{
		Success:    true,
		Category:   r.Category,
		Confidence: r.Confidence,
		Reasoning:  r.Reasoning,
		Source:     source,
	}
}

// Suggester categorizes expense descriptions
type Suggester struct {
	model Model
	cache *Cache
}

// NewSuggester creates a Suggester. A nil model means keyword matching only.
func NewSuggester(model Model, cache *Cache) *Suggester {
	if cache == nil {
		cache = NewCache(DefaultCacheSize, DefaultCacheTTL)
	}
	return &Suggester{
		model: model,
		cache: cache,
	}
}

// Suggest returns a category suggestion. It never fails; model errors fall
// back to keyword matching. Only external results are cached.
func (s *Suggester) Suggest(ctx context.Context, description string, amount *decimal.Decimal) Suggestion {
	if cached, ok := s.cache.Get(description); ok {
		slog.Debug("Category cache hit", "description", description)
		return cached
	}

	outcome := s.Classify(ctx, description, amount)
	suggestion := outcome.Suggestion()
	if _, ok := outcome.(ExternalResult); ok {
		s.cache.Set(description, suggestion)
	}
	return suggestion
}

// Classify asks the model without consulting the cache.
func (s *Suggester) Classify(ctx context.Context, description string, amount *decimal.Decimal) Outcome {
	if s.model == nil {
		return fallback(description, nil)
	}

	reply, err := s.model.Categorize(ctx, description, amount)
	if err != nil {
		slog.Error("Failed to categorize expense", "description", description, "error", err)
		return fallback(description, err)
	}

	outcome, err := parseReply(reply)
	if err != nil {
		slog.Warn("Unusable categorization reply", "description", description, "error", err)
		return fallback(description, err)
	}
	return outcome
}

// Categories returns every category a suggestion may carry
func (s *Suggester) Categories() []string {
	return append([]string(nil), ExpenseCategories...)
}

// CacheStats returns the cache statistics
func (s *Suggester) CacheStats() CacheStats {
	return s.cache.Stats()
}

// ClearCache drops all cached suggestions
func (s *Suggester) ClearCache() {
	s.cache.Clear()
	slog.Info("Category cache cleared")
}

var jsonObject = regexp.MustCompile(`(?s)\{.*\}`)

type modelReply struct {
	Category   string `json:"category"`
	Confidence any    `json:"confidence"`
	Reasoning  string `json:"reasoning"`
}

// parseReply reads the model's JSON, ignoring any text around it.
func parseReply(reply string) (ExternalResult, error) {
	raw := reply
	if m := jsonObject.FindString(reply); m != "" {
		raw = m
	}

	var parsed modelReply
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return ExternalResult{}, fmt.Errorf("parsing reply: %w", err)
	}
	if !IsCategory(parsed.Category) {
		return ExternalResult{}, fmt.Errorf("unknown category %q", parsed.Category)
	}

	reasoning := parsed.Reasoning
	if reasoning == "" {
		reasoning = "AI-based categorization"
	}

	confidence, ok := replyConfidenceValue(parsed.Confidence)
	if !ok {
		confidence = replyConfidence
		reasoning += " (confidence not reported, defaulted)"
	}

	return ExternalResult{
		Category:   parsed.Category,
		Confidence: confidence,
		Reasoning:  reasoning,
	}, nil
}

func replyConfidenceValue(v any) (float64, bool) {
	var f float64
	switch c := v.(type) {
	case float64:
		f = c
	case string:
		parsed, err := strconv.ParseFloat(c, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if f < 0 || f > 1 {
		return 0, false
	}
	return f, true
}

func fallback(description string, cause error) FallbackResult {
	if category, keyword, ok := matchKeyword(description); ok {
		return FallbackResult{
			Category:   category,
			Confidence: keywordConfidence,
			Reasoning:  fmt.Sprintf("Matched keyword: %q", keyword),
			Keyword:    keyword,
			Cause:      cause,
		}
	}
	return FallbackResult{
		Category:   Other,
		Confidence: defaultConfidence,
		Reasoning:  "No specific category match found",
		Cause:      cause,
	}
}
