package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/peterbourgon/ff/v4"

	"github.com/zombor/receipt-ledger/internal/extraction"
	"github.com/zombor/receipt-ledger/internal/scanning"
)

// sourceConfig selects and configures the OCR engine
type sourceConfig struct {
	kind          *string
	timeout       *time.Duration
	enhance       *bool
	tesseractPath *string
	tesseractLang *string
	tesseractPSM  *int
	geminiKey     *string
	geminiModel   *string
	ollamaURL     *string
	ollamaModel   *string
	azureEndpoint *string
	azureKey      *string
}

func (c *sourceConfig) register(fs *ff.FlagSet) {
	c.kind = fs.StringLong("source", "tesseract", "OCR engine: 'tesseract', 'gemini', 'ollama' or 'azure'")
	c.timeout = fs.DurationLong("ocr-timeout", extraction.DefaultSourceTimeout, "Upper bound for a single OCR call")
	c.enhance = fs.BoolLong("enhance", "Grayscale, sharpen and boost contrast before OCR")
	c.tesseractPath = fs.StringLong("tesseract-path", "tesseract", "Path to the tesseract binary")
	c.tesseractLang = fs.StringLong("tesseract-lang", "eng", "Tesseract language")
	c.tesseractPSM = fs.IntLong("tesseract-psm", 4, "Tesseract page segmentation mode (0 for the default)")
	c.geminiKey = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
	c.geminiModel = fs.StringLong("gemini-model", "gemini-2.5-flash", "Google Gemini model name")
	c.ollamaURL = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
	c.ollamaModel = fs.StringLong("ollama-model", "llava", "Ollama vision model name (e.g., llava, qwen2-vl)")
	c.azureEndpoint = fs.StringLong("azure-endpoint", "", "Azure Computer Vision endpoint")
	c.azureKey = fs.StringLong("azure-key", "", "Azure Computer Vision key (or set AZURE_VISION_KEY env var)")
}

// newSource builds the configured OCR engine
func (c *sourceConfig) newSource() (scanning.Source, error) {
	switch *c.kind {
	case "tesseract":
		slog.Info("Initializing Tesseract source...", "path", *c.tesseractPath, "lang", *c.tesseractLang)
		return scanning.NewTesseract(scanning.TesseractConfig{
			Path:    *c.tesseractPath,
			Lang:    *c.tesseractLang,
			PSM:     *c.tesseractPSM,
			Enhance: *c.enhance,
		}), nil
	case "gemini":
		apiKey := firstNonEmpty(*c.geminiKey, os.Getenv("GEMINI_API_KEY"))
		if apiKey == "" {
			return nil, fmt.Errorf("gemini API key is required: set --gemini-key or GEMINI_API_KEY")
		}
		slog.Info("Initializing Gemini source...", "model", *c.geminiModel)
		return scanning.NewGemini(apiKey, *c.geminiModel, *c.enhance)
	case "ollama":
		slog.Info("Initializing Ollama source...", "url", *c.ollamaURL, "model", *c.ollamaModel)
		return scanning.NewOllama(*c.ollamaURL, *c.ollamaModel, *c.enhance)
	case "azure":
		apiKey := firstNonEmpty(*c.azureKey, os.Getenv("AZURE_VISION_KEY"))
		slog.Info("Initializing Azure source...", "endpoint", *c.azureEndpoint)
		return scanning.NewAzure(*c.azureEndpoint, apiKey, *c.enhance)
	default:
		return nil, fmt.Errorf("invalid source %q (valid: tesseract, gemini, ollama, azure)", *c.kind)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
