package scanning

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/zombor/receipt-ledger/internal/extraction"
)

// Gemini implements the Source interface using Google Gemini as an OCR engine
type Gemini struct {
	client  *genai.Client
	model   *genai.GenerativeModel
	enhance bool
}

// NewGemini creates a new Gemini Source instance
func NewGemini(apiKey string, modelName string, enhance bool) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0)

	return &Gemini{
		client:  client,
		model:   model,
		enhance: enhance,
	}, nil
}

// ReadText transcribes the receipt. Gemini reports no confidence.
func (g *Gemini) ReadText(ctx context.Context, imageData []byte, contentType string) (extraction.RawText, error) {
	pngData, err := preparePNG(imageData, contentType, g.enhance)
	if err != nil {
		return extraction.RawText{}, err
	}

	// genai.ImageData expects just the format suffix, and everything is PNG by now
	parts := []genai.Part{
		genai.ImageData("png", pngData),
		genai.Text(transcribePrompt),
	}

	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return extraction.RawText{}, fmt.Errorf("generating content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return extraction.RawText{}, fmt.Errorf("no response from gemini")
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			responseText.WriteString(string(text))
		}
	}

	text, ok := cleanTranscript(responseText.String())
	if !ok {
		return extraction.RawText{}, ErrNoText
	}
	return extraction.RawText{Text: text}, nil
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}
