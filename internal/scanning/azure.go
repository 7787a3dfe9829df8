package scanning

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/Azure/azure-sdk-for-go/services/cognitiveservices/v3.0/computervision"
	"github.com/Azure/go-autorest/autorest"

	"github.com/zombor/receipt-ledger/internal/extraction"
)

// ocrClient is the part of the computervision client the Azure source uses
type ocrClient interface {
	RecognizePrintedTextInStream(ctx context.Context, detectOrientation bool, imageParameter io.ReadCloser, language computervision.OcrLanguages) (computervision.OcrResult, error)
}

// Azure implements the Source interface using Azure Computer Vision OCR
type Azure struct {
	client  ocrClient
	enhance bool
}

// NewAzure creates a new Azure Source instance
func NewAzure(endpoint, apiKey string, enhance bool) (*Azure, error) {
	if endpoint == "" || apiKey == "" {
		return nil, fmt.Errorf("azure endpoint and api key are required")
	}

	client := computervision.New(endpoint)
	client.Authorizer = autorest.NewCognitiveServicesAuthorizer(apiKey)

	return NewAzureWithClient(&client, enhance), nil
}

// NewAzureWithClient creates an Azure Source with a custom client for testing
func NewAzureWithClient(client ocrClient, enhance bool) *Azure {
	return &Azure{client: client, enhance: enhance}
}

// ReadText runs printed text recognition. Azure's OCR endpoint reports no
// confidence.
func (a *Azure) ReadText(ctx context.Context, imageData []byte, contentType string) (extraction.RawText, error) {
	pngData, err := preparePNG(imageData, contentType, a.enhance)
	if err != nil {
		return extraction.RawText{}, err
	}

	result, err := a.client.RecognizePrintedTextInStream(
		ctx,
		true,
		io.NopCloser(bytes.NewReader(pngData)),
		computervision.OcrLanguages(computervision.En),
	)
	if err != nil {
		return extraction.RawText{}, fmt.Errorf("recognizing printed text: %w", err)
	}

	lines := azureLines(result)
	if len(lines) == 0 {
		return extraction.RawText{}, ErrNoText
	}
	return extraction.RawText{Text: strings.Join(lines, "\n")}, nil
}

// Close is a no-op for the REST client
func (a *Azure) Close() error {
	return nil
}

type ocrLine struct {
	text   string
	x, y   int
	height int
	boxed  bool
}

// azureLines flattens the OCR regions into top-to-bottom lines. Azure splits
// a receipt into column regions, so "Total:" and its price come back in
// different regions; lines sharing a baseline are joined again.
func azureLines(result computervision.OcrResult) []string {
	if result.Regions == nil {
		return nil
	}

	var boxed, unboxed []ocrLine
	for _, region := range *result.Regions {
		if region.Lines == nil {
			continue
		}
		for _, line := range *region.Lines {
			text := ocrLineText(line)
			if text == "" {
				continue
			}
			l := ocrLine{text: text}
			if line.BoundingBox != nil {
				if box := parseBoundingBox(*line.BoundingBox); len(box) == 4 {
					l.x, l.y, l.height, l.boxed = box[0], box[1], box[3], true
				}
			}
			if l.boxed {
				boxed = append(boxed, l)
			} else {
				unboxed = append(unboxed, l)
			}
		}
	}

	sort.SliceStable(boxed, func(i, j int) bool {
		if boxed[i].y != boxed[j].y {
			return boxed[i].y < boxed[j].y
		}
		return boxed[i].x < boxed[j].x
	})

	var lines []string
	for i := 0; i < len(boxed); {
		row := []ocrLine{boxed[i]}
		j := i + 1
		for ; j < len(boxed) && boxed[j].y-boxed[i].y <= boxed[i].height/2; j++ {
			row = append(row, boxed[j])
		}
		sort.SliceStable(row, func(a, b int) bool { return row[a].x < row[b].x })

		parts := make([]string, 0, len(row))
		for _, l := range row {
			parts = append(parts, l.text)
		}
		lines = append(lines, strings.Join(parts, " "))
		i = j
	}

	for _, l := range unboxed {
		lines = append(lines, l.text)
	}
	return lines
}

func ocrLineText(line computervision.OcrLine) string {
	if line.Words == nil {
		return ""
	}
	words := make([]string, 0, len(*line.Words))
	for _, word := range *line.Words {
		if word.Text != nil && *word.Text != "" {
			words = append(words, *word.Text)
		}
	}
	return strings.Join(words, " ")
}

// parseBoundingBox reads Azure's "x,y,width,height" box
func parseBoundingBox(s string) []int {
	var box []int
	for _, part := range strings.Split(s, ",") {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil
		}
		box = append(box, v)
	}
	return box
}
