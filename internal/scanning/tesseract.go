package scanning

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/zombor/receipt-ledger/internal/extraction"
)

// Runner executes an external command with stdin
type Runner interface {
	Run(ctx context.Context, stdin []byte, name string, args ...string) (stdout, stderr []byte, err error)
}

// execRunner runs commands with os/exec
type execRunner struct{}

func (execRunner) Run(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = bytes.NewReader(stdin)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// TesseractConfig holds settings for the tesseract CLI
type TesseractConfig struct {
	Path    string // tesseract binary, "tesseract" by default
	Lang    string // "eng" by default
	PSM     int    // page segmentation mode, 0 leaves tesseract's default
	Enhance bool   // run the imaging enhancement before recognition
}

// Tesseract implements Source by piping a PNG through the tesseract CLI in
// TSV mode, which gives both the words and a per-word confidence.
type Tesseract struct {
	cfg    TesseractConfig
	runner Runner
}

// NewTesseract creates a new Tesseract Source instance
func NewTesseract(cfg TesseractConfig) *Tesseract {
	return NewTesseractWithRunner(cfg, execRunner{})
}

// NewTesseractWithRunner creates a Tesseract Source with a custom runner for testing
func NewTesseractWithRunner(cfg TesseractConfig, runner Runner) *Tesseract {
	if cfg.Path == "" {
		cfg.Path = "tesseract"
	}
	if cfg.Lang == "" {
		cfg.Lang = "eng"
	}
	return &Tesseract{cfg: cfg, runner: runner}
}

// ReadText recognizes the receipt text and the mean word confidence
func (t *Tesseract) ReadText(ctx context.Context, imageData []byte, contentType string) (extraction.RawText, error) {
	pngData, err := preparePNG(imageData, contentType, t.cfg.Enhance)
	if err != nil {
		return extraction.RawText{}, err
	}

	// tesseract stdin stdout -l <lang> [--psm N] tsv
	args := []string{"stdin", "stdout", "-l", t.cfg.Lang}
	if t.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(t.cfg.PSM))
	}
	args = append(args, "tsv")

	out, errb, err := t.runner.Run(ctx, pngData, t.cfg.Path, args...)
	if err != nil {
		return extraction.RawText{}, fmt.Errorf("running tesseract: %w: %s", err, strings.TrimSpace(string(errb)))
	}

	text, confidence := parseTSV(string(out))
	if strings.TrimSpace(text) == "" {
		return extraction.RawText{}, ErrNoText
	}
	return extraction.RawText{Text: text, Confidence: confidence}, nil
}

// Close is a no-op for the CLI
func (t *Tesseract) Close() error {
	return nil
}

type tsvLineKey struct {
	page, block, par, line string
}

// parseTSV rebuilds line-ordered text from tesseract TSV output and returns
// the mean confidence of recognized words, nil when there are none.
func parseTSV(tsv string) (string, *float64) {
	var (
		order []tsvLineKey
		words = make(map[tsvLineKey][]string)
		sum   float64
		n     int
	)

	for i, row := range strings.Split(tsv, "\n") {
		if i == 0 || row == "" {
			continue // header
		}
		cols := strings.Split(strings.TrimRight(row, "\r"), "\t")
		if len(cols) < 12 || cols[0] != "5" {
			continue // only word rows carry text
		}
		word := strings.TrimSpace(cols[11])
		if word == "" {
			continue
		}

		key := tsvLineKey{page: cols[1], block: cols[2], par: cols[3], line: cols[4]}
		if _, seen := words[key]; !seen {
			order = append(order, key)
		}
		words[key] = append(words[key], word)

		if conf, err := strconv.ParseFloat(cols[10], 64); err == nil && conf >= 0 {
			sum += conf
			n++
		}
	}

	lines := make([]string, 0, len(order))
	for _, key := range order {
		lines = append(lines, strings.Join(words[key], " "))
	}

	if n == 0 {
		return strings.Join(lines, "\n"), nil
	}
	mean := sum / float64(n)
	return strings.Join(lines, "\n"), &mean
}
