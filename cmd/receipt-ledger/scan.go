package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/peterbourgon/ff/v4"
	"github.com/schollz/progressbar/v3"

	"github.com/zombor/receipt-ledger/internal/extraction"
	"github.com/zombor/receipt-ledger/internal/receipt"
)

type scanConfig struct {
	concurrency *int
	format      *string
	progress    *bool
}

func newScanCommand(root *rootConfig, parent *ff.FlagSet, stdout io.Writer) *ff.Command {
	fs := ff.NewFlagSet("scan").SetParent(parent)
	cfg := &scanConfig{
		concurrency: fs.IntLong("concurrency", 4, "Receipts processed at once"),
		format:      fs.StringLong("format", "text", "Output format: 'text' or 'json'"),
		progress:    fs.BoolLong("progress", "Show a progress bar on stderr"),
	}

	return &ff.Command{
		Name:      "scan",
		Usage:     "receipt-ledger scan [FLAGS] <image>...",
		ShortHelp: "extract expense drafts from receipt images",
		Flags:     fs,
		Exec: func(ctx context.Context, args []string) error {
			if err := root.before(); err != nil {
				return err
			}
			if len(args) == 0 {
				return fmt.Errorf("at least one image is required")
			}
			if *cfg.format != "text" && *cfg.format != "json" {
				return fmt.Errorf("invalid format %q (valid: text, json)", *cfg.format)
			}

			source, err := root.source.newSource()
			if err != nil {
				return fmt.Errorf("initializing source: %w", err)
			}
			defer source.Close()

			images, err := readImages(args)
			if err != nil {
				return err
			}

			pipeline := extraction.NewPipeline(*root.source.timeout)
			outcomes := runBatch(ctx, pipeline, source, images, *cfg.concurrency, *cfg.progress)

			if err := writeOutcomes(stdout, *cfg.format, outcomes); err != nil {
				return err
			}
			return batchError(outcomes)
		},
	}
}

// readImages loads every path, guessing the content type from its extension
func readImages(paths []string) ([]extraction.Image, error) {
	images := make([]extraction.Image, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		images = append(images, extraction.Image{
			Name:        filepath.Base(path),
			Data:        data,
			ContentType: receipt.DetectContentType("", path),
		})
	}
	return images, nil
}

func runBatch(ctx context.Context, pipeline *extraction.Pipeline, source extraction.TextSource, images []extraction.Image, limit int, showProgress bool) []extraction.BatchOutcome {
	if !showProgress {
		return pipeline.ProcessBatch(ctx, source, images, limit)
	}

	bar := newProgressBar(os.Stderr, len(images))
	return pipeline.ProcessBatchFunc(ctx, source, images, limit, func(outcome extraction.BatchOutcome) {
		if err := bar.Add(1); err != nil {
			slog.Warn("Failed to update progress bar", "error", err)
		}
	})
}

func newProgressBar(w io.Writer, total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Scanning receipts...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(w); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)
}

// scanOutput is the JSON shape of one scanned image
type scanOutput struct {
	Name          string                    `json:"name"`
	Success       bool                      `json:"success"`
	Error         string                    `json:"error,omitempty"`
	Result        *extraction.ReceiptResult `json:"result,omitempty"`
	OCRConfidence *float64                  `json:"ocr_confidence,omitempty"`
}

func writeOutcomes(w io.Writer, format string, outcomes []extraction.BatchOutcome) error {
	if format == "json" {
		out := make([]scanOutput, 0, len(outcomes))
		for _, o := range outcomes {
			entry := scanOutput{Name: o.Name, Success: o.Err == nil}
			if o.Err != nil {
				entry.Error = o.Err.Error()
			} else {
				entry.Result = &o.Scan.Result
				entry.OCRConfidence = o.Scan.OCRConfidence
			}
			out = append(out, entry)
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	_, err := io.WriteString(w, renderText(outcomes))
	return err
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func renderText(outcomes []extraction.BatchOutcome) string {
	var b strings.Builder
	for i, o := range outcomes {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(headerStyle.Render(o.Name))
		b.WriteString("\n")

		if o.Err != nil {
			fmt.Fprintf(&b, "  %s\n", errorStyle.Render("failed: "+o.Err.Error()))
			continue
		}

		for _, item := range o.Scan.Result.Items {
			amount := mutedStyle.Render("no amount")
			if item.Amount.Valid {
				amount = "$" + item.Amount.Decimal.StringFixed(2)
			}
			fmt.Fprintf(&b, "  %-10s %-30s %s  %s %s\n",
				amount,
				item.Description,
				item.Date,
				item.Category,
				mutedStyle.Render(fmt.Sprintf("(%d%%)", item.Confidence)),
			)
		}
		if o.Scan.OCRConfidence != nil {
			fmt.Fprintf(&b, "  %s\n", mutedStyle.Render(fmt.Sprintf("ocr confidence %.1f", *o.Scan.OCRConfidence)))
		}
	}
	return b.String()
}

// batchError reports how many images could not be read
func batchError(outcomes []extraction.BatchOutcome) error {
	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
		}
	}
	if failed == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d receipts could not be read", failed, len(outcomes))
}
