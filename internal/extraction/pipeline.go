package extraction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultSourceTimeout bounds a single call to a TextSource.
const DefaultSourceTimeout = 30 * time.Second

// TextSource recognizes the text on a receipt image.
type TextSource interface {
	ReadText(ctx context.Context, image []byte, contentType string) (RawText, error)
}

// Clock provides the current time
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// SourceFailure is returned when no text could be read from the image. It is
// the only failure the pipeline reports; missing fields are not errors.
type SourceFailure struct {
	Err error
}

func (e *SourceFailure) Error() string {
	return fmt.Sprintf("reading receipt text: %v", e.Err)
}

func (e *SourceFailure) Unwrap() error {
	return e.Err
}

// IsSourceFailure reports whether err carries a *SourceFailure.
func IsSourceFailure(err error) bool {
	var failure *SourceFailure
	return errors.As(err, &failure)
}

// Image is one receipt upload.
type Image struct {
	Name        string
	Data        []byte
	ContentType string
}

// Scan is the pipeline output for one image.
type Scan struct {
	Result        ReceiptResult
	OCRConfidence *float64
	RawLines      []string
}

// BatchOutcome pairs an image with its scan or failure.
type BatchOutcome struct {
	Name string
	Scan *Scan
	Err  error
}

// Pipeline runs text recognition followed by extraction and validation.
type Pipeline struct {
	clock   Clock
	timeout time.Duration
}

// NewPipeline creates a Pipeline using the system clock
func NewPipeline(timeout time.Duration) *Pipeline {
	return NewPipelineWithClock(timeout, systemClock{})
}

// NewPipelineWithClock creates a Pipeline with a custom clock for testing
func NewPipelineWithClock(timeout time.Duration, clock Clock) *Pipeline {
	if timeout <= 0 {
		timeout = DefaultSourceTimeout
	}
	return &Pipeline{
		clock:   clock,
		timeout: timeout,
	}
}

// Parse extracts and validates drafts from already recognized text.
func (p *Pipeline) Parse(text string) ReceiptResult {
	now := p.clock.Now()
	return ValidateResult(Assemble(text, now), now)
}

// Process reads the image through source and parses the result. The source
// call is cancelled after the pipeline timeout.
func (p *Pipeline) Process(ctx context.Context, source TextSource, image Image) (*Scan, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	raw, err := p.readText(ctx, source, image)
	if err != nil {
		slog.Error("Failed to read receipt text",
			"name", image.Name,
			"content_type", image.ContentType,
			"size", len(image.Data),
			"error", err,
		)
		return nil, &SourceFailure{Err: err}
	}

	result := p.Parse(raw.Text)
	slog.Debug("Assembled receipt",
		"name", image.Name,
		"multiple", result.Multiple,
		"items", len(result.Items),
	)

	return &Scan{
		Result:        result,
		OCRConfidence: raw.Confidence,
		RawLines:      SegmentLines(raw.Text),
	}, nil
}

type readResult struct {
	raw RawText
	err error
}

// readText returns when the source does or when ctx ends, whichever is first,
// so a source that ignores its context still cannot hold the caller.
func (p *Pipeline) readText(ctx context.Context, source TextSource, image Image) (RawText, error) {
	done := make(chan readResult, 1)
	go func() {
		raw, err := source.ReadText(ctx, image.Data, image.ContentType)
		done <- readResult{raw: raw, err: err}
	}()

	select {
	case <-ctx.Done():
		return RawText{}, ctx.Err()
	case r := <-done:
		return r.raw, r.err
	}
}

// ProcessBatch processes images concurrently, at most limit at a time
// (unbounded when limit <= 0). Outcomes are returned in input order and a
// failed image does not stop the others.
func (p *Pipeline) ProcessBatch(ctx context.Context, source TextSource, images []Image, limit int) []BatchOutcome {
	return p.ProcessBatchFunc(ctx, source, images, limit, nil)
}

// ProcessBatchFunc is ProcessBatch with a callback invoked as each image
// finishes. onDone may be called from several goroutines at once.
func (p *Pipeline) ProcessBatchFunc(ctx context.Context, source TextSource, images []Image, limit int, onDone func(BatchOutcome)) []BatchOutcome {
	outcomes := make([]BatchOutcome, len(images))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, image := range images {
		g.Go(func() error {
			scan, err := p.Process(ctx, source, image)
			outcomes[i] = BatchOutcome{Name: image.Name, Scan: scan, Err: err}
			if onDone != nil {
				onDone(outcomes[i])
			}
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}
