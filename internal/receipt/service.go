package receipt

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zombor/receipt-ledger/internal/categorize"
	"github.com/zombor/receipt-ledger/internal/extraction"
)

// IDGenerator generates unique IDs for scans and expenses
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// uuidGenerator generates random UUIDs
type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service handles scan and expense operations
type Service struct {
	db          DB
	source      extraction.TextSource
	pipeline    *extraction.Pipeline
	storage     Storage
	suggester   *categorize.Suggester
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with default ID generator and time source
func NewService(db DB, source extraction.TextSource, pipeline *extraction.Pipeline, storage Storage, suggester *categorize.Suggester) *Service {
	return NewServiceWithDeps(db, source, pipeline, storage, suggester, &uuidGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, source extraction.TextSource, pipeline *extraction.Pipeline, storage Storage, suggester *categorize.Suggester, idGen IDGenerator, timeSrc TimeSource) *Service {
	if pipeline == nil {
		pipeline = extraction.NewPipeline(extraction.DefaultSourceTimeout)
	}
	if suggester == nil {
		suggester = categorize.NewSuggester(nil, nil)
	}
	return &Service{
		db:          db,
		source:      source,
		pipeline:    pipeline,
		storage:     storage,
		suggester:   suggester,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

var (
	filenameNoise  = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	filenameSpaces = regexp.MustCompile(`\s+`)
)

// sanitizeFilename cleans up a filename by removing special characters and truncating length
func sanitizeFilename(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filepath.Base(filename), ext)

	base = filenameNoise.ReplaceAllString(base, "")
	base = filenameSpaces.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	// phone cameras produce very long names
	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "receipt"
	}

	return base + strings.ToLower(ext)
}

// ScanReceipt stores the upload, reads it through the text source and saves
// the scan. When no text can be read the file is removed and the
// *extraction.SourceFailure is returned.
func (s *Service) ScanReceipt(ctx context.Context, filename string, data []byte, contentType string) (*Scan, error) {
	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	savedPath, err := s.storage.Save(fmt.Sprintf("%s_%s", id, sanitizeFilename(filename)), data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	result, err := s.pipeline.Process(ctx, s.source, extraction.Image{
		Name:        filename,
		Data:        data,
		ContentType: contentType,
	})
	if err != nil {
		s.removeFile(savedPath)
		return nil, fmt.Errorf("scanning receipt: %w", err)
	}

	scan := &Scan{
		ID:            id,
		Filename:      savedPath,
		ContentType:   contentType,
		Result:        result.Result,
		OCRConfidence: result.OCRConfidence,
		RawLines:      result.RawLines,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.db.SaveScan(scan); err != nil {
		s.removeFile(savedPath)
		return nil, fmt.Errorf("saving scan to database: %w", err)
	}

	slog.Info("Scanned receipt",
		"id", id,
		"filename", filename,
		"items", len(scan.Result.Items),
	)
	return scan, nil
}

func (s *Service) removeFile(path string) {
	if err := s.storage.Delete(path); err != nil {
		slog.Warn("Failed to delete file", "filename", path, "error", err)
	}
}

// ParseText runs extraction on text that was recognized elsewhere
func (s *Service) ParseText(text string) extraction.ReceiptResult {
	return s.pipeline.Parse(text)
}

// GetScan retrieves a scan by ID
func (s *Service) GetScan(id string) (*Scan, error) {
	scan, err := s.db.GetScan(id)
	if err != nil {
		return nil, fmt.Errorf("getting scan: %w", err)
	}
	return scan, nil
}

// ListScans returns all scans, newest first
func (s *Service) ListScans() ([]*Scan, error) {
	scans, err := s.db.ListScans()
	if err != nil {
		return nil, fmt.Errorf("listing scans: %w", err)
	}
	slices.SortFunc(scans, func(a, b *Scan) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return scans, nil
}

// DeleteScan removes a scan and its file. Expenses booked from it stay.
func (s *Service) DeleteScan(id string) error {
	scan, err := s.db.GetScan(id)
	if err != nil {
		return fmt.Errorf("getting scan for deletion: %w", err)
	}

	s.removeFile(scan.Filename)

	if err := s.db.DeleteScan(id); err != nil {
		return fmt.Errorf("deleting scan from database: %w", err)
	}
	return nil
}

// GetScanFile retrieves the uploaded image for a scan
func (s *Service) GetScanFile(id string) ([]byte, string, error) {
	scan, err := s.db.GetScan(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting scan: %w", err)
	}

	data, err := s.storage.Get(scan.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("getting scan file: %w", err)
	}

	return data, scan.ContentType, nil
}

// CommitExpenses books reviewed drafts into the ledger. Drafts are validated
// again since the caller may have edited them, and every draft needs an
// amount. Nothing is saved unless all drafts are accepted.
func (s *Service) CommitExpenses(scanID string, drafts []extraction.ExpenseDraft) ([]*Expense, error) {
	if len(drafts) == 0 {
		return nil, ErrNoItems
	}
	if scanID != "" {
		if _, err := s.db.GetScan(scanID); err != nil {
			return nil, fmt.Errorf("getting scan %s: %w", scanID, err)
		}
	}

	now := s.timeSource.Now()
	expenses := make([]*Expense, 0, len(drafts))
	for i, draft := range drafts {
		draft = extraction.Validate(draft, now)
		if !draft.Amount.Valid {
			return nil, fmt.Errorf("item %d: %w", i+1, ErrMissingAmount)
		}
		expenses = append(expenses, &Expense{
			ID:          s.idGenerator.Generate(),
			ScanID:      scanID,
			Amount:      draft.Amount.Decimal,
			Description: draft.Description,
			Date:        draft.Date,
			Merchant:    draft.Merchant,
			Category:    draft.Category,
			Confidence:  draft.Confidence,
			CreatedAt:   now,
		})
	}

	if err := s.db.SaveExpenses(expenses); err != nil {
		return nil, fmt.Errorf("saving expenses: %w", err)
	}
	return expenses, nil
}

// ListExpenses returns all expenses, most recent date first
func (s *Service) ListExpenses() ([]*Expense, error) {
	expenses, err := s.db.ListExpenses()
	if err != nil {
		return nil, fmt.Errorf("listing expenses: %w", err)
	}
	slices.SortFunc(expenses, func(a, b *Expense) int {
		if c := cmp.Compare(b.Date, a.Date); c != 0 {
			return c
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return expenses, nil
}

// DeleteExpense removes an expense from the ledger
func (s *Service) DeleteExpense(id string) error {
	if err := s.db.DeleteExpense(id); err != nil {
		return fmt.Errorf("deleting expense: %w", err)
	}
	return nil
}

// SuggestCategory proposes a category for a manually entered expense
func (s *Service) SuggestCategory(ctx context.Context, description string, amount *decimal.Decimal) categorize.Suggestion {
	return s.suggester.Suggest(ctx, description, amount)
}

// Categories returns the manual-entry categories
func (s *Service) Categories() []string {
	return s.suggester.Categories()
}

// CategoryCacheStats returns the suggestion cache statistics
func (s *Service) CategoryCacheStats() categorize.CacheStats {
	return s.suggester.CacheStats()
}

// ClearCategoryCache drops all cached suggestions
func (s *Service) ClearCategoryCache() {
	s.suggester.ClearCache()
}

// isNotFound reports whether err means the record does not exist
func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
