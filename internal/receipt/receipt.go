// Package receipt stores scanned receipts and the ledger expenses committed
// from them, and serves both over HTTP.
package receipt

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/zombor/receipt-ledger/internal/extraction"
)

var (
	// ErrNotFound is returned when a scan, expense or file does not exist
	ErrNotFound = errors.New("not found")

	// ErrNoItems is returned when an expense commit carries no drafts
	ErrNoItems = errors.New("at least one item is required")

	// ErrMissingAmount is returned when a draft cannot be booked without an amount
	ErrMissingAmount = errors.New("amount is required")
)

// Scan is one uploaded receipt image together with what was read from it
type Scan struct {
	ID            string                   `json:"id"`
	Filename      string                   `json:"filename"`
	ContentType   string                   `json:"content_type"`
	Result        extraction.ReceiptResult `json:"result"`
	OCRConfidence *float64                 `json:"ocr_confidence"`
	RawLines      []string                 `json:"raw_lines"`
	CreatedAt     time.Time                `json:"created_at"`
	UpdatedAt     time.Time                `json:"updated_at"`
}

// Expense is a ledger entry booked from a reviewed draft
type Expense struct {
	ID          string              `json:"id"`
	ScanID      string              `json:"scan_id,omitempty"` // scan the draft came from, empty for manual entries
	Amount      decimal.Decimal     `json:"amount"`
	Description string              `json:"description"`
	Date        string              `json:"date"` // YYYY-MM-DD
	Merchant    string              `json:"merchant"`
	Category    extraction.Category `json:"category"`
	Confidence  int                 `json:"confidence"`
	CreatedAt   time.Time           `json:"created_at"`
}
