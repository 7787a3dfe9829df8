// Package extraction turns raw receipt text into expense drafts.
//
// Every stage is a pure function of its input. The only stateful piece is the
// Pipeline, which holds an immutable clock and timeout and may be shared by
// concurrent callers.
package extraction

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// UnknownMerchant is used when no merchant line can be identified.
const UnknownMerchant = "Unknown Merchant"

// dateLayout is the ISO calendar date format used for every draft.
const dateLayout = "2006-01-02"

// RawText is the output of a text source for one receipt image.
type RawText struct {
	Text string
	// Confidence is the recognizer's overall confidence (0-100), nil when the
	// engine does not report one.
	Confidence *float64
}

// LineItem is one (description, amount) pair found on a single receipt line.
type LineItem struct {
	Description string
	Amount      decimal.Decimal
}

// ExpenseDraft is a suggested expense. Callers should treat it as editable.
type ExpenseDraft struct {
	Amount      decimal.NullDecimal `json:"-"`
	Description string              `json:"description"`
	Date        string              `json:"date"`
	Merchant    string              `json:"merchant"`
	Category    Category            `json:"category"`
	Confidence  int                 `json:"confidence"`
}

// ReceiptResult is the assembled output for one receipt.
type ReceiptResult struct {
	Multiple bool           `json:"multiple"`
	Items    []ExpenseDraft `json:"items"`
	RawText  string         `json:"rawText"`
}

type draftJSON struct {
	Amount *float64 `json:"amount"`
	draftAlias
}

type draftAlias ExpenseDraft

// MarshalJSON encodes the amount as a JSON number, or null when absent.
func (d ExpenseDraft) MarshalJSON() ([]byte, error) {
	out := draftJSON{draftAlias: draftAlias(d)}
	if d.Amount.Valid {
		f := d.Amount.Decimal.InexactFloat64()
		out.Amount = &f
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts a numeric or null amount.
func (d *ExpenseDraft) UnmarshalJSON(data []byte) error {
	var in draftJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("unmarshaling expense draft: %w", err)
	}
	*d = ExpenseDraft(in.draftAlias)
	d.Amount = decimal.NullDecimal{}
	if in.Amount != nil {
		d.Amount = decimal.NewNullDecimal(decimal.NewFromFloat(*in.Amount).Round(2))
	}
	return nil
}

// Confidence scores a draft: 40 for a positive amount, 30 for a date and 30
// for a real merchant.
func Confidence(amount decimal.NullDecimal, date, merchant string) int {
	score := 0
	if amount.Valid && amount.Decimal.IsPositive() {
		score += 40
	}
	if date != "" {
		score += 30
	}
	if merchant != "" && merchant != UnknownMerchant {
		score += 30
	}
	return score
}
