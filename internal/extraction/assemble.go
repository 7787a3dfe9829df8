package extraction

import (
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
)

// AssemblyState tracks where the assembler is in turning lines into drafts.
type AssemblyState int

const (
	StateExtracting AssemblyState = iota
	StateMultiItem
	StateSingleItem
	StateAssembled
)

func (s AssemblyState) String() string {
	switch s {
	case StateExtracting:
		return "extracting"
	case StateMultiItem:
		return "multi-item"
	case StateSingleItem:
		return "single-item"
	case StateAssembled:
		return "assembled"
	default:
		return "unknown"
	}
}

// assembler walks the states for one receipt. It is not reused.
type assembler struct {
	state   AssemblyState
	lines   []string
	rawText string
	date    string
	merch   string
	items   []LineItem
}

// Assemble builds the drafts for one receipt. Line items produce one draft
// each; without them a single draft is built from the receipt total.
func Assemble(rawText string, now time.Time) ReceiptResult {
	lines := SegmentLines(rawText)
	a := &assembler{
		state:   StateExtracting,
		lines:   lines,
		rawText: rawText,
		date:    ExtractDate(lines, now),
		merch:   ExtractMerchant(lines),
	}
	a.extract()

	var result ReceiptResult
	switch a.state {
	case StateMultiItem:
		result = a.multiItem()
	case StateSingleItem:
		result = a.singleItem()
	}
	a.transition(StateAssembled)
	return result
}

func (a *assembler) transition(to AssemblyState) {
	slog.Debug("Receipt assembly state", "from", a.state, "to", to, "lines", len(a.lines))
	a.state = to
}

func (a *assembler) extract() {
	a.items = ExtractLineItems(a.lines)
	if len(a.items) > 0 {
		a.transition(StateMultiItem)
		return
	}
	a.transition(StateSingleItem)
}

func (a *assembler) multiItem() ReceiptResult {
	drafts := make([]ExpenseDraft, 0, len(a.items))
	for _, item := range a.items {
		context := item.Description
		if context == "" {
			context = a.merch
		}
		amount := decimal.NewNullDecimal(item.Amount)
		drafts = append(drafts, ExpenseDraft{
			Amount:      amount,
			Description: item.Description,
			Date:        a.date,
			Merchant:    a.merch,
			Category:    Classify(context, a.rawText),
			Confidence:  Confidence(amount, a.date, a.merch),
		})
	}
	return ReceiptResult{Multiple: true, Items: drafts, RawText: a.rawText}
}

func (a *assembler) singleItem() ReceiptResult {
	amount := ExtractAmount(a.lines)
	draft := ExpenseDraft{
		Amount:      amount,
		Description: a.merch,
		Date:        a.date,
		Merchant:    a.merch,
		Category:    Classify(a.merch, a.rawText),
		Confidence:  Confidence(amount, a.date, a.merch),
	}
	return ReceiptResult{Multiple: false, Items: []ExpenseDraft{draft}, RawText: a.rawText}
}
