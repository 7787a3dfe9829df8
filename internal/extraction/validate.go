package extraction

import (
	"regexp"
	"strings"
	"time"
)

const (
	maxMerchantLength    = 50
	maxDescriptionLength = 100
)

var freeTextNoise = regexp.MustCompile(`[^\w\s&'-]`)

// Validate repairs a draft in place of raising: amounts are rounded to cents
// and negatives dropped, missing dates become today, free text is stripped
// and truncated. Confidence is rescored from the repaired fields.
func Validate(draft ExpenseDraft, now time.Time) ExpenseDraft {
	if draft.Amount.Valid {
		if draft.Amount.Decimal.IsNegative() {
			draft.Amount.Valid = false
		} else {
			draft.Amount.Decimal = draft.Amount.Decimal.Round(2)
		}
	}

	if !IsCalendarDate(draft.Date) {
		draft.Date = now.Format(dateLayout)
	}

	draft.Merchant = cleanText(draft.Merchant, maxMerchantLength)
	if draft.Merchant == "" {
		draft.Merchant = UnknownMerchant
	}
	draft.Description = cleanText(draft.Description, maxDescriptionLength)
	if draft.Description == "" {
		draft.Description = draft.Merchant
	}

	if !draft.Category.Valid() {
		draft.Category = CategoryOther
	}

	// Repairs can drop the amount or the merchant, so score what is left.
	draft.Confidence = Confidence(draft.Amount, draft.Date, draft.Merchant)
	return draft
}

// ValidateResult validates every item of an assembled receipt.
func ValidateResult(result ReceiptResult, now time.Time) ReceiptResult {
	items := make([]ExpenseDraft, 0, len(result.Items))
	for _, item := range result.Items {
		items = append(items, Validate(item, now))
	}
	result.Items = items
	return result
}

func cleanText(s string, max int) string {
	s = strings.TrimSpace(freeTextNoise.ReplaceAllString(s, ""))
	return strings.TrimSpace(truncateRunes(s, max))
}
