package extraction

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

var (
	// noiseLine marks headers, footers and totals that never hold an item.
	// Keywords match anywhere in the line except tax, which must be a whole
	// word so "Taxi Fare" stays an item.
	noiseLine       = regexp.MustCompile(`(?i)total|payment|balance|receipt|invoice|thank|date|address|phone|e-?mail|www\.|\.com|\btax(?:es)?\b`)
	lineItemPattern = regexp.MustCompile(`^(.+?)\s+\$?\s*(\d+\.?\d{0,2})$`)

	maxLineItemAmount = decimal.NewFromInt(10000)
)

const (
	minLineItemLength = 5
	minDescriptionLen = 3
)

// ExtractLineItems returns every "<description> <amount>" line in order. An
// empty result is normal and means the receipt only has a total.
func ExtractLineItems(lines []string) []LineItem {
	items := make([]LineItem, 0)
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if utf8.RuneCountInString(line) < minLineItemLength || noiseLine.MatchString(line) {
			continue
		}
		// "Jan 15, 2024" would otherwise read as an item costing 2024.
		if _, ok := FindDate([]string{line}); ok {
			continue
		}

		match := lineItemPattern.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		description := strings.TrimSpace(match[1])
		amount, err := parseAmount(match[2])
		if err != nil {
			continue
		}
		if !amount.IsPositive() || !amount.LessThan(maxLineItemAmount) {
			continue
		}
		if utf8.RuneCountInString(description) < minDescriptionLen {
			continue
		}

		items = append(items, LineItem{
			Description: truncateRunes(description, maxDescriptionLength),
			Amount:      amount,
		})
	}
	return items
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
