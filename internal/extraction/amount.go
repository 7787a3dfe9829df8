package extraction

import (
	"regexp"

	"github.com/shopspring/decimal"
)

var (
	// labeledAmountPatterns are tried in order on every line; the first line
	// with any plausible match wins.
	labeledAmountPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)grand\s+total[:\s]*\$?\s*(\d+\.?\d{0,2})`),
		regexp.MustCompile(`(?i)total[:\s]*\$?\s*(\d+\.?\d{0,2})`),
		regexp.MustCompile(`(?i)balance[:\s]*\$?\s*(\d+\.?\d{0,2})`),
		regexp.MustCompile(`(?i)amount[:\s]*\$?\s*(\d+\.?\d{0,2})`),
		regexp.MustCompile(`\$\s*(\d+\.?\d{0,2})`),
	}
	trailingAmountPattern = regexp.MustCompile(`(\d+\.\d{2})\s*$`)
	priceTokenPattern     = regexp.MustCompile(`\d+\.\d{2}`)

	maxReceiptAmount = decimal.NewFromInt(100000)
)

// ExtractAmount returns the most likely receipt total, or an invalid
// NullDecimal when nothing plausible is found.
func ExtractAmount(lines []string) decimal.NullDecimal {
	for _, line := range lines {
		for _, pattern := range labeledAmountPatterns {
			if amount, ok := matchAmount(pattern, line); ok {
				return decimal.NewNullDecimal(amount)
			}
		}
	}

	for _, line := range lines {
		if amount, ok := matchAmount(trailingAmountPattern, line); ok {
			return decimal.NewNullDecimal(amount)
		}
	}

	// Totals are usually the largest price on the receipt.
	var (
		largest decimal.Decimal
		found   bool
	)
	for _, line := range lines {
		for _, token := range priceTokenPattern.FindAllString(line, -1) {
			amount, err := decimal.NewFromString(token)
			if err != nil || !plausibleTotal(amount) {
				continue
			}
			if !found || amount.GreaterThan(largest) {
				largest = amount
				found = true
			}
		}
	}
	if found {
		return decimal.NewNullDecimal(largest)
	}

	return decimal.NullDecimal{}
}

func matchAmount(pattern *regexp.Regexp, line string) (decimal.Decimal, bool) {
	match := pattern.FindStringSubmatch(line)
	if match == nil {
		return decimal.Decimal{}, false
	}
	amount, err := parseAmount(match[1])
	if err != nil || !plausibleTotal(amount) {
		return decimal.Decimal{}, false
	}
	return amount, true
}

// parseAmount accepts tokens such as "12", "12." and "12.5".
func parseAmount(token string) (decimal.Decimal, error) {
	if n := len(token); n > 0 && token[n-1] == '.' {
		token = token[:n-1]
	}
	return decimal.NewFromString(token)
}

func plausibleTotal(amount decimal.Decimal) bool {
	return amount.IsPositive() && amount.LessThan(maxReceiptAmount)
}
