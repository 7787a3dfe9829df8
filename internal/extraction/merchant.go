package extraction

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	merchantStructuralWords = regexp.MustCompile(`receipt|invoice|bill|date|time|address|phone|www\.|\.com`)
	digitsOnly              = regexp.MustCompile(`^\d+$`)
)

// merchantSearchLines is how far down the receipt the merchant is looked for.
const merchantSearchLines = 3

// ExtractMerchant guesses the merchant from the top of the receipt. A header
// line that fails every filter is still preferred over the sentinel.
func ExtractMerchant(lines []string) string {
	if len(lines) == 0 {
		return UnknownMerchant
	}

	top := lines
	if len(top) > merchantSearchLines {
		top = top[:merchantSearchLines]
	}
	for _, line := range top {
		if looksLikeMerchant(line) {
			return line
		}
	}
	return top[0]
}

func looksLikeMerchant(line string) bool {
	lower := strings.ToLower(strings.TrimSpace(line))
	if merchantStructuralWords.MatchString(lower) {
		return false
	}
	if n := utf8.RuneCountInString(lower); n < 3 || n > 50 {
		return false
	}
	return !digitsOnly.MatchString(lower)
}
