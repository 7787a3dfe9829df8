package extraction

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

type dateParser func(match []string) (time.Time, bool)

type datePattern struct {
	re    *regexp.Regexp
	parse dateParser
}

var datePatterns = []datePattern{
	{
		// MM/DD/YYYY or MM-DD-YYYY, two digit years allowed
		re:    regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})[/-](\d{4}|\d{2})\b`),
		parse: parseNumericDate,
	},
	{
		// Month DD, YYYY
		re:    regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+(\d{1,2}),?\s+(\d{4})\b`),
		parse: parseTextualDate,
	},
	{
		// YYYY-MM-DD
		re:    regexp.MustCompile(`\b(\d{4})[/-](\d{1,2})[/-](\d{1,2})\b`),
		parse: parseISODate,
	},
}

var monthAbbreviations = map[string]time.Month{
	"jan": time.January,
	"feb": time.February,
	"mar": time.March,
	"apr": time.April,
	"may": time.May,
	"jun": time.June,
	"jul": time.July,
	"aug": time.August,
	"sep": time.September,
	"oct": time.October,
	"nov": time.November,
	"dec": time.December,
}

// ExtractDate returns the first valid date found in the lines as YYYY-MM-DD,
// falling back to today's date from now.
func ExtractDate(lines []string, now time.Time) string {
	if date, ok := FindDate(lines); ok {
		return date
	}
	return now.Format(dateLayout)
}

// FindDate is ExtractDate without the fallback.
func FindDate(lines []string) (string, bool) {
	for _, line := range lines {
		for _, pattern := range datePatterns {
			match := pattern.re.FindStringSubmatch(line)
			if match == nil {
				continue
			}
			if date, ok := pattern.parse(match); ok {
				return date.Format(dateLayout), true
			}
		}
	}
	return "", false
}

func parseNumericDate(match []string) (time.Time, bool) {
	first, _ := strconv.Atoi(match[1])
	second, _ := strconv.Atoi(match[2])
	year := expandYear(match[3])

	if date, ok := calendarDate(year, first, second); ok {
		return date, true
	}
	// Day-first receipts (DD/MM/YYYY)
	return calendarDate(year, second, first)
}

func parseTextualDate(match []string) (time.Time, bool) {
	month, ok := monthAbbreviations[strings.ToLower(match[1])]
	if !ok {
		return time.Time{}, false
	}
	day, _ := strconv.Atoi(match[2])
	year, _ := strconv.Atoi(match[3])
	return calendarDate(year, int(month), day)
}

func parseISODate(match []string) (time.Time, bool) {
	year, _ := strconv.Atoi(match[1])
	month, _ := strconv.Atoi(match[2])
	day, _ := strconv.Atoi(match[3])
	return calendarDate(year, month, day)
}

func expandYear(s string) int {
	year, _ := strconv.Atoi(s)
	if len(s) == 2 {
		if year < 50 {
			return 2000 + year
		}
		return 1900 + year
	}
	return year
}

// calendarDate rejects dates that time.Date would normalize, like Feb 30.
func calendarDate(year, month, day int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 {
		return time.Time{}, false
	}
	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if date.Year() != year || int(date.Month()) != month || date.Day() != day {
		return time.Time{}, false
	}
	return date, true
}

// IsCalendarDate reports whether s is a valid YYYY-MM-DD date.
func IsCalendarDate(s string) bool {
	_, err := time.Parse(dateLayout, s)
	return err == nil
}
