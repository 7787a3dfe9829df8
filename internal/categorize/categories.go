// Package categorize suggests a category for a manually entered expense. It
// asks an external language model first and falls back to keyword matching.
//
// The category set here is the manual-entry set and is larger than the one
// the receipt pipeline classifies into.
package categorize

import "strings"

// Other is returned when nothing better fits
const Other = "Other"

// ExpenseCategories lists every category a suggestion may carry.
var ExpenseCategories = []string{
	"Food & Dining",
	"Transportation",
	"Housing & Utilities",
	"Shopping & Retail",
	"Entertainment",
	"Healthcare",
	"Education",
	"Fitness & Wellness",
	"Business & Work",
	"Travel",
	"Financial Services",
	"Gifts & Donations",
	"Maintenance & Repairs",
	"Subscriptions",
	Other,
}

// IsCategory reports whether name is one of ExpenseCategories (exact match).
func IsCategory(name string) bool {
	for _, c := range ExpenseCategories {
		if c == name {
			return true
		}
	}
	return false
}

type keywordGroup struct {
	category string
	keywords []string
}

// fallbackKeywords is checked in order; the first hit wins.
var fallbackKeywords = []keywordGroup{
	{"Food & Dining", []string{"food", "restaurant", "cafe", "pizza", "burger", "dinner", "lunch", "breakfast", "starbucks", "mcdonald", "domino", "subway", "grocery", "supermarket"}},
	{"Transportation", []string{"uber", "lyft", "taxi", "gas", "fuel", "petrol", "parking", "metro", "train", "bus", "flight", "car"}},
	{"Housing & Utilities", []string{"rent", "mortgage", "electricity", "water", "internet", "wifi", "utility", "housing"}},
	{"Shopping & Retail", []string{"amazon", "walmart", "target", "shop", "store", "clothing", "clothes", "shoes", "mall"}},
	{"Entertainment", []string{"movie", "cinema", "netflix", "spotify", "game", "concert", "theater", "entertainment"}},
	{"Healthcare", []string{"doctor", "hospital", "pharmacy", "medicine", "medical", "health", "clinic", "dental"}},
	{"Education", []string{"school", "college", "university", "course", "book", "tuition", "education", "learning"}},
	{"Fitness & Wellness", []string{"gym", "fitness", "yoga", "sport", "wellness", "workout", "exercise"}},
	{"Business & Work", []string{"office", "supplies", "software", "business", "work", "meeting"}},
	{"Travel", []string{"hotel", "airbnb", "booking", "travel", "vacation", "trip", "airline"}},
	{"Financial Services", []string{"bank", "fee", "atm", "transfer", "payment", "insurance"}},
	{"Gifts & Donations", []string{"gift", "donation", "charity", "present"}},
	{"Maintenance & Repairs", []string{"repair", "fix", "maintenance", "service", "plumber", "electrician"}},
	{"Subscriptions", []string{"subscription", "monthly", "annual", "membership", "premium"}},
}

// matchKeyword returns the first category whose keyword occurs in
// description, case-insensitively.
func matchKeyword(description string) (category, keyword string, ok bool) {
	desc := strings.ToLower(description)
	for _, group := range fallbackKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(desc, kw) {
				return group.category, kw, true
			}
		}
	}
	return "", "", false
}
