package extraction

import "strings"

// Category is one of the fixed receipt categories.
type Category string

const (
	CategoryFoodDining     Category = "Food & Dining"
	CategoryGroceries      Category = "Groceries"
	CategoryTransportation Category = "Transportation"
	CategoryShoppingRetail Category = "Shopping & Retail"
	CategoryHealthcare     Category = "Healthcare"
	CategoryEntertainment  Category = "Entertainment"
	CategoryHousingUtility Category = "Housing & Utilities"
	CategoryOther          Category = "Other"
)

// Categories lists every receipt category.
var Categories = []Category{
	CategoryFoodDining,
	CategoryGroceries,
	CategoryTransportation,
	CategoryShoppingRetail,
	CategoryHealthcare,
	CategoryEntertainment,
	CategoryHousingUtility,
	CategoryOther,
}

type keywordGroup struct {
	category Category
	keywords []string
}

// merchantKeywordGroups are evaluated in order; the first group with a hit
// wins, so "walmart" is Groceries and never Shopping & Retail.
var merchantKeywordGroups = []keywordGroup{
	{CategoryFoodDining, []string{"restaurant", "cafe", "coffee", "pizza", "burger", "food", "dining", "starbucks", "mcdonalds", "subway", "dominos", "kfc"}},
	{CategoryGroceries, []string{"grocery", "supermarket", "market", "walmart", "target", "costco", "whole foods", "trader joe"}},
	{CategoryTransportation, []string{"uber", "lyft", "taxi", "gas", "fuel", "shell", "chevron", "parking", "transit"}},
	{CategoryShoppingRetail, []string{"amazon", "ebay", "store", "shop", "mall", "retail", "clothing", "fashion"}},
	{CategoryHealthcare, []string{"pharmacy", "drug", "cvs", "walgreens", "hospital", "clinic", "doctor", "medical", "health"}},
	{CategoryEntertainment, []string{"movie", "cinema", "theater", "game", "spotify", "netflix", "entertainment"}},
}

// utilityKeywords are matched against the whole receipt, not the merchant.
var utilityKeywords = []string{"electric", "water", "gas bill", "utility", "internet", "phone bill"}

// Classify maps the primary text (merchant or item description) to a
// category, consulting the full receipt text only for utility bills.
func Classify(primary, fullText string) Category {
	primary = strings.ToLower(primary)
	for _, group := range merchantKeywordGroups {
		if containsAny(primary, group.keywords) {
			return group.category
		}
	}

	if containsAny(strings.ToLower(fullText), utilityKeywords) {
		return CategoryHousingUtility
	}
	return CategoryOther
}

// Valid reports whether c belongs to the receipt category set.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

func containsAny(s string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(s, keyword) {
			return true
		}
	}
	return false
}
