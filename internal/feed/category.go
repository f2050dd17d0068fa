package feed

import "strings"

// Category classifies an ingredient. Only CategoryForage takes part in the
// forage minimum; the remaining categories are descriptive.
type Category string

const (
	CategoryForage      Category = "forage"
	CategoryConcentrate Category = "concentrate"
	CategoryByproduct   Category = "byproduct"
	CategorySupplement  Category = "supplement"
)

// Categories lists the supported categories.
var Categories = []Category{CategoryForage, CategoryConcentrate, CategoryByproduct, CategorySupplement}

// IsForage reports whether the category counts toward the forage minimum.
func (c Category) IsForage() bool {
	return c == CategoryForage
}

// ParseCategory returns the canonical category for value, accepting a few
// common spellings.
func ParseCategory(value string) (Category, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "forage", "roughage":
		return CategoryForage, true
	case "concentrate", "grain", "non-forage", "nonforage":
		return CategoryConcentrate, true
	case "byproduct", "by-product", "by_product":
		return CategoryByproduct, true
	case "supplement", "mineral", "additive":
		return CategorySupplement, true
	default:
		return "", false
	}
}

var forageMarkers = []string{"silage", "haylage", "hay", "straw", "pasture", "grass"}

// ClassifyByName guesses a category from an ingredient name. It is only
// used when a catalog entry arrives without an explicit category.
func ClassifyByName(name string) Category {
	lower := strings.ToLower(name)
	for _, marker := range forageMarkers {
		if strings.Contains(lower, marker) {
			return CategoryForage
		}
	}
	return CategoryConcentrate
}
