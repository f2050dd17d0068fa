// Package feed defines the ingredient records that make up a feed catalog
// and the rules for admitting them.
package feed

import (
	"strings"
)

// Ingredient is one feed available for inclusion. Nutrient contents are
// expressed on a dry-matter basis.
type Ingredient struct {
	Name               string   `json:"name" validate:"required"`
	Category           Category `json:"category" validate:"required,category"`
	PricePerKgDM       float64  `json:"pricePerKgDM" validate:"finite,gte=0"`
	NetEnergyLactation float64  `json:"nelMcalPerKg" validate:"finite,gte=0"`
	CrudeProteinPct    float64  `json:"crudeProteinPct" validate:"finite,gte=0,lte=100"`
	NDFPct             float64  `json:"ndfPct" validate:"finite,gte=0,lte=100"`
	StarchPct          float64  `json:"starchPct" validate:"finite,gte=0,lte=100"`
	FatPct             float64  `json:"fatPct" validate:"finite,gte=0,lte=100"`
	MinKgDM            float64  `json:"minKgDM" validate:"finite,gte=0"`
	MaxKgDM            Bound    `json:"maxKgDM" validate:"-"`
}

// IsForage reports whether the ingredient counts toward the forage minimum.
func (i Ingredient) IsForage() bool {
	return i.Category.IsForage()
}

// Normalize trims the name, canonicalizes the category and, when no
// category was given, infers one from the name. It reports whether the
// category was inferred.
func (i *Ingredient) Normalize() bool {
	i.Name = strings.TrimSpace(i.Name)
	if i.Category == "" {
		i.Category = ClassifyByName(i.Name)
		return true
	}
	if canonical, ok := ParseCategory(string(i.Category)); ok {
		i.Category = canonical
	}
	return false
}
