package feed

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/iwvelando/tmr-formulator/internal/domain"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	mustRegister(v, "finite", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	})
	mustRegister(v, "category", func(fl validator.FieldLevel) bool {
		value := Category(fl.Field().String())
		for _, c := range Categories {
			if value == c {
				return true
			}
		}
		return false
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("feed: register %s validation: %v", tag, err))
	}
}

// Validate checks the ingredient's field domains and inclusion bounds.
func (i Ingredient) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return domain.InvalidInputf("ingredient name is required")
	}
	if err := validate.Struct(i); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return domain.InvalidInputf("ingredient %q: %v", i.Name, err)
		}
		problems := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			problems = append(problems, fe.Field()+" "+describe(fe))
		}
		return domain.InvalidInputf("ingredient %q: %s", i.Name, strings.Join(problems, "; "))
	}

	if limit, ok := i.MaxKgDM.Value(); ok {
		switch {
		case math.IsNaN(limit) || math.IsInf(limit, 0):
			return domain.InvalidInputf("ingredient %q: maxKgDM must be a finite number", i.Name)
		case limit < 0:
			return domain.InvalidInputf("ingredient %q: maxKgDM must be >= 0, got %g", i.Name, limit)
		case limit < i.MinKgDM:
			return domain.InvalidInputf("ingredient %q: maxKgDM %g is below minKgDM %g", i.Name, limit, i.MinKgDM)
		}
	}
	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "finite":
		return "must be a finite number"
	case "gte":
		return fmt.Sprintf("must be >= %s, got %v", fe.Param(), fe.Value())
	case "lte":
		return fmt.Sprintf("must be <= %s, got %v", fe.Param(), fe.Value())
	case "category":
		return fmt.Sprintf("must be one of %v, got %q", Categories, fe.Value())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// ValidateAll validates every ingredient and rejects an empty list or
// duplicate names. Names are compared case-insensitively, ignoring
// surrounding whitespace.
func ValidateAll(ingredients []Ingredient) error {
	if len(ingredients) == 0 {
		return domain.InvalidInputf("feed catalog is empty")
	}
	seen := make(map[string]int, len(ingredients))
	for idx, ingredient := range ingredients {
		if err := ingredient.Validate(); err != nil {
			return err
		}
		key := strings.ToLower(strings.TrimSpace(ingredient.Name))
		if first, dup := seen[key]; dup {
			return domain.InvalidInputf("duplicate ingredient name %q (entries %d and %d)", ingredient.Name, first+1, idx+1)
		}
		seen[key] = idx
	}
	return nil
}
