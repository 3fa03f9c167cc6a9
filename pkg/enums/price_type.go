package enums

import "fmt"

// PriceType describes how a product's price is quoted.
type PriceType string

const (
	PriceTypePerKg   PriceType = "per_kg"
	PriceTypePerUnit PriceType = "per_unit"
	PriceTypePerBag  PriceType = "per_bag"
)

var validPriceTypes = []PriceType{PriceTypePerKg, PriceTypePerUnit, PriceTypePerBag}

// IsValid reports whether the value is a known PriceType.
func (p PriceType) IsValid() bool {
	for _, candidate := range validPriceTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePriceType converts raw input into a PriceType.
func ParsePriceType(value string) (PriceType, error) {
	for _, candidate := range validPriceTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid price type %q", value)
}
