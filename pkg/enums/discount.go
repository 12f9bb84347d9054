package enums

import "fmt"

// DiscountAppliesTo selects the part of the draft total a discount reduces.
type DiscountAppliesTo string

const (
	DiscountAppliesToOrder    DiscountAppliesTo = "order"
	DiscountAppliesToShipping DiscountAppliesTo = "shipping"
)

var validDiscountTargets = []DiscountAppliesTo{
	DiscountAppliesToOrder,
	DiscountAppliesToShipping,
}

// IsValid reports whether the value is a known DiscountAppliesTo.
func (d DiscountAppliesTo) IsValid() bool {
	for _, candidate := range validDiscountTargets {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDiscountAppliesTo converts raw input into a DiscountAppliesTo.
func ParseDiscountAppliesTo(value string) (DiscountAppliesTo, error) {
	for _, candidate := range validDiscountTargets {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid discount target %q", value)
}

// DiscountType is how a discount value is interpreted.
type DiscountType string

const (
	DiscountTypePercent DiscountType = "percent"
	DiscountTypeFixed   DiscountType = "fixed"
)

var validDiscountTypes = []DiscountType{
	DiscountTypePercent,
	DiscountTypeFixed,
}

// IsValid reports whether the value is a known DiscountType.
func (d DiscountType) IsValid() bool {
	for _, candidate := range validDiscountTypes {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDiscountType converts raw input into a DiscountType.
func ParseDiscountType(value string) (DiscountType, error) {
	for _, candidate := range validDiscountTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid discount type %q", value)
}
