// Package discount evaluates discount rules against a draft order total.
package discount

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

var (
	ErrInactive     = errors.New("discount code is not active")
	ErrBelowMinimum = errors.New("order total below discount minimum")
	ErrInvalidRule  = errors.New("invalid discount rule")
)

var hundred = decimal.NewFromInt(100)

// Rule is the evaluable form of a discount code.
type Rule struct {
	Code          string
	AppliesTo     enums.DiscountAppliesTo
	Type          enums.DiscountType
	Value         int64
	MaxAmount     *int64
	MinOrderTotal int64
	Active        bool
	StartsAt      *time.Time
	EndsAt        *time.Time
}

// Draft is the order total before any discount.
type Draft struct {
	Subtotal    int64
	ShippingFee int64
}

// Total returns subtotal plus shipping.
func (d Draft) Total() int64 {
	return d.Subtotal + d.ShippingFee
}

// Result carries the discount taken and the resulting total.
type Result struct {
	Amount int64
	Total  int64
}

// RuleFromModel converts a persisted discount code.
func RuleFromModel(m models.DiscountCode) Rule {
	return Rule{
		Code:          m.Code,
		AppliesTo:     m.AppliesTo,
		Type:          m.Type,
		Value:         m.Value,
		MaxAmount:     m.MaxAmount,
		MinOrderTotal: m.MinOrderTotal,
		Active:        m.Active,
		StartsAt:      m.StartsAt,
		EndsAt:        m.EndsAt,
	}
}

// Validate checks the rule shape independently of any draft.
func (r Rule) Validate() error {
	if strings.TrimSpace(r.Code) == "" {
		return fmt.Errorf("%w: code is required", ErrInvalidRule)
	}
	if !r.AppliesTo.IsValid() {
		return fmt.Errorf("%w: applies_to %q", ErrInvalidRule, r.AppliesTo)
	}
	switch r.Type {
	case enums.DiscountTypePercent:
		if r.Value <= 0 || r.Value > 100 {
			return fmt.Errorf("%w: percent must be within (0, 100]", ErrInvalidRule)
		}
	case enums.DiscountTypeFixed:
		if r.Value <= 0 {
			return fmt.Errorf("%w: fixed value must be positive", ErrInvalidRule)
		}
	default:
		return fmt.Errorf("%w: type %q", ErrInvalidRule, r.Type)
	}
	if r.MaxAmount != nil && *r.MaxAmount < 0 {
		return fmt.Errorf("%w: max_amount must be non-negative", ErrInvalidRule)
	}
	return nil
}

// ActiveAt reports whether the rule may be redeemed at the given instant.
func (r Rule) ActiveAt(now time.Time) bool {
	if !r.Active {
		return false
	}
	if r.StartsAt != nil && now.Before(*r.StartsAt) {
		return false
	}
	if r.EndsAt != nil && now.After(*r.EndsAt) {
		return false
	}
	return true
}

// Apply computes the discount for the draft. The discount never exceeds the
// part of the draft it targets, so the total is never negative.
func Apply(rule Rule, draft Draft, now time.Time) (Result, error) {
	if err := rule.Validate(); err != nil {
		return Result{}, err
	}
	if !rule.ActiveAt(now) {
		return Result{}, ErrInactive
	}
	if draft.Subtotal < rule.MinOrderTotal {
		return Result{}, ErrBelowMinimum
	}

	base := draft.Subtotal
	if rule.AppliesTo == enums.DiscountAppliesToShipping {
		base = draft.ShippingFee
	}
	if base <= 0 {
		return Result{Total: draft.Total()}, nil
	}

	var amount int64
	switch rule.Type {
	case enums.DiscountTypePercent:
		// Percent discounts round down to whole minor units.
		amount = decimal.NewFromInt(base).
			Mul(decimal.NewFromInt(rule.Value)).
			Div(hundred).
			Floor().
			IntPart()
	case enums.DiscountTypeFixed:
		amount = rule.Value
	}

	if rule.MaxAmount != nil && amount > *rule.MaxAmount {
		amount = *rule.MaxAmount
	}
	if amount > base {
		amount = base
	}

	return Result{Amount: amount, Total: draft.Total() - amount}, nil
}
