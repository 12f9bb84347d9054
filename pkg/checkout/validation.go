package checkout

import (
	"fmt"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

const (
	ReasonMissingAddress   = "missing_address"
	ReasonInvalidSelection = "invalid_selection"
)

// ParcelLine describes one selected line for weight computation.
type ParcelLine struct {
	VariantID   uuid.UUID
	WeightGrams int
	Quantity    int
}

// DedupeIDs returns ids in first-seen order without duplicates or nil ids.
func DedupeIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// ValidateAddress fails when the delivery profile lacks any required field.
func ValidateAddress(missing []string) error {
	if len(missing) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "delivery address is incomplete").WithDetails(map[string]any{
		"reason":  ReasonMissingAddress,
		"missing": missing,
	})
}

// ValidateSelection ensures every requested line resolved to one of the
// buyer's cart lines.
func ValidateSelection(requested, resolved int) error {
	if requested > 0 && requested == resolved {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("selected %d cart line(s), found %d", requested, resolved)).WithDetails(map[string]any{
		"reason":    ReasonInvalidSelection,
		"requested": requested,
		"resolved":  resolved,
	})
}

// ParcelWeight sums variant weight times quantity. Variants without a
// recorded weight count as fallbackGrams each.
func ParcelWeight(lines []ParcelLine, fallbackGrams int) int {
	total := 0
	for _, line := range lines {
		weight := line.WeightGrams
		if weight <= 0 {
			weight = fallbackGrams
		}
		total += weight * line.Quantity
	}
	return total
}
