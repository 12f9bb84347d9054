package cart

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

type cartLineResponse struct {
	ID        uuid.UUID `json:"id"`
	VariantID uuid.UUID `json:"variant_id"`
	Quantity  int       `json:"quantity"`
	UnitPrice int64     `json:"unit_price"`
	LineTotal int64     `json:"line_total"`
	UpdatedAt time.Time `json:"updated_at"`
}

type cartResponse struct {
	ID        *uuid.UUID         `json:"id,omitempty"`
	ItemCount int                `json:"item_count"`
	Subtotal  int64              `json:"subtotal"`
	Lines     []cartLineResponse `json:"lines"`
}

// newCartResponse renders a nil cart as an empty basket.
func newCartResponse(c *models.Cart) cartResponse {
	resp := cartResponse{Lines: []cartLineResponse{}}
	if c == nil {
		return resp
	}
	id := c.ID
	resp.ID = &id
	resp.ItemCount = c.ItemCount
	for _, line := range c.Lines {
		resp.Subtotal += line.LineTotal()
		resp.Lines = append(resp.Lines, cartLineResponse{
			ID:        line.ID,
			VariantID: line.VariantID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			LineTotal: line.LineTotal(),
			UpdatedAt: line.UpdatedAt,
		})
	}
	return resp
}
