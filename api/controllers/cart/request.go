package cart

import "github.com/google/uuid"

type addLineRequest struct {
	VariantID uuid.UUID `json:"variant_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1"`
}

type updateLineRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}
