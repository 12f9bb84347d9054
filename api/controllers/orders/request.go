package orders

type reasonRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

type rejectRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type shipRequest struct {
	Note string `json:"note" validate:"omitempty,max=500"`
}
