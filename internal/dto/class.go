package dto

// CreateClassRequest describes create payload.
type CreateClassRequest struct {
	Name    string  `json:"name" validate:"required,max=200"`
	Teacher *string `json:"teacher" validate:"omitempty,max=200"`
	Room    *string `json:"room" validate:"omitempty,max=100"`
	Color   *string `json:"color" validate:"omitempty,max=20"`
}

// UpdateClassRequest is a partial update.
type UpdateClassRequest struct {
	Name    *string `json:"name" validate:"omitempty,min=1,max=200"`
	Teacher *string `json:"teacher" validate:"omitempty,max=200"`
	Room    *string `json:"room" validate:"omitempty,max=100"`
	Color   *string `json:"color" validate:"omitempty,max=20"`
}
