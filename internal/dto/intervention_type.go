package dto

// CreateInterventionTypeRequest registers a new intervention category.
type CreateInterventionTypeRequest struct {
	Name        string  `json:"name" validate:"required"`
	Description *string `json:"description,omitempty"`
	Color       string  `json:"color" validate:"required,hexcolor"`
}

// UpdateInterventionTypeRequest carries partial updates for a category.
type UpdateInterventionTypeRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Color       *string `json:"color,omitempty" validate:"omitempty,hexcolor"`
	Active      *bool   `json:"active,omitempty"`
}
