package dto

// CreateClientRequest is the payload for registering a pharmacy site.
type CreateClientRequest struct {
	Name       string `json:"name" validate:"required"`
	City       string `json:"city" validate:"required"`
	Contact    string `json:"contact"`
	ClientCode string `json:"clientCode" validate:"required"`
}

// UpdateClientRequest carries partial updates for a pharmacy site.
type UpdateClientRequest struct {
	Name       *string `json:"name,omitempty"`
	City       *string `json:"city,omitempty"`
	Contact    *string `json:"contact,omitempty"`
	ClientCode *string `json:"clientCode,omitempty"`
}
