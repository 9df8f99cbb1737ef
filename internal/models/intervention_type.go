package models

import "time"

// InterventionType is a categorical label for interventions, e.g.
// Installation or Maintenance. Inactive types stay valid on history
// but are excluded from new intervention creation.
type InterventionType struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	Color       string    `db:"color" json:"color"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// InterventionTypeFilter captures listing options for types.
type InterventionTypeFilter struct {
	Search string
	Active *bool
}
