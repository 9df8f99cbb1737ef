package models

import "time"

// SortKey selects the secondary ordering applied after the
// urgent-first rule.
type SortKey string

const (
	SortStartDesc  SortKey = "date_desc"
	SortStartAsc   SortKey = "date_asc"
	SortClientName SortKey = "client"
	SortDuration   SortKey = "duration"
)

// Valid reports whether the key is a known sort option.
func (k SortKey) Valid() bool {
	switch k {
	case SortStartDesc, SortStartAsc, SortClientName, SortDuration:
		return true
	}
	return false
}

// InterventionFilter is the facet set shared by the interventions list
// and the reports screens. All active facets combine with AND;
// multi-select facets combine internally with OR. The zero value
// restricts nothing.
type InterventionFilter struct {
	// Query is matched case-insensitively against the resolved client
	// name, the comment text and the resolved type name.
	Query string `json:"query,omitempty"`

	Status       *InterventionStatus `json:"status,omitempty"`
	TypeID       string              `json:"type_id,omitempty"`
	ClientID     string              `json:"client_id,omitempty"`
	TechnicianID string              `json:"technician_id,omitempty"`

	// Inclusive timestamp bounds. End-date bounds only apply to
	// records carrying an end timestamp; open records pass vacuously.
	StartedFrom *time.Time `json:"started_from,omitempty"`
	StartedTo   *time.Time `json:"started_to,omitempty"`
	EndedFrom   *time.Time `json:"ended_from,omitempty"`
	EndedTo     *time.Time `json:"ended_to,omitempty"`

	Statuses []InterventionStatus `json:"statuses,omitempty"`
	TypeIDs  []string             `json:"type_ids,omitempty"`

	Sort SortKey `json:"sort,omitempty"`
}
