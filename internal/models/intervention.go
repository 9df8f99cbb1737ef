package models

import "time"

// InterventionStatus is the single-status lifecycle of a service ticket.
type InterventionStatus string

const (
	StatusInProgress InterventionStatus = "in_progress"
	StatusUrgent     InterventionStatus = "urgent"
	StatusClosed     InterventionStatus = "closed"
)

// Valid reports whether the status is one of the known variants.
func (s InterventionStatus) Valid() bool {
	switch s {
	case StatusInProgress, StatusUrgent, StatusClosed:
		return true
	}
	return false
}

// Terminal reports whether the status ends the intervention lifecycle.
func (s InterventionStatus) Terminal() bool {
	return s == StatusClosed
}

// Intervention is a single service ticket tied to one client, one
// technician and one type. EndedAt is set exactly when the record is
// closed.
type Intervention struct {
	ID             string             `db:"id" json:"id"`
	ClientID       string             `db:"client_id" json:"client_id"`
	TypeID         string             `db:"type_id" json:"type_id"`
	TechnicianID   string             `db:"technician_id" json:"technician_id"`
	Status         InterventionStatus `db:"status" json:"status"`
	StartedAt      time.Time          `db:"started_at" json:"started_at"`
	EndedAt        *time.Time         `db:"ended_at" json:"ended_at,omitempty"`
	Comment        string             `db:"comment" json:"comment"`
	ClosureComment *string            `db:"closure_comment" json:"closure_comment,omitempty"`
	CreatedAt      time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time          `db:"updated_at" json:"updated_at"`

	// Display fields resolved by joins on list queries.
	ClientName     string `db:"client_name" json:"client_name,omitempty"`
	TypeName       string `db:"type_name" json:"type_name,omitempty"`
	TypeColor      string `db:"type_color" json:"type_color,omitempty"`
	TechnicianName string `db:"technician_name" json:"technician_name,omitempty"`
}

// Duration returns the elapsed time of the intervention. Closed
// records use their end timestamp, open records run against the
// supplied reference now.
func (i Intervention) Duration(now time.Time) time.Duration {
	if i.EndedAt != nil {
		return i.EndedAt.Sub(i.StartedAt)
	}
	return now.Sub(i.StartedAt)
}

// Open reports whether the intervention has not reached a terminal
// status yet.
func (i Intervention) Open() bool {
	return !i.Status.Terminal()
}
