package pipeline

import (
	"strings"
	"time"

	"github.com/pharmetric/fieldops-api/internal/models"
)

// Filter narrows the set by free-text query and exact-match facets.
// Active facets combine with AND; the multi-select status and type
// facets are OR membership tests. An empty filter returns the input
// unchanged.
func Filter(items []models.Intervention, f models.InterventionFilter) []models.Intervention {
	out := make([]models.Intervention, 0, len(items))
	query := strings.ToLower(strings.TrimSpace(f.Query))

	for _, item := range items {
		if !matchesQuery(item, query) {
			continue
		}
		if f.Status != nil && item.Status != *f.Status {
			continue
		}
		if f.TypeID != "" && item.TypeID != f.TypeID {
			continue
		}
		if f.ClientID != "" && item.ClientID != f.ClientID {
			continue
		}
		if f.TechnicianID != "" && item.TechnicianID != f.TechnicianID {
			continue
		}
		if !withinStartRange(item.StartedAt, f.StartedFrom, f.StartedTo) {
			continue
		}
		if !withinEndRange(item.EndedAt, f.EndedFrom, f.EndedTo) {
			continue
		}
		if len(f.Statuses) > 0 && !containsStatus(f.Statuses, item.Status) {
			continue
		}
		if len(f.TypeIDs) > 0 && !containsString(f.TypeIDs, item.TypeID) {
			continue
		}
		out = append(out, item)
	}

	return out
}

// matchesQuery checks the resolved client name, the comment text and
// the resolved type name for a case-insensitive substring match. An
// empty query always matches.
func matchesQuery(item models.Intervention, query string) bool {
	if query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(item.ClientName), query) ||
		strings.Contains(strings.ToLower(item.Comment), query) ||
		strings.Contains(strings.ToLower(item.TypeName), query)
}

func withinStartRange(ts time.Time, from, to *time.Time) bool {
	if from != nil && ts.Before(*from) {
		return false
	}
	if to != nil && ts.After(*to) {
		return false
	}
	return true
}

// withinEndRange treats records without an end timestamp as vacuously
// passing: an end-date facet never excludes an open intervention.
func withinEndRange(ts *time.Time, from, to *time.Time) bool {
	if ts == nil {
		return true
	}
	if from != nil && ts.Before(*from) {
		return false
	}
	if to != nil && ts.After(*to) {
		return false
	}
	return true
}

func containsStatus(set []models.InterventionStatus, status models.InterventionStatus) bool {
	for _, s := range set {
		if s == status {
			return true
		}
	}
	return false
}

func containsString(set []string, value string) bool {
	for _, s := range set {
		if s == value {
			return true
		}
	}
	return false
}
