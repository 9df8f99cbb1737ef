// Package pipeline implements the intervention visibility pipeline
// shared by the list and reports endpoints: role scoping, facet
// filtering, urgent-first sorting and summary aggregation. All
// functions are pure over in-memory slices; callers recompute the
// full pipeline on each request.
package pipeline

import "github.com/pharmetric/fieldops-api/internal/models"

// Scope restricts the visible intervention set based on the acting
// user's role. Technicians only see their own records. Supervisors
// see records assigned to the technicians they supervise; when the
// supervision set is empty the full set is returned, mirroring the
// demo fallback of the dashboard this API serves. Admins see
// everything.
func Scope(items []models.Intervention, actor *models.User, supervised []string) []models.Intervention {
	if actor == nil {
		return nil
	}

	switch actor.Role {
	case models.RoleTechnician:
		out := make([]models.Intervention, 0, len(items))
		for _, item := range items {
			if item.TechnicianID == actor.ID {
				out = append(out, item)
			}
		}
		return out

	case models.RoleSupervisor:
		if len(supervised) == 0 {
			return items
		}
		allowed := make(map[string]struct{}, len(supervised))
		for _, id := range supervised {
			allowed[id] = struct{}{}
		}
		out := make([]models.Intervention, 0, len(items))
		for _, item := range items {
			if _, ok := allowed[item.TechnicianID]; ok {
				out = append(out, item)
			}
		}
		return out

	default:
		return items
	}
}
