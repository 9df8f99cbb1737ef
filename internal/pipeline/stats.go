package pipeline

import (
	"time"

	"github.com/pharmetric/fieldops-api/internal/models"
)

// Summary aggregates a filtered intervention set for the dashboard
// badges and the reports screen.
type Summary struct {
	Total          int                     `json:"total"`
	OpenCount      int                     `json:"open_count"`
	ClosedCount    int                     `json:"closed_count"`
	UrgentCount    int                     `json:"urgent_count"`
	SuccessRate    float64                 `json:"success_rate"`
	MeanDurationMS int64                   `json:"mean_duration_ms"`
	ByType         []TypeCount             `json:"by_type"`
	ByTechnician   []TechnicianPerformance `json:"by_technician"`
}

// TypeCount is the number of interventions referencing one type.
type TypeCount struct {
	TypeID string `json:"type_id"`
	Name   string `json:"name"`
	Color  string `json:"color"`
	Count  int    `json:"count"`
}

// TechnicianPerformance summarises one technician's workload.
type TechnicianPerformance struct {
	TechnicianID string  `json:"technician_id"`
	Name         string  `json:"name"`
	Total        int     `json:"total"`
	Closed       int     `json:"closed"`
	ClosureRate  float64 `json:"closure_rate"`
}

// Aggregate derives counts, success rate and mean duration from the
// filtered set. Every operation is total over possibly-empty input:
// rates are 0 when their denominator is 0. Known types and technicians
// appear in the breakdowns even with zero matches.
func Aggregate(items []models.Intervention, types []models.InterventionType, technicians []models.User) Summary {
	summary := Summary{Total: len(items)}

	var closedDurations time.Duration
	var closedWithEnd int

	for _, item := range items {
		switch item.Status {
		case models.StatusClosed:
			summary.ClosedCount++
		case models.StatusUrgent:
			summary.UrgentCount++
			summary.OpenCount++
		default:
			summary.OpenCount++
		}
		if item.Status == models.StatusClosed && item.EndedAt != nil {
			closedDurations += item.EndedAt.Sub(item.StartedAt)
			closedWithEnd++
		}
	}

	if summary.Total > 0 {
		summary.SuccessRate = float64(summary.ClosedCount) / float64(summary.Total) * 100
	}
	if closedWithEnd > 0 {
		summary.MeanDurationMS = (closedDurations / time.Duration(closedWithEnd)).Milliseconds()
	}

	summary.ByType = make([]TypeCount, 0, len(types))
	for _, t := range types {
		count := 0
		for _, item := range items {
			if item.TypeID == t.ID {
				count++
			}
		}
		summary.ByType = append(summary.ByType, TypeCount{
			TypeID: t.ID,
			Name:   t.Name,
			Color:  t.Color,
			Count:  count,
		})
	}

	summary.ByTechnician = make([]TechnicianPerformance, 0, len(technicians))
	for _, tech := range technicians {
		if tech.Role != models.RoleTechnician {
			continue
		}
		perf := TechnicianPerformance{TechnicianID: tech.ID, Name: tech.FullName}
		for _, item := range items {
			if item.TechnicianID != tech.ID {
				continue
			}
			perf.Total++
			if item.Status == models.StatusClosed {
				perf.Closed++
			}
		}
		if perf.Total > 0 {
			perf.ClosureRate = float64(perf.Closed) / float64(perf.Total) * 100
		}
		summary.ByTechnician = append(summary.ByTechnician, perf)
	}

	return summary
}
