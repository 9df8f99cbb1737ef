package pipeline

import (
	"sort"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/pharmetric/fieldops-api/internal/models"
)

// Sort orders interventions urgent-first, then by the selected key.
// The urgent-first rule applies before any user-chosen key: urgent
// records sort strictly ahead of non-urgent ones regardless of the
// key. The sort is stable, so equal keys keep their input order.
// Durations of open records run against the supplied reference now.
func Sort(items []models.Intervention, key models.SortKey, now time.Time) []models.Intervention {
	if !key.Valid() {
		key = models.SortStartDesc
	}

	out := make([]models.Intervention, len(items))
	copy(out, items)

	collator := collate.New(language.French, collate.IgnoreCase)

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]

		urgentA := a.Status == models.StatusUrgent
		urgentB := b.Status == models.StatusUrgent
		if urgentA != urgentB {
			return urgentA
		}

		switch key {
		case models.SortStartAsc:
			return a.StartedAt.Before(b.StartedAt)
		case models.SortClientName:
			return collator.CompareString(a.ClientName, b.ClientName) < 0
		case models.SortDuration:
			return a.Duration(now) > b.Duration(now)
		default:
			return a.StartedAt.After(b.StartedAt)
		}
	})

	return out
}
