package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmetric/fieldops-api/internal/models"
)

var t0 = time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

func sampleSet() []models.Intervention {
	end := t0.Add(-1 * time.Hour)
	return []models.Intervention{
		{ID: "a", ClientID: "c1", TypeID: "ty1", TechnicianID: "tech1", Status: models.StatusUrgent, StartedAt: t0, ClientName: "Pharmacie Centrale", TypeName: "Installation", Comment: "serveur hors ligne"},
		{ID: "b", ClientID: "c2", TypeID: "ty2", TechnicianID: "tech2", Status: models.StatusInProgress, StartedAt: t0.Add(time.Hour), ClientName: "Pharmacie du Parc", TypeName: "Maintenance", Comment: "mise a jour"},
		{ID: "c", ClientID: "c1", TypeID: "ty1", TechnicianID: "tech1", Status: models.StatusClosed, StartedAt: t0.Add(-2 * time.Hour), EndedAt: &end, ClientName: "Pharmacie Centrale", TypeName: "Installation", Comment: "imprimante"},
	}
}

func TestScopeTechnicianSeesOnlyOwn(t *testing.T) {
	actor := &models.User{ID: "tech1", Role: models.RoleTechnician}

	scoped := Scope(sampleSet(), actor, nil)

	require.Len(t, scoped, 2)
	for _, item := range scoped {
		assert.Equal(t, "tech1", item.TechnicianID)
	}
}

func TestScopeSupervisorUsesSupervisedSet(t *testing.T) {
	actor := &models.User{ID: "sup1", Role: models.RoleSupervisor}

	scoped := Scope(sampleSet(), actor, []string{"tech2"})
	require.Len(t, scoped, 1)
	assert.Equal(t, "b", scoped[0].ID)

	// Unresolved supervision linkage falls back to full visibility.
	assert.Len(t, Scope(sampleSet(), actor, nil), 3)
}

func TestScopeAdminSeesAll(t *testing.T) {
	actor := &models.User{ID: "adm", Role: models.RoleAdmin}
	assert.Len(t, Scope(sampleSet(), actor, nil), 3)
}

func TestFilterQueryMatchesClientNameOnly(t *testing.T) {
	filtered := Filter(sampleSet(), models.InterventionFilter{Query: "du parc"})

	require.Len(t, filtered, 1)
	assert.Equal(t, "b", filtered[0].ID)
}

func TestFilterEmptyQueryMatchesAll(t *testing.T) {
	assert.Len(t, Filter(sampleSet(), models.InterventionFilter{}), 3)
}

func TestFilterEndDateFacetPassesOpenRecords(t *testing.T) {
	from := t0.Add(-30 * time.Minute)
	filtered := Filter(sampleSet(), models.InterventionFilter{EndedFrom: &from})

	// The closed record ended before the bound and is excluded; open
	// records pass the end-date facet vacuously.
	require.Len(t, filtered, 2)
	for _, item := range filtered {
		assert.Nil(t, item.EndedAt)
	}
}

func TestFilterFacetsCombineWithAnd(t *testing.T) {
	status := models.StatusClosed
	filtered := Filter(sampleSet(), models.InterventionFilter{
		ClientID: "c1",
		Status:   &status,
	})

	require.Len(t, filtered, 1)
	assert.Equal(t, "c", filtered[0].ID)
}

func TestFilterMultiSelectIsMembershipTest(t *testing.T) {
	filtered := Filter(sampleSet(), models.InterventionFilter{
		Statuses: []models.InterventionStatus{models.StatusUrgent, models.StatusClosed},
	})

	require.Len(t, filtered, 2)
	assert.Equal(t, "a", filtered[0].ID)
	assert.Equal(t, "c", filtered[1].ID)
}

func TestFilterIsIdempotent(t *testing.T) {
	f := models.InterventionFilter{Query: "pharmacie", TypeIDs: []string{"ty1"}}

	once := Filter(sampleSet(), f)
	twice := Filter(once, f)

	assert.Equal(t, once, twice)
}

func TestSortUrgentFirstForEveryKey(t *testing.T) {
	keys := []models.SortKey{models.SortStartDesc, models.SortStartAsc, models.SortClientName, models.SortDuration}
	for _, key := range keys {
		sorted := Sort(sampleSet(), key, t0.Add(2*time.Hour))
		require.NotEmpty(t, sorted)
		assert.Equal(t, models.StatusUrgent, sorted[0].Status, "key %s must keep urgent records first", key)
	}
}

func TestSortStartDescendingScenario(t *testing.T) {
	// A is urgent and sorts ahead of B despite B's later start.
	sorted := Sort(sampleSet(), models.SortStartDesc, t0.Add(2*time.Hour))

	require.Len(t, sorted, 3)
	assert.Equal(t, "a", sorted[0].ID)
	assert.Equal(t, "b", sorted[1].ID)
	assert.Equal(t, "c", sorted[2].ID)
}

func TestSortByDurationUsesReferenceNow(t *testing.T) {
	now := t0.Add(4 * time.Hour)
	items := sampleSet()[1:] // b open (3h at now), c closed (1h)

	sorted := Sort(items, models.SortDuration, now)

	require.Len(t, sorted, 2)
	assert.Equal(t, "b", sorted[0].ID)
}

func TestSortByClientNameIsLocaleAware(t *testing.T) {
	items := []models.Intervention{
		{ID: "x", Status: models.StatusInProgress, ClientName: "Étoile Santé"},
		{ID: "y", Status: models.StatusInProgress, ClientName: "Zenith Pharma"},
		{ID: "z", Status: models.StatusInProgress, ClientName: "alpha pharma"},
	}

	sorted := Sort(items, models.SortClientName, t0)

	require.Len(t, sorted, 3)
	assert.Equal(t, "z", sorted[0].ID)
	assert.Equal(t, "x", sorted[1].ID)
	assert.Equal(t, "y", sorted[2].ID)
}

func TestSortIsStableForEqualKeys(t *testing.T) {
	items := []models.Intervention{
		{ID: "first", Status: models.StatusInProgress, StartedAt: t0},
		{ID: "second", Status: models.StatusInProgress, StartedAt: t0},
	}

	sorted := Sort(items, models.SortStartDesc, t0)

	assert.Equal(t, "first", sorted[0].ID)
	assert.Equal(t, "second", sorted[1].ID)
}

func TestAggregateEmptySet(t *testing.T) {
	summary := Aggregate(nil, nil, nil)

	assert.Equal(t, 0, summary.Total)
	assert.Zero(t, summary.SuccessRate)
	assert.Zero(t, summary.MeanDurationMS)
	assert.Empty(t, summary.ByType)
	assert.Empty(t, summary.ByTechnician)
}

func TestAggregateScenario(t *testing.T) {
	types := []models.InterventionType{
		{ID: "ty1", Name: "Installation", Color: "#3b82f6"},
		{ID: "ty2", Name: "Maintenance", Color: "#22c55e"},
		{ID: "ty3", Name: "Formation", Color: "#f97316"},
	}
	technicians := []models.User{
		{ID: "tech1", FullName: "Alice Durand", Role: models.RoleTechnician},
		{ID: "tech2", FullName: "Bruno Martin", Role: models.RoleTechnician},
		{ID: "sup1", FullName: "Claire Petit", Role: models.RoleSupervisor},
	}

	summary := Aggregate(sampleSet(), types, technicians)

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 1, summary.ClosedCount)
	assert.Equal(t, 2, summary.OpenCount)
	assert.Equal(t, 1, summary.UrgentCount)
	assert.InDelta(t, 33.33, summary.SuccessRate, 0.01)
	// Only the closed record contributes: one hour.
	assert.Equal(t, time.Hour.Milliseconds(), summary.MeanDurationMS)

	require.Len(t, summary.ByType, 3)
	assert.Equal(t, 2, summary.ByType[0].Count)
	assert.Equal(t, 1, summary.ByType[1].Count)
	assert.Equal(t, 0, summary.ByType[2].Count)

	require.Len(t, summary.ByTechnician, 2)
	assert.Equal(t, 2, summary.ByTechnician[0].Total)
	assert.Equal(t, 1, summary.ByTechnician[0].Closed)
	assert.InDelta(t, 50.0, summary.ByTechnician[0].ClosureRate, 0.01)
	assert.Zero(t, summary.ByTechnician[1].ClosureRate)
}

func TestClockRefreshesOnInterval(t *testing.T) {
	clock := NewClock(5 * time.Millisecond)
	initial := clock.Now()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		clock.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return clock.Now().After(initial)
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}
