package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zuccone/super-lunch-buddies/internal/apperr"
	"github.com/zuccone/super-lunch-buddies/internal/models"
	"github.com/zuccone/super-lunch-buddies/internal/state"
	"github.com/zuccone/super-lunch-buddies/internal/store"
)

// harness wires a synchronizer over a memory store with a live cache, the
// same shape the service runs with.
type harness struct {
	store *store.Memory
	cache *state.Cache
	sync  *Synchronizer
}

func newHarness(t *testing.T, groups ...models.Group) *harness {
	t.Helper()
	m := store.NewMemory()
	ctx := context.Background()
	for _, g := range groups {
		require.NoError(t, m.WriteReplace(ctx, "groups/"+g.ID, models.GroupFields(g)))
	}

	cache := state.NewCache(m)
	cache.Start()
	t.Cleanup(cache.Stop)

	return &harness{store: m, cache: cache, sync: New(cache, m, nil)}
}

func (h *harness) group(t *testing.T, id string) models.Group {
	t.Helper()
	doc, err := h.store.ReadOnce(context.Background(), "groups/"+id)
	require.NoError(t, err)
	return models.GroupFromFields(id, doc.Fields)
}

func (h *harness) settle(t *testing.T) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		synced := true
		for _, cached := range h.cache.GroupsSnapshot() {
			stored := h.group(t, cached.ID)
			if len(stored.Roster) != len(cached.Roster) {
				synced = false
			}
		}
		if synced {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("cache did not settle")
}

func rosterNames(g models.Group) []string {
	names := make([]string, 0, len(g.Roster))
	for _, e := range g.Roster {
		names = append(names, e.PersonName)
	}
	return names
}

func TestSetAttendanceJoins(t *testing.T) {
	h := newHarness(t, models.Group{ID: "g1", Name: "Crew"})

	require.NoError(t, h.sync.SetAttendance(context.Background(), "  ana ", "g1", true, "ramen"))

	g := h.group(t, "g1")
	require.Equal(t, []string{"ana"}, rosterNames(g))
	require.Equal(t, "ramen", g.Roster[0].Suggestion)
	require.Equal(t, []string{"ana"}, g.Friends)
}

func TestExclusivityAcrossGroups(t *testing.T) {
	h := newHarness(t,
		models.Group{ID: "g1", Name: "Crew"},
		models.Group{ID: "g2", Name: "Office"},
		models.Group{ID: "g3", Name: "Remote"},
	)
	ctx := context.Background()

	require.NoError(t, h.sync.SetAttendance(ctx, "ana", "g1", true, ""))
	h.settle(t)
	require.NoError(t, h.sync.SetAttendance(ctx, "ana", "g2", true, ""))
	h.settle(t)
	require.NoError(t, h.sync.SetAttendance(ctx, "ana", "g3", true, ""))
	h.settle(t)

	attending := 0
	for _, id := range []string{"g1", "g2", "g3"} {
		if _, ok := h.group(t, id).RosterEntry("ana"); ok {
			attending++
		}
	}
	require.Equal(t, 1, attending)
	_, ok := h.group(t, "g3").RosterEntry("ana")
	require.True(t, ok)

	// Switching groups keeps the friendship in the previously joined group.
	require.Equal(t, []string{"ana"}, h.group(t, "g1").Friends)
}

func TestToggleOffIdempotent(t *testing.T) {
	h := newHarness(t, models.Group{ID: "g1", Name: "Crew"})
	ctx := context.Background()

	require.NoError(t, h.sync.SetAttendance(ctx, "ana", "g1", true, ""))
	h.settle(t)
	require.NoError(t, h.sync.SetAttendance(ctx, "ana", "g1", false, ""))
	h.settle(t)
	once := h.group(t, "g1")

	require.NoError(t, h.sync.SetAttendance(ctx, "ana", "g1", false, ""))
	h.settle(t)
	twice := h.group(t, "g1")

	require.Equal(t, once, twice)
	require.Empty(t, once.Roster)
	require.Equal(t, []string{"ana"}, once.Friends)
}

func TestBatchFailureLeavesAllRostersUntouched(t *testing.T) {
	h := newHarness(t,
		models.Group{ID: "g1", Name: "Crew", Roster: []models.AttendanceEntry{{PersonName: "ana", JoinedAt: time.Now()}}},
		models.Group{ID: "g2", Name: "Office"},
	)
	ctx := context.Background()

	before1, before2 := h.group(t, "g1"), h.group(t, "g2")

	h.store.FailNextBatch(errors.New("simulated commit failure"))
	err := h.sync.SetAttendance(ctx, "ana", "g2", true, "")

	var writeErr *apperr.StoreWriteError
	require.ErrorAs(t, err, &writeErr)
	require.Equal(t, before1, h.group(t, "g1"))
	require.Equal(t, before2, h.group(t, "g2"))
}

func TestSetAttendancePreconditions(t *testing.T) {
	h := newHarness(t, models.Group{ID: "g1", Name: "Crew"})
	ctx := context.Background()

	var validation *apperr.ValidationError
	require.ErrorAs(t, h.sync.SetAttendance(ctx, "   ", "g1", true, ""), &validation)
	require.ErrorAs(t, h.sync.SetAttendance(ctx, "ana", "nope", true, ""), &validation)
}

func TestUpdateSuggestion(t *testing.T) {
	h := newHarness(t, models.Group{ID: "g1", Name: "Crew"})
	ctx := context.Background()

	require.NoError(t, h.sync.SetAttendance(ctx, "ana", "g1", true, "ramen"))
	h.settle(t)
	require.NoError(t, h.sync.UpdateSuggestion(ctx, "ana", "g1", "tacos"))

	entry, ok := h.group(t, "g1").RosterEntry("ana")
	require.True(t, ok)
	require.Equal(t, "tacos", entry.Suggestion)

	// Not attending: a silent no-op.
	require.NoError(t, h.sync.UpdateSuggestion(ctx, "bo", "g1", "pizza"))
	_, ok = h.group(t, "g1").RosterEntry("bo")
	require.False(t, ok)
}
