package state

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zuccone/super-lunch-buddies/internal/models"
	"github.com/zuccone/super-lunch-buddies/internal/store"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestCacheTracksGroupsAndCatalog(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, m.WriteReplace(ctx, "groups/g1",
		models.GroupFields(models.Group{ID: "g1", Name: "Lunch Crew"})))
	require.NoError(t, m.WriteReplace(ctx, CatalogDocPath,
		models.CatalogFields([]models.Restaurant{{ID: "r1", Name: "Tako"}})))

	c := NewCache(m)
	c.Start()
	defer c.Stop()

	require.Len(t, c.GroupsSnapshot(), 1)
	require.Len(t, c.Catalog(), 1)

	require.NoError(t, m.WriteReplace(ctx, "groups/g2",
		models.GroupFields(models.Group{ID: "g2", Name: "Second"})))
	waitFor(t, func() bool { return len(c.GroupsSnapshot()) == 2 })

	g, ok := c.Group("g2")
	require.True(t, ok)
	require.Equal(t, "Second", g.Name)
}

func TestCacheIdempotentRedelivery(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, m.WriteReplace(ctx, "groups/g1",
		models.GroupFields(models.Group{ID: "g1", Name: "Lunch Crew"})))

	c := NewCache(m)
	c.Start()
	defer c.Stop()

	// Same logical state written twice must leave one group cached.
	require.NoError(t, m.WriteReplace(ctx, "groups/g1",
		models.GroupFields(models.Group{ID: "g1", Name: "Lunch Crew"})))
	waitFor(t, func() bool { return len(c.GroupsSnapshot()) == 1 })
}

func TestCacheDropsDeletedGroups(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, m.WriteReplace(ctx, "groups/g1",
		models.GroupFields(models.Group{ID: "g1", Name: "Lunch Crew"})))

	c := NewCache(m)
	c.Start()
	defer c.Stop()

	require.NoError(t, m.Delete(ctx, "groups/g1"))
	waitFor(t, func() bool { return len(c.GroupsSnapshot()) == 0 })
}
