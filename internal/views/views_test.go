package views

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zuccone/super-lunch-buddies/internal/models"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func testCatalog() []models.Restaurant {
	return []models.Restaurant{
		{ID: "a", Name: "Alpha", Rating: 2},
		{ID: "b", Name: "Bravo", Rating: 5, LastVisited: map[string]time.Time{"g1": date("2024-01-01")}},
		{ID: "c", Name: "Charlie", Rating: 1, LastVisited: map[string]time.Time{"g1": date("2024-06-01")}},
	}
}

func idsOf(list []models.Restaurant) []string {
	ids := make([]string, 0, len(list))
	for _, r := range list {
		ids = append(ids, r.ID)
	}
	return ids
}

func TestSortByLastVisited(t *testing.T) {
	list := testCatalog()

	asc := SortRestaurants(list, "g1", SortState{Key: SortByLastVisited, Direction: Ascending})
	require.Equal(t, []string{"a", "b", "c"}, idsOf(asc))

	desc := SortRestaurants(list, "g1", SortState{Key: SortByLastVisited, Direction: Descending})
	require.Equal(t, []string{"c", "b", "a"}, idsOf(desc))
}

func TestSortByRating(t *testing.T) {
	list := testCatalog()

	desc := SortRestaurants(list, "g1", SortState{Key: SortByRating, Direction: Descending})
	require.Equal(t, []string{"b", "a", "c"}, idsOf(desc))

	asc := SortRestaurants(list, "g1", SortState{Key: SortByRating, Direction: Ascending})
	require.Equal(t, []string{"c", "a", "b"}, idsOf(asc))
}

func TestSortIgnoresOtherGroupStamps(t *testing.T) {
	list := []models.Restaurant{
		{ID: "a", Name: "Alpha", LastVisited: map[string]time.Time{"other": date("2024-06-01")}},
		{ID: "b", Name: "Bravo", LastVisited: map[string]time.Time{"g1": date("2024-01-01")}},
	}
	asc := SortRestaurants(list, "g1", SortState{Key: SortByLastVisited, Direction: Ascending})
	require.Equal(t, []string{"a", "b"}, idsOf(asc))
}

func TestToggle(t *testing.T) {
	s := DefaultSort()
	require.Equal(t, SortState{SortByLastVisited, Ascending}, s)

	s = s.Toggle(SortByLastVisited)
	require.Equal(t, SortState{SortByLastVisited, Descending}, s)
	s = s.Toggle(SortByLastVisited)
	require.Equal(t, SortState{SortByLastVisited, Ascending}, s)

	// Switching keys resets to the key default.
	s = s.Toggle(SortByRating)
	require.Equal(t, SortState{SortByRating, Descending}, s)
	s = SortState{Key: SortByRating, Direction: Descending}.Toggle(SortByLastVisited)
	require.Equal(t, SortState{SortByLastVisited, Ascending}, s)
}

func TestFilter(t *testing.T) {
	list := []models.Restaurant{
		{ID: "a", Name: "Tako Grill", Nickname: "Tako"},
		{ID: "b", Name: "Bravo", Description: "Juicy burgers and crispy fries."},
		{ID: "c", Name: "Charlie"},
	}

	require.Equal(t, []string{"a"}, idsOf(Filter(list, "TAKO")))
	require.Equal(t, []string{"b"}, idsOf(Filter(list, "burger")))
	require.Len(t, Filter(list, ""), 3)
	require.Empty(t, Filter(list, "nothing"))
}

func TestRecentlyIn(t *testing.T) {
	now := date("2024-06-01").Add(12 * time.Hour)
	roster := []models.AttendanceEntry{
		{PersonName: "ana", JoinedAt: now.Add(-time.Hour)},
		{PersonName: "bo", JoinedAt: now.Add(-5 * time.Hour)},
	}

	recent := RecentlyIn(roster, now)
	require.Len(t, recent, 1)
	require.Equal(t, "ana", recent[0].PersonName)
}

func TestOutList(t *testing.T) {
	roster := []models.AttendanceEntry{{PersonName: "ana"}}
	out := OutList([]string{"ana", "bo", "cy"}, roster)
	require.Equal(t, []string{"bo", "cy"}, out)
}

func TestOtherGroupVisits(t *testing.T) {
	groups := []models.Group{
		{ID: "g1", Name: "Crew"},
		{ID: "g2", Name: "Office"},
	}
	r := models.Restaurant{
		ID:   "a",
		Name: "Alpha",
		LastVisited: map[string]time.Time{
			"g1":   date("2024-06-01"),
			"g2":   date("2024-05-01"),
			"gone": date("2024-07-01"),
		},
	}

	visits := OtherGroupVisits(r, groups, "g1")
	require.Len(t, visits, 2)
	require.Equal(t, "Unknown Group", visits[0].GroupName)
	require.Equal(t, "Office", visits[1].GroupName)
}

func TestFormatVisited(t *testing.T) {
	now := date("2024-06-15")
	require.Equal(t, "Not visited recently", FormatVisited(time.Time{}, now))
	require.Equal(t, "Not visited recently", FormatVisited(date("2024-01-01"), now))
	require.Equal(t, "Visited: Today", FormatVisited(now, now))
	require.Equal(t, "Visited: Yesterday", FormatVisited(now.AddDate(0, 0, -1), now))
	require.Equal(t, "Visited: 10 days ago", FormatVisited(now.AddDate(0, 0, -10), now))
	require.Equal(t, "Visited: 2 months ago", FormatVisited(now.AddDate(0, 0, -75), now))
}

func TestFormatStatusTime(t *testing.T) {
	now := date("2024-06-15").Add(14 * time.Hour)
	require.Equal(t, "", FormatStatusTime(time.Time{}, now))
	require.Equal(t, "just now", FormatStatusTime(now.Add(-2*time.Second), now))
	require.Equal(t, "30s ago", FormatStatusTime(now.Add(-30*time.Second), now))
	require.Equal(t, "12m ago", FormatStatusTime(now.Add(-12*time.Minute), now))
	require.Equal(t, "10:00 AM", FormatStatusTime(now.Add(-4*time.Hour), now))
}
