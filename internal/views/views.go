// Package views derives everything the UI renders from raw store state:
// sorted and filtered restaurant lists, the recently-in roster, the out list
// and cross-group visit history. Everything here is pure.
package views

import (
	"sort"
	"strings"
	"time"

	"github.com/zuccone/super-lunch-buddies/internal/models"
)

// Sort keys for the restaurant list.
const (
	SortByLastVisited = "lastVisited"
	SortByRating      = "rating"
)

// Directions.
const (
	Ascending  = "ascending"
	Descending = "descending"
)

// RecentWindow bounds the "who's in recently" roster view.
const RecentWindow = 4 * time.Hour

// SortState is the current sort key and direction.
type SortState struct {
	Key       string
	Direction string
}

// DefaultSort is how the list first renders.
func DefaultSort() SortState {
	return SortState{Key: SortByLastVisited, Direction: Ascending}
}

// Toggle flips direction when the key is re-selected and resets to the
// key-specific default when switching: recency sorts ascending by default,
// rating descending.
func (s SortState) Toggle(key string) SortState {
	direction := Ascending
	if s.Key == key && s.Direction == Ascending {
		direction = Descending
	} else if s.Key == key && s.Direction == Descending {
		direction = Ascending
	} else if key == SortByRating {
		direction = Descending
	}
	return SortState{Key: key, Direction: direction}
}

// SortRestaurants orders the catalog for the selected group. Entries never
// visited by the group rank at the "longest ago" extreme: first when
// ascending, last when descending.
func SortRestaurants(list []models.Restaurant, groupID string, s SortState) []models.Restaurant {
	out := make([]models.Restaurant, len(list))
	copy(out, list)

	sort.SliceStable(out, func(i, j int) bool {
		if s.Key == SortByLastVisited {
			a, b := out[i].VisitedBy(groupID), out[j].VisitedBy(groupID)
			if s.Direction == Ascending {
				if a.IsZero() != b.IsZero() {
					return a.IsZero()
				}
				return a.Before(b)
			}
			return a.After(b)
		}
		if s.Direction == Ascending {
			return out[i].Rating < out[j].Rating
		}
		return out[i].Rating > out[j].Rating
	})
	return out
}

// Filter keeps restaurants whose name, nickname or description contains the
// query, case-insensitively. Applied after sorting.
func Filter(list []models.Restaurant, query string) []models.Restaurant {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return list
	}
	out := make([]models.Restaurant, 0, len(list))
	for _, r := range list {
		if strings.Contains(strings.ToLower(r.Name), q) ||
			strings.Contains(strings.ToLower(r.Nickname), q) ||
			strings.Contains(strings.ToLower(r.Description), q) {
			out = append(out, r)
		}
	}
	return out
}

// RecentlyIn returns roster entries that joined within the trailing window.
func RecentlyIn(roster []models.AttendanceEntry, now time.Time) []models.AttendanceEntry {
	cutoff := now.Add(-RecentWindow)
	out := make([]models.AttendanceEntry, 0, len(roster))
	for _, e := range roster {
		if e.JoinedAt.After(cutoff) {
			out = append(out, e)
		}
	}
	return out
}

// OutList returns known friends not currently attending.
func OutList(friends []string, roster []models.AttendanceEntry) []string {
	in := make(map[string]bool, len(roster))
	for _, e := range roster {
		in[e.PersonName] = true
	}
	out := make([]string, 0, len(friends))
	for _, f := range friends {
		if !in[f] {
			out = append(out, f)
		}
	}
	return out
}

// GroupVisit is one other group's last visit to a restaurant.
type GroupVisit struct {
	GroupName string    `json:"group_name"`
	VisitedAt time.Time `json:"visited_at"`
}

// OtherGroupVisits joins a restaurant's visit stamps with the group list,
// excluding the selected group, newest first. This is a derived read-only
// join, not a stored relation.
func OtherGroupVisits(r models.Restaurant, groups []models.Group, selectedID string) []GroupVisit {
	names := make(map[string]string, len(groups))
	for _, g := range groups {
		names[g.ID] = g.Name
	}

	out := make([]GroupVisit, 0, len(r.LastVisited))
	for groupID, visited := range r.LastVisited {
		if groupID == selectedID || visited.IsZero() {
			continue
		}
		name, ok := names[groupID]
		if !ok {
			name = "Unknown Group"
		}
		out = append(out, GroupVisit{GroupName: name, VisitedAt: visited})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VisitedAt.After(out[j].VisitedAt) })
	return out
}
