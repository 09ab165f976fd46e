package models

import "time"

// AttendanceEntry marks a person as attending a group. It exists only while
// the person is in; a given name appears in at most one group's roster at any
// committed state.
type AttendanceEntry struct {
	PersonName string    `json:"name"`
	JoinedAt   time.Time `json:"joinedAt"`
	Suggestion string    `json:"suggestion,omitempty"`
}

// Recommendation is one suggestion produced by the pipeline. The whole slice
// on a group is replaced each run; bonus entries are not drawn from the
// catalog.
type Recommendation struct {
	Name      string `json:"name"`
	Address   string `json:"address"`
	Reasoning string `json:"reasoning"`
	IsBonus   bool   `json:"isBonus,omitempty"`
}

// Group is one independent roster sharing the global restaurant catalog.
// Stored as a single document in the groups collection and mutated through
// merge writes.
type Group struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	DefaultLocation string            `json:"defaultLocation"`
	Friends         []string          `json:"friends"`
	Roster          []AttendanceEntry `json:"roster"`
	VibeText        string            `json:"vibeText"`
	Recommendations []Recommendation  `json:"recommendations"`
}

// RosterEntry returns the attendance entry for the name, if present.
func (g Group) RosterEntry(name string) (AttendanceEntry, bool) {
	for _, e := range g.Roster {
		if e.PersonName == name {
			return e, true
		}
	}
	return AttendanceEntry{}, false
}

// HasFriend reports whether the name is already a known friend of the group.
func (g Group) HasFriend(name string) bool {
	for _, f := range g.Friends {
		if f == name {
			return true
		}
	}
	return false
}
