// Package sync keeps a person's attendance consistent across groups: a name
// appears in at most one roster at any committed state, and every toggle is
// one atomic cross-group batch.
package sync

import (
	"context"
	"strings"
	"time"

	"github.com/zuccone/super-lunch-buddies/internal/apperr"
	"github.com/zuccone/super-lunch-buddies/internal/models"
	"github.com/zuccone/super-lunch-buddies/internal/observability"
	"github.com/zuccone/super-lunch-buddies/internal/state"
	"github.com/zuccone/super-lunch-buddies/internal/store"
)

// GroupSource provides the last-observed snapshot of all groups.
type GroupSource interface {
	GroupsSnapshot() []models.Group
}

// Writer is the slice of the document store the synchronizer needs.
type Writer interface {
	Batch(ctx context.Context, writes []store.Write) error
	WriteMerge(ctx context.Context, path string, fields map[string]any) error
}

// Synchronizer toggles attendance while preserving cross-group exclusivity.
type Synchronizer struct {
	groups GroupSource
	writer Writer
	now    func() time.Time
}

// New builds a Synchronizer. A nil clock defaults to time.Now.
func New(groups GroupSource, writer Writer, now func() time.Time) *Synchronizer {
	if now == nil {
		now = time.Now
	}
	return &Synchronizer{groups: groups, writer: writer, now: now}
}

// SetAttendance toggles personName's attendance for the target group.
//
// Computed from the snapshot: the name is stripped from every other group's
// roster, stripped and optionally re-inserted in the target's, and unioned
// into the target's friends regardless of the attending flag. Everything is
// submitted as one batch; a partial application could leave the name in two
// rosters, so either all group documents update or none do. On failure the
// caller must roll any optimistic local state back; nothing is retried.
func (s *Synchronizer) SetAttendance(ctx context.Context, personName, targetGroupID string, attending bool, suggestion string) error {
	name := strings.TrimSpace(personName)
	if name == "" {
		return apperr.Validation("please enter your name first")
	}

	groups := s.groups.GroupsSnapshot()
	var target *models.Group
	for i := range groups {
		if groups[i].ID == targetGroupID {
			target = &groups[i]
			break
		}
	}
	if target == nil {
		return apperr.Validation("group %q does not exist", targetGroupID)
	}

	writes := make([]store.Write, 0, len(groups))
	for _, g := range groups {
		if g.ID == targetGroupID {
			continue
		}
		writes = append(writes, store.Write{
			Path:   state.GroupsCollection + "/" + g.ID,
			Merge:  true,
			Fields: map[string]any{"roster": withoutPerson(g.Roster, name)},
		})
	}

	roster := withoutPerson(target.Roster, name)
	if attending {
		roster = append(roster, models.AttendanceEntry{
			PersonName: name,
			JoinedAt:   s.now(),
			Suggestion: suggestion,
		})
	}
	friends := target.Friends
	if !target.HasFriend(name) {
		friends = append(append([]string{}, friends...), name)
	}
	writes = append(writes, store.Write{
		Path:  state.GroupsCollection + "/" + targetGroupID,
		Merge: true,
		Fields: map[string]any{
			"roster":  roster,
			"friends": friends,
		},
	})

	if err := s.writer.Batch(ctx, writes); err != nil {
		observability.IncRosterBatch("error")
		return err
	}
	observability.IncRosterBatch("ok")
	return nil
}

// UpdateSuggestion rewrites the person's roster entry with new suggestion
// text. A no-op when the person is not attending the group.
func (s *Synchronizer) UpdateSuggestion(ctx context.Context, personName, groupID, suggestion string) error {
	name := strings.TrimSpace(personName)
	if name == "" {
		return apperr.Validation("please enter your name first")
	}

	for _, g := range s.groups.GroupsSnapshot() {
		if g.ID != groupID {
			continue
		}
		if _, ok := g.RosterEntry(name); !ok {
			return nil
		}
		roster := make([]models.AttendanceEntry, len(g.Roster))
		copy(roster, g.Roster)
		for i := range roster {
			if roster[i].PersonName == name {
				roster[i].Suggestion = suggestion
				roster[i].JoinedAt = s.now()
			}
		}
		return s.writer.WriteMerge(ctx, state.GroupsCollection+"/"+groupID,
			map[string]any{"roster": roster})
	}
	return apperr.Validation("group %q does not exist", groupID)
}

func withoutPerson(roster []models.AttendanceEntry, name string) []models.AttendanceEntry {
	out := make([]models.AttendanceEntry, 0, len(roster))
	for _, e := range roster {
		if e.PersonName != name {
			out = append(out, e)
		}
	}
	return out
}
