// Package groups manages the group documents: creation (including the
// auto-seeded first group), edits, vibe text, recommendation merges and the
// last-group delete guard.
package groups

import (
	"context"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/zuccone/super-lunch-buddies/internal/apperr"
	"github.com/zuccone/super-lunch-buddies/internal/models"
	"github.com/zuccone/super-lunch-buddies/internal/state"
	"github.com/zuccone/super-lunch-buddies/internal/store"
)

// Seed values for the group created on first use.
const (
	SeedGroupName     = "My First Group"
	SeedGroupLocation = "Irvine, CA"
)

// Snapshot provides the last-observed state of the groups collection.
type Snapshot interface {
	GroupsSnapshot() []models.Group
	Group(id string) (models.Group, bool)
}

// Writer is the slice of the document store the service needs.
type Writer interface {
	WriteReplace(ctx context.Context, path string, fields map[string]any) error
	WriteMerge(ctx context.Context, path string, fields map[string]any) error
	Delete(ctx context.Context, path string) error
}

// Service owns group lifecycle operations.
type Service struct {
	snapshot Snapshot
	writer   Writer
}

// New builds a Service.
func New(snapshot Snapshot, writer Writer) *Service {
	return &Service{snapshot: snapshot, writer: writer}
}

// EnsureDefault seeds the first group when the collection is empty, so at
// least one group always exists. Safe to call repeatedly.
func (s *Service) EnsureDefault(ctx context.Context) (models.Group, error) {
	if existing := s.snapshot.GroupsSnapshot(); len(existing) > 0 {
		return existing[0], nil
	}
	log.Println("no groups found, seeding the default group")
	return s.Create(ctx, SeedGroupName, SeedGroupLocation)
}

// Create adds a group with an empty roster and no recommendations.
func (s *Service) Create(ctx context.Context, name, defaultLocation string) (models.Group, error) {
	if strings.TrimSpace(name) == "" {
		return models.Group{}, apperr.Validation("group name cannot be empty")
	}

	g := models.Group{
		ID:              uuid.NewString(),
		Name:            strings.TrimSpace(name),
		DefaultLocation: defaultLocation,
		Friends:         []string{},
		Roster:          []models.AttendanceEntry{},
		Recommendations: []models.Recommendation{},
	}
	if err := s.writer.WriteReplace(ctx, state.GroupsCollection+"/"+g.ID, models.GroupFields(g)); err != nil {
		return models.Group{}, err
	}
	return g, nil
}

// Update renames a group and moves its default location via a merge write;
// roster, friends and recommendations are untouched.
func (s *Service) Update(ctx context.Context, id, name, defaultLocation string) error {
	if strings.TrimSpace(name) == "" {
		return apperr.Validation("group name cannot be empty")
	}
	if _, ok := s.snapshot.Group(id); !ok {
		return apperr.Validation("group %q does not exist", id)
	}
	return s.writer.WriteMerge(ctx, state.GroupsCollection+"/"+id, map[string]any{
		"name":            strings.TrimSpace(name),
		"defaultLocation": defaultLocation,
	})
}

// SetVibe replaces the group's shared vibe text.
func (s *Service) SetVibe(ctx context.Context, id, vibe string) error {
	if _, ok := s.snapshot.Group(id); !ok {
		return apperr.Validation("group %q does not exist", id)
	}
	return s.writer.WriteMerge(ctx, state.GroupsCollection+"/"+id, map[string]any{
		"vibeText": vibe,
	})
}

// ReplaceRecommendations swaps the group's recommendation set wholesale.
// Returns store.ErrNotFound when the group has disappeared so a late
// pipeline result can be discarded instead of resurrecting the document.
func (s *Service) ReplaceRecommendations(ctx context.Context, id string, recs []models.Recommendation) error {
	if _, ok := s.snapshot.Group(id); !ok {
		return store.ErrNotFound
	}
	return s.writer.WriteMerge(ctx, state.GroupsCollection+"/"+id, map[string]any{
		"recommendations": recs,
	})
}

// Delete removes a group. The last remaining group cannot be deleted; the
// id of a surviving group is returned for reselection.
func (s *Service) Delete(ctx context.Context, id string) (remainingID string, err error) {
	groups := s.snapshot.GroupsSnapshot()
	if _, ok := s.snapshot.Group(id); !ok {
		return "", apperr.Validation("group %q does not exist", id)
	}
	if len(groups) <= 1 {
		return "", apperr.Validation("you can't delete the last group")
	}

	if err := s.writer.Delete(ctx, state.GroupsCollection+"/"+id); err != nil {
		return "", err
	}
	for _, g := range groups {
		if g.ID != id {
			return g.ID, nil
		}
	}
	return "", nil
}

// List returns the last-observed groups.
func (s *Service) List() []models.Group {
	return s.snapshot.GroupsSnapshot()
}

// Get returns one group from the snapshot.
func (s *Service) Get(id string) (models.Group, bool) {
	return s.snapshot.Group(id)
}
