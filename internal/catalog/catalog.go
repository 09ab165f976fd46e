// Package catalog mutates the shared restaurant list. Every mutation is a
// whole-list read-modify-write: read the current list, compute the new one
// functionally, write the full replacement back. Two concurrent mutators
// racing on stale reads resolve by simple overwrite at document granularity;
// that lost update is a known, accepted limitation and deliberately not
// papered over with version checks or merging.
package catalog

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zuccone/super-lunch-buddies/internal/apperr"
	"github.com/zuccone/super-lunch-buddies/internal/models"
	"github.com/zuccone/super-lunch-buddies/internal/state"
	"github.com/zuccone/super-lunch-buddies/internal/store"
)

// FallbackDescription is used when nothing was provided for the describer to
// work with.
const FallbackDescription = "A great place to eat with friends!"

// Describer turns free-form user input into a short restaurant description,
// or rewrites an existing one following an instruction.
type Describer interface {
	Describe(ctx context.Context, input string) (string, error)
	Rewrite(ctx context.Context, current, instruction string) (string, error)
}

// Store is the slice of the document store the mutator needs.
type Store interface {
	ReadOnce(ctx context.Context, path string) (store.Document, error)
	WriteReplace(ctx context.Context, path string, fields map[string]any) error
}

// Mutator implements the catalog operations.
type Mutator struct {
	store    Store
	describe Describer
	now      func() time.Time
}

// New builds a Mutator. A nil clock defaults to time.Now.
func New(s Store, d Describer, now func() time.Time) *Mutator {
	if now == nil {
		now = time.Now
	}
	return &Mutator{store: s, describe: d, now: now}
}

// AddInput is what a new catalog entry starts from.
type AddInput struct {
	Name        string
	Nickname    string
	Address     string
	Description string
}

// Add appends a restaurant. The name must be unique case-insensitively; the
// description is generated from the user's input, falling back to the raw
// input when generation fails and to a stock line when there was no input.
func (m *Mutator) Add(ctx context.Context, in AddInput) (models.Restaurant, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return models.Restaurant{}, apperr.Validation("restaurant name is required")
	}

	list, err := m.read(ctx)
	if err != nil {
		return models.Restaurant{}, err
	}
	for _, r := range list {
		if strings.EqualFold(r.Name, name) {
			return models.Restaurant{}, apperr.Validation("restaurant %q already exists", r.Name)
		}
	}

	description := FallbackDescription
	if input := strings.TrimSpace(in.Description); input != "" {
		description, err = m.describe.Describe(ctx, input)
		if err != nil {
			log.Printf("description generation failed, keeping user input: %v", err)
			description = input
		}
	}

	added := models.Restaurant{
		ID:          uuid.NewString(),
		Name:        name,
		Nickname:    strings.TrimSpace(in.Nickname),
		Address:     in.Address,
		Description: description,
		LastVisited: map[string]time.Time{},
	}
	if err := m.write(ctx, append(list, added)); err != nil {
		return models.Restaurant{}, err
	}
	return added, nil
}

// Rate moves the shared rating counter. The delta is +1 or -1 in practice
// but any integer is accepted; there is no floor or ceiling.
func (m *Mutator) Rate(ctx context.Context, id string, delta int) error {
	return m.update(ctx, id, func(r models.Restaurant) models.Restaurant {
		r.Rating += delta
		return r
	})
}

// MarkVisitedToday stamps the group's last visit with now, leaving every
// other group's stamp untouched.
func (m *Mutator) MarkVisitedToday(ctx context.Context, id, groupID string) error {
	return m.update(ctx, id, func(r models.Restaurant) models.Restaurant {
		visited := make(map[string]time.Time, len(r.LastVisited)+1)
		for k, v := range r.LastVisited {
			visited[k] = v
		}
		visited[groupID] = m.now().UTC()
		r.LastVisited = visited
		return r
	})
}

// EditInput carries the replacement fields for an edit.
type EditInput struct {
	Name               string
	Nickname           string
	Address            string
	RewriteInstruction string
}

// Edit replaces name, nickname and address. The description is only
// regenerated when a rewrite instruction is supplied; otherwise the prior
// description is preserved verbatim. A failed rewrite keeps the prior text.
func (m *Mutator) Edit(ctx context.Context, id string, in EditInput) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return apperr.Validation("restaurant name cannot be empty")
	}

	return m.update(ctx, id, func(r models.Restaurant) models.Restaurant {
		if instruction := strings.TrimSpace(in.RewriteInstruction); instruction != "" {
			rewritten, err := m.describe.Rewrite(ctx, r.Description, instruction)
			if err != nil {
				log.Printf("description rewrite failed, keeping prior text: %v", err)
			} else {
				r.Description = rewritten
			}
		}
		r.Name = name
		r.Nickname = strings.TrimSpace(in.Nickname)
		r.Address = in.Address
		return r
	})
}

// Remove filters the entry out of the list. The per-group visit stamps go
// with the record; nothing else references it.
func (m *Mutator) Remove(ctx context.Context, id string) error {
	list, err := m.read(ctx)
	if err != nil {
		return err
	}
	next := make([]models.Restaurant, 0, len(list))
	for _, r := range list {
		if r.ID != id {
			next = append(next, r)
		}
	}
	return m.write(ctx, next)
}

func (m *Mutator) update(ctx context.Context, id string, fn func(models.Restaurant) models.Restaurant) error {
	list, err := m.read(ctx)
	if err != nil {
		return err
	}
	found := false
	next := make([]models.Restaurant, 0, len(list))
	for _, r := range list {
		if r.ID == id {
			found = true
			r = fn(r)
		}
		next = append(next, r)
	}
	if !found {
		return apperr.Validation("restaurant %q does not exist", id)
	}
	return m.write(ctx, next)
}

func (m *Mutator) read(ctx context.Context) ([]models.Restaurant, error) {
	doc, err := m.store.ReadOnce(ctx, state.CatalogDocPath)
	if errors.Is(err, store.ErrNotFound) {
		return []models.Restaurant{}, nil
	}
	if err != nil {
		return nil, err
	}
	return models.CatalogFromFields(doc.Fields), nil
}

func (m *Mutator) write(ctx context.Context, list []models.Restaurant) error {
	return m.store.WriteReplace(ctx, state.CatalogDocPath, models.CatalogFields(list))
}
