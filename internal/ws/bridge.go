package ws

import (
	"log"
	"sync"

	"github.com/zuccone/super-lunch-buddies/internal/models"
	"github.com/zuccone/super-lunch-buddies/internal/state"
	"github.com/zuccone/super-lunch-buddies/internal/store"
)

// Bridge forwards store change streams to websocket rooms. Each groups
// snapshot fans out per room; a group that disappears from the snapshot gets
// a final deleted event so clients can drop their selection.
type Bridge struct {
	store store.DocStore
	hub   *Hub

	mu      sync.Mutex
	known   map[string]bool
	stopped bool

	cancelGroups  func()
	cancelCatalog func()
}

// NewBridge builds a Bridge over the store and hub.
func NewBridge(ds store.DocStore, hub *Hub) *Bridge {
	return &Bridge{store: ds, hub: hub, known: make(map[string]bool)}
}

// Start subscribes to the groups collection and the catalog document.
// Dropped subscriptions resubscribe automatically.
func (b *Bridge) Start() {
	b.subscribeGroups()
	b.subscribeCatalog()
}

// Stop cancels both subscriptions.
func (b *Bridge) Stop() {
	b.mu.Lock()
	b.stopped = true
	b.mu.Unlock()
	if b.cancelGroups != nil {
		b.cancelGroups()
	}
	if b.cancelCatalog != nil {
		b.cancelCatalog()
	}
}

func (b *Bridge) subscribeGroups() {
	b.cancelGroups = b.store.Subscribe(state.GroupsCollection, b.applyGroups, func(err error) {
		log.Printf("ws groups stream dropped, resubscribing: %v", err)
		if !b.isStopped() {
			b.subscribeGroups()
		}
	})
}

func (b *Bridge) subscribeCatalog() {
	b.cancelCatalog = b.store.Subscribe(state.CatalogDocPath, b.applyCatalog, func(err error) {
		log.Printf("ws catalog stream dropped, resubscribing: %v", err)
		if !b.isStopped() {
			b.subscribeCatalog()
		}
	})
}

func (b *Bridge) isStopped() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stopped
}

func (b *Bridge) applyGroups(docs []store.Document) {
	current := make(map[string]models.Group, len(docs))
	for _, d := range docs {
		if d.Fields == nil {
			continue
		}
		current[d.ID()] = models.GroupFromFields(d.ID(), d.Fields)
	}

	b.mu.Lock()
	var removed []string
	for id := range b.known {
		if _, ok := current[id]; !ok {
			removed = append(removed, id)
		}
	}
	b.known = make(map[string]bool, len(current))
	for id := range current {
		b.known[id] = true
	}
	b.mu.Unlock()

	for id, group := range current {
		g := group
		b.hub.BroadcastGroup(id, models.StreamEvent{
			Type:  "group",
			Path:  state.GroupsCollection + "/" + id,
			Group: &g,
		})
	}
	for _, id := range removed {
		b.hub.BroadcastGroup(id, models.StreamEvent{
			Type:    "group",
			Path:    state.GroupsCollection + "/" + id,
			Deleted: true,
		})
	}
}

func (b *Bridge) applyCatalog(docs []store.Document) {
	list := []models.Restaurant{}
	for _, d := range docs {
		if d.Path == state.CatalogDocPath && d.Fields != nil {
			list = models.CatalogFromFields(d.Fields)
		}
	}

	b.hub.BroadcastCatalog(models.StreamEvent{
		Type:    "catalog",
		Path:    state.CatalogDocPath,
		Catalog: list,
	})
}
