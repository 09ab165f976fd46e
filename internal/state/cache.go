// Package state holds this instance's locally cached projection of the
// backing store: the groups collection and the shared restaurant catalog,
// refreshed asynchronously from the change streams.
package state

import (
	"log"
	"sync"

	"github.com/zuccone/super-lunch-buddies/internal/models"
	"github.com/zuccone/super-lunch-buddies/internal/store"
)

// CatalogDocPath is the single shared document holding the restaurant list.
const CatalogDocPath = "restaurants/shared-list"

// GroupsCollection is the collection of group documents.
const GroupsCollection = "groups"

// Cache applies change-stream snapshots idempotently and answers reads
// without touching the store. Snapshot application assumes per-document
// ordering only; a re-delivered unchanged snapshot is a no-op.
type Cache struct {
	store store.DocStore

	mu      sync.RWMutex
	groups  []models.Group
	catalog []models.Restaurant
	stopped bool

	cancelGroups  func()
	cancelCatalog func()
}

// NewCache builds an empty cache over the store.
func NewCache(ds store.DocStore) *Cache {
	return &Cache{store: ds}
}

// Start subscribes to the groups collection and the catalog document. The
// initial snapshots are applied before Start returns. Dropped subscriptions
// resubscribe automatically.
func (c *Cache) Start() {
	c.subscribeGroups()
	c.subscribeCatalog()
}

// Stop cancels both subscriptions.
func (c *Cache) Stop() {
	c.mu.Lock()
	c.stopped = true
	c.mu.Unlock()
	if c.cancelGroups != nil {
		c.cancelGroups()
	}
	if c.cancelCatalog != nil {
		c.cancelCatalog()
	}
}

func (c *Cache) subscribeGroups() {
	c.cancelGroups = c.store.Subscribe(GroupsCollection, c.applyGroups, func(err error) {
		log.Printf("groups stream dropped, resubscribing: %v", err)
		if !c.isStopped() {
			c.subscribeGroups()
		}
	})
}

func (c *Cache) subscribeCatalog() {
	c.cancelCatalog = c.store.Subscribe(CatalogDocPath, c.applyCatalog, func(err error) {
		log.Printf("catalog stream dropped, resubscribing: %v", err)
		if !c.isStopped() {
			c.subscribeCatalog()
		}
	})
}

func (c *Cache) isStopped() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stopped
}

func (c *Cache) applyGroups(docs []store.Document) {
	groups := make([]models.Group, 0, len(docs))
	for _, d := range docs {
		if d.Fields == nil {
			continue
		}
		groups = append(groups, models.GroupFromFields(d.ID(), d.Fields))
	}

	c.mu.Lock()
	c.groups = groups
	c.mu.Unlock()
}

func (c *Cache) applyCatalog(docs []store.Document) {
	var list []models.Restaurant
	for _, d := range docs {
		if d.Path == CatalogDocPath && d.Fields != nil {
			list = models.CatalogFromFields(d.Fields)
		}
	}
	if list == nil {
		list = []models.Restaurant{}
	}

	c.mu.Lock()
	c.catalog = list
	c.mu.Unlock()
}

// GroupsSnapshot returns the last-observed state of every group. This is the
// snapshot the roster synchronizer computes its batches from.
func (c *Cache) GroupsSnapshot() []models.Group {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.Group, len(c.groups))
	copy(out, c.groups)
	return out
}

// Group returns one group from the snapshot.
func (c *Cache) Group(id string) (models.Group, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, g := range c.groups {
		if g.ID == id {
			return g, true
		}
	}
	return models.Group{}, false
}

// Catalog returns the last-observed shared restaurant list.
func (c *Cache) Catalog() []models.Restaurant {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.Restaurant, len(c.catalog))
	copy(out, c.catalog)
	return out
}
