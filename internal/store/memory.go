package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/zuccone/super-lunch-buddies/internal/apperr"
)

// Memory is a map-backed DocStore with the same semantics as the Postgres
// implementation. It backs the test suite and serves as the fallback when no
// database is configured, so the service still comes up locally.
type Memory struct {
	mu   sync.Mutex
	data map[string]map[string]map[string]any
	hub  *streamHub

	batchErr error
	writeErr error
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		data: make(map[string]map[string]map[string]any),
		hub:  newStreamHub(),
	}
}

// FailNextBatch makes the next Batch call fail with err before applying any
// write. Used by tests to simulate a mid-operation commit failure.
func (m *Memory) FailNextBatch(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchErr = err
}

// FailNextWrite makes the next single-document write fail with err.
func (m *Memory) FailNextWrite(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

func (m *Memory) ReadOnce(ctx context.Context, path string) (Document, error) {
	collection, id, err := splitPath(path)
	if err != nil {
		return Document{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	fields, ok := m.data[collection][id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return Document{Path: path, Fields: cloneFields(fields)}, nil
}

func (m *Memory) ReadCollection(ctx context.Context, collection string) ([]Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked(collection), nil
}

func (m *Memory) WriteMerge(ctx context.Context, path string, fields map[string]any) error {
	return m.apply(ctx, []Write{{Path: path, Fields: fields, Merge: true}}, &m.writeErr, "merge")
}

func (m *Memory) WriteReplace(ctx context.Context, path string, fields map[string]any) error {
	return m.apply(ctx, []Write{{Path: path, Fields: fields}}, &m.writeErr, "replace")
}

func (m *Memory) Delete(ctx context.Context, path string) error {
	return m.apply(ctx, []Write{{Path: path, Delete: true}}, &m.writeErr, "delete")
}

// Batch applies every write or none: all paths are validated and the
// injected failure consumed before the first mutation.
func (m *Memory) Batch(ctx context.Context, writes []Write) error {
	return m.apply(ctx, writes, &m.batchErr, "batch")
}

func (m *Memory) apply(ctx context.Context, writes []Write, injected *error, op string) error {
	m.mu.Lock()

	if err := *injected; err != nil {
		*injected = nil
		m.mu.Unlock()
		return &apperr.StoreWriteError{Op: op, Err: err}
	}

	type target struct {
		collection, id string
	}
	targets := make([]target, 0, len(writes))
	for _, w := range writes {
		collection, id, err := splitPath(w.Path)
		if err != nil {
			m.mu.Unlock()
			return &apperr.StoreWriteError{Op: op, Err: err}
		}
		targets = append(targets, target{collection, id})
	}

	touched := map[string]bool{}
	for i, w := range writes {
		t := targets[i]
		touched[t.collection] = true
		if w.Delete {
			delete(m.data[t.collection], t.id)
			continue
		}
		if m.data[t.collection] == nil {
			m.data[t.collection] = make(map[string]map[string]any)
		}
		next := cloneFields(w.Fields)
		if w.Merge {
			if current, ok := m.data[t.collection][t.id]; ok {
				next = mergeFields(current, next)
			}
		}
		m.data[t.collection][t.id] = next
	}

	snapshots := make(map[string][]Document, len(touched))
	for collection := range touched {
		snapshots[collection] = m.snapshotLocked(collection)
	}
	m.mu.Unlock()

	for collection, docs := range snapshots {
		m.hub.publish(collection, docs)
	}
	return nil
}

func (m *Memory) Subscribe(path string, fn func([]Document), onDrop func(error)) func() {
	cancel := m.hub.subscribe(path, fn, onDrop)

	// Initial snapshot, same shape a change notification would have.
	m.mu.Lock()
	collection := path
	if c, _, err := splitPath(path); err == nil {
		collection = c
	}
	docs := m.snapshotLocked(collection)
	m.mu.Unlock()
	if payload, ok := payloadFor(path, collection, docs); ok {
		fn(payload)
	}

	return cancel
}

func (m *Memory) snapshotLocked(collection string) []Document {
	ids := make([]string, 0, len(m.data[collection]))
	for id := range m.data[collection] {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	docs := make([]Document, 0, len(ids))
	for _, id := range ids {
		docs = append(docs, Document{
			Path:   collection + "/" + id,
			Fields: cloneFields(m.data[collection][id]),
		})
	}
	return docs
}

func cloneFields(fields map[string]any) map[string]any {
	raw, err := json.Marshal(fields)
	if err != nil {
		return map[string]any{}
	}
	clone := map[string]any{}
	_ = json.Unmarshal(raw, &clone)
	return clone
}

var _ DocStore = (*Memory)(nil)
