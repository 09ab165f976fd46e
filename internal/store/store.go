// Package store is the realtime document store behind the service: documents
// grouped into collections, shallow merge or full replace writes, atomic
// multi-document batches and per-path change streams.
//
// Two implementations exist. Postgres keeps documents as JSONB rows and is
// the one deployed; Memory backs tests and runs the service without a
// database. Both fan changes out through the same in-process stream hub.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by ReadOnce when the document does not exist.
var ErrNotFound = errors.New("document not found")

// Document is one stored document. Fields is nil when the event describes a
// deletion.
type Document struct {
	Path   string
	Fields map[string]any
}

// ID returns the document id portion of the path.
func (d Document) ID() string {
	_, id, _ := splitPath(d.Path)
	return id
}

// Write is one entry of an atomic batch.
type Write struct {
	Path   string
	Fields map[string]any
	Merge  bool
	Delete bool
}

// DocStore is the abstract realtime document store the rest of the service
// is written against.
//
// Subscribe accepts either a collection path ("groups") or a document path
// ("groups/abc"). Collection subscribers receive the full collection snapshot
// on every change; document subscribers receive a single-element slice, with
// nil Fields once the document is deleted. The current state is delivered
// once immediately after subscribing. Re-delivery of an unchanged snapshot is
// possible and consumers must apply it idempotently; ordering is guaranteed
// per document only. A lagging subscriber is dropped and told so through
// onDrop; it must resubscribe to keep watching.
type DocStore interface {
	ReadOnce(ctx context.Context, path string) (Document, error)
	ReadCollection(ctx context.Context, collection string) ([]Document, error)
	WriteMerge(ctx context.Context, path string, fields map[string]any) error
	WriteReplace(ctx context.Context, path string, fields map[string]any) error
	Delete(ctx context.Context, path string) error
	Batch(ctx context.Context, writes []Write) error
	Subscribe(path string, fn func([]Document), onDrop func(error)) (cancel func())
}

func splitPath(path string) (collection, id string, err error) {
	parts := strings.SplitN(path, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid document path %q", path)
	}
	return parts[0], parts[1], nil
}

func mergeFields(base, patch map[string]any) map[string]any {
	merged := make(map[string]any, len(base)+len(patch))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range patch {
		merged[k] = v
	}
	return merged
}
