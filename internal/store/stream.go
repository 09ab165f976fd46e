package store

import (
	"errors"
	"log"
	"strings"
	"sync"

	"github.com/zuccone/super-lunch-buddies/internal/apperr"
)

// subscriberBuffer is how many snapshots a subscriber may fall behind before
// the hub drops it.
const subscriberBuffer = 16

type subscriber struct {
	path   string
	ch     chan []Document
	onDrop func(error)
}

// streamHub routes committed collection snapshots to subscribers. Delivery is
// asynchronous per subscriber and preserves per-document commit order; there
// is no ordering across distinct documents.
type streamHub struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]*subscriber
}

func newStreamHub() *streamHub {
	return &streamHub{subs: make(map[int]*subscriber)}
}

func (h *streamHub) subscribe(path string, fn func([]Document), onDrop func(error)) func() {
	sub := &subscriber{
		path:   path,
		ch:     make(chan []Document, subscriberBuffer),
		onDrop: onDrop,
	}

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = sub
	h.mu.Unlock()

	go func() {
		for docs := range sub.ch {
			fn(docs)
		}
	}()

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if s, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(s.ch)
		}
	}
}

// publish fans a full collection snapshot out to every matching subscriber.
func (h *streamHub) publish(collection string, docs []Document) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, sub := range h.subs {
		payload, ok := payloadFor(sub.path, collection, docs)
		if !ok {
			continue
		}
		select {
		case sub.ch <- payload:
		default:
			delete(h.subs, id)
			close(sub.ch)
			log.Printf("change stream subscriber dropped path=%s", sub.path)
			if sub.onDrop != nil {
				go sub.onDrop(&apperr.StoreSubscriptionError{
					Path: sub.path,
					Err:  errors.New("subscriber lagging"),
				})
			}
		}
	}
}

// payloadFor narrows a collection snapshot to what the subscriber asked for.
// Document subscribers receive a tombstone once their document disappears.
func payloadFor(subPath, collection string, docs []Document) ([]Document, bool) {
	if subPath == collection {
		return docs, true
	}
	if !strings.HasPrefix(subPath, collection+"/") {
		return nil, false
	}
	for _, d := range docs {
		if d.Path == subPath {
			return []Document{d}, true
		}
	}
	return []Document{{Path: subPath, Fields: nil}}, true
}
