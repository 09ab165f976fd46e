// Package prefs stores small per-device preferences with an expiry, the
// server-side counterpart of browser cookies: display name, last suggestion,
// selected group and theme.
package prefs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zuccone/super-lunch-buddies/internal/store"
)

// Well-known preference keys.
const (
	KeyName       = "lunchTrackerName"
	KeySuggestion = "lunchTrackerSuggestion"
	KeyGroup      = "selectedGroupId"
	KeyTheme      = "lunchTrackerTheme"
)

const collection = "prefs"

// Store is the slice of the document store prefs needs.
type Store interface {
	ReadOnce(ctx context.Context, path string) (store.Document, error)
	WriteMerge(ctx context.Context, path string, fields map[string]any) error
}

type entry struct {
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Service reads and writes device preferences. Expired entries read back as
// absent; they are overwritten in place on the next Set.
type Service struct {
	store Store
	now   func() time.Time
}

// New builds a Service.
func New(s Store) *Service {
	return &Service{store: s, now: time.Now}
}

func docPath(deviceID string) string {
	return collection + "/" + deviceID
}

// Set stores value under key for the device, expiring after ttlDays.
func (s *Service) Set(ctx context.Context, deviceID, key, value string, ttlDays int) error {
	if deviceID == "" || key == "" {
		return errors.New("device id and key are required")
	}
	if ttlDays <= 0 {
		ttlDays = 365
	}
	e := entry{
		Value:     value,
		ExpiresAt: s.now().UTC().Add(time.Duration(ttlDays) * 24 * time.Hour),
	}
	return s.store.WriteMerge(ctx, docPath(deviceID), map[string]any{key: e})
}

// Get returns the stored value for key, or ("", false) when the key is unset
// or expired.
func (s *Service) Get(ctx context.Context, deviceID, key string) (string, bool, error) {
	doc, err := s.store.ReadOnce(ctx, docPath(deviceID))
	if errors.Is(err, store.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	raw, ok := doc.Fields[key]
	if !ok {
		return "", false, nil
	}
	e, err := decodeEntry(raw)
	if err != nil {
		return "", false, err
	}
	if !e.ExpiresAt.After(s.now()) {
		return "", false, nil
	}
	return e.Value, true, nil
}

// All returns every live preference for the device.
func (s *Service) All(ctx context.Context, deviceID string) (map[string]string, error) {
	doc, err := s.store.ReadOnce(ctx, docPath(deviceID))
	if errors.Is(err, store.ErrNotFound) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}

	out := make(map[string]string, len(doc.Fields))
	for key, raw := range doc.Fields {
		e, err := decodeEntry(raw)
		if err != nil {
			continue
		}
		if e.ExpiresAt.After(s.now()) {
			out[key] = e.Value
		}
	}
	return out, nil
}

func decodeEntry(raw any) (entry, error) {
	switch v := raw.(type) {
	case entry:
		return v, nil
	case map[string]any:
		var e entry
		value, _ := v["value"].(string)
		e.Value = value
		switch ts := v["expiresAt"].(type) {
		case string:
			parsed, err := time.Parse(time.RFC3339Nano, ts)
			if err != nil {
				return entry{}, err
			}
			e.ExpiresAt = parsed
		case time.Time:
			e.ExpiresAt = ts
		default:
			return entry{}, fmt.Errorf("unexpected expiresAt type %T", ts)
		}
		return e, nil
	default:
		return entry{}, fmt.Errorf("unexpected preference entry type %T", raw)
	}
}
