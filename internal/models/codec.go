package models

import "encoding/json"

// Documents travel through the store as loose field maps so merge writes can
// touch individual fields. These helpers round-trip the typed models.

func toFields(v any) map[string]any {
	raw, err := json.Marshal(v)
	if err != nil {
		return map[string]any{}
	}
	fields := map[string]any{}
	_ = json.Unmarshal(raw, &fields)
	return fields
}

func fromFields(fields map[string]any, v any) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// GroupFields flattens a group for a document write.
func GroupFields(g Group) map[string]any { return toFields(g) }

// GroupFromFields decodes a group document, tolerating missing fields.
func GroupFromFields(id string, fields map[string]any) Group {
	var g Group
	_ = fromFields(fields, &g)
	g.ID = id
	if g.Friends == nil {
		g.Friends = []string{}
	}
	if g.Roster == nil {
		g.Roster = []AttendanceEntry{}
	}
	if g.Recommendations == nil {
		g.Recommendations = []Recommendation{}
	}
	return g
}

// CatalogFields wraps the whole restaurant list the way the shared-list
// document stores it.
func CatalogFields(list []Restaurant) map[string]any {
	return map[string]any{"list": anyList(list)}
}

func anyList(list []Restaurant) []any {
	out := make([]any, 0, len(list))
	for _, r := range list {
		out = append(out, toFields(r))
	}
	return out
}

// CatalogFromFields decodes the shared-list document.
func CatalogFromFields(fields map[string]any) []Restaurant {
	var doc struct {
		List []Restaurant `json:"list"`
	}
	_ = fromFields(fields, &doc)
	if doc.List == nil {
		doc.List = []Restaurant{}
	}
	return doc.List
}
