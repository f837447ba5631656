// Package models defines the content document shape shared by the store,
// service, and client layers.
package models

// Document is one page's content: an arbitrary JSON object that always
// carries a meta sub-object plus page-specific sections (metrics, charts,
// tables, timelines).
type Document map[string]any

// Meta is the envelope every document carries.
type Meta struct {
	Title       string `json:"title"`
	Subtitle    string `json:"subtitle,omitempty"`
	Badge       string `json:"badge,omitempty"`
	Date        string `json:"date,omitempty"`
	ExportLabel string `json:"exportLabel,omitempty"`
}

// Meta extracts the meta sub-object, reporting whether it was present and
// well-formed.
func (d Document) Meta() (Meta, bool) {
	raw, ok := d["meta"].(map[string]any)
	if !ok {
		return Meta{}, false
	}
	m := Meta{}
	m.Title, _ = raw["title"].(string)
	m.Subtitle, _ = raw["subtitle"].(string)
	m.Badge, _ = raw["badge"].(string)
	m.Date, _ = raw["date"].(string)
	m.ExportLabel, _ = raw["exportLabel"].(string)
	return m, m.Title != ""
}

// Clone returns a deep copy. Caches hand out clones so callers cannot
// mutate shared state through aliased maps and slices.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	return deepCopyMap(d)
}

func deepCopyMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch tv := v.(type) {
	case map[string]any:
		return deepCopyMap(tv)
	case []any:
		out := make([]any, len(tv))
		for i, item := range tv {
			out[i] = deepCopyValue(item)
		}
		return out
	default:
		// JSON scalars (string, float64, bool, nil) are immutable.
		return v
	}
}
