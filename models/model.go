package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// CatalogUnavailableName is the placeholder entry shown when the catalog cannot be read
const CatalogUnavailableName = "Failed to fetch models!"

// ModelDescriptor represents one installed model as reported by the inference server.
// Only Name is interpreted; every other field the server sends is kept in Extra and
// written back unchanged.
//
// Entries that are not JSON objects are kept whole in Raw and re-encoded as received.
type ModelDescriptor struct {
	Name  string                     `json:"name"`
	Extra map[string]json.RawMessage `json:"-"`
	Raw   json.RawMessage            `json:"-"`
}

// CatalogUnavailable returns the single-entry list used when listing fails
func CatalogUnavailable() []ModelDescriptor {
	return []ModelDescriptor{{Name: CatalogUnavailableName}}
}

// IsPlaceholder reports whether the descriptor is the catalog failure entry
func (m ModelDescriptor) IsPlaceholder() bool {
	return m.Name == CatalogUnavailableName && len(m.Extra) == 0 && m.Raw == nil
}

// UnmarshalJSON keeps unknown fields for pass-through. It never rejects an entry.
func (m *ModelDescriptor) UnmarshalJSON(data []byte) error {
	m.Name = ""
	m.Extra = nil
	m.Raw = nil

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		m.Raw = append(json.RawMessage(nil), trimmed...)
		return nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return fmt.Errorf("model descriptor: %w", err)
	}

	if raw, ok := fields["name"]; ok {
		// Non-string names are tolerated and kept verbatim
		if err := json.Unmarshal(raw, &m.Name); err != nil {
			m.Name = ""
		} else {
			delete(fields, "name")
		}
	}

	if len(fields) > 0 {
		m.Extra = fields
	}
	return nil
}

// MarshalJSON writes Name followed by the preserved server fields
func (m ModelDescriptor) MarshalJSON() ([]byte, error) {
	if m.Raw != nil {
		return m.Raw, nil
	}
	out := make(map[string]json.RawMessage, len(m.Extra)+1)
	for k, v := range m.Extra {
		out[k] = v
	}
	if _, ok := out["name"]; !ok {
		name, err := json.Marshal(m.Name)
		if err != nil {
			return nil, err
		}
		out["name"] = name
	}
	return json.Marshal(out)
}

// Names returns the model names in catalog order
func Names(list []ModelDescriptor) []string {
	names := make([]string, 0, len(list))
	for _, m := range list {
		names = append(names, m.Name)
	}
	return names
}
