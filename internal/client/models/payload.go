package models

import (
	"bytes"
	"encoding/json"
)

// Conventional payload keys. The sync engine never interprets them.
const (
	PayloadAttributes  = "attributes"
	PayloadTags        = "tags"
	PayloadAttachments = "attachments"
	PayloadText        = "text"
)

// Payload is the opaque attribute container of an entity. Values must be
// JSON-representable.
type Payload map[string]any

// Clone returns a deep copy of p made through a JSON round trip, so nested
// maps and slices are never shared between copies.
func (p Payload) Clone() Payload {
	if p == nil {
		return Payload{}
	}
	b, err := json.Marshal(p)
	if err != nil {
		return shallowCopy(p)
	}
	var out Payload
	if err := json.Unmarshal(b, &out); err != nil {
		return shallowCopy(p)
	}
	if out == nil {
		out = Payload{}
	}
	return out
}

// Equal compares payloads by their canonical JSON encoding. A nil payload
// equals an empty one.
func (p Payload) Equal(other Payload) bool {
	a, errA := p.Marshal()
	b, errB := other.Marshal()
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(a, b)
}

// Marshal encodes p as JSON; nil encodes as an empty object.
func (p Payload) Marshal() ([]byte, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]any(p))
}

// UnmarshalPayload decodes stored JSON. Empty input yields an empty payload.
func UnmarshalPayload(b []byte) (Payload, error) {
	if len(b) == 0 {
		return Payload{}, nil
	}
	var p Payload
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, err
	}
	if p == nil {
		p = Payload{}
	}
	return p, nil
}

func shallowCopy(p Payload) Payload {
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
