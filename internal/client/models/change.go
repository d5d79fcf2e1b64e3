package models

import (
	"errors"
	"strings"
)

// ErrEmptyChange is returned for a change that would modify nothing.
var ErrEmptyChange = errors.New("change is empty")

// Change is an edit requested by a curator. Set keys overwrite payload keys,
// Unset keys are removed; Unset is applied after Set.
type Change struct {
	Name  *string
	Set   map[string]any
	Unset []string
}

// Empty reports whether the change carries no modification.
func (c Change) Empty() bool {
	return c.Name == nil && len(c.Set) == 0 && len(c.Unset) == 0
}

// Validate rejects empty changes and blank names.
func (c Change) Validate() error {
	if c.Empty() {
		return ErrEmptyChange
	}
	if c.Name != nil && strings.TrimSpace(*c.Name) == "" {
		return errors.New("name must not be blank")
	}
	return nil
}

// Apply returns the name and a new payload with the change applied. The
// input payload is not modified.
func (c Change) Apply(name string, p Payload) (string, Payload) {
	out := p.Clone()
	if c.Name != nil {
		name = *c.Name
	}
	if len(c.Set) > 0 {
		set := Payload(c.Set).Clone()
		for k, v := range set {
			out[k] = v
		}
	}
	for _, k := range c.Unset {
		delete(out, k)
	}
	return name, out
}
