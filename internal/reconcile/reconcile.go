// Package reconcile tracks a locally edited list of values and a set of named
// selector values against the last confirmed snapshot.
package reconcile

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	FieldTemplate = "template"

	tempIDPrefix = "new-link-"
)

var ErrEmptyItem = errors.New("At least one link is empty.")

type (
	Item struct {
		ID    string
		Value string
	}

	Editor struct {
		current  []Item
		baseline []Item

		fields         map[string]string
		baselineFields map[string]string
	}
)

// New seeds an editor whose baseline equals its current state.
func New(items []Item, fields map[string]string) *Editor {
	e := &Editor{
		current:        copyItems(items),
		fields:         copyFields(fields),
		baselineFields: copyFields(fields),
	}
	e.baseline = copyItems(items)
	return e
}

// Append adds an empty item with a fresh temporary id and returns it.
func (e *Editor) Append() Item {
	item := Item{ID: tempIDPrefix + uuid.New().String()}
	e.current = append(e.current, item)
	return item
}

func (e *Editor) Remove(id string) {
	for i := range e.current {
		if e.current[i].ID == id {
			e.current = append(e.current[:i:i], e.current[i+1:]...)
			return
		}
	}
}

func (e *Editor) Update(id, value string) {
	for i := range e.current {
		if e.current[i].ID == id {
			e.current[i].Value = value
			return
		}
	}
}

func (e *Editor) SetTemplate(value string) {
	e.SetField(FieldTemplate, value)
}

func (e *Editor) Template() string {
	return e.Field(FieldTemplate)
}

func (e *Editor) SetField(name, value string) {
	e.fields[name] = value
}

func (e *Editor) Field(name string) string {
	return e.fields[name]
}

// Replace applies a submitted list positionally: existing items keep their ids,
// extra values are appended and missing trailing items removed.
func (e *Editor) Replace(values []string) {
	for i, v := range values {
		if i < len(e.current) {
			e.Update(e.current[i].ID, v)
			continue
		}
		item := e.Append()
		e.Update(item.ID, v)
	}
	for len(e.current) > len(values) {
		e.Remove(e.current[len(e.current)-1].ID)
	}
}

func (e *Editor) Items() []Item {
	return copyItems(e.current)
}

func (e *Editor) Values() []string {
	values := make([]string, len(e.current))
	for i := range e.current {
		values[i] = e.current[i].Value
	}
	return values
}

// IsDirty compares positionally against the baseline.
func (e *Editor) IsDirty() bool {
	if len(e.current) != len(e.baseline) {
		return true
	}
	for i := range e.current {
		if e.current[i].Value != e.baseline[i].Value {
			return true
		}
	}
	for name, v := range e.fields {
		if e.baselineFields[name] != v {
			return true
		}
	}
	for name, v := range e.baselineFields {
		if e.fields[name] != v {
			return true
		}
	}
	return false
}

// Validate rejects blank items; a blank value is never a deletion.
func (e *Editor) Validate() error {
	for i := range e.current {
		if e.current[i].Value == "" {
			return ErrEmptyItem
		}
	}
	return nil
}

// Commit makes the current state the new baseline.
func (e *Editor) Commit() {
	e.baseline = copyItems(e.current)
	e.baselineFields = copyFields(e.fields)
}

func copyItems(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	return out
}

func copyFields(fields map[string]string) map[string]string {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
