package reconcile

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEditor() *Editor {
	return New([]Item{
		{ID: "1", Value: "https://a.com"},
		{ID: "2", Value: "https://b.com"},
	}, map[string]string{FieldTemplate: "basic"})
}

func TestEditor(t *testing.T) {
	t.Run("fresh editor is clean", func(t *testing.T) {
		e := newEditor()
		assert.False(t, e.IsDirty())
	})

	t.Run("append", func(t *testing.T) {
		e := newEditor()
		item := e.Append()
		assert.True(t, strings.HasPrefix(item.ID, "new-link-"))
		assert.Equal(t, "", item.Value)
		assert.True(t, e.IsDirty())

		other := e.Append()
		assert.NotEqual(t, item.ID, other.ID)
		assert.Len(t, e.Items(), 4)
	})

	t.Run("remove", func(t *testing.T) {
		e := newEditor()
		e.Remove("missing")
		assert.False(t, e.IsDirty())

		e.Remove("1")
		assert.True(t, e.IsDirty())
		assert.Equal(t, []string{"https://b.com"}, e.Values())
	})

	t.Run("update", func(t *testing.T) {
		e := newEditor()
		e.Update("missing", "https://c.com")
		assert.False(t, e.IsDirty())

		e.Update("1", "https://a.com")
		assert.False(t, e.IsDirty())

		e.Update("1", "https://c.com")
		assert.True(t, e.IsDirty())

		e.Update("1", "https://a.com")
		assert.False(t, e.IsDirty())
	})

	t.Run("template", func(t *testing.T) {
		e := newEditor()
		e.SetTemplate("punk")
		assert.True(t, e.IsDirty())
		assert.Equal(t, "punk", e.Template())

		e.SetTemplate("basic")
		assert.False(t, e.IsDirty())
	})

	t.Run("positional comparison", func(t *testing.T) {
		e := newEditor()
		e.Update("1", "https://b.com")
		e.Update("2", "https://a.com")
		assert.True(t, e.IsDirty())

		e.Update("1", "https://a.com")
		e.Update("2", "https://b.com")
		assert.False(t, e.IsDirty())
	})

	t.Run("commit", func(t *testing.T) {
		e := newEditor()
		item := e.Append()
		e.Update(item.ID, "https://c.com")
		e.SetTemplate("punk")
		require.True(t, e.IsDirty())

		e.Commit()
		assert.False(t, e.IsDirty())

		// the baseline is a copy
		e.Update(item.ID, "https://d.com")
		assert.True(t, e.IsDirty())
	})

	t.Run("new field counts as change", func(t *testing.T) {
		e := New(nil, nil)
		e.SetField("firstName", "Ada")
		assert.True(t, e.IsDirty())
		e.SetField("firstName", "")
		assert.False(t, e.IsDirty())
	})
}

func TestEditorReplace(t *testing.T) {
	e := newEditor()
	e.Replace([]string{"https://a.com", "https://b.com"})
	assert.False(t, e.IsDirty())

	e.Replace([]string{"https://a.com", "https://b.com", "https://c.com"})
	assert.True(t, e.IsDirty())
	items := e.Items()
	require.Len(t, items, 3)
	assert.Equal(t, "1", items[0].ID)
	assert.Equal(t, "2", items[1].ID)
	assert.True(t, strings.HasPrefix(items[2].ID, "new-link-"))

	e.Replace([]string{"https://z.com"})
	assert.Equal(t, []string{"https://z.com"}, e.Values())

	e.Replace(nil)
	assert.Empty(t, e.Items())
	assert.True(t, e.IsDirty())
}

func TestEditorValidate(t *testing.T) {
	e := newEditor()
	assert.NoError(t, e.Validate())

	e.Append()
	assert.Equal(t, ErrEmptyItem, e.Validate())

	e.Replace([]string{"https://a.com", "", "https://c.com", "https://d.com"})
	assert.Equal(t, ErrEmptyItem, e.Validate())
}
