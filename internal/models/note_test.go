package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNote_CloneIsDeep(t *testing.T) {
	n := &Note{ID: "A", Title: "t", Tags: []string{"x"}, Dirty: true}
	c := n.Clone()

	c.Tags[0] = "y"
	c.Title = "changed"

	assert.Equal(t, "x", n.Tags[0])
	assert.Equal(t, "t", n.Title)
	assert.True(t, c.Dirty)

	var nilNote *Note
	assert.Nil(t, nilNote.Clone())
}

func TestNote_Label(t *testing.T) {
	assert.Equal(t, "Groceries", (&Note{ID: "A", Title: " Groceries "}).Label())
	assert.Equal(t, "A", (&Note{ID: "A", Title: "   "}).Label())
}

func TestNote_SameContent(t *testing.T) {
	a := &Note{Title: "t", Text: "x", Tags: []string{"a"}}
	b := &Note{Title: "t", Text: "x", Tags: []string{"a"}, Revision: "r2"}
	assert.True(t, a.SameContent(b))

	b.Tags = []string{"b"}
	assert.False(t, a.SameContent(b))
}

func TestSortMode_TextRoundTrip(t *testing.T) {
	for _, m := range []SortMode{SortByModified, SortByTitle, SortByCreation} {
		b, err := m.MarshalText()
		require.NoError(t, err)

		var got SortMode
		require.NoError(t, got.UnmarshalText(b))
		assert.Equal(t, m, got)
	}

	var m SortMode
	assert.Error(t, m.UnmarshalText([]byte("random")))
	_, err := SortMode(42).MarshalText()
	assert.Error(t, err)
}

func TestSortNotes(t *testing.T) {
	now := time.Now()
	a := &Note{ID: "1", Title: "beta", ModifiedAt: now.Add(-time.Hour)}
	b := &Note{ID: "2", Title: "Alpha", ModifiedAt: now}
	c := &Note{ID: "3", Title: "gamma", ModifiedAt: now.Add(-2 * time.Hour)}

	list := []*Note{a, b, c}
	SortNotes(list, SortByModified)
	assert.Equal(t, []*Note{b, a, c}, list)

	SortNotes(list, SortByTitle)
	assert.Equal(t, []*Note{b, a, c}, list)

	list = []*Note{c, a, b}
	SortNotes(list, SortByCreation)
	assert.Equal(t, []*Note{c, a, b}, list)
}
