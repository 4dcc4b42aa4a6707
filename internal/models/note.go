// Package models defines the note record shared by the local store, the
// sync engine and the remote plugins.
package models

import (
	"slices"
	"strings"
	"time"
)

// Note is a single user note.
//
// Revision is the opaque token the remote handed back on the last
// successful push or fetch; empty means the note was never uploaded.
// Dirty marks local changes not yet pushed.
type Note struct {
	ID         string
	Title      string
	Text       string
	Tags       []string
	ModifiedAt time.Time
	Revision   string
	Dirty      bool
}

// Clone returns a deep copy.
func (n *Note) Clone() *Note {
	if n == nil {
		return nil
	}
	c := *n
	c.Tags = slices.Clone(n.Tags)
	return &c
}

// Label is what failure reports show for the note.
func (n *Note) Label() string {
	if t := strings.TrimSpace(n.Title); t != "" {
		return t
	}
	return n.ID
}

// SameContent reports whether a and b carry the same user-visible content.
func (n *Note) SameContent(o *Note) bool {
	return n.Title == o.Title && n.Text == o.Text && slices.Equal(n.Tags, o.Tags)
}
