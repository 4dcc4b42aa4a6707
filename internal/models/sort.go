package models

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// SortMode orders the note list shown to the user.
type SortMode int

const (
	SortByModified SortMode = iota
	SortByTitle
	SortByCreation
)

var sortModeNames = map[SortMode]string{
	SortByModified: "modified",
	SortByTitle:    "title",
	SortByCreation: "none",
}

func (m SortMode) String() string {
	if s, ok := sortModeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("SortMode(%d)", int(m))
}

func (m SortMode) MarshalText() ([]byte, error) {
	s, ok := sortModeNames[m]
	if !ok {
		return nil, fmt.Errorf("unknown sort mode %d", int(m))
	}
	return []byte(s), nil
}

func (m *SortMode) UnmarshalText(b []byte) error {
	want := strings.ToLower(strings.TrimSpace(string(b)))
	for k, v := range sortModeNames {
		if v == want {
			*m = k
			return nil
		}
	}
	return fmt.Errorf("unknown sort mode %q", string(b))
}

// SortNotes orders notes in place. SortByCreation keeps the given order.
func SortNotes(notes []*Note, mode SortMode) {
	switch mode {
	case SortByModified:
		slices.SortStableFunc(notes, func(a, b *Note) int {
			return b.ModifiedAt.Compare(a.ModifiedAt)
		})
	case SortByTitle:
		slices.SortStableFunc(notes, func(a, b *Note) int {
			if c := cmp.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title)); c != 0 {
				return c
			}
			return cmp.Compare(a.ID, b.ID)
		})
	}
}
