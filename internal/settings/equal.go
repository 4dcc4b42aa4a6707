package settings

import (
	"bytes"
	"fmt"

	"github.com/google/uuid"
)

// Equal compares two bound field lists of the same table value by value.
// Strings compare case-sensitively, nullable integers treat nil as its own
// value and enumerations compare by their text form.
func Equal(a, b []Field) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name || a[i].Kind != b[i].Kind {
			return false
		}
		if !equalValue(a[i], b[i]) {
			return false
		}
	}
	return true
}

func equalValue(a, b Field) bool {
	switch a.Kind {
	case Integer:
		return *a.Ptr.(*int) == *b.Ptr.(*int)
	case NullableInteger:
		x, y := *a.Ptr.(**int), *b.Ptr.(**int)
		if x == nil || y == nil {
			return x == nil && y == nil
		}
		return *x == *y
	case Boolean:
		return *a.Ptr.(*bool) == *b.Ptr.(*bool)
	case Identifier, ProviderReference:
		return *a.Ptr.(*uuid.UUID) == *b.Ptr.(*uuid.UUID)
	case EncryptedString, String, FontName:
		return *a.Ptr.(*string) == *b.Ptr.(*string)
	case Enumeration:
		x, errX := a.Ptr.(Enum).MarshalText()
		y, errY := b.Ptr.(Enum).MarshalText()
		if errX != nil || errY != nil {
			return false
		}
		return bytes.Equal(x, y)
	default:
		panic(fmt.Sprintf("settings: field %q has unsupported kind %s", a.Name, a.Kind))
	}
}
