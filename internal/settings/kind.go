package settings

import (
	"encoding"
	"fmt"

	"github.com/google/uuid"
)

// Kind is the storage category of a setting. It decides how the value is
// rendered in the document and how two values are compared.
type Kind int

const (
	Integer Kind = iota + 1
	NullableInteger
	Boolean
	Identifier
	EncryptedString
	String
	Enumeration
	FontName
	ProviderReference
)

var kindNames = map[Kind]string{
	Integer:           "Integer",
	NullableInteger:   "NullableInteger",
	Boolean:           "Boolean",
	Identifier:        "Identifier",
	EncryptedString:   "EncryptedString",
	String:            "String",
	Enumeration:       "Enumeration",
	FontName:          "FontName",
	ProviderReference: "ProviderReference",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Enum is what an Enumeration field must point at.
type Enum interface {
	encoding.TextMarshaler
	encoding.TextUnmarshaler
}

// checkRef panics unless ptr is the accessor type kind requires.
func checkRef(name string, kind Kind, ptr any) {
	ok := false
	switch kind {
	case Integer:
		_, ok = ptr.(*int)
	case NullableInteger:
		_, ok = ptr.(**int)
	case Boolean:
		_, ok = ptr.(*bool)
	case Identifier, ProviderReference:
		_, ok = ptr.(*uuid.UUID)
	case EncryptedString, String, FontName:
		_, ok = ptr.(*string)
	case Enumeration:
		_, ok = ptr.(Enum)
	default:
		panic(fmt.Sprintf("settings: field %q has unsupported kind %s", name, kind))
	}
	if !ok {
		panic(fmt.Sprintf("settings: field %q of kind %s bound to %T", name, kind, ptr))
	}
}
