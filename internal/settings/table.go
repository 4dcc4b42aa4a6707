package settings

// Column describes one persisted setting of a configuration type T.
// Ref returns a pointer into the given value; see Kind for the pointer
// type each kind expects.
type Column[T any] struct {
	Name string
	Kind Kind
	Ref  func(*T) any
}

// Table is the ordered list of persisted settings of T. Declare it once as
// a package variable next to the type it describes.
type Table[T any] []Column[T]

// Field is a column bound to a concrete value.
type Field struct {
	Name string
	Kind Kind
	Ptr  any
}

// Bind resolves every column against v. It panics if a column points at a
// type its kind cannot handle.
func (t Table[T]) Bind(v *T) []Field {
	fields := make([]Field, 0, len(t))
	for _, c := range t {
		ptr := c.Ref(v)
		checkRef(c.Name, c.Kind, ptr)
		fields = append(fields, Field{Name: c.Name, Kind: c.Kind, Ptr: ptr})
	}
	return fields
}

// Lookup returns the field called name.
func Lookup(fields []Field, name string) (Field, bool) {
	for _, f := range fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}
