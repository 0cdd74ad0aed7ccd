package flow

import "strings"

// Field is a single header line with its original name casing.
type Field struct {
	Name  string
	Value string
}

// Header is an ordered, case-preserving header list. Lookups compare names
// case-insensitively; repeated names (Set-Cookie) are allowed.
type Header struct {
	fields []Field
}

// NewHeader builds a Header from name/value pairs in order.
func NewHeader(fields ...Field) Header {
	return Header{fields: append([]Field(nil), fields...)}
}

// Get returns the first value for name.
func (h *Header) Get(name string) string {
	v, _ := h.Lookup(name)
	return v
}

// Lookup returns the first value for name and whether it was present.
func (h *Header) Lookup(name string) (string, bool) {
	for _, f := range h.fields {
		if strings.EqualFold(f.Name, name) {
			return f.Value, true
		}
	}
	return "", false
}

func (h *Header) Has(name string) bool {
	_, ok := h.Lookup(name)
	return ok
}

// Values returns every value for name in insertion order.
func (h *Header) Values(name string) []string {
	var out []string
	for _, f := range h.fields {
		if strings.EqualFold(f.Name, name) {
			out = append(out, f.Value)
		}
	}
	return out
}

// Add appends a field, keeping any existing ones. The full slice expression
// forces a new backing array so copies of h never observe the append.
func (h *Header) Add(name, value string) {
	h.fields = append(h.fields[:len(h.fields):len(h.fields)], Field{Name: name, Value: value})
}

// Set replaces the first field named name in place and drops later
// duplicates; it appends when name is absent.
func (h *Header) Set(name, value string) {
	idx := -1
	kept := make([]Field, 0, len(h.fields))
	for _, f := range h.fields {
		if strings.EqualFold(f.Name, name) {
			if idx >= 0 {
				continue
			}
			idx = len(kept)
			f.Value = value
		}
		kept = append(kept, f)
	}
	h.fields = kept
	if idx < 0 {
		h.Add(name, value)
	}
}

// Del removes every field named name.
func (h *Header) Del(name string) {
	kept := make([]Field, 0, len(h.fields))
	for _, f := range h.fields {
		if !strings.EqualFold(f.Name, name) {
			kept = append(kept, f)
		}
	}
	h.fields = kept
}

func (h *Header) Len() int {
	return len(h.fields)
}

// Fields returns a copy of the fields in order.
func (h *Header) Fields() []Field {
	return append([]Field(nil), h.fields...)
}

func (h *Header) Clone() Header {
	return NewHeader(h.fields...)
}
