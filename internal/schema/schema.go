package schema

import (
	"errors"
	"fmt"

	"github.com/danielpatrickdp/cargo-intake/internal/record"
)

// #region schema
// Schema is the ordered, immutable field list plus the identity field whose
// presence makes a row worth exporting and suggesting for.
type Schema struct {
	fields   []Field
	index    map[string]int
	identity string
}

// New validates and freezes a field list. identity must name one of fields.
func New(identity string, fields ...Field) (*Schema, error) {
	if len(fields) == 0 {
		return nil, errors.New("schema has no fields")
	}
	s := &Schema{
		fields:   make([]Field, 0, len(fields)),
		index:    make(map[string]int, len(fields)),
		identity: identity,
	}
	for _, f := range fields {
		if f.Key == "" {
			return nil, errors.New("field with empty key")
		}
		if _, dup := s.index[f.Key]; dup {
			return nil, fmt.Errorf("duplicate field %q", f.Key)
		}
		if p, ok := f.Constraint.(Pattern); ok && p.Expr == nil {
			return nil, fmt.Errorf("field %q: pattern constraint without expression", f.Key)
		}
		if n, ok := f.Constraint.(Numeric); ok && n.Min != nil && n.Max != nil && *n.Min > *n.Max {
			return nil, fmt.Errorf("field %q: min %g above max %g", f.Key, *n.Min, *n.Max)
		}
		if f.Label == "" {
			f.Label = f.Key
		}
		s.index[f.Key] = len(s.fields)
		s.fields = append(s.fields, f)
	}
	if _, ok := s.index[identity]; !ok {
		return nil, fmt.Errorf("identity field %q not in schema", identity)
	}
	return s, nil
}

// MustNew is New for package-level schemas known to be valid.
func MustNew(identity string, fields ...Field) *Schema {
	s, err := New(identity, fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// #endregion schema

// #region accessors
// Fields returns the fields in declaration order.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Field looks up a field by key.
func (s *Schema) Field(key string) (Field, bool) {
	i, ok := s.index[key]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// Keys returns the field keys in declaration order.
func (s *Schema) Keys() []string {
	keys := make([]string, len(s.fields))
	for i, f := range s.fields {
		keys[i] = f.Key
	}
	return keys
}

// AIAssisted returns the keys eligible for AI suggestions.
func (s *Schema) AIAssisted() []string {
	var keys []string
	for _, f := range s.fields {
		if f.AIAssisted {
			keys = append(keys, f.Key)
		}
	}
	return keys
}

// Identity returns the identity field key.
func (s *Schema) Identity() string {
	return s.identity
}

// BlankRecord returns the default row: every field null.
func (s *Schema) BlankRecord() record.Record {
	r := make(record.Record, len(s.fields))
	for _, f := range s.fields {
		r[f.Key] = record.Null()
	}
	return r
}

// HasIdentity reports whether r has a non-empty identity value.
func (s *Schema) HasIdentity(r record.Record) bool {
	return !r.Get(s.identity).IsEmpty()
}

// Normalize returns a copy of r holding exactly the schema's keys.
func (s *Schema) Normalize(r record.Record) record.Record {
	out := s.BlankRecord()
	for k := range out {
		if v, ok := r[k]; ok {
			out[k] = v
		}
	}
	return out
}

// #endregion accessors
