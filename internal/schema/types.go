package schema

import "regexp"

// #region kind
// Kind names the validation family of a field.
type Kind string

const (
	KindNumeric Kind = "numeric"
	KindEnum    Kind = "enum"
	KindText    Kind = "text"
	KindPattern Kind = "pattern"
)

// #endregion kind

// #region constraint
// Constraint is the kind-specific payload of a field. The set of
// implementations is closed: Numeric, Enum, Text, Pattern.
type Constraint interface {
	Kind() Kind
	sealed()
}

// Numeric constrains a field to a number, optionally whole, within [Min, Max].
type Numeric struct {
	Min     *float64
	Max     *float64
	Integer bool
	Unit    string // appended to bound messages, e.g. "m" or "kg"
}

// Enum constrains a field to one of Allowed.
type Enum struct {
	Allowed []string
}

// Text accepts any non-empty string.
type Text struct{}

// Pattern constrains a field to match Expr. Hint is shown when it does not.
type Pattern struct {
	Expr *regexp.Regexp
	Hint string
}

func (Numeric) Kind() Kind { return KindNumeric }
func (Enum) Kind() Kind    { return KindEnum }
func (Text) Kind() Kind    { return KindText }
func (Pattern) Kind() Kind { return KindPattern }

func (Numeric) sealed() {}
func (Enum) sealed()    {}
func (Text) sealed()    {}
func (Pattern) sealed() {}

// Allows reports whether v is in the allowed set.
func (e Enum) Allows(v string) bool {
	for _, a := range e.Allowed {
		if a == v {
			return true
		}
	}
	return false
}

// #endregion constraint

// #region field
// Field describes one column: its key, constraints, and whether the AI
// collaborator may propose values for it.
type Field struct {
	Key        string
	Label      string
	Required   bool
	AIAssisted bool
	Constraint Constraint
}

// Kind returns the constraint family, text when no constraint is set.
func (f Field) Kind() Kind {
	if f.Constraint == nil {
		return KindText
	}
	return f.Constraint.Kind()
}

// #endregion field

// Bound is a convenience for building Numeric constraints.
func Bound(f float64) *float64 { return &f }
