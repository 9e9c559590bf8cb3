package validation

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/danielpatrickdp/cargo-intake/internal/record"
	"github.com/danielpatrickdp/cargo-intake/internal/schema"
)

// #region validate-field
// ValidateField runs the rule checks for one cell. It is pure: the same field
// and value always give the same result.
//
// Rules in priority order: required, empty-optional, type coercion, bounds,
// enum membership, pattern.
func ValidateField(f schema.Field, v record.Value) Result {
	if v.IsEmpty() {
		if f.Required {
			return invalid(CodeRequired, "required")
		}
		return OK()
	}

	switch c := f.Constraint.(type) {
	case schema.Numeric:
		return checkNumeric(c, v)
	case schema.Enum:
		s := strings.TrimSpace(v.String())
		if !c.Allows(s) {
			return invalid(CodeEnum, "must be one of "+strings.Join(c.Allowed, ", "))
		}
		return OK()
	case schema.Pattern:
		if !c.Expr.MatchString(strings.TrimSpace(v.String())) {
			msg := c.Hint
			if msg == "" {
				msg = "must match " + c.Expr.String()
			}
			return invalid(CodePattern, msg)
		}
		return OK()
	case schema.Text, nil:
		return OK()
	default:
		panic(fmt.Sprintf("validation: unhandled constraint %T", c))
	}
}

func checkNumeric(c schema.Numeric, v record.Value) Result {
	n, ok := v.Float()
	if !ok || math.IsNaN(n) || math.IsInf(n, 0) {
		if c.Integer {
			return invalid(CodeType, "must be an integer")
		}
		return invalid(CodeType, "must be a number")
	}
	if c.Integer && n != math.Trunc(n) {
		return invalid(CodeType, "must be an integer")
	}
	if c.Min != nil && n < *c.Min {
		return invalid(CodeRange, "must be at least "+bound(*c.Min, c.Unit))
	}
	if c.Max != nil && n > *c.Max {
		return invalid(CodeRange, "must be at most "+bound(*c.Max, c.Unit))
	}
	return OK()
}

func bound(f float64, unit string) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if unit != "" {
		s += " " + unit
	}
	return s
}

// #endregion validate-field

// #region merge-advisory
// MergeAdvisory overlays an advisory issue on a rule result. Required-field
// violations are terminal and returned unchanged.
func MergeAdvisory(base Result, issue Issue) Result {
	if base.Terminal() {
		return base
	}
	conf := issue.Confidence
	out := Result{
		Message:    issue.Message,
		Confidence: &conf,
		Code:       CodeAdvisory,
	}
	switch issue.Severity {
	case SeverityError:
		out.Valid = false
	default:
		out.Valid = true
		out.Warning = true
	}
	return out
}

// #endregion merge-advisory
