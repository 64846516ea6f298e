package content

import (
	"fmt"
	"strings"
)

// Location points at the part of a content file a problem was found in.
type Location struct {
	File  string
	Index int // record index inside a sequence file, -1 for single-record files
	Field string
	Line  int
}

// At returns a copy of the location narrowed to a field.
func (l Location) At(field string, line int) Location {
	if l.Field != "" && field != "" {
		field = l.Field + "." + field
	} else if field == "" {
		field = l.Field
	}
	l.Field = field
	if line > 0 {
		l.Line = line
	}
	return l
}

func (l Location) String() string {
	var b strings.Builder
	b.WriteString(l.File)
	if l.Index >= 0 {
		fmt.Fprintf(&b, "[%d]", l.Index)
	}
	if l.Field != "" {
		fmt.Fprintf(&b, " field %s", l.Field)
	}
	if l.Line > 0 {
		fmt.Fprintf(&b, " (line %d)", l.Line)
	}
	return b.String()
}

// SchemaError reports a missing or malformed field.
type SchemaError struct {
	Loc    Location
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error at %s: %s", e.Loc, e.Reason)
}

// RangeError reports a value outside its allowed range, such as a non-positive weight.
type RangeError struct {
	Loc    Location
	Value  any
	Reason string
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("range error at %s: %v %s", e.Loc, e.Value, e.Reason)
}

// ReferenceError reports an identifier that does not exist in the target registry.
type ReferenceError struct {
	Loc  Location
	Kind Kind
	ID   string
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("reference error at %s: unknown %s %q", e.Loc, e.Kind, e.ID)
}

func schemaErr(loc Location, format string, args ...any) error {
	return &SchemaError{Loc: loc, Reason: fmt.Sprintf(format, args...)}
}

func rangeErr(loc Location, value any, format string, args ...any) error {
	return &RangeError{Loc: loc, Value: value, Reason: fmt.Sprintf(format, args...)}
}
