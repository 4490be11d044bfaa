package reconciler

import (
	"fmt"
	"regexp"
)

// Kind identifies which constraint statement shape a line matched.
type Kind int

const (
	// KindAddCheck is `alter table "s"."t" add constraint "n" CHECK (...)`.
	KindAddCheck Kind = iota + 1
	// KindValidate is `alter table "s"."t" validate constraint "n"`.
	KindValidate
	// KindDrop is `alter table "s"."t" drop constraint "n"`.
	KindDrop
)

func (k Kind) String() string {
	switch k {
	case KindAddCheck:
		return "add-check"
	case KindValidate:
		return "validate"
	case KindDrop:
		return "drop"
	default:
		return "unknown"
	}
}

// ConstraintRef identifies a named constraint on a table. It is comparable
// and used directly as a map key.
type ConstraintRef struct {
	Schema string
	Table  string
	Name   string
}

func (r ConstraintRef) String() string {
	return fmt.Sprintf("%s.%s.%s", r.Schema, r.Table, r.Name)
}

// Statement is a recognized constraint statement.
// Definition is only set for KindAddCheck and holds the text from CHECK
// to the end of the line.
type Statement struct {
	Kind       Kind
	Ref        ConstraintRef
	Definition string
}

// The diff tool emits one statement per line with double-quoted identifiers.
// Matching is a search, not an anchored parse, so leading whitespace and
// trailing semicolons are tolerated.
var (
	addCheckPattern = regexp.MustCompile(`(?i)alter table "([^"]+)"\."([^"]+)" add constraint "([^"]+)" (CHECK.*)`)
	validatePattern = regexp.MustCompile(`(?i)alter table "([^"]+)"\."([^"]+)" validate constraint "([^"]+)"`)
	dropPattern     = regexp.MustCompile(`(?i)alter table "([^"]+)"\."([^"]+)" drop constraint "([^"]+)"`)
)

// ParseStatement matches line against the three recognized shapes.
// ADD CONSTRAINT lines for anything other than CHECK (foreign keys, unique,
// primary keys) do not match and report ok=false.
func ParseStatement(line string) (Statement, bool) {
	if m := addCheckPattern.FindStringSubmatch(line); m != nil {
		return Statement{
			Kind:       KindAddCheck,
			Ref:        ConstraintRef{Schema: m[1], Table: m[2], Name: m[3]},
			Definition: m[4],
		}, true
	}
	if m := dropPattern.FindStringSubmatch(line); m != nil {
		return Statement{Kind: KindDrop, Ref: ConstraintRef{Schema: m[1], Table: m[2], Name: m[3]}}, true
	}
	if m := validatePattern.FindStringSubmatch(line); m != nil {
		return Statement{Kind: KindValidate, Ref: ConstraintRef{Schema: m[1], Table: m[2], Name: m[3]}}, true
	}
	return Statement{}, false
}
