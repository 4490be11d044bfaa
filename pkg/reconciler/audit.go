package reconciler

import (
	"fmt"
	"io"
	"strings"
	"time"

	"sigs.k8s.io/yaml"
)

// AuditFormat selects how the audit log is rendered.
type AuditFormat string

const (
	AuditFormatText AuditFormat = "text"
	AuditFormatYAML AuditFormat = "yaml"
)

// ParseAuditFormat validates a configured format name. Empty means text.
func ParseAuditFormat(s string) (AuditFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(AuditFormatText):
		return AuditFormatText, nil
	case string(AuditFormatYAML), "yml":
		return AuditFormatYAML, nil
	default:
		return "", fmt.Errorf("unknown audit format %q (want text or yaml)", s)
	}
}

// Decision records how one ADD CHECK statement was classified.
type Decision struct {
	Ref ConstraintRef
	// Skipped is true when the value sets matched and the statement was removed.
	Skipped   bool
	OldValues ValueSet
	NewValues ValueSet
}

const auditRule = "============================================================"

// AuditLog accumulates what happened during a run. It is rendered once at
// the end and never read back.
type AuditLog struct {
	StartedAt     time.Time
	Version       string
	MigrationFile string
	Decisions     []Decision
	Summary       *Summary
}

// Record appends a classification.
func (a *AuditLog) Record(d Decision) {
	a.Decisions = append(a.Decisions, d)
}

// Render writes the log in the given format.
func (a *AuditLog) Render(w io.Writer, format AuditFormat) error {
	switch format {
	case AuditFormatText:
		_, err := io.WriteString(w, a.text())
		return err
	case AuditFormatYAML:
		out, err := yaml.Marshal(a.document())
		if err != nil {
			return fmt.Errorf("encoding audit log: %w", err)
		}
		_, err = w.Write(out)
		return err
	default:
		return fmt.Errorf("unknown audit format %q", format)
	}
}

func (a *AuditLog) text() string {
	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}

	line(auditRule)
	line("CHECK constraint verification")
	line("Run at: %s", a.StartedAt.Format("2006-01-02 15:04:05"))
	if a.Version != "" {
		line("Version: %s", a.Version)
	}
	line("Migration file: %s", a.MigrationFile)
	line(auditRule)
	line("")

	for _, d := range a.Decisions {
		if d.Skipped {
			line("[SKIPPED] %s", d.Ref)
			line("  Values: %s", d.NewValues)
		} else {
			line("[KEPT - MODIFIED] %s", d.Ref)
			line("  Old values: %s", d.OldValues)
			line("  New values: %s", d.NewValues)
		}
		line("")
	}

	line(auditRule)
	line("Summary")
	line(auditRule)
	s := a.Summary
	if s == nil {
		s = &Summary{}
	}
	switch s.State {
	case StateFileNotFound:
		line("Result: Migration file not found")
	case StateEmptyInput:
		line("Result: Migration file is empty")
	case StateNoChangesSkipped:
		line("Skipped constraints: 0")
		line("Result: No identical constraints found")
	case StateFileNowEmpty:
		line("Skipped constraints: %d", s.SkippedConstraints)
		line("Removed lines: %d", s.RemovedLines)
		line("Result: File is now empty (all changes were false positives)")
	case StateSomeRealChangesRemain:
		line("Skipped constraints: %d", s.SkippedConstraints)
		line("Removed lines: %d", s.RemovedLines)
		line("Result: Some real changes remain in the file")
	}
	return b.String()
}

type auditDocument struct {
	Title         string          `json:"title"`
	RunAt         string          `json:"runAt"`
	Version       string          `json:"version,omitempty"`
	MigrationFile string          `json:"migrationFile"`
	Constraints   []auditDecision `json:"constraints"`
	Summary       auditSummary    `json:"summary"`
}

type auditDecision struct {
	Constraint string   `json:"constraint"`
	Result     string   `json:"result"`
	OldValues  []string `json:"oldValues,omitempty"`
	NewValues  []string `json:"newValues"`
}

type auditSummary struct {
	SkippedConstraints int    `json:"skippedConstraints"`
	RemovedLines       int    `json:"removedLines"`
	State              string `json:"state"`
}

func (a *AuditLog) document() auditDocument {
	doc := auditDocument{
		Title:         "CHECK constraint verification",
		RunAt:         a.StartedAt.Format(time.RFC3339),
		Version:       a.Version,
		MigrationFile: a.MigrationFile,
		Constraints:   make([]auditDecision, 0, len(a.Decisions)),
	}
	for _, d := range a.Decisions {
		entry := auditDecision{Constraint: d.Ref.String(), NewValues: d.NewValues.Sorted()}
		if d.Skipped {
			entry.Result = "skipped"
		} else {
			entry.Result = "kept-modified"
			entry.OldValues = d.OldValues.Sorted()
		}
		doc.Constraints = append(doc.Constraints, entry)
	}
	if a.Summary != nil {
		doc.Summary = auditSummary{
			SkippedConstraints: a.Summary.SkippedConstraints,
			RemovedLines:       a.Summary.RemovedLines,
			State:              a.Summary.State.String(),
		}
	}
	return doc
}
