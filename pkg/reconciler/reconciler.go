// Package reconciler strips cosmetic CHECK constraint churn from generated
// migration scripts.
//
// Schema diff tools compare the text PostgreSQL stores for a CHECK
// constraint (pg_get_constraintdef) with the text an ORM generates. The two
// differ in casts and parentheses even when the allowed values are the same,
// so the diff reports a DROP / ADD / VALIDATE triple that changes nothing.
// The Reconciler looks up each added CHECK constraint in the reference
// database, compares the enumerated values, and removes the triple when
// they match.
//
// Example usage:
//
//	r := reconciler.New(catalog.NewPostgres(db), reconciler.Options{})
//	summary, err := r.Run(ctx, "migration.sql", "skipped_constraints.log")
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(summary.State)
package reconciler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// Catalog looks up constraint definitions currently deployed in the
// reference database.
type Catalog interface {
	// Ping verifies the database is reachable.
	Ping(ctx context.Context) error
	// ConstraintDef returns the canonical definition of the named constraint
	// in schema. found is false when no such constraint exists.
	ConstraintDef(ctx context.Context, schema, name string) (def string, found bool, err error)
}

// State describes what a run did to the migration file.
type State int

const (
	// StateNoChangesSkipped means nothing was removed; the file is untouched.
	StateNoChangesSkipped State = iota
	// StateSomeRealChangesRemain means lines were removed and real changes remain.
	StateSomeRealChangesRemain
	// StateFileNowEmpty means every statement was cosmetic; the file is zero bytes.
	StateFileNowEmpty
	// StateFileNotFound means the migration file did not exist.
	StateFileNotFound
	// StateEmptyInput means the migration file had no lines.
	StateEmptyInput
)

func (s State) String() string {
	switch s {
	case StateNoChangesSkipped:
		return "no-changes-skipped"
	case StateSomeRealChangesRemain:
		return "some-real-changes-remain"
	case StateFileNowEmpty:
		return "file-now-empty"
	case StateFileNotFound:
		return "file-not-found"
	case StateEmptyInput:
		return "empty-input"
	default:
		return "unknown"
	}
}

// Summary is the result of a run.
type Summary struct {
	SkippedConstraints int
	RemovedLines       int
	State              State

	// Decisions lists every ADD CHECK statement that was compared against the
	// catalog, in script order.
	Decisions []Decision
}

// Options configures a Reconciler. Zero values select defaults.
type Options struct {
	// Fs is the filesystem for the migration and log files. Defaults to the OS.
	Fs afero.Fs

	// Reporter receives console output. Defaults to stdout/stderr.
	Reporter Reporter

	// AuditFormat selects the log format. Defaults to text.
	AuditFormat AuditFormat

	// Version is stamped into the audit header when non-empty.
	Version string

	// Now returns the run timestamp. Defaults to time.Now.
	Now func() time.Time
}

// Reconciler classifies and removes cosmetic CHECK constraint statements.
type Reconciler struct {
	catalog  Catalog
	fs       afero.Fs
	reporter Reporter
	format   AuditFormat
	version  string
	now      func() time.Time
}

// New creates a Reconciler that compares against cat.
func New(cat Catalog, opts Options) *Reconciler {
	r := &Reconciler{
		catalog:  cat,
		fs:       opts.Fs,
		reporter: opts.Reporter,
		format:   opts.AuditFormat,
		version:  opts.Version,
		now:      opts.Now,
	}
	if r.fs == nil {
		r.fs = afero.NewOsFs()
	}
	if r.reporter == nil {
		r.reporter = NewWriterReporter(os.Stdout, os.Stderr)
	}
	if r.format == "" {
		r.format = AuditFormatText
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// Run reconciles the migration script at migrationPath in place and writes
// the audit log to logPath.
//
// The process:
//  1. Read the script. A missing or empty file ends the run after the audit
//     log is written, without contacting the database.
//  2. Ping the catalog. Failure returns ErrCatalogUnavailable and nothing is written.
//  3. Classify every ADD CHECK statement against the deployed definition.
//  4. Mark DROP and VALIDATE statements for the constraints found cosmetic.
//  5. Rewrite the file without the marked lines. A symlinked path is
//     rewritten through the link.
//  6. Write the audit log.
//
// A failed lookup for a single constraint is reported as a warning and the
// statement is kept.
func (r *Reconciler) Run(ctx context.Context, migrationPath, logPath string) (*Summary, error) {
	audit := &AuditLog{
		StartedAt:     r.now(),
		Version:       r.version,
		MigrationFile: migrationPath,
	}

	script, err := ReadScript(r.fs, migrationPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		r.reporter.Progressf("Migration file not found")
		return r.finish(audit, &Summary{State: StateFileNotFound}, logPath)
	case err != nil:
		return nil, fmt.Errorf("reading migration file: %w", err)
	case len(script.Lines) == 0:
		r.reporter.Progressf("Migration file is empty")
		return r.finish(audit, &Summary{State: StateEmptyInput}, logPath)
	}

	if err := r.catalog.Ping(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
	}

	removed, skipped := r.classify(ctx, script, audit)
	r.markAssociated(script, skipped, removed)

	summary := &Summary{
		SkippedConstraints: len(skipped),
		RemovedLines:       len(removed),
		Decisions:          audit.Decisions,
	}

	if len(removed) == 0 {
		summary.State = StateNoChangesSkipped
		r.reporter.Progressf("  - No identical constraints found to skip")
		return r.finish(audit, summary, logPath)
	}

	kept := script.Without(removed)
	if strings.TrimSpace(kept) == "" {
		kept = ""
		summary.State = StateFileNowEmpty
	} else {
		summary.State = StateSomeRealChangesRemain
	}
	if err := script.Rewrite(r.fs, []byte(kept)); err != nil {
		return nil, fmt.Errorf("rewriting migration file: %w", err)
	}

	r.reporter.Progressf("  - Skipped %d identical constraints, removed %d lines",
		summary.SkippedConstraints, summary.RemovedLines)
	r.reporter.Progressf("  - Details: %s", logPath)

	return r.finish(audit, summary, logPath)
}

// classify is the first pass. It returns the line indexes to remove and the
// set of constraints whose change is cosmetic.
func (r *Reconciler) classify(ctx context.Context, script *Script, audit *AuditLog) (map[int]struct{}, map[ConstraintRef]struct{}) {
	removed := make(map[int]struct{})
	skipped := make(map[ConstraintRef]struct{})

	for i, line := range script.Lines {
		stmt, ok := ParseStatement(line)
		if !ok || stmt.Kind != KindAddCheck {
			continue
		}

		current, found, err := r.catalog.ConstraintDef(ctx, stmt.Ref.Schema, stmt.Ref.Name)
		if err != nil {
			// Treated like a first-time addition: the statement stays.
			r.reporter.Warnf("failed to get constraint %s: %v", stmt.Ref.Name, err)
			continue
		}
		if !found || current == "" {
			continue
		}

		newValues := ExtractValues(stmt.Definition)
		curValues := ExtractValues(current)

		if newValues.Equal(curValues) {
			removed[i] = struct{}{}
			skipped[stmt.Ref] = struct{}{}
			audit.Record(Decision{Ref: stmt.Ref, Skipped: true, OldValues: curValues, NewValues: newValues})
			continue
		}
		audit.Record(Decision{Ref: stmt.Ref, OldValues: curValues, NewValues: newValues})
	}

	return removed, skipped
}

// markAssociated is the second pass: the DROP and VALIDATE statements that
// belong to a cosmetic ADD must go with it or the script no longer runs.
func (r *Reconciler) markAssociated(script *Script, skipped map[ConstraintRef]struct{}, removed map[int]struct{}) {
	if len(skipped) == 0 {
		return
	}
	for i, line := range script.Lines {
		stmt, ok := ParseStatement(line)
		if !ok || (stmt.Kind != KindDrop && stmt.Kind != KindValidate) {
			continue
		}
		if _, cosmetic := skipped[stmt.Ref]; cosmetic {
			removed[i] = struct{}{}
		}
	}
}

// finish writes the audit log and returns summary.
func (r *Reconciler) finish(audit *AuditLog, summary *Summary, logPath string) (*Summary, error) {
	audit.Summary = summary

	var buf bytes.Buffer
	if err := audit.Render(&buf, r.format); err != nil {
		return nil, fmt.Errorf("rendering audit log: %w", err)
	}
	if err := afero.WriteFile(r.fs, logPath, buf.Bytes(), 0o644); err != nil {
		return nil, fmt.Errorf("writing audit log: %w", err)
	}
	return summary, nil
}
