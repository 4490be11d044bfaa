// Command checkguard removes false-positive CHECK constraint changes from a
// generated PostgreSQL migration script.
//
// A schema diff tool compares the ORM's baseline database with the live one
// and emits DROP/ADD/VALIDATE triples for CHECK constraints whose textual
// definition changed but whose allowed values did not (case, ordering or
// cast rendering). checkguard looks each added constraint up in the
// reference database, drops the triple when the value sets match, and writes
// an audit log of every decision.
//
// Usage:
//
//	checkguard [migration_file] [log_file]
//
// Arguments override MIGRATION_FILE and SKIPPED_LOG_FILE; the reference
// database is taken from DB_DSN or checkguard.yaml.
package main

func main() {
	Execute()
}
