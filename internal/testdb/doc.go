//go:build integration

// Package testdb provides utilities for database integration tests: a
// connection that skips the test when no database is configured, the embedded
// schema migrations, and per-test transactions that are always rolled back.
package testdb
