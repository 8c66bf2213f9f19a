// Package postgres provides PostgreSQL-specific implementations for the data
// storage interfaces defined in the internal/store package, and embeds the
// goose migrations that create the schema they query.
package postgres
