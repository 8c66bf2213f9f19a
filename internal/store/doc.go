// Package store declares the persistence interfaces for users, access tokens,
// tasks, tags and attachments, and the error sentinels their implementations
// return. The PostgreSQL implementations live in internal/platform/postgres.
package store
