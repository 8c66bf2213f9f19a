// Package service implements account, task and tag operations on behalf of an
// acting user.
//
// Services enforce ownership and guest policies from the domain package, open
// transactions with store.RunInTransaction when a use case touches more than
// one store, and keep attachment blobs in step with their rows: blobs written
// inside a failed transaction are discarded, and blobs of deleted tasks are
// removed only after the delete commits.
//
// Errors from stores pass through wrapped in ServiceError so callers can still
// match store and domain sentinels with errors.Is.
package service
