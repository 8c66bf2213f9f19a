// Package filestore persists attachment blobs on an afero filesystem. Paths are
// relative to the filesystem root and namespaced by task ID.
package filestore
