package service

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/phrazzld/taskly-api/internal/platform/filestore"
	"github.com/spf13/afero"
)

// BlobStore persists attachment contents. It is satisfied by *filestore.Store.
type BlobStore interface {
	Save(ctx context.Context, taskID uuid.UUID, fileName, declaredMIME string, r io.Reader) (*filestore.StoredFile, error)
	Delete(ctx context.Context, path string) error
	Open(path string) (afero.File, error)
}

var _ BlobStore = (*filestore.Store)(nil)

// Upload is one file submitted with a task create or update. The caller owns
// Content and closes it after the service returns.
type Upload struct {
	FileName    string
	ContentType string
	Size        int64
	Content     io.Reader
}
