package filestore_test

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/taskly-api/internal/platform/filestore"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func newTestStore(t *testing.T) (*filestore.Store, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	return filestore.New(fs, "/storage/", nil), fs
}

func TestStore_Save(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		fileName string
		declared string
		content  []byte
		wantMIME string
		wantExt  string
	}{
		{
			name:     "sniffed image overrides declared type",
			fileName: "photo.JPG",
			declared: "application/pdf",
			content:  pngHeader,
			wantMIME: "image/png",
			wantExt:  ".jpg",
		},
		{
			name:     "text drops charset parameter",
			fileName: "notes.txt",
			declared: "text/plain",
			content:  []byte("buy milk\nwalk dog\n"),
			wantMIME: "text/plain",
			wantExt:  ".txt",
		},
		{
			name:     "opaque bytes fall back to declared type",
			fileName: "report.docx",
			declared: "application/vnd.openxmlformats-officedocument.wordprocessingml.document; foo=bar",
			content:  []byte{0x13, 0x37, 0xde, 0xad, 0xbe, 0xef, 0x00},
			wantMIME: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
			wantExt:  ".docx",
		},
		{
			name:     "content larger than the sniff window",
			fileName: "big.csv",
			declared: "text/csv",
			content:  bytes.Repeat([]byte("a,b,c\n"), 2000),
			wantExt:  ".csv",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s, fs := newTestStore(t)
			taskID := uuid.New()

			stored, err := s.Save(context.Background(), taskID, tt.fileName, tt.declared, bytes.NewReader(tt.content))
			require.NoError(t, err)

			assert.True(t, strings.HasPrefix(stored.Path, "attachments/"+taskID.String()+"/"))
			assert.True(t, strings.HasSuffix(stored.Path, tt.wantExt))
			assert.Equal(t, int64(len(tt.content)), stored.Size)
			if tt.wantMIME != "" {
				assert.Equal(t, tt.wantMIME, stored.MIMEType)
			}

			written, err := afero.ReadFile(fs, stored.Path)
			require.NoError(t, err)
			assert.Equal(t, tt.content, written)
		})
	}
}

func TestStore_SaveGeneratesDistinctPaths(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)
	taskID := uuid.New()

	a, err := s.Save(context.Background(), taskID, "same.txt", "text/plain", strings.NewReader("one"))
	require.NoError(t, err)
	b, err := s.Save(context.Background(), taskID, "same.txt", "text/plain", strings.NewReader("two"))
	require.NoError(t, err)
	assert.NotEqual(t, a.Path, b.Path)
}

func TestStore_OpenAndDelete(t *testing.T) {
	t.Parallel()

	s, fs := newTestStore(t)
	ctx := context.Background()

	stored, err := s.Save(ctx, uuid.New(), "notes.txt", "text/plain", strings.NewReader("hello"))
	require.NoError(t, err)

	f, err := s.Open(stored.Path)
	require.NoError(t, err)
	content, err := io.ReadAll(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.Equal(t, "hello", string(content))

	require.NoError(t, s.Delete(ctx, stored.Path))
	exists, err := afero.Exists(fs, stored.Path)
	require.NoError(t, err)
	assert.False(t, exists)

	assert.NoError(t, s.Delete(ctx, stored.Path), "deleting an absent blob is tolerated")

	_, err = s.Open(stored.Path)
	assert.ErrorIs(t, err, filestore.ErrBlobNotFound)
}

func TestStore_RejectsPathsOutsideAttachments(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)

	for _, p := range []string{"../etc/passwd", "attachments/../../secret", "other/file.txt", ""} {
		_, err := s.Open(p)
		assert.ErrorIs(t, err, filestore.ErrInvalidPath, p)
		assert.ErrorIs(t, s.Delete(context.Background(), p), filestore.ErrInvalidPath, p)
	}
}

func TestStore_URL(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)
	assert.Equal(t, "/storage/attachments/a/b.png", s.URL("attachments/a/b.png"))

	remote := filestore.New(afero.NewMemMapFs(), "https://cdn.example.com/files", nil)
	assert.Equal(t, "https://cdn.example.com/files/attachments/a/b.png", remote.URL("/attachments/a/b.png"))
}
