package filestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/phrazzld/taskly-api/internal/platform/logger"
	"github.com/spf13/afero"
)

// AttachmentsDir is the top-level directory for all task blobs.
const AttachmentsDir = "attachments"

// sniffLen is how much of a blob is read to detect its content type.
const sniffLen = 3072

const octetStream = "application/octet-stream"

var (
	// ErrInvalidPath is returned for paths outside AttachmentsDir.
	ErrInvalidPath = errors.New("invalid blob path")
	// ErrBlobNotFound is returned by Open when the blob is absent.
	ErrBlobNotFound = errors.New("blob not found")
)

// StoredFile describes a blob written by Save.
type StoredFile struct {
	Path     string
	MIMEType string
	Size     int64
}

// Store reads and writes blobs on an afero filesystem.
type Store struct {
	fs      afero.Fs
	baseURL string
	logger  *slog.Logger
}

// New creates a Store over fsys. Stored paths resolve to URLs under publicBaseURL.
func New(fsys afero.Fs, publicBaseURL string, logger *slog.Logger) *Store {
	if fsys == nil {
		panic("fs cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		fs:      fsys,
		baseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:  logger.With(slog.String("component", "filestore")),
	}
}

// NewOS creates a Store rooted at dir on the local disk.
func NewOS(dir, publicBaseURL string, logger *slog.Logger) (*Store, error) {
	osFs := afero.NewOsFs()
	if err := osFs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return New(afero.NewBasePathFs(osFs, dir), publicBaseURL, logger), nil
}

// Save writes r under attachments/<taskID>/ with a random name. The MIME type
// is sniffed from content; declaredMIME is used only when sniffing yields
// nothing more specific than application/octet-stream.
func (s *Store) Save(
	ctx context.Context,
	taskID uuid.UUID,
	fileName string,
	declaredMIME string,
	r io.Reader,
) (*StoredFile, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	head = head[:n]

	detected := mimetype.Detect(head)
	mimeType := detected.String()
	if detected.Is(octetStream) && declaredMIME != "" {
		mimeType = declaredMIME
	}
	mimeType = baseMIME(mimeType)

	ext := strings.ToLower(path.Ext(fileName))
	if ext == "" {
		ext = detected.Extension()
	}

	dir := path.Join(AttachmentsDir, taskID.String())
	blobPath := path.Join(dir, uuid.NewString()+ext)

	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}

	f, err := s.fs.Create(blobPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob: %w", err)
	}

	size, copyErr := io.Copy(f, io.MultiReader(bytes.NewReader(head), r))
	closeErr := f.Close()
	if copyErr != nil || closeErr != nil {
		if rmErr := s.fs.Remove(blobPath); rmErr != nil {
			log.Warn("failed to remove partial blob", slog.String("error", rmErr.Error()))
		}
		if copyErr != nil {
			return nil, fmt.Errorf("failed to write blob: %w", copyErr)
		}
		return nil, fmt.Errorf("failed to close blob: %w", closeErr)
	}

	log.Debug("blob stored",
		slog.String("task_id", taskID.String()),
		slog.String("mime_type", mimeType),
		slog.Int64("size", size))

	return &StoredFile{Path: blobPath, MIMEType: mimeType, Size: size}, nil
}

// Delete removes a blob. A blob that is already gone is not an error.
func (s *Store) Delete(ctx context.Context, blobPath string) error {
	clean, err := cleanPath(blobPath)
	if err != nil {
		return err
	}

	if err := s.fs.Remove(clean); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.FromContextOrDefault(ctx, s.logger).Debug("blob already absent")
			return nil
		}
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

// Open returns the blob for reading. The caller closes it.
func (s *Store) Open(blobPath string) (afero.File, error) {
	clean, err := cleanPath(blobPath)
	if err != nil {
		return nil, err
	}

	f, err := s.fs.Open(clean)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("failed to open blob: %w", err)
	}
	return f, nil
}

// URL maps a stored path to a client-fetchable address.
func (s *Store) URL(blobPath string) string {
	return s.baseURL + "/" + strings.TrimLeft(blobPath, "/")
}

func cleanPath(p string) (string, error) {
	clean := path.Clean("/" + p)[1:]
	if !strings.HasPrefix(clean, AttachmentsDir+"/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	return clean, nil
}

func baseMIME(m string) string {
	base, _, _ := strings.Cut(m, ";")
	return strings.ToLower(strings.TrimSpace(base))
}
