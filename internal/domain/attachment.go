package domain

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FileKind is the coarse class of an attachment derived from its MIME type.
type FileKind string

const (
	FileKindImage    FileKind = "image"
	FileKindVideo    FileKind = "video"
	FileKindDocument FileKind = "document"
)

// FileKindFromMIME classifies by MIME prefix: image/* and video/* map to
// their kinds, everything else is a document.
func FileKindFromMIME(mimeType string) FileKind {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	switch {
	case strings.HasPrefix(mt, "image/"):
		return FileKindImage
	case strings.HasPrefix(mt, "video/"):
		return FileKindVideo
	default:
		return FileKindDocument
	}
}

// MaxAttachmentBytes is the per-file upload limit (10240 KB).
const MaxAttachmentBytes int64 = 10240 * 1024

// AllowedAttachmentExtensions lists the accepted upload extensions.
var AllowedAttachmentExtensions = map[string]struct{}{
	"jpg": {}, "jpeg": {}, "png": {}, "gif": {}, "mp4": {},
	"csv": {}, "txt": {}, "doc": {}, "docx": {},
}

// Attachment is a file stored alongside a task. FilePath is relative to the
// blob store root.
type Attachment struct {
	ID        uuid.UUID
	TaskID    uuid.UUID
	FileName  string
	FilePath  string
	FileKind  FileKind
	MIMEType  string
	Size      int64
	DeletedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewAttachment records metadata for a blob already written to path.
func NewAttachment(taskID uuid.UUID, fileName, path, mimeType string, size int64) (*Attachment, error) {
	var errs ValidationErrors
	if taskID == uuid.Nil {
		errs.Add("task_id", "cannot be empty")
	}
	if strings.TrimSpace(fileName) == "" {
		errs.Add("file_name", "cannot be empty")
	}
	if path == "" {
		errs.Add("file_path", "cannot be empty")
	}
	if size < 0 {
		errs.Add("size", "cannot be negative")
	}
	if err := errs.OrNil(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Attachment{
		ID:        uuid.New(),
		TaskID:    taskID,
		FileName:  fileName,
		FilePath:  path,
		FileKind:  FileKindFromMIME(mimeType),
		MIMEType:  mimeType,
		Size:      size,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Extension returns the lower-case extension of FileName without the dot.
func (a *Attachment) Extension() string {
	return FileExtension(a.FileName)
}

func (a *Attachment) IsImage() bool    { return a.FileKind == FileKindImage }
func (a *Attachment) IsVideo() bool    { return a.FileKind == FileKindVideo }
func (a *Attachment) IsDocument() bool { return a.FileKind == FileKindDocument }

// FormattedSize renders Size with a binary unit, e.g. "1.5 KB".
func (a *Attachment) FormattedSize() string {
	return FormatBytes(a.Size)
}

// FileExtension returns the lower-case extension of name without the dot.
func FileExtension(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

// ValidateUpload checks an incoming file against the extension allow-list
// and maxBytes.
func ValidateUpload(field, fileName string, size, maxBytes int64) error {
	ext := FileExtension(fileName)
	if _, ok := AllowedAttachmentExtensions[ext]; !ok {
		return NewValidationError(field,
			"The file must be a file of type: jpg, jpeg, png, gif, mp4, csv, txt, doc, docx.",
			ErrValidation)
	}
	if maxBytes > 0 && size > maxBytes {
		return NewValidationError(field,
			fmt.Sprintf("The file may not be greater than %d kilobytes.", maxBytes/1024),
			ErrValidation)
	}
	return nil
}

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB"}

// FormatBytes renders n using 1024-based units up to TB, rounded to two decimals.
func FormatBytes(n int64) string {
	if n <= 0 {
		return "0 B"
	}
	pow := int(math.Floor(math.Log(float64(n)) / math.Log(1024)))
	if pow >= len(sizeUnits) {
		pow = len(sizeUnits) - 1
	}
	value := float64(n) / math.Pow(1024, float64(pow))
	value = math.Round(value*100) / 100
	return strconv.FormatFloat(value, 'f', -1, 64) + " " + sizeUnits[pow]
}
