package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxTagNameLength bounds a tag name in characters.
const MaxTagNameLength = 50

// Tag is a label shared by name across all users. Names are unique and
// compared case-sensitively.
type Tag struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewTag creates a tag with a fresh ID. The store may return an existing row
// with the same name instead.
func NewTag(name string) (*Tag, error) {
	name = strings.TrimSpace(name)
	if err := ValidateTagName("name", name); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &Tag{ID: uuid.New(), Name: name, CreatedAt: now, UpdatedAt: now}, nil
}

// ValidateTagName checks a single already-trimmed tag name.
func ValidateTagName(field, name string) error {
	if ve := checkTagName(field, name); ve != nil {
		return ve
	}
	return nil
}

func checkTagName(field, name string) *ValidationError {
	if name == "" {
		return NewValidationError(field, "The tag name is required.", ErrValidation)
	}
	if utf8.RuneCountInString(name) > MaxTagNameLength {
		return NewValidationError(field,
			fmt.Sprintf("The tag name may not be greater than %d characters.", MaxTagNameLength),
			ErrValidation)
	}
	return nil
}

// NormalizeTagNames trims each name, validates it and drops duplicates while
// keeping first-seen order.
func NormalizeTagNames(names []string) ([]string, error) {
	var errs ValidationErrors
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))

	for i, raw := range names {
		name := strings.TrimSpace(raw)
		if ve := checkTagName(fmt.Sprintf("tags.%d", i), name); ve != nil {
			errs = append(errs, ve)
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}

	if err := errs.OrNil(); err != nil {
		return nil, err
	}
	return out, nil
}
