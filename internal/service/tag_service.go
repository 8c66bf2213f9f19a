package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskly-api/internal/domain"
	"github.com/phrazzld/taskly-api/internal/platform/logger"
	"github.com/phrazzld/taskly-api/internal/store"
)

// TagSearchLimit caps the number of tags returned by Search.
const TagSearchLimit = 10

// TagService manages the tags visible to a user.
type TagService interface {
	// List returns the tags on the actor's live tasks, sorted by name.
	List(ctx context.Context, actor *domain.User) ([]domain.Tag, error)

	// Search returns up to TagSearchLimit of the actor's tags containing query.
	Search(ctx context.Context, actor *domain.User, query string) ([]domain.Tag, error)

	// Create finds or creates a tag by name.
	Create(ctx context.Context, actor *domain.User, name string) (*domain.Tag, error)

	// Rename changes the name of a tag used on one of the actor's tasks.
	Rename(ctx context.Context, actor *domain.User, tagID uuid.UUID, name string) (*domain.Tag, error)

	// Delete removes a tag unless another user's task references it.
	Delete(ctx context.Context, actor *domain.User, tagID uuid.UUID) error
}

// TagServiceImpl implements TagService.
type TagServiceImpl struct {
	db     *sql.DB
	tags   store.TagStore
	now    func() time.Time
	logger *slog.Logger
}

var _ TagService = (*TagServiceImpl)(nil)

// NewTagService creates a TagService.
func NewTagService(db *sql.DB, tags store.TagStore, logger *slog.Logger) (*TagServiceImpl, error) {
	if db == nil {
		return nil, domain.NewValidationError("db", "cannot be nil", domain.ErrValidation)
	}
	if tags == nil {
		return nil, domain.NewValidationError("tags", "cannot be nil", domain.ErrValidation)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &TagServiceImpl{
		db:     db,
		tags:   tags,
		now:    time.Now,
		logger: logger.With(slog.String("component", "tag_service")),
	}, nil
}

// List implements TagService.List
func (s *TagServiceImpl) List(ctx context.Context, actor *domain.User) ([]domain.Tag, error) {
	if actor == nil {
		return nil, domain.CanListTasks(nil).Err()
	}
	tags, err := s.tags.ListForUser(ctx, actor.ID)
	if err != nil {
		return nil, NewTagServiceError("list", "failed to list tags", err)
	}
	return tags, nil
}

// Search implements TagService.Search
func (s *TagServiceImpl) Search(ctx context.Context, actor *domain.User, query string) ([]domain.Tag, error) {
	if actor == nil {
		return nil, domain.CanListTasks(nil).Err()
	}
	tags, err := s.tags.SearchForUser(ctx, actor.ID, strings.TrimSpace(query), TagSearchLimit)
	if err != nil {
		return nil, NewTagServiceError("search", "failed to search tags", err)
	}
	return tags, nil
}

// Create implements TagService.Create
func (s *TagServiceImpl) Create(ctx context.Context, actor *domain.User, name string) (*domain.Tag, error) {
	if err := domain.CanManageTags(actor).Err(); err != nil {
		return nil, err
	}

	tag, err := s.tags.FindOrCreate(ctx, name)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return nil, err
		}
		return nil, NewTagServiceError("create", "failed to save tag", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Debug("tag ensured",
		slog.String("tag_id", tag.ID.String()))
	return tag, nil
}

// Rename implements TagService.Rename
func (s *TagServiceImpl) Rename(
	ctx context.Context,
	actor *domain.User,
	tagID uuid.UUID,
	name string,
) (*domain.Tag, error) {
	if err := domain.CanManageTags(actor).Err(); err != nil {
		return nil, err
	}

	var renamed *domain.Tag
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txTags := s.tags.WithTx(tx)

		tag, err := txTags.GetByID(ctx, tagID)
		if err != nil {
			return err
		}

		// A tag the actor does not use is invisible to them.
		used, err := txTags.UsedByUser(ctx, tagID, actor.ID)
		if err != nil {
			return NewTagServiceError("rename", "failed to check tag usage", err)
		}
		if !used {
			return store.ErrTagNotFound
		}

		tag.Name = strings.TrimSpace(name)
		tag.UpdatedAt = s.now().UTC()
		if err := txTags.Rename(ctx, tag); err != nil {
			return err
		}
		renamed = tag
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrValidation) || errors.Is(err, store.ErrTagNotFound) ||
			errors.Is(err, store.ErrTagNameExists) {
			return nil, err
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to rename tag",
			slog.String("error", err.Error()),
			slog.String("tag_id", tagID.String()))
		return nil, NewTagServiceError("rename", "failed to rename tag", err)
	}
	return renamed, nil
}

// Delete implements TagService.Delete
func (s *TagServiceImpl) Delete(ctx context.Context, actor *domain.User, tagID uuid.UUID) error {
	if err := domain.CanManageTags(actor).Err(); err != nil {
		return err
	}

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txTags := s.tags.WithTx(tx)

		if _, err := txTags.GetByID(ctx, tagID); err != nil {
			return err
		}

		shared, err := txTags.UsedByOtherUsers(ctx, tagID, actor.ID)
		if err != nil {
			return NewTagServiceError("delete", "failed to check tag usage", err)
		}
		if shared {
			return domain.ErrTagInUse
		}

		return txTags.Delete(ctx, tagID)
	})
	if err != nil {
		if errors.Is(err, store.ErrTagNotFound) || errors.Is(err, domain.ErrTagInUse) {
			return err
		}
		return NewTagServiceError("delete", "failed to delete tag", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("tag deleted",
		slog.String("tag_id", tagID.String()),
		slog.String("user_id", actor.ID.String()))
	return nil
}
