package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/labstack/gommon/log"

	"github.com/iliyamo/edu-platform/internal/apperr"
	"github.com/iliyamo/edu-platform/internal/metrics"
)

// ErrStaleVersion is returned by a Store when the document changed since
// it was loaded.
var ErrStaleVersion = errors.New("catalog version changed")

// Store loads and saves the whole catalog document. Save succeeds only when
// the stored version still equals expected and returns the new version.
type Store interface {
	Load(ctx context.Context) (*Catalog, uint64, error)
	Save(ctx context.Context, c *Catalog, expected uint64) (uint64, error)
}

const maxSaveAttempts = 3

// Service reads and edits the catalog. Every write is load → mutate → save
// with optimistic concurrency; a lost race is retried from a fresh load.
type Service struct {
	store    Store
	onChange func(ctx context.Context)
}

// NewService wires a Store. onChange runs after every successful write and
// may be nil; it is used to drop cached catalog responses.
func NewService(store Store, onChange func(ctx context.Context)) *Service {
	return &Service{store: store, onChange: onChange}
}

// Snapshot returns the current catalog.
func (s *Service) Snapshot(ctx context.Context) (*Catalog, error) {
	c, _, err := s.store.Load(ctx)
	return c, err
}

// Subject returns the subject at p.
func (s *Service) Subject(ctx context.Context, p Path) (*Subject, error) {
	c, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return c.Subject(p)
}

// Chapter returns one chapter of the subject at p.
func (s *Service) Chapter(ctx context.Context, p Path, id int) (*Chapter, error) {
	sub, err := s.Subject(ctx, p)
	if err != nil {
		return nil, err
	}
	return sub.Chapter(id)
}

// ChapterLessons returns the lessons of one chapter.
func (s *Service) ChapterLessons(ctx context.Context, p Path, id int) ([]*Lesson, error) {
	sub, err := s.Subject(ctx, p)
	if err != nil {
		return nil, err
	}
	if _, err := sub.Chapter(id); err != nil {
		return nil, err
	}
	return sub.LessonsOf(id), nil
}

// Lesson returns one lesson of the subject at p.
func (s *Service) Lesson(ctx context.Context, p Path, id int) (*Lesson, error) {
	sub, err := s.Subject(ctx, p)
	if err != nil {
		return nil, err
	}
	return sub.Lesson(id)
}

// EnsureSubject creates the nodes along p.
func (s *Service) EnsureSubject(ctx context.Context, p Path) error {
	return s.mutate(ctx, func(c *Catalog) error {
		_, err := c.EnsureSubject(p)
		return err
	})
}

func (s *Service) CreateChapter(ctx context.Context, p Path, in ChapterInput) (*Chapter, error) {
	var out *Chapter
	err := s.mutateSubject(ctx, p, func(sub *Subject) (err error) {
		out, err = sub.AddChapter(in)
		return err
	})
	return out, err
}

func (s *Service) UpdateChapter(ctx context.Context, p Path, id int, in ChapterInput) (*Chapter, error) {
	var out *Chapter
	err := s.mutateSubject(ctx, p, func(sub *Subject) (err error) {
		out, err = sub.UpdateChapter(id, in)
		return err
	})
	return out, err
}

// DeleteChapter removes a chapter and its lessons and returns the removed
// lesson ids.
func (s *Service) DeleteChapter(ctx context.Context, p Path, id int) ([]int, error) {
	var removed []int
	err := s.mutateSubject(ctx, p, func(sub *Subject) (err error) {
		removed, err = sub.DeleteChapter(id)
		return err
	})
	return removed, err
}

func (s *Service) CreateLesson(ctx context.Context, p Path, in LessonInput) (*Lesson, error) {
	var out *Lesson
	err := s.mutateSubject(ctx, p, func(sub *Subject) (err error) {
		out, err = sub.AddLesson(in)
		return err
	})
	return out, err
}

func (s *Service) UpdateLesson(ctx context.Context, p Path, id int, in LessonInput) (*Lesson, error) {
	var out *Lesson
	err := s.mutateSubject(ctx, p, func(sub *Subject) (err error) {
		out, err = sub.UpdateLesson(id, in)
		return err
	})
	return out, err
}

func (s *Service) DeleteLesson(ctx context.Context, p Path, id int) error {
	return s.mutateSubject(ctx, p, func(sub *Subject) error {
		return sub.DeleteLesson(id)
	})
}

func (s *Service) mutateSubject(ctx context.Context, p Path, fn func(*Subject) error) error {
	return s.mutate(ctx, func(c *Catalog) error {
		sub, err := c.Subject(p)
		if err != nil {
			return err
		}
		return fn(sub)
	})
}

func (s *Service) mutate(ctx context.Context, fn func(*Catalog) error) error {
	for attempt := 1; attempt <= maxSaveAttempts; attempt++ {
		c, version, err := s.store.Load(ctx)
		if err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}
		if err := fn(c); err != nil {
			metrics.CatalogWrite("rejected")
			return err
		}
		_, err = s.store.Save(ctx, c, version)
		if errors.Is(err, ErrStaleVersion) {
			log.Warnf("catalog: version %d went stale, retrying (attempt %d)", version, attempt)
			continue
		}
		if err != nil {
			return fmt.Errorf("save catalog: %w", err)
		}
		metrics.CatalogWrite("ok")
		if s.onChange != nil {
			s.onChange(ctx)
		}
		return nil
	}
	metrics.CatalogWrite("conflict")
	return apperr.Conflict("catalog was modified concurrently, try again")
}
