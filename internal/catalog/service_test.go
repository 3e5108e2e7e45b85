package catalog_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/edu-platform/internal/apperr"
	"github.com/iliyamo/edu-platform/internal/catalog"
	"github.com/iliyamo/edu-platform/internal/testutil"
)

var path = catalog.Path{Year: "2025", Term: "first", Language: "en", Subject: "physics"}

func TestServiceWritesPersistAndNotify(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewCatalogStore()
	changes := 0
	svc := catalog.NewService(store, func(context.Context) { changes++ })

	_, err := svc.CreateChapter(ctx, path, catalog.ChapterInput{Title: "Motion"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	require.NoError(t, svc.EnsureSubject(ctx, path))
	ch, err := svc.CreateChapter(ctx, path, catalog.ChapterInput{Title: "Motion", Price: 30})
	require.NoError(t, err)
	l, err := svc.CreateLesson(ctx, path, catalog.LessonInput{ChapterID: ch.ID, Title: "Velocity", Hours: 1.5})
	require.NoError(t, err)

	got, err := svc.Lesson(ctx, path, l.ID)
	require.NoError(t, err)
	assert.Equal(t, "Velocity", got.Title)
	lessons, err := svc.ChapterLessons(ctx, path, ch.ID)
	require.NoError(t, err)
	assert.Len(t, lessons, 1)

	updated, err := svc.UpdateChapter(ctx, path, ch.ID, catalog.ChapterInput{Title: "Kinematics", Price: 35})
	require.NoError(t, err)
	assert.Equal(t, "Kinematics", updated.Title)

	removed, err := svc.DeleteChapter(ctx, path, ch.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{l.ID}, removed)
	_, err = svc.Lesson(ctx, path, l.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	assert.Equal(t, 5, changes)
}

func TestServiceRetriesStaleSaves(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewCatalogStore()
	svc := catalog.NewService(store, nil)
	require.NoError(t, svc.EnsureSubject(ctx, path))

	store.StaleSaves = 2
	ch, err := svc.CreateChapter(ctx, path, catalog.ChapterInput{Title: "Waves"})
	require.NoError(t, err)
	assert.Equal(t, 1, ch.ID)

	store.StaleSaves = 3
	_, err = svc.CreateChapter(ctx, path, catalog.ChapterInput{Title: "Optics"})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	sub, err := svc.Subject(ctx, path)
	require.NoError(t, err)
	assert.Len(t, sub.Chapters, 1)
}

func TestServiceRejectsInvalidInputWithoutSaving(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewCatalogStore()
	svc := catalog.NewService(store, nil)
	require.NoError(t, svc.EnsureSubject(ctx, path))
	saves := store.Saves

	_, err := svc.CreateLesson(ctx, path, catalog.LessonInput{ChapterID: 1, Title: "Orphan"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.ErrorIs(t, svc.EnsureSubject(ctx, catalog.Path{Year: "2025"}), apperr.ErrValidation)
	assert.Equal(t, saves, store.Saves)
}
