package catalog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/edu-platform/internal/apperr"
)

var bio = Path{Year: "2025", Term: "first", Language: "en", Subject: "biology"}

func subject(t *testing.T) *Subject {
	t.Helper()
	s, err := New().EnsureSubject(bio)
	require.NoError(t, err)
	return s
}

func TestPathValidate(t *testing.T) {
	assert.NoError(t, bio.Validate())
	assert.ErrorIs(t, Path{Year: "2025", Term: "first", Language: "en"}.Validate(), apperr.ErrValidation)
	assert.ErrorIs(t, Path{Year: "2025", Term: "a/b", Language: "en", Subject: "x"}.Validate(), apperr.ErrValidation)

	p, err := ParsePath(bio.String())
	require.NoError(t, err)
	assert.Equal(t, bio, p)
	_, err = ParsePath("2025/first")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestLookupReportsMissingLevel(t *testing.T) {
	c := New()
	_, err := c.EnsureSubject(bio)
	require.NoError(t, err)

	other := bio
	other.Language = "ar"
	_, err = c.Subject(other)
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "language", nf.Level)
	assert.Equal(t, "ar", nf.Key)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = New().Subject(bio)
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "year", nf.Level)
}

func TestIDsAreMaxPlusOne(t *testing.T) {
	s := subject(t)
	a, err := s.AddChapter(ChapterInput{Title: "Cells", Price: 10})
	require.NoError(t, err)
	b, err := s.AddChapter(ChapterInput{Title: "Genetics", Price: 20})
	require.NoError(t, err)
	assert.Equal(t, 1, a.ID)
	assert.Equal(t, 2, b.ID)

	_, err = s.DeleteChapter(1)
	require.NoError(t, err)
	c, err := s.AddChapter(ChapterInput{Title: "Ecology"})
	require.NoError(t, err)
	assert.Equal(t, 3, c.ID)

	_, err = s.DeleteChapter(3)
	require.NoError(t, err)
	_, err = s.DeleteChapter(2)
	require.NoError(t, err)
	d, err := s.AddChapter(ChapterInput{Title: "Again"})
	require.NoError(t, err)
	assert.Equal(t, 1, d.ID)
}

func TestLessonRequiresExistingChapter(t *testing.T) {
	s := subject(t)
	_, err := s.AddLesson(LessonInput{ChapterID: 7, Title: "Orphan"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	ch, err := s.AddChapter(ChapterInput{Title: "Cells"})
	require.NoError(t, err)
	l, err := s.AddLesson(LessonInput{ChapterID: ch.ID, Title: "Intro", IsFree: true})
	require.NoError(t, err)

	_, err = s.UpdateLesson(l.ID, LessonInput{ChapterID: 99, Title: "Moved"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, ch.ID, s.Lessons[l.ID].ChapterID)
}

func TestDeleteChapterCascadesToLessons(t *testing.T) {
	s := subject(t)
	c1, _ := s.AddChapter(ChapterInput{Title: "One"})
	c2, _ := s.AddChapter(ChapterInput{Title: "Two"})
	_, _ = s.AddLesson(LessonInput{ChapterID: c1.ID, Title: "a"})
	keep, _ := s.AddLesson(LessonInput{ChapterID: c2.ID, Title: "b"})
	_, _ = s.AddLesson(LessonInput{ChapterID: c1.ID, Title: "c"})

	removed, err := s.DeleteChapter(c1.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, removed)
	assert.Len(t, s.Lessons, 1)
	assert.Contains(t, s.Lessons, keep.ID)
	assert.Equal(t, []*Chapter{c2}, s.ChapterList())

	_, err = s.DeleteChapter(c1.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestInputValidation(t *testing.T) {
	s := subject(t)
	_, err := s.AddChapter(ChapterInput{Title: "  "})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = s.AddChapter(ChapterInput{Title: "x", Price: -1})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = s.UpdateChapter(5, ChapterInput{Title: "x"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, s.DeleteLesson(5), apperr.ErrNotFound)
}

func TestCodecRoundTripKeepsIntKeys(t *testing.T) {
	c := New()
	s, err := c.EnsureSubject(bio)
	require.NoError(t, err)
	ch, _ := s.AddChapter(ChapterInput{Title: "Cells", Price: 5})
	_, _ = s.AddLesson(LessonInput{ChapterID: ch.ID, Title: "Intro", VideoURL: "https://v/1"})

	body, err := Marshal(c)
	require.NoError(t, err)
	back, err := Unmarshal(body)
	require.NoError(t, err)
	sub, err := back.Subject(bio)
	require.NoError(t, err)
	l, err := sub.Lesson(1)
	require.NoError(t, err)
	assert.Equal(t, "https://v/1", l.VideoURL)
	assert.Equal(t, ch.ID, l.ChapterID)

	empty, err := Unmarshal([]byte(`{"years":null}`))
	require.NoError(t, err)
	assert.NotNil(t, empty.Years)
}
