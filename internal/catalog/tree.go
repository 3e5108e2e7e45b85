// Package catalog holds the educational content tree
// (year → term → language → subject → chapters/lessons) and the service
// that reads and edits it as one versioned document.
package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/iliyamo/edu-platform/internal/apperr"
)

// Catalog is the root of the content tree.
type Catalog struct {
	Years map[string]*Year `json:"years"`
}

type Year struct {
	Terms map[string]*Term `json:"terms"`
}

type Term struct {
	Languages map[string]*Language `json:"languages"`
}

type Language struct {
	Subjects map[string]*Subject `json:"subjects"`
}

// Subject owns the chapter and lesson id namespaces. Ids are unique within a
// subject only.
type Subject struct {
	Chapters map[int]*Chapter `json:"chapters"`
	Lessons  map[int]*Lesson  `json:"lessons"`
}

type Chapter struct {
	ID    int     `json:"id"`
	Title string  `json:"title"`
	Price float64 `json:"price"`
}

type Lesson struct {
	ID          int     `json:"id"`
	ChapterID   int     `json:"chapter_id"`
	Title       string  `json:"title"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	VideoURL    string  `json:"video_url,omitempty"`
	PDFURL      string  `json:"pdf_url,omitempty"`
	Hours       float64 `json:"hours"`
	IsFree      bool    `json:"isFree"`
}

// Path addresses a subject.
type Path struct {
	Year     string `json:"year"`
	Term     string `json:"term"`
	Language string `json:"language"`
	Subject  string `json:"subject"`
}

// Validate rejects empty segments and segments containing '/'.
func (p Path) Validate() error {
	for _, seg := range []struct{ level, v string }{
		{"year", p.Year}, {"term", p.Term}, {"language", p.Language}, {"subject", p.Subject},
	} {
		if strings.TrimSpace(seg.v) == "" {
			return apperr.Validation("%s is required", seg.level)
		}
		if strings.Contains(seg.v, "/") {
			return apperr.Validation("%s must not contain '/'", seg.level)
		}
	}
	return nil
}

// String renders the path as year/term/language/subject. Receipts and
// payments store this form.
func (p Path) String() string {
	return p.Year + "/" + p.Term + "/" + p.Language + "/" + p.Subject
}

// ParsePath is the inverse of Path.String.
func ParsePath(s string) (Path, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 4 {
		return Path{}, apperr.Validation("item path must have four segments")
	}
	p := Path{Year: parts[0], Term: parts[1], Language: parts[2], Subject: parts[3]}
	return p, p.Validate()
}

// NotFoundError names the level of the tree where a lookup stopped.
type NotFoundError struct {
	Level string
	Key   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Level, e.Key)
}

// Is makes every NotFoundError match apperr.ErrNotFound.
func (e *NotFoundError) Is(target error) bool { return target == apperr.ErrNotFound }

// New returns an empty catalog.
func New() *Catalog { return &Catalog{Years: map[string]*Year{}} }

// Subject walks the tree along p.
func (c *Catalog) Subject(p Path) (*Subject, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	y, ok := c.Years[p.Year]
	if !ok || y == nil {
		return nil, &NotFoundError{Level: "year", Key: p.Year}
	}
	t, ok := y.Terms[p.Term]
	if !ok || t == nil {
		return nil, &NotFoundError{Level: "term", Key: p.Term}
	}
	l, ok := t.Languages[p.Language]
	if !ok || l == nil {
		return nil, &NotFoundError{Level: "language", Key: p.Language}
	}
	s, ok := l.Subjects[p.Subject]
	if !ok || s == nil {
		return nil, &NotFoundError{Level: "subject", Key: p.Subject}
	}
	s.init()
	return s, nil
}

// EnsureSubject creates every missing node along p and returns the subject.
func (c *Catalog) EnsureSubject(p Path) (*Subject, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if c.Years == nil {
		c.Years = map[string]*Year{}
	}
	y := c.Years[p.Year]
	if y == nil {
		y = &Year{}
		c.Years[p.Year] = y
	}
	if y.Terms == nil {
		y.Terms = map[string]*Term{}
	}
	t := y.Terms[p.Term]
	if t == nil {
		t = &Term{}
		y.Terms[p.Term] = t
	}
	if t.Languages == nil {
		t.Languages = map[string]*Language{}
	}
	l := t.Languages[p.Language]
	if l == nil {
		l = &Language{}
		t.Languages[p.Language] = l
	}
	if l.Subjects == nil {
		l.Subjects = map[string]*Subject{}
	}
	s := l.Subjects[p.Subject]
	if s == nil {
		s = &Subject{}
		l.Subjects[p.Subject] = s
	}
	s.init()
	return s, nil
}

func (s *Subject) init() {
	if s.Chapters == nil {
		s.Chapters = map[int]*Chapter{}
	}
	if s.Lessons == nil {
		s.Lessons = map[int]*Lesson{}
	}
}

// Chapter returns a chapter by id.
func (s *Subject) Chapter(id int) (*Chapter, error) {
	ch, ok := s.Chapters[id]
	if !ok || ch == nil {
		return nil, &NotFoundError{Level: "chapter", Key: fmt.Sprint(id)}
	}
	return ch, nil
}

// Lesson returns a lesson by id.
func (s *Subject) Lesson(id int) (*Lesson, error) {
	l, ok := s.Lessons[id]
	if !ok || l == nil {
		return nil, &NotFoundError{Level: "lesson", Key: fmt.Sprint(id)}
	}
	return l, nil
}

// ChapterList returns chapters ordered by id.
func (s *Subject) ChapterList() []*Chapter {
	out := make([]*Chapter, 0, len(s.Chapters))
	for _, ch := range s.Chapters {
		out = append(out, ch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// LessonsOf returns the lessons of a chapter ordered by id.
func (s *Subject) LessonsOf(chapterID int) []*Lesson {
	out := []*Lesson{}
	for _, l := range s.Lessons {
		if l.ChapterID == chapterID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ChapterInput carries the editable fields of a chapter.
type ChapterInput struct {
	Title string  `json:"title"`
	Price float64 `json:"price"`
}

func (in ChapterInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return apperr.Validation("title is required")
	}
	if in.Price < 0 {
		return apperr.Validation("price must not be negative")
	}
	return nil
}

// LessonInput carries the editable fields of a lesson.
type LessonInput struct {
	ChapterID   int     `json:"chapter_id"`
	Title       string  `json:"title"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	VideoURL    string  `json:"video_url"`
	PDFURL      string  `json:"pdf_url"`
	Hours       float64 `json:"hours"`
	IsFree      bool    `json:"isFree"`
}

func (in LessonInput) validate(s *Subject) error {
	if strings.TrimSpace(in.Title) == "" {
		return apperr.Validation("title is required")
	}
	if in.Price < 0 || in.Hours < 0 {
		return apperr.Validation("price and hours must not be negative")
	}
	if _, ok := s.Chapters[in.ChapterID]; !ok {
		return apperr.Validation("chapter %d does not exist in this subject", in.ChapterID)
	}
	return nil
}

// AddChapter stores a new chapter under the next free id.
func (s *Subject) AddChapter(in ChapterInput) (*Chapter, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	ch := &Chapter{ID: nextID(s.Chapters), Title: strings.TrimSpace(in.Title), Price: in.Price}
	s.Chapters[ch.ID] = ch
	return ch, nil
}

// UpdateChapter replaces the editable fields of a chapter.
func (s *Subject) UpdateChapter(id int, in ChapterInput) (*Chapter, error) {
	ch, err := s.Chapter(id)
	if err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	ch.Title = strings.TrimSpace(in.Title)
	ch.Price = in.Price
	return ch, nil
}

// DeleteChapter removes a chapter after removing every lesson that points
// at it. The ids of the removed lessons are returned in ascending order.
func (s *Subject) DeleteChapter(id int) ([]int, error) {
	if _, err := s.Chapter(id); err != nil {
		return nil, err
	}
	removed := []int{}
	for lid, l := range s.Lessons {
		if l.ChapterID == id {
			delete(s.Lessons, lid)
			removed = append(removed, lid)
		}
	}
	delete(s.Chapters, id)
	sort.Ints(removed)
	return removed, nil
}

// AddLesson stores a new lesson under the next free id. The chapter must
// exist in the same subject.
func (s *Subject) AddLesson(in LessonInput) (*Lesson, error) {
	if err := in.validate(s); err != nil {
		return nil, err
	}
	l := in.lesson(nextID(s.Lessons))
	s.Lessons[l.ID] = l
	return l, nil
}

// UpdateLesson replaces the editable fields of a lesson.
func (s *Subject) UpdateLesson(id int, in LessonInput) (*Lesson, error) {
	if _, err := s.Lesson(id); err != nil {
		return nil, err
	}
	if err := in.validate(s); err != nil {
		return nil, err
	}
	l := in.lesson(id)
	s.Lessons[id] = l
	return l, nil
}

// DeleteLesson removes a lesson.
func (s *Subject) DeleteLesson(id int) error {
	if _, err := s.Lesson(id); err != nil {
		return err
	}
	delete(s.Lessons, id)
	return nil
}

func (in LessonInput) lesson(id int) *Lesson {
	return &Lesson{
		ID:          id,
		ChapterID:   in.ChapterID,
		Title:       strings.TrimSpace(in.Title),
		Price:       in.Price,
		Description: in.Description,
		VideoURL:    in.VideoURL,
		PDFURL:      in.PDFURL,
		Hours:       in.Hours,
		IsFree:      in.IsFree,
	}
}

// nextID returns max(existing)+1, or 1 for an empty map.
func nextID[T any](m map[int]T) int {
	top := 0
	for id := range m {
		if id > top {
			top = id
		}
	}
	return top + 1
}
