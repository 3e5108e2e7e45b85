package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/edu-platform/internal/catalog"
)

// CatalogHandler exposes the content tree: public reads and admin writes.
type CatalogHandler struct {
	Catalog *catalog.Service
}

func NewCatalogHandler(svc *catalog.Service) *CatalogHandler {
	if svc == nil {
		panic("nil catalog service passed to NewCatalogHandler")
	}
	return &CatalogHandler{Catalog: svc}
}

type subjectView struct {
	Path     catalog.Path       `json:"path"`
	Chapters []*catalog.Chapter `json:"chapters"`
	Lessons  []*catalog.Lesson  `json:"lessons"`
}

func newSubjectView(p catalog.Path, s *catalog.Subject) subjectView {
	v := subjectView{Path: p, Chapters: s.ChapterList(), Lessons: []*catalog.Lesson{}}
	for _, ch := range v.Chapters {
		v.Lessons = append(v.Lessons, s.LessonsOf(ch.ID)...)
	}
	return v
}

// Tree returns the whole catalog.
func (h *CatalogHandler) Tree(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	cat, err := h.Catalog.Snapshot(ctx)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, cat)
}

func (h *CatalogHandler) Subject(c echo.Context) error {
	p, err := catalogPath(c)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	s, err := h.Catalog.Subject(ctx, p)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, newSubjectView(p, s))
}

func (h *CatalogHandler) Chapter(c echo.Context) error {
	p, id, err := pathAndID(c)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	ch, err := h.Catalog.Chapter(ctx, p, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, ch)
}

func (h *CatalogHandler) ChapterLessons(c echo.Context) error {
	p, id, err := pathAndID(c)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	ls, err := h.Catalog.ChapterLessons(ctx, p, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, ls)
}

func (h *CatalogHandler) Lesson(c echo.Context) error {
	p, id, err := pathAndID(c)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	l, err := h.Catalog.Lesson(ctx, p, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, l)
}

// ----- admin writes -----

// EnsureSubject creates the year/term/language/subject path if missing.
func (h *CatalogHandler) EnsureSubject(c echo.Context) error {
	p, err := catalogPath(c)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Catalog.EnsureSubject(ctx, p); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"path": p})
}

func (h *CatalogHandler) CreateChapter(c echo.Context) error {
	p, err := catalogPath(c)
	if err != nil {
		return fail(c, err)
	}
	var in catalog.ChapterInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	ch, err := h.Catalog.CreateChapter(ctx, p, in)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, ch)
}

func (h *CatalogHandler) UpdateChapter(c echo.Context) error {
	p, id, err := pathAndID(c)
	if err != nil {
		return fail(c, err)
	}
	var in catalog.ChapterInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	ch, err := h.Catalog.UpdateChapter(ctx, p, id, in)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, ch)
}

func (h *CatalogHandler) DeleteChapter(c echo.Context) error {
	p, id, err := pathAndID(c)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	removed, err := h.Catalog.DeleteChapter(ctx, p, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"deleted_chapter": id, "deleted_lessons": removed})
}

func (h *CatalogHandler) CreateLesson(c echo.Context) error {
	p, err := catalogPath(c)
	if err != nil {
		return fail(c, err)
	}
	var in catalog.LessonInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	l, err := h.Catalog.CreateLesson(ctx, p, in)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, l)
}

func (h *CatalogHandler) UpdateLesson(c echo.Context) error {
	p, id, err := pathAndID(c)
	if err != nil {
		return fail(c, err)
	}
	var in catalog.LessonInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	l, err := h.Catalog.UpdateLesson(ctx, p, id, in)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, l)
}

func (h *CatalogHandler) DeleteLesson(c echo.Context) error {
	p, id, err := pathAndID(c)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Catalog.DeleteLesson(ctx, p, id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func pathAndID(c echo.Context) (catalog.Path, int, error) {
	p, err := catalogPath(c)
	if err != nil {
		return p, 0, err
	}
	id, err := intParam(c, "id")
	return p, id, err
}
