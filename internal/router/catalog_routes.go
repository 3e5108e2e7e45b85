package router

import (
	"github.com/labstack/echo/v4"
)

// RegisterCatalog registers the public, unauthenticated catalog reads.
// cache serves repeated GETs from Redis; catalog writes flush it.
func RegisterCatalog(e *echo.Echo, h Handlers, cache echo.MiddlewareFunc) {
	g := e.Group("/v1/catalog", cache)
	g.GET("", h.Catalog.Tree)
	g.GET("/:year/:term/:lang/:subject", h.Catalog.Subject)
	g.GET("/:year/:term/:lang/:subject/chapters/:id", h.Catalog.Chapter)
	g.GET("/:year/:term/:lang/:subject/chapters/:id/lessons", h.Catalog.ChapterLessons)
	g.GET("/:year/:term/:lang/:subject/lessons/:id", h.Catalog.Lesson)
}
