package handlers

import (
	"io/fs"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/memohai/supportdesk/web"
)

var spaBackendPrefixes = []string{
	"/api",
	"/static",
	"/uploads",
	"/health",
	"/ping",
}

// WebHandler serves the embedded widget assets and falls back to index.html
// for extension-less frontend routes.
type WebHandler struct {
	logger *slog.Logger
	root   fs.FS
	static fs.FS
}

func NewWebHandler(log *slog.Logger) *WebHandler {
	return newWebHandler(log, web.FS(), web.Static())
}

func newWebHandler(log *slog.Logger, root, static fs.FS) *WebHandler {
	return &WebHandler{
		logger: log.With(slog.String("handler", "web")),
		root:   root,
		static: static,
	}
}

func (h *WebHandler) Register(e *echo.Echo) {
	e.StaticFS("/static", h.static)
	e.GET("/", h.Index)
	e.GET("/*", h.Fallback)
}

func (h *WebHandler) Index(c echo.Context) error {
	data, err := fs.ReadFile(h.root, web.IndexFile)
	if err != nil {
		h.logger.Error("index missing", slog.Any("error", err))
		return echo.ErrNotFound
	}
	return c.HTMLBlob(http.StatusOK, data)
}

// Fallback answers unknown paths: frontend routes get index.html, anything
// that looks like a file or a backend path gets 404.
func (h *WebHandler) Fallback(c echo.Context) error {
	if !shouldServeSPARoute(c.Request().URL.Path) {
		return writeError(c, http.StatusNotFound, "Not found")
	}
	return h.Index(c)
}

func shouldServeSPARoute(path string) bool {
	if path == "" || path == "/" {
		return true
	}
	if strings.Contains(path, ".") {
		return false
	}
	for _, prefix := range spaBackendPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return false
		}
	}
	return true
}
