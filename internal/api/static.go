package api

import (
	"net/http"
	"os"

	"github.com/yegors/flightdesk/pkg/logger"
)

// StaticFileHandler serves the dashboard pages from a directory. "/" maps to
// index.html and "/event/" to event/index.html. Lookups are confined to the
// directory by os.Root, so ".." and symlinks cannot escape it.
type StaticFileHandler struct {
	staticDir string
	files     http.Handler
	logger    *logger.Logger
}

// NewStaticFileHandler creates a new static file handler
func NewStaticFileHandler(staticDir string, log *logger.Logger) *StaticFileHandler {
	h := &StaticFileHandler{
		staticDir: staticDir,
		logger:    log.Named("static-handler"),
	}

	root, err := os.OpenRoot(staticDir)
	if err != nil {
		h.logger.Warn("Static directory unavailable, dashboard pages disabled",
			logger.String("dir", staticDir),
			logger.Error(err))
		return h
	}
	h.files = http.FileServerFS(root.FS())
	return h
}

// ServeHTTP serves static files without caching
func (h *StaticFileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.files == nil {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	// Pages are edited in place; always revalidate
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")

	h.logger.Debug("Serving static file", logger.String("requested_path", r.URL.Path))
	h.files.ServeHTTP(w, r)
}
