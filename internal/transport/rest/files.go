package rest

import (
	"embed"
	"fmt"
	"net/http"
	"os"

	"bcp-export/internal/clients"

	"github.com/go-chi/chi/v5"
)

//go:embed web/index.html
var webFS embed.FS

func (h *Handler) index(w http.ResponseWriter, r *http.Request) {
	page, err := webFS.ReadFile("web/index.html")
	if err != nil {
		ErrorInternal(w, "page not available")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

// downloadFile serves a stored archive under its original name.
func (h *Handler) downloadFile(w http.ResponseWriter, r *http.Request) {
	file := chi.URLParam(r, "file")

	path, err := h.files.Path(file)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, "failed to access file", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", clients.DisplayName(file)))
	http.ServeFile(w, r, path)
}
