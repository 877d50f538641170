package server

import (
	"net/http"
	"path"
	"path/filepath"

	"leadbox/internal/seo"
	"leadbox/pkg/fileutil"
)

// HandleRobots serves robots.txt
func (s *Server) HandleRobots(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(seo.Robots(s.Config.Site.BaseURL, s.Config.Site.Disallow)))
}

// HandleSitemap serves sitemap.xml built from the configured pages
func (s *Server) HandleSitemap(w http.ResponseWriter, r *http.Request) {
	pages := make([]seo.Page, 0, len(s.Config.Site.Pages))
	for _, p := range s.Config.Site.Pages {
		pages = append(pages, seo.Page{
			Path:       p.Path,
			ChangeFreq: p.ChangeFreq,
			Priority:   p.Priority,
			LastMod:    p.LastMod,
		})
	}

	out, err := seo.Sitemap(s.Config.Site.BaseURL, pages, s.now())
	if err != nil {
		s.Logger.Error("Failed to build sitemap", "error", err)
		http.Error(w, "Failed to build sitemap", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Write(out)
}

// staticHandler serves the built site from dir. Directories without an
// index.html are reported as missing instead of listed.
func staticHandler(dir string) http.Handler {
	files := http.FileServer(http.Dir(dir))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := filepath.Join(dir, filepath.FromSlash(path.Clean("/"+r.URL.Path)))
		if fileutil.DirExists(name) && !fileutil.FileExists(filepath.Join(name, "index.html")) {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})
}
