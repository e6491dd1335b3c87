package httpx

import (
	"mime"
	"net/http"
	"path"
	"path/filepath"
	"strings"
)

// registerFrontend serves the single page app and locally stored media.
func (r *Router) registerFrontend() {
	if r.staticDir != "" {
		r.handle("/{$}", "index", r.handleIndex)
		r.handle("/pet/{code}", "pet_page", r.handleIndex)
		r.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(noListing{http.Dir(r.staticDir)})))
	}
	if r.uploadsDir != "" {
		r.mux.Handle("/uploads/", http.StripPrefix("/uploads/", mediaOnly(http.FileServer(noListing{http.Dir(r.uploadsDir)}))))
	}
}

func (r *Router) handleIndex(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		r.methodNotAllowed(w)
		return
	}
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeFile(w, req, filepath.Join(r.staticDir, "index.html"))
}

// mediaOnly stops browsers from sniffing uploaded files and serves anything
// that is not an image or video as an opaque download.
func mediaOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		header := w.Header()
		header.Set("X-Content-Type-Options", "nosniff")
		contentType := mime.TypeByExtension(strings.ToLower(path.Ext(req.URL.Path)))
		if !strings.HasPrefix(contentType, "image/") && !strings.HasPrefix(contentType, "video/") {
			header.Set("Content-Type", "application/octet-stream")
			header.Set("Content-Disposition", "attachment")
		}
		next.ServeHTTP(w, req)
	})
}

// noListing hides directory indexes from the file servers.
type noListing struct {
	fs http.FileSystem
}

func (n noListing) Open(name string) (http.File, error) {
	f, err := n.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if info.IsDir() {
		index, err := n.fs.Open(filepath.ToSlash(filepath.Join(name, "index.html")))
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		_ = index.Close()
	}
	return f, nil
}
