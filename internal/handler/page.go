package handler

import (
	"fmt"
	"io/fs"
	"net/http"
)

const indexPath = "templates/index.html"

type PageHandler struct {
	index  []byte
	static http.Handler
}

// NewPageHandler serves templates/index.html at the root and everything
// under static/ at /static/.
func NewPageHandler(fsys fs.FS) (*PageHandler, error) {
	index, err := fs.ReadFile(fsys, indexPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", indexPath, err)
	}

	static, err := fs.Sub(fsys, "static")
	if err != nil {
		return nil, fmt.Errorf("failed to open static dir: %w", err)
	}

	return &PageHandler{
		index:  index,
		static: http.StripPrefix("/static/", http.FileServer(http.FS(filesOnly{static}))),
	}, nil
}

func (p *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(p.index)
}

func (p *PageHandler) Static(w http.ResponseWriter, r *http.Request) {
	p.static.ServeHTTP(w, r)
}

func Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// filesOnly hides directories so the file server never lists them.
type filesOnly struct {
	fsys fs.FS
}

func (f filesOnly) Open(name string) (fs.File, error) {
	file, err := f.fsys.Open(name)
	if err != nil {
		return nil, err
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	if info.IsDir() {
		_ = file.Close()
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return file, nil
}
