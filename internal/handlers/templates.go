package handlers

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/TriAlliance/sb1-xbshc9-TriShop/internal/models"
	"github.com/TriAlliance/sb1-xbshc9-TriShop/internal/settings"
)

// Assets holds the page templates and the static files served under /static/.
//
//go:embed templates/*.html static
var Assets embed.FS

const layoutFile = "layout.html"

// TemplateCache holds parsed templates
type TemplateCache struct {
	cache map[string]*template.Template
	mu    sync.RWMutex
	funcs template.FuncMap
}

func NewTemplateCache() *TemplateCache {
	return &TemplateCache{
		cache: make(map[string]*template.Template),
		funcs: make(template.FuncMap),
	}
}

func (tc *TemplateCache) AddFunc(name string, fn interface{}) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.funcs[name] = fn
}

// Load parses every page in templates/ of fsys together with the shared layout.
func (tc *TemplateCache) Load(fsys fs.FS) error {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	tc.funcs["stock"] = formatStock
	tc.funcs["imageLines"] = imageLines
	tc.funcs["mask"] = settings.Mask
	tc.funcs["when"] = func(t time.Time) string { return t.Local().Format("2006-01-02 15:04") }

	files, err := fs.Glob(fsys, "templates/*.html")
	if err != nil {
		return err
	}
	for _, file := range files {
		name := path.Base(file)
		if name == layoutFile {
			continue
		}
		tmpl, err := template.New(name).Funcs(tc.funcs).ParseFS(fsys, "templates/"+layoutFile, file)
		if err != nil {
			slog.Error("Failed to parse template", "file", file, "error", err)
			return err
		}
		tc.cache[name] = tmpl
		slog.Debug("Cached template", "name", name)
	}
	return nil
}

func (tc *TemplateCache) Get(name string) *template.Template {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.cache[name]
}

// Render executes the named page into a buffer so a template error never
// leaves a half-written response.
func (tc *TemplateCache) Render(w http.ResponseWriter, name string, data map[string]interface{}) {
	tmpl := tc.Get(name)
	if tmpl == nil {
		http.Error(w, "Template not found", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		slog.Error("Failed to render template", "name", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

func formatStock(q *int) string {
	if q == nil {
		return "-"
	}
	return strconv.Itoa(*q)
}

func imageLines(images []models.Image) string {
	srcs := make([]string, 0, len(images))
	for _, img := range images {
		srcs = append(srcs, img.Src)
	}
	return strings.Join(srcs, "\n")
}
