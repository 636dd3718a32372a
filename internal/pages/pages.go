package pages

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
)

// Page names accepted by Render.
const (
	Index        = "index"
	Simulation   = "simulation"
	Instructions = "instructions"
	Models       = "models"
	NotFound     = "404"
)

var titles = map[string]string{
	Index:        "Home",
	Simulation:   "Simulation",
	Instructions: "Instructions",
	Models:       "Models",
	NotFound:     "Page Not Found",
}

// ErrWrite marks a Render failure that happened after the status line was
// sent, typically because the client went away. Callers must not try to
// write another response.
var ErrWrite = errors.New("writing page")

// Site carries the values the browser-side viewer is configured with.
type Site struct {
	Title             string
	AssetsBaseURL     string
	EarthTextureURL   string
	SatellitesDataURL string
}

// AppConfig is injected into pages as window.APP_CONFIG.
type AppConfig struct {
	EarthTextureURL   string `json:"earthTextureUrl"`
	AssetsBaseURL     string `json:"assetsBaseUrl"`
	SatellitesDataURL string `json:"satellitesDataUrl"`
}

// NavItem is one entry of the top navigation bar.
type NavItem struct {
	Page  string
	Path  string
	Label string
}

// Data holds everything a page template can reference.
type Data struct {
	Title        string
	Page         string
	Site         Site
	Nav          []NavItem
	AppConfig    AppConfig
	Instructions template.HTML
	Models       []Model
	Categories   []string
}

// Engine holds the parsed page templates and the embedded site content.
// It is immutable after New and safe for concurrent use.
type Engine struct {
	templates    map[string]*template.Template
	site         Site
	nav          []NavItem
	instructions template.HTML
	models       []Model
	categories   []string
	static       fs.FS
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"title": capitalize,
	}
}

// New parses every page together with the shared layout and loads the
// embedded content. Any parse failure is returned immediately.
func New(site Site) (*Engine, error) {
	funcs := templateFuncs()

	engine := &Engine{
		templates: make(map[string]*template.Template, len(titles)),
		site:      site,
		nav: []NavItem{
			{Page: Index, Path: "/", Label: "Home"},
			{Page: Simulation, Path: "/simulation", Label: "Simulation"},
			{Page: Instructions, Path: "/instructions", Label: "Instructions"},
			{Page: Models, Path: "/models", Label: "Models"},
		},
	}

	for _, page := range Names() {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(
			templateFS,
			"templates/layout.html",
			"templates/"+page+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", page, err)
		}
		engine.templates[page] = t
	}

	md, err := fs.ReadFile(contentFS, "content/instructions.md")
	if err != nil {
		return nil, fmt.Errorf("reading instructions: %w", err)
	}
	if engine.instructions, err = renderMarkdown(md); err != nil {
		return nil, err
	}

	raw, err := fs.ReadFile(contentFS, "content/models.yaml")
	if err != nil {
		return nil, fmt.Errorf("reading model catalog: %w", err)
	}
	if engine.models, err = parseCatalog(raw); err != nil {
		return nil, err
	}
	engine.categories = categories(engine.models)

	engine.static, err = fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("opening static assets: %w", err)
	}

	return engine, nil
}

// Names lists every renderable page.
func Names() []string {
	return []string{Index, Simulation, Instructions, Models, NotFound}
}

// Static returns the embedded asset tree rooted at static/.
func (e *Engine) Static() fs.FS {
	return e.static
}

// Render executes the named page and writes it with the given status code.
// The page is rendered into a buffer first so a failed render leaves the
// response untouched.
func (e *Engine) Render(w http.ResponseWriter, status int, name string) error {
	var buf bytes.Buffer
	if err := e.RenderTo(&buf, name); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		return fmt.Errorf("%w %s: %w", ErrWrite, name, err)
	}

	return nil
}

// RenderTo executes the named page into an arbitrary writer.
func (e *Engine) RenderTo(w io.Writer, name string) error {
	t, ok := e.templates[name]
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}

	return t.ExecuteTemplate(w, "layout.html", e.data(name))
}

func (e *Engine) data(name string) Data {
	d := Data{
		Title: titles[name],
		Page:  name,
		Site:  e.site,
		Nav:   e.nav,
	}

	switch name {
	case Simulation:
		d.AppConfig = AppConfig{
			EarthTextureURL:   e.site.EarthTextureURL,
			AssetsBaseURL:     e.site.AssetsBaseURL,
			SatellitesDataURL: e.site.SatellitesDataURL,
		}
	case Instructions:
		d.Instructions = e.instructions
	case Models:
		d.Models = e.models
		d.Categories = e.categories
	}

	return d
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
