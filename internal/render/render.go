package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/kursadbilgin/dispatch-console/internal/console"
	"github.com/kursadbilgin/dispatch-console/internal/domain"
)

// DateLayout is how timestamps are shown to the operator.
const DateLayout = "02.01.2006 15:04"

//go:embed templates/*.html
var templateFS embed.FS

// Layout selects how the notification list is drawn.
type Layout string

const (
	LayoutCards Layout = "cards"
	LayoutTable Layout = "table"
)

func (l Layout) String() string { return string(l) }

func (l Layout) IsValid() bool {
	return l == LayoutCards || l == LayoutTable
}

func ParseLayout(s string) (Layout, error) {
	normalized := Layout(strings.ToLower(strings.TrimSpace(s)))
	if normalized == "" {
		return LayoutCards, nil
	}
	if !normalized.IsValid() {
		return "", fmt.Errorf("%w: invalid layout %q", domain.ErrValidation, s)
	}
	return normalized, nil
}

type Renderer struct {
	templates *template.Template
	layout    Layout
}

func New(layout Layout) (*Renderer, error) {
	if layout == "" {
		layout = LayoutCards
	}
	if !layout.IsValid() {
		return nil, fmt.Errorf("%w: invalid layout %q", domain.ErrValidation, layout)
	}

	templates, err := template.New("console").Funcs(funcMap()).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	return &Renderer{templates: templates, layout: layout}, nil
}

func (r *Renderer) Layout() Layout { return r.layout }

type pageData struct {
	console.View
	Layout         Layout
	Filters        []domain.Filter
	Channels       []domain.Channel
	MinSendAt      string
	RefreshSeconds int
}

type confirmData struct {
	ID     string
	Prompt string
}

// Page renders the full console: create form, filter, list frame and details modal.
func (r *Renderer) Page(w io.Writer, view console.View) error {
	return r.execute(w, "page", r.newPageData(view))
}

// List renders the self-refreshing list panel: banners, loading state and the list.
func (r *Renderer) List(w io.Writer, view console.View) error {
	return r.execute(w, "list", r.newPageData(view))
}

func (r *Renderer) ConfirmCancel(w io.Writer, id string) error {
	return r.execute(w, "confirm", confirmData{ID: id, Prompt: console.CancelPrompt})
}

func (r *Renderer) execute(w io.Writer, name string, data any) error {
	if err := r.templates.ExecuteTemplate(w, name, data); err != nil {
		return fmt.Errorf("failed to render %s: %w", name, err)
	}
	return nil
}

func (r *Renderer) newPageData(view console.View) pageData {
	loc := view.Location
	if loc == nil {
		loc = time.Local
	}
	view.Location = loc

	minSendAt := view.MinSendAt
	if minSendAt.IsZero() {
		minSendAt = console.MinSendAt(time.Now(), loc)
	}

	return pageData{
		View:           view,
		Layout:         r.layout,
		Filters:        domain.Filters(),
		Channels:       domain.Channels(),
		MinSendAt:      minSendAt.In(loc).Format(console.SendAtInputLayout),
		RefreshSeconds: refreshSeconds(view),
	}
}

// refreshSeconds is the list panel reload period: the refresh interval, shortened so an
// active banner is gone on the first reload after it expires.
func refreshSeconds(view console.View) int {
	seconds := int(math.Ceil(view.RefreshInterval.Seconds()))
	if seconds < 1 {
		seconds = 1
	}

	for _, b := range view.Banners {
		remaining := int(math.Ceil(b.ExpiresAt.Sub(view.GeneratedAt).Seconds()))
		if remaining < 1 {
			remaining = 1
		}
		if remaining < seconds {
			seconds = remaining
		}
	}
	return seconds
}

func funcMap() template.FuncMap {
	return template.FuncMap{
		"formatTime":  formatTime,
		"pathEscape":  url.PathEscape,
		"statusClass": statusClass,
	}
}

func formatTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return "—"
	}
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(DateLayout)
}

func statusClass(s domain.Status) string {
	if !s.IsValid() {
		return "status-unknown"
	}
	return "status-" + s.String()
}
