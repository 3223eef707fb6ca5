package view

import (
	"fmt"
	"html"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/notiongate/notiongate/internal/notion"
	"github.com/notiongate/notiongate/web"
)

// Engine renders HTML templates.
type Engine struct {
	templates *template.Template
}

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title         string
	CurrentPath   string
	Authenticated bool
	Data          any
}

// NewEngine parses templates at build-time.
func NewEngine() (*Engine, error) {
	funcMap := template.FuncMap{
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02 Jan 2006 15:04")
		},
		"richText": RichText,
		"plain":    notion.Plain,
	}
	tpl, err := template.New("root").Funcs(funcMap).ParseFS(web.Templates, "templates/layouts/*.html", "templates/partials/*.html", "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	return &Engine{templates: tpl}, nil
}

// Render executes a named template with TemplateData.
func (e *Engine) Render(w http.ResponseWriter, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return e.templates.ExecuteTemplate(w, name, data)
}

// RichText renders Notion rich text runs as escaped HTML with their
// annotations. Links are kept only for http(s) and site-relative targets.
func RichText(runs []notion.RichText) template.HTML {
	var b strings.Builder
	for _, run := range runs {
		text := html.EscapeString(notion.Plain([]notion.RichText{run}))
		text = strings.ReplaceAll(text, "\n", "<br>")
		if a := run.Annotations; a != nil {
			if a.Code {
				text = "<code>" + text + "</code>"
			}
			if a.Bold {
				text = "<strong>" + text + "</strong>"
			}
			if a.Italic {
				text = "<em>" + text + "</em>"
			}
			if a.Strikethrough {
				text = "<s>" + text + "</s>"
			}
			if a.Underline {
				text = "<u>" + text + "</u>"
			}
		}
		if href := linkTarget(run); href != "" {
			text = `<a href="` + html.EscapeString(href) + `" rel="noopener noreferrer">` + text + `</a>`
		}
		b.WriteString(text)
	}
	return template.HTML(b.String()) //nolint:gosec // every text fragment is escaped above
}

func linkTarget(run notion.RichText) string {
	href := ""
	if run.Href != nil {
		href = *run.Href
	} else if run.Text != nil && run.Text.Link != nil {
		href = run.Text.Link.URL
	}
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "/") && !strings.HasPrefix(href, "//") {
		return href
	}
	u, err := url.Parse(href)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return ""
	}
	return href
}
