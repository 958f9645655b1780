package http

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/shopspring/decimal"

	"aicfo/internal/core"
	"aicfo/internal/log"
	"aicfo/internal/services"
)

const (
	pageReceipt   = "receipt"
	pageBulk      = "bulk"
	pageDashboard = "dashboard"
)

var pageTitles = map[string]string{
	pageReceipt:   "Single Receipt",
	pageBulk:      "Bulk CSV",
	pageDashboard: "Dashboard",
}

// pageView is the layout's data; Body is the screen's own view model.
type pageView struct {
	Title  string
	Active string
	Body   any
}

// parsePages builds one template set per screen from the shared layout and
// partials plus the screen's own file.
func parsePages(fsys fs.FS, currency string) (map[string]*template.Template, error) {
	funcs := template.FuncMap{
		"money":   func(d decimal.Decimal) string { return core.FormatAmount(d, currency) },
		"records": func(recs []services.Recorded) []core.Expense {
			out := make([]core.Expense, len(recs))
			for i, r := range recs {
				out[i] = r.Expense
			}
			return out
		},
	}
	base, err := template.New("").Funcs(funcs).ParseFS(fsys, "templates/layout.html", "templates/partials.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	pages := make(map[string]*template.Template, len(pageTitles))
	for name := range pageTitles {
		t, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("clone layout for %s: %w", name, err)
		}
		if _, err := t.ParseFS(fsys, "templates/"+name+".html"); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		pages[name] = t
	}
	return pages, nil
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// respond renders the named partial for htmx requests and the full page
// otherwise. The page body must embed the same partial.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, status int, page, partial string, body, partialData any) {
	if isHTMX(r) && partial != "" {
		s.execute(w, r, status, page, partial, partialData)
		return
	}
	s.execute(w, r, status, page, "layout", pageView{Title: pageTitles[page], Active: page, Body: body})
}

// execute renders into a buffer first so a template error never leaves a
// half-written response.
func (s *Server) execute(w http.ResponseWriter, r *http.Request, status int, page, name string, data any) {
	ctx := r.Context()
	t := s.pages[page]
	if t == nil {
		log.FromContext(ctx).ErrorContext(ctx, "Templates not loaded",
			log.FieldPath, r.URL.Path,
			"template", page)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		log.FromContext(ctx).WithComponent(log.ComponentTemplate).ErrorContext(ctx, "Template execution failed",
			log.FieldError, err,
			log.FieldOperation, log.OpRender,
			"template", name)
		http.Error(w, "could not render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
