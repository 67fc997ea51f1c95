package http

import (
	"bytes"
	"html/template"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"litfunds/internal/analytics"
	"litfunds/internal/core"
	applog "litfunds/internal/log"
)

const dateLayout = "2006-01-02"

var templateFuncs = template.FuncMap{
	"money":       core.FormatMoney,
	"amountInput": core.FormatCents,
	"magnitude":   func(m core.Money) int64 { return m.Magnitude() },
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format(dateLayout)
	},
	"longDate": func(t time.Time) string { return t.Format("Jan 2, 2006") },
	"percent":  formatPercent,
	"barWidth": barWidth,
	"title":    titleCase,
}

// formatPercent renders one decimal place, dropping a trailing ".0".
func formatPercent(p float64) string {
	return strings.TrimSuffix(strconv.FormatFloat(p, 'f', 1, 64), ".0") + "%"
}

// barWidth scales v against scale as a whole CSS percentage. Non-zero values
// get at least 2% so they stay visible.
func barWidth(v, scale int64) int {
	if scale <= 0 || v <= 0 {
		return 0
	}
	width := int(math.Round(analytics.Share(v, scale)))
	return min(max(width, 2), 100)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// sanitizeInput removes control characters other than tab and newlines and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// layout is embedded by every signed-in page model.
type layout struct {
	Title       string
	DisplayName string
	Currency    string
	Active      string
}

// render executes a page into a buffer first so a template error never
// leaves a half-written response.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	t, ok := s.templates[page]
	if !ok {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Unknown template", "template", page)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "base", data); err != nil {
		fields := applog.NewFields()
		fields["template"] = page
		s.structLog.LogError(r.Context(), "Template execution failed", err, applog.OpRender, fields)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

type errorPage struct {
	layout
	Status  int
	Message string
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	s.render(w, r, status, "error.html", errorPage{
		layout:  layout{Title: http.StatusText(status)},
		Status:  status,
		Message: msg,
	})
}
