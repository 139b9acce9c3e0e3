// Package render turns a browse.View into the catalog HTML page.
package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Sternrassler/pokedex-browser/pkg/browse"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

// NoResultsMessage is shown for an empty result area without a notice.
const NoResultsMessage = "No Pokémon found. Try another search or go to another page."

// PlaceholderBase is the generated fallback image service.
const PlaceholderBase = "https://via.placeholder.com/180x180/0a0a0a/ffffff"

// Renderer renders catalog pages.
type Renderer struct {
	tmpl *template.Template
}

// New parses the page templates.
func New() (*Renderer, error) {
	tmpl, err := template.New("page.html.tmpl").Funcs(template.FuncMap{
		"placeholder": PlaceholderURL,
		"openable":    Openable,
		"openHref":    OpenHref,
	}).ParseFS(templateFS, "templates/*.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

type pageData struct {
	View      browse.View
	NoResults string
}

// Render writes the full page for v.
func (r *Renderer) Render(w io.Writer, v browse.View) error {
	if err := r.tmpl.ExecuteTemplate(w, "page.html.tmpl", pageData{
		View:      v,
		NoResults: NoResultsMessage,
	}); err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	return nil
}

// PlaceholderURL returns the fallback image labelled with the first letter
// of name, upper-cased.
func PlaceholderURL(name string) string {
	initial := "?"
	if r, _ := utf8.DecodeRuneInString(name); r != utf8.RuneError {
		initial = string(unicode.ToUpper(r))
	}
	return PlaceholderBase + "?text=" + url.QueryEscape(initial)
}

// IsPlaceholder reports whether imageURL is a generated placeholder.
func IsPlaceholder(imageURL string) bool {
	return strings.Contains(imageURL, "placeholder.com")
}

// Openable reports whether imageURL can be opened in a new view.
func Openable(imageURL string) bool {
	if imageURL == "" || IsPlaceholder(imageURL) {
		return false
	}
	u, err := url.Parse(imageURL)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// OpenHref returns the link that opens imageURL in a new view.
func OpenHref(imageURL string) string {
	return "/open?src=" + url.QueryEscape(imageURL)
}
