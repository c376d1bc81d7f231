package render

import (
	"embed"
	"html/template"
	"io"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// WriteIntakeHTML writes the upload page.
func WriteIntakeHTML(w io.Writer, v IntakeView) error {
	return pages.ExecuteTemplate(w, "intake", v)
}

// WriteResultsHTML writes the results page, or the no-data page.
func WriteResultsHTML(w io.Writer, v ResultsView) error {
	return pages.ExecuteTemplate(w, "results", v)
}
