package frontend

import (
	"embed"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates parses the embedded page templates
func Templates() (*template.Template, error) {
	return template.New("base").ParseFS(templateFS, "templates/*.html")
}
