// Package legend describes the marker categories shown on the typed map.
package legend

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/unklstewy/telex-livemap/internal/marker"
)

// Entry is one legend row.
type Entry struct {
	Label   string `json:"label"`
	IconURL string `json:"iconUrl"`
	Size    int    `json:"size"`
}

// Entries returns the three fixed legend rows in display order.
func Entries() []Entry {
	families := marker.Families()
	entries := make([]Entry, 0, len(families))
	for _, f := range families {
		s := marker.StyleFor(f)
		entries = append(entries, Entry{
			Label:   f.String(),
			IconURL: s.IconURL,
			Size:    s.Size,
		})
	}
	return entries
}

var overlayTemplate = template.Must(template.New("legend").Parse(`<div class="map-legend" style="position: absolute; bottom: 1.5rem; left: 1.5rem; z-index: 1000">
{{- range .}}
    <div class="map-legend-entry"><img src="{{.IconURL}}" alt="{{.Label}}" width="{{.Size}}" height="{{.Size}}"><span>{{.Label}}</span></div>
{{- end}}
</div>`))

// HTML renders the fixed-position legend overlay.
func HTML() (template.HTML, error) {
	var buf bytes.Buffer
	if err := overlayTemplate.Execute(&buf, Entries()); err != nil {
		return "", fmt.Errorf("failed to render legend: %w", err)
	}
	return template.HTML(buf.String()), nil
}
