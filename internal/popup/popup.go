// Package popup renders the detail panel shown when a marker is activated.
package popup

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/unklstewy/telex-livemap/pkg/telex"
)

//go:embed templates/*.html
var templateFS embed.FS

var panelTemplate = template.Must(template.ParseFS(templateFS, "templates/popup.html"))

// Panel is the fully formatted popup content for one connection.
type Panel struct {
	ID              string
	Flight          string
	Model           string
	Registration    string
	Origin          string
	OriginName      string
	Destination     string
	DestinationName string
	Progress        int
	GroundSpeed     string
	Heading         string
	Altitude        string
	Livery          string
	Route           string
}

// Renderer builds panels. The zero value is not usable; use NewRenderer.
type Renderer struct {
	format  *Formatter
	details Details
}

// NewRenderer returns a renderer formatting numbers for locale.
// A nil details falls back to StaticDetails.
func NewRenderer(locale string, details Details) *Renderer {
	if details == nil {
		details = StaticDetails{}
	}
	return &Renderer{
		format:  NewFormatter(locale),
		details: details,
	}
}

// Build formats the panel for c.
func (r *Renderer) Build(c telex.Connection) Panel {
	return Panel{
		ID:              c.ID,
		Flight:          c.Flight,
		Model:           r.details.Model(c),
		Registration:    r.details.Registration(c),
		Origin:          AirportCode(c.Origin),
		OriginName:      r.details.OriginName(c),
		Destination:     AirportCode(c.Destination),
		DestinationName: r.details.DestinationName(c),
		Progress:        clampPercent(r.details.Progress(c)),
		GroundSpeed:     r.format.FormatNumber(r.details.GroundSpeed(c)) + " kts",
		Heading:         FormatHeading(c.Heading) + "°",
		Altitude:        r.format.FormatNumber(c.TrueAltitude) + " ft",
		Livery:          c.AircraftType,
		Route:           r.details.Route(c),
	}
}

// HTML renders the panel markup.
func (p Panel) HTML() (template.HTML, error) {
	var buf bytes.Buffer
	if err := panelTemplate.Execute(&buf, p); err != nil {
		return "", fmt.Errorf("failed to render popup %s: %w", p.ID, err)
	}
	return template.HTML(buf.String()), nil
}

// Lines renders the panel as plain text for terminal hosts.
func (p Panel) Lines() []string {
	return []string{
		fmt.Sprintf("%s | %s", p.Flight, p.Model),
		fmt.Sprintf("Reg:   %s", p.Registration),
		fmt.Sprintf("%-8s -> %8s", p.Origin, p.Destination),
		progressBar(p.Progress, 20),
		fmt.Sprintf("G/S %s  HDG %s  ALT %s", p.GroundSpeed, p.Heading, p.Altitude),
		fmt.Sprintf("Livery: %s", p.Livery),
		fmt.Sprintf("Route:  %s", p.Route),
	}
}

func progressBar(percent, width int) string {
	filled := percent * width / 100
	bar := make([]rune, width)
	for i := range bar {
		if i < filled {
			bar[i] = '='
		} else {
			bar[i] = '.'
		}
	}
	return "[" + string(bar) + "]"
}

func clampPercent(p int) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}
