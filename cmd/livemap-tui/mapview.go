package main

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/unklstewy/telex-livemap/internal/marker"
	"github.com/unklstewy/telex-livemap/internal/overlay"
	"github.com/unklstewy/telex-livemap/pkg/coordinates"
)

// Character aspect ratio correction: terminal characters are ~2:1 (height:width)
const aspectRatio = 0.5

var (
	borderStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	centerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Bold(true)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Bold(true)
	familyStyles  = map[marker.Family]lipgloss.Style{
		marker.FamilyA32NX: lipgloss.NewStyle().Foreground(lipgloss.Color("75")),
		marker.FamilyA380X: lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true),
		marker.FamilyOther: lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
	}
)

// mapGrid is the projection of the map onto a character grid.
type mapGrid struct {
	center   coordinates.Geographic
	radiusNM float64
	width    int
	height   int
}

// toScreen converts a position to grid X/Y, relative to the map centre and
// scaled so radiusNM fits the smaller grid dimension.
// Returns false if the position is off the grid.
func (g mapGrid) toScreen(lat, lon float64) (int, int, bool) {
	distanceNM, bearing := coordinates.Offset(g.center, coordinates.Geographic{
		Latitude:  lat,
		Longitude: lon,
	})

	centerX := g.width / 2
	centerY := g.height / 2

	// Fit radius within the smaller dimension
	maxScreenRadiusY := float64(g.height/2 - 1)
	maxScreenRadiusX := float64(g.width/2-1) * aspectRatio
	maxScreenRadius := math.Min(maxScreenRadiusX, maxScreenRadiusY)
	scale := maxScreenRadius / g.radiusNM

	// Bearing 0° = North = up = negative Y
	bearingRad := coordinates.Radians(bearing)
	screenDist := distanceNM * scale

	dx := int(math.Round(screenDist * math.Sin(bearingRad) / aspectRatio))
	dy := -int(math.Round(screenDist * math.Cos(bearingRad)))

	x := centerX + dx
	y := centerY + dy

	if x < 0 || x >= g.width || y < 0 || y >= g.height {
		return -1, -1, false
	}
	return x, y, true
}

type cell struct {
	r      rune
	family marker.Family
	marker bool
	chosen bool
}

// render draws the markers of view onto the grid. selectedID is highlighted.
// It returns the bordered map and the number of markers that fell on it.
func (g mapGrid) render(markers []overlay.Marker, selectedID string) (string, int) {
	grid := make([][]cell, g.height)
	for i := range grid {
		grid[i] = make([]cell, g.width)
		for j := range grid[i] {
			grid[i][j] = cell{r: ' '}
		}
	}

	grid[g.height/2][g.width/2] = cell{r: '+'}

	drawn := 0
	for _, m := range markers {
		x, y, ok := g.toScreen(m.Latitude, m.Longitude)
		if !ok {
			continue
		}
		drawn++
		grid[y][x] = cell{
			r:      m.Glyph(),
			family: m.Family,
			marker: true,
			chosen: m.ID == selectedID,
		}
	}

	var b strings.Builder
	b.WriteString(borderStyle.Render("┌" + strings.Repeat("─", g.width) + "┐"))
	b.WriteString("\n")
	for _, row := range grid {
		b.WriteString(borderStyle.Render("│"))
		for _, c := range row {
			switch {
			case c.chosen:
				b.WriteString(selectedStyle.Render(string(c.r)))
			case c.marker:
				b.WriteString(familyStyles[c.family].Render(string(c.r)))
			case c.r == '+':
				b.WriteString(centerStyle.Render("+"))
			default:
				b.WriteRune(c.r)
			}
		}
		b.WriteString(borderStyle.Render("│"))
		b.WriteString("\n")
	}
	b.WriteString(borderStyle.Render("└" + strings.Repeat("─", g.width) + "┘"))

	return b.String(), drawn
}
