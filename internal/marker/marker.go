// Package marker projects a connection onto the visual marker drawn for it.
//
// Projection is a pure function of (heading, id, aircraftType). Nothing is
// cached; hosts recompute visuals on every render.
package marker

import (
	"fmt"
	"html"
	"strings"

	"github.com/unklstewy/telex-livemap/pkg/coordinates"
)

// Family is the icon category an aircraft type resolves to.
type Family int

const (
	// FamilyOther covers every type without a dedicated icon
	FamilyOther Family = iota
	// FamilyA32NX is the FlyByWire A32NX
	FamilyA32NX
	// FamilyA380X is the FlyByWire A380X
	FamilyA380X
)

// String returns the display name used in legends and logs.
func (f Family) String() string {
	switch f {
	case FamilyA32NX:
		return "A32NX"
	case FamilyA380X:
		return "A380X"
	default:
		return "Others"
	}
}

const (
	// DefaultSize is the pixel size of the generic and A32NX icons
	DefaultSize = 32

	// LargeSize is the pixel size of the A380X icon
	LargeSize = 38

	// DefaultIcon is the generic aircraft icon
	DefaultIcon = "/meta/aircraft-icon.png"
)

// Anchor is the icon point placed on the aircraft position, in pixels from
// the icon's top-left corner. It does not scale with Size, so the 38px icon
// sits slightly off-centre. Kept as drawn by the original map.
var Anchor = Point{X: 15, Y: 10}

// Point is a pixel offset.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Style is the icon asset and size for one family.
type Style struct {
	IconURL string `json:"iconUrl"`
	Size    int    `json:"size"`
}

var styles = map[Family]Style{
	FamilyOther: {IconURL: DefaultIcon, Size: DefaultSize},
	FamilyA32NX: {IconURL: "/meta/aircraft-icon-a32nx.png", Size: DefaultSize},
	FamilyA380X: {IconURL: "/meta/aircraft-icon-a380x.png", Size: LargeSize},
}

// StyleFor returns the icon style for a family.
func StyleFor(f Family) Style {
	if s, ok := styles[f]; ok {
		return s
	}
	return styles[FamilyOther]
}

// Families lists the families in legend order.
func Families() []Family {
	return []Family{FamilyA32NX, FamilyA380X, FamilyOther}
}

// Classify resolves a free-form aircraft type tag to a family.
// Matching is a case-insensitive substring match; A380X is checked first so
// a tag naming both resolves to the larger icon.
func Classify(aircraftType string) Family {
	t := strings.ToUpper(aircraftType)
	switch {
	case strings.Contains(t, "A380X"):
		return FamilyA380X
	case strings.Contains(t, "A32NX"):
		return FamilyA32NX
	default:
		return FamilyOther
	}
}

// Visual describes how one marker is drawn.
type Visual struct {
	// ID keys the marker; it is the connection id
	ID       string  `json:"id"`
	Family   Family  `json:"-"`
	IconURL  string  `json:"iconUrl"`
	Size     int     `json:"size"`
	Rotation float64 `json:"rotation"`
	Anchor   Point   `json:"anchor"`
	Alt      string  `json:"alt"`
}

// Project returns the visual for a connection, with the icon chosen by
// aircraft family.
func Project(heading float64, id, aircraftType string) Visual {
	return project(heading, id, Classify(aircraftType))
}

// ProjectGeneric returns the visual for a connection using the generic icon
// regardless of type.
func ProjectGeneric(heading float64, id string) Visual {
	return project(heading, id, FamilyOther)
}

func project(heading float64, id string, f Family) Visual {
	s := StyleFor(f)
	return Visual{
		ID:       id,
		Family:   f,
		IconURL:  s.IconURL,
		Size:     s.Size,
		Rotation: heading,
		Anchor:   Anchor,
		Alt:      id,
	}
}

// HTML renders the div-icon markup: the icon rotated about its centre with
// a soft drop shadow.
func (v Visual) HTML() string {
	return fmt.Sprintf(
		`<img src="%s" alt="%s" style="transform: rotate(%sdeg); transform-origin: center; width: %dpx; height: %dpx; filter: drop-shadow(0 0 2px rgba(0 0 0 /0.5))">`,
		html.EscapeString(v.IconURL),
		html.EscapeString(v.Alt),
		formatDegrees(v.Rotation),
		v.Size,
		v.Size,
	)
}

var glyphs = [8]rune{'↑', '↗', '→', '↘', '↓', '↙', '←', '↖'}

// Glyph returns the arrow closest to the marker's rotation, for hosts that
// draw on a character grid.
func (v Visual) Glyph() rune {
	az := coordinates.NormalizeAzimuth(v.Rotation)
	idx := int((az+22.5)/45.0) % len(glyphs)
	return glyphs[idx]
}

func formatDegrees(d float64) string {
	s := fmt.Sprintf("%.2f", d)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
