package main

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/unklstewy/telex-livemap/internal/chrome"
	"github.com/unklstewy/telex-livemap/internal/overlay"
	"github.com/unklstewy/telex-livemap/pkg/coordinates"
	"github.com/unklstewy/telex-livemap/pkg/telex"
)

type staticSource []telex.Connection

func (s staticSource) FetchAllConnections(ctx context.Context) ([]telex.Connection, error) {
	return s, nil
}

func newTestModel(t *testing.T, props overlay.Props) model {
	t.Helper()

	page := chrome.NewPage("block")
	src := staticSource{
		{ID: "north", Flight: "FBW1", Location: telex.Point{X: 5, Y: 53}, AircraftType: "A32NX"},
		{ID: "heavy", Flight: "FBW2", Heading: 90, Location: telex.Point{X: 5, Y: 51}, AircraftType: "A380X"},
		{ID: "far", Flight: "FBW3", Location: telex.Point{X: -120, Y: 40}},
	}
	w := overlay.New(src, page, nil, zerolog.Nop())
	if err := w.Mount(context.Background(), props); err != nil {
		t.Fatalf("Mount failed: %v", err)
	}
	t.Cleanup(w.Unmount)

	select {
	case <-w.Loaded():
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for widget")
	}

	return model{
		widget:   w,
		page:     page,
		props:    props,
		ctx:      context.Background(),
		logger:   zerolog.Nop(),
		center:   coordinates.Geographic{Latitude: 51, Longitude: 5},
		radiusNM: 600,
		width:    120,
		height:   40,
	}
}

func press(m model, key string) model {
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)})
	return next.(model)
}

func TestToScreen(t *testing.T) {
	g := mapGrid{
		center:   coordinates.Geographic{Latitude: 51, Longitude: 5},
		radiusNM: 600,
		width:    60,
		height:   21,
	}

	x, y, ok := g.toScreen(51, 5)
	if !ok || x != 30 || y != 10 {
		t.Errorf("Expected centre at 30,10, got %d,%d (%v)", x, y, ok)
	}

	x, y, ok = g.toScreen(53, 5)
	if !ok {
		t.Fatal("Expected position north of centre to be on the grid")
	}
	if x != 30 || y >= 10 {
		t.Errorf("Expected position straight above centre, got %d,%d", x, y)
	}

	if _, _, ok := g.toScreen(40, -120); ok {
		t.Error("Expected far position to be off the grid")
	}
}

func TestRenderCountsMarkersOnMap(t *testing.T) {
	m := newTestModel(t, overlay.Props{Variant: overlay.VariantTyped})

	_, drawn := m.grid().render(m.widget.Render().Markers, "")
	if drawn != 2 {
		t.Errorf("Expected 2 markers on the map, got %d", drawn)
	}
}

func TestFullPageToggle(t *testing.T) {
	m := newTestModel(t, overlay.Props{Variant: overlay.VariantTyped})

	if !strings.Contains(m.View(), "Q: Quit") {
		t.Error("Expected help footer outside full-page mode")
	}
	normal := m.grid().height

	m = press(m, "f")
	if m.page.FooterVisible() {
		t.Fatal("Expected footer hidden in full-page mode")
	}
	if strings.Contains(m.View(), "Q: Quit") {
		t.Error("Expected help footer hidden in full-page mode")
	}
	if m.grid().height != normal+footerRows {
		t.Errorf("Expected map to take the footer rows, got height %d (was %d)", m.grid().height, normal)
	}

	m = press(m, "f")
	if d, _ := m.page.FooterDisplay(); d != "block" {
		t.Errorf("Expected footer display restored to block, got %q", d)
	}
}

func TestVariantToggle(t *testing.T) {
	m := newTestModel(t, overlay.Props{Variant: overlay.VariantTyped, FullPage: true})

	if m.page.FooterVisible() {
		t.Fatal("Expected footer hidden in typed full-page mode")
	}
	if !strings.Contains(m.View(), "Legend") {
		t.Error("Expected legend in typed variant")
	}

	// basic has no footer side effect and no legend
	m = press(m, "v")
	if !m.page.FooterVisible() {
		t.Error("Expected footer visible in basic variant")
	}
	if strings.Contains(m.View(), "Legend") {
		t.Error("Expected no legend in basic variant")
	}
}

func TestPopupPanel(t *testing.T) {
	m := newTestModel(t, overlay.Props{Variant: overlay.VariantTyped})

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(model)
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(model)

	view := m.View()
	if !strings.Contains(view, "FBW2 | A380X") {
		t.Error("Expected popup for the selected connection")
	}
	if !strings.Contains(view, "HDG 090°") {
		t.Error("Expected formatted heading in popup")
	}
}

func TestQuitUnmounts(t *testing.T) {
	m := newTestModel(t, overlay.Props{Variant: overlay.VariantTyped, FullPage: true})

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("Expected quit command")
	}
	if !m.page.FooterVisible() {
		t.Error("Expected footer restored on quit")
	}
}
