package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/unklstewy/telex-livemap/internal/chrome"
	"github.com/unklstewy/telex-livemap/internal/logging"
	"github.com/unklstewy/telex-livemap/internal/overlay"
	"github.com/unklstewy/telex-livemap/internal/popup"
	"github.com/unklstewy/telex-livemap/pkg/config"
	"github.com/unklstewy/telex-livemap/pkg/coordinates"
	"github.com/unklstewy/telex-livemap/pkg/telex"
)

const (
	sidePanelWidth = 44
	minMapWidth    = 40
	minMapHeight   = 12
	footerRows     = 2
	minRadiusNM    = 25
	maxRadiusNM    = 5000
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")).
			Background(lipgloss.Color("235")).
			Padding(0, 1)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

type model struct {
	widget *overlay.Widget
	page   *chrome.Page
	props  overlay.Props
	ctx    context.Context
	logger zerolog.Logger

	center   coordinates.Geographic
	radiusNM float64

	width     int
	height    int
	selected  int
	showPopup bool
}

// loadedMsg is sent when the widget's fetch settles.
type loadedMsg struct{}

func waitLoaded(w *overlay.Widget) tea.Cmd {
	ch := w.Loaded()
	return func() tea.Msg {
		<-ch
		return loadedMsg{}
	}
}

func (m model) Init() tea.Cmd {
	return waitLoaded(m.widget)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case loadedMsg:
		state, err := m.widget.State()
		m.logger.Debug().Str("state", state.String()).AnErr("error", err).Msg("widget settled")
		if n := len(m.widget.Connections()); m.selected >= n {
			m.selected = 0
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.widget.Unmount()
			return m, tea.Quit
		case "f":
			m.props.FullPage = !m.props.FullPage
			m.widget.Update(m.props)
		case "v":
			if m.props.Variant == overlay.VariantBasic {
				m.props.Variant = overlay.VariantTyped
			} else {
				m.props.Variant = overlay.VariantBasic
			}
			m.widget.Update(m.props)
		case "r":
			// Remount: the old fetch is cancelled and its result dropped
			m.widget.Unmount()
			if err := m.widget.Mount(m.ctx, m.props); err != nil {
				m.logger.Error().Err(err).Msg("failed to remount widget")
				return m, nil
			}
			m.showPopup = false
			return m, waitLoaded(m.widget)
		case "up", "k":
			if m.selected > 0 {
				m.selected--
			}
		case "down", "j":
			if m.selected < len(m.widget.Connections())-1 {
				m.selected++
			}
		case "enter", " ":
			m.showPopup = !m.showPopup
		case "esc":
			m.showPopup = false
		case "+", "=":
			// Zoom in
			if m.radiusNM > minRadiusNM {
				m.radiusNM /= 2
			}
		case "-", "_":
			// Zoom out
			if m.radiusNM < maxRadiusNM {
				m.radiusNM *= 2
			}
		}
	}

	return m, nil
}

func (m model) selectedID() string {
	conns := m.widget.Connections()
	if m.selected < 0 || m.selected >= len(conns) {
		return ""
	}
	return conns[m.selected].ID
}

// grid sizes the map to the terminal. When the footer is hidden the map
// takes its rows.
func (m model) grid() mapGrid {
	width := m.width - sidePanelWidth - 4
	if width < minMapWidth {
		width = minMapWidth
	}
	height := m.height - 6
	if m.page.FooterVisible() {
		height -= footerRows
	}
	if height < minMapHeight {
		height = minMapHeight
	}
	return mapGrid{
		center:   m.center,
		radiusNM: m.radiusNM,
		width:    width,
		height:   height,
	}
}

func (m model) View() string {
	var s strings.Builder

	view := m.widget.Render()

	title := "TELEX LIVE MAP"
	if view.Props.FullPage {
		title += " [FULL PAGE]"
	}
	s.WriteString(titleStyle.Render(title))
	s.WriteString("\n\n")

	mapStr, drawn := m.grid().render(view.Markers, m.selectedID())
	side := m.renderSidePanel(view, drawn)

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, mapStr, "  ", side))
	s.WriteString("\n")

	if m.page.FooterVisible() {
		s.WriteString("\n")
		s.WriteString(helpStyle.Render("↑/↓: Select  ENTER: Popup  F: Full page  V: Variant  R: Reload  +/-: Zoom  Q: Quit"))
		s.WriteString("\n")
	}

	return s.String()
}

func (m model) renderSidePanel(view overlay.View, drawn int) string {
	var p strings.Builder

	switch view.State {
	case overlay.StateLoading:
		p.WriteString(helpStyle.Render("Loading connections..."))
		p.WriteString("\n\n")
	case overlay.StateFailed:
		p.WriteString(errStyle.Render(fmt.Sprintf("Error: %v", view.Err)))
		p.WriteString("\n\n")
	default:
		p.WriteString(fmt.Sprintf("Aircraft: %d (%d on map)\n", len(view.Markers), drawn))
		p.WriteString(fmt.Sprintf("Centre: %.2f°, %.2f°  Radius: %.0f nm\n\n",
			m.center.Latitude, m.center.Longitude, m.radiusNM))
	}

	if id := m.selectedID(); m.showPopup && id != "" {
		if panel, ok := m.widget.Popup(id); ok {
			p.WriteString(headerStyle.Render("Flight"))
			p.WriteString("\n")
			for _, line := range panel.Lines() {
				p.WriteString(truncate(line, sidePanelWidth))
				p.WriteString("\n")
			}
			p.WriteString("\n")
		}
	} else {
		p.WriteString(m.renderList(view))
		p.WriteString("\n")
	}

	if len(view.Legend) > 0 {
		p.WriteString(headerStyle.Render("Legend"))
		p.WriteString("\n")
		for _, e := range view.Legend {
			p.WriteString(fmt.Sprintf("%-7s %dpx\n", e.Label, e.Size))
		}
	}

	return p.String()
}

func (m model) renderList(view overlay.View) string {
	var list strings.Builder

	list.WriteString(headerStyle.Render("Connections"))
	list.WriteString("\n")

	if len(view.Markers) == 0 {
		list.WriteString(helpStyle.Render("  No aircraft"))
		list.WriteString("\n")
		return list.String()
	}

	// Show up to 8 entries around the selection
	start := 0
	if m.selected > 3 && len(view.Markers) > 8 {
		start = m.selected - 3
	}
	end := start + 8
	if end > len(view.Markers) {
		end = len(view.Markers)
	}

	for i := start; i < end; i++ {
		mk := view.Markers[i]
		prefix := "  "
		if i == m.selected {
			prefix = "→ "
		}
		flight := mk.Flight
		if flight == "" {
			flight = "--------"
		}
		line := fmt.Sprintf("%s%c %-8s %s", prefix, mk.Glyph(), flight, popup.FormatHeading(mk.Rotation))
		if i == m.selected {
			line = lipgloss.NewStyle().Background(lipgloss.Color("237")).Render(line)
		}
		list.WriteString(line)
		list.WriteString("\n")
	}

	return list.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func main() {
	configPath := flag.String("config", "configs/config.json", "Path to configuration file")
	fullPage := flag.Bool("fullpage", false, "Start in full-page mode")
	variant := flag.String("variant", "", "Widget variant: basic or typed (default from config)")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	v := cfg.Widget.Variant
	if *variant != "" {
		v = *variant
	}
	parsed, err := overlay.ParseVariant(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	props := overlay.Props{
		FullPage:  *fullPage || cfg.Widget.FullPage,
		ClassName: cfg.Widget.ClassName,
		Variant:   parsed,
	}

	// The TUI owns the terminal, so logs only go to a file
	if cfg.Logging.File == "" {
		cfg.Logging.File = "livemap-tui.log"
	}
	logger, closer := logging.New(cfg.Logging, nil)

	err = run(cfg, props, logger)
	closer.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, props overlay.Props, logger zerolog.Logger) error {
	client := telex.NewClient(telex.Config{
		BaseURL:           cfg.Telex.BaseURL,
		PageSize:          cfg.Telex.PageSize,
		Timeout:           time.Duration(cfg.Telex.TimeoutSeconds) * time.Second,
		RequestsPerSecond: cfg.Telex.RequestsPerSecond,
	})
	defer client.Close()

	page := chrome.NewPage(cfg.Widget.FooterDisplay)
	widget := overlay.New(client, page, popup.NewRenderer(cfg.Map.Locale, nil), logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := widget.Mount(ctx, props); err != nil {
		return err
	}
	defer widget.Unmount()

	m := model{
		widget: widget,
		page:   page,
		props:  props,
		ctx:    ctx,
		logger: logger,
		center: coordinates.Geographic{
			Latitude:  cfg.Map.CenterLatitude,
			Longitude: cfg.Map.CenterLongitude,
		},
		radiusNM: coordinates.ZoomRadiusNM(cfg.Map.Zoom),
		width:    120,
		height:   40,
	}

	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
