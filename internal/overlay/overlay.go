// Package overlay implements the aircraft overlay widget: the live list of
// TELEX connections, the markers derived from it, the popup for a selected
// marker and, in the typed variant, the legend and the full-page footer
// side effect.
//
// A widget fetches once per mount. The fetch runs in its own goroutine under
// a context that Unmount cancels; a result that arrives after Unmount, or
// after a later Mount, is dropped.
package overlay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/unklstewy/telex-livemap/internal/chrome"
	"github.com/unklstewy/telex-livemap/internal/legend"
	"github.com/unklstewy/telex-livemap/internal/marker"
	"github.com/unklstewy/telex-livemap/internal/popup"
	"github.com/unklstewy/telex-livemap/pkg/telex"
)

// Variant selects the widget flavour.
type Variant string

const (
	// VariantBasic draws every aircraft with the generic icon
	VariantBasic Variant = "basic"
	// VariantTyped picks icons by family, shows the legend and hides the
	// footer in full-page mode
	VariantTyped Variant = "typed"
)

// ParseVariant validates a variant name. Empty selects VariantTyped.
func ParseVariant(s string) (Variant, error) {
	switch Variant(strings.ToLower(s)) {
	case "", VariantTyped:
		return VariantTyped, nil
	case VariantBasic:
		return VariantBasic, nil
	}
	return "", fmt.Errorf("unknown variant %q (want basic or typed)", s)
}

// FullPageClass is appended to the class list in full-page mode.
const FullPageClass = "full-page-map"

// Props are the inputs a host passes to the widget.
type Props struct {
	FullPage  bool
	ClassName string
	Variant   Variant
}

// State is the fetch status of a mounted widget.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}

// ErrMounted is returned by Mount on a widget that is already mounted.
var ErrMounted = errors.New("widget already mounted")

// Marker is one positioned marker.
type Marker struct {
	marker.Visual
	Flight    string  `json:"flight"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// View is a snapshot of everything a host needs to draw the widget.
type View struct {
	Props     Props
	State     State
	Err       error
	ClassName string
	Markers   []Marker

	// Legend is empty in the basic variant
	Legend []legend.Entry
}

// Widget is the aircraft overlay. All methods are safe for concurrent use.
type Widget struct {
	source telex.ConnectionSource
	chrome chrome.Controller
	popups *popup.Renderer
	logger zerolog.Logger

	mu          sync.Mutex
	props       Props
	mounted     bool
	generation  uint64
	state       State
	err         error
	connections []telex.Connection
	cancel      context.CancelFunc
	release     func()
	loaded      chan struct{}
}

// New creates an unmounted widget. ctrl may be nil when the host has no
// page chrome; popups may be nil to use en-US formatting with placeholder
// details.
func New(source telex.ConnectionSource, ctrl chrome.Controller, popups *popup.Renderer, logger zerolog.Logger) *Widget {
	if popups == nil {
		popups = popup.NewRenderer("en-US", nil)
	}
	loaded := make(chan struct{})
	close(loaded)

	return &Widget{
		source:  source,
		chrome:  ctrl,
		popups:  popups,
		logger:  logger,
		release: func() {},
		loaded:  loaded,
	}
}

// Mount starts the single connection fetch and applies the chrome side
// effect. The connection list is empty until the fetch completes.
func (w *Widget) Mount(ctx context.Context, props Props) error {
	if props.Variant == "" {
		props.Variant = VariantTyped
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.mounted {
		return ErrMounted
	}

	w.mounted = true
	w.generation++
	w.props = props
	w.state = StateLoading
	w.err = nil
	w.connections = nil
	w.loaded = make(chan struct{})
	w.release = w.applyChrome(props)

	fetchCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	go w.fetch(fetchCtx, w.source, w.generation, w.loaded)

	w.logger.Debug().
		Uint64("generation", w.generation).
		Bool("full_page", props.FullPage).
		Str("variant", string(props.Variant)).
		Msg("widget mounted")
	return nil
}

func (w *Widget) fetch(ctx context.Context, source telex.ConnectionSource, generation uint64, loaded chan struct{}) {
	defer close(loaded)

	conns, err := source.FetchAllConnections(ctx)

	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.mounted || generation != w.generation {
		w.logger.Debug().
			Uint64("generation", generation).
			Int("connections", len(conns)).
			Msg("dropping fetch result for unmounted widget")
		return
	}

	if err != nil {
		w.state = StateFailed
		w.err = err
		w.logger.Error().Err(err).Msg("failed to fetch connections")
		return
	}

	w.state = StateReady
	w.connections = conns
	w.logger.Info().Int("connections", len(conns)).Msg("connections loaded")
}

// Update applies new props. Toggling FullPage, or switching variant,
// releases the previous chrome effect before applying the new one.
func (w *Widget) Update(props Props) {
	if props.Variant == "" {
		props.Variant = VariantTyped
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	prev := w.props
	w.props = props
	if !w.mounted {
		return
	}

	if prev.FullPage != props.FullPage || prev.Variant != props.Variant {
		w.release()
		w.release = w.applyChrome(props)
	}
}

// Unmount cancels an in-flight fetch, restores the page chrome and discards
// the connection list. It is a no-op on an unmounted widget.
func (w *Widget) Unmount() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.mounted {
		return
	}

	w.mounted = false
	w.cancel()
	w.release()
	w.release = func() {}
	w.state = StateIdle
	w.err = nil
	w.connections = nil

	w.logger.Debug().Uint64("generation", w.generation).Msg("widget unmounted")
}

func (w *Widget) applyChrome(props Props) func() {
	if props.Variant != VariantTyped {
		return func() {}
	}
	return chrome.HideFooter(w.chrome, props.FullPage)
}

// Loaded returns a channel closed once the current mount's fetch settles,
// whether it succeeded, failed or was cancelled. Before the first Mount it
// returns a closed channel.
func (w *Widget) Loaded() <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.loaded
}

// State returns the fetch status and, in StateFailed, its error.
func (w *Widget) State() (State, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state, w.err
}

// Props returns the current props.
func (w *Widget) Props() Props {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.props
}

// Connections returns a copy of the current connection list.
func (w *Widget) Connections() []telex.Connection {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]telex.Connection, len(w.connections))
	copy(out, w.connections)
	return out
}

// Render derives the current view. Markers are recomputed on every call.
func (w *Widget) Render() View {
	w.mu.Lock()
	props, state, err := w.props, w.state, w.err
	conns := w.connections
	w.mu.Unlock()

	v := View{
		Props:     props,
		State:     state,
		Err:       err,
		ClassName: ClassName(props),
		Markers:   make([]Marker, 0, len(conns)),
	}

	for _, c := range conns {
		v.Markers = append(v.Markers, Marker{
			Visual:    visualFor(props.Variant, c),
			Flight:    c.Flight,
			Latitude:  c.Latitude(),
			Longitude: c.Longitude(),
		})
	}

	if props.Variant == VariantTyped {
		v.Legend = legend.Entries()
	}
	return v
}

// Popup builds the detail panel for the connection with the given id.
func (w *Widget) Popup(id string) (popup.Panel, bool) {
	w.mu.Lock()
	var (
		conn  telex.Connection
		found bool
	)
	for _, c := range w.connections {
		if c.ID == id {
			conn, found = c, true
			break
		}
	}
	w.mu.Unlock()

	if !found {
		return popup.Panel{}, false
	}
	return w.popups.Build(conn), true
}

func visualFor(v Variant, c telex.Connection) marker.Visual {
	if v == VariantBasic {
		return marker.ProjectGeneric(c.Heading, c.ID)
	}
	return marker.Project(c.Heading, c.ID, c.AircraftType)
}

// ClassName joins the host's class with the full-page class.
func ClassName(p Props) string {
	classes := make([]string, 0, 2)
	if p.ClassName != "" {
		classes = append(classes, p.ClassName)
	}
	if p.FullPage {
		classes = append(classes, FullPageClass)
	}
	return strings.Join(classes, " ")
}
