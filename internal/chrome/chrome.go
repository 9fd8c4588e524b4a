// Package chrome controls the page chrome around the map, which today is
// only the footer.
package chrome

import "sync"

// Hidden is the display value that hides the footer.
const Hidden = "none"

// Controller reads and writes the footer's display property.
// FooterDisplay reports false when the page has no footer.
type Controller interface {
	FooterDisplay() (string, bool)
	SetFooterDisplay(display string)
}

// Page is an in-memory Controller. It is safe for concurrent use.
type Page struct {
	mu        sync.Mutex
	hasFooter bool
	display   string
}

// NewPage returns a page whose footer has the given display value.
func NewPage(display string) *Page {
	return &Page{hasFooter: true, display: display}
}

// NewPageWithoutFooter returns a page that has no footer element.
func NewPageWithoutFooter() *Page {
	return &Page{}
}

func (p *Page) FooterDisplay() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.display, p.hasFooter
}

// SetFooterDisplay is a no-op on a page without a footer.
func (p *Page) SetFooterDisplay(display string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.hasFooter {
		p.display = display
	}
}

// FooterVisible reports whether a footer exists and is not hidden.
func (p *Page) FooterVisible() bool {
	d, ok := p.FooterDisplay()
	return ok && d != Hidden
}

// HideFooter hides the footer while fullPage is set and returns the func
// that restores it. The release restores the exact display value seen at
// hide time and runs at most once however many times it is called.
// A nil controller, a page without a footer or fullPage=false yields a
// no-op release.
func HideFooter(ctrl Controller, fullPage bool) (release func()) {
	if ctrl == nil || !fullPage {
		return func() {}
	}
	prev, ok := ctrl.FooterDisplay()
	if !ok {
		return func() {}
	}

	ctrl.SetFooterDisplay(Hidden)

	var once sync.Once
	return func() {
		once.Do(func() {
			ctrl.SetFooterDisplay(prev)
		})
	}
}
