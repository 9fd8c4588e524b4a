package popup

import (
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/unklstewy/telex-livemap/pkg/coordinates"
)

// Placeholder is shown in place of an unknown airport code.
const Placeholder = "- - - -"

// FormatHeading renders a heading as three zero-padded whole degrees.
// Headings are rounded half away from zero after normalising into [0, 360),
// so 359.6 renders as "360".
func FormatHeading(heading float64) string {
	h := int(math.Round(coordinates.NormalizeAzimuth(heading)))
	return fmt.Sprintf("%03d", h)
}

// AirportCode returns code, or Placeholder when code is empty.
func AirportCode(code string) string {
	if code == "" {
		return Placeholder
	}
	return code
}

// Formatter formats numbers for one locale.
type Formatter struct {
	printer *message.Printer
}

// NewFormatter returns a formatter for a BCP 47 locale tag such as "en-US".
// An unparseable tag falls back to American English.
func NewFormatter(locale string) *Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.AmericanEnglish
	}
	return &Formatter{printer: message.NewPrinter(tag)}
}

// FormatNumber groups thousands and keeps at most three fraction digits,
// so 37000 renders as "37,000" in en-US.
func (f *Formatter) FormatNumber(v float64) string {
	return f.printer.Sprint(number.Decimal(v, number.MaxFractionDigits(3)))
}
