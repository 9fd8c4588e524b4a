package popup

import "github.com/unklstewy/telex-livemap/pkg/telex"

// Details supplies the popup fields TELEX does not report.
// StaticDetails is the only implementation until a flight-plan source exists.
type Details interface {
	Model(c telex.Connection) string
	Registration(c telex.Connection) string
	GroundSpeed(c telex.Connection) float64
	Progress(c telex.Connection) int
	OriginName(c telex.Connection) string
	DestinationName(c telex.Connection) string
	Route(c telex.Connection) string
}

const (
	staticRoute = "EIDW/10L INKU2Q INKUR DCT BEXET DCT DOGAL DCT 54N020W DCT 55N030W DCT 56N040W DCT 55N050W DCT LOMSI N662C TOPPS DCT ENE PARCH3 KJFK/I04R"
)

// StaticDetails returns the same placeholder values for every connection.
type StaticDetails struct{}

func (StaticDetails) Model(telex.Connection) string        { return "A380X" }
func (StaticDetails) Registration(telex.Connection) string { return "F-PEGA" }
func (StaticDetails) GroundSpeed(telex.Connection) float64 { return 342 }
func (StaticDetails) Progress(telex.Connection) int        { return 45 }

func (StaticDetails) OriginName(telex.Connection) string {
	return "whateverplace is that we need a api to get that info"
}

func (StaticDetails) DestinationName(telex.Connection) string {
	return "whatever other place, same deal as the other side"
}

func (StaticDetails) Route(telex.Connection) string {
	return "we don't have that info yet, so here is my last route: " + staticRoute
}
