// Package telex is a client for the FlyByWire TELEX connection API.
//
// A connection is one active flight session reported by a simulator client.
// The API is read-only from our side: we list connections page by page and
// look single connections up by id.
package telex

import (
	"context"
	"time"
)

// Point is a GeoJSON-style position. X is longitude, Y is latitude,
// both in decimal degrees.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Connection represents one active flight session.
// A Connection is a snapshot as received; it is never mutated after decoding.
type Connection struct {
	// ID is unique per session
	ID string `json:"id"`

	IsActive     bool      `json:"isActive"`
	FirstContact time.Time `json:"firstContact"`
	LastContact  time.Time `json:"lastContact"`

	// Flight is the flight number entered by the pilot (e.g., "FBW123")
	Flight string `json:"flight"`

	Location Point `json:"location"`

	// TrueAltitude in feet
	TrueAltitude float64 `json:"trueAltitude"`

	// Heading in degrees (0-359.99)
	Heading float64 `json:"heading"`

	FreetextEnabled bool `json:"freetextEnabled"`

	// AircraftType is the free-form type/livery tag (e.g., "A32NX", "A380X")
	AircraftType string `json:"aircraftType"`

	// Origin and Destination are ICAO airport codes; either may be empty
	Origin      string `json:"origin,omitempty"`
	Destination string `json:"destination,omitempty"`
}

// Latitude returns the connection's latitude in decimal degrees.
func (c Connection) Latitude() float64 { return c.Location.Y }

// Longitude returns the connection's longitude in decimal degrees.
func (c Connection) Longitude() float64 { return c.Location.X }

// Bounds restricts a connection query to a map viewport.
type Bounds struct {
	North float64
	East  float64
	South float64
	West  float64
}

// Page is one page of the paginated connection listing.
type Page struct {
	Results []Connection `json:"results"`
	Count   int          `json:"count"`
	Total   int          `json:"total"`
}

// ConnectionSource is implemented by anything that can list the current
// connections. The overlay widget depends on this rather than on *Client so
// hosts and tests can substitute their own source.
type ConnectionSource interface {
	// FetchAllConnections returns every active connection, in API order.
	FetchAllConnections(ctx context.Context) ([]Connection, error)
}
