package model

import (
	"fmt"
	"strings"
)

// TransportMode defines how goods travel on a route.
type TransportMode int

const (
	AmbientTransport TransportMode = iota
	FrozenTransport
)

// String returns a human-readable representation of the transport mode.
func (m TransportMode) String() string {
	switch m {
	case AmbientTransport:
		return "ambient"
	case FrozenTransport:
		return "frozen"
	default:
		return "unknown"
	}
}

// ParseTransportMode converts a name into a TransportMode.
func ParseTransportMode(v string) (TransportMode, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "ambient":
		return AmbientTransport, nil
	case "frozen":
		return FrozenTransport, nil
	default:
		return AmbientTransport, fmt.Errorf("unknown transport mode %q", v)
	}
}

// Route is a directed lane between two nodes.
type Route struct {
	Origin      string
	Destination string
	TransitDays float64
	Mode        TransportMode
	CostPerUnit float64
}

// TransitWholeDays returns the transit time rounded up to whole days, which
// is the offset between departure and delivery dates.
func (r Route) TransitWholeDays() int {
	return CeilDays(r.TransitDays)
}

// Key identifies the route by its endpoints.
func (r Route) Key() string {
	return r.Origin + "->" + r.Destination
}
