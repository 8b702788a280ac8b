// Package render turns the current metrics picture into the dashboard PNG
// and the status text the bot keeps edited in place.
package render

import (
	"time"

	"github.com/easyconduit/easyconduit/internal/conduit"
	"github.com/easyconduit/easyconduit/internal/state"
)

// View is everything one dashboard refresh needs to draw. When the conduit
// is unreachable Sample carries the last good scrape and Reachable is
// false, so the surfaces can render a best-effort picture with a hint.
type View struct {
	Version            string
	Sample             conduit.Sample
	Reachable          bool
	ServiceStatus      string
	MaxClients         int
	BandwidthMbps      float64
	LifetimeUp         float64
	LifetimeDown       float64
	TrafficHistory     []state.TrafficPoint
	LifetimeHistory    []state.TrafficPoint
	ClientSecondsToday float64
	Now                time.Time
}

// Live reports whether the dashboard should show LIVE: the conduit claims
// liveness and its service unit is actually active.
func (v View) Live() bool {
	return v.Sample.Live && v.ServiceStatus == "active"
}
