// Package conduit reads the Psiphon Conduit metrics exposition endpoint.
package conduit

import (
	"context"
	"fmt"
	"net/http"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// Sample is one scrape of the conduit metrics endpoint.
type Sample struct {
	ConnectedClients  int     `json:"connected_clients"`
	ConnectingClients int     `json:"connecting_clients"`
	BytesUploaded     float64 `json:"bytes_uploaded"`
	BytesDownloaded   float64 `json:"bytes_downloaded"`
	UptimeSeconds     float64 `json:"uptime_seconds"`
	Live              bool    `json:"live"`
	MaxClients        int     `json:"max_clients"`
	BandwidthLimitBps float64 `json:"bandwidth_limit_bytes_per_second"`
}

// familyNames is the whitelist of conduit metric families folded into a
// Sample. At least one must be present for a scrape to count.
var familyNames = []string{
	"conduit_connected_clients",
	"conduit_connecting_clients",
	"conduit_bytes_uploaded",
	"conduit_bytes_downloaded",
	"conduit_uptime_seconds",
	"conduit_is_live",
	"conduit_max_clients",
	"conduit_bandwidth_limit_bytes_per_second",
}

// Fetcher scrapes the conduit's Prometheus text exposition endpoint.
type Fetcher struct {
	url    string
	client *http.Client
}

func NewFetcher(url string) *Fetcher {
	return &Fetcher{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Fetch scrapes and parses the metrics endpoint. An unreachable conduit
// returns an error, never a zeroed sample, so callers can tell "conduit
// down" apart from "conduit idle". The same goes for an exposition that
// carries none of the conduit families: a 200 from the wrong endpoint
// must not read as an idle conduit, because zeroed byte counters would
// rebase the lifetime aggregation. Metric families that fail to parse
// are skipped as long as anything parsed before them.
func (f *Fetcher) Fetch(ctx context.Context) (*Sample, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build metrics request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch metrics: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("metrics endpoint returned %s", resp.Status)
	}

	var parser expfmt.TextParser
	families, perr := parser.TextToMetricFamilies(resp.Body)
	if len(families) == 0 && perr != nil {
		return nil, fmt.Errorf("parse metrics exposition: %w", perr)
	}
	if !anyFamily(families) {
		return nil, fmt.Errorf("no conduit metrics in exposition")
	}

	s := &Sample{
		ConnectedClients:  int(metricValue(families, "conduit_connected_clients")),
		ConnectingClients: int(metricValue(families, "conduit_connecting_clients")),
		BytesUploaded:     metricValue(families, "conduit_bytes_uploaded"),
		BytesDownloaded:   metricValue(families, "conduit_bytes_downloaded"),
		UptimeSeconds:     metricValue(families, "conduit_uptime_seconds"),
		Live:              metricValue(families, "conduit_is_live") >= 0.5,
		MaxClients:        int(metricValue(families, "conduit_max_clients")),
		BandwidthLimitBps: metricValue(families, "conduit_bandwidth_limit_bytes_per_second"),
	}
	return s, nil
}

// anyFamily reports whether at least one whitelisted family parsed.
func anyFamily(families map[string]*dto.MetricFamily) bool {
	for _, name := range familyNames {
		if _, ok := families[name]; ok {
			return true
		}
	}
	return false
}

// metricValue returns the first series value for name regardless of metric
// type, or 0 when the family is absent.
func metricValue(families map[string]*dto.MetricFamily, name string) float64 {
	mf, ok := families[name]
	if !ok || len(mf.Metric) == 0 {
		return 0
	}
	m := mf.Metric[0]
	switch {
	case m.Gauge != nil:
		return m.Gauge.GetValue()
	case m.Counter != nil:
		return m.Counter.GetValue()
	case m.Untyped != nil:
		return m.Untyped.GetValue()
	}
	return 0
}
