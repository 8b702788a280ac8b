package render

import (
	"strings"
	"testing"
	"time"

	"github.com/easyconduit/easyconduit/internal/conduit"
)

func TestHumanBytes(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
		{2.5 * 1024 * 1024 * 1024, "2.5 GB"},
		{-5, "0 B"},
	}
	for _, tc := range tests {
		if got := HumanBytes(tc.in); got != tc.want {
			t.Errorf("HumanBytes(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestHumanDuration(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0s"},
		{45, "45s"},
		{90, "1m"},
		{3725, "1h 2m"},
		{90000, "1d 1h"},
		{-10, "0s"},
	}
	for _, tc := range tests {
		if got := HumanDuration(tc.in); got != tc.want {
			t.Errorf("HumanDuration(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTextBar(t *testing.T) {
	if got := textBar(5, 10, 10); got != "[█████░░░░░]" {
		t.Errorf("textBar(5,10) = %q", got)
	}
	if got := textBar(0, 0, 4); got != "[░░░░]" {
		t.Errorf("textBar with zero max = %q", got)
	}
	if got := textBar(20, 10, 4); got != "[████]" {
		t.Errorf("textBar overfull = %q", got)
	}
}

func testView() View {
	return View{
		Version: "1.0",
		Sample: conduit.Sample{
			ConnectedClients:  5,
			ConnectingClients: 1,
			BytesUploaded:     1024,
			BytesDownloaded:   2048,
			UptimeSeconds:     3600,
			Live:              true,
		},
		Reachable:          true,
		ServiceStatus:      "active",
		MaxClients:         50,
		BandwidthMbps:      10,
		LifetimeUp:         4096,
		LifetimeDown:       8192,
		ClientSecondsToday: 7200,
		Now:                time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
	}
}

func TestCaption(t *testing.T) {
	c := Caption(testView())
	for _, want := range []string{
		"EasyConduit · LIVE",
		"5/50 (connecting 1)",
		"Client-h today: 2.0",
		"Up 1.0 KB · Down 2.0 KB",
		"Uptime: 1h 0m · BW: 10 Mbps",
		"Lifetime: Up 4.0 KB · Down 8.0 KB",
	} {
		if !strings.Contains(c, want) {
			t.Errorf("caption missing %q:\n%s", want, c)
		}
	}
}

func TestCaptionUnlimitedBandwidth(t *testing.T) {
	v := testView()
	v.BandwidthMbps = -1
	if !strings.Contains(Caption(v), "BW: Unlimited") {
		t.Errorf("caption should show Unlimited for -1 bandwidth")
	}
}

func TestStatusTextLive(t *testing.T) {
	s := StatusText(testView())
	if !strings.Contains(s, "Conduit: LIVE") {
		t.Errorf("status text missing live line:\n%s", s)
	}
	if !strings.Contains(s, "Server (bot): running") {
		t.Errorf("status text missing server line:\n%s", s)
	}
}

func TestStatusTextUnreachable(t *testing.T) {
	v := testView()
	v.Reachable = false
	v.ServiceStatus = "inactive"
	s := StatusText(v)
	if !strings.Contains(s, "unreachable (service may be down)") {
		t.Errorf("status text missing unreachable hint:\n%s", s)
	}
	if !strings.Contains(s, "inactive (stopped)") {
		t.Errorf("status text missing service hint:\n%s", s)
	}
}

func TestViewLiveRequiresActiveService(t *testing.T) {
	v := testView()
	if !v.Live() {
		t.Fatal("expected live")
	}
	v.ServiceStatus = "inactive"
	if v.Live() {
		t.Error("metrics-live but stopped service must not report live")
	}
}
