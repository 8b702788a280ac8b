package render

import (
	"fmt"
	"math"
	"strings"
)

// HumanBytes formats a byte count with a binary-ish unit ladder.
func HumanBytes(num float64) string {
	num = math.Max(0, num)
	units := []string{"B", "KB", "MB", "GB", "TB"}
	i := 0
	for num >= 1024 && i < len(units)-1 {
		num /= 1024
		i++
	}
	if i == 0 {
		return fmt.Sprintf("%d %s", int(num), units[i])
	}
	return fmt.Sprintf("%.1f %s", num, units[i])
}

// HumanDuration formats a second count as the two most significant units.
func HumanDuration(seconds float64) string {
	total := int(math.Max(0, seconds))
	m, s := total/60, total%60
	h, m := m/60, m%60
	d, h := h/24, h%24
	switch {
	case d > 0:
		return fmt.Sprintf("%dd %dh", d, h)
	case h > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%ds", s)
}

// textBar renders a fixed-width block-character gauge.
func textBar(current, maximum, width int) string {
	if maximum <= 0 {
		return "[" + strings.Repeat("░", width) + "]"
	}
	frac := math.Max(0, math.Min(1, float64(current)/float64(maximum)))
	filled := int(math.Round(frac * float64(width)))
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "]"
}

func bandwidthText(mbps float64) string {
	if mbps < 0 {
		return "Unlimited"
	}
	return fmt.Sprintf("%.0f Mbps", mbps)
}

// Caption builds the five-line dashboard summary shared by the status
// message and the photo caption.
func Caption(v View) string {
	status := "STOPPED"
	if v.Sample.Live {
		status = "LIVE"
	}
	lines := []string{
		fmt.Sprintf("EasyConduit · %s", status),
		fmt.Sprintf("Clients: %s %d/%d (connecting %d) · Client-h today: %.1f",
			textBar(v.Sample.ConnectedClients, v.MaxClients, 10),
			v.Sample.ConnectedClients, v.MaxClients, v.Sample.ConnectingClients,
			v.ClientSecondsToday/3600),
		fmt.Sprintf("Traffic: Up %s · Down %s",
			HumanBytes(v.Sample.BytesUploaded), HumanBytes(v.Sample.BytesDownloaded)),
		fmt.Sprintf("Uptime: %s · BW: %s",
			HumanDuration(v.Sample.UptimeSeconds), bandwidthText(v.BandwidthMbps)),
		fmt.Sprintf("Lifetime: Up %s · Down %s",
			HumanBytes(v.LifetimeUp), HumanBytes(v.LifetimeDown)),
	}
	return strings.Join(lines, "\n")
}

// StatusText builds the full status message: the caption plus a real-time
// block that hints when the conduit or its service is down.
func StatusText(v View) string {
	conduitLine := "STOPPED"
	switch {
	case !v.Reachable:
		conduitLine = "unreachable (service may be down)"
	case v.Sample.Live:
		conduitLine = "LIVE"
	}

	svcHint := v.ServiceStatus
	switch v.ServiceStatus {
	case "inactive":
		svcHint = "inactive (stopped)"
	case "failed":
		svcHint = "failed (check logs)"
	}

	lines := []string{
		Caption(v),
		"",
		"Real-time:",
		fmt.Sprintf("  Conduit: %s  ·  Conduit service: %s", conduitLine, svcHint),
		"  Server (bot): running",
	}
	return strings.Join(lines, "\n")
}
