package render

import (
	"bytes"
	"fmt"

	"github.com/fogleman/gg"
	"go.uber.org/zap"

	"github.com/easyconduit/easyconduit/internal/state"
)

const (
	canvasW = 600
	canvasH = 980
	pad     = 24
	gap     = 12
)

var fontCandidates = []string{
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf",
	"/usr/share/fonts/truetype/liberation/LiberationSans-Regular.ttf",
}

// Dashboard renders the portrait status PNG: header with LIVE/STOPPED
// badge, clients card, session traffic sparklines, uptime and bandwidth
// cards, and lifetime traffic sparklines.
type Dashboard struct {
	logger   *zap.Logger
	fontPath string
	noFont   bool
}

func NewDashboard(logger *zap.Logger) *Dashboard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dashboard{logger: logger}
}

// setFont selects a truetype face at the given size, falling back to the
// built-in bitmap face when no system font is available.
func (d *Dashboard) setFont(dc *gg.Context, points float64) {
	if d.noFont {
		return
	}
	if d.fontPath != "" {
		if err := dc.LoadFontFace(d.fontPath, points); err == nil {
			return
		}
	}
	for _, path := range fontCandidates {
		if err := dc.LoadFontFace(path, points); err == nil {
			d.fontPath = path
			return
		}
	}
	d.noFont = true
	d.logger.Warn("no truetype font found, using built-in face")
}

func (d *Dashboard) Render(v View) ([]byte, error) {
	dc := gg.NewContext(canvasW, canvasH)
	dc.SetRGB255(245, 246, 248)
	dc.Clear()

	y := d.drawHeader(dc, v)
	y = d.drawClientsCard(dc, v, y)
	y = d.drawTrafficCard(dc, "Traffic (session)", v.Sample.BytesUploaded, v.Sample.BytesDownloaded, v.TrafficHistory, y)
	y = d.drawShortCards(dc, v, y)
	d.drawTrafficCard(dc, "Lifetime Traffic", v.LifetimeUp, v.LifetimeDown, v.LifetimeHistory, y)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode dashboard png: %w", err)
	}
	return buf.Bytes(), nil
}

func (d *Dashboard) drawHeader(dc *gg.Context, v View) float64 {
	const headerH = 88.0
	dc.SetRGB255(44, 62, 80)
	dc.DrawRectangle(0, 0, canvasW, headerH)
	dc.Fill()

	d.setFont(dc, 28)
	dc.SetRGB255(255, 255, 255)
	dc.DrawString("EasyConduit", 24, 40)
	d.setFont(dc, 14)
	dc.SetRGB255(180, 190, 200)
	dc.DrawString("v"+v.Version, 24, 64)

	// Status badge spanning the full header height.
	statusText := "STOPPED"
	if v.Live() {
		dc.SetRGB255(39, 174, 96)
		statusText = "LIVE"
	} else {
		dc.SetRGB255(231, 76, 60)
	}
	const badgeW, badgeX = 110.0, 24.0 + 180 + gap
	dc.DrawRectangle(badgeX, 0, badgeW, headerH)
	dc.Fill()
	d.setFont(dc, 20)
	dc.SetRGB255(255, 255, 255)
	dc.DrawStringAnchored(statusText, badgeX+badgeW/2, headerH/2, 0.5, 0.5)

	d.drawFlag(dc, canvasW-headerH*7/4-16, 0, headerH*7/4, headerH)

	// UTC timestamp below the header.
	d.setFont(dc, 16)
	dc.SetRGB255(120, 144, 156)
	dc.DrawString(v.Now.UTC().Format("2006-01-02 15:04 UTC"), 24, headerH+28)
	return headerH + 40
}

// drawFlag draws the 1964 Iran tricolor with a simplified gold sun emblem.
func (d *Dashboard) drawFlag(dc *gg.Context, x, y, w, h float64) {
	bandH := h / 3
	dc.SetRGB255(35, 159, 64)
	dc.DrawRectangle(x, y, w, bandH)
	dc.Fill()
	dc.SetRGB255(255, 255, 255)
	dc.DrawRectangle(x, y+bandH, w, bandH)
	dc.Fill()
	dc.SetRGB255(218, 0, 0)
	dc.DrawRectangle(x, y+2*bandH, w, bandH)
	dc.Fill()
	dc.SetRGB255(255, 187, 38)
	dc.DrawCircle(x+w/2, y+h/2, bandH/2.5)
	dc.Fill()
}

// card draws a white card with the standard outline and returns nothing;
// content is drawn by the caller inside the same bounds.
func (d *Dashboard) card(dc *gg.Context, x, y, w, h float64) {
	dc.SetRGB255(255, 255, 255)
	dc.DrawRectangle(x, y, w, h)
	dc.FillPreserve()
	dc.SetRGB255(220, 221, 225)
	dc.SetLineWidth(1)
	dc.Stroke()
}

func (d *Dashboard) drawClientsCard(dc *gg.Context, v View, y float64) float64 {
	const cardH = 122.0
	x := float64(pad)
	w := float64(canvasW - 2*pad)
	d.card(dc, x, y, w, cardH)

	d.setFont(dc, 16)
	dc.SetRGB255(99, 110, 114)
	dc.DrawString("Clients", x+16, y+26)
	d.setFont(dc, 28)
	dc.SetRGB255(44, 62, 80)
	dc.DrawString(fmt.Sprintf("%d / %d", v.Sample.ConnectedClients, v.MaxClients), x+16, y+62)

	// Capacity bar below the value line.
	barY := y + 74
	barW := w - 32
	dc.SetRGB255(236, 240, 241)
	dc.DrawRectangle(x+16, barY, barW, 14)
	dc.Fill()
	if v.MaxClients > 0 {
		frac := float64(v.Sample.ConnectedClients) / float64(v.MaxClients)
		if frac > 1 {
			frac = 1
		}
		if frac > 0 {
			dc.SetRGB255(39, 174, 96)
			dc.DrawRectangle(x+16, barY, barW*frac, 14)
			dc.Fill()
		}
	}

	d.setFont(dc, 16)
	dc.SetRGB255(99, 110, 114)
	dc.DrawString(fmt.Sprintf("Connecting: %d  ·  Client-h today: %.1f",
		v.Sample.ConnectingClients, v.ClientSecondsToday/3600), x+16, barY+34)
	return y + cardH + pad
}

func (d *Dashboard) drawTrafficCard(dc *gg.Context, title string, up, down float64, history []state.TrafficPoint, y float64) float64 {
	const titleH, chartH = 44.0, 220.0
	x := float64(pad)
	w := float64(canvasW - 2*pad)
	halfW := (w - gap) / 2
	d.card(dc, x, y, w, titleH+chartH)

	d.setFont(dc, 16)
	dc.SetRGB255(99, 110, 114)
	dc.DrawString(title, x+16, y+24)

	// Summary line color-coded to match the charts.
	d.setFont(dc, 20)
	labelY := y + 46
	upText := "↑ " + HumanBytes(up)
	sepText := "  |  "
	downText := "↓ " + HumanBytes(down)
	dc.SetRGB255(52, 152, 219)
	dc.DrawString(upText, x+16, labelY)
	upW, _ := dc.MeasureString(upText)
	dc.SetRGB255(44, 62, 80)
	dc.DrawString(sepText, x+16+upW, labelY)
	sepW, _ := dc.MeasureString(sepText)
	dc.SetRGB255(155, 89, 182)
	dc.DrawString(downText, x+16+upW+sepW, labelY)

	chartY := y + titleH
	ups := make([]float64, len(history))
	downs := make([]float64, len(history))
	for i, p := range history {
		ups[i] = p.Up
		downs[i] = p.Down
	}
	d.chartBox(dc, x+4, chartY+4, halfW-8, chartH-8, ups, 52, 152, 219)
	d.chartBox(dc, x+halfW+gap+4, chartY+4, halfW-8, chartH-8, downs, 155, 89, 182)

	return y + titleH + chartH + pad
}

func (d *Dashboard) drawShortCards(dc *gg.Context, v View, y float64) float64 {
	const cardH = 76.0
	x := float64(pad)
	w := float64(canvasW - 2*pad)
	halfW := (w - gap) / 2

	d.card(dc, x, y, halfW, cardH)
	d.setFont(dc, 16)
	dc.SetRGB255(99, 110, 114)
	dc.DrawString("Uptime", x+12, y+24)
	d.setFont(dc, 28)
	dc.SetRGB255(44, 62, 80)
	dc.DrawString(HumanDuration(v.Sample.UptimeSeconds), x+12, y+62)

	d.card(dc, x+halfW+gap, y, halfW, cardH)
	d.setFont(dc, 16)
	dc.SetRGB255(99, 110, 114)
	dc.DrawString("Bandwidth", x+halfW+gap+12, y+24)
	d.setFont(dc, 28)
	dc.SetRGB255(44, 62, 80)
	dc.DrawString(bandwidthText(v.BandwidthMbps), x+halfW+gap+12, y+62)

	return y + cardH + pad
}

// chartBox paints the chart background and a polyline of values scaled to
// the series maximum.
func (d *Dashboard) chartBox(dc *gg.Context, x, y, w, h float64, values []float64, r, g, b int) {
	dc.SetRGB255(248, 249, 250)
	dc.DrawRectangle(x, y, w, h)
	dc.FillPreserve()
	dc.SetRGB255(220, 221, 225)
	dc.SetLineWidth(1)
	dc.Stroke()

	if len(values) < 2 || w < 2 || h < 2 {
		return
	}
	maxVal := 1.0
	for _, v := range values {
		if v > maxVal {
			maxVal = v
		}
	}
	inX, inY, inW, inH := x+4, y+4, w-8, h-8
	stepX := inW / float64(len(values)-1)
	dc.SetRGB255(r, g, b)
	dc.SetLineWidth(2)
	for i, v := range values {
		px := inX + float64(i)*stepX
		py := inY + inH - (v/maxVal)*inH
		if i == 0 {
			dc.MoveTo(px, py)
		} else {
			dc.LineTo(px, py)
		}
	}
	dc.Stroke()
}
