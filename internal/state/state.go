// Package state holds the single persisted document the bot owns, plus
// every pure mutation applied to it: lifetime traffic aggregation, the
// bounded traffic histories, and the daily usage accumulator.
//
// There is exactly one writer (the bot loop), so no locking is needed; the
// document is saved atomically after every handled unit of work.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/easyconduit/easyconduit/internal/conduit"
)

// HistoryMax bounds both traffic histories: roughly 20 minutes of points
// at the 30-second sampling interval.
const HistoryMax = 40

// TrafficPoint is one (upload, download) observation.
type TrafficPoint struct {
	Up   float64 `json:"up"`
	Down float64 `json:"down"`
}

// History is a bounded FIFO of traffic points, oldest first.
type History []TrafficPoint

// Append pushes a point and evicts from the front past HistoryMax.
func (h History) Append(up, down float64) History {
	h = append(h, TrafficPoint{Up: up, Down: down})
	if len(h) > HistoryMax {
		h = h[len(h)-HistoryMax:]
	}
	return h
}

// CounterState carries the lifetime byte totals across conduit restarts.
type CounterState struct {
	LastSeenBytesUp   float64 `json:"last_seen_bytes_uploaded"`
	LastSeenBytesDown float64 `json:"last_seen_bytes_downloaded"`
	LifetimeBytesUp   float64 `json:"lifetime_bytes_uploaded"`
	LifetimeBytesDown float64 `json:"lifetime_bytes_downloaded"`
}

// Apply folds one raw counter sample into the lifetime totals. A decrease
// means the conduit restarted and its counters reset to zero; that
// discontinuity is credited zero so the lifetime totals never go backwards.
// The delta accumulated upstream between the last sample and the reset is
// lost, which is an accepted precision trade-off.
func (c *CounterState) Apply(up, down float64) {
	if up >= c.LastSeenBytesUp {
		c.LifetimeBytesUp += up - c.LastSeenBytesUp
	}
	if down >= c.LastSeenBytesDown {
		c.LifetimeBytesDown += down - c.LastSeenBytesDown
	}
	c.LastSeenBytesUp = up
	c.LastSeenBytesDown = down
}

// DailyUsage accumulates connected-client-seconds, resetting at every UTC
// day boundary.
type DailyUsage struct {
	ClientSecondsToday float64 `json:"client_seconds_today"`
	LastDayUTC         string  `json:"last_day_utc"`
}

// Add credits connected clients for one sampling interval.
func (d *DailyUsage) Add(connected int, interval time.Duration, now time.Time) {
	today := now.UTC().Format("2006-01-02")
	if d.LastDayUTC != today {
		d.ClientSecondsToday = 0
		d.LastDayUTC = today
	}
	d.ClientSecondsToday += float64(connected) * interval.Seconds()
}

// Triad tracks the three live message IDs for one chat: dashboard image,
// status text, and the command desk. A zero ID means the slot has not been
// created yet.
type Triad struct {
	DashboardID int `json:"dashboard_message_id,omitempty"`
	StatusID    int `json:"status_message_id,omitempty"`
	CommandID   int `json:"command_message_id,omitempty"`
}

// Complete reports whether all three slots exist.
func (t *Triad) Complete() bool {
	return t.DashboardID != 0 && t.StatusID != 0 && t.CommandID != 0
}

// Document is the entire persisted state of the bot.
type Document struct {
	OwnerChatID     int64                `json:"owner_chat_id"`
	Triads          map[string]*Triad    `json:"triads"`
	Counters        CounterState         `json:"counters"`
	TrafficHistory  History              `json:"traffic_history"`
	LifetimeHistory History              `json:"lifetime_history"`
	LastUpdateID    int                  `json:"last_update_id"`
	Daily           DailyUsage           `json:"daily_usage"`
	LastGoodMetrics *conduit.Sample      `json:"last_good_metrics,omitempty"`
	LastStatusPress map[string]time.Time `json:"last_status_press,omitempty"`
}

// New returns an empty document with its maps initialized.
func New() *Document {
	return &Document{
		Triads:          make(map[string]*Triad),
		LastStatusPress: make(map[string]time.Time),
	}
}

// Load reads the persisted document. A missing or unparseable file yields
// an empty document; the caller decides whether required fields (such as
// the owner chat ID written at install time) are present.
func Load(path string) *Document {
	data, err := os.ReadFile(path)
	if err != nil {
		return New()
	}
	doc := New()
	if err := json.Unmarshal(data, doc); err != nil {
		return New()
	}
	if doc.Triads == nil {
		doc.Triads = make(map[string]*Triad)
	}
	if doc.LastStatusPress == nil {
		doc.LastStatusPress = make(map[string]time.Time)
	}
	return doc
}

// Save writes the document atomically: the full JSON goes to a temp file
// in the same directory, then renames over the target. A crash mid-write
// leaves the previous document intact.
func (d *Document) Save(path string) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace state: %w", err)
	}
	return nil
}

func chatKey(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}

// Triad returns the triad for chatID, creating an empty one on first use.
func (d *Document) Triad(chatID int64) *Triad {
	key := chatKey(chatID)
	t, ok := d.Triads[key]
	if !ok {
		t = &Triad{}
		d.Triads[key] = t
	}
	return t
}

// ClearTriad forgets every message ID recorded for chatID.
func (d *Document) ClearTriad(chatID int64) {
	delete(d.Triads, chatKey(chatID))
}

// StatusPressedAt returns the time of the last accepted status refresh
// press for chatID, or the zero time.
func (d *Document) StatusPressedAt(chatID int64) time.Time {
	return d.LastStatusPress[chatKey(chatID)]
}

// RecordStatusPress marks now as the last accepted status refresh press.
func (d *Document) RecordStatusPress(chatID int64, now time.Time) {
	d.LastStatusPress[chatKey(chatID)] = now
}
