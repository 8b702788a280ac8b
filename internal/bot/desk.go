package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/easyconduit/easyconduit/internal/config"
)

// Node identifies the logical screen currently shown by the command desk.
// The node is never persisted: it lives only as the desk message's text
// and keyboard, and every transition rewrites both.
type Node int

const (
	NodeMain Node = iota
	NodeConfigs
	NodeLimits
	NodeBandwidth
	NodeConfirmRestart
	NodeConfirmStop
	NodeConfirmUpdate
	NodeConfirmReboot
	NodeInfo
)

const (
	deskMainText    = "EasyConduit – Control Panel\n(Use the buttons below.)"
	deskConfigsText = "Configs – limits and Conduit control. Conduit service will restart when you change limits."
	deskLimitsText  = "Max connection limit (50–300). Conduit supports this range; service restarts after change."
	deskBWText      = "Max bandwidth (5–30 Mbps). Service restarts after change."
	deskRestartText = "Restart (or start) Conduit service? It will apply current limits."
	deskStopText    = "Stop Conduit? Dashboard will show STOPPED. You can start again via Configs → Restart/Start Conduit."
	deskRebootText  = "Reboot the entire server? All connections will drop. Only use if needed."
)

var (
	clientPresets    = []int{50, 75, 100, 125, 150, 200, 250, 300}
	bandwidthPresets = []int{5, 10, 15, 20, 25, 30}
)

func mainKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🔍 Status", "cmd_status")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("⚙ Configs", "cmd_configs")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("ℹ More Info", "cmd_info")),
	)
}

func configsKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("📊 Max connection limit", "cmd_limits")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("📶 Max bandwidth", "cmd_bandwidth")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("♻ Restart/Start Conduit", "cmd_restart_conduit")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("⏹ Stop Conduit", "cmd_stop_conduit")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🔄 Update", "cmd_update")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("⚡ Reboot server", "cmd_reboot")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("◀ Back", "back_main")),
	)
}

func limitsKeyboard() tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, 3)
	for start := 0; start < len(clientPresets); start += 4 {
		var row []tgbotapi.InlineKeyboardButton
		for _, v := range clientPresets[start:min(start+4, len(clientPresets))] {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(strconv.Itoa(v), fmt.Sprintf("set_clients_%d", v)))
		}
		rows = append(rows, row)
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("◀ Back", "back_configs")))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func bandwidthKeyboard() tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, 3)
	for start := 0; start < len(bandwidthPresets); start += 3 {
		var row []tgbotapi.InlineKeyboardButton
		for _, v := range bandwidthPresets[start:min(start+3, len(bandwidthPresets))] {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%d Mbps", v), fmt.Sprintf("set_bw_%d", v)))
		}
		rows = append(rows, row)
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("◀ Back", "back_configs")))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func confirmKeyboard(yesLabel, yesToken, cancelToken string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(yesLabel, yesToken),
			tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", cancelToken),
		),
	)
}

// deskContent returns the canonical text and keyboard for a node.
func (b *Bot) deskContent(node Node) (string, tgbotapi.InlineKeyboardMarkup) {
	switch node {
	case NodeConfigs:
		return deskConfigsText, configsKeyboard()
	case NodeLimits:
		return deskLimitsText, limitsKeyboard()
	case NodeBandwidth:
		return deskBWText, bandwidthKeyboard()
	case NodeConfirmRestart:
		return deskRestartText, confirmKeyboard("✅ Yes, restart", "restart_conduit_confirm", "restart_conduit_cancel")
	case NodeConfirmStop:
		return deskStopText, confirmKeyboard("✅ Yes, stop", "stop_conduit_confirm", "stop_conduit_cancel")
	case NodeConfirmUpdate:
		return b.updateText(), confirmKeyboard(b.updateLabel(), "update_confirm", "update_cancel")
	case NodeConfirmReboot:
		return deskRebootText, confirmKeyboard("✅ Yes, reboot server", "reboot_confirm", "reboot_cancel")
	case NodeInfo:
		text := fmt.Sprintf(
			"EasyConduit v%s – About\n\n"+
				"This bot controls a Psiphon Conduit inproxy on this server. "+
				"You see a live dashboard (image + status) and a Control Panel with buttons. "+
				"Conduit limits (max clients, bandwidth) take effect after a service restart.\n\n"+
				"Project: %s", Version, RepoURL)
		return text, mainKeyboard()
	}
	return deskMainText, mainKeyboard()
}

func (b *Bot) updateText() string {
	if b.latestRelease != "" {
		return fmt.Sprintf(
			"EasyConduit – Update\n\n"+
				"You are on EasyConduit v%s; %s is available.\n\n"+
				"Press the button below to download and install it from GitHub, "+
				"or Cancel to go back.\n\nProject: %s", Version, b.latestRelease, RepoURL)
	}
	return fmt.Sprintf(
		"EasyConduit – Update\n\n"+
			"You are on EasyConduit v%s.\n\n"+
			"Press the button below to re-download and reinstall this version from GitHub, "+
			"or Cancel to go back.\n\nProject: %s", Version, RepoURL)
}

func (b *Bot) updateLabel() string {
	if b.latestRelease != "" {
		return "🔄 Update to " + b.latestRelease
	}
	return fmt.Sprintf("🔄 Reinstall v%s", Version)
}

// showDesk rewrites the desk message with node's canonical content.
func (b *Bot) showDesk(chatID int64, node Node) {
	text, kb := b.deskContent(node)
	b.ui.EditCommandDesk(chatID, text, kb)
}

// handleToken runs one command-desk transition. Callback tokens are unique
// across screens, so the destination and side effect depend only on the
// token; the desk message itself is the only place the current screen
// lives. It returns the acknowledgment text for the button press and an
// optional follow-up to run after the press has been acknowledged (used
// by actions that may kill this very process).
func (b *Bot) handleToken(ctx context.Context, chatID int64, token string, now time.Time) (ack string, after func()) {
	switch token {
	case "cmd_status":
		if now.Sub(b.doc.StatusPressedAt(chatID)) < statusRateLimit {
			return "Please wait before refreshing again.", nil
		}
		b.doc.RecordStatusPress(chatID, now)
		// Zeroing the refresh clock makes the next loop pass refresh
		// immediately.
		b.lastRefresh = time.Time{}
		return "Refreshing…", nil

	case "cmd_configs", "back_configs":
		b.showDesk(chatID, NodeConfigs)
		return "", nil

	case "cmd_limits":
		b.showDesk(chatID, NodeLimits)
		return "", nil

	case "cmd_bandwidth":
		b.showDesk(chatID, NodeBandwidth)
		return "", nil

	case "back_main":
		b.showDesk(chatID, NodeMain)
		return "", nil

	case "cmd_info":
		b.showDesk(chatID, NodeInfo)
		return "", nil

	case "cmd_restart_conduit":
		b.showDesk(chatID, NodeConfirmRestart)
		return "", nil

	case "restart_conduit_confirm":
		b.control.RestartConduit()
		b.showDesk(chatID, NodeMain)
		return "Conduit restarted.", nil

	case "restart_conduit_cancel":
		b.showDesk(chatID, NodeMain)
		return "Cancelled.", nil

	case "cmd_stop_conduit":
		b.showDesk(chatID, NodeConfirmStop)
		return "", nil

	case "stop_conduit_confirm":
		b.control.StopConduit()
		// Refresh right away so the dashboard flips to STOPPED without
		// waiting for the next periodic tick.
		b.refreshDashboard(ctx, now)
		b.showDesk(chatID, NodeMain)
		return "Conduit stopped. Status updated.", nil

	case "stop_conduit_cancel":
		b.showDesk(chatID, NodeMain)
		return "Cancelled.", nil

	case "cmd_update":
		b.showDesk(chatID, NodeConfirmUpdate)
		return "", nil

	case "update_confirm":
		// Keep the desk on its main screen while the update runs, so a
		// stale "updating" prompt cannot survive the restart. State is
		// saved before the script launches because the script replaces
		// this process.
		b.showDesk(chatID, NodeMain)
		return "Updating…", func() {
			b.saveState()
			b.control.RunUpdate()
		}

	case "update_cancel":
		b.showDesk(chatID, NodeConfigs)
		return "Cancelled.", nil

	case "cmd_reboot":
		b.showDesk(chatID, NodeConfirmReboot)
		return "", nil

	case "reboot_confirm":
		// Terminal: no desk transition, the machine is going down.
		return "Rebooting now…", func() {
			b.saveState()
			b.control.Reboot()
		}

	case "reboot_cancel":
		b.showDesk(chatID, NodeMain)
		return "Cancelled.", nil
	}

	if v, ok := strings.CutPrefix(token, "set_clients_"); ok {
		return b.applyPreset(chatID, v, clientPresets, "MAX_CLIENTS", "Max clients set to %d. Conduit restarting."), nil
	}
	if v, ok := strings.CutPrefix(token, "set_bw_"); ok {
		return b.applyPreset(chatID, v, bandwidthPresets, "BANDWIDTH", "Bandwidth set to %d Mbps. Conduit restarting."), nil
	}

	// Unrecognized tokens get an empty ack and cause no transition.
	return "", nil
}

// applyPreset validates a preset token value, persists it to the conduit
// env file, restarts the conduit, and returns to the main screen.
func (b *Bot) applyPreset(chatID int64, raw string, allowed []int, key, ackFormat string) string {
	v, err := strconv.Atoi(raw)
	if err != nil {
		return "Invalid value."
	}
	ok := false
	for _, a := range allowed {
		if v == a {
			ok = true
			break
		}
	}
	if !ok {
		return "Use one of the preset values."
	}
	if err := config.SetConduitParam(b.cfg.ConduitEnvPath, key, strconv.Itoa(v)); err != nil {
		b.logger.Error("persist conduit param failed", zap.String("key", key), zap.Error(err))
		return "Failed to save setting."
	}
	b.control.RestartConduit()
	b.showDesk(chatID, NodeMain)
	return fmt.Sprintf(ackFormat, v)
}
