// Package bot wires the update poller, owner gate, chat UI reconciler,
// command desk, and metrics aggregation into one single-threaded loop.
package bot

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/easyconduit/easyconduit/internal/conduit"
	"github.com/easyconduit/easyconduit/internal/config"
	"github.com/easyconduit/easyconduit/internal/logging"
	"github.com/easyconduit/easyconduit/internal/release"
	"github.com/easyconduit/easyconduit/internal/render"
	"github.com/easyconduit/easyconduit/internal/state"
	"github.com/easyconduit/easyconduit/internal/system"
	"github.com/easyconduit/easyconduit/internal/telegram"
)

// Version is shown in the dashboard header and the info screen. Bump only
// when declaring a new release.
const Version = "1.0"

// RepoURL is the canonical project repository.
const RepoURL = "https://github.com/0xn0c0de/easyconduit"

const (
	refreshInterval  = 30 * time.Second
	samplingInterval = 30 * time.Second
	pollTimeoutSec   = 10
	statusRateLimit  = 10 * time.Second
	// seenCacheSize bounds the recently-processed update ID cache that
	// backs replay protection on top of the persisted offset.
	seenCacheSize = 512

	rejectionText = "Not authorized. Only the chat ID set during installation can use this bot."
)

// MetricsSource yields one conduit sample per call, or an error when the
// conduit is unreachable.
type MetricsSource interface {
	Fetch(ctx context.Context) (*conduit.Sample, error)
}

// Renderer turns the current metrics view into the dashboard PNG.
type Renderer interface {
	Render(v render.View) ([]byte, error)
}

// Bot owns the persisted document and runs the polling loop. Everything
// happens on one goroutine; the document needs no locking.
type Bot struct {
	cfg       *config.Runtime
	doc       *state.Document
	statePath string
	api       telegram.API
	control   system.Controller
	source    MetricsSource
	renderer  Renderer
	ui        *Reconciler
	logger    *zap.Logger
	metrics   *Metrics

	seen          *lru.Cache[int, struct{}]
	offset        int
	lastRefresh   time.Time
	latestRelease string
}

// New assembles a bot around the given collaborators. The document must
// already carry the owner chat ID written at install time.
func New(
	cfg *config.Runtime,
	doc *state.Document,
	statePath string,
	api telegram.API,
	control system.Controller,
	source MetricsSource,
	renderer Renderer,
	logger *zap.Logger,
) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := InitMetrics()
	seen, err := lru.New[int, struct{}](seenCacheSize)
	if err != nil {
		// lru.New fails only for a non-positive size; seenCacheSize is a
		// positive constant.
		logger.Panic("create replay cache", zap.Error(err))
	}
	return &Bot{
		cfg:       cfg,
		doc:       doc,
		statePath: statePath,
		api:       api,
		control:   control,
		source:    source,
		renderer:  renderer,
		ui:        NewReconciler(api, doc, metrics, logger),
		logger:    logger,
		metrics:   metrics,
		seen:      seen,
	}
}

// Run executes the polling loop until ctx is cancelled. Any error from a
// single iteration is contained there; Run itself only returns on
// cancellation.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.api.DeleteWebhook(); err != nil {
		b.logger.Warn("delete webhook failed", zap.Error(err))
	}

	if b.doc.LastUpdateID > 0 {
		b.offset = b.doc.LastUpdateID + 1
	}

	if tag, newer, err := release.NewChecker().Latest(ctx, repoSlug(), Version); err != nil {
		b.logger.Info("release check unavailable", zap.Error(err))
	} else if newer {
		b.latestRelease = tag
		b.logger.Info("newer release available", zap.String("tag", tag))
	}

	// Reset the desk to the main screen so a confirmation prompt left
	// over from a crash mid-flow cannot linger.
	b.showDesk(b.doc.OwnerChatID, NodeMain)
	b.saveState()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		b.iteration(ctx)
	}
}

// iteration is one cooperative pass: heartbeat, possible periodic refresh,
// one bounded-wait poll, and sequential handling of each fetched update.
// A panic anywhere inside is logged and the next iteration proceeds.
func (b *Bot) iteration(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("iteration panic", zap.Any("panic", r), zap.Stack("stack"))
			time.Sleep(5 * time.Second)
		}
	}()

	ctx = logging.WithCorrelationID(ctx, logging.NewCorrelationID())
	now := time.Now()

	b.writeHeartbeat(now)

	if now.Sub(b.lastRefresh) >= refreshInterval {
		b.refreshDashboard(ctx, now)
		b.lastRefresh = now
	}

	updates, err := b.api.GetUpdates(b.offset, pollTimeoutSec)
	if err != nil {
		b.logger.Warn("get updates failed", logging.Field(ctx), zap.Error(err))
		time.Sleep(time.Second)
		return
	}
	for _, upd := range updates {
		b.handleUpdate(ctx, upd, time.Now())
	}

	time.Sleep(time.Second)
}

// refreshDashboard pulls fresh metrics, folds them into the aggregates,
// and pushes a new image and status text through the reconciler.
func (b *Bot) refreshDashboard(ctx context.Context, now time.Time) {
	start := time.Now()
	defer func() { b.metrics.RefreshDuration.Observe(time.Since(start).Seconds()) }()

	view := b.collectView(ctx, now)
	statusText := render.StatusText(view)
	img, err := b.renderer.Render(view)
	if err != nil {
		b.logger.Error("render dashboard failed", logging.Field(ctx), zap.Error(err))
		img = nil
	}
	b.ui.UpdateTriad(b.doc.OwnerChatID, statusText, img)
	b.saveState()
}

// collectView samples the conduit and applies every aggregate mutation:
// lifetime counters, both histories, and the daily usage accumulator.
// When the conduit is unreachable no aggregate moves and the view falls
// back to the last good sample.
func (b *Bot) collectView(ctx context.Context, now time.Time) render.View {
	maxClients, bandwidth := config.LoadConduitEnv(b.cfg.ConduitEnvPath)
	svcStatus := b.control.UnitStatus(system.ConduitUnit)

	sample, err := b.source.Fetch(ctx)
	reachable := err == nil
	if err != nil {
		b.metrics.FetchFailures.Inc()
		b.logger.Warn("conduit metrics fetch failed", logging.Field(ctx), zap.Error(err))
	} else {
		b.doc.LastGoodMetrics = sample
		b.doc.Counters.Apply(sample.BytesUploaded, sample.BytesDownloaded)
		b.doc.LifetimeHistory = b.doc.LifetimeHistory.Append(
			b.doc.Counters.LifetimeBytesUp, b.doc.Counters.LifetimeBytesDown)
		b.doc.TrafficHistory = b.doc.TrafficHistory.Append(
			sample.BytesUploaded, sample.BytesDownloaded)
		b.doc.Daily.Add(sample.ConnectedClients, samplingInterval, now)
	}

	var shown conduit.Sample
	if sample != nil {
		shown = *sample
	} else if b.doc.LastGoodMetrics != nil {
		shown = *b.doc.LastGoodMetrics
	}

	return render.View{
		Version:            Version,
		Sample:             shown,
		Reachable:          reachable,
		ServiceStatus:      svcStatus,
		MaxClients:         maxClients,
		BandwidthMbps:      bandwidth,
		LifetimeUp:         b.doc.Counters.LifetimeBytesUp,
		LifetimeDown:       b.doc.Counters.LifetimeBytesDown,
		TrafficHistory:     b.doc.TrafficHistory,
		LifetimeHistory:    b.doc.LifetimeHistory,
		ClientSecondsToday: b.doc.Daily.ClientSecondsToday,
		Now:                now,
	}
}

// handleUpdate advances the offset cursor, drops replays, gates on the
// owner identity, and dispatches the two recognized event shapes. The
// document is saved once per fully handled owner event.
func (b *Bot) handleUpdate(ctx context.Context, upd tgbotapi.Update, now time.Time) {
	if upd.UpdateID >= b.offset {
		b.offset = upd.UpdateID + 1
	}
	if b.seen.Contains(upd.UpdateID) {
		return
	}
	b.seen.Add(upd.UpdateID, struct{}{})

	switch {
	case upd.CallbackQuery != nil:
		b.metrics.UpdatesTotal.WithLabelValues("callback").Inc()
		b.handleCallback(ctx, upd, now)
	case upd.Message != nil:
		b.metrics.UpdatesTotal.WithLabelValues("message").Inc()
		b.handleMessage(ctx, upd)
	default:
		b.metrics.UpdatesTotal.WithLabelValues("ignored").Inc()
	}
}

func (b *Bot) handleCallback(ctx context.Context, upd tgbotapi.Update, now time.Time) {
	cq := upd.CallbackQuery
	chatID := callbackChatID(cq)

	// Non-owner events get one rejection ack and must leave the
	// persisted document untouched, offset included.
	if chatID != b.doc.OwnerChatID {
		b.metrics.RejectionsTotal.Inc()
		b.api.AnswerCallback(cq.ID, rejectionText)
		return
	}

	b.logger.Info("button press",
		logging.Field(ctx),
		zap.String("token", cq.Data),
	)

	b.recordHandled(upd.UpdateID)
	ack, after := b.handleToken(ctx, chatID, cq.Data, now)
	b.api.AnswerCallback(cq.ID, ack)
	b.saveState()
	if after != nil {
		after()
	}
}

func (b *Bot) handleMessage(ctx context.Context, upd tgbotapi.Update) {
	msg := upd.Message
	if msg.Chat == nil || !isBootstrapCommand(msg.Text) {
		// Free-form text is ignored; the bot is button-driven.
		return
	}
	chatID := msg.Chat.ID

	if chatID != b.doc.OwnerChatID {
		b.metrics.RejectionsTotal.Inc()
		if _, err := b.api.SendMessage(chatID, rejectionText, nil); err != nil {
			b.logger.Warn("send rejection failed", logging.Field(ctx), zap.Error(err))
		}
		return
	}

	b.logger.Info("bootstrap command", logging.Field(ctx), zap.Int64("chat_id", chatID))
	b.recordHandled(upd.UpdateID)

	// Tear down any existing UI so /start never leaves stale duplicates,
	// then build the three messages from a fresh metrics pass.
	b.ui.TeardownTriad(chatID)
	view := b.collectView(ctx, time.Now())
	statusText := render.StatusText(view)
	if !view.Reachable && b.doc.LastGoodMetrics == nil {
		statusText += "\n\n(Dashboard will update once metrics are available.)"
	}
	img, err := b.renderer.Render(view)
	if err != nil {
		b.logger.Error("render dashboard failed", logging.Field(ctx), zap.Error(err))
	}
	b.ui.EnsureTriad(chatID, statusText, img)
	b.saveState()
}

// recordHandled marks an owner event as processed so a restart resumes
// strictly after it.
func (b *Bot) recordHandled(updateID int) {
	if updateID > b.doc.LastUpdateID {
		b.doc.LastUpdateID = updateID
	}
}

func (b *Bot) saveState() {
	if err := b.doc.Save(b.statePath); err != nil {
		b.metrics.StateSaveFailures.Inc()
		b.logger.Error("save state failed", zap.Error(err))
	}
}

// writeHeartbeat touches the liveness marker the external watchdog polls.
// Heartbeat failures must never break the loop.
func (b *Bot) writeHeartbeat(now time.Time) {
	path := filepath.Join(b.cfg.StateDir, "bot_heartbeat")
	_ = os.WriteFile(path, []byte(strconv.FormatInt(now.Unix(), 10)), 0o644)
}

// callbackChatID extracts the chat the button lives in, falling back to
// the pressing user when the originating message is gone.
func callbackChatID(cq *tgbotapi.CallbackQuery) int64 {
	if cq.Message != nil && cq.Message.Chat != nil {
		return cq.Message.Chat.ID
	}
	if cq.From != nil {
		return cq.From.ID
	}
	return 0
}

func isBootstrapCommand(text string) bool {
	return len(text) >= 6 && text[:6] == "/start"
}

func repoSlug() string {
	const prefix = "https://github.com/"
	if len(RepoURL) > len(prefix) {
		return RepoURL[len(prefix):]
	}
	return RepoURL
}
