package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/easyconduit/easyconduit/internal/state"
	"github.com/easyconduit/easyconduit/internal/telegram"
)

// Reconciler keeps each chat's message triad alive: exactly three
// messages, edited in place, recreated one slot at a time only when
// Telegram reports the target gone.
type Reconciler struct {
	api     telegram.API
	doc     *state.Document
	logger  *zap.Logger
	metrics *Metrics
}

func NewReconciler(api telegram.API, doc *state.Document, metrics *Metrics, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{api: api, doc: doc, logger: logger, metrics: metrics}
}

// EnsureTriad creates whichever of the three messages do not exist yet and
// records their IDs. Slots that already exist are left untouched, so
// calling it again changes nothing. Only the /start bootstrap path calls
// this; the command desk is created showing the main screen.
func (r *Reconciler) EnsureTriad(chatID int64, statusText string, image []byte) {
	t := r.doc.Triad(chatID)
	if t.DashboardID == 0 {
		if id, err := r.api.SendPhoto(chatID, "", image); err != nil {
			r.logger.Warn("send dashboard photo failed", zap.Error(err))
		} else {
			t.DashboardID = id
		}
	}
	if t.StatusID == 0 {
		if id, err := r.api.SendMessage(chatID, statusText, nil); err != nil {
			r.logger.Warn("send status message failed", zap.Error(err))
		} else {
			t.StatusID = id
		}
	}
	if t.CommandID == 0 {
		kb := mainKeyboard()
		if id, err := r.api.SendMessage(chatID, deskMainText, &kb); err != nil {
			r.logger.Warn("send command desk failed", zap.Error(err))
		} else {
			t.CommandID = id
		}
	}
}

// UpdateTriad edits the dashboard image and status text in place. While
// the triad is incomplete this is a no-op: the periodic refresh must never
// create messages, only /start does. A nil image skips the photo edit.
func (r *Reconciler) UpdateTriad(chatID int64, statusText string, image []byte) {
	t := r.doc.Triad(chatID)
	if !t.Complete() {
		return
	}

	if image != nil {
		outcome := telegram.ClassifyEdit(r.api.EditMessageMedia(chatID, t.DashboardID, image))
		r.metrics.EditsTotal.WithLabelValues("dashboard", outcome.String()).Inc()
		switch outcome {
		case telegram.EditOK, telegram.EditUnchanged:
		case telegram.EditTargetMissing:
			if id, err := r.api.SendPhoto(chatID, "", image); err != nil {
				r.logger.Warn("recreate dashboard photo failed", zap.Error(err))
			} else {
				t.DashboardID = id
			}
		case telegram.EditFailed:
			// transient; the next refresh retries the same edit
		}
	}

	outcome := telegram.ClassifyEdit(r.api.EditMessageText(chatID, t.StatusID, statusText, nil))
	r.metrics.EditsTotal.WithLabelValues("status", outcome.String()).Inc()
	switch outcome {
	case telegram.EditOK, telegram.EditUnchanged:
	case telegram.EditTargetMissing:
		if id, err := r.api.SendMessage(chatID, statusText, nil); err != nil {
			r.logger.Warn("recreate status message failed", zap.Error(err))
		} else {
			t.StatusID = id
		}
	case telegram.EditFailed:
	}
}

// EditCommandDesk rewrites the control-panel message in place. Unlike
// UpdateTriad it creates the message when no ID is recorded, because the
// desk is also reset on startup, possibly before any bootstrap ran.
func (r *Reconciler) EditCommandDesk(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	t := r.doc.Triad(chatID)
	if t.CommandID == 0 {
		if id, err := r.api.SendMessage(chatID, text, &keyboard); err != nil {
			r.logger.Warn("send command desk failed", zap.Error(err))
		} else {
			t.CommandID = id
		}
		return
	}

	outcome := telegram.ClassifyEdit(r.api.EditMessageText(chatID, t.CommandID, text, &keyboard))
	r.metrics.EditsTotal.WithLabelValues("command", outcome.String()).Inc()
	switch outcome {
	case telegram.EditOK, telegram.EditUnchanged:
	case telegram.EditTargetMissing:
		if id, err := r.api.SendMessage(chatID, text, &keyboard); err != nil {
			r.logger.Warn("recreate command desk failed", zap.Error(err))
		} else {
			t.CommandID = id
		}
	case telegram.EditFailed:
	}
}

// TeardownTriad best-effort deletes all three messages and clears the
// stored IDs so /start can rebuild from scratch without stale duplicates.
func (r *Reconciler) TeardownTriad(chatID int64) {
	t := r.doc.Triad(chatID)
	for _, id := range []int{t.DashboardID, t.StatusID, t.CommandID} {
		if id != 0 {
			r.api.DeleteMessage(chatID, id)
		}
	}
	r.doc.ClearTriad(chatID)
}
