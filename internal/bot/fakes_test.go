package bot

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/easyconduit/easyconduit/internal/conduit"
	"github.com/easyconduit/easyconduit/internal/config"
	"github.com/easyconduit/easyconduit/internal/render"
	"github.com/easyconduit/easyconduit/internal/state"
)

type sentMessage struct {
	chatID   int64
	text     string
	keyboard *tgbotapi.InlineKeyboardMarkup
}

type editCall struct {
	chatID    int64
	messageID int
	text      string
}

// fakeAPI records every Telegram call and lets tests script edit failures
// per message ID.
type fakeAPI struct {
	nextID int

	sent       []sentMessage
	photos     []int64
	textEdits  []editCall
	mediaEdits []editCall
	deleted    []int
	acks       []string

	editTextErr  map[int]error
	editMediaErr map[int]error
	sendErr      error
	updates      [][]tgbotapi.Update
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		nextID:       100,
		editTextErr:  make(map[int]error),
		editMediaErr: make(map[int]error),
	}
}

func (f *fakeAPI) GetUpdates(offset, timeoutSec int) ([]tgbotapi.Update, error) {
	if len(f.updates) == 0 {
		return nil, nil
	}
	batch := f.updates[0]
	f.updates = f.updates[1:]
	return batch, nil
}

func (f *fakeAPI) SendMessage(chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) (int, error) {
	if f.sendErr != nil {
		return 0, f.sendErr
	}
	f.nextID++
	f.sent = append(f.sent, sentMessage{chatID: chatID, text: text, keyboard: keyboard})
	return f.nextID, nil
}

func (f *fakeAPI) SendPhoto(chatID int64, caption string, png []byte) (int, error) {
	if f.sendErr != nil {
		return 0, f.sendErr
	}
	f.nextID++
	f.photos = append(f.photos, chatID)
	return f.nextID, nil
}

func (f *fakeAPI) EditMessageMedia(chatID int64, messageID int, png []byte) error {
	f.mediaEdits = append(f.mediaEdits, editCall{chatID: chatID, messageID: messageID})
	return f.editMediaErr[messageID]
}

func (f *fakeAPI) EditMessageText(chatID int64, messageID int, text string, keyboard *tgbotapi.InlineKeyboardMarkup) error {
	f.textEdits = append(f.textEdits, editCall{chatID: chatID, messageID: messageID, text: text})
	return f.editTextErr[messageID]
}

func (f *fakeAPI) AnswerCallback(callbackID, text string) {
	f.acks = append(f.acks, text)
}

func (f *fakeAPI) DeleteMessage(chatID int64, messageID int) {
	f.deleted = append(f.deleted, messageID)
}

func (f *fakeAPI) DeleteWebhook() error { return nil }

// lastDeskEdit returns the text of the most recent desk rewrite, whether
// it went out as an edit or as a fresh send.
func (f *fakeAPI) lastDeskEdit() string {
	if n := len(f.textEdits); n > 0 {
		return f.textEdits[n-1].text
	}
	if n := len(f.sent); n > 0 {
		return f.sent[n-1].text
	}
	return ""
}

type fakeControl struct {
	restarts, stops, reboots, updatesRun int
	status                               string
}

func (f *fakeControl) RestartConduit() { f.restarts++ }
func (f *fakeControl) StopConduit()    { f.stops++ }
func (f *fakeControl) Reboot()         { f.reboots++ }
func (f *fakeControl) RunUpdate()      { f.updatesRun++ }
func (f *fakeControl) UnitStatus(unit string) string {
	if f.status == "" {
		return "active"
	}
	return f.status
}

type fakeSource struct {
	sample *conduit.Sample
	err    error
}

func (f *fakeSource) Fetch(ctx context.Context) (*conduit.Sample, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.sample, nil
}

type fakeRenderer struct {
	err error
}

func (f *fakeRenderer) Render(v render.View) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte("png"), nil
}

const testOwner int64 = 4242

type fixture struct {
	bot     *Bot
	api     *fakeAPI
	control *fakeControl
	source  *fakeSource
	doc     *state.Document
	cfg     *config.Runtime
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Runtime{
		BotToken:       "test-token",
		MetricsURL:     "http://127.0.0.1:1/metrics",
		ConduitEnvPath: filepath.Join(dir, "conduit.env"),
		StateDir:       dir,
	}
	doc := state.New()
	doc.OwnerChatID = testOwner

	api := newFakeAPI()
	control := &fakeControl{}
	source := &fakeSource{sample: &conduit.Sample{
		ConnectedClients: 3,
		BytesUploaded:    1000,
		BytesDownloaded:  2000,
		UptimeSeconds:    60,
		Live:             true,
	}}

	b := New(cfg, doc, filepath.Join(dir, "bot_state.json"), api, control, source, &fakeRenderer{}, nil)
	return &fixture{bot: b, api: api, control: control, source: source, doc: doc, cfg: cfg}
}

// completeTriad seeds a fully created message triad for the owner chat.
func (fx *fixture) completeTriad() *state.Triad {
	t := fx.doc.Triad(testOwner)
	t.DashboardID = 11
	t.StatusID = 12
	t.CommandID = 13
	return t
}

func callbackUpdate(id int, chatID int64, token string) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: id,
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:      "cb",
			Data:    token,
			From:    &tgbotapi.User{ID: chatID},
			Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}},
		},
	}
}

func messageUpdate(id int, chatID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: id,
		Message: &tgbotapi.Message{
			Text: text,
			Chat: &tgbotapi.Chat{ID: chatID},
			From: &tgbotapi.User{ID: chatID},
		},
	}
}

var errNetwork = errors.New("Post \"https://api.telegram.org\": connection refused")
