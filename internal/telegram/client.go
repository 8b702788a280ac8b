// Package telegram wraps the slice of the Telegram Bot API the bot uses.
package telegram

import (
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// API abstracts the Telegram Bot API methods used by the bot, enabling
// mock-based testing without real Telegram calls.
type API interface {
	// GetUpdates long-polls for the next batch of updates.
	GetUpdates(offset, timeoutSec int) ([]tgbotapi.Update, error)
	// SendMessage sends a text message, optionally with an inline
	// keyboard, and returns the new message ID.
	SendMessage(chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) (int, error)
	// SendPhoto sends a PNG photo and returns the new message ID.
	SendPhoto(chatID int64, caption string, png []byte) (int, error)
	// EditMessageMedia replaces the photo of an existing message.
	EditMessageMedia(chatID int64, messageID int, png []byte) error
	// EditMessageText rewrites an existing text message in place.
	EditMessageText(chatID int64, messageID int, text string, keyboard *tgbotapi.InlineKeyboardMarkup) error
	// AnswerCallback acknowledges a button press. Best effort.
	AnswerCallback(callbackID, text string)
	// DeleteMessage removes a message. Best effort.
	DeleteMessage(chatID int64, messageID int)
	// DeleteWebhook clears any registered webhook so long polling works.
	DeleteWebhook() error
}

// Client is the production API implementation backed by tgbotapi.
type Client struct {
	bot *tgbotapi.BotAPI
}

// NewClient authenticates against the Bot API. Outbound calls are bounded
// at 45s, enough to cover the long-poll wait plus transfer time.
func NewClient(token string) (*Client, error) {
	httpClient := &http.Client{Timeout: 45 * time.Second}
	bot, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, httpClient)
	if err != nil {
		return nil, fmt.Errorf("create telegram client: %w", err)
	}
	return &Client{bot: bot}, nil
}

func (c *Client) GetUpdates(offset, timeoutSec int) ([]tgbotapi.Update, error) {
	return c.bot.GetUpdates(tgbotapi.UpdateConfig{Offset: offset, Timeout: timeoutSec})
}

func (c *Client) SendMessage(chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	if keyboard != nil {
		msg.ReplyMarkup = *keyboard
	}
	sent, err := c.bot.Send(msg)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

func (c *Client) SendPhoto(chatID int64, caption string, png []byte) (int, error) {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "dashboard.png", Bytes: png})
	photo.Caption = caption
	sent, err := c.bot.Send(photo)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

func (c *Client) EditMessageMedia(chatID int64, messageID int, png []byte) error {
	edit := tgbotapi.EditMessageMediaConfig{
		BaseEdit: tgbotapi.BaseEdit{ChatID: chatID, MessageID: messageID},
		Media:    tgbotapi.NewInputMediaPhoto(tgbotapi.FileBytes{Name: "dashboard.png", Bytes: png}),
	}
	_, err := c.bot.Request(edit)
	return err
}

func (c *Client) EditMessageText(chatID int64, messageID int, text string, keyboard *tgbotapi.InlineKeyboardMarkup) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	if keyboard != nil {
		edit.ReplyMarkup = keyboard
	}
	_, err := c.bot.Request(edit)
	return err
}

func (c *Client) AnswerCallback(callbackID, text string) {
	// Failure to ack only costs the pressing finger its spinner.
	_, _ = c.bot.Request(tgbotapi.NewCallback(callbackID, text))
}

func (c *Client) DeleteMessage(chatID int64, messageID int) {
	_, _ = c.bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
}

func (c *Client) DeleteWebhook() error {
	_, err := c.bot.Request(tgbotapi.DeleteWebhookConfig{})
	return err
}
