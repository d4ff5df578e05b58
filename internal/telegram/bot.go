// Package telegram provides a Telegram channel for Inspecta.
//
// Each Telegram chat maps to one Inspecta session ("tg-<chatID>"). Photos and
// voice notes become attachment uploads through the same conversational core
// the HTTP API uses; texts and captions become chat turns. When a reply
// carries the ticket affordance, the bot renders it as an inline "Create
// ticket" button.
//
// Uses long polling — no public URL or webhook needed.
package telegram

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/inspecta-dev/inspecta/internal/chat"
	"github.com/inspecta-dev/inspecta/internal/session"
)

// createTicketCallback is the callback data of the affordance button.
const createTicketCallback = "create_ticket"

// Conversation is the interface the conversational core implements.
type Conversation interface {
	Chat(ctx context.Context, id, text string, isVoice bool) chat.Result
	Upload(id, originalName string, data []byte) (session.Attachment, error)
	CreateTicket(ctx context.Context, id string) (number, message string)
	Clear(id string)
}

// Bot is the Telegram channel for Inspecta.
type Bot struct {
	api      *tgbotapi.BotAPI
	svc      Conversation
	download *http.Client
}

// NewBot creates a new Telegram bot.
func NewBot(token string, svc Conversation) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("creating Telegram bot: %w", err)
	}

	log.Printf("Telegram bot authorized as @%s", api.Self.UserName)

	return &Bot{
		api:      api,
		svc:      svc,
		download: &http.Client{Timeout: time.Minute},
	}, nil
}

// Run starts the long-polling loop. Blocks until ctx is canceled.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := b.api.GetUpdatesChan(u)

	log.Println("Telegram bot listening for messages...")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			switch {
			case update.Message != nil:
				go b.handleMessage(ctx, update.Message)
			case update.CallbackQuery != nil:
				go b.handleCallback(ctx, update.CallbackQuery)
			}
		}
	}
}

// sessionID maps a Telegram chat to its Inspecta session.
func sessionID(chatID int64) string {
	return fmt.Sprintf("tg-%d", chatID)
}

// handleMessage routes incoming messages to the appropriate handler.
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	switch {
	case len(msg.Photo) > 0:
		b.handlePhoto(ctx, chatID, msg)
	case msg.Voice != nil:
		b.handleVoice(ctx, chatID, msg)
	case strings.HasPrefix(strings.TrimSpace(msg.Text), "/"):
		b.handleCommand(ctx, chatID, msg.MessageID, strings.TrimSpace(msg.Text))
	case strings.TrimSpace(msg.Text) != "":
		b.handleChatText(ctx, chatID, msg.MessageID, msg.Text)
	}
}

// handleCommand processes slash commands.
func (b *Bot) handleCommand(ctx context.Context, chatID int64, replyTo int, text string) {
	cmd := strings.ToLower(strings.Fields(text)[0])
	// Strip @botname suffix from commands (e.g. /clear@mybot → /clear).
	if at := strings.Index(cmd, "@"); at >= 0 {
		cmd = cmd[:at]
	}

	switch cmd {
	case "/start", "/help":
		b.reply(chatID, replyTo,
			"Send a photo of the part you want inspected, then ask about it.\n"+
				"Voice notes work too.\n\n"+
				"/ticket — create a quality inspection ticket\n"+
				"/clear — start over (keeps your ticket history)")

	case "/ticket":
		number, message := b.svc.CreateTicket(ctx, sessionID(chatID))
		log.Printf("Telegram chat %d created ticket %s", chatID, number)
		b.reply(chatID, replyTo, message)

	case "/clear":
		b.svc.Clear(sessionID(chatID))
		b.reply(chatID, replyTo, "Session cleared. Your ticket history is preserved.")

	default:
		b.reply(chatID, replyTo, "Unknown command. Try /help.")
	}
}

// handlePhoto uploads the largest photo size and runs a turn for the caption.
func (b *Bot) handlePhoto(ctx context.Context, chatID int64, msg *tgbotapi.Message) {
	largest := msg.Photo[len(msg.Photo)-1]
	data, err := b.downloadFile(largest.FileID)
	if err != nil {
		log.Printf("Telegram photo download failed: %v", err)
		b.reply(chatID, msg.MessageID, "Sorry, I couldn't download that photo.")
		return
	}

	id := sessionID(chatID)
	if _, err := b.svc.Upload(id, "photo.jpg", data); err != nil {
		log.Printf("Telegram photo upload failed: %v", err)
		b.reply(chatID, msg.MessageID, "Sorry, I couldn't store that photo.")
		return
	}

	if strings.TrimSpace(msg.Caption) == "" {
		b.reply(chatID, msg.MessageID, "Photo attached. What would you like to know about it?")
		return
	}
	b.runTurn(ctx, chatID, msg.MessageID, msg.Caption, false)
}

// handleVoice uploads the voice note and runs a voice turn against it.
func (b *Bot) handleVoice(ctx context.Context, chatID int64, msg *tgbotapi.Message) {
	data, err := b.downloadFile(msg.Voice.FileID)
	if err != nil {
		log.Printf("Telegram voice download failed: %v", err)
		b.reply(chatID, msg.MessageID, "Sorry, I couldn't download that voice note.")
		return
	}

	id := sessionID(chatID)
	if _, err := b.svc.Upload(id, "voice.ogg", data); err != nil {
		log.Printf("Telegram voice upload failed: %v", err)
		b.reply(chatID, msg.MessageID, "Sorry, I couldn't store that voice note.")
		return
	}

	b.runTurn(ctx, chatID, msg.MessageID, "", true)
}

func (b *Bot) handleChatText(ctx context.Context, chatID int64, replyTo int, text string) {
	b.runTurn(ctx, chatID, replyTo, text, false)
}

// runTurn executes one chat turn and renders the result, including the
// ticket affordance button when the signal fires.
func (b *Bot) runTurn(ctx context.Context, chatID int64, replyTo int, text string, isVoice bool) {
	b.sendTyping(chatID)

	res := b.svc.Chat(ctx, sessionID(chatID), text, isVoice)

	reply := tgbotapi.NewMessage(chatID, res.Response)
	reply.ReplyToMessageID = replyTo
	if res.ShowTicketButton {
		reply.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Create inspection ticket", createTicketCallback),
			),
		)
	}
	if _, err := b.api.Send(reply); err != nil {
		log.Printf("Telegram send failed: %v", err)
	}
}

// handleCallback processes the affordance button press.
func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Data != createTicketCallback || cb.Message == nil {
		return
	}

	chatID := cb.Message.Chat.ID
	number, message := b.svc.CreateTicket(ctx, sessionID(chatID))
	log.Printf("Telegram chat %d created ticket %s via button", chatID, number)

	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "Ticket "+number+" created")); err != nil {
		log.Printf("Telegram callback ack failed: %v", err)
	}
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, message)); err != nil {
		log.Printf("Telegram send failed: %v", err)
	}
}

// downloadFile fetches a Telegram file's bytes by file ID.
func (b *Bot) downloadFile(fileID string) ([]byte, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("resolving file URL: %w", err)
	}

	resp, err := b.download.Get(url)
	if err != nil {
		return nil, fmt.Errorf("downloading file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("downloading file: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (b *Bot) reply(chatID int64, replyTo int, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyToMessageID = replyTo
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("Telegram send failed: %v", err)
	}
}

func (b *Bot) sendTyping(chatID int64) {
	if _, err := b.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		log.Printf("Telegram chat action failed: %v", err)
	}
}
