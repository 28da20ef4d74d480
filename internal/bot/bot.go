package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"chatfeed/internal/config"
	"chatfeed/internal/feed"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot is the Telegram bot that shows the message feed in a chat.
type Bot struct {
	api   telegramAPI
	tail  feed.LiveTail
	pager feed.HistoryPager
	cfg   *config.Config
	log   *slog.Logger

	mu       sync.Mutex
	sessions map[int64]*session
}

// New creates a Bot with the given Telegram token, feed sources, and config.
func New(token string, tail feed.LiveTail, pager feed.HistoryPager, cfg *config.Config, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	return newBot(api, tail, pager, cfg, log), nil
}

func newBot(api telegramAPI, tail feed.LiveTail, pager feed.HistoryPager, cfg *config.Config, log *slog.Logger) *Bot {
	return &Bot{
		api:      api,
		tail:     tail,
		pager:    pager,
		cfg:      cfg,
		log:      log,
		sessions: make(map[int64]*session),
	}
}

// Run starts the bot's long-polling loop, blocking until ctx is cancelled.
// Open feed views are closed on return.
func (b *Bot) Run(ctx context.Context) {
	defer b.closeAll()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update := <-updates:
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if cb := update.CallbackQuery; cb != nil {
		if cb.From != nil && !b.cfg.IsUserAllowed(cb.From.ID) {
			b.ack(cb.ID, "Access denied.")
			return
		}
		b.handleCallback(ctx, cb)
		return
	}
	if update.Message == nil || !update.Message.IsCommand() {
		return
	}
	if update.Message.From != nil && !b.cfg.IsUserAllowed(update.Message.From.ID) {
		b.reply(update.Message.Chat.ID, "Access denied.")
		return
	}
	b.handleCommand(ctx, update.Message)
}

// SendMessage sends a text message to the given chat.
func (b *Bot) SendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) reply(chatID int64, text string) {
	b.SendMessage(chatID, text)
}

func (b *Bot) ack(callbackID, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		b.log.Error("send callback ack", "error", err)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	chatID := msg.Chat.ID

	b.log.Debug("command", "cmd", cmd, "args", args, "chat_id", chatID)

	switch cmd {
	case "start":
		b.handleStart(chatID)
	case "help":
		b.handleHelp(chatID)
	case cmdFeed:
		b.handleFeed(ctx, chatID)
	case cmdClose:
		b.handleClose(chatID)
	default:
		b.reply(chatID, "Unknown command. Use /help for a list of commands.")
	}
}

func (b *Bot) session(chatID int64) *session {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sessions[chatID]
}

// swapSession installs s for chatID (nil removes it) and returns the previous one.
func (b *Bot) swapSession(chatID int64, s *session) *session {
	b.mu.Lock()
	defer b.mu.Unlock()
	prev := b.sessions[chatID]
	if s == nil {
		delete(b.sessions, chatID)
	} else {
		b.sessions[chatID] = s
	}
	return prev
}

func (b *Bot) closeAll() {
	b.mu.Lock()
	open := b.sessions
	b.sessions = make(map[int64]*session)
	b.mu.Unlock()

	for _, s := range open {
		s.close()
	}
}
