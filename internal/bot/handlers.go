package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"chatfeed/internal/feed"
)

const (
	cmdFeed  = "feed"
	cmdClose = "close"
)

func (b *Bot) handleStart(chatID int64) {
	b.reply(chatID, `Welcome to Chat Feed Bot!

Follow the shared message feed right here in the chat.

Quick start:
1. /feed - open the live feed
2. tap Older to load earlier messages
3. /close - stop following

Use /help for the full command reference.`)
}

func (b *Bot) handleHelp(chatID int64) {
	b.reply(chatID, `Commands:
/feed - open the feed (replaces an open one)
/close - close the feed

Buttons:
Older - load the previous page of history
Latest - jump back to the newest messages

The feed message updates itself when new messages arrive.`)
}

func (b *Bot) handleFeed(ctx context.Context, chatID int64) {
	if prev := b.swapSession(chatID, nil); prev != nil {
		prev.close()
	}

	sctx, cancel := context.WithCancel(ctx)
	sub, err := b.tail.Subscribe(sctx, b.cfg.LiveWindow)
	if err != nil {
		cancel()
		b.log.Error("subscribe to feed", "chat_id", chatID, "error", err)
		b.reply(chatID, "Failed to open the feed. Try again later.")
		return
	}

	msg := tgbotapi.NewMessage(chatID, "Loading feed...")
	msg.DisableWebPagePreview = true
	sent, err := b.api.Send(msg)
	if err != nil {
		cancel()
		sub.Cancel()
		b.log.Error("send feed message", "chat_id", chatID, "error", err)
		return
	}

	s := &session{
		chatID: chatID,
		msgID:  sent.MessageID,
		merger: feed.NewMerger(b.pager, b.cfg.PageSize, b.log.With("chat_id", chatID)),
		cancel: cancel,
		ctx:    sctx,
	}
	if prev := b.swapSession(chatID, s); prev != nil {
		prev.close()
	}

	go s.merger.Follow(sctx, sub, func(feed.Result) { b.render(s) })

	b.log.Info("feed opened", "chat_id", chatID, "message_id", s.msgID)
}

func (b *Bot) handleClose(chatID int64) {
	s := b.swapSession(chatID, nil)
	if s == nil {
		b.reply(chatID, "No open feed. Use /feed to open one.")
		return
	}
	s.close()

	edit := tgbotapi.NewEditMessageText(chatID, s.msgID, "Feed closed.")
	if _, err := b.api.Send(edit); err != nil {
		b.log.Error("edit closed feed", "chat_id", chatID, "error", err)
	}
	b.log.Info("feed closed", "chat_id", chatID)
}

// loadOlder requests the next history page and renders before and after.
// Overlapping calls are no-ops inside the merger.
func (b *Bot) loadOlder(s *session) {
	if s.merger.State() == feed.Exhausted {
		return
	}
	s.beginLoad()
	b.render(s)

	err := s.merger.RequestOlderPage(s.ctx)
	if err != nil {
		b.log.Warn("load older page", "chat_id", s.chatID, "error", err)
	}

	s.endLoad(err)
	b.render(s)
}

// render edits the feed message to the current view, skipping unchanged text.
func (b *Bot) render(s *session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	v := s.view()
	text := FormatTimeline(v)
	if text == s.lastText {
		return
	}

	edit := tgbotapi.NewEditMessageTextAndMarkup(s.chatID, s.msgID, text, keyboard(s.msgID, v.State))
	edit.DisableWebPagePreview = true
	if _, err := b.api.Send(edit); err != nil {
		b.log.Error("render feed", "chat_id", s.chatID, "error", err)
		return
	}
	s.lastText = text
}
