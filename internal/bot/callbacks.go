package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"chatfeed/internal/feed"
)

const (
	actionOlder  = "older"
	actionLatest = "latest"
)

func keyboard(msgID int, state feed.LoadState) tgbotapi.InlineKeyboardMarkup {
	var row []tgbotapi.InlineKeyboardButton
	if state != feed.Exhausted {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("Older", fmt.Sprintf("%s:%d", actionOlder, msgID)))
	}
	row = append(row, tgbotapi.NewInlineKeyboardButtonData("Latest", fmt.Sprintf("%s:%d", actionLatest, msgID)))
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

func (b *Bot) handleCallback(_ context.Context, cb *tgbotapi.CallbackQuery) {
	b.ack(cb.ID, "")

	if cb.Message == nil || cb.Message.Chat == nil {
		return
	}
	chatID := cb.Message.Chat.ID

	action, msgID, err := ParseCallbackData(cb.Data)
	if err != nil {
		return
	}

	attrs := []any{"action", action, "message_id", msgID, "chat_id", chatID}
	if cb.From != nil {
		attrs = append(attrs, "user_id", cb.From.ID, "username", cb.From.UserName)
	}
	b.log.Info("callback", attrs...)

	s := b.session(chatID)
	if s == nil || s.msgID != msgID {
		b.log.Debug("callback for closed feed", "chat_id", chatID, "message_id", msgID)
		return
	}

	switch action {
	case actionOlder:
		go b.loadOlder(s)
	case actionLatest:
		s.anchorBottom()
		b.render(s)
	}
}
