package tg

import (
	"strings"

	"coupon-bot/internal/chat"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// IntentFromUpdate normalises an update. Updates from bots, from group chats
// and of kinds the bot does not handle are reported as not ok.
func IntentFromUpdate(u tgbotapi.Update) (chat.Intent, bool) {
	if cq := u.CallbackQuery; cq != nil {
		return fromCallback(cq)
	}
	if m := u.Message; m != nil {
		return fromMessage(m)
	}
	return chat.Intent{}, false
}

func fromCallback(cq *tgbotapi.CallbackQuery) (chat.Intent, bool) {
	if cq.From == nil || cq.From.IsBot {
		return chat.Intent{}, false
	}
	chatID := cq.From.ID
	if cq.Message != nil && cq.Message.Chat != nil {
		if !cq.Message.Chat.IsPrivate() {
			return chat.Intent{}, false
		}
		chatID = cq.Message.Chat.ID
	}

	in := chat.Intent{
		UserID:  cq.From.ID,
		ChatID:  chatID,
		Handle:  cq.From.UserName,
		Kind:    chat.KindButton,
		PressID: cq.ID,
	}
	if action, err := chat.ParseAction(cq.Data); err == nil {
		in.Action = action
	}
	return in, true
}

func fromMessage(m *tgbotapi.Message) (chat.Intent, bool) {
	if m.From == nil || m.From.IsBot || m.Chat == nil || !m.Chat.IsPrivate() {
		return chat.Intent{}, false
	}
	in := chat.Intent{
		UserID: m.From.ID,
		ChatID: m.Chat.ID,
		Handle: m.From.UserName,
	}

	switch {
	case len(m.Photo) > 0:
		in.Kind = chat.KindPhoto
		in.PhotoRef = largestPhoto(m.Photo)
		in.Text = m.Caption
	case m.IsCommand():
		in.Kind = chat.KindCommand
		in.Command = strings.ToLower(m.Command())
		in.Text = m.Text
	case m.Text != "":
		in.Kind = chat.KindText
		in.Text = m.Text
	default:
		return chat.Intent{}, false
	}
	return in, true
}

func largestPhoto(sizes []tgbotapi.PhotoSize) string {
	best := sizes[0]
	for _, s := range sizes[1:] {
		if s.Width*s.Height >= best.Width*best.Height {
			best = s
		}
	}
	return best.FileID
}
