package telegram

import tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

type reply struct {
	text           string
	markdown       bool
	inlineKeyboard *tgbotapi.InlineKeyboardMarkup
}

func textReply(text string) *reply {
	if text == "" {
		return nil
	}
	return &reply{text: text}
}
