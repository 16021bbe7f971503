package telegram

import tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

type inlineKeyboard struct {
	rows             [][]tgbotapi.InlineKeyboardButton
	maxButtonsPerRow int
}

func newInlineKeyboard(maxButtonsPerRow int) *inlineKeyboard {
	return &inlineKeyboard{
		rows:             make([][]tgbotapi.InlineKeyboardButton, 0),
		maxButtonsPerRow: maxButtonsPerRow,
	}
}

func (k *inlineKeyboard) addButton(text, data string) {
	if len(k.rows) == 0 || len(k.rows[len(k.rows)-1]) == k.maxButtonsPerRow {
		k.rows = append(k.rows, []tgbotapi.InlineKeyboardButton{})
	}

	last := len(k.rows) - 1
	k.rows[last] = append(k.rows[last], tgbotapi.NewInlineKeyboardButtonData(text, data))
}

// addRow makes the next button start a new row.
func (k *inlineKeyboard) addRow() {
	if len(k.rows) == 0 || len(k.rows[len(k.rows)-1]) == 0 {
		return
	}
	k.rows = append(k.rows, []tgbotapi.InlineKeyboardButton{})
}

func (k *inlineKeyboard) markup() *tgbotapi.InlineKeyboardMarkup {
	rows := k.rows
	if n := len(rows); n > 0 && len(rows[n-1]) == 0 {
		rows = rows[:n-1]
	}
	return &tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: rows,
	}
}

func mainMenu() *tgbotapi.InlineKeyboardMarkup {
	keyboard := newInlineKeyboard(2)
	keyboard.addButton("Buy", callbackBuy)
	keyboard.addButton("Sell", callbackSell)
	keyboard.addRow()
	keyboard.addButton("Send ETH", callbackSendETH)
	keyboard.addRow()
	keyboard.addButton("Refer Friends", "refer_friends")
	return keyboard.markup()
}
