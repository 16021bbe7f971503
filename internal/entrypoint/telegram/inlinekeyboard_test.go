package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInlineKeyboard(t *testing.T) {
	keyboard := newInlineKeyboard(2)
	keyboard.addRow()
	keyboard.addButton("1", "one")
	keyboard.addButton("2", "two")
	keyboard.addButton("3", "three")
	keyboard.addRow()
	keyboard.addRow()
	keyboard.addButton("4", "four")
	keyboard.addRow()

	rows := keyboard.markup().InlineKeyboard
	assert.Len(t, rows, 3)
	assert.Len(t, rows[0], 2)
	assert.Len(t, rows[1], 1)
	assert.Equal(t, "4", rows[2][0].Text)
}

func TestFirstArg(t *testing.T) {
	assert.Equal(t, "", firstArg(""))
	assert.Equal(t, "0xabc", firstArg("  0xabc extra"))
}
