package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlowTransitions(t *testing.T) {
	token := Token{Address: "0x1111111111111111111111111111111111111111", Symbol: "TKN", Known: true}

	buy := NewBuyFlow().WithToken(token)
	assert.Equal(t, FlowBuy, buy.Kind)
	assert.Equal(t, StepAwaitingEthAmount, buy.Step)
	assert.Equal(t, &token, buy.Token)
	assert.Empty(t, buy.Recipient)

	sell := NewSellFlow().WithToken(token)
	assert.Equal(t, StepAwaitingTokenAmount, sell.Step)

	send := NewSendFlow().WithRecipient("0x000000000000000000000000000000000000dEaD")
	assert.Equal(t, StepAwaitingAmount, send.Step)
	assert.Nil(t, send.Token)

	// foreign transitions leave the flow untouched
	assert.Equal(t, NewSendFlow(), NewSendFlow().WithToken(token))
	assert.Equal(t, NewBuyFlow(), NewBuyFlow().WithRecipient("0x00"))

	assert.False(t, Flow{}.Active())
	assert.True(t, buy.Active())
}
