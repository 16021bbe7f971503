package entity

import "errors"

var FlowNotFoundErr = errors.New("flow not found")

type FlowKind string

const (
	FlowNone FlowKind = ""
	FlowBuy  FlowKind = "buy"
	FlowSell FlowKind = "sell"
	FlowSend FlowKind = "send"
)

type Step string

const (
	StepAwaitingTokenAddress Step = "awaiting_token_address"
	StepAwaitingEthAmount    Step = "awaiting_eth_amount"
	StepAwaitingTokenAmount  Step = "awaiting_token_amount"

	StepAwaitingRecipient Step = "awaiting_recipient"
	StepAwaitingAmount    Step = "awaiting_amount"
)

// Flow is the conversation a user is currently in. Kind selects which of the
// remaining fields are meaningful: Token for buy and sell, Recipient for send.
// Values are built with the New*Flow constructors and advanced with the
// With* methods so fields of another kind never survive a transition.
type Flow struct {
	Kind FlowKind `json:"kind"`
	Step Step     `json:"step"`

	Token *Token `json:"token,omitempty"`

	Recipient string `json:"recipient,omitempty"`
}

func NewBuyFlow() Flow {
	return Flow{Kind: FlowBuy, Step: StepAwaitingTokenAddress}
}

func NewSellFlow() Flow {
	return Flow{Kind: FlowSell, Step: StepAwaitingTokenAddress}
}

func NewSendFlow() Flow {
	return Flow{Kind: FlowSend, Step: StepAwaitingRecipient}
}

func (f Flow) Active() bool {
	return f.Kind != FlowNone
}

// WithToken records the chosen token and moves a buy or sell flow to its
// amount step.
func (f Flow) WithToken(token Token) Flow {
	next := Flow{Kind: f.Kind, Token: &token}
	switch f.Kind {
	case FlowBuy:
		next.Step = StepAwaitingEthAmount
	case FlowSell:
		next.Step = StepAwaitingTokenAmount
	default:
		return f
	}
	return next
}

// WithRecipient records the destination of a send flow and moves it to the
// amount step.
func (f Flow) WithRecipient(address string) Flow {
	if f.Kind != FlowSend {
		return f
	}
	return Flow{Kind: FlowSend, Step: StepAwaitingAmount, Recipient: address}
}
