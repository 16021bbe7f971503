package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"medusa/internal/entity"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
)

const (
	msgUserNotFound     = "User not found. Please start the bot first."
	msgMissingKey       = "User not found or private key is missing."
	msgNothingToCancel  = "Nothing to cancel."
	msgInvalidToken     = "Invalid address. Please enter a valid token address:"
	msgInvalidRecipient = "Invalid address. Please try again."
	msgInvalidAmount    = "Invalid amount. Please try again."
	msgInvalidSwapInput = "Please enter a valid positive number or type 'cancel' to cancel."
)

// Notifier delivers an intermediate message while a long operation runs.
type Notifier func(text string)

// Flows drives the buy, sell and send conversations. Every method returns
// the text to answer the user with; an empty text means there is nothing to
// say. A non-nil error is only returned for failures of the bot itself.
type Flows struct {
	flows    FlowRepository
	users    userRepository
	tokens   tokenInfo
	swap     *Swap
	transfer *Transfer
	explorer string
	log      zerolog.Logger
}

func NewFlows(
	flows FlowRepository,
	users userRepository,
	tokens tokenInfo,
	swap *Swap,
	transfer *Transfer,
	explorerURL string,
	log zerolog.Logger,
) *Flows {
	return &Flows{
		flows:    flows,
		users:    users,
		tokens:   tokens,
		swap:     swap,
		transfer: transfer,
		explorer: strings.TrimRight(explorerURL, "/"),
		log:      log.With().Str("component", "flows").Logger(),
	}
}

func (u *Flows) StartBuy(ctx context.Context, userID int64) (string, error) {
	return u.start(ctx, userID, entity.NewBuyFlow(), "Enter the token address you want to buy:")
}

func (u *Flows) StartSell(ctx context.Context, userID int64) (string, error) {
	return u.start(ctx, userID, entity.NewSellFlow(), "Enter the token address you want to sell:")
}

func (u *Flows) StartSend(ctx context.Context, userID int64) (string, error) {
	return u.start(ctx, userID, entity.NewSendFlow(), "Please enter the recipient's address:")
}

func (u *Flows) start(ctx context.Context, userID int64, flow entity.Flow, prompt string) (string, error) {
	ok, err := u.begin(ctx, userID, flow)
	if err != nil {
		return "", err
	}
	if !ok {
		return msgUserNotFound, nil
	}
	return prompt, nil
}

// begin replaces the stored flow of a known user with flow.
func (u *Flows) begin(ctx context.Context, userID int64, flow entity.Flow) (bool, error) {
	if _, err := u.users.Get(ctx, userID); err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	if err := u.flows.Delete(ctx, userID); err != nil {
		return false, err
	}
	return true, u.flows.Save(ctx, userID, flow)
}

// Clear drops the active flow of userID, if any.
func (u *Flows) Clear(ctx context.Context, userID int64) error {
	return u.flows.Delete(ctx, userID)
}

// Cancel ends whatever flow userID is in.
func (u *Flows) Cancel(ctx context.Context, userID int64) (string, error) {
	flow, err := u.active(ctx, userID)
	if err != nil {
		return "", err
	}
	if !flow.Active() {
		return msgNothingToCancel, nil
	}
	return u.cancel(ctx, userID, flow)
}

func (u *Flows) cancel(ctx context.Context, userID int64, flow entity.Flow) (string, error) {
	if err := u.flows.Delete(ctx, userID); err != nil {
		return "", err
	}
	switch flow.Kind {
	case entity.FlowBuy:
		return "Purchase cancelled.", nil
	case entity.FlowSell:
		return "Sell process cancelled.", nil
	default:
		return "Send cancelled.", nil
	}
}

// HandleText advances the active flow of userID with a plain text message.
// Without an active flow a token address starts a purchase.
func (u *Flows) HandleText(ctx context.Context, userID int64, text string, notify Notifier) (string, error) {
	if notify == nil {
		notify = func(string) {}
	}
	text = strings.TrimSpace(text)

	flow, err := u.active(ctx, userID)
	if err != nil {
		return "", err
	}

	if !flow.Active() {
		if !ValidAddress(text) {
			return "", nil
		}
		ok, err := u.begin(ctx, userID, entity.NewBuyFlow())
		if err != nil {
			return "", err
		}
		if !ok {
			return msgUserNotFound, nil
		}
		return u.handleTokenAddress(ctx, userID, entity.NewBuyFlow(), text)
	}

	if strings.EqualFold(text, "cancel") {
		return u.cancel(ctx, userID, flow)
	}

	switch flow.Kind {
	case entity.FlowBuy:
		if flow.Step == entity.StepAwaitingTokenAddress {
			return u.handleTokenAddress(ctx, userID, flow, text)
		}
		return u.handleSwapAmount(ctx, userID, flow, text, notify)
	case entity.FlowSend:
		if flow.Step == entity.StepAwaitingRecipient {
			return u.handleRecipient(ctx, userID, flow, text)
		}
		return u.handleSendAmount(ctx, userID, flow, text, notify)
	case entity.FlowSell:
		if flow.Step == entity.StepAwaitingTokenAddress {
			return u.handleTokenAddress(ctx, userID, flow, text)
		}
		return u.handleSwapAmount(ctx, userID, flow, text, notify)
	default:
		u.log.Warn().Int64("user_id", userID).Str("kind", string(flow.Kind)).Msg("unknown flow dropped")
		return "", u.flows.Delete(ctx, userID)
	}
}

func (u *Flows) active(ctx context.Context, userID int64) (entity.Flow, error) {
	flow, err := u.flows.Get(ctx, userID)
	if errors.Is(err, entity.FlowNotFoundErr) {
		return entity.Flow{}, nil
	}
	return flow, err
}

func (u *Flows) handleTokenAddress(ctx context.Context, userID int64, flow entity.Flow, text string) (string, error) {
	if !ValidAddress(text) {
		return msgInvalidToken, nil
	}
	address := common.HexToAddress(text).Hex()

	token, err := u.tokens.Lookup(ctx, address)
	if err != nil {
		u.log.Debug().Err(err).Str("token", address).Msg("token lookup failed")
		token = entity.UnknownToken(address)
	}

	if err := u.flows.Save(ctx, userID, flow.WithToken(token)); err != nil {
		return "", err
	}

	buy := flow.Kind == entity.FlowBuy
	switch {
	case token.Known && buy:
		return fmt.Sprintf("Token Details:\n\nSymbol: %s\nPrice: $%s\n\nHow much ETH would you like to spend?", token.Symbol, token.Price), nil
	case token.Known:
		return fmt.Sprintf("Token Details:\n\nSymbol: %s\nPrice: $%s\n\nHow many tokens would you like to sell?", token.Symbol, token.Price), nil
	case buy:
		return "⚠️ Warning: Could not fetch token details.\n" +
			"Would you still like to proceed with the purchase? (Enter amount in ETH or type 'cancel')", nil
	default:
		return "⚠️ Warning: Could not fetch token details.\n" +
			"Would you still like to proceed with the sell? Enter the amount or type 'cancel'.", nil
	}
}

func (u *Flows) handleSwapAmount(ctx context.Context, userID int64, flow entity.Flow, text string, notify Notifier) (string, error) {
	amount, err := ParseAmount(text)
	if err != nil {
		return msgInvalidSwapInput, nil
	}
	if flow.Token == nil {
		u.log.Warn().Int64("user_id", userID).Msg("flow without token dropped")
		return "", u.flows.Delete(ctx, userID)
	}
	token := *flow.Token

	var (
		direction = entity.SwapBuy
		noun      = "Purchase"
		asset     = "ETH"
	)
	if flow.Kind == entity.FlowSell {
		direction = entity.SwapSell
		noun = "Sell"
		asset = token.Symbol
		if !token.Known {
			asset = "token"
		}
		notify(fmt.Sprintf("⏳ Processing your sell...\n\nToken: %s\nAmount: %s %s", token.Symbol, amount, token.Symbol))
	} else {
		notify(fmt.Sprintf("⏳ Processing your purchase...\n\nToken: %s\nAmount: %s ETH", token.Symbol, amount))
	}

	tx, err := u.swap.Execute(ctx, userID, direction, token, amount)
	if err != nil {
		reason, retry := u.describe(err, asset)
		u.log.Warn().Err(err).Int64("user_id", userID).Bool("retry", retry).Msg("swap failed")

		if retry {
			if direction == entity.SwapSell {
				return fmt.Sprintf("❌ Sell error: %s\n\nPlease enter a new amount to try again or type 'cancel' to cancel.", reason), nil
			}
			return fmt.Sprintf("❌ Purchase error: %s\n\nType a new amount to try again or 'cancel' to cancel.", reason), nil
		}

		if err := u.flows.Delete(ctx, userID); err != nil {
			return "", err
		}
		return fmt.Sprintf("❌ %s error: %s\nThe %s process has been cancelled.", noun, reason, strings.ToLower(noun)), nil
	}

	if err := u.flows.Delete(ctx, userID); err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ %s completed!\n\nTransaction Hash: %s\nView on explorer: %s", noun, tx.Hash, u.txLink(tx.Hash)), nil
}

func (u *Flows) handleRecipient(ctx context.Context, userID int64, flow entity.Flow, text string) (string, error) {
	if !ValidAddress(text) {
		return msgInvalidRecipient, nil
	}
	if err := u.flows.Save(ctx, userID, flow.WithRecipient(common.HexToAddress(text).Hex())); err != nil {
		return "", err
	}
	return "Please enter the amount of ETH to send:", nil
}

func (u *Flows) handleSendAmount(ctx context.Context, userID int64, flow entity.Flow, text string, notify Notifier) (string, error) {
	amount, err := ParseAmount(text)
	if err != nil {
		return msgInvalidAmount, nil
	}

	// A send ends here whatever its outcome.
	if err := u.flows.Delete(ctx, userID); err != nil {
		return "", err
	}

	user, err := u.users.Get(ctx, userID)
	if err != nil && !errors.Is(err, entity.ErrNotFound) {
		return "", err
	}
	if err != nil || !user.HasKey() {
		return msgMissingKey, nil
	}

	notify(fmt.Sprintf("⏳ Sending %s ETH to %s...", amount, flow.Recipient))

	tx, err := u.transfer.Execute(ctx, userID, flow.Recipient, amount)
	if err != nil {
		reason, _ := u.describe(err, "ETH")
		u.log.Warn().Err(err).Int64("user_id", userID).Msg("transfer failed")
		return fmt.Sprintf("❌ Failed to send ETH: %s", reason), nil
	}

	return fmt.Sprintf("✅ Successfully sent %s ETH to %s!\nTransaction hash: %s\nView on explorer: %s",
		amount, tx.To, tx.Hash, u.txLink(tx.Hash)), nil
}

// describe turns a failed operation into a user facing reason and reports
// whether the user may retry the same step.
func (u *Flows) describe(err error, asset string) (string, bool) {
	var (
		txErr      *entity.TransactionError
		timeoutErr *entity.TimeoutError
	)
	switch {
	case errors.Is(err, entity.ErrInsufficientBalance):
		return fmt.Sprintf("Insufficient %s balance", asset), false
	case errors.Is(err, entity.ErrQuoteUnavailable):
		return "Insufficient liquidity, the pool might not exist or cannot fill this amount", true
	case errors.As(err, &timeoutErr):
		return fmt.Sprintf("Transaction %s was not confirmed in time, check %s before trying again",
			timeoutErr.Hash, u.txLink(timeoutErr.Hash)), true
	case errors.As(err, &txErr):
		return txErr.Describe(), true
	case errors.Is(err, ErrAmountTooSmall):
		return "Amount is too small", true
	case errors.Is(err, entity.ErrMissingKey):
		return msgMissingKey, false
	case errors.Is(err, entity.ErrNotFound):
		return msgUserNotFound, false
	case errors.Is(err, entity.ErrNetwork):
		return "The network is unavailable, please try again later", false
	default:
		u.log.Error().Err(err).Msg("unexpected failure")
		return "An unexpected error occurred", false
	}
}

func (u *Flows) txLink(hash string) string {
	return u.explorer + "/tx/" + hash
}
