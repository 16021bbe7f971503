package telegram

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"medusa/internal/usecase"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	callbackBuy     = "buy"
	callbackSell    = "sell"
	callbackSendETH = "send_eth"

	fallbackText = "An error occurred while processing your request."
)

// sender is the part of tgbotapi.BotAPI the bot talks through.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type handler func(ctx context.Context, chatID int64, args string, notify usecase.Notifier) (*reply, error)

type Bot struct {
	client *tgbotapi.BotAPI
	api    sender

	idempotenceUsecase *usecase.Idempotence
	walletUsecase      *usecase.Wallet
	flowsUsecase       *usecase.Flows

	commands  map[string]handler
	callbacks map[string]handler

	queues *chatQueues
	log    zerolog.Logger
}

func New(
	token string,
	debug bool,
	idempotenceUsecase *usecase.Idempotence,
	walletUsecase *usecase.Wallet,
	flowsUsecase *usecase.Flows,
	log zerolog.Logger,
) (*Bot, error) {
	botApi, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	botApi.Debug = debug

	b := newBot(botApi, idempotenceUsecase, walletUsecase, flowsUsecase, log)
	b.client = botApi
	return b, nil
}

func newBot(
	api sender,
	idempotenceUsecase *usecase.Idempotence,
	walletUsecase *usecase.Wallet,
	flowsUsecase *usecase.Flows,
	log zerolog.Logger,
) *Bot {
	b := &Bot{
		api: api,

		idempotenceUsecase: idempotenceUsecase,
		walletUsecase:      walletUsecase,
		flowsUsecase:       flowsUsecase,

		commands:  make(map[string]handler),
		callbacks: make(map[string]handler),

		queues: newChatQueues(),
		log:    log.With().Str("component", "telegram").Logger(),
	}

	b.Register("start", b.start)
	b.Register("buy", b.buy)
	b.Register("sell", b.sell)
	b.Register("send", b.sendETH)
	b.Register("cancel", b.cancel)

	b.RegisterCallback(callbackBuy, b.buy)
	b.RegisterCallback(callbackSell, b.sell)
	b.RegisterCallback(callbackSendETH, b.sendETH)
	for data, feature := range comingSoon {
		b.RegisterCallback(data, stub(feature))
	}

	return b
}

func (b *Bot) Register(command string, h handler) {
	b.commands[command] = h
}

func (b *Bot) RegisterCallback(data string, h handler) {
	b.callbacks[data] = h
}

// Run long-polls for updates until ctx is done and returns once every
// update already received has been handled.
func (b *Bot) Run(ctx context.Context) {
	config := tgbotapi.NewUpdate(0)
	config.Timeout = 60

	updates := b.client.GetUpdatesChan(config)
	go func() {
		<-ctx.Done()
		b.client.StopReceivingUpdates()
	}()

	b.log.Info().Str("username", b.client.Self.UserName).Msg("bot started")
	b.HandleUpdates(ctx, updates)
}

// HandleUpdates queues every update behind the earlier updates of the same
// chat. Chats are handled in parallel. Handlers keep running after ctx is
// cancelled so that submitted transactions are seen through.
func (b *Bot) HandleUpdates(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	ctx = context.WithoutCancel(ctx)
	handle := func(update tgbotapi.Update) {
		b.handleUpdate(ctx, update)
	}

	for update := range updates {
		chat := chatOf(update)
		if chat == nil {
			continue
		}
		b.queues.push(chat.ID, update, handle)
	}
	b.queues.wait()
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	chat := chatOf(update)
	if chat == nil {
		return
	}
	chatID := chat.ID

	log := b.log.With().
		Str("trace_id", uuid.NewString()).
		Int64("chat_id", chatID).
		Logger()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("handler panicked")
			b.send(log, chatID, &reply{text: fallbackText})
		}
	}()

	if ok, err := b.checkIfFirstHandle(ctx, update); err != nil {
		log.Error().Err(err).Msg("idempotence check")
		return
	} else if !ok {
		log.Debug().Msg("duplicate update skipped")
		return
	}

	h, args := b.route(update)
	if update.CallbackQuery != nil {
		if _, err := b.api.Request(tgbotapi.NewCallback(update.CallbackQuery.ID, "")); err != nil {
			log.Warn().Err(err).Msg("answer callback")
		}
	}
	if h == nil {
		return
	}

	notify := func(text string) {
		b.send(log, chatID, &reply{text: text})
	}

	r, err := h(ctx, chatID, args, notify)
	if err != nil {
		log.Error().Err(err).Msg("handle update")
		b.send(log, chatID, &reply{text: fallbackText})
		return
	}
	b.send(log, chatID, r)
}

// route picks the handler of an update: commands and callbacks by name,
// any other text goes to the active flow.
func (b *Bot) route(update tgbotapi.Update) (handler, string) {
	switch {
	case update.Message != nil && update.Message.IsCommand():
		return b.commands[update.Message.Command()], update.Message.CommandArguments()
	case update.Message != nil && update.Message.Text != "":
		return b.text, update.Message.Text
	case update.CallbackQuery != nil:
		return b.callbacks[update.CallbackQuery.Data], ""
	default:
		return nil, ""
	}
}

func (b *Bot) checkIfFirstHandle(ctx context.Context, update tgbotapi.Update) (bool, error) {
	id := "telegram"
	if update.Message != nil {
		id += strconv.FormatInt(update.Message.Chat.ID, 10) + ":" + strconv.Itoa(update.Message.MessageID)
	} else if update.CallbackQuery != nil {
		id += strconv.FormatInt(update.CallbackQuery.Message.Chat.ID, 10) + ":" + update.CallbackQuery.ID
	}
	return b.idempotenceUsecase.Execute(ctx, id)
}

func (b *Bot) send(log zerolog.Logger, chatID int64, r *reply) {
	if r == nil || r.text == "" {
		return
	}

	message := tgbotapi.NewMessage(chatID, r.text)
	if r.markdown {
		message.ParseMode = tgbotapi.ModeMarkdown
	}
	if r.inlineKeyboard != nil {
		message.ReplyMarkup = r.inlineKeyboard
	}

	if _, err := b.api.Send(message); err != nil {
		log.Warn().Err(err).Msg("send message")
	}
}

func (b *Bot) start(ctx context.Context, chatID int64, _ string, _ usecase.Notifier) (*reply, error) {
	if err := b.flowsUsecase.Clear(ctx, chatID); err != nil {
		return nil, err
	}

	overview, err := b.walletUsecase.Open(ctx, chatID)
	if err != nil {
		return nil, err
	}

	return &reply{
		text:           welcomeMessage(overview),
		markdown:       true,
		inlineKeyboard: mainMenu(),
	}, nil
}

func welcomeMessage(overview usecase.WalletOverview) string {
	var balance string
	switch {
	case overview.Balance != nil:
		balance = fmt.Sprintf("*%s ETH*", usecase.FormatEther(overview.Balance))
	case overview.User.CachedBalance != "":
		cached, _ := new(big.Int).SetString(overview.User.CachedBalance, 10)
		balance = fmt.Sprintf("*unknown* (last seen %s ETH)", usecase.FormatEther(cached))
	default:
		balance = "*unknown*"
	}

	var sb strings.Builder
	sb.WriteString("Welcome to Medusabot 🚀\n")
	sb.WriteString("The fastest bot to trade ETH tokens!\n\n")
	sb.WriteString("Your wallet details:\n")
	fmt.Fprintf(&sb, "📍 Address: `%s` (tap to copy)\n", overview.User.Address)
	fmt.Fprintf(&sb, "💰 Balance: %s\n\n", balance)
	if overview.Balance != nil && overview.Balance.Sign() == 0 {
		sb.WriteString("To get started, deposit ETH to your Medusabot wallet address above.\n\n")
	}
	sb.WriteString("To purchase a token, simply enter the token address.\n\n")
	sb.WriteString("🔐 _Your funds are secure with Medusabot, but if your private key is exposed, we won't be able to protect you!_")
	return sb.String()
}

func (b *Bot) buy(ctx context.Context, chatID int64, args string, notify usecase.Notifier) (*reply, error) {
	return b.startFlow(ctx, chatID, args, notify, b.flowsUsecase.StartBuy)
}

func (b *Bot) sell(ctx context.Context, chatID int64, args string, notify usecase.Notifier) (*reply, error) {
	return b.startFlow(ctx, chatID, args, notify, b.flowsUsecase.StartSell)
}

func (b *Bot) sendETH(ctx context.Context, chatID int64, args string, notify usecase.Notifier) (*reply, error) {
	return b.startFlow(ctx, chatID, args, notify, b.flowsUsecase.StartSend)
}

// startFlow begins a flow. An address given with the command answers the
// first step right away, e.g. "/buy 0xabc".
func (b *Bot) startFlow(
	ctx context.Context,
	chatID int64,
	args string,
	notify usecase.Notifier,
	begin func(context.Context, int64) (string, error),
) (*reply, error) {
	prompt, err := begin(ctx, chatID)
	if err != nil {
		return nil, err
	}

	address := firstArg(args)
	if address == "" || !usecase.ValidAddress(address) {
		return textReply(prompt), nil
	}

	text, err := b.flowsUsecase.HandleText(ctx, chatID, address, notify)
	if err != nil {
		return nil, err
	}
	return textReply(text), nil
}

func (b *Bot) cancel(ctx context.Context, chatID int64, _ string, _ usecase.Notifier) (*reply, error) {
	text, err := b.flowsUsecase.Cancel(ctx, chatID)
	if err != nil {
		return nil, err
	}
	return textReply(text), nil
}

func (b *Bot) text(ctx context.Context, chatID int64, text string, notify usecase.Notifier) (*reply, error) {
	answer, err := b.flowsUsecase.HandleText(ctx, chatID, text, notify)
	if err != nil {
		return nil, err
	}
	return textReply(answer), nil
}

var comingSoon = map[string]string{
	"community":      "Community",
	"refer_friends":  "Refer Friends",
	"backup_bots":    "Backup Bots",
	"current_wallet": "Current Wallet",
	"wallet_manager": "Wallet Manager",
	"settings":       "Settings",
	"pin":            "Pin",
	"refresh":        "Refresh",
	"staking":        "Staking",
}

func stub(feature string) handler {
	return func(context.Context, int64, string, usecase.Notifier) (*reply, error) {
		return textReply(feature + " functionality coming soon!"), nil
	}
}
