package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"huginn/apps/huginn/internal/chain"
	"huginn/apps/huginn/internal/network"
	"huginn/apps/huginn/internal/report"
	"huginn/apps/huginn/internal/repository"
)

const (
	startText = "Huginn Guard monitors your wallet addresses on Cosmos, Celestia, and Osmosis networks and alerts you for significant events.\n\nType /menu to see available commands."
	menuText  = "<b>Menu</b>\n\n" +
		"/add - Add a new address\n" +
		"/remove - Remove a registered address\n" +
		"/balance - Check wallet balance\n" +
		"/start - Info about this bot"

	invalidAddText    = "Please enter a valid wallet address (starting with 'cosmos1', 'celestia1' or 'osmo1' and 39 characters long)."
	invalidRemoveText = "Please enter a valid wallet address to remove."
	noAddressesText   = "You do not have any registered wallet addresses."
	notRegisteredText = "This address is not registered."
	storeErrorText    = "Something went wrong while saving your addresses. Please try again later."

	addHintText    = "Please use the /add command to add an address. Example: /add cosmos1... or /add celestia1... or /add osmo1..."
	removeHintText = "Please use the /remove command to delete an address. Example: /remove cosmos1... or /remove celestia1... or /remove osmo1..."

	callbackAdd     = "add"
	callbackBalance = "balance"
	callbackRemove  = "remove"
)

// Store is the subscription state managed through chat commands.
type Store interface {
	AddAddress(subscriberID, address string) error
	RemoveAddress(subscriberID, address string) error
	Addresses(subscriberID string) []string
}

// Handler turns Telegram updates into replies. The chat id is the subscriber id.
type Handler struct {
	store    Store
	client   chain.Client
	registry *network.Registry
	logger   *zap.Logger
}

func NewHandler(store Store, client chain.Client, registry *network.Registry, logger *zap.Logger) *Handler {
	return &Handler{
		store:    store,
		client:   client,
		registry: registry,
		logger:   logger,
	}
}

// HandleUpdate returns the messages to send in response to update, if any.
func (h *Handler) HandleUpdate(ctx context.Context, update tgbotapi.Update) []tgbotapi.Chattable {
	switch {
	case update.Message != nil && update.Message.IsCommand():
		return h.handleCommand(ctx, update.Message)
	case update.CallbackQuery != nil:
		return h.handleCallback(ctx, update.CallbackQuery)
	default:
		return nil
	}
}

func (h *Handler) handleCommand(ctx context.Context, msg *tgbotapi.Message) []tgbotapi.Chattable {
	chatID := msg.Chat.ID
	subscriberID := strconv.FormatInt(chatID, 10)
	args := strings.Fields(msg.CommandArguments())

	h.logger.Debug("Received command",
		zap.Int64("chat_id", chatID),
		zap.String("command", msg.Command()))

	switch msg.Command() {
	case "start":
		return []tgbotapi.Chattable{tgbotapi.NewMessage(chatID, startText)}
	case "menu":
		reply := tgbotapi.NewMessage(chatID, menuText)
		reply.ParseMode = tgbotapi.ModeHTML
		reply.ReplyMarkup = menuKeyboard()
		return []tgbotapi.Chattable{reply}
	case "add":
		return []tgbotapi.Chattable{tgbotapi.NewMessage(chatID, h.addReply(subscriberID, firstArg(args)))}
	case "remove":
		return []tgbotapi.Chattable{tgbotapi.NewMessage(chatID, h.removeReply(subscriberID, firstArg(args)))}
	case "balance":
		return []tgbotapi.Chattable{h.balanceReply(ctx, chatID, subscriberID)}
	default:
		return nil
	}
}

func (h *Handler) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) []tgbotapi.Chattable {
	if q.From == nil {
		return nil
	}
	chatID := q.From.ID
	if q.Message != nil && q.Message.Chat != nil {
		chatID = q.Message.Chat.ID
	}

	replies := []tgbotapi.Chattable{tgbotapi.NewCallback(q.ID, "")}
	switch q.Data {
	case callbackAdd:
		replies = append(replies, tgbotapi.NewMessage(chatID, addHintText))
	case callbackBalance:
		replies = append(replies, h.balanceReply(ctx, chatID, strconv.FormatInt(chatID, 10)))
	case callbackRemove:
		replies = append(replies, tgbotapi.NewMessage(chatID, removeHintText))
	}
	return replies
}

func (h *Handler) addReply(subscriberID, address string) string {
	err := h.store.AddAddress(subscriberID, address)
	switch {
	case err == nil:
		return fmt.Sprintf("The address '%s' has been successfully added. Unbond transactions and validator jail events will be monitored.", address)
	case errors.Is(err, repository.ErrInvalidFormat):
		return invalidAddText
	case errors.Is(err, repository.ErrAlreadyExists):
		return fmt.Sprintf("The address '%s' has already been added. Use /balance to check it.", address)
	default:
		h.logger.Error("Failed to add address",
			zap.String("subscriber_id", subscriberID),
			zap.String("address", address),
			zap.Error(err))
		return storeErrorText
	}
}

func (h *Handler) removeReply(subscriberID, address string) string {
	if !network.IsValidAddress(address) {
		return invalidRemoveText
	}
	if len(h.store.Addresses(subscriberID)) == 0 {
		return noAddressesText
	}

	err := h.store.RemoveAddress(subscriberID, address)
	switch {
	case err == nil:
		return fmt.Sprintf("The address '%s' has been removed.", address)
	case errors.Is(err, repository.ErrNotFound):
		return notRegisteredText
	default:
		h.logger.Error("Failed to remove address",
			zap.String("subscriber_id", subscriberID),
			zap.String("address", address),
			zap.Error(err))
		return storeErrorText
	}
}

func (h *Handler) balanceReply(ctx context.Context, chatID int64, subscriberID string) tgbotapi.Chattable {
	addresses := h.store.Addresses(subscriberID)
	if len(addresses) == 0 {
		return tgbotapi.NewMessage(chatID, noAddressesText)
	}

	reply := tgbotapi.NewMessage(chatID, report.Build(ctx, h.client, h.registry, addresses).HTML())
	reply.ParseMode = tgbotapi.ModeHTML
	reply.DisableWebPagePreview = true
	return reply
}

func menuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Add Address", callbackAdd)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Check Balance", callbackBalance)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Remove Address", callbackRemove)),
	)
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

// Replier is the part of *tgbotapi.BotAPI used to answer updates.
type Replier interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot long-polls Telegram and answers updates through a Handler.
const (
	updateWorkers   = 8
	updateQueueSize = 16
)

type Bot struct {
	api     *tgbotapi.BotAPI
	replier Replier
	handler *Handler
	logger  *zap.Logger
}

func NewBot(api *tgbotapi.BotAPI, handler *Handler, logger *zap.Logger) *Bot {
	return &Bot{
		api:     api,
		replier: api,
		handler: handler,
		logger:  logger,
	}
}

// Run processes updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	b.logger.Info("Telegram bot started", zap.String("username", b.api.Self.UserName))

	b.process(ctx, updates)
	b.api.StopReceivingUpdates()
	b.logger.Info("Telegram bot stopped")
}

// process fans updates out to updateWorkers goroutines keyed by chat, so a slow reply only
// holds up the chats sharing its worker and each chat's updates stay in order.
func (b *Bot) process(ctx context.Context, updates <-chan tgbotapi.Update) {
	var g errgroup.Group
	shards := make([]chan tgbotapi.Update, updateWorkers)
	for i := range shards {
		shard := make(chan tgbotapi.Update, updateQueueSize)
		shards[i] = shard
		g.Go(func() error {
			for update := range shard {
				b.dispatch(ctx, update)
			}
			return nil
		})
	}
	defer func() {
		for _, shard := range shards {
			close(shard)
		}
		_ = g.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			select {
			case shards[chatOf(update)%updateWorkers] <- update:
			case <-ctx.Done():
				return
			}
		}
	}
}

func chatOf(update tgbotapi.Update) uint64 {
	switch {
	case update.Message != nil && update.Message.Chat != nil:
		return uint64(update.Message.Chat.ID)
	case update.CallbackQuery != nil && update.CallbackQuery.From != nil:
		return uint64(update.CallbackQuery.From.ID)
	}
	return 0
}

func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update) {
	for _, reply := range b.handler.HandleUpdate(ctx, update) {
		var err error
		// Callback answers return a bool result rather than a Message.
		if _, isCallback := reply.(tgbotapi.CallbackConfig); isCallback {
			_, err = b.replier.Request(reply)
		} else {
			_, err = b.replier.Send(reply)
		}
		if err != nil {
			b.logger.Error("Failed to send reply", zap.Error(err))
		}
	}
}
