// Package bot is the Telegram surface of the escrow service: it routes
// updates to the lifecycle services, renders replies and inline keyboards,
// and runs every inbound action through the security guard first.
package bot

import (
	"context"
	"errors"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/smile200420ff/Main-bot/internal/common"
	"github.com/smile200420ff/Main-bot/internal/config"
	"github.com/smile200420ff/Main-bot/internal/logging"
	"github.com/smile200420ff/Main-bot/internal/models"
	"github.com/smile200420ff/Main-bot/internal/security"
	"github.com/smile200420ff/Main-bot/internal/services"
)

// Sender is the part of the Telegram client the handler uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// UserAPI is the user-service surface the handler depends on.
type UserAPI interface {
	Register(ctx context.Context, userID int64, username, firstName string) error
	ListActive(ctx context.Context) ([]*models.User, error)
	CountActive(ctx context.Context) (int64, error)
}

// DealAPI is the deal-service surface the handler depends on.
type DealAPI interface {
	Create(ctx context.Context, creatorID int64, description string, amount float64, terms string) (*models.Deal, error)
	SubmitPayment(ctx context.Context, dealID string, payerID int64, method, referenceID string) (*models.Payment, error)
	Release(ctx context.Context, dealID string, actor services.Actor) (*models.Deal, error)
	Dispute(ctx context.Context, dealID string, actor services.Actor) (*models.Deal, error)
	Resolve(ctx context.Context, dealID string, actor services.Actor) (*models.Deal, error)
	Cancel(ctx context.Context, dealID string, actor services.Actor) (*models.Deal, error)
	Get(ctx context.Context, dealID string) (*models.Deal, error)
	ListByCreator(ctx context.Context, creatorID int64) ([]*models.Deal, error)
	List(ctx context.Context, status models.DealStatus) ([]*models.Deal, error)
	Stats(ctx context.Context) (*models.DealStats, error)
	PaymentsByDeal(ctx context.Context, dealID string) ([]*models.Payment, error)
	PaymentsByPayer(ctx context.Context, payerID int64) ([]*models.Payment, error)
	PaymentPayload(ctx context.Context, dealID string) (string, error)
}

// Handler routes one Telegram update at a time. It is safe for concurrent
// use; all mutable state lives behind the draft store and the security
// components, which lock internally.
type Handler struct {
	api     Sender
	botName string
	cfg     *config.Config
	log     logging.Logger

	guard   *security.Guard
	monitor *security.Monitor
	audit   *security.AuditLog

	users UserAPI
	deals DealAPI

	drafts    *draftStore
	startedAt time.Time
}

func NewHandler(
	api Sender,
	botName string,
	cfg *config.Config,
	guard *security.Guard,
	monitor *security.Monitor,
	audit *security.AuditLog,
	users UserAPI,
	deals DealAPI,
	log logging.Logger,
) *Handler {
	return &Handler{
		api:       api,
		botName:   botName,
		cfg:       cfg,
		log:       log,
		guard:     guard,
		monitor:   monitor,
		audit:     audit,
		users:     users,
		deals:     deals,
		drafts:    newDraftStore(),
		startedAt: time.Now(),
	}
}

// HandleUpdate processes a single update. Group chats are ignored; the bot
// works over direct messages only.
func (h *Handler) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		h.handleCallback(ctx, update.CallbackQuery)
		return
	}

	msg := update.Message
	if msg == nil || msg.From == nil || msg.From.IsBot {
		return
	}
	if !msg.Chat.IsPrivate() {
		return
	}
	from := msg.From

	if err := h.users.Register(ctx, from.ID, from.UserName, from.FirstName); err != nil {
		h.log.Error(ctx, "user registration failed", "user_id", from.ID, "error", err)
	}

	kind := "message"
	if msg.IsCommand() {
		kind = msg.Command()
	}
	dec := h.guard.Authorize(ctx, security.Action{UserID: from.ID, Username: from.UserName, Kind: kind})
	if !dec.Allowed {
		h.denied(ctx, msg.Chat.ID, dec)
		return
	}

	switch {
	case msg.IsCommand():
		h.handleCommand(ctx, msg)
	case h.drafts.active(from.ID):
		h.handleDraftInput(ctx, msg)
	default:
		h.replyKB(ctx, msg.Chat.ID, "⚡ Use the menu below.", mainMenuKeyboard())
	}
}

// handleDraftInput consumes the one-message deal form while a draft is
// pending for the user.
func (h *Handler) handleDraftInput(ctx context.Context, msg *tgbotapi.Message) {
	draft, err := ParseDealDraft(msg.Text)
	if err != nil {
		h.reply(ctx, msg.Chat.ID, "❌ "+err.Error())
		return
	}

	h.drafts.save(msg.From.ID, draft)
	h.replyKB(ctx, msg.Chat.ID, draftPreviewText(&draft), confirmationKeyboard())
}

// denied tells the user why the guard rejected the action. Blocked users
// get one fixed line; rate-limited ones learn how long to wait.
func (h *Handler) denied(ctx context.Context, chatID int64, dec security.Decision) {
	switch {
	case errors.Is(dec.Err, common.ErrorUserBlocked):
		h.reply(ctx, chatID, blockedText)
	case errors.Is(dec.Err, common.ErrorRateLimited):
		h.reply(ctx, chatID, rateLimitText(dec.RetryAfter))
	}
}

func (h *Handler) actor(from *tgbotapi.User) services.Actor {
	return services.Actor{UserID: from.ID, Admin: h.guard.IsAdmin(from.ID, from.UserName)}
}

func (h *Handler) isAdmin(from *tgbotapi.User) bool {
	return h.guard.IsAdmin(from.ID, from.UserName)
}

func (h *Handler) reply(ctx context.Context, chatID int64, text string) {
	h.send(ctx, tgbotapi.NewMessage(chatID, text))
}

func (h *Handler) replyKB(ctx context.Context, chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = kb
	h.send(ctx, msg)
}

func (h *Handler) send(ctx context.Context, c tgbotapi.Chattable) {
	if _, err := h.api.Send(c); err != nil {
		h.log.Warn(ctx, "telegram send failed", "error", err)
	}
}

// sendDM delivers a courtesy notification to another user. Failures are
// expected (the user may never have started the bot) and only debug-logged.
func (h *Handler) sendDM(ctx context.Context, userID int64, text string) {
	if _, err := h.api.Send(tgbotapi.NewMessage(userID, text)); err != nil {
		h.log.Debug(ctx, "dm not delivered", "user_id", userID, "error", err)
	}
}
