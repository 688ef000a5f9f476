package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/smile200420ff/Main-bot/internal/security"
)

func (h *Handler) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		h.handleStart(ctx, msg)
	case "menu":
		h.replyKB(ctx, msg.Chat.ID, "⚡ Main menu", mainMenuKeyboard())
	case "help":
		h.reply(ctx, msg.Chat.ID, helpText())
	case "admin":
		h.handleAdmin(ctx, msg)
	case "block":
		h.handleBlock(ctx, msg, true)
	case "unblock":
		h.handleBlock(ctx, msg, false)
	case "broadcast":
		h.handleBroadcast(ctx, msg)
	default:
		h.reply(ctx, msg.Chat.ID, "❌ Unknown command. Try /help.")
	}
}

// handleStart greets the user, or jumps straight to a deal when the user
// followed a share link (t.me/<bot>?start=deal_<id>).
func (h *Handler) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	if args := msg.CommandArguments(); strings.HasPrefix(args, "deal_") {
		h.showDeal(ctx, msg.Chat.ID, msg.From, strings.TrimPrefix(args, "deal_"))
		return
	}
	h.replyKB(ctx, msg.Chat.ID, welcomeText(msg.From.FirstName), mainMenuKeyboard())
}

func (h *Handler) handleAdmin(ctx context.Context, msg *tgbotapi.Message) {
	if !h.requireAdmin(ctx, msg) {
		return
	}
	h.replyKB(ctx, msg.Chat.ID, "🛡️ Admin Panel", adminKeyboard())
}

func (h *Handler) handleBlock(ctx context.Context, msg *tgbotapi.Message, block bool) {
	if !h.requireAdmin(ctx, msg) {
		return
	}

	cmd := "/unblock"
	if block {
		cmd = "/block"
	}
	userID, err := strconv.ParseInt(strings.TrimSpace(msg.CommandArguments()), 10, 64)
	if err != nil {
		h.reply(ctx, msg.Chat.ID, "❌ Usage: "+cmd+" <user_id>")
		return
	}

	if block {
		h.guard.Block(userID)
		h.audit.Append(security.EventManualBlock, userID, fmt.Sprintf("By admin %d", msg.From.ID))
		h.reply(ctx, msg.Chat.ID, fmt.Sprintf("🔒 User %d blocked.", userID))
		return
	}
	h.guard.Unblock(userID)
	h.audit.Append(security.EventManualUnblock, userID, fmt.Sprintf("By admin %d", msg.From.ID))
	h.reply(ctx, msg.Chat.ID, fmt.Sprintf("✅ User %d unblocked.", userID))
}

// handleBroadcast fans the message out to every active user. Delivery is
// best effort; users who never started the bot are silently skipped.
func (h *Handler) handleBroadcast(ctx context.Context, msg *tgbotapi.Message) {
	if !h.requireAdmin(ctx, msg) {
		return
	}

	text := strings.TrimSpace(msg.CommandArguments())
	if text == "" {
		h.reply(ctx, msg.Chat.ID, "❌ Usage: /broadcast <message>")
		return
	}

	users, err := h.users.ListActive(ctx)
	if err != nil {
		h.log.Error(ctx, "broadcast list failed", "error", err)
		h.reply(ctx, msg.Chat.ID, userMessage(err))
		return
	}

	for _, u := range users {
		h.sendDM(ctx, u.ID, "🚀 "+text)
	}
	h.reply(ctx, msg.Chat.ID, fmt.Sprintf("🚀 Broadcast sent to %d users.", len(users)))
}

// requireAdmin gates an admin command, reporting a failed attempt when a
// regular user tries it.
func (h *Handler) requireAdmin(ctx context.Context, msg *tgbotapi.Message) bool {
	if h.isAdmin(msg.From) {
		return true
	}
	h.monitor.FailedAttempt(msg.From.ID, "admin_access")
	h.reply(ctx, msg.Chat.ID, "🔒 Access denied.")
	return false
}
