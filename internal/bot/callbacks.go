package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/smile200420ff/Main-bot/internal/common"
	"github.com/smile200420ff/Main-bot/internal/models"
	"github.com/smile200420ff/Main-bot/internal/qr"
	"github.com/smile200420ff/Main-bot/internal/security"
)

// maxListRows caps list views so the reply keyboard stays within Telegram
// limits.
const maxListRows = 10

// auditTailLines is how much of the audit log the admin view shows.
const auditTailLines = 10

func (h *Handler) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	if q.From == nil || q.Message == nil {
		return
	}
	from := q.From
	chatID := q.Message.Chat.ID

	if err := h.users.Register(ctx, from.ID, from.UserName, from.FirstName); err != nil {
		h.log.Error(ctx, "user registration failed", "user_id", from.ID, "error", err)
	}

	dec := h.guard.Authorize(ctx, security.Action{UserID: from.ID, Username: from.UserName, Kind: "callback"})
	if !dec.Allowed {
		h.alert(ctx, q.ID, callbackDeniedText(dec))
		return
	}
	defer h.ack(ctx, q.ID)

	switch q.Data {
	case "main_menu":
		h.replyKB(ctx, chatID, "⚡ Main menu", mainMenuKeyboard())
		return
	case "create_deal":
		h.drafts.begin(from.ID)
		h.reply(ctx, chatID, createDealPrompt())
		return
	case "confirm_deal":
		h.confirmDeal(ctx, chatID, from)
		return
	case "cancel_deal_creation":
		h.drafts.clear(from.ID)
		h.replyKB(ctx, chatID, "❌ Deal creation cancelled.", mainMenuKeyboard())
		return
	case "my_deals":
		h.showMyDeals(ctx, chatID, from.ID)
		return
	case "payment_status":
		h.showPayments(ctx, chatID, from.ID)
		return
	case "support":
		h.replyKB(ctx, chatID, supportText(h.cfg.AdminHandle), backToMenuKeyboard())
		return
	case "how_it_works":
		h.replyKB(ctx, chatID, howItWorksText(), backToMenuKeyboard())
		return
	case "security_info":
		h.replyKB(ctx, chatID, securityInfoText(h.guard.Window()), backToMenuKeyboard())
		return
	case "back_to_admin":
		if h.requireAdminCallback(ctx, chatID, from) {
			h.replyKB(ctx, chatID, "🛡️ Admin Panel", adminKeyboard())
		}
		return
	case "admin_all_deals":
		if h.requireAdminCallback(ctx, chatID, from) {
			h.showAdminDeals(ctx, chatID, "🤝 All Deals", "")
		}
		return
	case "admin_disputes":
		if h.requireAdminCallback(ctx, chatID, from) {
			h.showAdminDeals(ctx, chatID, "⚠️ Disputed Deals", models.DealStatusDisputed)
		}
		return
	case "admin_stats":
		if h.requireAdminCallback(ctx, chatID, from) {
			h.showStats(ctx, chatID)
		}
		return
	case "admin_security":
		if h.requireAdminCallback(ctx, chatID, from) {
			failed, suspicious := h.monitor.TrackedUsers()
			h.replyKB(ctx, chatID, securityLogText(h.audit.Tail(auditTailLines), failed, suspicious), adminKeyboard())
		}
		return
	case "admin_system":
		if h.requireAdminCallback(ctx, chatID, from) {
			h.showSystemStatus(ctx, chatID)
		}
		return
	case "admin_broadcast":
		if h.requireAdminCallback(ctx, chatID, from) {
			h.reply(ctx, chatID, "🚀 Send the announcement as:\n\n/broadcast <message>")
		}
		return
	}

	switch {
	case strings.HasPrefix(q.Data, "pay_deal_"):
		h.showPaymentQR(ctx, chatID, strings.TrimPrefix(q.Data, "pay_deal_"))
	case strings.HasPrefix(q.Data, "regenerate_qr_"):
		h.showPaymentQR(ctx, chatID, strings.TrimPrefix(q.Data, "regenerate_qr_"))
	case strings.HasPrefix(q.Data, "payment_done_"):
		h.claimPayment(ctx, chatID, from, strings.TrimPrefix(q.Data, "payment_done_"))
	case strings.HasPrefix(q.Data, "share_deal_"):
		h.shareDeal(ctx, chatID, strings.TrimPrefix(q.Data, "share_deal_"))
	case strings.HasPrefix(q.Data, "release_payment_"):
		h.releaseDeal(ctx, chatID, from, strings.TrimPrefix(q.Data, "release_payment_"))
	case strings.HasPrefix(q.Data, "dispute_deal_"):
		h.disputeDeal(ctx, chatID, from, strings.TrimPrefix(q.Data, "dispute_deal_"))
	case strings.HasPrefix(q.Data, "admin_resolve_"):
		if h.requireAdminCallback(ctx, chatID, from) {
			h.adminResolve(ctx, chatID, from, strings.TrimPrefix(q.Data, "admin_resolve_"))
		}
	case strings.HasPrefix(q.Data, "admin_cancel_"):
		if h.requireAdminCallback(ctx, chatID, from) {
			h.adminCancel(ctx, chatID, from, strings.TrimPrefix(q.Data, "admin_cancel_"))
		}
	case strings.HasPrefix(q.Data, "admin_deal_details_"):
		if h.requireAdminCallback(ctx, chatID, from) {
			h.showAdminDeal(ctx, chatID, strings.TrimPrefix(q.Data, "admin_deal_details_"))
		}
	case strings.HasPrefix(q.Data, "deal_"):
		h.showDeal(ctx, chatID, from, strings.TrimPrefix(q.Data, "deal_"))
	default:
		h.log.Debug(ctx, "unknown callback", "data", q.Data)
	}
}

// confirmDeal commits the pending draft. A validation rejection reopens the
// form so the user can resend a corrected message.
func (h *Handler) confirmDeal(ctx context.Context, chatID int64, from *tgbotapi.User) {
	draft, ok := h.drafts.pending(from.ID)
	if !ok {
		h.reply(ctx, chatID, "❌ Nothing to confirm. Tap 🤝 Create Deal to start.")
		return
	}

	deal, err := h.deals.Create(ctx, from.ID, draft.Description, draft.Amount, draft.Terms)
	if err != nil {
		if errors.Is(err, common.ErrorValidation) {
			h.drafts.begin(from.ID)
		} else {
			h.log.Error(ctx, "deal creation failed", "user_id", from.ID, "error", err)
		}
		h.reply(ctx, chatID, userMessage(err))
		return
	}

	h.drafts.clear(from.ID)
	h.log.Info(ctx, "deal created", "deal_id", deal.ID, "creator_id", deal.CreatorID)
	h.replyKB(ctx, chatID, dealCreatedText(deal), dealKeyboard(deal.ID))
}

// showDeal renders the deal view anyone with the ID may open. Lookups of
// IDs that do not exist count as failed attempts so ID guessing trips the
// auto-block.
func (h *Handler) showDeal(ctx context.Context, chatID int64, from *tgbotapi.User, dealID string) {
	deal, err := h.deals.Get(ctx, dealID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			h.monitor.FailedAttempt(from.ID, "deal_access")
		} else {
			h.log.Error(ctx, "deal lookup failed", "deal_id", dealID, "error", err)
		}
		h.reply(ctx, chatID, userMessage(err))
		return
	}
	h.replyKB(ctx, chatID, dealText(deal), dealManagementKeyboard(deal, h.cfg.AdminHandle))
}

func (h *Handler) showMyDeals(ctx context.Context, chatID, userID int64) {
	deals, err := h.deals.ListByCreator(ctx, userID)
	if err != nil {
		h.log.Error(ctx, "deal list failed", "user_id", userID, "error", err)
		h.reply(ctx, chatID, userMessage(err))
		return
	}
	if len(deals) > maxListRows {
		deals = deals[:maxListRows]
	}
	h.replyKB(ctx, chatID, dealListText("📊 My Deals", deals), dealListKeyboard(deals, false))
}

func (h *Handler) showPayments(ctx context.Context, chatID, userID int64) {
	payments, err := h.deals.PaymentsByPayer(ctx, userID)
	if err != nil {
		h.log.Error(ctx, "payment list failed", "user_id", userID, "error", err)
		h.reply(ctx, chatID, userMessage(err))
		return
	}
	if len(payments) > maxListRows {
		payments = payments[:maxListRows]
	}
	h.replyKB(ctx, chatID, paymentsText(payments), backToMenuKeyboard())
}

// showPaymentQR sends the UPI QR code for a created deal. When image
// rendering fails the payload link is sent as plain text so payment stays
// possible.
func (h *Handler) showPaymentQR(ctx context.Context, chatID int64, dealID string) {
	deal, err := h.deals.Get(ctx, dealID)
	if err != nil {
		h.reply(ctx, chatID, userMessage(err))
		return
	}
	if deal.Status != models.DealStatusCreated {
		h.reply(ctx, chatID, userMessage(common.ErrorIllegalTransition))
		return
	}

	payload, err := h.deals.PaymentPayload(ctx, dealID)
	if err != nil {
		h.reply(ctx, chatID, userMessage(err))
		return
	}

	png, err := qr.Render(payload)
	if err != nil {
		h.log.Warn(ctx, "qr render failed", "deal_id", dealID, "error", err)
		h.replyKB(ctx, chatID, paymentCaption(deal, h.cfg.UPIAddress)+"\n\n"+payload, paymentKeyboard(dealID))
		return
	}

	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "payment_qr.png", Bytes: png})
	photo.Caption = paymentCaption(deal, h.cfg.UPIAddress)
	photo.ReplyMarkup = paymentKeyboard(dealID)
	h.send(ctx, photo)
}

// claimPayment records the tapper's payment claim and funds the deal.
func (h *Handler) claimPayment(ctx context.Context, chatID int64, from *tgbotapi.User, dealID string) {
	if _, err := h.deals.SubmitPayment(ctx, dealID, from.ID, "upi", ""); err != nil {
		if !errors.Is(err, common.ErrorIllegalTransition) && !errors.Is(err, common.ErrorNotFound) {
			h.log.Error(ctx, "payment claim failed", "deal_id", dealID, "payer_id", from.ID, "error", err)
		}
		h.reply(ctx, chatID, userMessage(err))
		return
	}
	h.log.Info(ctx, "deal funded", "deal_id", dealID, "payer_id", from.ID)

	deal, err := h.deals.Get(ctx, dealID)
	if err != nil {
		h.reply(ctx, chatID, "✅ Payment recorded. The deal is now funded.")
		return
	}

	h.replyKB(ctx, chatID, "✅ Payment recorded. The deal is now funded.\n\n"+dealText(deal),
		dealManagementKeyboard(deal, h.cfg.AdminHandle))
	if deal.CreatorID != from.ID {
		h.sendDM(ctx, deal.CreatorID, fmt.Sprintf("💰 Deal %s is funded. Release the payment once you have delivered.",
			models.FormatDealID(deal.ID)))
	}
}

func (h *Handler) shareDeal(ctx context.Context, chatID int64, dealID string) {
	deal, err := h.deals.Get(ctx, dealID)
	if err != nil {
		h.reply(ctx, chatID, userMessage(err))
		return
	}
	link := "https://t.me/" + h.botName + "?start=deal_" + deal.ID
	h.replyKB(ctx, chatID, shareDealText(deal, link), dealKeyboard(deal.ID))
}

func (h *Handler) releaseDeal(ctx context.Context, chatID int64, from *tgbotapi.User, dealID string) {
	deal, err := h.deals.Release(ctx, dealID, h.actor(from))
	if err != nil {
		h.reply(ctx, chatID, userMessage(err))
		return
	}
	h.log.Info(ctx, "deal completed", "deal_id", deal.ID, "by", from.ID)

	h.replyKB(ctx, chatID, "✅ Payment released. Deal completed.\n\n"+dealText(deal),
		dealManagementKeyboard(deal, h.cfg.AdminHandle))
	h.notifyPayers(ctx, deal, fmt.Sprintf("✅ Deal %s is completed. The payment has been released.",
		models.FormatDealID(deal.ID)), from.ID)
}

func (h *Handler) disputeDeal(ctx context.Context, chatID int64, from *tgbotapi.User, dealID string) {
	deal, err := h.deals.Dispute(ctx, dealID, h.actor(from))
	if err != nil {
		h.reply(ctx, chatID, userMessage(err))
		return
	}
	h.log.Info(ctx, "deal disputed", "deal_id", deal.ID, "by", from.ID)

	h.replyKB(ctx, chatID, "⚠️ Dispute opened. An admin will review the deal.\n\n"+dealText(deal),
		dealManagementKeyboard(deal, h.cfg.AdminHandle))
	h.notifyPayers(ctx, deal, fmt.Sprintf("⚠️ Deal %s is disputed. An admin will review it; contact %s for details.",
		models.FormatDealID(deal.ID), h.cfg.AdminHandle), from.ID)
}

func (h *Handler) adminResolve(ctx context.Context, chatID int64, from *tgbotapi.User, dealID string) {
	deal, err := h.deals.Resolve(ctx, dealID, h.actor(from))
	if err != nil {
		h.reply(ctx, chatID, userMessage(err))
		return
	}
	h.log.Info(ctx, "deal resolved", "deal_id", deal.ID, "admin_id", from.ID)

	h.replyKB(ctx, chatID, "✅ Resolved. Payment released.\n\n"+adminDealText(deal), adminDealKeyboard(deal))
	if deal.CreatorID != from.ID {
		h.sendDM(ctx, deal.CreatorID, fmt.Sprintf("✅ Deal %s was resolved by an admin. The payment is released.",
			models.FormatDealID(deal.ID)))
	}
	h.notifyPayers(ctx, deal, fmt.Sprintf("✅ Deal %s was resolved by an admin. The payment is released.",
		models.FormatDealID(deal.ID)), from.ID)
}

func (h *Handler) adminCancel(ctx context.Context, chatID int64, from *tgbotapi.User, dealID string) {
	deal, err := h.deals.Cancel(ctx, dealID, h.actor(from))
	if err != nil {
		h.reply(ctx, chatID, userMessage(err))
		return
	}
	h.log.Info(ctx, "deal cancelled", "deal_id", deal.ID, "admin_id", from.ID)

	h.replyKB(ctx, chatID, "❌ Deal cancelled.\n\n"+adminDealText(deal), adminDealKeyboard(deal))
	if deal.CreatorID != from.ID {
		h.sendDM(ctx, deal.CreatorID, fmt.Sprintf("❌ Deal %s was cancelled by an admin.",
			models.FormatDealID(deal.ID)))
	}
	h.notifyPayers(ctx, deal, fmt.Sprintf("❌ Deal %s was cancelled by an admin. Contact %s about refunds.",
		models.FormatDealID(deal.ID), h.cfg.AdminHandle), from.ID)
}

func (h *Handler) showAdminDeal(ctx context.Context, chatID int64, dealID string) {
	deal, err := h.deals.Get(ctx, dealID)
	if err != nil {
		h.reply(ctx, chatID, userMessage(err))
		return
	}
	h.replyKB(ctx, chatID, adminDealText(deal), adminDealKeyboard(deal))
}

func (h *Handler) showAdminDeals(ctx context.Context, chatID int64, title string, status models.DealStatus) {
	deals, err := h.deals.List(ctx, status)
	if err != nil {
		h.log.Error(ctx, "admin deal list failed", "status", status, "error", err)
		h.reply(ctx, chatID, userMessage(err))
		return
	}
	if len(deals) > maxListRows {
		deals = deals[:maxListRows]
	}
	h.replyKB(ctx, chatID, dealListText(title, deals), dealListKeyboard(deals, true))
}

func (h *Handler) showStats(ctx context.Context, chatID int64) {
	stats, err := h.deals.Stats(ctx)
	if err != nil {
		h.log.Error(ctx, "stats failed", "error", err)
		h.reply(ctx, chatID, userMessage(err))
		return
	}
	activeUsers, err := h.users.CountActive(ctx)
	if err != nil {
		h.log.Error(ctx, "user count failed", "error", err)
		h.reply(ctx, chatID, userMessage(err))
		return
	}
	h.replyKB(ctx, chatID, statsText(stats, activeUsers), adminKeyboard())
}

func (h *Handler) showSystemStatus(ctx context.Context, chatID int64) {
	activeUsers, err := h.users.CountActive(ctx)
	if err != nil {
		h.log.Error(ctx, "user count failed", "error", err)
		h.reply(ctx, chatID, userMessage(err))
		return
	}
	failed, suspicious := h.monitor.TrackedUsers()
	h.replyKB(ctx, chatID,
		systemStatusText(time.Since(h.startedAt), h.guard.Window(), activeUsers, failed, suspicious),
		adminKeyboard())
}

// requireAdminCallback gates an admin route, reporting a failed attempt
// when a regular user taps (or forges) an admin button.
func (h *Handler) requireAdminCallback(ctx context.Context, chatID int64, from *tgbotapi.User) bool {
	if h.isAdmin(from) {
		return true
	}
	h.monitor.FailedAttempt(from.ID, "admin_access")
	h.reply(ctx, chatID, "🔒 Access denied.")
	return false
}

// notifyPayers sends a courtesy update to everyone who claimed a payment on
// the deal, once each, skipping the user who triggered the change.
func (h *Handler) notifyPayers(ctx context.Context, deal *models.Deal, text string, except int64) {
	payments, err := h.deals.PaymentsByDeal(ctx, deal.ID)
	if err != nil {
		h.log.Warn(ctx, "payer lookup failed", "deal_id", deal.ID, "error", err)
		return
	}
	seen := make(map[int64]struct{})
	for _, p := range payments {
		if p.PayerID == except {
			continue
		}
		if _, ok := seen[p.PayerID]; ok {
			continue
		}
		seen[p.PayerID] = struct{}{}
		h.sendDM(ctx, p.PayerID, text)
	}
}

// ack answers the callback so the button stops spinning.
func (h *Handler) ack(ctx context.Context, callbackID string) {
	if _, err := h.api.Request(tgbotapi.NewCallback(callbackID, "")); err != nil {
		h.log.Debug(ctx, "callback ack failed", "error", err)
	}
}

// alert answers the callback with a popup instead of the plain ack.
func (h *Handler) alert(ctx context.Context, callbackID, text string) {
	if _, err := h.api.Request(tgbotapi.NewCallbackWithAlert(callbackID, text)); err != nil {
		h.log.Debug(ctx, "callback alert failed", "error", err)
	}
}

func callbackDeniedText(dec security.Decision) string {
	if errors.Is(dec.Err, common.ErrorUserBlocked) {
		return blockedText
	}
	return "⚠️ Rate limited! Please wait."
}
