package bot

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/smile200420ff/Main-bot/internal/common"
	"github.com/smile200420ff/Main-bot/internal/models"
	"github.com/smile200420ff/Main-bot/internal/security"
)

const dealTimeLayout = "02 Jan 2006 15:04"

func welcomeText(firstName string) string {
	name := strings.TrimSpace(firstName)
	if name == "" {
		name = "there"
	}
	return fmt.Sprintf(`🔐 Welcome to Quick Escrow, %s!

I hold the middle ground in peer-to-peer deals:
🤝 create a deal and share it with your counterparty
💰 they pay via UPI and the deal becomes funded
📤 you release the payment once you got what you agreed on
⚠️ anything goes wrong, a human admin steps in

Use the menu below to get started.`, name)
}

func helpText() string {
	return `⚡ Commands

/start — main menu
/menu — main menu
/help — this message
/admin — admin panel (admin only)

Everything else happens through buttons. Tap 🤝 Create Deal to begin.`
}

func howItWorksText() string {
	return `⚡ How It Works

1. The seller creates a deal: description | amount | terms.
2. The bot issues a deal ID and a UPI QR code.
3. The buyer scans, pays, and taps ✅ Payment Done.
4. The seller delivers, then taps 📤 Release Payment.
5. Problems? ⚠️ Create Dispute brings in an admin.

Completed and cancelled deals are final.`
}

func securityInfoText(window time.Duration) string {
	return fmt.Sprintf(`🛡️ Security

• One action per %s per user.
• %d failed attempts block the account automatically.
• Deal IDs are random %d-character codes.
• Every security event goes to an append-only audit log.`,
		window, security.AutoBlockThreshold, security.DealIDLength)
}

func supportText(adminHandle string) string {
	return fmt.Sprintf(`⚠️ Support

Questions or a stuck deal? Message the admin: %s

For payment problems, use ⚠️ Create Dispute on the deal itself so the case is tracked.`, adminHandle)
}

func createDealPrompt() string {
	return `🤝 New Deal

Send the deal in one message, three parts separated by |:

description | amount | terms

Example:
iPhone 13, good condition | 25000 | Ship within 3 days of payment, buyer inspects before release`
}

func draftPreviewText(d *DealDraft) string {
	return fmt.Sprintf(`🤝 Confirm New Deal

📝 Description: %s
💰 Amount: %s
📋 Terms: %s

Create this deal?`, d.Description, models.FormatAmount(d.Amount), d.Terms)
}

func dealText(deal *models.Deal) string {
	return fmt.Sprintf(`🤝 Deal %s

%s Status: %s
💰 Amount: %s
📅 Created: %s

📝 Description:
%s

📋 Terms:
%s`,
		models.FormatDealID(deal.ID),
		deal.Status.Emoji(), statusLabel(deal.Status),
		models.FormatAmount(deal.Amount),
		deal.CreatedAt.Format(dealTimeLayout),
		deal.Description,
		deal.Terms)
}

func dealCreatedText(deal *models.Deal) string {
	return "✅ Deal created!\n\n" + dealText(deal) + "\n\n🔒 Share it with your counterparty so they can pay."
}

// adminDealText is the detail view for admins, with the creator on show.
func adminDealText(deal *models.Deal) string {
	return dealText(deal) + fmt.Sprintf("\n\n👤 Creator ID: %d\n📅 Updated: %s",
		deal.CreatorID, deal.UpdatedAt.Format(dealTimeLayout))
}

func dealListText(title string, deals []*models.Deal) string {
	if len(deals) == 0 {
		return title + "\n\nNothing here yet."
	}

	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n")
	for _, d := range deals {
		b.WriteString(fmt.Sprintf("\n%s %s · %s\n   %s",
			d.Status.Emoji(), models.FormatDealID(d.ID), models.FormatAmount(d.Amount),
			truncate(d.Description, 40)))
	}
	b.WriteString("\n\nTap a deal to open it.")
	return b.String()
}

func paymentsText(payments []*models.Payment) string {
	if len(payments) == 0 {
		return "💰 Payment Status\n\nYou have not claimed any payments yet."
	}

	var b strings.Builder
	b.WriteString("💰 Payment Status\n")
	for _, p := range payments {
		b.WriteString(fmt.Sprintf("\n%s %s · %s · %s\n   claimed %s",
			paymentEmoji(p.Status), models.FormatDealID(p.DealID),
			models.FormatAmount(p.Amount), p.Method,
			p.CreatedAt.Format(dealTimeLayout)))
	}
	return b.String()
}

func paymentCaption(deal *models.Deal, upiAddress string) string {
	return fmt.Sprintf(`💰 Pay %s for deal %s

📱 Scan to pay with any UPI app.
UPI ID: %s

After paying, tap ✅ Payment Done so the deal moves to funded.`,
		models.FormatAmount(deal.Amount), models.FormatDealID(deal.ID), upiAddress)
}

func shareDealText(deal *models.Deal, link string) string {
	return fmt.Sprintf(`🔒 Share this deal

%s %s · %s
%s

Forward this link to your counterparty:
%s`,
		deal.Status.Emoji(), models.FormatDealID(deal.ID), models.FormatAmount(deal.Amount),
		truncate(deal.Description, 80),
		link)
}

func statsText(stats *models.DealStats, activeUsers int64) string {
	return fmt.Sprintf(`💎 Deal Statistics

🤝 Total deals: %d
⏳ Active: %d (%s locked)
✅ Completed: %d
⚠️ Disputed: %d
❌ Cancelled: %d

👥 Active users: %d`,
		stats.TotalDeals,
		stats.ActiveDeals, models.FormatAmount(stats.TotalActiveValue),
		stats.CompletedDeals,
		stats.DisputedDeals,
		stats.CancelledDeals,
		activeUsers)
}

func securityLogText(lines []string, failed, suspicious int) string {
	var b strings.Builder
	b.WriteString("🛡️ Security Log\n\n")
	b.WriteString(fmt.Sprintf("Tracked users: %d failing, %d suspicious\n", failed, suspicious))
	if len(lines) == 0 {
		b.WriteString("\nNo security events recorded.")
		return b.String()
	}
	for _, line := range lines {
		b.WriteString("\n")
		b.WriteString(line)
	}
	return b.String()
}

func systemStatusText(uptime, window time.Duration, activeUsers int64, failed, suspicious int) string {
	return fmt.Sprintf(`🔑 System Status

⏳ Uptime: %s
🛡️ Rate limit window: %s
👥 Active users: %d
⚠️ Tracked: %d failing, %d suspicious`,
		uptime.Round(time.Second), window, activeUsers, failed, suspicious)
}

func rateLimitText(wait time.Duration) string {
	secs := int(wait / time.Second)
	if secs < 1 {
		secs = 1
	}
	return fmt.Sprintf("⚠️ Please wait %d seconds before next action.", secs)
}

const blockedText = "🔒 Your access has been restricted. Contact support if you believe this is a mistake."

// userMessage maps a service error to a chat-facing line. Unknown errors
// collapse to a generic apology so internals never leak into chat.
func userMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, common.ErrorValidation):
		return "❌ " + validationReason(err)
	case errors.Is(err, common.ErrorNotFound):
		return "❌ Deal not found. Check the ID and try again."
	case errors.Is(err, common.ErrorAccessDenied):
		return "🔒 Access denied. Only the deal creator or an admin can do that."
	case errors.Is(err, common.ErrorIllegalTransition):
		return "⚠️ That action is not available in this deal's current status."
	case errors.Is(err, common.ErrorUserBlocked):
		return blockedText
	case errors.Is(err, common.ErrorRateLimited):
		return "⚠️ Rate limited! Please wait."
	default:
		return "⚠️ Something went wrong. Please try again."
	}
}

// validationReason strips the sentinel prefix, leaving the rule message the
// validator produced.
func validationReason(err error) string {
	s := err.Error()
	if _, reason, ok := strings.Cut(s, ": "); ok {
		return reason
	}
	return s
}

func statusLabel(s models.DealStatus) string {
	str := string(s)
	if str == "" {
		return "Unknown"
	}
	return strings.ToUpper(str[:1]) + str[1:]
}

func paymentEmoji(s models.PaymentStatus) string {
	switch s {
	case models.PaymentStatusPending:
		return "⏳"
	case models.PaymentStatusConfirmed:
		return "✅"
	case models.PaymentStatusFailed:
		return "❌"
	case models.PaymentStatusRefunded:
		return "📤"
	default:
		return "🔒"
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
