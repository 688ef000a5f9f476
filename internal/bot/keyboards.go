package bot

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/smile200420ff/Main-bot/internal/models"
)

func mainMenuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🤝 Create Deal", "create_deal"),
			tgbotapi.NewInlineKeyboardButtonData("📊 My Deals", "my_deals"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💰 Payment Status", "payment_status"),
			tgbotapi.NewInlineKeyboardButtonData("⚠️ Support", "support"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⚡ How It Works", "how_it_works"),
			tgbotapi.NewInlineKeyboardButtonData("🛡️ Security", "security_info"),
		),
	)
}

func confirmationKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Create Deal", "confirm_deal"),
			tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", "cancel_deal_creation"),
		),
	)
}

// dealKeyboard is the compact view attached to a freshly created or shared
// deal.
func dealKeyboard(dealID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💰 Pay Now", "pay_deal_"+dealID),
			tgbotapi.NewInlineKeyboardButtonData("📊 View Details", "deal_"+dealID),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔒 Share Deal", "share_deal_"+dealID),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⚡ Back to Menu", "main_menu"),
		),
	)
}

// dealManagementKeyboard offers the actions that make sense for the deal's
// current status. The service re-checks every action, so showing a button
// is never an authorization decision.
func dealManagementKeyboard(deal *models.Deal, adminHandle string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton

	switch deal.Status {
	case models.DealStatusCreated:
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💰 Pay Now", "pay_deal_"+deal.ID),
		))
	case models.DealStatusFunded:
		rows = append(rows,
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("📤 Release Payment", "release_payment_"+deal.ID),
			),
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("⚠️ Create Dispute", "dispute_deal_"+deal.ID),
			),
		)
	case models.DealStatusDisputed:
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("👨‍💼 Contact Admin", adminURL(adminHandle)),
		))
	}

	rows = append(rows,
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔒 Share Deal", "share_deal_"+deal.ID),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⚡ Back to Menu", "main_menu"),
		),
	)

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func paymentKeyboard(dealID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Payment Done", "payment_done_"+dealID),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📱 Generate New QR", "regenerate_qr_"+dealID),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⚡ Back to Deal", "deal_"+dealID),
		),
	)
}

func adminKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🤝 All Deals", "admin_all_deals"),
			tgbotapi.NewInlineKeyboardButtonData("⚠️ Disputes", "admin_disputes"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🚀 Broadcast", "admin_broadcast"),
			tgbotapi.NewInlineKeyboardButtonData("💎 Statistics", "admin_stats"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🛡️ Security Log", "admin_security"),
			tgbotapi.NewInlineKeyboardButtonData("🔑 System Status", "admin_system"),
		),
	)
}

// adminDealKeyboard offers the admin moves that are legal from the deal's
// current status: resolve needs a funded or disputed deal, cancel a created
// or disputed one.
func adminDealKeyboard(deal *models.Deal) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton

	switch deal.Status {
	case models.DealStatusDisputed:
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Resolve (Release)", "admin_resolve_"+deal.ID),
			tgbotapi.NewInlineKeyboardButtonData("❌ Cancel Deal", "admin_cancel_"+deal.ID),
		))
	case models.DealStatusFunded:
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📤 Force Release", "admin_resolve_"+deal.ID),
		))
	case models.DealStatusCreated:
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❌ Cancel Deal", "admin_cancel_"+deal.ID),
		))
	}

	rows = append(rows,
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔒 View Details", "admin_deal_details_"+deal.ID),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🛡️ Back to Admin", "back_to_admin"),
		),
	)

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// dealListKeyboard renders one button per deal so a tap opens the detail
// view. adminView switches the target to the admin detail route.
func dealListKeyboard(deals []*models.Deal, adminView bool) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, d := range deals {
		target := "deal_" + d.ID
		if adminView {
			target = "admin_deal_details_" + d.ID
		}
		label := d.Status.Emoji() + " " + models.FormatDealID(d.ID) + " · " + models.FormatAmount(d.Amount)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, target),
		))
	}

	back := tgbotapi.NewInlineKeyboardButtonData("⚡ Back to Menu", "main_menu")
	if adminView {
		back = tgbotapi.NewInlineKeyboardButtonData("🛡️ Back to Admin", "back_to_admin")
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(back))

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func backToMenuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⚡ Back to Menu", "main_menu"),
		),
	)
}

// adminURL turns the configured "@handle" into a tappable t.me link.
func adminURL(adminHandle string) string {
	return "https://t.me/" + strings.TrimPrefix(adminHandle, "@")
}
