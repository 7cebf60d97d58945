package dispatch

import "coupon-bot/internal/chat"

// menuCommand is a reply-keyboard entry.
type menuCommand int

const (
	menuBalance menuCommand = iota + 1
	menuAddDiamonds
	menuBuyCoupon
	menuMyOrders
	menuAdminPanel
	menuBackToUser
	menuViewStock
	menuUpdateQR
	menuAddCoupon
	menuRemoveCoupon
	menuFreeCoupon
	menuChangePrice
)

const (
	labelAddDiamonds  = "💰 Add Diamonds"
	labelBalance      = "💎 Balance"
	labelBuyCoupon    = "🛒 Buy Coupon"
	labelMyOrders     = "📦 My Orders"
	labelAdminPanel   = "🛠 Admin Panel"
	labelBackToUser   = "⬅️ Back to User Menu"
	labelViewStock    = "📊 View Stock"
	labelUpdateQR     = "🧾 Update UPI QR"
	labelAddCoupon    = "➕ Add Coupon"
	labelRemoveCoupon = "➖ Remove Coupon"
	labelFreeCoupon   = "🎁 Free Coupon"
	labelChangePrice  = "💰 Change Price"
)

var userMenu = map[string]menuCommand{
	labelBalance:     menuBalance,
	labelAddDiamonds: menuAddDiamonds,
	labelBuyCoupon:   menuBuyCoupon,
	labelMyOrders:    menuMyOrders,
}

var adminMenu = map[string]menuCommand{
	labelAdminPanel:   menuAdminPanel,
	labelBackToUser:   menuBackToUser,
	labelViewStock:    menuViewStock,
	labelUpdateQR:     menuUpdateQR,
	labelAddCoupon:    menuAddCoupon,
	labelRemoveCoupon: menuRemoveCoupon,
	labelFreeCoupon:   menuFreeCoupon,
	labelChangePrice:  menuChangePrice,
}

// resolveMenu maps typed text to a menu command the user is allowed to run.
func resolveMenu(text string, isAdmin bool) (menuCommand, bool) {
	if cmd, ok := userMenu[text]; ok {
		return cmd, true
	}
	if isAdmin {
		cmd, ok := adminMenu[text]
		return cmd, ok
	}
	return 0, false
}

func mainKeyboard(isAdmin bool) *chat.Keyboard {
	rows := [][]string{
		{labelAddDiamonds, labelBalance},
		{labelBuyCoupon},
		{labelMyOrders},
	}
	if isAdmin {
		rows = append(rows, []string{labelAdminPanel})
	}
	return &chat.Keyboard{Menu: rows}
}

func adminKeyboard() *chat.Keyboard {
	return &chat.Keyboard{Menu: [][]string{
		{labelViewStock, labelUpdateQR},
		{labelAddCoupon, labelRemoveCoupon},
		{labelFreeCoupon, labelChangePrice},
		{labelBackToUser},
	}}
}

func inline(rows ...[]chat.Button) *chat.Keyboard {
	return &chat.Keyboard{Inline: rows}
}
