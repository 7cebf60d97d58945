package dispatch

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"coupon-bot/internal/deposit"
	"coupon-bot/internal/inventory"
	"coupon-bot/internal/repo"
)

func formatInvoice(dep *repo.Deposit, rate int64, now time.Time) string {
	var b strings.Builder
	b.WriteString("📝 Order Summary:\n")
	b.WriteString("━━━━━━━━━━━━━━━\n")
	fmt.Fprintf(&b, "💹 Rate: %d Rs = 1 Diamond 💎\n", rate)
	fmt.Fprintf(&b, "💵 Amount: %d Rs\n", dep.PaymentAmount)
	fmt.Fprintf(&b, "💎 Diamonds to Receive: %d 💎\n", dep.Diamonds)
	fmt.Fprintf(&b, "💳 Method: %s\n", deposit.MethodLabel(dep.Method))
	fmt.Fprintf(&b, "📅 Time: %s\n", now.Format(timeLayout))
	b.WriteString("━━━━━━━━━━━━━━━\n")
	if dep.Method == deposit.MethodUPI {
		b.WriteString("Scan QR and pay, then click below.")
	} else {
		b.WriteString("Click below to proceed.")
	}
	return b.String()
}

func methodIcon(method string) string {
	if method == deposit.MethodAmazon {
		return "🎁"
	}
	return "🏦"
}

func formatSubmission(dep *repo.Deposit, handle string) string {
	who := "N/A"
	if handle != "" {
		who = "@" + strings.TrimPrefix(handle, "@")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "💰 NEW %s PAYMENT SUBMISSION\n\n", strings.ToUpper(deposit.MethodLabel(dep.Method)))
	fmt.Fprintf(&b, "👤 User: %s\n", who)
	fmt.Fprintf(&b, "🆔 ID: %d\n", dep.UserID)
	fmt.Fprintf(&b, "💵 Amount: %d Rs\n", dep.PaymentAmount)
	fmt.Fprintf(&b, "💎 Diamonds: %d\n", dep.Diamonds)
	if dep.GiftCard.Valid {
		fmt.Fprintf(&b, "🎁 Gift Card: %s\n", dep.GiftCard.String)
	} else {
		fmt.Fprintf(&b, "👤 Payer Name: %s\n", dep.PayerName.String)
	}
	fmt.Fprintf(&b, "📅 Time: %s\n", dep.UpdatedAt.Format(timeLayout))
	fmt.Fprintf(&b, "🧾 Deposit ID: %d", dep.ID)
	return b.String()
}

func formatActivity(orders []repo.Order, deps []repo.Deposit) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📦 Your Activity (last %d)\n\n", activityLimit)

	b.WriteString("🛒 Coupon Orders:\n")
	if len(orders) == 0 {
		b.WriteString("• No coupon orders yet.\n")
	}
	for _, o := range orders {
		fmt.Fprintf(&b, "• %s x%d — %d💎 (%s)\n", o.CouponType, o.Quantity, o.TotalPrice, o.CreatedAt.Format(timeLayout))
	}

	b.WriteString("\n💰 Deposits:\n")
	if len(deps) == 0 {
		b.WriteString("• No deposits yet.")
	}
	for i, dep := range deps {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "• %s — %d💎 — %s (%s)", deposit.MethodLabel(dep.Method), dep.Diamonds, dep.Status, dep.CreatedAt.Format(timeLayout))
	}
	return b.String()
}

func formatStock(catalog *inventory.Catalog, quotes []inventory.Quote, qrSet bool) string {
	var b strings.Builder
	b.WriteString("📊 Stock & Prices\n\n")
	for _, q := range quotes {
		fmt.Fprintf(&b, "• %s: Stock=%d, Price=%d💎\n", catalog.Label(q.CouponType), q.Available, q.Price)
	}
	if qrSet {
		b.WriteString("\n🧾 UPI QR: ✅ Set")
	} else {
		b.WriteString("\n🧾 UPI QR: ❌ Not set")
	}
	return b.String()
}

func parsePositive(text string) (int64, bool) {
	n, ok := parseNonNegative(text)
	return n, ok && n > 0
}

func parseNonNegative(text string) (int64, bool) {
	text = strings.TrimSpace(text)
	if text == "" || strings.ContainsAny(text, "+-") {
		return 0, false
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
