package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"coupon-bot/internal/chat"
	"coupon-bot/internal/convo"
	"coupon-bot/internal/deposit"
	"coupon-bot/internal/inventory"
)

func (d *Dispatcher) showBalance(ctx context.Context, in chat.Intent) error {
	balance, err := d.users.GetBalance(ctx, in.UserID)
	if err != nil {
		return err
	}
	d.send(ctx, in.ChatID, fmt.Sprintf("💎 Your Balance: %d Diamonds", balance), nil)
	return nil
}

func (d *Dispatcher) showCatalog(ctx context.Context, in chat.Intent) error {
	catalog := d.inventory.Catalog()
	var rows [][]chat.Button
	for _, q := range d.inventory.Overview(ctx) {
		rows = append(rows, []chat.Button{{
			Label:  fmt.Sprintf("%s (%d 💎) | Stock: %d", catalog.Label(q.CouponType), q.Price, q.Available),
			Action: chat.SelectCoupon{CouponType: q.CouponType},
		}})
	}
	d.send(ctx, in.ChatID, "Select a coupon type:", inline(rows...))
	return nil
}

func (d *Dispatcher) showActivity(ctx context.Context, in chat.Intent) error {
	orders, err := d.users.RecentOrders(ctx, in.UserID, activityLimit)
	if err != nil {
		return err
	}
	deps, err := d.users.RecentDeposits(ctx, in.UserID, activityLimit)
	if err != nil {
		return err
	}
	d.send(ctx, in.ChatID, formatActivity(orders, deps), nil)
	return nil
}

func (d *Dispatcher) onStartDeposit(ctx context.Context, in chat.Intent, a chat.StartDeposit) (string, error) {
	err := d.deposits.Start(ctx, in.UserID, a.Method)
	if errors.Is(err, deposit.ErrMethodUnavailable) {
		return "This payment method is not available.", nil
	}
	if err != nil {
		return "", err
	}
	minimum := d.deposits.MinDiamonds()
	if a.Method == deposit.MethodAmazon {
		d.send(ctx, in.ChatID, fmt.Sprintf("Enter the number of diamonds to add (Method: %s):\nMinimum is %d", deposit.MethodLabel(a.Method), minimum), nil)
		return "", nil
	}
	d.send(ctx, in.ChatID, fmt.Sprintf("Enter diamonds amount you want to add (Minimum %d):", minimum), nil)
	return "", nil
}

func (d *Dispatcher) onDepositAmount(ctx context.Context, in chat.Intent, s convo.DepositAmount, text string) error {
	if in.Kind == chat.KindPhoto {
		d.send(ctx, in.ChatID, fmt.Sprintf("❌ Send diamonds as a number (minimum %d).", d.deposits.MinDiamonds()), nil)
		return nil
	}

	inv, err := d.deposits.SubmitAmount(ctx, in.UserID, s.Method, text)
	switch {
	case errors.Is(err, deposit.ErrAmountInvalid):
		d.send(ctx, in.ChatID, fmt.Sprintf("❌ Minimum is %d diamonds. Send a whole number again:", d.deposits.MinDiamonds()), nil)
		return nil
	case errors.Is(err, deposit.ErrPaymentUnavailable):
		d.send(ctx, in.ChatID, "⚠️ UPI QR is not set yet. Please try later.", nil)
		return nil
	case errors.Is(err, deposit.ErrMethodUnavailable):
		d.send(ctx, in.ChatID, "⚠️ This payment method is not available right now.", nil)
		return nil
	case err != nil:
		return err
	}

	summary := formatInvoice(inv.Deposit, d.deposits.Rate(), d.now())
	if inv.Deposit.Method == deposit.MethodAmazon {
		d.send(ctx, in.ChatID, summary, inline(
			[]chat.Button{{Label: "Submit a Gift Card", Action: chat.ConfirmPayment{Method: inv.Deposit.Method, DepositID: inv.Deposit.ID}}},
		))
		return nil
	}
	d.sendPhoto(ctx, in.ChatID, inv.QRRef, summary, inline(
		[]chat.Button{{Label: "✅ I have done the payment", Action: chat.ConfirmPayment{Method: inv.Deposit.Method, DepositID: inv.Deposit.ID}}},
	))
	return nil
}

func (d *Dispatcher) onConfirmPayment(ctx context.Context, in chat.Intent, a chat.ConfirmPayment) (string, error) {
	dep, err := d.deposits.ConfirmPayment(ctx, in.UserID, a.Method, a.DepositID)
	if errors.Is(err, deposit.ErrNotFound) {
		return "Invalid request.", nil
	}
	if err != nil {
		return "", err
	}
	if dep.Method == deposit.MethodAmazon {
		d.send(ctx, in.ChatID, "Enter your Amazon Gift Card amount / code:", nil)
		return "", nil
	}
	d.send(ctx, in.ChatID, "What is the payer name? (Name used in UPI payment)", nil)
	return "", nil
}

func (d *Dispatcher) onGiftCard(ctx context.Context, in chat.Intent, s convo.DepositGiftCard, text string) error {
	if in.Kind == chat.KindPhoto {
		d.send(ctx, in.ChatID, "❌ Send the gift card amount / code as text:", nil)
		return nil
	}

	err := d.deposits.SubmitGiftCard(ctx, in.UserID, s.DepositID, text)
	switch {
	case errors.Is(err, deposit.ErrGiftCardInvalid):
		d.send(ctx, in.ChatID, "❌ Send the gift card amount / code as text:", nil)
		return nil
	case errors.Is(err, deposit.ErrNotFound):
		d.send(ctx, in.ChatID, "❌ This deposit is no longer open. Start again from "+labelAddDiamonds+".", nil)
		return nil
	case err != nil:
		return err
	}
	d.send(ctx, in.ChatID, "📸 Now upload a screenshot of the gift card:", nil)
	return nil
}

func (d *Dispatcher) onPayerName(ctx context.Context, in chat.Intent, s convo.DepositPayerName, text string) error {
	if in.Kind == chat.KindPhoto {
		d.send(ctx, in.ChatID, "❌ Enter a valid payer name:", nil)
		return nil
	}

	err := d.deposits.SubmitPayerName(ctx, in.UserID, s.DepositID, text)
	switch {
	case errors.Is(err, deposit.ErrPayerNameInvalid):
		d.send(ctx, in.ChatID, "❌ Enter a valid payer name:", nil)
		return nil
	case errors.Is(err, deposit.ErrNotFound):
		d.send(ctx, in.ChatID, "❌ This deposit is no longer open. Start again from "+labelAddDiamonds+".", nil)
		return nil
	case err != nil:
		return err
	}
	d.send(ctx, in.ChatID, "📸 Now send the payment screenshot (photo).", nil)
	return nil
}

func (d *Dispatcher) onScreenshot(ctx context.Context, in chat.Intent, s convo.DepositScreenshot) error {
	if in.Kind != chat.KindPhoto || in.PhotoRef == "" {
		d.send(ctx, in.ChatID, "❌ Please send the screenshot as a photo.", nil)
		return nil
	}

	dep, err := d.deposits.SubmitScreenshot(ctx, in.UserID, s.DepositID, in.PhotoRef)
	if errors.Is(err, deposit.ErrNotFound) {
		d.send(ctx, in.ChatID, "❌ This deposit is no longer open. Start again from "+labelAddDiamonds+".", nil)
		return nil
	}
	if err != nil {
		return err
	}

	if dep.Method == deposit.MethodAmazon {
		d.send(ctx, in.ChatID, "⏳ Admin is checking your code. Wait for approval.", nil)
	} else {
		d.send(ctx, in.ChatID, "⏳ Payment submitted.\nAdmin will review and approve soon.", nil)
	}

	caption := formatSubmission(dep, in.Handle)
	review := inline(
		[]chat.Button{{Label: "✅ Accept", Action: chat.ApproveDeposit{DepositID: dep.ID}}},
		[]chat.Button{{Label: "❌ Decline", Action: chat.DeclineDeposit{DepositID: dep.ID}}},
	)
	for _, adminID := range d.adminIDs {
		d.sendPhoto(ctx, adminID, in.PhotoRef, caption, review)
	}
	return nil
}

func (d *Dispatcher) onSelectCoupon(ctx context.Context, in chat.Intent, a chat.SelectCoupon) (string, error) {
	catalog := d.inventory.Catalog()
	if !catalog.Has(a.CouponType) {
		return "This coupon is no longer available.", nil
	}
	if err := d.states.Set(ctx, in.UserID, convo.PurchaseQuantity{CouponType: a.CouponType}); err != nil {
		return "", err
	}
	q := d.inventory.Quote(ctx, a.CouponType)
	d.send(ctx, in.ChatID, fmt.Sprintf("How many %s coupons do you want to buy?\nPrice: %d 💎 each | Stock: %d\nPlease send the quantity:",
		catalog.Label(a.CouponType), q.Price, q.Available), nil)
	return "", nil
}

func (d *Dispatcher) onQuantity(ctx context.Context, in chat.Intent, s convo.PurchaseQuantity, text string) error {
	qty, ok := parsePositive(text)
	if in.Kind == chat.KindPhoto || !ok {
		d.send(ctx, in.ChatID, "❌ Send a valid quantity number.", nil)
		return nil
	}

	res, err := d.inventory.Purchase(ctx, in.UserID, s.CouponType, int(qty))
	if errors.Is(err, inventory.ErrUnknownType) {
		d.send(ctx, in.ChatID, "❌ This coupon is no longer available.", nil)
		return d.states.Clear(ctx, in.UserID)
	}
	if err != nil {
		return err
	}
	if err := d.states.Clear(ctx, in.UserID); err != nil {
		d.logger.Warn("clear state after purchase", "user_id", in.UserID, "error", err)
	}

	switch res.Outcome {
	case inventory.Purchased:
		d.deliverCodes(ctx, in.ChatID, res.Codes)
	case inventory.InsufficientStock:
		d.send(ctx, in.ChatID, fmt.Sprintf("❌ Not enough stock! Available: %d", res.Available), nil)
	case inventory.InsufficientBalance:
		d.send(ctx, in.ChatID, fmt.Sprintf("❌ Not enough diamonds!\nNeeded: %d | You have: %d", res.Needed, res.Have), nil)
	case inventory.StockRace:
		d.send(ctx, in.ChatID, "❌ Stock changed. Try again.", nil)
	}
	return nil
}

// deliverCodes sends purchased codes in bounded chunks.
func (d *Dispatcher) deliverCodes(ctx context.Context, chatID int64, codes []string) {
	header := "✅ Purchase Successful!\n\nHere are your coupons:\n\n"
	for start := 0; start < len(codes); start += codesPerReply {
		end := min(start+codesPerReply, len(codes))
		d.send(ctx, chatID, header+strings.Join(codes[start:end], "\n"), nil)
		header = "🎟️ Your Coupons:\n"
	}
}
