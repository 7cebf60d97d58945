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

func (d *Dispatcher) showStock(ctx context.Context, in chat.Intent) error {
	qr, err := d.deposits.PaymentQR(ctx)
	if err != nil {
		return err
	}
	d.send(ctx, in.ChatID, formatStock(d.inventory.Catalog(), d.inventory.Overview(ctx), qr != ""), nil)
	return nil
}

func (d *Dispatcher) onAdminSelect(ctx context.Context, in chat.Intent, a chat.AdminSelect) error {
	catalog := d.inventory.Catalog()
	if !catalog.Has(a.CouponType) {
		d.drop(in, "admin action for unknown coupon type")
		return nil
	}
	label := catalog.Label(a.CouponType)

	switch a.Op {
	case chat.OpAddCodes:
		if err := d.states.Set(ctx, in.UserID, convo.AdminAddCodes{CouponType: a.CouponType}); err != nil {
			return err
		}
		d.send(ctx, in.ChatID, fmt.Sprintf("Send coupon codes for %s (one per line):", label), nil)
	case chat.OpRemoveCodes:
		if err := d.states.Set(ctx, in.UserID, convo.AdminRemoveCount{CouponType: a.CouponType}); err != nil {
			return err
		}
		d.send(ctx, in.ChatID, fmt.Sprintf("How many unused %s coupons do you want to remove? Send number:", label), nil)
	case chat.OpSetPrice:
		if err := d.states.Set(ctx, in.UserID, convo.AdminPrice{CouponType: a.CouponType}); err != nil {
			return err
		}
		price, err := d.inventory.Price(ctx, a.CouponType)
		if err != nil {
			return err
		}
		d.send(ctx, in.ChatID, fmt.Sprintf("Current price of %s: %d💎\nSend NEW price (diamonds) for %s:", label, price, label), nil)
	case chat.OpFreeCoupon:
		code, err := d.inventory.IssueFree(ctx, a.CouponType)
		if errors.Is(err, inventory.ErrNoStock) {
			d.send(ctx, in.ChatID, fmt.Sprintf("❌ No stock available for %s.", label), nil)
			return nil
		}
		if err != nil {
			return err
		}
		d.send(ctx, in.ChatID, fmt.Sprintf("🎁 Free %s Coupon:\n\n%s", label, code), nil)
	}
	return nil
}

func (d *Dispatcher) onAddCodes(ctx context.Context, in chat.Intent, s convo.AdminAddCodes) error {
	if in.Kind == chat.KindPhoto {
		d.send(ctx, in.ChatID, "❌ Send codes line-by-line.", nil)
		return nil
	}
	label := d.inventory.Catalog().Label(s.CouponType)

	added, err := d.inventory.AddStock(ctx, s.CouponType, strings.Split(in.Text, "\n"))
	if errors.Is(err, inventory.ErrNoCodes) {
		d.send(ctx, in.ChatID, "❌ Send codes line-by-line.", nil)
		return nil
	}
	if err != nil {
		return err
	}
	if err := d.states.Clear(ctx, in.UserID); err != nil {
		return err
	}
	d.send(ctx, in.ChatID, fmt.Sprintf("✅ Added %d coupons to %s.", added, label), nil)
	return nil
}

func (d *Dispatcher) onRemoveCount(ctx context.Context, in chat.Intent, s convo.AdminRemoveCount, text string) error {
	count, ok := parsePositive(text)
	if in.Kind == chat.KindPhoto || !ok {
		d.send(ctx, in.ChatID, "❌ Send a valid number.", nil)
		return nil
	}
	label := d.inventory.Catalog().Label(s.CouponType)

	removed, err := d.inventory.RemoveStock(ctx, s.CouponType, int(count))
	if err != nil {
		return err
	}
	if err := d.states.Clear(ctx, in.UserID); err != nil {
		return err
	}
	d.send(ctx, in.ChatID, fmt.Sprintf("✅ Removed %d unused coupons from %s.", removed, label), nil)
	return nil
}

func (d *Dispatcher) onPrice(ctx context.Context, in chat.Intent, s convo.AdminPrice, text string) error {
	price, ok := parseNonNegative(text)
	if in.Kind == chat.KindPhoto || !ok {
		d.send(ctx, in.ChatID, "❌ Send a valid price number.", nil)
		return nil
	}
	label := d.inventory.Catalog().Label(s.CouponType)

	if err := d.inventory.SetPrice(ctx, s.CouponType, price); err != nil {
		if errors.Is(err, inventory.ErrInvalidPrice) {
			d.send(ctx, in.ChatID, fmt.Sprintf("❌ Price must be between 0 and %d.", inventory.MaxPrice), nil)
			return nil
		}
		return err
	}
	if err := d.states.Clear(ctx, in.UserID); err != nil {
		return err
	}
	d.send(ctx, in.ChatID, fmt.Sprintf("✅ Price updated: %s => %d💎", label, price), nil)
	return nil
}

func (d *Dispatcher) onPaymentQR(ctx context.Context, in chat.Intent) error {
	if in.Kind != chat.KindPhoto || in.PhotoRef == "" {
		d.send(ctx, in.ChatID, "❌ Please send the QR as a photo.", nil)
		return nil
	}
	if err := d.deposits.SetPaymentQR(ctx, in.PhotoRef); err != nil {
		return err
	}
	if err := d.states.Clear(ctx, in.UserID); err != nil {
		return err
	}
	d.send(ctx, in.ChatID, "✅ UPI QR updated successfully.", nil)
	return nil
}

func (d *Dispatcher) onApprove(ctx context.Context, a chat.ApproveDeposit) (string, error) {
	dec, err := d.deposits.Approve(ctx, a.DepositID)
	if errors.Is(err, deposit.ErrNotFound) {
		return "Not found", nil
	}
	if err != nil {
		return "", err
	}

	if dec.Outcome == deposit.AlreadyApproved {
		return "Already approved", nil
	}
	d.send(ctx, dec.Deposit.UserID, fmt.Sprintf("✅ Payment Approved!\n%d Diamonds added to your balance.\n💎 New Balance: %d Diamonds",
		dec.Deposit.Diamonds, dec.Balance), nil)
	return "Approved ✅", nil
}

func (d *Dispatcher) onDecline(ctx context.Context, a chat.DeclineDeposit) (string, error) {
	dec, err := d.deposits.Decline(ctx, a.DepositID)
	if errors.Is(err, deposit.ErrNotFound) {
		return "Not found", nil
	}
	if err != nil {
		return "", err
	}

	if dec.Outcome == deposit.AlreadyApproved {
		d.send(ctx, dec.Deposit.UserID, fmt.Sprintf("ℹ️ Deposit #%d was already approved. Your balance is unaffected.", dec.Deposit.ID), nil)
		return "Already approved", nil
	}
	d.send(ctx, dec.Deposit.UserID, "❌ Payment Declined.", nil)
	return "Declined ❌", nil
}
