package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"coupon-bot/internal/chat"
	"coupon-bot/internal/convo"
	"coupon-bot/internal/deposit"
	"coupon-bot/internal/inventory"
	"coupon-bot/internal/metrics"
	"coupon-bot/internal/repo"
)

const (
	activityLimit  = 10
	codesPerReply  = 25
	timeLayout     = "2006-01-02 15:04:05"
	genericFailure = "⚠️ Server error. Please try again later."
)

// Users is the slice of the ledger the dispatcher reads directly.
type Users interface {
	UpsertUser(ctx context.Context, id int64, handle string) error
	GetBalance(ctx context.Context, id int64) (int64, error)
	RecentOrders(ctx context.Context, userID int64, limit int) ([]repo.Order, error)
	RecentDeposits(ctx context.Context, userID int64, limit int) ([]repo.Deposit, error)
}

// Config carries dispatcher settings.
type Config struct {
	AdminIDs []int64
	// Now overrides the clock used in user-facing timestamps.
	Now func() time.Time
}

// Dispatcher routes intents to the engines and replies through the notifier.
type Dispatcher struct {
	users     Users
	states    *convo.Machine
	inventory *inventory.Engine
	deposits  *deposit.Workflow
	notifier  chat.Notifier
	admins    map[int64]struct{}
	adminIDs  []int64
	now       func() time.Time
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// New wires a dispatcher.
func New(users Users, states *convo.Machine, inv *inventory.Engine, deposits *deposit.Workflow, notifier chat.Notifier, cfg Config, metricRegistry *metrics.Metrics, logger *slog.Logger) *Dispatcher {
	d := &Dispatcher{
		users:     users,
		states:    states,
		inventory: inv,
		deposits:  deposits,
		notifier:  notifier,
		admins:    make(map[int64]struct{}, len(cfg.AdminIDs)),
		now:       cfg.Now,
		metrics:   metricRegistry,
		logger:    logger.With("component", "dispatch"),
	}
	for _, id := range cfg.AdminIDs {
		if _, dup := d.admins[id]; dup {
			continue
		}
		d.admins[id] = struct{}{}
		d.adminIDs = append(d.adminIDs, id)
	}
	if d.now == nil {
		d.now = time.Now
	}
	return d
}

// IsAdmin reports whether the user may use administrator features.
func (d *Dispatcher) IsAdmin(userID int64) bool {
	_, ok := d.admins[userID]
	return ok
}

// Dispatch handles one intent to completion. Storage failures are answered
// with an apology, the user's flow is reset, and the error is returned for
// logging. Outbound delivery failures are never returned.
func (d *Dispatcher) Dispatch(ctx context.Context, in chat.Intent) error {
	if in.UserID == 0 {
		return nil
	}
	if in.ChatID == 0 {
		in.ChatID = in.UserID
	}
	isAdmin := d.IsAdmin(in.UserID)

	if err := d.users.UpsertUser(ctx, in.UserID, in.Handle); err != nil {
		return d.failed(ctx, in, fmt.Errorf("upsert user: %w", err))
	}

	var err error
	if in.Kind == chat.KindButton {
		err = d.handleButton(ctx, in, isAdmin)
	} else {
		err = d.handleMessage(ctx, in, isAdmin)
	}
	if err != nil {
		return d.failed(ctx, in, err)
	}
	return nil
}

func (d *Dispatcher) handleMessage(ctx context.Context, in chat.Intent, isAdmin bool) error {
	text := strings.TrimSpace(in.Text)

	if in.Kind == chat.KindCommand {
		switch in.Command {
		case "start":
			return d.showMainMenu(ctx, in, isAdmin, "Welcome ✅\n\nUse the menu below.")
		case "admin":
			if isAdmin {
				return d.showAdminPanel(ctx, in)
			}
			d.drop(in, "admin command from non-admin")
			return nil
		}
		// Other commands never count as step input.
		d.drop(in, "unknown command")
		return nil
	}

	if in.Kind != chat.KindPhoto {
		if cmd, ok := resolveMenu(text, isAdmin); ok {
			return d.runMenu(ctx, in, cmd, isAdmin)
		}
	}

	state, err := d.states.Get(ctx, in.UserID)
	if err != nil {
		return err
	}
	if state == nil {
		d.drop(in, "no active step")
		return nil
	}
	if convo.AdminOnly(state) && !isAdmin {
		d.drop(in, "admin step for non-admin")
		return d.states.Clear(ctx, in.UserID)
	}
	return d.continueFlow(ctx, in, state, text)
}

func (d *Dispatcher) runMenu(ctx context.Context, in chat.Intent, cmd menuCommand, isAdmin bool) error {
	if err := d.states.Clear(ctx, in.UserID); err != nil {
		return err
	}

	switch cmd {
	case menuBalance:
		return d.showBalance(ctx, in)
	case menuAddDiamonds:
		var rows [][]chat.Button
		for _, method := range d.deposits.Methods() {
			rows = append(rows, []chat.Button{{Label: methodIcon(method) + " " + deposit.MethodLabel(method), Action: chat.StartDeposit{Method: method}}})
		}
		d.send(ctx, in.ChatID, "💳 Select Payment Method:", inline(rows...))
		return nil
	case menuBuyCoupon:
		return d.showCatalog(ctx, in)
	case menuMyOrders:
		return d.showActivity(ctx, in)
	case menuAdminPanel:
		return d.showAdminPanel(ctx, in)
	case menuBackToUser:
		return d.showMainMenu(ctx, in, isAdmin, "⬅️ Back to user menu.")
	case menuViewStock:
		return d.showStock(ctx, in)
	case menuUpdateQR:
		if err := d.states.Set(ctx, in.UserID, convo.AdminPaymentQR{}); err != nil {
			return err
		}
		d.send(ctx, in.ChatID, "🧾 Send the NEW UPI QR image now (as a photo).", nil)
		return nil
	case menuAddCoupon:
		d.send(ctx, in.ChatID, "Choose coupon type to ADD:", d.typePicker(chat.OpAddCodes))
		return nil
	case menuRemoveCoupon:
		d.send(ctx, in.ChatID, "Choose coupon type to REMOVE:", d.typePicker(chat.OpRemoveCodes))
		return nil
	case menuChangePrice:
		d.send(ctx, in.ChatID, "Choose coupon type to CHANGE price:", d.typePicker(chat.OpSetPrice))
		return nil
	case menuFreeCoupon:
		d.send(ctx, in.ChatID, "Choose coupon type to GET for free:", d.typePicker(chat.OpFreeCoupon))
		return nil
	}
	return nil
}

func (d *Dispatcher) continueFlow(ctx context.Context, in chat.Intent, state convo.State, text string) error {
	switch s := state.(type) {
	case convo.DepositAmount:
		return d.onDepositAmount(ctx, in, s, text)
	case convo.DepositPayerName:
		return d.onPayerName(ctx, in, s, text)
	case convo.DepositGiftCard:
		return d.onGiftCard(ctx, in, s, text)
	case convo.DepositScreenshot:
		return d.onScreenshot(ctx, in, s)
	case convo.PurchaseQuantity:
		return d.onQuantity(ctx, in, s, text)
	case convo.AdminAddCodes:
		return d.onAddCodes(ctx, in, s)
	case convo.AdminRemoveCount:
		return d.onRemoveCount(ctx, in, s, text)
	case convo.AdminPrice:
		return d.onPrice(ctx, in, s, text)
	case convo.AdminPaymentQR:
		return d.onPaymentQR(ctx, in)
	}
	return d.states.Clear(ctx, in.UserID)
}

func (d *Dispatcher) handleButton(ctx context.Context, in chat.Intent, isAdmin bool) error {
	ack := ""
	defer func() { d.ackButton(ctx, in.PressID, ack) }()

	switch a := in.Action.(type) {
	case chat.StartDeposit:
		var err error
		ack, err = d.onStartDeposit(ctx, in, a)
		return err
	case chat.ConfirmPayment:
		var err error
		ack, err = d.onConfirmPayment(ctx, in, a)
		return err
	case chat.SelectCoupon:
		var err error
		ack, err = d.onSelectCoupon(ctx, in, a)
		return err
	case chat.AdminSelect:
		if !isAdmin {
			d.drop(in, "admin action from non-admin")
			return nil
		}
		return d.onAdminSelect(ctx, in, a)
	case chat.ApproveDeposit:
		if !isAdmin {
			d.drop(in, "admin action from non-admin")
			return nil
		}
		var err error
		ack, err = d.onApprove(ctx, a)
		return err
	case chat.DeclineDeposit:
		if !isAdmin {
			d.drop(in, "admin action from non-admin")
			return nil
		}
		var err error
		ack, err = d.onDecline(ctx, a)
		return err
	default:
		d.drop(in, "unrecognised button")
		return nil
	}
}

func (d *Dispatcher) showMainMenu(ctx context.Context, in chat.Intent, isAdmin bool, text string) error {
	if err := d.states.Clear(ctx, in.UserID); err != nil {
		return err
	}
	d.send(ctx, in.ChatID, text, mainKeyboard(isAdmin))
	return nil
}

func (d *Dispatcher) showAdminPanel(ctx context.Context, in chat.Intent) error {
	if err := d.states.Clear(ctx, in.UserID); err != nil {
		return err
	}
	d.send(ctx, in.ChatID, "🛠 Admin Panel", adminKeyboard())
	return nil
}

func (d *Dispatcher) typePicker(op chat.AdminOp) *chat.Keyboard {
	catalog := d.inventory.Catalog()
	var rows [][]chat.Button
	var row []chat.Button
	for _, t := range catalog.Types() {
		row = append(row, chat.Button{Label: catalog.Label(t), Action: chat.AdminSelect{Op: op, CouponType: t}})
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return inline(rows...)
}

// send delivers a message best-effort. Failures are logged and counted only.
func (d *Dispatcher) send(ctx context.Context, chatID int64, text string, kb *chat.Keyboard) {
	if err := d.notifier.SendText(ctx, chatID, text, kb); err != nil {
		d.notifyFailed("send text", chatID, err)
	}
}

func (d *Dispatcher) sendPhoto(ctx context.Context, chatID int64, photoRef, caption string, kb *chat.Keyboard) {
	if err := d.notifier.SendPhoto(ctx, chatID, photoRef, caption, kb); err != nil {
		d.notifyFailed("send photo", chatID, err)
	}
}

func (d *Dispatcher) ackButton(ctx context.Context, pressID, text string) {
	if pressID == "" {
		return
	}
	if err := d.notifier.AckButton(ctx, pressID, text); err != nil {
		d.notifyFailed("ack button", 0, err)
	}
}

func (d *Dispatcher) notifyFailed(op string, chatID int64, err error) {
	if d.metrics != nil {
		d.metrics.Errors.WithLabelValues("notify").Inc()
	}
	d.logger.Warn(op+" failed", "chat_id", chatID, "error", err)
}

func (d *Dispatcher) drop(in chat.Intent, reason string) {
	if d.metrics != nil {
		d.metrics.IncomingUpdates.WithLabelValues("dropped").Inc()
	}
	d.logger.Debug("intent dropped", "user_id", in.UserID, "kind", in.Kind.String(), "reason", reason)
}

func (d *Dispatcher) failed(ctx context.Context, in chat.Intent, err error) error {
	if d.metrics != nil {
		d.metrics.Errors.WithLabelValues("dispatch").Inc()
	}
	if clearErr := d.states.Clear(ctx, in.UserID); clearErr != nil {
		d.logger.Warn("reset state after failure", "user_id", in.UserID, "error", clearErr)
	}
	d.send(ctx, in.ChatID, genericFailure, nil)
	return err
}
