package deposit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"

	"coupon-bot/internal/convo"
	"coupon-bot/internal/metrics"
	"coupon-bot/internal/repo"

	"github.com/go-playground/validator/v10"
)

// Payment methods a deposit can be paid with.
const (
	MethodUPI    = "upi"
	MethodAmazon = "amazon"
)

// MethodLabel is the user-facing name of a payment method.
func MethodLabel(method string) string {
	switch method {
	case MethodUPI:
		return "UPI"
	case MethodAmazon:
		return "Amazon Gift Card"
	default:
		return strings.ToUpper(method)
	}
}

var (
	// ErrAmountInvalid is returned for non-numeric amounts or amounts below the minimum.
	ErrAmountInvalid = errors.New("invalid deposit amount")
	// ErrPayerNameInvalid is returned for payer names that are too short.
	ErrPayerNameInvalid = errors.New("invalid payer name")
	// ErrGiftCardInvalid is returned for empty or oversized gift card text.
	ErrGiftCardInvalid = errors.New("invalid gift card")
	// ErrPaymentUnavailable is returned when no payment QR has been configured.
	ErrPaymentUnavailable = errors.New("payment qr not configured")
	// ErrMethodUnavailable is returned for payment methods that are not enabled.
	ErrMethodUnavailable = errors.New("payment method not enabled")
	// ErrNotFound covers deposits that do not exist, belong to someone else
	// or are no longer in a state that accepts the request.
	ErrNotFound = errors.New("deposit not found")
)

// Store is the slice of the ledger the workflow needs.
type Store interface {
	CreateDeposit(ctx context.Context, dep repo.NewDeposit) (*repo.Deposit, error)
	GetDeposit(ctx context.Context, id int64) (*repo.Deposit, error)
	SetPayerName(ctx context.Context, id, userID int64, name string) error
	SetGiftCard(ctx context.Context, id, userID int64, giftCard string) error
	SubmitScreenshot(ctx context.Context, id, userID int64, ref string) (*repo.Deposit, error)
	GetSetting(ctx context.Context, name string) (string, error)
	PutSetting(ctx context.Context, name, value string) error
	WithTx(ctx context.Context, fn func(*repo.Tx) error) error
}

// States is the conversation storage the workflow advances.
type States interface {
	Set(ctx context.Context, userID int64, s convo.State) error
	Clear(ctx context.Context, userID int64) error
}

// Config tunes the deposit rules.
type Config struct {
	MinDiamonds int64
	// Rate is the payment amount charged per diamond.
	Rate int64
	// Methods lists the enabled payment methods in menu order.
	Methods []string
}

// Invoice is what the user must pay for a freshly opened deposit. QRRef is
// set for UPI deposits only.
type Invoice struct {
	Deposit *repo.Deposit
	QRRef   string
}

// Outcome classifies an administrator decision.
type Outcome int

const (
	Approved Outcome = iota
	AlreadyApproved
	Declined
)

func (o Outcome) String() string {
	switch o {
	case Approved:
		return "approved"
	case AlreadyApproved:
		return "already_approved"
	case Declined:
		return "declined"
	default:
		return "unknown"
	}
}

// Decision is the result of approving or declining a deposit.
type Decision struct {
	Outcome Outcome
	Deposit *repo.Deposit
	// Balance is the user's balance after crediting; set on Approved only.
	Balance int64
}

// Workflow drives deposits from amount entry to an administrator decision.
type Workflow struct {
	store    Store
	states   States
	cfg      Config
	validate *validator.Validate
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// New constructs a deposit workflow.
func New(store Store, states States, cfg Config, metricRegistry *metrics.Metrics, logger *slog.Logger) *Workflow {
	if cfg.Rate <= 0 {
		cfg.Rate = 1
	}
	if cfg.MinDiamonds <= 0 {
		cfg.MinDiamonds = 1
	}
	if len(cfg.Methods) == 0 {
		cfg.Methods = []string{MethodUPI}
	}
	return &Workflow{
		store:    store,
		states:   states,
		cfg:      cfg,
		validate: validator.New(),
		metrics:  metricRegistry,
		logger:   logger.With("component", "deposit"),
	}
}

// Methods lists the enabled payment methods.
func (w *Workflow) Methods() []string { return slices.Clone(w.cfg.Methods) }

// Accepts reports whether deposits may be paid with method.
func (w *Workflow) Accepts(method string) bool { return slices.Contains(w.cfg.Methods, method) }

// MinDiamonds is the smallest accepted deposit.
func (w *Workflow) MinDiamonds() int64 { return w.cfg.MinDiamonds }

// Rate is the payment amount per diamond.
func (w *Workflow) Rate() int64 { return w.cfg.Rate }

// Start puts the user into amount entry for method. No deposit exists yet.
func (w *Workflow) Start(ctx context.Context, userID int64, method string) error {
	if !w.Accepts(method) {
		return ErrMethodUnavailable
	}
	return w.states.Set(ctx, userID, convo.DepositAmount{Method: method})
}

// SubmitAmount opens a pending deposit for the typed number of diamonds and
// advances to the method's detail step. An invalid amount leaves the state in
// place. UPI deposits need a payment QR to be configured.
func (w *Workflow) SubmitAmount(ctx context.Context, userID int64, method, text string) (*Invoice, error) {
	if !w.Accepts(method) {
		if err := w.states.Clear(ctx, userID); err != nil {
			return nil, err
		}
		return nil, ErrMethodUnavailable
	}
	diamonds, ok := parseAmount(text)
	if !ok || diamonds < w.cfg.MinDiamonds || diamonds > math.MaxInt64/w.cfg.Rate {
		return nil, ErrAmountInvalid
	}

	var qr string
	if method == MethodUPI {
		var err error
		if qr, err = w.PaymentQR(ctx); err != nil {
			return nil, err
		}
		if qr == "" {
			if err := w.states.Clear(ctx, userID); err != nil {
				return nil, err
			}
			return nil, ErrPaymentUnavailable
		}
	}

	dep, err := w.store.CreateDeposit(ctx, repo.NewDeposit{
		UserID:        userID,
		Method:        method,
		Diamonds:      diamonds,
		PaymentAmount: diamonds * w.cfg.Rate,
	})
	if err != nil {
		w.fail("create deposit", err, "user_id", userID)
		return nil, err
	}
	if err := w.states.Set(ctx, userID, detailStep(dep)); err != nil {
		return nil, err
	}

	w.transition("created")
	w.logger.Info("deposit opened", "deposit_id", dep.ID, "user_id", userID, "method", method, "diamonds", diamonds)
	return &Invoice{Deposit: dep, QRRef: qr}, nil
}

// ConfirmPayment records that the user says they paid, or is ready to hand in
// a gift card, and moves to the method's detail step. Only the owner of a
// pending deposit paid with method may confirm, and method must be enabled.
func (w *Workflow) ConfirmPayment(ctx context.Context, userID int64, method string, depositID int64) (*repo.Deposit, error) {
	dep, err := w.store.GetDeposit(ctx, depositID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if dep.UserID != userID || dep.Method != method || !w.Accepts(method) || dep.Status != repo.DepositPending {
		return nil, ErrNotFound
	}
	if err := w.states.Set(ctx, userID, detailStep(dep)); err != nil {
		return nil, err
	}
	w.transition("confirmed")
	return dep, nil
}

// SubmitPayerName stores the payer name and advances to screenshot upload.
func (w *Workflow) SubmitPayerName(ctx context.Context, userID, depositID int64, text string) error {
	name := strings.TrimSpace(text)
	if err := w.validate.Var(name, "min=2,max=128"); err != nil {
		return ErrPayerNameInvalid
	}

	if err := w.store.SetPayerName(ctx, depositID, userID, name); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return w.abandon(ctx, userID)
		}
		w.fail("set payer name", err, "deposit_id", depositID)
		return err
	}
	if err := w.states.Set(ctx, userID, convo.DepositScreenshot{DepositID: depositID}); err != nil {
		return err
	}
	w.transition("payer_named")
	return nil
}

// SubmitGiftCard stores the gift card amount and code and advances to
// screenshot upload.
func (w *Workflow) SubmitGiftCard(ctx context.Context, userID, depositID int64, text string) error {
	card := strings.TrimSpace(text)
	if err := w.validate.Var(card, "min=2,max=512"); err != nil {
		return ErrGiftCardInvalid
	}

	if err := w.store.SetGiftCard(ctx, depositID, userID, card); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return w.abandon(ctx, userID)
		}
		w.fail("set gift card", err, "deposit_id", depositID)
		return err
	}
	if err := w.states.Set(ctx, userID, convo.DepositScreenshot{DepositID: depositID}); err != nil {
		return err
	}
	w.transition("gift_card_entered")
	return nil
}

// SubmitScreenshot attaches the payment proof, marks the deposit submitted and
// ends the user's flow. The returned deposit is ready for review.
func (w *Workflow) SubmitScreenshot(ctx context.Context, userID, depositID int64, photoRef string) (*repo.Deposit, error) {
	dep, err := w.store.SubmitScreenshot(ctx, depositID, userID, photoRef)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, w.abandon(ctx, userID)
		}
		w.fail("submit screenshot", err, "deposit_id", depositID)
		return nil, err
	}
	if err := w.states.Clear(ctx, userID); err != nil {
		return nil, err
	}
	w.transition("submitted")
	w.logger.Info("deposit submitted", "deposit_id", dep.ID, "user_id", userID)
	return dep, nil
}

// Approve credits the deposit to the user exactly once.
func (w *Workflow) Approve(ctx context.Context, depositID int64) (Decision, error) {
	var d Decision
	err := w.store.WithTx(ctx, func(tx *repo.Tx) error {
		dep, err := tx.LockDeposit(ctx, depositID)
		if err != nil {
			return err
		}
		if dep.Status == repo.DepositApproved {
			d = Decision{Outcome: AlreadyApproved, Deposit: dep}
			return nil
		}

		if err := tx.SetDepositStatus(ctx, dep.ID, repo.DepositApproved); err != nil {
			return err
		}
		if err := tx.AdjustBalance(ctx, dep.UserID, dep.Diamonds); err != nil {
			return err
		}
		balance, err := tx.GetBalance(ctx, dep.UserID)
		if err != nil {
			return err
		}
		dep.Status = repo.DepositApproved
		d = Decision{Outcome: Approved, Deposit: dep, Balance: balance}
		return nil
	})
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return Decision{}, ErrNotFound
		}
		w.fail("approve deposit", err, "deposit_id", depositID)
		return Decision{}, fmt.Errorf("approve deposit %d: %w", depositID, err)
	}

	w.transition(d.Outcome.String())
	if d.Outcome == Approved {
		w.logger.Info("deposit approved", "deposit_id", depositID, "user_id", d.Deposit.UserID, "diamonds", d.Deposit.Diamonds)
	}
	return d, nil
}

// Decline rejects a deposit. An approved deposit is never downgraded.
func (w *Workflow) Decline(ctx context.Context, depositID int64) (Decision, error) {
	var d Decision
	err := w.store.WithTx(ctx, func(tx *repo.Tx) error {
		dep, err := tx.LockDeposit(ctx, depositID)
		if err != nil {
			return err
		}
		if dep.Status == repo.DepositApproved {
			d = Decision{Outcome: AlreadyApproved, Deposit: dep}
			return nil
		}
		if err := tx.SetDepositStatus(ctx, dep.ID, repo.DepositDeclined); err != nil {
			return err
		}
		dep.Status = repo.DepositDeclined
		d = Decision{Outcome: Declined, Deposit: dep}
		return nil
	})
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return Decision{}, ErrNotFound
		}
		w.fail("decline deposit", err, "deposit_id", depositID)
		return Decision{}, fmt.Errorf("decline deposit %d: %w", depositID, err)
	}

	if d.Outcome == AlreadyApproved {
		w.transition("decline_ignored")
	} else {
		w.transition(d.Outcome.String())
		w.logger.Info("deposit declined", "deposit_id", depositID, "user_id", d.Deposit.UserID)
	}
	return d, nil
}

// PaymentQR returns the configured QR image reference, empty when unset.
func (w *Workflow) PaymentQR(ctx context.Context) (string, error) {
	ref, err := w.store.GetSetting(ctx, repo.SettingPaymentQR)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", nil
		}
		w.fail("read payment qr", err)
		return "", err
	}
	return ref, nil
}

// SetPaymentQR replaces the QR image shown to paying users.
func (w *Workflow) SetPaymentQR(ctx context.Context, ref string) error {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return fmt.Errorf("empty payment qr reference")
	}
	if err := w.store.PutSetting(ctx, repo.SettingPaymentQR, ref); err != nil {
		w.fail("store payment qr", err)
		return err
	}
	w.logger.Info("payment qr updated")
	return nil
}

// detailStep is where a pending deposit collects its method-specific proof.
func detailStep(dep *repo.Deposit) convo.State {
	if dep.Method == MethodAmazon {
		return convo.DepositGiftCard{DepositID: dep.ID}
	}
	return convo.DepositPayerName{DepositID: dep.ID}
}

func (w *Workflow) abandon(ctx context.Context, userID int64) error {
	if err := w.states.Clear(ctx, userID); err != nil {
		return err
	}
	return ErrNotFound
}

// parseAmount accepts plain decimal digits only.
func parseAmount(text string) (int64, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, false
	}
	for _, r := range text {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func (w *Workflow) transition(name string) {
	if w.metrics != nil {
		w.metrics.DepositTransitions.WithLabelValues(name).Inc()
	}
}

func (w *Workflow) fail(op string, err error, attrs ...any) {
	if w.metrics != nil {
		w.metrics.Errors.WithLabelValues("deposit").Inc()
	}
	w.logger.Error(op+" failed", append([]any{"error", err}, attrs...)...)
}
