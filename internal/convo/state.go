package convo

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Step names a conversation step as persisted.
type Step string

const (
	StepDepositAmount     Step = "deposit_amount"
	StepDepositPayerName  Step = "deposit_payer_name"
	StepDepositGiftCard   Step = "deposit_gift_card"
	StepDepositScreenshot Step = "deposit_screenshot"
	StepPurchaseQuantity  Step = "purchase_quantity"
	StepAdminAddCodes     Step = "admin_add_codes"
	StepAdminRemoveCount  Step = "admin_remove_count"
	StepAdminPrice        Step = "admin_price"
	StepAdminPaymentQR    Step = "admin_payment_qr"
)

// ErrUnknownStep is returned when a stored step cannot be decoded.
var ErrUnknownStep = errors.New("unknown conversation step")

// State is the multi-step flow a user is currently in.
type State interface {
	Step() Step
}

// DepositAmount waits for the number of diamonds to buy with a payment method.
type DepositAmount struct {
	Method string `json:"method"`
}

// DepositPayerName waits for the name the payment was sent from.
type DepositPayerName struct {
	DepositID int64 `json:"deposit_id"`
}

// DepositGiftCard waits for the gift card amount and code.
type DepositGiftCard struct {
	DepositID int64 `json:"deposit_id"`
}

// DepositScreenshot waits for a photo of the payment.
type DepositScreenshot struct {
	DepositID int64 `json:"deposit_id"`
}

// PurchaseQuantity waits for how many codes of a type to buy.
type PurchaseQuantity struct {
	CouponType string `json:"coupon_type"`
}

// AdminAddCodes waits for codes to append, one per line.
type AdminAddCodes struct {
	CouponType string `json:"coupon_type"`
}

// AdminRemoveCount waits for how many unused codes to delete.
type AdminRemoveCount struct {
	CouponType string `json:"coupon_type"`
}

// AdminPrice waits for the new unit price.
type AdminPrice struct {
	CouponType string `json:"coupon_type"`
}

// AdminPaymentQR waits for the new payment QR photo.
type AdminPaymentQR struct{}

func (DepositAmount) Step() Step     { return StepDepositAmount }
func (DepositPayerName) Step() Step  { return StepDepositPayerName }
func (DepositGiftCard) Step() Step   { return StepDepositGiftCard }
func (DepositScreenshot) Step() Step { return StepDepositScreenshot }
func (PurchaseQuantity) Step() Step  { return StepPurchaseQuantity }
func (AdminAddCodes) Step() Step     { return StepAdminAddCodes }
func (AdminRemoveCount) Step() Step  { return StepAdminRemoveCount }
func (AdminPrice) Step() Step        { return StepAdminPrice }
func (AdminPaymentQR) Step() Step    { return StepAdminPaymentQR }

// AdminOnly reports whether a state belongs to an administrator flow.
func AdminOnly(s State) bool {
	switch s.(type) {
	case AdminAddCodes, AdminRemoveCount, AdminPrice, AdminPaymentQR:
		return true
	}
	return false
}

// Encode serialises a state into its step name and JSON payload.
func Encode(s State) (Step, string, error) {
	payload, err := json.Marshal(s)
	if err != nil {
		return "", "", fmt.Errorf("encode %s: %w", s.Step(), err)
	}
	return s.Step(), string(payload), nil
}

// Decode rebuilds a state from its persisted form.
func Decode(step Step, payload string) (State, error) {
	if payload == "" {
		payload = "{}"
	}
	switch step {
	case StepAdminPaymentQR:
		return AdminPaymentQR{}, nil
	case StepDepositAmount:
		return decodeInto[DepositAmount](step, payload, func(s DepositAmount) bool { return s.Method != "" })
	case StepDepositPayerName:
		return decodeInto[DepositPayerName](step, payload, func(s DepositPayerName) bool { return s.DepositID > 0 })
	case StepDepositGiftCard:
		return decodeInto[DepositGiftCard](step, payload, func(s DepositGiftCard) bool { return s.DepositID > 0 })
	case StepDepositScreenshot:
		return decodeInto[DepositScreenshot](step, payload, func(s DepositScreenshot) bool { return s.DepositID > 0 })
	case StepPurchaseQuantity:
		return decodeInto[PurchaseQuantity](step, payload, func(s PurchaseQuantity) bool { return s.CouponType != "" })
	case StepAdminAddCodes:
		return decodeInto[AdminAddCodes](step, payload, func(s AdminAddCodes) bool { return s.CouponType != "" })
	case StepAdminRemoveCount:
		return decodeInto[AdminRemoveCount](step, payload, func(s AdminRemoveCount) bool { return s.CouponType != "" })
	case StepAdminPrice:
		return decodeInto[AdminPrice](step, payload, func(s AdminPrice) bool { return s.CouponType != "" })
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStep, step)
	}
}

func decodeInto[T State](step Step, payload string, valid func(T) bool) (State, error) {
	var s T
	if err := json.Unmarshal([]byte(payload), &s); err != nil {
		return nil, fmt.Errorf("decode %s: %w", step, err)
	}
	if !valid(s) {
		return nil, fmt.Errorf("decode %s: %w: incomplete payload", step, ErrUnknownStep)
	}
	return s, nil
}
