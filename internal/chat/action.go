package chat

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnknownAction is returned for button payloads that do not decode.
var ErrUnknownAction = errors.New("unknown action")

// AdminOp is a stock administration operation chosen from a type list.
type AdminOp string

const (
	OpAddCodes    AdminOp = "add"
	OpRemoveCodes AdminOp = "rm"
	OpSetPrice    AdminOp = "price"
	OpFreeCoupon  AdminOp = "free"
)

// Action is a decoded button payload.
type Action interface {
	Token() string
}

// StartDeposit opens the deposit flow for a payment method.
type StartDeposit struct{ Method string }

// ConfirmPayment is pressed after paying a deposit, or to hand in a gift card.
type ConfirmPayment struct {
	Method    string
	DepositID int64
}

// SelectCoupon picks a coupon type to buy.
type SelectCoupon struct{ CouponType string }

// AdminSelect picks the coupon type an admin operation applies to.
type AdminSelect struct {
	Op         AdminOp
	CouponType string
}

// ApproveDeposit accepts a submitted deposit.
type ApproveDeposit struct{ DepositID int64 }

// DeclineDeposit rejects a submitted deposit.
type DeclineDeposit struct{ DepositID int64 }

func (a StartDeposit) Token() string   { return "dep:start:" + a.Method }
func (a ConfirmPayment) Token() string {
	return "dep:paid:" + a.Method + ":" + strconv.FormatInt(a.DepositID, 10)
}
func (a SelectCoupon) Token() string   { return "buy:" + a.CouponType }
func (a AdminSelect) Token() string    { return "adm:" + string(a.Op) + ":" + a.CouponType }
func (a ApproveDeposit) Token() string { return "adm:ok:" + strconv.FormatInt(a.DepositID, 10) }
func (a DeclineDeposit) Token() string { return "adm:no:" + strconv.FormatInt(a.DepositID, 10) }

// ParseAction decodes a button token.
func ParseAction(token string) (Action, error) {
	parts := strings.Split(token, ":")
	switch {
	case len(parts) == 3 && parts[0] == "dep" && parts[1] == "start" && parts[2] != "":
		return StartDeposit{Method: parts[2]}, nil
	case len(parts) == 4 && parts[0] == "dep" && parts[1] == "paid" && parts[2] != "":
		id, err := parseID(parts[3])
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrUnknownAction, token)
		}
		return ConfirmPayment{Method: parts[2], DepositID: id}, nil
	case len(parts) == 2 && parts[0] == "buy" && parts[1] != "":
		return SelectCoupon{CouponType: parts[1]}, nil
	case len(parts) == 3 && parts[0] == "adm":
		return parseAdmin(token, parts[1], parts[2])
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAction, token)
}

func parseAdmin(token, op, arg string) (Action, error) {
	switch op {
	case "ok", "no":
		id, err := parseID(arg)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrUnknownAction, token)
		}
		if op == "ok" {
			return ApproveDeposit{DepositID: id}, nil
		}
		return DeclineDeposit{DepositID: id}, nil
	case string(OpAddCodes), string(OpRemoveCodes), string(OpSetPrice), string(OpFreeCoupon):
		if arg == "" {
			return nil, fmt.Errorf("%w: %q", ErrUnknownAction, token)
		}
		return AdminSelect{Op: AdminOp(op), CouponType: arg}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAction, token)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("bad id")
	}
	return id, nil
}
