package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseActionKnownTokens(t *testing.T) {
	tests := []struct {
		token string
		want  Action
	}{
		{token: "dep:start:upi", want: StartDeposit{Method: "upi"}},
		{token: "dep:start:amazon", want: StartDeposit{Method: "amazon"}},
		{token: "dep:paid:upi:42", want: ConfirmPayment{Method: "upi", DepositID: 42}},
		{token: "dep:paid:amazon:7", want: ConfirmPayment{Method: "amazon", DepositID: 7}},
		{token: "buy:1000", want: SelectCoupon{CouponType: "1000"}},
		{token: "adm:add:500", want: AdminSelect{Op: OpAddCodes, CouponType: "500"}},
		{token: "adm:rm:2000", want: AdminSelect{Op: OpRemoveCodes, CouponType: "2000"}},
		{token: "adm:price:4000", want: AdminSelect{Op: OpSetPrice, CouponType: "4000"}},
		{token: "adm:free:500", want: AdminSelect{Op: OpFreeCoupon, CouponType: "500"}},
		{token: "adm:ok:7", want: ApproveDeposit{DepositID: 7}},
		{token: "adm:no:7", want: DeclineDeposit{DepositID: 7}},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got, err := ParseAction(tt.token)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.token, got.Token())
		})
	}
}

func TestParseActionRejectsGarbage(t *testing.T) {
	for _, token := range []string{"", "dep", "dep:start", "dep:start:", "dep:paid:", "dep:paid:42", "dep:paid::42", "dep:paid:upi:-1", "dep:paid:upi:x", "buy:", "adm:ok:0", "adm:zap:500", "adm:add:", "upi_done_5"} {
		_, err := ParseAction(token)
		assert.ErrorIs(t, err, ErrUnknownAction, "token %q", token)
	}
}
