package convo_test

import (
	"context"
	"testing"

	"coupon-bot/internal/convo"
	"coupon-bot/internal/logging"
	"coupon-bot/internal/repo/repotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRejectsIncompletePayloads(t *testing.T) {
	tests := []struct {
		name    string
		step    convo.Step
		payload string
	}{
		{name: "unknown step", step: "awaiting_miracle", payload: `{}`},
		{name: "payer name without deposit", step: convo.StepDepositPayerName, payload: `{}`},
		{name: "gift card without deposit", step: convo.StepDepositGiftCard, payload: `{"deposit_id":0}`},
		{name: "amount without method", step: convo.StepDepositAmount, payload: ``},
		{name: "quantity without type", step: convo.StepPurchaseQuantity, payload: `{"coupon_type":""}`},
		{name: "broken json", step: convo.StepAdminPrice, payload: `{"coupon_type":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := convo.Decode(tt.step, tt.payload)
			assert.Error(t, err)
		})
	}
}

func TestDecodeCarriesPayload(t *testing.T) {
	step, payload, err := convo.Encode(convo.DepositScreenshot{DepositID: 12})
	require.NoError(t, err)
	assert.Equal(t, convo.StepDepositScreenshot, step)

	state, err := convo.Decode(step, payload)
	require.NoError(t, err)
	assert.Equal(t, convo.DepositScreenshot{DepositID: 12}, state)

	step, payload, err = convo.Encode(convo.DepositAmount{Method: "amazon"})
	require.NoError(t, err)
	assert.Equal(t, convo.StepDepositAmount, step)
	state, err = convo.Decode(step, payload)
	require.NoError(t, err)
	assert.Equal(t, convo.DepositAmount{Method: "amazon"}, state)

	state, err = convo.Decode(convo.StepDepositGiftCard, `{"deposit_id":3}`)
	require.NoError(t, err)
	assert.Equal(t, convo.DepositGiftCard{DepositID: 3}, state)
	assert.False(t, convo.AdminOnly(state))
}

func TestAdminOnly(t *testing.T) {
	assert.True(t, convo.AdminOnly(convo.AdminPaymentQR{}))
	assert.True(t, convo.AdminOnly(convo.AdminRemoveCount{CouponType: "500"}))
	assert.False(t, convo.AdminOnly(convo.PurchaseQuantity{CouponType: "500"}))
}

func TestMachineLifecycle(t *testing.T) {
	store := repotest.NewStore(t)
	ctx := context.Background()
	repotest.SeedUser(t, store, 5, 0)
	m := convo.NewMachine(store, logging.Discard())

	state, err := m.Get(ctx, 5)
	require.NoError(t, err)
	assert.Nil(t, state)

	require.NoError(t, m.Set(ctx, 5, convo.PurchaseQuantity{CouponType: "2000"}))
	require.NoError(t, m.Set(ctx, 5, convo.AdminPrice{CouponType: "1000"}))

	state, err = m.Get(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, convo.AdminPrice{CouponType: "1000"}, state)

	require.NoError(t, m.Clear(ctx, 5))
	state, err = m.Get(ctx, 5)
	require.NoError(t, err)
	assert.Nil(t, state)
}

func TestMachineDropsUnreadableState(t *testing.T) {
	store := repotest.NewStore(t)
	ctx := context.Background()
	repotest.SeedUser(t, store, 5, 0)
	require.NoError(t, store.PutState(ctx, 5, "legacy_step", `{"x":1}`))

	m := convo.NewMachine(store, logging.Discard())
	state, err := m.Get(ctx, 5)
	require.NoError(t, err)
	assert.Nil(t, state)

	_, err = store.GetState(ctx, 5)
	assert.Error(t, err)
}
