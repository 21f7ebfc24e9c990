package trading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/paper-kospi/backend/internal/contracts"
)

func buy(qty, price int64) contracts.Order {
	return contracts.Order{Code: "005930", Side: contracts.OrderSideBuy, Qty: qty, Price: price, Amount: qty * price}
}

func sell(qty, price int64) contracts.Order {
	return contracts.Order{Code: "005930", Side: contracts.OrderSideSell, Qty: qty, Price: price, Amount: qty * price}
}

func TestFee(t *testing.T) {
	assert.Equal(t, int64(108), Fee(720_000, 0.00015))
	assert.Equal(t, int64(0), Fee(1000, 0))
	assert.Equal(t, int64(150), Fee(1_000_000, 0.00015))
}

func TestApply_Buy(t *testing.T) {
	order := buy(10, 72_000)
	order.Fee = 108

	cash, h, err := Apply(1_000_000, contracts.Holding{}, order)
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000-720_000-108), cash)
	assert.Equal(t, int64(10), h.Qty)
	assert.Equal(t, int64(72_000), h.AvgPrice)
	assert.Equal(t, "005930", h.Code)
}

func TestApply_BuyWeightedAverage(t *testing.T) {
	held := contracts.Holding{Code: "005930", Qty: 10, AvgPrice: 70_000}

	_, h, err := Apply(10_000_000, held, buy(20, 73_000))
	require.NoError(t, err)
	assert.Equal(t, int64(30), h.Qty)
	// (700,000 + 1,460,000) / 30 = 72,000
	assert.Equal(t, int64(72_000), h.AvgPrice)

	_, h, err = Apply(10_000_000, contracts.Holding{Qty: 2, AvgPrice: 100}, buy(1, 101))
	require.NoError(t, err)
	assert.Equal(t, int64(100), h.AvgPrice, "301/3 rounds to 100")
}

func TestApply_InsufficientCash(t *testing.T) {
	order := buy(10, 72_000)
	order.Fee = 108

	cash, _, err := Apply(720_000, contracts.Holding{}, order)
	assert.ErrorIs(t, err, ErrInsufficientCash, "fee must be covered too")
	assert.Equal(t, int64(720_000), cash)
}

func TestApply_Sell(t *testing.T) {
	held := contracts.Holding{Code: "005930", Qty: 10, AvgPrice: 70_000}
	order := sell(4, 75_000)
	order.Fee = 45

	cash, h, err := Apply(100, held, order)
	require.NoError(t, err)
	assert.Equal(t, int64(100+300_000-45), cash)
	assert.Equal(t, int64(6), h.Qty)
	assert.Equal(t, int64(70_000), h.AvgPrice, "selling keeps the average price")

	_, h, err = Apply(100, held, sell(10, 75_000))
	require.NoError(t, err)
	assert.Zero(t, h.Qty)
}

func TestApply_InsufficientShares(t *testing.T) {
	_, _, err := Apply(0, contracts.Holding{Qty: 3}, sell(4, 1000))
	assert.ErrorIs(t, err, ErrInsufficientShares)

	_, _, err = Apply(0, contracts.Holding{}, sell(1, 1000))
	assert.ErrorIs(t, err, ErrInsufficientShares)
}

func TestApply_Invalid(t *testing.T) {
	_, _, err := Apply(1000, contracts.Holding{}, buy(0, 1000))
	assert.ErrorIs(t, err, ErrInvalidRequest)

	bad := buy(1, 1000)
	bad.Side = "HOLD"
	_, _, err = Apply(1000, contracts.Holding{}, bad)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestOrderAmount(t *testing.T) {
	amount, ok := OrderAmount(72_000, 10)
	require.True(t, ok)
	assert.Equal(t, int64(720_000), amount)

	_, ok = OrderAmount(70_000, 263_524_901_052_993)
	assert.False(t, ok, "product wraps int64")

	_, ok = OrderAmount(0, 10)
	assert.False(t, ok)
}

func TestApply_WrappedAmount(t *testing.T) {
	// 70,000 x 263,524,901,052,993 wraps to a negative amount
	order := contracts.Order{Code: "005930", Side: contracts.OrderSideBuy, Qty: 263_524_901_052_993, Price: 70_000}
	order.Amount = order.Qty * order.Price
	order.Fee = Fee(order.Amount, 0.00015)
	require.Negative(t, order.Amount)

	cash, h, err := Apply(10_000_000, contracts.Holding{}, order)
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Equal(t, int64(10_000_000), cash)
	assert.Zero(t, h.Qty)
}

func TestApply_AmountMismatch(t *testing.T) {
	order := buy(10, 72_000)
	order.Amount = 1

	_, _, err := Apply(10_000_000, contracts.Holding{}, order)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	order = buy(10, 72_000)
	order.Fee = -500
	_, _, err = Apply(10_000_000, contracts.Holding{}, order)
	assert.ErrorIs(t, err, ErrInvalidRequest, "negative fee would mint cash")
}
