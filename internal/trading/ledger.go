package trading

import (
	"fmt"
	"math"

	"github.com/wonny/paper-kospi/backend/internal/contracts"
)

// OrderAmount returns price*qty, or false when the product does not fit
// in an int64.
func OrderAmount(price, qty int64) (int64, bool) {
	if price <= 0 || qty <= 0 || price > math.MaxInt64/qty {
		return 0, false
	}
	return price * qty, true
}

// Fee returns the commission for amount, rounded to the nearest won
func Fee(amount int64, rate float64) int64 {
	return int64(math.Round(float64(amount) * rate))
}

// Apply fills order against an account's cash and its holding in the
// order's stock. It returns the new cash and holding; a holding with Qty 0
// means the position is closed.
// ⭐ SSOT: 체결 시 예수금/보유수량 계산은 여기서만
func Apply(cash int64, holding contracts.Holding, order contracts.Order) (int64, contracts.Holding, error) {
	if order.Qty <= 0 || order.Price <= 0 {
		return cash, holding, fmt.Errorf("%w: qty and price must be positive", ErrInvalidRequest)
	}
	if amount, ok := OrderAmount(order.Price, order.Qty); !ok || amount != order.Amount {
		return cash, holding, fmt.Errorf("%w: amount %d does not match %d x %d", ErrInvalidRequest, order.Amount, order.Qty, order.Price)
	}
	if order.Fee < 0 || order.Fee > math.MaxInt64-order.Amount {
		return cash, holding, fmt.Errorf("%w: fee %d out of range", ErrInvalidRequest, order.Fee)
	}
	holding.Code = order.Code
	if order.Name != "" {
		holding.Name = order.Name
	}

	switch order.Side {
	case contracts.OrderSideBuy:
		cost := order.Amount + order.Fee
		if cost > cash {
			return cash, holding, fmt.Errorf("%w: need %d, have %d", ErrInsufficientCash, cost, cash)
		}

		newQty := holding.Qty + order.Qty
		// 가중평균 매입가 (원 단위 반올림)
		var heldCost int64
		if holding.Qty > 0 {
			c, ok := OrderAmount(holding.AvgPrice, holding.Qty)
			if !ok || c > math.MaxInt64-order.Amount {
				return cash, holding, fmt.Errorf("%w: position cost would overflow", ErrInvalidRequest)
			}
			heldCost = c
		}
		totalCost := heldCost + order.Amount
		holding.AvgPrice = (totalCost + newQty/2) / newQty
		holding.Qty = newQty

		return cash - cost, holding, nil

	case contracts.OrderSideSell:
		if order.Qty > holding.Qty {
			return cash, holding, fmt.Errorf("%w: want %d, hold %d", ErrInsufficientShares, order.Qty, holding.Qty)
		}

		proceeds := order.Amount - order.Fee
		if proceeds > 0 && cash > math.MaxInt64-proceeds {
			return cash, holding, fmt.Errorf("%w: cash would overflow", ErrInvalidRequest)
		}

		holding.Qty -= order.Qty
		if holding.Qty == 0 {
			holding.AvgPrice = 0
		}

		return cash + proceeds, holding, nil
	}

	return cash, holding, fmt.Errorf("%w: unknown side %q", ErrInvalidRequest, order.Side)
}
