package contracts

import "time"

// OrderSide represents buy or sell
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// Order is an executed paper order. Orders fill immediately at the quote
// price, so there is no pending state.
type Order struct {
	ID         string    `json:"id"`
	UserID     int64     `json:"user_id"`
	Code       string    `json:"code"`
	Name       string    `json:"name,omitempty"`
	Side       OrderSide `json:"side"`
	Qty        int64     `json:"qty"`
	Price      int64     `json:"price"`
	Fee        int64     `json:"fee"`
	Amount     int64     `json:"amount"`      // price * qty
	CashAfter  int64     `json:"cash_after"`  // 체결 후 예수금
	MarketOpen bool      `json:"market_open"` // 장중 체결 여부
	CreatedAt  time.Time `json:"created_at"`
}

// Holding is a position in one stock
type Holding struct {
	Code     string `json:"code"`
	Name     string `json:"name,omitempty"`
	Qty      int64  `json:"qty"`
	AvgPrice int64  `json:"avg_price"` // 평균매입가
}

// Cost returns the book value of the holding
func (h Holding) Cost() int64 {
	return h.Qty * h.AvgPrice
}

// Position is a holding valued at the current quote
type Position struct {
	Holding
	CurrentPrice   int64   `json:"current_price"`
	EvalAmount     int64   `json:"eval_amount"`      // 평가금액
	ProfitLoss     int64   `json:"profit_loss"`      // 평가손익
	ProfitLossRate float64 `json:"profit_loss_rate"` // 수익률 (%)
	Stale          bool    `json:"stale"`            // 시세 조회 실패, 평균단가로 평가
}

// Portfolio is the valued state of one account
type Portfolio struct {
	UserID          int64      `json:"user_id"`
	Cash            int64      `json:"cash"`
	InitialCash     int64      `json:"initial_cash"`
	Positions       []Position `json:"positions"`
	TotalCost       int64      `json:"total_cost"`
	TotalEvaluation int64      `json:"total_evaluation"`
	TotalAsset      int64      `json:"total_asset"` // cash + evaluation
	ProfitLoss      int64      `json:"profit_loss"`
	ReturnRate      float64    `json:"return_rate"` // vs initial cash (%)
	ValuedAt        time.Time  `json:"valued_at"`
}

// Snapshot is a daily portfolio valuation used for performance charts
type Snapshot struct {
	UserID     int64     `json:"user_id"`
	Date       time.Time `json:"date"`
	Cash       int64     `json:"cash"`
	Evaluation int64     `json:"evaluation"`
	TotalAsset int64     `json:"total_asset"`
	ReturnRate float64   `json:"return_rate"`
}

// User is a registered paper-trading account holder
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}
