package contracts

import (
	"fmt"
	"strings"
	"time"
)

// Quote is the current price snapshot of one instrument
// ⭐ SSOT: 시세 데이터 구조는 여기서만 정의
type Quote struct {
	Code         string    `json:"code"`
	Name         string    `json:"name,omitempty"`
	Price        int64     `json:"price"`       // 현재가
	Change       int64     `json:"change"`      // 전일대비
	ChangeRate   float64   `json:"change_rate"` // 등락율 (%)
	Open         int64     `json:"open"`
	High         int64     `json:"high"`
	Low          int64     `json:"low"`
	PrevClose    int64     `json:"prev_close"`
	Volume       int64     `json:"volume"`        // 누적거래량
	TradingValue int64     `json:"trading_value"` // 누적거래대금
	Timestamp    time.Time `json:"timestamp"`
	Source       Source    `json:"source"`
}

// Candle is one OHLCV bar
type Candle struct {
	Date   time.Time `json:"date"`
	Open   int64     `json:"open"`
	High   int64     `json:"high"`
	Low    int64     `json:"low"`
	Close  int64     `json:"close"`
	Volume int64     `json:"volume"`
}

// Chart is a series of candles, oldest first
type Chart struct {
	Code    string   `json:"code"`
	Period  Period   `json:"period"`
	Candles []Candle `json:"candles"`
	Source  Source   `json:"source"`
}

// Closes returns the close prices as float64, oldest first
func (c *Chart) Closes() []float64 {
	out := make([]float64, len(c.Candles))
	for i, candle := range c.Candles {
		out[i] = float64(candle.Close)
	}
	return out
}

// Period is the candle interval
type Period string

const (
	PeriodDay   Period = "D"
	PeriodWeek  Period = "W"
	PeriodMonth Period = "M"
)

// ParsePeriod accepts D/W/M as well as day/week/month
func ParsePeriod(s string) (Period, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "D", "DAY", "DAILY":
		return PeriodDay, nil
	case "W", "WEEK", "WEEKLY":
		return PeriodWeek, nil
	case "M", "MONTH", "MONTHLY":
		return PeriodMonth, nil
	}
	return "", fmt.Errorf("unknown chart period %q", s)
}

// StockSummary is one row of a ranked stock list
type StockSummary struct {
	Rank         int     `json:"rank"`
	Code         string  `json:"code"`
	Name         string  `json:"name"`
	Price        int64   `json:"price"`
	ChangeRate   float64 `json:"change_rate"`
	Volume       int64   `json:"volume"`
	TradingValue int64   `json:"trading_value"`
}

// Source identifies where market data came from
type Source string

const (
	SourceKISREST Source = "KIS_REST"
	SourceNaver   Source = "NAVER"
	SourceRedis   Source = "REDIS"
)

// ValidCode reports whether code looks like a 6-digit KRX short code
func ValidCode(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ListSort orders a ranked stock list
type ListSort string

const (
	SortVolume       ListSort = "volume"        // 거래량
	SortVolumeGrowth ListSort = "volume_growth" // 거래증가율
	SortTurnover     ListSort = "turnover"      // 거래회전율
	SortValue        ListSort = "value"         // 거래대금
)

// ParseListSort normalises a sort parameter; empty means volume
func ParseListSort(s string) (ListSort, error) {
	switch ListSort(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortVolume:
		return SortVolume, nil
	case SortVolumeGrowth:
		return SortVolumeGrowth, nil
	case SortTurnover:
		return SortTurnover, nil
	case SortValue:
		return SortValue, nil
	}
	return "", fmt.Errorf("unknown list sort %q", s)
}
