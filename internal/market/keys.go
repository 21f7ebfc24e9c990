package market

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/wonny/paper-kospi/backend/internal/contracts"
)

// Cache keys. Parameters are normalised before they reach a key so that
// equivalent requests (sector "ALL" vs "", sma=20,5 vs sma=5,20) share one
// entry.
// ⭐ SSOT: 캐시 키 형식은 여기서만

func QuoteKey(code string) string {
	return "quote:" + code
}

func ChartKey(code string, period contracts.Period, bars int) string {
	return fmt.Sprintf("chart:%s:%s:%d", code, period, bars)
}

func IndicatorKey(code string, q IndicatorQuery) string {
	return fmt.Sprintf("indicators:%s:%s:%d:sma=%s:ema=%s:rsi=%d:macd=%t:bb=%d",
		code, q.Period, q.Bars, joinInts(q.SMA), joinInts(q.EMA), q.RSI, q.MACD, q.Bollinger)
}

func VolumeKey(code string, days int) string {
	return fmt.Sprintf("volume:%s:%d", code, days)
}

// ListKey identifies one ranking; pagination is applied after the cache
func ListKey(sector string, sort contracts.ListSort) string {
	if sector == "" {
		sector = "all"
	}
	return fmt.Sprintf("stocks:%s:%s", sector, sort)
}

func PortfolioKey(userID int64) string {
	return "portfolio:" + strconv.FormatInt(userID, 10)
}

func joinInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.Itoa(x)
	}
	return strings.Join(parts, ",")
}

// normaliseWindows sorts, de-duplicates and drops non-positive windows
func normaliseWindows(xs []int) []int {
	out := make([]int, 0, len(xs))
	seen := make(map[int]bool, len(xs))
	for _, x := range xs {
		if x <= 0 || seen[x] {
			continue
		}
		seen[x] = true
		out = append(out, x)
	}
	sort.Ints(out)
	return out
}
