package naver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/paper-kospi/backend/internal/contracts"
)

var timeframes = map[contracts.Period]string{
	contracts.PeriodDay:   "day",
	contracts.PeriodWeek:  "week",
	contracts.PeriodMonth: "month",
}

var priceRowRegex = regexp.MustCompile(`\["(\d{8})",\s*(\d+),\s*(\d+),\s*(\d+),\s*(\d+),\s*(\d+)`)

// FetchPrices fetches OHLCV candles for a stock from the Naver chart API
// ⭐ SSOT: Naver Finance 가격 API 호출은 이 함수에서만
func (c *Client) FetchPrices(ctx context.Context, code string, period contracts.Period, from, to time.Time) (*contracts.Chart, error) {
	timeframe, ok := timeframes[period]
	if !ok {
		return nil, fmt.Errorf("unsupported period %q", period)
	}

	fullURL := fmt.Sprintf(
		"%s/siseJson.naver?symbol=%s&requestType=1&startTime=%s&endTime=%s&timeframe=%s",
		c.chartURL, code, from.Format("20060102"), to.Format("20060102"), timeframe,
	)

	resp, err := c.fetch(ctx, fullURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body failed: %w", err)
	}

	candles, err := parsePriceResponse(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse response failed: %w", err)
	}

	c.logger.WithFields(map[string]interface{}{
		"stock_code": code,
		"period":     period,
		"count":      len(candles),
	}).Debug("Fetched prices")

	return &contracts.Chart{
		Code:    code,
		Period:  period,
		Candles: candles,
		Source:  contracts.SourceNaver,
	}, nil
}

// parsePriceResponse parses the siseJson body, which is a JS array literal
// using single quotes.
func parsePriceResponse(body string) ([]contracts.Candle, error) {
	body = strings.TrimSpace(body)
	body = strings.ReplaceAll(body, "'", "\"")

	// Try JSON parsing first
	var rawData [][]interface{}
	if err := json.Unmarshal([]byte(body), &rawData); err == nil {
		return parsePriceJSON(rawData)
	}

	// Fallback to regex parsing
	return parsePriceRegex(body)
}

// parsePriceJSON parses JSON array format
func parsePriceJSON(rawData [][]interface{}) ([]contracts.Candle, error) {
	var candles []contracts.Candle
	for i, row := range rawData {
		if i == 0 || len(row) < 6 {
			continue // Skip header
		}

		dateStr, ok := row[0].(string)
		if !ok {
			continue
		}
		date, err := time.Parse("20060102", strings.TrimSpace(dateStr))
		if err != nil {
			continue
		}

		candles = append(candles, contracts.Candle{
			Date:   date,
			Open:   toInt64(row[1]),
			High:   toInt64(row[2]),
			Low:    toInt64(row[3]),
			Close:  toInt64(row[4]),
			Volume: toInt64(row[5]),
		})
	}
	return candles, nil
}

// parsePriceRegex parses using regex (fallback)
func parsePriceRegex(body string) ([]contracts.Candle, error) {
	matches := priceRowRegex.FindAllStringSubmatch(body, -1)

	var candles []contracts.Candle
	for _, match := range matches {
		date, err := time.Parse("20060102", match[1])
		if err != nil {
			continue
		}

		open, _ := strconv.ParseInt(match[2], 10, 64)
		high, _ := strconv.ParseInt(match[3], 10, 64)
		low, _ := strconv.ParseInt(match[4], 10, 64)
		closePrice, _ := strconv.ParseInt(match[5], 10, 64)
		volume, _ := strconv.ParseInt(match[6], 10, 64)

		candles = append(candles, contracts.Candle{
			Date:   date,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: volume,
		})
	}
	return candles, nil
}

// toInt64 converts various types to int64
func toInt64(v interface{}) int64 {
	switch val := v.(type) {
	case float64:
		return int64(val)
	case int64:
		return val
	case int:
		return int64(val)
	case string:
		return parseNumber(val)
	default:
		return 0
	}
}

// parseNumber parses "72,500" / "+1.2" style strings, ignoring garbage
func parseNumber(s string) int64 {
	s = strings.NewReplacer(",", "", "+", "", " ", "").Replace(strings.TrimSpace(s))
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

func parseFloat(s string) float64 {
	s = strings.NewReplacer(",", "", "+", "", "%", "", " ", "").Replace(strings.TrimSpace(s))
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
