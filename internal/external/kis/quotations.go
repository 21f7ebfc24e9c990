package kis

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/paper-kospi/backend/internal/contracts"
)

const (
	trIDCurrentPrice = "FHKST01010100" // 국내주식 현재가
	trIDDailyChart   = "FHKST03010100" // 국내주식 기간별 시세
	trIDVolumeRank   = "FHPST01710000" // 거래량 순위

	maxChartCandles = 100 // KIS returns at most 100 bars per call
)

// GetQuote returns the current price of a stock
func (c *Client) GetQuote(ctx context.Context, code string) (*contracts.Quote, error) {
	params := url.Values{}
	params.Set("fid_cond_mrkt_div_code", "J")
	params.Set("fid_input_iscd", code)

	var result struct {
		envelope
		Output struct {
			Price        string `json:"stck_prpr"`
			Change       string `json:"prdy_vrss"`
			ChangeRate   string `json:"prdy_ctrt"`
			Open         string `json:"stck_oprc"`
			High         string `json:"stck_hgpr"`
			Low          string `json:"stck_lwpr"`
			BasePrice    string `json:"stck_sdpr"` // 기준가 (전일종가)
			Volume       string `json:"acml_vol"`
			TradingValue string `json:"acml_tr_pbmn"`
		} `json:"output"`
	}

	if err := c.get(ctx, "/uapi/domestic-stock/v1/quotations/inquire-price", trIDCurrentPrice, params, &result); err != nil {
		return nil, err
	}
	if err := result.err(); err != nil {
		return nil, err
	}

	out := result.Output
	return &contracts.Quote{
		Code:         code,
		Price:        parseInt(out.Price),
		Change:       parseInt(out.Change),
		ChangeRate:   parseFloat(out.ChangeRate),
		Open:         parseInt(out.Open),
		High:         parseInt(out.High),
		Low:          parseInt(out.Low),
		PrevClose:    parseInt(out.BasePrice),
		Volume:       parseInt(out.Volume),
		TradingValue: parseInt(out.TradingValue),
		Timestamp:    c.now(),
		Source:       contracts.SourceKISREST,
	}, nil
}

// GetDailyChart returns candles between from and to (inclusive), oldest first
func (c *Client) GetDailyChart(ctx context.Context, code string, period contracts.Period, from, to time.Time) (*contracts.Chart, error) {
	params := url.Values{}
	params.Set("FID_COND_MRKT_DIV_CODE", "J")
	params.Set("FID_INPUT_ISCD", code)
	params.Set("FID_INPUT_DATE_1", from.Format("20060102"))
	params.Set("FID_INPUT_DATE_2", to.Format("20060102"))
	params.Set("FID_PERIOD_DIV_CODE", string(period))
	params.Set("FID_ORG_ADJ_PRC", "0") // 수정주가

	var result struct {
		envelope
		Output1 struct {
			Name string `json:"hts_kor_isnm"`
		} `json:"output1"`
		Output2 []struct {
			Date   string `json:"stck_bsop_date"`
			Open   string `json:"stck_oprc"`
			High   string `json:"stck_hgpr"`
			Low    string `json:"stck_lwpr"`
			Close  string `json:"stck_clpr"`
			Volume string `json:"acml_vol"`
		} `json:"output2"`
	}

	if err := c.get(ctx, "/uapi/domestic-stock/v1/quotations/inquire-daily-itemchartprice", trIDDailyChart, params, &result); err != nil {
		return nil, err
	}
	if err := result.err(); err != nil {
		return nil, err
	}

	chart := &contracts.Chart{
		Code:    code,
		Period:  period,
		Candles: make([]contracts.Candle, 0, len(result.Output2)),
		Source:  contracts.SourceKISREST,
	}
	for _, row := range result.Output2 {
		date, err := time.Parse("20060102", row.Date)
		if err != nil {
			continue // trailing empty rows
		}
		chart.Candles = append(chart.Candles, contracts.Candle{
			Date:   date,
			Open:   parseInt(row.Open),
			High:   parseInt(row.High),
			Low:    parseInt(row.Low),
			Close:  parseInt(row.Close),
			Volume: parseInt(row.Volume),
		})
	}

	// KIS returns newest first
	sort.Slice(chart.Candles, func(i, j int) bool {
		return chart.Candles[i].Date.Before(chart.Candles[j].Date)
	})

	return chart, nil
}

// VolumeRankQuery selects a KIS volume ranking
type VolumeRankQuery struct {
	Sector string // 업종코드, "" => 전체(0000)
	Sort   contracts.ListSort
}

var volumeRankSort = map[contracts.ListSort]string{
	"":                         "0",
	contracts.SortVolume:       "0", // 평균거래량
	contracts.SortVolumeGrowth: "1", // 거래증가율
	contracts.SortTurnover:     "2", // 평균거래회전율
	contracts.SortValue:        "3", // 거래금액순
}

// GetVolumeRank returns up to 30 stocks ranked by trading activity
func (c *Client) GetVolumeRank(ctx context.Context, q VolumeRankQuery) ([]contracts.StockSummary, error) {
	sortCode, ok := volumeRankSort[q.Sort]
	if !ok {
		return nil, fmt.Errorf("unknown volume rank sort %q", q.Sort)
	}
	sector := q.Sector
	if sector == "" {
		sector = "0000"
	}

	params := url.Values{}
	params.Set("FID_COND_MRKT_DIV_CODE", "J")
	params.Set("FID_COND_SCR_DIV_CODE", "20171")
	params.Set("FID_INPUT_ISCD", sector)
	params.Set("FID_DIV_CLS_CODE", "1") // 보통주
	params.Set("FID_BLNG_CLS_CODE", sortCode)
	params.Set("FID_TRGT_CLS_CODE", "111111111")
	params.Set("FID_TRGT_EXLS_CLS_CODE", "000000")
	params.Set("FID_INPUT_PRICE_1", "")
	params.Set("FID_INPUT_PRICE_2", "")
	params.Set("FID_VOL_CNT", "")
	params.Set("FID_INPUT_DATE_1", "")

	var result struct {
		envelope
		Output []struct {
			Name         string `json:"hts_kor_isnm"`
			Code         string `json:"mksc_shrn_iscd"`
			Rank         string `json:"data_rank"`
			Price        string `json:"stck_prpr"`
			ChangeRate   string `json:"prdy_ctrt"`
			Volume       string `json:"acml_vol"`
			TradingValue string `json:"acml_tr_pbmn"`
		} `json:"output"`
	}

	if err := c.get(ctx, "/uapi/domestic-stock/v1/quotations/volume-rank", trIDVolumeRank, params, &result); err != nil {
		return nil, err
	}
	if err := result.err(); err != nil {
		return nil, err
	}

	items := make([]contracts.StockSummary, 0, len(result.Output))
	for _, row := range result.Output {
		items = append(items, contracts.StockSummary{
			Rank:         int(parseInt(row.Rank)),
			Code:         row.Code,
			Name:         row.Name,
			Price:        parseInt(row.Price),
			ChangeRate:   parseFloat(row.ChangeRate),
			Volume:       parseInt(row.Volume),
			TradingValue: parseInt(row.TradingValue),
		})
	}
	return items, nil
}

// ChartWindow returns the date range KIS can serve in one call for n bars
func ChartWindow(period contracts.Period, bars int, now time.Time) (time.Time, time.Time) {
	if bars <= 0 || bars > maxChartCandles {
		bars = maxChartCandles
	}
	switch period {
	case contracts.PeriodWeek:
		return now.AddDate(0, 0, -7*bars), now
	case contracts.PeriodMonth:
		return now.AddDate(0, -bars, 0), now
	default:
		// calendar days: roughly 7 calendar days per 5 sessions
		return now.AddDate(0, 0, -(bars*7/5 + 7)), now
	}
}

func parseInt(s string) int64 {
	n, _ := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return n
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}
