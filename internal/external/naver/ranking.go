package naver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/wonny/paper-kospi/backend/internal/contracts"
)

// ErrUnsupportedSort is returned for list orders Naver has no ranking for
var ErrUnsupportedSort = errors.New("naver: unsupported ranking sort")

// api.stock.naver.com sortType per list order
var rankingSortTypes = map[contracts.ListSort]string{
	contracts.SortVolume:       "ACC_TRADING_VOLUME",
	contracts.SortValue:        "ACC_TRADING_VALUE",
	contracts.SortVolumeGrowth: "TRADING_VOLUME_INCREASE",
}

// Stock API response (api.stock.naver.com)
type stockAPIResponse struct {
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalCount int            `json:"totalCount"`
	Stocks     []stockAPIItem `json:"stocks"`
}

type stockAPIItem struct {
	ItemCode                 string `json:"itemCode"`
	StockName                string `json:"stockName"`
	ClosePrice               string `json:"closePrice"`
	FluctuationsRatio        string `json:"fluctuationsRatio"`
	AccumulatedTradingVolume string `json:"accumulatedTradingVolume"`
	AccumulatedTradingValue  string `json:"accumulatedTradingValue"` // 백만원
}

// FetchRanking fetches a KOSPI ranking ordered by sort, best first
func (c *Client) FetchRanking(ctx context.Context, sort contracts.ListSort, size int) ([]contracts.StockSummary, error) {
	sortType, ok := rankingSortTypes[sort]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSort, sort)
	}
	if size <= 0 || size > 100 {
		size = 100
	}

	apiURL := fmt.Sprintf(
		"%s/stock/exchange/KOSPI?type=ALL&sortType=%s&page=1&pageSize=%d",
		c.stockAPI, sortType, size,
	)

	resp, err := c.fetch(ctx, apiURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var apiResp stockAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	items := make([]contracts.StockSummary, 0, len(apiResp.Stocks))
	for i, stock := range apiResp.Stocks {
		items = append(items, contracts.StockSummary{
			Rank:         i + 1,
			Code:         stock.ItemCode,
			Name:         stock.StockName,
			Price:        parseNumber(stock.ClosePrice),
			ChangeRate:   parseFloat(stock.FluctuationsRatio),
			Volume:       parseNumber(stock.AccumulatedTradingVolume),
			TradingValue: parseNumber(stock.AccumulatedTradingValue) * 1_000_000,
		})
	}

	c.logger.WithFields(map[string]interface{}{
		"sort":   sort,
		"count":  len(items),
		"source": "api.stock.naver.com",
	}).Debug("Fetched ranking from Naver Stock API")

	return items, nil
}
