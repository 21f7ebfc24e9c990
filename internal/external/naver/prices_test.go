package naver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/paper-kospi/backend/internal/contracts"
	"github.com/wonny/paper-kospi/backend/pkg/config"
	"github.com/wonny/paper-kospi/backend/pkg/httputil"
	"github.com/wonny/paper-kospi/backend/pkg/logger"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	log := logger.Nop()
	c := NewClient(config.NaverConfig{BaseURL: srv.URL, ChartURL: srv.URL}, httputil.New(log).DisableRetry(), log)
	c.stockAPI = srv.URL
	return c
}

func TestParsePriceJSON(t *testing.T) {
	tests := []struct {
		name    string
		rawData [][]interface{}
		want    int
	}{
		{
			name: "valid data with header",
			rawData: [][]interface{}{
				{"날짜", "시가", "고가", "저가", "종가", "거래량"}, // Header
				{"20240115", 72300.0, 73000.0, 72000.0, 72500.0, 1000000.0},
				{"20240116", 72500.0, 73500.0, 72300.0, 73000.0, 1200000.0},
			},
			want: 2,
		},
		{
			name: "valid data with string numbers",
			rawData: [][]interface{}{
				{"날짜", "시가", "고가", "저가", "종가", "거래량"},
				{"20240115", "72,300", "73000", "72000", "72500", "1000000"},
			},
			want: 1,
		},
		{
			name:    "empty data",
			rawData: [][]interface{}{},
			want:    0,
		},
		{
			name: "data with insufficient columns",
			rawData: [][]interface{}{
				{"날짜", "시가"},
				{"20240115", 72300.0, 73000.0},
			},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePriceJSON(tt.rawData)
			require.NoError(t, err)
			assert.Len(t, got, tt.want)

			for _, candle := range got {
				assert.False(t, candle.Date.IsZero())
				assert.Positive(t, candle.Close)
			}
		})
	}
}

func TestParsePriceRegex(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{
			name: "rows with foreign ratio column",
			body: `[["20240115", 72300, 73000, 72000, 72500, 1000000, 55.1], ["20240116", 72500, 73500, 72300, 73000, 1200000, 55.2]]`,
			want: 2,
		},
		{
			name: "invalid format",
			body: `{"invalid": "json"}`,
			want: 0,
		},
		{
			name: "empty string",
			body: "",
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePriceRegex(tt.body)
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}
}

func TestToInt64(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
		want  int64
	}{
		{"float64", 123.45, 123},
		{"int64", int64(123), 123},
		{"int", int(123), 123},
		{"string", "123", 123},
		{"comma string", "72,500", 72500},
		{"invalid string", "abc", 0},
		{"nil", nil, 0},
		{"empty string", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, toInt64(tt.input))
		})
	}
}

func TestFetchPrices(t *testing.T) {
	body := `[['날짜', '시가', '고가', '저가', '종가', '거래량', '외국인소진율'],
["20240115", 72300, 73000, 72000, 72500, 1000000, 55.1],
["20240116", 72500, 73500, 72300, 73000, 1200000, 55.2]
]`
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/siseJson.naver", r.URL.Path)
		assert.Equal(t, "week", r.URL.Query().Get("timeframe"))
		assert.Equal(t, "20240101", r.URL.Query().Get("startTime"))
		w.Write([]byte(body))
	}))

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	chart, err := c.FetchPrices(context.Background(), "005930", contracts.PeriodWeek, from, from.AddDate(0, 1, 0))
	require.NoError(t, err)

	assert.Equal(t, contracts.SourceNaver, chart.Source)
	require.Len(t, chart.Candles, 2)
	assert.Equal(t, int64(73000), chart.Candles[1].Close)
}

func TestFetchPrices_StatusError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := c.FetchPrices(context.Background(), "005930", contracts.PeriodDay, time.Now(), time.Now())

	var statusErr *httputil.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}
