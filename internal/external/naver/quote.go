package naver

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/paper-kospi/backend/internal/contracts"
)

// ErrQuoteNotFound is returned when the page has no current price
// (delisted or unknown code)
var ErrQuoteNotFound = errors.New("naver: quote not found")

// FetchQuote scrapes the current price from the item/sise page.
// Used as the fallback when KIS is not configured or fails.
func (c *Client) FetchQuote(ctx context.Context, code string) (*contracts.Quote, error) {
	params := url.Values{}
	params.Set("code", code)

	html, err := c.fetchHTML(ctx, "/item/sise.naver", params)
	if err != nil {
		return nil, fmt.Errorf("fetch sise page: %w", err)
	}

	q, err := parseQuoteHTML(html)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", code, err)
	}
	q.Code = code
	q.Timestamp = c.now()

	return q, nil
}

// parseQuoteHTML extracts quote fields by element id
func parseQuoteHTML(html string) (*contracts.Quote, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}

	text := func(sel string) string {
		return strings.TrimSpace(doc.Find(sel).First().Text())
	}

	price := parseNumber(text("#_nowVal"))
	if price <= 0 {
		return nil, ErrQuoteNotFound
	}

	// #_diff carries the magnitude only; the sign comes from the rate
	rate := parseFloat(text("#_rate"))
	change := parseNumber(strings.Join(strings.Fields(text("#_diff")), ""))
	if change < 0 {
		change = -change
	}
	if rate < 0 || doc.Find("#_diff .ico.down, #_diff img[alt='하락']").Length() > 0 {
		change = -change
		if rate > 0 {
			rate = -rate
		}
	}

	q := &contracts.Quote{
		Name:         text(".wrap_company h2 a"),
		Price:        price,
		Change:       change,
		ChangeRate:   rate,
		Open:         parseNumber(text("#_start")),
		High:         parseNumber(text("#_high")),
		Low:          parseNumber(text("#_low")),
		PrevClose:    price - change,
		Volume:       parseNumber(text("#_quant")),
		TradingValue: parseNumber(text("#_amount")) * 1_000_000, // 백만원 단위
		Source:       contracts.SourceNaver,
	}
	return q, nil
}
