package trading

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/paper-kospi/backend/internal/contracts"
	"github.com/wonny/paper-kospi/backend/internal/market"
)

const valuationConcurrency = 8

// Portfolio returns the user's account valued at current quotes. The
// valuation is cached briefly and dropped whenever the user trades.
func (s *Service) Portfolio(ctx context.Context, userID int64) (contracts.Portfolio, error) {
	return s.portfolios.Fetch(ctx, market.PortfolioKey(userID), func(ctx context.Context) (contracts.Portfolio, error) {
		return s.valuate(ctx, userID)
	})
}

// valuate prices every holding concurrently. A holding whose quote fails is
// valued at its average price and flagged Stale rather than failing the
// whole portfolio.
func (s *Service) valuate(ctx context.Context, userID int64) (contracts.Portfolio, error) {
	acc, err := s.store.GetAccount(ctx, userID)
	if err != nil {
		return contracts.Portfolio{}, err
	}
	holdings, err := s.store.ListHoldings(ctx, userID)
	if err != nil {
		return contracts.Portfolio{}, err
	}

	positions := make([]contracts.Position, len(holdings))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(valuationConcurrency)
	for i, h := range holdings {
		g.Go(func() error {
			quote, err := s.quotes.Get(gctx, h.Code)
			if err != nil {
				s.logger.WithError(err).WithField("code", h.Code).Warn("Quote unavailable, valuing at average price")
				positions[i] = valuePosition(h, h.AvgPrice, true)
				return nil
			}
			if h.Name == "" {
				h.Name = quote.Name
			}
			positions[i] = valuePosition(h, quote.Price, false)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return contracts.Portfolio{}, err
	}
	if err := ctx.Err(); err != nil {
		return contracts.Portfolio{}, err
	}

	p := contracts.Portfolio{
		UserID:      userID,
		Cash:        acc.Cash,
		InitialCash: acc.InitialCash,
		Positions:   positions,
		ValuedAt:    s.now(),
	}
	for _, pos := range positions {
		p.TotalCost += pos.Cost()
		p.TotalEvaluation += pos.EvalAmount
	}
	p.TotalAsset = p.Cash + p.TotalEvaluation
	p.ProfitLoss = p.TotalAsset - p.InitialCash
	p.ReturnRate = percent(p.ProfitLoss, p.InitialCash)

	return p, nil
}

func valuePosition(h contracts.Holding, price int64, stale bool) contracts.Position {
	eval := h.Qty * price
	return contracts.Position{
		Holding:        h,
		CurrentPrice:   price,
		EvalAmount:     eval,
		ProfitLoss:     eval - h.Cost(),
		ProfitLossRate: percent(eval-h.Cost(), h.Cost()),
		Stale:          stale,
	}
}

// percent returns part/base in percent rounded to 2 decimals
func percent(part, base int64) float64 {
	if base == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(base)*10000) / 100
}
