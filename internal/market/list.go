package market

import (
	"context"
	"time"

	"github.com/wonny/paper-kospi/backend/internal/contracts"
	"github.com/wonny/paper-kospi/backend/internal/freshness"
	"github.com/wonny/paper-kospi/backend/internal/refresh"
	"github.com/wonny/paper-kospi/backend/pkg/logger"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ListQuery selects a page of a ranked stock list
type ListQuery struct {
	Page     int
	PageSize int
	Sector   string
	Sort     contracts.ListSort
}

// Normalize clamps paging and canonicalises filters
func (q ListQuery) Normalize() ListQuery {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	q.Sector = normaliseSector(q.Sector)
	if q.Sort == "" {
		q.Sort = contracts.SortVolume
	}
	return q
}

// StockList is one page of a ranking
type StockList struct {
	Items    []contracts.StockSummary `json:"items"`
	Page     int                      `json:"page"`
	PageSize int                      `json:"page_size"`
	Total    int                      `json:"total"`
	Sector   string                   `json:"sector,omitempty"`
	Sort     contracts.ListSort       `json:"sort"`
}

// ListService serves ranked stock lists. The whole ranking is cached per
// (sector, sort); pages are cut from the cached slice.
type ListService struct {
	source Source
	coord  *refresh.Coordinator[[]contracts.StockSummary]
}

// NewListService creates a list service
func NewListService(source Source, ttl time.Duration, log *logger.Logger, opts ...freshness.Option) (*ListService, error) {
	cache, err := freshness.New[string, []contracts.StockSummary](ttl, append([]freshness.Option{freshness.WithName("stock_list")}, opts...)...)
	if err != nil {
		return nil, err
	}

	return &ListService{
		source: source,
		coord:  refresh.New(cache, refresh.WithLogger(log), refresh.WithFetchTimeout(15*time.Second)),
	}, nil
}

// List returns one page of the ranking selected by q
func (s *ListService) List(ctx context.Context, q ListQuery) (StockList, error) {
	q = q.Normalize()

	ranking, err := s.coord.Fetch(ctx, ListKey(q.Sector, q.Sort), func(ctx context.Context) ([]contracts.StockSummary, error) {
		return s.source.Ranking(ctx, q.Sector, q.Sort)
	})
	if err != nil {
		return StockList{}, err
	}

	out := StockList{
		Page:     q.Page,
		PageSize: q.PageSize,
		Total:    len(ranking),
		Sector:   q.Sector,
		Sort:     q.Sort,
	}

	// page 범위를 곱하기 전에 확인 (overflow 방지)
	if q.Page-1 >= (len(ranking)+q.PageSize-1)/q.PageSize {
		out.Items = []contracts.StockSummary{}
		return out, nil
	}
	start := (q.Page - 1) * q.PageSize
	if start >= len(ranking) {
		out.Items = []contracts.StockSummary{}
		return out, nil
	}
	end := start + q.PageSize
	if end > len(ranking) {
		end = len(ranking)
	}

	// copy so callers cannot mutate the cached ranking
	out.Items = append([]contracts.StockSummary(nil), ranking[start:end]...)
	return out, nil
}

// Coordinator exposes the underlying coordinator
func (s *ListService) Coordinator() *refresh.Coordinator[[]contracts.StockSummary] {
	return s.coord
}
