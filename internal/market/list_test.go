package market

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/paper-kospi/backend/internal/contracts"
	"github.com/wonny/paper-kospi/backend/pkg/logger"
)

func newTestListService(t *testing.T, n int) (*ListService, *fakeSource) {
	t.Helper()
	src := newFakeSource("kis")
	src.ranking = makeRanking(n)
	svc, err := NewListService(src, time.Minute, logger.Nop())
	require.NoError(t, err)
	return svc, src
}

func TestListQuery_Normalize(t *testing.T) {
	q := ListQuery{Page: -1, PageSize: 1000, Sector: " ALL "}.Normalize()
	assert.Equal(t, ListQuery{Page: 1, PageSize: MaxPageSize, Sector: "", Sort: contracts.SortVolume}, q)
}

func TestListService_Paging(t *testing.T) {
	svc, _ := newTestListService(t, 45)
	ctx := context.Background()

	page, err := svc.List(ctx, ListQuery{Page: 3, PageSize: 20})
	require.NoError(t, err)
	assert.Equal(t, 45, page.Total)
	require.Len(t, page.Items, 5)
	assert.Equal(t, 41, page.Items[0].Rank)

	beyond, err := svc.List(ctx, ListQuery{Page: 10, PageSize: 20})
	require.NoError(t, err)
	assert.NotNil(t, beyond.Items)
	assert.Empty(t, beyond.Items)

	// first page past the end
	edge, err := svc.List(ctx, ListQuery{Page: 4, PageSize: 15})
	require.NoError(t, err)
	assert.Empty(t, edge.Items)

	huge, err := svc.List(ctx, ListQuery{Page: math.MaxInt, PageSize: 20})
	require.NoError(t, err)
	assert.NotNil(t, huge.Items)
	assert.Empty(t, huge.Items)
	assert.Equal(t, math.MaxInt, huge.Page)

	huge, err = svc.List(ctx, ListQuery{Page: 1 << 62, PageSize: MaxPageSize})
	require.NoError(t, err)
	assert.Empty(t, huge.Items)
}

func TestListService_EquivalentFiltersShareEntry(t *testing.T) {
	svc, src := newTestListService(t, 10)
	ctx := context.Background()

	for _, q := range []ListQuery{
		{},
		{Sector: "ALL", Sort: contracts.SortVolume},
		{Sector: "0000", Page: 2, PageSize: 5},
	} {
		_, err := svc.List(ctx, q)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), src.rankingCalls.Load())

	_, err := svc.List(ctx, ListQuery{Sort: contracts.SortValue})
	require.NoError(t, err)
	assert.Equal(t, int32(2), src.rankingCalls.Load())
}

func TestListService_ItemsAreCopies(t *testing.T) {
	svc, _ := newTestListService(t, 3)
	ctx := context.Background()

	page, err := svc.List(ctx, ListQuery{})
	require.NoError(t, err)
	page.Items[0].Code = "mutated"

	again, err := svc.List(ctx, ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, "000001", again.Items[0].Code)
}

func TestListService_Error(t *testing.T) {
	svc, src := newTestListService(t, 3)
	src.err = errUpstream

	_, err := svc.List(context.Background(), ListQuery{})
	assert.ErrorIs(t, err, errUpstream)
}
