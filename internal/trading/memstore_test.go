package trading

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wonny/paper-kospi/backend/internal/contracts"
)

// memStore is an in-memory Store for service tests
type memStore struct {
	mu        sync.Mutex
	nextID    int64
	users     map[string]contracts.User
	hashes    map[string]string
	accounts  map[int64]*Account
	holdings  map[int64]map[string]contracts.Holding
	orders    map[int64][]contracts.Order
	snapshots map[int64][]contracts.Snapshot
}

func newMemStore() *memStore {
	return &memStore{
		users:     make(map[string]contracts.User),
		hashes:    make(map[string]string),
		accounts:  make(map[int64]*Account),
		holdings:  make(map[int64]map[string]contracts.Holding),
		orders:    make(map[int64][]contracts.Order),
		snapshots: make(map[int64][]contracts.Snapshot),
	}
}

func (m *memStore) CreateUser(ctx context.Context, username, hash string, initialCash int64) (contracts.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[username]; ok {
		return contracts.User{}, ErrUserExists
	}
	m.nextID++
	u := contracts.User{ID: m.nextID, Username: username, CreatedAt: time.Now()}
	m.users[username] = u
	m.hashes[username] = hash
	m.accounts[u.ID] = &Account{UserID: u.ID, Cash: initialCash, InitialCash: initialCash}
	m.holdings[u.ID] = make(map[string]contracts.Holding)
	return u, nil
}

func (m *memStore) GetCredentials(ctx context.Context, username string) (contracts.User, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[username]
	if !ok {
		return contracts.User{}, "", ErrNotFound
	}
	return u, m.hashes[username], nil
}

func (m *memStore) ListUserIDs(ctx context.Context) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]int64, 0, len(m.accounts))
	for id := range m.accounts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *memStore) ListHeldCodes(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[string]bool)
	var codes []string
	for _, byCode := range m.holdings {
		for code, h := range byCode {
			if h.Qty > 0 && !seen[code] {
				seen[code] = true
				codes = append(codes, code)
			}
		}
	}
	sort.Strings(codes)
	return codes, nil
}

func (m *memStore) GetAccount(ctx context.Context, userID int64) (Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	acc, ok := m.accounts[userID]
	if !ok {
		return Account{}, ErrNotFound
	}
	return *acc, nil
}

func (m *memStore) ListHoldings(ctx context.Context, userID int64) ([]contracts.Holding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]contracts.Holding, 0)
	for _, h := range m.holdings[userID] {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m *memStore) ExecuteOrder(ctx context.Context, order *contracts.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	acc, ok := m.accounts[order.UserID]
	if !ok {
		return ErrNotFound
	}
	cash, h, err := Apply(acc.Cash, m.holdings[order.UserID][order.Code], *order)
	if err != nil {
		return err
	}

	acc.Cash = cash
	if h.Qty == 0 {
		delete(m.holdings[order.UserID], order.Code)
	} else {
		m.holdings[order.UserID][order.Code] = h
	}
	order.CashAfter = cash
	m.orders[order.UserID] = append([]contracts.Order{*order}, m.orders[order.UserID]...)
	return nil
}

func (m *memStore) ListOrders(ctx context.Context, userID int64, limit int) ([]contracts.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	orders := m.orders[userID]
	if len(orders) > limit {
		orders = orders[:limit]
	}
	return append([]contracts.Order(nil), orders...), nil
}

func (m *memStore) SaveSnapshot(ctx context.Context, s contracts.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, existing := range m.snapshots[s.UserID] {
		if existing.Date.Equal(s.Date) {
			m.snapshots[s.UserID][i] = s
			return nil
		}
	}
	m.snapshots[s.UserID] = append(m.snapshots[s.UserID], s)
	return nil
}

func (m *memStore) ListSnapshots(ctx context.Context, userID int64, since time.Time) ([]contracts.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]contracts.Snapshot, 0)
	for _, s := range m.snapshots[userID] {
		if !s.Date.Before(since) {
			out = append(out, s)
		}
	}
	return out, nil
}

var _ Store = (*memStore)(nil)
var _ Store = (*Repository)(nil)

// fakeQuotes is a settable QuoteProvider
type fakeQuotes struct {
	mu     sync.Mutex
	prices map[string]int64
	calls  int
}

func newFakeQuotes(prices map[string]int64) *fakeQuotes {
	return &fakeQuotes{prices: prices}
}

func (f *fakeQuotes) set(code string, price int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices[code] = price
}

func (f *fakeQuotes) Get(ctx context.Context, code string) (contracts.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	price, ok := f.prices[code]
	if !ok {
		return contracts.Quote{}, errQuoteDown
	}
	return contracts.Quote{Code: code, Name: "종목" + code, Price: price}, nil
}
