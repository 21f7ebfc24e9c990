package trading

import (
	"context"
	"time"

	"github.com/wonny/paper-kospi/backend/internal/contracts"
)

// Account is the cash side of a user's paper account
type Account struct {
	UserID      int64
	Cash        int64
	InitialCash int64
}

// Store persists paper trading state
type Store interface {
	CreateUser(ctx context.Context, username, passwordHash string, initialCash int64) (contracts.User, error)
	GetCredentials(ctx context.Context, username string) (contracts.User, string, error)
	ListUserIDs(ctx context.Context) ([]int64, error)

	GetAccount(ctx context.Context, userID int64) (Account, error)
	ListHoldings(ctx context.Context, userID int64) ([]contracts.Holding, error)
	// ListHeldCodes returns every code any account holds, sorted
	ListHeldCodes(ctx context.Context) ([]string, error)

	// ExecuteOrder applies order atomically and records it. On success
	// order.CashAfter holds the resulting cash.
	ExecuteOrder(ctx context.Context, order *contracts.Order) error
	ListOrders(ctx context.Context, userID int64, limit int) ([]contracts.Order, error)

	SaveSnapshot(ctx context.Context, s contracts.Snapshot) error
	ListSnapshots(ctx context.Context, userID int64, since time.Time) ([]contracts.Snapshot, error)
}
