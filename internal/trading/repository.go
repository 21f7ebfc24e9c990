package trading

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/paper-kospi/backend/internal/contracts"
	"github.com/wonny/paper-kospi/backend/pkg/database"
)

const uniqueViolation = "23505"

// Repository handles paper trading persistence
// ⭐ SSOT: 모의투자 데이터 저장/조회는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new trading repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateUser inserts a user and opens its account in one transaction
func (r *Repository) CreateUser(ctx context.Context, username, passwordHash string, initialCash int64) (contracts.User, error) {
	var user contracts.User

	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		query := `
			INSERT INTO paper.users (username, password_hash)
			VALUES ($1, $2)
			RETURNING id, username, created_at
		`
		if err := tx.QueryRow(ctx, query, username, passwordHash).Scan(&user.ID, &user.Username, &user.CreatedAt); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return ErrUserExists
			}
			return fmt.Errorf("failed to insert user: %w", err)
		}

		query = `
			INSERT INTO paper.accounts (user_id, cash, initial_cash)
			VALUES ($1, $2, $2)
		`
		if _, err := tx.Exec(ctx, query, user.ID, initialCash); err != nil {
			return fmt.Errorf("failed to open account: %w", err)
		}
		return nil
	})

	return user, err
}

// GetCredentials returns the user and its password hash
func (r *Repository) GetCredentials(ctx context.Context, username string) (contracts.User, string, error) {
	query := `
		SELECT id, username, password_hash, created_at
		FROM paper.users
		WHERE username = $1
	`

	var user contracts.User
	var hash string
	err := r.pool.QueryRow(ctx, query, username).Scan(&user.ID, &user.Username, &hash, &user.CreatedAt)
	if err == pgx.ErrNoRows {
		return user, "", ErrNotFound
	}
	if err != nil {
		return user, "", fmt.Errorf("failed to get user: %w", err)
	}

	return user, hash, nil
}

// ListUserIDs returns every account owner
func (r *Repository) ListUserIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT user_id FROM paper.accounts ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("failed to scan accounts: %w", err)
	}
	return ids, nil
}

// ListHeldCodes returns the distinct codes held across all accounts
func (r *Repository) ListHeldCodes(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT stock_code FROM paper.holdings ORDER BY stock_code`)
	if err != nil {
		return nil, fmt.Errorf("failed to list held codes: %w", err)
	}

	codes, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan held codes: %w", err)
	}
	return codes, nil
}

// GetAccount returns the cash side of an account
func (r *Repository) GetAccount(ctx context.Context, userID int64) (Account, error) {
	query := `
		SELECT user_id, cash, initial_cash
		FROM paper.accounts
		WHERE user_id = $1
	`

	var acc Account
	err := r.pool.QueryRow(ctx, query, userID).Scan(&acc.UserID, &acc.Cash, &acc.InitialCash)
	if err == pgx.ErrNoRows {
		return acc, ErrNotFound
	}
	if err != nil {
		return acc, fmt.Errorf("failed to get account: %w", err)
	}

	return acc, nil
}

// ListHoldings returns open positions ordered by stock code
func (r *Repository) ListHoldings(ctx context.Context, userID int64) ([]contracts.Holding, error) {
	query := `
		SELECT stock_code, stock_name, qty, avg_price
		FROM paper.holdings
		WHERE user_id = $1
		ORDER BY stock_code
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	holdings := make([]contracts.Holding, 0)
	for rows.Next() {
		var h contracts.Holding
		if err := rows.Scan(&h.Code, &h.Name, &h.Qty, &h.AvgPrice); err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, h)
	}

	return holdings, rows.Err()
}

// ExecuteOrder locks the account and holding rows, applies the fill and
// records the order
func (r *Repository) ExecuteOrder(ctx context.Context, order *contracts.Order) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var cash int64
		err := tx.QueryRow(ctx,
			`SELECT cash FROM paper.accounts WHERE user_id = $1 FOR UPDATE`,
			order.UserID,
		).Scan(&cash)
		if err == pgx.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to lock account: %w", err)
		}

		holding := contracts.Holding{Code: order.Code}
		err = tx.QueryRow(ctx,
			`SELECT stock_name, qty, avg_price FROM paper.holdings WHERE user_id = $1 AND stock_code = $2 FOR UPDATE`,
			order.UserID, order.Code,
		).Scan(&holding.Name, &holding.Qty, &holding.AvgPrice)
		if err != nil && err != pgx.ErrNoRows {
			return fmt.Errorf("failed to lock holding: %w", err)
		}

		newCash, newHolding, err := Apply(cash, holding, *order)
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx,
			`UPDATE paper.accounts SET cash = $1, updated_at = $2 WHERE user_id = $3`,
			newCash, order.CreatedAt, order.UserID,
		); err != nil {
			return fmt.Errorf("failed to update cash: %w", err)
		}

		if newHolding.Qty == 0 {
			_, err = tx.Exec(ctx,
				`DELETE FROM paper.holdings WHERE user_id = $1 AND stock_code = $2`,
				order.UserID, order.Code,
			)
		} else {
			_, err = tx.Exec(ctx, `
				INSERT INTO paper.holdings (user_id, stock_code, stock_name, qty, avg_price, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (user_id, stock_code) DO UPDATE SET
					stock_name = EXCLUDED.stock_name,
					qty = EXCLUDED.qty,
					avg_price = EXCLUDED.avg_price,
					updated_at = EXCLUDED.updated_at
			`, order.UserID, order.Code, newHolding.Name, newHolding.Qty, newHolding.AvgPrice, order.CreatedAt)
		}
		if err != nil {
			return fmt.Errorf("failed to update holding: %w", err)
		}

		order.CashAfter = newCash

		query := `
			INSERT INTO paper.orders (
				order_id, user_id, stock_code, stock_name, side, qty, price,
				fee, amount, cash_after, market_open, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`
		if _, err := tx.Exec(ctx, query,
			order.ID, order.UserID, order.Code, order.Name, order.Side, order.Qty, order.Price,
			order.Fee, order.Amount, order.CashAfter, order.MarketOpen, order.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to save order: %w", err)
		}

		return nil
	})
}

// ListOrders returns the most recent orders first
func (r *Repository) ListOrders(ctx context.Context, userID int64, limit int) ([]contracts.Order, error) {
	query := `
		SELECT order_id, user_id, stock_code, stock_name, side, qty, price,
		       fee, amount, cash_after, market_open, created_at
		FROM paper.orders
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]contracts.Order, 0)
	for rows.Next() {
		var o contracts.Order
		if err := rows.Scan(
			&o.ID, &o.UserID, &o.Code, &o.Name, &o.Side, &o.Qty, &o.Price,
			&o.Fee, &o.Amount, &o.CashAfter, &o.MarketOpen, &o.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}

	return orders, rows.Err()
}

// SaveSnapshot upserts the daily valuation of an account
func (r *Repository) SaveSnapshot(ctx context.Context, s contracts.Snapshot) error {
	query := `
		INSERT INTO paper.snapshots (user_id, snapshot_date, cash, evaluation, total_asset, return_rate)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, snapshot_date) DO UPDATE SET
			cash = EXCLUDED.cash,
			evaluation = EXCLUDED.evaluation,
			total_asset = EXCLUDED.total_asset,
			return_rate = EXCLUDED.return_rate
	`

	_, err := r.pool.Exec(ctx, query, s.UserID, s.Date, s.Cash, s.Evaluation, s.TotalAsset, s.ReturnRate)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	return nil
}

// ListSnapshots returns snapshots on or after since, oldest first
func (r *Repository) ListSnapshots(ctx context.Context, userID int64, since time.Time) ([]contracts.Snapshot, error) {
	query := `
		SELECT user_id, snapshot_date, cash, evaluation, total_asset, return_rate
		FROM paper.snapshots
		WHERE user_id = $1 AND snapshot_date >= $2
		ORDER BY snapshot_date
	`

	rows, err := r.pool.Query(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := make([]contracts.Snapshot, 0)
	for rows.Next() {
		var s contracts.Snapshot
		if err := rows.Scan(&s.UserID, &s.Date, &s.Cash, &s.Evaluation, &s.TotalAsset, &s.ReturnRate); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snapshots = append(snapshots, s)
	}

	return snapshots, rows.Err()
}
