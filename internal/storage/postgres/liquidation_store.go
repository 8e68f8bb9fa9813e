package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/siftal/erc20bank/internal/domain"
	"github.com/siftal/erc20bank/internal/storage"
)

// LiquidationStore implements storage.LiquidationStore using PostgreSQL.
type LiquidationStore struct {
	pool *Pool
}

// NewLiquidationStore creates a new LiquidationStore.
func NewLiquidationStore(pool *Pool) *LiquidationStore {
	return &LiquidationStore{pool: pool}
}

// Compile-time interface check.
var _ storage.LiquidationStore = (*LiquidationStore)(nil)

// Insert stores a new liquidation; the sequential id comes from the table's
// identity column.
func (s *LiquidationStore) Insert(ctx context.Context, l *domain.Liquidation) (uint64, error) {
	if l == nil || l.LoanID == "" {
		return 0, storage.ErrInvalidInput
	}

	query := `
		INSERT INTO liquidations (
			loan_id, collateral_amount, amount, end_time, best_bid, best_bidder, state, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	var id uint64
	err := s.pool.QueryRow(ctx, query,
		l.LoanID,
		l.CollateralAmount,
		l.Amount,
		l.EndTime,
		l.BestBid,
		l.BestBidder,
		string(l.State),
		l.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert liquidation: %w", err)
	}
	return id, nil
}

// GetByID retrieves a liquidation by id. Returns ErrNotFound if not exists.
func (s *LiquidationStore) GetByID(ctx context.Context, id uint64) (*domain.Liquidation, error) {
	query := `
		SELECT id, loan_id, collateral_amount, amount, end_time, best_bid, best_bidder, state, created_at
		FROM liquidations
		WHERE id = $1
	`

	liq, err := scanLiquidation(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get liquidation by id: %w", err)
	}
	return liq, nil
}

// Update replaces the mutable fields of an existing liquidation.
func (s *LiquidationStore) Update(ctx context.Context, l *domain.Liquidation) error {
	if l == nil || l.ID == 0 {
		return storage.ErrInvalidInput
	}

	query := `
		UPDATE liquidations
		SET best_bid = $2, best_bidder = $3, state = $4
		WHERE id = $1
	`

	tag, err := s.pool.Exec(ctx, query, l.ID, l.BestBid, l.BestBidder, string(l.State))
	if err != nil {
		return fmt.Errorf("update liquidation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetAll retrieves all liquidations ordered by id ASC.
func (s *LiquidationStore) GetAll(ctx context.Context) ([]*domain.Liquidation, error) {
	query := `
		SELECT id, loan_id, collateral_amount, amount, end_time, best_bid, best_bidder, state, created_at
		FROM liquidations
		ORDER BY id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all liquidations: %w", err)
	}
	defer rows.Close()

	return scanLiquidations(rows)
}

// GetByState retrieves all liquidations in the given state, ordered by id ASC.
func (s *LiquidationStore) GetByState(ctx context.Context, state domain.LiquidationState) ([]*domain.Liquidation, error) {
	query := `
		SELECT id, loan_id, collateral_amount, amount, end_time, best_bid, best_bidder, state, created_at
		FROM liquidations
		WHERE state = $1
		ORDER BY id ASC
	`

	rows, err := s.pool.Query(ctx, query, string(state))
	if err != nil {
		return nil, fmt.Errorf("get liquidations by state: %w", err)
	}
	defer rows.Close()

	return scanLiquidations(rows)
}

// scanLiquidation scans a single row into a Liquidation.
func scanLiquidation(row pgx.Row) (*domain.Liquidation, error) {
	var liq domain.Liquidation
	var state string

	err := row.Scan(
		&liq.ID,
		&liq.LoanID,
		&liq.CollateralAmount,
		&liq.Amount,
		&liq.EndTime,
		&liq.BestBid,
		&liq.BestBidder,
		&state,
		&liq.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	liq.State = domain.LiquidationState(state)
	return &liq, nil
}

// scanLiquidations scans multiple rows into a slice of Liquidation.
func scanLiquidations(rows pgx.Rows) ([]*domain.Liquidation, error) {
	var result []*domain.Liquidation

	for rows.Next() {
		liq, err := scanLiquidation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan liquidation: %w", err)
		}
		result = append(result, liq)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate liquidations: %w", err)
	}

	return result, nil
}
