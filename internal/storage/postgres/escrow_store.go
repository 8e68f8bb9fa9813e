package postgres

import (
	"context"
	"fmt"

	"github.com/siftal/erc20bank/internal/storage"
)

// EscrowStore implements storage.EscrowStore using PostgreSQL.
// A missing row means balance zero.
type EscrowStore struct {
	pool *Pool
}

// NewEscrowStore creates a new EscrowStore.
func NewEscrowStore(pool *Pool) *EscrowStore {
	return &EscrowStore{pool: pool}
}

// Compile-time interface check.
var _ storage.EscrowStore = (*EscrowStore)(nil)

// Balance returns the custodied balance of an account (0 if never seen).
func (s *EscrowStore) Balance(ctx context.Context, account string) (uint64, error) {
	if account == "" {
		return 0, storage.ErrInvalidInput
	}

	query := `SELECT balance FROM escrow_balances WHERE account = $1`

	var balance uint64
	err := s.pool.QueryRow(ctx, query, account).Scan(&balance)
	if err != nil {
		if isNotFoundError(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("get escrow balance: %w", err)
	}
	return balance, nil
}

// Credit adds amount to an account's balance, creating the row if needed.
func (s *EscrowStore) Credit(ctx context.Context, account string, amount uint64) error {
	if account == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO escrow_balances (account, balance)
		VALUES ($1, $2)
		ON CONFLICT (account) DO UPDATE SET balance = escrow_balances.balance + EXCLUDED.balance
	`

	if _, err := s.pool.Exec(ctx, query, account, amount); err != nil {
		return fmt.Errorf("credit escrow balance: %w", err)
	}
	return nil
}

// Debit subtracts amount from an account's balance. The guard in the WHERE
// clause makes the check-and-subtract a single atomic statement.
func (s *EscrowStore) Debit(ctx context.Context, account string, amount uint64) error {
	if account == "" {
		return storage.ErrInvalidInput
	}

	query := `
		UPDATE escrow_balances
		SET balance = balance - $2
		WHERE account = $1 AND balance >= $2
	`

	tag, err := s.pool.Exec(ctx, query, account, amount)
	if err != nil {
		return fmt.Errorf("debit escrow balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrInsufficientBalance
	}
	return nil
}

// Zero clears an account's balance and returns the amount that was held.
func (s *EscrowStore) Zero(ctx context.Context, account string) (uint64, error) {
	if account == "" {
		return 0, storage.ErrInvalidInput
	}

	query := `DELETE FROM escrow_balances WHERE account = $1 RETURNING balance`

	var held uint64
	err := s.pool.QueryRow(ctx, query, account).Scan(&held)
	if err != nil {
		if isNotFoundError(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("zero escrow balance: %w", err)
	}
	return held, nil
}

// Total returns the sum of all balances.
func (s *EscrowStore) Total(ctx context.Context) (uint64, error) {
	// SUM over bigint yields numeric; cast back so the scan target stays integral.
	query := `SELECT COALESCE(SUM(balance), 0)::BIGINT FROM escrow_balances`

	var total uint64
	if err := s.pool.QueryRow(ctx, query).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum escrow balances: %w", err)
	}
	return total, nil
}
