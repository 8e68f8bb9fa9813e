package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/siftal/erc20bank/internal/storage"
)

func TestEscrowStore_BalanceDefaultsToZero(t *testing.T) {
	store := NewEscrowStore()

	bal, err := store.Balance(context.Background(), "never-seen")
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if bal != 0 {
		t.Errorf("Expected 0 for unknown account, got %d", bal)
	}
}

func TestEscrowStore_CreditAndDebit(t *testing.T) {
	store := NewEscrowStore()
	ctx := context.Background()

	if err := store.Credit(ctx, "acct", 100); err != nil {
		t.Fatalf("Credit failed: %v", err)
	}
	if err := store.Credit(ctx, "acct", 25); err != nil {
		t.Fatalf("Credit failed: %v", err)
	}

	bal, _ := store.Balance(ctx, "acct")
	if bal != 125 {
		t.Errorf("Expected 125, got %d", bal)
	}

	if err := store.Debit(ctx, "acct", 50); err != nil {
		t.Fatalf("Debit failed: %v", err)
	}
	bal, _ = store.Balance(ctx, "acct")
	if bal != 75 {
		t.Errorf("Expected 75, got %d", bal)
	}
}

func TestEscrowStore_DebitInsufficient(t *testing.T) {
	store := NewEscrowStore()
	ctx := context.Background()

	if err := store.Credit(ctx, "acct", 30); err != nil {
		t.Fatalf("Credit failed: %v", err)
	}

	err := store.Debit(ctx, "acct", 31)
	if !errors.Is(err, storage.ErrInsufficientBalance) {
		t.Errorf("Expected ErrInsufficientBalance, got %v", err)
	}

	// Failed debit must not change the balance
	bal, _ := store.Balance(ctx, "acct")
	if bal != 30 {
		t.Errorf("Expected 30 after failed debit, got %d", bal)
	}
}

func TestEscrowStore_Zero(t *testing.T) {
	store := NewEscrowStore()
	ctx := context.Background()

	if err := store.Credit(ctx, "acct", 70); err != nil {
		t.Fatalf("Credit failed: %v", err)
	}

	held, err := store.Zero(ctx, "acct")
	if err != nil {
		t.Fatalf("Zero failed: %v", err)
	}
	if held != 70 {
		t.Errorf("Expected 70 held, got %d", held)
	}

	bal, _ := store.Balance(ctx, "acct")
	if bal != 0 {
		t.Errorf("Expected 0 after Zero, got %d", bal)
	}

	// Second Zero returns nothing
	held, err = store.Zero(ctx, "acct")
	if err != nil {
		t.Fatalf("Zero failed: %v", err)
	}
	if held != 0 {
		t.Errorf("Expected 0 on second Zero, got %d", held)
	}
}

func TestEscrowStore_Total(t *testing.T) {
	store := NewEscrowStore()
	ctx := context.Background()

	store.Credit(ctx, "a", 10)
	store.Credit(ctx, "b", 20)
	store.Credit(ctx, "c", 30)
	store.Debit(ctx, "b", 5)

	total, err := store.Total(ctx)
	if err != nil {
		t.Fatalf("Total failed: %v", err)
	}
	if total != 55 {
		t.Errorf("Expected total 55, got %d", total)
	}
}

func TestEscrowStore_EmptyAccount(t *testing.T) {
	store := NewEscrowStore()
	ctx := context.Background()

	if _, err := store.Balance(ctx, ""); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
	if err := store.Credit(ctx, "", 10); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
	if err := store.Debit(ctx, "", 10); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
	if _, err := store.Zero(ctx, ""); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestEscrowStore_ConcurrentCredits(t *testing.T) {
	store := NewEscrowStore()
	ctx := context.Background()

	const n = 100
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if err := store.Credit(ctx, "acct", 1); err != nil {
				t.Errorf("Credit failed: %v", err)
			}
		}()
	}
	wg.Wait()

	bal, _ := store.Balance(ctx, "acct")
	if bal != n {
		t.Errorf("Expected %d, got %d", n, bal)
	}
}
