// Package auction implements the liquidation auction engine: a sealed,
// strictly-improving reverse auction over a defaulted loan's collateral,
// backed by a per-account escrow ledger.
//
// Every operation either fully commits or fully rejects. State is written
// only after all validations and all fallible collaborator calls have
// reached a safe checkpoint, and a single engine-wide mutex serializes all
// operations, standing in for the serialized-call host the protocol was
// designed for.
package auction

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/siftal/erc20bank/internal/bank"
	"github.com/siftal/erc20bank/internal/domain"
	"github.com/siftal/erc20bank/internal/events"
	"github.com/siftal/erc20bank/internal/observability"
	"github.com/siftal/erc20bank/internal/storage"
	"github.com/siftal/erc20bank/internal/token"
)

// Engine owns auction lifecycle state and bidder escrow accounting.
type Engine struct {
	mu sync.Mutex

	liquidations storage.LiquidationStore
	escrow       storage.EscrowStore

	token   token.Client
	bank    bank.Client
	account string // engine custody address on the settlement token

	cred    bank.Credential
	sink    events.Sink
	clock   Clock
	logger  *log.Logger
	metrics *observability.Metrics
}

// Options for creating an Engine.
type Options struct {
	// Required stores
	LiquidationStore storage.LiquidationStore
	EscrowStore      storage.EscrowStore

	// Required collaborators
	Token          token.Client
	Bank           bank.Client
	EngineAccount  string          // custody address on the settlement token
	BankCredential bank.Credential // capability required by Open

	// Optional
	Sink    events.Sink // defaults to events.Discard
	Clock   Clock       // defaults to SystemClock
	Logger  *log.Logger // defaults to log.Default
	Metrics *observability.Metrics
}

// New creates a new Engine.
func New(opts Options) (*Engine, error) {
	if opts.LiquidationStore == nil || opts.EscrowStore == nil {
		return nil, errors.New("liquidation and escrow stores are required")
	}
	if opts.Token == nil || opts.Bank == nil {
		return nil, errors.New("token and bank collaborators are required")
	}
	if err := domain.ValidateAddress(opts.EngineAccount); err != nil {
		return nil, fmt.Errorf("engine account: %w", err)
	}
	if opts.BankCredential == "" {
		return nil, errors.New("bank credential is required")
	}

	sink := opts.Sink
	if sink == nil {
		sink = events.Discard{}
	}
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Engine{
		liquidations: opts.LiquidationStore,
		escrow:       opts.EscrowStore,
		token:        opts.Token,
		bank:         opts.Bank,
		account:      opts.EngineAccount,
		cred:         opts.BankCredential,
		sink:         sink,
		clock:        clock,
		logger:       logger,
		metrics:      opts.Metrics,
	}, nil
}

// Open creates a new liquidation auction. Only the Bank's credential may
// open one. No funds move.
func (e *Engine) Open(ctx context.Context, cred bank.Credential, loanID string, collateralAmount, amount uint64, duration time.Duration) (uint64, error) {
	if cred != e.cred {
		return 0, ErrUnauthorized
	}
	if collateralAmount == 0 || amount == 0 {
		return 0, ErrZeroValue
	}
	if loanID == "" {
		return 0, fmt.Errorf("open auction: %w", storage.ErrInvalidInput)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now().UnixMilli()
	liq := &domain.Liquidation{
		LoanID:           loanID,
		CollateralAmount: collateralAmount,
		Amount:           amount,
		EndTime:          now + duration.Milliseconds(),
		BestBid:          0,
		BestBidder:       domain.ZeroAddress,
		State:            domain.LiquidationStateActive,
		CreatedAt:        now,
	}

	id, err := e.liquidations.Insert(ctx, liq)
	if err != nil {
		return 0, fmt.Errorf("insert liquidation: %w", err)
	}

	if e.metrics != nil {
		e.metrics.AuctionsOpened.Inc()
		e.metrics.ActiveAuctions.Inc()
	}
	e.logger.Printf("opened liquidation %d for loan %s (collateral=%d debt=%d ends=%d)",
		id, loanID, collateralAmount, amount, liq.EndTime)

	e.sink.Publish(ctx, &domain.Event{
		Type:      domain.EventTypeLiquidationStarted,
		Timestamp: now,
		Started: &domain.LiquidationStarted{
			LiquidationID:    id,
			LoanID:           loanID,
			CollateralAmount: collateralAmount,
			Amount:           amount,
			EndTime:          liq.EndTime,
		},
	})

	return id, nil
}

// Bid places a bid claiming bidAmount collateral units for the auction's
// fixed debt amount. The bidder's entire current token allowance is pulled
// into custody before the escrow lock is validated; excess stays as
// withdrawable balance.
func (e *Engine) Bid(ctx context.Context, bidder string, liquidationID uint64, bidAmount uint64) error {
	err := e.bid(ctx, bidder, liquidationID, bidAmount)
	if err != nil && e.metrics != nil {
		e.metrics.BidsRejected.WithLabelValues(rejectionReason(err)).Inc()
	}
	return err
}

func (e *Engine) bid(ctx context.Context, bidder string, liquidationID uint64, bidAmount uint64) error {
	if err := domain.ValidateAddress(bidder); err != nil {
		return err
	}
	if bidder == domain.ZeroAddress {
		return domain.ErrInvalidAddress
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	liq, err := e.liquidations.GetByID(ctx, liquidationID)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get liquidation: %w", err)
	}
	if liq.State != domain.LiquidationStateActive {
		return ErrNotActive
	}
	if bidAmount == 0 {
		// A zero bid would clobber the "no bid yet" sentinel and leave the
		// auction impossible to close.
		return ErrZeroValue
	}
	if bidAmount > liq.CollateralAmount {
		return ErrBidTooHigh
	}
	if liq.HasBid() && bidAmount >= liq.BestBid {
		return ErrBidNotLower
	}

	// Funding pull: take the bidder's whole current allowance into custody.
	// A refused transfer means no funds pulled, not a failed bid; the escrow
	// check below decides.
	pulled, err := e.pullAllowance(ctx, bidder)
	if err != nil {
		return err
	}

	balance, err := e.escrow.Balance(ctx, bidder)
	if err != nil {
		return fmt.Errorf("get escrow balance: %w", err)
	}
	if balance+pulled < liq.Amount {
		return e.refundPull(ctx, bidder, pulled, ErrInsufficientFunds)
	}

	// Commit. Ledger writes happen only past this point.
	if pulled > 0 {
		if err := e.escrow.Credit(ctx, bidder, pulled); err != nil {
			return fmt.Errorf("credit pulled funds: %w", err)
		}
	}
	if err := e.escrow.Debit(ctx, bidder, liq.Amount); err != nil {
		return fmt.Errorf("lock debt amount: %w", err)
	}
	if prev := liq.BestBidder; prev != domain.ZeroAddress && prev != "" {
		// The displaced bidder regains exactly the uniform lock, never their
		// bid amount.
		if err := e.escrow.Credit(ctx, prev, liq.Amount); err != nil {
			return fmt.Errorf("refund outbid bidder: %w", err)
		}
	}

	liq.BestBid = bidAmount
	liq.BestBidder = bidder
	if err := e.liquidations.Update(ctx, liq); err != nil {
		return fmt.Errorf("update liquidation: %w", err)
	}

	if e.metrics != nil {
		e.metrics.BidsAccepted.Inc()
		e.updateEscrowGauge(ctx)
	}
	e.logger.Printf("liquidation %d: bid %d by %s (pulled=%d)", liquidationID, bidAmount, bidder, pulled)
	return nil
}

// pullAllowance reads the bidder's current allowance and pulls all of it
// into the engine's custody. Returns the amount actually pulled.
func (e *Engine) pullAllowance(ctx context.Context, bidder string) (uint64, error) {
	allowance, err := e.token.Allowance(ctx, bidder, e.account)
	if err != nil {
		e.countTokenError("allowance")
		return 0, fmt.Errorf("get allowance: %w", err)
	}
	if allowance == 0 {
		return 0, nil
	}

	ok, err := e.token.TransferFrom(ctx, bidder, e.account, allowance)
	if err != nil {
		e.countTokenError("transfer_from")
		return 0, fmt.Errorf("pull allowance: %w", err)
	}
	if !ok {
		return 0, nil
	}

	if e.metrics != nil {
		e.metrics.TokensPulled.Add(float64(allowance))
	}
	return allowance, nil
}

// refundPull compensates a funding pull on a rejected bid so the rejection
// stays atomic. If the token refuses the return transfer the pulled amount
// is credited to the bidder's escrow instead; value is never stranded.
func (e *Engine) refundPull(ctx context.Context, bidder string, pulled uint64, reject error) error {
	if pulled == 0 {
		return reject
	}
	if err := e.token.Transfer(ctx, bidder, pulled); err != nil {
		e.countTokenError("transfer")
		e.logger.Printf("bid rejected but pull refund failed, crediting escrow instead: account=%s amount=%d err=%v", bidder, pulled, err)
		if cerr := e.escrow.Credit(ctx, bidder, pulled); cerr != nil {
			return fmt.Errorf("credit unrefundable pull: %w", cerr)
		}
		if e.metrics != nil {
			e.updateEscrowGauge(ctx)
		}
	}
	return reject
}

// Close settles an auction past its deadline: the debt amount is burned
// from custody and the Bank transfers the won collateral to the best
// bidder. Any caller may close; only time and bid presence gate it.
//
// The burn and the FINISHED transition are staged: the Bank's settlement
// callback runs first, and nothing commits unless it reports success.
func (e *Engine) Close(ctx context.Context, liquidationID uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	liq, err := e.liquidations.GetByID(ctx, liquidationID)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get liquidation: %w", err)
	}
	if liq.State != domain.LiquidationStateActive {
		return ErrNotActive
	}
	now := e.clock.Now().UnixMilli()
	if now < liq.EndTime {
		return ErrAuctionOpen
	}
	if !liq.HasBid() {
		return ErrNoBids
	}

	start := time.Now()
	ok, err := e.bank.Settle(ctx, liq.LoanID, liq.BestBid, liq.BestBidder)
	if e.metrics != nil {
		e.metrics.SettleLatency.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		if e.metrics != nil {
			e.metrics.SettleFailures.Inc()
		}
		return fmt.Errorf("%w: %v", ErrSettleFailed, err)
	}
	if !ok {
		if e.metrics != nil {
			e.metrics.SettleFailures.Inc()
		}
		return ErrSettleFailed
	}

	// The winner's lock (already deducted at bid time) backs this burn; the
	// winner is not re-debited.
	if err := e.token.Burn(ctx, liq.Amount); err != nil {
		e.countTokenError("burn")
		return fmt.Errorf("burn debt amount: %w", err)
	}

	liq.State = domain.LiquidationStateFinished
	if err := e.liquidations.Update(ctx, liq); err != nil {
		return fmt.Errorf("update liquidation: %w", err)
	}

	if e.metrics != nil {
		e.metrics.AuctionsClosed.Inc()
		e.metrics.ActiveAuctions.Dec()
		e.metrics.TokensBurned.Add(float64(liq.Amount))
	}
	e.logger.Printf("closed liquidation %d: loan %s settled, %d burned, winner %s at %d",
		liquidationID, liq.LoanID, liq.Amount, liq.BestBidder, liq.BestBid)

	e.sink.Publish(ctx, &domain.Event{
		Type:      domain.EventTypeLiquidationStopped,
		Timestamp: now,
		Stopped: &domain.LiquidationStopped{
			LiquidationID: liquidationID,
			LoanID:        liq.LoanID,
			BestBid:       liq.BestBid,
			BestBidder:    liq.BestBidder,
		},
	})

	return nil
}

// Withdraw pays out the caller's whole custodied balance. The balance is
// zeroed before the outbound transfer so a transfer-receive hook that
// re-enters sees nothing left to drain.
func (e *Engine) Withdraw(ctx context.Context, account string) (uint64, error) {
	if err := domain.ValidateAddress(account); err != nil {
		return 0, err
	}
	if account == domain.ZeroAddress {
		return 0, domain.ErrInvalidAddress
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	held, err := e.escrow.Zero(ctx, account)
	if err != nil {
		return 0, fmt.Errorf("zero escrow balance: %w", err)
	}
	if held == 0 {
		return 0, ErrNothingToWithdraw
	}

	if err := e.token.Transfer(ctx, account, held); err != nil {
		e.countTokenError("transfer")
		// No funds moved; restore the balance so the rejection is atomic.
		if cerr := e.escrow.Credit(ctx, account, held); cerr != nil {
			return 0, fmt.Errorf("restore balance after failed withdrawal: %w", cerr)
		}
		return 0, fmt.Errorf("transfer withdrawal: %w", err)
	}

	if e.metrics != nil {
		e.metrics.TokensWithdrawn.Add(float64(held))
		e.updateEscrowGauge(ctx)
	}
	e.logger.Printf("withdrew %d to %s", held, account)

	e.sink.Publish(ctx, &domain.Event{
		Type:      domain.EventTypeWithdrew,
		Timestamp: e.clock.Now().UnixMilli(),
		Withdrew: &domain.Withdrew{
			Account: account,
			Amount:  held,
		},
	})

	return held, nil
}

// Liquidation returns the record for one auction.
func (e *Engine) Liquidation(ctx context.Context, id uint64) (*domain.Liquidation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	liq, err := e.liquidations.GetByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get liquidation: %w", err)
	}
	return liq, nil
}

// Liquidations returns all auction records ordered by id.
func (e *Engine) Liquidations(ctx context.Context) ([]*domain.Liquidation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.liquidations.GetAll(ctx)
}

// Balance returns an account's custodied escrow balance.
func (e *Engine) Balance(ctx context.Context, account string) (uint64, error) {
	if err := domain.ValidateAddress(account); err != nil {
		return 0, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.escrow.Balance(ctx, account)
}

func (e *Engine) updateEscrowGauge(ctx context.Context) {
	total, err := e.escrow.Total(ctx)
	if err != nil {
		return
	}
	e.metrics.EscrowTotal.Set(float64(total))
}

func (e *Engine) countTokenError(op string) {
	if e.metrics != nil {
		e.metrics.TokenCallErrors.WithLabelValues(op).Inc()
	}
}
