package clickhouse_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/siftal/erc20bank/internal/domain"
	"github.com/siftal/erc20bank/internal/storage"
	"github.com/siftal/erc20bank/internal/storage/clickhouse"
	"github.com/siftal/erc20bank/internal/storage/migrations"
)

// setupTestDB creates a ClickHouse container and applies the embedded
// migrations. Returns a cleanup function that must be called when done.
func setupTestDB(t *testing.T) (*clickhouse.Conn, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "clickhouse/clickhouse-server:24.1-alpine",
		ExposedPorts: []string{"9000/tcp", "8123/tcp"},
		WaitingFor: wait.ForAll(
			wait.ForLog("Application: Ready for connections").
				WithStartupTimeout(60 * time.Second),
			wait.ForListeningPort("9000/tcp"),
		),
		Env: map[string]string{
			"CLICKHOUSE_DB":       "test",
			"CLICKHOUSE_USER":     "default",
			"CLICKHOUSE_PASSWORD": "",
		},
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "9000")
	require.NoError(t, err)

	dsn := fmt.Sprintf("clickhouse://%s:%s/test", host, port.Port())

	conn, err := migrations.RunClickhouseMigrations(ctx, dsn)
	require.NoError(t, err)

	cleanup := func() {
		conn.Close()
		_ = container.Terminate(ctx)
	}

	return conn, cleanup
}

func TestEventStore_InsertAndGet(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := clickhouse.NewEventStore(conn)
	ctx := context.Background()

	started := &domain.Event{
		Type:      domain.EventTypeLiquidationStarted,
		Timestamp: 1700000000000,
		Started: &domain.LiquidationStarted{
			LiquidationID:    1,
			LoanID:           "loan-ch-1",
			CollateralAmount: 100,
			Amount:           50,
			EndTime:          1700003600000,
		},
	}
	require.NoError(t, store.Insert(ctx, started))

	stopped := &domain.Event{
		Type:      domain.EventTypeLiquidationStopped,
		Timestamp: 1700003700000,
		Stopped: &domain.LiquidationStopped{
			LiquidationID: 1,
			LoanID:        "loan-ch-1",
			BestBid:       60,
			BestBidder:    "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8",
		},
	}
	require.NoError(t, store.Insert(ctx, stopped))

	got, err := store.GetByLiquidationID(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, domain.EventTypeLiquidationStarted, got[0].Type)
	require.NotNil(t, got[0].Started)
	assert.Equal(t, uint64(1), got[0].Started.LiquidationID)
	assert.Equal(t, "loan-ch-1", got[0].Started.LoanID)
	assert.Equal(t, uint64(100), got[0].Started.CollateralAmount)
	assert.Equal(t, uint64(50), got[0].Started.Amount)
	assert.Equal(t, int64(1700003600000), got[0].Started.EndTime)

	assert.Equal(t, domain.EventTypeLiquidationStopped, got[1].Type)
	require.NotNil(t, got[1].Stopped)
	assert.Equal(t, uint64(60), got[1].Stopped.BestBid)
	assert.Equal(t, "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8", got[1].Stopped.BestBidder)
}

func TestEventStore_FiltersByLiquidation(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := clickhouse.NewEventStore(conn)
	ctx := context.Background()

	for id := uint64(1); id <= 3; id++ {
		ev := &domain.Event{
			Type:      domain.EventTypeLiquidationStarted,
			Timestamp: int64(1700000000000 + id),
			Started: &domain.LiquidationStarted{
				LiquidationID:    id,
				LoanID:           fmt.Sprintf("loan-%d", id),
				CollateralAmount: 100,
				Amount:           50,
				EndTime:          1700003600000,
			},
		}
		require.NoError(t, store.Insert(ctx, ev))
	}

	got, err := store.GetByLiquidationID(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "loan-2", got[0].Started.LoanID)

	got, err = store.GetByLiquidationID(ctx, 99)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEventStore_InsertInvalid(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := clickhouse.NewEventStore(conn)
	ctx := context.Background()

	err := store.Insert(ctx, nil)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
