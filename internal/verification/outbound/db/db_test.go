package db

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/clock"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/goerror"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/instrument"
	"github.com/actg5grafindo/admin-pro-v005v/internal/verification/entity"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

func newTestDB(t *testing.T) (*DB, *clock.Fake) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()
	ctr, err := tcpostgres.Run(ctx, "postgres:17-alpine",
		tcpostgres.WithDatabase("verification"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	clk := clock.NewFake(time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC))
	db := NewDB(pool, clk, instrument.NewNoop())
	require.NoError(t, db.Migrate(ctx))
	require.NoError(t, db.Migrate(ctx))

	return db, clk
}

func TestDB(t *testing.T) {
	db, clk := newTestDB(t)
	ctx := context.Background()

	t.Run("DecrementAttemptsFloor", func(t *testing.T) {
		require.NoError(t, db.Put(ctx, entity.VerificationRequest{
			ID:                "f1",
			Recipient:         "floor@b.com",
			CodeHash:          "digest",
			IssuedAt:          clk.Now(),
			ExpiresAt:         clk.Now().Add(15 * time.Minute),
			RemainingAttempts: 1,
		}))

		for _, want := range []int{0, 0, 0} {
			left, err := db.DecrementAttempts(ctx, "floor@b.com", "f1")
			require.NoError(t, err)
			assert.Equal(t, want, left)
		}

		got, err := db.Peek(ctx, "floor@b.com")
		require.NoError(t, err)
		assert.Zero(t, got.RemainingAttempts)
	})

	t.Run("Requests", func(t *testing.T) {
		_, err := db.Get(ctx, "a@b.com")
		assert.ErrorIs(t, err, goerror.ErrNotFound)

		req := entity.VerificationRequest{
			ID:                "r1",
			Recipient:         "a@b.com",
			CodeHash:          "digest",
			IssuedAt:          clk.Now(),
			ExpiresAt:         clk.Now().Add(15 * time.Minute),
			RemainingAttempts: 3,
		}
		require.NoError(t, db.Put(ctx, req))

		got, err := db.Get(ctx, "a@b.com")
		require.NoError(t, err)
		assert.Equal(t, req, *got)

		left, err := db.DecrementAttempts(ctx, "a@b.com", "r1")
		require.NoError(t, err)
		assert.Equal(t, 2, left)

		_, err = db.DecrementAttempts(ctx, "a@b.com", "stale")
		assert.ErrorIs(t, err, goerror.ErrNotFound)

		req.ID = "r2"
		require.NoError(t, db.Put(ctx, req))

		won, err := db.Consume(ctx, "a@b.com", "r1")
		require.NoError(t, err)
		assert.False(t, won)

		var wins atomic.Int32
		var wg sync.WaitGroup
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if won, err := db.Consume(ctx, "a@b.com", "r2"); err == nil && won {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), wins.Load())
	})

	t.Run("Expiry", func(t *testing.T) {
		require.NoError(t, db.Put(ctx, entity.VerificationRequest{
			ID: "r3", Recipient: "c@d.com", CodeHash: "digest",
			IssuedAt: clk.Now(), ExpiresAt: clk.Now().Add(time.Minute), RemainingAttempts: 3,
		}))

		later := clock.NewFake(clk.Now().Add(2 * time.Minute))
		expiring := NewDB(db.conn, later, instrument.NewNoop())

		_, err := expiring.Peek(ctx, "c@d.com")
		require.NoError(t, err)

		_, err = expiring.Get(ctx, "c@d.com")
		assert.ErrorIs(t, err, entity.ErrRequestExpired)

		_, err = expiring.Get(ctx, "c@d.com")
		assert.ErrorIs(t, err, goerror.ErrNotFound)

		require.NoError(t, db.Put(ctx, entity.VerificationRequest{
			ID: "r4", Recipient: "e@f.com", CodeHash: "digest",
			IssuedAt: clk.Now(), ExpiresAt: clk.Now().Add(time.Minute), RemainingAttempts: 3,
		}))
		n, err := db.PurgeExpired(ctx, clk.Now().Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("Profiles", func(t *testing.T) {
		_, err := db.GetRecipientStatus(ctx, "a@b.com")
		assert.ErrorIs(t, err, goerror.ErrNotFound)

		require.NoError(t, db.MarkRecipientVerified(ctx, "a@b.com", clk.Now()))
		require.NoError(t, db.MarkRecipientVerified(ctx, "a@b.com", clk.Now().Add(time.Hour)))

		st, err := db.GetRecipientStatus(ctx, "a@b.com")
		require.NoError(t, err)
		assert.True(t, st.Verified)
		require.NotNil(t, st.VerifiedAt)
		assert.True(t, clk.Now().Equal(*st.VerifiedAt))
	})

	t.Run("DeliveryLogs", func(t *testing.T) {
		first := entity.DeliveryLog{
			ID: 1, Recipient: "a@b.com", Subject: "Your Verification Code", Template: "verification_code",
			Status: entity.DeliveryStatusQueued, Provider: "smtp", CreatedAt: clk.Now(), UpdatedAt: clk.Now(),
		}
		second := first
		second.ID = 2
		second.Recipient = "c@d.com"
		second.CreatedAt = clk.Now().Add(time.Second)

		require.NoError(t, db.CreateDeliveryLog(ctx, first))
		require.NoError(t, db.CreateDeliveryLog(ctx, second))
		assert.ErrorIs(t, db.CreateDeliveryLog(ctx, first), goerror.ErrConflict)

		require.NoError(t, db.UpdateDeliveryLog(ctx, entity.UpdateDeliveryLog{
			ID: 1, Status: entity.DeliveryStatusSent, MessageID: "<m1@host>", UpdatedAt: clk.Now().Add(time.Second),
		}))
		assert.ErrorIs(t, db.UpdateDeliveryLog(ctx, entity.UpdateDeliveryLog{ID: 99, Status: entity.DeliveryStatusSent}), goerror.ErrNotFound)

		all, err := db.ListDeliveryLogs(ctx, "", 10)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, int64(2), all[0].ID)

		mine, err := db.ListDeliveryLogs(ctx, "a@b.com", 10)
		require.NoError(t, err)
		require.Len(t, mine, 1)
		assert.Equal(t, entity.DeliveryStatusSent, mine[0].Status)
		assert.Equal(t, "<m1@host>", mine[0].MessageID)

		one, err := db.ListDeliveryLogs(ctx, "", 1)
		require.NoError(t, err)
		assert.Len(t, one, 1)
	})
}
