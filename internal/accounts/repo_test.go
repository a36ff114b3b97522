package accounts

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/harvestlink/market-backend/pkg/db/dbtest"
	"github.com/harvestlink/market-backend/pkg/enums"
)

func TestApplyDeltaCreditAndDebit(t *testing.T) {
	client := dbtest.Open(t)
	conn := client.DB()
	user := dbtest.SeedUser(t, conn, "13800000001", enums.UserRoleBuyer)
	dbtest.SeedAccount(t, conn, user.ID, 10000)
	repo := NewRepository(conn)
	ctx := context.Background()

	balance, err := repo.ApplyDelta(ctx, user.ID, -2500)
	require.NoError(t, err)
	assert.Equal(t, int64(7500), balance)

	balance, err = repo.ApplyDelta(ctx, user.ID, 1000)
	require.NoError(t, err)
	assert.Equal(t, int64(8500), balance)

	assert.Equal(t, int64(8500), dbtest.LoadAccount(t, conn, user.ID).BalanceCents)
}

func TestApplyDeltaRefusesOverdraft(t *testing.T) {
	client := dbtest.Open(t)
	conn := client.DB()
	user := dbtest.SeedUser(t, conn, "13800000001", enums.UserRoleBuyer)
	dbtest.SeedAccount(t, conn, user.ID, 1000)
	repo := NewRepository(conn)

	_, err := repo.ApplyDelta(context.Background(), user.ID, -1001)
	require.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, int64(1000), dbtest.LoadAccount(t, conn, user.ID).BalanceCents)

	balance, err := repo.ApplyDelta(context.Background(), user.ID, -1000)
	require.NoError(t, err)
	assert.Zero(t, balance)
}

func TestApplyDeltaUnknownAccount(t *testing.T) {
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())

	_, err := repo.ApplyDelta(context.Background(), uuid.New(), 500)
	assert.ErrorIs(t, err, ErrAccountNotFound)

	_, err = repo.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestApplyDeltaRollsBackWithTransaction(t *testing.T) {
	client := dbtest.Open(t)
	conn := client.DB()
	user := dbtest.SeedUser(t, conn, "13800000001", enums.UserRoleBuyer)
	dbtest.SeedAccount(t, conn, user.ID, 5000)
	repo := NewRepository(conn)
	boom := errors.New("boom")

	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		locked, err := repo.WithTx(tx).GetForUpdate(context.Background(), user.ID)
		require.NoError(t, err)
		require.Equal(t, int64(5000), locked.BalanceCents)
		if _, err := repo.WithTx(tx).ApplyDelta(context.Background(), user.ID, -5000); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, int64(5000), dbtest.LoadAccount(t, conn, user.ID).BalanceCents)
}
