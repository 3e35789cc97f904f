package store

import (
	"context"
	"math/big"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saingsab/jaamlong/internal/errs"
	"github.com/saingsab/jaamlong/internal/models"
)

func quoteFixture(t *testing.T, m *Memory) *models.Transfer {
	t.Helper()
	tr, err := m.QuoteTransfer(context.Background(), QuoteInsert{
		SenderAddress:        "0x90F8bf6A479f320ead074411a4B0e7944Ea8c9C1",
		ReceiverAddress:      "0x000000000000000000000000000000000000dEaD",
		FromTokenID:          uuid.New(),
		ToTokenID:            uuid.New(),
		OriginNetworkID:      uuid.New(),
		DestinationNetworkID: uuid.New(),
		TransferAmount:       big.NewInt(1_000_000),
		BridgeFee:            big.NewInt(1_000),
	})
	require.NoError(t, err)
	return tr
}

func TestQuoteTransferCreatesPending(t *testing.T) {
	m := NewMemory()
	tr := quoteFixture(t, m)

	status, err := m.GetStatus(context.Background(), tr.StatusID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, status.StatusName)
	assert.Nil(t, tr.OriginTxHash)
	assert.Nil(t, tr.DestinationTxHash)
	assert.Equal(t, "1001000", tr.TotalDeposit().String())
}

func TestSetOriginHashWriteOnce(t *testing.T) {
	m := NewMemory()
	tr := quoteFixture(t, m)
	ctx := context.Background()

	require.NoError(t, m.SetOriginHash(ctx, tr.ID, "0xaa"))

	err := m.SetOriginHash(ctx, tr.ID, "0xbb")
	require.Error(t, err)
	assert.Equal(t, errs.CodeIllegalTransition, errs.CodeOf(err))

	got, err := m.GetTransfer(ctx, tr.ID)
	require.NoError(t, err)
	require.NotNil(t, got.OriginTxHash)
	assert.Equal(t, "0xaa", *got.OriginTxHash)
}

func TestSetOriginHashUnknownTransfer(t *testing.T) {
	m := NewMemory()
	err := m.SetOriginHash(context.Background(), uuid.New(), "0xaa")
	require.Error(t, err)
	assert.Equal(t, errs.CodeUnknownTransfer, errs.CodeOf(err))
}

func TestFinalizeTransitions(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	t.Run("pending to success records hash", func(t *testing.T) {
		tr := quoteFixture(t, m)
		hash := "0xdd"
		require.NoError(t, m.Finalize(ctx, tr.ID, &hash, models.StatusSuccess))

		got, err := m.GetTransfer(ctx, tr.ID)
		require.NoError(t, err)
		require.NotNil(t, got.DestinationTxHash)
		assert.Equal(t, "0xdd", *got.DestinationTxHash)

		status, err := m.GetStatus(ctx, got.StatusID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusSuccess, status.StatusName)
	})

	t.Run("terminal states never change", func(t *testing.T) {
		tr := quoteFixture(t, m)
		require.NoError(t, m.Finalize(ctx, tr.ID, nil, models.StatusFail))

		err := m.Finalize(ctx, tr.ID, nil, models.StatusSuccess)
		require.Error(t, err)
		assert.Equal(t, errs.CodeAlreadyFinalized, errs.CodeOf(err))

		status, err := m.GetStatus(ctx, tr.StatusID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusFail, status.StatusName)
	})

	t.Run("finalized transfers reject origin hash", func(t *testing.T) {
		tr := quoteFixture(t, m)
		require.NoError(t, m.Finalize(ctx, tr.ID, nil, models.StatusFail))

		err := m.SetOriginHash(ctx, tr.ID, "0xaa")
		require.Error(t, err)
		assert.Equal(t, errs.CodeIllegalTransition, errs.CodeOf(err))
	})

	t.Run("non-terminal target rejected", func(t *testing.T) {
		tr := quoteFixture(t, m)
		err := m.Finalize(ctx, tr.ID, nil, models.StatusPending)
		require.Error(t, err)
	})
}

// TestSetOriginHashConcurrent drives N racing verifications; exactly one may
// win the conditional update.
func TestSetOriginHashConcurrent(t *testing.T) {
	m := NewMemory()
	tr := quoteFixture(t, m)

	const workers = 16
	var wg sync.WaitGroup
	wins := make(chan int, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if err := m.SetOriginHash(context.Background(), tr.ID, "0xh1"); err == nil {
				wins <- n
			}
		}(i)
	}
	wg.Wait()
	close(wins)

	count := 0
	for range wins {
		count++
	}
	assert.Equal(t, 1, count)
}

func TestLedgerReturnsCopies(t *testing.T) {
	m := NewMemory()
	tr := quoteFixture(t, m)

	tr.TransferAmount.SetInt64(0)
	got, err := m.GetTransfer(context.Background(), tr.ID)
	require.NoError(t, err)
	assert.Equal(t, "1000000", got.TransferAmount.String())
}
