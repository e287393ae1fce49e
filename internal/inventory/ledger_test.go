package inventory_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shopsphere/order-fulfillment/internal/domain"
	"github.com/shopsphere/order-fulfillment/internal/events"
	"github.com/shopsphere/order-fulfillment/internal/inventory"
	"github.com/shopsphere/order-fulfillment/internal/metrics"
	"github.com/shopsphere/order-fulfillment/internal/repository"
)

type ledgerFixture struct {
	ledger   *inventory.Ledger
	store    *repository.MemoryInventoryStore
	recorder *events.Recorder
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()
	store := repository.NewMemoryInventoryStore()
	recorder := events.NewRecorder()
	ledger := inventory.NewLedger(store, recorder, zap.NewNop(), metrics.NewUnregistered())
	return &ledgerFixture{ledger: ledger, store: store, recorder: recorder}
}

func (f *ledgerFixture) seed(t *testing.T, quantity, reorderLevel int) uuid.UUID {
	t.Helper()
	productID := uuid.New()
	_, err := f.ledger.CreateRecord(context.Background(), inventory.CreateRecordRequest{
		ProductID:       productID,
		SKU:             "SKU-" + productID.String()[:8],
		Quantity:        quantity,
		WarehouseID:     uuid.New(),
		ReorderLevel:    reorderLevel,
		ReorderQuantity: 50,
	})
	require.NoError(t, err)
	return productID
}

func TestReserve(t *testing.T) {
	f := newLedgerFixture(t)
	productID := f.seed(t, 10, 0)
	orderID := uuid.New()

	rec, err := f.ledger.Reserve(context.Background(), inventory.ReserveRequest{
		ProductID:   productID,
		Quantity:    4,
		ReferenceID: orderID,
	})
	require.NoError(t, err)

	assert.Equal(t, 10, rec.Quantity)
	assert.Equal(t, 4, rec.Reserved)
	assert.Equal(t, 6, rec.Available())

	movements, err := f.ledger.Movements(context.Background(), productID)
	require.NoError(t, err)
	last := movements[len(movements)-1]
	assert.Equal(t, domain.MovementReserved, last.Type)
	assert.Equal(t, 4, last.Quantity)
	assert.Equal(t, orderID, last.ReferenceID)
}

func TestReserveInsufficientStock(t *testing.T) {
	f := newLedgerFixture(t)
	productID := f.seed(t, 5, 0)

	_, err := f.ledger.Reserve(context.Background(), inventory.ReserveRequest{
		ProductID:   productID,
		Quantity:    6,
		ReferenceID: uuid.New(),
	})

	var insufficientErr *domain.InsufficientStockError
	require.ErrorAs(t, err, &insufficientErr)
	assert.Equal(t, 5, insufficientErr.Available)
	assert.Equal(t, 6, insufficientErr.Requested)

	rec, err := f.ledger.GetByProductID(context.Background(), productID)
	require.NoError(t, err)
	assert.Equal(t, 0, rec.Reserved)
}

func TestReserveUnknownProduct(t *testing.T) {
	f := newLedgerFixture(t)

	_, err := f.ledger.Reserve(context.Background(), inventory.ReserveRequest{
		ProductID: uuid.New(),
		Quantity:  1,
	})
	require.ErrorIs(t, err, domain.ErrInventoryNotFound)
}

func TestReserveRejectsNonPositiveQuantity(t *testing.T) {
	f := newLedgerFixture(t)
	productID := f.seed(t, 5, 0)

	_, err := f.ledger.Reserve(context.Background(), inventory.ReserveRequest{
		ProductID: productID,
		Quantity:  0,
	})

	var validationErr *domain.ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestReserveDuplicateReference(t *testing.T) {
	f := newLedgerFixture(t)
	productID := f.seed(t, 10, 0)
	orderID := uuid.New()

	_, err := f.ledger.Reserve(context.Background(), inventory.ReserveRequest{
		ProductID:   productID,
		Quantity:    3,
		ReferenceID: orderID,
	})
	require.NoError(t, err)

	_, err = f.ledger.Reserve(context.Background(), inventory.ReserveRequest{
		ProductID:   productID,
		Quantity:    3,
		ReferenceID: orderID,
	})
	require.ErrorIs(t, err, domain.ErrDuplicateReservation)

	rec, err := f.ledger.GetByProductID(context.Background(), productID)
	require.NoError(t, err)
	assert.Equal(t, 3, rec.Reserved)
}

func TestReleaseReturnsReservedStock(t *testing.T) {
	f := newLedgerFixture(t)
	productID := f.seed(t, 10, 0)
	orderID := uuid.New()

	_, err := f.ledger.Reserve(context.Background(), inventory.ReserveRequest{
		ProductID:   productID,
		Quantity:    4,
		ReferenceID: orderID,
	})
	require.NoError(t, err)

	rec, err := f.ledger.Release(context.Background(), inventory.ReserveRequest{
		ProductID:   productID,
		Quantity:    4,
		ReferenceID: orderID,
	})
	require.NoError(t, err)

	assert.Equal(t, 0, rec.Reserved)
	assert.Equal(t, 10, rec.Quantity)
	assert.Equal(t, 10, rec.Available())
}

func TestReleaseClampsToZero(t *testing.T) {
	f := newLedgerFixture(t)
	productID := f.seed(t, 10, 0)
	orderID := uuid.New()

	_, err := f.ledger.Reserve(context.Background(), inventory.ReserveRequest{
		ProductID:   productID,
		Quantity:    3,
		ReferenceID: orderID,
	})
	require.NoError(t, err)

	rec, err := f.ledger.Release(context.Background(), inventory.ReserveRequest{
		ProductID:   productID,
		Quantity:    5,
		ReferenceID: orderID,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, rec.Reserved)

	// The clamped release is still logged at its requested quantity.
	movements, err := f.ledger.Movements(context.Background(), productID)
	require.NoError(t, err)
	last := movements[len(movements)-1]
	assert.Equal(t, domain.MovementReleased, last.Type)
	assert.Equal(t, 5, last.Quantity)
}

func TestUpdateQuantity(t *testing.T) {
	f := newLedgerFixture(t)
	productID := f.seed(t, 10, 0)
	orderID := uuid.New()

	_, err := f.ledger.Reserve(context.Background(), inventory.ReserveRequest{
		ProductID:   productID,
		Quantity:    2,
		ReferenceID: orderID,
	})
	require.NoError(t, err)

	rec, err := f.ledger.UpdateQuantity(context.Background(), productID, inventory.UpdateStockRequest{
		Quantity: 25,
		Reason:   "Restock delivery",
	})
	require.NoError(t, err)

	assert.Equal(t, 25, rec.Quantity)
	assert.Equal(t, 2, rec.Reserved, "restock must not touch reservations")
	require.NotNil(t, rec.LastRestockedAt)

	rec, err = f.ledger.UpdateQuantity(context.Background(), productID, inventory.UpdateStockRequest{
		Quantity: 20,
		Reason:   "Shrinkage adjustment",
	})
	require.NoError(t, err)
	assert.Equal(t, 20, rec.Quantity)

	movements, err := f.ledger.Movements(context.Background(), productID)
	require.NoError(t, err)
	require.Len(t, movements, 4)
	assert.Equal(t, domain.MovementIn, movements[0].Type) // initial stock
	assert.Equal(t, domain.MovementReserved, movements[1].Type)
	assert.Equal(t, domain.MovementIn, movements[2].Type)
	assert.Equal(t, 15, movements[2].Quantity)
	assert.Equal(t, domain.MovementOut, movements[3].Type)
	assert.Equal(t, 5, movements[3].Quantity)
}

func TestUpdateQuantityRejectsNegative(t *testing.T) {
	f := newLedgerFixture(t)
	productID := f.seed(t, 10, 0)

	_, err := f.ledger.UpdateQuantity(context.Background(), productID, inventory.UpdateStockRequest{
		Quantity: -1,
	})

	var validationErr *domain.ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestCheckStock(t *testing.T) {
	f := newLedgerFixture(t)
	known := f.seed(t, 10, 0)
	unknown := uuid.New()

	_, err := f.ledger.Reserve(context.Background(), inventory.ReserveRequest{
		ProductID:   known,
		Quantity:    4,
		ReferenceID: uuid.New(),
	})
	require.NoError(t, err)

	checks, err := f.ledger.CheckStock(context.Background(), []domain.StockQuery{
		{ProductID: known, Quantity: 6},
		{ProductID: known, Quantity: 7},
		{ProductID: unknown, Quantity: 1},
	})
	require.NoError(t, err)
	require.Len(t, checks, 3)

	assert.Equal(t, 6, checks[0].AvailableQuantity)
	assert.True(t, checks[0].InStock)
	assert.True(t, checks[0].SufficientStock)

	assert.True(t, checks[1].InStock)
	assert.False(t, checks[1].SufficientStock)

	assert.False(t, checks[2].InStock)
	assert.False(t, checks[2].SufficientStock)
	assert.Equal(t, 0, checks[2].AvailableQuantity)
}

func TestLowStockAlert(t *testing.T) {
	f := newLedgerFixture(t)
	productID := f.seed(t, 10, 7)

	_, err := f.ledger.Reserve(context.Background(), inventory.ReserveRequest{
		ProductID:   productID,
		Quantity:    4,
		ReferenceID: uuid.New(),
	})
	require.NoError(t, err)

	alerts := f.recorder.ByType(events.LowStockAlertEvent)
	require.NotEmpty(t, alerts)

	low, err := f.ledger.LowStock(context.Background())
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, productID, low[0].ProductID)
}

func TestConcurrentReservesHoldInvariant(t *testing.T) {
	f := newLedgerFixture(t)
	const stock = 100
	const attempts = 200
	productID := f.seed(t, stock, 0)

	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.ledger.Reserve(context.Background(), inventory.ReserveRequest{
				ProductID:   productID,
				Quantity:    1,
				ReferenceID: uuid.New(),
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, failed int
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		var insufficientErr *domain.InsufficientStockError
		require.ErrorAs(t, err, &insufficientErr)
		failed++
	}

	assert.Equal(t, stock, succeeded)
	assert.Equal(t, attempts-stock, failed)

	rec, err := f.ledger.GetByProductID(context.Background(), productID)
	require.NoError(t, err)
	assert.Equal(t, stock, rec.Reserved)
	assert.Equal(t, 0, rec.Available())
	assert.GreaterOrEqual(t, rec.Reserved, 0)
	assert.LessOrEqual(t, rec.Reserved, rec.Quantity)
}
