package services

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"bvstock/models"
	"bvstock/store"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func setup(t *testing.T) (*SaleService, *store.Memory, *models.Distributor) {
	t.Helper()
	st := store.NewMemory()
	d := &models.Distributor{Name: "D1", Phone: "+254712345678", Gender: "F", Nationality: "Kenyan"}
	require.NoError(t, st.CreateDistributor(context.Background(), d))
	return NewSaleService(st, nil, BVFromClient, quietLogger()), st, d
}

func addStock(t *testing.T, st store.Store, name string, qty int, bv float64) *models.StockItem {
	t.Helper()
	item := &models.StockItem{Name: name, Quantity: qty, BV: bv}
	require.NoError(t, st.CreateStock(context.Background(), item))
	return item
}

func quantity(t *testing.T, st store.Store, id primitive.ObjectID) int {
	t.Helper()
	item, err := st.GetStock(context.Background(), id)
	require.NoError(t, err)
	return item.Quantity
}

func TestWidgetScenario(t *testing.T) {
	svc, st, d := setup(t)
	ctx := context.Background()
	widget := addStock(t, st, "Widget", 10, 5)

	sale, err := svc.Create(ctx, SaleInput{DistributorID: d.ID.Hex(), Product: "Widget", Quantity: 4, BV: 5})
	require.NoError(t, err)
	assert.Equal(t, 20.0, sale.TotalBV)
	assert.Equal(t, widget.ID, sale.StockID)
	assert.Equal(t, 6, quantity(t, st, widget.ID))

	_, err = svc.Create(ctx, SaleInput{DistributorID: d.ID.Hex(), Product: "Widget", Quantity: 10, BV: 5})
	var insufficient *models.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, "Insufficient stock for Widget. Available: 6", err.Error())
	assert.Equal(t, 6, quantity(t, st, widget.ID))

	updated, err := svc.Update(ctx, sale.ID, SaleInput{DistributorID: d.ID.Hex(), Product: "Widget", Quantity: 6, BV: 5})
	require.NoError(t, err)
	assert.Equal(t, 30.0, updated.TotalBV)
	assert.Equal(t, sale.CreatedAt, updated.CreatedAt)
	assert.Equal(t, 4, quantity(t, st, widget.ID))

	require.NoError(t, svc.Delete(ctx, sale.ID))
	assert.Equal(t, 10, quantity(t, st, widget.ID))

	_, err = st.GetSale(ctx, sale.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestTotalBVKeepsFullPrecision(t *testing.T) {
	svc, st, d := setup(t)
	ctx := context.Background()
	addStock(t, st, "Widget", 10, 0.125)

	sale, err := svc.Create(ctx, SaleInput{DistributorID: d.ID.Hex(), Product: "Widget", Quantity: 3, BV: 0.125})
	require.NoError(t, err)
	assert.Equal(t, 0.375, sale.TotalBV)

	updated, err := svc.Update(ctx, sale.ID, SaleInput{DistributorID: d.ID.Hex(), Product: "Widget", Quantity: 7, BV: 0.125})
	require.NoError(t, err)
	assert.Equal(t, 0.875, updated.TotalBV)

	sum, err := st.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.875, sum.TotalBV)
}

func TestRoundTripConservation(t *testing.T) {
	svc, st, d := setup(t)
	ctx := context.Background()
	a := addStock(t, st, "Cordyceps Plus Capsule", 20, 22.5)
	b := addStock(t, st, "Cardio Power Capsule", 8, 26)

	sale, err := svc.Create(ctx, SaleInput{DistributorID: d.ID.Hex(), Product: a.Name, Quantity: 3, BV: 22.5})
	require.NoError(t, err)
	assert.Equal(t, 67.5, sale.TotalBV)

	_, err = svc.Update(ctx, sale.ID, SaleInput{DistributorID: d.ID.Hex(), Product: b.Name, Quantity: 5, BV: 26})
	require.NoError(t, err)
	assert.Equal(t, 20, quantity(t, st, a.ID))
	assert.Equal(t, 3, quantity(t, st, b.ID))

	require.NoError(t, svc.Delete(ctx, sale.ID))
	assert.Equal(t, 20, quantity(t, st, a.ID))
	assert.Equal(t, 8, quantity(t, st, b.ID))
}

func TestUpdateRollsBackBothProducts(t *testing.T) {
	svc, st, d := setup(t)
	ctx := context.Background()
	a := addStock(t, st, "A", 10, 1)
	b := addStock(t, st, "B", 2, 1)

	sale, err := svc.Create(ctx, SaleInput{DistributorID: d.ID.Hex(), Product: "A", Quantity: 4, BV: 1})
	require.NoError(t, err)

	_, err = svc.Update(ctx, sale.ID, SaleInput{DistributorID: d.ID.Hex(), Product: "B", Quantity: 3, BV: 1})
	assert.ErrorIs(t, err, models.ErrInsufficientStock)
	assert.Equal(t, 6, quantity(t, st, a.ID))
	assert.Equal(t, 2, quantity(t, st, b.ID))

	unchanged, err := st.GetSale(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", unchanged.Product)
	assert.Equal(t, 4, unchanged.Quantity)
}

func TestUpdateSameProductChecksPostRevert(t *testing.T) {
	svc, st, d := setup(t)
	ctx := context.Background()
	a := addStock(t, st, "A", 5, 2)

	sale, err := svc.Create(ctx, SaleInput{DistributorID: d.ID.Hex(), Product: "A", Quantity: 5, BV: 2})
	require.NoError(t, err)
	assert.Equal(t, 0, quantity(t, st, a.ID))

	_, err = svc.Update(ctx, sale.ID, SaleInput{DistributorID: d.ID.Hex(), Product: "A", Quantity: 5, BV: 2})
	require.NoError(t, err)
	assert.Equal(t, 0, quantity(t, st, a.ID))

	_, err = svc.Update(ctx, sale.ID, SaleInput{DistributorID: d.ID.Hex(), Product: "A", Quantity: 6, BV: 2})
	assert.EqualError(t, err, "Insufficient stock for A. Available: 5")
	assert.Equal(t, 0, quantity(t, st, a.ID))
}

func TestDeleteWithMissingProduct(t *testing.T) {
	svc, st, d := setup(t)
	ctx := context.Background()
	a := addStock(t, st, "Gone", 3, 1)
	other := addStock(t, st, "Other", 7, 1)

	sale, err := svc.Create(ctx, SaleInput{DistributorID: d.ID.Hex(), Product: "Gone", Quantity: 2, BV: 1})
	require.NoError(t, err)
	require.NoError(t, st.DeleteStock(ctx, a.ID))

	require.NoError(t, svc.Delete(ctx, sale.ID))
	assert.Equal(t, 7, quantity(t, st, other.ID))

	sales, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, sales)
}

func TestDeleteFollowsRenamedStock(t *testing.T) {
	svc, st, d := setup(t)
	ctx := context.Background()
	a := addStock(t, st, "Old Name", 10, 1)

	sale, err := svc.Create(ctx, SaleInput{DistributorID: d.ID.Hex(), Product: "Old Name", Quantity: 4, BV: 1})
	require.NoError(t, err)

	renamed := "New Name"
	_, err = st.UpdateStock(ctx, a.ID, models.StockUpdate{Name: &renamed})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, sale.ID))
	assert.Equal(t, 10, quantity(t, st, a.ID))
}

func TestCreateValidation(t *testing.T) {
	svc, st, d := setup(t)
	ctx := context.Background()
	a := addStock(t, st, "A", 10, 3)

	cases := []struct {
		name string
		in   SaleInput
		want error
	}{
		{"missing distributor", SaleInput{Product: "A", Quantity: 1, BV: 3}, models.ErrValidation},
		{"missing product", SaleInput{DistributorID: d.ID.Hex(), Quantity: 1, BV: 3}, models.ErrValidation},
		{"zero quantity", SaleInput{DistributorID: d.ID.Hex(), Product: "A", BV: 3}, models.ErrValidation},
		{"zero bv", SaleInput{DistributorID: d.ID.Hex(), Product: "A", Quantity: 1}, models.ErrValidation},
		{"negative quantity", SaleInput{DistributorID: d.ID.Hex(), Product: "A", Quantity: -1, BV: 3}, models.ErrValidation},
		{"unknown product", SaleInput{DistributorID: d.ID.Hex(), Product: "Nope", Quantity: 1, BV: 3}, models.ErrNotFound},
		{"malformed distributor", SaleInput{DistributorID: "xyz", Product: "A", Quantity: 1, BV: 3}, models.ErrNotFound},
		{"unknown distributor", SaleInput{DistributorID: primitive.NewObjectID().Hex(), Product: "A", Quantity: 1, BV: 3}, models.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	_, err := svc.Create(ctx, SaleInput{Product: "A", Quantity: 1, BV: 3})
	assert.EqualError(t, err, "All fields are required")
	_, err = svc.Create(ctx, SaleInput{DistributorID: d.ID.Hex(), Product: "Nope", Quantity: 1, BV: 3})
	assert.EqualError(t, err, "Product not found")
	_, err = svc.Create(ctx, SaleInput{DistributorID: "xyz", Product: "A", Quantity: 1, BV: 3})
	assert.EqualError(t, err, "Distributor not found")

	assert.Equal(t, 10, quantity(t, st, a.ID))
}

func TestStockBVSource(t *testing.T) {
	_, st, d := setup(t)
	svc := NewSaleService(st, nil, BVFromStock, quietLogger())
	addStock(t, st, "A", 10, 22.5)

	sale, err := svc.Create(context.Background(), SaleInput{DistributorID: d.ID.Hex(), Product: "A", Quantity: 3, BV: 1})
	require.NoError(t, err)
	assert.Equal(t, 22.5, sale.BV)
	assert.Equal(t, 67.5, sale.TotalBV)

	_, err = svc.Create(context.Background(), SaleInput{DistributorID: d.ID.Hex(), Product: "A", Quantity: 1})
	assert.NoError(t, err)
}

func TestUpdateAndDeleteUnknownSale(t *testing.T) {
	svc, _, d := setup(t)
	ctx := context.Background()

	_, err := svc.Update(ctx, primitive.NewObjectID(), SaleInput{DistributorID: d.ID.Hex(), Product: "A", Quantity: 1, BV: 1})
	assert.EqualError(t, err, "Sale not found")
	assert.ErrorIs(t, svc.Delete(ctx, primitive.NewObjectID()), models.ErrNotFound)
}

func TestListJoinsDistributor(t *testing.T) {
	svc, st, d := setup(t)
	ctx := context.Background()
	addStock(t, st, "A", 10, 1)

	first, err := svc.Create(ctx, SaleInput{DistributorID: d.ID.Hex(), Product: "A", Quantity: 1, BV: 1})
	require.NoError(t, err)
	second, err := svc.Create(ctx, SaleInput{DistributorID: d.ID.Hex(), Product: "A", Quantity: 2, BV: 1})
	require.NoError(t, err)

	sales, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, sales, 2)
	assert.Equal(t, second.ID, sales[0].ID)
	assert.Equal(t, first.ID, sales[1].ID)
	require.NotNil(t, sales[0].Distributor)
	assert.Equal(t, "D1", sales[0].Distributor.Name)
	assert.Equal(t, "Kenyan", sales[0].Distributor.Nationality)

	require.NoError(t, st.DeleteDistributor(ctx, d.ID))
	sales, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Nil(t, sales[0].Distributor)
}

func TestConcurrentCreatesNeverOversell(t *testing.T) {
	svc, st, d := setup(t)
	a := addStock(t, st, "A", 10, 1)

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		sold   int
		failed int
	)
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(context.Background(), SaleInput{DistributorID: d.ID.Hex(), Product: "A", Quantity: 1, BV: 1})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				sold++
			} else if errors.Is(err, models.ErrInsufficientStock) {
				failed++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, sold)
	assert.Equal(t, 15, failed)
	assert.Equal(t, 0, quantity(t, st, a.ID))
}

// noTxStore runs WithTx callbacks without isolation, as Mongo does on a
// standalone server, and can fail sale writes on demand.
type noTxStore struct {
	*store.Memory
	failWrites bool
}

var errWrite = errors.New("write failed")

func (s *noTxStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (s *noTxStore) CreateSale(ctx context.Context, sale *models.Sale) error {
	if s.failWrites {
		return errWrite
	}
	return s.Memory.CreateSale(ctx, sale)
}

func (s *noTxStore) ReplaceSale(ctx context.Context, sale *models.Sale) error {
	if s.failWrites {
		return errWrite
	}
	return s.Memory.ReplaceSale(ctx, sale)
}

func TestCompensationWithoutTransactions(t *testing.T) {
	st := &noTxStore{Memory: store.NewMemory()}
	ctx := context.Background()
	d := &models.Distributor{Name: "D1"}
	require.NoError(t, st.CreateDistributor(ctx, d))
	a := addStock(t, st, "A", 10, 1)
	b := addStock(t, st, "B", 10, 1)
	svc := NewSaleService(st, nil, BVFromClient, quietLogger())

	sale, err := svc.Create(ctx, SaleInput{DistributorID: d.ID.Hex(), Product: "A", Quantity: 4, BV: 1})
	require.NoError(t, err)

	st.failWrites = true
	_, err = svc.Create(ctx, SaleInput{DistributorID: d.ID.Hex(), Product: "A", Quantity: 2, BV: 1})
	assert.ErrorIs(t, err, errWrite)
	assert.Equal(t, 6, quantity(t, st, a.ID))

	_, err = svc.Update(ctx, sale.ID, SaleInput{DistributorID: d.ID.Hex(), Product: "B", Quantity: 3, BV: 1})
	assert.ErrorIs(t, err, errWrite)
	assert.Equal(t, 6, quantity(t, st, a.ID))
	assert.Equal(t, 10, quantity(t, st, b.ID))

	st.failWrites = false
	_, err = svc.Update(ctx, sale.ID, SaleInput{DistributorID: d.ID.Hex(), Product: "B", Quantity: 11, BV: 1})
	assert.ErrorIs(t, err, models.ErrInsufficientStock)
	assert.Equal(t, 6, quantity(t, st, a.ID))
	assert.Equal(t, 10, quantity(t, st, b.ID))
}
