package orders

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/safar/go-sql-marketplace/internal/authz"
	"github.com/safar/go-sql-marketplace/internal/inventory"
	"github.com/safar/go-sql-marketplace/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceOrder_RejectsBeforeTouchingStorage(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := NewService(db, nil, nil, Config{Pricing: defaultRules, MaxRetries: 1})
	buyer := authz.Actor{ID: 3, Role: authz.RoleBuyer}
	ctx := context.Background()

	_, err = svc.PlaceOrder(ctx, buyer, PlaceOrderRequest{PaymentMethod: "cheque", Items: []ItemRequest{{ProductID: 1, Quantity: 1}}})
	assert.ErrorIs(t, err, ErrInvalidPaymentMethod)

	_, err = svc.PlaceOrder(ctx, buyer, PlaceOrderRequest{PaymentMethod: models.PaymentMethodCOD})
	var empty *EmptyCartError
	assert.ErrorAs(t, err, &empty)

	_, err = svc.PlaceOrder(ctx, buyer, PlaceOrderRequest{
		PaymentMethod: models.PaymentMethodCOD,
		Items:         []ItemRequest{{ProductID: 1, Quantity: 0}},
	})
	assert.ErrorIs(t, err, inventory.ErrInvalidQuantity)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceOrder_EmptyCartRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM cart_items").
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "product_id", "quantity", "size", "color", "added_at"}))
	mock.ExpectRollback()

	svc := NewService(db, nil, nil, Config{Pricing: defaultRules, MaxRetries: 1})

	_, err = svc.PlaceOrder(context.Background(), authz.Actor{ID: 3, Role: authz.RoleBuyer}, PlaceOrderRequest{
		FromCart:      true,
		PaymentMethod: models.PaymentMethodCOD,
	})
	var empty *EmptyCartError
	require.ErrorAs(t, err, &empty)
	assert.Equal(t, int64(3), empty.BuyerID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSingleSeller(t *testing.T) {
	id, err := singleSeller(map[int64]*models.Product{1: {SellerID: 7}, 2: {SellerID: 7}})
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)

	_, err = singleSeller(map[int64]*models.Product{1: {SellerID: 9}, 2: {SellerID: 7}})
	var mixed *MixedSellerOrderError
	require.ErrorAs(t, err, &mixed)
	assert.Equal(t, []int64{7, 9}, mixed.SellerIDs)
}
