package orders

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestListShopOrders_JoinsBuyerAndContacts(t *testing.T) {
	fx := newFixture(t)
	p := placeTwoShops(t, fx)
	so := p.shopOrders[fx.shopB.ID]

	in := contactInput(fx)
	in.ShopID = fx.shopB.ID
	in.OrderID = p.order.ID
	_, err := fx.svc.CreateContactRequest(context.Background(), in)
	require.NoError(t, err)

	views, err := fx.svc.ListShopOrders(context.Background(), fx.shopB.ID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, so.ID, views[0].ID)
	require.NotNil(t, views[0].Buyer)
	assert.Equal(t, "Buyer", views[0].Buyer.Name)
	require.Len(t, views[0].Contacts, 1)
	assert.Equal(t, fx.shopB.ID, views[0].Contacts[0].ShopID)

	// shop A sees its own order without shop B's contact thread
	views, err = fx.svc.ListShopOrders(context.Background(), fx.shopA.ID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Empty(t, views[0].Contacts)
}

func TestListAllShopOrders_Paginates(t *testing.T) {
	fx := newFixture(t)
	placeTwoShops(t, fx)
	placeTwoShops(t, fx)

	page, err := fx.svc.ListAllShopOrders(context.Background(), 1, 3)
	require.NoError(t, err)
	assert.EqualValues(t, 4, page.Total)
	assert.Len(t, page.Orders, 3)

	page, err = fx.svc.ListAllShopOrders(context.Background(), 2, 3)
	require.NoError(t, err)
	assert.Len(t, page.Orders, 1)

	page, err = fx.svc.ListAllShopOrders(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Page)
	assert.Len(t, page.Orders, 4)
}

func TestListUserOrders(t *testing.T) {
	fx := newFixture(t)
	p := placeTwoShops(t, fx)

	orders, err := fx.svc.ListUserOrders(context.Background(), fx.buyer)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, p.order.ID, orders[0].ID)

	orders, err = fx.svc.ListUserOrders(context.Background(), primitive.NewObjectID())
	require.NoError(t, err)
	assert.Empty(t, orders)

	_, err = fx.svc.ListUserOrders(context.Background(), primitive.NilObjectID)
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestQRPaymentLists(t *testing.T) {
	fx := newFixture(t)
	placeTwoShops(t, fx)
	orderID := placeQR(t, fx)

	all, err := fx.svc.ListQRPayments(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, o := range all {
		assert.Equal(t, orderID, o.UserOrderID)
		require.NotNil(t, o.Owner)
		assert.Equal(t, fx.buyer, o.Owner.ID)
	}

	list, err := fx.svc.ShopQRPaymentList(context.Background(), fx.shopA.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Buyer", list[0].Buyer)
	assert.Equal(t, []string{"Shop A product"}, list[0].ProductNames)
	assert.Equal(t, 11.0, list[0].Price)
}

func TestDeleteShopOrder_RequiresOwnership(t *testing.T) {
	fx := newFixture(t)
	p := placeTwoShops(t, fx)
	so := p.shopOrders[fx.shopB.ID]

	err := fx.svc.DeleteShopOrder(context.Background(), fx.shopA.ID, so.ID)
	assert.Equal(t, KindOrderNotFound, KindOf(err))
	assert.Equal(t, 2, fx.db.ShopOrderCount())

	err = fx.svc.DeleteShopOrder(context.Background(), fx.shopB.ID, primitive.NewObjectID())
	assert.Equal(t, KindOrderNotFound, KindOf(err))

	require.NoError(t, fx.svc.DeleteShopOrder(context.Background(), fx.shopB.ID, so.ID))
	assert.Equal(t, 1, fx.db.ShopOrderCount())

	// the buyer history survives
	_, err = fx.db.Store().UserOrders.FindByID(context.Background(), p.order.ID)
	assert.NoError(t, err)
}

func TestSetTransferredToShop(t *testing.T) {
	fx := newFixture(t)
	p := placeTwoShops(t, fx)
	so := p.shopOrders[fx.shopA.ID]

	updated, err := fx.svc.SetTransferredToShop(context.Background(), so.ID, true)
	require.NoError(t, err)
	assert.True(t, updated.TransferredToShop)

	_, err = fx.svc.SetTransferredToShop(context.Background(), primitive.NewObjectID(), true)
	assert.Equal(t, KindOrderNotFound, KindOf(err))
}
