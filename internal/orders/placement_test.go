package orders

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"marketplace/internal/events"
	"marketplace/internal/models"
	"marketplace/internal/repository"
)

func TestPlaceOrder_SingleShopScenario(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	productID := fx.product(fx.shopA, 100, 15, variant("M", "red", 3), variant("L", "red", 1))

	res, err := fx.svc.PlaceOrder(ctx, PlaceOrderInput{
		BuyerID:       fx.buyer,
		Items:         []CartItem{{ProductID: productID, Quantity: 2, Size: "M", Color: "red"}},
		PaymentMethod: "COD",
		Address:       address(),
	})
	require.NoError(t, err)

	assert.Equal(t, []models.StockItem{variant("M", "red", 1), variant("L", "red", 1)}, fx.stockOf(t, productID))

	uo, err := fx.db.Store().UserOrders.FindByID(ctx, res.OrderID)
	require.NoError(t, err)
	require.Len(t, uo.Items, 1)
	item := uo.Items[0]
	assert.Equal(t, models.StatusPending, item.Status)
	assert.Equal(t, "Shop A product", item.Name)
	assert.Equal(t, "https://img.test/1.png", item.Image)
	assert.Equal(t, fx.shopA.ID, item.Owner.ID)
	assert.Equal(t, 30.0, item.ShippingCost)
	assert.Equal(t, 230.0, uo.Amount)
	assert.Equal(t, "thb", uo.Currency)
	assert.Equal(t, models.PaymentCOD, uo.PaymentMethod)

	shopOrders, err := fx.db.Store().ShopOrders.FindByUserOrder(ctx, res.OrderID)
	require.NoError(t, err)
	require.Len(t, shopOrders, 1)
	so := shopOrders[0]
	assert.Equal(t, fx.shopA.ID, so.ShopID)
	assert.Equal(t, fx.buyer, so.BuyerID)
	assert.Equal(t, 100.0*2+15.0*2, so.Amount)
	assert.Equal(t, models.StatusPending, so.Status)
	assert.False(t, so.Payment)
	require.Len(t, so.Items, 1)
	assert.Equal(t, item.ID, so.Items[0].ID, "both ledgers share the line item id")
}

func TestPlaceOrder_SplitsAcrossShops(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	a := fx.product(fx.shopA, 19.99, 2.5, variant("S", "blue", 5))
	b := fx.product(fx.shopB, 7.35, 1.1, variant("M", "green", 5))
	a2 := fx.product(fx.shopA, 3.33, 0, variant("S", "blue", 5))

	res, err := fx.svc.PlaceOrder(ctx, PlaceOrderInput{
		BuyerID: fx.buyer,
		Items: []CartItem{
			{ProductID: a, Quantity: 3, Size: "S", Color: "blue"},
			{ProductID: b, Quantity: 1, Size: "M", Color: "green"},
			{ProductID: a2, Quantity: 2, Size: "S", Color: "blue"},
		},
		PaymentMethod: "QR Code",
		Address:       address(),
	})
	require.NoError(t, err)
	require.Len(t, res.ShopOrderIDs, 2)

	uo, err := fx.db.Store().UserOrders.FindByID(ctx, res.OrderID)
	require.NoError(t, err)
	assert.Len(t, uo.Items, 3)

	shopOrders, err := fx.db.Store().ShopOrders.FindByUserOrder(ctx, res.OrderID)
	require.NoError(t, err)
	require.Len(t, shopOrders, 2)

	var sum float64
	byShop := map[primitive.ObjectID]models.ShopOrder{}
	for _, so := range shopOrders {
		sum += so.Amount
		byShop[so.ShopID] = so
		assert.True(t, so.Payment, "QR Code orders await proof")
		assert.Equal(t, models.PaymentQRCode, so.PaymentMethod)
	}
	assert.InDelta(t, uo.Amount, sum, 0.001)
	assert.Len(t, byShop[fx.shopA.ID].Items, 2)
	assert.Len(t, byShop[fx.shopB.ID].Items, 1)
	assert.InDelta(t, 19.99*3+7.5+3.33*2, byShop[fx.shopA.ID].Amount, 0.001)
	assert.InDelta(t, 7.35+1.1, byShop[fx.shopB.ID].Amount, 0.001)
	assert.Equal(t, res.ShopOrderIDs[0], byShop[fx.shopA.ID].ID, "shops keep cart order")
}

func TestPlaceOrder_RemovesExhaustedVariant(t *testing.T) {
	fx := newFixture(t)
	productID := fx.product(fx.shopA, 10, 0, variant("M", "red", 2), variant("L", "red", 4))

	_, err := fx.svc.PlaceOrder(context.Background(), PlaceOrderInput{
		BuyerID:       fx.buyer,
		Items:         []CartItem{{ProductID: productID, Quantity: 2, Size: "M", Color: "red"}},
		PaymentMethod: "COD",
	})
	require.NoError(t, err)
	assert.Equal(t, []models.StockItem{variant("L", "red", 4)}, fx.stockOf(t, productID))
}

func TestPlaceOrder_InsufficientStockLeavesInventoryUntouched(t *testing.T) {
	fx := newFixture(t)
	first := fx.product(fx.shopA, 10, 1, variant("M", "red", 5))
	second := fx.product(fx.shopB, 10, 1, variant("M", "red", 1))

	_, err := fx.svc.PlaceOrder(context.Background(), PlaceOrderInput{
		BuyerID: fx.buyer,
		Items: []CartItem{
			{ProductID: first, Quantity: 2, Size: "M", Color: "red"},
			{ProductID: second, Quantity: 2, Size: "M", Color: "red"},
		},
		PaymentMethod: "COD",
	})
	require.Error(t, err)
	assert.Equal(t, KindInsufficientStock, KindOf(err))

	var oe *Error
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, second.Hex(), oe.Meta["productId"])
	assert.Equal(t, 1, oe.Meta["available"])
	assert.Equal(t, 2, oe.Meta["requested"])

	assert.Equal(t, []models.StockItem{variant("M", "red", 5)}, fx.stockOf(t, first))
	assert.Equal(t, []models.StockItem{variant("M", "red", 1)}, fx.stockOf(t, second))
	assert.Zero(t, fx.db.ShopOrderCount())
	assert.Empty(t, fx.db.Outbox())

	u, _ := fx.db.User(fx.buyer)
	assert.NotEmpty(t, u.CartData, "cart is kept when placement fails")
}

func TestPlaceOrder_CumulativeQuantityPerVariant(t *testing.T) {
	fx := newFixture(t)
	productID := fx.product(fx.shopA, 10, 0, variant("M", "red", 3))

	_, err := fx.svc.PlaceOrder(context.Background(), PlaceOrderInput{
		BuyerID: fx.buyer,
		Items: []CartItem{
			{ProductID: productID, Quantity: 2, Size: "M", Color: "red"},
			{ProductID: productID, Quantity: 2, Size: "M", Color: "red"},
		},
		PaymentMethod: "COD",
	})
	assert.Equal(t, KindInsufficientStock, KindOf(err))
	assert.Equal(t, []models.StockItem{variant("M", "red", 3)}, fx.stockOf(t, productID))
}

func TestPlaceOrder_UnknownProductAndVariant(t *testing.T) {
	fx := newFixture(t)
	productID := fx.product(fx.shopA, 10, 0, variant("M", "red", 3))

	_, err := fx.svc.PlaceOrder(context.Background(), PlaceOrderInput{
		BuyerID:       fx.buyer,
		Items:         []CartItem{{ProductID: primitive.NewObjectID(), Quantity: 1, Size: "M", Color: "red"}},
		PaymentMethod: "COD",
	})
	assert.Equal(t, KindProductNotFound, KindOf(err))

	_, err = fx.svc.PlaceOrder(context.Background(), PlaceOrderInput{
		BuyerID:       fx.buyer,
		Items:         []CartItem{{ProductID: productID, Quantity: 1, Size: "XL", Color: "red"}},
		PaymentMethod: "COD",
	})
	assert.Equal(t, KindVariantNotFound, KindOf(err))
}

func TestPlaceOrder_Validation(t *testing.T) {
	fx := newFixture(t)
	productID := fx.product(fx.shopA, 10, 0, variant("M", "red", 3))
	ok := CartItem{ProductID: productID, Quantity: 1, Size: "M", Color: "red"}

	cases := map[string]PlaceOrderInput{
		"missing buyer":   {Items: []CartItem{ok}, PaymentMethod: "COD"},
		"no items":        {BuyerID: fx.buyer, PaymentMethod: "COD"},
		"bad method":      {BuyerID: fx.buyer, Items: []CartItem{ok}, PaymentMethod: "card"},
		"zero quantity":   {BuyerID: fx.buyer, Items: []CartItem{{ProductID: productID, Size: "M", Color: "red"}}, PaymentMethod: "COD"},
		"missing size":    {BuyerID: fx.buyer, Items: []CartItem{{ProductID: productID, Quantity: 1, Color: "red"}}, PaymentMethod: "COD"},
		"missing color":   {BuyerID: fx.buyer, Items: []CartItem{{ProductID: productID, Quantity: 1, Size: "M"}}, PaymentMethod: "COD"},
		"missing product": {BuyerID: fx.buyer, Items: []CartItem{{Quantity: 1, Size: "M", Color: "red"}}, PaymentMethod: "COD"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := fx.svc.PlaceOrder(context.Background(), in)
			assert.Equal(t, KindValidation, KindOf(err))
		})
	}
	assert.Equal(t, []models.StockItem{variant("M", "red", 3)}, fx.stockOf(t, productID))
}

func TestPlaceOrder_ClearsCartAndWritesOutbox(t *testing.T) {
	fx := newFixture(t)
	productID := fx.product(fx.shopA, 10, 0, variant("M", "red", 3))

	res, err := fx.svc.PlaceOrder(context.Background(), PlaceOrderInput{
		BuyerID:       fx.buyer,
		Items:         []CartItem{{ProductID: productID, Quantity: 1, Size: "M", Color: "red"}},
		PaymentMethod: "cod",
	})
	require.NoError(t, err)

	u, _ := fx.db.User(fx.buyer)
	assert.Empty(t, u.CartData)

	outbox := fx.db.Outbox()
	require.Len(t, outbox, 1)
	assert.Equal(t, events.EventOrderPlaced, outbox[0].EventType)
	assert.Equal(t, res.OrderID.Hex(), outbox[0].AggregateID)

	_, payload, err := events.UnwrapPayload[events.OrderPlacedPayload](outbox[0].Payload)
	require.NoError(t, err)
	assert.Equal(t, 10.0, payload.Amount)
	require.Len(t, payload.ShopOrders, 1)
	assert.Equal(t, fx.shopA.ID.Hex(), payload.ShopOrders[0].ShopID)
}

func TestPlaceOrder_PerItemAddressOverride(t *testing.T) {
	fx := newFixture(t)
	productID := fx.product(fx.shopA, 10, 0, variant("M", "red", 3))
	other := address()
	other.City = "Chiang Mai"

	res, err := fx.svc.PlaceOrder(context.Background(), PlaceOrderInput{
		BuyerID: fx.buyer,
		Items: []CartItem{
			{ProductID: productID, Quantity: 1, Size: "M", Color: "red"},
			{ProductID: productID, Quantity: 1, Size: "M", Color: "red", Address: &other},
		},
		PaymentMethod: "COD",
		Address:       address(),
	})
	require.NoError(t, err)

	uo, err := fx.db.Store().UserOrders.FindByID(context.Background(), res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, "Bangkok", uo.Items[0].Address.City)
	assert.Equal(t, "Chiang Mai", uo.Items[1].Address.City)
}

func TestPlaceOrder_IdempotencyKeyReplaysOrder(t *testing.T) {
	fx := newFixture(t)
	productID := fx.product(fx.shopA, 10, 0, variant("M", "red", 5))
	in := PlaceOrderInput{
		BuyerID:        fx.buyer,
		Items:          []CartItem{{ProductID: productID, Quantity: 1, Size: "M", Color: "red"}},
		PaymentMethod:  "COD",
		IdempotencyKey: "checkout-1",
	}

	first, err := fx.svc.PlaceOrder(context.Background(), in)
	require.NoError(t, err)
	second, err := fx.svc.PlaceOrder(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, first.OrderID, second.OrderID)
	assert.True(t, second.Replayed)
	assert.Equal(t, []models.StockItem{variant("M", "red", 4)}, fx.stockOf(t, productID))
	assert.Equal(t, 1, fx.db.ShopOrderCount())
}

// slowProducts delays product reads the way a remote database does.
type slowProducts struct {
	repository.ProductRepository
	delay time.Duration
}

func (p slowProducts) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	time.Sleep(p.delay)
	return p.ProductRepository.FindByID(ctx, id)
}

func TestPlaceOrder_ConcurrentRetriesShareOneOrder(t *testing.T) {
	fx := newFixture(t)
	productID := fx.product(fx.shopA, 10, 0, variant("M", "red", 10))
	fx.svc.store.Products = slowProducts{ProductRepository: fx.svc.store.Products, delay: 20 * time.Millisecond}
	in := PlaceOrderInput{
		BuyerID:        fx.buyer,
		Items:          []CartItem{{ProductID: productID, Quantity: 2, Size: "M", Color: "red"}},
		PaymentMethod:  "COD",
		IdempotencyKey: "double-click",
	}

	const attempts = 4
	var (
		wg      sync.WaitGroup
		results = make([]*PlaceOrderResult, attempts)
		errs    = make([]error, attempts)
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = fx.svc.PlaceOrder(context.Background(), in)
		}(i)
	}
	wg.Wait()

	fresh := 0
	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0].OrderID, results[i].OrderID)
		if !results[i].Replayed {
			fresh++
		}
	}
	assert.Equal(t, 1, fresh)
	assert.Equal(t, 1, fx.db.ShopOrderCount())
	assert.Equal(t, []models.StockItem{variant("M", "red", 8)}, fx.stockOf(t, productID))
}

func TestPlaceOrder_HeldKeyReportsConflict(t *testing.T) {
	fx := newFixture(t)
	productID := fx.product(fx.shopA, 10, 0, variant("M", "red", 5))
	fx.svc.claimWait = 30 * time.Millisecond
	fx.svc.claimPoll = 5 * time.Millisecond

	_, claimed, err := fx.idem.Claim(context.Background(), fx.buyer.Hex(), "in-flight")
	require.NoError(t, err)
	require.True(t, claimed)

	_, err = fx.svc.PlaceOrder(context.Background(), PlaceOrderInput{
		BuyerID:        fx.buyer,
		Items:          []CartItem{{ProductID: productID, Quantity: 1, Size: "M", Color: "red"}},
		PaymentMethod:  "COD",
		IdempotencyKey: "in-flight",
	})
	assert.Equal(t, KindConflict, KindOf(err))
	assert.Zero(t, fx.db.ShopOrderCount())
	assert.Equal(t, []models.StockItem{variant("M", "red", 5)}, fx.stockOf(t, productID))
}

func TestPlaceOrder_FailedPlacementFreesKey(t *testing.T) {
	fx := newFixture(t)
	productID := fx.product(fx.shopA, 10, 0, variant("M", "red", 2))
	in := PlaceOrderInput{
		BuyerID:        fx.buyer,
		Items:          []CartItem{{ProductID: productID, Quantity: 3, Size: "M", Color: "red"}},
		PaymentMethod:  "COD",
		IdempotencyKey: "retry-smaller",
	}

	_, err := fx.svc.PlaceOrder(context.Background(), in)
	require.Equal(t, KindInsufficientStock, KindOf(err))

	in.Items[0].Quantity = 2
	res, err := fx.svc.PlaceOrder(context.Background(), in)
	require.NoError(t, err)
	assert.False(t, res.Replayed)
	assert.Equal(t, 1, fx.db.ShopOrderCount())
}

// losingProducts reports a lost conditional decrement for one product, as
// when a concurrent order takes the stock between validation and write.
type losingProducts struct {
	repository.ProductRepository
	lose primitive.ObjectID
}

func (p losingProducts) DecrementStock(ctx context.Context, id primitive.ObjectID, size, color string, qty int) (bool, error) {
	if id == p.lose {
		return false, nil
	}
	return p.ProductRepository.DecrementStock(ctx, id, size, color, qty)
}

func TestPlaceOrder_LostDecrementRollsBack(t *testing.T) {
	fx := newFixture(t)
	first := fx.product(fx.shopA, 10, 0, variant("M", "red", 5))
	second := fx.product(fx.shopA, 10, 0, variant("M", "red", 5))
	fx.svc.store.Products = losingProducts{ProductRepository: fx.svc.store.Products, lose: second}

	_, err := fx.svc.PlaceOrder(context.Background(), PlaceOrderInput{
		BuyerID: fx.buyer,
		Items: []CartItem{
			{ProductID: first, Quantity: 2, Size: "M", Color: "red"},
			{ProductID: second, Quantity: 2, Size: "M", Color: "red"},
		},
		PaymentMethod: "COD",
	})
	assert.Equal(t, KindInsufficientStock, KindOf(err))
	assert.Equal(t, []models.StockItem{variant("M", "red", 5)}, fx.stockOf(t, first), "earlier decrement rolled back")
	assert.Zero(t, fx.db.ShopOrderCount())
}

func TestPlaceOrder_ConcurrentBuyersNeverOversell(t *testing.T) {
	fx := newFixture(t)
	productID := fx.product(fx.shopA, 10, 0, variant("M", "red", 5))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := fx.svc.PlaceOrder(context.Background(), PlaceOrderInput{
				BuyerID:       fx.buyer,
				Items:         []CartItem{{ProductID: productID, Quantity: 1, Size: "M", Color: "red"}},
				PaymentMethod: "COD",
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
				return
			}
			// the variant disappears once it is sold out
			switch KindOf(err) {
			case KindInsufficientStock, KindVariantNotFound:
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, succeeded)
	assert.Equal(t, 7, rejected)
	assert.Empty(t, fx.stockOf(t, productID))
}

func TestNormalizePaymentMethod(t *testing.T) {
	for raw, want := range map[string]string{
		"COD":      models.PaymentCOD,
		" cod ":    models.PaymentCOD,
		"QR Code":  models.PaymentQRCode,
		"qr  code": models.PaymentQRCode,
		"qrcode":   models.PaymentQRCode,
	} {
		got, ok := NormalizePaymentMethod(raw)
		assert.True(t, ok, raw)
		assert.Equal(t, want, got, raw)
	}
	_, ok := NormalizePaymentMethod("stripe")
	assert.False(t, ok)
}
