package orders

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/mock/gomock"

	"marketplace/internal/idempotency"
	"marketplace/internal/mocks"
	"marketplace/internal/models"
	"marketplace/internal/repository/memory"
)

type fixture struct {
	db       *memory.DB
	uploader *mocks.MockUploader
	idem     *idempotency.MemoryStore
	svc      *Service
	now      time.Time

	buyer primitive.ObjectID
	shopA models.ProductOwner
	shopB models.ProductOwner
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	db := memory.New()
	fx := &fixture{
		db:       db,
		uploader: mocks.NewMockUploader(ctrl),
		idem:     idempotency.NewMemoryStore(time.Hour),
		now:      time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		shopA:    models.ProductOwner{ID: primitive.NewObjectID(), Name: "Shop A", Email: "a@shop.test"},
		shopB:    models.ProductOwner{ID: primitive.NewObjectID(), Name: "Shop B", Email: "b@shop.test"},
	}
	fx.svc = NewService(Deps{
		Store:       db.Store(),
		Uploader:    fx.uploader,
		Idempotency: fx.idem,
	})
	fx.svc.now = func() time.Time { return fx.now }

	fx.buyer = db.PutUser(models.User{
		Name:     "Buyer",
		Email:    "buyer@test",
		CartData: map[string]any{"x": 1},
	})
	return fx
}

func (fx *fixture) product(owner models.ProductOwner, price, shipping float64, stock ...models.StockItem) primitive.ObjectID {
	return fx.db.PutProduct(models.Product{
		Name:         owner.Name + " product",
		Price:        price,
		ShippingCost: shipping,
		Image:        models.StringList{"https://img.test/1.png", "https://img.test/2.png"},
		Owner:        owner,
		StockItems:   stock,
	})
}

func variant(size, color string, stock int) models.StockItem {
	return models.StockItem{Size: size, Color: color, Stock: stock}
}

func (fx *fixture) stockOf(t *testing.T, id primitive.ObjectID) []models.StockItem {
	t.Helper()
	p, ok := fx.db.Product(id)
	if !ok {
		t.Fatalf("product %s missing", id.Hex())
	}
	return p.StockItems
}

func address() models.Address {
	return models.Address{FirstName: "Somchai", LastName: "D", Street: "1 Road", City: "Bangkok", Phone: "0800000000"}
}
