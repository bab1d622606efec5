package orders

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"marketplace/internal/events"
	"marketplace/internal/idempotency"
	"marketplace/internal/models"
	"marketplace/internal/repository"
)

// CartItem is one requested variant. Address overrides the order address
// for this item when set.
type CartItem struct {
	ProductID primitive.ObjectID
	Quantity  int
	Size      string
	Color     string
	Address   *models.Address
}

type PlaceOrderInput struct {
	BuyerID        primitive.ObjectID
	Items          []CartItem
	DeclaredAmount float64
	PaymentMethod  string
	Address        models.Address
	PaymentProof   string
	IdempotencyKey string
}

type PlaceOrderResult struct {
	OrderID      primitive.ObjectID
	ShopOrderIDs []primitive.ObjectID
	Amount       float64
	Replayed     bool
}

// NormalizePaymentMethod maps accepted spellings onto PaymentCOD or
// PaymentQRCode.
func NormalizePaymentMethod(raw string) (string, bool) {
	switch strings.ToLower(strings.Join(strings.Fields(raw), " ")) {
	case "cod", "cash on delivery":
		return models.PaymentCOD, true
	case "qr code", "qrcode", "qr":
		return models.PaymentQRCode, true
	default:
		return "", false
	}
}

func validatePlacement(in *PlaceOrderInput) error {
	if in.BuyerID.IsZero() {
		return newError(KindValidation, "userId is required")
	}
	if len(in.Items) == 0 {
		return newError(KindValidation, "at least one item is required")
	}
	method, ok := NormalizePaymentMethod(in.PaymentMethod)
	if !ok {
		return newError(KindValidation, "invalid payment method %q", in.PaymentMethod)
	}
	in.PaymentMethod = method

	for i, item := range in.Items {
		switch {
		case item.ProductID.IsZero():
			return newError(KindValidation, "items[%d].productId is required", i)
		case item.Quantity <= 0:
			return newError(KindValidation, "items[%d].quantity must be greater than zero", i)
		case strings.TrimSpace(item.Size) == "":
			return newError(KindValidation, "items[%d].size is required", i)
		case strings.TrimSpace(item.Color) == "":
			return newError(KindValidation, "items[%d].color is required", i)
		}
	}
	return nil
}

type variantKey struct {
	productID primitive.ObjectID
	size      string
	color     string
}

// PlaceOrder validates every item against inventory before touching stock,
// then decrements, splits the cart per shop and writes both ledgers in one
// transaction.
func (s *Service) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*PlaceOrderResult, error) {
	if err := validatePlacement(&in); err != nil {
		return nil, err
	}

	res, owned, err := s.claim(ctx, in)
	if err != nil || res != nil {
		return res, err
	}

	now := s.now()
	var result PlaceOrderResult
	err = s.store.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		lines, err := s.resolveLines(ctx, in)
		if err != nil {
			return err
		}

		for _, line := range lines {
			ok, err := s.store.Products.DecrementStock(ctx, line.ProductID, line.Size, line.Color, line.Quantity)
			if err != nil {
				return internalError(err, "decrement stock")
			}
			if !ok {
				return newError(KindInsufficientStock, "insufficient stock for %s (%s/%s)", line.Name, line.Size, line.Color).
					with("productId", line.ProductID.Hex()).
					with("requested", line.Quantity)
			}
		}

		userOrder, shopOrders := s.split(in, lines, now)
		if err := s.store.UserOrders.Insert(ctx, userOrder); err != nil {
			return internalError(err, "insert user order")
		}
		if err := s.store.ShopOrders.InsertMany(ctx, shopOrders); err != nil {
			return internalError(err, "insert shop orders")
		}
		if err := s.store.Users.ClearCart(ctx, in.BuyerID); err != nil {
			return internalError(err, "clear cart")
		}
		if err := s.appendPlaced(ctx, userOrder, shopOrders, now); err != nil {
			return err
		}

		result = PlaceOrderResult{OrderID: userOrder.ID, Amount: userOrder.Amount}
		for _, so := range shopOrders {
			result.ShopOrderIDs = append(result.ShopOrderIDs, so.ID)
		}
		return nil
	})
	if err != nil {
		if owned {
			s.release(ctx, in)
		}
		return nil, asError(err, "place order")
	}

	if in.DeclaredAmount > 0 && round2(in.DeclaredAmount) != result.Amount {
		log.Printf("[ORDER] [WARN] order %s declared amount %.2f differs from computed %.2f",
			result.OrderID.Hex(), in.DeclaredAmount, result.Amount)
	}
	log.Printf("[ORDER] [INFO] order %s placed by %s across %d shop(s)",
		result.OrderID.Hex(), in.BuyerID.Hex(), len(result.ShopOrderIDs))

	if owned {
		s.complete(ctx, in, result.OrderID)
	}
	return &result, nil
}

// resolveLines loads every product once and checks the cumulative quantity
// requested per variant. Nothing is written.
func (s *Service) resolveLines(ctx context.Context, in PlaceOrderInput) ([]models.LineItem, error) {
	products := map[primitive.ObjectID]*models.Product{}
	requested := map[variantKey]int{}
	lines := make([]models.LineItem, 0, len(in.Items))

	for _, item := range in.Items {
		product, ok := products[item.ProductID]
		if !ok {
			p, err := s.store.Products.FindByID(ctx, item.ProductID)
			if errors.Is(err, repository.ErrNotFound) {
				return nil, newError(KindProductNotFound, "product not found").
					with("productId", item.ProductID.Hex())
			}
			if err != nil {
				return nil, internalError(err, "load product")
			}
			products[item.ProductID] = p
			product = p
		}

		idx := product.Variant(item.Size, item.Color)
		if idx == -1 {
			return nil, newError(KindVariantNotFound, "%s has no %s/%s variant", product.Name, item.Size, item.Color).
				with("productId", product.ID.Hex()).
				with("size", item.Size).
				with("color", item.Color)
		}

		key := variantKey{product.ID, item.Size, item.Color}
		requested[key] += item.Quantity
		if available := product.StockItems[idx].Stock; available < requested[key] {
			return nil, newError(KindInsufficientStock, "insufficient stock for %s (%s/%s)", product.Name, item.Size, item.Color).
				with("productId", product.ID.Hex()).
				with("available", available).
				with("requested", requested[key])
		}

		address := in.Address
		if item.Address != nil {
			address = *item.Address
		}

		lines = append(lines, models.LineItem{
			ID:           primitive.NewObjectID(),
			ProductID:    product.ID,
			Name:         product.Name,
			Price:        product.Price,
			Image:        product.PrimaryImage(),
			Owner:        product.Owner,
			Quantity:     item.Quantity,
			Size:         item.Size,
			Color:        item.Color,
			ShippingCost: round2(product.ShippingCost * float64(item.Quantity)),
			Address:      address,
			Status:       models.StatusPending,
		})
	}
	return lines, nil
}

// split builds the buyer aggregate and one shop order per owner, keeping
// shops in the order they first appear in the cart.
func (s *Service) split(in PlaceOrderInput, lines []models.LineItem, now time.Time) (*models.UserOrder, []models.ShopOrder) {
	userOrderID := primitive.NewObjectID()

	var shopIDs []primitive.ObjectID
	groups := map[primitive.ObjectID][]models.LineItem{}
	for _, line := range lines {
		shopID := line.Owner.ID
		if _, seen := groups[shopID]; !seen {
			shopIDs = append(shopIDs, shopID)
		}
		groups[shopID] = append(groups[shopID], line)
	}

	var proofAt *time.Time
	if in.PaymentProof != "" {
		proofAt = &now
	}

	var total float64
	shopOrders := make([]models.ShopOrder, 0, len(shopIDs))
	for _, shopID := range shopIDs {
		items := groups[shopID]
		var subtotal float64
		for _, item := range items {
			subtotal += item.Subtotal()
		}
		subtotal = round2(subtotal)
		total += subtotal

		shopOrders = append(shopOrders, models.ShopOrder{
			ID:             primitive.NewObjectID(),
			ShopID:         shopID,
			BuyerID:        in.BuyerID,
			UserOrderID:    userOrderID,
			Items:          append([]models.LineItem(nil), items...),
			Address:        in.Address,
			Amount:         subtotal,
			PaymentMethod:  in.PaymentMethod,
			Payment:        in.PaymentMethod == models.PaymentQRCode,
			PaymentProof:   in.PaymentProof,
			PaymentProofAt: proofAt,
			Status:         models.StatusPending,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	}

	userOrder := &models.UserOrder{
		ID:             userOrderID,
		UserID:         in.BuyerID,
		Items:          lines,
		Amount:         round2(total),
		DeclaredAmount: in.DeclaredAmount,
		Currency:       s.currency,
		Address:        in.Address,
		PaymentMethod:  in.PaymentMethod,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	return userOrder, shopOrders
}

func (s *Service) appendPlaced(ctx context.Context, uo *models.UserOrder, shopOrders []models.ShopOrder, now time.Time) error {
	payload := events.OrderPlacedPayload{
		OrderID:       uo.ID.Hex(),
		UserID:        uo.UserID.Hex(),
		Amount:        uo.Amount,
		Currency:      uo.Currency,
		PaymentMethod: uo.PaymentMethod,
	}
	for _, so := range shopOrders {
		payload.ShopOrders = append(payload.ShopOrders, events.ShopOrderRef{
			ShopOrderID: so.ID.Hex(),
			ShopID:      so.ShopID.Hex(),
			Amount:      so.Amount,
			ItemCount:   len(so.Items),
		})
	}
	return s.appendEvent(ctx, events.EventOrderPlaced, events.TopicOrderPlaced, uo.ID.Hex(), payload, now)
}

func (s *Service) appendEvent(ctx context.Context, eventType, topic, aggregateID string, payload any, now time.Time) error {
	ev, err := events.NewOutboxEvent(eventType, topic, aggregateID, payload, now)
	if err != nil {
		return internalError(err, "build "+eventType)
	}
	if err := s.store.Outbox.Append(ctx, ev); err != nil {
		return internalError(err, "append "+eventType)
	}
	return nil
}

// claim reserves the Idempotency-Key for this placement. It returns the
// earlier result when the key already produced an order, and owned=true when
// the caller must place the order and then complete or release the key.
// While another request holds the key claim waits for it up to claimWait.
// Store failures fall through to a normal placement.
func (s *Service) claim(ctx context.Context, in PlaceOrderInput) (*PlaceOrderResult, bool, error) {
	if s.idem == nil || in.IdempotencyKey == "" {
		return nil, false, nil
	}

	deadline := time.NewTimer(s.claimWait)
	defer deadline.Stop()
	for {
		raw, claimed, err := s.idem.Claim(ctx, in.BuyerID.Hex(), in.IdempotencyKey)
		if err != nil {
			log.Println("[ORDER] [WARN] idempotency claim failed:", err)
			return nil, false, nil
		}
		if claimed {
			return nil, true, nil
		}
		if raw != idempotency.Pending {
			return s.replay(ctx, in, raw)
		}

		select {
		case <-ctx.Done():
			return nil, false, internalError(ctx.Err(), "wait for idempotency key")
		case <-deadline.C:
			return nil, false, newError(KindConflict, "an order with this Idempotency-Key is still being placed")
		case <-time.After(s.claimPoll):
		}
	}
}

// replay loads the order an earlier request with the same key produced.
func (s *Service) replay(ctx context.Context, in PlaceOrderInput, raw string) (*PlaceOrderResult, bool, error) {
	orderID, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		log.Printf("[ORDER] [WARN] idempotency key %s holds invalid order id %q", in.IdempotencyKey, raw)
		return nil, false, nil
	}

	uo, err := s.store.UserOrders.FindByID(ctx, orderID)
	if err != nil {
		log.Printf("[ORDER] [WARN] idempotency key %s points at missing order %s: %v", in.IdempotencyKey, raw, err)
		return nil, false, nil
	}
	shopOrders, err := s.store.ShopOrders.FindByUserOrder(ctx, orderID)
	if err != nil {
		log.Println("[ORDER] [WARN] idempotency replay could not load shop orders:", err)
	}

	res := &PlaceOrderResult{OrderID: uo.ID, Amount: uo.Amount, Replayed: true}
	for _, so := range shopOrders {
		res.ShopOrderIDs = append(res.ShopOrderIDs, so.ID)
	}
	log.Printf("[ORDER] [INFO] replayed order %s for idempotency key %s", raw, in.IdempotencyKey)
	return res, false, nil
}

func (s *Service) complete(ctx context.Context, in PlaceOrderInput, orderID primitive.ObjectID) {
	if err := s.idem.Complete(ctx, in.BuyerID.Hex(), in.IdempotencyKey, orderID.Hex()); err != nil {
		log.Println("[ORDER] [WARN] idempotency complete failed:", err)
	}
}

// release frees the key of a failed placement so the client can retry.
func (s *Service) release(ctx context.Context, in PlaceOrderInput) {
	if err := s.idem.Release(context.WithoutCancel(ctx), in.BuyerID.Hex(), in.IdempotencyKey); err != nil {
		log.Println("[ORDER] [WARN] idempotency release failed:", err)
	}
}
