package orders

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"marketplace/internal/events"
	"marketplace/internal/models"
	"marketplace/internal/repository"
)

// StatusUpdate changes one line item. OrderID is the UserOrder id. A
// non-zero ActorID must be the buyer or the shop that owns the item.
type StatusUpdate struct {
	ActorID             primitive.ObjectID
	OrderID             primitive.ObjectID
	ItemID              primitive.ObjectID
	Status              string
	TrackingNumber      string
	ShippingProvider    string
	ConfirmedByCustomer *bool
}

type StatusResult struct {
	Order     *models.UserOrder
	ShopOrder *models.ShopOrder
}

// ShippingUpdate sets tracking on a shop order. A zero ItemID applies it to
// every item of the shop that can still be shipped.
type ShippingUpdate struct {
	ShopID           primitive.ObjectID
	ShopOrderID      primitive.ObjectID
	ItemID           primitive.ObjectID
	TrackingNumber   string
	ShippingProvider string
}

type itemPatch struct {
	status           models.Status
	trackingNumber   string
	shippingProvider string
	confirmed        *bool
	at               time.Time
}

// apply returns a patched copy of item and whether anything changed.
func (p itemPatch) apply(item models.LineItem) (models.LineItem, bool) {
	changed := false
	if item.Status != p.status {
		item.Status = p.status
		changed = true
	}
	if p.trackingNumber != "" && item.TrackingNumber != p.trackingNumber {
		item.TrackingNumber = p.trackingNumber
		changed = true
	}
	if p.shippingProvider != "" && item.ShippingProvider != p.shippingProvider {
		item.ShippingProvider = p.shippingProvider
		changed = true
	}
	if p.confirmed != nil && item.ConfirmedByCustomer != *p.confirmed {
		item.ConfirmedByCustomer = *p.confirmed
		changed = true
	}
	if changed {
		at := p.at
		item.UpdatedAt = &at
	}
	return item, changed
}

// patchItems returns a new slice with patch applied to the items in ids.
// The input slice is left untouched.
func patchItems(items []models.LineItem, ids map[primitive.ObjectID]bool, patch itemPatch) ([]models.LineItem, bool) {
	out := make([]models.LineItem, len(items))
	changed := false
	for i, item := range items {
		if ids[item.ID] {
			var c bool
			item, c = patch.apply(item)
			changed = changed || c
		}
		out[i] = item
	}
	return out, changed
}

func shopStatus(items []models.LineItem) models.Status {
	statuses := make([]models.Status, 0, len(items))
	for _, item := range items {
		statuses = append(statuses, item.Status)
	}
	return models.LeastAdvanced(statuses...)
}

func resolveTargetStatus(raw, tracking, provider string) (models.Status, error) {
	if tracking != "" && provider != "" {
		return models.StatusShipped, nil
	}
	status, err := models.ParseStatus(raw)
	if err != nil {
		return "", newError(KindValidation, "invalid status %q", raw)
	}
	return status, nil
}

// UpdateStatus applies a status change to the buyer copy of a line item and
// mirrors it into the shop copy in the same transaction. Supplying both
// tracking number and carrier forces the item to shipped. A copy that already
// carries the requested state is not rewritten, so repeating a call is a
// no-op and a lagging copy is brought in line.
func (s *Service) UpdateStatus(ctx context.Context, upd StatusUpdate) (*StatusResult, error) {
	if upd.OrderID.IsZero() || upd.ItemID.IsZero() {
		return nil, newError(KindValidation, "orderId and itemId are required")
	}
	upd.TrackingNumber = strings.TrimSpace(upd.TrackingNumber)
	upd.ShippingProvider = strings.TrimSpace(upd.ShippingProvider)

	target, err := resolveTargetStatus(upd.Status, upd.TrackingNumber, upd.ShippingProvider)
	if err != nil {
		return nil, err
	}

	now := s.now()
	patch := itemPatch{
		status:           target,
		trackingNumber:   upd.TrackingNumber,
		shippingProvider: upd.ShippingProvider,
		confirmed:        upd.ConfirmedByCustomer,
		at:               now,
	}

	var result StatusResult
	err = s.store.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		uo, err := s.store.UserOrders.FindByID(ctx, upd.OrderID)
		if errors.Is(err, repository.ErrNotFound) {
			return newError(KindOrderNotFound, "order not found").with("orderId", upd.OrderID.Hex())
		}
		if err != nil {
			return internalError(err, "load order")
		}

		idx := models.ItemIndex(uo.Items, upd.ItemID)
		if idx == -1 {
			return newError(KindLineItemNotFound, "item not found in order").with("itemId", upd.ItemID.Hex())
		}
		if !upd.ActorID.IsZero() && upd.ActorID != uo.UserID && upd.ActorID != uo.Items[idx].Owner.ID {
			return newError(KindUnauthorized, "order item does not belong to this user or shop")
		}
		from := uo.Items[idx].Status
		if !models.CanTransition(from, target) {
			return newError(KindValidation, "cannot change item status from %s to %s", from, target)
		}

		items, changed := patchItems(uo.Items, map[primitive.ObjectID]bool{upd.ItemID: true}, patch)
		if changed {
			if err := s.store.UserOrders.ReplaceItems(ctx, uo.ID, items, now); err != nil {
				return internalError(err, "update order items")
			}
			uo.Items = items
			uo.UpdatedAt = now
		}
		result.Order = uo

		so, err := s.syncShopCopy(ctx, uo.ID, upd.ItemID, patch)
		if err != nil {
			return err
		}
		result.ShopOrder = so

		if from == target && !changed {
			return nil
		}
		payload := events.OrderStatusChangedPayload{
			OrderID:          uo.ID.Hex(),
			ItemID:           upd.ItemID.Hex(),
			From:             string(from),
			To:               string(target),
			TrackingNumber:   upd.TrackingNumber,
			ShippingProvider: upd.ShippingProvider,
		}
		if so != nil {
			payload.ShopOrderID = so.ID.Hex()
		}
		return s.appendEvent(ctx, events.EventOrderStatusChanged, events.TopicOrderStatus, uo.ID.Hex(), payload, now)
	})
	if err != nil {
		return nil, asError(err, "update status")
	}

	log.Printf("[ORDER] [INFO] order %s item %s set to %s", upd.OrderID.Hex(), upd.ItemID.Hex(), target)
	return &result, nil
}

// syncShopCopy mirrors patch into the shop order that holds the items. A
// missing shop order is logged and skipped.
func (s *Service) syncShopCopy(ctx context.Context, userOrderID, itemID primitive.ObjectID, patch itemPatch) (*models.ShopOrder, error) {
	so, err := s.store.ShopOrders.FindByUserOrderItem(ctx, userOrderID, itemID)
	if errors.Is(err, repository.ErrNotFound) {
		log.Printf("[ORDER] [WARN] no shop order holds item %s of order %s", itemID.Hex(), userOrderID.Hex())
		return nil, nil
	}
	if err != nil {
		return nil, internalError(err, "load shop order")
	}

	items, changed := patchItems(so.Items, map[primitive.ObjectID]bool{itemID: true}, patch)
	if !changed {
		return so, nil
	}
	if err := s.writeShopOrder(ctx, so, items, patch); err != nil {
		return nil, err
	}
	return so, nil
}

func (s *Service) writeShopOrder(ctx context.Context, so *models.ShopOrder, items []models.LineItem, patch itemPatch) error {
	status := shopStatus(items)
	err := s.store.ShopOrders.UpdateFulfillment(ctx, so.ID, repository.ShopOrderPatch{
		Items:            items,
		Status:           status,
		TrackingNumber:   patch.trackingNumber,
		ShippingProvider: patch.shippingProvider,
		UpdatedAt:        patch.at,
	})
	if err != nil {
		return internalError(err, "update shop order")
	}

	so.Items = items
	so.Status = status
	if patch.trackingNumber != "" {
		so.TrackingNumber = patch.trackingNumber
	}
	if patch.shippingProvider != "" {
		so.ShippingProvider = patch.shippingProvider
	}
	so.UpdatedAt = patch.at
	return nil
}

// UpdateShippingInfo marks the shop's items of a shop order as shipped with
// the given tracking details, in both the shop copy and the buyer copy.
func (s *Service) UpdateShippingInfo(ctx context.Context, upd ShippingUpdate) (*StatusResult, error) {
	upd.TrackingNumber = strings.TrimSpace(upd.TrackingNumber)
	upd.ShippingProvider = strings.TrimSpace(upd.ShippingProvider)
	if upd.ShopOrderID.IsZero() {
		return nil, newError(KindValidation, "orderId is required")
	}
	if upd.TrackingNumber == "" || upd.ShippingProvider == "" {
		return nil, newError(KindValidation, "trackingNumber and shippingProvider are required")
	}

	now := s.now()
	patch := itemPatch{
		status:           models.StatusShipped,
		trackingNumber:   upd.TrackingNumber,
		shippingProvider: upd.ShippingProvider,
		at:               now,
	}

	var result StatusResult
	err := s.store.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		so, err := s.store.ShopOrders.FindByID(ctx, upd.ShopOrderID)
		if errors.Is(err, repository.ErrNotFound) {
			return newError(KindOrderNotFound, "order not found").with("orderId", upd.ShopOrderID.Hex())
		}
		if err != nil {
			return internalError(err, "load shop order")
		}
		if !so.OwnedBy(upd.ShopID) {
			return newError(KindUnauthorized, "order does not belong to this shop")
		}

		ids, err := shippableItems(so, upd)
		if err != nil {
			return err
		}

		items, changed := patchItems(so.Items, ids, patch)
		if changed {
			if err := s.writeShopOrder(ctx, so, items, patch); err != nil {
				return err
			}
		}
		result.ShopOrder = so

		uo, err := s.store.UserOrders.FindByID(ctx, so.UserOrderID)
		if errors.Is(err, repository.ErrNotFound) {
			log.Printf("[ORDER] [WARN] shop order %s references missing order %s", so.ID.Hex(), so.UserOrderID.Hex())
			return nil
		}
		if err != nil {
			return internalError(err, "load order")
		}
		buyerItems, buyerChanged := patchItems(uo.Items, ids, patch)
		if buyerChanged {
			if err := s.store.UserOrders.ReplaceItems(ctx, uo.ID, buyerItems, now); err != nil {
				return internalError(err, "update order items")
			}
			uo.Items = buyerItems
			uo.UpdatedAt = now
		}
		result.Order = uo

		if !changed && !buyerChanged {
			return nil
		}
		for _, item := range so.Items {
			if !ids[item.ID] {
				continue
			}
			payload := events.OrderStatusChangedPayload{
				OrderID:          uo.ID.Hex(),
				ShopOrderID:      so.ID.Hex(),
				ItemID:           item.ID.Hex(),
				To:               string(models.StatusShipped),
				TrackingNumber:   upd.TrackingNumber,
				ShippingProvider: upd.ShippingProvider,
			}
			if err := s.appendEvent(ctx, events.EventOrderStatusChanged, events.TopicOrderStatus, uo.ID.Hex(), payload, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, asError(err, "update shipping info")
	}

	log.Printf("[ORDER] [INFO] shop order %s shipped via %s (%s)", upd.ShopOrderID.Hex(), upd.ShippingProvider, upd.TrackingNumber)
	return &result, nil
}

// shippableItems picks the shop's items the update applies to. Items that
// already reached a final state are skipped when no item is named.
func shippableItems(so *models.ShopOrder, upd ShippingUpdate) (map[primitive.ObjectID]bool, error) {
	ids := map[primitive.ObjectID]bool{}

	if !upd.ItemID.IsZero() {
		idx := models.ItemIndex(so.Items, upd.ItemID)
		if idx == -1 || so.Items[idx].Owner.ID != upd.ShopID {
			return nil, newError(KindLineItemNotFound, "item not found in order").with("itemId", upd.ItemID.Hex())
		}
		if so.Items[idx].Status.Terminal() {
			return nil, newError(KindValidation, "cannot ship an item that is %s", so.Items[idx].Status)
		}
		ids[upd.ItemID] = true
		return ids, nil
	}

	for _, item := range so.Items {
		if item.Owner.ID != upd.ShopID || item.Status.Terminal() {
			continue
		}
		ids[item.ID] = true
	}
	if len(ids) == 0 {
		return nil, newError(KindValidation, "no items left to ship in this order")
	}
	return ids, nil
}
