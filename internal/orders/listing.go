package orders

import (
	"context"
	"log"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"marketplace/internal/models"
	"marketplace/internal/repository"
)

// ShopOrderView is a shop order joined with its buyer and the contact
// requests opened about it.
type ShopOrderView struct {
	models.ShopOrder
	Buyer    *models.BuyerInfo       `json:"buyer,omitempty"`
	Contacts []models.ContactRequest `json:"contacts"`
}

// QRPaymentOrder is a QR-code shop order with the user who placed it.
type QRPaymentOrder struct {
	models.ShopOrder
	Owner *models.BuyerInfo `json:"owner,omitempty"`
}

// QRPaymentEntry is the row a shop sees in its QR payment list.
type QRPaymentEntry struct {
	Buyer        string             `json:"buyer"`
	ProductNames []string           `json:"productNames"`
	Price        float64            `json:"price"`
	PaymentProof string             `json:"paymentProof,omitempty"`
	OrderID      primitive.ObjectID `json:"orderId"`
}

type Page struct {
	Orders []models.ShopOrder `json:"orders"`
	Total  int64              `json:"total"`
	Page   int64              `json:"page"`
	Limit  int64              `json:"limit"`
}

func (s *Service) ListAllShopOrders(ctx context.Context, page, limit int64) (*Page, error) {
	if page < 1 {
		page = 1
	}
	orders, total, err := s.store.ShopOrders.FindAll(ctx, page, limit)
	if err != nil {
		return nil, internalError(err, "list orders")
	}
	return &Page{Orders: orders, Total: total, Page: page, Limit: limit}, nil
}

func (s *Service) ListUserOrders(ctx context.Context, buyerID primitive.ObjectID) ([]models.UserOrder, error) {
	if buyerID.IsZero() {
		return nil, newError(KindValidation, "userId is required")
	}
	orders, err := s.store.UserOrders.FindByUser(ctx, buyerID)
	if err != nil {
		return nil, internalError(err, "list user orders")
	}
	return orders, nil
}

func (s *Service) buyers(ctx context.Context, orders []models.ShopOrder) (map[primitive.ObjectID]models.User, error) {
	ids := make([]primitive.ObjectID, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.BuyerID)
	}
	users, err := s.store.Users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, internalError(err, "load buyers")
	}
	byID := make(map[primitive.ObjectID]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	return byID, nil
}

// ListShopOrders returns the shop orders containing items of shopID, newest
// first, with buyer info and contact requests attached.
func (s *Service) ListShopOrders(ctx context.Context, shopID primitive.ObjectID) ([]ShopOrderView, error) {
	orders, err := s.store.ShopOrders.FindByShop(ctx, shopID)
	if err != nil {
		return nil, internalError(err, "list shop orders")
	}

	buyers, err := s.buyers(ctx, orders)
	if err != nil {
		return nil, err
	}

	// contacts reference either the shop order or the buyer's order
	orderIDs := make([]primitive.ObjectID, 0, 2*len(orders))
	for _, o := range orders {
		orderIDs = append(orderIDs, o.ID, o.UserOrderID)
	}
	contacts, err := s.store.Contacts.FindByOrderIDs(ctx, orderIDs)
	if err != nil {
		return nil, internalError(err, "load contact requests")
	}
	byOrder := map[primitive.ObjectID][]models.ContactRequest{}
	for _, c := range contacts {
		if c.ShopID != shopID {
			continue
		}
		byOrder[c.OrderID] = append(byOrder[c.OrderID], c)
	}

	views := make([]ShopOrderView, 0, len(orders))
	for _, o := range orders {
		view := ShopOrderView{ShopOrder: o, Contacts: []models.ContactRequest{}}
		if u, ok := buyers[o.BuyerID]; ok {
			info := u.BuyerInfo()
			view.Buyer = &info
		}
		view.Contacts = append(view.Contacts, byOrder[o.ID]...)
		view.Contacts = append(view.Contacts, byOrder[o.UserOrderID]...)
		views = append(views, view)
	}
	return views, nil
}

// ListQRPayments returns every QR-code shop order for the admin panel.
func (s *Service) ListQRPayments(ctx context.Context) ([]QRPaymentOrder, error) {
	orders, err := s.store.ShopOrders.FindByPaymentMethod(ctx, models.PaymentQRCode, nil)
	if err != nil {
		return nil, internalError(err, "list qr payments")
	}
	buyers, err := s.buyers(ctx, orders)
	if err != nil {
		return nil, err
	}

	out := make([]QRPaymentOrder, 0, len(orders))
	for _, o := range orders {
		entry := QRPaymentOrder{ShopOrder: o}
		if u, ok := buyers[o.BuyerID]; ok {
			info := u.BuyerInfo()
			entry.Owner = &info
		}
		out = append(out, entry)
	}
	return out, nil
}

// ShopQRPaymentList summarizes the QR-code orders of one shop.
func (s *Service) ShopQRPaymentList(ctx context.Context, shopID primitive.ObjectID) ([]QRPaymentEntry, error) {
	orders, err := s.store.ShopOrders.FindByPaymentMethod(ctx, models.PaymentQRCode, &shopID)
	if err != nil {
		return nil, internalError(err, "list shop qr payments")
	}
	buyers, err := s.buyers(ctx, orders)
	if err != nil {
		return nil, err
	}

	out := make([]QRPaymentEntry, 0, len(orders))
	for _, o := range orders {
		names := make([]string, 0, len(o.Items))
		for _, item := range o.Items {
			names = append(names, item.Name)
		}
		out = append(out, QRPaymentEntry{
			Buyer:        buyers[o.BuyerID].Name,
			ProductNames: names,
			Price:        o.Amount,
			PaymentProof: o.PaymentProof,
			OrderID:      o.ID,
		})
	}
	return out, nil
}

// DeleteShopOrder removes a shop order only when shopID owns one of its
// items. Orders that do not exist and orders of other shops both report
// OrderNotFound.
func (s *Service) DeleteShopOrder(ctx context.Context, shopID, orderID primitive.ObjectID) error {
	deleted, err := s.store.ShopOrders.DeleteOwned(ctx, orderID, shopID)
	if err != nil {
		return internalError(err, "delete order")
	}
	if !deleted {
		return newError(KindOrderNotFound, "order not found or you don't have permission to delete it")
	}
	log.Printf("[ORDER] [INFO] shop %s deleted order %s", shopID.Hex(), orderID.Hex())
	return nil
}

// SetTransferredToShop records whether the admin paid the shop its share.
func (s *Service) SetTransferredToShop(ctx context.Context, orderID primitive.ObjectID, transferred bool) (*models.ShopOrder, error) {
	err := s.store.ShopOrders.SetTransferred(ctx, orderID, transferred, s.now())
	if errors.Is(err, repository.ErrNotFound) {
		return nil, newError(KindOrderNotFound, "order not found").with("orderId", orderID.Hex())
	}
	if err != nil {
		return nil, internalError(err, "update transfer flag")
	}
	so, err := s.store.ShopOrders.FindByID(ctx, orderID)
	if err != nil {
		return nil, internalError(err, "load order")
	}
	return so, nil
}
