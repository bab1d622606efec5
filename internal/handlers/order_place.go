package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"marketplace/internal/models"
	"marketplace/internal/orders"
)

/* =========================
   REQUEST DTOs
========================= */

// placeOrderItemRequest accepts both `productId` and the storefront cart's
// `_id`, and either `color` or the first entry of `colors`.
type placeOrderItemRequest struct {
	ProductID string          `json:"productId"`
	CartID    string          `json:"_id"`
	Quantity  int             `json:"quantity" binding:"required,gt=0"`
	Size      string          `json:"size" binding:"required"`
	Color     string          `json:"color"`
	Colors    []string        `json:"colors"`
	Address   *models.Address `json:"address"`
}

func (r placeOrderItemRequest) productID() string {
	if id := strings.TrimSpace(r.ProductID); id != "" {
		return id
	}
	return strings.TrimSpace(r.CartID)
}

func (r placeOrderItemRequest) color() string {
	if c := strings.TrimSpace(r.Color); c != "" {
		return c
	}
	if len(r.Colors) > 0 {
		return strings.TrimSpace(r.Colors[0])
	}
	return ""
}

type placeOrderRequest struct {
	Items         []placeOrderItemRequest `json:"items" binding:"required,min=1,dive"`
	Amount        float64                 `json:"amount"`
	PaymentMethod string                  `json:"paymentMethod"`
	Address       models.Address          `json:"address"`
	PaymentProof  string                  `json:"paymentProof"`
}

func (r placeOrderRequest) toInput(buyerID primitive.ObjectID, idemKey string) (orders.PlaceOrderInput, error) {
	in := orders.PlaceOrderInput{
		BuyerID:        buyerID,
		Items:          make([]orders.CartItem, 0, len(r.Items)),
		DeclaredAmount: r.Amount,
		PaymentMethod:  r.PaymentMethod,
		Address:        r.Address,
		PaymentProof:   strings.TrimSpace(r.PaymentProof),
		IdempotencyKey: strings.TrimSpace(idemKey),
	}
	for _, item := range r.Items {
		productID, err := primitive.ObjectIDFromHex(item.productID())
		if err != nil {
			return in, err
		}
		in.Items = append(in.Items, orders.CartItem{
			ProductID: productID,
			Quantity:  item.Quantity,
			Size:      strings.TrimSpace(item.Size),
			Color:     item.color(),
			Address:   item.Address,
		})
	}
	return in, nil
}

/* =========================
   PLACE ORDER
========================= */

const idempotencyHeader = "Idempotency-Key"

// PlaceOrder places a checkout with the payment method from the body.
func PlaceOrder(svc *orders.Service) gin.HandlerFunc {
	return placeOrder(svc, "POST /api/order/place", "", "Order placed")
}

// PlaceOrderQRCode places a checkout paid by QR code transfer.
func PlaceOrderQRCode(svc *orders.Service) gin.HandlerFunc {
	return placeOrder(svc, "POST /api/order/place-qr", models.PaymentQRCode,
		"Order placed. Please complete the payment using QR Code.")
}

func placeOrder(svc *orders.Service, route, forcedMethod, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer handlePanic(c, route)

		buyerID, ok := currentUser(c, route)
		if !ok {
			return
		}

		var req placeOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		if forcedMethod != "" {
			req.PaymentMethod = forcedMethod
		}

		in, err := req.toInput(buyerID, c.GetHeader(idempotencyHeader))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid productId")
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		res, err := svc.PlaceOrder(ctx, in)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		status := http.StatusCreated
		if res.Replayed {
			status = http.StatusOK
		}
		c.JSON(status, gin.H{
			"success":      true,
			"message":      message,
			"orderId":      res.OrderID.Hex(),
			"shopOrderIds": res.ShopOrderIDs,
			"amount":       res.Amount,
			"replayed":     res.Replayed,
		})
	}
}
