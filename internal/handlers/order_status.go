package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"marketplace/internal/orders"
)

type updateStatusRequest struct {
	OrderID             string `json:"orderId" binding:"required,objectid"`
	ItemID              string `json:"itemId" binding:"required,objectid"`
	Status              string `json:"status" binding:"omitempty,orderstatus"`
	TrackingNumber      string `json:"trackingNumber"`
	ShippingProvider    string `json:"shippingProvider"`
	ConfirmedByCustomer *bool  `json:"confirmedByCustomer"`
}

type shippingInfoRequest struct {
	OrderID          string `json:"orderId" binding:"required,objectid"`
	ItemID           string `json:"itemId" binding:"omitempty,objectid"`
	TrackingNumber   string `json:"trackingNumber" binding:"required"`
	ShippingProvider string `json:"shippingProvider" binding:"required"`
}

/* =========================
   UPDATE STATUS
========================= */

// UpdateStatus changes one line item on the buyer's order and mirrors the
// change into the owning shop order.
func UpdateStatus(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/order/status"
		defer handlePanic(c, route)

		actorID, ok := currentUser(c, route)
		if !ok {
			return
		}

		var req updateStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		orderID, err := parseObjectID(req.OrderID)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid orderId")
			return
		}
		itemID, err := parseObjectID(req.ItemID)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid itemId")
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		res, err := svc.UpdateStatus(ctx, orders.StatusUpdate{
			ActorID:             actorID,
			OrderID:             orderID,
			ItemID:              itemID,
			Status:              req.Status,
			TrackingNumber:      req.TrackingNumber,
			ShippingProvider:    req.ShippingProvider,
			ConfirmedByCustomer: req.ConfirmedByCustomer,
		})
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"message":   "Status Updated",
			"order":     res.Order,
			"shopOrder": res.ShopOrder,
		})
	}
}

/* =========================
   SHIPPING INFO
========================= */

// UpdateShippingInfo lets a shop attach tracking details to its order. The
// items become shipped on both copies.
func UpdateShippingInfo(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/order/shipping-info"
		defer handlePanic(c, route)

		shopID, ok := currentUser(c, route)
		if !ok {
			return
		}

		var req shippingInfoRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		orderID, err := parseObjectID(req.OrderID)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid orderId")
			return
		}
		itemID, err := parseObjectID(req.ItemID)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid itemId")
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		res, err := svc.UpdateShippingInfo(ctx, orders.ShippingUpdate{
			ShopID:           shopID,
			ShopOrderID:      orderID,
			ItemID:           itemID,
			TrackingNumber:   req.TrackingNumber,
			ShippingProvider: req.ShippingProvider,
		})
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"message":   "Shipping information updated",
			"order":     res.Order,
			"shopOrder": res.ShopOrder,
		})
	}
}
