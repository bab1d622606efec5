package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"marketplace/internal/orders"
)

type transferRequest struct {
	OrderID           string `json:"orderId" binding:"required,objectid"`
	TransferredToShop *bool  `json:"transferredToShop" binding:"required"`
}

/* =========================
   ADMIN
========================= */

// ListAllOrders returns every shop order, newest first, for the admin panel.
func ListAllOrders(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/order/list"
		defer handlePanic(c, route)

		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid pagination params")
			return
		}
		// Without paging params the whole list is returned.
		if c.Query("page") == "" && c.Query("limit") == "" {
			limit = 0
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		res, err := svc.ListAllShopOrders(ctx, page, limit)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"orders":  res.Orders,
			"total":   res.Total,
			"page":    res.Page,
			"limit":   res.Limit,
		})
	}
}

func ListQRPayments(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/order/qr-payments"
		defer handlePanic(c, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		list, err := svc.ListQRPayments(ctx)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "orders": list})
	}
}

// TransferToShop records that the admin forwarded a QR payment to the shop.
func TransferToShop(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/order/transfer"
		defer handlePanic(c, route)

		var req transferRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		orderID, err := parseObjectID(req.OrderID)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid orderId")
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		so, err := svc.SetTransferredToShop(ctx, orderID, *req.TransferredToShop)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Transfer status updated successfully",
			"order":   so,
		})
	}
}

/* =========================
   BUYER
========================= */

func ListUserOrders(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/order/user-orders"
		defer handlePanic(c, route)

		buyerID, ok := currentUser(c, route)
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		list, err := svc.ListUserOrders(ctx, buyerID)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "orders": list})
	}
}

/* =========================
   SHOP
========================= */

// ListShopOrders returns the orders containing the shop's products, with
// buyer details and contact requests attached.
func ListShopOrders(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/order/shop-orders"
		defer handlePanic(c, route)

		shopID, ok := currentUser(c, route)
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		list, err := svc.ListShopOrders(ctx, shopID)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "orders": list})
	}
}

func ShopQRPaymentList(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/order/qr-payment-list"
		defer handlePanic(c, route)

		shopID, ok := currentUser(c, route)
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		list, err := svc.ShopQRPaymentList(ctx, shopID)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "payments": list})
	}
}

// DeleteShopOrder removes a shop order owned by the calling shop.
func DeleteShopOrder(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /api/order/:id"
		defer handlePanic(c, route)

		shopID, ok := currentUser(c, route)
		if !ok {
			return
		}

		orderID, err := parseObjectID(c.Param("id"))
		if err != nil || orderID.IsZero() {
			respondWithError(c, http.StatusBadRequest, route, "invalid order id")
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := svc.DeleteShopOrder(ctx, shopID, orderID); err != nil {
			respondServiceError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Order deleted successfully"})
	}
}
