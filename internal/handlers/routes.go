package handlers

import (
	"github.com/gin-gonic/gin"

	"marketplace/internal/middleware"
	"marketplace/internal/orders"
)

// RegisterOrderRoutes mounts the order API under /api/order.
func RegisterOrderRoutes(r gin.IRouter, svc *orders.Service, jwtSecret string) {
	RegisterValidators()

	user := middleware.UserAuth(jwtSecret)
	admin := middleware.AdminAuth(jwtSecret)

	g := r.Group("/api/order")

	g.POST("/place", user, PlaceOrder(svc))
	g.POST("/place-qr", user, PlaceOrderQRCode(svc))
	g.POST("/verify-qr", user, VerifyQRCodePayment(svc))
	g.GET("/qr-code/:id", user, GetPaymentQRCode(svc))
	g.POST("/user-orders", user, ListUserOrders(svc))
	g.POST("/status", user, UpdateStatus(svc))
	g.POST("/contact", user, ContactShop(svc))

	g.GET("/shop-orders", user, ListShopOrders(svc))
	g.POST("/shipping-info", user, UpdateShippingInfo(svc))
	g.GET("/qr-payment-list", user, ShopQRPaymentList(svc))
	g.DELETE("/:id", user, DeleteShopOrder(svc))

	g.GET("/list", admin, ListAllOrders(svc))
	g.GET("/qr-payments", admin, ListQRPayments(svc))
	g.POST("/transfer", admin, TransferToShop(svc))
}
