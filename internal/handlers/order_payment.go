package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"marketplace/internal/media"
	"marketplace/internal/orders"
)

// VerifyQRCodePayment accepts a payment proof image for a QR-code order.
// The proof is stored, not checked against the bank.
func VerifyQRCodePayment(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/order/verify-qr"
		defer handlePanic(c, route)

		buyerID, ok := currentUser(c, route)
		if !ok {
			return
		}

		orderID, err := parseObjectID(c.PostForm("orderId"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid orderId")
			return
		}

		in := orders.PaymentProofInput{BuyerID: buyerID, OrderID: orderID}
		if header, err := c.FormFile("paymentProof"); err == nil {
			file := media.FromHeader(header)
			in.File = &file
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		res, err := svc.SubmitPaymentProof(ctx, in)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":          true,
			"message":          "Payment verified successfully",
			"paymentProofPath": res.URL,
			"updated":          res.Updated,
		})
	}
}

// GetPaymentQRCode renders the QR code a buyer scans to pay an order.
func GetPaymentQRCode(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/order/qr-code/:id"
		defer handlePanic(c, route)

		buyerID, ok := currentUser(c, route)
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

		png, err := svc.PaymentQRCode(ctx, buyerID, orderID)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		c.Header("Cache-Control", "no-store")
		c.Data(http.StatusOK, "image/png", png)
	}
}
