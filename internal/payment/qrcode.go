// Package payment renders the QR code a buyer scans to pay a QR-code order.
package payment

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	"github.com/skip2/go-qrcode"
)

const qrType = "order_payment"

// QRData is the JSON document encoded in the payment QR code.
type QRData struct {
	OrderID  string  `json:"orderId"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Type     string  `json:"type"`
}

type QRGenerator struct {
	size  int
	level qrcode.RecoveryLevel
}

// NewQRGenerator builds a generator for PNGs of size pixels. level is one of
// L, M, Q, H and defaults to M.
func NewQRGenerator(size int, level string) *QRGenerator {
	if size <= 0 {
		size = 256
	}
	return &QRGenerator{size: size, level: parseLevel(level)}
}

func parseLevel(level string) qrcode.RecoveryLevel {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "L":
		return qrcode.Low
	case "Q":
		return qrcode.High
	case "H":
		return qrcode.Highest
	default:
		return qrcode.Medium
	}
}

// OrderPNG encodes the payable amount of an order.
func (g *QRGenerator) OrderPNG(orderID string, amount float64, currency string) ([]byte, error) {
	data, err := json.Marshal(QRData{
		OrderID:  orderID,
		Amount:   amount,
		Currency: currency,
		Type:     qrType,
	})
	if err != nil {
		return nil, errors.Wrap(err, "marshal qr data")
	}

	code, err := qrcode.New(string(data), g.level)
	if err != nil {
		return nil, errors.Wrap(err, "create qr code")
	}
	png, err := code.PNG(g.size)
	if err != nil {
		return nil, errors.Wrap(err, "render qr png")
	}
	return png, nil
}
