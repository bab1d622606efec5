// Package orders implements order placement, the buyer/shop ledger
// synchronizer, payment proofs and contact requests on top of the
// repository ports.
package orders

import (
	"math"
	"time"

	"marketplace/internal/idempotency"
	"marketplace/internal/media"
	"marketplace/internal/payment"
	"marketplace/internal/repository"
)

const DefaultCurrency = "thb"

type Deps struct {
	Store       repository.Store
	Uploader    media.Uploader
	Idempotency idempotency.Store
	QR          *payment.QRGenerator
	Currency    string
}

type Service struct {
	store    repository.Store
	uploader media.Uploader
	idem     idempotency.Store
	qr       *payment.QRGenerator
	currency string
	now      func() time.Time

	claimWait time.Duration
	claimPoll time.Duration
}

func NewService(d Deps) *Service {
	currency := d.Currency
	if currency == "" {
		currency = DefaultCurrency
	}
	qr := d.QR
	if qr == nil {
		qr = payment.NewQRGenerator(0, "")
	}
	return &Service{
		store:    d.Store,
		uploader: d.Uploader,
		idem:     d.Idempotency,
		qr:       qr,
		currency: currency,
		now:      func() time.Time { return time.Now().UTC() },

		claimWait: 3 * time.Second,
		claimPoll: 25 * time.Millisecond,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
