package orders

import (
	"context"
	"log"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"marketplace/internal/events"
	"marketplace/internal/media"
	"marketplace/internal/models"
	"marketplace/internal/repository"
)

// PaymentProofInput carries an uploaded proof. OrderID is optional; when set
// the proof is recorded on every shop order of that UserOrder.
type PaymentProofInput struct {
	BuyerID primitive.ObjectID
	OrderID primitive.ObjectID
	File    *media.File
}

type PaymentProofResult struct {
	URL     string
	Updated int64
}

// SubmitPaymentProof stores the proof and records its URL. The payment itself
// is not verified; a stored proof only means the buyer submitted one.
func (s *Service) SubmitPaymentProof(ctx context.Context, in PaymentProofInput) (*PaymentProofResult, error) {
	if in.File == nil {
		return nil, newError(KindMissingProof, "no payment proof provided")
	}

	if !in.OrderID.IsZero() {
		if _, err := s.paymentOrder(ctx, in.BuyerID, in.OrderID); err != nil {
			return nil, err
		}
	}

	url, err := s.upload(ctx, media.KindImage, *in.File)
	if err != nil {
		return nil, err
	}
	result := &PaymentProofResult{URL: url}
	if in.OrderID.IsZero() {
		log.Println("[ORDER] [INFO] payment proof uploaded without order:", url)
		return result, nil
	}

	now := s.now()
	err = s.store.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		n, err := s.store.ShopOrders.SetPaymentProof(ctx, in.OrderID, url, now)
		if err != nil {
			return internalError(err, "record payment proof")
		}
		if n == 0 {
			return newError(KindOrderNotFound, "order not found").with("orderId", in.OrderID.Hex())
		}
		result.Updated = n
		return s.appendEvent(ctx, events.EventPaymentProofAdded, events.TopicOrderPayment, in.OrderID.Hex(),
			events.PaymentProofPayload{OrderID: in.OrderID.Hex(), URL: url}, now)
	})
	if err != nil {
		s.discard(ctx, url)
		return nil, asError(err, "submit payment proof")
	}

	log.Printf("[ORDER] [INFO] payment proof recorded on %d shop order(s) of %s", result.Updated, in.OrderID.Hex())
	return result, nil
}

// paymentOrder loads a QR-code order and checks it belongs to buyerID when
// one is given.
func (s *Service) paymentOrder(ctx context.Context, buyerID, orderID primitive.ObjectID) (*models.UserOrder, error) {
	uo, err := s.store.UserOrders.FindByID(ctx, orderID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, newError(KindOrderNotFound, "order not found").with("orderId", orderID.Hex())
	}
	if err != nil {
		return nil, internalError(err, "load order")
	}
	if !buyerID.IsZero() && uo.UserID != buyerID {
		return nil, newError(KindUnauthorized, "order does not belong to this user")
	}
	if uo.PaymentMethod != models.PaymentQRCode {
		return nil, newError(KindValidation, "order is not paid by QR Code")
	}
	return uo, nil
}

// PaymentQRCode renders the QR code a buyer scans to pay a QR-code order.
func (s *Service) PaymentQRCode(ctx context.Context, buyerID, orderID primitive.ObjectID) ([]byte, error) {
	uo, err := s.paymentOrder(ctx, buyerID, orderID)
	if err != nil {
		return nil, err
	}
	png, err := s.qr.OrderPNG(uo.ID.Hex(), uo.Amount, uo.Currency)
	if err != nil {
		return nil, internalError(err, "render payment qr code")
	}
	return png, nil
}

// upload stores one file. Files refused by the storage rules are validation
// errors; anything else is an upload failure.
func (s *Service) upload(ctx context.Context, kind media.Kind, file media.File) (string, error) {
	url, err := s.uploader.Upload(ctx, kind, file)
	if errors.Is(err, media.ErrRejected) {
		return "", &Error{Kind: KindValidation, Message: err.Error(), Err: err}
	}
	if err != nil {
		log.Printf("[UPLOAD] [ERROR] %s: %v", file.Name, err)
		return "", &Error{Kind: KindUploadFailed, Message: "failed to upload " + file.Name, Err: err}
	}
	return url, nil
}

// discard removes uploaded files that ended up unreferenced.
func (s *Service) discard(ctx context.Context, urls ...string) {
	for _, url := range urls {
		if err := s.uploader.Delete(ctx, url); err != nil {
			log.Printf("[UPLOAD] [WARN] failed to remove %s: %v", url, err)
		}
	}
}
