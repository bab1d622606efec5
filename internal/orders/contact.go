package orders

import (
	"context"
	"log"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"marketplace/internal/events"
	"marketplace/internal/media"
	"marketplace/internal/models"
)

type ContactInput struct {
	BuyerID     primitive.ObjectID
	ShopID      primitive.ObjectID
	OrderID     primitive.ObjectID
	ProductID   primitive.ObjectID
	Description string
	Phone       string
	Images      []media.File
	Video       *media.File
}

// CreateContactRequest uploads the attached media and opens a pending
// request. If any upload fails the files stored so far are removed.
func (s *Service) CreateContactRequest(ctx context.Context, in ContactInput) (*models.ContactRequest, error) {
	in.Description = strings.TrimSpace(in.Description)
	in.Phone = strings.TrimSpace(in.Phone)

	var missing []string
	if in.BuyerID.IsZero() {
		missing = append(missing, "userId")
	}
	if in.ShopID.IsZero() {
		missing = append(missing, "shopId")
	}
	if in.OrderID.IsZero() {
		missing = append(missing, "orderId")
	}
	if in.Description == "" {
		missing = append(missing, "description")
	}
	if in.Phone == "" {
		missing = append(missing, "phone")
	}
	if len(missing) > 0 {
		return nil, newError(KindValidation, "%s required", strings.Join(missing, ", ")).with("fields", missing)
	}

	uploaded := make([]string, 0, len(in.Images)+1)
	images := make([]string, 0, len(in.Images))
	for _, img := range in.Images {
		url, err := s.upload(ctx, media.KindImage, img)
		if err != nil {
			s.discard(ctx, uploaded...)
			return nil, err
		}
		uploaded = append(uploaded, url)
		images = append(images, url)
	}

	var video string
	if in.Video != nil {
		url, err := s.upload(ctx, media.KindVideo, *in.Video)
		if err != nil {
			s.discard(ctx, uploaded...)
			return nil, err
		}
		uploaded = append(uploaded, url)
		video = url
	}

	now := s.now()
	req := &models.ContactRequest{
		UserID:      in.BuyerID,
		ShopID:      in.ShopID,
		OrderID:     in.OrderID,
		ProductID:   in.ProductID,
		Description: in.Description,
		Phone:       in.Phone,
		Images:      images,
		Video:       video,
		Status:      models.ContactStatusPending,
		CreatedAt:   now,
	}

	err := s.store.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		req.ID = primitive.NewObjectID()
		if err := s.store.Contacts.Insert(ctx, req); err != nil {
			return internalError(err, "insert contact request")
		}
		return s.appendEvent(ctx, events.EventContactRequested, events.TopicOrderContacts, in.OrderID.Hex(),
			events.ContactRequestedPayload{
				ContactID: req.ID.Hex(),
				OrderID:   in.OrderID.Hex(),
				ShopID:    in.ShopID.Hex(),
				UserID:    in.BuyerID.Hex(),
			}, now)
	})
	if err != nil {
		s.discard(ctx, uploaded...)
		return nil, asError(err, "create contact request")
	}

	log.Printf("[CONTACT] [INFO] request %s opened by %s for shop %s", req.ID.Hex(), in.BuyerID.Hex(), in.ShopID.Hex())
	return req, nil
}
