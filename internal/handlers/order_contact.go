package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"marketplace/internal/media"
	"marketplace/internal/orders"
)

const maxContactImages = 5

// ContactShop opens a contact request from the buyer to a shop about an
// order. Images and an optional video arrive as multipart parts.
func ContactShop(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/order/contact"
		defer handlePanic(c, route)

		buyerID, ok := currentUser(c, route)
		if !ok {
			return
		}

		ids := map[string]primitive.ObjectID{}
		for _, field := range []string{"shopId", "orderId", "productId"} {
			id, err := parseObjectID(c.PostForm(field))
			if err != nil {
				respondWithError(c, http.StatusBadRequest, route, "invalid "+field)
				return
			}
			ids[field] = id
		}

		in := orders.ContactInput{
			BuyerID:     buyerID,
			ShopID:      ids["shopId"],
			OrderID:     ids["orderId"],
			ProductID:   ids["productId"],
			Description: c.PostForm("description"),
			Phone:       c.PostForm("phone"),
		}

		if form, err := c.MultipartForm(); err == nil {
			images := append(form.File["images"], form.File["images[]"]...)
			if len(images) > maxContactImages {
				respondWithError(c, http.StatusBadRequest, route, "too many images")
				return
			}
			for _, header := range images {
				in.Images = append(in.Images, media.FromHeader(header))
			}
			if videos := form.File["video"]; len(videos) > 0 {
				video := media.FromHeader(videos[0])
				in.Video = &video
			}
		} else if !strings.HasPrefix(c.ContentType(), "multipart/") {
			respondWithError(c, http.StatusBadRequest, route, "multipart form expected")
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		req, err := svc.CreateContactRequest(ctx, in)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"success": true,
			"message": "Contact request sent",
			"contact": req,
		})
	}
}
