package handlers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"marketplace/internal/middleware"
	"marketplace/internal/orders"
)

const requestTimeout = 5 * time.Second

func handlePanic(c *gin.Context, route string) {
	if r := recover(); r != nil {
		log.Printf("[%s] panic recovered: %v", route, r)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "message": "internal server error"})
	}
}

func respondWithError(c *gin.Context, status int, route string, message string) {
	log.Printf("[%s] returning error %d: %s", route, status, message)
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}

var kindStatus = map[orders.Kind]int{
	orders.KindProductNotFound:   http.StatusNotFound,
	orders.KindVariantNotFound:   http.StatusNotFound,
	orders.KindOrderNotFound:     http.StatusNotFound,
	orders.KindLineItemNotFound:  http.StatusNotFound,
	orders.KindInsufficientStock: http.StatusBadRequest,
	orders.KindMissingProof:      http.StatusBadRequest,
	orders.KindValidation:        http.StatusBadRequest,
	orders.KindUnauthorized:      http.StatusForbidden,
	orders.KindUploadFailed:      http.StatusBadGateway,
	orders.KindConflict:          http.StatusConflict,
}

// respondServiceError converts a service error into the JSON error envelope.
// Internal failures are logged in full and reported generically.
func respondServiceError(c *gin.Context, route string, err error) {
	var oe *orders.Error
	if !errors.As(err, &oe) || oe.Kind == orders.KindInternal {
		log.Printf("[%s] [ERROR] %v", route, err)
		respondWithError(c, http.StatusInternalServerError, route, "internal server error")
		return
	}

	status, ok := kindStatus[oe.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	body := gin.H{"success": false, "message": oe.Message, "code": oe.Kind}
	for k, v := range oe.Meta {
		body[k] = v
	}
	log.Printf("[%s] returning error %d: %s", route, status, oe.Message)
	c.AbortWithStatusJSON(status, body)
}

func respondValidationError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		details := make([]string, 0, len(validationErrors))
		for _, fieldError := range validationErrors {
			field := lowerCamel(fieldError.Field())
			switch fieldError.Tag() {
			case "required":
				details = append(details, fmt.Sprintf("%s is required", field))
			default:
				details = append(details, fmt.Sprintf("%s is invalid", field))
			}
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "validation failed",
			"details": details,
		})
		return
	}

	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid body", "details": err.Error()})
}

func lowerCamel(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}

// parseObjectID parses an optional hex id; blank input yields the nil id.
func parseObjectID(raw string) (primitive.ObjectID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return primitive.NilObjectID, nil
	}
	return primitive.ObjectIDFromHex(raw)
}

func currentUser(c *gin.Context, route string) (primitive.ObjectID, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
		return primitive.NilObjectID, false
	}
	return userID, true
}

func requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), requestTimeout)
}
