package handlers

import (
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"marketplace/internal/models"
)

var registerOnce sync.Once

// RegisterValidators adds the custom binding tags used by the order requests.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("objectid", func(fl validator.FieldLevel) bool {
			return primitive.IsValidObjectID(strings.TrimSpace(fl.Field().String()))
		})
		_ = v.RegisterValidation("orderstatus", func(fl validator.FieldLevel) bool {
			_, err := models.ParseStatus(fl.Field().String())
			return err == nil
		})
	})
}
