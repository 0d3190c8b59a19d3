package controllers

import (
	"errors"
	"net/http"

	"github.com/howtoquitvivek/skipnomeal/nutrition"
	"github.com/howtoquitvivek/skipnomeal/services"
	"github.com/howtoquitvivek/skipnomeal/utils"

	"github.com/gin-gonic/gin"
)

// respondError maps service and engine errors onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	var (
		ve *nutrition.ValidationError
		pe *nutrition.PreconditionError
		ue *nutrition.UnresolvedReferenceError
	)
	body := gin.H{"error": err.Error()}
	status := http.StatusInternalServerError

	switch {
	case errors.As(err, &ve):
		status = http.StatusBadRequest
		body["code"] = "validation_error"
		body["field"] = ve.Field
	case errors.As(err, &pe):
		status = http.StatusBadRequest
		body["code"] = "precondition_failed"
		body["field"] = pe.Field
		if pe.Index >= 0 {
			body["entry"] = pe.Index
		}
	case errors.As(err, &ue):
		status = http.StatusUnprocessableEntity
		body["code"] = "unresolved_reference"
		body["food_item_id"] = ue.FoodItemID
		if ue.ServingLabel != "" {
			body["serving_label"] = ue.ServingLabel
		}
		if ue.Index >= 0 {
			body["entry"] = ue.Index
		}
	case errors.Is(err, services.ErrFoodNotFound), errors.Is(err, services.ErrMealNotFound):
		status = http.StatusNotFound
		body["code"] = "not_found"
	case errors.Is(err, services.ErrFoodInUse):
		status = http.StatusConflict
		body["code"] = "conflict"
	case errors.Is(err, services.ErrInvalidMeal), errors.Is(err, utils.ErrInvalidDataURL):
		status = http.StatusBadRequest
		body["code"] = "invalid_request"
	case errors.Is(err, services.ErrImagesUnavailable), errors.Is(err, services.ErrRecognitionUnavailable):
		status = http.StatusServiceUnavailable
		body["code"] = "unavailable"
	default:
		body = gin.H{"error": "internal server error", "code": "internal"}
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg, "code": "invalid_request"})
}
