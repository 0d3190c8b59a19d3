package controllers

import (
	"net/http"
	"time"

	"github.com/howtoquitvivek/skipnomeal/middlewares"
	"github.com/howtoquitvivek/skipnomeal/nutrition"
	"github.com/howtoquitvivek/skipnomeal/services"

	"github.com/gin-gonic/gin"
)

type FoodController struct {
	Foods *services.FoodService
}

func NewFoodController(fs *services.FoodService) *FoodController {
	return &FoodController{Foods: fs}
}

// representationRequest is the wire shape of nutrition.Payload plus its
// discriminant.
type representationRequest struct {
	QuantityKind nutrition.QuantityKind  `json:"quantity_kind"`
	Density      *nutrition.DensityInput `json:"density"`
	Serving      *nutrition.ServingInput `json:"serving"`
}

func (r representationRequest) payload() nutrition.Payload {
	return nutrition.Payload{Density: r.Density, Serving: r.Serving}
}

type createFoodRequest struct {
	Name string `json:"name"`
	representationRequest
}

type densityView struct {
	BaseQuantity float64          `json:"base_quantity"`
	Macros       nutrition.Macros `json:"macros"`
}

type servingView struct {
	Labels map[string]nutrition.ServingMacro `json:"labels"`
}

type foodResponse struct {
	ID           string                 `json:"id"`
	Name         string                 `json:"name"`
	QuantityKind nutrition.QuantityKind `json:"quantity_kind"`
	Density      *densityView           `json:"density"`
	Serving      *servingView           `json:"serving"`
	ImageURL     string                 `json:"image_url,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

func toFoodResponse(f *services.Food) foodResponse {
	rec := f.Record
	out := foodResponse{
		ID:           rec.ID(),
		Name:         rec.Name(),
		QuantityKind: rec.QuantityKind(),
		ImageURL:     f.ImageURL,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
	if d, ok := rec.Density(); ok {
		out.Density = &densityView{BaseQuantity: d.BaseQuantity, Macros: d.Macros}
	}
	if s, ok := rec.Serving(); ok {
		out.Serving = &servingView{Labels: s.LabelMap()}
	}
	return out
}

func toFoodResponses(foods []services.Food) []foodResponse {
	out := make([]foodResponse, len(foods))
	for i := range foods {
		out[i] = toFoodResponse(&foods[i])
	}
	return out
}

// POST /api/foods
func (fc *FoodController) Create(c *gin.Context) {
	var req createFoodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	food, err := fc.Foods.Create(c.Request.Context(), middlewares.UserID(c), req.Name, req.QuantityKind, req.payload())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toFoodResponse(food))
}

// GET /api/foods?q=oat
func (fc *FoodController) List(c *gin.Context) {
	foods, err := fc.Foods.Search(c.Request.Context(), middlewares.UserID(c), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toFoodResponses(foods))
}

// GET /api/foods/:id
func (fc *FoodController) Get(c *gin.Context) {
	food, err := fc.Foods.Get(c.Request.Context(), middlewares.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toFoodResponse(food))
}

// PUT /api/foods/:id/representation
func (fc *FoodController) ReplaceRepresentation(c *gin.Context) {
	var req representationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	food, err := fc.Foods.ReplaceRepresentation(c.Request.Context(), middlewares.UserID(c), c.Param("id"), req.QuantityKind, req.payload())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toFoodResponse(food))
}

// DELETE /api/foods/:id
func (fc *FoodController) Delete(c *gin.Context) {
	if err := fc.Foods.Delete(c.Request.Context(), middlewares.UserID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type imageRequest struct {
	ImageBase64 string `json:"image_base64" binding:"required"`
}

// POST /api/foods/:id/image  { "image_base64": "data:…" }
func (fc *FoodController) AttachImage(c *gin.Context) {
	var req imageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body")
		return
	}
	food, err := fc.Foods.AttachImage(c.Request.Context(), middlewares.UserID(c), c.Param("id"), req.ImageBase64)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toFoodResponse(food))
}

// POST /api/foods/recognize  { "image_base64": "data:…" }
func (fc *FoodController) Recognize(c *gin.Context) {
	var req imageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body")
		return
	}
	labels, foods, err := fc.Foods.Recognize(c.Request.Context(), middlewares.UserID(c), req.ImageBase64)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"labels": labels, "foods": toFoodResponses(foods)})
}
