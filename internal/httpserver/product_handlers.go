package httpserver

import (
	"net/http"

	"marketchat/internal/service"
)

type productCreateRequest struct {
	Name  string  `json:"name" validate:"required,max=200"`
	Image *string `json:"image,omitempty" validate:"omitempty,url"`
}

// @Summary      List a product
// @Description  Sellers list a product that buyers can ask about
// @Tags         products
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        input body productCreateRequest true "Product"
// @Success      201  {object}  domain.Product
// @Failure      403  {object}  map[string]string
// @Router       /products [post]
func handleCreateProduct(catalog *service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req productCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		p, err := catalog.Create(r.Context(), CurrentUser(r), service.ProductInput{Name: req.Name, Image: req.Image})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, p)
	}
}

// @Summary      Get a product
// @Tags         products
// @Security     BearerAuth
// @Produce      json
// @Param        productID path int true "Product ID"
// @Success      200  {object}  domain.Product
// @Failure      404  {object}  map[string]string
// @Router       /products/{productID} [get]
func handleGetProduct(catalog *service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseIDParam(r, "productID")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product id"})
			return
		}
		p, err := catalog.Get(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}
