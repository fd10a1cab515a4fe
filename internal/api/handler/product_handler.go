package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/linkloot/affiliate-api/internal/api/metrics"
	"github.com/linkloot/affiliate-api/internal/core/domain"
	"github.com/linkloot/affiliate-api/internal/core/ports"
)

// ProductHandler serves the product catalog and the public showcase.
type ProductHandler struct {
	catalog ports.CatalogService
}

func NewProductHandler(catalog ports.CatalogService) *ProductHandler {
	return &ProductHandler{catalog: catalog}
}

// AddProduct stores a product and tries to monetise its link.
//
// @Summary      Add a product
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        body  body      addProductRequest  true  "Product"
// @Success      201   {object}  addProductResponse
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /add_product [post]
func (h *ProductHandler) AddProduct(c echo.Context) error {
	var req addProductRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.catalog.AddProduct(c.Request().Context(), ports.AddProductInput{
		UserID:   req.UserID,
		Name:     req.ProductName,
		URL:      req.ProductURL,
		ImageURL: req.ImageURL,
	})
	if err != nil {
		return opError("An error occurred while adding the product.", err)
	}

	metrics.AffiliateRewritesTotal.WithLabelValues(string(res.Rewrite.Status)).Inc()
	metrics.ProductsCreatedTotal.WithLabelValues(strconv.FormatBool(res.Product.IsAffiliated)).Inc()

	return c.JSON(http.StatusCreated, addProductResponse{
		Message:      "Product added successfully!",
		Product:      res.Product,
		IsAffiliated: res.Product.IsAffiliated,
		Rewrite:      string(res.Rewrite.Status),
	})
}

// DeleteProduct removes a product owned by the caller.
//
// @Summary      Delete a product
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        id    path      string                true  "Product ID"
// @Param        body  body      deleteProductRequest  true  "Caller"
// @Success      200   {object}  messageResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /delete_product/{id} [delete]
func (h *ProductHandler) DeleteProduct(c echo.Context) error {
	var req deleteProductRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.catalog.DeleteProduct(c.Request().Context(), c.Param("id"), req.UserID); err != nil {
		return opError("An error occurred while deleting the product.", err)
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Product deleted successfully."})
}

// GetProducts lists a user's products, newest first.
//
// @Summary      List products
// @Tags         products
// @Produce      json
// @Param        userId  path      string  true  "User ID"
// @Success      200     {array}   domain.Product
// @Failure      500     {object}  errorResponse
// @Router       /get_products/{userId} [get]
func (h *ProductHandler) GetProducts(c echo.Context) error {
	products, err := h.catalog.ListProducts(c.Request().Context(), c.Param("userId"))
	if err != nil {
		return opError("Could not fetch products.", err)
	}
	return c.JSON(http.StatusOK, nonNilProducts(products))
}

// Showcase renders a user's public product page. Clients asking for JSON
// get the same data as a document.
//
// @Summary      Public showcase
// @Tags         products
// @Produce      html,json
// @Param        username  path      string  true  "Username"
// @Success      200       {object}  showcaseResponse
// @Failure      404       {object}  errorResponse
// @Router       /showcase/{username} [get]
func (h *ProductHandler) Showcase(c echo.Context) error {
	sc, err := h.catalog.Showcase(c.Request().Context(), c.Param("username"))
	wantsJSON := strings.Contains(c.Request().Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON)

	if err != nil {
		if !wantsJSON && errors.Is(err, domain.ErrNotFound) {
			return c.String(http.StatusNotFound, "Showcase not found")
		}
		return opError("An error occurred while loading the showcase.", err)
	}

	data := showcaseResponse{
		Influencer: showcaseInfluencer{Username: sc.User.Username},
		Products:   nonNilProducts(sc.Products),
	}
	if wantsJSON {
		return c.JSON(http.StatusOK, data)
	}
	return c.Render(http.StatusOK, "showcase.html", data)
}
