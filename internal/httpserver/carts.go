package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	cartsvc "marketplace-orders/internal/service/cart"
)

func (h *handlers) createCart(c *gin.Context) {
	var req cartsvc.CreateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	if a, _ := actorFrom(c.Request.Context()); req.CustomerID == "" {
		req.CustomerID = a.ID
	}
	cart, err := h.carts.Create(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.logger, err, nil)
		return
	}
	c.JSON(http.StatusCreated, cart)
}

func (h *handlers) getCart(c *gin.Context) {
	cart, err := h.carts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err, nil)
		return
	}
	c.JSON(http.StatusOK, cart)
}

// updateCart applies addLineItem and changeLineItemQuantity actions.
func (h *handlers) updateCart(c *gin.Context) {
	var req cartsvc.UpdateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	cart, err := h.carts.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		writeError(c, h.logger, err, nil)
		return
	}
	c.JSON(http.StatusOK, cart)
}
