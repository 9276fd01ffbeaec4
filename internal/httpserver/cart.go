package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"raices-verdes/internal/domain"
)

type addLineRequest struct {
	ProductID string `json:"productId"`
}

type setQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

func (h *handlers) getCart(c *gin.Context) {
	r := resolved(c)
	if r.err != nil {
		writeError(c, r.err)
		return
	}
	lines, err := h.deps.Cart.List(c.Request.Context(), r.actor)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(lines, h.deps.Cart.Total(lines)))
}

func (h *handlers) addCartLine(c *gin.Context) {
	actor, ok := requireSession(c)
	if !ok {
		return
	}
	var req addLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json body")
		return
	}
	if req.ProductID == "" {
		badRequest(c, "productId required")
		return
	}
	if _, err := uuid.Parse(req.ProductID); err != nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	line, err := h.deps.Cart.Add(c.Request.Context(), actor, req.ProductID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartLineResponse(*line))
}

func (h *handlers) setCartLineQuantity(c *gin.Context) {
	actor, ok := requireSession(c)
	if !ok {
		return
	}
	lineID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req setQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Quantity == nil {
		badRequest(c, "quantity required")
		return
	}
	line, err := h.deps.Cart.SetQuantity(c.Request.Context(), actor, lineID, *req.Quantity)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartLineResponse(*line))
}

func (h *handlers) removeCartLine(c *gin.Context) {
	actor, ok := requireSession(c)
	if !ok {
		return
	}
	lineID, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.deps.Cart.Remove(c.Request.Context(), actor, lineID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
