package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"raices-verdes/internal/service/producer"
)

func (h *handlers) producerProfile(c *gin.Context) {
	actor, ok := requireSession(c)
	if !ok {
		return
	}
	profile, err := h.deps.Producers.Profile(c.Request.Context(), actor)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"producer":    profile.Producer,
		"documentUrl": profile.DocumentURL,
		"products":    toProductResponses(profile.Products),
	})
}

func (h *handlers) producerPage(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	page, err := h.deps.Producers.PublicPage(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProducerPageResponse(page))
}

func (h *handlers) createProduct(c *gin.Context) {
	actor, ok := requireSession(c)
	if !ok {
		return
	}
	var in producer.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid json body")
		return
	}
	p, err := h.deps.Producers.CreateProduct(c.Request.Context(), actor, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toProductResponse(*p))
}

func (h *handlers) updateProduct(c *gin.Context) {
	actor, ok := requireSession(c)
	if !ok {
		return
	}
	id, ok := productID(c)
	if !ok {
		return
	}
	var in producer.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid json body")
		return
	}
	p, err := h.deps.Producers.UpdateProduct(c.Request.Context(), actor, id, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProductResponse(*p))
}

func (h *handlers) deleteProduct(c *gin.Context) {
	actor, ok := requireSession(c)
	if !ok {
		return
	}
	id, ok := productID(c)
	if !ok {
		return
	}
	if err := h.deps.Producers.DeleteProduct(c.Request.Context(), actor, id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
