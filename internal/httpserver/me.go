package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type checkoutRequest struct {
	Method string `json:"method"`
}

func (h *handlers) me(c *gin.Context) {
	r := resolved(c)
	if r.err != nil {
		writeError(c, r.err)
		return
	}
	c.JSON(http.StatusOK, toActorResponse(r.actor))
}

func (h *handlers) signOut(c *gin.Context) {
	actor, ok := requireSession(c)
	if !ok {
		return
	}
	if err := h.deps.Sessions.SignOut(c.Request.Context(), actor); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) checkout(c *gin.Context) {
	actor, ok := requireSession(c)
	if !ok {
		return
	}
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json body")
		return
	}
	p, err := h.deps.Checkout.Checkout(c.Request.Context(), actor, req.Method)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, checkoutResponse{
		PaymentID:     p.ID,
		Total:         money(p.Total),
		InvoiceNumber: p.InvoiceNumber,
	})
}

func (h *handlers) getInvoice(c *gin.Context) {
	actor, ok := requireSession(c)
	if !ok {
		return
	}
	paymentID, ok := idParam(c, "paymentId")
	if !ok {
		return
	}
	inv, err := h.deps.Checkout.Invoice(c.Request.Context(), actor, paymentID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toInvoiceResponse(inv))
}

func (h *handlers) listPayments(c *gin.Context) {
	actor, ok := requireSession(c)
	if !ok {
		return
	}
	payments, err := h.deps.Checkout.History(c.Request.Context(), actor)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPaymentResponses(payments))
}
