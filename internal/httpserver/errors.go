package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"raices-verdes/internal/domain"
)

type errorResponse struct {
	StatusCode int         `json:"statusCode"`
	Message    string      `json:"message"`
	Errors     []errorItem `json:"errors"`
}

type errorItem struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Detail  interface{} `json:"detail,omitempty"`
}

// writeError maps domain errors to status codes. Anything unrecognised is an
// upstream failure and its text is not exposed.
func writeError(c *gin.Context, err error) {
	resp := errorBody(err)
	if resp.StatusCode >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(resp.StatusCode, resp)
}

func errorBody(err error) errorResponse {
	var (
		stockErr *domain.StockError
		valErr   *domain.ValidationError
	)
	switch {
	case errors.As(err, &stockErr):
		items := make([]errorItem, 0, len(stockErr.Shortages))
		for _, s := range stockErr.Shortages {
			items = append(items, errorItem{Code: "insufficient_stock", Message: s.String(), Detail: s})
		}
		return errorResponse{StatusCode: http.StatusUnprocessableEntity, Message: "insufficient stock", Errors: items}
	case errors.As(err, &valErr):
		items := []errorItem{}
		for _, p := range valErr.Problems {
			items = append(items, errorItem{Code: "invalid_input", Message: p})
		}
		if len(items) == 0 {
			code := "invalid_input"
			if errors.Is(err, domain.ErrEmptyCart) {
				code = "empty_cart"
			}
			items = append(items, errorItem{Code: code, Message: valErr.Message})
		}
		return errorResponse{StatusCode: http.StatusUnprocessableEntity, Message: valErr.Message, Errors: items}
	case errors.Is(err, domain.ErrAuthRequired):
		return simpleError(http.StatusUnauthorized, "auth_required", "authentication required")
	case errors.Is(err, domain.ErrProducerUnverified):
		return simpleError(http.StatusForbidden, "producer_unverified", "producer account is not verified")
	case errors.Is(err, domain.ErrNotFound):
		return simpleError(http.StatusNotFound, "not_found", "resource not found")
	case errors.Is(err, domain.ErrAlreadyExists):
		return simpleError(http.StatusConflict, "already_exists", "resource already exists")
	case errors.Is(err, domain.ErrUnknownActor):
		return simpleError(http.StatusServiceUnavailable, "unknown_actor", "identity could not be resolved, try again")
	}
	return simpleError(http.StatusInternalServerError, "upstream_failure", "upstream service failed")
}

func simpleError(status int, code, msg string) errorResponse {
	return errorResponse{StatusCode: status, Message: msg, Errors: []errorItem{{Code: code, Message: msg}}}
}

func badRequest(c *gin.Context, msg string) {
	writeError(c, domain.NewValidationError(msg))
}
