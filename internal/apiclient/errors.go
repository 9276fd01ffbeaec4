package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"raices-verdes/internal/domain"
)

// ErrRateLimited is returned for 429 responses.
var ErrRateLimited = errors.New("rate limited")

// StatusError is an API failure that has no domain equivalent.
type StatusError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api: %d %s: %s", e.StatusCode, e.Code, e.Message)
}

type errorBody struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Errors     []struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Detail  json.RawMessage `json:"detail"`
	} `json:"errors"`
}

// decodeError turns an error response back into the domain error the server
// rendered, so callers can use errors.Is and errors.As on either side.
func decodeError(resp *http.Response) error {
	var body errorBody
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	_ = json.Unmarshal(raw, &body)

	code := ""
	if len(body.Errors) > 0 {
		code = body.Errors[0].Code
	}

	switch resp.StatusCode {
	case http.StatusUnprocessableEntity:
		switch code {
		case "insufficient_stock":
			se := &domain.StockError{}
			for _, item := range body.Errors {
				var s domain.StockShortage
				if err := json.Unmarshal(item.Detail, &s); err == nil {
					se.Shortages = append(se.Shortages, s)
				}
			}
			return se
		case "empty_cart":
			return domain.EmptyCartError()
		}
		var problems []string
		for _, item := range body.Errors {
			if item.Message != body.Message {
				problems = append(problems, item.Message)
			}
		}
		return domain.NewValidationError(body.Message, problems...)
	case http.StatusUnauthorized:
		return domain.ErrAuthRequired
	case http.StatusForbidden:
		return domain.ErrProducerUnverified
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusConflict:
		return domain.ErrAlreadyExists
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusServiceUnavailable:
		if code == "unknown_actor" {
			return domain.ErrUnknownActor
		}
	}
	if code == "" {
		code = http.StatusText(resp.StatusCode)
	}
	return &StatusError{StatusCode: resp.StatusCode, Code: code, Message: body.Message}
}
