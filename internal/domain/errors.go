package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a uniqueness constraint was hit.
	ErrAlreadyExists = errors.New("already exists")
	// ErrAuthRequired is returned when an operation needs a session and there is none.
	ErrAuthRequired = errors.New("authentication required")
	// ErrUnknownActor indicates the identity could not be resolved because a backing service failed.
	ErrUnknownActor = errors.New("unknown actor")
	// ErrProducerUnverified blocks producer-only views until both verification flags are set.
	ErrProducerUnverified = errors.New("producer account is not verified")
	// ErrInsufficientStock is matched by every *StockError.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrEmptyCart is matched by the validation error returned for an empty checkout.
	ErrEmptyCart = errors.New("cart is empty")
)

// ValidationError is a user-facing rejection. No mutation happened.
type ValidationError struct {
	Message  string
	Problems []string
	cause    error
}

func NewValidationError(msg string, problems ...string) *ValidationError {
	return &ValidationError{Message: msg, Problems: problems}
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 0 {
		return e.Message
	}
	return e.Message + ": " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Unwrap() error { return e.cause }

// StockShortage describes one cart line that exceeds the available stock.
type StockShortage struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

func (s StockShortage) String() string {
	return fmt.Sprintf("%s: requested %d, available %d", s.Name, s.Requested, s.Available)
}

// StockError lists every offending product of a checkout attempt.
type StockError struct {
	Shortages []StockShortage
}

func (e *StockError) Error() string {
	parts := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		parts = append(parts, s.String())
	}
	return "insufficient stock: " + strings.Join(parts, "; ")
}

func (e *StockError) Is(target error) bool { return target == ErrInsufficientStock }

// EmptyCartError returns the validation error for checking out an empty cart.
func EmptyCartError() error {
	return &ValidationError{Message: "cart is empty", cause: ErrEmptyCart}
}

// IsValidation reports whether err is a user-facing validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	var se *StockError
	return errors.As(err, &ve) || errors.As(err, &se)
}
