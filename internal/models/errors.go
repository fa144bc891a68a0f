package models

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors used throughout the application
var (
	ErrEmptyCart             = errors.New("cart is empty")
	ErrMissingName           = errors.New("first and last name are required")
	ErrInvalidPhone          = errors.New("phone number must be at least 7 characters")
	ErrCatalogUnavailable    = errors.New("class catalog unavailable")
	ErrInsufficientInventory = errors.New("insufficient class capacity")
	ErrOrderRejected         = errors.New("order rejected")
	ErrOrderTransport        = errors.New("order service unreachable")
	ErrSubmissionInProgress  = errors.New("an order submission is already in progress")
)

// Conflict reasons reported for a cart entry that cannot be booked.
const (
	ReasonNotFound        = "not found"
	ReasonNotEnoughSpaces = "not enough capacity"
)

// InventoryConflict describes one class whose requested seats cannot be satisfied
type InventoryConflict struct {
	LessonID  string `json:"lessonId"`
	Title     string `json:"title,omitempty"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
	Reason    string `json:"reason"`
}

// InsufficientInventoryError carries every conflict found during the pre-check
type InsufficientInventoryError struct {
	Conflicts []InventoryConflict
}

func (e *InsufficientInventoryError) Error() string {
	parts := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		name := c.Title
		if name == "" {
			name = c.LessonID
		}
		parts = append(parts, fmt.Sprintf("%s: %s (requested %d, available %d)", name, c.Reason, c.Requested, c.Available))
	}
	return fmt.Sprintf("%s: %s", ErrInsufficientInventory, strings.Join(parts, "; "))
}

func (e *InsufficientInventoryError) Is(target error) bool {
	return target == ErrInsufficientInventory
}

// GenericOrderFailure is reported when the order service gives no usable message
const GenericOrderFailure = "order could not be placed, please try again"

// OrderRejectedError represents a non-success response from the order service
type OrderRejectedError struct {
	StatusCode int
	Message    string
}

func (e *OrderRejectedError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return GenericOrderFailure
}

func (e *OrderRejectedError) Is(target error) bool {
	return target == ErrOrderRejected
}
