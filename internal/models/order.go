package models

import (
	"encoding/json"
	"strings"
)

// MinPhoneLength is the shortest normalized phone number accepted at checkout
const MinPhoneLength = 7

// CustomerInfo is the contact information collected by the checkout form
type CustomerInfo struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
}

// FullName returns the customer's full name
func (c CustomerInfo) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(c.FirstName) + " " + strings.TrimSpace(c.LastName))
}

// Validate checks the name and phone fields, returning the normalized phone number
func (c CustomerInfo) Validate() (string, error) {
	if strings.TrimSpace(c.FirstName) == "" || strings.TrimSpace(c.LastName) == "" {
		return "", ErrMissingName
	}

	phone := NormalizePhone(c.Phone)
	if len(phone) < MinPhoneLength {
		return "", ErrInvalidPhone
	}

	return phone, nil
}

// NormalizePhone trims the number and drops common separators
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(phone) {
		switch r {
		case ' ', '\t', '-', '.', '(', ')':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// OrderRequest is the body posted to the order service.
// LessonIDs and Spaces are parallel arrays of equal length.
type OrderRequest struct {
	Name      string   `json:"name"`
	Phone     string   `json:"phone"`
	LessonIDs []string `json:"lessonIDs"`
	Spaces    []int    `json:"spaces"`
}

// NewOrderRequest builds an order from validated contact details and grouped cart quantities
func NewOrderRequest(name, phone string, quantities []LessonQuantity) *OrderRequest {
	req := &OrderRequest{
		Name:      name,
		Phone:     phone,
		LessonIDs: make([]string, 0, len(quantities)),
		Spaces:    make([]int, 0, len(quantities)),
	}
	for _, q := range quantities {
		req.LessonIDs = append(req.LessonIDs, q.LessonID)
		req.Spaces = append(req.Spaces, q.Quantity)
	}
	return req
}

// TotalSpaces returns the number of seats requested across all lessons
func (r *OrderRequest) TotalSpaces() int {
	total := 0
	for _, s := range r.Spaces {
		total += s
	}
	return total
}

// OrderResult is the confirmation returned by the order service
type OrderResult struct {
	ID        string   `json:"id"`
	Name      string   `json:"name,omitempty"`
	Phone     string   `json:"phone,omitempty"`
	LessonIDs []string `json:"lessonIDs,omitempty"`
	Spaces    []int    `json:"spaces,omitempty"`
}

type rawOrderResult struct {
	MongoID    json.RawMessage `json:"_id"`
	ID         json.RawMessage `json:"id"`
	InsertedID json.RawMessage `json:"insertedId"`
	OrderID    json.RawMessage `json:"orderId"`
	Order      json.RawMessage `json:"order"`
	Name       string          `json:"name"`
	Phone      string          `json:"phone"`
	LessonIDs  []string        `json:"lessonIDs"`
	Spaces     []int           `json:"spaces"`
}

// UnmarshalJSON accepts the created order itself or an envelope holding it under "order"
func (o *OrderResult) UnmarshalJSON(data []byte) error {
	var raw rawOrderResult
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if len(raw.Order) > 0 && string(raw.Order) != "null" {
		var inner OrderResult
		if err := json.Unmarshal(raw.Order, &inner); err == nil && inner.ID != "" {
			*o = inner
			return nil
		}
	}

	*o = OrderResult{
		Name:      raw.Name,
		Phone:     raw.Phone,
		LessonIDs: raw.LessonIDs,
		Spaces:    raw.Spaces,
	}
	for _, candidate := range []json.RawMessage{raw.MongoID, raw.ID, raw.InsertedID, raw.OrderID} {
		if id := rawIdentifier(candidate); id != "" {
			o.ID = id
			break
		}
	}
	return nil
}
