package models

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Defaults applied when the catalog service omits a field
const (
	DefaultCategory = "General"
	DefaultLocation = "Online"
	DefaultRating   = 5
)

// Lesson is a bookable class as held in the catalog cache
type Lesson struct {
	ID                 string          `json:"id"`
	Title              string          `json:"title"`
	Description        string          `json:"description"`
	Category           string          `json:"category"`
	Location           string          `json:"location"`
	Image              string          `json:"image,omitempty"`
	Price              decimal.Decimal `json:"price"`
	AvailableInventory int             `json:"availableInventory"`
	Rating             int             `json:"rating"`
}

// RawLesson is a lesson exactly as the catalog service returns it. Any field may be absent.
type RawLesson struct {
	MongoID            json.RawMessage     `json:"_id,omitempty"`
	ID                 json.RawMessage     `json:"id,omitempty"`
	Title              *string             `json:"title,omitempty"`
	Subject            *string             `json:"subject,omitempty"`
	Description        *string             `json:"description,omitempty"`
	Price              decimal.NullDecimal `json:"price"`
	Image              *string             `json:"image,omitempty"`
	AvailableInventory *int                `json:"availableInventory,omitempty"`
	Spaces             *int                `json:"spaces,omitempty"`
	Rating             *int                `json:"rating,omitempty"`
	Category           *string             `json:"category,omitempty"`
	Location           *string             `json:"location,omitempty"`
}

// NormalizeLesson converts a raw record into a Lesson, applying the default table.
// It reports false when the record carries no usable identifier.
func NormalizeLesson(raw RawLesson) (Lesson, bool) {
	id := rawIdentifier(raw.MongoID)
	if id == "" {
		id = rawIdentifier(raw.ID)
	}
	if id == "" {
		return Lesson{}, false
	}

	lesson := Lesson{
		ID:          id,
		Title:       firstString(raw.Title, raw.Subject),
		Description: firstString(raw.Description),
		Category:    firstString(raw.Category),
		Location:    firstString(raw.Location),
		Image:       firstString(raw.Image),
		Price:       decimal.Zero,
		Rating:      DefaultRating,
	}

	if lesson.Category == "" {
		lesson.Category = DefaultCategory
	}
	if lesson.Location == "" {
		lesson.Location = DefaultLocation
	}
	if raw.Price.Valid && raw.Price.Decimal.IsPositive() {
		lesson.Price = raw.Price.Decimal
	}
	if inv := firstInt(raw.AvailableInventory, raw.Spaces); inv > 0 {
		lesson.AvailableInventory = inv
	}
	if raw.Rating != nil {
		lesson.Rating = *raw.Rating
	}

	return lesson, true
}

// rawIdentifier accepts string or numeric identifiers and returns their text form
func rawIdentifier(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}

	return ""
}

func firstString(values ...*string) string {
	for _, v := range values {
		if v != nil && strings.TrimSpace(*v) != "" {
			return strings.TrimSpace(*v)
		}
	}
	return ""
}

func firstInt(values ...*int) int {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return 0
}
