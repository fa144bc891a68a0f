package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLesson(t *testing.T, body string) (Lesson, bool) {
	t.Helper()
	var raw RawLesson
	require.NoError(t, json.Unmarshal([]byte(body), &raw))
	return NormalizeLesson(raw)
}

func TestNormalizeLesson(t *testing.T) {
	t.Run("full record", func(t *testing.T) {
		lesson, ok := decodeLesson(t, `{
			"_id": "65a1", "title": " Algebra ", "description": "Equations", "price": 45.5,
			"availableInventory": 4, "rating": 3, "category": "Maths", "location": "London", "image": "a.png"
		}`)
		require.True(t, ok)
		assert.Equal(t, "65a1", lesson.ID)
		assert.Equal(t, "Algebra", lesson.Title)
		assert.Equal(t, "Maths", lesson.Category)
		assert.Equal(t, "London", lesson.Location)
		assert.Equal(t, "45.50", lesson.Price.StringFixed(2))
		assert.Equal(t, 4, lesson.AvailableInventory)
		assert.Equal(t, 3, lesson.Rating)
	})

	t.Run("defaults for missing fields", func(t *testing.T) {
		lesson, ok := decodeLesson(t, `{"id": 7}`)
		require.True(t, ok)
		assert.Equal(t, "7", lesson.ID)
		assert.Equal(t, DefaultCategory, lesson.Category)
		assert.Equal(t, DefaultLocation, lesson.Location)
		assert.Equal(t, DefaultRating, lesson.Rating)
		assert.True(t, lesson.Price.IsZero())
		assert.Zero(t, lesson.AvailableInventory)
	})

	t.Run("subject and spaces fallbacks", func(t *testing.T) {
		lesson, ok := decodeLesson(t, `{"_id": "x", "subject": "Music", "spaces": 5, "location": "  "}`)
		require.True(t, ok)
		assert.Equal(t, "Music", lesson.Title)
		assert.Equal(t, 5, lesson.AvailableInventory)
		assert.Equal(t, DefaultLocation, lesson.Location)
	})

	t.Run("mongo id wins over id", func(t *testing.T) {
		lesson, _ := decodeLesson(t, `{"_id": "mongo", "id": "plain"}`)
		assert.Equal(t, "mongo", lesson.ID)
	})

	t.Run("negative values are clamped", func(t *testing.T) {
		lesson, _ := decodeLesson(t, `{"id": "n", "price": -3, "availableInventory": -2}`)
		assert.True(t, lesson.Price.IsZero())
		assert.Zero(t, lesson.AvailableInventory)
	})

	t.Run("missing id", func(t *testing.T) {
		for _, body := range []string{`{"title": "Orphan"}`, `{"_id": null, "id": ""}`} {
			_, ok := decodeLesson(t, body)
			assert.False(t, ok, body)
		}
	})
}
