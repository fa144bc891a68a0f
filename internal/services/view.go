package services

import (
	"cmp"
	"fmt"
	"iter"
	"slices"
	"strings"

	"online-classes-storefront/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortKey selects the field the catalog listing is ordered by
type SortKey string

const (
	SortBySubject      SortKey = "subject"
	SortByLocation     SortKey = "location"
	SortByAvailability SortKey = "availability"
	SortByPrice        SortKey = "price"
)

// ParseSortKey parses a sort key from user input
func ParseSortKey(s string) (SortKey, error) {
	switch key := SortKey(strings.ToLower(strings.TrimSpace(s))); key {
	case SortBySubject, SortByLocation, SortByAvailability, SortByPrice:
		return key, nil
	case "":
		return SortBySubject, nil
	default:
		return "", fmt.Errorf("unknown sort key %q", s)
	}
}

// ParseSortOrder reports whether the order string means ascending
func ParseSortOrder(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "asc", "ascending":
		return true, nil
	case "desc", "descending":
		return false, nil
	default:
		return false, fmt.Errorf("unknown sort order %q", s)
	}
}

// ViewService derives listings and cart line items from the catalog cache
type ViewService struct {
	catalog CatalogServiceInterface
	tag     language.Tag
}

// NewViewService creates a view over catalog
func NewViewService(catalog CatalogServiceInterface) *ViewService {
	return &ViewService{
		catalog: catalog,
		tag:     language.English,
	}
}

// FilteredCatalog yields the classes matching query, stably sorted by key.
// The sequence is computed when ranged over and can be ranged over again.
func (v *ViewService) FilteredCatalog(query string, key SortKey, ascending bool) iter.Seq[models.Lesson] {
	return func(yield func(models.Lesson) bool) {
		lessons := v.catalog.Snapshot()

		needle := strings.ToLower(strings.TrimSpace(query))
		if needle != "" {
			lessons = slices.DeleteFunc(lessons, func(l models.Lesson) bool {
				return !matchesQuery(l, needle)
			})
		}

		if compare := v.comparator(key); compare != nil {
			if !ascending {
				asc := compare
				compare = func(a, b models.Lesson) int { return asc(b, a) }
			}
			slices.SortStableFunc(lessons, compare)
		}

		for _, l := range lessons {
			if !yield(l) {
				return
			}
		}
	}
}

func matchesQuery(l models.Lesson, needle string) bool {
	return strings.Contains(strings.ToLower(l.Title), needle) ||
		strings.Contains(strings.ToLower(l.Category), needle) ||
		strings.Contains(strings.ToLower(l.Location), needle)
}

// comparator returns the ascending comparison for key, or nil to keep catalog order
func (v *ViewService) comparator(key SortKey) func(a, b models.Lesson) int {
	switch key {
	case SortBySubject:
		c := collate.New(v.tag)
		return func(a, b models.Lesson) int { return c.CompareString(a.Category, b.Category) }
	case SortByLocation:
		c := collate.New(v.tag)
		return func(a, b models.Lesson) int { return c.CompareString(a.Location, b.Location) }
	case SortByAvailability:
		return func(a, b models.Lesson) int { return cmp.Compare(a.AvailableInventory, b.AvailableInventory) }
	case SortByPrice:
		return func(a, b models.Lesson) int { return a.Price.Cmp(b.Price) }
	default:
		return nil
	}
}

// CartLineItems groups the cart by class. IDs no longer in the catalog are skipped.
func (v *ViewService) CartLineItems(cart *models.Cart) []models.CartItem {
	var items []models.CartItem
	for _, q := range cart.Quantities() {
		lesson, ok := v.catalog.Lookup(q.LessonID)
		if !ok {
			continue
		}
		items = append(items, models.CartItem{
			Lesson:   lesson,
			Quantity: q.Quantity,
			Subtotal: lesson.Price.Mul(decimal.NewFromInt(int64(q.Quantity))).Round(2),
		})
	}
	return items
}

// CartTotal sums price times quantity over resolvable classes and rounds once at the end
func (v *ViewService) CartTotal(cart *models.Cart) decimal.Decimal {
	total := decimal.Zero
	for _, q := range cart.Quantities() {
		lesson, ok := v.catalog.Lookup(q.LessonID)
		if !ok {
			continue
		}
		total = total.Add(lesson.Price.Mul(decimal.NewFromInt(int64(q.Quantity))))
	}
	return total.Round(2)
}

// SpacesLeft returns the class's capacity minus the seats already in the cart, floored at zero
func (v *ViewService) SpacesLeft(lesson models.Lesson, cart *models.Cart) int {
	return max(lesson.AvailableInventory-cart.CountOf(lesson.ID), 0)
}
