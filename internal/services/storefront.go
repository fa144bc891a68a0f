package services

import (
	"context"

	"online-classes-storefront/internal/models"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// Storefront is the per-session state of the class booking widget:
// one catalog cache, one cart and one checkout orchestrator.
type Storefront struct {
	Catalog  *CatalogService
	View     *ViewService
	Checkout *CheckoutService
	cart     *models.Cart
}

// ListedLesson is a catalog entry with the capacity left after the cart's own seats
type ListedLesson struct {
	models.Lesson
	SpacesLeft int  `json:"spacesLeft"`
	CanAdd     bool `json:"canAdd"`
}

// CartSummary is the aggregated cart shown next to the checkout form
type CartSummary struct {
	Items       []models.CartItem `json:"items"`
	ItemCount   int               `json:"itemCount"`
	Total       decimal.Decimal   `json:"total"`
	Unavailable []string          `json:"unavailable,omitempty"`
}

// NewStorefront creates a session with an empty cart and an empty catalog
func NewStorefront(api ClassesAPI) *Storefront {
	catalog := NewCatalogService(api)
	return &Storefront{
		Catalog:  catalog,
		View:     NewViewService(catalog),
		Checkout: NewCheckoutService(api, catalog),
		cart:     models.NewCart(),
	}
}

// Load performs the initial catalog fetch for a new session
func (s *Storefront) Load(ctx context.Context) error {
	return s.Catalog.Refresh(ctx)
}

// Cart returns the session cart
func (s *Storefront) Cart() *models.Cart {
	return s.cart
}

// Classes returns the filtered, sorted listing with capacity hints
func (s *Storefront) Classes(query string, key SortKey, ascending bool) []ListedLesson {
	var out []ListedLesson
	for lesson := range s.View.FilteredCatalog(query, key, ascending) {
		left := s.View.SpacesLeft(lesson, s.cart)
		out = append(out, ListedLesson{Lesson: lesson, SpacesLeft: left, CanAdd: left > 0})
	}
	return out
}

// AddToCart books one more seat of id
func (s *Storefront) AddToCart(id string) error {
	return s.Checkout.WhileIdle(func() { s.cart.Add(id) })
}

// RemoveFromCart removes one seat of id
func (s *Storefront) RemoveFromCart(id string) error {
	return s.Checkout.WhileIdle(func() { s.cart.RemoveOne(id) })
}

// RemoveAllFromCart removes every seat of id
func (s *Storefront) RemoveAllFromCart(id string) error {
	return s.Checkout.WhileIdle(func() { s.cart.RemoveAll(id) })
}

// ClearCart empties the cart
func (s *Storefront) ClearCart() error {
	return s.Checkout.WhileIdle(s.cart.Clear)
}

// CartSummary aggregates the cart against the current catalog
func (s *Storefront) CartSummary() CartSummary {
	items := s.View.CartLineItems(s.cart)
	if items == nil {
		items = []models.CartItem{}
	}
	return CartSummary{
		Items:       items,
		ItemCount:   s.cart.Len(),
		Total:       s.View.CartTotal(s.cart),
		Unavailable: s.Missing(),
	}
}

// PlaceOrder submits the session cart for customer
func (s *Storefront) PlaceOrder(ctx context.Context, customer models.CustomerInfo) (*models.OrderResult, error) {
	return s.Checkout.Submit(ctx, s.cart, customer)
}

// LastOrder returns the most recent successful order
func (s *Storefront) LastOrder() (*models.OrderResult, bool) {
	return s.Checkout.LastOrder()
}

// Close releases the session state
func (s *Storefront) Close() {
	if s.Checkout.InFlight() {
		log.Warn("closing storefront session with a submission in flight")
	}
	s.cart.Clear()
}

// Missing returns the cart IDs that no longer resolve in the catalog
func (s *Storefront) Missing() []string {
	var missing []string
	for _, q := range s.cart.Quantities() {
		if _, ok := s.Catalog.Lookup(q.LessonID); !ok {
			missing = append(missing, q.LessonID)
		}
	}
	return missing
}
