package features

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"online-classes-storefront/internal/models"
	"online-classes-storefront/internal/services"

	"github.com/cucumber/godog"
)

// fakeClassesService is an in-process classes/orders backend that decrements
// capacity on every accepted order
type fakeClassesService struct {
	mu         sync.Mutex
	lessons    []map[string]any
	down       bool
	rejectCode int
	rejectMsg  string
	fetches    int
	orders     []models.OrderRequest
}

func (f *fakeClassesService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/api/classes":
		f.fetches++
		if f.down {
			http.Error(w, "service unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(f.lessons)

	case r.Method == http.MethodPost && r.URL.Path == "/api/orders":
		var req models.OrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		f.orders = append(f.orders, req)
		if f.rejectCode != 0 {
			w.WriteHeader(f.rejectCode)
			json.NewEncoder(w).Encode(map[string]string{"error": f.rejectMsg})
			return
		}
		for i, id := range req.LessonIDs {
			for _, l := range f.lessons {
				if l["_id"] == id {
					l["spaces"] = l["spaces"].(int) - req.Spaces[i]
				}
			}
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"_id": fmt.Sprintf("order-%d", len(f.orders)), "name": req.Name})

	default:
		http.NotFound(w, r)
	}
}

type checkoutTestContext struct {
	service    *fakeClassesService
	server     *httptest.Server
	storefront *services.Storefront
	result     *models.OrderResult
	err        error
	listing    []services.ListedLesson
}

func (c *checkoutTestContext) reset() {
	if c.server != nil {
		c.server.Close()
	}
	c.service = &fakeClassesService{}
	c.server = httptest.NewServer(c.service)
	c.storefront = nil
	c.result = nil
	c.err = nil
	c.listing = nil
}

func (c *checkoutTestContext) theClassesServiceOffers(table *godog.Table) error {
	if len(table.Rows) < 2 {
		return errors.New("expected a header row and at least one class")
	}
	header := table.Rows[0].Cells
	for _, row := range table.Rows[1:] {
		lesson := map[string]any{}
		for i, cell := range row.Cells {
			switch header[i].Value {
			case "id":
				lesson["_id"] = cell.Value
			case "spaces":
				n, err := strconv.Atoi(cell.Value)
				if err != nil {
					return err
				}
				lesson["spaces"] = n
			case "price":
				lesson["price"] = json.Number(cell.Value)
			case "title":
				lesson["subject"] = cell.Value
			default:
				lesson[header[i].Value] = cell.Value
			}
		}
		c.service.lessons = append(c.service.lessons, lesson)
	}
	return nil
}

func (c *checkoutTestContext) aNewStorefrontSession() error {
	api := services.NewClassesClient(services.ClassesClientConfig{BaseURL: c.server.URL, Timeout: 2 * time.Second})
	c.storefront = services.NewStorefront(api)
	return c.storefront.Load(context.Background())
}

func (c *checkoutTestContext) theCartContains(ids string) error {
	for _, id := range splitList(ids) {
		if err := c.storefront.AddToCart(id); err != nil {
			return err
		}
	}
	return nil
}

func (c *checkoutTestContext) theClassesServiceIsDown() error {
	c.service.mu.Lock()
	defer c.service.mu.Unlock()
	c.service.down = true
	return nil
}

func (c *checkoutTestContext) theOrderServiceRejectsOrders(status int, message string) error {
	c.service.mu.Lock()
	defer c.service.mu.Unlock()
	c.service.rejectCode = status
	c.service.rejectMsg = message
	return nil
}

func (c *checkoutTestContext) iCheckOutAs(first, last, phone string) error {
	c.result, c.err = c.storefront.PlaceOrder(context.Background(), models.CustomerInfo{
		FirstName: first,
		LastName:  last,
		Phone:     phone,
	})
	return nil
}

func (c *checkoutTestContext) iListClasses(query, sortKey, order string) error {
	key, err := services.ParseSortKey(sortKey)
	if err != nil {
		return err
	}
	ascending, err := services.ParseSortOrder(order)
	if err != nil {
		return err
	}
	c.listing = c.storefront.Classes(query, key, ascending)
	return nil
}

var errorsByName = map[string]error{
	"EmptyCart":             models.ErrEmptyCart,
	"MissingName":           models.ErrMissingName,
	"InvalidPhone":          models.ErrInvalidPhone,
	"CatalogUnavailable":    models.ErrCatalogUnavailable,
	"InsufficientInventory": models.ErrInsufficientInventory,
	"OrderRejected":         models.ErrOrderRejected,
	"OrderTransportFailure": models.ErrOrderTransport,
}

func (c *checkoutTestContext) checkoutFailsWith(name string) error {
	target, ok := errorsByName[name]
	if !ok {
		return fmt.Errorf("unknown error kind %q", name)
	}
	if c.err == nil {
		return fmt.Errorf("expected %s but checkout succeeded", name)
	}
	if !errors.Is(c.err, target) {
		return fmt.Errorf("expected %s, got %v", name, c.err)
	}
	return nil
}

func (c *checkoutTestContext) theConflictShows(id string, requested, available int) error {
	var inventoryErr *models.InsufficientInventoryError
	if !errors.As(c.err, &inventoryErr) {
		return fmt.Errorf("expected an inventory error, got %v", c.err)
	}
	for _, conflict := range inventoryErr.Conflicts {
		if conflict.LessonID == id {
			if conflict.Requested != requested || conflict.Available != available {
				return fmt.Errorf("conflict for %s: requested %d available %d", id, conflict.Requested, conflict.Available)
			}
			return nil
		}
	}
	return fmt.Errorf("no conflict reported for %s", id)
}

func (c *checkoutTestContext) noOrderWasSent() error {
	c.service.mu.Lock()
	defer c.service.mu.Unlock()
	if len(c.service.orders) != 0 {
		return fmt.Errorf("expected no order, the service received %d", len(c.service.orders))
	}
	return nil
}

func (c *checkoutTestContext) theCartHoldsSeats(n int) error {
	if got := c.storefront.Cart().Len(); got != n {
		return fmt.Errorf("expected %d seats in the cart, got %d", n, got)
	}
	return nil
}

func (c *checkoutTestContext) theCatalogWasFetchedTimes(n int) error {
	c.service.mu.Lock()
	defer c.service.mu.Unlock()
	if c.service.fetches != n {
		return fmt.Errorf("expected %d catalog fetches, got %d", n, c.service.fetches)
	}
	return nil
}

func (c *checkoutTestContext) theOrderSucceeds() error {
	if c.err != nil {
		return fmt.Errorf("expected success, got %v", c.err)
	}
	if c.result == nil || c.result.ID == "" {
		return errors.New("expected an order confirmation with an id")
	}
	return nil
}

func (c *checkoutTestContext) lastOrder() (models.OrderRequest, error) {
	c.service.mu.Lock()
	defer c.service.mu.Unlock()
	if len(c.service.orders) == 0 {
		return models.OrderRequest{}, errors.New("no order was received")
	}
	return c.service.orders[len(c.service.orders)-1], nil
}

func (c *checkoutTestContext) theOrderServiceReceivedLessons(ids, spaces string) error {
	order, err := c.lastOrder()
	if err != nil {
		return err
	}
	if !slices.Equal(order.LessonIDs, splitList(ids)) {
		return fmt.Errorf("expected lessons %s, got %v", ids, order.LessonIDs)
	}
	var wantSpaces []int
	for _, s := range splitList(spaces) {
		n, err := strconv.Atoi(s)
		if err != nil {
			return err
		}
		wantSpaces = append(wantSpaces, n)
	}
	if !slices.Equal(order.Spaces, wantSpaces) {
		return fmt.Errorf("expected spaces %s, got %v", spaces, order.Spaces)
	}
	return nil
}

func (c *checkoutTestContext) theOrderServiceReceivedNameAndPhone(name, phone string) error {
	order, err := c.lastOrder()
	if err != nil {
		return err
	}
	if order.Name != name || order.Phone != phone {
		return fmt.Errorf("expected %q / %q, got %q / %q", name, phone, order.Name, order.Phone)
	}
	return nil
}

func (c *checkoutTestContext) classShowsAvailable(id string, n int) error {
	lesson, ok := c.storefront.Catalog.Lookup(id)
	if !ok {
		return fmt.Errorf("class %s is not in the catalog", id)
	}
	if lesson.AvailableInventory != n {
		return fmt.Errorf("expected %d available for %s, got %d", n, id, lesson.AvailableInventory)
	}
	return nil
}

func (c *checkoutTestContext) theErrorMessageIs(message string) error {
	if c.err == nil {
		return errors.New("expected an error")
	}
	if c.err.Error() != message {
		return fmt.Errorf("expected message %q, got %q", message, c.err.Error())
	}
	return nil
}

func (c *checkoutTestContext) theClassesAreListedInOrder(ids string) error {
	var got []string
	for _, l := range c.listing {
		got = append(got, l.ID)
	}
	if !slices.Equal(got, splitList(ids)) {
		return fmt.Errorf("expected order %s, got %v", ids, got)
	}
	return nil
}

func (c *checkoutTestContext) theCartTotalIs(total string) error {
	if got := c.storefront.CartSummary().Total.StringFixed(2); got != total {
		return fmt.Errorf("expected total %s, got %s", total, got)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &checkoutTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})
	ctx.After(func(ctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if tc.server != nil {
			tc.server.Close()
			tc.server = nil
		}
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^the classes service offers:$`, tc.theClassesServiceOffers)
	ctx.Step(`^a new storefront session$`, tc.aNewStorefrontSession)
	ctx.Step(`^the cart contains "([^"]*)"$`, tc.theCartContains)
	ctx.Step(`^the classes service is down$`, tc.theClassesServiceIsDown)
	ctx.Step(`^the order service rejects orders with status (\d+) and message "([^"]*)"$`, tc.theOrderServiceRejectsOrders)

	// When steps
	ctx.Step(`^I check out as "([^"]*)" "([^"]*)" with phone "([^"]*)"$`, tc.iCheckOutAs)
	ctx.Step(`^I list classes matching "([^"]*)" sorted by "([^"]*)" "([^"]*)"$`, tc.iListClasses)

	// Then steps
	ctx.Step(`^checkout fails with "([^"]*)"$`, tc.checkoutFailsWith)
	ctx.Step(`^the conflict for "([^"]*)" shows (\d+) requested and (\d+) available$`, tc.theConflictShows)
	ctx.Step(`^no order was sent$`, tc.noOrderWasSent)
	ctx.Step(`^the cart holds (\d+) seats$`, tc.theCartHoldsSeats)
	ctx.Step(`^the catalog was fetched (\d+) times$`, tc.theCatalogWasFetchedTimes)
	ctx.Step(`^the order succeeds$`, tc.theOrderSucceeds)
	ctx.Step(`^the order service received lessons "([^"]*)" with spaces "([^"]*)"$`, tc.theOrderServiceReceivedLessons)
	ctx.Step(`^the order service received name "([^"]*)" and phone "([^"]*)"$`, tc.theOrderServiceReceivedNameAndPhone)
	ctx.Step(`^class "([^"]*)" shows (\d+) available$`, tc.classShowsAvailable)
	ctx.Step(`^the error message is "([^"]*)"$`, tc.theErrorMessageIs)
	ctx.Step(`^the classes are listed in order "([^"]*)"$`, tc.theClassesAreListedInOrder)
	ctx.Step(`^the cart total is "([^"]*)"$`, tc.theCartTotalIs)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"checkout.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
