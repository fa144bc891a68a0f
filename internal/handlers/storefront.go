package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"online-classes-storefront/internal/middleware"
	"online-classes-storefront/internal/models"
	"online-classes-storefront/internal/services"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
)

// StorefrontHandler serves the class booking widget's JSON API
type StorefrontHandler struct {
	checkoutMiddleware []func(http.Handler) http.Handler
}

// NewStorefrontHandler creates a new storefront handler; checkoutMiddleware
// wraps only the order submission endpoint.
func NewStorefrontHandler(checkoutMiddleware ...func(http.Handler) http.Handler) *StorefrontHandler {
	return &StorefrontHandler{checkoutMiddleware: checkoutMiddleware}
}

// Routes mounts the storefront endpoints; the session middleware must run first
func (h *StorefrontHandler) Routes(r chi.Router) {
	r.Get("/classes", h.ListClasses)
	r.Post("/classes/refresh", h.RefreshClasses)
	r.Get("/cart", h.ViewCart)
	r.Delete("/cart", h.ClearCart)
	r.Post("/cart/{id}", h.AddToCart)
	r.Delete("/cart/{id}", h.RemoveFromCart)
	r.With(h.checkoutMiddleware...).Post("/checkout", h.Checkout)
	r.Get("/orders/last", h.LastOrder)
}

type lessonResponse struct {
	ID                 string `json:"id"`
	Title              string `json:"title"`
	Description        string `json:"description,omitempty"`
	Category           string `json:"category"`
	Location           string `json:"location"`
	Image              string `json:"image,omitempty"`
	Price              string `json:"price"`
	AvailableInventory int    `json:"availableInventory"`
	Rating             int    `json:"rating"`
}

type listedLessonResponse struct {
	lessonResponse
	SpacesLeft int  `json:"spacesLeft"`
	CanAdd     bool `json:"canAdd"`
}

type classesResponse struct {
	Classes []listedLessonResponse `json:"classes"`
	Query   string                 `json:"query"`
	Sort    string                 `json:"sort"`
	Order   string                 `json:"order"`
}

type cartItemResponse struct {
	Lesson   lessonResponse `json:"lesson"`
	Quantity int            `json:"quantity"`
	Subtotal string         `json:"subtotal"`
}

type cartResponse struct {
	Items       []cartItemResponse `json:"items"`
	ItemCount   int                `json:"itemCount"`
	Total       string             `json:"total"`
	Unavailable []string           `json:"unavailable,omitempty"`
}

type checkoutRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
}

type checkoutResponse struct {
	Message string              `json:"message"`
	Order   *models.OrderResult `json:"order"`
}

// ListClasses returns the filtered, sorted catalog: GET /classes?q=&sort=&order=
func (h *StorefrontHandler) ListClasses(w http.ResponseWriter, r *http.Request) {
	storefront, ok := h.storefront(w, r)
	if !ok {
		return
	}

	query := r.URL.Query().Get("q")
	sortParam := r.URL.Query().Get("sort")
	key, err := services.ParseSortKey(sortParam)
	if err != nil {
		// An unrecognized key leaves the catalog in its natural order
		key = services.SortKey(strings.ToLower(strings.TrimSpace(sortParam)))
	}
	ascending, err := services.ParseSortOrder(r.URL.Query().Get("order"))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, middleware.ErrorResponse{Error: err.Error(), Code: "invalid_sort_order"})
		return
	}

	listing := storefront.Classes(query, key, ascending)
	resp := classesResponse{
		Classes: make([]listedLessonResponse, 0, len(listing)),
		Query:   query,
		Sort:    string(key),
		Order:   orderName(ascending),
	}
	for _, l := range listing {
		resp.Classes = append(resp.Classes, listedLessonResponse{
			lessonResponse: toLessonResponse(l.Lesson),
			SpacesLeft:     l.SpacesLeft,
			CanAdd:         l.CanAdd,
		})
	}

	h.respond(w, r, http.StatusOK, resp)
}

// RefreshClasses reloads the catalog from the classes service
func (h *StorefrontHandler) RefreshClasses(w http.ResponseWriter, r *http.Request) {
	storefront, ok := h.storefront(w, r)
	if !ok {
		return
	}

	if err := storefront.Catalog.Refresh(r.Context()); err != nil {
		h.handleError(w, r, err)
		return
	}

	h.ListClasses(w, r)
}

// ViewCart returns the aggregated cart and its total
func (h *StorefrontHandler) ViewCart(w http.ResponseWriter, r *http.Request) {
	storefront, ok := h.storefront(w, r)
	if !ok {
		return
	}
	h.respond(w, r, http.StatusOK, toCartResponse(storefront.CartSummary()))
}

// AddToCart books one more seat of the class. Capacity is checked at checkout.
func (h *StorefrontHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	storefront, ok := h.storefront(w, r)
	if !ok {
		return
	}

	if err := storefront.AddToCart(chi.URLParam(r, "id")); err != nil {
		h.handleError(w, r, err)
		return
	}

	h.respond(w, r, http.StatusOK, toCartResponse(storefront.CartSummary()))
}

// RemoveFromCart removes one seat of the class, or every seat with ?all=true
func (h *StorefrontHandler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	storefront, ok := h.storefront(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	all := false
	if v := r.URL.Query().Get("all"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrorResponse{Error: "all must be a boolean", Code: "invalid_parameter"})
			return
		}
		all = parsed
	}

	var err error
	if all {
		err = storefront.RemoveAllFromCart(id)
	} else {
		err = storefront.RemoveFromCart(id)
	}
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.respond(w, r, http.StatusOK, toCartResponse(storefront.CartSummary()))
}

// ClearCart empties the cart
func (h *StorefrontHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	storefront, ok := h.storefront(w, r)
	if !ok {
		return
	}

	if err := storefront.ClearCart(); err != nil {
		h.handleError(w, r, err)
		return
	}

	h.respond(w, r, http.StatusOK, toCartResponse(storefront.CartSummary()))
}

// Checkout validates the form and submits the cart as one order
func (h *StorefrontHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	storefront, ok := h.storefront(w, r)
	if !ok {
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, middleware.ErrorResponse{Error: "invalid request body", Code: "invalid_body"})
		return
	}

	customer := models.CustomerInfo{FirstName: req.FirstName, LastName: req.LastName, Phone: req.Phone}
	result, err := storefront.PlaceOrder(r.Context(), customer)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	log.WithFields(log.Fields{
		"order_id":   result.ID,
		"request_id": chimw.GetReqID(r.Context()),
	}).Info("order placed")

	h.respond(w, r, http.StatusCreated, checkoutResponse{
		Message: fmt.Sprintf("Order placed by %s!", customer.FullName()),
		Order:   result,
	})
}

// LastOrder returns the session's most recent successful order
func (h *StorefrontHandler) LastOrder(w http.ResponseWriter, r *http.Request) {
	storefront, ok := h.storefront(w, r)
	if !ok {
		return
	}

	order, found := storefront.LastOrder()
	if !found {
		middleware.WriteError(w, http.StatusNotFound, middleware.ErrorResponse{Error: "no order has been placed yet", Code: "no_order"})
		return
	}

	h.respond(w, r, http.StatusOK, order)
}

// Health reports liveness
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *StorefrontHandler) storefront(w http.ResponseWriter, r *http.Request) (*services.Storefront, bool) {
	storefront := middleware.GetStorefrontFromContext(r.Context())
	if storefront == nil {
		log.WithField("path", r.URL.Path).Error("storefront session missing from request context")
		middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrorResponse{Error: "session unavailable", Code: "session_error"})
		return nil, false
	}
	return storefront, true
}

func (h *StorefrontHandler) respond(w http.ResponseWriter, r *http.Request, status int, data any) {
	if err := writeJSON(w, status, data); err != nil {
		log.WithError(err).WithField("path", r.URL.Path).Error("failed to write JSON response")
	}
}

// handleError maps the error taxonomy onto HTTP statuses
func (h *StorefrontHandler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := errorResponse(err)

	entry := log.WithError(err).WithFields(log.Fields{
		"path":       r.URL.Path,
		"status":     status,
		"request_id": chimw.GetReqID(r.Context()),
	})
	if status >= http.StatusInternalServerError {
		entry.Warn("storefront request failed")
	} else {
		entry.Debug("storefront request rejected")
	}

	middleware.WriteError(w, status, body)
}

func errorResponse(err error) (int, middleware.ErrorResponse) {
	var inventoryErr *models.InsufficientInventoryError

	switch {
	case errors.Is(err, models.ErrEmptyCart):
		return http.StatusBadRequest, middleware.ErrorResponse{Error: "Your cart is empty!", Code: "empty_cart"}
	case errors.Is(err, models.ErrMissingName):
		return http.StatusBadRequest, middleware.ErrorResponse{Error: "Please enter your name!", Code: "missing_name"}
	case errors.Is(err, models.ErrInvalidPhone):
		return http.StatusBadRequest, middleware.ErrorResponse{Error: err.Error(), Code: "invalid_phone"}
	case errors.As(err, &inventoryErr):
		return http.StatusConflict, middleware.ErrorResponse{Error: "Some classes no longer have enough spaces", Code: "insufficient_inventory", Details: inventoryErr.Conflicts}
	case errors.Is(err, models.ErrSubmissionInProgress):
		return http.StatusConflict, middleware.ErrorResponse{Error: err.Error(), Code: "submission_in_progress"}
	case errors.Is(err, models.ErrOrderRejected):
		// The order service's message is shown verbatim
		return http.StatusUnprocessableEntity, middleware.ErrorResponse{Error: err.Error(), Code: "order_rejected"}
	case errors.Is(err, models.ErrOrderTransport):
		return http.StatusBadGateway, middleware.ErrorResponse{Error: models.GenericOrderFailure, Code: "order_transport_failure"}
	case errors.Is(err, models.ErrCatalogUnavailable):
		return http.StatusServiceUnavailable, middleware.ErrorResponse{Error: "Classes are unavailable right now, please try again", Code: "catalog_unavailable"}
	default:
		return http.StatusInternalServerError, middleware.ErrorResponse{Error: "Something went wrong. Please try again.", Code: "internal_error"}
	}
}

func toLessonResponse(l models.Lesson) lessonResponse {
	return lessonResponse{
		ID:                 l.ID,
		Title:              l.Title,
		Description:        l.Description,
		Category:           l.Category,
		Location:           l.Location,
		Image:              l.Image,
		Price:              l.Price.StringFixed(2),
		AvailableInventory: l.AvailableInventory,
		Rating:             l.Rating,
	}
}

func toCartResponse(summary services.CartSummary) cartResponse {
	resp := cartResponse{
		Items:       make([]cartItemResponse, 0, len(summary.Items)),
		ItemCount:   summary.ItemCount,
		Total:       summary.Total.StringFixed(2),
		Unavailable: summary.Unavailable,
	}
	for _, item := range summary.Items {
		resp.Items = append(resp.Items, cartItemResponse{
			Lesson:   toLessonResponse(item.Lesson),
			Quantity: item.Quantity,
			Subtotal: item.Subtotal.StringFixed(2),
		})
	}
	return resp
}

func orderName(ascending bool) string {
	if ascending {
		return "ascending"
	}
	return "descending"
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}
