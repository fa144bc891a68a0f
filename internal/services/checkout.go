package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"online-classes-storefront/internal/models"

	log "github.com/sirupsen/logrus"
)

// CheckoutState is the stage of the current submission attempt
type CheckoutState string

const (
	CheckoutIdle               CheckoutState = "idle"
	CheckoutValidating         CheckoutState = "validating"
	CheckoutRefreshingForCheck CheckoutState = "refreshing_for_check"
	CheckoutCheckingInventory  CheckoutState = "checking_inventory"
	CheckoutRejected           CheckoutState = "rejected"
	CheckoutSubmitting         CheckoutState = "submitting"
	CheckoutSucceeded          CheckoutState = "succeeded"
	CheckoutFailed             CheckoutState = "failed"
)

// CheckoutService sequences refresh, inventory check and order submission for one session
type CheckoutService struct {
	api     ClassesAPI
	catalog CatalogServiceInterface

	// gate serializes the in-flight check of cart mutations with the start of a submission
	gate     sync.Mutex
	inFlight atomic.Bool

	mu        sync.RWMutex
	state     CheckoutState
	lastOrder *models.OrderResult
}

// NewCheckoutService creates a checkout orchestrator
func NewCheckoutService(api ClassesAPI, catalog CatalogServiceInterface) *CheckoutService {
	return &CheckoutService{
		api:     api,
		catalog: catalog,
		state:   CheckoutIdle,
	}
}

// Submit validates the customer and cart against fresh inventory and places the order.
// The cart is cleared only when the order service accepts the order.
func (s *CheckoutService) Submit(ctx context.Context, cart *models.Cart, customer models.CustomerInfo) (*models.OrderResult, error) {
	s.gate.Lock()
	if s.inFlight.Load() {
		s.gate.Unlock()
		return nil, models.ErrSubmissionInProgress
	}
	s.inFlight.Store(true)
	s.gate.Unlock()
	defer func() {
		s.setState(CheckoutIdle)
		s.inFlight.Store(false)
	}()

	s.setState(CheckoutValidating)
	if cart.IsEmpty() {
		return nil, models.ErrEmptyCart
	}
	phone, err := customer.Validate()
	if err != nil {
		return nil, err
	}

	s.setState(CheckoutRefreshingForCheck)
	if err := s.catalog.Refresh(ctx); err != nil {
		s.setState(CheckoutFailed)
		return nil, err
	}

	s.setState(CheckoutCheckingInventory)
	quantities := cart.Quantities()
	if conflicts := s.checkInventory(quantities); len(conflicts) > 0 {
		s.setState(CheckoutRejected)
		log.WithField("conflicts", len(conflicts)).Info("checkout rejected: insufficient capacity")
		s.refreshAfter(ctx, "rejected")
		return nil, &models.InsufficientInventoryError{Conflicts: conflicts}
	}

	s.setState(CheckoutSubmitting)
	req := models.NewOrderRequest(customer.FullName(), phone, quantities)
	result, err := s.api.CreateOrder(ctx, req)
	if err != nil {
		s.setState(CheckoutFailed)
		err = classifyOrderError(err)
		log.WithError(err).Warn("order submission failed")
		s.refreshAfter(ctx, "failed")
		return nil, err
	}

	if result == nil || result.ID == "" {
		s.setState(CheckoutFailed)
		err = fmt.Errorf("%w: order confirmation has no id", models.ErrOrderTransport)
		log.WithError(err).Warn("order submission failed")
		s.refreshAfter(ctx, "failed")
		return nil, err
	}

	s.setState(CheckoutSucceeded)
	s.mu.Lock()
	s.lastOrder = result
	s.mu.Unlock()
	cart.Clear()

	log.WithFields(log.Fields{
		"order_id": result.ID,
		"lessons":  len(req.LessonIDs),
		"spaces":   req.TotalSpaces(),
	}).Info("order placed")

	s.refreshAfter(ctx, "succeeded")
	return result, nil
}

// checkInventory compares requested seats with the freshly refreshed catalog.
// It is a client-side pre-check; the order service makes the final decision.
func (s *CheckoutService) checkInventory(quantities []models.LessonQuantity) []models.InventoryConflict {
	var conflicts []models.InventoryConflict
	for _, q := range quantities {
		lesson, ok := s.catalog.Lookup(q.LessonID)
		if !ok {
			conflicts = append(conflicts, models.InventoryConflict{
				LessonID:  q.LessonID,
				Requested: q.Quantity,
				Reason:    models.ReasonNotFound,
			})
			continue
		}
		if lesson.AvailableInventory < q.Quantity {
			conflicts = append(conflicts, models.InventoryConflict{
				LessonID:  q.LessonID,
				Title:     lesson.Title,
				Requested: q.Quantity,
				Available: lesson.AvailableInventory,
				Reason:    models.ReasonNotEnoughSpaces,
			})
		}
	}
	return conflicts
}

// refreshAfter reloads the catalog so the listing shows current capacity.
// Failures are logged only; the submission outcome is already decided.
func (s *CheckoutService) refreshAfter(ctx context.Context, outcome string) {
	if err := s.catalog.Refresh(ctx); err != nil {
		log.WithError(err).WithField("outcome", outcome).Warn("post-checkout catalog refresh failed")
	}
}

func (s *CheckoutService) setState(state CheckoutState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	log.WithField("state", state).Debug("checkout state")
}

// State returns the stage of the submission in progress, or idle
func (s *CheckoutService) State() CheckoutState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// InFlight reports whether a submission is currently running
func (s *CheckoutService) InFlight() bool {
	return s.inFlight.Load()
}

// WhileIdle runs mutate unless a submission is in flight. A submission cannot
// start while mutate runs, so its cart snapshot always includes the change.
func (s *CheckoutService) WhileIdle(mutate func()) error {
	s.gate.Lock()
	defer s.gate.Unlock()
	if s.inFlight.Load() {
		return models.ErrSubmissionInProgress
	}
	mutate()
	return nil
}

// LastOrder returns the most recent successful order, if any
func (s *CheckoutService) LastOrder() (*models.OrderResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastOrder, s.lastOrder != nil
}

// classifyOrderError maps anything that is not a server rejection to a transport failure
func classifyOrderError(err error) error {
	if errors.Is(err, models.ErrOrderRejected) || errors.Is(err, models.ErrOrderTransport) {
		return err
	}
	return fmt.Errorf("%w: %v", models.ErrOrderTransport, err)
}
