package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// SessionRegistry keeps one Storefront per browser session and expires idle ones
type SessionRegistry struct {
	api         ClassesAPI
	idleTimeout time.Duration

	mutex    sync.Mutex
	sessions map[string]*sessionEntry
	now      func() time.Time
}

type sessionEntry struct {
	storefront *Storefront
	lastSeen   time.Time
}

// NewSessionRegistry creates an empty registry; sessions idle longer than idleTimeout are evicted
func NewSessionRegistry(api ClassesAPI, idleTimeout time.Duration) *SessionRegistry {
	return &SessionRegistry{
		api:         api,
		idleTimeout: idleTimeout,
		sessions:    make(map[string]*sessionEntry),
		now:         time.Now,
	}
}

// Get returns the storefront for id, touching its idle timer
func (r *SessionRegistry) Get(id string) (*Storefront, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	entry, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	entry.lastSeen = r.now()
	return entry.storefront, true
}

// Create starts a new session and performs its initial catalog load.
// A failed load is logged; the session starts with an empty catalog.
func (r *SessionRegistry) Create(ctx context.Context) (string, *Storefront) {
	id := uuid.NewString()
	storefront := NewStorefront(r.api)

	if err := storefront.Load(ctx); err != nil {
		log.WithError(err).WithField("session_id", id).Warn("initial catalog load failed")
	}

	r.mutex.Lock()
	r.sessions[id] = &sessionEntry{storefront: storefront, lastSeen: r.now()}
	r.mutex.Unlock()

	log.WithField("session_id", id).Debug("storefront session created")
	return id, storefront
}

// Delete disposes of a session
func (r *SessionRegistry) Delete(id string) {
	r.mutex.Lock()
	entry, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mutex.Unlock()

	if ok {
		entry.storefront.Close()
	}
}

// Len returns the number of live sessions
func (r *SessionRegistry) Len() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.sessions)
}

// Sweep evicts sessions idle past the timeout, skipping any with a submission in flight
func (r *SessionRegistry) Sweep() int {
	cutoff := r.now().Add(-r.idleTimeout)

	r.mutex.Lock()
	var expired []*Storefront
	for id, entry := range r.sessions {
		if entry.lastSeen.Before(cutoff) && !entry.storefront.Checkout.InFlight() {
			expired = append(expired, entry.storefront)
			delete(r.sessions, id)
		}
	}
	r.mutex.Unlock()

	for _, s := range expired {
		s.Close()
	}
	if len(expired) > 0 {
		log.WithField("sessions", len(expired)).Debug("evicted idle storefront sessions")
	}
	return len(expired)
}

// Run sweeps idle sessions every interval until ctx is done
func (r *SessionRegistry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}
