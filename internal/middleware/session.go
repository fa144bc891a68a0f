package middleware

import (
	"context"
	"net/http"
	"time"

	"online-classes-storefront/internal/services"

	"github.com/gorilla/sessions"
	log "github.com/sirupsen/logrus"
)

const (
	sessionName  = "storefront"
	sessionIDKey = "storefront_id"
)

type contextKey string

// StorefrontContextKey is the context key holding the session's *services.Storefront
const StorefrontContextKey contextKey = "storefront"

// NewSessionStore creates the cookie store that carries the storefront session ID
func NewSessionStore(secret string, idleTimeout time.Duration, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(idleTimeout.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// SessionMiddleware binds each browser session to its storefront in the registry
type SessionMiddleware struct {
	store    sessions.Store
	registry *services.SessionRegistry
}

// NewSessionMiddleware creates a new session middleware
func NewSessionMiddleware(store sessions.Store, registry *services.SessionRegistry) *SessionMiddleware {
	return &SessionMiddleware{
		store:    store,
		registry: registry,
	}
}

// LoadStorefront resolves the session cookie to a storefront, creating a new
// session (with its initial catalog load) when the cookie is missing, invalid or expired.
func (m *SessionMiddleware) LoadStorefront(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := m.store.Get(r, sessionName)
		if err != nil {
			log.WithError(err).Debug("discarding unreadable storefront session cookie")
		}

		id, _ := session.Values[sessionIDKey].(string)
		storefront, ok := m.registry.Get(id)
		if !ok {
			id, storefront = m.registry.Create(r.Context())
			session.Values[sessionIDKey] = id
		}

		// Refresh the cookie so its lifetime tracks the idle timeout
		if err := session.Save(r, w); err != nil {
			log.WithError(err).Error("failed to save storefront session")
			WriteError(w, http.StatusInternalServerError, ErrorResponse{Error: "session error", Code: "session_error"})
			return
		}

		ctx := withStorefront(r.Context(), storefront)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetStorefrontFromContext retrieves the storefront from request context
func GetStorefrontFromContext(ctx context.Context) *services.Storefront {
	if storefront, ok := ctx.Value(StorefrontContextKey).(*services.Storefront); ok {
		return storefront
	}
	return nil
}

func withStorefront(ctx context.Context, storefront *services.Storefront) context.Context {
	return context.WithValue(ctx, StorefrontContextKey, storefront)
}
