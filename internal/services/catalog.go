package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"online-classes-storefront/internal/models"

	log "github.com/sirupsen/logrus"
)

// CatalogService holds the last fetched snapshot of classes
type CatalogService struct {
	api ClassesAPI

	mu          sync.RWMutex
	lessons     []models.Lesson
	index       map[string]int
	refreshedAt time.Time
}

// NewCatalogService creates an empty catalog cache backed by api
func NewCatalogService(api ClassesAPI) *CatalogService {
	return &CatalogService{
		api:   api,
		index: make(map[string]int),
	}
}

// Refresh replaces the cache with the service's current class list.
// On failure the previous snapshot is kept.
func (s *CatalogService) Refresh(ctx context.Context) error {
	raw, err := s.api.FetchClasses(ctx)
	if err != nil {
		log.WithError(err).Warn("catalog refresh failed")
		return fmt.Errorf("failed to refresh catalog: %w", asCatalogError(err))
	}

	lessons := make([]models.Lesson, 0, len(raw))
	index := make(map[string]int, len(raw))
	for _, r := range raw {
		lesson, ok := models.NormalizeLesson(r)
		if !ok {
			log.Warn("skipping class without an identifier")
			continue
		}
		if _, dup := index[lesson.ID]; dup {
			log.WithField("lesson_id", lesson.ID).Warn("skipping duplicate class")
			continue
		}
		index[lesson.ID] = len(lessons)
		lessons = append(lessons, lesson)
	}

	s.mu.Lock()
	s.lessons = lessons
	s.index = index
	s.refreshedAt = time.Now()
	s.mu.Unlock()

	log.WithField("classes", len(lessons)).Debug("catalog refreshed")
	return nil
}

// Lookup returns the class with the given ID from the current snapshot
func (s *CatalogService) Lookup(id string) (models.Lesson, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return models.Lesson{}, false
	}
	return s.lessons[i], true
}

// Snapshot returns a copy of the current classes in catalog order
func (s *CatalogService) Snapshot() []models.Lesson {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Lesson, len(s.lessons))
	copy(out, s.lessons)
	return out
}

// RefreshedAt returns when the snapshot was last replaced; zero if never
func (s *CatalogService) RefreshedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshedAt
}

// asCatalogError makes sure every fetch failure classifies as ErrCatalogUnavailable
func asCatalogError(err error) error {
	if errors.Is(err, models.ErrCatalogUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", models.ErrCatalogUnavailable, err)
}
