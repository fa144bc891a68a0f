package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"online-classes-storefront/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// staticLesson is one class entry in the YAML catalog file
type staticLesson struct {
	ID                 string `yaml:"id"`
	Title              string `yaml:"title"`
	Description        string `yaml:"description"`
	Price              string `yaml:"price"`
	Image              string `yaml:"image"`
	AvailableInventory int    `yaml:"availableInventory"`
	Rating             *int   `yaml:"rating"`
	Category           string `yaml:"category"`
	Location           string `yaml:"location"`
}

type staticCatalogFile struct {
	Classes []staticLesson `yaml:"classes"`
}

// StaticClassesAPI serves the catalog from a YAML file and accepts orders in memory.
// It is used for local development when the remote classes service is not configured.
type StaticClassesAPI struct {
	mutex   sync.Mutex
	lessons []staticLesson
	orders  []models.OrderResult
}

// LoadStaticClassesAPI reads a YAML catalog file
func LoadStaticClassesAPI(path string) (*StaticClassesAPI, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog file: %w", err)
	}
	defer f.Close()

	return NewStaticClassesAPI(f)
}

// NewStaticClassesAPI parses a YAML catalog from r
func NewStaticClassesAPI(r io.Reader) (*StaticClassesAPI, error) {
	var file staticCatalogFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to decode catalog file: %w", err)
	}

	for _, l := range file.Classes {
		if l.ID == "" {
			return nil, fmt.Errorf("catalog entry %q has no id", l.Title)
		}
		if _, err := decimal.NewFromString(l.Price); l.Price != "" && err != nil {
			return nil, fmt.Errorf("catalog entry %s has invalid price %q: %w", l.ID, l.Price, err)
		}
	}

	log.WithField("classes", len(file.Classes)).Info("Classes service: using static catalog")
	return &StaticClassesAPI{lessons: file.Classes}, nil
}

// FetchClasses returns the catalog with its current inventory
func (s *StaticClassesAPI) FetchClasses(ctx context.Context) ([]models.RawLesson, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrCatalogUnavailable, err)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	out := make([]models.RawLesson, 0, len(s.lessons))
	for _, l := range s.lessons {
		out = append(out, l.raw())
	}
	return out, nil
}

// CreateOrder books the requested seats if every class has enough capacity, all or nothing
func (s *StaticClassesAPI) CreateOrder(ctx context.Context, req *models.OrderRequest) (*models.OrderResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrOrderTransport, err)
	}
	if len(req.LessonIDs) != len(req.Spaces) || len(req.LessonIDs) == 0 {
		return nil, &models.OrderRejectedError{StatusCode: 400, Message: "lessonIDs and spaces must be non-empty and of equal length"}
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	positions := make([]int, len(req.LessonIDs))
	for i, id := range req.LessonIDs {
		pos := s.find(id)
		if pos < 0 {
			return nil, &models.OrderRejectedError{StatusCode: 404, Message: fmt.Sprintf("lesson %s not found", id)}
		}
		if req.Spaces[i] <= 0 || s.lessons[pos].AvailableInventory < req.Spaces[i] {
			return nil, &models.OrderRejectedError{
				StatusCode: 409,
				Message:    fmt.Sprintf("not enough spaces for %s", s.lessons[pos].Title),
			}
		}
		positions[i] = pos
	}

	for i, pos := range positions {
		s.lessons[pos].AvailableInventory -= req.Spaces[i]
	}

	result := models.OrderResult{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Phone:     req.Phone,
		LessonIDs: append([]string(nil), req.LessonIDs...),
		Spaces:    append([]int(nil), req.Spaces...),
	}
	s.orders = append(s.orders, result)
	return &result, nil
}

// Orders returns the orders accepted so far
func (s *StaticClassesAPI) Orders() []models.OrderResult {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return append([]models.OrderResult(nil), s.orders...)
}

func (s *StaticClassesAPI) find(id string) int {
	for i, l := range s.lessons {
		if l.ID == id {
			return i
		}
	}
	return -1
}

func (l staticLesson) raw() models.RawLesson {
	id, _ := json.Marshal(l.ID)
	raw := models.RawLesson{
		ID:          id,
		Title:       optional(l.Title),
		Description: optional(l.Description),
		Image:       optional(l.Image),
		Category:    optional(l.Category),
		Location:    optional(l.Location),
		Rating:      l.Rating,
	}
	inventory := l.AvailableInventory
	raw.AvailableInventory = &inventory
	if price, err := decimal.NewFromString(l.Price); err == nil {
		raw.Price = decimal.NewNullDecimal(price)
	}
	return raw
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
