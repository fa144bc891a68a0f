package services

import (
	"context"
	"encoding/json"
	"testing"

	"online-classes-storefront/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockClassesAPI is a mock implementation of ClassesAPI
type MockClassesAPI struct {
	mock.Mock
}

func (m *MockClassesAPI) FetchClasses(ctx context.Context) ([]models.RawLesson, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.RawLesson), args.Error(1)
}

func (m *MockClassesAPI) CreateOrder(ctx context.Context, req *models.OrderRequest) (*models.OrderResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OrderResult), args.Error(1)
}

// rawLesson builds a catalog record the way the classes service would send it
func rawLesson(id, title, category, location, price string, inventory int) models.RawLesson {
	idJSON, _ := json.Marshal(id)
	return models.RawLesson{
		MongoID:            idJSON,
		Title:              &title,
		Category:           &category,
		Location:           &location,
		Price:              decimal.NewNullDecimal(decimal.RequireFromString(price)),
		AvailableInventory: &inventory,
	}
}

// newLoadedCatalog returns a catalog cache already refreshed with lessons
func newLoadedCatalog(t *testing.T, lessons ...models.RawLesson) *CatalogService {
	t.Helper()

	api := new(MockClassesAPI)
	api.On("FetchClasses", mock.Anything).Return(lessons, nil).Once()

	catalog := NewCatalogService(api)
	require.NoError(t, catalog.Refresh(context.Background()))
	return catalog
}
