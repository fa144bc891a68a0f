package services

import (
	"context"

	"online-classes-storefront/internal/models"
)

// ClassesAPI is the remote catalog and order service the storefront talks to
type ClassesAPI interface {
	FetchClasses(ctx context.Context) ([]models.RawLesson, error)
	CreateOrder(ctx context.Context, req *models.OrderRequest) (*models.OrderResult, error)
}

// CatalogServiceInterface defines the catalog cache operations
type CatalogServiceInterface interface {
	Refresh(ctx context.Context) error
	Lookup(id string) (models.Lesson, bool)
	Snapshot() []models.Lesson
}
