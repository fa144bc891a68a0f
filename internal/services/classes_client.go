package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"online-classes-storefront/internal/models"

	log "github.com/sirupsen/logrus"
)

// DefaultRequestTimeout bounds each call to the classes service
const DefaultRequestTimeout = 10 * time.Second

// maxErrorBody caps how much of a failure body is echoed back to the user
const maxErrorBody = 512

// ClassesClientConfig represents classes service client configuration
type ClassesClientConfig struct {
	BaseURL string
	Timeout time.Duration
}

// ClassesClient talks to the remote catalog and order service over HTTP
type ClassesClient struct {
	config  ClassesClientConfig
	client  *http.Client
	baseURL string
}

// NewClassesClient creates a new classes service client
func NewClassesClient(config ClassesClientConfig) *ClassesClient {
	if config.Timeout <= 0 {
		config.Timeout = DefaultRequestTimeout
	}

	return &ClassesClient{
		config:  config,
		client:  &http.Client{Timeout: config.Timeout},
		baseURL: strings.TrimRight(config.BaseURL, "/"),
	}
}

// apiError represents an error body from the classes service
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// FetchClasses fetches the full class list
func (c *ClassesClient) FetchClasses(ctx context.Context) ([]models.RawLesson, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	classesURL := c.baseURL + "/api/classes"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, classesURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create classes request: %v", models.ErrCatalogUnavailable, err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrCatalogUnavailable, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read classes response: %v", models.ErrCatalogUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d: %s", models.ErrCatalogUnavailable, resp.StatusCode, errorMessage(bodyBytes))
	}

	var lessons []models.RawLesson
	if err := json.Unmarshal(bodyBytes, &lessons); err != nil {
		return nil, fmt.Errorf("%w: failed to decode classes response: %v", models.ErrCatalogUnavailable, err)
	}

	log.WithFields(log.Fields{
		"url":     classesURL,
		"classes": len(lessons),
	}).Debug("fetched classes")

	return lessons, nil
}

// CreateOrder posts an order to the order service
func (c *ClassesClient) CreateOrder(ctx context.Context, req *models.OrderRequest) (*models.OrderResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal order request: %v", models.ErrOrderTransport, err)
	}

	ordersURL := c.baseURL + "/api/orders"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, ordersURL, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create order request: %v", models.ErrOrderTransport, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrOrderTransport, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read order response: %v", models.ErrOrderTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &models.OrderRejectedError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(bodyBytes),
		}
	}

	var result models.OrderResult
	if err := json.Unmarshal(bodyBytes, &result); err != nil {
		return nil, fmt.Errorf("%w: failed to decode order response: %v", models.ErrOrderTransport, err)
	}
	if result.ID == "" {
		return nil, fmt.Errorf("%w: order response has no id", models.ErrOrderTransport)
	}

	log.WithFields(log.Fields{
		"order_id": result.ID,
		"lessons":  len(req.LessonIDs),
		"spaces":   req.TotalSpaces(),
	}).Debug("order created")

	return &result, nil
}

// errorMessage extracts the server-provided message from a failure body.
// JSON bodies yield their "error" or "message" field; other bodies are returned as text.
func errorMessage(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ""
	}

	var apiErr apiError
	if err := json.Unmarshal(trimmed, &apiErr); err == nil {
		if apiErr.Error != "" {
			return apiErr.Error
		}
		return apiErr.Message
	}

	var text string
	if err := json.Unmarshal(trimmed, &text); err == nil {
		return text
	}
	if json.Valid(trimmed) {
		return ""
	}

	text = string(trimmed)
	if len(text) > maxErrorBody {
		text = text[:maxErrorBody]
	}
	return text
}
