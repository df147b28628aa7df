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

	"scribe-backend/models"
)

// GoAPIClient talks to the sibling data service that owns episode and
// material records. This service only ever reads from it.
type GoAPIClient struct {
	baseURL string
	client  *http.Client
}

// NewGoAPIClient creates a client for the sibling data service
func NewGoAPIClient(baseURL string) *GoAPIClient {
	return &GoAPIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type batchRequest struct {
	IDs []string `json:"ids"`
}

// FetchEpisodes fetches the given episodes of a book in a single batch call
func (c *GoAPIClient) FetchEpisodes(ctx context.Context, bookID string, ids []string) ([]models.Episode, error) {
	url := fmt.Sprintf("%s/api/books/%s/episodes/batch", c.baseURL, bookID)

	var episodes []models.Episode
	if err := c.postBatch(ctx, url, ids, &episodes); err != nil {
		return nil, fmt.Errorf("failed to fetch episodes for book %s: %w", bookID, err)
	}
	return episodes, nil
}

// FetchMaterials fetches the given materials of a book in a single batch call
func (c *GoAPIClient) FetchMaterials(ctx context.Context, bookID string, ids []string) ([]models.Material, error) {
	url := fmt.Sprintf("%s/api/books/%s/materials/batch", c.baseURL, bookID)

	var materials []models.Material
	if err := c.postBatch(ctx, url, ids, &materials); err != nil {
		return nil, fmt.Errorf("failed to fetch materials for book %s: %w", bookID, err)
	}
	return materials, nil
}

func (c *GoAPIClient) postBatch(ctx context.Context, url string, ids []string, out any) error {
	if ids == nil {
		ids = []string{}
	}
	jsonBody, err := json.Marshal(batchRequest{IDs: ids})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("data service error (status %d): %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
