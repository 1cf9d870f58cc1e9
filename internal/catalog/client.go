package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/joao-fontenele/foodflow/internal/domain"
)

// Client is a Reader backed by the catalog service's HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

func (c *Client) ResolveItem(ctx context.Context, itemID string) (*domain.CatalogItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/items/"+url.PathEscape(itemID), nil)
	if err != nil {
		return nil, fmt.Errorf("create catalog request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("resolve item %s: %w", itemID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", domain.ErrItemNotFound, itemID)
	default:
		return nil, fmt.Errorf("catalog service returned status %d for item %s", resp.StatusCode, itemID)
	}

	var item domain.CatalogItem
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		return nil, fmt.Errorf("decode catalog item %s: %w", itemID, err)
	}

	return &item, nil
}
