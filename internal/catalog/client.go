package catalog

import (
	"context"
	"strings"

	"github.com/martadelgado/pg-product-form/internal/upstream"
)

// Client fetches the catalog from the upstream HTTP API. The response carries
// a "results" envelope around the item list.
type Client struct {
	BaseURL string
	HTTP    *upstream.Client
}

type itemsEnvelope struct {
	Results []Item `json:"results"`
}

// FetchItems implements Fetcher against the upstream catalog endpoint.
func (c *Client) FetchItems(ctx context.Context) ([]Item, error) {
	var envelope itemsEnvelope
	url := strings.TrimRight(c.BaseURL, "/") + "/items"
	if err := c.HTTP.GetJSON(ctx, url, &envelope); err != nil {
		return nil, err
	}
	return envelope.Results, nil
}
