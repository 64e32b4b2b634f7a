package demographics

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/HiepPham1412/lending-etl/internal/storage"
)

// Source loads demographic records from an http(s) endpoint or any store URI.
type Source struct {
	client *http.Client
	store  storage.Store
}

// NewSource creates a Source. A nil client gets a client with a five minute timeout.
func NewSource(client *http.Client, store storage.Store) *Source {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}
	return &Source{client: client, store: store}
}

// Fetch reads and decodes every record at uri.
func (s *Source) Fetch(ctx context.Context, uri string) ([]Record, error) {
	body, err := s.open(ctx, uri)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return Decode(body)
}

func (s *Source) open(ctx context.Context, uri string) (io.ReadCloser, error) {
	if !strings.HasPrefix(uri, "http://") && !strings.HasPrefix(uri, "https://") {
		return s.store.Open(ctx, uri)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", uri, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrSourceUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: GET %s returned %s", storage.ErrSourceUnavailable, uri, resp.Status)
	}
	return resp.Body, nil
}
