package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// MaxGatewayResponseSize caps a gateway response body at 1 GB so a
// hostile endpoint cannot exhaust memory.
const MaxGatewayResponseSize = 1 << 30

// Gateway fetches blobs by content address from multiple sources in
// priority order: the local store first, then remote HTTP gateways.
// Remote data is hash-verified against the requested address before it
// is trusted or cached; a gateway returning mismatching bytes is skipped.
type Gateway struct {
	Store     Store        // local store; may be nil
	Endpoints []string     // remote gateway base URLs
	Client    *http.Client // nil uses a default with a 30s timeout
}

// NewGateway creates a Gateway over a local store. Endpoints and Client
// can be set after creation.
func NewGateway(store Store) *Gateway {
	return &Gateway{
		Store:  store,
		Client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Fetch retrieves the blob for addr, trying local storage first and then
// each remote endpoint in order. Remote results are cached locally on a
// best-effort basis.
func (g *Gateway) Fetch(ctx context.Context, addr []byte) ([]byte, error) {
	if err := validateAddress(addr); err != nil {
		return nil, err
	}

	if g.Store != nil {
		data, err := g.Store.Get(addr)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("gateway: local store: %w", err)
		}
	}

	client := g.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	hexAddr := fmt.Sprintf("%x", addr)
	for _, ep := range g.Endpoints {
		data, err := g.fetchFromEndpoint(ctx, client, ep, hexAddr)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		if !bytes.Equal(ComputeAddress(data), addr) {
			// Endpoint served bytes that do not match the address.
			continue
		}
		if g.Store != nil {
			_ = g.Store.Put(addr, data) // best-effort cache
		}
		return data, nil
	}

	return nil, fmt.Errorf("gateway: %w: %s", ErrNotFound, hexAddr)
}

// fetchFromEndpoint fetches one blob from GET {baseURL}/v0/block/{addr}.
func (g *Gateway) fetchFromEndpoint(ctx context.Context, client *http.Client, baseURL, hexAddr string) ([]byte, error) {
	url := baseURL + "/v0/block/" + hexAddr

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("gateway: endpoint %s: %w", baseURL, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway: endpoint %s: %w", baseURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway: endpoint %s: HTTP %d", baseURL, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxGatewayResponseSize))
	if err != nil {
		return nil, fmt.Errorf("gateway: endpoint %s: read body: %w", baseURL, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("gateway: endpoint %s: empty response", baseURL)
	}
	return data, nil
}
