package naming

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// RepublishService enrolls a pointer with a keep-alive collaborator.
// The collaborator holds the pointer's signing key wrapped to its own
// public key; it can republish records before they expire but never sees
// the key material of the data the pointer targets.
type RepublishService interface {
	// SubmitWrappedSigningKey enrolls pointerName with the collaborator.
	// wrapped is the pointer's signing key seed, asymmetrically wrapped
	// to the collaborator's public key.
	SubmitWrappedSigningKey(ctx context.Context, pointerName string, wrapped []byte) error
}

// RepublishClient is an HTTP client for a republish collaborator.
type RepublishClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// Compile-time interface check.
var _ RepublishService = (*RepublishClient)(nil)

// enrollPayload is the JSON wire form of an enrollment request.
type enrollPayload struct {
	PointerName string `json:"pointerName"`
	WrappedKey  string `json:"wrappedKey"`
}

// NewRepublishClient creates a collaborator client for baseURL.
// token, when non-empty, is sent as a bearer credential.
func NewRepublishClient(baseURL, token string) *RepublishClient {
	return &RepublishClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// SubmitWrappedSigningKey enrolls pointerName, sending the wrapped seed
// as base64 JSON.
func (c *RepublishClient) SubmitWrappedSigningKey(ctx context.Context, pointerName string, wrapped []byte) error {
	if err := ValidatePointerName(pointerName); err != nil {
		return err
	}
	if len(wrapped) == 0 {
		return fmt.Errorf("%w: empty wrapped key", ErrRepublishFailed)
	}

	body, err := json.Marshal(enrollPayload{
		PointerName: pointerName,
		WrappedKey:  base64.StdEncoding.EncodeToString(wrapped),
	})
	if err != nil {
		return fmt.Errorf("naming: marshal enrollment: %w", err)
	}

	url := c.baseURL + "/v0/republish/enroll"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("naming: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRepublishFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w: HTTP %d: %s", ErrRepublishFailed, resp.StatusCode, string(respBody))
	}
	return nil
}

// MockRepublishService is a test double for RepublishService.
type MockRepublishService struct {
	SubmitWrappedSigningKeyFn func(ctx context.Context, pointerName string, wrapped []byte) error
}

func (m *MockRepublishService) SubmitWrappedSigningKey(ctx context.Context, pointerName string, wrapped []byte) error {
	return m.SubmitWrappedSigningKeyFn(ctx, pointerName, wrapped)
}
