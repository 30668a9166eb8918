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

// Client is an HTTP client for a remote naming service.
//
// The wire API is small: GET /v0/pointer/{name} resolves a record,
// PUT /v0/pointer/{name} submits one. Binary bundle fields travel as
// base64 inside a JSON body.
type Client struct {
	baseURL string
	client  *http.Client
}

// Compile-time interface check.
var _ Service = (*Client)(nil)

// recordPayload is the JSON wire form of a PointerRecord.
type recordPayload struct {
	Value         string `json:"value"`
	Sequence      uint64 `json:"sequence"`
	Signature     string `json:"signature,omitempty"`
	SignedPayload string `json:"signedPayload,omitempty"`
	PublicKey     string `json:"publicKey,omitempty"`
}

// NewClient creates a naming service client for baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
				MaxIdleConnsPerHost: 10,
			},
		},
	}
}

// ResolvePointer fetches the current record for name from the service.
func (c *Client) ResolvePointer(ctx context.Context, name string) (*PointerRecord, error) {
	if err := ValidatePointerName(name); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/v0/pointer/%s", c.baseURL, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("naming: create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrResolveFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrPointerNotFound, name)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: HTTP %d: %s", ErrResolveFailed, resp.StatusCode, string(body))
	}

	var payload recordPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", ErrInvalidRecord, err)
	}
	return payload.toRecord()
}

// SubmitPointer sends record to the service for name.
func (c *Client) SubmitPointer(ctx context.Context, name string, record *PointerRecord) error {
	if err := ValidatePointerName(name); err != nil {
		return err
	}
	if record == nil || record.Value == "" {
		return ErrEmptyValue
	}

	body, err := json.Marshal(payloadFromRecord(record))
	if err != nil {
		return fmt.Errorf("naming: marshal record: %w", err)
	}

	url := fmt.Sprintf("%s/v0/pointer/%s", c.baseURL, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("naming: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("naming: submit pointer: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusConflict:
		return fmt.Errorf("%w: %s", ErrSequenceConflict, name)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("naming: submit pointer: HTTP %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func payloadFromRecord(record *PointerRecord) recordPayload {
	p := recordPayload{
		Value:    record.Value,
		Sequence: record.Sequence,
	}
	if len(record.Signature) > 0 {
		p.Signature = base64.StdEncoding.EncodeToString(record.Signature)
	}
	if len(record.SignedPayload) > 0 {
		p.SignedPayload = base64.StdEncoding.EncodeToString(record.SignedPayload)
	}
	if len(record.PublicKey) > 0 {
		p.PublicKey = base64.StdEncoding.EncodeToString(record.PublicKey)
	}
	return p
}

func (p recordPayload) toRecord() (*PointerRecord, error) {
	rec := &PointerRecord{
		Value:    p.Value,
		Sequence: p.Sequence,
	}
	var err error
	if p.Signature != "" {
		if rec.Signature, err = base64.StdEncoding.DecodeString(p.Signature); err != nil {
			return nil, fmt.Errorf("%w: signature not base64: %w", ErrInvalidRecord, err)
		}
	}
	if p.SignedPayload != "" {
		if rec.SignedPayload, err = base64.StdEncoding.DecodeString(p.SignedPayload); err != nil {
			return nil, fmt.Errorf("%w: signed payload not base64: %w", ErrInvalidRecord, err)
		}
	}
	if p.PublicKey != "" {
		if rec.PublicKey, err = base64.StdEncoding.DecodeString(p.PublicKey); err != nil {
			return nil, fmt.Errorf("%w: public key not base64: %w", ErrInvalidRecord, err)
		}
	}
	return rec, nil
}
