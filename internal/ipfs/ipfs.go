// Package ipfs implements a minimal client for the Kubo (IPFS) HTTP API,
// covering the four calls the hardening pipeline needs: add, cat, pin/add,
// pin/rm. No pack repository carries an IPFS SDK dependency, so this talks
// to the daemon directly over stdlib net/http multipart — the only
// reasonable choice given nothing in the corpus wraps this API.
package ipfs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/r-baldridge/chitin-core/internal/chitinerr"
)

// Client talks to a Kubo-compatible HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a Client pointed at the given API base URL, e.g.
// "http://127.0.0.1:5001".
func New(baseURL string) *Client {
	return &Client{baseURL: baseURL, http: &http.Client{}}
}

type addResponse struct {
	Hash string `json:"Hash"`
}

// Put stores data on IPFS via POST /api/v0/add and returns its CID.
func (c *Client) Put(ctx context.Context, data []byte) (string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", "polyp.json")
	if err != nil {
		return "", chitinerr.Networkf("ipfs: build multipart body: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", chitinerr.Networkf("ipfs: write multipart body: %v", err)
	}
	if err := w.Close(); err != nil {
		return "", chitinerr.Networkf("ipfs: close multipart body: %v", err)
	}

	url := c.baseURL + "/api/v0/add"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return "", chitinerr.Networkf("ipfs: build request: %v", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", chitinerr.Networkf("ipfs: add request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", chitinerr.Networkf("ipfs: add returned status %d", resp.StatusCode)
	}

	var out addResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", chitinerr.Networkf("ipfs: decode add response: %v", err)
	}
	return out.Hash, nil
}

// GetByCID retrieves raw bytes for a CID via POST /api/v0/cat?arg={cid}.
func (c *Client) GetByCID(ctx context.Context, cid string) ([]byte, error) {
	url := fmt.Sprintf("%s/api/v0/cat?arg=%s", c.baseURL, cid)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return nil, chitinerr.Networkf("ipfs: build request: %v", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, chitinerr.Networkf("ipfs: cat request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, chitinerr.Networkf("ipfs: cat returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, chitinerr.Networkf("ipfs: read cat response: %v", err)
	}
	return data, nil
}

// Pin pins a CID via POST /api/v0/pin/add?arg={cid}.
func (c *Client) Pin(ctx context.Context, cid string) error {
	return c.pinCall(ctx, "/api/v0/pin/add", cid)
}

// Unpin removes a pin via POST /api/v0/pin/rm?arg={cid}.
func (c *Client) Unpin(ctx context.Context, cid string) error {
	return c.pinCall(ctx, "/api/v0/pin/rm", cid)
}

func (c *Client) pinCall(ctx context.Context, path, cid string) error {
	url := fmt.Sprintf("%s%s?arg=%s", c.baseURL, path, cid)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return chitinerr.Networkf("ipfs: build request: %v", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return chitinerr.Networkf("ipfs: %s request failed: %v", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return chitinerr.Networkf("ipfs: %s returned status %d", path, resp.StatusCode)
	}
	return nil
}
