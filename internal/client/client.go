// Package client is the core talking to the study assistant backend: the
// upload pipeline controller, the exam generation and attempt calls, and the
// provider context attached to every request. All validation failures are
// detected before any network I/O; the client never retries on its own.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"studyhall/internal/model"
	"studyhall/internal/prefs"
)

// Provider selection headers attached to every request, resolved fresh from
// the preference store at call time.
const (
	headerProvider = "X-AI-Provider"
	headerModel    = "X-OpenAI-Model"
	headerAPIKey   = "X-OpenAI-API-Key"
)

// Client talks to one backend instance.
type Client struct {
	baseURL string
	http    *http.Client
	prefs   *prefs.Store
	log     *slog.Logger

	// simInterval spaces synthetic progress events when the server does not
	// stream. Shortened in tests.
	simInterval time.Duration
}

func New(baseURL string, pf *prefs.Store, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		http:        &http.Client{},
		prefs:       pf,
		log:         log,
		simInterval: 300 * time.Millisecond,
	}
}

// applyProviderContext re-reads the preference store and attaches the
// provider headers. Never cached: a settings change applies to the very next
// call.
func (c *Client) applyProviderContext(req *http.Request) {
	pc := c.prefs.ProviderContext()
	req.Header.Set(headerProvider, string(pc.Provider))
	if pc.Model != "" {
		req.Header.Set(headerModel, pc.Model)
	}
	if pc.APIKey != "" {
		req.Header.Set(headerAPIKey, pc.APIKey)
	}
}

// do sends the request, wrapping network failures as TransportError and
// non-2xx responses as ServerError. The response body is open on success.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, serverError(resp)
	}
	return resp, nil
}

// serverError extracts the backend's own message from an error body when it
// has one.
func serverError(resp *http.Response) *ServerError {
	se := &ServerError{StatusCode: resp.StatusCode}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return se
	}
	var payload struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case payload.Error != "":
			se.Message = payload.Error
		case payload.Detail != "":
			se.Message = payload.Detail
		}
	}
	return se
}

// getJSON issues a GET and decodes the JSON response into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	c.applyProviderContext(req)
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(out)
}

// postJSON issues a POST with a JSON body and decodes the response into out
// when out is non-nil.
func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.applyProviderContext(req)
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// delete issues a DELETE, decoding into out when non-nil.
func (c *Client) delete(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	c.applyProviderContext(req)
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Health checks that the backend is reachable.
func (c *Client) Health(ctx context.Context) error {
	var out map[string]string
	if err := c.getJSON(ctx, "/api/health", &out); err != nil {
		return err
	}
	if out["status"] != "healthy" {
		return fmt.Errorf("backend reported status %q", out["status"])
	}
	return nil
}

// Statistics fetches library-wide counters.
func (c *Client) Statistics(ctx context.Context) (model.Statistics, error) {
	var stats model.Statistics
	err := c.getJSON(ctx, "/api/statistics", &stats)
	return stats, err
}

// ListDocuments fetches documents, optionally filtered by course code.
func (c *Client) ListDocuments(ctx context.Context, course string) ([]model.Document, error) {
	path := "/api/documents"
	if course != "" {
		path += "?course=" + course
	}
	var docs []model.Document
	err := c.getJSON(ctx, path, &docs)
	return docs, err
}
