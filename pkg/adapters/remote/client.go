// Package remote talks to the external document API and upload service
// over HTTP.
//
// Documents are addressed as /tenants/{tenant}/documents/{id} and carry
// {"id", "flavor", "fields"} JSON bodies. Uploads are multipart POSTs to
// /uploads answered with {"url": "..."}.
package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync/atomic"
	"time"

	gojson "github.com/goccy/go-json"

	"github.com/aretw0/sparti/pkg/core"
	"github.com/aretw0/sparti/pkg/schema"
)

// DefaultTimeout bounds every request when no HTTP client is supplied.
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of an error response is kept.
const maxErrorBody = 4 << 10

// Config holds the configuration for the remote client.
type Config struct {
	// BaseURL is the API root, e.g. "https://cms.example.com/api".
	BaseURL    string
	HTTPClient *http.Client
	ReadOnly   bool
	Logger     *slog.Logger
}

// Client implements core.Repository and core.Uploader against the remote
// API.
type Client struct {
	base   *url.URL
	http   *http.Client
	config Config

	requests atomic.Int64
	failures atomic.Int64
}

// wireDocument is the JSON body of a document.
type wireDocument struct {
	ID     string          `json:"id,omitempty"`
	Flavor string          `json:"flavor,omitempty"`
	Fields schema.Document `json:"fields"`
}

// NewClient validates the base URL and creates a client.
func NewClient(config Config) (*Client, error) {
	if config.BaseURL == "" {
		return nil, errors.New("remote: base url is required")
	}
	base, err := url.Parse(strings.TrimSuffix(config.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("remote: invalid base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("remote: unsupported scheme %q", base.Scheme)
	}

	hc := config.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{base: base, http: hc, config: config}, nil
}

// Initialize is a no-op: the remote store is provisioned by its owner.
func (c *Client) Initialize(ctx context.Context) error {
	return nil
}

// Get fetches a document of the context tenant.
func (c *Client) Get(ctx context.Context, id string) (core.Document, error) {
	if err := core.ValidateID(id); err != nil {
		return core.Document{}, err
	}
	tenant := core.TenantFrom(ctx)

	var body wireDocument
	if err := c.doJSON(ctx, http.MethodGet, c.documentURL(tenant, id), nil, &body); err != nil {
		return core.Document{}, err
	}
	if body.Fields == nil {
		body.Fields = schema.Document{}
	}
	return core.Document{Tenant: tenant, ID: id, Flavor: body.Flavor, Fields: body.Fields}, nil
}

// Save replaces a document (PUT).
func (c *Client) Save(ctx context.Context, doc core.Document) error {
	if c.config.ReadOnly {
		return core.ErrReadOnly
	}
	if err := core.ValidateID(doc.ID); err != nil {
		return err
	}
	tenant := core.TenantFrom(ctx)
	if doc.Tenant != "" {
		tenant = doc.Tenant
	}
	fields := doc.Fields
	if fields == nil {
		fields = schema.Document{}
	}
	return c.doJSON(ctx, http.MethodPut, c.documentURL(tenant, doc.ID),
		wireDocument{ID: doc.ID, Flavor: doc.Flavor, Fields: fields}, nil)
}

// Patch sends a partial update (PATCH) where null removes a field. The
// server applies it with the same merge semantics as schema.ApplyUpdate.
func (c *Client) Patch(ctx context.Context, id string, patch schema.Patch) (core.Document, error) {
	if c.config.ReadOnly {
		return core.Document{}, core.ErrReadOnly
	}
	if err := core.ValidateID(id); err != nil {
		return core.Document{}, err
	}
	tenant := core.TenantFrom(ctx)

	payload := make(map[string]any, len(patch))
	for k, v := range patch {
		if v == nil || schema.IsDelete(v) {
			payload[k] = nil
			continue
		}
		payload[k] = schema.ToAny(v)
	}

	var body wireDocument
	if err := c.doJSON(ctx, http.MethodPatch, c.documentURL(tenant, id), map[string]any{"fields": payload}, &body); err != nil {
		return core.Document{}, err
	}
	if body.Fields == nil {
		body.Fields = schema.Document{}
	}
	return core.Document{Tenant: tenant, ID: id, Flavor: body.Flavor, Fields: body.Fields}, nil
}

// List fetches every document of the context tenant.
func (c *Client) List(ctx context.Context) ([]core.Document, error) {
	tenant := core.TenantFrom(ctx)

	var body struct {
		Documents []wireDocument `json:"documents"`
	}
	if err := c.doJSON(ctx, http.MethodGet, c.tenantURL(tenant, "documents"), nil, &body); err != nil {
		return nil, err
	}

	docs := make([]core.Document, 0, len(body.Documents))
	for _, d := range body.Documents {
		if d.Fields == nil {
			d.Fields = schema.Document{}
		}
		docs = append(docs, core.Document{Tenant: tenant, ID: d.ID, Flavor: d.Flavor, Fields: d.Fields})
	}
	return docs, nil
}

// Delete removes a document.
func (c *Client) Delete(ctx context.Context, id string) error {
	if c.config.ReadOnly {
		return core.ErrReadOnly
	}
	if err := core.ValidateID(id); err != nil {
		return err
	}
	return c.doJSON(ctx, http.MethodDelete, c.documentURL(core.TenantFrom(ctx), id), nil, nil)
}

// Upload posts r as a multipart file and returns the URL it is served from.
func (c *Client) Upload(ctx context.Context, name string, r io.Reader) (string, error) {
	if name == "" {
		return "", errors.New("remote: upload needs a file name")
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", path.Base(name))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	u := c.base.JoinPath("uploads")
	if tenant := core.TenantFrom(ctx); tenant != "" {
		q := u.Query()
		q.Set("tenant", tenant)
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	var body struct {
		URL string `json:"url"`
	}
	if err := c.do(req, &body); err != nil {
		return "", err
	}
	if body.URL == "" {
		return "", fmt.Errorf("remote: upload response has no url")
	}
	if c.config.Logger != nil {
		c.config.Logger.Debug("file uploaded", "name", name, "url", body.URL, "bytes", buf.Len())
	}
	return body.URL, nil
}

func (c *Client) tenantURL(tenant string, elem ...string) *url.URL {
	return c.base.JoinPath(append([]string{"tenants", tenant}, elem...)...)
}

func (c *Client) documentURL(tenant, id string) *url.URL {
	return c.tenantURL(tenant, append([]string{"documents"}, strings.Split(id, "/")...)...)
}

func (c *Client) doJSON(ctx context.Context, method string, u *url.URL, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := gojson.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	c.requests.Add(1)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		c.failures.Add(1)
		return fmt.Errorf("remote: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if c.config.Logger != nil {
		c.config.Logger.Debug("remote request",
			"method", req.Method, "path", req.URL.Path, "status", resp.StatusCode, "elapsed", time.Since(start))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.failures.Add(1)
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			Method:     req.Method,
			URL:        req.URL.Path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(data)),
		}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := gojson.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("remote: failed to decode response: %w", err)
	}
	return nil
}
