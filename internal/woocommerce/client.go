// Package woocommerce is a small client for the WooCommerce REST API (wc/v3)
// covering the product operations the manager needs.
package woocommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/TriAlliance/sb1-xbshc9-TriShop/internal/catalog"
	"github.com/TriAlliance/sb1-xbshc9-TriShop/internal/models"
)

const (
	apiPath        = "/wp-json/wc/v3"
	userAgent      = "woo-product-manager/1.0"
	maxBodyBytes   = 10 << 20
	DefaultTimeout = 15 * time.Second

	// perPage is the largest page WooCommerce serves.
	perPage = 100
	// MaxSearchPages caps how many pages one search follows.
	MaxSearchPages = 10
)

type Config struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	// Timeout bounds every request made by the client.
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client talks to one store. It is safe for concurrent use and is replaced,
// never mutated, when credentials change.
type Client struct {
	base   *url.URL
	key    string
	secret string
	http   *http.Client
	// basicAuth is false for plain-HTTP stores, whose requests are signed
	// by the transport instead.
	basicAuth bool
}

var _ catalog.Client = (*Client)(nil)

// New builds a client. No network call is made.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" || cfg.ConsumerKey == "" || cfg.ConsumerSecret == "" {
		return nil, catalog.ErrConfigurationMissing
	}

	base, err := url.Parse(strings.TrimSpace(cfg.BaseURL))
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return nil, fmt.Errorf("invalid store url %q: expected http(s)://host", cfg.BaseURL)
	}
	base.Path = strings.TrimSuffix(strings.TrimSuffix(base.Path, "/"), apiPath) + apiPath
	base.RawQuery = ""
	base.Fragment = ""

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	hc := &http.Client{Timeout: timeout}
	if cfg.HTTPClient != nil {
		c := *cfg.HTTPClient
		c.Timeout = timeout
		hc = &c
	}
	basicAuth := base.Scheme == "https"
	if !basicAuth {
		hc = oauthClient(hc, cfg.ConsumerKey, cfg.ConsumerSecret)
	}

	return &Client{
		base:      base,
		key:       cfg.ConsumerKey,
		secret:    cfg.ConsumerSecret,
		http:      hc,
		basicAuth: basicAuth,
	}, nil
}

// BaseURL is the API root, e.g. https://shop.test/wp-json/wc/v3.
func (c *Client) BaseURL() string { return c.base.String() }

// Search walks every page of the listing so callers that filter afterwards
// see the whole match set. A listing longer than MaxSearchPages pages is
// refused rather than cut short.
func (c *Client) Search(ctx context.Context, params url.Values) ([]models.Product, error) {
	query := url.Values{}
	for k, vs := range params {
		query[k] = vs
	}
	query.Set("per_page", strconv.Itoa(perPage))

	products := []models.Product{}
	for page := 1; ; page++ {
		query.Set("page", strconv.Itoa(page))

		var batch []models.Product
		header, err := c.do(ctx, http.MethodGet, "/products", query, nil, &batch)
		if err != nil {
			return nil, err
		}
		products = append(products, batch...)

		totalPages, _ := strconv.Atoi(header.Get("X-WP-TotalPages"))
		if totalPages > MaxSearchPages {
			return nil, &catalog.ValidationError{
				Field:   "query",
				Message: fmt.Sprintf("matches more than %d products, narrow the search", MaxSearchPages*perPage),
			}
		}
		if page >= totalPages || len(batch) == 0 {
			return products, nil
		}
	}
}

func (c *Client) Get(ctx context.Context, id int64) (*models.Product, error) {
	var p models.Product
	if _, err := c.do(ctx, http.MethodGet, "/products/"+strconv.FormatInt(id, 10), nil, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Update sends the full record. WooCommerce ignores read-only fields.
func (c *Client) Update(ctx context.Context, id int64, product models.Product) (*models.Product, error) {
	product.ID = id
	var p models.Product
	if _, err := c.do(ctx, http.MethodPut, "/products/"+strconv.FormatInt(id, 10), nil, product, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

type apiErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// do performs one request and decodes a 2xx body into out. The response
// headers are returned for pagination.
func (c *Client) do(ctx context.Context, method, path string, params url.Values, body, out any) (http.Header, error) {
	u := *c.base
	u.Path += path

	query := url.Values{}
	for k, vs := range params {
		query[k] = append([]string(nil), vs...)
	}

	var payload io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		payload = bytes.NewReader(b)
	}

	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, method, u.String(), payload)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.basicAuth {
		req.SetBasicAuth(c.key, c.secret)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	slog.Debug("WooCommerce request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &catalog.ExternalServiceError{StatusCode: resp.StatusCode, Message: "failed to read response from the store", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &catalog.ExternalServiceError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("the store answered %d %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
		}
		var eb apiErrorBody
		if json.Unmarshal(data, &eb) == nil && eb.Message != "" {
			apiErr.Code = eb.Code
			apiErr.Message = eb.Message
		}
		return nil, apiErr
	}

	if out == nil {
		return resp.Header, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return nil, &catalog.ExternalServiceError{StatusCode: resp.StatusCode, Message: "unexpected response from the store", Err: err}
	}
	return resp.Header, nil
}

// transportError drops the request URL and its search terms from the
// message shown to users.
func transportError(err error) error {
	msg := "could not reach the store"
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		msg = "request to the store timed out"
	} else if errors.Is(err, context.Canceled) {
		msg = "request to the store was cancelled"
	}
	var uerr *url.Error
	if errors.As(err, &uerr) {
		err = uerr.Err
	}
	return &catalog.ExternalServiceError{Message: msg, Err: err}
}
