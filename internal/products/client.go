package products

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/openfacts/insights-tracker/internal/common"
)

// updateSuccessStatus is the one literal status the product database returns
// on a successful field update. Anything else is a warning, not a failure.
const updateSuccessStatus = "fields saved"

// SplitBarcode splits an EAN-13 barcode into the path segments used by the
// static image server. EAN-8 barcodes are a single segment.
func SplitBarcode(barcode string) ([]string, error) {
	switch len(barcode) {
	case 13:
		return []string{barcode[0:3], barcode[3:6], barcode[6:9], barcode[9:13]}, nil
	case 8:
		return []string{barcode}, nil
	}
	return nil, fmt.Errorf("unknown barcode format: %q: %w", barcode, common.ErrInvalidInput)
}

// Client talks to the product database. One Client is constructed at
// startup with a long-lived http.Client and passed into every component
// that needs it.
type Client struct {
	http   *http.Client
	cfg    common.ProductsConfig
	logger *slog.Logger
}

func NewClient(httpClient *http.Client, cfg common.ProductsConfig, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{http: httpClient, cfg: cfg, logger: logger}
}

// ImageOCRURL returns the static URL of the OCR JSON for one product image.
func (c *Client) ImageOCRURL(barcode, imageName string) (string, error) {
	segments, err := SplitBarcode(barcode)
	if err != nil {
		return "", err
	}
	path := ""
	for _, s := range segments {
		path += "/" + s
	}
	return fmt.Sprintf("%s/images/products%s/%s.json", c.cfg.StaticBaseURL, path, imageName), nil
}

// ImageSource returns the canonical source path of one product image.
func ImageSource(barcode, imageName string) (string, error) {
	segments, err := SplitBarcode(barcode)
	if err != nil {
		return "", err
	}
	path := ""
	for _, s := range segments {
		path += "/" + s
	}
	return fmt.Sprintf("%s/%s.jpg", path, imageName), nil
}

type productImagesPayload struct {
	Product struct {
		Images map[string]json.RawMessage `json:"images"`
	} `json:"product"`
}

// ImageNames fetches the numeric image names of a product, sorted for
// deterministic iteration. Derived names (crops, selected sizes) are skipped.
func (c *Client) ImageNames(ctx context.Context, barcode string) ([]string, error) {
	reqURL := fmt.Sprintf("%s/api/v0/product/%s.json?fields=images", c.cfg.BaseURL, barcode)
	body, status, err := c.get(ctx, reqURL)
	if err != nil {
		return nil, fmt.Errorf("fetch product images: %w", err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("fetch product images: unexpected status %d", status)
	}

	var payload productImagesPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode product images: %w", err)
	}

	var names []string
	for name := range payload.Product.Images {
		if isDigits(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// ImageOCR fetches the raw OCR JSON for one product image. A 404 means the
// image has no OCR; the caller gets (nil, nil).
func (c *Client) ImageOCR(ctx context.Context, barcode, imageName string) ([]byte, error) {
	reqURL, err := c.ImageOCRURL(barcode, imageName)
	if err != nil {
		return nil, err
	}
	body, status, err := c.get(ctx, reqURL)
	if err != nil {
		return nil, fmt.Errorf("fetch OCR json: %w", err)
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("fetch OCR json: unexpected status %d", status)
	}
	return body, nil
}

type updatePayload struct {
	StatusVerbose string `json:"status_verbose"`
}

// UpdateField pushes one field value onto a product. The returned string is
// the server's verbose status; transport and decode problems are the only
// errors.
func (c *Client) UpdateField(ctx context.Context, barcode, fieldName, value string) (string, error) {
	params := url.Values{}
	params.Set("code", barcode)
	params.Set(fieldName, value)
	params.Set("user_id", c.cfg.Username)
	params.Set("password", c.cfg.Password)

	reqURL := fmt.Sprintf("%s/cgi/product_jqm2.pl?%s", c.cfg.BaseURL, params.Encode())
	body, status, err := c.get(ctx, reqURL)
	if err != nil {
		return "", fmt.Errorf("product update: %w", err)
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("product update: unexpected status %d", status)
	}

	var payload updatePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("decode product update response: %w", err)
	}
	return payload.StatusVerbose, nil
}

// UpdateSucceeded reports whether a verbose status counts as success.
func UpdateSucceeded(status string) bool {
	return status == updateSuccessStatus
}

func (c *Client) get(ctx context.Context, reqURL string) ([]byte, int, error) {
	start := time.Now()
	logURL := redactURL(reqURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("products.http.send_error", "url", logURL, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, 0, err
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			c.logger.Warn("products.http.response_body_close_error", "error", err)
		}
	}(resp.Body)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}

	c.logger.Debug("products.http.response",
		"url", logURL,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return raw, resp.StatusCode, nil
}

// redactURL strips the password query parameter before a URL reaches a log.
func redactURL(reqURL string) string {
	u, err := url.Parse(reqURL)
	if err != nil {
		return reqURL
	}
	q := u.Query()
	if q.Has("password") {
		q.Set("password", "[redacted]")
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
