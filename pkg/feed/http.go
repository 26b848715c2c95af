package feed

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/openshelf/stock-sentinel/pkg/model"
)

// DefaultHTTPTimeout bounds a feed request when no timeout is configured.
const DefaultHTTPTimeout = 10 * time.Second

// HTTP fetches competitor prices from a deployed feed endpoint. The request
// is a POST listing the product keys of interest; when secret is set the
// body is signed with HMAC-SHA256 so the feed can authenticate us.
type HTTP struct {
	url    string
	secret string
	client *http.Client
}

// NewHTTP creates an HTTP feed source.
func NewHTTP(url, secret string, timeout time.Duration) *HTTP {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	return &HTTP{
		url:    url,
		secret: secret,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (h *HTTP) Name() string { return "http" }

func (h *HTTP) Fetch(ctx context.Context, products []model.InventorySignal) ([]model.CompetitorPrice, error) {
	keys := make([]string, 0, len(products))
	for _, p := range products {
		keys = append(keys, p.ProductKey)
	}

	body, err := json.Marshal(feedRequest{ProductKeys: keys})
	if err != nil {
		return nil, fmt.Errorf("marshal feed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create feed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "stock-sentinel/1.0")

	if h.secret != "" {
		sig := computeHMAC(body, []byte(h.secret))
		req.Header.Set("X-Signature-256", "sha256="+sig)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch competitor prices: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("competitor feed returned status %d", resp.StatusCode)
	}

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("read feed response: %w", err)
	}

	var observed []model.CompetitorPrice
	if err := json.Unmarshal(respBody, &observed); err != nil {
		return nil, fmt.Errorf("parse feed response: %w", err)
	}

	// Keep only well-formed rows; a half-broken feed still yields the
	// prices it did deliver.
	prices := observed[:0]
	for _, p := range observed {
		if p.ProductKey == "" || p.Price <= 0 {
			continue
		}
		prices = append(prices, p)
	}
	return prices, nil
}

type feedRequest struct {
	ProductKeys []string `json:"product_keys"`
}

func computeHMAC(message, key []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}
