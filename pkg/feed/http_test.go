package feed_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshelf/stock-sentinel/pkg/feed"
	"github.com/openshelf/stock-sentinel/pkg/model"
)

func TestHTTP_Fetch(t *testing.T) {
	var gotKeys struct {
		ProductKeys []string `json:"product_keys"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "POST", r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotKeys))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]model.CompetitorPrice{
			{ProductKey: "SKU-1", Competitor: "valuemart", Price: 18.5, SeenAt: time.Now()},
		})
	}))
	defer srv.Close()

	src := feed.NewHTTP(srv.URL, "", 0)
	prices, err := src.Fetch(context.Background(), testProducts())
	require.NoError(t, err)

	assert.Equal(t, []string{"SKU-1", "SKU-2"}, gotKeys.ProductKeys)
	require.Len(t, prices, 1)
	assert.Equal(t, "SKU-1", prices[0].ProductKey)
	assert.InDelta(t, 18.5, prices[0].Price, 0.0001)
}

func TestHTTP_SignsRequestBody(t *testing.T) {
	secret := "feed-secret"
	var gotSig string
	var gotBody []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get("X-Signature-256")
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	src := feed.NewHTTP(srv.URL, secret, 0)
	_, err := src.Fetch(context.Background(), testProducts())
	require.NoError(t, err)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(gotBody)
	want := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	assert.Equal(t, want, gotSig)
}

func TestHTTP_NoSignatureWithoutSecret(t *testing.T) {
	var gotSig string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get("X-Signature-256")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	src := feed.NewHTTP(srv.URL, "", 0)
	_, err := src.Fetch(context.Background(), testProducts())
	require.NoError(t, err)
	assert.Empty(t, gotSig)
}

func TestHTTP_DropsMalformedRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[
			{"product_key": "SKU-1", "competitor": "valuemart", "price": 18.5},
			{"product_key": "", "competitor": "pricedrop", "price": 12},
			{"product_key": "SKU-2", "competitor": "shopnorth", "price": 0}
		]`))
	}))
	defer srv.Close()

	src := feed.NewHTTP(srv.URL, "", 0)
	prices, err := src.Fetch(context.Background(), testProducts())
	require.NoError(t, err)

	require.Len(t, prices, 1)
	assert.Equal(t, "SKU-1", prices[0].ProductKey)
}

func TestHTTP_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	src := feed.NewHTTP(srv.URL, "", 0)
	_, err := src.Fetch(context.Background(), testProducts())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestHTTP_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"not": "an array"`))
	}))
	defer srv.Close()

	src := feed.NewHTTP(srv.URL, "", 0)
	_, err := src.Fetch(context.Background(), testProducts())
	assert.Error(t, err)
}
