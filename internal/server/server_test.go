package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wishr/metaext/internal/config"
	"github.com/wishr/metaext/pkg/extractor"
)

type fakeExtractor struct {
	lastURL string
	lastUA  string
	result  extractor.Result
}

func (f *fakeExtractor) Extract(_ context.Context, rawURL string, opts extractor.Options) extractor.Result {
	f.lastURL = rawURL
	f.lastUA = opts.ClientUserAgent
	return f.result
}

func newTestRouter(fake *fakeExtractor) http.Handler {
	gin.SetMode(gin.TestMode)
	log := logrus.New()
	log.SetOutput(io.Discard)
	cfg := config.Default()
	cfg.Server.AllowedOrigins = []string{"https://app.wishr.test"}
	return NewRouter(cfg, NewHandler(fake, log))
}

func TestExtractMetadataEndpoint(t *testing.T) {
	fake := &fakeExtractor{result: extractor.Result{
		Title:        "Blue Wireless Headphones",
		ImageURL:     "https://cdn.example.com/img.jpg",
		IsTitleValid: true,
		IsImageValid: true,
	}}
	router := newTestRouter(fake)

	body := bytes.NewBufferString(`{"url": "https://shop.example.com/item"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/extract-metadata", body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "WishrApp/2.1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://shop.example.com/item", fake.lastURL)
	assert.Equal(t, "WishrApp/2.1", fake.lastUA)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Blue Wireless Headphones", got["title"])
	assert.Equal(t, "https://cdn.example.com/img.jpg", got["imageUrl"])
	assert.Equal(t, "", got["price"])
	assert.Equal(t, true, got["isTitleValid"])
	// All fields present even when empty.
	for _, key := range []string{"title", "description", "imageUrl", "price", "isTitleValid", "isImageValid"} {
		assert.Contains(t, got, key)
	}
}

func TestExtractMetadataRejectsBadBody(t *testing.T) {
	router := newTestRouter(&fakeExtractor{})

	for _, body := range []string{"", "{}", `{"url": 42}`, "not json"} {
		req := httptest.NewRequest(http.MethodPost, "/api/extract-metadata", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(&fakeExtractor{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestCORSPreflightAndOrigin(t *testing.T) {
	router := newTestRouter(&fakeExtractor{})

	req := httptest.NewRequest(http.MethodOptions, "/api/extract-metadata", nil)
	req.Header.Set("Origin", "https://app.wishr.test")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.wishr.test", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/extract-metadata", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
