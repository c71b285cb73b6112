package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/KeystonCloud/satellite/internal/core"
)

// extractField returns the raw JSON of one top-level field of the response.
func extractField(t *testing.T, rec *httptest.ResponseRecorder, field string) string {
	t.Helper()
	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return string(body[field])
}

func TestGatewayServe(t *testing.T) {
	fetcher := &mockFetcher{}
	fetcher.On("Fetch", mock.Anything, "demo").Return([]byte("<html>hi</html>"), nil)

	rec := httptest.NewRecorder()
	r := withChiURLParam(httptest.NewRequest(http.MethodGet, "/apps/demo", nil), "name", "demo")

	NewGateway(fetcher).Serve(rec, r)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<html>hi</html>", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
}

func TestGatewayServe_Unpublished(t *testing.T) {
	fetcher := &mockFetcher{}
	fetcher.On("Fetch", mock.Anything, "demo").Return(nil, fmt.Errorf("application %q has no published name: %w", "demo", core.ErrNotFound))

	rec := httptest.NewRecorder()
	r := withChiURLParam(httptest.NewRequest(http.MethodGet, "/apps/demo", nil), "name", "demo")

	NewGateway(fetcher).Serve(rec, r)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGatewayServe_ResolveFailure(t *testing.T) {
	fetcher := &mockFetcher{}
	fetcher.On("Fetch", mock.Anything, "demo").Return(nil, errors.New("name/resolve: status 500"))

	rec := httptest.NewRecorder()
	r := withChiURLParam(httptest.NewRequest(http.MethodGet, "/apps/demo", nil), "name", "demo")

	NewGateway(fetcher).Serve(rec, r)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
