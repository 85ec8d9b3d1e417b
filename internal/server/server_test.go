package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tableforge-labs/tableforge/internal/dataset"
	"github.com/tableforge-labs/tableforge/internal/pipeline"
	"github.com/tableforge-labs/tableforge/internal/testutil"
)

const ordersCSV = `id,customer_id,amount,status
1,c1,50,shipped
2,c2,15,pending
3,c1,120,shipped
`

const customersCSV = `cid,name
c1,Ada
c2,Alan
`

const storedConfigYAML = `datasets:
  - orders
  - customers
joins:
  - left: orders
    right: customers
    keys:
      - left: customer_id
        right: cid
    type: left
    right_prefix: cust
filter:
  column: status
  operator: equals
  value: shipped
sort:
  column: amount
  direction: desc
page_size: 25
`

func newTestServer(t *testing.T) *Server {
	t.Helper()

	dataDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "orders.csv"), []byte(ordersCSV), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "customers.csv"), []byte(customersCSV), 0o644))

	configsDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(configsDir, "shipped.yaml"), []byte(storedConfigYAML), 0o644))

	resolver := dataset.NewDirResolver(dataDir)
	store, err := NewConfigStore(configsDir)
	require.NoError(t, err)

	logger := testutil.NewTestLogger(t)
	return NewServer(Config{
		Runner:   &pipeline.Runner{Resolver: resolver, MaxLimit: 100, Logger: logger},
		Resolver: resolver,
		Store:    store,
		Port:     0,
		Logger:   logger,
	})
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func TestHealth(t *testing.T) {
	h := newTestServer(t).Routes()
	rec, body := doJSON(t, h, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestRequestIDHeader(t *testing.T) {
	h := newTestServer(t).Routes()
	rec, _ := doJSON(t, h, http.MethodGet, "/api/health", nil)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestListConfigs(t *testing.T) {
	h := newTestServer(t).Routes()
	rec, body := doJSON(t, h, http.MethodGet, "/api/configs", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"shipped"}, body["configs"])
}

func TestRunStoredConfig(t *testing.T) {
	h := newTestServer(t).Routes()
	rec, body := doJSON(t, h, http.MethodPost, "/api/configs/shipped/run", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(2), body["total"])
	assert.Equal(t, float64(0), body["offset"])
	assert.Equal(t, float64(25), body["limit"])

	rows, ok := body["rows"].([]any)
	require.True(t, ok)
	require.Len(t, rows, 2)
	first := rows[0].(map[string]any)
	assert.Equal(t, "3", first["id"])
	assert.Equal(t, "Ada", first["cust__name"])

	meta := body["meta"].(map[string]any)
	assert.NotEmpty(t, meta["config_fingerprint"])
}

func TestRunStoredConfigPagination(t *testing.T) {
	h := newTestServer(t).Routes()
	rec, body := doJSON(t, h, http.MethodPost, "/api/configs/shipped/run?offset=1&limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["offset"])
	assert.Equal(t, float64(1), body["limit"])
	rows := body["rows"].([]any)
	require.Len(t, rows, 1)
	assert.Equal(t, "1", rows[0].(map[string]any)["id"])
}

func TestRunUnknownConfig(t *testing.T) {
	h := newTestServer(t).Routes()
	rec, body := doJSON(t, h, http.MethodPost, "/api/configs/ghost/run", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "error", body["status"])
}

func TestAdHocTransform(t *testing.T) {
	h := newTestServer(t).Routes()
	req := map[string]any{
		"config": map[string]any{
			"datasets": []string{"orders"},
			"filter":   map[string]any{"column": "status", "operator": "equals", "value": "pending"},
		},
		"limit": 10,
	}
	rec, body := doJSON(t, h, http.MethodPost, "/api/transform", req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(1), body["total"])
}

func TestAdHocTransformBadConfig(t *testing.T) {
	h := newTestServer(t).Routes()
	req := map[string]any{
		"config": map[string]any{"datasets": []string{}},
	}
	rec, body := doJSON(t, h, http.MethodPost, "/api/transform", req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "error", body["status"])
	assert.Contains(t, body["message"], "at least one dataset")
}

func TestAdHocTransformUnknownDataset(t *testing.T) {
	h := newTestServer(t).Routes()
	req := map[string]any{"config": map[string]any{"datasets": []string{"ghost"}}}
	rec, body := doJSON(t, h, http.MethodPost, "/api/transform", req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "error", body["status"])
}

func TestListDatasets(t *testing.T) {
	h := newTestServer(t).Routes()
	rec, body := doJSON(t, h, http.MethodGet, "/api/datasets", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"customers", "orders"}, body["datasets"])
}

func TestDatasetSchema(t *testing.T) {
	h := newTestServer(t).Routes()
	rec, body := doJSON(t, h, http.MethodGet, "/api/datasets/orders/schema", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(3), body["row_count"])
	cols := body["columns"].([]any)
	require.Len(t, cols, 4)
	first := cols[0].(map[string]any)
	assert.Equal(t, "id", first["name"])
	assert.Equal(t, "integer", first["type"])
}

func TestDatasetSchemaNotFound(t *testing.T) {
	h := newTestServer(t).Routes()
	rec, _ := doJSON(t, h, http.MethodGet, "/api/datasets/ghost/schema", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestValidateConfig(t *testing.T) {
	h := newTestServer(t).Routes()
	rec, body := doJSON(t, h, http.MethodGet, "/api/configs/shipped/validate", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["valid"])
}

func TestDescribeConfig(t *testing.T) {
	h := newTestServer(t).Routes()
	req := httptest.NewRequest(http.MethodGet, "/api/configs/shipped/describe", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/yaml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "fingerprint:")
	assert.Contains(t, rec.Body.String(), "orders")
}
