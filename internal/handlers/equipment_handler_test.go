package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/prudhvinik1/equiptrack/internal/models"
	"github.com/prudhvinik1/equiptrack/internal/repositories"
	"github.com/prudhvinik1/equiptrack/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type brokenRepo struct{}

func (brokenRepo) Save(ctx context.Context, payload []byte) error {
	return errors.New("permission denied")
}

func (brokenRepo) Load(ctx context.Context) (*models.EquipmentSnapshot, error) {
	return nil, errors.New("permission denied")
}

func newEquipmentRouter(t *testing.T, repo repositories.EquipmentRepository, maxBody int64) http.Handler {
	t.Helper()
	return NewRouter(RouterConfig{
		Log:          zap.NewNop(),
		Auth:         newTestAuth(t),
		Equipment:    services.NewEquipmentService(repo, "test", zap.NewNop()),
		MaxBodyBytes: maxBody,
	})
}

func newFileRouter(t *testing.T) (http.Handler, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "public", "equipment_data.json")
	return newEquipmentRouter(t, repositories.NewFileEquipmentRepository(path), 0), path
}

func doRequest(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// TestSaveEquipment_Success tests that a POST stores the body with two-space indentation
func TestSaveEquipment_Success(t *testing.T) {
	// ARRANGE
	router, path := newFileRouter(t)

	// ACT
	rr := doRequest(router, http.MethodPost, SaveEquipmentPath, `{"a":1}`)

	// ASSERT
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"success":true}`, rr.Body.String())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": 1\n}", string(data))

	var stored map[string]any
	require.NoError(t, json.Unmarshal(data, &stored))
	assert.Equal(t, map[string]any{"a": float64(1)}, stored)
}

func TestSaveEquipment_OverwritesPreviousSave(t *testing.T) {
	router, path := newFileRouter(t)

	require.Equal(t, http.StatusOK, doRequest(router, http.MethodPost, SaveEquipmentPath, `[{"id":1},{"id":2}]`).Code)
	require.Equal(t, http.StatusOK, doRequest(router, http.MethodPost, SaveEquipmentPath, `[{"id":3}]`).Code)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":3}]`, string(data))
}

// TestSaveEquipment_NonPostMethods tests that every other method gets 405 and leaves the file alone
func TestSaveEquipment_NonPostMethods(t *testing.T) {
	// ARRANGE: store a record the rejected requests would otherwise overwrite
	router, path := newFileRouter(t)
	require.Equal(t, http.StatusOK, doRequest(router, http.MethodPost, SaveEquipmentPath, `{"keep":true}`).Code)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete, http.MethodPatch, http.MethodHead, http.MethodOptions} {
		t.Run(method, func(t *testing.T) {
			// ACT
			rr := doRequest(router, method, SaveEquipmentPath, `{"overwrite":true}`)

			// ASSERT
			assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
			assert.Equal(t, http.MethodPost, rr.Header().Get("Allow"))
			if method != http.MethodHead {
				assert.Equal(t, "Method not allowed", rr.Body.String())
			}

			after, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, string(before), string(after), "stored file must not change")
		})
	}
}

func TestSaveEquipment_GetBeforeAnySaveCreatesNothing(t *testing.T) {
	router, path := newFileRouter(t)

	rr := doRequest(router, http.MethodGet, SaveEquipmentPath, "")

	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestSaveEquipment_StorageFailure(t *testing.T) {
	// ARRANGE
	router := newEquipmentRouter(t, brokenRepo{}, 0)

	// ACT
	rr := doRequest(router, http.MethodPost, SaveEquipmentPath, `{"a":1}`)

	// ASSERT
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"Failed to save data"}`, rr.Body.String())
}

func TestSaveEquipment_FailureDoesNotAffectNextRequest(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "public")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))
	path := filepath.Join(blocker, "equipment_data.json")
	router := newEquipmentRouter(t, repositories.NewFileEquipmentRepository(path), 0)

	rr := doRequest(router, http.MethodPost, SaveEquipmentPath, `{"a":1}`)
	require.Equal(t, http.StatusInternalServerError, rr.Code)

	// clear the obstruction; the next request succeeds
	require.NoError(t, os.Remove(blocker))
	rr = doRequest(router, http.MethodPost, SaveEquipmentPath, `{"a":2}`)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestSaveEquipment_MalformedJSON(t *testing.T) {
	router, path := newFileRouter(t)

	rr := doRequest(router, http.MethodPost, SaveEquipmentPath, `{"a":`)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"error":"Invalid JSON payload"}`, rr.Body.String())
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

// TestSaveEquipment_InvalidUTF8 tests that the stored file stays valid UTF-8 JSON
func TestSaveEquipment_InvalidUTF8(t *testing.T) {
	// ARRANGE
	router, path := newFileRouter(t)

	// ACT
	rr := doRequest(router, http.MethodPost, SaveEquipmentPath, "{\"a\":\"\xff\xfe\"}")

	// ASSERT
	require.Equal(t, http.StatusOK, rr.Code)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, utf8.Valid(data))
	assert.JSONEq(t, `{"a":"\uFFFD"}`, string(data))

	rr = doRequest(router, http.MethodGet, EquipmentDataPath, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, utf8.Valid(rr.Body.Bytes()))
}

func TestSaveEquipment_ScalarBody(t *testing.T) {
	router, path := newFileRouter(t)

	for _, body := range []string{`42`, `"text"`, `null`} {
		rr := doRequest(router, http.MethodPost, SaveEquipmentPath, body)

		assert.Equal(t, http.StatusBadRequest, rr.Code, body)
		assert.JSONEq(t, `{"error":"Invalid JSON payload"}`, rr.Body.String())
	}
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

// TestSaveEquipment_ContentType tests that only application/json bodies are read
func TestSaveEquipment_ContentType(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		want        string
	}{
		{"json", "application/json", `{"a":1}`},
		{"json with charset", "application/json; charset=utf-8", `{"a":1}`},
		{"plain text", "text/plain", `{}`},
		{"form", "application/x-www-form-urlencoded", `{}`},
		{"missing", "", `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// ARRANGE
			router, path := newFileRouter(t)
			req := httptest.NewRequest(http.MethodPost, SaveEquipmentPath, strings.NewReader(`{"a":1}`))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rr := httptest.NewRecorder()

			// ACT
			router.ServeHTTP(rr, req)

			// ASSERT
			require.Equal(t, http.StatusOK, rr.Code)
			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))
		})
	}
}

func TestSaveEquipment_PayloadTooLarge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "equipment_data.json")
	router := newEquipmentRouter(t, repositories.NewFileEquipmentRepository(path), 16)

	rr := doRequest(router, http.MethodPost, SaveEquipmentPath, `{"name":"this body is longer than sixteen bytes"}`)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	assert.JSONEq(t, `{"error":"Payload too large"}`, rr.Body.String())
}

func TestGetEquipment(t *testing.T) {
	router, _ := newFileRouter(t)

	rr := doRequest(router, http.MethodGet, EquipmentDataPath, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	require.Equal(t, http.StatusOK, doRequest(router, http.MethodPost, SaveEquipmentPath, `{"a":1}`).Code)

	rr = doRequest(router, http.MethodGet, EquipmentDataPath, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.NotEmpty(t, rr.Header().Get("Last-Modified"))
	assert.Equal(t, "{\n  \"a\": 1\n}", rr.Body.String())
}

func TestGetEquipment_StorageFailure(t *testing.T) {
	router := newEquipmentRouter(t, brokenRepo{}, 0)

	rr := doRequest(router, http.MethodGet, EquipmentDataPath, "")

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestHealth(t *testing.T) {
	router, _ := newFileRouter(t)

	rr := doRequest(router, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "OK", rr.Body.String())
}
