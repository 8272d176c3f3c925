package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contractiq/contract-ocr-service/internal/auth"
	"github.com/contractiq/contract-ocr-service/internal/models"
)

func testRouter() *mux.Router {
	h := NewHandler(&models.Config{})
	router := mux.NewRouter()
	h.SetupRoutes(router)
	return router
}

func authedRequest(method, target string, body *bytes.Buffer) *http.Request {
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, target, body)
	claims := &auth.Claims{
		UserID: "4b4e7a64-6a2e-4a1e-9e58-0b2f8cf26a01",
		Email:  "jane@example.com",
		Name:   "Jane Doe",
		Role:   "user",
	}
	return req.WithContext(auth.ContextWithClaims(req.Context(), claims))
}

func TestHealthCheck(t *testing.T) {
	rr := httptest.NewRecorder()
	testRouter().ServeHTTP(rr, httptest.NewRequest("GET", "/health", nil))

	require.Equal(t, http.StatusOK, rr.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Contains(t, []string{"ok", "degraded"}, resp.Status)
	assert.Equal(t, Version, resp.Version)
	assert.NotEmpty(t, resp.Uptime)
	// no database or storage configured in tests
	assert.False(t, resp.Database.Available)
	assert.False(t, resp.Storage.Available)
	assert.False(t, resp.AIProvider.Available)
}

func TestExtractContractRequiresAuth(t *testing.T) {
	rr := httptest.NewRecorder()
	testRouter().ServeHTTP(rr, httptest.NewRequest("POST", "/api/extract-contract", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestExtractContractNoFile(t *testing.T) {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	require.NoError(t, mw.WriteField("note", "no file here"))
	require.NoError(t, mw.Close())

	req := authedRequest("POST", "/api/extract-contract", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rr := httptest.NewRecorder()
	testRouter().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "no file provided")
}

func TestExtractContractRejectsNonPDF(t *testing.T) {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	fw, err := mw.CreateFormFile("file", "notes.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte("plain text, not a contract scan"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := authedRequest("POST", "/api/extract-contract", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rr := httptest.NewRecorder()
	testRouter().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "only PDF documents")
}

func TestContractEndpointsWithoutDatabase(t *testing.T) {
	router := testRouter()
	for _, tc := range []struct {
		method string
		target string
	}{
		{"GET", "/api/contracts"},
		{"GET", "/api/contract/4b4e7a64-6a2e-4a1e-9e58-0b2f8cf26a01"},
		{"DELETE", "/api/contract/4b4e7a64-6a2e-4a1e-9e58-0b2f8cf26a01"},
		{"GET", "/api/stats"},
	} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, authedRequest(tc.method, tc.target, nil))
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code, "%s %s", tc.method, tc.target)
	}
}

func TestContractEndpointsRequireAuth(t *testing.T) {
	router := testRouter()
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("GET", "/api/contracts", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestIsPDF(t *testing.T) {
	assert.True(t, isPDF("scan.pdf", []byte("garbage")))
	assert.True(t, isPDF("SCAN.PDF", nil))
	assert.True(t, isPDF("upload.bin", []byte("%PDF-1.7 rest")))
	assert.False(t, isPDF("notes.txt", []byte("hello")))
}
