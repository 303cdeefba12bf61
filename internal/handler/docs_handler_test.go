package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocsHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewDocsHandler(nil).OpenAPI(rec, httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/yaml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "/api/v1/courses")

	rec = httptest.NewRecorder()
	NewDocsHandler([]byte{}).OpenAPI(rec, httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	NewDocsHandler(nil).SwaggerUI(rec, httptest.NewRequest(http.MethodGet, "/swagger", nil))
	assert.Contains(t, rec.Body.String(), "/openapi.yaml")
}
