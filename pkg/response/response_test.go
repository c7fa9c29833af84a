package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/kidpech/users_api/pkg/apperror"
	"github.com/kidpech/users_api/pkg/validation"
)

func newTestContext(path string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, path, nil)
	return c, w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestErrorOperational(t *testing.T) {
	c, w := newTestContext("/api/users/42")

	Error(c, apperror.NotFound("User not found"), false)

	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, map[string]any{"success": false, "error": "User not found"}, decode(t, w))
	require.True(t, c.IsAborted())
}

func TestErrorInternalHidesDetailsOutsideDevelopment(t *testing.T) {
	c, w := newTestContext("/api/users")

	Error(c, errors.New("pq: relation users does not exist"), false)

	body := decode(t, w)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Equal(t, "Internal Server Error", body["error"])
	require.NotContains(t, body, "stack")
	require.NotContains(t, body, "path")
}

func TestErrorInternalVerboseInDevelopment(t *testing.T) {
	c, w := newTestContext("/api/users")

	Error(c, errors.New("pq: relation users does not exist"), true)

	body := decode(t, w)
	require.Equal(t, "pq: relation users does not exist", body["error"])
	require.NotEmpty(t, body["stack"])
	require.Equal(t, "/api/users", body["path"])
}

func TestValidationErrorListsDetails(t *testing.T) {
	c, w := newTestContext("/api/users/search")

	ValidationError(c, validation.Violations{
		{Field: "q", Message: "Search query must not be empty", Kind: "notblank"},
		{Field: "limit", Message: "Limit must be between 1 and 100", Kind: "lte"},
	})

	body := decode(t, w)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Validation failed", body["error"])
	require.Len(t, body["details"], 2)
}

func TestTooManyRequestsSetsHeaders(t *testing.T) {
	c, w := newTestContext("/api/users")

	TooManyRequests(c, time.Now().Add(30*time.Second))

	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.NotEmpty(t, w.Header().Get("Retry-After"))
	require.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
}

func TestOKOmitsEmptyMessage(t *testing.T) {
	c, w := newTestContext("/api/users/stats")

	OK(c, gin.H{"stats": 1})

	require.Equal(t, map[string]any{"success": true, "data": map[string]any{"stats": float64(1)}}, decode(t, w))
}
