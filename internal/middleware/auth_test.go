package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func authedHandler(t *testing.T, keys map[string]string) (http.Handler, *string) {
	t.Helper()
	var seenReviewer string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenReviewer = GetReviewerFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	return APIKeyAuth(keys)(next), &seenReviewer
}

func TestAPIKeyAuth_EmptyKeysDisablesCheck(t *testing.T) {
	h, _ := authedHandler(t, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pdf-files", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIKeyAuth_MissingHeaderIs401(t *testing.T) {
	h, _ := authedHandler(t, map[string]string{"alice": "secret"})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pdf-files", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPIKeyAuth_ValidKeySetsReviewer(t *testing.T) {
	h, reviewer := authedHandler(t, map[string]string{"alice": "secret"})

	req := httptest.NewRequest(http.MethodGet, "/pdf-files", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", *reviewer)
}

func TestAPIKeyAuth_InvalidKeyIs401(t *testing.T) {
	h, _ := authedHandler(t, map[string]string{"alice": "secret"})

	req := httptest.NewRequest(http.MethodGet, "/pdf-files", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPIKeyAuth_HealthSkipsAuth(t *testing.T) {
	h, _ := authedHandler(t, map[string]string{"alice": "secret"})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}
