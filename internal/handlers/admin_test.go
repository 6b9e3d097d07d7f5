package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/X-spec7/book-review-backend/internal/security"
)

func adminAccessToken(t *testing.T) string {
	t.Helper()
	token, err := security.GenerateAccessToken("handler-test-secret", "admin-1", "admin", 15*time.Minute)
	require.NoError(t, err)
	return token
}

func TestAdminRevokeEndpoint(t *testing.T) {
	router, tokens := testRouter(t)
	doJSON(t, router, http.MethodPost, "/api/v1/auth/register", registerBody("a@x.com"), nil)
	_, cookie := loginAndGetCookie(t, router)

	tokens.mu.Lock()
	require.Len(t, tokens.tokens, 1)
	var tokenID string
	for id := range tokens.tokens {
		tokenID = id
	}
	tokens.mu.Unlock()

	admin := adminAccessToken(t)
	rec := doJSON(t, router, http.MethodDelete, "/api/v1/admin/tokens/"+tokenID, nil, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+admin)
	})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	// The revoked credential no longer refreshes.
	rec = doJSON(t, router, http.MethodPost, "/api/v1/auth/refresh", nil, func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: "refresh_token", Value: cookie})
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Revoking an already-revoked token is quiet.
	rec = doJSON(t, router, http.MethodDelete, "/api/v1/admin/tokens/"+tokenID, nil, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+admin)
	})
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAdminRevokeEndpoint_UnknownToken(t *testing.T) {
	router, _ := testRouter(t)

	rec := doJSON(t, router, http.MethodDelete, "/api/v1/admin/tokens/no-such-token", nil, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+adminAccessToken(t))
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminRevokeEndpoint_RequiresAdminRole(t *testing.T) {
	router, _ := testRouter(t)
	doJSON(t, router, http.MethodPost, "/api/v1/auth/register", registerBody("a@x.com"), nil)
	readerToken, _ := loginAndGetCookie(t, router)

	rec := doJSON(t, router, http.MethodDelete, "/api/v1/admin/tokens/whatever", nil, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+readerToken)
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, router, http.MethodDelete, "/api/v1/admin/tokens/whatever", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
