package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/genforge-api/internal/api/shared"
	"github.com/phrazzld/genforge-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestGetUserIDFromContext(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := getUserIDFromContext(req)
	assert.False(t, ok)

	nilUser := req.WithContext(context.WithValue(req.Context(), shared.UserIDContextKey, uuid.Nil))
	_, ok = getUserIDFromContext(nilUser)
	assert.False(t, ok)

	userID := uuid.New()
	withUser := req.WithContext(context.WithValue(req.Context(), shared.UserIDContextKey, userID))
	got, ok := getUserIDFromContext(withUser)
	assert.True(t, ok)
	assert.Equal(t, userID, got)
}

func TestGetPathUUID(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	got, err := getPathUUID(withURLParam(req, "id", id.String()), "id")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = getPathUUID(withURLParam(req, "id", "123"), "id")
	assert.ErrorIs(t, err, domain.ErrInvalidID)

	_, err = getPathUUID(withURLParam(req, "other", id.String()), "id")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestHandleUserIDAndPathUUID(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	userID := uuid.New()

	t.Run("missing user", func(t *testing.T) {
		t.Parallel()
		req := withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "id", id.String())
		rec := httptest.NewRecorder()

		_, _, ok := handleUserIDAndPathUUID(rec, req, "id", nil)
		assert.False(t, ok)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("both present", func(t *testing.T) {
		t.Parallel()
		req := withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "id", id.String())
		req = req.WithContext(context.WithValue(req.Context(), shared.UserIDContextKey, userID))
		rec := httptest.NewRecorder()

		gotUser, gotID, ok := handleUserIDAndPathUUID(rec, req, "id", nil)
		require.True(t, ok)
		assert.Equal(t, userID, gotUser)
		assert.Equal(t, id, gotID)
	})
}
