package submission

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestRateLimitMiddlewareIsANoOpWithoutALimiter(t *testing.T) {
	e := echo.New()
	called := false
	handler := RateLimitMiddleware(nil)(func(c echo.Context) error {
		called = true
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodPost, "/submissions", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	assert.NoError(t, handler(c))
	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCheckManifestTierIsANoOpWithoutALimiter(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/submissions", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	assert.NoError(t, checkManifestTier(nil, c, "client-a", 5))
}
