package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/tilawah-registration/internal/utils"
)

const testSecret = "test-secret"

func callProtected(t *testing.T, authHeader string) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/admin/registrations", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := AdminAuth(testSecret)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, h(c))
	return rec, c
}

func TestAdminAuth(t *testing.T) {
	t.Run("accepts a valid admin token and exposes the subject", func(t *testing.T) {
		token, err := utils.NewAdminToken(testSecret, "ops@example.org", time.Hour)
		require.NoError(t, err)

		rec, c := callProtected(t, "Bearer "+token)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ops@example.org", c.Get("admin_id"))
	})

	t.Run("rejects a missing header", func(t *testing.T) {
		rec, _ := callProtected(t, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects a token signed with another secret", func(t *testing.T) {
		token, err := utils.NewAdminToken("wrong-secret", "ops@example.org", time.Hour)
		require.NoError(t, err)

		rec, _ := callProtected(t, "Bearer "+token)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects an expired token", func(t *testing.T) {
		token, err := utils.NewAdminToken(testSecret, "ops@example.org", -time.Minute)
		require.NoError(t, err)

		rec, _ := callProtected(t, "Bearer "+token)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects a non-admin role with 403", func(t *testing.T) {
		claims := jwt.MapClaims{
			"sub":  "user@example.org",
			"role": "USER",
			"exp":  time.Now().Add(time.Hour).Unix(),
			"iat":  time.Now().Unix(),
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)

		rec, _ := callProtected(t, "Bearer "+token)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
