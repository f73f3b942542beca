package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"minbar/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "unit-test-secret"

func signToken(t *testing.T, secret, sub string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func authTestApp(handler fiber.Handler) *fiber.App {
	InitMiddleware(&config.Config{JWTSecret: testSecret})
	app := fiber.New()
	app.Get("/", handler, func(c *fiber.Ctx) error {
		userID, _ := c.Locals("userID").(string)
		return c.JSON(fiber.Map{"user_id": userID})
	})
	return app
}

func TestAuthRequired(t *testing.T) {
	tests := []struct {
		name           string
		header         func(t *testing.T) string
		expectedStatus int
	}{
		{"valid token", func(t *testing.T) string {
			return "Bearer " + signToken(t, testSecret, "user-42")
		}, http.StatusOK},
		{"missing header", nil, http.StatusUnauthorized},
		{"malformed header", func(*testing.T) string { return "Token abc" }, http.StatusUnauthorized},
		{"garbage token", func(*testing.T) string { return "Bearer not-a-jwt" }, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := authTestApp(AuthRequired)

			var header string
			if tt.header != nil {
				header = tt.header(t)
			}

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}

			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
		})
	}

	t.Run("wrong signing key", func(t *testing.T) {
		app := authTestApp(AuthRequired)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, "some-other-secret", "user-42"))

		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("token without subject", func(t *testing.T) {
		app := authTestApp(AuthRequired)
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		signed, err := token.SignedString([]byte(testSecret))
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signed)

		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestOptionalAuth(t *testing.T) {
	t.Run("anonymous passes through", func(t *testing.T) {
		app := authTestApp(OptionalAuth)
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("valid token resolves the viewer", func(t *testing.T) {
		app := authTestApp(OptionalAuth)
		var seen string
		app.Get("/whoami", OptionalAuth, func(c *fiber.Ctx) error {
			seen, _ = c.Locals("userID").(string)
			return c.SendStatus(fiber.StatusOK)
		})

		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "user-7"))

		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "user-7", seen)
	})

	t.Run("invalid token stays anonymous", func(t *testing.T) {
		app := authTestApp(OptionalAuth)
		var seen interface{} = "sentinel"
		app.Get("/whoami", OptionalAuth, func(c *fiber.Ctx) error {
			seen = c.Locals("userID")
			return c.SendStatus(fiber.StatusOK)
		})

		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")

		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Nil(t, seen)
	})
}
