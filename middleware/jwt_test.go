package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retail-sales/logger"
)

type stubParser map[string]string

func (s stubParser) ParseJWTToken(token string) (string, error) {
	if id, ok := s[token]; ok {
		return id, nil
	}
	return "", errors.New("bad token")
}

func newApp(t *testing.T) *fiber.App {
	app := fiber.New()
	app.Use(RequestLogger(logger.NewTestLogger(t)))
	app.Get("/me", JWTMiddleware(stubParser{"good": "user-1"}), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"user_id": c.Locals("user_id")})
	})
	return app
}

func body(t *testing.T, r io.Reader) map[string]interface{} {
	var m map[string]interface{}
	require.NoError(t, json.NewDecoder(r).Decode(&m))
	return m
}

func TestJWTMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		wantStatus int
		wantKey    string
		wantValue  string
	}{
		{"bearer", map[string]string{"Authorization": "Bearer good"}, 200, "user_id", "user-1"},
		{"x-auth-token", map[string]string{"x-auth-token": "good"}, 200, "user_id", "user-1"},
		{"missing", nil, 401, "error", "No token, authorization denied"},
		{"wrong scheme", map[string]string{"Authorization": "Basic good"}, 401, "error", "No token, authorization denied"},
		{"invalid", map[string]string{"Authorization": "Bearer nope"}, 401, "error", "Token is not valid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newApp(t)
			req := httptest.NewRequest("GET", "/me", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantValue, body(t, resp.Body)[tt.wantKey])
		})
	}
}

func TestRequestLogger_PassesErrorsToHandler(t *testing.T) {
	app := fiber.New()
	app.Use(RequestLogger(logger.NewTestLogger(t)))
	app.Get("/boom", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusTeapot, "short and stout")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTeapot, resp.StatusCode)
}
